// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package paging implements result set management.
package paging // import "mellium.im/xmppext/paging"

import (
	"errors"
	"strconv"

	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/wire"
)

// Namespaces used by this package.
const (
	NS = "http://jabber.org/protocol/rsm"
)

// ErrNoSet is returned when parsing an element that has no result set.
var ErrNoSet = errors.New("paging: no result set found")

func badRequest(text string) error {
	return wire.NewError(stanza.BadRequest, text)
}

// findSet returns el if it is a set or its first set child.
func findSet(el *wire.Element) *wire.Element {
	if el == nil {
		return nil
	}
	if el.Name.Space == NS && el.Name.Local == "set" {
		return el
	}
	return el.Child(NS, "set")
}

func parseUint(el *wire.Element, name string) (*uint64, error) {
	child := el.Child(NS, name)
	if child == nil {
		return nil, nil
	}
	v, err := strconv.ParseUint(child.Text(), 10, 64)
	if err != nil {
		return nil, badRequest("bad value for '" + name + "' element")
	}
	return &v, nil
}

func addUint(el *wire.Element, name string, v uint64) *wire.Element {
	return el.AddElement(name).AddText(strconv.FormatUint(v, 10))
}

// Uint64 returns a pointer to v.
// It is a convenience for building requests and sets.
func Uint64(v uint64) *uint64 {
	return &v
}
