// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package attr contains helpers for working with XML attributes and stanza
// identifiers.
package attr // import "mellium.im/xmppext/internal/attr"

import (
	"encoding/xml"
)

// Lookup returns the value of the first attribute with the provided local name
// and no namespace.
// Namespaced attributes (for example xml:lang) never match.
func Lookup(attr []xml.Attr, local string) (string, bool) {
	for _, a := range attr {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Get is like Lookup but returns an empty string if no attribute exists.
func Get(attr []xml.Attr, local string) string {
	v, _ := Lookup(attr, local)
	return v
}

// Set replaces the value of the first un-namespaced attribute with the
// provided local name or appends a new attribute if none exists.
func Set(attr []xml.Attr, local, value string) []xml.Attr {
	for i, a := range attr {
		if a.Name.Space == "" && a.Name.Local == local {
			attr[i].Value = value
			return attr
		}
	}
	return append(attr, xml.Attr{Name: xml.Name{Local: local}, Value: value})
}

// Remove deletes all un-namespaced attributes with the provided local name.
func Remove(attr []xml.Attr, local string) []xml.Attr {
	out := attr[:0]
	for _, a := range attr {
		if a.Name.Space == "" && a.Name.Local == local {
			continue
		}
		out = append(out, a)
	}
	return out
}
