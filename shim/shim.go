// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package shim implements stanza headers (XEP-0131).
package shim // import "mellium.im/xmppext/shim"

import (
	"encoding/xml"
	"sort"

	"mellium.im/xmlstream"

	"mellium.im/xmppext/wire"
)

// NS is the stanza headers namespace.
const NS = "http://jabber.org/protocol/shim"

// Header is a single named header.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered list of headers.
// The same name may appear more than once.
type Headers []Header

// Add appends a header.
func (h *Headers) Add(name, value string) {
	*h = append(*h, Header{Name: name, Value: value})
}

// Get returns all values for the named header in order.
func (h Headers) Get(name string) []string {
	var out []string
	for _, hdr := range h {
		if hdr.Name == name {
			out = append(out, hdr.Value)
		}
	}
	return out
}

// Element returns the <headers/> element.
func (h Headers) Element() *wire.Element {
	el := wire.NewElement(NS, "headers")
	for _, hdr := range h {
		el.AddElement("header").SetAttr("name", hdr.Name).AddText(hdr.Value)
	}
	return el
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (h Headers) TokenReader() xml.TokenReader {
	return h.Element().TokenReader()
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (h Headers) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, h.TokenReader())
}

// FromMap builds headers from a map, sorting names so the output is stable.
func FromMap(m map[string][]string) Headers {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	var h Headers
	for _, name := range names {
		for _, v := range m[name] {
			h.Add(name, v)
		}
	}
	return h
}

// Extract collects the headers from every <headers/> child of el.
// Values are grouped by name in document order.
// Headers without a name are ignored.
func Extract(el *wire.Element) map[string][]string {
	m := make(map[string][]string)
	if el == nil {
		return m
	}
	for _, headers := range el.ChildrenNamed(NS, "headers") {
		extractInto(m, headers)
	}
	return m
}

// ExtractEnvelope is like Extract but reads the payload of a stanza.
func ExtractEnvelope(env *wire.Envelope) map[string][]string {
	m := make(map[string][]string)
	for _, p := range env.Payload {
		if p.Name.Space == NS && p.Name.Local == "headers" {
			extractInto(m, p)
		}
	}
	return m
}

func extractInto(m map[string][]string, headers *wire.Element) {
	for _, hdr := range headers.ChildrenNamed(NS, "header") {
		name, ok := hdr.Lookup("name")
		if !ok || name == "" {
			continue
		}
		m[name] = append(m[name], hdr.Text())
	}
}
