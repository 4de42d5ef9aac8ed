// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package paging

import (
	"encoding/xml"
	"strconv"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/wire"
)

// Request can be added to a query to limit the number of results, page forward
// or backward, or skip to an index.
//
// A nil Max places no limit on the page size.
// A nil Before does not page backward while a pointer to the empty string
// requests the last page.
type Request struct {
	Max    *uint64
	After  string
	Before *string
	Index  *uint64
}

// Next returns a request for the page following set.
func Next(set *Set, max uint64) *Request {
	return &Request{Max: &max, After: set.Last}
}

// Prev returns a request for the page preceding set.
func Prev(set *Set, max uint64) *Request {
	before := set.First
	return &Request{Max: &max, Before: &before}
}

// Last returns a request for the last page.
func Last(max uint64) *Request {
	before := ""
	return &Request{Max: &max, Before: &before}
}

// Element returns the <set/> element for the request.
func (req *Request) Element() *wire.Element {
	el := wire.NewElement(NS, "set")
	if req.Max != nil {
		addUint(el, "max", *req.Max)
	}
	if req.Index != nil {
		addUint(el, "index", *req.Index)
	}
	if req.Before != nil {
		el.AddElement("before").AddText(*req.Before)
	}
	if req.After != "" {
		el.AddElement("after").AddText(req.After)
	}
	return el
}

// TokenReader implements xmlstream.Marshaler.
func (req *Request) TokenReader() xml.TokenReader {
	return req.Element().TokenReader()
}

// WriteXML implements xmlstream.WriterTo.
func (req *Request) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, req.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (req *Request) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := req.WriteXML(e)
	return err
}

// ParseRequest decodes a request from a <set/> element or from the first
// <set/> child of el.
// If no set is found ErrNoSet is returned.
// Malformed sets result in a bad-request stanza error.
func ParseRequest(el *wire.Element) (*Request, error) {
	set := findSet(el)
	if set == nil {
		return nil, ErrNoSet
	}
	req := &Request{}
	var err error
	if req.Max, err = parseUint(set, "max"); err != nil {
		return nil, err
	}
	if req.Index, err = parseUint(set, "index"); err != nil {
		return nil, err
	}
	if before := set.Child(NS, "before"); before != nil {
		s := before.Text()
		req.Before = &s
	}
	if after := set.Child(NS, "after"); after != nil {
		req.After = after.Text()
		if req.After == "" {
			return nil, badRequest("<after/> element can't be empty in RSM request")
		}
	}
	return req, nil
}

// Set describes a page from a returned result set.
// An empty First means the page contains no items, in which case only the
// count is rendered.
type Set struct {
	First string
	Last  string
	Index *uint64
	Count *uint64
}

// Element returns the <set/> element for the page.
func (s *Set) Element() *wire.Element {
	el := wire.NewElement(NS, "set")
	if s.First != "" {
		first := el.AddElement("first").AddText(s.First)
		if s.Index != nil {
			first.SetAttr("index", strconv.FormatUint(*s.Index, 10))
		}
		el.AddElement("last").AddText(s.Last)
	}
	if s.Count != nil {
		addUint(el, "count", *s.Count)
	}
	return el
}

// TokenReader implements xmlstream.Marshaler.
func (s *Set) TokenReader() xml.TokenReader {
	return s.Element().TokenReader()
}

// WriteXML implements xmlstream.WriterTo.
func (s *Set) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, s.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (s *Set) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := s.WriteXML(e)
	return err
}

// ParseSet decodes a page description from a <set/> element or from the first
// <set/> child of el.
func ParseSet(el *wire.Element) (*Set, error) {
	set := findSet(el)
	if set == nil {
		return nil, ErrNoSet
	}
	s := &Set{}
	first := set.Child(NS, "first")
	last := set.Child(NS, "last")
	switch {
	case first != nil && last == nil:
		return nil, badRequest("RSM response is missing its 'last' element")
	case first == nil && last != nil:
		return nil, badRequest("RSM response is missing its 'first' element")
	case first != nil:
		s.First = first.Text()
		s.Last = last.Text()
		if idx, ok := first.Lookup("index"); ok {
			v, err := strconv.ParseUint(idx, 10, 64)
			if err != nil {
				return nil, badRequest("bad index in RSM response")
			}
			s.Index = &v
		}
	}
	var err error
	if s.Count, err = parseUint(set, "count"); err != nil {
		return nil, wire.NewError(stanza.BadRequest, "invalid count in RSM response")
	}
	return s, nil
}
