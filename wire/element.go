// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"mellium.im/xmlstream"

	"mellium.im/xmppext/internal/attr"
	"mellium.im/xmppext/internal/ns"
)

// Node is a child of an Element.
// It is either an *Element or CharData.
type Node interface {
	TokenReader() xml.TokenReader
}

// CharData is character data contained in an element.
type CharData string

// TokenReader satisfies the xmlstream.Marshaler interface.
func (c CharData) TokenReader() xml.TokenReader {
	return xmlstream.Token(xml.CharData(c))
}

// Element is a namespaced XML element and its children.
//
// Children that are in the same namespace as their parent are rendered
// without a namespace declaration and inherit the parent namespace when parsed
// again.
// Because of this, a child element with no namespace under a namespaced parent
// is always rendered in its parent's namespace.
type Element struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []Node
}

// NewElement returns a new element with the provided namespace and local name.
func NewElement(space, local string) *Element {
	return &Element{Name: xml.Name{Space: space, Local: local}}
}

// Lookup returns the value of the un-namespaced attribute with the given local
// name and whether it was present at all.
func (e *Element) Lookup(local string) (string, bool) {
	return attr.Lookup(e.Attr, local)
}

// Attribute returns the value of the un-namespaced attribute with the given
// local name or the empty string.
func (e *Element) Attribute(local string) string {
	return attr.Get(e.Attr, local)
}

// SetAttr sets an un-namespaced attribute and returns the element so that calls
// may be chained.
func (e *Element) SetAttr(local, value string) *Element {
	e.Attr = attr.Set(e.Attr, local, value)
	return e
}

// AddChild appends child to the element and returns the child.
func (e *Element) AddChild(child *Element) *Element {
	e.Children = append(e.Children, child)
	return child
}

// AddElement appends a new child in the same namespace as e and returns it.
func (e *Element) AddElement(local string) *Element {
	return e.AddChild(NewElement(e.Name.Space, local))
}

// AddText appends character data to the element and returns the element.
func (e *Element) AddText(s string) *Element {
	if s == "" {
		return e
	}
	if n := len(e.Children); n > 0 {
		if prev, ok := e.Children[n-1].(CharData); ok {
			e.Children[n-1] = prev + CharData(s)
			return e
		}
	}
	e.Children = append(e.Children, CharData(s))
	return e
}

// Elements returns the child elements of e, skipping character data.
func (e *Element) Elements() []*Element {
	var out []*Element
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// Child returns the first child element with the provided name.
// An empty namespace or local name matches any namespace or local name.
func (e *Element) Child(space, local string) *Element {
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok && nameMatches(el.Name, space, local) {
			return el
		}
	}
	return nil
}

// ChildrenNamed returns all child elements matching the provided name using
// the same rules as Child.
func (e *Element) ChildrenNamed(space, local string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok && nameMatches(el.Name, space, local) {
			out = append(out, el)
		}
	}
	return out
}

// Text returns the concatenation of the direct character data children of e.
func (e *Element) Text() string {
	var b strings.Builder
	for _, c := range e.Children {
		if cd, ok := c.(CharData); ok {
			b.WriteString(string(cd))
		}
	}
	return b.String()
}

// Copy returns a deep copy of e.
func (e *Element) Copy() *Element {
	if e == nil {
		return nil
	}
	cp := &Element{
		Name: e.Name,
		Attr: append([]xml.Attr(nil), e.Attr...),
	}
	for _, c := range e.Children {
		switch n := c.(type) {
		case *Element:
			cp.Children = append(cp.Children, n.Copy())
		default:
			cp.Children = append(cp.Children, n)
		}
	}
	return cp
}

// Equal reports whether e and other have the same name, attributes (in any
// order) and children.
// Whitespace only character data is ignored.
func (e *Element) Equal(other *Element) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Name != other.Name || len(e.Attr) != len(other.Attr) {
		return false
	}
	for _, a := range e.Attr {
		found := false
		for _, b := range other.Attr {
			if a == b {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	ec, oc := significant(e.Children), significant(other.Children)
	if len(ec) != len(oc) {
		return false
	}
	for i := range ec {
		switch n := ec[i].(type) {
		case *Element:
			m, ok := oc[i].(*Element)
			if !ok || !n.Equal(m) {
				return false
			}
		case CharData:
			if m, ok := oc[i].(CharData); !ok || n != m {
				return false
			}
		}
	}
	return true
}

func significant(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if cd, ok := n.(CharData); ok && strings.TrimSpace(string(cd)) == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (e *Element) TokenReader() xml.TokenReader {
	return e.tokenReader("")
}

func (e *Element) tokenReader(parentSpace string) xml.TokenReader {
	start := xml.StartElement{
		Name: e.Name,
		Attr: append([]xml.Attr(nil), e.Attr...),
	}
	if start.Name.Space == parentSpace {
		start.Name.Space = ""
	}
	children := make([]xml.TokenReader, 0, len(e.Children))
	for _, c := range e.Children {
		switch n := c.(type) {
		case *Element:
			children = append(children, n.tokenReader(e.Name.Space))
		case nil:
		default:
			children = append(children, n.TokenReader())
		}
	}
	return xmlstream.Wrap(xmlstream.MultiReader(children...), start)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (e *Element) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, e.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (e *Element) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	_, err := e.WriteXML(enc)
	return err
}

// UnmarshalXML satisfies the xml.Unmarshaler interface.
func (e *Element) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	el, err := Decode(d, start)
	if err != nil {
		return err
	}
	*e = *el
	return nil
}

// String returns the XML serialization of e.
// If the element cannot be serialized the empty string is returned.
func (e *Element) String() string {
	var b strings.Builder
	enc := xml.NewEncoder(&b)
	if _, err := e.WriteXML(enc); err != nil {
		return ""
	}
	if err := enc.Flush(); err != nil {
		return ""
	}
	return b.String()
}

// Decode builds an element from start and the tokens read from r up to and
// including the end element matching start.
func Decode(r xml.TokenReader, start xml.StartElement) (*Element, error) {
	root := fromStart(start)
	stack := []*Element{root}
	for len(stack) > 0 {
		tok, err := r.Token()
		if tok != nil {
			top := stack[len(stack)-1]
			switch t := tok.(type) {
			case xml.StartElement:
				child := fromStart(t)
				top.Children = append(top.Children, child)
				stack = append(stack, child)
			case xml.EndElement:
				stack = stack[:len(stack)-1]
			case xml.CharData:
				top.AddText(string(t))
			}
		}
		switch {
		case err == io.EOF && len(stack) > 0:
			return nil, io.ErrUnexpectedEOF
		case err == io.EOF:
		case err != nil:
			return nil, err
		}
	}
	return root, nil
}

// Parse decodes the first element found in s.
func Parse(s string) (*Element, error) {
	d := xml.NewDecoder(strings.NewReader(s))
	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				return nil, errors.New("wire: no element found")
			}
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return Decode(d, start)
		}
	}
}

// MustParse is like Parse but panics on error.
// It is intended for tests and static payloads.
func MustParse(s string) *Element {
	el, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return el
}

func fromStart(start xml.StartElement) *Element {
	el := &Element{Name: start.Name}
	for _, a := range start.Attr {
		if a.Name.Space == ns.XMLNS || (a.Name.Space == "" && a.Name.Local == ns.XMLNS) {
			continue
		}
		el.Attr = append(el.Attr, a)
	}
	return el
}

func nameMatches(n xml.Name, space, local string) bool {
	return (space == "" || n.Space == space) && (local == "" || n.Local == local)
}
