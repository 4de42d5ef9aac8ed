// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wire_test

import (
	"encoding/xml"
	"strconv"
	"testing"

	"mellium.im/xmppext/wire"
)

var marshalTests = [...]struct {
	el  func() *wire.Element
	out string
}{
	0: {
		el:  func() *wire.Element { return wire.NewElement("", "empty") },
		out: `<empty></empty>`,
	},
	1: {
		el: func() *wire.Element {
			el := wire.NewElement("urn:example", "a")
			el.AddElement("b").SetAttr("k", "v").AddText("hi")
			return el
		},
		out: `<a xmlns="urn:example"><b k="v">hi</b></a>`,
	},
	2: {
		el: func() *wire.Element {
			el := wire.NewElement("urn:example", "a")
			el.AddChild(wire.NewElement("urn:other", "b"))
			return el
		},
		out: `<a xmlns="urn:example"><b xmlns="urn:other"></b></a>`,
	},
	3: {
		el: func() *wire.Element {
			el := wire.NewElement("", "a")
			el.AddText("one ")
			el.AddText("two")
			return el
		},
		out: `<a>one two</a>`,
	},
	4: {
		el: func() *wire.Element {
			return wire.NewElement("", "a").SetAttr("x", `<&"`)
		},
		out: `<a x="&lt;&amp;&#34;"></a>`,
	},
}

func TestMarshal(t *testing.T) {
	for i, tc := range marshalTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			el := tc.el()
			if out := el.String(); out != tc.out {
				t.Errorf("wrong output:\nwant=%s,\n got=%s", tc.out, out)
			}
			b, err := xml.Marshal(el)
			if err != nil {
				t.Fatalf("unexpected error marshaling: %v", err)
			}
			if string(b) != tc.out {
				t.Errorf("wrong output from xml.Marshal:\nwant=%s,\n got=%s", tc.out, b)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	const in = `<a xmlns="urn:example" x="1"><b><c xmlns="urn:other" y="2">text</c></b><b/></a>`
	el, err := wire.Parse(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if el.Name.Space != "urn:example" || el.Name.Local != "a" {
		t.Errorf("wrong name: %+v", el.Name)
	}
	if len(el.Attr) != 1 {
		t.Errorf("expected namespace declarations to be dropped, got attrs %+v", el.Attr)
	}
	bs := el.ChildrenNamed("urn:example", "b")
	if len(bs) != 2 {
		t.Fatalf("wrong number of children: want=2, got=%d", len(bs))
	}
	c := bs[0].Child("urn:other", "c")
	if c == nil {
		t.Fatalf("child not found")
	}
	if v := c.Attribute("y"); v != "2" {
		t.Errorf("wrong attribute: want=2, got=%q", v)
	}
	if s := c.Text(); s != "text" {
		t.Errorf("wrong text: want=text, got=%q", s)
	}

	again, err := wire.Parse(el.String())
	if err != nil {
		t.Fatalf("unexpected error reparsing: %v", err)
	}
	if !el.Equal(again) {
		t.Errorf("element changed after round trip:\nwant=%s,\n got=%s", el, again)
	}
}

func TestParseLang(t *testing.T) {
	el, err := wire.Parse(`<a xml:lang="de"/>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := el.Lookup("lang"); ok {
		t.Errorf("namespaced attribute should not be found by Lookup")
	}
	if len(el.Attr) != 1 || el.Attr[0].Value != "de" {
		t.Errorf("xml:lang not preserved: %+v", el.Attr)
	}
}

func TestParseErrors(t *testing.T) {
	for i, in := range []string{"", "text only", "<a><b></a>", "<a>"} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if _, err := wire.Parse(in); err == nil {
				t.Errorf("expected error parsing %q", in)
			}
		})
	}
}

func TestCopyIsDeep(t *testing.T) {
	el := wire.MustParse(`<a xmlns="urn:example"><b k="v"/></a>`)
	cp := el.Copy()
	cp.Elements()[0].SetAttr("k", "changed")
	if v := el.Elements()[0].Attribute("k"); v != "v" {
		t.Errorf("modifying copy changed original: got=%q", v)
	}
	if el.Equal(cp) {
		t.Errorf("expected elements to differ after modification")
	}
}

func TestChildWildcards(t *testing.T) {
	el := wire.MustParse(`<a xmlns="urn:example"><b xmlns="urn:other"/><c/></a>`)
	if el.Child("", "b") == nil {
		t.Errorf("empty namespace should match any namespace")
	}
	if el.Child("urn:example", "b") != nil {
		t.Errorf("namespace should be compared when provided")
	}
	if n := len(el.ChildrenNamed("", "")); n != 2 {
		t.Errorf("wrong number of children: want=2, got=%d", n)
	}
}
