// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package form_test

import (
	"reflect"
	"strconv"
	"testing"

	"mellium.im/xmppext/form"
	"mellium.im/xmppext/wire"
)

var parseTests = [...]struct {
	in       string
	typ      string
	formType string
	values   map[string][]string
	err      bool
}{
	0: {
		in:     `<x xmlns="jabber:x:data"/>`,
		typ:    form.TypeForm,
		values: map[string][]string{},
	},
	1: {
		in: `<x xmlns="jabber:x:data" type="submit">
			<field var="FORM_TYPE" type="hidden"><value>http://jabber.org/protocol/pubsub#node_config</value></field>
			<field var="pubsub#node_type"><value>collection</value></field>
			<field var="pubsub#children"><value>a</value><value>b</value></field>
		</x>`,
		typ:      form.TypeSubmit,
		formType: "http://jabber.org/protocol/pubsub#node_config",
		values: map[string][]string{
			"pubsub#node_type": {"collection"},
			"pubsub#children":  {"a", "b"},
		},
	},
	2: {
		in:  `<x xmlns="urn:example"/>`,
		err: true,
	},
}

func TestParse(t *testing.T) {
	for i, tc := range parseTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			d, err := form.Parse(wire.MustParse(tc.in))
			switch {
			case tc.err && err == nil:
				t.Fatalf("expected error")
			case tc.err:
				return
			case err != nil:
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Type != tc.typ {
				t.Errorf("wrong type: want=%q, got=%q", tc.typ, d.Type)
			}
			if ft := d.FormType(); ft != tc.formType {
				t.Errorf("wrong form type: want=%q, got=%q", tc.formType, ft)
			}
			if v := d.Values(); !reflect.DeepEqual(v, tc.values) {
				t.Errorf("wrong values: want=%v, got=%v", tc.values, v)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	d := form.New(form.TypeResult, "urn:example:type",
		form.Field{Var: "a", Type: "text-single", Label: "A", Values: []string{"1"}},
	)
	d.Title = "Title"
	d.Set("b", "2", "3")
	d.Set("a", "4")

	out, err := form.Parse(wire.MustParse(d.Element().String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(out, d) {
		t.Errorf("form changed after round trip:\nwant=%+v,\n got=%+v", d, out)
	}
	if v, ok := out.Get("a"); !ok || v != "4" {
		t.Errorf("wrong value for a: %q, %t", v, ok)
	}
	if _, ok := out.Get("missing"); ok {
		t.Errorf("missing field reported as present")
	}
}
