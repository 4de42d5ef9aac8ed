// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package paging_test

import (
	"encoding/xml"
	"errors"
	"reflect"
	"strconv"
	"testing"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/paging"
	"mellium.im/xmppext/wire"
)

var (
	_ xmlstream.Marshaler = (*paging.Request)(nil)
	_ xmlstream.WriterTo  = (*paging.Request)(nil)
	_ xml.Marshaler       = (*paging.Request)(nil)
	_ xmlstream.Marshaler = (*paging.Set)(nil)
	_ xmlstream.WriterTo  = (*paging.Set)(nil)
	_ xml.Marshaler       = (*paging.Set)(nil)
)

func str(s string) *string { return &s }

var requestTests = [...]struct {
	req *paging.Request
	out string
}{
	0: {
		req: &paging.Request{},
		out: `<set xmlns="http://jabber.org/protocol/rsm"></set>`,
	},
	1: {
		req: &paging.Request{Max: paging.Uint64(10), After: "a"},
		out: `<set xmlns="http://jabber.org/protocol/rsm"><max>10</max><after>a</after></set>`,
	},
	2: {
		req: paging.Last(5),
		out: `<set xmlns="http://jabber.org/protocol/rsm"><max>5</max><before></before></set>`,
	},
	3: {
		req: &paging.Request{Max: paging.Uint64(0), Index: paging.Uint64(3)},
		out: `<set xmlns="http://jabber.org/protocol/rsm"><max>0</max><index>3</index></set>`,
	},
}

func TestRequest(t *testing.T) {
	for i, tc := range requestTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			b, err := xml.Marshal(tc.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(b) != tc.out {
				t.Fatalf("wrong output:\nwant=%s,\n got=%s", tc.out, b)
			}
			parsed, err := paging.ParseRequest(wire.MustParse(tc.out))
			if err != nil {
				t.Fatalf("unexpected error parsing: %v", err)
			}
			if !reflect.DeepEqual(parsed, tc.req) {
				t.Errorf("request changed after round trip:\nwant=%+v,\n got=%+v", tc.req, parsed)
			}
		})
	}
}

var badRequestTests = [...]string{
	0: `<set xmlns="http://jabber.org/protocol/rsm"><after/></set>`,
	1: `<set xmlns="http://jabber.org/protocol/rsm"><max>ten</max></set>`,
	2: `<set xmlns="http://jabber.org/protocol/rsm"><index>-1</index></set>`,
}

func TestBadRequest(t *testing.T) {
	for i, in := range badRequestTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			_, err := paging.ParseRequest(wire.MustParse(in))
			if !errors.Is(err, &wire.Error{Condition: stanza.BadRequest}) {
				t.Errorf("wrong error: want=bad-request, got=%v", err)
			}
		})
	}
}

func TestParseRequestFromParent(t *testing.T) {
	_, err := paging.ParseRequest(wire.MustParse(`<pubsub xmlns="http://jabber.org/protocol/pubsub"/>`))
	if err != paging.ErrNoSet {
		t.Errorf("wrong error: want=%v, got=%v", paging.ErrNoSet, err)
	}
	req, err := paging.ParseRequest(wire.MustParse(`<pubsub xmlns="http://jabber.org/protocol/pubsub"><items node="a"/><set xmlns="http://jabber.org/protocol/rsm"><max>2</max></set></pubsub>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Max == nil || *req.Max != 2 {
		t.Errorf("wrong max: %+v", req)
	}
}

var setTests = [...]struct {
	set *paging.Set
	out string
}{
	0: {
		set: &paging.Set{Count: paging.Uint64(20)},
		out: `<set xmlns="http://jabber.org/protocol/rsm"><count>20</count></set>`,
	},
	1: {
		set: &paging.Set{First: "a", Last: "b", Index: paging.Uint64(0), Count: paging.Uint64(2)},
		out: `<set xmlns="http://jabber.org/protocol/rsm"><first index="0">a</first><last>b</last><count>2</count></set>`,
	},
	2: {
		set: &paging.Set{First: "a", Last: "a"},
		out: `<set xmlns="http://jabber.org/protocol/rsm"><first>a</first><last>a</last></set>`,
	},
}

func TestSet(t *testing.T) {
	for i, tc := range setTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			b, err := xml.Marshal(tc.set)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(b) != tc.out {
				t.Fatalf("wrong output:\nwant=%s,\n got=%s", tc.out, b)
			}
			parsed, err := paging.ParseSet(wire.MustParse(tc.out))
			if err != nil {
				t.Fatalf("unexpected error parsing: %v", err)
			}
			if !reflect.DeepEqual(parsed, tc.set) {
				t.Errorf("set changed after round trip:\nwant=%+v,\n got=%+v", tc.set, parsed)
			}
		})
	}
}

func TestBadSet(t *testing.T) {
	for i, in := range []string{
		`<set xmlns="http://jabber.org/protocol/rsm"><first>a</first></set>`,
		`<set xmlns="http://jabber.org/protocol/rsm"><last>a</last></set>`,
		`<set xmlns="http://jabber.org/protocol/rsm"><first index="x">a</first><last>a</last></set>`,
		`<set xmlns="http://jabber.org/protocol/rsm"><count>many</count></set>`,
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if _, err := paging.ParseSet(wire.MustParse(in)); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

var ids = []string{"1", "2", "3", "4", "5"}

var pageTests = [...]struct {
	req        *paging.Request
	start, end int
	first      string
	err        bool
}{
	0: {req: nil, start: 0, end: 5, first: "1"},
	1: {req: &paging.Request{Max: paging.Uint64(2)}, start: 0, end: 2, first: "1"},
	2: {req: &paging.Request{Max: paging.Uint64(2), After: "2"}, start: 2, end: 4, first: "3"},
	3: {req: &paging.Request{Max: paging.Uint64(2), After: "5"}, start: 5, end: 5},
	4: {req: paging.Last(2), start: 3, end: 5, first: "4"},
	5: {req: &paging.Request{Max: paging.Uint64(2), Before: str("3")}, start: 0, end: 2, first: "1"},
	6: {req: &paging.Request{Max: paging.Uint64(2), Index: paging.Uint64(1)}, start: 1, end: 3, first: "2"},
	7: {req: &paging.Request{Max: paging.Uint64(0)}, start: 0, end: 0},
	8: {req: &paging.Request{After: "missing"}, err: true},
	9: {req: &paging.Request{Index: paging.Uint64(10)}, start: 5, end: 5},
}

func TestPage(t *testing.T) {
	for i, tc := range pageTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			start, end, set, err := paging.Page(ids, tc.req)
			switch {
			case tc.err && err == nil:
				t.Fatalf("expected error")
			case tc.err:
				return
			case err != nil:
				t.Fatalf("unexpected error: %v", err)
			}
			if start != tc.start || end != tc.end {
				t.Errorf("wrong range: want=[%d,%d), got=[%d,%d)", tc.start, tc.end, start, end)
			}
			if set.First != tc.first {
				t.Errorf("wrong first: want=%q, got=%q", tc.first, set.First)
			}
			if set.Count == nil || *set.Count != uint64(len(ids)) {
				t.Errorf("wrong count: %v", set.Count)
			}
			if tc.first != "" && (set.Index == nil || *set.Index != uint64(tc.start)) {
				t.Errorf("wrong index: %v", set.Index)
			}
		})
	}
}
