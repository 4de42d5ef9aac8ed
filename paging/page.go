// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package paging

import (
	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/wire"
)

// Page applies req to an ordered list of result identifiers and returns the
// half open range of ids that make up the page along with a description of
// the page.
//
// If req is nil the entire list is returned.
// Referencing an identifier that is not in ids results in an item-not-found
// stanza error.
func Page(ids []string, req *Request) (start, end int, set *Set, err error) {
	total := uint64(len(ids))
	set = &Set{Count: &total}
	if req == nil {
		req = &Request{}
	}
	end = len(ids)

	indexOf := func(id string) (int, error) {
		for i, v := range ids {
			if v == id {
				return i, nil
			}
		}
		return 0, wire.NewError(stanza.ItemNotFound, "unknown result set item "+id)
	}

	switch {
	case req.Index != nil:
		start = int(*req.Index)
		if *req.Index > total {
			start = len(ids)
		}
	case req.After != "":
		pos, err := indexOf(req.After)
		if err != nil {
			return 0, 0, nil, err
		}
		start = pos + 1
	case req.Before != nil:
		if *req.Before != "" {
			end, err = indexOf(*req.Before)
			if err != nil {
				return 0, 0, nil, err
			}
		}
		if req.Max != nil && uint64(end) > *req.Max {
			start = end - int(*req.Max)
		}
	}
	if req.Before == nil && req.Max != nil && uint64(len(ids)-start) > *req.Max {
		end = start + int(*req.Max)
	}
	if start > end {
		start = end
	}
	if start < end {
		idx := uint64(start)
		set.First = ids[start]
		set.Last = ids[end-1]
		set.Index = &idx
	}
	return start, end, set, nil
}
