// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"mellium.im/xmppext/wire"
)

// Item is a single published item.
// The payload is optional; items without a payload carry only an id.
type Item struct {
	ID      string
	Payload *wire.Element
}

// Element returns the <item/> element in the given namespace.
func (i Item) Element(space string) *wire.Element {
	el := wire.NewElement(space, "item")
	if i.ID != "" {
		el.SetAttr("id", i.ID)
	}
	if i.Payload != nil {
		el.AddChild(i.Payload)
	}
	return el
}

// ParseItem decodes an <item/> element from any pubsub namespace.
func ParseItem(el *wire.Element) Item {
	i := Item{ID: el.Attribute("id")}
	if children := el.Elements(); len(children) > 0 {
		i.Payload = children[0]
	}
	return i
}
