// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"errors"

	"mellium.im/xmpp/jid"

	"mellium.im/xmppext/shim"
	"mellium.im/xmppext/wire"
)

var errNotEvent = errors.New("pubsub: message is not an event notification")

// Event holds the fields common to all event notifications.
type Event struct {
	Sender    jid.JID
	Recipient jid.JID
	Node      string

	// Headers are the stanza headers of the notification message, such as
	// Collection.
	Headers map[string][]string
}

// ItemsEvent is received when items are published to or retracted from a
// node.
type ItemsEvent struct {
	Event
	Items     []Item
	Retracted []string
}

// DeleteEvent is received when a node is deleted.
type DeleteEvent struct {
	Event
	Redirect string
}

// PurgeEvent is received when all items of a node are removed.
type PurgeEvent struct {
	Event
}

// ParseEvent decodes an event notification message.
// The returned value is an ItemsEvent, DeleteEvent or PurgeEvent.
//
// Error messages and messages without both a sender and a recipient are not
// events.
// If the event element has several children the last recognized one is used.
func ParseEvent(env *wire.Envelope) (interface{}, error) {
	if env.Kind != wire.Message || env.Type == "error" {
		return nil, errNotEvent
	}
	if env.From.String() == "" || env.To.String() == "" {
		return nil, errNotEvent
	}
	eventEl := env.Child(NSEvent, "event")
	if eventEl == nil {
		return nil, errNotEvent
	}
	var action *wire.Element
	for _, child := range eventEl.ChildrenNamed(NSEvent, "") {
		switch child.Name.Local {
		case "items", "delete", "purge":
			action = child
		}
	}
	if action == nil {
		return nil, errNotEvent
	}

	base := Event{
		Sender:    env.From,
		Recipient: env.To,
		Node:      action.Attribute("node"),
		Headers:   shim.ExtractEnvelope(env),
	}
	switch action.Name.Local {
	case "items":
		ev := ItemsEvent{Event: base}
		for _, child := range action.Elements() {
			switch child.Name.Local {
			case "item":
				ev.Items = append(ev.Items, ParseItem(child))
			case "retract":
				ev.Retracted = append(ev.Retracted, child.Attribute("id"))
			}
		}
		return ev, nil
	case "delete":
		ev := DeleteEvent{Event: base}
		if r := action.Child(NSEvent, "redirect"); r != nil {
			ev.Redirect = r.Attribute("uri")
		}
		return ev, nil
	}
	return PurgeEvent{Event: base}, nil
}
