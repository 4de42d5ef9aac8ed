// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"mellium.im/xmpp/jid"

	"mellium.im/xmppext/shim"
	"mellium.im/xmppext/wire"
)

// Notification is an event to be delivered to a single subscriber.
type Notification struct {
	Subscriber jid.JID

	// Subscriptions are the subscriptions through which the subscriber
	// receives the event.
	// A subscription to a node other than the notified one, such as a
	// collection containing it, results in a Collection header naming that
	// node.
	Subscriptions []Subscription

	// Items and Retracted are only used for items events.
	Items     []Item
	Retracted []string
}

// newEvent builds the message skeleton shared by all notifications and
// returns it along with the action element to be filled in.
func newEvent(action string, service jid.JID, node string, n Notification) (*wire.Envelope, *wire.Element) {
	event := wire.NewElement(NSEvent, "event")
	// Events always name their node, the root node included.
	actionEl := event.AddElement(action).SetAttr("node", node)
	msg := wire.NewMessage(service, n.Subscriber, event)

	var headers shim.Headers
	seen := make(map[string]struct{})
	for _, sub := range n.Subscriptions {
		if sub.Node == node {
			continue
		}
		if _, ok := seen[sub.Node]; ok {
			continue
		}
		seen[sub.Node] = struct{}{}
		headers.Add(CollectionHeader, sub.Node)
	}
	if len(headers) > 0 {
		msg.Payload = append(msg.Payload, headers.Element())
	}
	return msg, actionEl
}

// ItemsMessage builds the notification sent for published or retracted items.
func ItemsMessage(service jid.JID, node string, n Notification) *wire.Envelope {
	msg, items := newEvent("items", service, node, n)
	for _, item := range n.Items {
		items.AddChild(item.Element(NSEvent))
	}
	for _, id := range n.Retracted {
		items.AddElement("retract").SetAttr("id", id)
	}
	return msg
}

// DeleteMessage builds the notification sent when a node is deleted.
// If redirect is not empty subscribers are pointed at the replacement node.
func DeleteMessage(service jid.JID, node string, n Notification, redirect string) *wire.Envelope {
	msg, del := newEvent("delete", service, node, n)
	if redirect != "" {
		del.AddElement("redirect").SetAttr("uri", redirect)
	}
	return msg
}

// PurgeMessage builds the notification sent when all items of a node are
// removed.
func PurgeMessage(service jid.JID, node string, n Notification) *wire.Envelope {
	msg, _ := newEvent("purge", service, node, n)
	return msg
}
