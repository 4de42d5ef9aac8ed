// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"mellium.im/xmpp/jid"

	"mellium.im/xmppext/form"
	"mellium.im/xmppext/paging"
)

// Request is a decoded pubsub request.
// Only the fields used by the request's verb are meaningful.
type Request struct {
	Verb      Verb
	ID        string
	Sender    jid.JID
	Recipient jid.JID

	// Node is the node identifier.
	// The empty string is the root collection node.
	Node string

	// Subscriber is the entity being subscribed, unsubscribed or configured.
	Subscriber jid.JID

	// Items to publish.
	Items []Item

	// ItemIDs of items to retrieve or retract.
	ItemIDs []string

	// MaxItems limits the number of items returned. Nil means no limit.
	MaxItems *uint64

	// Options is the node configuration form for create and configure
	// requests and the subscription options form for subscribe and options
	// requests.
	Options *form.Data

	SubID string

	// NodeType is the node type requested when retrieving default
	// configuration.
	NodeType string

	Affiliations  []Affiliation
	Subscriptions []Subscription

	// Paging is an optional result set management request for item
	// retrieval.
	Paging *paging.Request
}

// Feature returns the feature required to handle the request.
func (r *Request) Feature() string {
	return r.Verb.Feature()
}
