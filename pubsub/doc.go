// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package pubsub implements data storage using a publish–subscribe pattern.
//
// Requests are modeled as a Request value tagged with one of the Verb
// constants.
// Decode turns an incoming IQ into a Request and Request.Envelope renders a
// Request as an IQ, so the two form a codec over the roughly twenty request
// shapes that share the <pubsub/> wrapper element.
//
// On the service side, a Service decodes incoming requests, dispatches them to
// a Resource and renders the result.
// Resources that embed UnimplementedResource answer every verb they do not
// implement with a feature-not-implemented error naming the missing feature.
// Services also build the event notifications that are fanned out to
// subscribers.
//
// On the client side, a Client sends requests and surfaces incoming events.
package pubsub // import "mellium.im/xmppext/pubsub"

// Various namespaces used by this package, provided as a convenience.
const (
	NS                 = `http://jabber.org/protocol/pubsub`
	NSErrors           = `http://jabber.org/protocol/pubsub#errors`
	NSEvent            = `http://jabber.org/protocol/pubsub#event`
	NSOwner            = `http://jabber.org/protocol/pubsub#owner`
	NSNodeConfig       = `http://jabber.org/protocol/pubsub#node_config`
	NSMetaData         = `http://jabber.org/protocol/pubsub#meta-data`
	NSSubscribeOptions = `http://jabber.org/protocol/pubsub#subscribe_options`
)

// Node types.
const (
	NodeLeaf       = "leaf"
	NodeCollection = "collection"
)

// CollectionHeader is the name of the stanza header that names the collection
// node through which a notification was delivered.
const CollectionHeader = "Collection"
