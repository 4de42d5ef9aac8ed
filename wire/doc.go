// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package wire contains the in-memory representation of XMPP stanzas used by
// the protocol handlers in this module.
//
// Parsing the XML stream and delivering top level elements is the job of the
// stream engine.
// Once delivered, stanzas are represented as an Envelope: the stanza kind,
// type, identifier and addresses along with a tree of namespaced payload
// elements that protocol handlers may inspect and build.
//
// Elements are rendered to XML using token readers from the xmlstream package
// so that they can be copied to any xmlstream.TokenWriter:
//
//	env := wire.NewIQ(wire.GetIQ, service,
//	    wire.NewElement(pubsub.NS, "pubsub"),
//	)
//	_, err := env.WriteXML(w)
package wire // import "mellium.im/xmppext/wire"
