// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package lifecycle turns the connection events of a stream engine into
// ordered notifications for protocol handlers and correlates IQ requests with
// their responses.
//
// The engine owns the socket, stream negotiation and XML parsing.
// It reports four signals to a Manager: Connected, Authenticated, InitFailed
// and Disconnected.
// Handlers registered with AddHandler are notified of these signals in the
// order they were registered.
//
// Envelopes sent before the stream is authenticated are queued and flushed in
// order once authentication completes:
//
//	m := lifecycle.New(lifecycle.Logger(logger))
//	m.AddHandler(pubsubClient)
//	m.Send(presence)
//	// … later, from the engine:
//	m.Connected(conn)
//	m.Authenticated()
//
// Requests made with Request or Do are matched with the response that has the
// same id.
// A response is matched at most once: a second response with the same id is
// left for default handling by the engine.
package lifecycle // import "mellium.im/xmppext/lifecycle"
