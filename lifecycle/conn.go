// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package lifecycle

import (
	"mellium.im/xmppext/wire"
)

// Conn is a live connection provided by the stream engine.
type Conn interface {
	// Send writes a stanza to the stream.
	Send(*wire.Envelope) error

	// Observe calls f for every incoming stanza matched by m.
	// Observers are called in the order they were registered and may set the
	// Handled field of the envelope to stop default handling.
	// The returned function removes the observer.
	Observe(m wire.Matcher, f func(*wire.Envelope)) (cancel func())

	// Close tears down the connection.
	Close() error
}

// Handler is a protocol handler that is notified of connection events.
type Handler interface {
	// ConnectionMade is called when a new connection has been established.
	ConnectionMade(Conn)

	// ConnectionInitialized is called when the stream has been authenticated
	// and queued stanzas have been flushed.
	ConnectionInitialized()

	// ConnectionLost is called when the connection has been closed.
	// The reason is never nil.
	ConnectionLost(reason error)
}

// Sender is the part of a Manager that handlers use to communicate.
type Sender interface {
	Send(*wire.Envelope) error
	Request(*wire.Envelope) (*Call, error)
}
