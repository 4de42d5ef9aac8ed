// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xmpptest provides utilities for XMPP testing.
package xmpptest // import "mellium.im/xmppext/internal/xmpptest"

import (
	"errors"
	"sync"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/wire"
)

// ErrClosed is returned when sending on a closed Conn.
var ErrClosed = errors.New("xmpptest: connection closed")

type observer struct {
	id    int
	match wire.Matcher
	f     func(*wire.Envelope)
}

// Conn is an in memory stream engine connection.
// Sent stanzas are recorded and, if the connection has a peer, serialized and
// delivered to the peer.
// Delivered request IQs that no observer handles are answered with
// service-unavailable.
type Conn struct {
	// Local is used as the from address of sent stanzas that have none.
	Local jid.JID

	mu        sync.Mutex
	sent      []*wire.Envelope
	observers []observer
	nextObs   int
	closed    bool
	peer      *Conn
	sendErr   error
}

// NewConn returns an unconnected Conn with the given local address.
func NewConn(local jid.JID) *Conn {
	return &Conn{Local: local}
}

// Pipe returns two Conns that deliver to one another.
func Pipe(a, b jid.JID) (*Conn, *Conn) {
	ca, cb := NewConn(a), NewConn(b)
	ca.peer, cb.peer = cb, ca
	return ca, cb
}

// FailSends makes every subsequent Send return err.
// Passing nil restores normal behavior.
func (c *Conn) FailSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// Send records env and delivers a serialized copy to the peer, if any.
func (c *Conn) Send(env *wire.Envelope) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.sendErr != nil {
		err := c.sendErr
		c.mu.Unlock()
		return err
	}
	cp := *env
	if cp.From.String() == "" {
		cp.From = c.Local
	}
	c.sent = append(c.sent, &cp)
	peer := c.peer
	c.mu.Unlock()

	if peer == nil {
		return nil
	}
	delivered, err := wire.ParseEnvelope(cp.String())
	if err != nil {
		return err
	}
	peer.Deliver(delivered)
	return nil
}

// Observe registers an observer.
func (c *Conn) Observe(m wire.Matcher, f func(*wire.Envelope)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextObs
	c.nextObs++
	c.observers = append(c.observers, observer{id: id, match: m, f: f})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, o := range c.observers {
			if o.id == id {
				c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

// Observers returns the number of registered observers.
func (c *Conn) Observers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers)
}

// Close marks the connection as closed.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Sent returns the stanzas sent so far.
func (c *Conn) Sent() []*wire.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*wire.Envelope(nil), c.sent...)
}

// Take returns the stanzas sent so far and forgets them.
func (c *Conn) Take() []*wire.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	sent := c.sent
	c.sent = nil
	return sent
}

// Deliver passes env to every matching observer in registration order.
// If env is an unhandled get or set IQ a service-unavailable error is sent in
// reply.
func (c *Conn) Deliver(env *wire.Envelope) {
	c.mu.Lock()
	observers := append([]observer(nil), c.observers...)
	c.mu.Unlock()

	for _, o := range observers {
		if o.match(env) {
			o.f(env)
		}
	}
	if !env.Handled && env.IsRequest() {
		env.Handled = true
		/* #nosec */
		c.Send(wire.NewError(stanza.ServiceUnavailable, "").Response(env))
	}
}

// DeliverString parses s and delivers it.
// It panics if s is not a valid stanza.
func (c *Conn) DeliverString(s string) *wire.Envelope {
	env, err := wire.ParseEnvelope(s)
	if err != nil {
		panic(err)
	}
	c.Deliver(env)
	return env
}
