// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package lifecycle

import (
	"context"
	"errors"
	"sync"

	"mellium.im/xmppext/wire"
)

// ErrNoManager is returned by Base when the handler has not been added to a
// Manager.
var ErrNoManager = errors.New("lifecycle: handler is not attached to a manager")

// Base is an embeddable Handler that records the current connection and the
// Manager it was added to.
// Embedders override the methods they are interested in and should call the
// Base methods from their overrides.
type Base struct {
	mu     sync.Mutex
	conn   Conn
	parent Sender
}

// SetParent is called by a Manager when the handler is added to it.
func (b *Base) SetParent(s Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parent = s
}

// Parent returns the Manager the handler was added to, if any.
func (b *Base) Parent() Sender {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parent
}

// Conn returns the live connection or nil.
func (b *Base) Conn() Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn
}

// ConnectionMade records the connection.
func (b *Base) ConnectionMade(c Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = c
}

// ConnectionInitialized does nothing.
func (b *Base) ConnectionInitialized() {}

// ConnectionLost forgets the connection.
func (b *Base) ConnectionLost(error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = nil
}

// Send sends env through the parent, queueing it if the stream is not yet
// initialized.
func (b *Base) Send(env *wire.Envelope) error {
	p := b.Parent()
	if p == nil {
		return ErrNoManager
	}
	return p.Send(env)
}

// Do sends the request env through the parent and blocks until a response is
// received, the request fails, or ctx is canceled.
func (b *Base) Do(ctx context.Context, env *wire.Envelope) (*wire.Envelope, error) {
	p := b.Parent()
	if p == nil {
		return nil, ErrNoManager
	}
	call, err := p.Request(env)
	if err != nil {
		return nil, err
	}
	return call.Wait(ctx)
}

type parentSetter interface {
	SetParent(Sender)
}
