// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"sync"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/wire"
)

type observer struct {
	id    int
	match wire.Matcher
	f     func(*wire.Envelope)
}

// loopback is a connection that keeps everything sent on it and hands
// delivered stanzas to its observers.
type loopback struct {
	local jid.JID

	mu        sync.Mutex
	observers []observer
	nextID    int
	sent      []*wire.Envelope
}

func newLoopback(local jid.JID) *loopback {
	return &loopback{local: local}
}

func (l *loopback) Send(env *wire.Envelope) error {
	cp := *env
	if cp.From.String() == "" {
		cp.From = l.local
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, &cp)
	return nil
}

func (l *loopback) Observe(m wire.Matcher, f func(*wire.Envelope)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.observers = append(l.observers, observer{id: id, match: m, f: f})
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, o := range l.observers {
			if o.id == id {
				l.observers = append(l.observers[:i:i], l.observers[i+1:]...)
				return
			}
		}
	}
}

func (l *loopback) Close() error {
	return nil
}

// deliver runs the matching observers and answers unhandled requests with
// service-unavailable.
func (l *loopback) deliver(env *wire.Envelope) {
	l.mu.Lock()
	observers := append([]observer(nil), l.observers...)
	l.mu.Unlock()

	for _, o := range observers {
		if o.match(env) {
			o.f(env)
		}
	}
	if !env.Handled && env.IsRequest() {
		env.Handled = true
		/* #nosec */
		l.Send(wire.NewError(stanza.ServiceUnavailable, "").Response(env))
	}
}

// take returns the stanzas sent since the last call.
func (l *loopback) take() []*wire.Envelope {
	l.mu.Lock()
	defer l.mu.Unlock()
	sent := l.sent
	l.sent = nil
	return sent
}
