// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package lifecycle

import (
	"sync"
	"time"

	"mellium.im/xmppext/internal/attr"
	"mellium.im/xmppext/wire"
)

// Tracker correlates IQ requests with their responses.
// A Tracker is normally owned by a Manager.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]*Call
	clock   Clock
	idgen   func() string
}

// NewTracker returns a tracker that schedules timeouts on clock and generates
// ids with idgen.
// If clock or idgen are nil the wall clock and random ids are used.
func NewTracker(clock Clock, idgen func() string) *Tracker {
	if clock == nil {
		clock = realClock{}
	}
	if idgen == nil {
		idgen = attr.RandomID
	}
	return &Tracker{
		pending: make(map[string]*Call),
		clock:   clock,
		idgen:   idgen,
	}
}

// Register tracks env as a pending request.
// If env has no id one is generated that is unique among pending requests.
// If timeout is greater than zero the call fails with ErrTimeout once it
// elapses without a response.
func (t *Tracker) Register(env *wire.Envelope, timeout time.Duration) (*Call, error) {
	if !env.IsRequest() {
		return nil, ErrNotRequest
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if env.ID == "" {
		for {
			env.ID = t.idgen()
			if _, ok := t.pending[env.ID]; !ok {
				break
			}
		}
	} else if _, ok := t.pending[env.ID]; ok {
		return nil, ErrDuplicateID
	}
	call := newCall(env.ID)
	call.release = func(c *Call) { t.forget(c) }
	t.pending[env.ID] = call
	if timeout > 0 {
		call.timer = t.clock.AfterFunc(timeout, func() {
			if t.forget(call) {
				call.resolve(nil, ErrTimeout)
			}
		})
	}
	return call, nil
}

// forget removes call if it is still the pending call for its id.
func (t *Tracker) forget(call *Call) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending[call.ID] != call {
		return false
	}
	delete(t.pending, call.ID)
	return true
}

// Fail resolves the pending call with the given id with err.
func (t *Tracker) Fail(id string, err error) {
	t.mu.Lock()
	call, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()
	if ok {
		call.resolve(nil, err)
	}
}

// Resolve matches a response with a pending request.
// If env is a result or error IQ with the id of a pending request the request
// is resolved, env is marked as handled and true is returned.
// Otherwise env is left untouched.
func (t *Tracker) Resolve(env *wire.Envelope) bool {
	if !env.IsResponse() {
		return false
	}
	t.mu.Lock()
	call, ok := t.pending[env.ID]
	if ok {
		delete(t.pending, env.ID)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	env.Handled = true
	if env.Type == wire.ErrorIQ {
		call.resolve(env, wire.ErrorFromEnvelope(env))
	} else {
		call.resolve(env, nil)
	}
	return true
}

// FailAll resolves every pending call with a *ConnectionLostError wrapping
// reason.
func (t *Tracker) FailAll(reason error) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[string]*Call)
	t.mu.Unlock()
	for _, call := range pending {
		call.resolve(nil, &ConnectionLostError{Reason: reason})
	}
}

// Len returns the number of pending calls.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
