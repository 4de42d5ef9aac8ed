// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package lifecycle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"mellium.im/xmppext/wire"
)

// Manager tracks the state of a connection, notifies handlers of connection
// events and correlates requests with responses.
type Manager struct {
	mu          sync.Mutex
	handlers    []Handler
	conn        Conn
	initialized bool
	queue       []*wire.Envelope
	observers   []func()

	tracker    *Tracker
	clock      Clock
	idgen      func() string
	timeout    time.Duration
	logger     *zap.Logger
	logTraffic bool
	initFailed func(Conn, error)
}

// New creates a disconnected Manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	if m.initFailed == nil {
		m.initFailed = m.closeOnFailure
	}
	m.tracker = NewTracker(m.clock, m.idgen)
	return m
}

// Tracker returns the request tracker used by the manager.
func (m *Manager) Tracker() *Tracker {
	return m.tracker
}

// Initialized reports whether the stream has been authenticated and not lost
// since.
func (m *Manager) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Conn returns the live connection or nil.
func (m *Manager) Conn() Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

// Handlers returns a copy of the registered handlers in registration order.
func (m *Manager) Handlers() []Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Handler(nil), m.handlers...)
}

// AddHandler registers h.
// If a connection exists h is given the connection immediately and if the
// stream is initialized h is also notified of that before AddHandler returns.
func (m *Manager) AddHandler(h Handler) {
	if p, ok := h.(parentSetter); ok {
		p.SetParent(m)
	}
	m.mu.Lock()
	m.handlers = append(m.handlers, h)
	conn, initialized := m.conn, m.initialized
	m.mu.Unlock()

	if conn != nil {
		h.ConnectionMade(conn)
	}
	if initialized {
		h.ConnectionInitialized()
	}
}

// RemoveHandler unregisters h.
// Removing a handler that was never added does nothing.
func (m *Manager) RemoveHandler(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, registered := range m.handlers {
		if registered == h {
			m.handlers = append(m.handlers[:i:i], m.handlers[i+1:]...)
			return
		}
	}
}

// Send writes env to the connection if the stream is initialized and queues
// it otherwise.
func (m *Manager) Send(env *wire.Envelope) error {
	m.mu.Lock()
	if !m.initialized || m.conn == nil {
		m.queue = append(m.queue, env)
		m.mu.Unlock()
		return nil
	}
	conn := m.conn
	m.mu.Unlock()
	return m.write(conn, env)
}

func (m *Manager) write(conn Conn, env *wire.Envelope) error {
	if m.logTraffic {
		m.logger.Debug("send", zap.Stringer("stanza", env))
	}
	return conn.Send(env)
}

// Request sends env and returns a call that is resolved by the matching
// response, using the default timeout.
func (m *Manager) Request(env *wire.Envelope) (*Call, error) {
	return m.RequestTimeout(env, m.timeout)
}

// RequestTimeout is like Request but uses the provided timeout.
// The timeout starts when RequestTimeout is called, even if env is queued.
func (m *Manager) RequestTimeout(env *wire.Envelope, timeout time.Duration) (*Call, error) {
	call, err := m.tracker.Register(env, timeout)
	if err != nil {
		return nil, err
	}
	if err := m.Send(env); err != nil {
		m.tracker.Fail(call.ID, err)
	}
	return call, nil
}

// Do sends a request and waits for the response.
// If the response is an error the returned error is a *wire.Error.
func (m *Manager) Do(ctx context.Context, env *wire.Envelope) (*wire.Envelope, error) {
	call, err := m.Request(env)
	if err != nil {
		return nil, err
	}
	return call.Wait(ctx)
}

// Connected is called by the engine when a connection has been established.
func (m *Manager) Connected(c Conn) {
	var cancels []func()
	if m.logTraffic {
		cancels = append(cancels, c.Observe(func(*wire.Envelope) bool { return true }, func(env *wire.Envelope) {
			m.logger.Debug("recv", zap.Stringer("stanza", env))
		}))
	}
	cancels = append(cancels, c.Observe(wire.MatchKind(wire.IQ, wire.ResultIQ, wire.ErrorIQ), func(env *wire.Envelope) {
		m.tracker.Resolve(env)
	}))

	m.mu.Lock()
	m.conn = c
	m.observers = cancels
	handlers := append([]Handler(nil), m.handlers...)
	m.mu.Unlock()

	m.logger.Debug("connected")
	for _, h := range handlers {
		h.ConnectionMade(c)
	}
}

// Authenticated is called by the engine when the stream has been
// authenticated.
// Queued stanzas are flushed in order before any handler is notified.
func (m *Manager) Authenticated() {
	var handlers []Handler
	for {
		m.mu.Lock()
		conn := m.conn
		if len(m.queue) == 0 || conn == nil {
			m.initialized = conn != nil
			handlers = append(handlers, m.handlers...)
			m.mu.Unlock()
			break
		}
		queue := m.queue
		m.queue = nil
		m.mu.Unlock()

		for i, env := range queue {
			if err := m.write(conn, env); err != nil {
				m.logger.Warn("flushing queued stanza failed", zap.Error(err), zap.Int("dropped", len(queue)-i-1))
				m.failQueued(queue[i:], err)
				break
			}
		}
	}
	if !m.Initialized() {
		m.logger.Warn("authenticated without a connection")
		return
	}
	m.logger.Debug("authenticated")
	for _, h := range handlers {
		h.ConnectionInitialized()
	}
}

// failQueued fails requests among envelopes that could not be written.
func (m *Manager) failQueued(envs []*wire.Envelope, err error) {
	for _, env := range envs {
		if env.IsRequest() {
			m.tracker.Fail(env.ID, err)
		}
	}
}

// InitFailed is called by the engine when stream initialization fails.
func (m *Manager) InitFailed(err error) {
	c := m.Conn()
	m.initFailed(c, err)
}

func (m *Manager) closeOnFailure(c Conn, err error) {
	m.logger.Warn("stream initialization failed", zap.Error(err))
	if c == nil {
		return
	}
	if cerr := c.Close(); cerr != nil {
		m.logger.Debug("closing connection failed", zap.Error(cerr))
	}
}

// Disconnected is called by the engine when the connection has been closed.
// Handlers are notified and then every pending request fails with a
// *ConnectionLostError.
// Queued stanzas are kept for the next connection.
func (m *Manager) Disconnected(reason error) {
	if reason == nil {
		reason = ErrConnectionDone
	}
	m.mu.Lock()
	m.conn = nil
	m.initialized = false
	cancels := m.observers
	m.observers = nil
	handlers := append([]Handler(nil), m.handlers...)
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	m.logger.Debug("disconnected", zap.Error(reason))
	for _, h := range handlers {
		h.ConnectionLost(reason)
	}
	m.tracker.FailAll(reason)
}
