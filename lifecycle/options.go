// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package lifecycle

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Manager.
type Option func(m *Manager)

// Timeout sets the default timeout for requests made with Request.
// A timeout of zero, the default, waits forever.
func Timeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// WithClock sets the clock used to schedule request timeouts.
func WithClock(c Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// IDGen sets the function used to generate ids for requests without one.
func IDGen(f func() string) Option {
	return func(m *Manager) {
		m.idgen = f
	}
}

// Logger sets the logger used by the manager.
func Logger(l *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// LogTraffic logs every sent and received stanza at debug level.
func LogTraffic(enabled bool) Option {
	return func(m *Manager) {
		m.logTraffic = enabled
	}
}

// InitFailed sets the function called when stream initialization fails.
// The default logs the failure and closes the connection.
func InitFailed(f func(c Conn, err error)) Option {
	return func(m *Manager) {
		m.initFailed = f
	}
}
