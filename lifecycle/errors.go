// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package lifecycle

import (
	"errors"
)

// Errors returned by the request tracker.
var (
	ErrNotRequest     = errors.New("lifecycle: not a request: want an iq of type get or set")
	ErrDuplicateID    = errors.New("lifecycle: a request with the same id is already pending")
	ErrTimeout        = errors.New("lifecycle: request timed out")
	ErrConnectionLost = errors.New("lifecycle: connection lost")

	// ErrConnectionDone is the reason given to handlers and pending requests
	// when the engine reports a disconnect without a reason.
	ErrConnectionDone = errors.New("lifecycle: connection was closed cleanly")
)

// ConnectionLostError is returned by calls that were pending when the
// connection was lost.
// It matches ErrConnectionLost and wraps the reason.
type ConnectionLostError struct {
	Reason error
}

func (e *ConnectionLostError) Error() string {
	return ErrConnectionLost.Error() + ": " + e.Reason.Error()
}

// Unwrap returns the reason the connection was lost.
func (e *ConnectionLostError) Unwrap() error {
	return e.Reason
}

// Is reports whether target is ErrConnectionLost.
func (e *ConnectionLostError) Is(target error) bool {
	return target == ErrConnectionLost
}
