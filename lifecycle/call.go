// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package lifecycle

import (
	"context"
	"sync"

	"mellium.im/xmppext/wire"
)

// Call is a pending request.
// It is resolved exactly once, with the response, with the stanza error from
// an error response, or with a correlation fault.
type Call struct {
	ID string

	once    sync.Once
	done    chan struct{}
	resp    *wire.Envelope
	err     error
	timer   Timer
	release func(*Call)
}

func newCall(id string) *Call {
	return &Call{
		ID:   id,
		done: make(chan struct{}),
	}
}

func (c *Call) resolve(resp *wire.Envelope, err error) bool {
	resolved := false
	c.once.Do(func() {
		resolved = true
		if c.timer != nil {
			c.timer.Stop()
		}
		c.resp = resp
		c.err = err
		close(c.done)
	})
	return resolved
}

// Done returns a channel that is closed when the call is resolved.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Result returns the response and error of a resolved call.
// If an error response was received both the response and a *wire.Error are
// returned.
// It must only be called after Done is closed.
func (c *Call) Result() (*wire.Envelope, error) {
	<-c.done
	return c.resp, c.err
}

// Wait blocks until the call is resolved or ctx is canceled.
// If ctx is canceled first the call is abandoned: it is removed from the
// tracker so that a late response is left for default handling.
func (c *Call) Wait(ctx context.Context) (*wire.Envelope, error) {
	select {
	case <-c.done:
		return c.resp, c.err
	case <-ctx.Done():
	}
	if c.release != nil {
		c.release(c)
	}
	c.resolve(nil, ctx.Err())
	return c.Result()
}
