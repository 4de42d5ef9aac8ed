// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpptest_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/internal/xmpptest"
	"mellium.im/xmppext/wire"
)

func TestFallback(t *testing.T) {
	a, b := xmpptest.Pipe(jid.MustParse("a@example.net"), jid.MustParse("b.example.net"))
	var got []*wire.Envelope
	a.Observe(wire.MatchKind(wire.IQ), func(env *wire.Envelope) {
		got = append(got, env)
	})

	req := wire.NewIQ(wire.GetIQ, jid.MustParse("b.example.net"), wire.NewElement("urn:example", "q"))
	req.ID = "1"
	if err := a.Send(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("wrong number of replies: want=1, got=%d", len(got))
	}
	reply := got[0]
	if reply.Type != wire.ErrorIQ || reply.ID != "1" {
		t.Fatalf("wrong reply: %s", reply)
	}
	if cond := wire.ErrorFromEnvelope(reply).Condition; cond != stanza.ServiceUnavailable {
		t.Errorf("wrong condition: want=%s, got=%s", stanza.ServiceUnavailable, cond)
	}
	if from := reply.From.String(); from != "b.example.net" {
		t.Errorf("reply not stamped with local address: %q", from)
	}
	if n := len(b.Sent()); n != 1 {
		t.Errorf("wrong number of stanzas sent by peer: want=1, got=%d", n)
	}
}

func TestObserverOrder(t *testing.T) {
	c := xmpptest.NewConn(jid.JID{})
	var order []int
	c.Observe(wire.MatchKind(wire.Message), func(*wire.Envelope) { order = append(order, 0) })
	cancel := c.Observe(wire.MatchKind(wire.Message), func(*wire.Envelope) { order = append(order, 1) })
	c.Observe(wire.MatchKind(wire.Message), func(env *wire.Envelope) {
		order = append(order, 2)
		env.Handled = true
	})
	c.Observe(wire.MatchKind(wire.IQ), func(*wire.Envelope) { order = append(order, 3) })

	c.DeliverString(`<message/>`)
	cancel()
	c.DeliverString(`<message/>`)
	if want := []int{0, 1, 2, 0, 2}; !reflect.DeepEqual(order, want) {
		t.Errorf("wrong observer order: want=%v, got=%v", want, order)
	}
	if n := c.Observers(); n != 3 {
		t.Errorf("wrong number of observers: want=3, got=%d", n)
	}

	// Handled requests get no fallback.
	c.Observe(wire.MatchKind(wire.IQ), func(env *wire.Envelope) { env.Handled = true })
	c.DeliverString(`<iq type="get" id="x"/>`)
	if n := len(c.Sent()); n != 0 {
		t.Errorf("expected no fallback reply, got %d stanzas", n)
	}
}

func TestSendErrors(t *testing.T) {
	c := xmpptest.NewConn(jid.JID{})
	errFail := errors.New("fail")
	c.FailSends(errFail)
	if err := c.Send(&wire.Envelope{Kind: wire.Message}); err != errFail {
		t.Errorf("wrong error: want=%v, got=%v", errFail, err)
	}
	c.FailSends(nil)
	c.Close()
	if err := c.Send(&wire.Envelope{Kind: wire.Message}); err != xmpptest.ErrClosed {
		t.Errorf("wrong error: want=%v, got=%v", xmpptest.ErrClosed, err)
	}
	if !c.Closed() {
		t.Errorf("expected connection to be closed")
	}
}

func TestClock(t *testing.T) {
	c := xmpptest.NewClock()
	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	stopped := c.AfterFunc(time.Second, func() { fired = append(fired, "stopped") })
	if !stopped.Stop() {
		t.Errorf("expected Stop to report that the timer was pending")
	}
	c.Advance(500 * time.Millisecond)
	if len(fired) != 0 {
		t.Fatalf("timers fired early: %v", fired)
	}
	c.Advance(2 * time.Second)
	if want := []string{"a", "b"}; !reflect.DeepEqual(fired, want) {
		t.Errorf("wrong timers fired: want=%v, got=%v", want, fired)
	}
	if c.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", c.Pending())
	}
	if stopped.Stop() {
		t.Errorf("expected second Stop to return false")
	}
	if now := c.Now(); now != 2500*time.Millisecond {
		t.Errorf("wrong time: %v", now)
	}
}
