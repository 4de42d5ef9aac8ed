// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package lifecycle_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/internal/attr"
	"mellium.im/xmppext/internal/xmpptest"
	"mellium.im/xmppext/lifecycle"
	"mellium.im/xmppext/wire"
)

func connected(opts ...lifecycle.Option) (*lifecycle.Manager, *xmpptest.Conn) {
	m := lifecycle.New(opts...)
	conn := xmpptest.NewConn(jid.JID{})
	m.Connected(conn)
	m.Authenticated()
	return m, conn
}

func iq(id string) *wire.Envelope {
	env := wire.NewIQ(wire.GetIQ, jid.MustParse("example.net"))
	env.ID = id
	return env
}

func isDone(c *lifecycle.Call) bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}

func TestAtMostOneCorrelation(t *testing.T) {
	m, conn := connected()
	one, err := m.Request(iq("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	two, err := m.Request(iq("2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := conn.DeliverString(`<iq type="result" id="1"><done xmlns="urn:example"/></iq>`)
	if !first.Handled {
		t.Errorf("expected matched response to be marked handled")
	}
	if !isDone(one) {
		t.Fatalf("expected call 1 to be resolved")
	}
	if isDone(two) {
		t.Fatalf("call 2 resolved by the response to call 1")
	}
	resp, err := one.Result()
	if err != nil || resp.Child("urn:example", "done") == nil {
		t.Fatalf("wrong result: %v, %v", resp, err)
	}

	dup := conn.DeliverString(`<iq type="error" id="1"/>`)
	if dup.Handled {
		t.Errorf("duplicate response should be left for default handling")
	}
	if resp2, err := one.Result(); err != nil || resp2 != resp {
		t.Errorf("resolved call changed by duplicate response")
	}
	if n := m.Tracker().Len(); n != 1 {
		t.Errorf("wrong number of pending calls: want=1, got=%d", n)
	}
}

func TestTimeoutIsolation(t *testing.T) {
	clock := xmpptest.NewClock()
	m, conn := connected(lifecycle.WithClock(clock))
	timed, err := m.RequestTimeout(iq("timed"), 60*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	untimed, err := m.Request(iq("untimed"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(59 * time.Second)
	if isDone(timed) {
		t.Fatalf("call timed out early")
	}
	clock.Advance(time.Second)
	if _, err := timed.Result(); err != lifecycle.ErrTimeout {
		t.Errorf("wrong error: want=%v, got=%v", lifecycle.ErrTimeout, err)
	}
	if isDone(untimed) {
		t.Errorf("call without a timeout was affected")
	}
	if n := clock.Pending(); n != 0 {
		t.Errorf("dangling timers: %d", n)
	}

	late := conn.DeliverString(`<iq type="result" id="timed"/>`)
	if late.Handled {
		t.Errorf("late response should not match a timed out call")
	}
	if _, err := timed.Result(); err != lifecycle.ErrTimeout {
		t.Errorf("timed out call was resurrected: %v", err)
	}
}

func TestResponseCancelsTimer(t *testing.T) {
	clock := xmpptest.NewClock()
	m, conn := connected(lifecycle.WithClock(clock), lifecycle.Timeout(time.Second))
	call, err := m.Request(iq("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := clock.Pending(); n != 1 {
		t.Fatalf("wrong number of timers: want=1, got=%d", n)
	}
	conn.DeliverString(`<iq type="result" id="1"/>`)
	if n := clock.Pending(); n != 0 {
		t.Errorf("timer not cancelled on response: %d", n)
	}
	clock.Advance(time.Hour)
	if _, err := call.Result(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestQueuedRequestTimeout(t *testing.T) {
	clock := xmpptest.NewClock()
	m := lifecycle.New(lifecycle.WithClock(clock))
	call, err := m.RequestTimeout(iq("queued"), 60*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(60 * time.Second)
	if _, err := call.Result(); err != lifecycle.ErrTimeout {
		t.Errorf("wrong error: want=%v, got=%v", lifecycle.ErrTimeout, err)
	}
}

var notRequestTests = [...]*wire.Envelope{
	0: {Kind: wire.IQ, Type: wire.ResultIQ},
	1: {Kind: wire.IQ, Type: wire.ErrorIQ},
	2: {Kind: wire.Message, Type: wire.GetIQ},
	3: {Kind: wire.Presence},
}

func TestNotRequest(t *testing.T) {
	m, conn := connected()
	for i, env := range notRequestTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if _, err := m.Request(env); err != lifecycle.ErrNotRequest {
				t.Errorf("wrong error: want=%v, got=%v", lifecycle.ErrNotRequest, err)
			}
		})
	}
	if n := len(conn.Sent()); n != 0 {
		t.Errorf("rejected requests were sent: %d", n)
	}
}

func TestErrorResponse(t *testing.T) {
	m, conn := connected()
	call, err := m.Request(iq("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conn.DeliverString(`<iq type="error" id="1"><error type="cancel"><item-not-found xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></error></iq>`)
	resp, err := call.Result()
	var stanzaErr *wire.Error
	if !errors.As(err, &stanzaErr) || stanzaErr.Condition != stanza.ItemNotFound {
		t.Fatalf("wrong error: %v", err)
	}
	if resp == nil || resp.Type != wire.ErrorIQ {
		t.Errorf("expected the error response to be returned")
	}
	if errors.Is(err, lifecycle.ErrConnectionLost) || errors.Is(err, lifecycle.ErrTimeout) {
		t.Errorf("wire errors must be distinguishable from correlation faults")
	}
}

func TestGeneratedIDs(t *testing.T) {
	ids := []string{"a", "a", "b"}
	m, conn := connected(lifecycle.IDGen(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))
	first, err := m.Request(iq(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := m.Request(iq(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != "a" || second.ID != "b" {
		t.Errorf("ids not unique among pending requests: %q, %q", first.ID, second.ID)
	}
	if sent := conn.Sent(); sent[1].ID != "b" {
		t.Errorf("generated id not used on the wire: %q", sent[1].ID)
	}
	if _, err := m.Request(iq("b")); err != lifecycle.ErrDuplicateID {
		t.Errorf("wrong error: want=%v, got=%v", lifecycle.ErrDuplicateID, err)
	}
}

func TestWaitCanceled(t *testing.T) {
	m, conn := connected(lifecycle.IDGen(attr.Sequential("req")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Do(ctx, iq(""))
	if err != context.Canceled {
		t.Errorf("wrong error: want=%v, got=%v", context.Canceled, err)
	}
	if n := m.Tracker().Len(); n != 0 {
		t.Errorf("abandoned call still pending")
	}
	id := conn.Sent()[0].ID
	if late := conn.DeliverString(`<iq type="result" id="` + id + `"/>`); late.Handled {
		t.Errorf("response to abandoned call should not be handled")
	}
}

func TestSendFailureFailsCall(t *testing.T) {
	m, conn := connected()
	errSend := errors.New("broken pipe")
	conn.FailSends(errSend)
	call, err := m.Request(iq("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := call.Result(); err != errSend {
		t.Errorf("wrong error: want=%v, got=%v", errSend, err)
	}
}
