// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/disco"
	"mellium.im/xmppext/form"
	"mellium.im/xmppext/paging"
	"mellium.im/xmppext/pubsub"
	"mellium.im/xmppext/wire"
)

var _ pubsub.Resource = pubsub.UnimplementedResource{}

// testResource implements a handful of verbs over fixed data and records
// which verbs reached it.
type testResource struct {
	pubsub.UnimplementedResource
	items  map[string][]pubsub.Item
	called []pubsub.Verb
	fault  error
}

func (r *testResource) record(req *pubsub.Request) error {
	r.called = append(r.called, req.Verb)
	return r.fault
}

func (r *testResource) Publish(_ context.Context, req *pubsub.Request) ([]string, error) {
	if err := r.record(req); err != nil {
		return nil, err
	}
	var ids []string
	for i, item := range req.Items {
		if item.ID == "" {
			item.ID = "generated" + strconv.Itoa(i)
		}
		ids = append(ids, item.ID)
	}
	return ids, nil
}

func (r *testResource) Subscribe(_ context.Context, req *pubsub.Request) (*pubsub.Subscription, error) {
	if err := r.record(req); err != nil {
		return nil, err
	}
	sub := &pubsub.Subscription{Node: req.Node, Subscriber: req.Subscriber, State: pubsub.StateSubscribed, SubID: "sub1"}
	switch req.Node {
	case "moderated":
		sub.State = pubsub.StatePending
	case "configurable":
		sub.State = pubsub.StateUnconfigured
	}
	return sub, nil
}

func (r *testResource) Create(_ context.Context, req *pubsub.Request) (string, error) {
	if err := r.record(req); err != nil {
		return "", err
	}
	if req.Node == "" {
		return "instant", nil
	}
	return req.Node, nil
}

func (r *testResource) Default(_ context.Context, req *pubsub.Request) (*form.Data, error) {
	if err := r.record(req); err != nil {
		return nil, err
	}
	return form.New(form.TypeForm, "", form.Field{Var: "pubsub#node_type", Values: []string{req.NodeType}}), nil
}

func (r *testResource) ConfigureSet(_ context.Context, req *pubsub.Request) error {
	return r.record(req)
}

func (r *testResource) Items(_ context.Context, req *pubsub.Request) ([]pubsub.Item, *paging.Set, error) {
	if err := r.record(req); err != nil {
		return nil, nil, err
	}
	items, ok := r.items[req.Node]
	if !ok {
		return nil, nil, wire.NewError(stanza.ItemNotFound, "")
	}
	if req.MaxItems != nil && int(*req.MaxItems) < len(items) {
		items = items[:*req.MaxItems]
	}
	return items, nil, nil
}

func newTestResource() *testResource {
	return &testResource{
		items: map[string][]pubsub.Item{
			"test": {{ID: "item1"}, {ID: "item2"}, {ID: "item3"}},
		},
	}
}

const itemsRequest = `<iq type="get" id="items1" from="user@example.org/home" to="pubsub.example.org"><pubsub xmlns="http://jabber.org/protocol/pubsub"><items node="test" max_items="2"/></pubsub></iq>`

func handle(t *testing.T, s *pubsub.Service, in string) *wire.Envelope {
	t.Helper()
	env, err := wire.ParseEnvelope(in)
	if err != nil {
		t.Fatalf("bad test input: %v", err)
	}
	resp := s.Handle(context.Background(), env)
	if resp.ID != env.ID {
		t.Errorf("response id mismatch: want=%q, got=%q", env.ID, resp.ID)
	}
	if !resp.To.Equal(env.From) {
		t.Errorf("response not addressed to requester: %v", resp.To)
	}
	return resp
}

var handleTests = [...]struct {
	in      string
	resp    string
	err     stanza.Condition
	feature string
	verbs   []pubsub.Verb
}{
	0: {
		in:    itemsRequest,
		resp:  `<pubsub xmlns="http://jabber.org/protocol/pubsub"><items node="test"><item id="item1"/><item id="item2"/></items></pubsub>`,
		verbs: []pubsub.Verb{pubsub.VerbItems},
	},
	1: {
		in:    `<iq type="get" id="1" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub"><items node="missing"/></pubsub></iq>`,
		err:   stanza.ItemNotFound,
		verbs: []pubsub.Verb{pubsub.VerbItems},
	},
	2: {
		in:      `<iq type="set" id="1" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub"><retract node="test"><item id="item1"/></retract></pubsub></iq>`,
		err:     stanza.FeatureNotImplemented,
		feature: "retract-items",
	},
	3: {
		in:    `<iq type="set" id="1" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub"><create/></pubsub></iq>`,
		resp:  `<pubsub xmlns="http://jabber.org/protocol/pubsub"><create node="instant"/></pubsub>`,
		verbs: []pubsub.Verb{pubsub.VerbCreate},
	},
	4: {
		in:    `<iq type="set" id="1" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub"><create node="named"/></pubsub></iq>`,
		verbs: []pubsub.Verb{pubsub.VerbCreate},
	},
	5: {
		in:  `<iq type="set" id="1" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub#owner"><configure node="test"><x xmlns="jabber:x:data" type="cancel"/></configure></pubsub></iq>`,
	},
	6: {
		in:    `<iq type="set" id="1" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub#owner"><configure node="test"><x xmlns="jabber:x:data" type="submit"/></configure></pubsub></iq>`,
		verbs: []pubsub.Verb{pubsub.VerbConfigureSet},
	},
	7: {
		in:  `<iq type="get" id="1" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub#owner"><default><x xmlns="jabber:x:data" type="submit"><field var="FORM_TYPE" type="hidden"><value>http://jabber.org/protocol/pubsub#node_config</value></field><field var="pubsub#node_type"><value>bogus</value></field></x></default></pubsub></iq>`,
		err: stanza.NotAcceptable,
	},
	8: {
		in:    `<iq type="get" id="1" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub#owner"><default/></pubsub></iq>`,
		resp:  `<pubsub xmlns="http://jabber.org/protocol/pubsub#owner"><default><x xmlns="jabber:x:data" type="form"><field var="FORM_TYPE" type="hidden"><value>http://jabber.org/protocol/pubsub#node_config</value></field><field var="pubsub#node_type"><value>leaf</value></field></x></default></pubsub>`,
		verbs: []pubsub.Verb{pubsub.VerbDefault},
	},
	9: {
		in:  `<iq type="get" id="1" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub"><unknown/></pubsub></iq>`,
		err: stanza.FeatureNotImplemented,
	},
	10: {
		in:  `<iq type="set" id="1" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub"><publish/></pubsub></iq>`,
		err: stanza.BadRequest,
	},
	11: {
		in:    `<iq type="set" id="1" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub"><publish node="test"><item/></publish></pubsub></iq>`,
		resp:  `<pubsub xmlns="http://jabber.org/protocol/pubsub"><publish node="test"><item id="generated0"/></publish></pubsub>`,
		verbs: []pubsub.Verb{pubsub.VerbPublish},
	},
	12: {
		in:    `<iq type="set" id="1" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub"><subscribe node="test" jid="user@example.org"/></pubsub></iq>`,
		resp:  `<pubsub xmlns="http://jabber.org/protocol/pubsub"><subscription node="test" jid="user@example.org" subscription="subscribed" subid="sub1"/></pubsub>`,
		verbs: []pubsub.Verb{pubsub.VerbSubscribe},
	},
}

func TestHandle(t *testing.T) {
	for i, tc := range handleTests {
		tc := tc
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			res := newTestResource()
			s := pubsub.NewService(res)
			resp := handle(t, s, tc.in)

			if tc.err != "" {
				if resp.Type != wire.ErrorIQ {
					t.Fatalf("expected error response, got %s", resp)
				}
				se := wire.ErrorFromEnvelope(resp)
				if se.Condition != tc.err {
					t.Errorf("wrong condition: want=%q, got=%q", tc.err, se.Condition)
				}
				if tc.feature != "" {
					feature, ok := pubsub.UnsupportedFeature(se)
					if !ok || feature != tc.feature {
						t.Errorf("wrong unsupported feature: want=%q, got=%q (%t)", tc.feature, feature, ok)
					}
				}
			} else {
				if resp.Type != wire.ResultIQ {
					t.Fatalf("expected result, got %s", resp)
				}
				switch {
				case tc.resp == "" && len(resp.Payload) != 0:
					t.Errorf("expected empty result, got %s", resp)
				case tc.resp != "":
					want := wire.MustParse(tc.resp)
					if len(resp.Payload) != 1 || !resp.Payload[0].Equal(want) {
						t.Errorf("wrong payload:\nwant=%s\n got=%s", want, resp)
					}
				}
			}

			if len(res.called) != len(tc.verbs) {
				t.Fatalf("wrong resource calls: want=%v, got=%v", tc.verbs, res.called)
			}
			for i, v := range tc.verbs {
				if res.called[i] != v {
					t.Errorf("wrong resource call %d: want=%v, got=%v", i, v, res.called[i])
				}
			}
		})
	}
}

func TestBackendFaultMasked(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	res := newTestResource()
	res.fault = errors.New("disk on fire")
	s := pubsub.NewService(res, pubsub.Logger(zap.New(core)))

	resp := handle(t, s, itemsRequest)
	se := wire.ErrorFromEnvelope(resp)
	if se.Condition != stanza.InternalServerError {
		t.Errorf("wrong condition: want=%q, got=%q", stanza.InternalServerError, se.Condition)
	}
	if strings.Contains(resp.String(), "disk on fire") {
		t.Errorf("internal error leaked to requester: %s", resp)
	}
	entries := logs.FilterMessage("pubsub backend fault").All()
	if len(entries) != 1 {
		t.Fatalf("expected one logged fault, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["error"]; got != "disk on fire" {
		t.Errorf("wrong logged error: %v", got)
	}
}

func TestStanzaErrorsNotLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := pubsub.NewService(newTestResource(), pubsub.Logger(zap.New(core)))
	handle(t, s, `<iq type="get" id="1" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub"><items node="missing"/></pubsub></iq>`)
	handle(t, s, `<iq type="set" id="2" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub"><purge node="test"/></pubsub></iq>`)
	if n := logs.Len(); n != 0 {
		t.Errorf("expected no log entries, got %d", n)
	}
}

func TestErrorResponseCopiesRequest(t *testing.T) {
	s := pubsub.NewService(pubsub.UnimplementedResource{})
	resp := handle(t, s, itemsRequest)
	if resp.Child(pubsub.NS, "pubsub") == nil {
		t.Errorf("expected request payload in error response: %s", resp)
	}
}

const requestsMetric = `
# HELP xmppext_pubsub_requests_total Total number of pubsub requests handled
# TYPE xmppext_pubsub_requests_total counter
xmppext_pubsub_requests_total{outcome="error",verb="items"} 1
xmppext_pubsub_requests_total{outcome="fault",verb="create"} 1
xmppext_pubsub_requests_total{outcome="ok",verb="items"} 2
xmppext_pubsub_requests_total{outcome="unsupported",verb="purge"} 1
xmppext_pubsub_requests_total{outcome="unsupported",verb="unknown"} 1
`

type faultyCreate struct {
	*testResource
}

func (faultyCreate) Create(context.Context, *pubsub.Request) (string, error) {
	return "", errors.New("boom")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := pubsub.NewMetrics(reg)
	if err != nil {
		t.Fatalf("unexpected error registering metrics: %v", err)
	}
	s := pubsub.NewService(faultyCreate{newTestResource()}, pubsub.WithMetrics(m))
	handle(t, s, itemsRequest)
	handle(t, s, itemsRequest)
	handle(t, s, `<iq type="get" id="1" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub"><items node="missing"/></pubsub></iq>`)
	handle(t, s, `<iq type="set" id="2" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub#owner"><purge node="test"/></pubsub></iq>`)
	handle(t, s, `<iq type="set" id="3" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub"><create/></pubsub></iq>`)
	handle(t, s, `<iq type="set" id="4" from="user@example.org/home"><pubsub xmlns="http://jabber.org/protocol/pubsub"><nope/></pubsub></iq>`)

	if err := testutil.GatherAndCompare(reg, strings.NewReader(requestsMetric), "xmppext_pubsub_requests_total"); err != nil {
		t.Error(err)
	}
	if n := testutil.CollectAndCount(reg, "xmppext_pubsub_request_duration_seconds"); n != 4 {
		t.Errorf("wrong number of duration series: want=4, got=%d", n)
	}

	if _, err := pubsub.NewMetrics(reg); err == nil {
		t.Errorf("expected error registering metrics twice")
	}
}

func TestFeatures(t *testing.T) {
	s := pubsub.NewService(pubsub.UnimplementedResource{})
	features := s.Features()
	seen := make(map[string]bool)
	for _, f := range features {
		if seen[f] {
			t.Errorf("duplicate feature %q", f)
		}
		seen[f] = true
	}
	for _, f := range []string{"retrieve-items", "publish", "create-nodes", "manage-subscriptions"} {
		if !seen[pubsub.NS+"#"+f] {
			t.Errorf("feature %q not advertised", f)
		}
	}
}

func TestDiscoInfo(t *testing.T) {
	s := pubsub.NewService(pubsub.UnimplementedResource{})
	info := disco.NewResponder(s).Info()
	if len(info.Identities) != 1 || info.Identities[0].Category != "pubsub" || info.Identities[0].Type != "service" {
		t.Errorf("wrong identities: %+v", info.Identities)
	}
	if !info.Has(disco.NSInfo, pubsub.NS+"#publish", pubsub.NS+"#subscribe") {
		t.Errorf("missing features: %v", info.Features)
	}
}
