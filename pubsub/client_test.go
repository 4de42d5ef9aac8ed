// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"mellium.im/xmppext/internal/xmpptest"
	"mellium.im/xmppext/lifecycle"
	"mellium.im/xmppext/paging"
	"mellium.im/xmppext/pubsub"
	"mellium.im/xmppext/wire"
)

var (
	_ lifecycle.Handler = (*pubsub.Client)(nil)
	_ lifecycle.Handler = (*pubsub.Service)(nil)
)

func newSession(t *testing.T, res pubsub.Resource) (*pubsub.Service, *pubsub.Client, *xmpptest.ClientServer) {
	t.Helper()
	svc := pubsub.NewService(res)
	client := &pubsub.Client{}
	cs := xmpptest.NewClientServer(
		xmpptest.ServerHandler(svc),
		xmpptest.ClientHandler(client),
	)
	t.Cleanup(func() {
		if err := cs.Close(); err != nil {
			t.Errorf("error closing session: %v", err)
		}
	})
	return svc, client, cs
}

func TestClientItems(t *testing.T) {
	_, client, _ := newSession(t, newTestResource())
	items, set, err := client.Items(context.Background(), xmpptest.ServerJID, pubsub.Query{
		Node:     "test",
		MaxItems: paging.Uint64(2),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set != nil {
		t.Errorf("unexpected result set: %+v", set)
	}
	var ids []string
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	if want := []string{"item1", "item2"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("wrong items: want=%v, got=%v", want, ids)
	}
}

func TestClientSubscribeStates(t *testing.T) {
	_, client, _ := newSession(t, newTestResource())
	ctx := context.Background()

	sub, err := client.Subscribe(ctx, xmpptest.ServerJID, "test", xmpptest.ClientJID.Bare(), nil)
	if err != nil {
		t.Fatalf("unexpected error subscribing: %v", err)
	}
	if sub.State != pubsub.StateSubscribed || sub.SubID != "sub1" || sub.Node != "test" {
		t.Errorf("unexpected subscription: %+v", sub)
	}

	sub, err = client.Subscribe(ctx, xmpptest.ServerJID, "moderated", xmpptest.ClientJID.Bare(), nil)
	if !errors.Is(err, pubsub.ErrSubscriptionPending) {
		t.Errorf("wrong error for pending subscription: %v", err)
	}
	if sub == nil || sub.State != pubsub.StatePending {
		t.Errorf("pending subscription not returned: %+v", sub)
	}

	_, err = client.Subscribe(ctx, xmpptest.ServerJID, "configurable", xmpptest.ClientJID.Bare(), nil)
	if !errors.Is(err, pubsub.ErrSubscriptionUnconfigured) {
		t.Errorf("wrong error for unconfigured subscription: %v", err)
	}
}

func TestClientCreateNode(t *testing.T) {
	_, client, _ := newSession(t, newTestResource())
	ctx := context.Background()

	node, err := client.CreateNode(ctx, xmpptest.ServerJID, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node != "instant" {
		t.Errorf("wrong instant node: %q", node)
	}
	node, err = client.CreateNode(ctx, xmpptest.ServerJID, "named", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node != "named" {
		t.Errorf("wrong node: %q", node)
	}
}

func TestClientPublish(t *testing.T) {
	_, client, _ := newSession(t, newTestResource())
	ids, err := client.Publish(context.Background(), xmpptest.ServerJID, "test",
		pubsub.Item{ID: "a"},
		pubsub.Item{Payload: wire.NewElement("urn:example", "entry")},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"a", "generated1"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("wrong ids: want=%v, got=%v", want, ids)
	}
}

func TestClientUnsupported(t *testing.T) {
	_, client, _ := newSession(t, newTestResource())
	err := client.Purge(context.Background(), xmpptest.ServerJID, "test")
	feature, ok := pubsub.UnsupportedFeature(err)
	if !ok || feature != "purge-nodes" {
		t.Errorf("expected unsupported purge-nodes, got %q (%t): %v", feature, ok, err)
	}
}

func TestNotificationCollectionHeader(t *testing.T) {
	svc, client, _ := newSession(t, newTestResource())
	var events []pubsub.ItemsEvent
	client.ItemsReceived = func(ev pubsub.ItemsEvent) {
		events = append(events, ev)
	}

	err := svc.NotifyPublish(xmpptest.ServerJID, "test", []pubsub.Notification{{
		Subscriber: xmpptest.ClientJID,
		Subscriptions: []pubsub.Subscription{
			{Node: "", Subscriber: xmpptest.ClientJID, State: pubsub.StateSubscribed},
			{Node: "test", Subscriber: xmpptest.ClientJID, State: pubsub.StateSubscribed},
		},
		Items: []pubsub.Item{{ID: "item1"}},
	}})
	if err != nil {
		t.Fatalf("unexpected error notifying: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	ev := events[0]
	if ev.Node != "test" {
		t.Errorf("wrong node: %q", ev.Node)
	}
	if !ev.Sender.Equal(xmpptest.ServerJID) {
		t.Errorf("wrong sender: %v", ev.Sender)
	}
	if want := []string{""}; !reflect.DeepEqual(ev.Headers[pubsub.CollectionHeader], want) {
		t.Errorf("wrong collection headers: want=%q, got=%q", want, ev.Headers[pubsub.CollectionHeader])
	}
	if len(ev.Items) != 1 || ev.Items[0].ID != "item1" {
		t.Errorf("wrong items: %+v", ev.Items)
	}
}

func TestNotificationDeleteAndPurge(t *testing.T) {
	svc, client, _ := newSession(t, newTestResource())
	var (
		deleted []pubsub.DeleteEvent
		purged  []pubsub.PurgeEvent
	)
	client.DeleteReceived = func(ev pubsub.DeleteEvent) { deleted = append(deleted, ev) }
	client.PurgeReceived = func(ev pubsub.PurgeEvent) { purged = append(purged, ev) }

	n := []pubsub.Notification{{Subscriber: xmpptest.ClientJID}}
	if err := svc.NotifyDelete(xmpptest.ServerJID, "old", n, "xmpp:pubsub.example.net?;node=new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.NotifyPurge(xmpptest.ServerJID, "test", n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deleted) != 1 || deleted[0].Node != "old" || deleted[0].Redirect != "xmpp:pubsub.example.net?;node=new" {
		t.Errorf("unexpected delete events: %+v", deleted)
	}
	if len(purged) != 1 || purged[0].Node != "test" {
		t.Errorf("unexpected purge events: %+v", purged)
	}
	if len(deleted[0].Headers) != 0 {
		t.Errorf("unexpected headers: %v", deleted[0].Headers)
	}
}

func TestClientStopsObservingOnDisconnect(t *testing.T) {
	_, _, cs := newSession(t, newTestResource())
	before := cs.ClientConn.Observers()
	cs.Client.Disconnected(nil)
	if after := cs.ClientConn.Observers(); after >= before {
		t.Errorf("expected observers to be removed: before=%d, after=%d", before, after)
	}
}
