// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package boltstore_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/form"
	"mellium.im/xmppext/internal/xmpptest"
	"mellium.im/xmppext/paging"
	"mellium.im/xmppext/pubsub"
	"mellium.im/xmppext/pubsub/boltstore"
	"mellium.im/xmppext/wire"
)

func newSession(t *testing.T) (*boltstore.Store, *pubsub.Client) {
	t.Helper()
	store, _ := open(t)
	svc := pubsub.NewService(store)
	store.SetNotifier(svc)
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
	return store, client
}

func TestServiceRoundTrip(t *testing.T) {
	_, client := newSession(t)
	ctx := context.Background()
	var events []pubsub.ItemsEvent
	client.ItemsReceived = func(ev pubsub.ItemsEvent) {
		events = append(events, ev)
	}

	node, err := client.CreateNode(ctx, xmpptest.ServerJID, "", nil)
	if err != nil {
		t.Fatalf("error creating node: %v", err)
	}
	if node != "id1" {
		t.Errorf("wrong instant node: %q", node)
	}

	sub, err := client.Subscribe(ctx, xmpptest.ServerJID, node, xmpptest.ClientJID, nil)
	if err != nil {
		t.Fatalf("error subscribing: %v", err)
	}
	if sub.State != pubsub.StateSubscribed || sub.SubID != "id2" {
		t.Errorf("unexpected subscription: %+v", sub)
	}

	ids, err := client.Publish(ctx, xmpptest.ServerJID, node,
		pubsub.Item{Payload: wire.NewElement("urn:example", "entry").AddText("one")},
		pubsub.Item{ID: "two"},
	)
	if err != nil {
		t.Fatalf("error publishing: %v", err)
	}
	if want := []string{"id3", "two"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("wrong ids: want=%v, got=%v", want, ids)
	}
	if len(events) != 1 || len(events[0].Items) != 2 || events[0].Node != node {
		t.Fatalf("unexpected events: %+v", events)
	}
	if len(events[0].Headers) != 0 {
		t.Errorf("unexpected headers on direct subscription: %v", events[0].Headers)
	}

	items, set, err := client.Items(ctx, xmpptest.ServerJID, pubsub.Query{
		Node:   node,
		Paging: &paging.Request{Max: paging.Uint64(1)},
	})
	if err != nil {
		t.Fatalf("error fetching items: %v", err)
	}
	if len(items) != 1 || items[0].ID != "id3" {
		t.Errorf("wrong items: %+v", items)
	}
	if set == nil || set.First != "id3" || set.Count == nil || *set.Count != 2 {
		t.Errorf("wrong result set: %+v", set)
	}
	want := wire.NewElement("urn:example", "entry").AddText("one")
	if !items[0].Payload.Equal(want) {
		t.Errorf("wrong payload: want=%s, got=%s", want, items[0].Payload)
	}

	subs, err := client.Subscriptions(ctx, xmpptest.ServerJID)
	if err != nil {
		t.Fatalf("error fetching subscriptions: %v", err)
	}
	if len(subs) != 1 || subs[0].Node != node {
		t.Errorf("wrong subscriptions: %+v", subs)
	}
}

func TestServiceConfigure(t *testing.T) {
	store, client := newSession(t)
	ctx := context.Background()

	config := form.New(form.TypeSubmit, pubsub.NSNodeConfig,
		form.Field{Var: boltstore.FieldAccessModel, Values: []string{boltstore.AccessAuthorize}})
	if _, err := client.CreateNode(ctx, xmpptest.ServerJID, "moderated", config); err != nil {
		t.Fatalf("error creating node: %v", err)
	}
	got, err := client.GetConfig(ctx, xmpptest.ServerJID, "moderated")
	if err != nil {
		t.Fatalf("error fetching config: %v", err)
	}
	if v, _ := got.Get(boltstore.FieldAccessModel); v != boltstore.AccessAuthorize {
		t.Errorf("wrong access model: %q", v)
	}

	stored, err := store.NodeConfig("moderated")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := stored[boltstore.FieldAccessModel]; !reflect.DeepEqual(v, []string{boltstore.AccessAuthorize}) {
		t.Errorf("config not persisted: %v", stored)
	}
}

func TestServiceErrors(t *testing.T) {
	_, client := newSession(t)
	ctx := context.Background()

	_, _, err := client.Items(ctx, xmpptest.ServerJID, pubsub.Query{Node: "missing"})
	if !errors.Is(err, &wire.Error{Condition: stanza.ItemNotFound}) {
		t.Errorf("expected item-not-found, got %v", err)
	}
	if _, err := client.CreateNode(ctx, xmpptest.ServerJID, "test", nil); err != nil {
		t.Fatalf("error creating node: %v", err)
	}
	err = client.SetAffiliations(ctx, xmpptest.ServerJID, "test", pubsub.Affiliation{
		JID:         xmpptest.ClientJID.Bare(),
		Affiliation: pubsub.AffiliationNone,
	})
	if !errors.Is(err, &wire.Error{Condition: stanza.NotAcceptable}) {
		t.Errorf("expected not-acceptable removing the only owner, got %v", err)
	}
	if err := client.DeleteNode(ctx, xmpptest.ServerJID, "test"); err != nil {
		t.Errorf("error deleting node: %v", err)
	}
}
