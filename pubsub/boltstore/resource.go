// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package boltstore

import (
	"context"
	"encoding/json"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/form"
	"mellium.im/xmppext/paging"
	"mellium.im/xmppext/pubsub"
	"mellium.im/xmppext/wire"
)

// Publish implements pubsub.Resource.
// Items without an id are assigned one.
// Publishing an item with an existing id replaces the old item.
func (s *Store) Publish(_ context.Context, req *pubsub.Request) ([]string, error) {
	var (
		ids   []string
		items []pubsub.Item
		notes []pubsub.Notification
	)
	err := s.db.Update(func(tx *bolt.Tx) error {
		n, err := requireNode(tx, req.Node)
		if err != nil {
			return err
		}
		if n.nodeType() == pubsub.NodeCollection {
			return &pubsub.UnsupportedError{Feature: "publish", Text: "cannot publish to a collection node"}
		}
		switch affiliationOf(tx, req.Node, req.Sender) {
		case pubsub.AffiliationOwner, pubsub.AffiliationPublisher, pubsub.AffiliationPublishOnly:
		default:
			return forbidden()
		}
		b, err := nested(tx, itemsBucket, req.Node, true)
		if err != nil {
			return err
		}
		existing, err := loadItems(b)
		if err != nil {
			return err
		}
		published := req.Items
		if len(published) == 0 {
			published = []pubsub.Item{{}}
		}
		for _, item := range published {
			if item.ID == "" {
				item.ID = s.newID()
			}
			for _, old := range existing {
				if old.rec.ID == item.ID {
					if err := b.Delete(old.key); err != nil {
						return err
					}
				}
			}
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			rec := itemRecord{
				ID:        item.ID,
				Publisher: req.Sender.Bare().String(),
				Published: s.now(),
			}
			if item.Payload != nil {
				rec.Payload = item.Payload.String()
			}
			if err := putJSON(b, seqKey(seq), rec); err != nil {
				return err
			}
			ids = append(ids, item.ID)
			items = append(items, item)
		}
		if err := trimItems(b, maxItems(n)); err != nil {
			return err
		}
		notes, err = notifications(tx, req.Node)
		return err
	})
	if err != nil {
		return nil, err
	}
	for i := range notes {
		notes[i].Items = items
	}
	s.notify("items", req.Node, func(n Notifier) error {
		return n.NotifyPublish(req.Recipient, req.Node, notes)
	})
	return ids, nil
}

// trimItems removes the oldest items until at most max remain.
// A negative max keeps all items.
func trimItems(b *bolt.Bucket, max int) error {
	if max < 0 {
		return nil
	}
	items, err := loadItems(b)
	if err != nil {
		return err
	}
	for i := 0; i < len(items)-max; i++ {
		if err := b.Delete(items[i].key); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe implements pubsub.Resource.
//
// Subscriptions to nodes with the authorize access model are pending until
// approved by Approve.
// If the node requires subscription options and none were given the
// subscription is unconfigured until options are set.
func (s *Store) Subscribe(_ context.Context, req *pubsub.Request) (*pubsub.Subscription, error) {
	var sub pubsub.Subscription
	err := s.db.Update(func(tx *bolt.Tx) error {
		if !req.Subscriber.Bare().Equal(req.Sender.Bare()) {
			return pubsub.Condition(stanza.BadRequest, "invalid-jid", "")
		}
		n, err := requireNode(tx, req.Node)
		if err != nil {
			return err
		}
		aff := affiliationOf(tx, req.Node, req.Sender)
		if aff == pubsub.AffiliationOutcast {
			return forbidden()
		}
		b, err := nested(tx, subsBucket, req.Node, true)
		if err != nil {
			return err
		}
		existing, err := findSubs(b, req.Subscriber, "")
		if err != nil {
			return err
		}
		if len(existing) > 0 && req.Options == nil {
			sub, err = existing[0].rec.subscription(req.Node)
			return err
		}

		state := pubsub.StateSubscribed
		switch n.get(FieldAccessModel) {
		case AccessAuthorize:
			if aff != pubsub.AffiliationOwner {
				state = pubsub.StatePending
			}
		case AccessWhitelist:
			if aff == pubsub.AffiliationNone {
				return pubsub.Condition(stanza.NotAllowed, "closed-node", "")
			}
		}
		if state == pubsub.StateSubscribed && req.Options == nil && optionsRequired(n) {
			state = pubsub.StateUnconfigured
		}
		sub = pubsub.Subscription{
			Node:       req.Node,
			Subscriber: req.Subscriber,
			State:      state,
			SubID:      s.newID(),
			Options:    req.Options,
		}
		return putJSON(b, []byte(sub.SubID), recordFor(sub))
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// findOne returns the single subscription matching req.
func findOne(b *bolt.Bucket, req *pubsub.Request) (keyedSub, error) {
	matches, err := findSubs(b, req.Subscriber, req.SubID)
	if err != nil {
		return keyedSub{}, err
	}
	switch {
	case len(matches) == 0:
		return keyedSub{}, pubsub.Condition(stanza.UnexpectedRequest, "not-subscribed", "")
	case len(matches) > 1:
		return keyedSub{}, pubsub.Condition(stanza.BadRequest, "subid-required", "")
	}
	return matches[0], nil
}

// checkSubscriber allows an entity to manage its own subscriptions and owners
// to manage any subscription to their node.
func checkSubscriber(tx *bolt.Tx, req *pubsub.Request) error {
	if req.Subscriber.Bare().Equal(req.Sender.Bare()) {
		return nil
	}
	if req.Node != "" && affiliationOf(tx, req.Node, req.Sender) == pubsub.AffiliationOwner {
		return nil
	}
	return forbidden()
}

// Unsubscribe implements pubsub.Resource.
func (s *Store) Unsubscribe(_ context.Context, req *pubsub.Request) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if _, err := requireNode(tx, req.Node); err != nil {
			return err
		}
		if err := checkSubscriber(tx, req); err != nil {
			return err
		}
		b, err := nested(tx, subsBucket, req.Node, true)
		if err != nil {
			return err
		}
		match, err := findOne(b, req)
		if err != nil {
			return err
		}
		return b.Delete(match.key)
	})
}

// OptionsGet implements pubsub.Resource.
func (s *Store) OptionsGet(_ context.Context, req *pubsub.Request) (*form.Data, error) {
	var f *form.Data
	err := s.db.View(func(tx *bolt.Tx) error {
		if _, err := requireNode(tx, req.Node); err != nil {
			return err
		}
		if err := checkSubscriber(tx, req); err != nil {
			return err
		}
		b, _ := nested(tx, subsBucket, req.Node, false)
		if b == nil {
			return pubsub.Condition(stanza.UnexpectedRequest, "not-subscribed", "")
		}
		match, err := findOne(b, req)
		if err != nil {
			return err
		}
		f = valuesForm(form.TypeForm, pubsub.NSSubscribeOptions, match.rec.Options)
		return nil
	})
	return f, err
}

// OptionsSet implements pubsub.Resource.
// Setting options on an unconfigured subscription activates it.
func (s *Store) OptionsSet(_ context.Context, req *pubsub.Request) error {
	if req.Options != nil && req.Options.Type == form.TypeCancel {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if _, err := requireNode(tx, req.Node); err != nil {
			return err
		}
		if err := checkSubscriber(tx, req); err != nil {
			return err
		}
		b, err := nested(tx, subsBucket, req.Node, true)
		if err != nil {
			return err
		}
		match, err := findOne(b, req)
		if err != nil {
			return err
		}
		sub, err := match.rec.subscription(req.Node)
		if err != nil {
			return err
		}
		if err := sub.Configure(req.Options); err != nil {
			return wire.NewError(stanza.NotAcceptable, err.Error())
		}
		return putJSON(b, match.key, recordFor(sub))
	})
}

// Subscriptions implements pubsub.Resource.
func (s *Store) Subscriptions(_ context.Context, req *pubsub.Request) ([]pubsub.Subscription, error) {
	var subs []pubsub.Subscription
	bare := req.Sender.Bare().String()
	err := s.db.View(func(tx *bolt.Tx) error {
		return eachNested(tx, subsBucket, func(node string, b *bolt.Bucket) error {
			all, err := loadSubs(b)
			if err != nil {
				return err
			}
			for _, ks := range all {
				sub, err := ks.rec.subscription(node)
				if err != nil {
					return err
				}
				if sub.Subscriber.Bare().String() == bare {
					subs = append(subs, sub)
				}
			}
			return nil
		})
	})
	return subs, err
}

// Affiliations implements pubsub.Resource.
func (s *Store) Affiliations(_ context.Context, req *pubsub.Request) ([]pubsub.Affiliation, error) {
	var affs []pubsub.Affiliation
	bare := []byte(req.Sender.Bare().String())
	err := s.db.View(func(tx *bolt.Tx) error {
		return eachNested(tx, affsBucket, func(node string, b *bolt.Bucket) error {
			if v := b.Get(bare); v != nil {
				affs = append(affs, pubsub.Affiliation{Node: node, Affiliation: string(v)})
			}
			return nil
		})
	})
	return affs, err
}

// eachNested calls f for every per-node bucket under top.
func eachNested(tx *bolt.Tx, top []byte, f func(node string, b *bolt.Bucket) error) error {
	parent := tx.Bucket(top)
	return parent.ForEach(func(k, v []byte) error {
		if v != nil {
			return nil
		}
		return f(nodeFromKey(k), parent.Bucket(k))
	})
}

// Create implements pubsub.Resource.
// The creator becomes the owner of the node.
func (s *Store) Create(_ context.Context, req *pubsub.Request) (string, error) {
	node := req.Node
	if node == "" {
		node = s.newID()
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		existing, err := getNode(tx, node)
		if err != nil {
			return err
		}
		if existing != nil {
			return wire.NewError(stanza.Conflict, "")
		}
		config := defaultConfig(pubsub.NodeLeaf)
		if req.Options != nil {
			if t, ok := req.Options.Get(FieldNodeType); ok && t == pubsub.NodeCollection {
				config = defaultConfig(pubsub.NodeCollection)
			}
			if err := applyConfig(config, req.Options); err != nil {
				return err
			}
		}
		rec := &nodeRecord{Node: node, Config: config, Created: s.now()}
		if err := checkCollection(tx, rec); err != nil {
			return err
		}
		if err := putNode(tx, rec); err != nil {
			return err
		}
		b, err := nested(tx, affsBucket, node, true)
		if err != nil {
			return err
		}
		return b.Put([]byte(req.Sender.Bare().String()), []byte(pubsub.AffiliationOwner))
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug("node created", zap.String("node", node), zap.Stringer("owner", req.Sender.Bare()))
	return node, nil
}

// checkCollection makes sure the collection a node is placed in exists and is
// a collection node.
func checkCollection(tx *bolt.Tx, n *nodeRecord) error {
	parent := n.get(FieldCollection)
	if parent == n.Node && parent != "" {
		return notAcceptable("node cannot contain itself")
	}
	rec, err := getNode(tx, parent)
	if err != nil {
		return err
	}
	if rec == nil {
		return notFound()
	}
	if rec.nodeType() != pubsub.NodeCollection {
		return wire.NewError(stanza.NotAllowed, "parent is not a collection node")
	}
	return nil
}

// Default implements pubsub.Resource.
func (s *Store) Default(_ context.Context, req *pubsub.Request) (*form.Data, error) {
	return configForm(defaultConfig(req.NodeType)), nil
}

// ConfigureGet implements pubsub.Resource.
func (s *Store) ConfigureGet(_ context.Context, req *pubsub.Request) (*form.Data, error) {
	var f *form.Data
	err := s.db.View(func(tx *bolt.Tx) error {
		n, err := requireNode(tx, req.Node)
		if err != nil {
			return err
		}
		if err := requireOwner(tx, req.Node, req.Sender); err != nil {
			return err
		}
		f = configForm(n.Config)
		return nil
	})
	return f, err
}

// ConfigureSet implements pubsub.Resource.
func (s *Store) ConfigureSet(_ context.Context, req *pubsub.Request) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		n, err := requireNode(tx, req.Node)
		if err != nil {
			return err
		}
		if err := requireOwner(tx, req.Node, req.Sender); err != nil {
			return err
		}
		if req.Options == nil {
			return pubsub.Condition(stanza.BadRequest, "", "Missing configuration form")
		}
		oldType := n.nodeType()
		if err := applyConfig(n.Config, req.Options); err != nil {
			return err
		}
		if n.nodeType() != oldType {
			return notAcceptable("node type cannot be changed")
		}
		if err := checkCollection(tx, n); err != nil {
			return err
		}
		if err := putNode(tx, n); err != nil {
			return err
		}
		b, err := nested(tx, itemsBucket, req.Node, false)
		if err != nil || b == nil {
			return err
		}
		return trimItems(b, maxItems(n))
	})
}

// Items implements pubsub.Resource.
//
// Items are returned oldest first.
// If MaxItems is set only the most recent items are returned.
func (s *Store) Items(_ context.Context, req *pubsub.Request) ([]pubsub.Item, *paging.Set, error) {
	var (
		items []pubsub.Item
		set   *paging.Set
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		n, err := requireNode(tx, req.Node)
		if err != nil {
			return err
		}
		aff := affiliationOf(tx, req.Node, req.Sender)
		switch {
		case aff == pubsub.AffiliationOutcast:
			return forbidden()
		case aff == pubsub.AffiliationNone && n.get(FieldAccessModel) == AccessWhitelist:
			return pubsub.Condition(stanza.NotAllowed, "closed-node", "")
		}
		b, _ := nested(tx, itemsBucket, req.Node, false)
		stored, err := loadItems(b)
		if err != nil {
			return err
		}

		if len(req.ItemIDs) > 0 {
			want := make(map[string]struct{}, len(req.ItemIDs))
			for _, id := range req.ItemIDs {
				want[id] = struct{}{}
			}
			filtered := stored[:0]
			for _, ki := range stored {
				if _, ok := want[ki.rec.ID]; ok {
					filtered = append(filtered, ki)
				}
			}
			stored = filtered
		} else if req.MaxItems != nil && uint64(len(stored)) > *req.MaxItems {
			stored = stored[uint64(len(stored))-*req.MaxItems:]
		}

		if req.Paging != nil {
			ids := make([]string, 0, len(stored))
			for _, ki := range stored {
				ids = append(ids, ki.rec.ID)
			}
			start, end, page, err := paging.Page(ids, req.Paging)
			if err != nil {
				return err
			}
			stored = stored[start:end]
			set = page
		}

		for _, ki := range stored {
			item, err := ki.rec.item()
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return items, set, nil
}

// Retract implements pubsub.Resource.
// Publishers may retract any item, publish-only entities only their own.
func (s *Store) Retract(_ context.Context, req *pubsub.Request) error {
	var notes []pubsub.Notification
	err := s.db.Update(func(tx *bolt.Tx) error {
		if _, err := requireNode(tx, req.Node); err != nil {
			return err
		}
		aff := affiliationOf(tx, req.Node, req.Sender)
		switch aff {
		case pubsub.AffiliationOwner, pubsub.AffiliationPublisher, pubsub.AffiliationPublishOnly:
		default:
			return forbidden()
		}
		if len(req.ItemIDs) == 0 {
			return pubsub.Condition(stanza.BadRequest, "item-required", "")
		}
		b, _ := nested(tx, itemsBucket, req.Node, false)
		stored, err := loadItems(b)
		if err != nil {
			return err
		}
		byID := make(map[string]keyedItem, len(stored))
		for _, ki := range stored {
			byID[ki.rec.ID] = ki
		}
		for _, id := range req.ItemIDs {
			ki, ok := byID[id]
			if !ok {
				return notFound()
			}
			if aff == pubsub.AffiliationPublishOnly && ki.rec.Publisher != req.Sender.Bare().String() {
				return forbidden()
			}
			if err := b.Delete(ki.key); err != nil {
				return err
			}
		}
		notes, err = notifications(tx, req.Node)
		return err
	})
	if err != nil {
		return err
	}
	for i := range notes {
		notes[i].Retracted = req.ItemIDs
	}
	s.notify("items", req.Node, func(n Notifier) error {
		return n.NotifyPublish(req.Recipient, req.Node, notes)
	})
	return nil
}

// Purge implements pubsub.Resource.
func (s *Store) Purge(_ context.Context, req *pubsub.Request) error {
	var notes []pubsub.Notification
	err := s.db.Update(func(tx *bolt.Tx) error {
		n, err := requireNode(tx, req.Node)
		if err != nil {
			return err
		}
		if err := requireOwner(tx, req.Node, req.Sender); err != nil {
			return err
		}
		if n.nodeType() == pubsub.NodeCollection {
			return &pubsub.UnsupportedError{Feature: "purge-nodes", Text: "collection nodes have no items"}
		}
		if b, _ := nested(tx, itemsBucket, req.Node, false); b != nil {
			if err := tx.Bucket(itemsBucket).DeleteBucket(nodeKey(req.Node)); err != nil {
				return err
			}
		}
		notes, err = notifications(tx, req.Node)
		return err
	})
	if err != nil {
		return err
	}
	s.notify("purge", req.Node, func(n Notifier) error {
		return n.NotifyPurge(req.Recipient, req.Node, notes)
	})
	return nil
}

// Delete implements pubsub.Resource.
// Subscribers are notified before the node's subscriptions are removed.
func (s *Store) Delete(_ context.Context, req *pubsub.Request) error {
	var notes []pubsub.Notification
	err := s.db.Update(func(tx *bolt.Tx) error {
		if _, err := requireNode(tx, req.Node); err != nil {
			return err
		}
		if err := requireOwner(tx, req.Node, req.Sender); err != nil {
			return err
		}
		var err error
		notes, err = notifications(tx, req.Node)
		if err != nil {
			return err
		}
		if err := tx.Bucket(nodesBucket).Delete([]byte(req.Node)); err != nil {
			return err
		}
		for _, top := range [][]byte{itemsBucket, subsBucket, affsBucket} {
			if b, _ := nested(tx, top, req.Node, false); b != nil {
				if err := tx.Bucket(top).DeleteBucket(nodeKey(req.Node)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notify("delete", req.Node, func(n Notifier) error {
		return n.NotifyDelete(req.Recipient, req.Node, notes, "")
	})
	return nil
}

// AffiliationsGet implements pubsub.Resource.
func (s *Store) AffiliationsGet(_ context.Context, req *pubsub.Request) ([]pubsub.Affiliation, error) {
	var affs []pubsub.Affiliation
	err := s.db.View(func(tx *bolt.Tx) error {
		if _, err := requireNode(tx, req.Node); err != nil {
			return err
		}
		if err := requireOwner(tx, req.Node, req.Sender); err != nil {
			return err
		}
		b, _ := nested(tx, affsBucket, req.Node, false)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			j, err := jid.Parse(string(k))
			if err != nil {
				return err
			}
			affs = append(affs, pubsub.Affiliation{Node: req.Node, JID: j, Affiliation: string(v)})
			return nil
		})
	})
	return affs, err
}

// AffiliationsSet implements pubsub.Resource.
// Setting an affiliation of "none" removes it.
func (s *Store) AffiliationsSet(_ context.Context, req *pubsub.Request) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if _, err := requireNode(tx, req.Node); err != nil {
			return err
		}
		if err := requireOwner(tx, req.Node, req.Sender); err != nil {
			return err
		}
		b, err := nested(tx, affsBucket, req.Node, true)
		if err != nil {
			return err
		}
		for _, a := range req.Affiliations {
			key := []byte(a.JID.Bare().String())
			switch a.Affiliation {
			case pubsub.AffiliationNone:
				if err := b.Delete(key); err != nil {
					return err
				}
			case pubsub.AffiliationOwner, pubsub.AffiliationPublisher, pubsub.AffiliationPublishOnly,
				pubsub.AffiliationMember, pubsub.AffiliationOutcast:
				if err := b.Put(key, []byte(a.Affiliation)); err != nil {
					return err
				}
			default:
				return pubsub.Condition(stanza.BadRequest, "", "unknown affiliation "+a.Affiliation)
			}
		}
		owners := 0
		err = b.ForEach(func(_, v []byte) error {
			if string(v) == pubsub.AffiliationOwner {
				owners++
			}
			return nil
		})
		if err != nil {
			return err
		}
		if owners == 0 {
			return notAcceptable("a node must have at least one owner")
		}
		return nil
	})
}

// SubscriptionsGet implements pubsub.Resource.
func (s *Store) SubscriptionsGet(_ context.Context, req *pubsub.Request) ([]pubsub.Subscription, error) {
	var subs []pubsub.Subscription
	err := s.db.View(func(tx *bolt.Tx) error {
		if _, err := requireNode(tx, req.Node); err != nil {
			return err
		}
		if err := requireOwner(tx, req.Node, req.Sender); err != nil {
			return err
		}
		b, _ := nested(tx, subsBucket, req.Node, false)
		all, err := loadSubs(b)
		if err != nil {
			return err
		}
		for _, ks := range all {
			sub, err := ks.rec.subscription(req.Node)
			if err != nil {
				return err
			}
			subs = append(subs, sub)
		}
		return nil
	})
	return subs, err
}

// SubscriptionsSet implements pubsub.Resource.
// A state of "none" removes the matching subscriptions.
func (s *Store) SubscriptionsSet(_ context.Context, req *pubsub.Request) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if _, err := requireNode(tx, req.Node); err != nil {
			return err
		}
		if err := requireOwner(tx, req.Node, req.Sender); err != nil {
			return err
		}
		b, err := nested(tx, subsBucket, req.Node, true)
		if err != nil {
			return err
		}
		for _, sub := range req.Subscriptions {
			matches, err := findSubs(b, sub.Subscriber, sub.SubID)
			if err != nil {
				return err
			}
			switch sub.State {
			case pubsub.StateNone:
				for _, m := range matches {
					if err := b.Delete(m.key); err != nil {
						return err
					}
				}
				continue
			case pubsub.StateSubscribed, pubsub.StatePending, pubsub.StateUnconfigured:
			default:
				return pubsub.Condition(stanza.BadRequest, "", "unknown subscription state "+string(sub.State))
			}
			if len(matches) == 0 {
				sub.Node = req.Node
				if sub.SubID == "" {
					sub.SubID = s.newID()
				}
				if err := putJSON(b, []byte(sub.SubID), recordFor(sub)); err != nil {
					return err
				}
				continue
			}
			for _, m := range matches {
				m.rec.State = sub.State
				if err := putJSON(b, m.key, m.rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Approve moves a pending subscription to the subscribed state.
func (s *Store) Approve(node string, sub pubsub.Subscription) error {
	return s.transition(node, sub, (*pubsub.Subscription).Approve)
}

// Deny removes a pending subscription.
func (s *Store) Deny(node string, sub pubsub.Subscription) error {
	return s.transition(node, sub, (*pubsub.Subscription).Deny)
}

func (s *Store) transition(node string, target pubsub.Subscription, f func(*pubsub.Subscription) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := nested(tx, subsBucket, node, false)
		if err != nil {
			return err
		}
		if b == nil {
			return notFound()
		}
		matches, err := findSubs(b, target.Subscriber, target.SubID)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return notFound()
		}
		for _, m := range matches {
			sub, err := m.rec.subscription(node)
			if err != nil {
				return err
			}
			if err := f(&sub); err != nil {
				return err
			}
			if sub.State == pubsub.StateNone {
				if err := b.Delete(m.key); err != nil {
					return err
				}
				continue
			}
			if err := putJSON(b, m.key, recordFor(sub)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Pending returns the subscriptions to node awaiting approval.
func (s *Store) Pending(node string) ([]pubsub.Subscription, error) {
	var subs []pubsub.Subscription
	err := s.db.View(func(tx *bolt.Tx) error {
		b, _ := nested(tx, subsBucket, node, false)
		all, err := loadSubs(b)
		if err != nil {
			return err
		}
		for _, ks := range all {
			if ks.rec.State != pubsub.StatePending {
				continue
			}
			sub, err := ks.rec.subscription(node)
			if err != nil {
				return err
			}
			subs = append(subs, sub)
		}
		return nil
	})
	return subs, err
}

// Nodes returns the identifiers of all nodes in lexical order.
func (s *Store) Nodes() ([]string, error) {
	var nodes []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(nodesBucket).ForEach(func(k, _ []byte) error {
			nodes = append(nodes, string(k))
			return nil
		})
	})
	return nodes, err
}

// NodeConfig returns the configuration of a node.
// It does not check permissions.
func (s *Store) NodeConfig(node string) (map[string][]string, error) {
	var config map[string][]string
	err := s.db.View(func(tx *bolt.Tx) error {
		n, err := requireNode(tx, node)
		if err != nil {
			return err
		}
		data, err := json.Marshal(n.Config)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &config)
	})
	return config, err
}

// Features implements pubsub.FeatureLister.
func (s *Store) Features() []string {
	features := []string{
		"collections",
		"config-node",
		"create-nodes",
		"delete-items",
		"delete-nodes",
		"instant-nodes",
		"item-ids",
		"manage-subscriptions",
		"modify-affiliations",
		"outcast-affiliation",
		"persistent-items",
		"publish",
		"publisher-affiliation",
		"publish-only-affiliation",
		"purge-nodes",
		"retract-items",
		"retrieve-affiliations",
		"retrieve-default",
		"retrieve-items",
		"retrieve-subscriptions",
		"subscribe",
		"subscription-options",
	}
	for i, f := range features {
		features[i] = pubsub.NS + "#" + f
	}
	return features
}
