// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package boltstore

import (
	"github.com/boltdb/bolt"

	"mellium.im/xmppext/pubsub"
)

// collectionChain returns node followed by the collections that contain it,
// ending with the root collection.
func collectionChain(tx *bolt.Tx, node string) ([]string, error) {
	chain := []string{node}
	seen := map[string]struct{}{node: {}}
	for node != "" {
		rec, err := getNode(tx, node)
		if err != nil {
			return nil, err
		}
		parent := ""
		if rec != nil {
			parent = rec.get(FieldCollection)
		}
		if _, ok := seen[parent]; ok {
			break
		}
		seen[parent] = struct{}{}
		chain = append(chain, parent)
		node = parent
	}
	return chain, nil
}

// notifications returns one notification per subscriber with an active
// subscription to node or to a collection containing it.
// Each notification lists the subscriptions that matched so that collection
// headers can be added.
func notifications(tx *bolt.Tx, node string) ([]pubsub.Notification, error) {
	chain, err := collectionChain(tx, node)
	if err != nil {
		return nil, err
	}
	var notes []pubsub.Notification
	index := make(map[string]int)
	for _, n := range chain {
		b, _ := nested(tx, subsBucket, n, false)
		subs, err := loadSubs(b)
		if err != nil {
			return nil, err
		}
		for _, ks := range subs {
			sub, err := ks.rec.subscription(n)
			if err != nil {
				return nil, err
			}
			if !sub.Active() {
				continue
			}
			key := sub.Subscriber.String()
			i, ok := index[key]
			if !ok {
				i = len(notes)
				index[key] = i
				notes = append(notes, pubsub.Notification{Subscriber: sub.Subscriber})
			}
			notes[i].Subscriptions = append(notes[i].Subscriptions, sub)
		}
	}
	return notes, nil
}
