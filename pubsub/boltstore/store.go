// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package boltstore implements a persistent pubsub resource on top of a bolt
// database.
//
// Nodes, items, subscriptions and affiliations are kept in separate buckets
// with one nested bucket per node.
// Values are stored as JSON.
// The empty node is the root collection: it always exists, anyone may
// subscribe to it, and it cannot be configured or deleted.
package boltstore // import "mellium.im/xmppext/pubsub/boltstore"

import (
	"encoding/binary"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/form"
	"mellium.im/xmppext/pubsub"
	"mellium.im/xmppext/wire"
)

var (
	nodesBucket = []byte("nodes")
	itemsBucket = []byte("items")
	subsBucket  = []byte("subscriptions")
	affsBucket  = []byte("affiliations")
)

// Node configuration fields understood by the store.
const (
	FieldNodeType        = "pubsub#node_type"
	FieldAccessModel     = "pubsub#access_model"
	FieldMaxItems        = "pubsub#max_items"
	FieldCollection      = "pubsub#collection"
	FieldTitle           = "pubsub#title"
	FieldOptionsRequired = "pubsub#subscription_options_required"
)

// Access models.
const (
	AccessOpen      = "open"
	AccessAuthorize = "authorize"
	AccessWhitelist = "whitelist"
)

// DefaultMaxItems is the number of items kept by a leaf node unless configured
// otherwise.
const DefaultMaxItems = 10

// Notifier sends event notifications.
// It is implemented by *pubsub.Service.
type Notifier interface {
	NotifyPublish(service jid.JID, node string, notifications []pubsub.Notification) error
	NotifyDelete(service jid.JID, node string, notifications []pubsub.Notification, redirect string) error
	NotifyPurge(service jid.JID, node string, notifications []pubsub.Notification) error
}

// Option is used to configure a Store.
type Option func(*Store)

// Logger sets the logger used by the store.
func Logger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// IDGen sets the function used to generate item, subscription and instant
// node ids.
// The default generates random UUIDs.
func IDGen(f func() string) Option {
	return func(s *Store) {
		s.newID = f
	}
}

// Timeout sets how long Open waits to obtain a lock on the database file.
func Timeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// Store is a pubsub.Resource that persists its state in a bolt database.
type Store struct {
	db      *bolt.DB
	logger  *zap.Logger
	newID   func() string
	now     func() time.Time
	timeout time.Duration

	mu       sync.Mutex
	notifier Notifier
}

var _ pubsub.Resource = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		logger:  zap.NewNop(),
		newID:   uuid.NewString,
		now:     time.Now,
		timeout: time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: s.timeout})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{nodesBucket, itemsBucket, subsBucket, affsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		/* #nosec */
		db.Close()
		return nil, err
	}
	s.db = db
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetNotifier sets the notifier used to fan out events.
// Without a notifier no events are sent.
func (s *Store) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

func (s *Store) notify(kind, node string, f func(Notifier) error) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	if n == nil {
		return
	}
	if err := f(n); err != nil {
		s.logger.Warn("failed to send notifications",
			zap.String("kind", kind), zap.String("node", node), zap.Error(err))
	}
}

type nodeRecord struct {
	Node    string              `json:"node"`
	Config  map[string][]string `json:"config"`
	Created time.Time           `json:"created"`
}

func (n *nodeRecord) get(field string) string {
	if v := n.Config[field]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (n *nodeRecord) nodeType() string {
	if t := n.get(FieldNodeType); t != "" {
		return t
	}
	return pubsub.NodeLeaf
}

type itemRecord struct {
	ID        string    `json:"id"`
	Payload   string    `json:"payload,omitempty"`
	Publisher string    `json:"publisher,omitempty"`
	Published time.Time `json:"published"`
}

func (r itemRecord) item() (pubsub.Item, error) {
	item := pubsub.Item{ID: r.ID}
	if r.Payload == "" {
		return item, nil
	}
	payload, err := wire.Parse(r.Payload)
	if err != nil {
		return item, err
	}
	item.Payload = payload
	return item, nil
}

type subscriptionRecord struct {
	Subscriber string              `json:"subscriber"`
	State      pubsub.State        `json:"state"`
	SubID      string              `json:"subid"`
	Options    map[string][]string `json:"options,omitempty"`
}

func (r subscriptionRecord) subscription(node string) (pubsub.Subscription, error) {
	j, err := jid.Parse(r.Subscriber)
	if err != nil {
		return pubsub.Subscription{}, err
	}
	sub := pubsub.Subscription{
		Node:       node,
		Subscriber: j,
		State:      r.State,
		SubID:      r.SubID,
	}
	if r.Options != nil {
		sub.Options = valuesForm(form.TypeSubmit, pubsub.NSSubscribeOptions, r.Options)
	}
	return sub, nil
}

func recordFor(sub pubsub.Subscription) subscriptionRecord {
	return subscriptionRecord{
		Subscriber: sub.Subscriber.String(),
		State:      sub.State,
		SubID:      sub.SubID,
		Options:    formValues(sub.Options),
	}
}

func rootNode() *nodeRecord {
	return &nodeRecord{Config: map[string][]string{
		FieldNodeType:    {pubsub.NodeCollection},
		FieldAccessModel: {AccessOpen},
	}}
}

func nodeKey(node string) []byte {
	return []byte("n:" + node)
}

func nodeFromKey(k []byte) string {
	return string(k[2:])
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func putJSON(b *bolt.Bucket, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

func notFound() error {
	return wire.NewError(stanza.ItemNotFound, "")
}

func forbidden() error {
	return wire.NewError(stanza.Forbidden, "")
}

// getNode returns the node or nil if it does not exist.
func getNode(tx *bolt.Tx, node string) (*nodeRecord, error) {
	if node == "" {
		return rootNode(), nil
	}
	data := tx.Bucket(nodesBucket).Get([]byte(node))
	if data == nil {
		return nil, nil
	}
	rec := &nodeRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, err
	}
	if rec.Config == nil {
		rec.Config = make(map[string][]string)
	}
	return rec, nil
}

func requireNode(tx *bolt.Tx, node string) (*nodeRecord, error) {
	rec, err := getNode(tx, node)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFound()
	}
	return rec, nil
}

func putNode(tx *bolt.Tx, rec *nodeRecord) error {
	return putJSON(tx.Bucket(nodesBucket), []byte(rec.Node), rec)
}

// nested returns the per-node bucket under top.
// If create is false and the bucket does not exist nil is returned.
func nested(tx *bolt.Tx, top []byte, node string, create bool) (*bolt.Bucket, error) {
	parent := tx.Bucket(top)
	if create {
		return parent.CreateBucketIfNotExists(nodeKey(node))
	}
	return parent.Bucket(nodeKey(node)), nil
}

func affiliationOf(tx *bolt.Tx, node string, j jid.JID) string {
	b, _ := nested(tx, affsBucket, node, false)
	if b == nil {
		return pubsub.AffiliationNone
	}
	if v := b.Get([]byte(j.Bare().String())); v != nil {
		return string(v)
	}
	return pubsub.AffiliationNone
}

func requireOwner(tx *bolt.Tx, node string, j jid.JID) error {
	if node == "" || affiliationOf(tx, node, j) != pubsub.AffiliationOwner {
		return forbidden()
	}
	return nil
}

type keyedItem struct {
	key []byte
	rec itemRecord
}

func loadItems(b *bolt.Bucket) ([]keyedItem, error) {
	if b == nil {
		return nil, nil
	}
	var items []keyedItem
	err := b.ForEach(func(k, v []byte) error {
		var rec itemRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		items = append(items, keyedItem{key: append([]byte(nil), k...), rec: rec})
		return nil
	})
	return items, err
}

type keyedSub struct {
	key []byte
	rec subscriptionRecord
}

func loadSubs(b *bolt.Bucket) ([]keyedSub, error) {
	if b == nil {
		return nil, nil
	}
	var subs []keyedSub
	err := b.ForEach(func(k, v []byte) error {
		var rec subscriptionRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		subs = append(subs, keyedSub{key: append([]byte(nil), k...), rec: rec})
		return nil
	})
	return subs, err
}

// findSubs returns the subscriptions of subscriber, limited to subID if it is
// not empty.
func findSubs(b *bolt.Bucket, subscriber jid.JID, subID string) ([]keyedSub, error) {
	all, err := loadSubs(b)
	if err != nil {
		return nil, err
	}
	var out []keyedSub
	for _, s := range all {
		if s.rec.Subscriber != subscriber.String() {
			continue
		}
		if subID != "" && s.rec.SubID != subID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func formValues(f *form.Data) map[string][]string {
	if f == nil {
		return nil
	}
	return f.Values()
}

func valuesForm(typ, formType string, m map[string][]string) *form.Data {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	f := form.New(typ, formType)
	for _, k := range keys {
		f.Fields = append(f.Fields, form.Field{Var: k, Values: m[k]})
	}
	return f
}
