// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"
	"errors"
	"sync"

	"mellium.im/xmpp/jid"

	"mellium.im/xmppext/form"
	"mellium.im/xmppext/lifecycle"
	"mellium.im/xmppext/paging"
	"mellium.im/xmppext/wire"
)

// Query selects items to retrieve from a node.
type Query struct {
	Node     string
	MaxItems *uint64
	ItemIDs  []string
	SubID    string
	Paging   *paging.Request
}

// Client sends pubsub requests and receives event notifications.
// It is a lifecycle.Handler and must be added to a lifecycle.Manager before
// use.
//
// The event callbacks are optional and must be set before the client is added
// to a manager.
type Client struct {
	lifecycle.Base

	ItemsReceived  func(ItemsEvent)
	DeleteReceived func(DeleteEvent)
	PurgeReceived  func(PurgeEvent)

	mu     sync.Mutex
	cancel func()
}

func isEvent(env *wire.Envelope) bool {
	return env.Child(NSEvent, "event") != nil
}

// ConnectionInitialized starts observing event notifications.
func (c *Client) ConnectionInitialized() {
	conn := c.Conn()
	if conn == nil {
		return
	}
	cancel := conn.Observe(wire.MatchKind(wire.Message).And(isEvent), c.handleEvent)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
}

// ConnectionLost stops observing event notifications.
func (c *Client) ConnectionLost(reason error) {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.Base.ConnectionLost(reason)
}

func (c *Client) handleEvent(env *wire.Envelope) {
	ev, err := ParseEvent(env)
	if err != nil {
		return
	}
	switch ev := ev.(type) {
	case ItemsEvent:
		if c.ItemsReceived != nil {
			c.ItemsReceived(ev)
		}
	case DeleteEvent:
		if c.DeleteReceived != nil {
			c.DeleteReceived(ev)
		}
	case PurgeEvent:
		if c.PurgeReceived != nil {
			c.PurgeReceived(ev)
		}
	}
	env.Handled = true
}

// SendRequest sends req and returns the <pubsub/> payload of the response,
// which may be nil.
// Error responses are returned as a *wire.Error.
func (c *Client) SendRequest(ctx context.Context, req *Request) (*wire.Element, error) {
	env, err := req.Envelope()
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(ctx, env)
	if err != nil {
		return nil, err
	}
	return wrapper(resp), nil
}

func submitForm(formType string, f *form.Data) *form.Data {
	if f == nil {
		return nil
	}
	out := *f
	out.Type = form.TypeSubmit
	if out.FormType() == "" {
		out.Fields = append(form.New("", formType).Fields, out.Fields...)
	}
	return &out
}

// CreateNode creates a node and returns its identifier.
// If node is empty an instant node is requested and the service assigns the
// identifier.
func (c *Client) CreateNode(ctx context.Context, service jid.JID, node string, config *form.Data) (string, error) {
	resp, err := c.SendRequest(ctx, &Request{
		Verb:      VerbCreate,
		Recipient: service,
		Node:      node,
		Options:   submitForm(NSNodeConfig, config),
	})
	if err != nil {
		return "", err
	}
	if resp != nil {
		if create := resp.Child(NS, "create"); create != nil {
			if id, ok := create.Lookup("node"); ok {
				return id, nil
			}
		}
	}
	return node, nil
}

// DeleteNode deletes a node.
func (c *Client) DeleteNode(ctx context.Context, service jid.JID, node string) error {
	_, err := c.SendRequest(ctx, &Request{Verb: VerbDelete, Recipient: service, Node: node})
	return err
}

// Purge removes all items from a node.
func (c *Client) Purge(ctx context.Context, service jid.JID, node string) error {
	_, err := c.SendRequest(ctx, &Request{Verb: VerbPurge, Recipient: service, Node: node})
	return err
}

// Subscribe subscribes subscriber to a node.
//
// If the service reports a pending or unconfigured subscription, the
// subscription is returned along with ErrSubscriptionPending or
// ErrSubscriptionUnconfigured.
func (c *Client) Subscribe(ctx context.Context, service jid.JID, node string, subscriber jid.JID, opts *form.Data) (*Subscription, error) {
	resp, err := c.SendRequest(ctx, &Request{
		Verb:       VerbSubscribe,
		Recipient:  service,
		Node:       node,
		Subscriber: subscriber,
		Options:    submitForm(NSSubscribeOptions, opts),
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNoPubSub
	}
	el := resp.Child(NS, "subscription")
	if el == nil {
		return nil, ErrNoPubSub
	}
	sub, err := ParseSubscription(el)
	if err != nil {
		return nil, err
	}
	if sub.Node == "" {
		sub.Node = node
	}
	switch sub.State {
	case StatePending, StateUnconfigured:
		return &sub, sub.Err()
	}
	return &sub, nil
}

// Unsubscribe removes a subscription.
func (c *Client) Unsubscribe(ctx context.Context, service jid.JID, node string, subscriber jid.JID, subID string) error {
	_, err := c.SendRequest(ctx, &Request{
		Verb:       VerbUnsubscribe,
		Recipient:  service,
		Node:       node,
		Subscriber: subscriber,
		SubID:      subID,
	})
	return err
}

// Publish publishes items to a node and returns the item ids reported by the
// service.
// If the service does not report ids, the ids of the items are returned.
func (c *Client) Publish(ctx context.Context, service jid.JID, node string, items ...Item) ([]string, error) {
	resp, err := c.SendRequest(ctx, &Request{
		Verb:      VerbPublish,
		Recipient: service,
		Node:      node,
		Items:     items,
	})
	if err != nil {
		return nil, err
	}
	var ids []string
	if resp != nil {
		if publish := resp.Child(NS, "publish"); publish != nil {
			for _, item := range publish.ChildrenNamed(NS, "item") {
				ids = append(ids, item.Attribute("id"))
			}
		}
	}
	if ids == nil {
		for _, item := range items {
			if item.ID != "" {
				ids = append(ids, item.ID)
			}
		}
	}
	return ids, nil
}

// Items retrieves items from a node.
// The returned set is nil unless the service paged the result.
func (c *Client) Items(ctx context.Context, service jid.JID, q Query) ([]Item, *paging.Set, error) {
	resp, err := c.SendRequest(ctx, &Request{
		Verb:      VerbItems,
		Recipient: service,
		Node:      q.Node,
		MaxItems:  q.MaxItems,
		ItemIDs:   q.ItemIDs,
		SubID:     q.SubID,
		Paging:    q.Paging,
	})
	if err != nil {
		return nil, nil, err
	}
	if resp == nil {
		return nil, nil, nil
	}
	var items []Item
	if list := resp.Child(NS, "items"); list != nil {
		for _, el := range list.ChildrenNamed(NS, "item") {
			items = append(items, ParseItem(el))
		}
	}
	set, err := paging.ParseSet(resp)
	switch {
	case errors.Is(err, paging.ErrNoSet):
		return items, nil, nil
	case err != nil:
		return nil, nil, err
	}
	return items, set, nil
}

// Retract removes items from a node.
func (c *Client) Retract(ctx context.Context, service jid.JID, node string, ids ...string) error {
	_, err := c.SendRequest(ctx, &Request{
		Verb:      VerbRetract,
		Recipient: service,
		Node:      node,
		ItemIDs:   ids,
	})
	return err
}

// GetOptions retrieves the options of a subscription.
func (c *Client) GetOptions(ctx context.Context, service jid.JID, node string, subscriber jid.JID, subID string) (*form.Data, error) {
	resp, err := c.SendRequest(ctx, &Request{
		Verb:       VerbOptionsGet,
		Recipient:  service,
		Node:       node,
		Subscriber: subscriber,
		SubID:      subID,
	})
	if err != nil {
		return nil, err
	}
	return responseForm(resp, NS, "options")
}

// SetOptions sets the options of a subscription.
func (c *Client) SetOptions(ctx context.Context, service jid.JID, node string, subscriber jid.JID, subID string, opts *form.Data) error {
	if opts == nil {
		opts = &form.Data{}
	}
	_, err := c.SendRequest(ctx, &Request{
		Verb:       VerbOptionsSet,
		Recipient:  service,
		Node:       node,
		Subscriber: subscriber,
		SubID:      subID,
		Options:    submitForm(NSSubscribeOptions, opts),
	})
	return err
}

// Subscriptions lists the subscriptions of the requesting entity.
func (c *Client) Subscriptions(ctx context.Context, service jid.JID) ([]Subscription, error) {
	resp, err := c.SendRequest(ctx, &Request{Verb: VerbSubscriptions, Recipient: service})
	if err != nil {
		return nil, err
	}
	return responseSubscriptions(resp, NS, "")
}

// Affiliations lists the affiliations of the requesting entity.
func (c *Client) Affiliations(ctx context.Context, service jid.JID) ([]Affiliation, error) {
	resp, err := c.SendRequest(ctx, &Request{Verb: VerbAffiliations, Recipient: service})
	if err != nil {
		return nil, err
	}
	return responseAffiliations(resp, NS)
}

// GetConfig retrieves the configuration form of a node.
func (c *Client) GetConfig(ctx context.Context, service jid.JID, node string) (*form.Data, error) {
	resp, err := c.SendRequest(ctx, &Request{Verb: VerbConfigureGet, Recipient: service, Node: node})
	if err != nil {
		return nil, err
	}
	return responseForm(resp, NSOwner, "configure")
}

// SetConfig submits a new configuration for a node.
func (c *Client) SetConfig(ctx context.Context, service jid.JID, node string, config *form.Data) error {
	if config == nil {
		config = &form.Data{}
	}
	_, err := c.SendRequest(ctx, &Request{
		Verb:      VerbConfigureSet,
		Recipient: service,
		Node:      node,
		Options:   submitForm(NSNodeConfig, config),
	})
	return err
}

// GetDefaultConfig retrieves the default configuration for nodes of the given
// type.
func (c *Client) GetDefaultConfig(ctx context.Context, service jid.JID, nodeType string) (*form.Data, error) {
	resp, err := c.SendRequest(ctx, &Request{Verb: VerbDefault, Recipient: service, NodeType: nodeType})
	if err != nil {
		return nil, err
	}
	return responseForm(resp, NSOwner, "default")
}

// GetAffiliations lists the affiliations of a node.
// Only node owners may do this.
func (c *Client) GetAffiliations(ctx context.Context, service jid.JID, node string) ([]Affiliation, error) {
	resp, err := c.SendRequest(ctx, &Request{Verb: VerbAffiliationsGet, Recipient: service, Node: node})
	if err != nil {
		return nil, err
	}
	affs, err := responseAffiliations(resp, NSOwner)
	for i := range affs {
		affs[i].Node = node
	}
	return affs, err
}

// SetAffiliations modifies the affiliations of a node.
func (c *Client) SetAffiliations(ctx context.Context, service jid.JID, node string, affs ...Affiliation) error {
	_, err := c.SendRequest(ctx, &Request{
		Verb:         VerbAffiliationsSet,
		Recipient:    service,
		Node:         node,
		Affiliations: affs,
	})
	return err
}

// GetSubscriptions lists the subscriptions to a node.
// Only node owners may do this.
func (c *Client) GetSubscriptions(ctx context.Context, service jid.JID, node string) ([]Subscription, error) {
	resp, err := c.SendRequest(ctx, &Request{Verb: VerbSubscriptionsGet, Recipient: service, Node: node})
	if err != nil {
		return nil, err
	}
	return responseSubscriptions(resp, NSOwner, node)
}

// SetSubscriptions modifies the subscriptions to a node.
func (c *Client) SetSubscriptions(ctx context.Context, service jid.JID, node string, subs ...Subscription) error {
	_, err := c.SendRequest(ctx, &Request{
		Verb:          VerbSubscriptionsSet,
		Recipient:     service,
		Node:          node,
		Subscriptions: subs,
	})
	return err
}

func responseForm(resp *wire.Element, space, local string) (*form.Data, error) {
	if resp == nil {
		return nil, ErrNoPubSub
	}
	el := resp.Child(space, local)
	if el == nil {
		return nil, ErrNoPubSub
	}
	x := form.Find(el)
	if x == nil {
		return nil, nil
	}
	return form.Parse(x)
}

func responseSubscriptions(resp *wire.Element, space, node string) ([]Subscription, error) {
	if resp == nil {
		return nil, ErrNoPubSub
	}
	list := resp.Child(space, "subscriptions")
	if list == nil {
		return nil, ErrNoPubSub
	}
	var subs []Subscription
	for _, el := range list.ChildrenNamed(space, "subscription") {
		sub, err := ParseSubscription(el)
		if err != nil {
			return subs, err
		}
		if sub.Node == "" {
			sub.Node = node
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func responseAffiliations(resp *wire.Element, space string) ([]Affiliation, error) {
	if resp == nil {
		return nil, ErrNoPubSub
	}
	list := resp.Child(space, "affiliations")
	if list == nil {
		return nil, ErrNoPubSub
	}
	var affs []Affiliation
	for _, el := range list.ChildrenNamed(space, "affiliation") {
		a, err := ParseAffiliation(el)
		if err != nil {
			return affs, err
		}
		affs = append(affs, a)
	}
	return affs, nil
}
