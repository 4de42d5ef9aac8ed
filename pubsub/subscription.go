// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"fmt"

	"mellium.im/xmpp/jid"

	"mellium.im/xmppext/form"
	"mellium.im/xmppext/wire"
)

// State is the state of a subscription.
type State string

// A list of subscription states.
const (
	StateNone         State = "none"
	StatePending      State = "pending"
	StateUnconfigured State = "unconfigured"
	StateSubscribed   State = "subscribed"
)

// Subscription is an entity's subscription to a node.
type Subscription struct {
	Node       string
	Subscriber jid.JID
	State      State
	SubID      string
	Options    *form.Data
}

// Active reports whether notifications should be delivered for the
// subscription.
func (s *Subscription) Active() bool {
	return s.State == StateSubscribed
}

// Err returns the error a subscriber should see for the current state.
// Pending subscriptions return ErrSubscriptionPending, unconfigured ones return
// ErrSubscriptionUnconfigured and active subscriptions return nil.
func (s *Subscription) Err() error {
	switch s.State {
	case StateSubscribed:
		return nil
	case StatePending:
		return ErrSubscriptionPending
	case StateUnconfigured:
		return ErrSubscriptionUnconfigured
	}
	return fmt.Errorf("pubsub: unexpected subscription state %q", s.State)
}

// Approve moves a pending subscription to the subscribed state.
func (s *Subscription) Approve() error {
	if s.State != StatePending {
		return fmt.Errorf("%w: cannot approve %s subscription", ErrInvalidTransition, s.State)
	}
	s.State = StateSubscribed
	return nil
}

// Deny removes a pending subscription.
func (s *Subscription) Deny() error {
	if s.State != StatePending {
		return fmt.Errorf("%w: cannot deny %s subscription", ErrInvalidTransition, s.State)
	}
	s.State = StateNone
	return nil
}

// Configure sets the subscription options.
// An unconfigured subscription becomes active; a pending one stays pending.
func (s *Subscription) Configure(opts *form.Data) error {
	switch s.State {
	case StateUnconfigured:
		s.State = StateSubscribed
	case StateSubscribed, StatePending:
	default:
		return fmt.Errorf("%w: cannot configure %s subscription", ErrInvalidTransition, s.State)
	}
	s.Options = opts
	return nil
}

// Cancel ends the subscription.
func (s *Subscription) Cancel() error {
	if s.State == StateNone {
		return fmt.Errorf("%w: subscription is not active", ErrInvalidTransition)
	}
	s.State = StateNone
	return nil
}

// Element returns the <subscription/> element in the given namespace.
// The node attribute is omitted for the root node.
func (s Subscription) Element(space string) *wire.Element {
	el := wire.NewElement(space, "subscription")
	if s.Node != "" {
		el.SetAttr("node", s.Node)
	}
	el.SetAttr("jid", s.Subscriber.String())
	el.SetAttr("subscription", string(s.State))
	if s.SubID != "" {
		el.SetAttr("subid", s.SubID)
	}
	if s.Options != nil {
		el.AddChild(s.Options.Element())
	}
	return el
}

// ParseSubscription decodes a <subscription/> element.
func ParseSubscription(el *wire.Element) (Subscription, error) {
	s := Subscription{
		Node:  el.Attribute("node"),
		State: State(el.Attribute("subscription")),
		SubID: el.Attribute("subid"),
	}
	if s.State == "" {
		s.State = StateNone
	}
	raw, ok := el.Lookup("jid")
	if !ok {
		return s, fmt.Errorf("pubsub: subscription missing jid")
	}
	j, err := jid.Parse(raw)
	if err != nil {
		return s, fmt.Errorf("pubsub: bad subscription jid %q: %w", raw, err)
	}
	s.Subscriber = j
	if x := el.Child(form.NS, "x"); x != nil {
		if opts, err := form.Parse(x); err == nil {
			s.Options = opts
		}
	}
	return s, nil
}
