// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"

	"mellium.im/xmppext/form"
	"mellium.im/xmppext/paging"
)

// Resource is a pubsub backend.
// Each method handles the request verb of the same name.
//
// Methods may return a *wire.Error to report a specific stanza error or an
// *UnsupportedError if the feature is not implemented.
// Any other error is treated as an internal fault: it is logged and reported
// to the requester as internal-server-error.
type Resource interface {
	// Publish stores the items of the request and returns the ids assigned to
	// them.
	Publish(context.Context, *Request) ([]string, error)
	Subscribe(context.Context, *Request) (*Subscription, error)
	Unsubscribe(context.Context, *Request) error
	OptionsGet(context.Context, *Request) (*form.Data, error)
	OptionsSet(context.Context, *Request) error
	Subscriptions(context.Context, *Request) ([]Subscription, error)
	Affiliations(context.Context, *Request) ([]Affiliation, error)
	// Create creates the node and returns its identifier, which may differ
	// from the requested one.
	Create(context.Context, *Request) (string, error)
	Default(context.Context, *Request) (*form.Data, error)
	ConfigureGet(context.Context, *Request) (*form.Data, error)
	ConfigureSet(context.Context, *Request) error
	Items(context.Context, *Request) ([]Item, *paging.Set, error)
	Retract(context.Context, *Request) error
	Purge(context.Context, *Request) error
	Delete(context.Context, *Request) error
	AffiliationsGet(context.Context, *Request) ([]Affiliation, error)
	AffiliationsSet(context.Context, *Request) error
	SubscriptionsGet(context.Context, *Request) ([]Subscription, error)
	SubscriptionsSet(context.Context, *Request) error
}

// FeatureLister is implemented by resources that advertise the pubsub
// features they support.
type FeatureLister interface {
	Features() []string
}

// Locator picks the resource that handles a request.
type Locator interface {
	Locate(*Request) Resource
}

// LocatorFunc is an adapter that allows the use of an ordinary function as a
// Locator.
type LocatorFunc func(*Request) Resource

// Locate calls f(req).
func (f LocatorFunc) Locate(req *Request) Resource {
	return f(req)
}

// Static returns a Locator that always returns r.
func Static(r Resource) Locator {
	return LocatorFunc(func(*Request) Resource {
		return r
	})
}

// UnimplementedResource answers every request with an UnsupportedError naming
// the feature of the request's verb.
// Embed it in a resource to implement only some verbs.
type UnimplementedResource struct{}

func unsupported(r *Request) error {
	return Unsupported(r.Feature())
}

// Publish implements Resource.
func (UnimplementedResource) Publish(_ context.Context, r *Request) ([]string, error) {
	return nil, unsupported(r)
}

// Subscribe implements Resource.
func (UnimplementedResource) Subscribe(_ context.Context, r *Request) (*Subscription, error) {
	return nil, unsupported(r)
}

// Unsubscribe implements Resource.
func (UnimplementedResource) Unsubscribe(_ context.Context, r *Request) error {
	return unsupported(r)
}

// OptionsGet implements Resource.
func (UnimplementedResource) OptionsGet(_ context.Context, r *Request) (*form.Data, error) {
	return nil, unsupported(r)
}

// OptionsSet implements Resource.
func (UnimplementedResource) OptionsSet(_ context.Context, r *Request) error {
	return unsupported(r)
}

// Subscriptions implements Resource.
func (UnimplementedResource) Subscriptions(_ context.Context, r *Request) ([]Subscription, error) {
	return nil, unsupported(r)
}

// Affiliations implements Resource.
func (UnimplementedResource) Affiliations(_ context.Context, r *Request) ([]Affiliation, error) {
	return nil, unsupported(r)
}

// Create implements Resource.
func (UnimplementedResource) Create(_ context.Context, r *Request) (string, error) {
	return "", unsupported(r)
}

// Default implements Resource.
func (UnimplementedResource) Default(_ context.Context, r *Request) (*form.Data, error) {
	return nil, unsupported(r)
}

// ConfigureGet implements Resource.
func (UnimplementedResource) ConfigureGet(_ context.Context, r *Request) (*form.Data, error) {
	return nil, unsupported(r)
}

// ConfigureSet implements Resource.
func (UnimplementedResource) ConfigureSet(_ context.Context, r *Request) error {
	return unsupported(r)
}

// Items implements Resource.
func (UnimplementedResource) Items(_ context.Context, r *Request) ([]Item, *paging.Set, error) {
	return nil, nil, unsupported(r)
}

// Retract implements Resource.
func (UnimplementedResource) Retract(_ context.Context, r *Request) error {
	return unsupported(r)
}

// Purge implements Resource.
func (UnimplementedResource) Purge(_ context.Context, r *Request) error {
	return unsupported(r)
}

// Delete implements Resource.
func (UnimplementedResource) Delete(_ context.Context, r *Request) error {
	return unsupported(r)
}

// AffiliationsGet implements Resource.
func (UnimplementedResource) AffiliationsGet(_ context.Context, r *Request) ([]Affiliation, error) {
	return nil, unsupported(r)
}

// AffiliationsSet implements Resource.
func (UnimplementedResource) AffiliationsSet(_ context.Context, r *Request) error {
	return unsupported(r)
}

// SubscriptionsGet implements Resource.
func (UnimplementedResource) SubscriptionsGet(_ context.Context, r *Request) ([]Subscription, error) {
	return nil, unsupported(r)
}

// SubscriptionsSet implements Resource.
func (UnimplementedResource) SubscriptionsSet(_ context.Context, r *Request) error {
	return unsupported(r)
}
