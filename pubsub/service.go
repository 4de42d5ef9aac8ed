// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/disco"
	"mellium.im/xmppext/form"
	"mellium.im/xmppext/lifecycle"
	"mellium.im/xmppext/wire"
)

// preHook runs before a request reaches the resource.
// Returning a nil request short-circuits the request with an empty result.
type preHook func(*Request) (*Request, error)

// call invokes the resource for one verb and renders the result payload.
// A nil payload results in an empty result.
type call func(context.Context, Resource, *Request) (*wire.Element, error)

type route struct {
	pre  preHook
	call call
}

// ServiceOption is used to configure a Service.
type ServiceOption func(*Service)

// Logger sets the logger used to report backend faults.
func Logger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithMetrics records request and notification metrics.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLocator sets the locator used to pick the resource for each request,
// replacing the resource passed to NewService.
func WithLocator(l Locator) ServiceOption {
	return func(s *Service) {
		s.locator = l
	}
}

// Service answers pubsub requests using a Resource and sends event
// notifications.
// It is a lifecycle.Handler and should be added to a lifecycle.Manager.
type Service struct {
	lifecycle.Base

	locator Locator
	logger  *zap.Logger
	metrics *Metrics
	routes  map[Verb]route

	mu     sync.Mutex
	cancel func()
}

// NewService returns a service that dispatches requests to res.
func NewService(res Resource, opts ...ServiceOption) *Service {
	s := &Service{
		locator: Static(res),
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.routes = map[Verb]route{
		VerbPublish:          {call: callPublish},
		VerbSubscribe:        {call: callSubscribe},
		VerbUnsubscribe:      {call: callUnsubscribe},
		VerbOptionsGet:       {call: callOptionsGet},
		VerbOptionsSet:       {call: callOptionsSet},
		VerbSubscriptions:    {call: callSubscriptions},
		VerbAffiliations:     {call: callAffiliations},
		VerbCreate:           {pre: preCreate, call: callCreate},
		VerbDefault:          {pre: preDefault, call: callDefault},
		VerbConfigureGet:     {call: callConfigureGet},
		VerbConfigureSet:     {pre: preConfigureSet, call: callConfigureSet},
		VerbItems:            {call: callItems},
		VerbRetract:          {call: callRetract},
		VerbPurge:            {call: callPurge},
		VerbDelete:           {call: callDelete},
		VerbAffiliationsGet:  {call: callAffiliationsGet},
		VerbAffiliationsSet:  {call: callAffiliationsSet},
		VerbSubscriptionsGet: {call: callSubscriptionsGet},
		VerbSubscriptionsSet: {call: callSubscriptionsSet},
	}
	return s
}

func isPubSubRequest(env *wire.Envelope) bool {
	return wrapper(env) != nil
}

// ConnectionMade starts answering pubsub requests received on c.
func (s *Service) ConnectionMade(c lifecycle.Conn) {
	s.Base.ConnectionMade(c)
	cancel := c.Observe(wire.MatchKind(wire.IQ, wire.GetIQ, wire.SetIQ).And(isPubSubRequest), func(env *wire.Envelope) {
		if env.Handled {
			return
		}
		env.Handled = true
		resp := s.Handle(context.Background(), env)
		if err := c.Send(resp); err != nil {
			s.logger.Warn("failed to send pubsub response",
				zap.String("id", env.ID), zap.Stringer("to", resp.To), zap.Error(err))
		}
	})
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

// ConnectionLost stops observing the connection.
func (s *Service) ConnectionLost(reason error) {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.Base.ConnectionLost(reason)
}

// Handle answers a single pubsub request.
// The returned envelope is always a result or error reply to env.
func (s *Service) Handle(ctx context.Context, env *wire.Envelope) *wire.Envelope {
	start := time.Now()
	req, err := Decode(env)
	if err != nil {
		return s.fail(env, VerbUnknown, start, err)
	}
	verb := req.Verb
	rt, ok := s.routes[verb]
	if !ok {
		return s.fail(env, verb, start, ErrVerbNotRecognized)
	}
	if rt.pre != nil {
		req, err = rt.pre(req)
		if err != nil {
			return s.fail(env, verb, start, err)
		}
		if req == nil {
			s.metrics.observeRequest(verb, outcomeOK, time.Since(start))
			return env.Result()
		}
	}
	res := s.locator.Locate(req)
	if res == nil {
		return s.fail(env, verb, start, Unsupported(req.Feature()))
	}
	payload, err := rt.call(ctx, res, req)
	if err != nil {
		return s.fail(env, verb, start, err)
	}
	s.metrics.observeRequest(verb, outcomeOK, time.Since(start))
	if payload == nil {
		return env.Result()
	}
	return env.Result(payload)
}

// fail converts err to a stanza error reply.
// Errors that are not stanza errors, unsupported features or verb errors are
// backend faults: they are logged and masked as internal-server-error.
func (s *Service) fail(env *wire.Envelope, verb Verb, start time.Time, err error) *wire.Envelope {
	var (
		unsupported *UnsupportedError
		stanzaErr   *wire.Error
		outcome     string
	)
	switch {
	case errors.As(err, &unsupported):
		stanzaErr = unsupported.StanzaError()
		outcome = outcomeUnsupported
	case errors.As(err, &stanzaErr):
		outcome = outcomeError
	case errors.Is(err, ErrVerbNotRecognized), errors.Is(err, ErrVerbCombination):
		stanzaErr = wire.NewError(stanza.FeatureNotImplemented, "")
		outcome = outcomeUnsupported
	default:
		s.logger.Error("pubsub backend fault",
			zap.Stringer("verb", verb),
			zap.String("id", env.ID),
			zap.Stringer("from", env.From),
			zap.Error(err))
		stanzaErr = wire.NewError(stanza.InternalServerError, "")
		outcome = outcomeFault
	}
	s.metrics.observeRequest(verb, outcome, time.Since(start))
	return stanzaErr.Response(env)
}

// Features returns the pubsub features advertised by the service.
// If the resource does not implement FeatureLister every verb's feature is
// listed.
func (s *Service) Features() []string {
	if fl, ok := s.locator.Locate(&Request{}).(FeatureLister); ok {
		return fl.Features()
	}
	seen := make(map[string]struct{})
	var features []string
	for _, v := range Verbs() {
		f := v.Feature()
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		features = append(features, NS+"#"+f)
	}
	return features
}

// Identities returns the service discovery identity of a pubsub service.
func (s *Service) Identities() []disco.Identity {
	return []disco.Identity{{Category: "pubsub", Type: "service"}}
}

// NotifyPublish sends an items event to each subscriber.
func (s *Service) NotifyPublish(service jid.JID, node string, notifications []Notification) error {
	msgs := make([]*wire.Envelope, 0, len(notifications))
	for _, n := range notifications {
		msgs = append(msgs, ItemsMessage(service, node, n))
	}
	return s.notify("items", msgs)
}

// NotifyDelete sends a delete event to each subscriber.
func (s *Service) NotifyDelete(service jid.JID, node string, notifications []Notification, redirect string) error {
	msgs := make([]*wire.Envelope, 0, len(notifications))
	for _, n := range notifications {
		msgs = append(msgs, DeleteMessage(service, node, n, redirect))
	}
	return s.notify("delete", msgs)
}

// NotifyPurge sends a purge event to each subscriber.
func (s *Service) NotifyPurge(service jid.JID, node string, notifications []Notification) error {
	msgs := make([]*wire.Envelope, 0, len(notifications))
	for _, n := range notifications {
		msgs = append(msgs, PurgeMessage(service, node, n))
	}
	return s.notify("purge", msgs)
}

func (s *Service) notify(kind string, msgs []*wire.Envelope) error {
	var errs []error
	sent := 0
	for _, msg := range msgs {
		if err := s.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("pubsub: notifying %s: %w", msg.To, err))
			continue
		}
		sent++
	}
	s.metrics.observeNotification(kind, sent)
	return errors.Join(errs...)
}

func preCreate(req *Request) (*Request, error) {
	if req.Options != nil && req.Options.Type != form.TypeSubmit {
		return nil, badRequest("", fmt.Sprintf("Unexpected form type '%s'", req.Options.Type))
	}
	return req, nil
}

func preDefault(req *Request) (*Request, error) {
	if req.NodeType != NodeLeaf && req.NodeType != NodeCollection {
		return nil, wire.NewError(stanza.NotAcceptable, "")
	}
	return req, nil
}

func preConfigureSet(req *Request) (*Request, error) {
	if req.Options != nil && req.Options.Type == form.TypeCancel {
		return nil, nil
	}
	return req, nil
}

func pubsubElement(space, local string) (*wire.Element, *wire.Element) {
	w := wire.NewElement(space, "pubsub")
	return w, w.AddElement(local)
}

func callPublish(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	ids, err := res.Publish(ctx, req)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	w, publish := pubsubElement(NS, "publish")
	publish.SetAttr("node", req.Node)
	for _, id := range ids {
		publish.AddElement("item").SetAttr("id", id)
	}
	return w, nil
}

func callSubscribe(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	sub, err := res.Subscribe(ctx, req)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errors.New("pubsub: resource returned no subscription")
	}
	w := wire.NewElement(NS, "pubsub")
	w.AddChild(sub.Element(NS))
	return w, nil
}

func callUnsubscribe(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	return nil, res.Unsubscribe(ctx, req)
}

func callOptionsGet(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	f, err := res.OptionsGet(ctx, req)
	if err != nil {
		return nil, err
	}
	w, opts := pubsubElement(NS, "options")
	if req.Node != "" {
		opts.SetAttr("node", req.Node)
	}
	opts.SetAttr("jid", req.Subscriber.String())
	if req.SubID != "" {
		opts.SetAttr("subid", req.SubID)
	}
	if f != nil {
		opts.AddChild(f.Element())
	}
	return w, nil
}

func callOptionsSet(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	return nil, res.OptionsSet(ctx, req)
}

func callSubscriptions(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	subs, err := res.Subscriptions(ctx, req)
	if err != nil {
		return nil, err
	}
	w, list := pubsubElement(NS, "subscriptions")
	for _, sub := range subs {
		list.AddChild(sub.Element(NS))
	}
	return w, nil
}

func callAffiliations(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	affs, err := res.Affiliations(ctx, req)
	if err != nil {
		return nil, err
	}
	w, list := pubsubElement(NS, "affiliations")
	for _, a := range affs {
		list.AddChild(Affiliation{Node: a.Node, Affiliation: a.Affiliation}.Element(NS))
	}
	return w, nil
}

func callCreate(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	node, err := res.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.Node != "" && req.Node == node {
		return nil, nil
	}
	w, create := pubsubElement(NS, "create")
	create.SetAttr("node", node)
	return w, nil
}

func callDefault(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	f, err := res.Default(ctx, req)
	if err != nil {
		return nil, err
	}
	w, def := pubsubElement(NSOwner, "default")
	def.AddChild(configForm(f).Element())
	return w, nil
}

func callConfigureGet(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	f, err := res.ConfigureGet(ctx, req)
	if err != nil {
		return nil, err
	}
	w, configure := pubsubElement(NSOwner, "configure")
	if req.Node != "" {
		configure.SetAttr("node", req.Node)
	}
	configure.AddChild(configForm(f).Element())
	return w, nil
}

// configForm returns f as a node configuration form of type "form".
func configForm(f *form.Data) *form.Data {
	if f == nil {
		return form.New(form.TypeForm, NSNodeConfig)
	}
	out := *f
	out.Type = form.TypeForm
	if out.FormType() == "" {
		out.Fields = append(form.New("", NSNodeConfig).Fields, out.Fields...)
	}
	return &out
}

func callConfigureSet(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	return nil, res.ConfigureSet(ctx, req)
}

func callItems(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	items, set, err := res.Items(ctx, req)
	if err != nil {
		return nil, err
	}
	w, list := pubsubElement(NS, "items")
	list.SetAttr("node", req.Node)
	for _, item := range items {
		list.AddChild(item.Element(NS))
	}
	if set != nil {
		w.AddChild(set.Element())
	}
	return w, nil
}

func callRetract(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	return nil, res.Retract(ctx, req)
}

func callPurge(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	return nil, res.Purge(ctx, req)
}

func callDelete(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	return nil, res.Delete(ctx, req)
}

func callAffiliationsGet(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	affs, err := res.AffiliationsGet(ctx, req)
	if err != nil {
		return nil, err
	}
	w, list := pubsubElement(NSOwner, "affiliations")
	if req.Node != "" {
		list.SetAttr("node", req.Node)
	}
	for _, a := range affs {
		list.AddChild(Affiliation{JID: a.JID, Affiliation: a.Affiliation}.Element(NSOwner))
	}
	return w, nil
}

func callAffiliationsSet(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	return nil, res.AffiliationsSet(ctx, req)
}

func callSubscriptionsGet(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	subs, err := res.SubscriptionsGet(ctx, req)
	if err != nil {
		return nil, err
	}
	w, list := pubsubElement(NSOwner, "subscriptions")
	if req.Node != "" {
		list.SetAttr("node", req.Node)
	}
	for _, sub := range subs {
		sub.Node = ""
		list.AddChild(sub.Element(NSOwner))
	}
	return w, nil
}

func callSubscriptionsSet(ctx context.Context, res Resource, req *Request) (*wire.Element, error) {
	return nil, res.SubscriptionsSet(ctx, req)
}
