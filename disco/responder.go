// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package disco

import (
	"context"
	"sync"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/lifecycle"
	"mellium.im/xmppext/wire"
)

// FeatureLister is implemented by handlers that advertise features.
type FeatureLister interface {
	Features() []string
}

// IdentityLister is implemented by handlers that advertise identities.
type IdentityLister interface {
	Identities() []Identity
}

// Responder answers info queries with the identities and features of its
// sources.
// Queries for a node other than the root are answered with item-not-found.
type Responder struct {
	lifecycle.Base

	sources []interface{}

	mu     sync.Mutex
	cancel func()
}

// NewResponder returns a Responder that advertises the identities and
// features of each source implementing IdentityLister or FeatureLister.
func NewResponder(sources ...interface{}) *Responder {
	return &Responder{sources: sources}
}

// Info returns the information advertised for the root node.
// The disco#info feature is always included and duplicates are removed.
func (r *Responder) Info() Info {
	info := Info{Features: []string{NSInfo}}
	seenIdent := make(map[string]struct{})
	seenFeature := map[string]struct{}{NSInfo: {}}
	for _, src := range r.sources {
		if il, ok := src.(IdentityLister); ok {
			for _, ident := range il.Identities() {
				if _, ok := seenIdent[ident.key()]; ok {
					continue
				}
				seenIdent[ident.key()] = struct{}{}
				info.Identities = append(info.Identities, ident)
			}
		}
		if fl, ok := src.(FeatureLister); ok {
			for _, f := range fl.Features() {
				if _, ok := seenFeature[f]; ok {
					continue
				}
				seenFeature[f] = struct{}{}
				info.Features = append(info.Features, f)
			}
		}
	}
	return info
}

// ConnectionMade starts answering info queries received on c.
func (r *Responder) ConnectionMade(c lifecycle.Conn) {
	r.Base.ConnectionMade(c)
	cancel := c.Observe(wire.MatchKind(wire.IQ, wire.GetIQ).And(wire.MatchPayload(NSInfo, "query")), func(env *wire.Envelope) {
		if env.Handled {
			return
		}
		env.Handled = true
		/* #nosec */
		c.Send(r.handle(env))
	})
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
}

// ConnectionLost stops observing the connection.
func (r *Responder) ConnectionLost(reason error) {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.Base.ConnectionLost(reason)
}

func (r *Responder) handle(env *wire.Envelope) *wire.Envelope {
	q := env.Child(NSInfo, "query")
	if node := q.Attribute("node"); node != "" {
		return wire.NewError(stanza.ItemNotFound, "").Response(env)
	}
	return env.Result(r.Info().Element())
}

// Doer sends a request and waits for the response.
// It is implemented by *lifecycle.Manager and *lifecycle.Base.
type Doer interface {
	Do(context.Context, *wire.Envelope) (*wire.Envelope, error)
}

// GetInfo queries to for its identities and features.
func GetInfo(ctx context.Context, d Doer, to jid.JID, node string) (Info, error) {
	q := wire.NewElement(NSInfo, "query")
	if node != "" {
		q.SetAttr("node", node)
	}
	resp, err := d.Do(ctx, wire.NewIQ(wire.GetIQ, to, q))
	if err != nil {
		return Info{}, err
	}
	result := resp.Child(NSInfo, "query")
	if result == nil {
		return Info{Node: node}, nil
	}
	return ParseInfo(result)
}
