// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"errors"
	"fmt"
	"strconv"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/form"
	"mellium.im/xmppext/paging"
	"mellium.im/xmppext/wire"
)

// param reads and writes one part of a request.
// The verb element is the child of the <pubsub/> wrapper that names the verb;
// some parameters live in siblings of it and use the wrapper directly.
type param struct {
	name   string
	decode func(r *Request, verb, wrapper *wire.Element) error
	encode func(r *Request, verb, wrapper *wire.Element) error
}

var (
	paramNode = param{
		name: "node",
		decode: func(r *Request, verb, _ *wire.Element) error {
			node, ok := verb.Lookup("node")
			if !ok {
				return badRequest("nodeid-required", "")
			}
			r.Node = node
			return nil
		},
		encode: func(r *Request, verb, _ *wire.Element) error {
			if r.Node == "" {
				return fmt.Errorf("pubsub: %s request requires a node identifier", r.Verb)
			}
			verb.SetAttr("node", r.Node)
			return nil
		},
	}
	paramNodeOrEmpty = param{
		name: "nodeOrEmpty",
		decode: func(r *Request, verb, _ *wire.Element) error {
			r.Node = verb.Attribute("node")
			return nil
		},
		encode: func(r *Request, verb, _ *wire.Element) error {
			if r.Node != "" {
				verb.SetAttr("node", r.Node)
			}
			return nil
		},
	}
	paramItems = param{
		name: "items",
		decode: func(r *Request, verb, _ *wire.Element) error {
			for _, el := range verb.ChildrenNamed(NS, "item") {
				r.Items = append(r.Items, ParseItem(el))
			}
			return nil
		},
		encode: func(r *Request, verb, _ *wire.Element) error {
			for _, item := range r.Items {
				verb.AddChild(item.Element(NS))
			}
			return nil
		},
	}
	paramJID = param{
		name: "jid",
		decode: func(r *Request, verb, _ *wire.Element) error {
			raw, ok := verb.Lookup("jid")
			if !ok {
				return badRequest("jid-required", "")
			}
			j, err := jid.Parse(raw)
			if err != nil {
				return badRequest("invalid-jid", err.Error())
			}
			r.Subscriber = j
			return nil
		},
		encode: func(r *Request, verb, _ *wire.Element) error {
			verb.SetAttr("jid", r.Subscriber.String())
			return nil
		},
	}
	paramDefault = param{
		name: "default",
		decode: func(r *Request, verb, _ *wire.Element) error {
			r.NodeType = NodeLeaf
			f := findForm(verb, NSNodeConfig)
			if f != nil && f.Type == form.TypeSubmit {
				if t, ok := f.Get("pubsub#node_type"); ok {
					r.NodeType = t
				}
			}
			return nil
		},
		encode: func(r *Request, verb, _ *wire.Element) error {
			if r.NodeType == "" {
				return nil
			}
			f := form.New(form.TypeSubmit, NSNodeConfig, form.Field{
				Var:    "pubsub#node_type",
				Type:   "list-single",
				Values: []string{r.NodeType},
			})
			verb.AddChild(f.Element())
			return nil
		},
	}
	paramConfigure = param{
		name: "configure",
		decode: func(r *Request, verb, _ *wire.Element) error {
			f := findForm(verb, NSNodeConfig)
			if f == nil {
				return badRequest("", "Missing configuration form")
			}
			if f.Type != form.TypeSubmit && f.Type != form.TypeCancel {
				return badRequest("", fmt.Sprintf("Unexpected form type '%s'", f.Type))
			}
			r.Options = f
			return nil
		},
		encode: func(r *Request, verb, _ *wire.Element) error {
			if r.Options == nil {
				return fmt.Errorf("pubsub: %s request requires a configuration form", r.Verb)
			}
			verb.AddChild(r.Options.Element())
			return nil
		},
	}
	paramConfigureOrNone = param{
		name: "configureOrNone",
		decode: func(r *Request, _, wrapper *wire.Element) error {
			configure := wrapper.Child(NS, "configure")
			if configure == nil {
				return nil
			}
			f := findForm(configure, NSNodeConfig)
			if f == nil {
				r.Options = form.New(form.TypeSubmit, NSNodeConfig)
				return nil
			}
			if f.Type != form.TypeSubmit {
				return badRequest("", fmt.Sprintf("Unexpected form type '%s'", f.Type))
			}
			r.Options = f
			return nil
		},
		encode: func(r *Request, _, wrapper *wire.Element) error {
			if r.Options != nil {
				wrapper.AddElement("configure").AddChild(r.Options.Element())
			}
			return nil
		},
	}
	paramItemIDs = param{
		name: "itemIdentifiers",
		decode: func(r *Request, verb, _ *wire.Element) error {
			for _, el := range verb.ChildrenNamed(NS, "item") {
				id, ok := el.Lookup("id")
				if !ok {
					return badRequest("item-required", "Missing item identifier")
				}
				r.ItemIDs = append(r.ItemIDs, id)
			}
			return nil
		},
		encode: func(r *Request, verb, _ *wire.Element) error {
			for _, id := range r.ItemIDs {
				verb.AddElement("item").SetAttr("id", id)
			}
			return nil
		},
	}
	paramMaxItems = param{
		name: "maxItems",
		decode: func(r *Request, verb, _ *wire.Element) error {
			raw, ok := verb.Lookup("max_items")
			if !ok {
				return nil
			}
			n, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return badRequest("", "Field max_items requires a positive integer value")
			}
			r.MaxItems = &n
			return nil
		},
		encode: func(r *Request, verb, _ *wire.Element) error {
			if r.MaxItems != nil {
				verb.SetAttr("max_items", strconv.FormatUint(*r.MaxItems, 10))
			}
			return nil
		},
	}
	paramSubID = param{
		name: "subidOrNone",
		decode: func(r *Request, verb, _ *wire.Element) error {
			r.SubID = verb.Attribute("subid")
			return nil
		},
		encode: func(r *Request, verb, _ *wire.Element) error {
			if r.SubID != "" {
				verb.SetAttr("subid", r.SubID)
			}
			return nil
		},
	}
	paramOptions = param{
		name: "options",
		decode: func(r *Request, verb, _ *wire.Element) error {
			f := findForm(verb, NSSubscribeOptions)
			if f == nil {
				return badRequest("", "Missing options form")
			}
			if f.Type != form.TypeSubmit && f.Type != form.TypeCancel {
				return badRequest("", fmt.Sprintf("Unexpected form type '%s'", f.Type))
			}
			r.Options = f
			return nil
		},
		encode: func(r *Request, verb, _ *wire.Element) error {
			if r.Options == nil {
				return fmt.Errorf("pubsub: %s request requires an options form", r.Verb)
			}
			verb.AddChild(r.Options.Element())
			return nil
		},
	}
	paramOptionsWithSubscribe = param{
		name: "optionsWithSubscribe",
		decode: func(r *Request, _, wrapper *wire.Element) error {
			opts := wrapper.Child(NS, "options")
			if opts == nil {
				return nil
			}
			f := findForm(opts, NSSubscribeOptions)
			if f == nil {
				r.Options = form.New(form.TypeSubmit, NSSubscribeOptions)
				return nil
			}
			if f.Type != form.TypeSubmit {
				return badRequest("", fmt.Sprintf("Unexpected form type '%s'", f.Type))
			}
			r.Options = f
			return nil
		},
		encode: func(r *Request, _, wrapper *wire.Element) error {
			if r.Options != nil {
				wrapper.AddElement("options").AddChild(r.Options.Element())
			}
			return nil
		},
	}
	paramAffiliations = param{
		name: "affiliations",
		decode: func(r *Request, verb, _ *wire.Element) error {
			seen := make(map[string]struct{})
			for _, el := range verb.ChildrenNamed(NSOwner, "affiliation") {
				raw, ok := el.Lookup("jid")
				if !ok {
					return badRequest("", "Missing jid attribute")
				}
				j, err := jid.Parse(raw)
				if err != nil {
					return wire.NewError(stanza.JIDMalformed, err.Error())
				}
				bare := j.Bare()
				key := bare.String()
				if _, dup := seen[key]; dup {
					return badRequest("", "Multiple affiliations for an entity")
				}
				seen[key] = struct{}{}
				aff, ok := el.Lookup("affiliation")
				if !ok {
					return badRequest("", "Missing affiliation attribute")
				}
				if !validAffiliation(aff) {
					return badRequest("", "Unknown affiliation "+aff)
				}
				r.Affiliations = append(r.Affiliations, Affiliation{JID: bare, Affiliation: aff})
			}
			return nil
		},
		encode: func(r *Request, verb, _ *wire.Element) error {
			for _, a := range r.Affiliations {
				verb.AddChild(Affiliation{JID: a.JID, Affiliation: a.Affiliation}.Element(NSOwner))
			}
			return nil
		},
	}
	paramSubscriptions = param{
		name: "subscriptions",
		decode: func(r *Request, verb, _ *wire.Element) error {
			for _, el := range verb.ChildrenNamed(NSOwner, "subscription") {
				sub, err := ParseSubscription(el)
				if err != nil {
					return badRequest("", err.Error())
				}
				sub.Node = r.Node
				r.Subscriptions = append(r.Subscriptions, sub)
			}
			return nil
		},
		encode: func(r *Request, verb, _ *wire.Element) error {
			for _, sub := range r.Subscriptions {
				sub.Node = ""
				verb.AddChild(sub.Element(NSOwner))
			}
			return nil
		},
	}
	paramPaging = param{
		name: "rsm",
		decode: func(r *Request, _, wrapper *wire.Element) error {
			req, err := paging.ParseRequest(wrapper)
			switch {
			case errors.Is(err, paging.ErrNoSet):
				return nil
			case err != nil:
				return err
			}
			r.Paging = req
			return nil
		},
		encode: func(r *Request, _, wrapper *wire.Element) error {
			if r.Paging != nil {
				wrapper.AddChild(r.Paging.Element())
			}
			return nil
		},
	}
)

var verbParams = map[Verb][]param{
	VerbPublish:          {paramNode, paramItems},
	VerbSubscribe:        {paramNodeOrEmpty, paramJID, paramOptionsWithSubscribe},
	VerbUnsubscribe:      {paramNodeOrEmpty, paramJID, paramSubID},
	VerbOptionsGet:       {paramNodeOrEmpty, paramJID, paramSubID},
	VerbOptionsSet:       {paramNodeOrEmpty, paramJID, paramOptions, paramSubID},
	VerbSubscriptions:    nil,
	VerbAffiliations:     nil,
	VerbCreate:           {paramNodeOrEmpty, paramConfigureOrNone},
	VerbDefault:          {paramDefault},
	VerbConfigureGet:     {paramNodeOrEmpty},
	VerbConfigureSet:     {paramNodeOrEmpty, paramConfigure},
	VerbItems:            {paramNode, paramMaxItems, paramItemIDs, paramSubID, paramPaging},
	VerbRetract:          {paramNode, paramItemIDs},
	VerbPurge:            {paramNode},
	VerbDelete:           {paramNode},
	VerbAffiliationsGet:  {paramNodeOrEmpty},
	VerbAffiliationsSet:  {paramNodeOrEmpty, paramAffiliations},
	VerbSubscriptionsGet: {paramNodeOrEmpty},
	VerbSubscriptionsSet: {paramNodeOrEmpty, paramSubscriptions},
}

// findForm returns the first data form child of el with the given FORM_TYPE.
// Forms that carry no FORM_TYPE are accepted as well.
func findForm(el *wire.Element, formType string) *form.Data {
	for _, x := range el.ChildrenNamed(form.NS, "x") {
		f, err := form.Parse(x)
		if err != nil {
			continue
		}
		if ft := f.FormType(); ft == "" || ft == formType {
			return f
		}
	}
	return nil
}

// wrapper returns the <pubsub/> payload of env in either the pubsub or the
// pubsub#owner namespace.
func wrapper(env *wire.Envelope) *wire.Element {
	for _, p := range env.Payload {
		if p.Name.Local == "pubsub" && (p.Name.Space == NS || p.Name.Space == NSOwner) {
			return p
		}
	}
	return nil
}

// Decode parses a pubsub request from an IQ.
//
// If the IQ carries no recognizable verb ErrVerbNotRecognized is returned.
// If it carries several verbs that may not be combined ErrVerbCombination is
// returned.
// A subscribe request carrying subscription options is reported as
// VerbSubscribe.
// Malformed parameters result in a *wire.Error with a bad-request condition.
func Decode(env *wire.Envelope) (*Request, error) {
	if !env.IsRequest() {
		return nil, ErrVerbNotRecognized
	}
	w := wrapper(env)
	if w == nil {
		return nil, ErrVerbNotRecognized
	}

	var (
		found   []Verb
		element []*wire.Element
	)
	for _, child := range w.Elements() {
		v, ok := verbLookup[verbKey{env.Type, child.Name.Space, child.Name.Local}]
		if ok {
			found = append(found, v)
			element = append(element, child)
		}
	}

	var verb Verb
	var verbEl *wire.Element
	switch len(found) {
	case 0:
		return nil, ErrVerbNotRecognized
	case 1:
		verb, verbEl = found[0], element[0]
	case 2:
		switch {
		case found[0] == VerbSubscribe && found[1] == VerbOptionsSet:
			verb, verbEl = found[0], element[0]
		case found[0] == VerbOptionsSet && found[1] == VerbSubscribe:
			verb, verbEl = found[1], element[1]
		default:
			return nil, ErrVerbCombination
		}
	default:
		return nil, ErrVerbCombination
	}

	r := &Request{
		Verb:      verb,
		ID:        env.ID,
		Sender:    env.From,
		Recipient: env.To,
	}
	for _, p := range verbParams[verb] {
		if err := p.decode(r, verbEl, w); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Envelope renders the request as an IQ.
func (r *Request) Envelope() (*wire.Envelope, error) {
	if r.Verb == VerbUnknown || r.Verb >= verbCount {
		return nil, ErrVerbNotRecognized
	}
	w := wire.NewElement(r.Verb.Namespace(), "pubsub")
	verbEl := w.AddElement(r.Verb.Element())
	for _, p := range verbParams[r.Verb] {
		if err := p.encode(r, verbEl, w); err != nil {
			return nil, err
		}
	}
	env := wire.NewIQ(r.Verb.IQType(), r.Recipient, w)
	env.ID = r.ID
	env.From = r.Sender
	return env, nil
}
