// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"mellium.im/xmppext/wire"
)

// Verb is the kind of a pubsub request.
type Verb uint8

// A list of request verbs.
const (
	VerbUnknown Verb = iota
	VerbPublish
	VerbSubscribe
	VerbUnsubscribe
	VerbOptionsGet
	VerbOptionsSet
	VerbSubscriptions
	VerbAffiliations
	VerbCreate
	VerbDefault
	VerbConfigureGet
	VerbConfigureSet
	VerbItems
	VerbRetract
	VerbPurge
	VerbDelete
	VerbAffiliationsGet
	VerbAffiliationsSet
	VerbSubscriptionsGet
	VerbSubscriptionsSet
	verbCount
)

type verbInfo struct {
	name    string
	iqType  string
	space   string
	element string
	feature string
}

var verbs = [verbCount]verbInfo{
	VerbUnknown:          {name: "unknown"},
	VerbPublish:          {"publish", wire.SetIQ, NS, "publish", "publish"},
	VerbSubscribe:        {"subscribe", wire.SetIQ, NS, "subscribe", "subscribe"},
	VerbUnsubscribe:      {"unsubscribe", wire.SetIQ, NS, "unsubscribe", "subscribe"},
	VerbOptionsGet:       {"optionsGet", wire.GetIQ, NS, "options", "subscription-options"},
	VerbOptionsSet:       {"optionsSet", wire.SetIQ, NS, "options", "subscription-options"},
	VerbSubscriptions:    {"subscriptions", wire.GetIQ, NS, "subscriptions", "retrieve-subscriptions"},
	VerbAffiliations:     {"affiliations", wire.GetIQ, NS, "affiliations", "retrieve-affiliations"},
	VerbCreate:           {"create", wire.SetIQ, NS, "create", "create-nodes"},
	VerbDefault:          {"default", wire.GetIQ, NSOwner, "default", "retrieve-default"},
	VerbConfigureGet:     {"configureGet", wire.GetIQ, NSOwner, "configure", "config-node"},
	VerbConfigureSet:     {"configureSet", wire.SetIQ, NSOwner, "configure", "config-node"},
	VerbItems:            {"items", wire.GetIQ, NS, "items", "retrieve-items"},
	VerbRetract:          {"retract", wire.SetIQ, NS, "retract", "retract-items"},
	VerbPurge:            {"purge", wire.SetIQ, NSOwner, "purge", "purge-nodes"},
	VerbDelete:           {"delete", wire.SetIQ, NSOwner, "delete", "delete-nodes"},
	VerbAffiliationsGet:  {"affiliationsGet", wire.GetIQ, NSOwner, "affiliations", "modify-affiliations"},
	VerbAffiliationsSet:  {"affiliationsSet", wire.SetIQ, NSOwner, "affiliations", "modify-affiliations"},
	VerbSubscriptionsGet: {"subscriptionsGet", wire.GetIQ, NSOwner, "subscriptions", "manage-subscriptions"},
	VerbSubscriptionsSet: {"subscriptionsSet", wire.SetIQ, NSOwner, "subscriptions", "manage-subscriptions"},
}

type verbKey struct {
	iqType, space, element string
}

var verbLookup = func() map[verbKey]Verb {
	m := make(map[verbKey]Verb, len(verbs))
	for v := VerbPublish; v < verbCount; v++ {
		info := verbs[v]
		m[verbKey{info.iqType, info.space, info.element}] = v
	}
	return m
}()

func (v Verb) info() verbInfo {
	if v >= verbCount {
		return verbs[VerbUnknown]
	}
	return verbs[v]
}

// String returns the name of the verb, for example "optionsGet".
func (v Verb) String() string {
	return v.info().name
}

// Feature returns the pubsub feature that a service must support to handle
// the verb.
func (v Verb) Feature() string {
	return v.info().feature
}

// IQType returns the type of IQ used for requests with this verb.
func (v Verb) IQType() string {
	return v.info().iqType
}

// Namespace returns the namespace of the <pubsub/> wrapper used by the verb.
func (v Verb) Namespace() string {
	return v.info().space
}

// Element returns the local name of the child of the wrapper that identifies
// the verb.
func (v Verb) Element() string {
	return v.info().element
}

// Verbs returns all known verbs in declaration order.
func Verbs() []Verb {
	out := make([]Verb, 0, verbCount-1)
	for v := VerbPublish; v < verbCount; v++ {
		out = append(out, v)
	}
	return out
}

// ParseVerb returns the verb with the given name or VerbUnknown.
func ParseVerb(name string) Verb {
	for v := VerbPublish; v < verbCount; v++ {
		if verbs[v].name == name {
			return v
		}
	}
	return VerbUnknown
}
