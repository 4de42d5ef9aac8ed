// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"fmt"

	"mellium.im/xmpp/jid"

	"mellium.im/xmppext/wire"
)

// Affiliation types.
const (
	AffiliationOwner       = "owner"
	AffiliationPublisher   = "publisher"
	AffiliationPublishOnly = "publish-only"
	AffiliationMember      = "member"
	AffiliationNone        = "none"
	AffiliationOutcast     = "outcast"
)

// Affiliation is the relationship between an entity and a node.
//
// When an entity lists its own affiliations the JID is empty and Node is set.
// When an owner manages the affiliations of a node the JID is set and Node is
// implied by the request.
type Affiliation struct {
	Node        string
	JID         jid.JID
	Affiliation string
}

// Element returns the <affiliation/> element in the given namespace.
func (a Affiliation) Element(space string) *wire.Element {
	el := wire.NewElement(space, "affiliation")
	if a.Node != "" {
		el.SetAttr("node", a.Node)
	}
	if s := a.JID.String(); s != "" {
		el.SetAttr("jid", s)
	}
	return el.SetAttr("affiliation", a.Affiliation)
}

// ParseAffiliation decodes an <affiliation/> element.
func ParseAffiliation(el *wire.Element) (Affiliation, error) {
	a := Affiliation{
		Node:        el.Attribute("node"),
		Affiliation: el.Attribute("affiliation"),
	}
	if s := el.Attribute("jid"); s != "" {
		j, err := jid.Parse(s)
		if err != nil {
			return a, fmt.Errorf("pubsub: bad affiliation jid %q: %w", s, err)
		}
		a.JID = j
	}
	return a, nil
}

func validAffiliation(s string) bool {
	switch s {
	case AffiliationOwner, AffiliationPublisher, AffiliationPublishOnly,
		AffiliationMember, AffiliationNone, AffiliationOutcast:
		return true
	}
	return false
}
