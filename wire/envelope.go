// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/xml"
	"fmt"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"

	"mellium.im/xmppext/internal/ns"
)

// Kind is the kind of a stanza.
type Kind string

// A list of stanza kinds.
const (
	IQ       Kind = "iq"
	Message  Kind = "message"
	Presence Kind = "presence"
)

// A list of IQ types.
const (
	GetIQ    = "get"
	SetIQ    = "set"
	ResultIQ = "result"
	ErrorIQ  = "error"
)

// Envelope is a stanza and its payload.
type Envelope struct {
	Kind    Kind
	Type    string
	ID      string
	From    jid.JID
	To      jid.JID
	Lang    string
	Payload []*Element

	// Handled is set by an observer that consumed the stanza.
	// Fallback handlers in the engine skip handled stanzas.
	Handled bool
}

// NewIQ returns an IQ envelope of the given type addressed to to.
func NewIQ(typ string, to jid.JID, payload ...*Element) *Envelope {
	return &Envelope{
		Kind:    IQ,
		Type:    typ,
		To:      to,
		Payload: payload,
	}
}

// NewMessage returns a message envelope addressed to to.
func NewMessage(from, to jid.JID, payload ...*Element) *Envelope {
	return &Envelope{
		Kind:    Message,
		From:    from,
		To:      to,
		Payload: payload,
	}
}

// IsRequest reports whether env is an IQ of type get or set.
func (env *Envelope) IsRequest() bool {
	return env.Kind == IQ && (env.Type == GetIQ || env.Type == SetIQ)
}

// IsResponse reports whether env is an IQ of type result or error.
func (env *Envelope) IsResponse() bool {
	return env.Kind == IQ && (env.Type == ResultIQ || env.Type == ErrorIQ)
}

// Child returns the first payload element with the provided name.
// An empty namespace or local name matches any namespace or local name.
func (env *Envelope) Child(space, local string) *Element {
	for _, p := range env.Payload {
		if p != nil && nameMatches(p.Name, space, local) {
			return p
		}
	}
	return nil
}

// Result returns a result IQ in response to env carrying payload.
func (env *Envelope) Result(payload ...*Element) *Envelope {
	return env.reply(ResultIQ, payload)
}

func (env *Envelope) reply(typ string, payload []*Element) *Envelope {
	return &Envelope{
		Kind:    env.Kind,
		Type:    typ,
		ID:      env.ID,
		From:    env.To,
		To:      env.From,
		Lang:    env.Lang,
		Payload: payload,
	}
}

// Element returns the stanza as an element in the default namespace.
func (env *Envelope) Element() *Element {
	el := NewElement("", string(env.Kind))
	if env.ID != "" {
		el.SetAttr("id", env.ID)
	}
	if env.Type != "" {
		el.SetAttr("type", env.Type)
	}
	if s := env.To.String(); s != "" {
		el.SetAttr("to", s)
	}
	if s := env.From.String(); s != "" {
		el.SetAttr("from", s)
	}
	if env.Lang != "" {
		el.Attr = append(el.Attr, xml.Attr{
			Name:  xml.Name{Space: ns.XML, Local: "lang"},
			Value: env.Lang,
		})
	}
	for _, p := range env.Payload {
		if p != nil {
			el.AddChild(p)
		}
	}
	return el
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (env *Envelope) TokenReader() xml.TokenReader {
	return env.Element().TokenReader()
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (env *Envelope) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, env.TokenReader())
}

// String returns the XML serialization of the stanza.
func (env *Envelope) String() string {
	return env.Element().String()
}

// FromElement converts a top level stanza element into an envelope.
// The stanza may be in the client, server or empty namespace.
func FromElement(el *Element) (*Envelope, error) {
	switch el.Name.Space {
	case "", ns.Client, ns.Server:
	default:
		return nil, fmt.Errorf("wire: unexpected stanza namespace %q", el.Name.Space)
	}
	env := &Envelope{Kind: Kind(el.Name.Local)}
	switch env.Kind {
	case IQ, Message, Presence:
	default:
		return nil, fmt.Errorf("wire: unknown stanza kind %q", el.Name.Local)
	}
	for _, a := range el.Attr {
		var err error
		switch {
		case a.Name.Space == ns.XML && a.Name.Local == "lang":
			env.Lang = a.Value
		case a.Name.Space != "":
		case a.Name.Local == "id":
			env.ID = a.Value
		case a.Name.Local == "type":
			env.Type = a.Value
		case a.Name.Local == "to":
			env.To, err = jid.Parse(a.Value)
		case a.Name.Local == "from":
			env.From, err = jid.Parse(a.Value)
		}
		if err != nil {
			return nil, fmt.Errorf("wire: bad %s address: %w", a.Name.Local, err)
		}
	}
	if env.Kind == IQ {
		switch env.Type {
		case GetIQ, SetIQ, ResultIQ, ErrorIQ:
		default:
			return nil, fmt.Errorf("wire: invalid iq type %q", env.Type)
		}
	}
	env.Payload = el.Elements()
	return env, nil
}

// ParseEnvelope parses a stanza from its XML serialization.
func ParseEnvelope(s string) (*Envelope, error) {
	el, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return FromElement(el)
}
