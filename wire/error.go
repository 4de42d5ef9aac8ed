// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wire

import (
	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/internal/ns"
)

// defaultTypes maps conditions to the error type recommended for them by
// RFC 6120 §8.3.3.
var defaultTypes = map[stanza.Condition]stanza.ErrorType{
	stanza.BadRequest:            stanza.Modify,
	stanza.Conflict:              stanza.Cancel,
	stanza.FeatureNotImplemented: stanza.Cancel,
	stanza.Forbidden:             stanza.Auth,
	stanza.Gone:                  stanza.Cancel,
	stanza.InternalServerError:   stanza.Cancel,
	stanza.ItemNotFound:          stanza.Cancel,
	stanza.JIDMalformed:          stanza.Modify,
	stanza.NotAcceptable:         stanza.Modify,
	stanza.NotAllowed:            stanza.Cancel,
	stanza.NotAuthorized:         stanza.Auth,
	stanza.PolicyViolation:       stanza.Modify,
	stanza.RecipientUnavailable:  stanza.Wait,
	stanza.Redirect:              stanza.Modify,
	stanza.RegistrationRequired:  stanza.Auth,
	stanza.RemoteServerNotFound:  stanza.Cancel,
	stanza.RemoteServerTimeout:   stanza.Wait,
	stanza.ResourceConstraint:    stanza.Wait,
	stanza.ServiceUnavailable:    stanza.Cancel,
	stanza.SubscriptionRequired:  stanza.Auth,
	stanza.UndefinedCondition:    stanza.Cancel,
	stanza.UnexpectedRequest:     stanza.Wait,
}

// Error is a stanza level error with an optional application specific
// condition.
type Error struct {
	Type      stanza.ErrorType
	Condition stanza.Condition
	Text      string
	App       *Element
}

// NewError returns an error with the provided condition and the default type
// for that condition.
func NewError(cond stanza.Condition, text string) *Error {
	typ, ok := defaultTypes[cond]
	if !ok {
		typ = stanza.Cancel
	}
	return &Error{
		Type:      typ,
		Condition: cond,
		Text:      text,
	}
}

// WithApp sets the application specific condition and returns the error.
func (e *Error) WithApp(app *Element) *Error {
	e.App = app
	return e
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	s := string(e.Condition)
	if s == "" {
		s = string(stanza.UndefinedCondition)
	}
	if e.App != nil {
		s += " (" + e.App.Name.Local + ")"
	}
	if e.Text != "" {
		s += ": " + e.Text
	}
	return s
}

// Is reports whether target is an *Error with the same condition.
// A target without a condition matches any stanza error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Condition == "" || t.Condition == e.Condition
}

// Element returns the <error/> element.
func (e *Error) Element() *Element {
	el := NewElement("", "error")
	el.SetAttr("type", string(e.Type))
	cond := e.Condition
	if cond == "" {
		cond = stanza.UndefinedCondition
	}
	el.AddChild(NewElement(ns.Stanza, string(cond)))
	if e.Text != "" {
		el.AddChild(NewElement(ns.Stanza, "text")).AddText(e.Text)
	}
	if e.App != nil {
		el.AddChild(e.App)
	}
	return el
}

// Response returns an error reply to req.
// The payload of the request is copied into the reply.
func (e *Error) Response(req *Envelope) *Envelope {
	payload := make([]*Element, 0, len(req.Payload)+1)
	for _, p := range req.Payload {
		payload = append(payload, p.Copy())
	}
	payload = append(payload, e.Element())
	return req.reply(ErrorIQ, payload)
}

// ParseError decodes an <error/> element.
func ParseError(el *Element) *Error {
	e := &Error{Type: stanza.ErrorType(el.Attribute("type"))}
	for _, child := range el.Elements() {
		switch {
		case child.Name.Space == ns.Stanza && child.Name.Local == "text":
			e.Text = child.Text()
		case child.Name.Space == ns.Stanza:
			e.Condition = stanza.Condition(child.Name.Local)
		case e.App == nil:
			e.App = child
		}
	}
	if e.Condition == "" {
		e.Condition = stanza.UndefinedCondition
	}
	return e
}

// ErrorFromEnvelope returns the error carried by an error stanza.
// If the stanza has no <error/> child an undefined-condition error is
// returned.
func ErrorFromEnvelope(env *Envelope) *Error {
	for _, p := range env.Payload {
		switch p.Name.Space {
		case "", ns.Client, ns.Server:
			if p.Name.Local == "error" {
				return ParseError(p)
			}
		}
	}
	return NewError(stanza.UndefinedCondition, "")
}
