// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"errors"

	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/wire"
)

// Errors returned by the codec and the subscription state machine.
var (
	ErrVerbNotRecognized        = errors.New("pubsub: request verb not recognized")
	ErrVerbCombination          = errors.New("pubsub: unsupported combination of request verbs")
	ErrSubscriptionPending      = errors.New("pubsub: subscription is pending approval")
	ErrSubscriptionUnconfigured = errors.New("pubsub: subscription must be configured")
	ErrInvalidTransition        = errors.New("pubsub: invalid subscription state transition")
	ErrNoPubSub                 = errors.New("pubsub: response has no pubsub payload")
)

// UnsupportedError is returned by resources that do not implement a feature.
// It is reported to the requester as feature-not-implemented with an
// <unsupported/> condition naming the feature.
type UnsupportedError struct {
	Feature string
	Text    string
}

// Unsupported returns an error reporting that feature is not implemented.
func Unsupported(feature string) *UnsupportedError {
	return &UnsupportedError{Feature: feature}
}

// Error satisfies the error interface.
func (e *UnsupportedError) Error() string {
	s := "pubsub: unsupported feature " + e.Feature
	if e.Text != "" {
		s += ": " + e.Text
	}
	return s
}

// StanzaError returns the stanza error that represents e on the wire.
func (e *UnsupportedError) StanzaError() *wire.Error {
	app := wire.NewElement(NSErrors, "unsupported")
	if e.Feature != "" {
		app.SetAttr("feature", e.Feature)
	}
	return wire.NewError(stanza.FeatureNotImplemented, e.Text).WithApp(app)
}

// Is reports whether target is an *UnsupportedError for the same feature.
// A target without a feature matches any unsupported error.
func (e *UnsupportedError) Is(target error) bool {
	t, ok := target.(*UnsupportedError)
	if !ok {
		return false
	}
	return t.Feature == "" || t.Feature == e.Feature
}

// UnsupportedFeature reports the feature named by a feature-not-implemented
// error with an <unsupported/> condition, such as one returned by a remote
// service.
func UnsupportedFeature(err error) (string, bool) {
	var u *UnsupportedError
	if errors.As(err, &u) {
		return u.Feature, true
	}
	var se *wire.Error
	if !errors.As(err, &se) || se.Condition != stanza.FeatureNotImplemented || se.App == nil {
		return "", false
	}
	if se.App.Name.Space != NSErrors || se.App.Name.Local != "unsupported" {
		return "", false
	}
	return se.App.Attribute("feature"), true
}

// Condition returns a stanza error with an application specific condition
// from the pubsub#errors namespace.
// If app is empty no application condition is added.
func Condition(cond stanza.Condition, app, text string) *wire.Error {
	e := wire.NewError(cond, text)
	if app != "" {
		e.WithApp(wire.NewElement(NSErrors, app))
	}
	return e
}

func badRequest(app, text string) *wire.Error {
	return Condition(stanza.BadRequest, app, text)
}
