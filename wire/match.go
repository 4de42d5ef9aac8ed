// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wire

// Matcher reports whether a stanza should be delivered to an observer.
type Matcher func(*Envelope) bool

// MatchKind matches stanzas of the provided kind.
// If any types are provided the stanza type must be one of them.
func MatchKind(kind Kind, types ...string) Matcher {
	return func(env *Envelope) bool {
		if env.Kind != kind {
			return false
		}
		if len(types) == 0 {
			return true
		}
		for _, t := range types {
			if env.Type == t {
				return true
			}
		}
		return false
	}
}

// MatchPayload matches stanzas that contain a payload with the provided name.
// An empty namespace or local name matches any namespace or local name.
func MatchPayload(space, local string) Matcher {
	return func(env *Envelope) bool {
		return env.Child(space, local) != nil
	}
}

// MatchID matches IQ responses with the provided id.
func MatchID(id string) Matcher {
	return func(env *Envelope) bool {
		return env.ID == id && env.IsResponse()
	}
}

// And returns a matcher that matches when m and all others match.
func (m Matcher) And(others ...Matcher) Matcher {
	return func(env *Envelope) bool {
		if !m(env) {
			return false
		}
		for _, o := range others {
			if !o(env) {
				return false
			}
		}
		return true
	}
}
