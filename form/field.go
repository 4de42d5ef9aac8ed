// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package form

import (
	"mellium.im/xmppext/wire"
)

// Field is a single data form field.
// Only the attributes and values are modeled, options and validation are
// ignored.
type Field struct {
	Var    string
	Type   string
	Label  string
	Values []string
}

func (f Field) element() *wire.Element {
	el := wire.NewElement(NS, "field")
	if f.Var != "" {
		el.SetAttr("var", f.Var)
	}
	if f.Type != "" {
		el.SetAttr("type", f.Type)
	}
	if f.Label != "" {
		el.SetAttr("label", f.Label)
	}
	for _, v := range f.Values {
		el.AddElement("value").AddText(v)
	}
	return el
}
