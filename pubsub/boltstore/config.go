// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package boltstore

import (
	"fmt"
	"strconv"

	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/form"
	"mellium.im/xmppext/pubsub"
	"mellium.im/xmppext/wire"
)

func defaultConfig(nodeType string) map[string][]string {
	c := map[string][]string{
		FieldNodeType:        {nodeType},
		FieldAccessModel:     {AccessOpen},
		FieldCollection:      {""},
		FieldOptionsRequired: {"0"},
	}
	if nodeType == pubsub.NodeLeaf {
		c[FieldMaxItems] = []string{strconv.Itoa(DefaultMaxItems)}
	}
	return c
}

func notAcceptable(format string, v ...interface{}) error {
	return wire.NewError(stanza.NotAcceptable, fmt.Sprintf(format, v...))
}

// applyConfig validates the values of f and copies the known ones into c.
// Unknown fields are ignored.
func applyConfig(c map[string][]string, f *form.Data) error {
	for field, values := range f.Values() {
		var v string
		if len(values) > 0 {
			v = values[0]
		}
		switch field {
		case FieldNodeType:
			if v != pubsub.NodeLeaf && v != pubsub.NodeCollection {
				return notAcceptable("unknown node type %q", v)
			}
		case FieldAccessModel:
			switch v {
			case AccessOpen, AccessAuthorize, AccessWhitelist:
			default:
				return notAcceptable("unsupported access model %q", v)
			}
		case FieldMaxItems:
			if v == "max" {
				break
			}
			if _, err := strconv.ParseUint(v, 10, 32); err != nil {
				return notAcceptable("field %s requires a positive integer value", field)
			}
		case FieldOptionsRequired:
			if _, err := parseBool(v); err != nil {
				return notAcceptable("field %s requires a boolean value", field)
			}
		case FieldCollection, FieldTitle:
		default:
			continue
		}
		c[field] = []string{v}
	}
	return nil
}

func parseBool(v string) (bool, error) {
	switch v {
	case "1", "true":
		return true, nil
	case "0", "false", "":
		return false, nil
	}
	return false, fmt.Errorf("boltstore: bad boolean %q", v)
}

// maxItems returns the number of items a node keeps or -1 for no limit.
func maxItems(n *nodeRecord) int {
	v := n.get(FieldMaxItems)
	if v == "" || v == "max" {
		return -1
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return DefaultMaxItems
	}
	return i
}

func optionsRequired(n *nodeRecord) bool {
	b, _ := parseBool(n.get(FieldOptionsRequired))
	return b
}

func configForm(c map[string][]string) *form.Data {
	return valuesForm(form.TypeForm, pubsub.NSNodeConfig, c)
}
