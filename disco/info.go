// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package disco

import (
	/* #nosec */
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"
	"sort"
	"strings"

	"mellium.im/xmpp/stanza"

	"mellium.im/xmppext/internal/ns"
	"mellium.im/xmppext/wire"
)

// Identity is the type and category of an entity on the network.
type Identity struct {
	Category string
	Type     string
	Name     string
	Lang     string
}

// Element returns the <identity/> element.
func (i Identity) Element() *wire.Element {
	el := wire.NewElement(NSInfo, "identity").
		SetAttr("category", i.Category).
		SetAttr("type", i.Type)
	if i.Name != "" {
		el.SetAttr("name", i.Name)
	}
	if i.Lang != "" {
		el.Attr = append(el.Attr, xml.Attr{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: i.Lang})
	}
	return el
}

func (i Identity) key() string {
	return i.Category + "/" + i.Type + "/" + i.Lang + "/" + i.Name
}

// Info is the response to an info query.
type Info struct {
	Node       string
	Identities []Identity
	Features   []string
}

// Element returns the disco#info <query/> element.
func (info Info) Element() *wire.Element {
	q := wire.NewElement(NSInfo, "query")
	if info.Node != "" {
		q.SetAttr("node", info.Node)
	}
	for _, ident := range info.Identities {
		q.AddChild(ident.Element())
	}
	for _, f := range info.Features {
		q.AddElement("feature").SetAttr("var", f)
	}
	return q
}

// Has reports whether all of the given features are advertised.
func (info Info) Has(features ...string) bool {
	for _, want := range features {
		found := false
		for _, f := range info.Features {
			if f == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Ver returns the entity capabilities verification string of the identities
// and features using SHA-1.
// Extended information in data forms is not included.
func (info Info) Ver() string {
	idents := make([]string, 0, len(info.Identities))
	for _, ident := range info.Identities {
		idents = append(idents, ident.key())
	}
	sort.Strings(idents)
	features := append([]string(nil), info.Features...)
	sort.Strings(features)

	var b strings.Builder
	for _, s := range idents {
		b.WriteString(s)
		b.WriteByte('<')
	}
	for _, s := range features {
		b.WriteString(s)
		b.WriteByte('<')
	}
	/* #nosec */
	sum := sha1.Sum([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// ParseInfo decodes a disco#info <query/> element.
func ParseInfo(el *wire.Element) (Info, error) {
	info := Info{Node: el.Attribute("node")}
	for _, child := range el.Elements() {
		if child.Name.Space != NSInfo {
			continue
		}
		switch child.Name.Local {
		case "identity":
			ident := Identity{
				Category: child.Attribute("category"),
				Type:     child.Attribute("type"),
				Name:     child.Attribute("name"),
			}
			for _, a := range child.Attr {
				if a.Name.Space == ns.XML && a.Name.Local == "lang" {
					ident.Lang = a.Value
				}
			}
			if ident.Category == "" || ident.Type == "" {
				return info, wire.NewError(stanza.BadRequest, "identity is missing a category or type")
			}
			info.Identities = append(info.Identities, ident)
		case "feature":
			if v := child.Attribute("var"); v != "" {
				info.Features = append(info.Features, v)
			}
		}
	}
	return info, nil
}
