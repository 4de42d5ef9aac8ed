// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package form implements the parts of data forms (XEP-0004) used to carry
// publish-subscribe node configuration and subscription options.
package form // import "mellium.im/xmppext/form"

import (
	"encoding/xml"
	"errors"

	"mellium.im/xmlstream"

	"mellium.im/xmppext/wire"
)

// NS is the data forms namespace.
const NS = "jabber:x:data"

// FormType is the name of the hidden field that carries the form type.
const FormType = "FORM_TYPE"

// A list of form types.
const (
	TypeForm   = "form"
	TypeSubmit = "submit"
	TypeCancel = "cancel"
	TypeResult = "result"
)

var errNotForm = errors.New("form: element is not a data form")

// Data represents a data form.
type Data struct {
	Type         string
	Title        string
	Instructions string
	Fields       []Field
}

// New returns a form of the given type.
// If formType is not empty a hidden FORM_TYPE field is added first.
func New(typ, formType string, fields ...Field) *Data {
	d := &Data{Type: typ}
	if formType != "" {
		d.Fields = append(d.Fields, Field{Var: FormType, Type: "hidden", Values: []string{formType}})
	}
	d.Fields = append(d.Fields, fields...)
	return d
}

// FormType returns the value of the FORM_TYPE field, if any.
func (d *Data) FormType() string {
	v, _ := d.Get(FormType)
	return v
}

// Field returns a pointer to the field with the given var or nil.
func (d *Data) Field(v string) *Field {
	for i := range d.Fields {
		if d.Fields[i].Var == v {
			return &d.Fields[i]
		}
	}
	return nil
}

// Get returns the first value of a field and whether the field was present.
func (d *Data) Get(v string) (string, bool) {
	f := d.Field(v)
	if f == nil {
		return "", false
	}
	if len(f.Values) == 0 {
		return "", true
	}
	return f.Values[0], true
}

// Set replaces the values of a field, adding it if it does not exist.
func (d *Data) Set(v string, values ...string) {
	if f := d.Field(v); f != nil {
		f.Values = values
		return
	}
	d.Fields = append(d.Fields, Field{Var: v, Values: values})
}

// Values returns a map of field vars to values, skipping FORM_TYPE.
func (d *Data) Values() map[string][]string {
	m := make(map[string][]string, len(d.Fields))
	for _, f := range d.Fields {
		if f.Var == "" || f.Var == FormType {
			continue
		}
		m[f.Var] = f.Values
	}
	return m
}

// Element returns the form as an element.
func (d *Data) Element() *wire.Element {
	el := wire.NewElement(NS, "x").SetAttr("type", d.Type)
	if d.Title != "" {
		el.AddElement("title").AddText(d.Title)
	}
	if d.Instructions != "" {
		el.AddElement("instructions").AddText(d.Instructions)
	}
	for _, f := range d.Fields {
		el.AddChild(f.element())
	}
	return el
}

// TokenReader implements xmlstream.Marshaler for Data.
func (d *Data) TokenReader() xml.TokenReader {
	return d.Element().TokenReader()
}

// WriteXML implements xmlstream.WriterTo for Data.
func (d *Data) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, d.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface for *Data.
func (d *Data) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := d.WriteXML(e)
	if err != nil {
		return err
	}
	return e.Flush()
}

// Parse decodes a form from an <x xmlns="jabber:x:data"/> element.
// A form without a type attribute is treated as a form of type "form".
func Parse(el *wire.Element) (*Data, error) {
	if el == nil || el.Name.Space != NS || el.Name.Local != "x" {
		return nil, errNotForm
	}
	d := &Data{Type: el.Attribute("type")}
	if d.Type == "" {
		d.Type = TypeForm
	}
	for _, child := range el.Elements() {
		switch child.Name.Local {
		case "title":
			d.Title = child.Text()
		case "instructions":
			d.Instructions = child.Text()
		case "field":
			f := Field{
				Var:   child.Attribute("var"),
				Type:  child.Attribute("type"),
				Label: child.Attribute("label"),
			}
			for _, v := range child.ChildrenNamed(NS, "value") {
				f.Values = append(f.Values, v.Text())
			}
			d.Fields = append(d.Fields, f)
		}
	}
	return d, nil
}

// Find returns the first data form child of el or nil.
func Find(el *wire.Element) *wire.Element {
	if el == nil {
		return nil
	}
	return el.Child(NS, "x")
}
