// Package render serializes dom trees as nested records, JSON, markup and
// Markdown.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pyscout/scout/internal/dom"
)

// Record is the nested, serializable form of a node
type Record struct {
	Type     string            `json:"type"`
	Tag      string            `json:"tag,omitempty"`
	Attrs    Attrs     `json:"attrs,omitempty"`
	Text     string    `json:"text,omitempty"`
	Children []*Record `json:"children,omitempty"`
}

// Attrs is an element's attributes in source order. It encodes as a JSON
// object whose keys keep that order.
type Attrs []dom.Attribute

// Get returns the value of the named attribute
func (a Attrs) Get(name string) (string, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

func (a Attrs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(attr.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a *Attrs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = nil
		return nil
	}
	if tok != json.Delim('{') {
		return errors.New("attrs: expected a JSON object")
	}
	var out Attrs
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return err
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out = append(out, dom.Attribute{Name: key.(string), Value: value})
	}
	*a = out
	return nil
}

// ToRecord converts n and its subtree
func ToRecord(n dom.Node) *Record {
	r := &Record{Type: n.Type().String()}
	switch n.Type() {
	case dom.ElementNode:
		r.Tag = n.Tag()
		if attrs := n.Attrs(); len(attrs) > 0 {
			r.Attrs = Attrs(attrs)
		}
	case dom.TextNode, dom.CommentNode:
		r.Text = n.Data()
		return r
	}
	for _, c := range n.Contents() {
		r.Children = append(r.Children, ToRecord(c))
	}
	return r
}

// JSON encodes ToRecord(n). A non-empty indent pretty-prints.
func JSON(n dom.Node, indent string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if indent == "" {
		data, err = json.Marshal(ToRecord(n))
	} else {
		data, err = json.MarshalIndent(ToRecord(n), "", indent)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}
