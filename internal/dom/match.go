package dom

import (
	"sort"
	"strconv"
	"strings"
)

// Matcher decides whether an element is selected
type Matcher interface {
	Match(n Node) bool
}

// MatcherFunc adapts a function to Matcher
type MatcherFunc func(Node) bool

func (f MatcherFunc) Match(n Node) bool {
	return f(n)
}

// CondKind identifies a simple condition inside a compound
type CondKind int

const (
	CondTag CondKind = iota
	CondClass
	CondID
	CondAttrExists
	CondAttrEquals
)

// Cond is one simple condition. Name holds the tag or attribute name and
// Value the class token, id or attribute value.
type Cond struct {
	Kind  CondKind
	Name  string
	Value string
}

func Tag(name string) Cond           { return Cond{Kind: CondTag, Name: strings.ToLower(name)} }
func Class(token string) Cond        { return Cond{Kind: CondClass, Value: token} }
func ID(id string) Cond              { return Cond{Kind: CondID, Value: id} }
func Has(attr string) Cond           { return Cond{Kind: CondAttrExists, Name: strings.ToLower(attr)} }
func AttrEq(attr, value string) Cond { return Cond{Kind: CondAttrEquals, Name: strings.ToLower(attr), Value: value} }

// Match reports whether the element n satisfies c
func (c Cond) Match(n Node) bool {
	if !n.IsElement() {
		return false
	}
	switch c.Kind {
	case CondTag:
		return c.Name == "*" || n.Tag() == c.Name
	case CondClass:
		return n.HasClass(c.Value)
	case CondID:
		v, ok := n.Attr("id")
		return ok && v == c.Value
	case CondAttrExists:
		return n.HasAttr(c.Name)
	case CondAttrEquals:
		v, ok := n.Attr(c.Name)
		return ok && v == c.Value
	}
	return false
}

func (c Cond) String() string {
	switch c.Kind {
	case CondTag:
		return c.Name
	case CondClass:
		return "." + c.Value
	case CondID:
		return "#" + c.Value
	case CondAttrExists:
		return "[" + c.Name + "]"
	case CondAttrEquals:
		return "[" + c.Name + "=" + strconv.Quote(c.Value) + "]"
	}
	return ""
}

// Compound is a conjunction of conditions. An empty Compound matches any element.
type Compound []Cond

// Match reports whether n is an element satisfying every condition
func (c Compound) Match(n Node) bool {
	if !n.IsElement() {
		return false
	}
	for _, cond := range c {
		if !cond.Match(n) {
			return false
		}
	}
	return true
}

func (c Compound) String() string {
	if len(c) == 0 {
		return "*"
	}
	var b strings.Builder
	for _, cond := range c {
		b.WriteString(cond.String())
	}
	return b.String()
}

// By builds a compound from a tag name and attribute equalities. An empty tag
// matches any element. A single-token class value matches that class token;
// any other attribute must equal its value exactly.
func By(tag string, attrs map[string]string) Compound {
	var c Compound
	if tag != "" {
		c = append(c, Tag(tag))
	}

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := attrs[name]
		if strings.EqualFold(name, "class") && value != "" && len(strings.Fields(value)) == 1 {
			c = append(c, Class(strings.TrimSpace(value)))
			continue
		}
		c = append(c, AttrEq(name, value))
	}
	return c
}
