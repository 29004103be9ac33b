// Package selector implements a CSS selector subset over dom trees.
//
// Supported: type selectors and *, .class, #id, [attr], [attr=value] with
// optional single or double quotes, the descendant combinator (whitespace)
// and the child combinator (>). Everything else is a syntax error.
package selector

import (
	"strings"

	"github.com/pyscout/scout/internal/dom"
)

// Combinator relates a step to the step before it
type Combinator int

const (
	Descendant Combinator = iota
	Child
)

func (c Combinator) String() string {
	if c == Child {
		return " > "
	}
	return " "
}

// Step is one compound selector together with the combinator that joins it
// to the previous step. The first step's combinator is unused.
type Step struct {
	Combinator Combinator
	Compound   dom.Compound
}

// Selector is a parsed, immutable selector
type Selector struct {
	source string
	steps  []Step
}

// Source returns the text the selector was parsed from
func (s *Selector) Source() string {
	return s.source
}

// Steps returns a copy of the parsed steps
func (s *Selector) Steps() []Step {
	out := make([]Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// String returns the normalized selector text
func (s *Selector) String() string {
	var b strings.Builder
	for i, step := range s.steps {
		if i > 0 {
			b.WriteString(step.Combinator.String())
		}
		b.WriteString(step.Compound.String())
	}
	return b.String()
}

// Match reports whether n satisfies the selector. Ancestor steps may be
// satisfied anywhere up to the document root.
func (s *Selector) Match(n dom.Node) bool {
	if !n.IsElement() || !n.Attached() {
		return false
	}
	return s.matchAt(n, len(s.steps)-1)
}

func (s *Selector) matchAt(n dom.Node, k int) bool {
	step := s.steps[k]
	if !step.Compound.Match(n) {
		return false
	}
	if k == 0 {
		return true
	}

	if step.Combinator == Child {
		p, ok := n.Parent()
		return ok && p.IsElement() && s.matchAt(p, k-1)
	}
	for p, ok := n.Parent(); ok && p.IsElement(); p, ok = p.Parent() {
		if s.matchAt(p, k-1) {
			return true
		}
	}
	return false
}

// Select returns the descendants of root that match, in document order
func (s *Selector) Select(root dom.Node) []dom.Node {
	var out []dom.Node
	for _, n := range root.Descendants() {
		if n.IsElement() && s.matchAt(n, len(s.steps)-1) {
			out = append(out, n)
		}
	}
	return out
}

// SelectOne returns the first match under root
func (s *Selector) SelectOne(root dom.Node) (dom.Node, bool) {
	for _, n := range root.Descendants() {
		if n.IsElement() && s.matchAt(n, len(s.steps)-1) {
			return n, true
		}
	}
	return dom.Node{}, false
}

// Select parses sel and applies it to root
func Select(root dom.Node, sel string) ([]dom.Node, error) {
	s, err := Compile(sel)
	if err != nil {
		return nil, err
	}
	return s.Select(root), nil
}

// SelectOne parses sel and returns its first match under root
func SelectOne(root dom.Node, sel string) (dom.Node, bool, error) {
	s, err := Compile(sel)
	if err != nil {
		return dom.Node{}, false, err
	}
	n, ok := s.SelectOne(root)
	return n, ok, nil
}
