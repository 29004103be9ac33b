// Package query composes selector and matcher results into immutable
// selections over a single document.
package query

import (
	"slices"
	"strings"

	"github.com/pyscout/scout/internal/analyzer"
	"github.com/pyscout/scout/internal/dom"
	"github.com/pyscout/scout/internal/selector"
)

// Selection is an ordered, duplicate-free set of elements of one document.
// Nodes detached after the selection was made drop out of every view.
type Selection struct {
	doc *dom.Document
	ids []dom.NodeID
}

// AttrValue is one attribute lookup; Present is false when the element lacks it
type AttrValue struct {
	Value   string
	Present bool
}

// From builds a selection from nodes, which must share one document
func From(nodes []dom.Node) *Selection {
	s := &Selection{}
	seen := make(map[dom.NodeID]bool, len(nodes))
	for _, n := range nodes {
		if !n.Valid() {
			continue
		}
		if s.doc == nil {
			s.doc = n.Document()
		}
		if n.Document() != s.doc || seen[n.ID()] {
			continue
		}
		seen[n.ID()] = true
		s.ids = append(s.ids, n.ID())
	}
	s.sort()
	return s
}

func (s *Selection) sort() {
	if s.doc == nil {
		return
	}
	slices.SortFunc(s.ids, func(a, b dom.NodeID) int {
		return s.node(a).Position() - s.node(b).Position()
	})
}

func (s *Selection) node(id dom.NodeID) dom.Node {
	n, _ := s.doc.Node(id)
	return n
}

// Select applies a CSS selector under root
func Select(root dom.Node, sel string) (*Selection, error) {
	nodes, err := selector.Select(root, sel)
	if err != nil {
		return nil, err
	}
	return From(nodes), nil
}

// SelectOne returns a selection holding at most the first match
func SelectOne(root dom.Node, sel string) (*Selection, error) {
	n, ok, err := selector.SelectOne(root, sel)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Selection{doc: root.Document()}, nil
	}
	return From([]dom.Node{n}), nil
}

// FindAll wraps dom.Node.FindAll
func FindAll(root dom.Node, m dom.Matcher, limit int) *Selection {
	return From(root.FindAll(m, limit))
}

// Nodes returns the attached nodes in document order
func (s *Selection) Nodes() []dom.Node {
	out := make([]dom.Node, 0, len(s.ids))
	for _, id := range s.ids {
		if n := s.node(id); n.Attached() {
			out = append(out, n)
		}
	}
	return out
}

// Len counts the attached nodes
func (s *Selection) Len() int {
	return len(s.Nodes())
}

// First returns the first attached node
func (s *Selection) First() (dom.Node, bool) {
	for _, id := range s.ids {
		if n := s.node(id); n.Attached() {
			return n, true
		}
	}
	return dom.Node{}, false
}

// Each calls f for every attached node with its index in the view
func (s *Selection) Each(f func(i int, n dom.Node)) {
	for i, n := range s.Nodes() {
		f(i, n)
	}
}

// Filter returns the nodes for which keep is true
func (s *Selection) Filter(keep func(dom.Node) bool) *Selection {
	out := &Selection{doc: s.doc}
	for _, n := range s.Nodes() {
		if keep(n) {
			out.ids = append(out.ids, n.ID())
		}
	}
	return out
}

// Map applies f to every attached node in order
func Map[T any](s *Selection, f func(dom.Node) T) []T {
	nodes := s.Nodes()
	out := make([]T, len(nodes))
	for i, n := range nodes {
		out[i] = f(n)
	}
	return out
}

// Texts returns GetText(sep, true) for each node
func (s *Selection) Texts(sep string) []string {
	return Map(s, func(n dom.Node) string {
		return n.GetText(sep, true)
	})
}

// Attrs looks up one attribute on every node
func (s *Selection) Attrs(name string) []AttrValue {
	return Map(s, func(n dom.Node) AttrValue {
		v, ok := n.Attr(name)
		return AttrValue{Value: v, Present: ok}
	})
}

// Select refines the selection: the union of sel applied under each node
func (s *Selection) Select(sel string) (*Selection, error) {
	compiled, err := selector.Compile(sel)
	if err != nil {
		return nil, err
	}
	var found []dom.Node
	for _, n := range s.Nodes() {
		found = append(found, compiled.Select(n)...)
	}
	out := From(found)
	if out.doc == nil {
		out.doc = s.doc
	}
	return out, nil
}

// AnalyzeText runs the text analyzer over the matched texts joined by a space
func (s *Selection) AnalyzeText() analyzer.TextReport {
	return analyzer.AnalyzeText(strings.Join(s.Texts(" "), " "))
}
