package dom

import "strings"

// The find family only reports element nodes. A limit <= 0 means unlimited.

// Find returns the first descendant element matching m
func (n Node) Find(m Matcher) (Node, bool) {
	return first(n.FindAll(m, 1))
}

// FindAll returns matching descendants in document order
func (n Node) FindAll(m Matcher, limit int) []Node {
	if !n.Attached() {
		return nil
	}
	nd := n.node()
	return n.doc.collect(n.doc.order[nd.pos+1:nd.end+1], m, limit, false)
}

// FindNext returns the first matching element after n in document order
func (n Node) FindNext(m Matcher) (Node, bool) {
	return first(n.FindAllNext(m, 1))
}

// FindAllNext returns matching elements after n in document order,
// including n's own descendants
func (n Node) FindAllNext(m Matcher, limit int) []Node {
	if !n.Attached() {
		return nil
	}
	return n.doc.collect(n.doc.order[n.node().pos+1:], m, limit, false)
}

// FindPrevious returns the closest matching element before n in document order
func (n Node) FindPrevious(m Matcher) (Node, bool) {
	return first(n.FindAllPrevious(m, 1))
}

// FindAllPrevious returns matching elements before n, closest first
func (n Node) FindAllPrevious(m Matcher, limit int) []Node {
	if !n.Attached() {
		return nil
	}
	return n.doc.collect(n.doc.order[:n.node().pos], m, limit, true)
}

// FindParent returns the closest matching ancestor
func (n Node) FindParent(m Matcher) (Node, bool) {
	return first(n.FindParents(m, 1))
}

// FindParents returns matching ancestors, closest first
func (n Node) FindParents(m Matcher, limit int) []Node {
	if !n.Attached() {
		return nil
	}
	var out []Node
	for p, ok := n.Parent(); ok; p, ok = p.Parent() {
		if !p.IsElement() || !m.Match(p) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// FindNextSibling returns the first matching sibling after n
func (n Node) FindNextSibling(m Matcher) (Node, bool) {
	return first(n.FindNextSiblings(m, 1))
}

// FindNextSiblings returns matching siblings after n in order
func (n Node) FindNextSiblings(m Matcher, limit int) []Node {
	if !n.Attached() || n.node().parent == noNode {
		return nil
	}
	siblings := n.doc.nodes[n.node().parent].children
	return n.doc.collect(siblings[n.node().index+1:], m, limit, false)
}

// FindPreviousSibling returns the closest matching sibling before n
func (n Node) FindPreviousSibling(m Matcher) (Node, bool) {
	return first(n.FindPreviousSiblings(m, 1))
}

// FindPreviousSiblings returns matching siblings before n, closest first
func (n Node) FindPreviousSiblings(m Matcher, limit int) []Node {
	if !n.Attached() || n.node().parent == noNode {
		return nil
	}
	siblings := n.doc.nodes[n.node().parent].children
	return n.doc.collect(siblings[:n.node().index], m, limit, true)
}

func (d *Document) collect(ids []NodeID, m Matcher, limit int, reverse bool) []Node {
	var out []Node
	for i := range ids {
		id := ids[i]
		if reverse {
			id = ids[len(ids)-1-i]
		}
		if d.nodes[id].typ != ElementNode {
			continue
		}
		cand := Node{doc: d, id: id}
		if !m.Match(cand) {
			continue
		}
		out = append(out, cand)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func first(nodes []Node) (Node, bool) {
	if len(nodes) == 0 {
		return Node{}, false
	}
	return nodes[0], true
}

// GetText joins the descendant text nodes of n in document order with sep.
// With strip set, each fragment is trimmed and empty fragments are dropped.
// Comments never contribute.
func (n Node) GetText(sep string, strip bool) string {
	var fragments []string
	add := func(s string) {
		if strip {
			s = strings.TrimSpace(s)
			if s == "" {
				return
			}
		}
		fragments = append(fragments, s)
	}

	switch {
	case n.IsText():
		add(n.Data())
	case n.Attached():
		nd := n.node()
		for _, id := range n.doc.order[nd.pos+1 : nd.end+1] {
			if t := &n.doc.nodes[id]; t.typ == TextNode {
				add(t.data)
			}
		}
	}
	return strings.Join(fragments, sep)
}

// Text is GetText("", false)
func (n Node) Text() string {
	return n.GetText("", false)
}
