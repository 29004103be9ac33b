// Package dom provides the document tree built from markup tokens.
//
// All nodes of a Document live in one arena slice. Parent, child and
// document-order links are indices into that slice, so the tree never holds
// reference cycles. A Node is a lightweight (document, index) handle; holding
// one keeps its Document alive.
//
// Document order is a pre-order walk of the tree. Every node records its
// position in that walk and the position of its last descendant, which makes
// subtree scans and "next/previous in document order" queries slice ranges.
// The index is rebuilt by every mutation before it returns.
package dom

import (
	"strings"

	"github.com/pyscout/scout/internal/markup"
)

// NodeID indexes a node within its Document arena
type NodeID int

const noNode NodeID = -1

// NodeType identifies the kind of a node
type NodeType int

const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
	CommentNode
)

// noType is reported by the zero Node
const noType NodeType = -1

func (t NodeType) String() string {
	switch t {
	case DocumentNode:
		return "document"
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	}
	return "unknown"
}

// Attribute is a name/value pair on an element
type Attribute = markup.Attribute

type node struct {
	typ      NodeType
	tag      string
	attrs    []Attribute
	data     string
	parent   NodeID
	children []NodeID

	// maintained by reindex
	pos   int // position in document order, -1 when detached
	end   int // position of the last descendant
	index int // position within parent's children
	depth int // DocumentNode is 0
}

// Document owns every node of one parsed tree
type Document struct {
	nodes   []node
	order   []NodeID
	doctype string
	mode    markup.Mode
}

func newDocument(mode markup.Mode) *Document {
	d := &Document{mode: mode}
	d.nodes = append(d.nodes, node{typ: DocumentNode, parent: noNode})
	return d
}

// Root returns the document node
func (d *Document) Root() Node {
	return Node{doc: d, id: 0}
}

// Mode returns the syntax mode the document was parsed with
func (d *Document) Mode() markup.Mode {
	return d.mode
}

// Doctype returns the doctype declaration payload, if any
func (d *Document) Doctype() string {
	return d.doctype
}

// Len returns the number of attached nodes, including the document node
func (d *Document) Len() int {
	return len(d.order)
}

// Node returns the handle for id
func (d *Document) Node(id NodeID) (Node, bool) {
	if id < 0 || int(id) >= len(d.nodes) {
		return Node{}, false
	}
	return Node{doc: d, id: id}, true
}

// Ordered returns every attached node in document order
func (d *Document) Ordered() []Node {
	out := make([]Node, len(d.order))
	for i, id := range d.order {
		out[i] = Node{doc: d, id: id}
	}
	return out
}

func (d *Document) add(n node) NodeID {
	n.pos = -1
	d.nodes = append(d.nodes, n)
	return NodeID(len(d.nodes) - 1)
}

// reindex rebuilds document order, depth and sibling positions from the root
func (d *Document) reindex() {
	for i := range d.nodes {
		d.nodes[i].pos = -1
	}
	d.order = d.order[:0]

	type frame struct {
		id    NodeID
		depth int
		next  int
	}
	stack := []frame{{id: 0}}
	d.nodes[0].pos = 0
	d.nodes[0].index = 0
	d.order = append(d.order, 0)

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		n := &d.nodes[top.id]
		if top.next >= len(n.children) {
			n.end = len(d.order) - 1
			stack = stack[:len(stack)-1]
			continue
		}
		childID := n.children[top.next]
		child := &d.nodes[childID]
		child.index = top.next
		child.depth = top.depth + 1
		child.pos = len(d.order)
		d.order = append(d.order, childID)
		top.next++
		stack = append(stack, frame{id: childID, depth: top.depth + 1})
	}
}

// Node is a handle to one node of a Document. The zero Node is "no node":
// its accessors return zero values and it reports an unknown type.
type Node struct {
	doc *Document
	id  NodeID
}

// Valid reports whether n refers to a node
func (n Node) Valid() bool {
	return n.doc != nil
}

// ID returns the arena index of n
func (n Node) ID() NodeID {
	return n.id
}

// Document returns the owning document
func (n Node) Document() *Document {
	return n.doc
}

// node returns n's arena entry. The zero Node gets a detached placeholder.
func (n Node) node() *node {
	if n.doc == nil {
		return &node{typ: noType, parent: noNode, pos: -1}
	}
	return &n.doc.nodes[n.id]
}

// Attached reports whether n is reachable from its document root
func (n Node) Attached() bool {
	return n.doc != nil && n.node().pos >= 0
}

// Type returns the node kind
func (n Node) Type() NodeType {
	return n.node().typ
}

// IsElement reports whether n is an element
func (n Node) IsElement() bool {
	return n.doc != nil && n.node().typ == ElementNode
}

// IsText reports whether n is a text node
func (n Node) IsText() bool {
	return n.doc != nil && n.node().typ == TextNode
}

// Tag returns the lowercase tag name of an element, or "" for other nodes
func (n Node) Tag() string {
	return n.node().tag
}

// Data returns the payload of a text or comment node
func (n Node) Data() string {
	return n.node().data
}

// Attr returns the value of the named attribute
func (n Node) Attr(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range n.node().attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or def when it is absent
func (n Node) AttrOr(name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}

// HasAttr reports whether the named attribute is present
func (n Node) HasAttr(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// Attrs returns a copy of the attributes in source order
func (n Node) Attrs() []Attribute {
	attrs := n.node().attrs
	if len(attrs) == 0 {
		return nil
	}
	out := make([]Attribute, len(attrs))
	copy(out, attrs)
	return out
}

// Classes returns the class tokens in order, without duplicates
func (n Node) Classes() []string {
	v, ok := n.Attr("class")
	if !ok {
		return nil
	}
	fields := strings.Fields(v)
	out := fields[:0]
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// HasClass reports whether the class attribute contains token
func (n Node) HasClass(token string) bool {
	v, ok := n.Attr("class")
	if !ok {
		return false
	}
	for _, f := range strings.Fields(v) {
		if f == token {
			return true
		}
	}
	return false
}

// Depth returns the nesting level; top-level nodes are 0 and the document node is -1
func (n Node) Depth() int {
	return n.node().depth - 1
}

// Parent returns the parent node
func (n Node) Parent() (Node, bool) {
	p := n.node().parent
	if p == noNode {
		return Node{}, false
	}
	return Node{doc: n.doc, id: p}, true
}

// Contents returns all child nodes, including text and comments
func (n Node) Contents() []Node {
	children := n.node().children
	out := make([]Node, len(children))
	for i, c := range children {
		out[i] = Node{doc: n.doc, id: c}
	}
	return out
}

// Children returns the element children
func (n Node) Children() []Node {
	var out []Node
	for _, c := range n.node().children {
		if n.doc.nodes[c].typ == ElementNode {
			out = append(out, Node{doc: n.doc, id: c})
		}
	}
	return out
}

// FirstChild returns the first child node of any kind
func (n Node) FirstChild() (Node, bool) {
	children := n.node().children
	if len(children) == 0 {
		return Node{}, false
	}
	return Node{doc: n.doc, id: children[0]}, true
}

// NextSibling returns the following sibling of any kind
func (n Node) NextSibling() (Node, bool) {
	return n.siblingAt(1)
}

// PrevSibling returns the preceding sibling of any kind
func (n Node) PrevSibling() (Node, bool) {
	return n.siblingAt(-1)
}

func (n Node) siblingAt(offset int) (Node, bool) {
	if !n.Attached() {
		return Node{}, false
	}
	nd := n.node()
	if nd.parent == noNode {
		return Node{}, false
	}
	siblings := n.doc.nodes[nd.parent].children
	i := nd.index + offset
	if i < 0 || i >= len(siblings) {
		return Node{}, false
	}
	return Node{doc: n.doc, id: siblings[i]}, true
}

// Descendants returns every node below n in document order
func (n Node) Descendants() []Node {
	if !n.Attached() {
		return nil
	}
	nd := n.node()
	out := make([]Node, 0, nd.end-nd.pos)
	for _, id := range n.doc.order[nd.pos+1 : nd.end+1] {
		out = append(out, Node{doc: n.doc, id: id})
	}
	return out
}

// NextInOrder returns the node that follows n in document order
func (n Node) NextInOrder() (Node, bool) {
	if !n.Attached() {
		return Node{}, false
	}
	p := n.node().pos + 1
	if p >= len(n.doc.order) {
		return Node{}, false
	}
	return Node{doc: n.doc, id: n.doc.order[p]}, true
}

// PrevInOrder returns the node that precedes n in document order
func (n Node) PrevInOrder() (Node, bool) {
	if !n.Attached() {
		return Node{}, false
	}
	p := n.node().pos - 1
	if p < 0 {
		return Node{}, false
	}
	return Node{doc: n.doc, id: n.doc.order[p]}, true
}

// Position returns n's index in document order, or -1 when detached
func (n Node) Position() int {
	return n.node().pos
}

// Contains reports whether other is n or one of its descendants
func (n Node) Contains(other Node) bool {
	if n.doc != other.doc || !n.Attached() || !other.Attached() {
		return false
	}
	a, b := n.node(), other.node()
	return b.pos >= a.pos && b.pos <= a.end
}
