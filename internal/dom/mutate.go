package dom

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pyscout/scout/internal/markup"
)

// NewElement returns an element owned by a fresh document. Inserting it into
// another document copies it.
func NewElement(tag string, attrs ...Attribute) Node {
	d := newDocument(markup.ModeHTML)
	normalized := make([]Attribute, 0, len(attrs))
	seen := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		name := strings.ToLower(a.Name)
		if seen[name] {
			continue
		}
		seen[name] = true
		normalized = append(normalized, Attribute{Name: name, Value: a.Value})
	}
	id := d.add(node{typ: ElementNode, tag: strings.ToLower(tag), attrs: normalized, parent: 0})
	d.nodes[0].children = append(d.nodes[0].children, id)
	d.reindex()
	return Node{doc: d, id: id}
}

// canHaveChildren checks the target of Insert/Append
func (n Node) canHaveChildren(op string) error {
	if !n.Valid() {
		return mutationError(op, "no node")
	}
	if !n.Attached() {
		return mutationError(op, "target is detached")
	}
	if t := n.Type(); t != ElementNode && t != DocumentNode {
		return mutationError(op, fmt.Sprintf("%s nodes have no children", t))
	}
	return nil
}

// Insert places child at index i among n's children. A child from another
// document is deep-copied; a child from this document is moved.
func (n Node) Insert(i int, child Node) error {
	const op = "insert"
	if err := n.canHaveChildren(op); err != nil {
		return err
	}
	if !child.Valid() {
		return mutationError(op, "no node")
	}
	children := n.node().children
	if i < 0 || i > len(children) {
		return mutationError(op, fmt.Sprintf("index %d out of range [0, %d]", i, len(children)))
	}

	if child.doc != n.doc {
		ids := n.doc.importNode(child)
		n.node().children = slices.Insert(n.node().children, i, ids...)
		for _, id := range ids {
			n.doc.nodes[id].parent = n.id
		}
		n.doc.reindex()
		return nil
	}

	if child.id == 0 {
		return mutationError(op, "cannot insert the document node")
	}
	if child.Attached() && child.Contains(n) {
		return mutationError(op, "cannot insert a node into itself or its descendant")
	}

	if p := child.node().parent; p != noNode {
		if p == n.id && child.node().index < i {
			i--
		}
		n.doc.unlink(child.id)
	}
	n.node().children = slices.Insert(n.node().children, i, child.id)
	child.node().parent = n.id
	n.doc.reindex()
	return nil
}

// Append adds child after n's last child
func (n Node) Append(child Node) error {
	if err := n.canHaveChildren("append"); err != nil {
		return err
	}
	return n.Insert(len(n.node().children), child)
}

// InsertText places a new text node at index i among n's children
func (n Node) InsertText(i int, text string) error {
	const op = "insert text"
	if err := n.canHaveChildren(op); err != nil {
		return err
	}
	children := n.node().children
	if i < 0 || i > len(children) {
		return mutationError(op, fmt.Sprintf("index %d out of range [0, %d]", i, len(children)))
	}
	id := n.doc.add(node{typ: TextNode, data: text, parent: n.id})
	n.node().children = slices.Insert(n.node().children, i, id)
	n.doc.reindex()
	return nil
}

// ReplaceWith puts other in n's place and detaches n
func (n Node) ReplaceWith(other Node) error {
	const op = "replace"
	if err := n.detachable(op); err != nil {
		return err
	}
	if !other.Valid() {
		return mutationError(op, "no node")
	}

	var ids []NodeID
	if other.doc != n.doc {
		ids = n.doc.importNode(other)
	} else {
		if other.id == n.id {
			return nil
		}
		if other.id == 0 {
			return mutationError(op, "cannot insert the document node")
		}
		if other.Attached() && other.Contains(n) {
			return mutationError(op, "replacement is an ancestor of the node")
		}
		if other.node().parent != noNode {
			n.doc.unlink(other.id)
		}
		ids = []NodeID{other.id}
	}

	parent := n.node().parent
	idx := slices.Index(n.doc.nodes[parent].children, n.id)
	n.doc.nodes[parent].children = slices.Replace(n.doc.nodes[parent].children, idx, idx+1, ids...)
	for _, id := range ids {
		n.doc.nodes[id].parent = parent
	}
	n.node().parent = noNode
	n.doc.reindex()
	return nil
}

// Extract moves n's subtree into a new document and detaches n. The returned
// document's root holds the copy as its only child.
func (n Node) Extract() (*Document, error) {
	if err := n.detachable("extract"); err != nil {
		return nil, err
	}
	out := newDocument(n.doc.mode)
	id := out.copySubtree(n.doc, n.id, 0)
	out.nodes[0].children = append(out.nodes[0].children, id)
	out.reindex()

	n.doc.unlink(n.id)
	n.doc.reindex()
	return out, nil
}

// Remove detaches n from the tree
func (n Node) Remove() error {
	if err := n.detachable("remove"); err != nil {
		return err
	}
	n.doc.unlink(n.id)
	n.doc.reindex()
	return nil
}

func (n Node) detachable(op string) error {
	if !n.Valid() {
		return mutationError(op, "no node")
	}
	if n.id == 0 {
		return mutationError(op, "cannot detach the document node")
	}
	if !n.Attached() {
		return mutationError(op, "node is detached")
	}
	return nil
}

// SetAttr sets or replaces an attribute on an element
func (n Node) SetAttr(name, value string) error {
	if !n.IsElement() {
		return mutationError("set attribute", "not an element")
	}
	name = strings.ToLower(name)
	nd := n.node()
	for i := range nd.attrs {
		if nd.attrs[i].Name == name {
			nd.attrs[i].Value = value
			return nil
		}
	}
	nd.attrs = append(nd.attrs, Attribute{Name: name, Value: value})
	return nil
}

// RemoveAttr deletes an attribute and reports whether it was present
func (n Node) RemoveAttr(name string) (bool, error) {
	if !n.IsElement() {
		return false, mutationError("remove attribute", "not an element")
	}
	name = strings.ToLower(name)
	nd := n.node()
	for i := range nd.attrs {
		if nd.attrs[i].Name == name {
			nd.attrs = slices.Delete(nd.attrs, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

// unlink removes id from its parent's child list
func (d *Document) unlink(id NodeID) {
	p := d.nodes[id].parent
	if p == noNode {
		return
	}
	if i := slices.Index(d.nodes[p].children, id); i >= 0 {
		d.nodes[p].children = slices.Delete(d.nodes[p].children, i, i+1)
	}
	d.nodes[id].parent = noNode
}

// importNode copies n from another document. A document node contributes
// its top-level children.
func (d *Document) importNode(n Node) []NodeID {
	if n.Type() == DocumentNode {
		src := n.node().children
		ids := make([]NodeID, 0, len(src))
		for _, c := range src {
			ids = append(ids, d.copySubtree(n.doc, c, noNode))
		}
		return ids
	}
	return []NodeID{d.copySubtree(n.doc, n.id, noNode)}
}

func (d *Document) copySubtree(src *Document, id NodeID, parent NodeID) NodeID {
	s := src.nodes[id]
	copyID := d.add(node{
		typ:    s.typ,
		tag:    s.tag,
		attrs:  slices.Clone(s.attrs),
		data:   s.data,
		parent: parent,
	})
	if len(s.children) == 0 {
		return copyID
	}
	children := make([]NodeID, 0, len(s.children))
	for _, c := range s.children {
		children = append(children, d.copySubtree(src, c, copyID))
	}
	d.nodes[copyID].children = children
	return copyID
}
