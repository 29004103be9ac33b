package dom

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLTree mirrors the attached tree as golang.org/x/net/html nodes, for use
// with libraries built on that package. The returned index maps each mirrored
// node back to its NodeID.
func (d *Document) HTMLTree() (*html.Node, map[*html.Node]NodeID) {
	index := make(map[*html.Node]NodeID, len(d.order))
	root := d.mirror(0, index)
	if d.doctype != "" {
		dt := &html.Node{Type: html.DoctypeNode, Data: d.doctype}
		root.InsertBefore(dt, root.FirstChild)
	}
	return root, index
}

// HTMLNode returns the mirror of n inside a fresh HTMLTree of its document
func (n Node) HTMLNode() *html.Node {
	if !n.Attached() {
		return nil
	}
	_, index := n.doc.HTMLTree()
	for hn, id := range index {
		if id == n.id {
			return hn
		}
	}
	return nil
}

func (d *Document) mirror(id NodeID, index map[*html.Node]NodeID) *html.Node {
	src := &d.nodes[id]
	hn := &html.Node{}
	switch src.typ {
	case DocumentNode:
		hn.Type = html.DocumentNode
	case ElementNode:
		hn.Type = html.ElementNode
		hn.Data = src.tag
		hn.DataAtom = atom.Lookup([]byte(src.tag))
		for _, a := range src.attrs {
			hn.Attr = append(hn.Attr, html.Attribute{Key: a.Name, Val: a.Value})
		}
	case TextNode:
		hn.Type = html.TextNode
		hn.Data = src.data
	case CommentNode:
		hn.Type = html.CommentNode
		hn.Data = src.data
	}
	index[hn] = id
	for _, c := range src.children {
		hn.AppendChild(d.mirror(c, index))
	}
	return hn
}
