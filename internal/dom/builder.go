package dom

import (
	"slices"

	"github.com/pyscout/scout/internal/markup"
)

// Option configures Parse
type Option func(*options)

type options struct {
	mode         markup.Mode
	dropComments bool
}

// WithMode selects the tokenizer syntax. The default is ModeHTML.
func WithMode(mode markup.Mode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithoutComments discards comment tokens while building
func WithoutComments() Option {
	return func(o *options) {
		o.dropComments = true
	}
}

// Parse builds a document tree from src. It never fails: malformed markup is
// repaired so that every element ends up closed and attached exactly once.
func Parse(src string, opts ...Option) *Document {
	o := options{mode: markup.ModeHTML}
	for _, opt := range opts {
		opt(&o)
	}

	b := &builder{
		doc:  newDocument(o.mode),
		opts: o,
	}
	b.stack = append(b.stack, 0)

	tz := markup.NewTokenizer(src, o.mode)
	for {
		tok, ok := tz.Next()
		if !ok {
			break
		}
		b.handle(tok)
	}

	// EOF closes every open element; they are already linked to their parents
	b.stack = b.stack[:1]
	b.doc.reindex()
	return b.doc
}

// ParseBytes decodes raw to UTF-8 before parsing. hint may name the source
// charset; an empty hint lets the decoder detect it.
func ParseBytes(raw []byte, hint string, opts ...Option) (*Document, markup.Decoded) {
	decoded := markup.Decode(raw, hint, "")
	return Parse(decoded.Text, opts...), decoded
}

type builder struct {
	doc   *Document
	opts  options
	stack []NodeID
}

func (b *builder) top() NodeID {
	return b.stack[len(b.stack)-1]
}

func (b *builder) handle(tok markup.Token) {
	switch tok.Type {
	case markup.DoctypeToken:
		if b.doc.doctype == "" {
			b.doc.doctype = tok.Data
		}

	case markup.StartTagToken:
		if b.opts.mode == markup.ModeHTML {
			b.closeImplied(tok.Name)
		}
		id := b.appendChild(node{typ: ElementNode, tag: tok.Name, attrs: tok.Attrs})
		if tok.SelfClosing || (b.opts.mode == markup.ModeHTML && markup.IsVoid(tok.Name)) {
			return
		}
		b.stack = append(b.stack, id)

	case markup.EndTagToken:
		if b.opts.mode == markup.ModeHTML && markup.IsVoid(tok.Name) {
			return
		}
		for i := len(b.stack) - 1; i > 0; i-- {
			if b.doc.nodes[b.stack[i]].tag == tok.Name {
				b.stack = b.stack[:i]
				return
			}
		}
		// unmatched end tags are dropped

	case markup.TextToken:
		parent := &b.doc.nodes[b.top()]
		if n := len(parent.children); n > 0 {
			last := &b.doc.nodes[parent.children[n-1]]
			if last.typ == TextNode {
				last.data += tok.Data
				return
			}
		}
		b.appendChild(node{typ: TextNode, data: tok.Data})

	case markup.CommentToken:
		if b.opts.dropComments {
			return
		}
		b.appendChild(node{typ: CommentNode, data: tok.Data})
	}
}

func (b *builder) appendChild(n node) NodeID {
	parent := b.top()
	n.parent = parent
	id := b.doc.add(n)
	b.doc.nodes[parent].children = append(b.doc.nodes[parent].children, id)
	return id
}

// impliedEnd closes the nearest open element named in targets, unless an
// element named in boundary is found first
type impliedEnd struct {
	targets  []string
	boundary []string
}

var (
	paragraphEnd = impliedEnd{
		targets:  []string{"p"},
		boundary: []string{"button", "caption", "dd", "dt", "li", "table", "td", "th"},
	}
	cellEnd    = impliedEnd{targets: []string{"td", "th"}, boundary: []string{"tr", "table"}}
	sectionEnd = impliedEnd{targets: []string{"thead", "tbody", "tfoot"}, boundary: []string{"table"}}
	defEnd     = impliedEnd{targets: []string{"dt", "dd"}, boundary: []string{"dl"}}
	optionEnd  = impliedEnd{targets: []string{"option"}, boundary: []string{"select", "datalist", "optgroup"}}
)

var impliedEnds = map[string][]impliedEnd{
	"li": {{targets: []string{"li"}, boundary: []string{"ul", "ol", "menu"}}},
	"dt": {defEnd},
	"dd": {defEnd},
	"tr": {
		{targets: []string{"td", "th"}, boundary: []string{"table"}},
		{targets: []string{"tr"}, boundary: []string{"table", "thead", "tbody", "tfoot"}},
	},
	"td":     {cellEnd},
	"th":     {cellEnd},
	"option": {optionEnd},
	"optgroup": {
		{targets: []string{"option"}, boundary: []string{"select", "datalist"}},
		{targets: []string{"optgroup"}, boundary: []string{"select"}},
	},
	"thead": {sectionEnd},
	"tbody": {sectionEnd},
	"tfoot": {sectionEnd},
}

func (b *builder) closeImplied(name string) {
	if markup.IsBlock(name) {
		b.closeNearest(paragraphEnd)
	}
	for _, rule := range impliedEnds[name] {
		b.closeNearest(rule)
	}
}

func (b *builder) closeNearest(rule impliedEnd) {
	for i := len(b.stack) - 1; i > 0; i-- {
		tag := b.doc.nodes[b.stack[i]].tag
		if slices.Contains(rule.targets, tag) {
			b.stack = b.stack[:i]
			return
		}
		if slices.Contains(rule.boundary, tag) {
			return
		}
	}
}
