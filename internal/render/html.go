package render

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/pyscout/scout/internal/dom"
	"github.com/pyscout/scout/internal/markup"
)

// rawTextElements hold literal text that must not be escaped
var rawTextElements = map[string]bool{
	"iframe":    true,
	"noembed":   true,
	"noframes":  true,
	"noscript":  true,
	"plaintext": true,
	"script":    true,
	"style":     true,
	"xmp":       true,
}

// HTML serializes n compactly. Reparsing the output yields the same tree.
func HTML(n dom.Node) string {
	var b strings.Builder
	w := markupWriter{b: &b, xml: isXML(n)}
	w.node(n, false)
	return b.String()
}

// Pretty serializes n with one node per line, nested content indented by
// indent. Whitespace-only text is dropped and other text is trimmed.
func Pretty(n dom.Node, indent string) string {
	var b strings.Builder
	w := markupWriter{b: &b, xml: isXML(n), indent: indent, pretty: true}
	w.node(n, false)
	return b.String()
}

func isXML(n dom.Node) bool {
	return n.Valid() && n.Document().Mode() == markup.ModeXML
}

type markupWriter struct {
	b      *strings.Builder
	xml    bool
	pretty bool
	indent string
	depth  int
}

func (w *markupWriter) line(s string) {
	if w.pretty {
		w.b.WriteString(strings.Repeat(w.indent, w.depth))
		w.b.WriteString(s)
		w.b.WriteByte('\n')
		return
	}
	w.b.WriteString(s)
}

func (w *markupWriter) node(n dom.Node, raw bool) {
	if !n.Valid() {
		return
	}
	switch n.Type() {
	case dom.DocumentNode:
		if dt := n.Document().Doctype(); dt != "" {
			w.line("<!DOCTYPE " + dt + ">")
		}
		for _, c := range n.Contents() {
			w.node(c, false)
		}

	case dom.TextNode:
		text := n.Data()
		if w.pretty {
			text = strings.TrimSpace(text)
			if text == "" {
				return
			}
		}
		if !raw {
			text = html.EscapeString(text)
		}
		w.line(text)

	case dom.CommentNode:
		w.line("<!--" + n.Data() + "-->")

	case dom.ElementNode:
		w.element(n)
	}
}

func (w *markupWriter) element(n dom.Node) {
	var open strings.Builder
	open.WriteString("<" + n.Tag())
	for _, a := range n.Attrs() {
		open.WriteString(" " + a.Name + `="` + html.EscapeString(a.Value) + `"`)
	}

	contents := n.Contents()
	if !w.xml && markup.IsVoid(n.Tag()) {
		open.WriteString(">")
		w.line(open.String())
		return
	}
	if w.xml && len(contents) == 0 {
		open.WriteString("/>")
		w.line(open.String())
		return
	}
	open.WriteString(">")
	w.line(open.String())

	raw := !w.xml && rawTextElements[n.Tag()]
	w.depth++
	for _, c := range contents {
		w.node(c, raw)
	}
	w.depth--
	w.line("</" + n.Tag() + ">")
}
