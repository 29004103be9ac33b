package render

import (
	"io"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/pyscout/scout/internal/dom"
	"github.com/pyscout/scout/internal/markup"
)

// HeadingStyle selects how h1 and h2 are written
type HeadingStyle int

const (
	ATX    HeadingStyle = iota // # Heading
	Setext                     // Heading followed by ===== or -----
)

// ParseHeadingStyle maps "atx" and "setext" to a style; anything else is ATX
func ParseHeadingStyle(name string) HeadingStyle {
	if strings.EqualFold(name, "setext") {
		return Setext
	}
	return ATX
}

// MarkdownOptions controls Markdown output
type MarkdownOptions struct {
	HeadingStyle HeadingStyle
}

// elements whose content never reaches Markdown output
var skippedElements = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"title":    true,
}

// containers are walked for nested blocks rather than rendered inline
var containers = map[string]bool{
	"html": true, "body": true, "li": true, "dd": true, "dt": true,
	"thead": true, "tbody": true, "tfoot": true, "tr": true, "td": true, "th": true,
}

// Markdown renders the block structure of n
func Markdown(n dom.Node, opts MarkdownOptions) string {
	md := markdown.NewMarkdown(io.Discard)
	mw := &markdownWriter{md: md, opts: opts}
	mw.block(n)
	return strings.TrimRight(md.String(), "\n") + "\n"
}

// WriteMarkdown renders n to w
func WriteMarkdown(w io.Writer, n dom.Node, opts MarkdownOptions) error {
	_, err := io.WriteString(w, Markdown(n, opts))
	return err
}

type markdownWriter struct {
	md      *markdown.Markdown
	opts    MarkdownOptions
	pending []string
}

func (w *markdownWriter) paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	w.md.PlainText(text)
	w.md.PlainText("")
}

func (w *markdownWriter) flush() {
	if len(w.pending) == 0 {
		return
	}
	w.paragraph(collapse(strings.Join(w.pending, "")))
	w.pending = w.pending[:0]
}

func (w *markdownWriter) block(n dom.Node) {
	for _, c := range n.Contents() {
		switch {
		case c.IsText():
			w.pending = append(w.pending, c.Data())
		case c.IsElement() && isBlockElement(c.Tag()):
			w.flush()
			w.element(c)
		case c.IsElement():
			w.pending = append(w.pending, inline(c))
		}
	}
	w.flush()
}

func isBlockElement(tag string) bool {
	if _, ok := headingLevel(tag); ok {
		return true
	}
	return markup.IsBlock(tag) || containers[tag] || skippedElements[tag] || tag == "table"
}

func headingLevel(tag string) (int, bool) {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0'), true
	}
	return 0, false
}

func (w *markdownWriter) element(n dom.Node) {
	tag := n.Tag()
	if skippedElements[tag] {
		return
	}
	if level, ok := headingLevel(tag); ok {
		w.heading(level, collapse(inline(n)))
		return
	}

	switch tag {
	case "p":
		w.paragraph(collapse(inline(n)))
	case "ul", "ol":
		w.list(n, tag == "ol")
	case "pre":
		w.code(n)
	case "hr":
		w.md.HorizontalRule()
		w.md.PlainText("")
	case "blockquote":
		text := collapse(n.GetText(" ", true))
		if text != "" {
			w.md.PlainText("> " + text)
			w.md.PlainText("")
		}
	case "table":
		w.table(n)
	default:
		w.block(n)
	}
}

func (w *markdownWriter) heading(level int, text string) {
	if text == "" {
		return
	}
	if w.opts.HeadingStyle == Setext && level <= 2 {
		underline := "="
		if level == 2 {
			underline = "-"
		}
		w.md.PlainText(text)
		w.md.PlainText(strings.Repeat(underline, max(3, len([]rune(text)))))
		w.md.PlainText("")
		return
	}

	switch level {
	case 1:
		w.md.H1(text)
	case 2:
		w.md.H2(text)
	case 3:
		w.md.H3(text)
	case 4:
		w.md.H4(text)
	case 5:
		w.md.H5(text)
	default:
		w.md.H6(text)
	}
	w.md.PlainText("")
}

func (w *markdownWriter) list(n dom.Node, ordered bool) {
	var items []string
	for _, li := range n.Children() {
		if li.Tag() != "li" {
			continue
		}
		if text := collapse(inline(li)); text != "" {
			items = append(items, text)
		}
	}
	if len(items) == 0 {
		return
	}
	if ordered {
		w.md.OrderedList(items...)
	} else {
		w.md.BulletList(items...)
	}
	w.md.PlainText("")
}

func (w *markdownWriter) code(n dom.Node) {
	lang := ""
	if c, ok := n.Find(dom.By("code", nil)); ok {
		for _, class := range c.Classes() {
			if l, found := strings.CutPrefix(class, "language-"); found {
				lang = l
				break
			}
		}
	}
	text := strings.Trim(n.Text(), "\n")
	if text == "" {
		return
	}
	w.md.CodeBlocks(markdown.SyntaxHighlight(lang), text)
	w.md.PlainText("")
}

func (w *markdownWriter) table(n dom.Node) {
	var rows [][]string
	width := 0
	for _, tr := range n.FindAll(dom.By("tr", nil), 0) {
		if owner, ok := tr.FindParent(dom.By("table", nil)); !ok || owner != n {
			continue
		}
		var cells []string
		for _, cell := range tr.Children() {
			if t := cell.Tag(); t == "td" || t == "th" {
				cells = append(cells, collapse(inline(cell)))
			}
		}
		if len(cells) == 0 {
			continue
		}
		width = max(width, len(cells))
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}
	for i := range rows {
		for len(rows[i]) < width {
			rows[i] = append(rows[i], "")
		}
	}
	w.md.Table(markdown.TableSet{Header: rows[0], Rows: rows[1:]})
	w.md.PlainText("")
}

// inline renders n and its descendants as one line of Markdown text
func inline(n dom.Node) string {
	if n.IsText() {
		return n.Data()
	}
	if !n.IsElement() || skippedElements[n.Tag()] {
		return ""
	}

	var b strings.Builder
	for _, c := range n.Contents() {
		if c.IsElement() {
			if t := c.Tag(); t == "ul" || t == "ol" || t == "table" {
				// nested structures are flattened to their text
				b.WriteString(" " + c.GetText(" ", true) + " ")
				continue
			}
		}
		b.WriteString(inline(c))
	}
	inner := b.String()

	switch n.Tag() {
	case "strong", "b":
		return wrap(inner, "**")
	case "em", "i":
		return wrap(inner, "*")
	case "code":
		return wrap(inner, "`")
	case "a":
		href, ok := n.Attr("href")
		text := collapse(inner)
		if !ok || text == "" {
			return inner
		}
		return "[" + text + "](" + href + ")"
	case "img":
		src, ok := n.Attr("src")
		if !ok {
			return ""
		}
		return "![" + n.AttrOr("alt", "") + "](" + src + ")"
	case "br":
		return " "
	}
	return inner
}

func wrap(s, marker string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	return marker + trimmed + marker
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
