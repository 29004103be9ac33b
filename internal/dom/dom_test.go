package dom

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pyscout/scout/internal/markup"
)

// outline renders the attached tree as one line per node, for comparisons
func outline(d *Document) string {
	var b strings.Builder
	for _, n := range d.Ordered()[1:] {
		b.WriteString(strings.Repeat(" ", n.Depth()))
		switch n.Type() {
		case ElementNode:
			b.WriteString("<" + n.Tag() + ">")
		case TextNode:
			fmt.Fprintf(&b, "%q", n.Data())
		case CommentNode:
			b.WriteString("!" + n.Data())
		}
		b.WriteString("\n")
	}
	return b.String()
}

func tags(nodes []Node) string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Tag()
	}
	return strings.Join(names, ",")
}

func texts(nodes []Node) string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Text()
	}
	return strings.Join(out, ",")
}

func TestGetText(t *testing.T) {
	doc := Parse(`<div><p> A </p><p>B</p></div>`)
	div, ok := doc.Root().Find(By("div", nil))
	if !ok {
		t.Fatal("Expected to find div")
	}

	tests := []struct {
		name  string
		sep   string
		strip bool
		want  string
	}{
		{"stripped with newline", "\n", true, "A\nB"},
		{"raw", "", false, " A B"},
		{"raw with separator", "|", false, " A |B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := div.GetText(tt.sep, tt.strip); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGetTextSkipsComments(t *testing.T) {
	doc := Parse(`<p>a<!-- hidden -->b</p>`)
	if got := doc.Root().GetText("", false); got != "ab" {
		t.Errorf("Expected comments to be skipped, got %q", got)
	}
	if got := doc.Root().GetText(" ", true); got != "a b" {
		t.Errorf("Expected fragments split by the comment, got %q", got)
	}
}

func TestParseStructure(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "nested",
			src:  `<div><p>x</p></div>`,
			want: "<div>\n <p>\n  \"x\"\n",
		},
		{
			name: "paragraph closed by block",
			src:  `<p>a<div>b</div>`,
			want: "<p>\n \"a\"\n<div>\n \"b\"\n",
		},
		{
			name: "list items close each other",
			src:  `<ul><li>one<li>two</ul>`,
			want: "<ul>\n <li>\n  \"one\"\n <li>\n  \"two\"\n",
		},
		{
			name: "definition terms",
			src:  `<dl><dt>t<dd>d<dt>u</dl>`,
			want: "<dl>\n <dt>\n  \"t\"\n <dd>\n  \"d\"\n <dt>\n  \"u\"\n",
		},
		{
			name: "void element",
			src:  `<p>a<br>b</br></p>`,
			want: "<p>\n \"a\"\n <br>\n \"b\"\n",
		},
		{
			name: "self-closing siblings",
			src:  `<div><span/><span/></div>`,
			want: "<div>\n <span>\n <span>\n",
		},
		{
			name: "unmatched end tag dropped",
			src:  `<div></span>x</div>`,
			want: "<div>\n \"x\"\n",
		},
		{
			name: "end tag closes intermediate elements",
			src:  `<div><b><i>x</div>y`,
			want: "<div>\n <b>\n  <i>\n   \"x\"\n\"y\"\n",
		},
		{
			name: "unclosed at eof",
			src:  `<section><article>text`,
			want: "<section>\n <article>\n  \"text\"\n",
		},
		{
			name: "options",
			src:  `<select><option>a<option>b</select>`,
			want: "<select>\n <option>\n  \"a\"\n <option>\n  \"b\"\n",
		},
		{
			name: "comment kept",
			src:  `<p><!--c-->x</p>`,
			want: "<p>\n !c\n \"x\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := outline(Parse(tt.src))
			if got != tt.want {
				t.Errorf("Unexpected tree for %s:\nexpected:\n%s\ngot:\n%s", tt.src, tt.want, got)
			}
		})
	}
}

func TestParseTable(t *testing.T) {
	doc := Parse(`<table><tr><td>1<td>2<tr><td>3</table>`)
	rows := doc.Root().FindAll(By("tr", nil), 0)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if got := texts(rows[0].Children()); got != "1,2" {
		t.Errorf("Expected first row cells 1,2, got %s", got)
	}
	if got := texts(rows[1].Children()); got != "3" {
		t.Errorf("Expected second row cell 3, got %s", got)
	}
}

func TestParseWithoutComments(t *testing.T) {
	doc := Parse(`<p><!--c-->x</p>`, WithoutComments())
	if got := outline(doc); got != "<p>\n \"x\"\n" {
		t.Errorf("Expected comment to be dropped, got:\n%s", got)
	}
}

func TestParseXML(t *testing.T) {
	doc := Parse(`<root><Item a="1"/><item>t</item><br>inside</br></root>`, WithMode(markup.ModeXML))
	if doc.Mode() != markup.ModeXML {
		t.Error("Expected document to record XML mode")
	}
	root, ok := doc.Root().Find(By("root", nil))
	if !ok {
		t.Fatal("Expected root element")
	}
	if got := tags(root.Children()); got != "item,item,br" {
		t.Errorf("Expected item,item,br, got %s", got)
	}
	if v, _ := root.Children()[0].Attr("a"); v != "1" {
		t.Errorf("Expected attribute a=1, got %q", v)
	}
	// br has no void meaning in XML
	if got := root.Children()[2].Text(); got != "inside" {
		t.Errorf("Expected br to contain text in XML mode, got %q", got)
	}
}

func TestParseDoctype(t *testing.T) {
	doc := Parse(`<!DOCTYPE html><html><body></body></html>`)
	if doc.Doctype() != "html" {
		t.Errorf("Expected doctype html, got %q", doc.Doctype())
	}
}

func TestParseBytes(t *testing.T) {
	doc, decoded := ParseBytes([]byte("<p>caf\xe9</p>"), "iso-8859-1")
	if decoded.Err != nil {
		t.Errorf("Unexpected decode error: %v", decoded.Err)
	}
	if got := doc.Root().Text(); got != "café" {
		t.Errorf("Expected café, got %q", got)
	}
}

func TestNoDanglingNodes(t *testing.T) {
	inputs := []string{
		`<div><p>unclosed<span>deep`,
		`</div></div><p>x</p></p></p>`,
		`<table><tr><td>a</tr></td></table>`,
		`<a><b><c></a></b></c>`,
		`<<<>>><p attr=">">`,
		`<ul><li><ul><li>nested</ul><li>outer</ul>`,
	}

	for _, src := range inputs {
		doc := Parse(src)
		seen := make(map[NodeID]bool)
		for _, n := range doc.Ordered() {
			if seen[n.ID()] {
				t.Errorf("%q: node %d reached twice", src, n.ID())
			}
			seen[n.ID()] = true
			if n.ID() == 0 {
				continue
			}
			parent, ok := n.Parent()
			if !ok {
				t.Errorf("%q: node %d has no parent", src, n.ID())
				continue
			}
			count := 0
			for _, c := range parent.Contents() {
				if c.ID() == n.ID() {
					count++
				}
			}
			if count != 1 {
				t.Errorf("%q: node %d appears %d times under its parent", src, n.ID(), count)
			}
		}
		if len(seen) != doc.Len() {
			t.Errorf("%q: ordered %d nodes, document reports %d", src, len(seen), doc.Len())
		}
	}
}

func TestFindAllLimit(t *testing.T) {
	doc := Parse(`<ul><li>1</li><li>2</li><li>3</li><li>4</li><li>5</li></ul>`)
	li := By("li", nil)

	tests := []struct {
		limit int
		want  int
	}{
		{0, 5},
		{-1, 5},
		{1, 1},
		{3, 3},
		{5, 5},
		{10, 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit %d", tt.limit), func(t *testing.T) {
			if got := len(doc.Root().FindAll(li, tt.limit)); got != tt.want {
				t.Errorf("Expected %d matches, got %d", tt.want, got)
			}
		})
	}
}

func TestFindFamily(t *testing.T) {
	doc := Parse(`<div id="a"><p class="x">1</p><p>2</p><span class="x">3</span></div><p class="x">4</p>`)
	root := doc.Root()

	second, ok := root.Find(MatcherFunc(func(n Node) bool { return n.Tag() == "p" && n.Text() == "2" }))
	if !ok {
		t.Fatal("Expected to find second paragraph")
	}

	if n, ok := second.FindNext(Compound{Class("x")}); !ok || n.Text() != "3" {
		t.Error("FindNext: expected span 3")
	}
	if got := texts(second.FindAllNext(Compound{Class("x")}, 0)); got != "3,4" {
		t.Errorf("FindAllNext: expected 3,4, got %s", got)
	}
	if n, ok := second.FindPrevious(By("p", nil)); !ok || n.Text() != "1" {
		t.Error("FindPrevious: expected paragraph 1")
	}
	if got := tags(second.FindAllPrevious(Compound{}, 0)); got != "p,div" {
		t.Errorf("FindAllPrevious: expected p,div closest first, got %s", got)
	}
	if n, ok := second.FindParent(Compound{ID("a")}); !ok || n.Tag() != "div" {
		t.Error("FindParent: expected div#a")
	}
	if got := len(second.FindParents(Compound{}, 0)); got != 1 {
		t.Errorf("FindParents: expected one element ancestor, got %d", got)
	}
	if n, ok := second.FindNextSibling(Compound{}); !ok || n.Tag() != "span" {
		t.Error("FindNextSibling: expected span")
	}
	if got := len(second.FindNextSiblings(By("p", nil), 0)); got != 0 {
		t.Errorf("FindNextSiblings: expected no later p inside div, got %d", got)
	}
	if n, ok := second.FindPreviousSibling(Compound{}); !ok || n.Text() != "1" {
		t.Error("FindPreviousSibling: expected paragraph 1")
	}
	if got := len(second.FindPreviousSiblings(Compound{}, 0)); got != 1 {
		t.Errorf("FindPreviousSiblings: expected 1, got %d", got)
	}
}

func TestBy(t *testing.T) {
	doc := Parse(`<a class="btn primary" href="/x">1</a><a class="btn" href="/y">2</a><b class="btn">3</b>`)
	root := doc.Root()

	tests := []struct {
		name  string
		tag   string
		attrs map[string]string
		want  string
	}{
		{"tag only", "a", nil, "1,2"},
		{"class token", "a", map[string]string{"class": "btn"}, "1,2"},
		{"class exact value", "", map[string]string{"class": "btn primary"}, "1"},
		{"any tag", "", map[string]string{"class": "btn"}, "1,2,3"},
		{"attribute equality", "a", map[string]string{"href": "/y"}, "2"},
		{"no match", "a", map[string]string{"href": "/z"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := texts(root.FindAll(By(tt.tag, tt.attrs), 0)); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClasses(t *testing.T) {
	doc := Parse(`<p class=" b a  b c ">x</p>`)
	p, _ := doc.Root().Find(By("p", nil))
	if got := strings.Join(p.Classes(), ","); got != "b,a,c" {
		t.Errorf("Expected b,a,c, got %s", got)
	}
}

func TestNavigation(t *testing.T) {
	doc := Parse(`<div>a<p>b</p><span>c</span></div>`)
	div, _ := doc.Root().Find(By("div", nil))

	if len(div.Contents()) != 3 || len(div.Children()) != 2 {
		t.Errorf("Expected 3 contents and 2 children, got %d and %d", len(div.Contents()), len(div.Children()))
	}
	if div.Depth() != 0 {
		t.Errorf("Expected top-level depth 0, got %d", div.Depth())
	}
	p := div.Children()[0]
	if p.Depth() != 1 {
		t.Errorf("Expected depth 1, got %d", p.Depth())
	}
	if prev, ok := p.PrevSibling(); !ok || !prev.IsText() {
		t.Error("Expected text before p")
	}
	if next, ok := p.NextInOrder(); !ok || next.Data() != "b" {
		t.Error("Expected p's text next in document order")
	}
	if prev, ok := p.PrevInOrder(); !ok || prev.Data() != "a" {
		t.Error("Expected text a before p in document order")
	}
	if !div.Contains(p) || p.Contains(div) {
		t.Error("Unexpected containment")
	}
	if got := len(div.Descendants()); got != 5 {
		t.Errorf("Expected 5 descendants, got %d", got)
	}
}

func TestZeroNode(t *testing.T) {
	doc := Parse(`<p>x</p>`)
	missing, ok := doc.Root().Find(By("table", nil))
	if ok || missing.Valid() {
		t.Fatalf("Expected no match, got %v", missing)
	}

	if missing.Type().String() != "unknown" || missing.IsElement() || missing.IsText() {
		t.Errorf("Expected unknown type, got %s", missing.Type())
	}
	if missing.Tag() != "" || missing.Data() != "" || missing.Attrs() != nil || missing.Classes() != nil {
		t.Error("Expected empty accessors on the zero node")
	}
	if _, ok := missing.Attr("id"); ok || missing.AttrOr("id", "def") != "def" {
		t.Error("Expected no attributes on the zero node")
	}
	if _, ok := missing.Parent(); ok || len(missing.Contents()) != 0 || len(missing.Children()) != 0 {
		t.Error("Expected no relatives on the zero node")
	}
	if missing.Position() != -1 || missing.GetText(" ", true) != "" || missing.Attached() {
		t.Error("Expected the zero node to be detached")
	}
	if _, ok := missing.FirstChild(); ok || missing.FindAll(By("p", nil), 0) != nil {
		t.Error("Expected no descendants on the zero node")
	}
}

func TestInsertCopiesForeignNode(t *testing.T) {
	doc := Parse(`<ul><li>1</li></ul>`)
	ul, _ := doc.Root().Find(By("ul", nil))

	item := NewElement("LI", Attribute{Name: "Class", Value: "new"})
	if err := item.InsertText(0, "0"); err != nil {
		t.Fatalf("Failed to add text: %v", err)
	}
	if err := ul.Insert(0, item); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	if got := texts(ul.Children()); got != "0,1" {
		t.Errorf("Expected 0,1, got %s", got)
	}
	inserted := ul.Children()[0]
	if inserted.Tag() != "li" || !inserted.HasClass("new") {
		t.Errorf("Expected normalized li.new, got %s %v", inserted.Tag(), inserted.Attrs())
	}
	if inserted.Document() != doc {
		t.Error("Expected inserted node to belong to the target document")
	}
	// source is untouched
	if !item.Attached() || item.Text() != "0" {
		t.Error("Expected source element to remain intact")
	}
}

func TestInsertMovesWithinDocument(t *testing.T) {
	doc := Parse(`<ul><li>1</li><li>2</li><li>3</li></ul>`)
	ul, _ := doc.Root().Find(By("ul", nil))

	third := ul.Children()[2]
	if err := ul.Insert(0, third); err != nil {
		t.Fatalf("Failed to move: %v", err)
	}
	if got := texts(ul.Children()); got != "3,1,2" {
		t.Errorf("Expected 3,1,2, got %s", got)
	}

	first := ul.Children()[0]
	if err := ul.Append(first); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if got := texts(ul.Children()); got != "1,2,3" {
		t.Errorf("Expected 1,2,3, got %s", got)
	}
}

func TestMutationRejected(t *testing.T) {
	doc := Parse(`<div><p>x</p></div>`)
	div, _ := doc.Root().Find(By("div", nil))
	p, _ := div.Find(By("p", nil))
	text, _ := p.FirstChild()
	before := outline(doc)

	tests := []struct {
		name string
		run  func() error
	}{
		{"insert ancestor", func() error { return p.Insert(0, div) }},
		{"insert self", func() error { return div.Insert(0, div) }},
		{"index out of range", func() error { return div.Insert(5, NewElement("b")) }},
		{"negative index", func() error { return div.InsertText(-1, "y") }},
		{"text has no children", func() error { return text.Append(NewElement("b")) }},
		{"insert document node", func() error { return div.Append(doc.Root()) }},
		{"replace root", func() error { return doc.Root().ReplaceWith(NewElement("b")) }},
		{"replace with ancestor", func() error { return p.ReplaceWith(div) }},
		{"extract root", func() error { _, err := doc.Root().Extract(); return err }},
		{"set attribute on text", func() error { return text.SetAttr("a", "b") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if err == nil {
				t.Fatal("Expected mutation to be rejected")
			}
			if !errors.Is(err, ErrTreeMutation) {
				t.Errorf("Expected ErrTreeMutation, got %v", err)
			}
			var mutErr *MutationError
			if !errors.As(err, &mutErr) {
				t.Errorf("Expected *MutationError, got %T", err)
			}
			if after := outline(doc); after != before {
				t.Errorf("Tree changed after rejected mutation:\n%s", after)
			}
		})
	}
}

func TestReplaceWith(t *testing.T) {
	doc := Parse(`<div><p>old</p><i>keep</i></div>`)
	div, _ := doc.Root().Find(By("div", nil))
	p, _ := div.Find(By("p", nil))

	if err := p.ReplaceWith(NewElement("hr")); err != nil {
		t.Fatalf("Failed to replace: %v", err)
	}
	if got := tags(div.Children()); got != "hr,i" {
		t.Errorf("Expected hr,i, got %s", got)
	}
	if p.Attached() {
		t.Error("Expected replaced node to be detached")
	}
	if got := len(p.FindAll(Compound{}, 0)); got != 0 {
		t.Errorf("Expected detached node to report no matches, got %d", got)
	}
	if err := p.Remove(); !errors.Is(err, ErrTreeMutation) {
		t.Errorf("Expected detached node to be rejected, got %v", err)
	}
}

func TestExtract(t *testing.T) {
	doc := Parse(`<div><p>keep</p><p>go <b>bold</b></p></div>`)
	ps := doc.Root().FindAll(By("p", nil), 0)

	out, err := ps[1].Extract()
	if err != nil {
		t.Fatalf("Failed to extract: %v", err)
	}
	if got := doc.Root().Text(); got != "keep" {
		t.Errorf("Expected remaining text keep, got %q", got)
	}
	top := out.Root().Children()
	if len(top) != 1 || top[0].Tag() != "p" || top[0].Text() != "go bold" {
		t.Errorf("Unexpected extracted tree:\n%s", outline(out))
	}
	if ps[1].Attached() {
		t.Error("Expected original node to be detached")
	}
}

func TestRemoveAndAttributes(t *testing.T) {
	doc := Parse(`<div><script>x()</script><p id="a">text</p></div>`)
	script, _ := doc.Root().Find(By("script", nil))
	if err := script.Remove(); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	if got := doc.Root().Text(); got != "text" {
		t.Errorf("Expected script text to be gone, got %q", got)
	}

	p, _ := doc.Root().Find(By("p", nil))
	if err := p.SetAttr("ID", "b"); err != nil {
		t.Fatalf("Failed to set attribute: %v", err)
	}
	if err := p.SetAttr("title", "t"); err != nil {
		t.Fatalf("Failed to set attribute: %v", err)
	}
	if v, _ := p.Attr("id"); v != "b" {
		t.Errorf("Expected id b, got %q", v)
	}
	removed, err := p.RemoveAttr("title")
	if err != nil || !removed {
		t.Errorf("Expected title to be removed, got %v %v", removed, err)
	}
	if p.HasAttr("title") {
		t.Error("Expected title to be gone")
	}
}

func TestHTMLTree(t *testing.T) {
	doc := Parse(`<!DOCTYPE html><div class="a"><p>x</p></div>`)
	root, index := doc.HTMLTree()
	if root.FirstChild == nil || root.FirstChild.Data != "html" {
		t.Error("Expected doctype as first mirrored child")
	}
	if len(index) != doc.Len() {
		t.Errorf("Expected %d mirrored nodes, got %d", doc.Len(), len(index))
	}

	p, _ := doc.Root().Find(By("p", nil))
	hn := p.HTMLNode()
	if hn == nil || hn.Data != "p" || hn.Parent.Data != "div" {
		t.Errorf("Unexpected mirror for p: %+v", hn)
	}
}
