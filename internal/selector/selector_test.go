package selector

import (
	"errors"
	"slices"
	"testing"

	"github.com/andybalholm/cascadia"

	"github.com/pyscout/scout/internal/dom"
)

const page = `<html><body>
<div id="main" class="content wide">
  <h1>Title</h1>
  <ul class="nav">
    <li class="item active"><a href="/home" data-x="1">Home</a></li>
    <li class="item"><a href="/about">About</a></li>
    <li><span><a href='/deep' rel="nofollow">Deep</a></span></li>
  </ul>
  <p class="lead">Intro <b>bold</b></p>
  <div class="inner"><p>Nested</p></div>
</div>
<p id="footer">Footer</p>
</body></html>`

func texts(nodes []dom.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.GetText("", true)
	}
	return out
}

func TestSelect(t *testing.T) {
	doc := dom.Parse(page)
	root := doc.Root()

	tests := []struct {
		sel  string
		want []string
	}{
		{"a", []string{"Home", "About", "Deep"}},
		{"li > a", []string{"Home", "About"}},
		{"li a", []string{"Home", "About", "Deep"}},
		{"ul.nav li.active a", []string{"Home"}},
		{".item", []string{"Home", "About"}},
		{"#footer", []string{"Footer"}},
		{"p#footer", []string{"Footer"}},
		{"div p", []string{"Introbold", "Nested"}},
		{"#main > p", []string{"Introbold"}},
		{"div > div > p", []string{"Nested"}},
		{"[rel]", []string{"Deep"}},
		{`a[href="/about"]`, []string{"About"}},
		{"a[href='/deep']", []string{"Deep"}},
		{"a[data-x=1]", []string{"Home"}},
		{"[ href = '/home' ]", []string{"Home"}},
		{".content.wide > h1", []string{"Title"}},
		{"body *.lead", []string{"Introbold"}},
		{"DIV.inner P", []string{"Nested"}},
		{"section p", nil},
	}

	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			s, err := Parse(tt.sel)
			if err != nil {
				t.Fatalf("Failed to parse %q: %v", tt.sel, err)
			}
			if got := texts(s.Select(root)); !slices.Equal(got, tt.want) {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSelectUniversal(t *testing.T) {
	doc := dom.Parse(`<div><p>a</p><span>b</span></div>`)
	got := MustParse("div > *").Select(doc.Root())
	if len(got) != 2 {
		t.Errorf("Expected 2 children, got %d", len(got))
	}
}

func TestSelectScopedToDescendants(t *testing.T) {
	doc := dom.Parse(page)
	inner, ok := doc.Root().Find(dom.Compound{dom.Class("inner")})
	if !ok {
		t.Fatal("Expected .inner")
	}
	// ancestors outside the scope may still satisfy earlier steps
	got := texts(MustParse("#main p").Select(inner))
	if !slices.Equal(got, []string{"Nested"}) {
		t.Errorf("Expected [Nested], got %q", got)
	}
	// the scope itself is never a candidate
	if got := MustParse("div").Select(inner); len(got) != 0 {
		t.Errorf("Expected no matches, got %d", len(got))
	}
}

func TestChildSubsetOfDescendant(t *testing.T) {
	doc := dom.Parse(page)
	pairs := [][2]string{
		{"li > a", "li a"},
		{"div > p", "div p"},
		{"#main > ul > li", "#main ul li"},
		{"body > div > div > p", "body div div p"},
	}
	for _, pair := range pairs {
		child := MustParse(pair[0]).Select(doc.Root())
		desc := MustParse(pair[1]).Select(doc.Root())
		for _, n := range child {
			if !slices.Contains(desc, n) {
				t.Errorf("%q matched node %d not matched by %q", pair[0], n.ID(), pair[1])
			}
		}
	}
}

func TestSelectDocumentOrder(t *testing.T) {
	doc := dom.Parse(`<div><div><p>1</p></div><p>2</p></div><p>3</p>`)
	got := MustParse("div p").Select(doc.Root())
	if len(got) != 2 {
		t.Fatalf("Expected 2 unique matches, got %d", len(got))
	}
	if got[0].Position() >= got[1].Position() {
		t.Error("Expected matches in document order")
	}
}

func TestSelectOne(t *testing.T) {
	doc := dom.Parse(page)
	n, ok, err := SelectOne(doc.Root(), "li a")
	if err != nil || !ok || n.Text() != "Home" {
		t.Errorf("Expected first link, got %v %v", ok, err)
	}
	if _, ok, err := SelectOne(doc.Root(), "table"); ok || err != nil {
		t.Errorf("Expected no match and no error, got %v %v", ok, err)
	}
	if _, _, err := SelectOne(doc.Root(), "a:hover"); !errors.Is(err, ErrSyntax) {
		t.Errorf("Expected syntax error, got %v", err)
	}
}

func TestMatch(t *testing.T) {
	doc := dom.Parse(page)
	s := MustParse("ul > li.item")
	var matched int
	for _, n := range doc.Ordered() {
		if s.Match(n) {
			matched++
		}
	}
	if matched != 2 {
		t.Errorf("Expected 2 matching nodes, got %d", matched)
	}
	if s.Match(doc.Root()) {
		t.Error("Expected document node never to match")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		sel    string
		offset int
	}{
		{"", 0},
		{"   ", 0},
		{"> p", 0},
		{"div >", 4},
		{"div > > p", 6},
		{"div + p", 4},
		{"div ~ p", 4},
		{"div, p", 3},
		{"a:hover", 1},
		{"div[", 3},
		{"[href", 0},
		{`a[href="x]`, 7},
		{"a[href=x", 1},
		{"a[href~=x]", 6},
		{"div]", 3},
		{".", 1},
		{"#", 1},
		{"div(", 3},
		{"[=x]", 1},
	}

	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			_, err := Parse(tt.sel)
			if err == nil {
				t.Fatalf("Expected %q to be rejected", tt.sel)
			}
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("Expected ErrSyntax, got %v", err)
			}
			var synErr *SyntaxError
			if !errors.As(err, &synErr) {
				t.Fatalf("Expected *SyntaxError, got %T", err)
			}
			if synErr.Selector != tt.sel {
				t.Errorf("Expected selector %q in error, got %q", tt.sel, synErr.Selector)
			}
			if synErr.Offset != tt.offset {
				t.Errorf("Expected offset %d, got %d (%v)", tt.offset, synErr.Offset, err)
			}
			if synErr.Reason == "" {
				t.Error("Expected a reason")
			}
		})
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected MustParse to panic")
		}
	}()
	MustParse("a >")
}

func TestString(t *testing.T) {
	tests := map[string]string{
		"div   p":         "div p",
		"ul>li":           "ul > li",
		"A.x#y[z][w='v']": `a.x#y[z][w="v"]`,
		"*":               "*",
		"*.only":          ".only",
	}
	for in, want := range tests {
		if got := MustParse(in).String(); got != want {
			t.Errorf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestCompileCache(t *testing.T) {
	a, err := Compile("div.cached > p")
	if err != nil {
		t.Fatalf("Failed to compile: %v", err)
	}
	b, _ := Compile("div.cached > p")
	if a != b {
		t.Error("Expected cached selector to be reused")
	}
	if _, err := Compile("div >"); err == nil {
		t.Error("Expected error from Compile")
	}
}

// TestAgainstCascadia cross-checks results with an independent engine
func TestAgainstCascadia(t *testing.T) {
	doc := dom.Parse(page)
	root, index := doc.HTMLTree()

	selectors := []string{
		"a",
		"li > a",
		"div p",
		"ul li a",
		".item",
		"#main > ul > li",
		"li.item.active",
		"[href]",
		`a[href="/about"]`,
		"div > div > p",
		"body *",
		"span > a[rel]",
	}

	for _, sel := range selectors {
		t.Run(sel, func(t *testing.T) {
			ref := cascadia.MustCompile(sel)
			var want []dom.NodeID
			for _, hn := range cascadia.QueryAll(root, ref) {
				want = append(want, index[hn])
			}

			var got []dom.NodeID
			for _, n := range MustParse(sel).Select(doc.Root()) {
				got = append(got, n.ID())
			}

			if !slices.Equal(got, want) {
				t.Errorf("Expected %v, got %v", want, got)
			}
		})
	}
}
