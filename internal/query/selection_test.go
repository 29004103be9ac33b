package query

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/pyscout/scout/internal/dom"
	"github.com/pyscout/scout/internal/selector"
)

const catalog = `<div class="catalog">
  <div class="item" data-sku="a1"><h2>Widget</h2><span class="price">3</span></div>
  <div class="item" data-sku="b2"><h2>Gadget</h2><span class="price">12</span></div>
  <div class="item"><h2>Gizmo</h2><span class="price">7</span></div>
</div>`

func TestSelectAndTexts(t *testing.T) {
	doc := dom.Parse(catalog)
	sel, err := Select(doc.Root(), ".item h2")
	if err != nil {
		t.Fatalf("Failed to select: %v", err)
	}
	if got := sel.Texts(" "); !slices.Equal(got, []string{"Widget", "Gadget", "Gizmo"}) {
		t.Errorf("Unexpected texts: %v", got)
	}
	if sel.Len() != 3 {
		t.Errorf("Expected 3 matches, got %d", sel.Len())
	}
}

func TestSelectSyntaxError(t *testing.T) {
	doc := dom.Parse(catalog)
	if _, err := Select(doc.Root(), "div >"); !errors.Is(err, selector.ErrSyntax) {
		t.Errorf("Expected syntax error, got %v", err)
	}
}

func TestAttrs(t *testing.T) {
	doc := dom.Parse(catalog)
	sel, _ := Select(doc.Root(), ".item")

	got := sel.Attrs("data-sku")
	want := []AttrValue{{"a1", true}, {"b2", true}, {"", false}}
	if !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestFilterAndMap(t *testing.T) {
	doc := dom.Parse(catalog)
	prices, _ := Select(doc.Root(), "span.price")

	expensive := prices.Filter(func(n dom.Node) bool {
		return len(n.Text()) > 1
	})
	if got := expensive.Texts(""); !slices.Equal(got, []string{"12"}) {
		t.Errorf("Expected [12], got %v", got)
	}

	lengths := Map(prices, func(n dom.Node) int { return len(n.Text()) })
	if !slices.Equal(lengths, []int{1, 2, 1}) {
		t.Errorf("Expected [1 2 1], got %v", lengths)
	}
}

func TestRefineSelect(t *testing.T) {
	doc := dom.Parse(catalog)
	items, _ := Select(doc.Root(), ".catalog, .item")
	if items != nil {
		t.Fatal("Expected groups to be rejected")
	}

	items, _ = Select(doc.Root(), "div")
	// nested divs produce overlapping matches; the union is deduplicated
	spans, err := items.Select("span")
	if err != nil {
		t.Fatalf("Failed to refine: %v", err)
	}
	if spans.Len() != 3 {
		t.Errorf("Expected 3 unique spans, got %d", spans.Len())
	}

	none, err := items.Select("table")
	if err != nil || none.Len() != 0 {
		t.Errorf("Expected empty refinement, got %d %v", none.Len(), err)
	}
}

func TestSelectOneAndFirst(t *testing.T) {
	doc := dom.Parse(catalog)
	one, err := SelectOne(doc.Root(), "h2")
	if err != nil {
		t.Fatalf("Failed to select: %v", err)
	}
	n, ok := one.First()
	if !ok || n.Text() != "Widget" || one.Len() != 1 {
		t.Error("Expected the first heading only")
	}

	empty, err := SelectOne(doc.Root(), "table")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := empty.First(); ok || empty.Len() != 0 {
		t.Error("Expected empty selection")
	}
}

func TestFindAllAndEach(t *testing.T) {
	doc := dom.Parse(catalog)
	sel := FindAll(doc.Root(), dom.By("h2", nil), 2)

	var seen []string
	sel.Each(func(i int, n dom.Node) {
		seen = append(seen, strings.Repeat("#", i+1)+n.Text())
	})
	if !slices.Equal(seen, []string{"#Widget", "##Gadget"}) {
		t.Errorf("Unexpected iteration: %v", seen)
	}
}

func TestFromOrdersAndDeduplicates(t *testing.T) {
	doc := dom.Parse(catalog)
	all := doc.Root().FindAll(dom.By("h2", nil), 0)
	sel := From([]dom.Node{all[2], all[0], all[2], all[1]})

	if got := sel.Texts(""); !slices.Equal(got, []string{"Widget", "Gadget", "Gizmo"}) {
		t.Errorf("Expected document order without duplicates, got %v", got)
	}
}

func TestDetachedNodesDropOut(t *testing.T) {
	doc := dom.Parse(catalog)
	sel, _ := Select(doc.Root(), ".item")
	first, _ := sel.First()

	if err := first.Remove(); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	if sel.Len() != 2 {
		t.Errorf("Expected detached node to be dropped, got %d", sel.Len())
	}
	if got := sel.Attrs("data-sku"); len(got) != 2 || got[0].Value != "b2" {
		t.Errorf("Unexpected attrs after removal: %v", got)
	}
}

func TestAnalyzeText(t *testing.T) {
	doc := dom.Parse(`<p>Contact sales@example.com</p><p>Contact support</p><div>ignored</div>`)
	sel, _ := Select(doc.Root(), "p")

	r := sel.AnalyzeText()
	if r.Words != 6 {
		t.Errorf("Expected 6 words, got %d", r.Words)
	}
	if len(r.Entities.Emails) != 1 || r.Entities.Emails[0] != "sales@example.com" {
		t.Errorf("Expected one email, got %v", r.Entities.Emails)
	}
}
