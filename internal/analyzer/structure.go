package analyzer

import (
	"github.com/pyscout/scout/internal/dom"
)

// PageStructure is the tag distribution and depth histogram of a tree.
// Top-level elements are at depth 0.
type PageStructure struct {
	Tags     map[string]int `json:"tags"`
	Depths   map[int]int    `json:"depths"`
	MaxDepth int            `json:"max_depth"`
	Elements int            `json:"elements"`
}

// ListInfo describes one ul/ol element
type ListInfo struct {
	Ordered bool `json:"ordered"`
	Items   int  `json:"items"`
}

// TableInfo describes one table element. Columns is the widest row.
type TableInfo struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// SemanticInfo groups headings, lists and tables found in a tree
type SemanticInfo struct {
	Headings map[int][]string `json:"headings"`
	Lists    []ListInfo       `json:"lists"`
	Tables   []TableInfo      `json:"tables"`
}

// AnalyzePageStructure counts element tags and depths in one pre-order pass
func AnalyzePageStructure(doc *dom.Document) PageStructure {
	ps := PageStructure{
		Tags:   make(map[string]int),
		Depths: make(map[int]int),
	}
	for _, n := range doc.Ordered() {
		if !n.IsElement() {
			continue
		}
		ps.Elements++
		ps.Tags[n.Tag()]++
		d := n.Depth()
		ps.Depths[d]++
		if d > ps.MaxDepth {
			ps.MaxDepth = d
		}
	}
	return ps
}

var headingLevels = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

// ExtractSemanticInfo classifies headings, lists and tables by tag name
func ExtractSemanticInfo(doc *dom.Document) SemanticInfo {
	info := SemanticInfo{Headings: make(map[int][]string)}
	for _, n := range doc.Ordered() {
		if !n.IsElement() {
			continue
		}
		tag := n.Tag()
		if level, ok := headingLevels[tag]; ok {
			info.Headings[level] = append(info.Headings[level], n.GetText(" ", true))
			continue
		}
		switch tag {
		case "ul", "ol":
			items := 0
			for _, c := range n.Children() {
				if c.Tag() == "li" {
					items++
				}
			}
			info.Lists = append(info.Lists, ListInfo{Ordered: tag == "ol", Items: items})
		case "table":
			info.Tables = append(info.Tables, tableInfo(n))
		}
	}
	return info
}

// tableInfo measures the rows that belong to table itself, not to nested tables
func tableInfo(table dom.Node) TableInfo {
	var ti TableInfo
	rows := table.FindAll(dom.Compound{dom.Tag("tr")}, 0)
	for _, row := range rows {
		owner, ok := row.FindParent(dom.Compound{dom.Tag("table")})
		if !ok || owner != table {
			continue
		}
		ti.Rows++
		cells := 0
		for _, c := range row.Children() {
			if t := c.Tag(); t == "td" || t == "th" {
				cells++
			}
		}
		if cells > ti.Columns {
			ti.Columns = cells
		}
	}
	return ti
}
