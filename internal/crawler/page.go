package crawler

import (
	"fmt"
	"mime"
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/pyscout/scout/internal/dom"
	"github.com/pyscout/scout/internal/markup"
	"github.com/pyscout/scout/internal/selector"
)

var (
	linkSelector      = selector.MustParse("a[href]")
	metaSelector      = selector.MustParse("head meta[name][content]")
	canonicalSelector = selector.MustParse("head link[rel=canonical][href]")
)

// Canonicalize resolves ref against base and normalizes the result: fragment
// dropped, scheme and host lowercased, default port removed, empty path as "/".
// base may be nil when ref is absolute.
func Canonicalize(ref string, base *url.URL) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return u, nil
}

// RegistrableDomain returns the eTLD+1 of host. IP addresses and names
// without a public suffix are returned as is.
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if net.ParseIP(host) != nil {
		return host
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

// urlFilter decides which discovered URLs may enter the frontier
type urlFilter struct {
	domain  string
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

func newURLFilter(seed *url.URL, include, exclude []string) (*urlFilter, error) {
	f := &urlFilter{domain: RegistrableDomain(seed.Hostname())}
	var err error
	if f.include, err = compilePatterns(include); err != nil {
		return nil, err
	}
	if f.exclude, err = compilePatterns(exclude); err != nil {
		return nil, err
	}
	return f, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// sameDomain reports whether u is http(s) under the seed's registrable domain
func (f *urlFilter) sameDomain(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Hostname() != "" && RegistrableDomain(u.Hostname()) == f.domain
}

// allow applies the domain rule and the include and exclude patterns
func (f *urlFilter) allow(u *url.URL) (bool, string) {
	if !f.sameDomain(u) {
		return false, "off-domain"
	}
	s := u.String()
	if len(f.include) > 0 && !matchesAny(f.include, s) {
		return false, "not included"
	}
	if matchesAny(f.exclude, s) {
		return false, "excluded"
	}
	return true, ""
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// parseMode picks the tree builder mode for a Content-Type. ok is false for
// bodies that are not markup.
func parseMode(contentType string) (mode markup.Mode, ok bool) {
	if contentType == "" {
		return markup.ModeHTML, true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return markup.ModeHTML, true
	}
	switch {
	case mt == "text/html" || mt == "application/xhtml+xml":
		return markup.ModeHTML, true
	case mt == "text/xml" || mt == "application/xml" || strings.HasSuffix(mt, "+xml"):
		return markup.ModeXML, true
	}
	return markup.ModeHTML, false
}

// processPage fills r from a successful response body
func processPage(r *Record, resp *Response, tagsToRemove []string, filter *urlFilter) {
	mode, ok := parseMode(resp.ContentType)
	if !ok {
		return
	}

	decoded := markup.Decode(resp.Body, "", resp.ContentType)
	doc := dom.Parse(decoded.Text, dom.WithMode(mode))
	root := doc.Root()

	base, err := url.Parse(resp.FinalURL)
	if err != nil || resp.FinalURL == "" {
		base, _ = url.Parse(r.URL)
	}
	r.Links = extractLinks(root, base, filter)
	extractMeta(r, root, base)

	pruneTags(root, tagsToRemove)

	if title, ok := root.Find(dom.Tag("title")); ok {
		r.Title = strings.Join(strings.Fields(title.Text()), " ")
	}
	body := root
	if b, ok := root.Find(dom.Tag("body")); ok {
		body = b
	}
	r.Text = body.GetText(" ", true)
	r.Document = doc
}

// extractLinks returns the distinct same-domain anchors of root in document order
func extractLinks(root dom.Node, base *url.URL, filter *urlFilter) []string {
	var links []string
	seen := make(map[string]bool)
	for _, a := range linkSelector.Select(root) {
		href, _ := a.Attr("href")
		u, err := Canonicalize(href, base)
		if err != nil || !filter.sameDomain(u) {
			continue
		}
		s := u.String()
		if !seen[s] {
			seen[s] = true
			links = append(links, s)
		}
	}
	return links
}

// extractMeta fills the description, robots and canonical fields from head
func extractMeta(r *Record, root dom.Node, base *url.URL) {
	for _, m := range metaSelector.Select(root) {
		content := strings.TrimSpace(m.AttrOr("content", ""))
		switch strings.ToLower(m.AttrOr("name", "")) {
		case "description":
			if r.Description == "" {
				r.Description = content
			}
		case "robots":
			if r.Robots == "" {
				r.Robots = content
			}
		}
	}
	if links := canonicalSelector.Select(root); len(links) > 0 {
		if u, err := Canonicalize(links[0].AttrOr("href", ""), base); err == nil {
			r.Canonical = u.String()
		}
	}
}

func pruneTags(root dom.Node, tags []string) {
	for _, tag := range tags {
		for _, n := range root.FindAll(dom.Tag(tag), 0) {
			// an earlier removal may already have taken n's ancestor
			if n.Attached() {
				_ = n.Remove()
			}
		}
	}
}
