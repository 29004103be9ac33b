package markup

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlTokenizer adapts the x/net/html tokenizer. It already handles raw-text
// elements, entity decoding, stray '<' and unterminated tags.
type htmlTokenizer struct {
	z    *html.Tokenizer
	done bool
}

func newHTMLTokenizer(src string) *htmlTokenizer {
	return &htmlTokenizer{z: html.NewTokenizer(strings.NewReader(src))}
}

// Next returns the next token
func (t *htmlTokenizer) Next() (Token, bool) {
	for !t.done {
		tt := t.z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a truncated construct at the end of input
			t.done = true

		case html.TextToken:
			tok := t.z.Token()
			if tok.Data == "" {
				continue
			}
			return Token{Type: TextToken, Data: tok.Data}, true

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := t.z.Token()
			return Token{
				Type:        StartTagToken,
				Name:        strings.ToLower(tok.Data),
				Attrs:       convertHTMLAttrs(tok.Attr),
				SelfClosing: tt == html.SelfClosingTagToken,
			}, true

		case html.EndTagToken:
			tok := t.z.Token()
			return Token{Type: EndTagToken, Name: strings.ToLower(tok.Data)}, true

		case html.CommentToken:
			tok := t.z.Token()
			return Token{Type: CommentToken, Data: tok.Data}, true

		case html.DoctypeToken:
			tok := t.z.Token()
			return Token{Type: DoctypeToken, Data: tok.Data}, true
		}
	}
	return Token{}, false
}

func convertHTMLAttrs(attrs []html.Attribute) []Attribute {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		out = append(out, Attribute{Name: strings.ToLower(name), Value: a.Val})
	}
	return dedupeAttrs(out)
}
