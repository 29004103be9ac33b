package markup

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// xmlTokenizer adapts encoding/xml. RawToken does not verify element
// nesting, so structure repair is left to the tree builder. On a lexical
// error only the construct that failed is salvaged: a malformed tag (up to
// its '>') is re-read with the lenient HTML tokenizer, and malformed text
// (up to the next '<') is kept with known entities decoded. A fresh decoder
// resumes right after it.
type xmlTokenizer struct {
	src     string
	base    int // offset of the current decoder within src
	last    int // offset in src just past the last good token
	dec     *xml.Decoder
	pending []Token
	done    bool
}

func newXMLTokenizer(src string) *xmlTokenizer {
	t := &xmlTokenizer{src: src}
	t.reset(0)
	return t
}

func (t *xmlTokenizer) reset(offset int) {
	t.base = offset
	t.last = offset
	d := xml.NewDecoder(strings.NewReader(t.src[offset:]))
	d.Strict = true
	d.Entity = xml.HTMLEntity
	// Input is already decoded to UTF-8 before tokenizing
	d.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	t.dec = d
}

// Next returns the next token
func (t *xmlTokenizer) Next() (Token, bool) {
	for len(t.pending) > 0 || !t.done {
		if len(t.pending) > 0 {
			tok := t.pending[0]
			t.pending = t.pending[1:]
			return tok, true
		}
		raw, err := t.dec.RawToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				t.done = true
				break
			}
			t.recover()
			continue
		}
		t.last = t.base + int(t.dec.InputOffset())

		switch v := raw.(type) {
		case xml.StartElement:
			attrs := make([]Attribute, 0, len(v.Attr))
			for _, a := range v.Attr {
				attrs = append(attrs, Attribute{Name: xmlName(a.Name), Value: a.Value})
			}
			if len(attrs) == 0 {
				attrs = nil
			}
			return Token{Type: StartTagToken, Name: xmlName(v.Name), Attrs: dedupeAttrs(attrs)}, true

		case xml.EndElement:
			return Token{Type: EndTagToken, Name: xmlName(v.Name)}, true

		case xml.CharData:
			if len(v) == 0 {
				continue
			}
			return Token{Type: TextToken, Data: string(v)}, true

		case xml.Comment:
			return Token{Type: CommentToken, Data: string(v)}, true

		case xml.Directive:
			d := strings.TrimSpace(string(v))
			if len(d) > 7 && strings.EqualFold(d[:7], "doctype") {
				return Token{Type: DoctypeToken, Data: strings.TrimSpace(d[7:])}, true
			}
		}
		// processing instructions and other directives are dropped
	}
	return Token{}, false
}

// recover salvages the construct starting at the last good offset and
// restarts decoding after it
func (t *xmlTokenizer) recover() {
	start := t.last
	if start >= len(t.src) {
		t.done = true
		return
	}

	var end int
	if t.src[start] == '<' {
		end = len(t.src)
		if gt := strings.IndexByte(t.src[start:], '>'); gt >= 0 {
			end = start + gt + 1
		}
		ht := newHTMLTokenizer(t.src[start:end])
		for tok, ok := ht.Next(); ok; tok, ok = ht.Next() {
			t.pending = append(t.pending, tok)
		}
	} else {
		end = len(t.src)
		if lt := strings.IndexByte(t.src[start:], '<'); lt >= 0 {
			end = start + lt
		}
		t.pending = append(t.pending, Token{Type: TextToken, Data: html.UnescapeString(t.src[start:end])})
	}

	if end >= len(t.src) {
		t.done = true
		return
	}
	t.reset(end)
}

func xmlName(n xml.Name) string {
	if n.Space != "" {
		return strings.ToLower(n.Space + ":" + n.Local)
	}
	return strings.ToLower(n.Local)
}
