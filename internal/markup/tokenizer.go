// Package markup turns raw markup into a stream of structural tokens.
// Two syntax modes are supported: lenient HTML and strict XML. Neither mode
// ever fails; malformed input is repaired locally and tokenizing continues.
package markup

import "strings"

// Mode selects the tokenizer implementation
type Mode int

const (
	// ModeHTML is the lenient HTML tokenizer (default)
	ModeHTML Mode = iota
	// ModeXML is the strict XML tokenizer
	ModeXML
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeXML:
		return "xml"
	default:
		return "html"
	}
}

// ParseMode converts a mode name to a Mode. Unknown names map to ModeHTML.
func ParseMode(name string) Mode {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "xml", "xhtml":
		return ModeXML
	default:
		return ModeHTML
	}
}

// TokenType identifies the kind of a structural event
type TokenType int

const (
	StartTagToken TokenType = iota
	EndTagToken
	TextToken
	CommentToken
	DoctypeToken
)

func (t TokenType) String() string {
	switch t {
	case StartTagToken:
		return "StartTag"
	case EndTagToken:
		return "EndTag"
	case TextToken:
		return "Text"
	case CommentToken:
		return "Comment"
	case DoctypeToken:
		return "Doctype"
	}
	return "Unknown"
}

// Attribute is a single name/value pair on a start tag
type Attribute struct {
	Name  string
	Value string
}

// Token is one structural event produced by a Tokenizer
type Token struct {
	Type        TokenType
	Name        string      // tag name, lowercase (start and end tags)
	Attrs       []Attribute // unique names, first occurrence wins
	SelfClosing bool        // start tag written as <name/>
	Data        string      // text, comment or doctype payload
}

// Tokenizer produces the next structural event from its input cursor.
// The second return value is false once the input is exhausted.
type Tokenizer interface {
	Next() (Token, bool)
}

// NewTokenizer returns a tokenizer over src for the given mode.
// Constructing a new tokenizer over the same string restarts from scratch.
func NewTokenizer(src string, mode Mode) Tokenizer {
	if mode == ModeXML {
		return newXMLTokenizer(src)
	}
	return newHTMLTokenizer(src)
}

// Tokens drains a fresh tokenizer into a slice
func Tokens(src string, mode Mode) []Token {
	var tokens []Token
	t := NewTokenizer(src, mode)
	for {
		tok, ok := t.Next()
		if !ok {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

// dedupeAttrs drops repeated attribute names keeping the first value
func dedupeAttrs(attrs []Attribute) []Attribute {
	if len(attrs) < 2 {
		return attrs
	}
	seen := make(map[string]bool, len(attrs))
	out := attrs[:0]
	for _, a := range attrs {
		if seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		out = append(out, a)
	}
	return out
}
