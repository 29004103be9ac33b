package selector

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pyscout/scout/internal/dom"
)

// Parse compiles a selector string
func Parse(sel string) (*Selector, error) {
	p := &parser{src: sel}
	steps, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Selector{source: sel, steps: steps}, nil
}

// MustParse is Parse for selectors known to be valid; it panics on error
func MustParse(sel string) *Selector {
	s, err := Parse(sel)
	if err != nil {
		panic(err)
	}
	return s
}

const maxCached = 512

var cache = struct {
	sync.Mutex
	entries map[string]*Selector
}{entries: make(map[string]*Selector)}

// Compile is Parse with a process-wide cache of successfully parsed selectors
func Compile(sel string) (*Selector, error) {
	cache.Lock()
	s, ok := cache.entries[sel]
	cache.Unlock()
	if ok {
		return s, nil
	}

	s, err := Parse(sel)
	if err != nil {
		return nil, err
	}

	cache.Lock()
	if len(cache.entries) >= maxCached {
		clear(cache.entries)
	}
	cache.entries[sel] = s
	cache.Unlock()
	return s, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) fail(offset int, reason string) error {
	return syntaxError(p.src, offset, reason)
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() bool {
	start := p.pos
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
	return p.pos > start
}

func (p *parser) parse() ([]Step, error) {
	var steps []Step
	pendingChild := false
	combinatorAt := 0

	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			break
		}

		switch c := p.peek(); c {
		case '>':
			if len(steps) == 0 {
				return nil, p.fail(p.pos, "selector starts with a combinator")
			}
			if pendingChild {
				return nil, p.fail(p.pos, "consecutive combinators")
			}
			pendingChild = true
			combinatorAt = p.pos
			p.pos++
			continue
		case '+', '~':
			return nil, p.fail(p.pos, "unsupported combinator "+string(c))
		case ',':
			return nil, p.fail(p.pos, "selector groups are not supported")
		}

		compound, err := p.parseCompound()
		if err != nil {
			return nil, err
		}

		comb := Descendant
		if pendingChild {
			comb = Child
		}
		steps = append(steps, Step{Combinator: comb, Compound: compound})
		pendingChild = false

		// a compound ends at whitespace, a combinator or the end of input
		if p.pos < len(p.src) && !strings.ContainsRune(" \t\n\r\f>+~,", rune(p.peek())) {
			return nil, p.fail(p.pos, "unexpected character "+quoteByte(p.peek()))
		}
	}

	if pendingChild {
		return nil, p.fail(combinatorAt, "selector ends with a combinator")
	}
	if len(steps) == 0 {
		return nil, p.fail(0, "empty selector")
	}
	return steps, nil
}

func (p *parser) parseCompound() (dom.Compound, error) {
	start := p.pos
	var c dom.Compound

	if p.peek() == '*' {
		p.pos++
		c = append(c, dom.Tag("*"))
	} else if isNameStart(p.src, p.pos) {
		c = append(c, dom.Tag(p.readName()))
	}

	for p.pos < len(p.src) {
		switch p.peek() {
		case '.':
			p.pos++
			name := p.readName()
			if name == "" {
				return nil, p.fail(p.pos, "expected class name after '.'")
			}
			c = append(c, dom.Class(name))
		case '#':
			p.pos++
			name := p.readName()
			if name == "" {
				return nil, p.fail(p.pos, "expected id after '#'")
			}
			c = append(c, dom.ID(name))
		case '[':
			cond, err := p.parseAttr()
			if err != nil {
				return nil, err
			}
			c = append(c, cond)
		case ']':
			return nil, p.fail(p.pos, "unbalanced ']'")
		case ':':
			return nil, p.fail(p.pos, "pseudo-classes are not supported")
		default:
			if p.pos == start {
				return nil, p.fail(p.pos, "empty compound selector")
			}
			return trimUniversal(c), nil
		}
	}
	if p.pos == start {
		return nil, p.fail(p.pos, "empty compound selector")
	}
	return trimUniversal(c), nil
}

// trimUniversal drops a leading * when other conditions follow it
func trimUniversal(c dom.Compound) dom.Compound {
	if len(c) > 1 && c[0].Kind == dom.CondTag && c[0].Name == "*" {
		return c[1:]
	}
	return c
}

func (p *parser) parseAttr() (dom.Cond, error) {
	open := p.pos
	p.pos++ // [
	p.skipSpace()

	name := p.readName()
	if name == "" {
		if p.pos >= len(p.src) {
			return dom.Cond{}, p.fail(open, "unbalanced '['")
		}
		return dom.Cond{}, p.fail(p.pos, "expected attribute name")
	}
	p.skipSpace()

	switch p.peek() {
	case ']':
		p.pos++
		return dom.Has(name), nil
	case '=':
		p.pos++
	case '~', '|', '^', '$', '*':
		return dom.Cond{}, p.fail(p.pos, "unsupported attribute operator")
	case 0:
		return dom.Cond{}, p.fail(open, "unbalanced '['")
	default:
		return dom.Cond{}, p.fail(p.pos, "expected '=' or ']'")
	}

	p.skipSpace()
	var value string
	switch q := p.peek(); q {
	case '"', '\'':
		end := strings.IndexByte(p.src[p.pos+1:], q)
		if end < 0 {
			return dom.Cond{}, p.fail(p.pos, "unterminated quoted value")
		}
		value = p.src[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
	default:
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != ']' && !isSpace(p.src[p.pos]) {
			if b := p.src[p.pos]; b == '[' || b == '"' || b == '\'' {
				return dom.Cond{}, p.fail(p.pos, "unexpected character "+quoteByte(b)+" in attribute value")
			}
			p.pos++
		}
		value = p.src[start:p.pos]
		if value == "" {
			return dom.Cond{}, p.fail(p.pos, "expected attribute value")
		}
	}

	p.skipSpace()
	if p.peek() != ']' {
		return dom.Cond{}, p.fail(open, "unbalanced '['")
	}
	p.pos++
	return dom.AttrEq(name, value), nil
}

// readName consumes an identifier and returns it, or "" when none starts here
func (p *parser) readName() string {
	start := p.pos
	for p.pos < len(p.src) {
		b := p.src[p.pos]
		if b >= utf8.RuneSelf {
			_, size := utf8.DecodeRuneInString(p.src[p.pos:])
			p.pos += size
			continue
		}
		if !isNameByte(b) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func isNameStart(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	b := s[i]
	return b >= utf8.RuneSelf || b == '_' || b == '-' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func isNameByte(b byte) bool {
	return b == '_' || b == '-' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

func quoteByte(b byte) string {
	return "'" + string(rune(b)) + "'"
}
