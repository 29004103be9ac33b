package selector

import (
	"errors"
	"fmt"
)

// ErrSyntax is matched by every selector parse failure
var ErrSyntax = errors.New("invalid selector syntax")

// SyntaxError locates a parse failure within the selector text
type SyntaxError struct {
	Selector string
	Fragment string // input remaining at Offset, truncated
	Offset   int
	Reason   string
}

func (e *SyntaxError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("invalid selector %q at offset %d: %s", e.Selector, e.Offset, e.Reason)
	}
	return fmt.Sprintf("invalid selector %q at offset %d near %q: %s", e.Selector, e.Offset, e.Fragment, e.Reason)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

const maxFragment = 16

func syntaxError(sel string, offset int, reason string) *SyntaxError {
	frag := ""
	if offset < len(sel) {
		frag = sel[offset:]
		if len(frag) > maxFragment {
			frag = frag[:maxFragment]
		}
	}
	return &SyntaxError{Selector: sel, Fragment: frag, Offset: offset, Reason: reason}
}
