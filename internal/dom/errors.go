package dom

import "errors"

// ErrTreeMutation is matched by every rejected tree mutation
var ErrTreeMutation = errors.New("invalid tree mutation")

// MutationError describes why a mutation was rejected. The tree is left
// unchanged whenever one is returned.
type MutationError struct {
	Op     string
	Reason string
}

func (e *MutationError) Error() string {
	return e.Op + ": " + e.Reason
}

func (e *MutationError) Unwrap() error {
	return ErrTreeMutation
}

func mutationError(op, reason string) error {
	return &MutationError{Op: op, Reason: reason}
}
