package billing

import (
	"errors"
	"fmt"
)

// ErrInvariant marks a computed value that can only come from a defect, such
// as a negative bill total. It is never clamped or retried.
var ErrInvariant = errors.New("billing: internal invariant violated")

// ValidationError reports caller input that cannot be billed. No state is
// changed when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports an unknown household or bill reference.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// PersistenceError wraps a failed storage operation. When Op is the bill
// insert, no bill was created.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("billing: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
