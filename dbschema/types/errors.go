package types

import (
	"context"
	"errors"
	"fmt"
)

// Describer reads a live database into a schema snapshot.
type Describer interface {
	Describe(ctx context.Context) (*Schema, error)
}

// ErrMalformedCatalog marks catalog output that contradicts the dialect's
// documented shape (an absent expected column, a malformed discriminator).
// This is an invariant violation, not a retryable condition, and must never
// be silently worked around.
var ErrMalformedCatalog = errors.New("malformed catalog output")

// DescribeError wraps a failure during introspection with the diagnostic
// context captured at the failure site.
type DescribeError struct {
	// Op names the introspection phase, e.g. "read columns".
	Op string
	// Table is the table being described, when the phase is table-scoped.
	Table string
	Err   error
}

func (e *DescribeError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("failed to %s for table %q: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *DescribeError) Unwrap() error {
	return e.Err
}

// CrossSchemaReferenceError reports a foreign key pointing outside the
// described schema. It is surfaced explicitly rather than silently dropped,
// because enforcement semantics differ by dialect.
type CrossSchemaReferenceError struct {
	From       string
	To         string
	Constraint string
}

func (e *CrossSchemaReferenceError) Error() string {
	return fmt.Sprintf("illegal cross schema reference from %q to %q in constraint %q", e.From, e.To, e.Constraint)
}
