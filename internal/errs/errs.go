// Package errs defines the structured error kinds analyses and
// transformations in brilopt raise, per the error handling design: callers
// distinguish malformed input, internal loop-classification signals, and
// dominator-computation bugs via errors.As rather than string matching.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// MalformedIR reports an IR dictionary or Function that violates one of
// the invariants in the data model: a missing required field, a duplicate
// label, a terminator referencing an undefined label, a block with more
// than one terminator, or an LVN argument used before it is defined in its
// block.
type MalformedIR struct {
	Reason string
	Cause  error
}

func (e *MalformedIR) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed IR: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("malformed IR: %s", e.Reason)
}

func (e *MalformedIR) Unwrap() error { return e.Cause }

// NewMalformedIR builds a MalformedIR with no underlying cause.
func NewMalformedIR(format string, args ...interface{}) *MalformedIR {
	return &MalformedIR{Reason: fmt.Sprintf(format, args...)}
}

// WrapMalformedIR builds a MalformedIR around a lower-level cause, keeping
// the pkg/errors stack trace attached to cause alive through Unwrap.
func WrapMalformedIR(cause error, format string, args ...interface{}) *MalformedIR {
	return &MalformedIR{Reason: fmt.Sprintf(format, args...), Cause: errors.WithStack(cause)}
}

// NotANaturalLoop signals that a back-edge tail->header does not form a
// natural loop because header does not dominate tail. It is raised and
// caught entirely within internal/analysis; it must never escape that
// package.
type NotANaturalLoop struct {
	Header int
	Tail   int
}

func (e *NotANaturalLoop) Error() string {
	return fmt.Sprintf("block %d is not dominated by header %d, so the back-edge %d->%d is not a natural loop", e.Tail, e.Header, e.Tail, e.Header)
}

// InvariantViolation reports that a dominator-tree parent candidate set had
// more than one member, which indicates either a bug in dominator
// computation or a malformed CFG (e.g. one built outside internal/cfg).
type InvariantViolation struct {
	Node       int
	Candidates []int
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("node %d has %d dominator-tree parent candidates %v, expected at most 1", e.Node, len(e.Candidates), e.Candidates)
}
