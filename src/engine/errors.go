package engine

import (
	"errors"
	"fmt"
)

// ErrKind classifies a pipeline failure. Every failure appended to a
// context's error trace carries exactly one kind.
type ErrKind int

const (
	// KindValidation covers malformed, empty, or oversized input caught
	// before or during initialization.
	KindValidation ErrKind = iota
	// KindState is an illegal phase transition. Always an implementation
	// bug, never a data condition.
	KindState
	// KindThreat is a critical pattern match (prompt injection), pre- or
	// post-sanitization.
	KindThreat
	// KindResourceLimit is a size, per-pattern budget, or amplification
	// boundary breach.
	KindResourceLimit
	// KindTimeout is the whole-pipeline budget being exceeded.
	KindTimeout
	// KindInternal wraps anything unanticipated.
	KindInternal
)

func (k ErrKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindThreat:
		return "threat_detected"
	case KindResourceLimit:
		return "resource_limit"
	case KindTimeout:
		return "execution_timeout"
	default:
		return "internal"
	}
}

// Error is a classified pipeline failure. Phases return these instead
// of panicking; the controller inspects the kind to fill the error trace.
type Error struct {
	Kind    ErrKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// errPatternBudget signals that a single pattern evaluation exceeded its
// per-pattern budget. The scanner tolerates it; the sanitizer does not.
var errPatternBudget = errors.New("pattern evaluation exceeded budget")

// classify maps an arbitrary error to its taxonomy kind. Unclassified
// errors are internal by definition.
func classify(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
