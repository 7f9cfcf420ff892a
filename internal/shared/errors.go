package shared

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so transports can map it uniformly.
type Kind string

const (
	// KindValidation indicates malformed input; never retried automatically.
	KindValidation Kind = "validation"
	// KindStateConflict indicates an illegal transition given the current state.
	KindStateConflict Kind = "state_conflict"
	// KindInvariantViolation indicates a rejected write that would break a ledger invariant.
	KindInvariantViolation Kind = "invariant_violation"
	// KindConcurrencyConflict indicates a lost race; the caller should re-fetch and retry.
	KindConcurrencyConflict Kind = "concurrency_conflict"
	// KindNotFound indicates an unknown identifier.
	KindNotFound Kind = "not_found"
)

// Error is the domain error carried across module boundaries.
type Error struct {
	Kind    Kind
	Rule    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Rule, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Validationf builds a validation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// StateConflictf builds a state conflict error naming the violated rule.
func StateConflictf(rule, format string, args ...any) *Error {
	return &Error{Kind: KindStateConflict, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// Invariantf builds an invariant violation error naming the violated rule.
func Invariantf(rule, format string, args ...any) *Error {
	return &Error{Kind: KindInvariantViolation, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a concurrency conflict error.
func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConcurrencyConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
