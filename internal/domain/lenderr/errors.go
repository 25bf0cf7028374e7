// Package lenderr is the error taxonomy of the lending core. Every failure a
// caller can act on is a *Error of one Kind, matched with errors.Is against
// the sentinels below.
package lenderr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind classifies a lending error.
type Kind int

const (
	// KindValidation is malformed or out-of-range input, raised before any state change.
	KindValidation Kind = iota + 1
	// KindNotFound is an unknown loan, product, customer or record.
	KindNotFound
	// KindStateConflict is an operation not allowed in the loan's current state.
	KindStateConflict
	// KindConsistency is a broken ledger invariant detected after a mutation.
	KindConsistency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindStateConflict:
		return "state conflict"
	case KindConsistency:
		return "consistency"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrStateConflict = &Error{Kind: KindStateConflict}
	ErrConsistency   = &Error{Kind: KindConsistency}
)

// Error carries enough context to diagnose a rejected operation.
type Error struct {
	Kind   Kind
	LoanID string
	Field  string
	Amount *decimal.Decimal
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.LoanID != "" {
		fmt.Fprintf(&b, " [loan %s]", e.LoanID)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " %s", e.Field)
	}
	if e.Msg != "" {
		fmt.Fprintf(&b, ": %s", e.Msg)
	}
	if e.Amount != nil {
		fmt.Fprintf(&b, " (amount %s)", e.Amount.StringFixed(2))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so sentinels compare by kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// WithLoan returns a copy tagged with the loan id.
func (e *Error) WithLoan(loanID string) *Error {
	c := *e
	c.LoanID = loanID
	return &c
}

// WithAmount returns a copy tagged with the offending amount.
func (e *Error) WithAmount(amount decimal.Decimal) *Error {
	c := *e
	c.Amount = &amount
	return &c
}

func newError(kind Kind, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Validation reports invalid input for field.
func Validation(field, format string, args ...any) *Error {
	return newError(KindValidation, field, format, args...)
}

// NotFound reports a missing entity.
func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Field: entity, Msg: fmt.Sprintf("%q does not exist", id)}
}

// StateConflict reports an operation the current state does not allow.
func StateConflict(format string, args ...any) *Error {
	return newError(KindStateConflict, "", format, args...)
}

// Consistency reports a broken invariant.
func Consistency(format string, args ...any) *Error {
	return newError(KindConsistency, "", format, args...)
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
