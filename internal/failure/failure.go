// Package failure defines the injection error taxonomy shared by focus, injection, and validation.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies one injection failure.
type Kind string

const (
	KindNone                     Kind = ""
	KindTargetNotRunning         Kind = "target_not_running"
	KindNoVisibleWindow          Kind = "no_visible_window"
	KindFocusNotConfirmed        Kind = "focus_not_confirmed"
	KindEmissionRejected         Kind = "emission_rejected"
	KindTargetBecameUnresponsive Kind = "target_became_unresponsive"
	KindVerificationInconclusive Kind = "verification_inconclusive"
	KindRetryBudgetExhausted     Kind = "retry_budget_exhausted"
)

var (
	ErrTargetNotRunning         = &Error{Kind: KindTargetNotRunning}
	ErrNoVisibleWindow          = &Error{Kind: KindNoVisibleWindow}
	ErrFocusNotConfirmed        = &Error{Kind: KindFocusNotConfirmed}
	ErrEmissionRejected         = &Error{Kind: KindEmissionRejected}
	ErrTargetBecameUnresponsive = &Error{Kind: KindTargetBecameUnresponsive}
	ErrVerificationInconclusive = &Error{Kind: KindVerificationInconclusive}
	ErrRetryBudgetExhausted     = &Error{Kind: KindRetryBudgetExhausted}
)

// Error is a classified injection failure. Err carries the underlying cause.
type Error struct {
	Kind   Kind
	Target string
	Err    error
}

// New builds a classified error with a formatted cause.
func New(kind Kind, target string, format string, args ...any) *Error {
	return &Error{Kind: kind, Target: target, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. A nil err yields a bare classified error.
func Wrap(kind Kind, target string, err error) *Error {
	return &Error{Kind: kind, Target: target, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(kindText(e.Kind))
	if e.Target != "" {
		b.WriteString(" (")
		b.WriteString(e.Target)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind && other.Target == "" && other.Err == nil
}

// KindOf returns the outermost classification found in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindEmissionRejected
}

// Retryable reports whether a retry could change the outcome.
func Retryable(kind Kind) bool {
	switch kind {
	case KindNone, KindTargetNotRunning, KindRetryBudgetExhausted:
		return false
	default:
		return true
	}
}

func kindText(kind Kind) string {
	switch kind {
	case KindTargetNotRunning:
		return "target not running"
	case KindNoVisibleWindow:
		return "no visible window"
	case KindFocusNotConfirmed:
		return "focus not confirmed"
	case KindEmissionRejected:
		return "emission rejected"
	case KindTargetBecameUnresponsive:
		return "target became unresponsive"
	case KindVerificationInconclusive:
		return "verification inconclusive"
	case KindRetryBudgetExhausted:
		return "retry budget exhausted"
	case KindNone:
		return "no failure"
	default:
		return string(kind)
	}
}
