// Package scrape orchestrates extraction strategies per employer source
// with cascading fallback, bounded concurrency, and per-company time boxes.
package scrape

import (
	"errors"
	"fmt"
)

// ErrNotApplicable marks a strategy whose preconditions are not met for a
// company. The engine skips it without penalty.
var ErrNotApplicable = errors.New("strategy not applicable")

// Kind classifies a scraping failure.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindParse          Kind = "parse"
	KindRateLimit      Kind = "rate_limit"
	KindAuthentication Kind = "authentication"
	KindBotBlock       Kind = "bot_block"
	KindTimeout        Kind = "timeout"
)

// Retryable reports whether failures of this kind are worth retrying with
// backoff within the same run. Parse and authentication failures indicate a
// strategy mismatch, not transience.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindRateLimit, KindTimeout:
		return true
	default:
		return false
	}
}

// Error is a classified scraping failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError creates a classified error.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an error chain. Unclassified errors
// report as network failures, the most conservative retryable kind.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindNetwork
}
