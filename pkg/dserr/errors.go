// Package dserr defines the closed error taxonomy used across the release
// pipeline. Domain failures in this module are returned as an *Error
// carrying one of the Kind values below (context cancellation surfaces as
// the context's own error); callers branch on Kind via errors.As, never on
// message text.
package dserr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories a caller can branch on.
type Kind int

const (
	// KindInvalidParameters covers N<M, x=0, N>255, M<2, 2M<N and similar
	// construction-time parameter violations.
	KindInvalidParameters Kind = iota
	// KindEntropyFailure means the RNG returned a zero or degenerate output.
	KindEntropyFailure
	// KindAuthenticationFailed means an AEAD tag or signature did not verify.
	KindAuthenticationFailed
	// KindShareCorrupted means a share's MAC did not verify.
	KindShareCorrupted
	// KindInsufficientShares means fewer than M verified shares were
	// available when the operation concluded.
	KindInsufficientShares
	// KindDuplicateX means two shares carry the same x coordinate.
	KindDuplicateX
	// KindSubstrateUnavailable means every substrate endpoint failed after
	// retries.
	KindSubstrateUnavailable
	// KindStateConflict means a transition was requested from a state that
	// does not permit it.
	KindStateConflict
	// KindTimeout means an operation exceeded its deadline.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindInvalidParameters:
		return "InvalidParameters"
	case KindEntropyFailure:
		return "EntropyFailure"
	case KindAuthenticationFailed:
		return "AuthenticationFailed"
	case KindShareCorrupted:
		return "ShareCorrupted"
	case KindInsufficientShares:
		return "InsufficientShares"
	case KindDuplicateX:
		return "DuplicateX"
	case KindSubstrateUnavailable:
		return "SubstrateUnavailable"
	case KindStateConflict:
		return "StateConflict"
	case KindTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Error is the concrete type every package in this module returns for
// domain failures. It wraps an optional cause and carries enough context
// (Index, Op) for callers that need it without parsing strings.
type Error struct {
	Kind  Kind
	Op    string // "shamir.Combine", "aead.Open", ...
	Index int    // share index, when applicable; 0 otherwise
	Err   error  // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Op == "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(op string, kind Kind) *Error {
	return &Error{Op: op, Kind: kind}
}

// Wrap builds an *Error around an existing cause.
func Wrap(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// WithIndex attaches a share index, used by KindShareCorrupted.
func (e *Error) WithIndex(i int) *Error {
	e.Index = i
	return e
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
