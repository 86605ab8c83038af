package vesting

import (
	"errors"
	"fmt"
)

// ErrorKind is one of the stable, symbolic error names from spec §7.
// Access, validation and state failures abort with one of these, so
// callers (the HTTP layer, the CLI) can match on it. Failures from the
// Token collaborator or the Store are returned as wrapped errors that
// carry no ErrorKind (KindOf reports ok=false for them); the manager
// does not return ErrTokenTransferFailed itself.
type ErrorKind string

const (
	// Access
	ErrNotAdmin           ErrorKind = "NotAdmin"
	ErrNotOwner           ErrorKind = "NotOwner"
	ErrAlreadyInitialized ErrorKind = "AlreadyInitialized"
	ErrLastAdmin          ErrorKind = "LastAdmin"
	ErrAlreadyInState     ErrorKind = "AlreadyInState"
	ErrNotAuthenticated   ErrorKind = "NotAuthenticated"

	// Validation
	ErrInvalidAmount         ErrorKind = "InvalidAmount"
	ErrInvalidStart          ErrorKind = "InvalidStart"
	ErrInvalidInterval       ErrorKind = "InvalidInterval"
	ErrInvalidCliffRelease   ErrorKind = "InvalidCliffRelease"
	ErrInvalidCliffAmount    ErrorKind = "InvalidCliffAmount"
	ErrInvalidIntervalLength ErrorKind = "InvalidIntervalLength"
	ErrLengthMismatch        ErrorKind = "LengthMismatch"
	ErrInvalidOtherToken     ErrorKind = "InvalidOtherToken"
	ErrOutOfRange            ErrorKind = "OutOfRange"

	// State
	ErrUnknownSchedule       ErrorKind = "UnknownSchedule"
	ErrAlreadyRevoked        ErrorKind = "AlreadyRevoked"
	ErrFullyClaimed          ErrorKind = "FullyClaimed"
	ErrTimelockActive        ErrorKind = "TimelockActive"
	ErrNothingToClaim        ErrorKind = "NothingToClaim"
	ErrInsufficientUnreserved ErrorKind = "InsufficientUnreserved"

	// External
	ErrTokenTransferFailed ErrorKind = "TokenTransferFailed"
)

// Error is the typed abort value every manager operation returns on
// failure. It never carries partial state: by the time it is returned,
// the store transaction that would have committed the mutation has been
// rolled back (see Store.WithWriteTx).
type Error struct {
	Kind ErrorKind
	msg  string
}

func (e *Error) Error() string {
	if e.msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func newErr(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// NewError builds a typed *Error for use by Store implementations
// outside this package (e.g. pkg/storage), which need to report
// failures like OutOfRange using the same stable symbolic names the
// manager itself uses.
func NewError(kind ErrorKind, format string, args ...interface{}) error {
	return newErr(kind, format, args...)
}

// KindOf extracts the ErrorKind from err if it is (or wraps) a *Error,
// reporting ok=false otherwise.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
