package classifier

import (
	"errors"
	"fmt"
)

// Error is a transient classifier failure: network trouble, rate limiting,
// timeouts, or a response the parser could not make sense of. Callers own
// the retry policy for these.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("classifier %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// FatalError is a non-retryable classifier failure: invalid credentials or
// a request the service rejects outright. Retrying cannot help.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("classifier %s (fatal): %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func transientf(op, format string, args ...any) error {
	return &Error{Op: op, Err: fmt.Errorf(format, args...)}
}

func fatalf(op, format string, args ...any) error {
	return &FatalError{Op: op, Err: fmt.Errorf(format, args...)}
}

// IsTransient reports whether err is a retryable classifier error.
func IsTransient(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// IsFatal reports whether err is a non-retryable classifier error.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
