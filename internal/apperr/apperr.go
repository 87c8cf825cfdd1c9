// internal/apperr/apperr.go
//
// Error taxonomy shared by the game engine, the store, the credential
// layer and the coordinator. Every client-facing failure belongs to one
// kind; the HTTP layer maps kinds to status codes with errors.Is.

package apperr

import "errors"

// Kinds. Compare with errors.Is(err, apperr.NotFound) etc.
var (
	NotFound           = errors.New("not found")
	Authorization      = errors.New("not authorized")
	InvalidState       = errors.New("invalid state")
	InvalidInput       = errors.New("invalid input")
	Conflict           = errors.New("conflict")
	Credential         = errors.New("invalid credential")
	StorageUnavailable = errors.New("storage unavailable")
)

// Error is a human-readable failure tagged with its kind.
type Error struct {
	kind error
	msg  string
}

// New returns an error of the given kind carrying msg.
func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes the kind so errors.Is works against it.
func (e *Error) Unwrap() error { return e.kind }

// Unavailable wraps a backend failure as StorageUnavailable while keeping
// the cause for logs.
func Unavailable(op string, cause error) error {
	return &storageError{op: op, cause: cause}
}

type storageError struct {
	op    string
	cause error
}

func (e *storageError) Error() string { return "storage unavailable: " + e.op + ": " + e.cause.Error() }

func (e *storageError) Unwrap() []error { return []error{StorageUnavailable, e.cause} }

// Message returns the text safe to show a client. Storage failures and
// unknown errors are not echoed verbatim.
func Message(err error) string {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e.msg
	case errors.Is(err, StorageUnavailable):
		return "Storage unavailable, try again later."
	default:
		return "Internal server error."
	}
}
