package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a business-rule rejection so transports can map it to a
// wire status without string matching.
type Kind int

const (
	// KindUnknown marks errors that did not originate from this package.
	KindUnknown Kind = iota
	// KindNotFound signals a referenced record does not exist.
	KindNotFound
	// KindForbidden signals an authorization denial.
	KindForbidden
	// KindValidation signals missing or out-of-range input.
	KindValidation
	// KindConflict signals a uniqueness or state violation.
	KindConflict
	// KindStorageUnavailable signals the persistence layer failed; callers
	// should fail the request rather than retry.
	KindStorageUnavailable
)

// Error is the carrier for classified business errors.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the classification of the error.
func (e *Error) Kind() Kind { return e.kind }

// NotFound builds a KindNotFound error.
func NotFound(msg string) error {
	return &Error{kind: KindNotFound, msg: msg}
}

// Forbidden builds a KindForbidden error.
func Forbidden(msg string) error {
	return &Error{kind: KindForbidden, msg: msg}
}

// Validation builds a KindValidation error.
func Validation(msg string) error {
	return &Error{kind: KindValidation, msg: msg}
}

// Conflict builds a KindConflict error.
func Conflict(msg string) error {
	return &Error{kind: KindConflict, msg: msg}
}

// StorageUnavailable wraps a storage-layer failure.
func StorageUnavailable(msg string, err error) error {
	return &Error{kind: KindStorageUnavailable, msg: msg, err: err}
}

// KindOf extracts the classification from err, or KindUnknown when the error
// chain carries no *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
