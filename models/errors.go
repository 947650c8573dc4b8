package models

import (
	"errors"
	"fmt"
)

// ValidationError marks an imported document that is structurally present
// but missing mandatory fields. It is recovered per-file and never aborts
// a batch.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DuplicateError marks an access-key collision against an already persisted
// invoice or another file accepted earlier in the same batch.
type DuplicateError struct {
	AccessKey string
}

func (e *DuplicateError) Error() string {
	return "invoice with access key " + e.AccessKey + " already exists"
}

// IsDuplicateError reports whether err is (or wraps) a DuplicateError.
func IsDuplicateError(err error) bool {
	var de *DuplicateError
	return errors.As(err, &de)
}

// RemoteError wraps a failed call against an external collaborator
// (fiscal lookup service, storage backend).
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

var (
	// ErrInvoiceLocked is returned when logistics edits are attempted on an
	// invoice whose status no longer allows them.
	ErrInvoiceLocked = errors.New("invoice status does not allow logistics changes")

	// ErrProofExists is returned on a second proof submission for the same
	// invoice. A proof is written exactly once.
	ErrProofExists = errors.New("delivery proof already recorded for this invoice")

	// ErrInvalidTransition is returned when a proof is submitted for an
	// invoice that is not on an active route.
	ErrInvalidTransition = errors.New("invoice is not in progress")

	// ErrBadCredentials is the generic login failure. It deliberately does
	// not say which half of the identity/password pair was wrong.
	ErrBadCredentials = errors.New("incorrect password")
)
