package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for outcomes the HTTP layer must keep distinct.
var (
	// ErrUnauthenticated means no credential was presented at all (401).
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden means a credential was presented but is invalid or
	// expired (403).
	ErrForbidden = errors.New("invalid or expired token")
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// neither case is distinguishable to a caller (401).
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidOTP deliberately collapses never-issued, expired, and wrong
	// code into one message (400).
	ErrInvalidOTP = errors.New("invalid or expired OTP")
	ErrNotFound   = errors.New("not found")
)

// ValidationError carries every failing field at once so the client can
// highlight all of them in a single round trip.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// ConflictError is a uniqueness violation tagged with the offending field.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// StorageError wraps an unexpected database failure. Unavailable marks
// connection-refused-like conditions that should surface as 503.
type StorageError struct {
	Err         error
	Unavailable bool
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
