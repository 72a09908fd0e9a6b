package services

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound             = errors.New("resource not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUnknownMethod        = errors.New("unknown method")
	ErrConnectionClosed     = errors.New("connection closed")
)

// AuthReason says why a credential was rejected.
type AuthReason string

const (
	AuthMissing AuthReason = "missing"
	AuthInvalid AuthReason = "invalid"
	AuthExpired AuthReason = "expired"
)

// SessionExpiredMessage is what clients show when any AuthError ends a session.
const SessionExpiredMessage = "session expired, sign in again"

// AuthError is returned when a connection or request cannot be tied to a principal.
type AuthError struct {
	Reason AuthReason
	Err    error
}

var (
	ErrAuthMissing = &AuthError{Reason: AuthMissing}
	ErrAuthInvalid = &AuthError{Reason: AuthInvalid}
	ErrAuthExpired = &AuthError{Reason: AuthExpired}
)

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %v", e.Reason, e.Err)
	}
	return "auth " + string(e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches any AuthError with the same reason, so errors.Is(err, ErrAuthExpired)
// works on wrapped instances.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Reason == e.Reason
}

// ValidationReason says why a client invocation was rejected.
type ValidationReason string

const (
	EmptyPayload   ValidationReason = "empty payload"
	InvalidNoteID  ValidationReason = "invalid note id"
	MalformedFrame ValidationReason = "malformed frame"
)

type ValidationError struct {
	Reason ValidationReason
}

var (
	ErrEmptyPayload   = &ValidationError{Reason: EmptyPayload}
	ErrInvalidNoteID  = &ValidationError{Reason: InvalidNoteID}
	ErrMalformedFrame = &ValidationError{Reason: MalformedFrame}
)

func (e *ValidationError) Error() string {
	return "validation: " + string(e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason
}
