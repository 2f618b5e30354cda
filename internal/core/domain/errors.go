package domain

import (
	"fmt"
	"strings"

	"github.com/vietddude/launcher/internal/core/sentinel"
)

// Sentinel errors surfaced by the API client before or after a request.
const (
	// ErrUserNotLoggedIn is returned when an authenticated call is made
	// without a session. Never retried.
	ErrUserNotLoggedIn = sentinel.Error("user is not logged in")

	// ErrSubscriptionRequired is returned when a call gated on an active
	// subscription is made without one. Never retried.
	ErrSubscriptionRequired = sentinel.Error("active subscription required")

	// ErrUnauthorized marks a 401 on an authenticated call. By the time a
	// caller sees it the session has already been cleared.
	ErrUnauthorized = sentinel.Error("session rejected by backend")

	// ErrNotModified is returned for a conditional GET answered with 304.
	// The caller keeps whatever it has cached.
	ErrNotModified = sentinel.Error("resource not modified")
)

// StartupErrorKind classifies startup failures.
type StartupErrorKind string

const (
	KindLockFailure        StartupErrorKind = "lock_failure"
	KindStorageCorruption  StartupErrorKind = "storage_corruption"
	KindPathInaccessible   StartupErrorKind = "path_inaccessible"
	KindServiceInitFailure StartupErrorKind = "service_init_failure"
)

// StartupError is one failure observed during the startup sequence.
// Only service init failures are recoverable; everything earlier in the
// sequence leaves the launcher without a foundation to run on.
type StartupError struct {
	Kind        StartupErrorKind `json:"kind"`
	Component   string           `json:"component"`
	Recoverable bool             `json:"recoverable"`
	Message     string           `json:"message"`

	cause error
}

func newStartupError(kind StartupErrorKind, component string, recoverable bool, cause error) *StartupError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &StartupError{
		Kind:        kind,
		Component:   component,
		Recoverable: recoverable,
		Message:     msg,
		cause:       cause,
	}
}

// NewLockFailure wraps an exhausted single-instance lock acquisition.
func NewLockFailure(cause error) *StartupError {
	return newStartupError(KindLockFailure, "Lock", false, cause)
}

// NewStorageCorruption wraps a record store that could not be read or
// re-initialized with defaults.
func NewStorageCorruption(cause error) *StartupError {
	return newStartupError(KindStorageCorruption, "Storage", false, cause)
}

// NewPathInaccessible wraps required directories that stayed unusable
// after a repair attempt.
func NewPathInaccessible(paths []string, cause error) *StartupError {
	e := newStartupError(KindPathInaccessible, "Paths", false, cause)
	if len(paths) > 0 {
		e.Message = fmt.Sprintf("inaccessible: %s", strings.Join(paths, ", "))
		if cause != nil {
			e.Message += fmt.Sprintf(" (%v)", cause)
		}
	}
	return e
}

// NewServiceInitFailure wraps a failed service initializer. The startup
// sequence records it and moves on to the next service.
func NewServiceInitFailure(service string, cause error) *StartupError {
	return newStartupError(KindServiceInitFailure, service, true, cause)
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Component, e.Message, e.Kind)
}

func (e *StartupError) Unwrap() error {
	return e.cause
}

// StatusError is a non-2xx HTTP response that is not part of the retry
// or auth flows: 4xx responses surface as-is.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// BackendUnavailableError reports that every attempt at a request died
// without an HTTP response. The service is unreachable, not broken.
type BackendUnavailableError struct {
	Attempts int
	Err      error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend unreachable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// NetworkError reports that the backend kept answering 5xx until the
// retry budget ran out.
type NetworkError struct {
	Status   int
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("server error (status %d) after %d attempts", e.Status, e.Attempts)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
