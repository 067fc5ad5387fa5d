package common

import (
	"context"
	"errors"
)

// Kind classifies a failure by how the screens react to it.
type Kind string

const (
	// KindUnavailable: a device capability is missing; fall back silently.
	KindUnavailable Kind = "unavailable"
	// KindExternal: a third-party service failed; log and degrade.
	KindExternal Kind = "external"
	// KindPrecondition: local input is incomplete; alert, no network call.
	KindPrecondition Kind = "precondition"
	// KindTimeout: the request timed out or was aborted; retry on the next tick.
	KindTimeout Kind = "timeout"
	// KindNotFound: the backend answered 404.
	KindNotFound Kind = "not_found"
	// KindBackend: any other backend failure; alert with the server message.
	KindBackend Kind = "backend"
	// KindMissingIdentifier: a success response lacked the expected identifier.
	KindMissingIdentifier Kind = "missing_identifier"
	// KindUnauthenticated: no session token is stored.
	KindUnauthenticated Kind = "unauthenticated"
)

// Common error types
var (
	ErrUnavailable       = errors.New("capability unavailable")
	ErrMissingIdentifier = errors.New("response is missing an identifier")
	ErrUnauthenticated   = errors.New("no session token")
)

// AppError carries a Kind, a message that is safe to show to the user, and
// the underlying cause.
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates a new AppError
func NewAppError(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func NewPreconditionError(message string) *AppError {
	return &AppError{Kind: KindPrecondition, Message: message}
}

func NewExternalError(message string, err error) *AppError {
	return &AppError{Kind: KindExternal, Message: message, Err: err}
}

func NewBackendError(message string, err error) *AppError {
	return &AppError{Kind: KindBackend, Message: message, Err: err}
}

func NewMissingIdentifierError(message string) *AppError {
	return &AppError{Kind: KindMissingIdentifier, Message: message, Err: ErrMissingIdentifier}
}

func NewUnauthenticatedError(message string) *AppError {
	return &AppError{Kind: KindUnauthenticated, Message: message, Err: ErrUnauthenticated}
}

// KindOf reports the Kind of err. Context cancellation and deadline errors
// are KindTimeout even when not wrapped in an AppError.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, ErrUnavailable) {
		return KindUnavailable
	}
	return KindBackend
}

// UserMessage returns the message to alert with, or fallback when err does
// not carry one.
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
