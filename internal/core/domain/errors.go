package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUnauthenticated     = errors.New("not authenticated")
	ErrForbidden           = errors.New("access forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrEmailTaken          = errors.New("email already taken")
	ErrRateLimited         = errors.New("rate limited")
	ErrValidation          = errors.New("validation failed")
	ErrNetwork             = errors.New("network error")
	ErrUnknown             = errors.New("unexpected server error")

	ErrEmptySelection       = errors.New("no items selected")
	ErrConfirmationMismatch = errors.New("confirmation does not match")
	ErrCancelled            = errors.New("action cancelled")
	ErrInvalidTransition    = errors.New("invalid lifecycle transition")
	ErrPageOutOfRange       = errors.New("page out of range")
)

// APIError is a non-2xx answer of the admin API. It matches its taxonomy
// kinds with errors.Is.
type APIError struct {
	Status           int
	Message          string
	ValidationErrors map[string]string
	kinds            []error
}

// NewAPIError builds an APIError that unwraps to the given kinds.
func NewAPIError(status int, message string, kinds ...error) *APIError {
	return &APIError{Status: status, Message: message, kinds: kinds}
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

func (e *APIError) Unwrap() []error {
	return e.kinds
}

// ValidationError is a client-side validation failure; no request was sent.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// UserMessage translates err into the message a console component shows.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if errors.Is(err, ErrRateLimited) {
		return "Too many attempts. Please try again later."
	}

	var ae *APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, ErrInvalidRefreshToken), errors.Is(err, ErrUnauthenticated):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrConflict):
		return "Username or email already taken."
	case errors.Is(err, ErrForbidden):
		return "You don't have permission to perform this action."
	case errors.Is(err, ErrEmptySelection):
		return "Select at least one user first."
	case errors.Is(err, ErrConfirmationMismatch):
		return "The confirmation text does not match."
	case errors.Is(err, ErrInvalidTransition):
		return "This action is not available for the user's current state."
	}
	return fallback
}
