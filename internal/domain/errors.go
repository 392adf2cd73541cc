package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a missing message, branch, conversation or room
	NotFoundError struct {
		Resource string
		ID       string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates a missing or unusable identity
	UnauthorizedError struct {
		Message string
	}

	// AccessDeniedError indicates the participant is not a member of the
	// room or does not own the conversation
	AccessDeniedError struct {
		Resource      string
		ID            string
		ParticipantID string
	}
)

// NewNotFound creates a NotFoundError for the given resource kind and id
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewAccessDenied creates an AccessDeniedError
func NewAccessDenied(resource, id, participantID string) *AccessDeniedError {
	return &AccessDeniedError{Resource: resource, ID: id, ParticipantID: participantID}
}

// Error implementations
func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("participant %s has no access to %s %s", e.ParticipantID, e.Resource, e.ID)
}

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *AccessDeniedError) StatusCode() int { return http.StatusForbidden }

// Is allows errors.Is() to match the typed errors against their sentinels
func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *AccessDeniedError) Is(target error) bool { return target == ErrAccessDenied }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrAccessDenied     = errors.New("access denied")
	ErrDeliveryFailed   = errors.New("delivery failed")
	ErrCompletionFailed = errors.New("completion failed")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (room, conversation)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// DeliveryFailure reports that a realtime event could not reach one
// connection. It is logged by the hub and never returned to API callers;
// the persisted log stays authoritative.
type DeliveryFailure struct {
	RoomID        string
	ParticipantID string
	Event         string
	Err           error
}

func (e *DeliveryFailure) Error() string {
	return fmt.Sprintf("deliver %s to %s in room %s: %v", e.Event, e.ParticipantID, e.RoomID, e.Err)
}

func (e *DeliveryFailure) Unwrap() error        { return e.Err }
func (e *DeliveryFailure) Is(target error) bool { return target == ErrDeliveryFailed }

// CompletionFailure wraps an AI provider error for one exchange. The user
// message stays persisted; the reply can be retried.
type CompletionFailure struct {
	Provider string
	Err      error
}

func (e *CompletionFailure) Error() string {
	return fmt.Sprintf("reply failed (%s): %v", e.Provider, e.Err)
}

func (e *CompletionFailure) Unwrap() error        { return e.Err }
func (e *CompletionFailure) Is(target error) bool { return target == ErrCompletionFailed }
func (e *CompletionFailure) StatusCode() int      { return http.StatusBadGateway }
