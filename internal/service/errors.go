package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("Not authorized")
)

// NotFoundError names the missing resource and matches ErrNotFound.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

var (
	ErrPostNotFound   = &NotFoundError{Resource: "Post"}
	ErrUserNotFound   = &NotFoundError{Resource: "User"}
	ErrApiKeyNotFound = &NotFoundError{Resource: "API key"}
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"msg"`
}

// ValidationError carries field-level messages for malformed input.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "invalid request"
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// First returns the first message, used as the summary of a response.
func (e *ValidationError) First() string {
	if len(e.Errors) == 0 {
		return "invalid request"
	}
	return e.Errors[0].Message
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

// ConflictError rejects an operation the post's current status does not allow.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

var (
	errPublishedImmutable = &ConflictError{Message: "Cannot update published posts"}
	errAlreadyPublished   = &ConflictError{Message: "Post is already published"}
)

// CollaboratorError wraps a failure of an external dependency such as media
// storage or platform dispatch.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

const (
	collaboratorMedia    = "media storage"
	collaboratorDispatch = "platform dispatch"
	collaboratorIdentity = "identity provider"
)
