// Package apperrors defines the error taxonomy of the API and how each member
// maps to an HTTP status and a failure body.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidationFailed   Code = "VALIDATION_FAILED"
	CodeDuplicateIdentity  Code = "DUPLICATE_IDENTITY"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeMalformedID        Code = "MALFORMED_ID"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Store-level signals returned by repositories.
var (
	ErrNotFound     = errors.New("record not found")
	ErrMalformedID  = errors.New("malformed id")
	ErrDuplicateKey = errors.New("duplicate key")
)

// AppError is an error that already knows how it should be shown to a caller.
type AppError struct {
	Code       Code
	Message    string // short, rendered as "error"
	Detail     string // optional human sentence, rendered as "message"
	HTTPStatus int
	Details    any
	Cause      error
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause attaches the underlying error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Body is the failure envelope sent to clients.
type Body struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// ToBody converts the error to its failure envelope.
func (e *AppError) ToBody() Body {
	return Body{
		Success: false,
		Error:   e.Message,
		Message: e.Detail,
		Details: e.Details,
	}
}

// FieldError describes one failed input constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validation is returned when the request body does not satisfy its shape.
func Validation(fields []FieldError) *AppError {
	return &AppError{
		Code:       CodeValidationFailed,
		Message:    "Validation failed",
		HTTPStatus: http.StatusBadRequest,
		Details:    fields,
	}
}

// BadRequest is a validation failure without per-field details, e.g. unparsable JSON.
func BadRequest(detail string) *AppError {
	return &AppError{
		Code:       CodeValidationFailed,
		Message:    "Validation failed",
		Detail:     detail,
		HTTPStatus: http.StatusBadRequest,
	}
}

// DuplicateIdentity reports a registration collision on the given field.
func DuplicateIdentity(field string) *AppError {
	detail := "Username already taken"
	if field == "email" {
		detail = "Email already registered"
	}
	return &AppError{
		Code:       CodeDuplicateIdentity,
		Message:    "User already exists",
		Detail:     detail,
		HTTPStatus: http.StatusBadRequest,
	}
}

// InvalidCredentials is the single login failure for unknown email and wrong password alike.
func InvalidCredentials() *AppError {
	return &AppError{
		Code:       CodeInvalidCredentials,
		Message:    "Invalid credentials",
		Detail:     "Email or password is incorrect",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Unauthorized is the uniform identity-gate rejection.
func Unauthorized() *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    "Unauthorized",
		Detail:     "Invalid or missing authentication token",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NotFound covers both missing resources and resources owned by someone else.
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// MalformedID is returned for identifiers the store cannot parse.
func MalformedID() *AppError {
	return &AppError{
		Code:       CodeMalformedID,
		Message:    "Invalid ID format",
		HTTPStatus: http.StatusBadRequest,
	}
}

// Internal wraps an unexpected failure. The cause is never rendered outside development.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromStore maps a repository signal to its taxonomy member.
func FromStore(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMalformedID):
		return MalformedID().WithCause(err)
	case errors.Is(err, ErrNotFound):
		return NotFound(resource).WithCause(err)
	default:
		if _, ok := As(err); ok {
			return err
		}
		return Internal(err)
	}
}
