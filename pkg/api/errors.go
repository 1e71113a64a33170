package api

import (
	"fmt"
	"strings"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation_error"
	ErrorTypeAuthentication  ErrorType = "authentication_error"
	ErrorTypeAuthorization   ErrorType = "authorization_error"
	ErrorTypeAccountState    ErrorType = "account_state_error"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeConflict        ErrorType = "conflict"
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"
	ErrorTypeServerError     ErrorType = "server_error"
)

// FieldError describes a single invalid field in a request body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError represents a structured API error. Validation errors carry one
// FieldError per invalid field; all other types carry only a message.
type APIError struct {
	Type    ErrorType    `json:"-"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		fields := make([]string, len(e.Errors))
		for i, fe := range e.Errors {
			fields[i] = fe.Field
		}
		return fmt.Sprintf("%s: %s (fields: %s)", e.Type, e.Message, strings.Join(fields, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse is the envelope written for every failed request.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// NewErrorResponse wraps an APIError in the failure envelope.
func NewErrorResponse(err *APIError) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Message: err.Message,
		Errors:  err.Errors,
	}
}

// NewValidationError creates an APIError for a request that failed input
// validation. The field errors are attached as-is.
func NewValidationError(message string, fields ...FieldError) *APIError {
	return &APIError{
		Type:    ErrorTypeValidation,
		Message: message,
		Errors:  fields,
	}
}

// NewAuthenticationError creates an APIError for missing or invalid credentials.
func NewAuthenticationError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeAuthentication,
		Message: message,
	}
}

// NewAuthorizationError creates an APIError for callers lacking the required role.
func NewAuthorizationError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeAuthorization,
		Message: message,
	}
}

// NewAccountStateError creates an APIError for accounts whose lifecycle
// status forbids the attempted operation.
func NewAccountStateError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeAccountState,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewConflictError creates an APIError for uniqueness violations.
func NewConflictError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewTooManyRequestsError creates an APIError for rate limiting.
func NewTooManyRequestsError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTooManyRequests,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}
