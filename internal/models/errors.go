package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeUnavailable  = "UNAVAILABLE"
	CodeInternal     = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	// Fields holds per-field validation messages keyed by field name.
	Fields map[string]string
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewFieldValidationError reports one message per invalid field.
func NewFieldValidationError(fields map[string]string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: "Validation failed",
		Fields:  fields,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewForbiddenError reports a signed-in caller acting on something it does not own.
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewConflictError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
		Err:     err,
	}
}

// NewUnavailableError wraps a failure talking to an external service.
func NewUnavailableError(service string, err error) *AppError {
	return &AppError{
		Code:    CodeUnavailable,
		Message: service + " unavailable",
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// CodeOf returns the AppError code anywhere in err's chain, or CodeInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given AppError code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// StatusFor maps an error onto an HTTP status code.
func StatusFor(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeValidation:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeConflict:
		return fiber.StatusConflict
	case CodeUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error:  appErr.Message,
			Code:   appErr.Code,
			Fields: appErr.Fields,
		}
		if appErr.Err != nil && status < fiber.StatusInternalServerError {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
