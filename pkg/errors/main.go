// Package errors carries the typed application errors the service layer
// returns and the mapping from those errors to HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	StatusBadRequest          = http.StatusBadRequest
	StatusUnauthorized        = http.StatusUnauthorized
	StatusNotFound            = http.StatusNotFound
	StatusConflict            = http.StatusConflict
	StatusInternalServerError = http.StatusInternalServerError
)

const (
	ErrorTypeInvalidRequest = "INVALID_REQUEST"
	ErrorTypeUnauthorized   = "UNAUTHORIZED"
	ErrorTypeNotFound       = "NOT_FOUND"
	ErrorTypeConflict       = "CONFLICT"
	ErrorTypeStorageError   = "STORAGE_ERROR"
	ErrorTypeUnknown        = "UNKNOWN_ERROR"
)

// AppError pairs a caller-safe Message with the underlying cause.
type AppError struct {
	Type    string
	Message string
	Err     error
	// Details is returned to callers as-is, e.g. per-field validation errors.
	Details any
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Type + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(errType, message string, err error) *AppError {
	return &AppError{Type: errType, Message: message, Err: err}
}

func NewInvalidRequestError(message string, err error) *AppError {
	return newAppError(ErrorTypeInvalidRequest, message, err)
}

// NewValidationError is an invalid-request error listing the offending fields.
func NewValidationError(message string, fields []ValidationErrorResponse) *AppError {
	appErr := newAppError(ErrorTypeInvalidRequest, message, nil)
	if len(fields) > 0 {
		appErr.Details = fields
	}
	return appErr
}

func NewUnauthorizedError(message string, err error) *AppError {
	return newAppError(ErrorTypeUnauthorized, message, err)
}

func NewNotFoundError(message string, err error) *AppError {
	return newAppError(ErrorTypeNotFound, message, err)
}

func NewConflictError(message string, err error) *AppError {
	return newAppError(ErrorTypeConflict, message, err)
}

// NewStorageError wraps a failure of the signup store or its database.
func NewStorageError(message string, err error) *AppError {
	return newAppError(ErrorTypeStorageError, message, err)
}

func GetErrorType(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// Postgres reports "duplicate key value violates unique constraint", sqlite
// "UNIQUE constraint failed".
var duplicateKeyMarkers = []string{"duplicate key", "unique constraint"}

// IsDuplicateKeyError reports whether err is a conflict AppError or a driver
// error for a unique index violation.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if GetErrorType(err) == ErrorTypeConflict {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range duplicateKeyMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
