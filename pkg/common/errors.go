package common

import (
	"errors"
	"net/http"
)

// Common error types
var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("resource conflict")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidState      = errors.New("invalid state")
	ErrValidation        = errors.New("validation error")
	ErrInternalServer    = errors.New("internal server error")
)

// Machine-readable error codes surfaced in responses so callers can
// distinguish error kinds without parsing messages.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeInvalidState      = "INVALID_STATE"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying sentinel for errors.Is checks.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error constructors

func NewNotFoundError(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, ErrorCode: CodeNotFound, Message: message, Err: ErrNotFound}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, ErrorCode: CodeUnauthorized, Message: message, Err: ErrUnauthorized}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Code: http.StatusForbidden, ErrorCode: CodeForbidden, Message: message, Err: ErrForbidden}
}

func NewConflictError(message string) *AppError {
	return &AppError{Code: http.StatusConflict, ErrorCode: CodeConflict, Message: message, Err: ErrConflict}
}

func NewInvalidTransitionError(message string) *AppError {
	return &AppError{Code: http.StatusConflict, ErrorCode: CodeInvalidTransition, Message: message, Err: ErrInvalidTransition}
}

func NewInsufficientFundsError(message string) *AppError {
	return &AppError{Code: http.StatusPaymentRequired, ErrorCode: CodeInsufficientFunds, Message: message, Err: ErrInsufficientFunds}
}

func NewInvalidStateError(message string) *AppError {
	return &AppError{Code: http.StatusConflict, ErrorCode: CodeInvalidState, Message: message, Err: ErrInvalidState}
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, ErrorCode: CodeValidation, Message: message, Err: ErrValidation}
}

func NewInternalError(message string, err error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, ErrorCode: CodeInternal, Message: message, Err: err}
}

func NewInternalServerError(message string) *AppError {
	return &AppError{Code: http.StatusInternalServerError, ErrorCode: CodeInternal, Message: message, Err: ErrInternalServer}
}
