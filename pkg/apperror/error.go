package apperror

import (
	"fmt"
	"net/http"
)

// Stable error codes surfaced to API clients.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeRateLimited        = "RATE_LIMITED"
	CodeChannelUnavailable = "CHANNEL_UNAVAILABLE"
	CodeIndexOperation     = "INDEX_OPERATION_FAILED"
	CodeInternal           = "INTERNAL_ERROR"
)

type AppError struct {
	Code      int    `json:"-"`
	ErrorCode string `json:"code"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
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

// Is matches another AppError by its stable code, so errors.Is works against
// the helpers below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.ErrorCode == e.ErrorCode
}

func New(code int, errorCode, message string, err error) *AppError {
	return &AppError{
		Code:      code,
		ErrorCode: errorCode,
		Message:   message,
		Err:       err,
	}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, CodeValidation, message, nil)
}

// Validation is BadRequest wrapping the underlying cause.
func Validation(message string, err error) *AppError {
	return New(http.StatusBadRequest, CodeValidation, message, err)
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, CodeForbidden, message, nil)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, CodeNotFound, message, nil)
}

func TooManyRequests(message string) *AppError {
	return New(http.StatusTooManyRequests, CodeRateLimited, message, nil)
}

func ChannelUnavailable(err error) *AppError {
	return New(http.StatusServiceUnavailable, CodeChannelUnavailable, "Event channel unavailable", err)
}

func IndexOperation(err error) *AppError {
	return New(http.StatusBadGateway, CodeIndexOperation, "Search index operation failed", err)
}

func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, CodeInternal, "Internal Server Error", err)
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation         = &AppError{ErrorCode: CodeValidation}
	ErrUnauthorized       = &AppError{ErrorCode: CodeUnauthorized}
	ErrForbidden          = &AppError{ErrorCode: CodeForbidden}
	ErrNotFound           = &AppError{ErrorCode: CodeNotFound}
	ErrChannelUnavailable = &AppError{ErrorCode: CodeChannelUnavailable}
	ErrIndexOperation     = &AppError{ErrorCode: CodeIndexOperation}
)
