package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	ErrNetwork      = errors.New("network error")
	ErrHTTPStatus   = errors.New("unexpected http status")
	ErrFormat       = errors.New("unexpected content format")
	ErrCancelled    = errors.New("request cancelled")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("service unavailable")
	ErrInternal     = errors.New("internal server error")
)

type AppError struct {
	BaseError  error
	Message    string
	Details    string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (Details: %s, Cause: %v)", e.BaseError.Error(), e.Message, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %s (Details: %s)", e.BaseError.Error(), e.Message, e.Details)
}

// Unwrap exposes both the base error and the cause, so errors.Is matches
// either apperror sentinels or things like context.Canceled.
func (e *AppError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.BaseError, e.Err}
	}
	return []error{e.BaseError}
}

func NewAppError(base error, msg, details string, err error) *AppError {
	return &AppError{BaseError: base, Message: msg, Details: details, Err: err}
}

func NewNetwork(url string, err error) *AppError {
	return NewAppError(ErrNetwork, "Unable to reach content source", url, err)
}

func NewHTTPStatus(url string, code int) *AppError {
	appErr := NewAppError(ErrHTTPStatus, fmt.Sprintf("Content request failed (%d)", code), url, nil)
	appErr.StatusCode = code
	return appErr
}

func NewFormat(details string, err error) *AppError {
	return NewAppError(ErrFormat, "Content response is not valid JSON", details, err)
}

func NewCancelled(err error) *AppError {
	return NewAppError(ErrCancelled, "Request was cancelled", "", err)
}

func NewNotFound(resource, identifier string) *AppError {
	msg := fmt.Sprintf("%s not found", resource)
	details := fmt.Sprintf("%s with identifier '%s' was not found", resource, identifier)
	return NewAppError(ErrNotFound, msg, details, nil)
}

func NewInvalidInput(details string, err error) *AppError {
	return NewAppError(ErrInvalidInput, "Invalid input provided", details, err)
}

func NewUnavailable(msg, details string) *AppError {
	return NewAppError(ErrUnavailable, msg, details, nil)
}

func NewInternal(details string, err error) *AppError {
	return NewAppError(ErrInternal, "An internal server error occurred", details, err)
}

// IsCancelled reports whether err is the result of a cancelled context rather
// than a real failure. Deadline expiry is a failure, not a cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// UserMessage returns the human-readable part of err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func ToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrHTTPStatus), errors.Is(err, ErrFormat):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (e *AppError) ToJSON() gin.H {
	return gin.H{
		"error":   e.BaseError.Error(),
		"message": e.Message,
	}
}
