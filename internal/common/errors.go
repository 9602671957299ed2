package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error classes that may escape the pipeline. Everything else is folded into the result.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTransport    = errors.New("upstream transport failure")
	ErrInternal     = errors.New("internal error")
)

// Stable codes carried on AppError.Code.
const (
	CodeConfig       = "CONFIG_ERROR"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeTransport    = "TRANSPORT_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Validationf builds a request-validation error.
func Validationf(format string, args ...any) error {
	return NewAppError(CodeValidation, fmt.Sprintf(format, args...), ErrValidation)
}

// Unauthorizedf builds an authorization error.
func Unauthorizedf(format string, args ...any) error {
	return NewAppError(CodeUnauthorized, fmt.Sprintf(format, args...), ErrUnauthorized)
}

// Transport wraps an upstream failure (extraction service, mailbox provider).
// The cause stays reachable through errors.Is/As.
func Transport(message string, cause error) error {
	return NewAppError(CodeTransport, message, errors.Join(ErrTransport, cause))
}

// IsTransport reports whether err is an upstream transport failure, including timeouts.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, context.DeadlineExceeded)
}

// Code returns the stable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput):
		return CodeValidation
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case IsTransport(err):
		return CodeTransport
	default:
		return CodeInternal
	}
}

// Message returns the caller-facing message, hiding internal causes.
func Message(err error) string {
	var ae *AppError
	if errors.As(err, &ae) && Code(err) != CodeInternal {
		return ae.Message
	}
	switch Code(err) {
	case CodeTransport:
		return "upstream service unavailable"
	case CodeUnauthorized:
		return "unauthorized"
	case CodeValidation:
		return err.Error()
	}
	return "internal error"
}

// HTTPStatus maps err onto an HTTP status code.
func HTTPStatus(err error) int {
	switch Code(err) {
	case "":
		return http.StatusOK
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GRPCError maps err onto a gRPC status error.
func GRPCError(err error) error {
	if err == nil {
		return nil
	}
	switch Code(err) {
	case CodeValidation:
		return InvalidArgumentError(Message(err))
	case CodeUnauthorized:
		return status.Error(codes.Unauthenticated, Message(err))
	case CodeTransport:
		return status.Error(codes.Unavailable, Message(err))
	default:
		return InternalError("internal error")
	}
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}
