package errs

import (
	"errors"
	"fmt"
	"strings"

	"duochat/internal/pkg/logx"
)

// CustomError is the error structure shared by every layer of the client.
// It carries a stable code, a user-facing message, and the HTTP status it maps to.
type CustomError struct {
	// Code is the application error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status associated with this error, 0 when not HTTP related.
	Status int

	// cause is the underlying error, if any.
	cause error
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("error code %d: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("error code %d: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *CustomError) Unwrap() error {
	return e.cause
}

// NewError constructs a *CustomError from a predefined code.
// details are printf arguments applied to the message template when it contains a verb.
// An unknown code yields ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
				"code", code,
			)
		}
	}

	return &customErr
}

// Wrap is NewError with an underlying cause attached.
func Wrap(cause error, code int, details ...any) *CustomError {
	customErr := NewError(code, details...)
	customErr.cause = cause
	return customErr
}

// WrapDetail is Wrap for a single detail string that is applied only when the
// code's message template has a placeholder for it.
func WrapDetail(cause error, code int, detail string) *CustomError {
	if tmpl, ok := errorMap[code]; ok && strings.Contains(tmpl.Message, "%") {
		return Wrap(cause, code, detail)
	}
	return Wrap(cause, code)
}

// Is reports whether err is, or wraps, a CustomError with the given code.
func Is(err error, code int) bool {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code == code
	}
	return false
}

// UserMessage returns the text to show the user for err.
func UserMessage(err error) string {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Message
	}
	return errorMap[ErrUnknown].Message
}
