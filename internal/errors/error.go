package errors

import "fmt"

// Category represents the type of error.
type Category string

const (
	CategoryConfig   Category = "config"
	CategorySource   Category = "source"
	CategorySnapshot Category = "snapshot"
	CategoryCLI      Category = "cli"
)

// GazeError is a structured error with a code, explanation and hint.
type GazeError struct {
	// Code is a unique error identifier (e.g., "G101").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *GazeError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *GazeError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *GazeError) WithDetail(d string) *GazeError {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *GazeError) WithSuggestion(s string) *GazeError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *GazeError) Wrap(err error) *GazeError {
	e.Wrapped = err
	return e
}

// New creates a GazeError from a registered error code.
func New(code string) *GazeError {
	template, ok := registry[code]
	if !ok {
		return &GazeError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &GazeError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new GazeError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *GazeError {
	return &GazeError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a GazeError.
// GazeErrors anywhere in the chain are returned unchanged.
func FromError(err error, code string) *GazeError {
	if err == nil {
		return nil
	}
	var ge *GazeError
	if As(err, &ge) {
		return ge
	}
	return New(code).Wrap(err)
}
