package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the structured error type returned at the Indexer and Answerer boundary.
type AppError struct {
	// Code is the unique error code (e.g., "ERR_301_FETCH_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is derived from the code.
	Category Category

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches by code, so sentinels work with errors.Is.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Code == t.Code
	}
	return false
}

// Reason returns the message and cause without the code prefix.
func (e *AppError) Reason() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// New creates a new AppError with the given code and message.
func New(code string, message string, cause error) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates an AppError from an existing error. A nil error stays nil.
func Wrap(code string, message string, err error) error {
	if err == nil {
		return nil
	}
	return New(code, message, err)
}

// Sentinels for the locally recovered outcomes.
var (
	ErrEmptyURLList = New(ErrCodeEmptyURLList, "url list is empty", nil)
	ErrNotIndexed   = New(ErrCodeNotIndexed, "no data has been indexed", nil)
	ErrNoContent    = New(ErrCodeNoContent, "fetched pages contain no text", nil)
	ErrNoAnswer     = New(ErrCodeNoAnswer, "pipeline returned no answer", nil)
)

// GetCode extracts the error code from anywhere in the chain.
// Returns empty string if there is no AppError.
func GetCode(err error) string {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// GetCategory extracts the category from anywhere in the chain.
func GetCategory(err error) Category {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Category
	}
	return ""
}

// Reason renders an error for the operator-facing status channel.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Reason()
	}
	return err.Error()
}
