package apperrors

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// Code is a stable machine-readable error code surfaced to API clients.
// Codes are distinct from HTTP statuses so clients can branch without
// string-matching messages.
type Code string

const (
	CodeMissingURL        Code = "MISSING_URL"
	CodeEmptyURL          Code = "EMPTY_URL"
	CodeURLTooLong        Code = "URL_TOO_LONG"
	CodeInvalidCharacters Code = "INVALID_CHARACTERS"
	CodeMissingProtocol   Code = "MISSING_PROTOCOL"
	CodeInvalidProtocol   Code = "INVALID_PROTOCOL"
	CodeMissingDomain     Code = "MISSING_DOMAIN"
	CodeInvalidDomain     Code = "INVALID_DOMAIN"
	CodeMalformedURL      Code = "MALFORMED_URL"
	CodeNotJobURL         Code = "NOT_JOB_URL"

	CodeInvalidBody      Code = "INVALID_BODY"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeNoFieldsToUpdate Code = "NO_FIELDS_TO_UPDATE"
	CodeProcessingFailed Code = "PROCESSING_FAILED"
	CodeDatabaseError    Code = "DATABASE_ERROR"
	CodeInternalError    Code = "INTERNAL_ERROR"
)

// AppError is the domain error carried between services and handlers.
// Handlers own the mapping from Code to HTTP status.
type AppError struct {
	Code    Code
	Message string
	Err     error
	stack   []byte
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StackTrace returns the stack captured at construction time, for operator logs.
func (e *AppError) StackTrace() []byte {
	return e.stack
}

func New(code Code, message string, err error) *AppError {
	var stack []byte
	if err != nil {
		if stackErr, ok := err.(*goerrors.Error); ok {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		stack:   stack,
	}
}

func Validation(code Code, message string) *AppError {
	return New(code, message, nil)
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message, nil)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message, nil)
}

func Database(message string, err error) *AppError {
	return New(CodeDatabaseError, message, err)
}

func Internal(message string, err error) *AppError {
	return New(CodeInternalError, message, err)
}
