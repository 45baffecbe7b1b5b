package kservice

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vingarcia/kservice/kdb"
)

// The error codes sent to the clients on the `code` attribute
// of the error responses of every transport.
const (
	CodeMissingService = "missing-service"
	CodeMissingMethod  = "missing-method"
	CodeNotFound       = "not-found"
	CodeBadRequest     = "bad-request"
	CodeInternal       = "internal"
)

// Error is the error type returned by service calls, its Code
// is meant to be checked by the callers, e.g.:
//
//	if kservice.ErrorCode(err) == kservice.CodeMissingMethod {
//		...
//	}
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	err error
}

// NewError builds a new Error with the informed code
func NewError(code string, format string, args ...interface{}) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{
		Code:    code,
		Message: err.Error(),
		err:     errors.Unwrap(err),
	}
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// ErrorCode returns the code of the informed error,
// errors not created by kservice are reported as CodeInternal.
//
// It returns an empty string if err is nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	return asError(err).Code
}

// asError translates the errors returned by the kdb package
// into their kservice codes.
func asError(err error) *Error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}

	var invalidArgs kdb.InvalidArgsError
	switch {
	case errors.Is(err, kdb.ErrRecordNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error(), err: err}
	case errors.Is(err, kdb.ErrUnknownModel):
		return &Error{Code: CodeMissingService, Message: err.Error(), err: err}
	case errors.Is(err, kdb.ErrNoValuesToUpdate), errors.As(err, &invalidArgs):
		return &Error{Code: CodeBadRequest, Message: err.Error(), err: err}
	}

	return &Error{Code: CodeInternal, Message: err.Error(), err: err}
}

// httpStatus returns the status code used by the REST
// endpoints when responding with the informed error.
func (e *Error) httpStatus() int {
	switch e.Code {
	case CodeNotFound, CodeMissingService:
		return http.StatusNotFound
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeMissingMethod:
		return http.StatusMethodNotAllowed
	}
	return http.StatusInternalServerError
}
