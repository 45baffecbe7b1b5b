package kdb

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned by the operations that expect
// to find a single record when no record matches the query.
//
// It wraps sql.ErrNoRows so both can be checked with errors.Is().
var ErrRecordNotFound = fmt.Errorf("kdb: the query returned no results: %w", sql.ErrNoRows)

// ErrNoValuesToUpdate is returned when an update is requested
// with no columns to be changed.
var ErrNoValuesToUpdate = errors.New("kdb: the input data has no values to update")

// ErrUnknownModel is returned by DB.Model() when
// no schema was registered with the requested name.
var ErrUnknownModel = errors.New("kdb: unknown model")

// InvalidArgsError is returned when the arguments of
// an operation are malformed, e.g. unknown attributes,
// values of the wrong type or an invalid filter.
//
// Transports use it to tell client errors from server errors.
type InvalidArgsError struct {
	Model string
	Err   error
}

func (e InvalidArgsError) Error() string {
	return fmt.Sprintf("kdb: invalid arguments for model %s: %s", e.Model, e.Err)
}

func (e InvalidArgsError) Unwrap() error {
	return e.Err
}

func invalidArgs(model string, format string, args ...interface{}) error {
	return InvalidArgsError{
		Model: model,
		Err:   fmt.Errorf(format, args...),
	}
}
