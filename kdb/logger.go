package kdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vingarcia/kservice/kmodifiers"
)

// Replaced during tests
var logOutput io.Writer = os.Stdout

var _ LoggerFn = ErrorLogger

// ErrorLogger is a builtin logger that can be passed to
// kdb.InjectLogger() to only log the queries that failed.
//
// Errors found before the query reaches the adapter, e.g.
// invalid arguments, are returned but never logged.
func ErrorLogger(ctx context.Context, values LogValues) {
	if values.Err == nil {
		return
	}

	Logger(ctx, values)
}

var _ LoggerFn = Logger

// Logger is a builtin logger that can be passed to kdb.InjectLogger()
// to print every query as a line of JSON on the standard output.
func Logger(ctx context.Context, values LogValues) {
	b, _ := json.Marshal(values)
	fmt.Fprintln(logOutput, string(b))
}

// LogValues describes a query sent to the database.
//
// Model and Method are empty for the queries
// sent directly with DB.Exec().
type LogValues struct {
	Model  string
	Method string

	Query    string
	Params   []interface{}
	Duration time.Duration
	Err      error
}

func (l LogValues) MarshalJSON() ([]byte, error) {
	var out struct {
		Model    string        `json:"model,omitempty"`
		Method   string        `json:"method,omitempty"`
		Query    string        `json:"query"`
		Params   []interface{} `json:"params"`
		Duration string        `json:"duration,omitempty"`
		Err      string        `json:"error,omitempty"`
	}

	out.Model = l.Model
	out.Method = l.Method
	out.Query = l.Query

	// Params are always printed as a list, even when empty
	out.Params = l.Params
	if out.Params == nil {
		out.Params = []interface{}{}
	}

	if l.Duration > 0 {
		out.Duration = l.Duration.String()
	}

	if l.Err != nil {
		out.Err = l.Err.Error()
	}
	return json.Marshal(out)
}

// LoggerFn is the type of the loggers accepted by kdb.InjectLogger()
type LoggerFn func(ctx context.Context, values LogValues)

type loggerKey struct{}

// InjectLogger returns a context that makes kdb report every
// query executed with it to logFn, e.g.:
//
//	ctx = kdb.InjectLogger(ctx, kdb.Logger)
//
//	users, _ := db.Model("User")
//	users.Create(ctx, kdb.CreateArgs{Data: kdb.Record{"name": "Jane"}})
func InjectLogger(ctx context.Context, logFn LoggerFn) context.Context {
	return context.WithValue(ctx, loggerKey{}, logFn)
}

// logQuery is meant to be deferred right before running a query:
//
//	defer logQuery(ctx, opInfo, query, params)(&err)
//
// so the duration is measured from the defer statement
// until the function returns.
func logQuery(ctx context.Context, opInfo kmodifiers.OpInfo, query string, params []interface{}) func(err *error) {
	logFn, _ := ctx.Value(loggerKey{}).(LoggerFn)
	if logFn == nil {
		return func(*error) {}
	}

	start := time.Now()
	return func(err *error) {
		logFn(ctx, LogValues{
			Model:    opInfo.Model,
			Method:   opInfo.Method,
			Query:    query,
			Params:   params,
			Duration: time.Since(start),
			Err:      *err,
		})
	}
}
