package kservice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// This variable is only used during tests:
var logPrinter = fmt.Println

// LoggerFn is the signature of the function informed
// on Config.Logger, it is called once for every service call.
type LoggerFn func(ctx context.Context, values LogValues)

// LogValues is the argument type of LoggerFn which contains
// the data available for logging whenever a service is called.
type LogValues struct {
	Transport string
	Service   string
	Method    string
	Duration  time.Duration
	Err       error
}

// MarshalJSON implements the json.Marshaler interface
func (l LogValues) MarshalJSON() ([]byte, error) {
	var out struct {
		Transport string `json:"transport"`
		Service   string `json:"service"`
		Method    string `json:"method"`
		Duration  string `json:"duration"`
		Err       string `json:"error,omitempty"`
	}

	out.Transport = l.Transport
	out.Service = l.Service
	out.Method = l.Method
	out.Duration = l.Duration.String()
	if l.Err != nil {
		out.Err = l.Err.Error()
	}

	return json.Marshal(out)
}

var _ LoggerFn = ErrorLogger

// ErrorLogger is a builtin logger that can be informed on
// Config.Logger to only log the calls that fail.
func ErrorLogger(ctx context.Context, values LogValues) {
	if values.Err == nil {
		return
	}

	Logger(ctx, values)
}

var _ LoggerFn = Logger

// Logger is a builtin logger that can be informed on
// Config.Logger to log every service call.
func Logger(ctx context.Context, values LogValues) {
	b, _ := json.Marshal(values)
	logPrinter(string(b))
}

func (a *App) log(ctx context.Context, values LogValues) {
	if a.config.Logger == nil {
		return
	}
	a.config.Logger(ctx, values)
}
