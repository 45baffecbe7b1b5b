package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/vingarcia/kservice"
	"github.com/vingarcia/kservice/kdb"
)

var (
	timeColor    = color.New(color.FgHiBlack)
	serviceColor = color.New(color.FgCyan, color.Bold)
	okColor      = color.New(color.FgGreen)
	errColor     = color.New(color.FgRed, color.Bold)
	queryColor   = color.New(color.FgYellow)
)

// newConsoleLogger returns a kservice.LoggerFn writing
// one colored line per service call.
func newConsoleLogger(w io.Writer, now func() time.Time) kservice.LoggerFn {
	return func(ctx context.Context, values kservice.LogValues) {
		status := okColor.Sprint("ok")
		if values.Err != nil {
			status = errColor.Sprintf("%s: %s", kservice.ErrorCode(values.Err), values.Err)
		}

		fmt.Fprintf(w, "%s %-9s %s %s\n",
			timeColor.Sprint(now().Format(time.RFC3339)),
			values.Transport,
			serviceColor.Sprintf("%s.%s", values.Service, values.Method),
			fmt.Sprintf("(%s) %s", values.Duration.Round(time.Microsecond), status),
		)
	}
}

// newQueryLogger returns a kdb.LoggerFn for kdb.InjectLogger()
func newQueryLogger(w io.Writer) kdb.LoggerFn {
	return func(ctx context.Context, values kdb.LogValues) {
		line := queryColor.Sprint(values.Query)
		if values.Model != "" {
			line = serviceColor.Sprintf("%s.%s", values.Model, values.Method) + " " + line
		}
		if len(values.Params) > 0 {
			line += fmt.Sprintf(" %v", values.Params)
		}
		if values.Err != nil {
			line += " " + errColor.Sprint(values.Err)
		}
		fmt.Fprintln(w, line)
	}
}
