package kdb

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	tt "github.com/vingarcia/kservice/internal/testtools"
	"github.com/vingarcia/kservice/kmodifiers"
)

func TestLogQuery(t *testing.T) {
	ctx := context.Background()

	opInfo := kmodifiers.OpInfo{
		Method:     "FindMany",
		Model:      "User",
		DriverName: "sqlite3",
	}

	t.Run("should do nothing when no logger was injected", func(t *testing.T) {
		err := errors.New("fakeErrMsg")
		panicPayload := tt.PanicHandler(func() {
			logQuery(ctx, opInfo, "fakeQuery", nil)(&err)
		})
		tt.AssertEqual(t, panicPayload, nil)
	})

	t.Run("should report the query with its model and method", func(t *testing.T) {
		var values []LogValues
		ctx := InjectLogger(ctx, func(ctx context.Context, v LogValues) {
			values = append(values, v)
		})

		var err error
		done := logQuery(ctx, opInfo, "fakeQuery", []interface{}{"fakeParam"})
		time.Sleep(10 * time.Millisecond)
		err = errors.New("fakeErrMsg")
		done(&err)

		tt.AssertEqual(t, len(values), 1)
		tt.AssertEqual(t, values[0].Model, "User")
		tt.AssertEqual(t, values[0].Method, "FindMany")
		tt.AssertEqual(t, values[0].Query, "fakeQuery")
		tt.AssertEqual(t, values[0].Params, []interface{}{"fakeParam"})
		tt.AssertEqual(t, values[0].Err, err)
		tt.AssertEqual(t, values[0].Duration >= 10*time.Millisecond, true)
	})
}

func TestBuiltinLoggers(t *testing.T) {
	ctx := context.Background()

	defer func() {
		logOutput = os.Stdout
	}()

	tests := []struct {
		desc             string
		logger           LoggerFn
		err              error
		expectedToPrint  bool
		expectedContents []string
	}{
		{
			desc:             "Logger should log queries without errors",
			logger:           Logger,
			expectedToPrint:  true,
			expectedContents: []string{`"model":"User"`, `"method":"Create"`, "FakeQuery", "FakeParam"},
		},
		{
			desc:             "Logger should log queries with errors",
			logger:           Logger,
			err:              errors.New("fakeErrMsg"),
			expectedToPrint:  true,
			expectedContents: []string{"FakeQuery", "FakeParam", `"error":"fakeErrMsg"`},
		},
		{
			desc:            "ErrorLogger should ignore queries without errors",
			logger:          ErrorLogger,
			expectedToPrint: false,
		},
		{
			desc:             "ErrorLogger should log queries with errors",
			logger:           ErrorLogger,
			err:              errors.New("fakeErrMsg"),
			expectedToPrint:  true,
			expectedContents: []string{`"model":"User"`, "FakeQuery", "fakeErrMsg"},
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			var out bytes.Buffer
			logOutput = &out

			test.logger(ctx, LogValues{
				Model:  "User",
				Method: "Create",
				Query:  "FakeQuery",
				Params: []interface{}{"FakeParam"},
				Err:    test.err,
			})

			if !test.expectedToPrint {
				tt.AssertEqual(t, out.String(), "")
				return
			}

			output := out.String()
			tt.AssertEqual(t, strings.Count(output, "\n"), 1)
			for _, content := range test.expectedContents {
				tt.AssertEqual(t, strings.Contains(output, content), true, "missing %q on output: %s", content, output)
			}
		})
	}

	t.Run("should omit the model for queries sent directly", func(t *testing.T) {
		rawJSON := tt.ToJSON(t, LogValues{Query: "FakeQuery"})
		tt.AssertEqual(t, string(rawJSON), `{"query":"FakeQuery","params":[]}`)
	})

	t.Run("should print the duration when known", func(t *testing.T) {
		rawJSON := tt.ToJSON(t, LogValues{Query: "FakeQuery", Duration: 1500 * time.Microsecond})
		tt.AssertEqual(t, string(rawJSON), `{"query":"FakeQuery","params":[],"duration":"1.5ms"}`)
	})
}
