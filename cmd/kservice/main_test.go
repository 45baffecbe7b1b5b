package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
	"github.com/vingarcia/kservice"
	tt "github.com/vingarcia/kservice/internal/testtools"
	"github.com/vingarcia/kservice/kdb"
)

func TestCommandParams(t *testing.T) {
	env := map[string]string{}
	getenv := func(key string) string {
		return env[key]
	}

	tests := []struct {
		desc               string
		args               []string
		env                map[string]string
		expectedParams     commandParams
		expectErrToContain string
	}{
		{
			desc:           "should use sqlite3 with a local file by default",
			args:           []string{"kservice"},
			expectedParams: commandParams{driver: "sqlite3", url: "kservice.db", port: 8008},
		},
		{
			desc: "should read all the flags",
			args: []string{"kservice", "-driver", "pgx", "-url", "postgres://localhost/db", "-port", "9000", "-migrate", "-debug"},
			expectedParams: commandParams{
				driver:  "pgx",
				url:     "postgres://localhost/db",
				port:    9000,
				migrate: true,
				debug:   true,
			},
		},
		{
			desc: "should fallback to the environment variables",
			args: []string{"kservice"},
			env: map[string]string{
				"KSERVICE_DRIVER": "mysql",
				"KSERVICE_URL":    "root:pass@/db?parseTime=true",
			},
			expectedParams: commandParams{driver: "mysql", url: "root:pass@/db?parseTime=true", port: 8008},
		},
		{
			desc: "should prefer the flags over the environment variables",
			args: []string{"kservice", "-driver", "modernc"},
			env: map[string]string{
				"KSERVICE_DRIVER": "mysql",
			},
			expectedParams: commandParams{driver: "modernc", url: "kservice.db", port: 8008},
		},
		{
			desc:           "should not require an url for printing the routes",
			args:           []string{"kservice", "-driver", "postgres", "-print-routes"},
			expectedParams: commandParams{driver: "postgres", port: 8008, printRoutes: true},
		},
		{
			desc:               "should reject unknown drivers",
			args:               []string{"kservice", "-driver", "oracle"},
			expectErrToContain: "unsupported driver 'oracle'",
		},
		{
			desc:               "should require an url for remote databases",
			args:               []string{"kservice", "-driver", "sqlserver"},
			expectErrToContain: "-url is required",
		},
		{
			desc:               "should reject invalid ports",
			args:               []string{"kservice", "-port", "70000"},
			expectErrToContain: "invalid port",
		},
		{
			desc:               "should reject unknown flags",
			args:               []string{"kservice", "-verbose"},
			expectErrToContain: "-verbose",
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			env = test.env

			var stderr bytes.Buffer
			var params commandParams
			ok := params.Read(test.args, getenv, &stderr)
			if test.expectErrToContain != "" {
				tt.AssertEqual(t, ok, false)
				tt.AssertEqual(t, strings.Contains(stderr.String(), test.expectErrToContain), true, stderr.String())
				t.Skip()
			}

			tt.AssertEqual(t, ok, true)
			tt.AssertEqual(t, params, test.expectedParams)
		})
	}
}

func TestPrintRoutes(t *testing.T) {
	var out bytes.Buffer
	printRoutes(&out, 8008, routes)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	tt.AssertEqual(t, len(lines), 11)
	tt.AssertEqual(t, lines[0], `curl -X POST -H 'Content-Type: application/json' -d '{"name": "Jane", "email": "jane@mail.fr"}' http://localhost:8008/users`)
	tt.AssertEqual(t, lines[1], `curl -X GET 'http://localhost:8008/users?$take=10'`)
	tt.AssertEqual(t, lines[4], `curl -X DELETE http://localhost:8008/users/1`)
	tt.AssertEqual(t, lines[10], `websocket: ws://localhost:8008/ws`)
}

func TestConsoleLogger(t *testing.T) {
	ctx := context.Background()

	color.NoColor = true
	now := func() time.Time {
		return tt.ParseTime(t, "2024-01-02T03:04:05Z")
	}

	t.Run("should log successful calls", func(t *testing.T) {
		var out bytes.Buffer
		logger := newConsoleLogger(&out, now)
		logger(ctx, kservice.LogValues{
			Transport: kservice.TransportREST,
			Service:   "User",
			Method:    "create",
			Duration:  1500 * time.Microsecond,
		})

		tt.AssertEqual(t, out.String(), "2024-01-02T03:04:05Z rest      User.create (1.5ms) ok\n")
	})

	t.Run("should log the error codes", func(t *testing.T) {
		var out bytes.Buffer
		logger := newConsoleLogger(&out, now)
		logger(ctx, kservice.LogValues{
			Transport: kservice.TransportWebsocket,
			Service:   "User",
			Method:    "findUnique",
			Err:       kdb.ErrRecordNotFound,
		})

		tt.AssertEqual(t, strings.HasPrefix(out.String(), "2024-01-02T03:04:05Z websocket User.findUnique (0s) not-found: "), true, out.String())
	})

	t.Run("should log queries with their params and errors", func(t *testing.T) {
		var out bytes.Buffer
		logger := newQueryLogger(&out)
		logger(ctx, kdb.LogValues{
			Query:  "SELECT * FROM users WHERE id = ?",
			Params: []interface{}{42},
			Err:    errors.New("fakeErrMsg"),
		})

		tt.AssertEqual(t, out.String(), "SELECT * FROM users WHERE id = ? [42] fakeErrMsg\n")

		out.Reset()
		logger(ctx, kdb.LogValues{
			Model:  "User",
			Method: "FindUnique",
			Query:  "SELECT * FROM users WHERE id = ?",
			Params: []interface{}{42},
		})
		tt.AssertEqual(t, out.String(), "User.FindUnique SELECT * FROM users WHERE id = ? [42]\n")
	})
}

func TestBuildApp(t *testing.T) {
	ctx := context.Background()

	color.NoColor = true
	var out lockedBuffer
	app, db, err := buildApp(ctx, commandParams{
		driver:  "modernc",
		url:     filepath.Join(t.TempDir(), "kservice.db"),
		migrate: true,
		debug:   true,
	}, &out)
	tt.AssertNoErr(t, err)
	defer db.Close()
	defer app.Close()

	server := httptest.NewServer(app.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/users", "application/json", strings.NewReader(`{"name":"Jane","email":"jane@mail.fr"}`))
	tt.AssertNoErr(t, err)
	resp.Body.Close()
	tt.AssertEqual(t, resp.StatusCode, http.StatusCreated)

	resp, err = http.Get(server.URL + "/posts")
	tt.AssertNoErr(t, err)
	resp.Body.Close()
	tt.AssertEqual(t, resp.StatusCode, http.StatusOK)

	logs := out.String()
	tt.AssertEqual(t, strings.Contains(logs, "INSERT INTO"), true, logs)
	tt.AssertEqual(t, strings.Contains(logs, "rest      User.create"), true, logs)
	tt.AssertEqual(t, strings.Contains(logs, "rest      Post.findMany"), true, logs)

	t.Run("should be able to migrate twice", func(t *testing.T) {
		err := migrate(ctx, db)
		tt.AssertNoErr(t, err)
	})

	t.Run("should report unsupported drivers", func(t *testing.T) {
		_, _, err := buildApp(ctx, commandParams{driver: "oracle"}, &out)
		tt.AssertErrContains(t, err, "unsupported driver")
	})
}

func TestRun(t *testing.T) {
	color.NoColor = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	params := commandParams{
		driver:  "sqlite3",
		url:     filepath.Join(t.TempDir(), "kservice.db"),
		port:    0,
		migrate: true,
	}

	var out lockedBuffer
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, params, &out)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "listening on")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		tt.AssertNoErr(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for the server to shutdown")
	}

	tt.AssertEqual(t, strings.Contains(out.String(), "shutting down"), true)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
