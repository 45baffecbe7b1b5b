package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/alessio/shellescape"
)

const defaultPort = 8008

var supportedDrivers = []string{"sqlite3", "modernc", "postgres", "pgx", "mysql", "sqlserver"}

type commandParams struct {
	driver      string
	url         string
	port        int
	migrate     bool
	debug       bool
	printRoutes bool
}

// Read parses the command line arguments falling back to
// the KSERVICE_DRIVER and KSERVICE_URL environment variables.
func (c *commandParams) Read(args []string, getenv func(string) string, stderr io.Writer) bool {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.driver, "driver", getenv("KSERVICE_DRIVER"), "database driver, one of: "+strings.Join(supportedDrivers, ", "))
	fs.StringVar(&c.url, "url", getenv("KSERVICE_URL"), "database connection string")
	fs.IntVar(&c.port, "port", defaultPort, "port the HTTP server will listen on")
	fs.BoolVar(&c.migrate, "migrate", false, "create the users and posts tables before starting")
	fs.BoolVar(&c.debug, "debug", false, "log every query sent to the database")
	fs.BoolVar(&c.printRoutes, "print-routes", false, "print curl examples for every route and exit")

	if err := fs.Parse(args[1:]); err != nil {
		return false
	}

	if c.driver == "" {
		c.driver = "sqlite3"
	}
	if !isSupportedDriver(c.driver) {
		fmt.Fprintf(stderr, "unsupported driver '%s', expected one of: %s\n", c.driver, strings.Join(supportedDrivers, ", "))
		fs.Usage()
		return false
	}

	if c.url == "" && !c.printRoutes {
		if c.driver != "sqlite3" && c.driver != "modernc" {
			fmt.Fprintln(stderr, "-url is required for the driver "+c.driver)
			fs.Usage()
			return false
		}
		c.url = "kservice.db"
	}

	if c.port < 0 || c.port > 65535 {
		fmt.Fprintf(stderr, "invalid port: %d\n", c.port)
		fs.Usage()
		return false
	}

	return true
}

func isSupportedDriver(driver string) bool {
	for _, d := range supportedDrivers {
		if d == driver {
			return true
		}
	}
	return false
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

// printRoutes writes one curl example for each REST route
// and the address of the websocket endpoint.
func printRoutes(w io.Writer, port int, routes []route) {
	baseURL := fmt.Sprintf("http://localhost:%d", port)
	for _, r := range routes {
		examples := []struct {
			method string
			path   string
			body   string
		}{
			{method: "POST", path: r.path, body: r.example},
			{method: "GET", path: r.path + "?$take=10"},
			{method: "GET", path: r.path + "/1"},
			{method: "PATCH", path: r.path + "/1", body: r.example},
			{method: "DELETE", path: r.path + "/1"},
		}

		for _, example := range examples {
			var cmd commandBuilder
			cmd.add("curl", "-X", example.method)
			if example.body != "" {
				cmd.add("-H", "Content-Type: application/json", "-d", example.body)
			}
			cmd.add(baseURL + example.path)
			fmt.Fprintln(w, cmd.String())
		}
	}

	fmt.Fprintf(w, "websocket: ws://localhost:%d/ws\n", port)
}
