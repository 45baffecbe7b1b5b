// Command kservice serves the User and Post models
// over REST and websocket.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/vingarcia/kservice"
	"github.com/vingarcia/kservice/adapters/kmodernc"
	"github.com/vingarcia/kservice/adapters/kmysql"
	"github.com/vingarcia/kservice/adapters/kpgx"
	"github.com/vingarcia/kservice/adapters/kpostgres"
	"github.com/vingarcia/kservice/adapters/ksqlite3"
	"github.com/vingarcia/kservice/adapters/ksqlserver"
	"github.com/vingarcia/kservice/kdb"
)

type connectFn func(ctx context.Context, url string, config kdb.Config, schemas ...kdb.Schema) (kdb.DB, error)

var connectors = map[string]connectFn{
	"sqlite3":   ksqlite3.New,
	"modernc":   kmodernc.New,
	"postgres":  kpostgres.New,
	"pgx":       kpgx.New,
	"mysql":     kmysql.New,
	"sqlserver": ksqlserver.New,
}

func main() {
	var params commandParams
	if !params.Read(os.Args, os.Getenv, os.Stderr) {
		os.Exit(2)
	}

	if params.printRoutes {
		printRoutes(os.Stdout, params.port, routes)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, params, color.Output); err != nil {
		fmt.Fprintln(os.Stderr, errColor.Sprint(err))
		os.Exit(1)
	}
}

// run serves the app until ctx is canceled
func run(ctx context.Context, params commandParams, out io.Writer) error {
	app, db, err := buildApp(ctx, params, out)
	if err != nil {
		return err
	}
	defer db.Close()

	err = app.Listen(params.port)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "listening on %s using the %s driver\n", app.Addr(), params.driver)

	<-ctx.Done()

	fmt.Fprintln(out, "shutting down")
	return app.Close()
}

func buildApp(ctx context.Context, params commandParams, out io.Writer) (*kservice.App, kdb.DB, error) {
	connect, found := connectors[params.driver]
	if !found {
		return nil, kdb.DB{}, fmt.Errorf("unsupported driver: %s", params.driver)
	}

	db, err := connect(ctx, params.url, kdb.Config{}, usersSchema, postsSchema)
	if err != nil {
		return nil, kdb.DB{}, fmt.Errorf("unable to connect to the database: %w", err)
	}

	if params.migrate {
		err = migrate(ctx, db)
		if err != nil {
			db.Close()
			return nil, kdb.DB{}, err
		}
	}

	config := kservice.Config{
		Logger: newConsoleLogger(out, time.Now),
	}
	if params.debug {
		queryLogger := newQueryLogger(out)
		config.BaseContext = func(ctx context.Context) context.Context {
			return kdb.InjectLogger(ctx, queryLogger)
		}
	}

	app := kservice.New(db, config)
	for _, r := range routes {
		app.AddHTTPRest(r.path, app.CreateDatabaseService(r.service))
	}

	return app, db, nil
}
