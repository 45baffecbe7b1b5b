package kmysql

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	tt "github.com/vingarcia/kservice/internal/testtools"
	"github.com/vingarcia/kservice/kdb"
	"github.com/vingarcia/kservice/sqldialect"
)

func TestAdapter(t *testing.T) {
	mysqlURL, closeMySQL := startMySQLDB(t, "kservice")
	defer closeMySQL()

	kdb.RunTestsForAdapter(t, "kmysql", sqldialect.MysqlDialect{}, mysqlURL, func(t *testing.T) (kdb.DBAdapter, io.Closer) {
		db, err := sql.Open("mysql", mysqlURL)
		if err != nil {
			t.Fatal(err.Error())
		}
		return kdb.NewSQLAdapter(db), db
	})

	t.Run("New should configure the connection pool", func(t *testing.T) {
		db, err := New(context.Background(), mysqlURL, kdb.Config{MaxOpenConns: 2})
		tt.AssertNoErr(t, err)
		defer db.Close()

		tt.AssertEqual(t, db.Dialect().DriverName(), "mysql")
	})
}

func startMySQLDB(t *testing.T, dbName string) (databaseURL string, closer func()) {
	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		t.Skipf("skipping mysql tests since docker is unavailable: %s", err)
	}

	// pulls an image, creates a container based on it and runs it
	resource, err := pool.RunWithOptions(
		&dockertest.RunOptions{
			Repository: "mariadb",
			Tag:        "10.8",
			Env: []string{
				"MARIADB_ROOT_PASSWORD=mysql",
				"MARIADB_DATABASE=" + dbName,
			},
		},
		func(config *docker.HostConfig) {
			// set AutoRemove to true so that stopped container goes away by itself
			config.AutoRemove = true
			config.RestartPolicy = docker.RestartPolicy{Name: "no"}
		},
	)
	if err != nil {
		t.Fatalf("Could not start resource: %s", err)
	}

	hostAndPort := resource.GetHostPort("3306/tcp")
	databaseUrl := fmt.Sprintf("root:mysql@(%s)/%s?timeout=30s&parseTime=true", hostAndPort, dbName)

	resource.Expire(40) // Tell docker to hard kill the container in 40 seconds

	// exponential backoff-retry, because the application in the container might not be ready to accept connections yet
	pool.MaxWait = 10 * time.Second
	err = pool.Retry(func() error {
		db, err := sql.Open("mysql", databaseUrl)
		if err != nil {
			return err
		}
		defer db.Close()

		return db.Ping()
	})
	if err != nil {
		t.Fatalf("Could not connect to docker: %s", err)
	}

	return databaseUrl, func() {
		if err := pool.Purge(resource); err != nil {
			t.Errorf("Could not purge resource: %s", err)
		}
	}
}
