package kmodernc

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"testing"

	tt "github.com/vingarcia/kservice/internal/testtools"
	"github.com/vingarcia/kservice/kdb"
	"github.com/vingarcia/kservice/sqldialect"
)

func TestAdapter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "kmodernc.db")

	kdb.RunTestsForAdapter(t, "kmodernc", sqldialect.Sqlite3Dialect{}, dbPath, func(t *testing.T) (kdb.DBAdapter, io.Closer) {
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			t.Fatal(err.Error())
		}
		return kdb.NewSQLAdapter(db), db
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	type tag struct {
		ID   int    `kdb:"id"`
		Name string `kdb:"name"`
	}

	db, err := New(ctx, filepath.Join(t.TempDir(), "new.db"), kdb.Config{}, kdb.MustSchema("Tag", "tags", tag{}))
	tt.AssertNoErr(t, err)
	defer db.Close()

	_, err = db.Exec(ctx, `CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT)`)
	tt.AssertNoErr(t, err)

	tags, err := db.Model("Tag")
	tt.AssertNoErr(t, err)

	record, err := tags.Create(ctx, kdb.CreateArgs{Data: kdb.Record{"name": "golang"}})
	tt.AssertNoErr(t, err)
	tt.AssertEqual(t, record, kdb.Record{"id": 1, "name": "golang"})

	count, err := tags.Count(ctx, kdb.CountArgs{})
	tt.AssertNoErr(t, err)
	tt.AssertEqual(t, count, int64(1))
}
