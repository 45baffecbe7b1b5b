package kpostgres

import (
	"context"
	"database/sql"

	"github.com/vingarcia/kservice/kdb"
	"github.com/vingarcia/kservice/sqldialect"

	// This is imported here so the user don't
	// have to worry about it when he uses it.
	_ "github.com/lib/pq"
)

// NewFromSQLDB builds a kdb.DB from a *sql.DB instance
func NewFromSQLDB(db *sql.DB, schemas ...kdb.Schema) (kdb.DB, error) {
	return kdb.NewWithAdapter(kdb.NewSQLAdapter(db), sqldialect.PostgresDialect{}, schemas...)
}

// New instantiates a new kdb.DB using the "postgres" driver
func New(
	_ context.Context,
	connectionString string,
	config kdb.Config,
	schemas ...kdb.Schema,
) (kdb.DB, error) {
	config.SetDefaultValues()

	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return kdb.DB{}, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return kdb.DB{}, err
	}

	db.SetMaxOpenConns(config.MaxOpenConns)

	return NewFromSQLDB(db, schemas...)
}
