package kmysql

import (
	"context"
	"database/sql"

	"github.com/vingarcia/kservice/kdb"
	"github.com/vingarcia/kservice/sqldialect"

	// This is imported here so the user don't
	// have to worry about it when he uses it.
	_ "github.com/go-sql-driver/mysql"
)

// NewFromSQLDB builds a kdb.DB from a *sql.DB instance
func NewFromSQLDB(db *sql.DB, schemas ...kdb.Schema) (kdb.DB, error) {
	return kdb.NewWithAdapter(kdb.NewSQLAdapter(db), sqldialect.MysqlDialect{}, schemas...)
}

// New instantiates a new kdb.DB using the "mysql" driver,
// the connection string should contain the `parseTime=true` option
func New(
	_ context.Context,
	connectionString string,
	config kdb.Config,
	schemas ...kdb.Schema,
) (kdb.DB, error) {
	config.SetDefaultValues()

	db, err := sql.Open("mysql", connectionString)
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
