package kdb

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"

	"github.com/vingarcia/kservice/kmodifiers"
	"github.com/vingarcia/kservice/sqldialect"
)

// DB represents the kdb client responsible for interfacing
// with the database adapter and implementing the `kdb.Provider`
// interface.
//
// Each registered Schema becomes a model that can be reached
// by name with `db.Model(name)`.
type DB struct {
	dialect sqldialect.Provider
	db      DBAdapter
	schemas map[string]Schema
}

var _ Provider = DB{}

// DBAdapter is minimalistic interface to decouple our implementation
// from database/sql, i.e. if any struct implements the functions below
// with the exact same semantic as the sql package it will work with kdb.
//
// To create a new client using this adapter use `kdb.NewWithAdapter()`
type DBAdapter interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error)
}

// TxBeginner needs to be implemented by the DBAdapter in order to make it possible
// to use the `kdb.Transaction()` function.
type TxBeginner interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Result stores information about the result of an Exec query
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Rows represents the results from a call to Query()
type Rows interface {
	Scan(...interface{}) error
	Close() error
	Next() bool
	Err() error
	Columns() ([]string, error)
}

// ScanArgError is a type of error that is expected to be returned
// from the Scan() method of the Rows interface.
//
// It should be returned when there is an error scanning one of the input
// values.
//
// This is necessary in order to allow kdb to produce a better and more
// readable error message when this type of error occur.
type ScanArgError struct {
	ColumnIndex int
	Err         error
}

// Error implements the error interface.
func (s ScanArgError) Error() string {
	return fmt.Sprintf(
		"error scanning input attribute with index %d: %s",
		s.ColumnIndex, s.Err,
	)
}

func (s ScanArgError) ErrorWithStructNames(structName string, colName string) error {
	return fmt.Errorf(
		"error scanning %s.%s: %w",
		structName, colName, s.Err,
	)
}

// Tx represents a transaction and is expected to be returned by the DBAdapter.BeginTx function
type Tx interface {
	DBAdapter

	Rollback(ctx context.Context) error
	Commit(ctx context.Context) error
}

// Config describes the optional arguments accepted
// by the `New()` function of each adapter.
type Config struct {
	// MaxOpenCons defaults to 1 if not set
	MaxOpenConns int

	// Used by some adapters (such as kpgx) where nil disables TLS
	TLSConfig *tls.Config
}

// SetDefaultValues should be called by all adapters
// to set the default config values if unset.
func (c *Config) SetDefaultValues() {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 1
	}
}

// NewWithAdapter allows the user to insert a custom implementation
// of the DBAdapter interface, every schema passed as argument
// is registered as a model named after `Schema.Name()`.
func NewWithAdapter(
	db DBAdapter,
	dialect sqldialect.Provider,
	schemas ...Schema,
) (DB, error) {
	if dialect == nil {
		return DB{}, fmt.Errorf("kdb: a dialect is required to instantiate a new DB")
	}

	registry := map[string]Schema{}
	for _, schema := range schemas {
		if schema.name == "" {
			return DB{}, fmt.Errorf("kdb: schemas must be created with kdb.NewSchema()")
		}
		if _, found := registry[schema.name]; found {
			return DB{}, fmt.Errorf("kdb: the model name `%s` was registered more than once", schema.name)
		}
		registry[schema.name] = schema
	}

	return DB{
		dialect: dialect,
		db:      db,
		schemas: registry,
	}, nil
}

// Dialect returns the dialect used for writing the queries
func (c DB) Dialect() sqldialect.Provider {
	return c.dialect
}

// Models returns the names of all the registered models
func (c DB) Models() []string {
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	return names
}

// Model returns the model registered with the input name
// or ErrUnknownModel if there is none.
func (c DB) Model(name string) (ModelProvider, error) {
	schema, found := c.schemas[name]
	if !found {
		return nil, fmt.Errorf("%w: `%s`", ErrUnknownModel, name)
	}

	return Model{
		db:     c,
		schema: schema,
	}, nil
}

// Exec just runs an SQL command on the database returning no rows.
func (c DB) Exec(ctx context.Context, query string, params ...interface{}) (_ Result, err error) {
	defer logQuery(ctx, kmodifiers.OpInfo{DriverName: c.dialect.DriverName()}, query, params)(&err)

	return c.db.ExecContext(ctx, query, params...)
}

// Transaction encapsulates several queries into a single transaction.
// All these queries should be made inside the input callback `fn`
// and they should use the input kdb.Provider.
//
// If the callback returns any errors the transaction will be rolled back,
// otherwise the transaction will be committed.
//
// If you call Transaction() inside an existing transaction, a new
// transaction won't be created, and the existing one will be used
// instead.
func (c DB) Transaction(ctx context.Context, fn func(Provider) error) error {
	if _, ok := c.db.(TxBeginner); !ok {
		if _, isTx := c.db.(Tx); !isTx {
			return fmt.Errorf("kdb: can't start transaction: The DBAdapter doesn't implement the TxBeginner interface")
		}
	}

	return c.transaction(ctx, func(db DB) error {
		return fn(db)
	})
}

// transaction works like Transaction but when the adapter has no support
// for transactions the callback is just executed with the current DB.
func (c DB) transaction(ctx context.Context, fn func(DB) error) error {
	switch txBeginner := c.db.(type) {
	case Tx:
		return fn(c)
	case TxBeginner:
		tx, err := txBeginner.BeginTx(ctx)
		if err != nil {
			return fmt.Errorf("kdb: error starting transaction: %w", err)
		}
		defer func() {
			if r := recover(); r != nil {
				rollbackErr := tx.Rollback(ctx)
				if rollbackErr != nil {
					r = fmt.Errorf(
						"kdb: unable to rollback after panic with value: %v, rollback error: %w",
						r, rollbackErr,
					)
				}
				panic(r)
			}
		}()

		dbCopy := c
		dbCopy.db = tx

		err = fn(dbCopy)
		if err != nil {
			rollbackErr := tx.Rollback(ctx)
			if rollbackErr != nil {
				err = fmt.Errorf(
					"kdb: unable to rollback after error: %s, rollback error: %w",
					err, rollbackErr,
				)
			}
			return err
		}

		return tx.Commit(ctx)

	default:
		return fn(c)
	}
}

// Close implements the io.Closer interface
func (c DB) Close() error {
	closer, ok := c.db.(io.Closer)
	if ok {
		return closer.Close()
	}
	return nil
}
