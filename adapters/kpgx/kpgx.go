package kpgx

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vingarcia/kservice/kdb"
	"github.com/vingarcia/kservice/sqldialect"
)

// NewFromPgxPool builds a kdb.DB from a *pgxpool.Pool instance
func NewFromPgxPool(pool *pgxpool.Pool, schemas ...kdb.Schema) (db kdb.DB, err error) {
	return kdb.NewWithAdapter(NewPGXAdapter(pool), sqldialect.PostgresDialect{}, schemas...)
}

// New instantiates a new kdb.DB using pgx as the backend driver
func New(
	ctx context.Context,
	connectionString string,
	config kdb.Config,
	schemas ...kdb.Schema,
) (db kdb.DB, err error) {
	config.SetDefaultValues()

	pgxConf, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return kdb.DB{}, err
	}

	pgxConf.MaxConns = int32(config.MaxOpenConns)
	if config.TLSConfig != nil {
		pgxConf.ConnConfig.TLSConfig = config.TLSConfig
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxConf)
	if err != nil {
		return kdb.DB{}, err
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return kdb.DB{}, err
	}

	return kdb.NewWithAdapter(NewPGXAdapter(pool), sqldialect.PostgresDialect{}, schemas...)
}
