package kdb

import (
	"context"
)

// Provider describes the kdb public behavior
//
// The Mock struct implements this interface so it
// can be used on tests of code depending on kdb.
type Provider interface {
	Model(name string) (ModelProvider, error)

	Exec(ctx context.Context, query string, params ...interface{}) (Result, error)
	Transaction(ctx context.Context, fn func(Provider) error) error
}

// ModelProvider describes the operations available
// for each model registered on a kdb.Provider.
type ModelProvider interface {
	Create(ctx context.Context, args CreateArgs) (Record, error)

	FindMany(ctx context.Context, args FindManyArgs) ([]Record, error)
	FindFirst(ctx context.Context, args FindManyArgs) (Record, error)
	FindUnique(ctx context.Context, args FindUniqueArgs) (Record, error)

	Update(ctx context.Context, args UpdateArgs) (Record, error)
	UpdateMany(ctx context.Context, args UpdateManyArgs) (BatchResult, error)

	Delete(ctx context.Context, args DeleteArgs) (Record, error)
	DeleteMany(ctx context.Context, args DeleteManyArgs) (BatchResult, error)

	Count(ctx context.Context, args CountArgs) (int64, error)
}
