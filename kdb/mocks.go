package kdb

import (
	"context"
	"fmt"
)

var _ Provider = Mock{}

// Mock implements the Provider interface in order to allow users
// to easily mock the behavior of a kdb.Provider.
//
// To mock a particular method, e.g. Model, you just need to overwrite
// the corresponding function attribute whose name is ModelFn().
//
// NOTE: This mock should be instantiated inside each unit test not globally.
//
// For capturing input values use a closure as in the example:
//
//	var createdData []kdb.Record
//	dbMock := kdb.Mock{
//		ModelFn: func(name string) (kdb.ModelProvider, error) {
//			return kdb.MockModel{
//				CreateFn: func(ctx context.Context, args kdb.CreateArgs) (kdb.Record, error) {
//					createdData = append(createdData, args.Data)
//					return args.Data, nil
//				},
//			}, nil
//		},
//	}
//
// NOTE: It is recommended not to make assertions inside the mocked methods,
// you should only check the captured values afterwards as all tests should
// have 3 stages: (1) setup, (2) run and finally (3) assert.
type Mock struct {
	ModelFn func(name string) (ModelProvider, error)

	ExecFn        func(ctx context.Context, query string, params ...interface{}) (Result, error)
	TransactionFn func(ctx context.Context, fn func(db Provider) error) error
}

// SetFallbackDatabase will set all the Fn attributes to use
// the function from the input database.
//
// SetFallbackDatabase is useful when you only want to
// overwrite some of the operations, e.g. for testing errors
// or if you want to use the same setup for making unit tests
// and integration tests.
//
// Example Usage:
//
//	db, err := ksqlite3.New(...)
//	if err != nil {
//		t.Fatal(err.Error())
//	}
//
//	mockdb := kdb.Mock{
//		ExecFn: func(_ context.Context, query string, params ...interface{}) (kdb.Result, error) {
//			return nil, fmt.Errorf("fake error")
//		},
//	}.SetFallbackDatabase(db)
func (m Mock) SetFallbackDatabase(db Provider) Mock {
	if m.ModelFn == nil {
		m.ModelFn = db.Model
	}
	if m.ExecFn == nil {
		m.ExecFn = db.Exec
	}
	if m.TransactionFn == nil {
		m.TransactionFn = db.Transaction
	}

	return m
}

// Model mocks the behavior of the Model method.
// If ModelFn is set it will just call it returning the same return values.
// If ModelFn is unset it will panic with an appropriate error message.
func (m Mock) Model(name string) (ModelProvider, error) {
	if m.ModelFn == nil {
		panic(fmt.Errorf("kdb.Mock.Model(%s) called but the kdb.Mock.ModelFn() is not set", name))
	}
	return m.ModelFn(name)
}

// Exec mocks the behavior of the Exec method.
// If ExecFn is set it will just call it returning the same return values.
// If ExecFn is unset it will panic with an appropriate error message.
func (m Mock) Exec(ctx context.Context, query string, params ...interface{}) (Result, error) {
	if m.ExecFn == nil {
		panic(fmt.Errorf("kdb.Mock.Exec(ctx, %s, %v) called but the kdb.Mock.ExecFn() is not set", query, params))
	}
	return m.ExecFn(ctx, query, params...)
}

// Transaction mocks the behavior of the Transaction method.
// If TransactionFn is set it will just call it returning the same return values.
// If TransactionFn is unset it will just call the input function
// passing the Mock itself as the database.
func (m Mock) Transaction(ctx context.Context, fn func(db Provider) error) error {
	if m.TransactionFn == nil {
		return fn(m)
	}
	return m.TransactionFn(ctx, fn)
}

var _ ModelProvider = MockModel{}

// MockModel implements the ModelProvider interface in order to allow
// users to easily mock the behavior of a single model, it is usually
// returned from the Mock.ModelFn attribute.
type MockModel struct {
	CreateFn func(ctx context.Context, args CreateArgs) (Record, error)

	FindManyFn   func(ctx context.Context, args FindManyArgs) ([]Record, error)
	FindFirstFn  func(ctx context.Context, args FindManyArgs) (Record, error)
	FindUniqueFn func(ctx context.Context, args FindUniqueArgs) (Record, error)

	UpdateFn     func(ctx context.Context, args UpdateArgs) (Record, error)
	UpdateManyFn func(ctx context.Context, args UpdateManyArgs) (BatchResult, error)

	DeleteFn     func(ctx context.Context, args DeleteArgs) (Record, error)
	DeleteManyFn func(ctx context.Context, args DeleteManyArgs) (BatchResult, error)

	CountFn func(ctx context.Context, args CountArgs) (int64, error)
}

// SetFallbackModel will set all the unset Fn attributes
// to use the methods of the input model.
func (m MockModel) SetFallbackModel(model ModelProvider) MockModel {
	if m.CreateFn == nil {
		m.CreateFn = model.Create
	}
	if m.FindManyFn == nil {
		m.FindManyFn = model.FindMany
	}
	if m.FindFirstFn == nil {
		m.FindFirstFn = model.FindFirst
	}
	if m.FindUniqueFn == nil {
		m.FindUniqueFn = model.FindUnique
	}
	if m.UpdateFn == nil {
		m.UpdateFn = model.Update
	}
	if m.UpdateManyFn == nil {
		m.UpdateManyFn = model.UpdateMany
	}
	if m.DeleteFn == nil {
		m.DeleteFn = model.Delete
	}
	if m.DeleteManyFn == nil {
		m.DeleteManyFn = model.DeleteMany
	}
	if m.CountFn == nil {
		m.CountFn = model.Count
	}

	return m
}

// Create mocks the behavior of the Create method.
// If CreateFn is unset it will panic with an appropriate error message.
func (m MockModel) Create(ctx context.Context, args CreateArgs) (Record, error) {
	if m.CreateFn == nil {
		panic(fmt.Errorf("kdb.MockModel.Create(ctx, %+v) called but the kdb.MockModel.CreateFn() is not set", args))
	}
	return m.CreateFn(ctx, args)
}

// FindMany mocks the behavior of the FindMany method.
// If FindManyFn is unset it will panic with an appropriate error message.
func (m MockModel) FindMany(ctx context.Context, args FindManyArgs) ([]Record, error) {
	if m.FindManyFn == nil {
		panic(fmt.Errorf("kdb.MockModel.FindMany(ctx, %+v) called but the kdb.MockModel.FindManyFn() is not set", args))
	}
	return m.FindManyFn(ctx, args)
}

// FindFirst mocks the behavior of the FindFirst method.
// If FindFirstFn is unset it will panic with an appropriate error message.
func (m MockModel) FindFirst(ctx context.Context, args FindManyArgs) (Record, error) {
	if m.FindFirstFn == nil {
		panic(fmt.Errorf("kdb.MockModel.FindFirst(ctx, %+v) called but the kdb.MockModel.FindFirstFn() is not set", args))
	}
	return m.FindFirstFn(ctx, args)
}

// FindUnique mocks the behavior of the FindUnique method.
// If FindUniqueFn is unset it will panic with an appropriate error message.
func (m MockModel) FindUnique(ctx context.Context, args FindUniqueArgs) (Record, error) {
	if m.FindUniqueFn == nil {
		panic(fmt.Errorf("kdb.MockModel.FindUnique(ctx, %+v) called but the kdb.MockModel.FindUniqueFn() is not set", args))
	}
	return m.FindUniqueFn(ctx, args)
}

// Update mocks the behavior of the Update method.
// If UpdateFn is unset it will panic with an appropriate error message.
func (m MockModel) Update(ctx context.Context, args UpdateArgs) (Record, error) {
	if m.UpdateFn == nil {
		panic(fmt.Errorf("kdb.MockModel.Update(ctx, %+v) called but the kdb.MockModel.UpdateFn() is not set", args))
	}
	return m.UpdateFn(ctx, args)
}

// UpdateMany mocks the behavior of the UpdateMany method.
// If UpdateManyFn is unset it will panic with an appropriate error message.
func (m MockModel) UpdateMany(ctx context.Context, args UpdateManyArgs) (BatchResult, error) {
	if m.UpdateManyFn == nil {
		panic(fmt.Errorf("kdb.MockModel.UpdateMany(ctx, %+v) called but the kdb.MockModel.UpdateManyFn() is not set", args))
	}
	return m.UpdateManyFn(ctx, args)
}

// Delete mocks the behavior of the Delete method.
// If DeleteFn is unset it will panic with an appropriate error message.
func (m MockModel) Delete(ctx context.Context, args DeleteArgs) (Record, error) {
	if m.DeleteFn == nil {
		panic(fmt.Errorf("kdb.MockModel.Delete(ctx, %+v) called but the kdb.MockModel.DeleteFn() is not set", args))
	}
	return m.DeleteFn(ctx, args)
}

// DeleteMany mocks the behavior of the DeleteMany method.
// If DeleteManyFn is unset it will panic with an appropriate error message.
func (m MockModel) DeleteMany(ctx context.Context, args DeleteManyArgs) (BatchResult, error) {
	if m.DeleteManyFn == nil {
		panic(fmt.Errorf("kdb.MockModel.DeleteMany(ctx, %+v) called but the kdb.MockModel.DeleteManyFn() is not set", args))
	}
	return m.DeleteManyFn(ctx, args)
}

// Count mocks the behavior of the Count method.
// If CountFn is unset it will panic with an appropriate error message.
func (m MockModel) Count(ctx context.Context, args CountArgs) (int64, error) {
	if m.CountFn == nil {
		panic(fmt.Errorf("kdb.MockModel.Count(ctx, %+v) called but the kdb.MockModel.CountFn() is not set", args))
	}
	return m.CountFn(ctx, args)
}

// MockResult implements the Result interface returned by the Exec function
//
// Use the constructor `NewMockResult(42, 42)` for a simpler instantiation of this mock.
//
// But if you want one of the functions to return an error you'll need
// to specify the desired behavior by overwriting one of the attributes
// of the struct.
type MockResult struct {
	LastInsertIdFn func() (int64, error)
	RowsAffectedFn func() (int64, error)
}

// NewMockResult returns a simple implementation of the Result interface.
func NewMockResult(lastInsertID int64, rowsAffected int64) Result {
	return MockResult{
		LastInsertIdFn: func() (int64, error) { return lastInsertID, nil },
		RowsAffectedFn: func() (int64, error) { return rowsAffected, nil },
	}
}

// LastInsertId implements the Result interface
func (m MockResult) LastInsertId() (int64, error) {
	if m.LastInsertIdFn == nil {
		panic(fmt.Errorf("kdb.MockResult.LastInsertId() called but kdb.MockResult.LastInsertIdFn is not set"))
	}
	return m.LastInsertIdFn()
}

// RowsAffected implements the Result interface
func (m MockResult) RowsAffected() (int64, error) {
	if m.RowsAffectedFn == nil {
		panic(fmt.Errorf("kdb.MockResult.RowsAffected() called but kdb.MockResult.RowsAffectedFn is not set"))
	}
	return m.RowsAffectedFn()
}
