package kservice

import (
	"context"
	"sync"
	"time"

	"github.com/vingarcia/kservice/kdb"
)

// The names of the methods of the services created with
// App.CreateDatabaseService(), these are also the names
// used by the REST endpoints.
const (
	MethodCreate     = "create"
	MethodFindMany   = "findMany"
	MethodFindFirst  = "findFirst"
	MethodFindUnique = "findUnique"
	MethodUpdate     = "update"
	MethodUpdateMany = "updateMany"
	MethodDelete     = "delete"
	MethodDeleteMany = "deleteMany"
	MethodCount      = "count"
)

// mutatingMethods are the methods whose results
// are published to the channels after each call.
var mutatingMethods = map[string]bool{
	MethodCreate:     true,
	MethodUpdate:     true,
	MethodUpdateMany: true,
	MethodDelete:     true,
	MethodDeleteMany: true,
}

// Service is a named set of methods reachable in process,
// via the REST endpoints and via websocket.
//
// Handles for services that were never created are valid,
// but every call on them fails with CodeMissingService.
type Service struct {
	app  *App
	name string

	// idColumn is the attribute used by the REST
	// endpoints that receive an id on the path
	idColumn string

	mu      sync.RWMutex
	methods Methods
	hooks   Hooks
}

// Name returns the name the service was registered with
func (s *Service) Name() string {
	return s.name
}

// HasMethod reports whether the service implements the informed method
func (s *Service) HasMethod(method string) bool {
	_, _, err := s.lookup(method)
	return err == nil
}

// Hooks registers new hooks on the service, hooks
// already registered are kept and run first.
//
// Calling it on a service that was never created has no effect.
func (s *Service) Hooks(hooks Hooks) *Service {
	svc, found := s.app.lookupService(s.name)
	if !found {
		return s
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.hooks.add(hooks)
	return s
}

// Call calls a method of the service by name running all
// of its hooks, it is the in process equivalent of a
// call received via websocket.
func (s *Service) Call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	return s.call(ctx, method, Args(args), TransportInternal, nil)
}

func (s *Service) call(ctx context.Context, method string, args Args, transport string, conn *Conn) (result interface{}, err error) {
	start := time.Now()
	defer func() {
		s.app.log(ctx, LogValues{
			Transport: transport,
			Service:   s.name,
			Method:    method,
			Duration:  time.Since(start),
			Err:       err,
		})
	}()

	svc, fn, err := s.lookup(method)
	if err != nil {
		return nil, err
	}

	svc.mu.RLock()
	before := forMethod(svc.hooks.Before, method)
	after := forMethod(svc.hooks.After, method)
	svc.mu.RUnlock()

	hc := &HookContext{
		App:       s.app,
		Service:   svc,
		Method:    method,
		Args:      args,
		Conn:      conn,
		Transport: transport,
	}

	err = runHooks(ctx, before, hc)
	if err != nil {
		return nil, asError(err)
	}

	hc.Result, err = fn(ctx, hc.Args)
	if err != nil {
		return nil, asError(err)
	}

	err = runHooks(ctx, after, hc)
	if err != nil {
		return nil, asError(err)
	}

	if mutatingMethods[method] {
		s.app.publish(ctx, hc)
	}

	return hc.Result, nil
}

// lookup resolves the service by name so handles obtained
// before the service was created still reach it.
func (s *Service) lookup(method string) (*Service, Method, error) {
	svc, found := s.app.lookupService(s.name)
	if !found {
		return nil, nil, NewError(CodeMissingService, "service `%s` does not exist", s.name)
	}

	svc.mu.RLock()
	defer svc.mu.RUnlock()

	fn, found := svc.methods[method]
	if !found {
		return nil, nil, NewError(CodeMissingMethod, "method `%s` does not exist on service `%s`", method, s.name)
	}

	return svc, fn, nil
}

// Create calls the create method of the service
func (s *Service) Create(ctx context.Context, args kdb.CreateArgs) (kdb.Record, error) {
	return callAs[kdb.Record](ctx, s, MethodCreate, args)
}

// FindMany calls the findMany method of the service
func (s *Service) FindMany(ctx context.Context, args kdb.FindManyArgs) ([]kdb.Record, error) {
	return callAs[[]kdb.Record](ctx, s, MethodFindMany, args)
}

// FindFirst calls the findFirst method of the service
func (s *Service) FindFirst(ctx context.Context, args kdb.FindManyArgs) (kdb.Record, error) {
	return callAs[kdb.Record](ctx, s, MethodFindFirst, args)
}

// FindUnique calls the findUnique method of the service
func (s *Service) FindUnique(ctx context.Context, args kdb.FindUniqueArgs) (kdb.Record, error) {
	return callAs[kdb.Record](ctx, s, MethodFindUnique, args)
}

// Update calls the update method of the service
func (s *Service) Update(ctx context.Context, args kdb.UpdateArgs) (kdb.Record, error) {
	return callAs[kdb.Record](ctx, s, MethodUpdate, args)
}

// UpdateMany calls the updateMany method of the service
func (s *Service) UpdateMany(ctx context.Context, args kdb.UpdateManyArgs) (kdb.BatchResult, error) {
	return callAs[kdb.BatchResult](ctx, s, MethodUpdateMany, args)
}

// Delete calls the delete method of the service
func (s *Service) Delete(ctx context.Context, args kdb.DeleteArgs) (kdb.Record, error) {
	return callAs[kdb.Record](ctx, s, MethodDelete, args)
}

// DeleteMany calls the deleteMany method of the service
func (s *Service) DeleteMany(ctx context.Context, args kdb.DeleteManyArgs) (kdb.BatchResult, error) {
	return callAs[kdb.BatchResult](ctx, s, MethodDeleteMany, args)
}

// Count calls the count method of the service
func (s *Service) Count(ctx context.Context, args kdb.CountArgs) (int64, error) {
	return callAs[int64](ctx, s, MethodCount, args)
}

func callAs[T any](ctx context.Context, s *Service, method string, args interface{}) (T, error) {
	result, err := s.Call(ctx, method, args)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeResult[T](result)
}

// databaseMethods builds the methods of a service backed by
// the model with the informed name on the database.
func databaseMethods(getDB func() (kdb.Provider, error), modelName string) Methods {
	return Methods{
		MethodCreate: modelMethod(getDB, modelName, func(ctx context.Context, model kdb.ModelProvider, args kdb.CreateArgs) (interface{}, error) {
			return model.Create(ctx, args)
		}),
		MethodFindMany: modelMethod(getDB, modelName, func(ctx context.Context, model kdb.ModelProvider, args kdb.FindManyArgs) (interface{}, error) {
			return model.FindMany(ctx, args)
		}),
		MethodFindFirst: modelMethod(getDB, modelName, func(ctx context.Context, model kdb.ModelProvider, args kdb.FindManyArgs) (interface{}, error) {
			return model.FindFirst(ctx, args)
		}),
		MethodFindUnique: modelMethod(getDB, modelName, func(ctx context.Context, model kdb.ModelProvider, args kdb.FindUniqueArgs) (interface{}, error) {
			return model.FindUnique(ctx, args)
		}),
		MethodUpdate: modelMethod(getDB, modelName, func(ctx context.Context, model kdb.ModelProvider, args kdb.UpdateArgs) (interface{}, error) {
			return model.Update(ctx, args)
		}),
		MethodUpdateMany: modelMethod(getDB, modelName, func(ctx context.Context, model kdb.ModelProvider, args kdb.UpdateManyArgs) (interface{}, error) {
			return model.UpdateMany(ctx, args)
		}),
		MethodDelete: modelMethod(getDB, modelName, func(ctx context.Context, model kdb.ModelProvider, args kdb.DeleteArgs) (interface{}, error) {
			return model.Delete(ctx, args)
		}),
		MethodDeleteMany: modelMethod(getDB, modelName, func(ctx context.Context, model kdb.ModelProvider, args kdb.DeleteManyArgs) (interface{}, error) {
			return model.DeleteMany(ctx, args)
		}),
		MethodCount: modelMethod(getDB, modelName, func(ctx context.Context, model kdb.ModelProvider, args kdb.CountArgs) (interface{}, error) {
			return model.Count(ctx, args)
		}),
	}
}

// modelMethod decodes the first argument of the call into
// the argument type of the model operation, so the database
// methods accept both typed arguments and JSON objects.
func modelMethod[T any](
	getDB func() (kdb.Provider, error),
	modelName string,
	fn func(ctx context.Context, model kdb.ModelProvider, args T) (interface{}, error),
) Method {
	return func(ctx context.Context, args Args) (interface{}, error) {
		var modelArgs T
		err := args.Decode(0, &modelArgs)
		if err != nil {
			return nil, err
		}

		db, err := getDB()
		if err != nil {
			return nil, err
		}

		model, err := db.Model(modelName)
		if err != nil {
			return nil, err
		}

		return fn(ctx, model, modelArgs)
	}
}
