package kclient

import (
	"context"
	"encoding/json"

	"github.com/vingarcia/kservice"
	"github.com/vingarcia/kservice/kdb"
)

// Service is a proxy to a service of the remote App
type Service struct {
	client *Client
	name   string
}

// Service returns a proxy to the service with the informed name,
// if the service doesn't exist the calls fail with an error whose
// code is kservice.CodeMissingService.
func (c *Client) Service(name string) Service {
	return Service{
		client: c,
		name:   name,
	}
}

// Call calls a method of the remote service decoding its result
// into the result argument, which might be nil if the result
// should be ignored.
//
// The errors returned by the server are of type *kservice.Error
// so their codes can be checked with kservice.ErrorCode().
func (s Service) Call(ctx context.Context, method string, result interface{}, args ...interface{}) error {
	return s.client.call(ctx, s.name, method, result, args)
}

// On registers a listener for the events published by
// the server after each call to the informed method.
//
// Listeners run one at a time on a goroutine of the client in the
// order the events were received, they may call the server with
// the same client but a slow listener delays the next events.
func (s Service) On(method string, fn func(result json.RawMessage)) {
	key := eventKey(s.name, method)

	s.client.mu.Lock()
	defer s.client.mu.Unlock()
	s.client.listeners[key] = append(s.client.listeners[key], fn)
}

// Create calls the create method of the remote service
func (s Service) Create(ctx context.Context, args kdb.CreateArgs) (record kdb.Record, err error) {
	err = s.Call(ctx, kservice.MethodCreate, &record, args)
	return record, err
}

// FindMany calls the findMany method of the remote service
func (s Service) FindMany(ctx context.Context, args kdb.FindManyArgs) (records []kdb.Record, err error) {
	err = s.Call(ctx, kservice.MethodFindMany, &records, args)
	return records, err
}

// FindUnique calls the findUnique method of the remote service
func (s Service) FindUnique(ctx context.Context, args kdb.FindUniqueArgs) (record kdb.Record, err error) {
	err = s.Call(ctx, kservice.MethodFindUnique, &record, args)
	return record, err
}

// Update calls the update method of the remote service
func (s Service) Update(ctx context.Context, args kdb.UpdateArgs) (record kdb.Record, err error) {
	err = s.Call(ctx, kservice.MethodUpdate, &record, args)
	return record, err
}

// Delete calls the delete method of the remote service
func (s Service) Delete(ctx context.Context, args kdb.DeleteArgs) (record kdb.Record, err error) {
	err = s.Call(ctx, kservice.MethodDelete, &record, args)
	return record, err
}

// DeleteMany calls the deleteMany method of the remote service
func (s Service) DeleteMany(ctx context.Context, args kdb.DeleteManyArgs) (result kdb.BatchResult, err error) {
	err = s.Call(ctx, kservice.MethodDeleteMany, &result, args)
	return result, err
}
