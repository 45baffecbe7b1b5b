package kservice_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vingarcia/kservice"
	tt "github.com/vingarcia/kservice/internal/testtools"
	"github.com/vingarcia/kservice/kdb"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

func TestServerSideAPI(t *testing.T) {
	ctx := context.Background()

	app := kservice.New(newTestDB(t), kservice.Config{})
	app.CreateDatabaseService("User")
	app.CreateDatabaseService("Post")

	t.Run("can delete all users", func(t *testing.T) {
		result, err := app.Service("User").DeleteMany(ctx, kdb.DeleteManyArgs{})
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, result.Count >= 0, true)
	})

	t.Run("can create a user", func(t *testing.T) {
		u, err := app.Service("User").Create(ctx, kdb.CreateArgs{
			Data: kdb.Record{
				"name":  "chris",
				"email": "chris@mail.fr",
			},
		})
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, u["name"], "chris")
		tt.AssertNotEqual(t, u["id"], nil)
	})

	t.Run("can find a user by name", func(t *testing.T) {
		users, err := app.Service("User").FindMany(ctx, kdb.FindManyArgs{
			Where: kdb.Where{
				"name": kdb.Where{"startsWith": "ch"},
			},
		})
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, len(users) > 0, true)
	})

	t.Run("can find a unique user by email", func(t *testing.T) {
		chris, err := app.Service("User").FindUnique(ctx, kdb.FindUniqueArgs{
			Where: kdb.Where{"email": "chris@mail.fr"},
		})
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, chris["name"], "chris")
	})

	t.Run("can update, count and delete users", func(t *testing.T) {
		jane, err := app.Service("User").Create(ctx, kdb.CreateArgs{
			Data: kdb.Record{"name": "jane", "email": "jane@mail.fr"},
		})
		tt.AssertNoErr(t, err)

		updated, err := app.Service("User").Update(ctx, kdb.UpdateArgs{
			Where: kdb.Where{"id": jane["id"]},
			Data:  kdb.Record{"name": "Jane"},
		})
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, updated["name"], "Jane")
		tt.AssertEqual(t, updated["email"], "jane@mail.fr")

		count, err := app.Service("User").Count(ctx, kdb.CountArgs{})
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, count, int64(2))

		first, err := app.Service("User").FindFirst(ctx, kdb.FindManyArgs{
			OrderBy: kdb.Desc("id"),
		})
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, first["name"], "Jane")

		deleted, err := app.Service("User").Delete(ctx, kdb.DeleteArgs{
			Where: kdb.Where{"email": "jane@mail.fr"},
		})
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, deleted["name"], "Jane")

		_, err = app.Service("User").FindUnique(ctx, kdb.FindUniqueArgs{
			Where: kdb.Where{"id": jane["id"]},
		})
		tt.AssertEqual(t, kservice.ErrorCode(err), kservice.CodeNotFound)
		tt.AssertEqual(t, errors.Is(err, kdb.ErrRecordNotFound), true)
	})

	t.Run("can update many records", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := app.Service("Post").Create(ctx, kdb.CreateArgs{
				Data: kdb.Record{"title": fmt.Sprintf("post %d", i)},
			})
			tt.AssertNoErr(t, err)
		}

		result, err := app.Service("Post").UpdateMany(ctx, kdb.UpdateManyArgs{
			Where: kdb.Where{"title": kdb.Where{"in": []string{"post 0", "post 1"}}},
			Data:  kdb.Record{"content": "updated"},
		})
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, result.Count, int64(2))

		posts, err := app.Service("Post").FindMany(ctx, kdb.FindManyArgs{
			Where: kdb.Where{"content": "updated"},
			Take:  ldvalue.NewOptionalInt(1),
		})
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, len(posts), 1)
	})

	t.Run("should accept JSON arguments on Call", func(t *testing.T) {
		result, err := app.Service("User").Call(ctx, "findMany", json.RawMessage(`{"where":{"name":"chris"}}`))
		tt.AssertNoErr(t, err)

		users, ok := result.([]kdb.Record)
		tt.AssertEqual(t, ok, true)
		tt.AssertEqual(t, len(users), 1)
		tt.AssertEqual(t, users[0]["email"], "chris@mail.fr")
	})

	t.Run("should report missing services", func(t *testing.T) {
		_, err := app.Service("UUser").Create(ctx, kdb.CreateArgs{
			Data: kdb.Record{"name": "chris", "email": "chris@mail.fr"},
		})
		tt.AssertEqual(t, kservice.ErrorCode(err), kservice.CodeMissingService)
		tt.AssertErrContains(t, err, "UUser")
		tt.AssertEqual(t, app.HasService("UUser"), false)
	})

	t.Run("should report missing methods", func(t *testing.T) {
		_, err := app.Service("User").Call(ctx, "cccccreate", kdb.CreateArgs{})
		tt.AssertEqual(t, kservice.ErrorCode(err), kservice.CodeMissingMethod)
		tt.AssertErrContains(t, err, "cccccreate", "User")
		tt.AssertEqual(t, app.Service("User").HasMethod("cccccreate"), false)
		tt.AssertEqual(t, app.Service("User").HasMethod("create"), true)
	})

	t.Run("should report invalid arguments as bad requests", func(t *testing.T) {
		_, err := app.Service("User").Create(ctx, kdb.CreateArgs{
			Data: kdb.Record{"nickname": "chris"},
		})
		tt.AssertEqual(t, kservice.ErrorCode(err), kservice.CodeBadRequest)
		tt.AssertErrContains(t, err, "nickname")

		_, err = app.Service("User").Call(ctx, "findMany", json.RawMessage(`{"where": 42}`))
		tt.AssertEqual(t, kservice.ErrorCode(err), kservice.CodeBadRequest)
	})

	t.Run("should list the services", func(t *testing.T) {
		tt.AssertEqual(t, app.Services(), []string{"Post", "User"})
	})
}

func TestCustomServices(t *testing.T) {
	ctx := context.Background()

	app := kservice.New(nil, kservice.Config{})

	greeter := app.Service("Greeter")
	_, err := greeter.Call(ctx, "hello", "Jane")
	tt.AssertEqual(t, kservice.ErrorCode(err), kservice.CodeMissingService)

	app.CreateService("Greeter", kservice.Methods{
		"hello": func(ctx context.Context, args kservice.Args) (interface{}, error) {
			var name string
			err := args.Decode(0, &name)
			if err != nil {
				return nil, err
			}
			return "hello " + name, nil
		},
	})

	t.Run("handles created before the service should reach it", func(t *testing.T) {
		result, err := greeter.Call(ctx, "hello", "Jane")
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, result, "hello Jane")
	})

	t.Run("should decode JSON arguments", func(t *testing.T) {
		result, err := app.Service("Greeter").Call(ctx, "hello", json.RawMessage(`"John"`))
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, result, "hello John")
	})

	t.Run("should report invalid arguments", func(t *testing.T) {
		_, err := app.Service("Greeter").Call(ctx, "hello", 42)
		tt.AssertEqual(t, kservice.ErrorCode(err), kservice.CodeBadRequest)
	})

	t.Run("database services should fail without a database", func(t *testing.T) {
		app.CreateDatabaseService("User")
		_, err := app.Service("User").DeleteMany(ctx, kdb.DeleteManyArgs{})
		tt.AssertEqual(t, kservice.ErrorCode(err), kservice.CodeInternal)
		tt.AssertErrContains(t, err, "without a database")
	})
}

func TestHooks(t *testing.T) {
	ctx := context.Background()

	app := kservice.New(newTestDB(t), kservice.Config{})

	var calls []string
	app.CreateDatabaseService("User").Hooks(kservice.Hooks{
		Before: map[string][]kservice.Hook{
			kservice.AllMethods: {
				func(ctx context.Context, hc *kservice.HookContext) error {
					calls = append(calls, "before all "+hc.Method)
					return nil
				},
			},
			"create": {
				func(ctx context.Context, hc *kservice.HookContext) error {
					calls = append(calls, "before create")

					var args kdb.CreateArgs
					err := hc.Args.Decode(0, &args)
					if err != nil {
						return err
					}
					args.Data["email"] = strings.ToLower(fmt.Sprint(args.Data["email"]))
					hc.Args = kservice.Args{args}
					return nil
				},
			},
			"delete": {
				func(ctx context.Context, hc *kservice.HookContext) error {
					return kservice.NewError("forbidden", "users can't be deleted")
				},
			},
		},
		After: map[string][]kservice.Hook{
			"create": {
				func(ctx context.Context, hc *kservice.HookContext) error {
					calls = append(calls, "after create via "+hc.Transport)

					record := hc.Result.(kdb.Record)
					delete(record, "email")
					return nil
				},
			},
		},
	})

	u, err := app.Service("User").Create(ctx, kdb.CreateArgs{
		Data: kdb.Record{"name": "Jane", "email": "JANE@MAIL.FR"},
	})
	tt.AssertNoErr(t, err)
	tt.AssertEqual(t, u, kdb.Record{"id": 1, "name": "Jane"})
	tt.AssertEqual(t, calls, []string{
		"before all create",
		"before create",
		"after create via internal",
	})

	stored, err := app.Service("User").FindUnique(ctx, kdb.FindUniqueArgs{
		Where: kdb.Where{"email": "jane@mail.fr"},
	})
	tt.AssertNoErr(t, err)
	tt.AssertEqual(t, stored["name"], "Jane")

	_, err = app.Service("User").Delete(ctx, kdb.DeleteArgs{
		Where: kdb.Where{"id": 1},
	})
	tt.AssertEqual(t, kservice.ErrorCode(err), "forbidden")

	count, err := app.Service("User").Count(ctx, kdb.CountArgs{})
	tt.AssertNoErr(t, err)
	tt.AssertEqual(t, count, int64(1))
}

func TestServicesWithMockDB(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		desc               string
		modelErr           error
		createErr          error
		expectedCode       string
		expectErrToContain []string
	}{
		{
			desc:               "should report unknown models as missing services",
			modelErr:           fmt.Errorf("%w: `User`", kdb.ErrUnknownModel),
			expectedCode:       kservice.CodeMissingService,
			expectErrToContain: []string{"unknown model", "User"},
		},
		{
			desc:               "should report database errors as internal errors",
			createErr:          errors.New("fake db error"),
			expectedCode:       kservice.CodeInternal,
			expectErrToContain: []string{"fake db error"},
		},
		{
			desc:               "should report kdb.ErrNoValuesToUpdate as a bad request",
			createErr:          kdb.ErrNoValuesToUpdate,
			expectedCode:       kservice.CodeBadRequest,
			expectErrToContain: []string{"no values to update"},
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			mock := kdb.Mock{
				ModelFn: func(name string) (kdb.ModelProvider, error) {
					if test.modelErr != nil {
						return nil, test.modelErr
					}
					return kdb.MockModel{
						CreateFn: func(ctx context.Context, args kdb.CreateArgs) (kdb.Record, error) {
							return nil, test.createErr
						},
					}, nil
				},
			}

			app := kservice.New(mock, kservice.Config{})
			app.CreateDatabaseService("User")

			_, err := app.Service("User").Create(ctx, kdb.CreateArgs{
				Data: kdb.Record{"name": "Jane"},
			})
			tt.AssertEqual(t, kservice.ErrorCode(err), test.expectedCode)
			tt.AssertErrContains(t, err, test.expectErrToContain...)
		})
	}
}

func TestLogging(t *testing.T) {
	ctx := context.Background()

	var logs []kservice.LogValues
	app := kservice.New(newTestDB(t), kservice.Config{
		Logger: func(ctx context.Context, values kservice.LogValues) {
			logs = append(logs, values)
		},
	})
	app.CreateDatabaseService("User")

	_, err := app.Service("User").Create(ctx, kdb.CreateArgs{
		Data: kdb.Record{"name": "Jane", "email": "jane@mail.fr"},
	})
	tt.AssertNoErr(t, err)

	_, err = app.Service("User").Call(ctx, "fakeMethod")
	tt.AssertEqual(t, kservice.ErrorCode(err), kservice.CodeMissingMethod)

	tt.AssertEqual(t, len(logs), 2)
	tt.AssertEqual(t, logs[0].Transport, kservice.TransportInternal)
	tt.AssertEqual(t, logs[0].Service, "User")
	tt.AssertEqual(t, logs[0].Method, "create")
	tt.AssertEqual(t, logs[0].Err, nil)

	tt.AssertEqual(t, logs[1].Method, "fakeMethod")
	tt.AssertErrContains(t, logs[1].Err, "missing-method")
}
