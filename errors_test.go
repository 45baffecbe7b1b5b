package kservice

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	tt "github.com/vingarcia/kservice/internal/testtools"
	"github.com/vingarcia/kservice/kdb"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

func TestAsError(t *testing.T) {
	tests := []struct {
		desc           string
		err            error
		expectedCode   string
		expectedStatus int
	}{
		{
			desc:           "should keep kservice errors",
			err:            fmt.Errorf("wrapped: %w", NewError(CodeMissingMethod, "fake")),
			expectedCode:   CodeMissingMethod,
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			desc:           "should map record not found errors",
			err:            fmt.Errorf("wrapped: %w", kdb.ErrRecordNotFound),
			expectedCode:   CodeNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			desc:           "should map unknown models",
			err:            kdb.ErrUnknownModel,
			expectedCode:   CodeMissingService,
			expectedStatus: http.StatusNotFound,
		},
		{
			desc:           "should map invalid arguments",
			err:            fmt.Errorf("wrapped: %w", kdb.InvalidArgsError{Model: "User", Err: errors.New("fake")}),
			expectedCode:   CodeBadRequest,
			expectedStatus: http.StatusBadRequest,
		},
		{
			desc:           "should map empty updates",
			err:            kdb.ErrNoValuesToUpdate,
			expectedCode:   CodeBadRequest,
			expectedStatus: http.StatusBadRequest,
		},
		{
			desc:           "should map unknown errors to internal errors",
			err:            errors.New("fake"),
			expectedCode:   CodeInternal,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			svcErr := asError(test.err)
			tt.AssertEqual(t, svcErr.Code, test.expectedCode)
			tt.AssertEqual(t, svcErr.httpStatus(), test.expectedStatus)
			tt.AssertEqual(t, ErrorCode(test.err), test.expectedCode)
		})
	}

	t.Run("should keep the original error reachable", func(t *testing.T) {
		err := asError(fmt.Errorf("wrapped: %w", kdb.ErrRecordNotFound))
		tt.AssertEqual(t, errors.Is(err, kdb.ErrRecordNotFound), true)
	})

	t.Run("should return an empty code for nil errors", func(t *testing.T) {
		tt.AssertEqual(t, ErrorCode(nil), "")
	})

	t.Run("should encode only the code and the message", func(t *testing.T) {
		rawJSON := tt.ToJSON(t, NewError(CodeNotFound, "user %d not found", 42))
		tt.AssertEqual(t, string(rawJSON), `{"code":"not-found","message":"user 42 not found"}`)
	})
}

func TestArgsDecode(t *testing.T) {
	t.Run("should assign values of the same type", func(t *testing.T) {
		data := kdb.Record{"name": "Jane"}

		var args kdb.CreateArgs
		err := Args{kdb.CreateArgs{Data: data}}.Decode(0, &args)
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, args.Data, data)
	})

	t.Run("should decode raw JSON", func(t *testing.T) {
		var args kdb.FindManyArgs
		err := Args{json.RawMessage(`{"where":{"name":"Jane"},"take":2}`)}.Decode(0, &args)
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, args.Where, kdb.Where{"name": "Jane"})
		tt.AssertEqual(t, args.Take, ldvalue.NewOptionalInt(2))
	})

	t.Run("should convert values of other types via JSON", func(t *testing.T) {
		var args kdb.DeleteManyArgs
		err := Args{map[string]interface{}{"where": map[string]interface{}{"id": 1}}}.Decode(0, &args)
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, args.Where, kdb.Where{"id": float64(1)})
	})

	t.Run("should ignore missing and null arguments", func(t *testing.T) {
		name := "unchanged"
		err := Args{}.Decode(0, &name)
		tt.AssertNoErr(t, err)
		err = Args{nil}.Decode(0, &name)
		tt.AssertNoErr(t, err)
		err = Args{json.RawMessage(`null`)}.Decode(0, &name)
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, name, "unchanged")
	})

	t.Run("should report invalid arguments as bad requests", func(t *testing.T) {
		var name string
		err := Args{json.RawMessage(`{}`)}.Decode(0, &name)
		tt.AssertEqual(t, ErrorCode(err), CodeBadRequest)

		err = Args{"Jane"}.Decode(0, name)
		tt.AssertErrContains(t, err, "pointer")
	})
}

func TestDecodeResult(t *testing.T) {
	record, err := decodeResult[kdb.Record](kdb.Record{"id": 1})
	tt.AssertNoErr(t, err)
	tt.AssertEqual(t, record, kdb.Record{"id": 1})

	record, err = decodeResult[kdb.Record](map[string]interface{}{"id": 1})
	tt.AssertNoErr(t, err)
	tt.AssertEqual(t, record, kdb.Record{"id": float64(1)})

	_, err = decodeResult[kdb.BatchResult]("not a batch result")
	tt.AssertErrContains(t, err, "unexpected result type", "string")
}

func TestParseListQuery(t *testing.T) {
	tests := []struct {
		desc               string
		query              string
		expected           kdb.FindManyArgs
		expectErrToContain []string
	}{
		{
			desc:     "should parse equality filters",
			query:    "name=Jane&email=jane@mail.fr",
			expected: kdb.FindManyArgs{Where: kdb.Where{"name": "Jane", "email": "jane@mail.fr"}},
		},
		{
			desc:  "should parse repeated values as in filters",
			query: "name=Jane&name=John",
			expected: kdb.FindManyArgs{Where: kdb.Where{
				"name": kdb.Where{"in": []interface{}{"Jane", "John"}},
			}},
		},
		{
			desc:  "should parse pagination and sorting",
			query: "$take=10&$skip=20&$orderBy=-created_at,name",
			expected: kdb.FindManyArgs{
				Take:    ldvalue.NewOptionalInt(10),
				Skip:    ldvalue.NewOptionalInt(20),
				OrderBy: kdb.OrderBy{{Column: "created_at", Desc: true}, {Column: "name"}},
			},
		},
		{
			desc:               "should reject negative pagination values",
			query:              "$take=-1",
			expectErrToContain: []string{"$take", "non negative"},
		},
		{
			desc:               "should reject invalid pagination values",
			query:              "$skip=abc",
			expectErrToContain: []string{"$skip", "abc"},
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			query, err := url.ParseQuery(test.query)
			tt.AssertNoErr(t, err)

			args, err := parseListQuery(query)
			if test.expectErrToContain != nil {
				tt.AssertErrContains(t, err, test.expectErrToContain...)
				tt.AssertEqual(t, ErrorCode(err), CodeBadRequest)
				t.Skip()
			}
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, args, test.expected)
		})
	}
}
