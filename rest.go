package kservice

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vingarcia/kservice/kdb"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// The query parameters of the list endpoint that
// are not interpreted as equality filters.
const (
	queryParamTake    = "$take"
	queryParamSkip    = "$skip"
	queryParamOrderBy = "$orderBy"
)

// maxBodySize limits the size of the JSON bodies of the REST endpoints
const maxBodySize = 1 << 20

// AddHTTPRest exposes the service on the informed path as:
//
//	POST   path       -> create
//	GET    path       -> findMany
//	GET    path/{id}  -> findUnique
//	PATCH  path/{id}  -> update
//	DELETE path/{id}  -> delete
//
// The query parameters of `GET path` are used as equality filters,
// except for `$take`, `$skip` and `$orderBy`, e.g.:
//
//	GET /api/user?name=chris&$orderBy=-id,name&$take=10
func (a *App) AddHTTPRest(path string, svc *Service) {
	path = "/" + strings.Trim(path, "/")
	name := svc.Name()

	a.mux.HandleFunc("POST "+path, a.restHandler(name, func(r *http.Request, s *Service) (string, Args, error) {
		data, err := decodeBody(r)
		if err != nil {
			return "", nil, err
		}
		return MethodCreate, Args{kdb.CreateArgs{Data: data}}, nil
	}))

	a.mux.HandleFunc("GET "+path, a.restHandler(name, func(r *http.Request, s *Service) (string, Args, error) {
		args, err := parseListQuery(r.URL.Query())
		if err != nil {
			return "", nil, err
		}
		return MethodFindMany, Args{args}, nil
	}))

	a.mux.HandleFunc("GET "+path+"/{id}", a.restHandler(name, func(r *http.Request, s *Service) (string, Args, error) {
		return MethodFindUnique, Args{kdb.FindUniqueArgs{
			Where: kdb.Where{s.idColumn: r.PathValue("id")},
		}}, nil
	}))

	a.mux.HandleFunc("PATCH "+path+"/{id}", a.restHandler(name, func(r *http.Request, s *Service) (string, Args, error) {
		data, err := decodeBody(r)
		if err != nil {
			return "", nil, err
		}
		return MethodUpdate, Args{kdb.UpdateArgs{
			Where: kdb.Where{s.idColumn: r.PathValue("id")},
			Data:  data,
		}}, nil
	}))

	a.mux.HandleFunc("DELETE "+path+"/{id}", a.restHandler(name, func(r *http.Request, s *Service) (string, Args, error) {
		return MethodDelete, Args{kdb.DeleteArgs{
			Where: kdb.Where{s.idColumn: r.PathValue("id")},
		}}, nil
	}))
}

// restHandler builds the http.HandlerFunc of a REST endpoint, parseRequest
// translates the request into the method and the arguments of the call.
func (a *App) restHandler(
	serviceName string,
	parseRequest func(r *http.Request, s *Service) (method string, args Args, err error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := a.requestContext(r.Context())
		defer cancel()

		svc := a.Service(serviceName)

		method, args, err := parseRequest(r, svc)
		if err != nil {
			writeError(w, err)
			return
		}

		result, err := svc.call(ctx, method, args, TransportREST, nil)
		if err != nil {
			writeError(w, err)
			return
		}

		status := http.StatusOK
		if method == MethodCreate {
			status = http.StatusCreated
		}
		writeJSON(w, status, result)
	}
}

func decodeBody(r *http.Request) (kdb.Record, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, NewError(CodeBadRequest, "unable to read request body: %s", err)
	}
	if len(body) > maxBodySize {
		return nil, NewError(CodeBadRequest, "request body is larger than %d bytes", maxBodySize)
	}

	var data kdb.Record
	err = json.Unmarshal(body, &data)
	if err != nil {
		return nil, NewError(CodeBadRequest, "request body must be a JSON object: %s", err)
	}
	if data == nil {
		return nil, NewError(CodeBadRequest, "request body must be a JSON object")
	}

	return data, nil
}

func parseListQuery(query url.Values) (kdb.FindManyArgs, error) {
	var args kdb.FindManyArgs
	for key, values := range query {
		value := values[len(values)-1]

		switch key {
		case queryParamTake, queryParamSkip:
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return kdb.FindManyArgs{}, NewError(CodeBadRequest, "%s must be a non negative integer but got: '%s'", key, value)
			}

			if key == queryParamTake {
				args.Take = ldvalue.NewOptionalInt(n)
			} else {
				args.Skip = ldvalue.NewOptionalInt(n)
			}

		case queryParamOrderBy:
			args.OrderBy = parseOrderBy(value)

		default:
			if args.Where == nil {
				args.Where = kdb.Where{}
			}

			if len(values) > 1 {
				in := make([]interface{}, 0, len(values))
				for _, v := range values {
					in = append(in, v)
				}
				args.Where[key] = kdb.Where{"in": in}
				continue
			}

			args.Where[key] = value
		}
	}

	return args, nil
}

// parseOrderBy parses lists such as `-created_at,name`
// where the `-` prefix stands for descending order.
func parseOrderBy(value string) kdb.OrderBy {
	var orderBy kdb.OrderBy
	for _, column := range strings.Split(value, ",") {
		column = strings.TrimSpace(column)
		if column == "" {
			continue
		}

		desc := strings.HasPrefix(column, "-")
		orderBy = append(orderBy, kdb.OrderField{
			Column: strings.TrimPrefix(column, "-"),
			Desc:   desc,
		})
	}
	return orderBy
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	rawJSON, err := json.Marshal(body)
	if err != nil {
		writeError(w, fmt.Errorf("unable to encode response: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(rawJSON)
}

func writeError(w http.ResponseWriter, err error) {
	svcErr := asError(err)

	rawJSON, _ := json.Marshal(svcErr)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(svcErr.httpStatus())
	_, _ = w.Write(rawJSON)
}
