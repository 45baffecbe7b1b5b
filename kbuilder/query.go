package kbuilder

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/vingarcia/kservice/internal/structs"
	"github.com/vingarcia/kservice/sqldialect"
)

// Query is is the struct template for building SELECT queries.
type Query struct {
	// Select expects either a struct using the `kdb` tags
	// or a string listing the column names using SQL syntax,
	// e.g.: `id, username, address`
	Select interface{}

	// From expects the FROM clause from an SQL query, e.g. `users JOIN posts USING(post_id)`
	From string

	// Where expects a list of WhereQuery instances built
	// by the public Where() function.
	Where WhereQueries

	// Limit and Offset are ignored when not positive
	Limit   int
	Offset  int
	OrderBy OrderByQuery
}

// Build is a utility function for finding the dialect based on the driver and
// then calling BuildQuery(dialect)
func (q Query) Build(driver string) (sqlQuery string, params []interface{}, _ error) {
	dialect, err := sqldialect.ByName(driver)
	if err != nil {
		return "", nil, err
	}

	return q.BuildQuery(dialect)
}

// BuildQuery renders the query using the syntax of the input dialect
func (q Query) BuildQuery(dialect sqldialect.Provider) (sqlQuery string, params []interface{}, _ error) {
	if strings.TrimSpace(q.From) == "" {
		return "", nil, fmt.Errorf("the From field is mandatory for every query")
	}

	var b strings.Builder

	switch v := q.Select.(type) {
	case string:
		b.WriteString("SELECT " + v)
	default:
		selectQuery, err := buildSelectQuery(v, dialect)
		if err != nil {
			return "", nil, fmt.Errorf("error reading the Select field: %w", err)
		}
		b.WriteString("SELECT " + selectQuery)
	}

	b.WriteString(" FROM " + q.From)

	if len(q.Where) > 0 {
		var whereQuery string
		whereQuery, params = q.Where.Build(dialect, 0)
		b.WriteString(" WHERE " + whereQuery)
	}

	if q.OrderBy.fields != "" {
		b.WriteString(" ORDER BY " + q.OrderBy.fields)
		if q.OrderBy.desc {
			b.WriteString(" DESC")
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	b.WriteString(dialect.LimitOffset(limit, q.Offset, q.OrderBy.fields != ""))

	return b.String(), params, nil
}

// WhereQuery represents a single condition in a WHERE expression.
type WhereQuery struct {
	// Accepts any SQL boolean expression
	// This expression may optionally contain
	// string formatting directives %s and only %s.
	//
	// For each of these directives we expect a new param
	// on the params list below.
	//
	// In the resulting query each %s will be properly replaced
	// by placeholders according to the database driver, e.g. `$1`
	// for postgres or `?` for sqlite3.
	cond   string
	params []interface{}
}

// WhereQueries is the helper for creating complex WHERE queries
// in a dynamic way.
type WhereQueries []WhereQuery

// Build renders all the conditions joined by AND, paramOffset is
// the number of params that will come before these ones on the
// final query, it is used for numbering the placeholders.
func (w WhereQueries) Build(dialect sqldialect.Provider, paramOffset int) (query string, params []interface{}) {
	var conds []string
	for _, whereQuery := range w {
		var placeholders []interface{}
		for i := range whereQuery.params {
			placeholders = append(placeholders, dialect.Placeholder(paramOffset+len(params)+i))
		}

		conds = append(conds, fmt.Sprintf(whereQuery.cond, placeholders...))
		params = append(params, whereQuery.params...)
	}

	return strings.Join(conds, " AND "), params
}

// Where adds a new boolean condition to an existing
// WhereQueries helper.
func (w WhereQueries) Where(cond string, params ...interface{}) WhereQueries {
	return append(w, WhereQuery{
		cond:   cond,
		params: params,
	})
}

// WhereIf conditionally adds a new boolean expression to the WhereQueries helper.
func (w WhereQueries) WhereIf(cond string, param interface{}) WhereQueries {
	if isNil(param) {
		return w
	}

	return append(w, WhereQuery{
		cond:   cond,
		params: []interface{}{param},
	})
}

// Where adds a new boolean condition to an existing
// WhereQueries helper.
func Where(cond string, params ...interface{}) WhereQueries {
	return WhereQueries{{
		cond:   cond,
		params: params,
	}}
}

// WhereIf conditionally adds a new boolean expression to the WhereQueries helper
func WhereIf(cond string, param interface{}) WhereQueries {
	if isNil(param) {
		return WhereQueries{}
	}

	return WhereQueries{{
		cond:   cond,
		params: []interface{}{param},
	}}
}

// And groups the input conditions into a single parenthesized condition
// joined by AND, an empty input produces a condition that is always true.
func And(groups ...WhereQueries) WhereQueries {
	return join("AND", "1=1", groups)
}

// Or groups the input conditions into a single parenthesized condition
// joined by OR, an empty input produces a condition that is always false.
func Or(groups ...WhereQueries) WhereQueries {
	return join("OR", "1=0", groups)
}

// Not negates all the input conditions
func Not(w WhereQueries) WhereQueries {
	if len(w) == 0 {
		return Where("1=0")
	}

	cond, params := w.flatten("AND", false)
	return Where("NOT ("+cond+")", params...)
}

func join(op string, empty string, groups []WhereQueries) WhereQueries {
	var conds []string
	var params []interface{}
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}

		cond, groupParams := group.flatten("AND", true)
		conds = append(conds, cond)
		params = append(params, groupParams...)
	}

	if len(conds) == 0 {
		return Where(empty)
	}

	return Where("("+strings.Join(conds, " "+op+" ")+")", params...)
}

// flatten merges the conditions into a single one keeping the
// %s directives so they can still be rendered later.
func (w WhereQueries) flatten(op string, wrap bool) (cond string, params []interface{}) {
	var conds []string
	for _, whereQuery := range w {
		conds = append(conds, whereQuery.cond)
		params = append(params, whereQuery.params...)
	}

	cond = strings.Join(conds, " "+op+" ")
	if wrap && len(conds) > 1 {
		cond = "(" + cond + ")"
	}
	return cond, params
}

func isNil(param interface{}) bool {
	if param == nil {
		return true
	}

	v := reflect.ValueOf(param)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// OrderByQuery represents the ORDER BY part of the query
type OrderByQuery struct {
	fields string
	desc   bool
}

// Desc is a setter function for configuring the
// ORDER BY part of the query as DESC
func (o OrderByQuery) Desc() OrderByQuery {
	return OrderByQuery{
		fields: o.fields,
		desc:   true,
	}
}

// OrderBy is a helper for building the ORDER BY
// part of the query.
func OrderBy(fields string) OrderByQuery {
	return OrderByQuery{
		fields: fields,
		desc:   false,
	}
}

var cachedSelectQueries = sync.Map{}

type selectCacheKey struct {
	t      reflect.Type
	driver string
}

// Builds the select query using cached info so that its efficient
func buildSelectQuery(obj interface{}, dialect sqldialect.Provider) (string, error) {
	t := reflect.TypeOf(obj)
	if t == nil {
		return "", fmt.Errorf("expected to receive a struct or a string, but got nil")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return "", fmt.Errorf("expected to receive a pointer to struct, but got: %T", obj)
	}

	key := selectCacheKey{t: t, driver: dialect.DriverName()}
	if data, found := cachedSelectQueries.Load(key); found {
		if query, ok := data.(string); !ok {
			return "", fmt.Errorf("invalid cache entry, expected type string, found %T", data)
		} else {
			return query, nil
		}
	}

	info, err := structs.GetTagInfo(t)
	if err != nil {
		return "", err
	}

	var escapedNames []string
	for _, field := range info.Fields() {
		escapedNames = append(escapedNames, dialect.Escape(field.ColumnName))
	}

	query := strings.Join(escapedNames, ", ")
	cachedSelectQueries.Store(key, query)
	return query, nil
}
