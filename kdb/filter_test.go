package kdb

import (
	"testing"
	"time"

	tt "github.com/vingarcia/kservice/internal/testtools"
	"github.com/vingarcia/kservice/sqldialect"
)

func TestCompileWhere(t *testing.T) {
	tests := []struct {
		desc               string
		dialect            sqldialect.Provider
		where              Where
		expectedQuery      string
		expectedParams     []interface{}
		expectErrToContain []string
	}{
		{
			desc:           "should compile equalities in alphabetical order",
			dialect:        sqldialect.PostgresDialect{},
			where:          Where{"name": "Jane", "email": "jane@example.com"},
			expectedQuery:  `"email" = $1 AND "name" = $2`,
			expectedParams: []interface{}{"jane@example.com", "Jane"},
		},
		{
			desc:          "should compile nil values as IS NULL",
			dialect:       sqldialect.Sqlite3Dialect{},
			where:         Where{"age": nil, "name": Where{"not": nil}},
			expectedQuery: "`age` IS NULL AND `name` IS NOT NULL",
		},
		{
			desc:           "should convert the values to the attribute types",
			dialect:        sqldialect.PostgresDialect{},
			where:          Where{"id": "42", "age": Where{"gte": float64(18), "lt": "65"}},
			expectedQuery:  `"age" >= $1 AND "age" < $2 AND "id" = $3`,
			expectedParams: []interface{}{18, 65, uint(42)},
		},
		{
			desc:           "should compile string operators escaping wildcards",
			dialect:        sqldialect.MysqlDialect{},
			where:          Where{"name": Where{"contains": "50%_!off"}},
			expectedQuery:  "`name` LIKE ? ESCAPE '!'",
			expectedParams: []interface{}{"%50!%!_!!off%"},
		},
		{
			desc:           "should escape brackets on sqlserver",
			dialect:        sqldialect.SqlserverDialect{},
			where:          Where{"name": Where{"startsWith": "[a]"}},
			expectedQuery:  "[name] LIKE @p1 ESCAPE '!'",
			expectedParams: []interface{}{"![a]%"},
		},
		{
			desc:           "should compile case insensitive filters",
			dialect:        sqldialect.PostgresDialect{},
			where:          Where{"name": Where{"endsWith": "garcia", "mode": "insensitive"}},
			expectedQuery:  `LOWER("name") LIKE LOWER($1) ESCAPE '!'`,
			expectedParams: []interface{}{"%garcia"},
		},
		{
			desc:           "should compile in and notIn lists",
			dialect:        sqldialect.PostgresDialect{},
			where:          Where{"id": Where{"in": []interface{}{1, "2"}, "notIn": []int{3}}},
			expectedQuery:  `"id" IN ($1, $2) AND "id" NOT IN ($3)`,
			expectedParams: []interface{}{uint(1), uint(2), uint(3)},
		},
		{
			desc:          "should compile empty in lists as false and ignore empty notIn lists",
			dialect:       sqldialect.PostgresDialect{},
			where:         Where{"id": Where{"in": []interface{}{}}, "age": Where{"notIn": []interface{}{}}},
			expectedQuery: `1=0`,
		},
		{
			desc:    "should compile OR and AND groups",
			dialect: sqldialect.PostgresDialect{},
			where: Where{
				"OR": []interface{}{
					map[string]interface{}{"name": "a"},
					map[string]interface{}{"name": "b", "age": 3},
				},
				"AND": Where{"email": "c"},
			},
			expectedQuery:  `("email" = $1) AND ("name" = $2 OR ("age" = $3 AND "name" = $4))`,
			expectedParams: []interface{}{"c", "a", 3, "b"},
		},
		{
			desc:    "should compile NOT filters",
			dialect: sqldialect.PostgresDialect{},
			where: Where{
				"NOT": []Where{{"name": "a"}, {"age": Where{"gt": 1, "lt": 5}}},
			},
			expectedQuery:  `NOT ("name" = $1) AND NOT ("age" > $2 AND "age" < $3)`,
			expectedParams: []interface{}{"a", 1, 5},
		},
		{
			desc:          "should compile empty OR lists as false",
			dialect:       sqldialect.PostgresDialect{},
			where:         Where{"OR": []Where{}},
			expectedQuery: `1=0`,
		},
		{
			desc:          "should ignore empty NOT and AND filters",
			dialect:       sqldialect.PostgresDialect{},
			where:         Where{"NOT": Where{}, "AND": []Where{}},
			expectedQuery: ``,
		},
		{
			desc:           "should negate nested filters",
			dialect:        sqldialect.PostgresDialect{},
			where:          Where{"name": Where{"not": Where{"startsWith": "a"}}},
			expectedQuery:  `NOT ("name" LIKE $1 ESCAPE '!')`,
			expectedParams: []interface{}{"a%"},
		},
		{
			desc:           "should parse time values",
			dialect:        sqldialect.PostgresDialect{},
			where:          Where{"created_at": Where{"gt": "2023-01-02T03:04:05Z"}},
			expectedQuery:  `"created_at" > $1`,
			expectedParams: []interface{}{time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)},
		},
		{
			desc:               "should reject unknown attributes",
			dialect:            sqldialect.PostgresDialect{},
			where:              Where{"nonexistent": 1},
			expectErrToContain: []string{"unknown attribute", "nonexistent"},
		},
		{
			desc:               "should reject unknown operators",
			dialect:            sqldialect.PostgresDialect{},
			where:              Where{"name": Where{"like": "a"}},
			expectErrToContain: []string{"unknown filter operator", "like"},
		},
		{
			desc:               "should reject filters on json attributes",
			dialect:            sqldialect.PostgresDialect{},
			where:              Where{"address": "BR"},
			expectErrToContain: []string{"address", "not supported"},
		},
		{
			desc:               "should reject invalid values",
			dialect:            sqldialect.PostgresDialect{},
			where:              Where{"age": Where{"gt": "abc"}},
			expectErrToContain: []string{"age", "abc"},
		},
		{
			desc:               "should reject non string values for string operators",
			dialect:            sqldialect.PostgresDialect{},
			where:              Where{"name": Where{"contains": 42}},
			expectErrToContain: []string{"contains", "string"},
		},
		{
			desc:               "should reject invalid combinator values",
			dialect:            sqldialect.PostgresDialect{},
			where:              Where{"OR": "invalid"},
			expectErrToContain: []string{"OR", "list of objects"},
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			conds, err := compileWhere(usersSchema, test.dialect, test.where)
			if test.expectErrToContain != nil {
				tt.AssertErrContains(t, err, test.expectErrToContain...)
				t.Skip()
			}
			tt.AssertNoErr(t, err)

			query, params := conds.Build(test.dialect, 0)
			tt.AssertEqual(t, query, test.expectedQuery)
			tt.AssertEqual(t, params, test.expectedParams)
		})
	}
}

func TestCompileOrderBy(t *testing.T) {
	t.Run("should escape the columns", func(t *testing.T) {
		orderBy, err := compileOrderBy(usersSchema, sqldialect.PostgresDialect{}, OrderBy{
			{Column: "name"},
			{Column: "id", Desc: true},
		})
		tt.AssertNoErr(t, err)
		tt.AssertEqual(t, orderBy, `"name", "id" DESC`)
	})

	t.Run("should reject unknown columns", func(t *testing.T) {
		_, err := compileOrderBy(usersSchema, sqldialect.PostgresDialect{}, Asc("name; DROP TABLE users"))
		tt.AssertErrContains(t, err, "unknown attribute")
	})
}
