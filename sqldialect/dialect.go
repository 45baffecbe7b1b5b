package sqldialect

import (
	"fmt"
	"strconv"
)

type InsertMethod int

const (
	InsertWithReturning InsertMethod = iota
	InsertWithOutput
	InsertWithLastInsertID
)

// LikeEscapeChar is the escape character used on every LIKE
// expression generated by kdb, it was chosen because it has
// no special meaning inside string literals on any of the
// supported databases.
const LikeEscapeChar = "!"

var SupportedDialects = map[string]Provider{
	"postgres":  &PostgresDialect{},
	"sqlite3":   &Sqlite3Dialect{},
	"mysql":     &MysqlDialect{},
	"sqlserver": &SqlserverDialect{},
}

// ByName returns the dialect registered for the input driver name
func ByName(driver string) (Provider, error) {
	dialect, found := SupportedDialects[driver]
	if !found {
		return nil, fmt.Errorf("unsupported driver `%s`", driver)
	}
	return dialect, nil
}

// Provider or dialect.Provider represents one particular
// way of writing SQL queries.
//
// Different DBAdapters will use require different dialects to work.
type Provider interface {
	InsertMethod() InsertMethod
	Escape(str string) string
	Placeholder(idx int) string
	DriverName() string

	// LimitOffset returns the suffix of a SELECT query restricting
	// the number of rows, a negative limit means "no limit".
	LimitOffset(limit int, offset int, hasOrderBy bool) string
}

type PostgresDialect struct{}

func (PostgresDialect) DriverName() string {
	return "postgres"
}

func (PostgresDialect) InsertMethod() InsertMethod {
	return InsertWithReturning
}

func (PostgresDialect) Escape(str string) string {
	return `"` + str + `"`
}

func (PostgresDialect) Placeholder(idx int) string {
	return "$" + strconv.Itoa(idx+1)
}

func (PostgresDialect) LimitOffset(limit int, offset int, _ bool) string {
	return limitOffset(limit, offset, "ALL")
}

type Sqlite3Dialect struct{}

func (Sqlite3Dialect) DriverName() string {
	return "sqlite3"
}

func (Sqlite3Dialect) InsertMethod() InsertMethod {
	return InsertWithLastInsertID
}

func (Sqlite3Dialect) Escape(str string) string {
	return "`" + str + "`"
}

func (Sqlite3Dialect) Placeholder(idx int) string {
	return "?"
}

func (Sqlite3Dialect) LimitOffset(limit int, offset int, _ bool) string {
	return limitOffset(limit, offset, "-1")
}

type MysqlDialect struct{}

func (MysqlDialect) DriverName() string {
	return "mysql"
}

func (MysqlDialect) InsertMethod() InsertMethod {
	return InsertWithLastInsertID
}

func (MysqlDialect) Escape(str string) string {
	return "`" + str + "`"
}

func (MysqlDialect) Placeholder(idx int) string {
	return "?"
}

// MySQL has no way of writing "no limit" so the documented
// workaround is to use the biggest unsigned bigint.
func (MysqlDialect) LimitOffset(limit int, offset int, _ bool) string {
	return limitOffset(limit, offset, "18446744073709551615")
}

type SqlserverDialect struct{}

func (SqlserverDialect) DriverName() string {
	return "sqlserver"
}

func (SqlserverDialect) InsertMethod() InsertMethod {
	return InsertWithOutput
}

func (SqlserverDialect) Escape(str string) string {
	return `[` + str + `]`
}

func (SqlserverDialect) Placeholder(idx int) string {
	return "@p" + strconv.Itoa(idx+1)
}

// SQL Server only accepts OFFSET/FETCH after an ORDER BY clause
func (SqlserverDialect) LimitOffset(limit int, offset int, hasOrderBy bool) string {
	if limit < 0 && offset <= 0 {
		return ""
	}

	var s string
	if !hasOrderBy {
		s = " ORDER BY (SELECT NULL)"
	}

	if offset < 0 {
		offset = 0
	}
	s += " OFFSET " + strconv.Itoa(offset) + " ROWS"

	if limit >= 0 {
		s += " FETCH NEXT " + strconv.Itoa(limit) + " ROWS ONLY"
	}
	return s
}

func limitOffset(limit int, offset int, noLimit string) string {
	var s string
	if limit >= 0 {
		s = " LIMIT " + strconv.Itoa(limit)
	}

	if offset > 0 {
		if limit < 0 {
			s = " LIMIT " + noLimit
		}
		s += " OFFSET " + strconv.Itoa(offset)
	}
	return s
}
