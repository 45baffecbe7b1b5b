package kdb

import (
	"reflect"
	"sort"
	"strings"

	"github.com/vingarcia/kservice/internal/structs"
	"github.com/vingarcia/kservice/kbuilder"
	"github.com/vingarcia/kservice/sqldialect"
)

// compileWhere translates a Where filter into the conditions
// of a query, the keys are visited in alphabetical order so
// the same filter always produces the same query.
func compileWhere(schema Schema, dialect sqldialect.Provider, where Where) (kbuilder.WhereQueries, error) {
	var conds kbuilder.WhereQueries
	for _, key := range sortedKeys(where) {
		value := where[key]

		switch key {
		case "AND", "OR", "NOT":
			groups, err := compileGroups(schema, dialect, key, value)
			if err != nil {
				return nil, err
			}

			switch key {
			case "AND":
				if len(groups) > 0 {
					conds = append(conds, kbuilder.And(groups...)...)
				}
			case "OR":
				conds = append(conds, kbuilder.Or(groups...)...)
			case "NOT":
				for _, group := range groups {
					conds = append(conds, kbuilder.Not(group)...)
				}
			}

		default:
			columnConds, err := compileColumn(schema, dialect, key, value)
			if err != nil {
				return nil, err
			}
			conds = append(conds, columnConds...)
		}
	}

	return conds, nil
}

// compileGroups accepts both a single filter and a list of filters
// as the argument of the AND, OR and NOT combinators.
func compileGroups(schema Schema, dialect sqldialect.Provider, op string, value interface{}) ([]kbuilder.WhereQueries, error) {
	var filters []map[string]interface{}
	if m, ok := asMap(value); ok {
		filters = append(filters, m)
	} else {
		items, ok := asList(value)
		if !ok {
			return nil, invalidArgs(schema.name, "%s expects an object or a list of objects but got: %T", op, value)
		}
		for _, item := range items {
			m, ok := asMap(item)
			if !ok {
				return nil, invalidArgs(schema.name, "%s expects an object or a list of objects but got an item of type: %T", op, item)
			}
			filters = append(filters, m)
		}
	}

	var groups []kbuilder.WhereQueries
	for _, filter := range filters {
		group, err := compileWhere(schema, dialect, Where(filter))
		if err != nil {
			return nil, err
		}
		if len(group) == 0 {
			continue
		}
		groups = append(groups, group)
	}

	return groups, nil
}

func compileColumn(schema Schema, dialect sqldialect.Provider, column string, value interface{}) (kbuilder.WhereQueries, error) {
	field, err := schema.field(column)
	if err != nil {
		return nil, err
	}

	if field.Modifier.Scan != nil {
		return nil, invalidArgs(schema.name, "filtering by attribute `%s` is not supported because it uses a custom Scan modifier", column)
	}

	escapedName := dialect.Escape(field.ColumnName)

	ops, isFilterObject := asMap(value)
	if !isFilterObject {
		return compileOperator(schema, dialect, field, escapedName, "equals", value, false)
	}

	insensitive := false
	if mode, found := ops["mode"]; found {
		if mode != "insensitive" && mode != "default" {
			return nil, invalidArgs(schema.name, "invalid mode `%v` for attribute `%s`, expected `insensitive` or `default`", mode, column)
		}
		insensitive = mode == "insensitive"
	}

	var conds kbuilder.WhereQueries
	for _, op := range sortedKeys(ops) {
		if op == "mode" {
			continue
		}

		opConds, err := compileOperator(schema, dialect, field, escapedName, op, ops[op], insensitive)
		if err != nil {
			return nil, err
		}
		conds = append(conds, opConds...)
	}

	return conds, nil
}

func compileOperator(
	schema Schema,
	dialect sqldialect.Provider,
	field *structs.FieldInfo,
	escapedName string,
	op string,
	value interface{},
	insensitive bool,
) (kbuilder.WhereQueries, error) {
	switch op {
	case "equals":
		if value == nil {
			return kbuilder.Where(escapedName + " IS NULL"), nil
		}
		return compileComparison(schema, dialect, field, escapedName, "=", value, insensitive)

	case "not":
		if value == nil {
			return kbuilder.Where(escapedName + " IS NOT NULL"), nil
		}
		if _, isFilterObject := asMap(value); isFilterObject {
			conds, err := compileColumn(schema, dialect, field.ColumnName, value)
			if err != nil || len(conds) == 0 {
				return nil, err
			}
			return kbuilder.Not(conds), nil
		}
		return compileComparison(schema, dialect, field, escapedName, "<>", value, insensitive)

	case "lt":
		return compileComparison(schema, dialect, field, escapedName, "<", value, false)
	case "lte":
		return compileComparison(schema, dialect, field, escapedName, "<=", value, false)
	case "gt":
		return compileComparison(schema, dialect, field, escapedName, ">", value, false)
	case "gte":
		return compileComparison(schema, dialect, field, escapedName, ">=", value, false)

	case "in", "notIn":
		items, ok := asList(value)
		if !ok {
			return nil, invalidArgs(schema.name, "`%s` expects a list of values for attribute `%s` but got: %T", op, field.ColumnName, value)
		}

		if len(items) == 0 {
			if op == "in" {
				return kbuilder.Where("1=0"), nil
			}
			return nil, nil
		}

		var placeholders []string
		var params []interface{}
		for _, item := range items {
			param, err := convertFilterValue(schema, field, item)
			if err != nil {
				return nil, err
			}
			placeholders = append(placeholders, "%s")
			params = append(params, param)
		}

		sqlOp := " IN "
		if op == "notIn" {
			sqlOp = " NOT IN "
		}
		return kbuilder.Where(escapedName+sqlOp+"("+strings.Join(placeholders, ", ")+")", params...), nil

	case "contains", "startsWith", "endsWith":
		s, ok := value.(string)
		if !ok {
			return nil, invalidArgs(schema.name, "`%s` expects a string for attribute `%s` but got: %T", op, field.ColumnName, value)
		}

		pattern := escapeLike(dialect, s)
		switch op {
		case "contains":
			pattern = "%" + pattern + "%"
		case "startsWith":
			pattern = pattern + "%"
		case "endsWith":
			pattern = "%" + pattern
		}

		cond := escapedName + " LIKE %s ESCAPE '" + sqldialect.LikeEscapeChar + "'"
		if insensitive {
			cond = "LOWER(" + escapedName + ") LIKE LOWER(%s) ESCAPE '" + sqldialect.LikeEscapeChar + "'"
		}
		return kbuilder.Where(cond, pattern), nil
	}

	return nil, invalidArgs(schema.name, "unknown filter operator `%s` on attribute `%s`", op, field.ColumnName)
}

func compileComparison(
	schema Schema,
	dialect sqldialect.Provider,
	field *structs.FieldInfo,
	escapedName string,
	sqlOp string,
	value interface{},
	insensitive bool,
) (kbuilder.WhereQueries, error) {
	param, err := convertFilterValue(schema, field, value)
	if err != nil {
		return nil, err
	}

	if _, isString := param.(string); isString && insensitive {
		return kbuilder.Where("LOWER("+escapedName+") "+sqlOp+" LOWER(%s)", param), nil
	}

	return kbuilder.Where(escapedName+" "+sqlOp+" %s", param), nil
}

func convertFilterValue(schema Schema, field *structs.FieldInfo, value interface{}) (interface{}, error) {
	if _, isFilterObject := asMap(value); isFilterObject {
		return nil, invalidArgs(schema.name, "unexpected object used as value for attribute `%s`", field.ColumnName)
	}

	attrType := schema.modelType.Field(field.Index).Type
	if attrType.Kind() == reflect.Ptr {
		attrType = attrType.Elem()
	}

	converted, err := structs.ConvertValue(value, attrType)
	if err != nil {
		return nil, invalidArgs(schema.name, "invalid value for attribute `%s`: %w", field.ColumnName, err)
	}
	return converted, nil
}

func escapeLike(dialect sqldialect.Provider, s string) string {
	esc := sqldialect.LikeEscapeChar
	s = strings.ReplaceAll(s, esc, esc+esc)
	s = strings.ReplaceAll(s, "%", esc+"%")
	s = strings.ReplaceAll(s, "_", esc+"_")

	// Only SQL Server treats brackets as wildcards
	if dialect.DriverName() == "sqlserver" {
		s = strings.ReplaceAll(s, "[", esc+"[")
	}
	return s
}

func asMap(value interface{}) (map[string]interface{}, bool) {
	switch v := value.(type) {
	case Where:
		return v, true
	case Record:
		return v, true
	case map[string]interface{}:
		return v, true
	}
	return nil, false
}

func asList(value interface{}) ([]interface{}, bool) {
	if value == nil {
		return nil, false
	}

	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, false
	}

	// []byte values are scalars not lists
	if v.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}

	items := make([]interface{}, v.Len())
	for i := 0; i < v.Len(); i++ {
		items[i] = v.Index(i).Interface()
	}
	return items, true
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func compileOrderBy(schema Schema, dialect sqldialect.Provider, orderBy OrderBy) (string, error) {
	var parts []string
	for _, field := range orderBy {
		info, err := schema.field(field.Column)
		if err != nil {
			return "", err
		}

		part := dialect.Escape(info.ColumnName)
		if field.Desc {
			part += " DESC"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", "), nil
}
