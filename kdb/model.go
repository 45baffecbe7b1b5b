package kdb

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vingarcia/kservice/internal/modifiers"
	"github.com/vingarcia/kservice/internal/structs"
	"github.com/vingarcia/kservice/kbuilder"
	"github.com/vingarcia/kservice/kmodifiers"
	"github.com/vingarcia/kservice/sqldialect"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

var takeOne = ldvalue.NewOptionalInt(1)

// Model implements the ModelProvider interface for one
// of the schemas registered on a kdb.DB.
type Model struct {
	db     DB
	schema Schema
}

var _ ModelProvider = Model{}

// Schema returns the schema of this model
func (m Model) Schema() Schema {
	return m.schema
}

// Create inserts a new record and returns it as stored on the database,
// i.e. including the generated id and any database defaults.
//
// The insert and the reload of the record run on the same transaction,
// so nothing is left on the database if the reload fails.
func (m Model) Create(ctx context.Context, args CreateArgs) (_ Record, err error) {
	const method = "Create"

	columns, params, err := m.buildValues(ctx, method, args.Data, false)
	if err != nil {
		return nil, err
	}

	dialect := m.db.dialect
	query := buildInsertQuery(dialect, m.schema, columns)

	var record Record
	err = m.db.transaction(ctx, func(db DB) error {
		txModel := Model{db: db, schema: m.schema}

		idPtr := reflect.New(m.idType())
		switch dialect.InsertMethod() {
		case sqldialect.InsertWithReturning, sqldialect.InsertWithOutput:
			err := txModel.queryScalar(ctx, method, idPtr.Interface(), query, params...)
			if err != nil {
				return fmt.Errorf("kdb: unable to create %s: %w", m.schema.name, err)
			}

		case sqldialect.InsertWithLastInsertID:
			result, err := txModel.exec(ctx, method, query, params...)
			if err != nil {
				return fmt.Errorf("kdb: unable to create %s: %w", m.schema.name, err)
			}

			id, err := m.lastInsertID(result, args.Data)
			if err != nil {
				return err
			}
			idPtr.Elem().Set(reflect.ValueOf(id))

		default:
			return fmt.Errorf(
				"kdb: code error: unsupported insert method %v for driver %s",
				dialect.InsertMethod(), dialect.DriverName(),
			)
		}

		var err error
		record, err = txModel.findByID(ctx, method, idPtr.Elem().Interface())
		return err
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (m Model) lastInsertID(result Result, data Record) (interface{}, error) {
	idColumn := m.schema.idField.ColumnName

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf(
			"kdb: unable to retrieve the id of the new %s: %w",
			m.schema.name, err,
		)
	}

	// MySQL returns 0 when the id is not auto incremented
	// so we fallback to the value informed by the user:
	if id == 0 {
		if providedID, found := data[idColumn]; found && providedID != nil {
			return structs.ConvertValue(providedID, m.idType())
		}
	}

	return structs.ConvertValue(id, m.idType())
}

// FindMany returns all the records matching the filter, when no
// records are found an empty slice is returned.
func (m Model) FindMany(ctx context.Context, args FindManyArgs) ([]Record, error) {
	return m.findMany(ctx, "FindMany", args)
}

func (m Model) findMany(ctx context.Context, method string, args FindManyArgs) ([]Record, error) {
	take, hasTake := args.Take.Get()
	if hasTake && take < 0 {
		return nil, invalidArgs(m.schema.name, "take must not be negative, but got: %d", take)
	}
	if hasTake && take == 0 {
		return []Record{}, nil
	}

	skip := args.Skip.OrElse(0)
	if skip < 0 {
		return nil, invalidArgs(m.schema.name, "skip must not be negative, but got: %d", skip)
	}

	conds, err := compileWhere(m.schema, m.db.dialect, args.Where)
	if err != nil {
		return nil, err
	}

	orderBy, err := compileOrderBy(m.schema, m.db.dialect, args.OrderBy)
	if err != nil {
		return nil, err
	}

	q := kbuilder.Query{
		Select: m.schema.newRecordPtr().Interface(),
		From:   m.db.dialect.Escape(m.schema.table),
		Where:  conds,
		Offset: skip,
	}
	if orderBy != "" {
		q.OrderBy = kbuilder.OrderBy(orderBy)
	}
	if hasTake {
		q.Limit = take
	}

	query, params, err := q.BuildQuery(m.db.dialect)
	if err != nil {
		return nil, fmt.Errorf("kdb: error building query for model %s: %w", m.schema.name, err)
	}

	return queryRecords(ctx, m.db.db, m.db.dialect, m.schema, method, query, params...)
}

// FindFirst returns the first record matching the filter
// or ErrRecordNotFound if there is none.
func (m Model) FindFirst(ctx context.Context, args FindManyArgs) (Record, error) {
	args.Take = takeOne
	records, err := m.findMany(ctx, "FindFirst", args)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return records[0], nil
}

// FindUnique returns the record identified by the filter, which must
// contain an equality on the id or on an unique column.
//
// If no record is found ErrRecordNotFound is returned.
func (m Model) FindUnique(ctx context.Context, args FindUniqueArgs) (Record, error) {
	if err := m.checkUniqueWhere(args.Where); err != nil {
		return nil, err
	}
	return m.findUnique(ctx, "FindUnique", args.Where)
}

func (m Model) findUnique(ctx context.Context, method string, where Where) (Record, error) {
	records, err := m.findMany(ctx, method, FindManyArgs{
		Where: where,
		Take:  takeOne,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return records[0], nil
}

func (m Model) findByID(ctx context.Context, method string, id interface{}) (Record, error) {
	return m.findUnique(ctx, method, Where{m.schema.idField.ColumnName: id})
}

// Update changes a single record identified by the filter and
// returns it as stored on the database after the update.
func (m Model) Update(ctx context.Context, args UpdateArgs) (Record, error) {
	const method = "Update"

	if err := m.checkUniqueWhere(args.Where); err != nil {
		return nil, err
	}

	set, err := m.buildUpdateSet(ctx, method, args.Data)
	if err != nil {
		return nil, err
	}

	var record Record
	err = m.db.transaction(ctx, func(db DB) error {
		txModel := Model{db: db, schema: m.schema}

		current, err := txModel.findUnique(ctx, method, args.Where)
		if err != nil {
			return err
		}

		id := current[m.schema.idField.ColumnName]
		query, params := buildUpdateQuery(
			db.dialect, m.schema, set,
			kbuilder.Where(db.dialect.Escape(m.schema.idField.ColumnName)+" = %s", id),
		)

		result, err := txModel.exec(ctx, method, query, params...)
		if err != nil {
			return fmt.Errorf("kdb: unable to update %s: %w", m.schema.name, err)
		}

		if _, err := result.RowsAffected(); err != nil {
			return fmt.Errorf(
				"kdb: unable to check if the %s was updated: %w",
				m.schema.name, err,
			)
		}

		if set.newID != nil {
			id = set.newID
		}

		record, err = txModel.findByID(ctx, method, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// UpdateMany changes all the records matching the filter
// and returns the number of updated records.
func (m Model) UpdateMany(ctx context.Context, args UpdateManyArgs) (BatchResult, error) {
	set, err := m.buildUpdateSet(ctx, "UpdateMany", args.Data)
	if err != nil {
		return BatchResult{}, err
	}

	conds, err := compileWhere(m.schema, m.db.dialect, args.Where)
	if err != nil {
		return BatchResult{}, err
	}

	query, params := buildUpdateQuery(m.db.dialect, m.schema, set, conds)
	result, err := m.exec(ctx, "UpdateMany", query, params...)
	if err != nil {
		return BatchResult{}, fmt.Errorf("kdb: unable to update %s records: %w", m.schema.name, err)
	}

	return batchResult(m.schema, result)
}

// Delete removes a single record identified by the filter and returns
// the deleted record, ErrRecordNotFound is returned if it doesn't exist.
func (m Model) Delete(ctx context.Context, args DeleteArgs) (Record, error) {
	const method = "Delete"

	if err := m.checkUniqueWhere(args.Where); err != nil {
		return nil, err
	}

	var record Record
	err := m.db.transaction(ctx, func(db DB) (err error) {
		txModel := Model{db: db, schema: m.schema}

		record, err = txModel.findUnique(ctx, method, args.Where)
		if err != nil {
			return err
		}

		query, params := buildDeleteQuery(
			db.dialect, m.schema,
			kbuilder.Where(
				db.dialect.Escape(m.schema.idField.ColumnName)+" = %s",
				record[m.schema.idField.ColumnName],
			),
		)

		_, err = txModel.exec(ctx, method, query, params...)
		if err != nil {
			return fmt.Errorf("kdb: unable to delete %s: %w", m.schema.name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// DeleteMany removes all the records matching the filter and returns
// the number of deleted records, an empty filter deletes everything.
func (m Model) DeleteMany(ctx context.Context, args DeleteManyArgs) (BatchResult, error) {
	conds, err := compileWhere(m.schema, m.db.dialect, args.Where)
	if err != nil {
		return BatchResult{}, err
	}

	query, params := buildDeleteQuery(m.db.dialect, m.schema, conds)
	result, err := m.exec(ctx, "DeleteMany", query, params...)
	if err != nil {
		return BatchResult{}, fmt.Errorf("kdb: unable to delete %s records: %w", m.schema.name, err)
	}

	return batchResult(m.schema, result)
}

// Count returns the number of records matching the filter
func (m Model) Count(ctx context.Context, args CountArgs) (int64, error) {
	conds, err := compileWhere(m.schema, m.db.dialect, args.Where)
	if err != nil {
		return 0, err
	}

	query, params, err := kbuilder.Query{
		Select: "COUNT(*)",
		From:   m.db.dialect.Escape(m.schema.table),
		Where:  conds,
	}.BuildQuery(m.db.dialect)
	if err != nil {
		return 0, fmt.Errorf("kdb: error building query for model %s: %w", m.schema.name, err)
	}

	var count int64
	err = m.queryScalar(ctx, "Count", &count, query, params...)
	if err != nil {
		return 0, fmt.Errorf("kdb: unable to count %s records: %w", m.schema.name, err)
	}

	return count, nil
}

func (m Model) exec(ctx context.Context, method string, query string, params ...interface{}) (_ Result, err error) {
	defer logQuery(ctx, m.opInfo(method), query, params)(&err)

	return m.db.db.ExecContext(ctx, query, params...)
}

// queryScalar runs a query expected to return
// a single row with a single column.
func (m Model) queryScalar(ctx context.Context, method string, target interface{}, query string, params ...interface{}) (err error) {
	defer logQuery(ctx, m.opInfo(method), query, params)(&err)

	rows, err := m.db.db.QueryContext(ctx, query, params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return rows.Err()
		}
		return ErrRecordNotFound
	}

	err = rows.Scan(target)
	if err != nil {
		return err
	}

	return rows.Close()
}

// checkUniqueWhere makes sure the filter can match at most one record
func (m Model) checkUniqueWhere(where Where) error {
	for column, value := range where {
		if !m.schema.isUniqueColumn(column) {
			continue
		}

		if ops, isFilterObject := asMap(value); isFilterObject {
			if len(ops) != 1 || ops["equals"] == nil {
				continue
			}
		} else if value == nil {
			continue
		}

		return nil
	}

	return invalidArgs(
		m.schema.name,
		"the where argument must select the %s by `%s` or by one of its unique attributes",
		m.schema.name, m.schema.idField.ColumnName,
	)
}

func (m Model) opInfo(method string) kmodifiers.OpInfo {
	return kmodifiers.OpInfo{
		Method:     method,
		Model:      m.schema.name,
		DriverName: m.db.dialect.DriverName(),
	}
}

func (m Model) idType() reflect.Type {
	return m.attrType(m.schema.idField)
}

func (m Model) attrType(field *structs.FieldInfo) reflect.Type {
	t := m.schema.modelType.Field(field.Index).Type
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// buildValues validates the input data and converts it into the list of
// columns and values to be written, the columns follow the order of the
// attributes on the model struct.
func (m Model) buildValues(
	ctx context.Context,
	method string,
	data Record,
	isUpdate bool,
) (columns []string, params []interface{}, _ error) {
	for column := range data {
		if _, err := m.schema.field(column); err != nil {
			return nil, nil, err
		}
	}

	for _, field := range m.schema.info.Fields() {
		if (!isUpdate && field.Modifier.SkipOnInsert) || (isUpdate && field.Modifier.SkipOnUpdate) {
			continue
		}

		value, found := data[field.ColumnName]
		if !found && !field.Modifier.Auto {
			continue
		}

		param, err := m.convertInput(ctx, method, field, value)
		if err != nil {
			return nil, nil, err
		}

		columns = append(columns, field.ColumnName)
		params = append(params, param)
	}

	return columns, params, nil
}

func (m Model) convertInput(ctx context.Context, method string, field *structs.FieldInfo, value interface{}) (interface{}, error) {
	if field.Modifier.Value != nil {
		return modifiers.Valuer{
			Ctx:    ctx,
			OpInfo: m.opInfo(method),
			Attr:   value,
			Fn:     field.Modifier.Value,
		}, nil
	}

	converted, err := structs.ConvertValue(value, m.attrType(field))
	if err != nil {
		return nil, invalidArgs(m.schema.name, "invalid value for attribute `%s`: %w", field.ColumnName, err)
	}
	return converted, nil
}

var atomicOperators = map[string]string{
	"set":       "",
	"increment": "+",
	"decrement": "-",
	"multiply":  "*",
	"divide":    "/",
}

type updateSet struct {
	exprs  []string
	params []interface{}

	// newID is set when the update changes the primary key
	newID interface{}
}

// buildUpdateSet renders the SET part of an UPDATE, each expression
// contains a single %s directive which is replaced by a placeholder later.
func (m Model) buildUpdateSet(ctx context.Context, method string, data Record) (updateSet, error) {
	var set updateSet
	explicitValues := 0
	for column := range data {
		field, err := m.schema.field(column)
		if err != nil {
			return updateSet{}, err
		}
		if !field.Modifier.SkipOnUpdate {
			explicitValues++
		}
	}
	if explicitValues == 0 {
		return updateSet{}, ErrNoValuesToUpdate
	}

	for _, field := range m.schema.info.Fields() {
		if field.Modifier.SkipOnUpdate {
			continue
		}

		value, found := data[field.ColumnName]
		if !found && !field.Modifier.Auto {
			continue
		}

		escapedName := m.db.dialect.Escape(field.ColumnName)

		operator := ""
		if ops, isOp := asAtomicOperation(value); isOp && field.Modifier.Value == nil {
			for op, opValue := range ops {
				operator = atomicOperators[op]
				value = opValue
			}
		}

		if operator != "" && value == nil {
			return updateSet{}, invalidArgs(m.schema.name, "atomic operations on attribute `%s` require a value", field.ColumnName)
		}

		param, err := m.convertInput(ctx, method, field, value)
		if err != nil {
			return updateSet{}, err
		}

		expr := escapedName + " = %s"
		if operator != "" {
			expr = escapedName + " = " + escapedName + " " + operator + " %s"
		} else if field == m.schema.idField {
			set.newID = param
		}

		set.exprs = append(set.exprs, expr)
		set.params = append(set.params, param)
	}

	return set, nil
}

// asAtomicOperation checks if the value is an object
// with a single key naming one of the atomic operators.
func asAtomicOperation(value interface{}) (map[string]interface{}, bool) {
	ops, ok := asMap(value)
	if !ok || len(ops) != 1 {
		return nil, false
	}
	for op := range ops {
		if _, found := atomicOperators[op]; !found {
			return nil, false
		}
	}
	return ops, true
}

func buildInsertQuery(dialect sqldialect.Provider, schema Schema, columns []string) string {
	escapedTable := dialect.Escape(schema.table)
	escapedID := dialect.Escape(schema.idField.ColumnName)

	var outputQuery string
	if dialect.InsertMethod() == sqldialect.InsertWithOutput {
		outputQuery = " OUTPUT INSERTED." + escapedID
	}

	var returningQuery string
	if dialect.InsertMethod() == sqldialect.InsertWithReturning {
		returningQuery = " RETURNING " + escapedID
	}

	if len(columns) == 0 {
		if dialect.DriverName() == "mysql" {
			return "INSERT INTO " + escapedTable + " () VALUES ()"
		}
		return "INSERT INTO " + escapedTable + outputQuery + " DEFAULT VALUES" + returningQuery
	}

	escapedColumns := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, column := range columns {
		escapedColumns[i] = dialect.Escape(column)
		placeholders[i] = dialect.Placeholder(i)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s)%s VALUES (%s)%s",
		escapedTable,
		strings.Join(escapedColumns, ", "),
		outputQuery,
		strings.Join(placeholders, ", "),
		returningQuery,
	)
}

func buildUpdateQuery(
	dialect sqldialect.Provider,
	schema Schema,
	set updateSet,
	where kbuilder.WhereQueries,
) (query string, params []interface{}) {
	exprs := make([]string, len(set.exprs))
	for i, expr := range set.exprs {
		exprs[i] = fmt.Sprintf(expr, dialect.Placeholder(i))
	}
	params = append(params, set.params...)

	query = "UPDATE " + dialect.Escape(schema.table) + " SET " + strings.Join(exprs, ", ")
	if len(where) > 0 {
		whereQuery, whereParams := where.Build(dialect, len(params))
		query += " WHERE " + whereQuery
		params = append(params, whereParams...)
	}

	return query, params
}

func buildDeleteQuery(
	dialect sqldialect.Provider,
	schema Schema,
	where kbuilder.WhereQueries,
) (query string, params []interface{}) {
	query = "DELETE FROM " + dialect.Escape(schema.table)
	if len(where) > 0 {
		var whereQuery string
		whereQuery, params = where.Build(dialect, 0)
		query += " WHERE " + whereQuery
	}
	return query, params
}

func batchResult(schema Schema, result Result) (BatchResult, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return BatchResult{}, fmt.Errorf(
			"kdb: unable to check how many %s records were affected: %w",
			schema.name, err,
		)
	}
	return BatchResult{Count: n}, nil
}
