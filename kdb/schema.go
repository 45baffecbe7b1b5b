package kdb

import (
	"fmt"
	"reflect"

	"github.com/vingarcia/kservice/internal/structs"
)

// Schema describes how a model is stored on the database,
// it is built from a struct using the `kdb` tags, e.g.:
//
//	type User struct {
//		ID    int    `kdb:"id"`
//		Name  string `kdb:"name"`
//		Email string `kdb:"email,unique"`
//	}
//
//	var UsersSchema = kdb.MustSchema("User", "users", User{})
//
// The primary key is the column named `id` unless one of
// the attributes is tagged with the `id` option.
type Schema struct {
	name  string
	table string

	modelType reflect.Type
	info      structs.StructInfo
	idField   *structs.FieldInfo
}

// NewSchema builds a Schema for the input struct or struct pointer
func NewSchema(name string, table string, model interface{}) (Schema, error) {
	if name == "" || table == "" {
		return Schema{}, fmt.Errorf("kdb: the model name and table name are mandatory")
	}

	t := reflect.TypeOf(model)
	if t == nil {
		return Schema{}, fmt.Errorf("kdb: expected model to be a struct but got nil")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return Schema{}, fmt.Errorf("kdb: expected model to be a struct but got %T", model)
	}

	info, err := structs.GetTagInfo(t)
	if err != nil {
		return Schema{}, fmt.Errorf("kdb: invalid model %s: %w", name, err)
	}

	var idField *structs.FieldInfo
	for _, field := range info.Fields() {
		if !field.IsID {
			continue
		}
		if idField != nil {
			return Schema{}, fmt.Errorf(
				"kdb: model %s has more than one id attribute: %s and %s",
				name, idField.AttrName, field.AttrName,
			)
		}
		idField = field
	}

	if idField == nil {
		field := info.ByName("id")
		if !field.Valid {
			return Schema{}, fmt.Errorf(
				"kdb: model %s has no id attribute, add a column named `id` or use the `id` tag option",
				name,
			)
		}
		idField = field
	}

	return Schema{
		name:      name,
		table:     table,
		modelType: t,
		info:      info,
		idField:   idField,
	}, nil
}

// MustSchema works as NewSchema but panics on errors,
// it is meant for package level variables.
func MustSchema(name string, table string, model interface{}) Schema {
	schema, err := NewSchema(name, table, model)
	if err != nil {
		panic(err)
	}
	return schema
}

// Name returns the name of the model
func (s Schema) Name() string {
	return s.name
}

// Table returns the name of the table
func (s Schema) Table() string {
	return s.table
}

// IDColumn returns the name of the primary key column
func (s Schema) IDColumn() string {
	return s.idField.ColumnName
}

// Columns returns all the column names in the order they
// appear on the model struct.
func (s Schema) Columns() []string {
	var columns []string
	for _, field := range s.info.Fields() {
		columns = append(columns, field.ColumnName)
	}
	return columns
}

// isUniqueColumn reports whether a single equality on this column
// is enough for identifying a record.
func (s Schema) isUniqueColumn(column string) bool {
	field := s.info.ByName(column)
	if !field.Valid {
		return false
	}
	return field.IsID || field.IsUnique || field.ColumnName == s.idField.ColumnName
}

func (s Schema) field(column string) (*structs.FieldInfo, error) {
	field := s.info.ByName(column)
	if !field.Valid || field.ColumnName != column {
		return nil, invalidArgs(s.name, "unknown attribute `%s` on model %s", column, s.name)
	}
	return field, nil
}

func (s Schema) newRecordPtr() reflect.Value {
	return reflect.New(s.modelType)
}
