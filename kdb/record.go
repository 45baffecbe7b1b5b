package kdb

import (
	"reflect"

	"github.com/vingarcia/kservice/internal/structs"
)

// Record is the representation of a single row of a model
// keyed by column name, it is the type used as input and output
// by all model operations and serializes directly to JSON.
type Record map[string]interface{}

// ToRecord converts a struct tagged with `kdb` tags into a Record,
// nil pointers are left out of the output so the struct can be
// used for describing partial records, e.g. for updates.
func ToRecord(obj interface{}) (Record, error) {
	m, err := structs.StructToMap(obj)
	if err != nil {
		return nil, err
	}
	return Record(m), nil
}

// Decode copies the values of the record into the struct
// pointed by target converting them to the attribute types.
func (r Record) Decode(target interface{}) error {
	return structs.FillStructWith(target, r)
}

// recordFromStruct builds the output Record of a model operation,
// unlike ToRecord nil pointers are kept as nil values so that every
// column is present on the output.
func recordFromStruct(schema Schema, v reflect.Value) Record {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	record := Record{}
	for _, field := range schema.info.Fields() {
		attr := v.Field(field.Index)
		if attr.Kind() == reflect.Ptr {
			if attr.IsNil() {
				record[field.ColumnName] = nil
				continue
			}
			attr = attr.Elem()
		}
		record[field.ColumnName] = attr.Interface()
	}
	return record
}
