package kdb

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vingarcia/kservice/internal/modifiers"
	"github.com/vingarcia/kservice/internal/structs"
	"github.com/vingarcia/kservice/kmodifiers"
	"github.com/vingarcia/kservice/sqldialect"
)

type nopScanner struct{}

var nopScannerValue = reflect.ValueOf(&nopScanner{}).Interface()

func (nopScanner) Scan(value interface{}) error {
	return nil
}

// queryRecords runs the query and converts each returned row into
// a Record using the model struct as the intermediate representation.
func queryRecords(
	ctx context.Context,
	db DBAdapter,
	dialect sqldialect.Provider,
	schema Schema,
	method string,
	query string,
	params ...interface{},
) (records []Record, err error) {
	opInfo := kmodifiers.OpInfo{
		Method:     method,
		Model:      schema.name,
		DriverName: dialect.DriverName(),
	}
	defer logQuery(ctx, opInfo, query, params)(&err)

	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("kdb: error running query: %w", err)
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("kdb: unable to read columns from returned rows: %w", err)
	}

	records = []Record{}
	for rows.Next() {
		v := schema.newRecordPtr()
		attrNames, scanArgs := getScanArgsFromNames(ctx, opInfo, colNames, v.Elem(), schema.info)

		err = rows.Scan(scanArgs...)
		if err != nil {
			if scanErr, ok := err.(ScanArgError); ok {
				return nil, fmt.Errorf(
					"kdb: scan error: %w",
					scanErr.ErrorWithStructNames(schema.modelType.Name(), attrNames[scanErr.ColumnIndex]),
				)
			}
			return nil, fmt.Errorf("kdb: scan error: %w", err)
		}

		records = append(records, recordFromStruct(schema, v))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kdb: error reading rows: %w", err)
	}

	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("kdb: error closing rows: %w", err)
	}

	return records, nil
}

func getScanArgsFromNames(
	ctx context.Context,
	opInfo kmodifiers.OpInfo,
	names []string,
	v reflect.Value,
	info structs.StructInfo,
) (attrNames []string, scanArgs []interface{}) {
	for _, name := range names {
		fieldInfo := info.ByName(name)

		valueScanner := nopScannerValue
		if fieldInfo.Valid {
			valueScanner = v.Field(fieldInfo.Index).Addr().Interface()
			if fieldInfo.Modifier.Scan != nil {
				valueScanner = &modifiers.Scanner{
					Ctx:     ctx,
					OpInfo:  opInfo,
					AttrPtr: valueScanner,
					Fn:      fieldInfo.Modifier.Scan,
				}
			}
		}

		scanArgs = append(scanArgs, valueScanner)
		attrNames = append(attrNames, fieldInfo.AttrName)
	}

	return attrNames, scanArgs
}
