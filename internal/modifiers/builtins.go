package modifiers

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/vingarcia/kservice/kmodifiers"
)

// Only replaced during tests
var now = time.Now

var builtins = map[string]kmodifiers.AttrModifier{
	"json": jsonModifier,

	// For updatedAt and createdAt attributes respectively
	"timeNowUTC":             nowUTCModifier(false),
	"timeNowUTC/skipUpdates": nowUTCModifier(true),

	// For columns filled by the database, e.g. generated columns
	"skipInserts": {SkipOnInsert: true},
	"skipUpdates": {SkipOnUpdate: true},
}

// jsonModifier stores the attribute as a JSON document, records
// received from the transports carry it already decoded, e.g.
// as a map[string]interface{}, so it is encoded again here.
var jsonModifier = kmodifiers.AttrModifier{
	Scan: func(ctx context.Context, opInfo kmodifiers.OpInfo, attrPtr interface{}, dbValue interface{}) error {
		target := reflect.ValueOf(attrPtr).Elem()

		var rawJSON []byte
		switch v := dbValue.(type) {
		case nil:
			target.Set(reflect.Zero(target.Type()))
			return nil
		case string:
			// sqlite3 and sqlserver return strings
			rawJSON = []byte(v)
		case []byte:
			rawJSON = v
		default:
			return fmt.Errorf("unexpected type received to Scan: %T", dbValue)
		}

		return json.Unmarshal(rawJSON, attrPtr)
	},

	Value: func(ctx context.Context, opInfo kmodifiers.OpInfo, inputValue interface{}) (interface{}, error) {
		if inputValue == nil {
			return nil, nil
		}

		rawJSON, ok := inputValue.(json.RawMessage)
		if !ok {
			var err error
			rawJSON, err = json.Marshal(inputValue)
			if err != nil {
				return nil, fmt.Errorf("unable to encode %s attribute as JSON: %w", opInfo.Model, err)
			}
		}

		// sqlserver stores JSON on NVARCHAR columns
		if opInfo.DriverName == "sqlserver" {
			return string(rawJSON), nil
		}
		return []byte(rawJSON), nil
	},
}

func nowUTCModifier(skipUpdates bool) kmodifiers.AttrModifier {
	return kmodifiers.AttrModifier{
		SkipOnUpdate: skipUpdates,
		Auto:         true,

		Value: func(ctx context.Context, opInfo kmodifiers.OpInfo, inputValue interface{}) (interface{}, error) {
			return now().UTC(), nil
		},
	}
}
