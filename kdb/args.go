package kdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Where describes a filter over the columns of a model, e.g.:
//
//	kdb.Where{
//		"name":  kdb.Where{"startsWith": "Jo"},
//		"email": "john@example.com",
//		"OR": []kdb.Where{
//			{"age": kdb.Where{"gte": 18}},
//			{"age": nil},
//		},
//	}
//
// A scalar value means equality and nil means IS NULL, the available
// operators are: equals, not, in, notIn, lt, lte, gt, gte, contains,
// startsWith and endsWith; string operators also accept the option
// `"mode": "insensitive"`. Conditions can be combined with AND, OR and NOT.
type Where map[string]interface{}

// OrderField describes the ordering of a single column
type OrderField struct {
	Column string
	Desc   bool
}

// OrderBy describes the ordering of the results of a query,
// on JSON it can be written either as an object:
//
//	{"name": "asc", "id": "desc"}
//
// or as a list of objects:
//
//	[{"name": "asc"}, {"id": "desc"}]
type OrderBy []OrderField

// Asc returns an OrderBy sorting the input columns in ascending order
func Asc(columns ...string) OrderBy {
	var o OrderBy
	for _, column := range columns {
		o = append(o, OrderField{Column: column})
	}
	return o
}

// Desc returns an OrderBy sorting the input columns in descending order
func Desc(columns ...string) OrderBy {
	var o OrderBy
	for _, column := range columns {
		o = append(o, OrderField{Column: column, Desc: true})
	}
	return o
}

// MarshalJSON implements the json.Marshaler interface
func (o OrderBy) MarshalJSON() ([]byte, error) {
	list := make([]map[string]string, 0, len(o))
	for _, field := range o {
		direction := "asc"
		if field.Desc {
			direction = "desc"
		}
		list = append(list, map[string]string{field.Column: direction})
	}
	return json.Marshal(list)
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (o *OrderBy) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*o = nil
		return nil
	}

	if len(b) > 0 && b[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}

		var result OrderBy
		for _, item := range list {
			fields, err := parseOrderObject(item)
			if err != nil {
				return err
			}
			result = append(result, fields...)
		}
		*o = result
		return nil
	}

	fields, err := parseOrderObject(b)
	if err != nil {
		return err
	}
	*o = fields
	return nil
}

// parseOrderObject reads the object token by token so that
// the order of the keys is preserved.
func parseOrderObject(b []byte) (OrderBy, error) {
	decoder := json.NewDecoder(bytes.NewReader(b))
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("orderBy must be an object or a list of objects, but got: %s", string(b))
	}

	var result OrderBy
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		column, _ := token.(string)

		var direction string
		if err := decoder.Decode(&direction); err != nil {
			return nil, fmt.Errorf("invalid direction for orderBy column `%s`: %w", column, err)
		}

		switch strings.ToLower(direction) {
		case "asc":
			result = append(result, OrderField{Column: column})
		case "desc":
			result = append(result, OrderField{Column: column, Desc: true})
		default:
			return nil, fmt.Errorf("invalid direction for orderBy column `%s`: expected asc or desc but got `%s`", column, direction)
		}
	}

	return result, nil
}

// CreateArgs are the arguments of the Create operation
type CreateArgs struct {
	Data Record `json:"data"`
}

// FindManyArgs are the arguments of the FindMany and FindFirst operations
type FindManyArgs struct {
	Where   Where               `json:"where,omitempty"`
	OrderBy OrderBy             `json:"orderBy,omitempty"`
	Take    ldvalue.OptionalInt `json:"take,omitempty"`
	Skip    ldvalue.OptionalInt `json:"skip,omitempty"`
}

// FindUniqueArgs are the arguments of the FindUnique operation,
// the Where must match the id or an unique column.
type FindUniqueArgs struct {
	Where Where `json:"where"`
}

// UpdateArgs are the arguments of the Update operation,
// the Where must match the id or an unique column.
//
// Besides plain values Data also accepts the atomic operations:
// set, increment, decrement, multiply and divide, e.g.:
//
//	kdb.Record{"views": kdb.Where{"increment": 1}}
type UpdateArgs struct {
	Where Where  `json:"where"`
	Data  Record `json:"data"`
}

// UpdateManyArgs are the arguments of the UpdateMany operation
type UpdateManyArgs struct {
	Where Where  `json:"where,omitempty"`
	Data  Record `json:"data"`
}

// DeleteArgs are the arguments of the Delete operation,
// the Where must match the id or an unique column.
type DeleteArgs struct {
	Where Where `json:"where"`
}

// DeleteManyArgs are the arguments of the DeleteMany operation,
// an empty Where deletes all the records of the model.
type DeleteManyArgs struct {
	Where Where `json:"where,omitempty"`
}

// CountArgs are the arguments of the Count operation
type CountArgs struct {
	Where Where `json:"where,omitempty"`
}

// BatchResult is returned by the operations
// that affect several records at once.
type BatchResult struct {
	Count int64 `json:"count"`
}
