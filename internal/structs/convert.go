package structs

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// ConvertValue converts values decoded from JSON, query strings or
// database drivers into the Go type of a struct attribute.
//
// A nil value is always returned as nil so that it can be
// sent to the database as NULL.
func ConvertValue(value interface{}, destType reflect.Type) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	if destType.Kind() == reflect.Ptr {
		elem, err := ConvertValue(value, destType.Elem())
		if err != nil || elem == nil {
			return nil, err
		}

		ptr := reflect.New(destType.Elem())
		ptr.Elem().Set(reflect.ValueOf(elem))
		return ptr.Interface(), nil
	}

	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
		value = v.Interface()
	}

	if v.Type() == destType {
		return value, nil
	}

	if s, ok := value.(string); ok {
		return parseString(s, destType)
	}

	if f, ok := value.(float64); ok && isInteger(destType) {
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("cannot use %v as an integer", f)
		}
	}

	converted, err := NewPtrConverter(value).Convert(destType)
	if err != nil {
		return nil, err
	}
	return converted.Interface(), nil
}

func parseString(s string, destType reflect.Type) (interface{}, error) {
	var parsed interface{}
	var err error
	switch {
	case destType == timeType:
		parsed, err = parseTime(s)
	case destType.Kind() == reflect.String:
		parsed = s
	case destType.Kind() == reflect.Bool:
		parsed, err = strconv.ParseBool(s)
	case isInteger(destType) && isUnsigned(destType):
		parsed, err = strconv.ParseUint(s, 10, 64)
	case isInteger(destType):
		parsed, err = strconv.ParseInt(s, 10, 64)
	case destType.Kind() == reflect.Float32 || destType.Kind() == reflect.Float64:
		parsed, err = strconv.ParseFloat(s, 64)
	case destType.Kind() == reflect.Slice && destType.Elem().Kind() == reflect.Uint8:
		parsed = []byte(s)
	default:
		return nil, fmt.Errorf("cannot convert string '%s' into type %v", s, destType)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot convert string '%s' into type %v: %w", s, destType, err)
	}

	return reflect.ValueOf(parsed).Convert(destType).Interface(), nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (t time.Time, err error) {
	for _, layout := range timeLayouts {
		t, err = time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func isInteger(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isUnsigned(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
