package kservice

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// Method is the signature of every method of a service
type Method func(ctx context.Context, args Args) (interface{}, error)

// Methods maps the names of the methods of a service
// to their implementations.
type Methods map[string]Method

// Args are the positional arguments of a service call.
//
// When the call comes from a remote transport each argument
// is a json.RawMessage, in process calls may pass any value.
type Args []interface{}

// Decode copies the argument at position i into target,
// which must be a pointer.
//
// Missing or null arguments leave the target untouched.
func (a Args) Decode(i int, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("kservice: expected a non nil pointer as target but got: %T", target)
	}

	if i >= len(a) || a[i] == nil {
		return nil
	}

	raw, isRaw := a[i].(json.RawMessage)
	if !isRaw {
		arg := reflect.ValueOf(a[i])
		if arg.Type().AssignableTo(v.Elem().Type()) {
			v.Elem().Set(arg)
			return nil
		}

		var err error
		raw, err = json.Marshal(a[i])
		if err != nil {
			return NewError(CodeBadRequest, "unable to encode argument %d: %s", i, err)
		}
	}

	err := json.Unmarshal(raw, target)
	if err != nil {
		return NewError(CodeBadRequest, "invalid argument %d: %s", i, err)
	}
	return nil
}

func rawArgs(raws []json.RawMessage) Args {
	args := make(Args, 0, len(raws))
	for _, raw := range raws {
		args = append(args, raw)
	}
	return args
}

// decodeResult converts the result of a call into the type
// expected by the typed methods of the Service, results replaced
// by hooks with values of a different type are converted via JSON.
func decodeResult[T any](result interface{}) (T, error) {
	if v, ok := result.(T); ok {
		return v, nil
	}

	var v T
	raw, err := json.Marshal(result)
	if err != nil {
		return v, fmt.Errorf("kservice: unable to encode result: %w", err)
	}

	err = json.Unmarshal(raw, &v)
	if err != nil {
		return v, fmt.Errorf("kservice: unexpected result type %T: %w", result, err)
	}
	return v, nil
}
