// Package nullable contains helpers for building the pointer
// attributes used on partial records, e.g.:
//
//	kdb.ToRecord(UserPatch{Name: nullable.String("Jane")})
package nullable

import "time"

// Of returns a pointer to a copy of the input value
func Of[T any](v T) *T {
	return &v
}

// Int ...
func Int(i int) *int {
	return &i
}

// Int64 ...
func Int64(i int64) *int64 {
	return &i
}

// UInt ...
func UInt(i uint) *uint {
	return &i
}

// Float64 ...
func Float64(f float64) *float64 {
	return &f
}

// Bool ...
func Bool(b bool) *bool {
	return &b
}

// String ...
func String(s string) *string {
	return &s
}

// Time ...
func Time(t time.Time) *time.Time {
	return &t
}

// ValueOr dereferences the pointer returning
// the default value when it is nil.
func ValueOr[T any](ptr *T, defaultValue T) T {
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}
