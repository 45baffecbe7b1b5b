// Package kmodifiers contains the public types used for
// customizing how kdb reads and writes a model attribute.
//
// A modifier is selected on the model struct tag, e.g.:
//
//	type Post struct {
//		ID        int       `kdb:"id"`
//		Tags      []string  `kdb:"tags,json"`
//		CreatedAt time.Time `kdb:"created_at,timeNowUTC/skipUpdates"`
//	}
package kmodifiers

import "context"

// AttrModifier informs kdb how to use this modifier
type AttrModifier struct {
	// The following attributes will tell kdb to
	// leave this attribute out of insertions and updates
	// respectively.
	SkipOnInsert bool
	SkipOnUpdate bool

	// Auto tells kdb to write this attribute on every insert or
	// update (unless skipped above) even when the input data
	// does not mention it, the Value function is then called
	// with a nil input.
	Auto bool

	// Implement these functions if you want to override the default Scan/Value behavior
	// for the target attribute.
	Scan  AttrScanner
	Value AttrValuer
}

// AttrScanner describes the operation of deserializing an object received from the database.
type AttrScanner func(ctx context.Context, opInfo OpInfo, attrPtr interface{}, dbValue interface{}) error

// AttrValuer describes the operation of serializing an object when saving it to the database.
type AttrValuer func(ctx context.Context, opInfo OpInfo, inputValue interface{}) (outputValue interface{}, _ error)

// OpInfo contains information that might be used by a modifier to determine how it should behave.
type OpInfo struct {
	// The name of the model operation being executed, e.g. `Create` or `FindMany`
	Method string

	// The name of the model as registered on its kdb.Schema, e.g. "User"
	Model string

	// The string representing the current underlying database, e.g.:
	// "postgres", "sqlite3", "mysql" or "sqlserver".
	DriverName string
}

// RegisterAttrModifier allow users to add custom modifiers on startup
// it is recommended to do this inside an init() function.
var RegisterAttrModifier func(key string, modifier AttrModifier)

// This method is set at startup by the `internal/modifiers` package.
// It was done that way in order to keep most of the implementation private
// while also avoiding cyclic dependencies.
