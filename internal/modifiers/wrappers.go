package modifiers

import (
	"context"
	"database/sql/driver"

	"github.com/vingarcia/kservice/kmodifiers"
)

// Scanner implements sql.Scanner running the Scan
// function of a modifier instead of the driver default.
type Scanner struct {
	Ctx     context.Context
	OpInfo  kmodifiers.OpInfo
	AttrPtr interface{}
	Fn      kmodifiers.AttrScanner
}

// Scan implements the sql.Scanner interface
func (s Scanner) Scan(dbValue interface{}) error {
	return s.Fn(s.Ctx, s.OpInfo, s.AttrPtr, dbValue)
}

// Valuer implements driver.Valuer running the Value
// function of a modifier instead of the driver default.
type Valuer struct {
	Ctx    context.Context
	OpInfo kmodifiers.OpInfo
	Attr   interface{}
	Fn     kmodifiers.AttrValuer
}

// Value implements the driver.Valuer interface
func (v Valuer) Value() (driver.Value, error) {
	return v.Fn(v.Ctx, v.OpInfo, v.Attr)
}
