package structs

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/vingarcia/kservice/internal/modifiers"
	"github.com/vingarcia/kservice/kmodifiers"
)

// StructInfo stores metainformation of the struct
// parser in order to help the kdb library to work
// efectively and efficiently with reflection.
type StructInfo struct {
	byIndex   map[int]*FieldInfo
	byName    map[string]*FieldInfo
	numFields int
}

// FieldInfo contains reflection and tags
// information regarding a specific field
// of a struct.
type FieldInfo struct {
	AttrName   string
	ColumnName string
	Index      int
	Valid      bool
	IsID       bool
	IsUnique   bool
	Modifier   kmodifiers.AttrModifier
}

// ByIndex returns either the *FieldInfo of a valid
// empty struct with Valid set to false
func (s StructInfo) ByIndex(idx int) *FieldInfo {
	field, found := s.byIndex[idx]
	if !found {
		return &FieldInfo{}
	}
	return field
}

// ByName returns either the *FieldInfo of a valid
// empty struct with Valid set to false
func (s StructInfo) ByName(name string) *FieldInfo {
	field, found := s.byName[name]
	if !found {
		return &FieldInfo{}
	}
	return field
}

// Fields returns the valid fields sorted by their position on the struct
func (s StructInfo) Fields() []*FieldInfo {
	fields := make([]*FieldInfo, 0, len(s.byIndex))
	for i := 0; i < s.numFields; i++ {
		if field, found := s.byIndex[i]; found {
			fields = append(fields, field)
		}
	}
	return fields
}

func (s StructInfo) add(field FieldInfo) {
	field.Valid = true
	s.byIndex[field.Index] = &field
	s.byName[field.ColumnName] = &field

	// Make sure to save a lowercased version because
	// some databases will set these keys to lowercase.
	if _, found := s.byName[strings.ToLower(field.ColumnName)]; !found {
		s.byName[strings.ToLower(field.ColumnName)] = &field
	}
}

// NumFields returns the number of fields of the struct
// including the ones with no `kdb` tags.
func (s StructInfo) NumFields() int {
	return s.numFields
}

// This cache is kept as a pkg variable
// because the total number of types on a program
// should be finite. So keeping a single cache here
// works fine.
var tagInfoCache = &sync.Map{}

// GetTagInfo efficiently returns the type information
// using a global private cache
func GetTagInfo(key reflect.Type) (StructInfo, error) {
	return getCachedTagInfo(tagInfoCache, key)
}

func getCachedTagInfo(tagInfoCache *sync.Map, key reflect.Type) (StructInfo, error) {
	if data, found := tagInfoCache.Load(key); found {
		info, ok := data.(StructInfo)
		if !ok {
			return StructInfo{}, fmt.Errorf("invalid cache entry, expected type StructInfo, found %T", data)
		}
		return info, nil
	}

	info, err := getTagNames(key)
	if err != nil {
		return StructInfo{}, err
	}

	tagInfoCache.Store(key, info)
	return info, nil
}

// StructToMap converts any struct type to a map based on
// the tag named `kdb`, i.e. `kdb:"map_key_name"`
//
// Valid pointers are dereferenced and copied to the map,
// null pointers are ignored.
//
// This function is efficient in the fact that it caches
// the slower steps of the reflection required to perform
// this task.
func StructToMap(obj interface{}) (map[string]interface{}, error) {
	v := reflect.ValueOf(obj)
	if !v.IsValid() {
		return nil, fmt.Errorf("input must be a struct or struct pointer, but got nil")
	}
	t := v.Type()

	if t.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("input must be a struct or struct pointer, but got a nil pointer")
		}
		v = v.Elem()
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("input must be a struct or struct pointer")
	}

	info, err := getCachedTagInfo(tagInfoCache, t)
	if err != nil {
		return nil, err
	}

	m := map[string]interface{}{}
	for _, fieldInfo := range info.Fields() {
		field := v.Field(fieldInfo.Index)
		ft := field.Type()
		if ft.Kind() == reflect.Ptr {
			if field.IsNil() {
				continue
			}

			field = field.Elem()
		}

		m[fieldInfo.ColumnName] = field.Interface()
	}

	return m, nil
}

// FillStructWith copies the values of a row represented
// as a map into the struct pointed by record.
//
// Keys without a matching `kdb` tag are ignored and
// values are converted with ConvertValue.
func FillStructWith(record interface{}, row map[string]interface{}) error {
	v := reflect.ValueOf(record)
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("expected input to be a pointer to struct but got %T", record)
	}

	t := v.Type().Elem()
	v = v.Elem()
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("expected input to be a pointer to struct but got %T", record)
	}

	info, err := GetTagInfo(t)
	if err != nil {
		return err
	}

	for colName, rawValue := range row {
		fieldInfo := info.ByName(colName)
		if !fieldInfo.Valid {
			continue
		}

		field := v.Field(fieldInfo.Index)
		converted, err := ConvertValue(rawValue, field.Type())
		if err != nil {
			return fmt.Errorf("unable to fill attribute %s.%s: %w", t.Name(), fieldInfo.AttrName, err)
		}

		if converted == nil {
			field.Set(reflect.Zero(field.Type()))
			continue
		}
		field.Set(reflect.ValueOf(converted))
	}

	return nil
}

// PtrConverter was created to make it easier
// to handle conversion between ptr and non ptr types, e.g.:
//
// - *type to *type
// - type to *type
// - *type to type
// - type to type
type PtrConverter struct {
	BaseType  reflect.Type
	BaseValue reflect.Value
	ElemType  reflect.Type
	ElemValue reflect.Value
}

// NewPtrConverter instantiates a PtrConverter from
// an empty interface.
//
// The input argument can be of any type, but
// if it is a pointer then its Elem() will be
// used as source value for the PtrConverter.Convert()
// method.
func NewPtrConverter(v interface{}) PtrConverter {
	if v == nil {
		// This is necessary so that reflect.ValueOf
		// returns a valid reflect.Value
		v = (*interface{})(nil)
	}

	baseValue := reflect.ValueOf(v)
	baseType := reflect.TypeOf(v)

	elemType := baseType
	elemValue := baseValue
	if baseType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
		elemValue = elemValue.Elem()
	}
	return PtrConverter{
		BaseType:  baseType,
		BaseValue: baseValue,
		ElemType:  elemType,
		ElemValue: elemValue,
	}
}

// Convert attempts to convert the ElemValue to the destType received
// as argument and then returns the converted reflect.Value or an error
func (p PtrConverter) Convert(destType reflect.Type) (reflect.Value, error) {
	destElemType := destType
	if destType.Kind() == reflect.Ptr {
		destElemType = destType.Elem()
	}

	// Return 0 valued destType instance:
	if p.BaseType.Kind() == reflect.Ptr && p.BaseValue.IsNil() {
		// Note that if destType is a ptr it will return a nil ptr.
		return reflect.New(destType).Elem(), nil
	}

	if !p.ElemType.ConvertibleTo(destElemType) || isNumberToString(p.ElemType, destElemType) {
		return reflect.Value{}, fmt.Errorf(
			"cannot convert from type %v to type %v", p.BaseType, destType,
		)
	}

	destValue := p.ElemValue.Convert(destElemType)

	// Get the address of destValue if necessary:
	if destType.Kind() == reflect.Ptr {
		if !destValue.CanAddr() {
			tmp := reflect.New(destElemType)
			tmp.Elem().Set(destValue)
			destValue = tmp
		} else {
			destValue = destValue.Addr()
		}
	}

	return destValue, nil
}

// reflect converts integers into strings by interpreting
// them as runes which is never what we want here.
func isNumberToString(src reflect.Type, dest reflect.Type) bool {
	if dest.Kind() != reflect.String {
		return false
	}

	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// This function collects only the names
// that will be used from the input type.
//
// This should save several calls to `Field(i).Tag.Get("foo")`
// which improves performance by a lot.
func getTagNames(t reflect.Type) (StructInfo, error) {
	if t.Kind() != reflect.Struct {
		return StructInfo{}, fmt.Errorf("expected a struct type but got %v", t)
	}

	info := StructInfo{
		byIndex:   map[int]*FieldInfo{},
		byName:    map[string]*FieldInfo{},
		numFields: t.NumField(),
	}
	for i := 0; i < t.NumField(); i++ {
		attrName := t.Field(i).Name
		name := t.Field(i).Tag.Get("kdb")
		if name == "" {
			continue
		}

		// If this field is private:
		if t.Field(i).PkgPath != "" {
			return StructInfo{}, fmt.Errorf("all fields using the kdb tags must be exported, but %v is unexported", attrName)
		}

		tags := strings.Split(name, ",")
		name = strings.TrimSpace(tags[0])

		field := FieldInfo{
			AttrName:   attrName,
			ColumnName: name,
			Index:      i,
		}

		hasModifier := false
		for _, opt := range tags[1:] {
			opt = strings.TrimSpace(opt)
			switch opt {
			case "":
				continue
			case "id":
				field.IsID = true
			case "unique":
				field.IsUnique = true
			default:
				if hasModifier {
					return StructInfo{}, fmt.Errorf(
						"attribute %s has more than one modifier on its kdb tag: '%s'",
						attrName, t.Field(i).Tag.Get("kdb"),
					)
				}

				modifier, err := modifiers.Load(opt)
				if err != nil {
					return StructInfo{}, fmt.Errorf(
						"attribute contains invalid modifier name: %w", err,
					)
				}
				field.Modifier = modifier
				hasModifier = true
			}
		}

		if _, found := info.byName[name]; found {
			return StructInfo{}, fmt.Errorf(
				"struct contains multiple attributes with the same kdb tag name: '%s'",
				name,
			)
		}

		info.add(field)
	}

	if len(info.byIndex) == 0 {
		return StructInfo{}, fmt.Errorf("the struct must contain at least one attribute with the kdb tag")
	}

	return info, nil
}
