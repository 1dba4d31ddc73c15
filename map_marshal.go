package plist

import (
	"fmt"
	"reflect"
)

// Mapping is a plain map view of a property list dictionary, as
// produced by decoding into an interface{} target. It can re-project
// itself onto tagged structs.
type Mapping map[string]interface{}

// Unmarshal stores the mapping into the struct or map pointed at by v,
// honoring `plist` field tags.
func (m Mapping) Unmarshal(v interface{}) error {
	return m.unmarshal(map[string]interface{}(m), reflect.ValueOf(v))
}

func (m Mapping) unmarshal(v interface{}, val reflect.Value) error {
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			val.Set(reflect.New(val.Type().Elem()))
		}
		val = val.Elem()
	}
	switch pval := v.(type) {
	case string:
		if val.Kind() != reflect.String {
			return fmt.Errorf("plist: not a string field: %v", val.Type())
		}
		val.SetString(pval)
	case bool:
		if val.Kind() != reflect.Bool {
			return fmt.Errorf("plist: not a bool field: %v", val.Type())
		}
		val.SetBool(pval)
	case int8, int16, int32, int64, uint8, uint16, uint32, uint64, int, uint:
		return m.unmarshalInt(reflect.ValueOf(v), val)
	case float32:
		return m.unmarshalFloat(float64(pval), val)
	case float64:
		return m.unmarshalFloat(pval, val)
	case []byte:
		if val.Kind() != reflect.Slice || val.Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("plist: not a data field: %v", val.Type())
		}
		val.SetBytes(pval)
	case UID:
		switch val.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			val.SetInt(int64(pval))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			val.SetUint(uint64(pval))
		default:
			val.Set(reflect.ValueOf(pval))
		}
	case []interface{}:
		if val.Kind() != reflect.Slice {
			return fmt.Errorf("plist: not a slice field: %v", val.Type())
		}
		return m.unmarshalSlice(pval, val)
	case map[string]interface{}:
		switch val.Kind() {
		case reflect.Map:
			val.Set(reflect.MakeMap(val.Type()))
			for mk, mv := range pval {
				val.SetMapIndex(reflect.ValueOf(mk), reflect.ValueOf(mv))
			}
		case reflect.Struct:
			return m.unmarshalStruct(pval, val)
		default:
			return fmt.Errorf("plist: not a map or struct field: %v", val.Type())
		}
	default:
		return fmt.Errorf("plist: not a property list type: %v", reflect.TypeOf(v))
	}
	return nil
}

func (m Mapping) unmarshalInt(num, val reflect.Value) error {
	var signed int64
	var unsigned uint64
	switch num.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		signed = num.Int()
		unsigned = uint64(signed)
	default:
		unsigned = num.Uint()
		signed = int64(unsigned)
	}
	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		val.SetInt(signed)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		val.SetUint(unsigned)
	default:
		return fmt.Errorf("plist: not an integer field: %v", val.Type())
	}
	return nil
}

func (m Mapping) unmarshalFloat(f float64, val reflect.Value) error {
	if val.Kind() != reflect.Float32 && val.Kind() != reflect.Float64 {
		return fmt.Errorf("plist: not a float field: %v", val.Type())
	}
	val.SetFloat(f)
	return nil
}

func (m Mapping) unmarshalSlice(array []interface{}, val reflect.Value) error {
	out := reflect.MakeSlice(val.Type(), len(array), len(array))
	val.Set(out)
	for i, v := range array {
		if err := m.unmarshal(v, val.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (m Mapping) unmarshalStruct(dict map[string]interface{}, val reflect.Value) error {
	tinfo, err := GetTypeInfo(val.Type())
	if err != nil {
		return err
	}
	for _, finfo := range tinfo.Fields {
		if dval, ok := dict[finfo.Name]; ok {
			if err := m.unmarshal(dval, finfo.Value(val)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ConvertToJSON re-serializes a property list buffer of any supported
// format as compact JSON.
func ConvertToJSON(data []byte) ([]byte, error) {
	pval, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Encode(pval, JSONFormat, EncodeOptions{})
}
