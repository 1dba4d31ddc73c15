package plist

import (
	"fmt"
	"reflect"
	"sort"
	"time"
)

var (
	plistValueType = reflect.TypeOf((*Value)(nil)).Elem()
	timeType       = reflect.TypeOf(time.Time{})
	uidType        = reflect.TypeOf(UID(0))
)

// marshalValue converts an arbitrary Go value into a property list
// tree.
func marshalValue(val reflect.Value) (Value, error) {
	if !val.IsValid() {
		return Null{}, nil
	}
	if val.Type().Implements(plistValueType) {
		return val.Interface().(Value), nil
	}

	switch val.Type() {
	case timeType:
		return Date(val.Interface().(time.Time)), nil
	case uidType:
		return val.Interface().(UID), nil
	}

	switch val.Kind() {
	case reflect.Ptr, reflect.Interface:
		if val.IsNil() {
			return Null{}, nil
		}
		return marshalValue(val.Elem())
	case reflect.Bool:
		return Boolean(val.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return MakeInteger(val.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return MakeUnsigned(val.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return Real(val.Float()), nil
	case reflect.String:
		return String(val.String()), nil
	case reflect.Slice:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			return Data(append([]byte(nil), val.Bytes()...)), nil
		}
		return marshalSlice(val)
	case reflect.Array:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			data := make([]byte, val.Len())
			reflect.Copy(reflect.ValueOf(data), val)
			return Data(data), nil
		}
		return marshalSlice(val)
	case reflect.Map:
		return marshalMap(val)
	case reflect.Struct:
		return marshalStruct(val)
	}
	return nil, fmt.Errorf("plist: cannot marshal value of type %v", val.Type())
}

func marshalSlice(val reflect.Value) (Value, error) {
	arr := &Array{Values: make([]Value, val.Len())}
	for i := 0; i < val.Len(); i++ {
		elem, err := marshalValue(val.Index(i))
		if err != nil {
			return nil, err
		}
		arr.Values[i] = elem
	}
	return arr, nil
}

func marshalMap(val reflect.Value) (Value, error) {
	if val.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("plist: map keys of type %v are not strings", val.Type().Key())
	}
	// Go maps have no iteration order; sort keys so output is stable.
	keys := make([]string, 0, val.Len())
	for _, k := range val.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)

	dict := &Dictionary{}
	for _, k := range keys {
		elem, err := marshalValue(val.MapIndex(reflect.ValueOf(k).Convert(val.Type().Key())))
		if err != nil {
			return nil, err
		}
		dict.keys = append(dict.keys, k)
		dict.values = append(dict.values, elem)
	}
	return dict, nil
}

func marshalStruct(val reflect.Value) (Value, error) {
	tinfo, err := GetTypeInfo(val.Type())
	if err != nil {
		return nil, err
	}
	dict := &Dictionary{}
	for _, finfo := range tinfo.Fields {
		fval := finfo.Value(val)
		if finfo.OmitEmpty && isEmptyValue(fval) {
			continue
		}
		elem, err := marshalValue(fval)
		if err != nil {
			return nil, err
		}
		dict.keys = append(dict.keys, finfo.Name)
		dict.values = append(dict.values, elem)
	}
	return dict, nil
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}
