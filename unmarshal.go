package plist

import (
	"fmt"
	"reflect"
)

// unmarshalValue stores a property list tree into the Go value pointed
// at by val, allocating through pointers as needed.
func unmarshalValue(pval Value, val reflect.Value) error {
	if !val.IsValid() {
		return fmt.Errorf("plist: cannot unmarshal into invalid value")
	}
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			val.Set(reflect.New(val.Type().Elem()))
		}
		val = val.Elem()
	}
	if !val.CanSet() {
		return fmt.Errorf("plist: cannot unmarshal into unsettable value of type %v", val.Type())
	}

	if val.Type().Implements(plistValueType) || val.Type() == plistValueType {
		if pval == nil {
			val.Set(reflect.Zero(val.Type()))
			return nil
		}
		val.Set(reflect.ValueOf(pval.Copy()))
		return nil
	}
	if val.Type() == timeType {
		d, err := AsDate(pval)
		if err != nil {
			return err
		}
		val.Set(reflect.ValueOf(d))
		return nil
	}
	if val.Type() == uidType {
		u, err := AsUID(pval)
		if err != nil {
			return err
		}
		val.Set(reflect.ValueOf(UID(u)))
		return nil
	}
	if val.Kind() == reflect.Interface && val.NumMethod() == 0 {
		iv, err := materialize(pval)
		if err != nil {
			return err
		}
		if iv == nil {
			val.Set(reflect.Zero(val.Type()))
		} else {
			val.Set(reflect.ValueOf(iv))
		}
		return nil
	}

	switch pval := pval.(type) {
	case Boolean:
		if val.Kind() != reflect.Bool {
			return fmt.Errorf("plist: cannot unmarshal boolean into %v", val.Type())
		}
		val.SetBool(bool(pval))
		return nil
	case Integer:
		return unmarshalInteger(pval, val)
	case Real:
		switch val.Kind() {
		case reflect.Float32, reflect.Float64:
			val.SetFloat(float64(pval))
			return nil
		}
		return fmt.Errorf("plist: cannot unmarshal real into %v", val.Type())
	case String:
		switch {
		case val.Kind() == reflect.String:
			val.SetString(string(pval))
			return nil
		case val.Kind() == reflect.Slice && val.Type().Elem().Kind() == reflect.Uint8:
			val.SetBytes([]byte(pval))
			return nil
		}
		return fmt.Errorf("plist: cannot unmarshal string into %v", val.Type())
	case Data:
		if val.Kind() == reflect.Slice && val.Type().Elem().Kind() == reflect.Uint8 {
			val.SetBytes(append([]byte(nil), pval...))
			return nil
		}
		if val.Kind() == reflect.Array && val.Type().Elem().Kind() == reflect.Uint8 {
			if val.Len() != len(pval) {
				return fmt.Errorf("plist: data length %d does not fit %v", len(pval), val.Type())
			}
			reflect.Copy(val, reflect.ValueOf([]byte(pval)))
			return nil
		}
		return fmt.Errorf("plist: cannot unmarshal data into %v", val.Type())
	case UID:
		return unmarshalInteger(MakeUnsigned(uint64(pval)), val)
	case Date:
		return fmt.Errorf("plist: cannot unmarshal date into %v", val.Type())
	case Null:
		val.Set(reflect.Zero(val.Type()))
		return nil
	case *Array:
		return unmarshalArray(pval, val)
	case *Dictionary:
		return unmarshalDictionary(pval, val)
	}
	return fmt.Errorf("plist: cannot unmarshal %v into %v", kindOf(pval), val.Type())
}

func unmarshalInteger(pval Integer, val reflect.Value) error {
	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, ok := pval.Int64()
		if !ok || val.OverflowInt(v) {
			return fmt.Errorf("plist: integer %d overflows %v", pval.Value, val.Type())
		}
		val.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v, ok := pval.Uint64()
		if !ok || val.OverflowUint(v) {
			return fmt.Errorf("plist: integer %d overflows %v", int64(pval.Value), val.Type())
		}
		val.SetUint(v)
	case reflect.Float32, reflect.Float64:
		if pval.IsNegative() {
			val.SetFloat(float64(int64(pval.Value)))
		} else {
			val.SetFloat(float64(pval.Value))
		}
	default:
		return fmt.Errorf("plist: cannot unmarshal integer into %v", val.Type())
	}
	return nil
}

func unmarshalArray(pval *Array, val reflect.Value) error {
	switch val.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(val.Type(), pval.Len(), pval.Len())
		for i, elem := range pval.Values {
			if err := unmarshalValue(elem, out.Index(i)); err != nil {
				return err
			}
		}
		val.Set(out)
		return nil
	case reflect.Array:
		if val.Len() < pval.Len() {
			return fmt.Errorf("plist: array of %d elements does not fit %v", pval.Len(), val.Type())
		}
		for i, elem := range pval.Values {
			if err := unmarshalValue(elem, val.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("plist: cannot unmarshal array into %v", val.Type())
}

func unmarshalDictionary(pval *Dictionary, val reflect.Value) error {
	switch val.Kind() {
	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("plist: map keys of type %v are not strings", val.Type().Key())
		}
		out := reflect.MakeMapWithSize(val.Type(), pval.Len())
		for i, k := range pval.keys {
			elem := reflect.New(val.Type().Elem())
			if err := unmarshalValue(pval.values[i], elem); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(val.Type().Key()), elem.Elem())
		}
		val.Set(out)
		return nil
	case reflect.Struct:
		tinfo, err := GetTypeInfo(val.Type())
		if err != nil {
			return err
		}
		for _, finfo := range tinfo.Fields {
			if elem, ok := pval.Get(finfo.Name); ok {
				if err := unmarshalValue(elem, finfo.Value(val)); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return fmt.Errorf("plist: cannot unmarshal dictionary into %v", val.Type())
}

// materialize converts a value tree into plain Go data for interface{}
// targets: dictionaries become map[string]interface{}, arrays become
// []interface{}, integers surface as int64 when negative and uint64
// otherwise.
func materialize(pval Value) (interface{}, error) {
	switch pval := pval.(type) {
	case nil:
		return nil, nil
	case Boolean:
		return bool(pval), nil
	case Integer:
		if pval.IsNegative() {
			return int64(pval.Value), nil
		}
		return pval.Value, nil
	case Real:
		return float64(pval), nil
	case String:
		return string(pval), nil
	case Date:
		return pval.Time(), nil
	case Data:
		return append([]byte(nil), pval...), nil
	case UID:
		return pval, nil
	case Null:
		return nil, nil
	case *Array:
		out := make([]interface{}, pval.Len())
		for i, elem := range pval.Values {
			v, err := materialize(elem)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *Dictionary:
		out := make(map[string]interface{}, pval.Len())
		for i, k := range pval.keys {
			v, err := materialize(pval.values[i])
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("plist: cannot materialize %v", kindOf(pval))
}
