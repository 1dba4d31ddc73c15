package plist

import (
	"bytes"
	"math"
	"time"
)

// Kind identifies the variant stored in a Value.
type Kind int

const (
	InvalidKind Kind = iota
	BooleanKind
	IntegerKind
	RealKind
	StringKind
	DateKind
	DataKind
	ArrayKind
	DictionaryKind
	UIDKind
	NullKind
)

var kindNames = [...]string{
	InvalidKind:    "invalid",
	BooleanKind:    "boolean",
	IntegerKind:    "integer",
	RealKind:       "real",
	StringKind:     "string",
	DateKind:       "date",
	DataKind:       "data",
	ArrayKind:      "array",
	DictionaryKind: "dictionary",
	UIDKind:        "UID",
	NullKind:       "null",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Value is a node of a property list tree. Trees are built either by a
// decoder or directly by an application; a root owns all of its
// descendants. Equality is deep: order-sensitive for Array, key-based
// for Dictionary.
type Value interface {
	Kind() Kind
	Copy() Value
	Equal(other Value) bool
}

func kindOf(v Value) Kind {
	if v == nil {
		return InvalidKind
	}
	return v.Kind()
}

// Boolean is a true/false value.
type Boolean bool

func (Boolean) Kind() Kind    { return BooleanKind }
func (b Boolean) Copy() Value { return b }
func (b Boolean) Equal(other Value) bool {
	o, ok := other.(Boolean)
	return ok && o == b
}

// Integer covers the full 64-bit unsigned range. When Signed is set,
// Value carries the two's-complement bits of an int64; otherwise it is
// a plain uint64. Values above math.MaxInt64 are representable without
// truncation, matching the binary format's wide unsigned integers.
type Integer struct {
	Signed bool
	Value  uint64
}

// MakeInteger returns an Integer holding a signed value.
func MakeInteger(v int64) Integer {
	return Integer{Signed: true, Value: uint64(v)}
}

// MakeUnsigned returns an Integer holding an unsigned value.
func MakeUnsigned(v uint64) Integer {
	return Integer{Signed: false, Value: v}
}

func (Integer) Kind() Kind    { return IntegerKind }
func (i Integer) Copy() Value { return i }

// IsNegative reports whether the stored value is below zero.
func (i Integer) IsNegative() bool {
	return i.Signed && int64(i.Value) < 0
}

// Int64 returns the value as an int64, with ok false when it exceeds
// the signed range.
func (i Integer) Int64() (v int64, ok bool) {
	if !i.Signed && i.Value > math.MaxInt64 {
		return 0, false
	}
	return int64(i.Value), true
}

// Uint64 returns the value as a uint64, with ok false when it is
// negative.
func (i Integer) Uint64() (v uint64, ok bool) {
	if i.IsNegative() {
		return 0, false
	}
	return i.Value, true
}

func (i Integer) Equal(other Value) bool {
	o, ok := other.(Integer)
	if !ok {
		return false
	}
	// Numeric equality: the signedness flag only matters when it flips
	// the sign of the stored bits.
	return i.Value == o.Value && i.IsNegative() == o.IsNegative()
}

// Real is a 64-bit floating point value.
type Real float64

func (Real) Kind() Kind    { return RealKind }
func (r Real) Copy() Value { return r }
func (r Real) Equal(other Value) bool {
	o, ok := other.(Real)
	if !ok {
		return false
	}
	if math.IsNaN(float64(r)) && math.IsNaN(float64(o)) {
		return true
	}
	return r == o
}

// String is UTF-8 text. The binary format's UTF-16 string subtype is
// re-derived from content on encode: pure-ASCII strings emit the ASCII
// subtype, everything else the UTF-16 subtype.
type String string

func (String) Kind() Kind    { return StringKind }
func (s String) Copy() Value { return s }
func (s String) Equal(other Value) bool {
	o, ok := other.(String)
	return ok && o == s
}

// Date is a point in time. Serialization epochs (the binary format
// counts seconds from 2001-01-01T00:00:00Z) are confined to the codecs.
type Date time.Time

func (Date) Kind() Kind    { return DateKind }
func (d Date) Copy() Value { return d }
func (d Date) Equal(other Value) bool {
	o, ok := other.(Date)
	return ok && time.Time(d).Equal(time.Time(o))
}

// Time returns the date as a time.Time.
func (d Date) Time() time.Time { return time.Time(d) }

// Data is an opaque byte sequence.
type Data []byte

func (Data) Kind() Kind { return DataKind }
func (d Data) Copy() Value {
	c := make(Data, len(d))
	copy(c, d)
	return c
}
func (d Data) Equal(other Value) bool {
	o, ok := other.(Data)
	return ok && bytes.Equal(d, o)
}

// UID is the binary format's keyed-archiver object reference. It is a
// distinct variant from Integer because encoders emit it with its own
// marker tag.
type UID uint64

func (UID) Kind() Kind    { return UIDKind }
func (u UID) Copy() Value { return u }
func (u UID) Equal(other Value) bool {
	o, ok := other.(UID)
	return ok && o == u
}

// toDict is the conventional dictionary spelling of a UID, used by the
// serializations that have no UID production of their own.
func (u UID) toDict() *Dictionary {
	d := &Dictionary{}
	d.Set("CF$UID", MakeUnsigned(uint64(u)))
	return d
}

// Null is the explicit null value. Only the binary and JSON
// serializations can express it.
type Null struct{}

func (Null) Kind() Kind    { return NullKind }
func (n Null) Copy() Value { return n }
func (n Null) Equal(other Value) bool {
	_, ok := other.(Null)
	return ok
}

// Array is an ordered sequence of values.
type Array struct {
	Values []Value
}

// NewArray returns an array holding the given values.
func NewArray(values ...Value) *Array {
	return &Array{Values: values}
}

func (*Array) Kind() Kind { return ArrayKind }

// Append adds a value at the end of the array.
func (a *Array) Append(values ...Value) {
	a.Values = append(a.Values, values...)
}

func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Values)
}

func (a *Array) Copy() Value {
	c := &Array{Values: make([]Value, len(a.Values))}
	for i, v := range a.Values {
		if v != nil {
			c.Values[i] = v.Copy()
		}
	}
	return c
}

func (a *Array) Equal(other Value) bool {
	o, ok := other.(*Array)
	if !ok || len(a.Values) != len(o.Values) {
		return false
	}
	for i, v := range a.Values {
		if v == nil || o.Values[i] == nil {
			if v != o.Values[i] {
				return false
			}
			continue
		}
		if !v.Equal(o.Values[i]) {
			return false
		}
	}
	return true
}

// Dictionary maps string keys to values. Insertion order is preserved
// for re-serialization; equality ignores it.
type Dictionary struct {
	keys   []string
	values []Value
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{}
}

func (*Dictionary) Kind() Kind { return DictionaryKind }

func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the keys in insertion order.
func (d *Dictionary) Keys() []string {
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	return keys
}

func (d *Dictionary) index(key string) int {
	for i, k := range d.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// Get returns the value stored under key.
func (d *Dictionary) Get(key string) (Value, bool) {
	if i := d.index(key); i >= 0 {
		return d.values[i], true
	}
	return nil, false
}

// Set stores value under key, replacing an existing entry in place or
// appending a new one.
func (d *Dictionary) Set(key string, value Value) {
	if i := d.index(key); i >= 0 {
		d.values[i] = value
		return
	}
	d.keys = append(d.keys, key)
	d.values = append(d.values, value)
}

// Delete removes the entry under key and reports whether it existed.
func (d *Dictionary) Delete(key string) bool {
	i := d.index(key)
	if i < 0 {
		return false
	}
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.values = append(d.values[:i], d.values[i+1:]...)
	return true
}

// At returns the i'th entry in insertion order.
func (d *Dictionary) At(i int) (string, Value) {
	return d.keys[i], d.values[i]
}

func (d *Dictionary) Copy() Value {
	c := &Dictionary{
		keys:   make([]string, len(d.keys)),
		values: make([]Value, len(d.values)),
	}
	copy(c.keys, d.keys)
	for i, v := range d.values {
		if v != nil {
			c.values[i] = v.Copy()
		}
	}
	return c
}

func (d *Dictionary) Equal(other Value) bool {
	o, ok := other.(*Dictionary)
	if !ok || len(d.keys) != len(o.keys) {
		return false
	}
	for i, k := range d.keys {
		ov, ok := o.Get(k)
		if !ok {
			return false
		}
		v := d.values[i]
		if v == nil || ov == nil {
			if v != ov {
				return false
			}
			continue
		}
		if !v.Equal(ov) {
			return false
		}
	}
	return true
}

// maybeUID collapses the conventional {"CF$UID": n} single-pair
// dictionary back into a UID value.
func (d *Dictionary) maybeUID() Value {
	if len(d.keys) == 1 && d.keys[0] == "CF$UID" {
		if n, ok := d.values[0].(Integer); ok && !n.IsNegative() {
			return UID(n.Value)
		}
	}
	return d
}

// Typed accessors. Each fails with a *TypeMismatchError when the value
// holds a different variant.

func AsBoolean(v Value) (bool, error) {
	if b, ok := v.(Boolean); ok {
		return bool(b), nil
	}
	return false, &TypeMismatchError{Expected: BooleanKind, Actual: kindOf(v)}
}

func AsInteger(v Value) (Integer, error) {
	if i, ok := v.(Integer); ok {
		return i, nil
	}
	return Integer{}, &TypeMismatchError{Expected: IntegerKind, Actual: kindOf(v)}
}

func AsReal(v Value) (float64, error) {
	if r, ok := v.(Real); ok {
		return float64(r), nil
	}
	return 0, &TypeMismatchError{Expected: RealKind, Actual: kindOf(v)}
}

func AsString(v Value) (string, error) {
	if s, ok := v.(String); ok {
		return string(s), nil
	}
	return "", &TypeMismatchError{Expected: StringKind, Actual: kindOf(v)}
}

func AsDate(v Value) (time.Time, error) {
	if d, ok := v.(Date); ok {
		return time.Time(d), nil
	}
	return time.Time{}, &TypeMismatchError{Expected: DateKind, Actual: kindOf(v)}
}

func AsData(v Value) ([]byte, error) {
	if d, ok := v.(Data); ok {
		return []byte(d), nil
	}
	return nil, &TypeMismatchError{Expected: DataKind, Actual: kindOf(v)}
}

func AsArray(v Value) (*Array, error) {
	if a, ok := v.(*Array); ok {
		return a, nil
	}
	return nil, &TypeMismatchError{Expected: ArrayKind, Actual: kindOf(v)}
}

func AsDictionary(v Value) (*Dictionary, error) {
	if d, ok := v.(*Dictionary); ok {
		return d, nil
	}
	return nil, &TypeMismatchError{Expected: DictionaryKind, Actual: kindOf(v)}
}

func AsUID(v Value) (uint64, error) {
	if u, ok := v.(UID); ok {
		return uint64(u), nil
	}
	return 0, &TypeMismatchError{Expected: UIDKind, Actual: kindOf(v)}
}
