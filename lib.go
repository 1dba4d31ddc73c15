package plist

import (
	"errors"
	"fmt"
)

// Format describes a property list serialization.
type Format int

const (
	// UnknownFormat is returned by DetectFormat when no serialization
	// marker matches. It is a valid detector result, not an error.
	UnknownFormat Format = iota
	BinaryFormat
	XMLFormat
	JSONFormat
	OpenStepFormat
	GNUstepFormat

	// AutomaticFormat instructs a Decoder to detect the serialization
	// from the leading bytes of its input.
	AutomaticFormat
)

// FormatNames maps formats to the names used in diagnostics and by
// front-ends that accept a format by name.
var FormatNames = map[Format]string{
	UnknownFormat:   "unknown",
	BinaryFormat:    "binary",
	XMLFormat:       "xml",
	JSONFormat:      "json",
	OpenStepFormat:  "openstep",
	GNUstepFormat:   "gnustep",
	AutomaticFormat: "automatic",
}

func (f Format) String() string {
	if name, ok := FormatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// EncodeOptions carries the caller-visible knobs of the encoders. The
// binary generator ignores Prettify.
type EncodeOptions struct {
	Prettify bool
}

// maxDepth bounds container nesting in every parser and generator so
// that pathological or cyclic input fails with DepthExceededError
// instead of exhausting the goroutine stack.
const maxDepth = 512

const libraryVersion = "1.2.0"

// Version returns the static library version identifier.
func Version() string {
	return libraryVersion
}

// ErrUnknownFormat is returned by the decode facade when the detector
// cannot classify its input.
var ErrUnknownFormat = errors.New("plist: unknown property list format")

// ErrCyclicReference is returned by encoders handed a value tree that
// contains a true reference cycle.
var ErrCyclicReference = errors.New("plist: cyclic reference in value tree")

// A ParseError reports malformed textual input together with the byte
// offset at which parsing failed.
type ParseError struct {
	Format string
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("plist: cannot parse %s property list at offset %d: %v", e.Format, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// A CorruptError reports a violated structural invariant in a binary
// property list: bad trailer fields, out-of-range offsets or object
// references, or a reference cycle in the object table.
type CorruptError struct {
	Offset int64
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("plist: corrupt binary property list at offset %d: %s", e.Offset, e.Reason)
}

// A TypeMismatchError is returned by the typed accessors when a value
// of the wrong variant is queried.
type TypeMismatchError struct {
	Expected Kind
	Actual   Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("plist: type mismatch: expected %s, have %s", e.Expected, e.Actual)
}

// An UnsupportedValueError is returned by an encoder handed a value the
// target serialization cannot express, such as a non-finite real bound
// for JSON.
type UnsupportedValueError struct {
	Kind   Kind
	Reason string
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("plist: cannot encode %s value: %s", e.Kind, e.Reason)
}

// A DepthExceededError is returned when container nesting passes the
// recursion cap during decoding or encoding.
type DepthExceededError struct {
	Depth int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("plist: container nesting exceeds %d levels", e.Depth)
}
