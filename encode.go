package plist

import (
	"bytes"
	"io"
	"reflect"
)

// An Encoder writes property lists in a single serialization. Output
// only reaches the underlying writer once generation has succeeded, so
// a failed encode leaves nothing partially written.
type Encoder struct {
	Format Format

	indent string
	writer io.Writer
}

// NewEncoder returns an Encoder writing the XML serialization.
func NewEncoder(w io.Writer) *Encoder {
	return NewEncoderForFormat(w, XMLFormat)
}

// NewEncoderForFormat returns an Encoder writing the given
// serialization.
func NewEncoderForFormat(w io.Writer, format Format) *Encoder {
	return &Encoder{Format: format, writer: w}
}

// NewBinaryEncoder returns an Encoder writing the binary
// serialization.
func NewBinaryEncoder(w io.Writer) *Encoder {
	return NewEncoderForFormat(w, BinaryFormat)
}

// Indent turns on pretty-printing, using i as one level of
// indentation. The binary serialization ignores it.
func (e *Encoder) Indent(i string) {
	e.indent = i
}

// EncodeValue writes a value tree.
func (e *Encoder) EncodeValue(pval Value) error {
	buf := &bytes.Buffer{}
	var err error
	switch e.Format {
	case BinaryFormat:
		err = newBplistGenerator(buf).generateDocument(pval)
	case XMLFormat:
		g := newXMLPlistGenerator(buf)
		g.Indent(e.indent)
		err = g.generateDocument(pval)
	case JSONFormat:
		err = newJSONPlistGenerator(buf, e.indent != "").generateDocument(pval)
	case OpenStepFormat, GNUstepFormat:
		g := newTextPlistGenerator(buf, e.Format)
		g.Indent(e.indent)
		err = g.generateDocument(pval)
	default:
		return &UnsupportedValueError{Kind: kindOf(pval), Reason: "unknown target format"}
	}
	if err != nil {
		return err
	}
	_, err = e.writer.Write(buf.Bytes())
	return err
}

// Encode marshals an arbitrary Go value and writes it as a property
// list.
func (e *Encoder) Encode(v interface{}) error {
	pval, err := marshalValue(reflect.ValueOf(v))
	if err != nil {
		return err
	}
	return e.EncodeValue(pval)
}

// Encode serializes a value tree into the requested format. The
// Prettify option selects multi-line indented output for the textual
// serializations.
func Encode(pval Value, format Format, opts EncodeOptions) ([]byte, error) {
	buf := &bytes.Buffer{}
	e := NewEncoderForFormat(buf, format)
	if opts.Prettify {
		e.Indent("\t")
	}
	if err := e.EncodeValue(pval); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Marshal serializes a Go value as a property list in the requested
// format.
func Marshal(v interface{}, format Format) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := NewEncoderForFormat(buf, format).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
