package plist

import (
	"bytes"
	"io"
	"reflect"
)

// A Decoder reads a property list from an input stream, detecting the
// serialization unless one was assigned explicitly. Each Decoder owns
// its own state; independent Decoders are safe to use concurrently.
type Decoder struct {
	// Format is AutomaticFormat until the first Decode, after which it
	// holds the detected (or assigned) serialization.
	Format Format

	reader io.ReadSeeker
}

// NewDecoder returns a Decoder that detects the property list
// serialization from the stream contents.
func NewDecoder(r io.ReadSeeker) *Decoder {
	return &Decoder{Format: AutomaticFormat, reader: r}
}

// DecodeValue reads a property list and returns its value tree.
func (d *Decoder) DecodeValue() (Value, error) {
	data, err := io.ReadAll(d.reader)
	if err != nil {
		return nil, err
	}

	format := d.Format
	if format == AutomaticFormat {
		format = DetectFormat(data)
	}

	var pval Value
	switch format {
	case BinaryFormat:
		pval, err = newBplistParser(data).parseDocument()
	case XMLFormat:
		pval, err = newXMLPlistParser(bytes.NewReader(data)).parseDocument()
	case JSONFormat:
		pval, err = newJSONPlistParser(bytes.NewReader(data)).parseDocument()
	case OpenStepFormat, GNUstepFormat:
		p := newTextPlistParser(data)
		pval, err = p.parseDocument()
		format = p.format
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, err
	}
	d.Format = format
	return pval, nil
}

// Decode reads a property list and unmarshals it into the value
// pointed at by v.
func (d *Decoder) Decode(v interface{}) error {
	pval, err := d.DecodeValue()
	if err != nil {
		return err
	}
	return unmarshalValue(pval, reflect.ValueOf(v))
}

// Decode parses a property list buffer in any supported serialization,
// returning its value tree and the detected format.
func Decode(data []byte) (Value, Format, error) {
	d := NewDecoder(bytes.NewReader(data))
	pval, err := d.DecodeValue()
	if err != nil {
		return nil, UnknownFormat, err
	}
	return pval, d.Format, nil
}

// Unmarshal parses a property list buffer into the value pointed at by
// v and reports the detected format.
func Unmarshal(data []byte, v interface{}) (Format, error) {
	d := NewDecoder(bytes.NewReader(data))
	err := d.Decode(v)
	return d.Format, err
}
