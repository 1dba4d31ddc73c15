package plist

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestVersion(t *testing.T) {
	if Version() == "" {
		t.Error("empty version")
	}
}

func TestDecodeUnknownFormat(t *testing.T) {
	_, _, err := Decode([]byte{0x00, 0x01, 0x02})
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("err = %v, want ErrUnknownFormat", err)
	}
}

func TestDecoderReportsFormat(t *testing.T) {
	d := NewDecoder(strings.NewReader(`{"n": 1}`))
	if d.Format != AutomaticFormat {
		t.Errorf("initial format = %v", d.Format)
	}
	if _, err := d.DecodeValue(); err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if d.Format != JSONFormat {
		t.Errorf("detected format = %v", d.Format)
	}
}

func TestEncoderWritesNothingOnFailure(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoderForFormat(&buf, XMLFormat)
	if err := e.EncodeValue(Null{}); err == nil {
		t.Fatal("encoding Null as XML did not fail")
	}
	if buf.Len() != 0 {
		t.Errorf("failed encode left %d bytes in the writer", buf.Len())
	}
}

func TestCrossFormatConversion(t *testing.T) {
	root := NewDictionary()
	root.Set("title", String("conversion"))
	root.Set("count", MakeInteger(3))
	root.Set("items", NewArray(String("a"), String("b")))

	formats := []Format{BinaryFormat, XMLFormat, JSONFormat, OpenStepFormat, GNUstepFormat}
	for _, from := range formats {
		buf, err := Encode(root, from, EncodeOptions{})
		if err != nil {
			t.Fatalf("%v: Encode: %v", from, err)
		}
		pval, _, err := Decode(buf)
		if err != nil {
			t.Fatalf("%v: Decode: %v", from, err)
		}
		for _, to := range formats {
			out, err := Encode(pval, to, EncodeOptions{})
			if err != nil {
				t.Fatalf("%v->%v: Encode: %v", from, to, err)
			}
			back, _, err := Decode(out)
			if err != nil {
				t.Fatalf("%v->%v: Decode: %v", from, to, err)
			}
			if !root.Equal(back) {
				t.Errorf("%v->%v: value changed across conversion", from, to)
			}
		}
	}
}

func TestEncodeIdempotence(t *testing.T) {
	root := NewDictionary()
	root.Set("when", Date(time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)))
	root.Set("blob", Data{0x00, 0xFF})
	root.Set("deep", NewArray(NewArray(MakeInteger(1))))

	for _, format := range []Format{BinaryFormat, XMLFormat, JSONFormat, GNUstepFormat} {
		first, err := Encode(root, format, EncodeOptions{})
		if err != nil {
			t.Fatalf("%v: Encode: %v", format, err)
		}
		pval, _, err := Decode(first)
		if err != nil {
			t.Fatalf("%v: Decode: %v", format, err)
		}
		second, err := Encode(pval, format, EncodeOptions{})
		if err != nil {
			t.Fatalf("%v: re-Encode: %v", format, err)
		}
		if !bytes.Equal(first, second) {
			t.Errorf("%v: encode-decode-encode is not byte stable:\n  first:  % x\n  second: % x", format, first, second)
		}
	}
}

func TestDecodeDepthLimit(t *testing.T) {
	deep := strings.Repeat("[", 600) + strings.Repeat("]", 600)

	for _, doc := range []string{
		deep,
		strings.Repeat("(", 600) + strings.Repeat(")", 600),
		`<plist version="1.0">` + strings.Repeat("<array>", 600) + strings.Repeat("</array>", 600) + `</plist>`,
	} {
		_, _, err := Decode([]byte(doc))
		var depthErr *DepthExceededError
		if !errors.As(err, &depthErr) {
			t.Errorf("%.20q...: err = %v, want DepthExceededError", doc, err)
		}
	}
}

func TestEncodeDepthLimit(t *testing.T) {
	root := NewArray()
	leaf := root
	for i := 0; i < 600; i++ {
		next := NewArray()
		leaf.Append(next)
		leaf = next
	}

	for _, format := range []Format{XMLFormat, JSONFormat, OpenStepFormat, BinaryFormat} {
		_, err := Encode(root, format, EncodeOptions{})
		var depthErr *DepthExceededError
		if !errors.As(err, &depthErr) {
			t.Errorf("%v: err = %v, want DepthExceededError", format, err)
		}
	}
}

func TestDecoderStreamRoundTrip(t *testing.T) {
	root := NewDictionary()
	root.Set("k", String("v"))

	var buf bytes.Buffer
	if err := NewBinaryEncoder(&buf).EncodeValue(root); err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	pval, err := NewDecoder(bytes.NewReader(buf.Bytes())).DecodeValue()
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if !root.Equal(pval) {
		t.Error("round trip mismatch")
	}
}
