package plist

import "testing"

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want Format
	}{
		{"binary magic", emptyDictBinary, BinaryFormat},
		{"xml declaration", []byte(`<?xml version="1.0"?><plist><dict/></plist>`), XMLFormat},
		{"doctype only", []byte(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "">`), XMLFormat},
		{"bare plist element", []byte("\n\t<plist version=\"1.0\"><true/></plist>"), XMLFormat},
		{"json object", []byte(`{"n": 42}`), JSONFormat},
		{"json array", []byte(` [1, 2, 3]`), JSONFormat},
		{"json with bom", append([]byte{0xEF, 0xBB, 0xBF}, `{"n": 1}`...), JSONFormat},
		{"empty braces", []byte(`{}`), JSONFormat},
		{"json key containing equals", []byte(`{"a=b": 1}`), JSONFormat},
		{"json key containing semicolon", []byte(`{"k;v": 2}`), JSONFormat},
		{"json escaped quote in key", []byte(`{"a\"=b": 1}`), JSONFormat},
		{"openstep dictionary", []byte(`{ n = 42; }`), OpenStepFormat},
		{"openstep quoted key", []byte(`{"spaced key" = value;}`), OpenStepFormat},
		{"openstep array", []byte(`("a", "b")`), OpenStepFormat},
		{"openstep quoted string", []byte(`"hello"`), OpenStepFormat},
		{"openstep comment", []byte("// leading comment\n{}"), OpenStepFormat},
		{"openstep data", []byte(`<414243>`), OpenStepFormat},
		{"openstep bare word", []byte(`hello`), OpenStepFormat},
		{"gnustep typed literal", []byte(`<*I5>`), GNUstepFormat},
		{"empty input", nil, UnknownFormat},
		{"whitespace only", []byte("   \t\n"), UnknownFormat},
		{"garbage", []byte{0x00, 0x01, 0x02}, UnknownFormat},
	}
	for _, c := range cases {
		if got := DetectFormat(c.data); got != c.want {
			t.Errorf("%s: DetectFormat = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestDetectFormatRoundTrip(t *testing.T) {
	d := NewDictionary()
	d.Set("name", String("value"))
	d.Set("count", MakeInteger(3))

	// GNUstep is absent: a dictionary document in either text dialect
	// opens identically, so detection reports OpenStep and the decoder
	// refines the dialect from the literals it encounters.
	for _, format := range []Format{BinaryFormat, XMLFormat, JSONFormat, OpenStepFormat} {
		out, err := Encode(d, format, EncodeOptions{})
		if err != nil {
			t.Fatalf("%v: Encode: %v", format, err)
		}
		if got := DetectFormat(out); got != format {
			t.Errorf("%v output detected as %v", format, got)
		}
	}
}
