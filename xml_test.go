package plist

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestXMLDecodeDictionary(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>n</key>
	<integer>42</integer>
</dict>
</plist>`

	pval, format, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != XMLFormat {
		t.Errorf("format = %v", format)
	}
	want := NewDictionary()
	want.Set("n", MakeInteger(42))
	if !want.Equal(pval) {
		t.Errorf("decoded %#v", pval)
	}
}

func TestXMLDecodeScalars(t *testing.T) {
	cases := []struct {
		body string
		want Value
	}{
		{`<string>a &amp; b &lt;tag&gt;</string>`, String("a & b <tag>")},
		{`<string/>`, String("")},
		{`<integer>-99</integer>`, MakeInteger(-99)},
		{`<integer>0x10</integer>`, MakeInteger(16)},
		{`<integer>18446744073709551615</integer>`, MakeUnsigned(math.MaxUint64)},
		{`<real>1.5</real>`, Real(1.5)},
		{`<real>inf</real>`, Real(math.Inf(1))},
		{`<true/>`, Boolean(true)},
		{`<false/>`, Boolean(false)},
		{`<date>2024-06-01T12:30:00Z</date>`, Date(time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC))},
		{"<data>\n\tSGVs\n\tbG8=\n</data>", Data("Hello")},
		{`<dict/>`, NewDictionary()},
		{`<array/>`, NewArray()},
		{`<dict><key>CF$UID</key><integer>12</integer></dict>`, UID(12)},
	}
	for _, c := range cases {
		doc := `<plist version="1.0">` + c.body + `</plist>`
		pval, _, err := Decode([]byte(doc))
		if err != nil {
			t.Errorf("%s: %v", c.body, err)
			continue
		}
		if !c.want.Equal(pval) {
			t.Errorf("%s: decoded %#v, want %#v", c.body, pval, c.want)
		}
	}
}

func TestXMLKeyOrderPreserved(t *testing.T) {
	d := NewDictionary()
	d.Set("zebra", MakeInteger(1))
	d.Set("apple", MakeInteger(2))

	out, err := Encode(d, XMLFormat, EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	z := bytes.Index(out, []byte("<key>zebra</key>"))
	a := bytes.Index(out, []byte("<key>apple</key>"))
	if z < 0 || a < 0 || z > a {
		t.Errorf("keys reordered:\n%s", out)
	}

	back, _, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := back.(*Dictionary).Keys(); got[0] != "zebra" || got[1] != "apple" {
		t.Errorf("decoded key order %v", got)
	}
}

func TestXMLEncodeEscaping(t *testing.T) {
	d := NewDictionary()
	d.Set("a<b", String(`"quoted" & <angled>`))

	out, err := Encode(d, XMLFormat, EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Contains(out, []byte("<key>a&lt;b</key>")) {
		t.Errorf("key not escaped:\n%s", out)
	}

	back, _, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !d.Equal(back) {
		t.Error("round trip mismatch")
	}
}

func TestXMLDataLineWrapping(t *testing.T) {
	long := Data(bytes.Repeat([]byte{0xAB}, 120))
	out, err := Encode(long, XMLFormat, EncodeOptions{Prettify: true})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	inData := false
	payloadLines := 0
	for _, line := range strings.Split(string(out), "\n") {
		trimmed := strings.TrimLeft(line, "\t")
		if trimmed == "</data>" {
			inData = false
		}
		if inData {
			payloadLines++
			if len(trimmed) > xmlDataLineWidth {
				t.Errorf("base64 line exceeds %d columns: %q", xmlDataLineWidth, line)
			}
		}
		if trimmed == "<data>" {
			inData = true
		}
	}
	if payloadLines < 2 {
		t.Errorf("payload not wrapped (%d lines):\n%s", payloadLines, out)
	}
	back, _, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !long.Equal(back) {
		t.Error("round trip mismatch")
	}
}

func TestXMLUIDRoundTrip(t *testing.T) {
	out, err := Encode(UID(42), XMLFormat, EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Contains(out, []byte("CF$UID")) {
		t.Errorf("no UID convention in output:\n%s", out)
	}
	back, _, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !UID(42).Equal(back) {
		t.Errorf("decoded %#v", back)
	}
}

func TestXMLParseErrors(t *testing.T) {
	cases := []string{
		`<plist version="1.0"><dict><integer>1</integer></dict></plist>`, // value without key
		`<plist version="1.0"><dict><key>k</key></dict></plist>`,         // key without value
		`<plist version="1.0"><widget/></plist>`,                         // unknown element
		`<plist version="1.0"><string>unterminated`,                      // truncated document
		`<plist version="1.0"></plist>`,                                  // empty plist
		`<plist version="1.0"><data>!!!</data></plist>`,                  // invalid base64
		`<plist version="1.0"><date>yesterday</date></plist>`,            // invalid date
	}
	for _, doc := range cases {
		_, _, err := Decode([]byte(doc))
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("%s: err = %v, want ParseError", doc, err)
		}
	}
}

func TestXMLEncodeNullRejected(t *testing.T) {
	_, err := Encode(Null{}, XMLFormat, EncodeOptions{})
	var unsupported *UnsupportedValueError
	if !errors.As(err, &unsupported) {
		t.Errorf("err = %v, want UnsupportedValueError", err)
	}
}

func TestXMLPrettifyRoundTrip(t *testing.T) {
	root := NewDictionary()
	root.Set("list", NewArray(String("a"), MakeInteger(2), Real(-0.5)))
	root.Set("flag", Boolean(true))

	for _, pretty := range []bool{false, true} {
		out, err := Encode(root, XMLFormat, EncodeOptions{Prettify: pretty})
		if err != nil {
			t.Fatalf("Encode(pretty=%v): %v", pretty, err)
		}
		back, _, err := Decode(out)
		if err != nil {
			t.Fatalf("Decode(pretty=%v): %v", pretty, err)
		}
		if !root.Equal(back) {
			t.Errorf("round trip mismatch (pretty=%v)", pretty)
		}
	}
}
