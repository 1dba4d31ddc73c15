package plist

import (
	"errors"
	"testing"
	"time"
)

func TestOpenStepDecodeDictionary(t *testing.T) {
	doc := `{
	// a line comment
	name = "my app";  /* a block comment */
	count = 42;
	path = /usr/local/bin;
	blob = <48 65 6c 6c 6f>;
	nested = { flag = yes; };
	list = (1, -2, 3.5);
}`
	pval, format, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != OpenStepFormat {
		t.Errorf("format = %v", format)
	}

	nested := NewDictionary()
	nested.Set("flag", String("yes"))
	want := NewDictionary()
	want.Set("name", String("my app"))
	want.Set("count", MakeInteger(42))
	want.Set("path", String("/usr/local/bin"))
	want.Set("blob", Data("Hello"))
	want.Set("nested", nested)
	want.Set("list", NewArray(MakeInteger(1), MakeInteger(-2), Real(3.5)))
	if !want.Equal(pval) {
		t.Errorf("decoded %#v", pval)
	}
}

func TestOpenStepArrayEncoding(t *testing.T) {
	arr := NewArray(MakeInteger(1), MakeInteger(2), MakeInteger(3))
	out, err := Encode(arr, OpenStepFormat, EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(out) != "(1, 2, 3)" {
		t.Errorf("Encode = %q, want %q", out, "(1, 2, 3)")
	}
}

func TestOpenStepDictionaryEncoding(t *testing.T) {
	d := NewDictionary()
	d.Set("n", MakeInteger(42))
	out, err := Encode(d, OpenStepFormat, EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(out) != "{n = 42;}" {
		t.Errorf("Encode = %q, want %q", out, "{n = 42;}")
	}
}

func TestOpenStepStringQuoting(t *testing.T) {
	cases := []struct {
		in   String
		want string
	}{
		{String("plain"), `plain`},
		{String("has space"), `"has space"`},
		{String(""), `""`},
		{String("123"), `"123"`},  // would decode as an integer
		{String("1.5"), `"1.5"`},  // would decode as a real
		{String("a\nb"), `"a\nb"`},
		{String(`say "hi"`), `"say \"hi\""`},
	}
	for _, c := range cases {
		out, err := Encode(c.in, OpenStepFormat, EncodeOptions{})
		if err != nil {
			t.Fatalf("Encode(%q): %v", c.in, err)
		}
		if string(out) != c.want {
			t.Errorf("Encode(%q) = %q, want %q", c.in, out, c.want)
		}
		back, _, err := Decode(out)
		if err != nil {
			t.Fatalf("Decode(%q): %v", out, err)
		}
		if !c.in.Equal(back) {
			t.Errorf("round trip of %q gave %#v", c.in, back)
		}
	}
}

func TestOpenStepEscapes(t *testing.T) {
	cases := []struct {
		doc  string
		want String
	}{
		{`"\t\n\r"`, String("\t\n\r")},
		{`"\U0041B"`, String("AB")},
		{`"\101\102"`, String("AB")},
		{`"\q"`, String("q")}, // unknown escapes drop the backslash
		{`'single'`, String("single")},
	}
	for _, c := range cases {
		pval, _, err := Decode([]byte(c.doc))
		if err != nil {
			t.Errorf("%s: %v", c.doc, err)
			continue
		}
		if !c.want.Equal(pval) {
			t.Errorf("%s: decoded %#v, want %#v", c.doc, pval, c.want)
		}
	}
}

func TestGNUstepTypedLiterals(t *testing.T) {
	doc := `{
	flag = <*BY>;
	off = <*BN>;
	num = <*I-7>;
	ratio = <*R0.5>;
	when = <*D2024-06-01 12:30:00 +0000>;
}`
	pval, format, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != GNUstepFormat {
		t.Errorf("format = %v, want gnustep", format)
	}

	want := NewDictionary()
	want.Set("flag", Boolean(true))
	want.Set("off", Boolean(false))
	want.Set("num", MakeInteger(-7))
	want.Set("ratio", Real(0.5))
	want.Set("when", Date(time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)))
	if !want.Equal(pval) {
		t.Errorf("decoded %#v", pval)
	}
}

func TestGNUstepRoundTrip(t *testing.T) {
	root := NewDictionary()
	root.Set("flag", Boolean(true))
	root.Set("num", MakeInteger(-7))
	root.Set("ratio", Real(0.5))
	root.Set("when", Date(time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)))
	root.Set("name", String("app"))
	root.Set("blob", Data{0x01, 0x02})

	out, err := Encode(root, GNUstepFormat, EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, format, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != GNUstepFormat {
		t.Errorf("format = %v", format)
	}
	if !root.Equal(back) {
		t.Errorf("round trip mismatch:\n  out: %s\n  got: %#v", out, back)
	}
}

func TestOpenStepLossySpellings(t *testing.T) {
	// Plain OpenStep has no boolean or date syntax; they degrade to the
	// conventional integer and quoted-string spellings.
	out, err := Encode(Boolean(true), OpenStepFormat, EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(out) != "1" {
		t.Errorf("boolean = %q, want \"1\"", out)
	}

	out, err = Encode(Date(time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)), OpenStepFormat, EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(out) != `"2024-06-01 12:30:00 +0000"` {
		t.Errorf("date = %q", out)
	}
}

func TestStringsFileDecoding(t *testing.T) {
	doc := `/* localized strings */
"greeting" = "Hello";
farewell = "Goodbye";
count = 3;
`
	pval, _, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := NewDictionary()
	want.Set("greeting", String("Hello"))
	want.Set("farewell", String("Goodbye"))
	want.Set("count", MakeInteger(3))
	if !want.Equal(pval) {
		t.Errorf("decoded %#v", pval)
	}
}

func TestTextDataWhitespaceTolerance(t *testing.T) {
	pval, _, err := Decode([]byte("<de ad\tbe\nef>"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := Data{0xDE, 0xAD, 0xBE, 0xEF}
	if !want.Equal(pval) {
		t.Errorf("decoded %#v", pval)
	}
}

func TestTextParseErrors(t *testing.T) {
	cases := []string{
		`{ key = value`,     // unterminated dictionary
		`{ key value; }`,    // missing '='
		`{ key = a b; }`,    // missing ';'
		`(1, 2`,             // unterminated array
		`(1 2)`,             // missing ','
		`<dead bee>`,        // odd hex digit count
		`<zz>`,              // bad hex
		`"unterminated`,     // unterminated string
		`<*BQ>`,             // bad boolean literal
		`<*X1>`,             // unknown literal tag
		`/* no end`,         // unterminated comment
		``,                  // empty document
		`{} trailing`,       // junk after value
	}
	for _, doc := range cases {
		p := newTextPlistParser([]byte(doc))
		_, err := p.parseDocument()
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("%q: err = %v, want ParseError", doc, err)
		}
	}
}

func TestTextPrettify(t *testing.T) {
	root := NewDictionary()
	root.Set("list", NewArray(MakeInteger(1), MakeInteger(2)))

	out, err := Encode(root, OpenStepFormat, EncodeOptions{Prettify: true})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "{\n\tlist = (\n\t\t1,\n\t\t2\n\t);\n}"
	if string(out) != want {
		t.Errorf("Encode = %q, want %q", out, want)
	}
	back, _, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !root.Equal(back) {
		t.Error("round trip mismatch")
	}
}
