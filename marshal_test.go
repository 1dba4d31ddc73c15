package plist

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type sparkleState struct {
	Name     string            `plist:"name"`
	Build    int               `plist:"build"`
	Ratio    float64           `plist:"ratio"`
	Enabled  bool              `plist:"enabled"`
	Checksum []byte            `plist:"checksum"`
	Updated  time.Time         `plist:"updated"`
	Tags     []string          `plist:"tags"`
	Extra    map[string]string `plist:"extra"`
	Note     string            `plist:"note,omitempty"`
	Skipped  string            `plist:"-"`
}

func sampleState() sparkleState {
	return sparkleState{
		Name:     "updater",
		Build:    1042,
		Ratio:    0.75,
		Enabled:  true,
		Checksum: []byte{0x01, 0x02, 0x03},
		Updated:  time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
		Tags:     []string{"beta", "arm64"},
		Extra:    map[string]string{"channel": "nightly"},
	}
}

func TestMarshalStructRoundTrip(t *testing.T) {
	in := sampleState()
	in.Skipped = "never serialized"

	// JSON is absent: its projection turns dates into plain strings,
	// which no longer unmarshal into a time.Time field.
	for _, format := range []Format{XMLFormat, BinaryFormat} {
		out, err := Marshal(in, format)
		if err != nil {
			t.Fatalf("%v: Marshal: %v", format, err)
		}

		var back sparkleState
		if _, err := Unmarshal(out, &back); err != nil {
			t.Fatalf("%v: Unmarshal: %v", format, err)
		}

		want := in
		want.Skipped = ""
		if diff := cmp.Diff(want, back); diff != "" {
			t.Errorf("%v: round trip mismatch (-want +got):\n%s", format, diff)
		}
	}
}

func TestMarshalOmitEmpty(t *testing.T) {
	out, err := Marshal(sampleState(), XMLFormat)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(out), "<key>note</key>") {
		t.Errorf("empty omitempty field serialized:\n%s", out)
	}
	if strings.Contains(string(out), "Skipped") {
		t.Errorf("plist:\"-\" field serialized:\n%s", out)
	}
}

func TestMarshalMapKeysSorted(t *testing.T) {
	out, err := Marshal(map[string]int{"b": 2, "a": 1, "c": 3}, XMLFormat)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(out)
	a, b, c := strings.Index(s, "<key>a</key>"), strings.Index(s, "<key>b</key>"), strings.Index(s, "<key>c</key>")
	if a < 0 || b < 0 || c < 0 || !(a < b && b < c) {
		t.Errorf("map keys not sorted:\n%s", s)
	}
}

func TestMarshalPointerAndNil(t *testing.T) {
	n := 7
	pval, err := marshalValue(reflect.ValueOf(&n))
	if err != nil {
		t.Fatalf("marshalValue: %v", err)
	}
	if !MakeInteger(7).Equal(pval) {
		t.Errorf("marshaled %#v", pval)
	}

	var nothing *int
	pval, err = marshalValue(reflect.ValueOf(nothing))
	if err != nil {
		t.Fatalf("marshalValue: %v", err)
	}
	if _, ok := pval.(Null); !ok {
		t.Errorf("nil pointer marshaled as %#v", pval)
	}
}

func TestUnmarshalIntoInterface(t *testing.T) {
	doc := `{"name": "x", "vals": [1, -2, 0.5], "on": true, "none": null}`
	var got interface{}
	if _, err := Unmarshal([]byte(doc), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := map[string]interface{}{
		"name": "x",
		"vals": []interface{}{uint64(1), int64(-2), 0.5},
		"on":   true,
		"none": nil,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalOverflow(t *testing.T) {
	var small uint8
	if err := unmarshalValue(MakeInteger(300), reflect.ValueOf(&small)); err == nil {
		t.Error("300 into uint8 did not fail")
	}
	var signed int8
	if err := unmarshalValue(MakeInteger(-200), reflect.ValueOf(&signed)); err == nil {
		t.Error("-200 into int8 did not fail")
	}
	var negative uint16
	if err := unmarshalValue(MakeInteger(-1), reflect.ValueOf(&negative)); err == nil {
		t.Error("-1 into uint16 did not fail")
	}
}

func TestUnmarshalIntoValueInterface(t *testing.T) {
	var pval Value
	if _, err := Unmarshal([]byte(`{"n": 42}`), &pval); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := NewDictionary()
	want.Set("n", MakeInteger(42))
	if !want.Equal(pval) {
		t.Errorf("got %#v", pval)
	}
}

func TestMappingUnmarshal(t *testing.T) {
	m := Mapping{
		"name": "tool",
		"size": int64(9),
		"tags": []interface{}{"a", "b"},
		"meta": map[string]interface{}{"k": "v"},
	}
	var out struct {
		Name string            `plist:"name"`
		Size int               `plist:"size"`
		Tags []string          `plist:"tags"`
		Meta map[string]string `plist:"meta"`
	}
	if err := m.Unmarshal(&out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Name != "tool" || out.Size != 9 || len(out.Tags) != 2 || out.Meta["k"] != "v" {
		t.Errorf("got %+v", out)
	}
}

func TestConvertToJSON(t *testing.T) {
	out, err := ConvertToJSON([]byte(`{ n = 42; }`))
	if err != nil {
		t.Fatalf("ConvertToJSON: %v", err)
	}
	if string(out) != `{"n":42}` {
		t.Errorf("got %q", out)
	}
}
