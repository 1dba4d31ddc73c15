package plist

import (
	"bufio"
	"encoding/base64"
	"io"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const jsonIndent = "  "

// jsonPlistGenerator serializes a value tree as JSON. Date and Data
// have no JSON primitive and are written as RFC-3339 and base64
// strings; a re-decode of such output yields String values.
type jsonPlistGenerator struct {
	*bufio.Writer

	pretty bool
	depth  int
}

func (p *jsonPlistGenerator) generateDocument(root Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			err = r.(error)
		}
	}()
	p.writeValue(root)
	if p.pretty {
		p.WriteByte('\n')
	}
	return p.Flush()
}

func (p *jsonPlistGenerator) writeNewline() {
	if p.pretty {
		p.WriteByte('\n')
		p.WriteString(strings.Repeat(jsonIndent, p.depth))
	}
}

func (p *jsonPlistGenerator) writeValue(pval Value) {
	if p.depth > maxDepth {
		panic(&DepthExceededError{Depth: maxDepth})
	}
	if pval == nil {
		panic(&UnsupportedValueError{Kind: InvalidKind, Reason: "nil value"})
	}
	switch pval := pval.(type) {
	case Boolean:
		if pval {
			p.WriteString("true")
		} else {
			p.WriteString("false")
		}
	case Integer:
		if pval.IsNegative() {
			p.WriteString(strconv.FormatInt(int64(pval.Value), 10))
		} else {
			p.WriteString(strconv.FormatUint(pval.Value, 10))
		}
	case Real:
		p.writeReal(float64(pval))
	case String:
		p.writeString(string(pval))
	case Data:
		p.writeString(base64.StdEncoding.EncodeToString(pval))
	case Date:
		p.writeString(pval.Time().In(time.UTC).Format(time.RFC3339))
	case UID:
		p.WriteString(strconv.FormatUint(uint64(pval), 10))
	case Null:
		p.WriteString("null")
	case *Array:
		p.writeArray(pval)
	case *Dictionary:
		p.writeDictionary(pval)
	default:
		panic(&UnsupportedValueError{Kind: pval.Kind(), Reason: "no JSON representation"})
	}
}

// writeReal refuses the values JSON cannot express and otherwise emits
// the shortest round-trippable form, forcing a decimal point so reals
// stay distinguishable from integers.
func (p *jsonPlistGenerator) writeReal(f float64) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		panic(&UnsupportedValueError{Kind: RealKind, Reason: "JSON cannot represent non-finite numbers"})
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	p.WriteString(s)
}

const jsonHex = "0123456789abcdef"

func (p *jsonPlistGenerator) writeString(s string) {
	p.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' {
			_, size := utf8.DecodeRuneInString(s[i:])
			p.WriteString(s[i : i+size])
			i += size
			continue
		}
		switch c {
		case '"':
			p.WriteString(`\"`)
		case '\\':
			p.WriteString(`\\`)
		case '\b':
			p.WriteString(`\b`)
		case '\f':
			p.WriteString(`\f`)
		case '\n':
			p.WriteString(`\n`)
		case '\r':
			p.WriteString(`\r`)
		case '\t':
			p.WriteString(`\t`)
		default:
			p.WriteString(`\u00`)
			p.WriteByte(jsonHex[c>>4])
			p.WriteByte(jsonHex[c&0xF])
		}
		i++
	}
	p.WriteByte('"')
}

func (p *jsonPlistGenerator) writeArray(a *Array) {
	if a.Len() == 0 {
		p.WriteString("[]")
		return
	}
	p.WriteByte('[')
	p.depth++
	for i, v := range a.Values {
		if i > 0 {
			p.WriteByte(',')
		}
		p.writeNewline()
		p.writeValue(v)
	}
	p.depth--
	p.writeNewline()
	p.WriteByte(']')
}

func (p *jsonPlistGenerator) writeDictionary(dict *Dictionary) {
	if dict.Len() == 0 {
		p.WriteString("{}")
		return
	}
	p.WriteByte('{')
	p.depth++
	for i, k := range dict.keys {
		if i > 0 {
			p.WriteByte(',')
		}
		p.writeNewline()
		p.writeString(k)
		p.WriteByte(':')
		if p.pretty {
			p.WriteByte(' ')
		}
		p.writeValue(dict.values[i])
	}
	p.depth--
	p.writeNewline()
	p.WriteByte('}')
}

func newJSONPlistGenerator(w io.Writer, pretty bool) *jsonPlistGenerator {
	return &jsonPlistGenerator{Writer: bufio.NewWriter(w), pretty: pretty}
}
