package plist

import (
	"bufio"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"time"
)

// textPlistGenerator serializes a value tree in the OpenStep grammar
// or, when format is GNUstepFormat, with the GNUstep typed literals
// that keep booleans, numbers and dates distinguishable on re-decode.
type textPlistGenerator struct {
	*bufio.Writer

	format Format
	indent string
}

func newTextPlistGenerator(w io.Writer, format Format) *textPlistGenerator {
	return &textPlistGenerator{Writer: bufio.NewWriter(w), format: format}
}

func (p *textPlistGenerator) Indent(i string) {
	p.indent = i
}

func (p *textPlistGenerator) generateDocument(root Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			err = r.(error)
		}
	}()
	p.writeValue(root, 0)
	return p.Flush()
}

func (p *textPlistGenerator) writeIndent(depth int) {
	if p.indent == "" {
		return
	}
	p.WriteByte('\n')
	for i := 0; i < depth; i++ {
		p.WriteString(p.indent)
	}
}

func (p *textPlistGenerator) writeValue(pval Value, depth int) {
	if depth > maxDepth {
		panic(&DepthExceededError{Depth: maxDepth})
	}
	if pval == nil {
		panic(&UnsupportedValueError{Kind: InvalidKind, Reason: "nil value"})
	}
	switch pval := pval.(type) {
	case String:
		p.writeString(string(pval))
	case Integer:
		var s string
		if pval.IsNegative() {
			s = strconv.FormatInt(int64(pval.Value), 10)
		} else {
			s = strconv.FormatUint(pval.Value, 10)
		}
		if p.format == GNUstepFormat {
			p.WriteString("<*I" + s + ">")
		} else {
			p.WriteString(s)
		}
	case Real:
		s := formatXMLFloat(float64(pval))
		if p.format == GNUstepFormat {
			p.WriteString("<*R" + s + ">")
		} else {
			p.WriteString(s)
		}
	case Boolean:
		if p.format == GNUstepFormat {
			if pval {
				p.WriteString("<*BY>")
			} else {
				p.WriteString("<*BN>")
			}
		} else {
			// Plain OpenStep has no boolean: the conventional integer
			// spelling decodes as 1/0.
			if pval {
				p.WriteString("1")
			} else {
				p.WriteString("0")
			}
		}
	case Date:
		s := pval.Time().In(time.UTC).Format(textPlistTimeLayout)
		if p.format == GNUstepFormat {
			p.WriteString("<*D" + s + ">")
		} else {
			p.writeQuotedString(s)
		}
	case Data:
		p.WriteByte('<')
		for _, b := range pval {
			fmt.Fprintf(p.Writer, "%02x", b)
		}
		p.WriteByte('>')
	case UID:
		p.writeValue(pval.toDict(), depth+1)
	case *Array:
		p.writeArray(pval, depth)
	case *Dictionary:
		p.writeDictionary(pval, depth)
	default:
		panic(&UnsupportedValueError{Kind: pval.Kind(), Reason: "no OpenStep representation"})
	}
}

func (p *textPlistGenerator) writeArray(a *Array, depth int) {
	if a.Len() == 0 {
		p.WriteString("()")
		return
	}
	p.WriteByte('(')
	for i, v := range a.Values {
		if i > 0 {
			p.WriteByte(',')
			if p.indent == "" {
				p.WriteByte(' ')
			}
		}
		p.writeIndent(depth + 1)
		p.writeValue(v, depth+1)
	}
	p.writeIndent(depth)
	p.WriteByte(')')
}

func (p *textPlistGenerator) writeDictionary(dict *Dictionary, depth int) {
	if dict.Len() == 0 {
		p.WriteString("{}")
		return
	}
	p.WriteByte('{')
	for i, k := range dict.keys {
		p.writeIndent(depth + 1)
		p.writeString(k)
		p.WriteString(" = ")
		p.writeValue(dict.values[i], depth+1)
		p.WriteByte(';')
	}
	p.writeIndent(depth)
	p.WriteByte('}')
}

// writeString emits s bare when the grammar allows, quoted otherwise.
// Tokens that would read back as numbers must be quoted to stay
// strings.
func (p *textPlistGenerator) writeString(s string) {
	if isBareSafe(s) {
		p.WriteString(s)
		return
	}
	p.writeQuotedString(s)
}

func isBareSafe(s string) bool {
	if len(s) == 0 || looksLikeInteger(s) || looksLikeReal(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isOpenStepWordByte(s[i]) {
			return false
		}
	}
	return true
}

func (p *textPlistGenerator) writeQuotedString(s string) {
	p.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			p.WriteString(`\"`)
		case '\\':
			p.WriteString(`\\`)
		case '\n':
			p.WriteString(`\n`)
		case '\r':
			p.WriteString(`\r`)
		case '\t':
			p.WriteString(`\t`)
		default:
			if c < 0x20 {
				fmt.Fprintf(p.Writer, "\\U%04x", c)
			} else {
				p.WriteByte(c)
			}
		}
	}
	p.WriteByte('"')
}
