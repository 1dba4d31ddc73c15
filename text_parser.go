package plist

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// textPlistTimeLayout is the GNUstep date literal layout.
const textPlistTimeLayout = "2006-01-02 15:04:05 -0700"

// textPlistParser decodes the legacy OpenStep ASCII grammar along with
// the GNUstep typed-literal extensions. The detected dialect is
// reported through format: seeing any <*…> literal upgrades an
// OpenStep document to GNUstep.
type textPlistParser struct {
	data   []byte
	pos    int
	format Format
	depth  int
}

func newTextPlistParser(data []byte) *textPlistParser {
	return &textPlistParser{data: data, format: OpenStepFormat}
}

func (p *textPlistParser) error(format string, args ...interface{}) {
	panic(&ParseError{Format: "text", Offset: int64(p.pos), Err: fmt.Errorf(format, args...)})
}

func (p *textPlistParser) eof() bool {
	return p.pos >= len(p.data)
}

func (p *textPlistParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.data[p.pos]
}

func (p *textPlistParser) next() byte {
	if p.eof() {
		p.error("unexpected end of document")
	}
	c := p.data[p.pos]
	p.pos++
	return c
}

func (p *textPlistParser) expect(c byte) {
	if p.eof() || p.data[p.pos] != c {
		p.error("expected '%c'", c)
	}
	p.pos++
}

func (p *textPlistParser) skipWhitespaceAndComments() {
	for !p.eof() {
		c := p.data[p.pos]
		switch {
		case isPlistWhitespace(c):
			p.pos++
		case c == '/' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '/':
			for !p.eof() && p.data[p.pos] != '\n' {
				p.pos++
			}
		case c == '/' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '*':
			end := strings.Index(string(p.data[p.pos+2:]), "*/")
			if end < 0 {
				p.error("unterminated block comment")
			}
			p.pos += 2 + end + 2
		default:
			return
		}
	}
}

func (p *textPlistParser) parseDocument() (pval Value, parseError error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			switch e := r.(type) {
			case *ParseError:
				parseError = e
			case *DepthExceededError:
				parseError = e
			case error:
				parseError = &ParseError{Format: "text", Offset: int64(p.pos), Err: e}
			default:
				parseError = &ParseError{Format: "text", Offset: int64(p.pos), Err: fmt.Errorf("%v", r)}
			}
		}
	}()
	p.skipWhitespaceAndComments()
	if p.eof() {
		p.error("empty document")
	}
	pval = p.parseValue()
	p.skipWhitespaceAndComments()
	if !p.eof() {
		// Old-style strings files are a brace-less sequence of
		// key = value; pairs.
		if s, ok := pval.(String); ok && p.peek() == '=' {
			pval = p.parseStringsFile(string(s))
			p.skipWhitespaceAndComments()
		}
		if !p.eof() {
			p.error("unexpected character '%c' after top-level value", p.peek())
		}
	}
	return
}

func (p *textPlistParser) parseStringsFile(firstKey string) *Dictionary {
	dict := &Dictionary{}
	key := firstKey
	for {
		p.expect('=')
		p.skipWhitespaceAndComments()
		dict.Set(key, p.parseValue())
		p.skipWhitespaceAndComments()
		p.expect(';')
		p.skipWhitespaceAndComments()
		if p.eof() {
			return dict
		}
		key = p.parseKey()
		p.skipWhitespaceAndComments()
		if p.peek() != '=' {
			p.error("expected '=' after key %q", key)
		}
	}
}

func (p *textPlistParser) parseValue() Value {
	switch c := p.peek(); {
	case c == '{':
		return p.parseDictionary()
	case c == '(':
		return p.parseArray()
	case c == '<':
		if p.pos+1 < len(p.data) && p.data[p.pos+1] == '*' {
			return p.parseTypedLiteral()
		}
		return p.parseData()
	case c == '"' || c == '\'':
		return String(p.parseQuotedString(c))
	default:
		token := p.parseUnquotedString()
		return textTokenValue(token)
	}
}

func (p *textPlistParser) parseKey() string {
	switch c := p.peek(); {
	case c == '"' || c == '\'':
		return p.parseQuotedString(c)
	default:
		return p.parseUnquotedString()
	}
}

func (p *textPlistParser) parseDictionary() Value {
	if p.depth++; p.depth > maxDepth {
		panic(&DepthExceededError{Depth: maxDepth})
	}
	p.expect('{')
	dict := &Dictionary{}
	for {
		p.skipWhitespaceAndComments()
		if p.eof() {
			p.error("unterminated dictionary")
		}
		if p.peek() == '}' {
			p.pos++
			break
		}
		key := p.parseKey()
		p.skipWhitespaceAndComments()
		if p.peek() != '=' {
			p.error("expected '=' after key %q", key)
		}
		p.pos++
		p.skipWhitespaceAndComments()
		dict.keys = append(dict.keys, key)
		dict.values = append(dict.values, p.parseValue())
		p.skipWhitespaceAndComments()
		if p.peek() == ';' {
			p.pos++
		} else if p.peek() != '}' {
			p.error("expected ';' after dictionary value")
		}
	}
	p.depth--
	return dict.maybeUID()
}

func (p *textPlistParser) parseArray() *Array {
	if p.depth++; p.depth > maxDepth {
		panic(&DepthExceededError{Depth: maxDepth})
	}
	p.expect('(')
	arr := &Array{}
	for {
		p.skipWhitespaceAndComments()
		if p.eof() {
			p.error("unterminated array")
		}
		if p.peek() == ')' {
			p.pos++
			break
		}
		arr.Values = append(arr.Values, p.parseValue())
		p.skipWhitespaceAndComments()
		if p.peek() == ',' {
			p.pos++
		} else if p.peek() != ')' {
			p.error("expected ',' between array elements")
		}
	}
	p.depth--
	return arr
}

func (p *textPlistParser) parseQuotedString(quote byte) string {
	p.expect(quote)
	var out strings.Builder
	for {
		if p.eof() {
			p.error("unterminated string")
		}
		c := p.next()
		if c == quote {
			return out.String()
		}
		if c != '\\' {
			out.WriteByte(c)
			continue
		}
		e := p.next()
		switch e {
		case 'a':
			out.WriteByte('\a')
		case 'b':
			out.WriteByte('\b')
		case 'f':
			out.WriteByte('\f')
		case 'n':
			out.WriteByte('\n')
		case 'r':
			out.WriteByte('\r')
		case 't':
			out.WriteByte('\t')
		case 'v':
			out.WriteByte('\v')
		case 'U', 'u':
			var r rune
			for i := 0; i < 4; i++ {
				c := p.next()
				if !isHexDigit(c) {
					p.error("bad hex digit '%c' in \\U escape", c)
				}
				r = r<<4 | rune(hexValue(c))
			}
			out.WriteRune(r)
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := rune(e - '0')
			for i := 0; i < 2 && !p.eof(); i++ {
				c := p.peek()
				if c < '0' || c > '7' {
					break
				}
				v = v<<3 | rune(c-'0')
				p.pos++
			}
			out.WriteRune(v)
		default:
			out.WriteByte(e)
		}
	}
}

// isOpenStepWordByte reports whether c may appear in an unquoted
// string token.
func isOpenStepWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '$' || c == '/' || c == ':' || c == '.' || c == '-' || c == '+'
}

func (p *textPlistParser) parseUnquotedString() string {
	start := p.pos
	for !p.eof() && isOpenStepWordByte(p.data[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		p.error("unexpected character '%c'", p.peek())
	}
	return string(p.data[start:p.pos])
}

// textTokenValue maps a bare token to the value it spells: a fully
// numeric token is an Integer or Real, anything else stays a String.
func textTokenValue(token string) Value {
	if looksLikeInteger(token) {
		digits := token
		neg := false
		switch digits[0] {
		case '-':
			neg = true
			digits = digits[1:]
		case '+':
			digits = digits[1:]
		}
		if neg {
			if v, err := strconv.ParseInt(token, 10, 64); err == nil {
				return MakeInteger(v)
			}
		} else if v, err := strconv.ParseUint(digits, 10, 64); err == nil {
			return MakeUnsigned(v)
		}
		// Numeric-looking but out of range; keep the spelling.
		return String(token)
	}
	if looksLikeReal(token) {
		if v, err := strconv.ParseFloat(token, 64); err == nil {
			return Real(v)
		}
	}
	return String(token)
}

func looksLikeInteger(s string) bool {
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func looksLikeReal(s string) bool {
	digits, punct := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' || c == 'e' || c == 'E':
			punct++
		case c == '-' || c == '+':
		default:
			return false
		}
	}
	return digits > 0 && punct > 0
}

func hexValue(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func (p *textPlistParser) parseData() Data {
	p.expect('<')
	var out []byte
	var hi byte
	haveHi := false
	for {
		if p.eof() {
			p.error("unterminated data literal")
		}
		c := p.next()
		switch {
		case c == '>':
			if haveHi {
				p.error("data literal has an odd number of hex digits")
			}
			return Data(out)
		case isPlistWhitespace(c):
		case isHexDigit(c):
			if haveHi {
				out = append(out, hi<<4|hexValue(c))
				haveHi = false
			} else {
				hi = hexValue(c)
				haveHi = true
			}
		default:
			p.error("bad character '%c' in data literal", c)
		}
	}
}

// parseTypedLiteral reads a GNUstep <*…> literal, the dialect's
// spelling for the types the plain OpenStep grammar cannot express.
func (p *textPlistParser) parseTypedLiteral() Value {
	p.expect('<')
	p.expect('*')
	tag := p.next()
	start := p.pos
	for !p.eof() && p.data[p.pos] != '>' {
		p.pos++
	}
	if p.eof() {
		p.error("unterminated <*%c> literal", tag)
	}
	body := string(p.data[start:p.pos])
	p.pos++ // '>'
	p.format = GNUstepFormat

	switch tag {
	case 'I':
		if len(body) > 0 && body[0] == '-' {
			return MakeInteger(mustParseInt(body, 10, 64))
		}
		return MakeUnsigned(mustParseUint(body, 10, 64))
	case 'R':
		return Real(mustParseFloat(body, 64))
	case 'B':
		switch body {
		case "Y":
			return Boolean(true)
		case "N":
			return Boolean(false)
		}
		p.error("bad boolean literal <*B%s>", body)
	case 'D':
		t, err := time.Parse(textPlistTimeLayout, body)
		if err != nil {
			if t, err = time.ParseInLocation(time.RFC3339, body, time.UTC); err != nil {
				p.error("bad date literal <*D%s>", body)
			}
		}
		return Date(t)
	}
	p.error("unknown typed literal <*%c>", tag)
	return nil
}
