package plist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"
	"strconv"
	"strings"
)

// jsonPlistParser builds a value tree from the JSON projection of the
// model. It walks encoding/json's token stream directly so that object
// member order is preserved and so integers can be told apart from
// reals, neither of which json.Unmarshal offers.
type jsonPlistParser struct {
	dec   *json.Decoder
	depth int
}

func (p *jsonPlistParser) error(err error) {
	panic(&ParseError{Format: "JSON", Offset: p.dec.InputOffset(), Err: err})
}

func (p *jsonPlistParser) parseDocument() (pval Value, parseError error) {
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
				parseError = &ParseError{Format: "JSON", Offset: p.dec.InputOffset(), Err: e}
			default:
				parseError = &ParseError{Format: "JSON", Err: fmt.Errorf("%v", r)}
			}
		}
	}()
	pval = p.parseValue()
	if _, err := p.dec.Token(); err != io.EOF {
		p.error(errors.New("unexpected data after top-level value"))
	}
	return
}

func (p *jsonPlistParser) parseValue() Value {
	token, err := p.dec.Token()
	if err != nil {
		p.error(err)
	}
	return p.valueForToken(token)
}

func (p *jsonPlistParser) valueForToken(token json.Token) Value {
	switch token := token.(type) {
	case json.Delim:
		switch token {
		case '{':
			return p.parseObject()
		case '[':
			return p.parseArray()
		}
		p.error(fmt.Errorf("unexpected delimiter %q", token.String()))
	case string:
		return String(token)
	case json.Number:
		return p.parseNumber(token)
	case bool:
		return Boolean(token)
	case nil:
		return Null{}
	}
	p.error(fmt.Errorf("unexpected token %v", token))
	return nil
}

// parseNumber maps a JSON number to Integer when it has no fraction or
// exponent and fits the 64-bit range (unsigned values past MaxInt64
// stay exact), and to Real otherwise.
func (p *jsonPlistParser) parseNumber(n json.Number) Value {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if s[0] == '-' {
			if v, err := n.Int64(); err == nil {
				return MakeInteger(v)
			}
		} else if v, err := strconv.ParseUint(s, 10, 64); err == nil {
			if v > math.MaxInt64 {
				return MakeUnsigned(v)
			}
			return MakeInteger(int64(v))
		}
	}
	f, err := n.Float64()
	if err != nil {
		p.error(err)
	}
	return Real(f)
}

func (p *jsonPlistParser) parseObject() *Dictionary {
	if p.depth++; p.depth > maxDepth {
		panic(&DepthExceededError{Depth: maxDepth})
	}
	dict := &Dictionary{
		keys:   make([]string, 0, 8),
		values: make([]Value, 0, 8),
	}
	for p.dec.More() {
		keyToken, err := p.dec.Token()
		if err != nil {
			p.error(err)
		}
		key, ok := keyToken.(string)
		if !ok {
			p.error(fmt.Errorf("object key is %v, not a string", keyToken))
		}
		// Set keeps keys unique; a duplicate key overwrites in place, so
		// the last member wins as with json.Unmarshal.
		dict.Set(key, p.parseValue())
	}
	if _, err := p.dec.Token(); err != nil { // consume '}'
		p.error(err)
	}
	p.depth--
	return dict
}

func (p *jsonPlistParser) parseArray() *Array {
	if p.depth++; p.depth > maxDepth {
		panic(&DepthExceededError{Depth: maxDepth})
	}
	arr := &Array{Values: make([]Value, 0, 8)}
	for p.dec.More() {
		arr.Values = append(arr.Values, p.parseValue())
	}
	if _, err := p.dec.Token(); err != nil { // consume ']'
		p.error(err)
	}
	p.depth--
	return arr
}

func newJSONPlistParser(r io.Reader) *jsonPlistParser {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &jsonPlistParser{dec: dec}
}
