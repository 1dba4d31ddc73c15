package plist

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"
)

type xmlPlistParser struct {
	reader             io.Reader
	xmlDecoder         *xml.Decoder
	whitespaceReplacer *strings.Replacer
	ntags              int
	depth              int
	idrefs             map[string]Value
}

func (p *xmlPlistParser) error(err error) {
	panic(&ParseError{Format: "XML", Offset: p.xmlDecoder.InputOffset(), Err: err})
}

func (p *xmlPlistParser) parseDocument() (pval Value, parseError error) {
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
				parseError = &ParseError{Format: "XML", Offset: p.xmlDecoder.InputOffset(), Err: e}
			default:
				parseError = &ParseError{Format: "XML", Err: fmt.Errorf("%v", r)}
			}
		}
	}()
	for {
		token, err := p.xmlDecoder.Token()
		if err != nil {
			// The first XML parse turned out to be invalid:
			// we do not have an XML property list.
			p.error(err)
		}
		if element, ok := token.(xml.StartElement); ok {
			pval = p.parseXMLElement(element)
			if p.ntags == 0 {
				p.error(errors.New("no elements encountered"))
			}
			if pval == nil {
				p.error(errors.New("empty plist"))
			}
			return
		}
	}
}

func (p *xmlPlistParser) storeOrFindXMLElementValue(element xml.StartElement, value Value) Value {
	for _, attr := range element.Attr {
		switch attr.Name.Local {
		case "ID":
			p.idrefs[attr.Value] = value
		case "IDREF":
			return p.idrefs[attr.Value]
		}
	}
	return value
}

func (p *xmlPlistParser) parseXMLElement(element xml.StartElement) Value {
	var charData xml.CharData
	switch element.Name.Local {
	case "plist":
		p.ntags++
		for {
			token, err := p.xmlDecoder.Token()
			if err != nil {
				p.error(err)
			}
			if el, ok := token.(xml.EndElement); ok && el.Name.Local == "plist" {
				break
			}
			if el, ok := token.(xml.StartElement); ok {
				return p.parseXMLElement(el)
			}
		}
		return nil
	case "string":
		p.ntags++
		if err := p.xmlDecoder.DecodeElement(&charData, &element); err != nil {
			p.error(err)
		}
		return p.storeOrFindXMLElementValue(element, String(charData))
	case "integer":
		p.ntags++
		if err := p.xmlDecoder.DecodeElement(&charData, &element); err != nil {
			p.error(err)
		}
		if len(charData) == 0 {
			return p.storeOrFindXMLElementValue(element, MakeUnsigned(0))
		}
		s := string(charData)
		if s[0] == '-' {
			s, base := unsignedGetBase(s[1:])
			n := mustParseInt("-"+s, base, 64)
			return p.storeOrFindXMLElementValue(element, MakeInteger(n))
		}
		s, base := unsignedGetBase(s)
		n := mustParseUint(s, base, 64)
		return p.storeOrFindXMLElementValue(element, MakeUnsigned(n))
	case "real":
		p.ntags++
		if err := p.xmlDecoder.DecodeElement(&charData, &element); err != nil {
			p.error(err)
		}
		if len(charData) == 0 {
			return p.storeOrFindXMLElementValue(element, Real(0))
		}
		n := mustParseFloat(string(charData), 64)
		return p.storeOrFindXMLElementValue(element, Real(n))
	case "true", "false":
		p.ntags++
		p.xmlDecoder.Skip()
		return p.storeOrFindXMLElementValue(element, Boolean(element.Name.Local == "true"))
	case "date":
		p.ntags++
		if err := p.xmlDecoder.DecodeElement(&charData, &element); err != nil {
			p.error(err)
		}
		if len(charData) == 0 {
			return p.storeOrFindXMLElementValue(element, Date(time.Time{}))
		}
		t, err := time.ParseInLocation(time.RFC3339, string(charData), time.UTC)
		if err != nil {
			p.error(err)
		}
		return p.storeOrFindXMLElementValue(element, Date(t))
	case "data":
		p.ntags++
		if err := p.xmlDecoder.DecodeElement(&charData, &element); err != nil {
			p.error(err)
		}
		if len(charData) == 0 {
			return p.storeOrFindXMLElementValue(element, Data(nil))
		}
		str := p.whitespaceReplacer.Replace(string(charData))
		decoded := make([]uint8, base64.StdEncoding.DecodedLen(len(str)))
		l, err := base64.StdEncoding.Decode(decoded, []byte(str))
		if err != nil {
			p.error(err)
		}
		return p.storeOrFindXMLElementValue(element, Data(decoded[:l]))
	case "dict":
		p.ntags++
		if p.depth++; p.depth > maxDepth {
			panic(&DepthExceededError{Depth: maxDepth})
		}
		var key *string
		dict := &Dictionary{
			keys:   make([]string, 0, 8),
			values: make([]Value, 0, 8),
		}
		for {
			token, err := p.xmlDecoder.Token()
			if err != nil {
				p.error(err)
			}
			if el, ok := token.(xml.EndElement); ok && el.Name.Local == "dict" {
				if key != nil {
					p.error(errors.New("missing value in dictionary"))
				}
				break
			}
			if el, ok := token.(xml.StartElement); ok {
				if el.Name.Local == "key" {
					var k string
					p.xmlDecoder.DecodeElement(&k, &el)
					key = &k
				} else {
					if key == nil {
						p.error(errors.New("missing key in dictionary"))
					}
					dict.keys = append(dict.keys, *key)
					dict.values = append(dict.values, p.parseXMLElement(el))
					key = nil
				}
			}
		}
		p.depth--
		return p.storeOrFindXMLElementValue(element, dict.maybeUID())
	case "array":
		p.ntags++
		if p.depth++; p.depth > maxDepth {
			panic(&DepthExceededError{Depth: maxDepth})
		}
		values := make([]Value, 0, 8)
		for {
			token, err := p.xmlDecoder.Token()
			if err != nil {
				p.error(err)
			}
			if el, ok := token.(xml.EndElement); ok && el.Name.Local == "array" {
				break
			}
			if el, ok := token.(xml.StartElement); ok {
				values = append(values, p.parseXMLElement(el))
			}
		}
		p.depth--
		return p.storeOrFindXMLElementValue(element, &Array{Values: values})
	}
	p.error(fmt.Errorf("encountered unknown element %s", element.Name.Local))
	return nil
}

func newXMLPlistParser(r io.Reader) *xmlPlistParser {
	return &xmlPlistParser{
		reader:             r,
		xmlDecoder:         xml.NewDecoder(r),
		whitespaceReplacer: strings.NewReplacer("\t", "", "\n", "", " ", "", "\r", ""),
		idrefs:             make(map[string]Value),
	}
}
