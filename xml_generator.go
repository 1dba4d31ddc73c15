package plist

import (
	"bufio"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"runtime"
	"strconv"
	"time"
)

const (
	xmlHEADER     string = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
	xmlDOCTYPE           = `<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n"
	xmlArrayTag          = "array"
	xmlDataTag           = "data"
	xmlDateTag           = "date"
	xmlDictTag           = "dict"
	xmlFalseTag          = "false"
	xmlIntegerTag        = "integer"
	xmlKeyTag            = "key"
	xmlPlistTag          = "plist"
	xmlRealTag           = "real"
	xmlStringTag         = "string"
	xmlTrueTag           = "true"

	// base64 line width used historically by the XML format. Only a
	// compatibility convention; readers accept any wrapping.
	xmlDataLineWidth = 68
)

func formatXMLFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type xmlPlistGenerator struct {
	*bufio.Writer

	indent string
	depth  int
}

func (p *xmlPlistGenerator) Indent(i string) {
	p.indent = i
}

func (p *xmlPlistGenerator) writeIndent() {
	for i := 0; i < p.depth; i++ {
		p.WriteString(p.indent)
	}
}

func (p *xmlPlistGenerator) generateDocument(root Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			err = r.(error)
		}
	}()
	p.WriteString(xmlHEADER)
	p.WriteString(xmlDOCTYPE)

	p.WriteString(fmt.Sprintf("<%s version=\"1.0\">\n", xmlPlistTag))
	p.writePlistValue(root, 0)
	p.WriteString(fmt.Sprintf("</%s>", xmlPlistTag))
	return p.Flush()
}

func (p *xmlPlistGenerator) element(key string, value string) {
	p.writeIndent()
	if len(value) == 0 {
		p.WriteString(fmt.Sprintf("<%s/>\n", key))
	} else {
		p.WriteString(fmt.Sprintf("<%s>", key))
		if err := xml.EscapeText(p.Writer, []byte(value)); err != nil {
			panic(err)
		}
		p.WriteString(fmt.Sprintf("</%s>\n", key))
	}
}

func (p *xmlPlistGenerator) writeDictionary(dict *Dictionary, depth int) {
	if dict.Len() == 0 {
		p.writeIndent()
		p.WriteString(fmt.Sprintf("<%s/>\n", xmlDictTag))
		return
	}
	p.writeIndent()
	p.WriteString(fmt.Sprintf("<%s>\n", xmlDictTag))
	p.depth++
	for i, k := range dict.keys {
		p.writeIndent()
		p.WriteString(fmt.Sprintf("<%s>", xmlKeyTag))
		if err := xml.EscapeText(p.Writer, []byte(k)); err != nil {
			panic(err)
		}
		p.WriteString(fmt.Sprintf("</%s>\n", xmlKeyTag))

		p.writePlistValue(dict.values[i], depth+1)
	}
	p.depth--
	p.writeIndent()
	p.WriteString(fmt.Sprintf("</%s>\n", xmlDictTag))
}

func (p *xmlPlistGenerator) writeArray(a *Array, depth int) {
	if a.Len() == 0 {
		p.writeIndent()
		p.WriteString(fmt.Sprintf("<%s/>\n", xmlArrayTag))
		return
	}
	p.writeIndent()
	p.WriteString(fmt.Sprintf("<%s>\n", xmlArrayTag))
	p.depth++
	for _, v := range a.Values {
		p.writePlistValue(v, depth+1)
	}
	p.depth--
	p.writeIndent()
	p.WriteString(fmt.Sprintf("</%s>\n", xmlArrayTag))
}

func (p *xmlPlistGenerator) writePlistValue(pval Value, depth int) {
	if depth > maxDepth {
		panic(&DepthExceededError{Depth: maxDepth})
	}
	if pval == nil {
		panic(&UnsupportedValueError{Kind: InvalidKind, Reason: "nil value"})
	}
	switch pval := pval.(type) {
	case String:
		p.element(xmlStringTag, string(pval))
	case Integer:
		if pval.IsNegative() {
			p.element(xmlIntegerTag, strconv.FormatInt(int64(pval.Value), 10))
		} else {
			p.element(xmlIntegerTag, strconv.FormatUint(pval.Value, 10))
		}
	case Real:
		p.element(xmlRealTag, formatXMLFloat(float64(pval)))
	case Boolean:
		if bool(pval) {
			p.element(xmlTrueTag, "")
		} else {
			p.element(xmlFalseTag, "")
		}
	case Data:
		dataBase64 := base64.StdEncoding.EncodeToString([]byte(pval))
		if len(dataBase64) > xmlDataLineWidth {
			p.writeIndent()
			p.WriteString(fmt.Sprintf("<%s>\n", xmlDataTag))
			for i := 0; i < len(dataBase64); i += xmlDataLineWidth {
				p.writeIndent()
				endoff := i + xmlDataLineWidth
				if endoff > len(dataBase64) {
					endoff = len(dataBase64)
				}
				p.WriteString(dataBase64[i:endoff])
				p.WriteString("\n")
			}
			p.writeIndent()
			p.WriteString(fmt.Sprintf("</%s>\n", xmlDataTag))
		} else {
			p.element(xmlDataTag, dataBase64)
		}
	case Date:
		p.element(xmlDateTag, pval.Time().In(time.UTC).Format(time.RFC3339))
	case *Dictionary:
		p.writeDictionary(pval, depth)
	case *Array:
		p.writeArray(pval, depth)
	case UID:
		p.writePlistValue(pval.toDict(), depth+1)
	default:
		panic(&UnsupportedValueError{Kind: pval.Kind(), Reason: "no XML representation"})
	}
}

func newXMLPlistGenerator(w io.Writer) *xmlPlistGenerator {
	return &xmlPlistGenerator{Writer: bufio.NewWriter(w)}
}
