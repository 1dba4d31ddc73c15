package plist

import "bytes"

// detectLookahead caps how far DetectFormat inspects its input, keeping
// detection O(1) in the document size even for malformed buffers.
const detectLookahead = 4096

var (
	binaryMagic = []byte("bplist")
	utf8BOM     = []byte{0xEF, 0xBB, 0xBF}
)

func isPlistWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f'
}

// DetectFormat classifies a raw buffer as one of the supported
// property list serializations from its leading bytes. It never parses
// the document and returns UnknownFormat, not an error, when no marker
// matches.
func DetectFormat(data []byte) Format {
	if len(data) >= 8 && bytes.HasPrefix(data, binaryMagic) {
		return BinaryFormat
	}

	window := data
	if len(window) > detectLookahead {
		window = window[:detectLookahead]
	}
	if bytes.HasPrefix(window, utf8BOM) {
		window = window[len(utf8BOM):]
	}
	i := 0
	for i < len(window) && isPlistWhitespace(window[i]) {
		i++
	}
	if i == len(window) {
		return UnknownFormat
	}
	window = window[i:]

	switch window[0] {
	case '<':
		if bytes.HasPrefix(window, []byte("<?xml")) ||
			bytes.HasPrefix(window, []byte("<!DOCTYPE")) ||
			bytes.Contains(window, []byte("<plist")) {
			return XMLFormat
		}
		// Not an XML marker: an angle bracket can still open an
		// OpenStep data literal or a GNUstep typed literal.
		if len(window) > 1 && window[1] == '*' {
			return GNUstepFormat
		}
		if len(window) > 1 && (isHexDigit(window[1]) || isPlistWhitespace(window[1]) || window[1] == '>') {
			return OpenStepFormat
		}
		return UnknownFormat
	case '[':
		return JSONFormat
	case '{':
		// Both JSON objects and OpenStep dictionaries open with a
		// brace. OpenStep separates keys with '=', JSON with ':';
		// the first separator outside a double-quoted string decides,
		// so a key like "a=b" cannot flip the classification.
		inString := false
		for i := 1; i < len(window); i++ {
			c := window[i]
			if inString {
				switch c {
				case '\\':
					i++
				case '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '=', ';':
				return OpenStepFormat
			case ':':
				return JSONFormat
			}
		}
		return JSONFormat
	case '(', '"', '\'', '/':
		return OpenStepFormat
	}
	if isOpenStepWordByte(window[0]) {
		return OpenStepFormat
	}
	return UnknownFormat
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
