package plist

import "strconv"

// Parse helpers for the panic/recover error flow used inside the
// parsers. Callers recover at the document boundary.

func mustParseInt(s string, base, bits int) int64 {
	v, err := strconv.ParseInt(s, base, bits)
	if err != nil {
		panic(err)
	}
	return v
}

func mustParseUint(s string, base, bits int) uint64 {
	v, err := strconv.ParseUint(s, base, bits)
	if err != nil {
		panic(err)
	}
	return v
}

func mustParseFloat(s string, bits int) float64 {
	v, err := strconv.ParseFloat(s, bits)
	if err != nil {
		panic(err)
	}
	return v
}

// unsignedGetBase strips a 0x/0X prefix, returning the digits and the
// base they should be parsed in.
func unsignedGetBase(s string) (string, int) {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:], 16
	}
	return s, 10
}
