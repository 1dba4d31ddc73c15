package plist

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"time"
	"unicode/utf16"
)

// cfEpoch is the reference instant of the binary format's date payload
// (seconds stored as a float64 relative to it).
var cfEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

type bplistParser struct {
	data    []byte
	trailer bplistTrailer
	offsets []uint64

	// inflight tracks object indices on the current resolution path so
	// that reference cycles in the object table fail as corruption
	// instead of recursing forever.
	inflight map[uint64]struct{}
	depth    int
}

func newBplistParser(data []byte) *bplistParser {
	return &bplistParser{
		data:     data,
		inflight: make(map[uint64]struct{}),
	}
}

func (p *bplistParser) corrupt(offset int64, format string, args ...interface{}) {
	panic(&CorruptError{Offset: offset, Reason: fmt.Sprintf(format, args...)})
}

func (p *bplistParser) parseDocument() (root Value, parseError error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			switch e := r.(type) {
			case *CorruptError, *DepthExceededError:
				parseError = e.(error)
			case error:
				parseError = &CorruptError{Reason: e.Error()}
			default:
				parseError = &CorruptError{Reason: fmt.Sprint(r)}
			}
		}
	}()

	p.validateHeader()
	p.readTrailer()
	p.readOffsetTable()
	root = p.objectAtIndex(p.trailer.TopObject)
	return
}

func (p *bplistParser) validateHeader() {
	if len(p.data) < bplistMinLength {
		p.corrupt(0, "buffer of %d bytes is too short to hold a binary property list", len(p.data))
	}
	if string(p.data[:6]) != "bplist" {
		p.corrupt(0, "bad magic")
	}
	if v := string(p.data[6:8]); v != "00" && v != "01" {
		p.corrupt(6, "unsupported version %q", v)
	}
}

func (p *bplistParser) readTrailer() {
	off := len(p.data) - bplistTrailerLength
	t := &p.trailer
	copy(t.Unused[:], p.data[off:off+5])
	t.SortVersion = p.data[off+5]
	t.OffsetIntSize = p.data[off+6]
	t.ObjectRefSize = p.data[off+7]
	t.NumObjects = binary.BigEndian.Uint64(p.data[off+8:])
	t.TopObject = binary.BigEndian.Uint64(p.data[off+16:])
	t.OffsetTableOffset = binary.BigEndian.Uint64(p.data[off+24:])

	toff := int64(off)
	if t.OffsetIntSize < 1 || t.OffsetIntSize > 8 {
		p.corrupt(toff, "offset table entry size %d is out of range", t.OffsetIntSize)
	}
	if t.ObjectRefSize < 1 || t.ObjectRefSize > 8 {
		p.corrupt(toff, "object reference size %d is out of range", t.ObjectRefSize)
	}
	if t.NumObjects == 0 {
		p.corrupt(toff, "property list contains no objects")
	}
	if t.NumObjects > uint64(len(p.data)) {
		p.corrupt(toff, "object count %d exceeds buffer size", t.NumObjects)
	}
	if t.TopObject >= t.NumObjects {
		p.corrupt(toff, "root object index %d out of range (%d objects)", t.TopObject, t.NumObjects)
	}
	tableEnd := t.OffsetTableOffset + t.NumObjects*uint64(t.OffsetIntSize)
	if t.OffsetTableOffset < bplistHeaderLength || tableEnd > uint64(off) || tableEnd < t.OffsetTableOffset {
		p.corrupt(toff, "offset table [%d, %d) lies outside the object area", t.OffsetTableOffset, tableEnd)
	}
}

func (p *bplistParser) readOffsetTable() {
	t := &p.trailer
	p.offsets = make([]uint64, t.NumObjects)
	pos := t.OffsetTableOffset
	for i := range p.offsets {
		off := p.readSizedInt(pos, int(t.OffsetIntSize))
		if off < bplistHeaderLength || off >= t.OffsetTableOffset {
			p.corrupt(int64(pos), "object %d offset %d points outside the object area", i, off)
		}
		p.offsets[i] = off
		pos += uint64(t.OffsetIntSize)
	}
}

// readSizedInt reads a size-byte big-endian unsigned integer at off.
func (p *bplistParser) readSizedInt(off uint64, size int) uint64 {
	b := p.slice(off, uint64(size))
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// slice bounds-checks and returns data[off:off+n].
func (p *bplistParser) slice(off, n uint64) []byte {
	end := off + n
	if end < off || end > uint64(len(p.data)) {
		p.corrupt(int64(off), "%d bytes at offset %d run past the end of the buffer", n, off)
	}
	return p.data[off:end]
}

func (p *bplistParser) objectAtIndex(index uint64) Value {
	if index >= p.trailer.NumObjects {
		p.corrupt(0, "object reference %d out of range (%d objects)", index, p.trailer.NumObjects)
	}
	if _, ok := p.inflight[index]; ok {
		p.corrupt(int64(p.offsets[index]), "object %d participates in a reference cycle", index)
	}
	if p.depth++; p.depth > maxDepth {
		panic(&DepthExceededError{Depth: maxDepth})
	}
	p.inflight[index] = struct{}{}

	v := p.parseObject(p.offsets[index])

	delete(p.inflight, index)
	p.depth--
	return v
}

// readCount decodes an object's element count: the marker's low nibble,
// or, when that nibble is 0xF, an inline integer immediately following
// the marker byte. Returns the count and the offset of the payload.
func (p *bplistParser) readCount(off uint64, marker uint8) (uint64, uint64) {
	n := uint64(marker & 0x0F)
	if n != 0x0F {
		return n, off + 1
	}
	intMarker := p.slice(off+1, 1)[0]
	if intMarker&0xF0 != bpTagInteger {
		p.corrupt(int64(off+1), "extended count is not an integer (marker 0x%02x)", intMarker)
	}
	size := 1 << (intMarker & 0x0F)
	if size > 8 {
		p.corrupt(int64(off+1), "extended count of %d bytes is too wide", size)
	}
	return p.readSizedInt(off+2, size), off + 2 + uint64(size)
}

func (p *bplistParser) parseObject(off uint64) Value {
	marker := p.slice(off, 1)[0]
	switch marker & 0xF0 {
	case bpTagNull & 0xF0:
		switch marker {
		case bpTagNull:
			return Null{}
		case bpTagBoolFalse:
			return Boolean(false)
		case bpTagBoolTrue:
			return Boolean(true)
		}
		p.corrupt(int64(off), "unknown marker 0x%02x", marker)
	case bpTagInteger:
		size := 1 << (marker & 0x0F)
		switch {
		case size <= 4:
			// 1/2/4-byte integers are unsigned and always fit int64.
			return MakeInteger(int64(p.readSizedInt(off+1, size)))
		case size == 8:
			return MakeInteger(int64(p.readSizedInt(off+1, 8)))
		case size == 16:
			hi := p.readSizedInt(off+1, 8)
			lo := p.readSizedInt(off+9, 8)
			switch hi {
			case 0:
				if lo > math.MaxInt64 {
					return MakeUnsigned(lo)
				}
				return MakeInteger(int64(lo))
			case math.MaxUint64:
				return MakeInteger(int64(lo))
			}
			p.corrupt(int64(off), "128-bit integer does not fit the value model")
		}
		p.corrupt(int64(off), "%d-byte integer is not valid", size)
	case bpTagReal:
		switch marker & 0x0F {
		case 2:
			bits := p.readSizedInt(off+1, 4)
			return Real(math.Float32frombits(uint32(bits)))
		case 3:
			bits := p.readSizedInt(off+1, 8)
			return Real(math.Float64frombits(bits))
		}
		p.corrupt(int64(off), "real marker 0x%02x has invalid width", marker)
	case bpTagDate:
		if marker&0x0F != 3 {
			p.corrupt(int64(off), "date marker 0x%02x has invalid width", marker)
		}
		secs := math.Float64frombits(p.readSizedInt(off+1, 8))
		return Date(cfDateFromSeconds(secs))
	case bpTagData:
		n, payload := p.readCount(off, marker)
		return Data(append([]byte(nil), p.slice(payload, n)...))
	case bpTagASCIIString:
		n, payload := p.readCount(off, marker)
		return String(p.slice(payload, n))
	case bpTagUTF16String:
		n, payload := p.readCount(off, marker)
		// n is attacker-controlled; cap it before n*2 can wrap and
		// before allocating the code unit slice.
		if n > uint64(len(p.data))/2 {
			p.corrupt(int64(off), "string of %d UTF-16 units cannot fit a %d-byte buffer", n, len(p.data))
		}
		raw := p.slice(payload, n*2)
		units := make([]uint16, n)
		for i := range units {
			units[i] = binary.BigEndian.Uint16(raw[i*2:])
		}
		return String(string(utf16.Decode(units)))
	case bpTagUID:
		size := int(marker&0x0F) + 1
		if size > 8 {
			p.corrupt(int64(off), "UID of %d bytes is too wide", size)
		}
		return UID(p.readSizedInt(off+1, size))
	case bpTagArray, bpTagSet:
		n, payload := p.readCount(off, marker)
		arr := &Array{Values: make([]Value, 0, minCap(n))}
		for i := uint64(0); i < n; i++ {
			ref := p.readSizedInt(payload+i*uint64(p.trailer.ObjectRefSize), int(p.trailer.ObjectRefSize))
			arr.Values = append(arr.Values, p.objectAtIndex(ref))
		}
		return arr
	case bpTagDictionary:
		n, payload := p.readCount(off, marker)
		refSize := uint64(p.trailer.ObjectRefSize)
		dict := &Dictionary{
			keys:   make([]string, 0, minCap(n)),
			values: make([]Value, 0, minCap(n)),
		}
		for i := uint64(0); i < n; i++ {
			keyRef := p.readSizedInt(payload+i*refSize, int(refSize))
			valRef := p.readSizedInt(payload+(n+i)*refSize, int(refSize))
			key, ok := p.objectAtIndex(keyRef).(String)
			if !ok {
				p.corrupt(int64(off), "dictionary key %d is not a string", i)
			}
			dict.keys = append(dict.keys, string(key))
			dict.values = append(dict.values, p.objectAtIndex(valRef))
		}
		return dict.maybeUID()
	}
	p.corrupt(int64(off), "unknown marker 0x%02x", marker)
	return nil
}

// minCap limits pre-allocation driven by attacker-controlled counts;
// the per-element bounds checks catch the lie soon after.
func minCap(n uint64) int {
	if n > 1024 {
		return 1024
	}
	return int(n)
}

func cfDateFromSeconds(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	return cfEpoch.Add(time.Duration(whole)*time.Second + time.Duration(frac*float64(time.Second)))
}

func cfDateToSeconds(t time.Time) float64 {
	d := t.Sub(cfEpoch)
	return d.Seconds()
}
