package plist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf16"
)

// bplistGenerator serializes a value tree into the binary format. It
// performs the format's defining uniquing pass: every distinct leaf
// value and every deep-equal container substructure occupies a single
// object-table slot, referenced by index from all of its parents.
type bplistGenerator struct {
	writer io.Writer

	objects  []bplistObject
	uniquing map[string]uint64
	inflight map[Value]struct{}
	depth    int
}

// bplistObject is one flattened object-table entry: a leaf value, or a
// container whose children have been replaced by object indices (for
// dictionaries: all key indices, then all value indices).
type bplistObject struct {
	value Value
	refs  []uint64
}

func newBplistGenerator(w io.Writer) *bplistGenerator {
	return &bplistGenerator{
		writer:   w,
		uniquing: make(map[string]uint64),
		inflight: make(map[Value]struct{}),
	}
}

func (g *bplistGenerator) generateDocument(root Value) error {
	topObject, err := g.flatten(root)
	if err != nil {
		return err
	}

	refSize := minByteWidth(uint64(len(g.objects) - 1))
	body := &bytes.Buffer{}
	body.WriteString("bplist00")

	offsets := make([]uint64, len(g.objects))
	for i, obj := range g.objects {
		offsets[i] = uint64(body.Len())
		if err := g.writeObject(body, obj, refSize); err != nil {
			return err
		}
	}

	offsetTableOffset := uint64(body.Len())
	offsetSize := minByteWidth(offsetTableOffset)
	for _, off := range offsets {
		writeSizedInt(body, off, offsetSize)
	}

	trailer := bplistTrailer{
		OffsetIntSize:     uint8(offsetSize),
		ObjectRefSize:     uint8(refSize),
		NumObjects:        uint64(len(g.objects)),
		TopObject:         topObject,
		OffsetTableOffset: offsetTableOffset,
	}
	if err := binary.Write(body, binary.BigEndian, trailer); err != nil {
		return err
	}

	_, err = g.writer.Write(body.Bytes())
	return err
}

// flatten assigns object-table indices bottom-up, reusing the index of
// any previously-seen equal value.
func (g *bplistGenerator) flatten(v Value) (uint64, error) {
	if v == nil {
		return 0, &UnsupportedValueError{Kind: InvalidKind, Reason: "nil value"}
	}
	if g.depth++; g.depth > maxDepth {
		return 0, &DepthExceededError{Depth: maxDepth}
	}
	defer func() { g.depth-- }()

	switch v := v.(type) {
	case *Array:
		if _, ok := g.inflight[v]; ok {
			return 0, ErrCyclicReference
		}
		g.inflight[v] = struct{}{}
		defer delete(g.inflight, v)

		refs := make([]uint64, len(v.Values))
		for i, elem := range v.Values {
			idx, err := g.flatten(elem)
			if err != nil {
				return 0, err
			}
			refs[i] = idx
		}
		return g.intern(containerSignature('A', refs), v, refs), nil
	case *Dictionary:
		if _, ok := g.inflight[v]; ok {
			return 0, ErrCyclicReference
		}
		g.inflight[v] = struct{}{}
		defer delete(g.inflight, v)

		n := v.Len()
		refs := make([]uint64, 0, 2*n)
		for _, key := range v.keys {
			idx, err := g.flatten(String(key))
			if err != nil {
				return 0, err
			}
			refs = append(refs, idx)
		}
		for _, val := range v.values {
			idx, err := g.flatten(val)
			if err != nil {
				return 0, err
			}
			refs = append(refs, idx)
		}
		return g.intern(containerSignature('D', refs), v, refs), nil
	default:
		return g.intern(leafSignature(v), v, nil), nil
	}
}

// intern returns the object index for sig, appending a new table entry
// the first time the signature is seen.
func (g *bplistGenerator) intern(sig string, v Value, refs []uint64) uint64 {
	if idx, ok := g.uniquing[sig]; ok {
		return idx
	}
	idx := uint64(len(g.objects))
	g.objects = append(g.objects, bplistObject{value: v, refs: refs})
	g.uniquing[sig] = idx
	return idx
}

// leafSignature keys a leaf value for uniquing. Distinct kinds never
// collide; within a kind the signature mirrors Equal.
func leafSignature(v Value) string {
	switch v := v.(type) {
	case Boolean:
		if v {
			return "bT"
		}
		return "bF"
	case Integer:
		if v.IsNegative() {
			return "i" + strconv.FormatInt(int64(v.Value), 10)
		}
		return "i" + strconv.FormatUint(v.Value, 10)
	case Real:
		return "r" + strconv.FormatUint(math.Float64bits(float64(v)), 16)
	case String:
		return "s" + string(v)
	case Date:
		return "t" + strconv.FormatInt(v.Time().UnixNano(), 10)
	case Data:
		return "d" + string(v)
	case UID:
		return "u" + strconv.FormatUint(uint64(v), 10)
	case Null:
		return "z"
	}
	return fmt.Sprintf("?%T", v)
}

func containerSignature(tag byte, refs []uint64) string {
	var buf bytes.Buffer
	buf.WriteByte(tag)
	for _, r := range refs {
		fmt.Fprintf(&buf, ":%d", r)
	}
	return buf.String()
}

func (g *bplistGenerator) writeObject(w *bytes.Buffer, obj bplistObject, refSize int) error {
	switch v := obj.value.(type) {
	case Null:
		w.WriteByte(bpTagNull)
	case Boolean:
		if v {
			w.WriteByte(bpTagBoolTrue)
		} else {
			w.WriteByte(bpTagBoolFalse)
		}
	case Integer:
		g.writeInteger(w, v)
	case Real:
		w.WriteByte(bpTagReal | 3)
		writeSizedInt(w, math.Float64bits(float64(v)), 8)
	case Date:
		w.WriteByte(bpTagDate | 3)
		writeSizedInt(w, math.Float64bits(cfDateToSeconds(v.Time())), 8)
	case Data:
		writeCountedMarker(w, bpTagData, uint64(len(v)))
		w.Write(v)
	case String:
		g.writeString(w, string(v))
	case UID:
		size := minByteWidth(uint64(v))
		w.WriteByte(bpTagUID | uint8(size-1))
		writeSizedInt(w, uint64(v), size)
	case *Array:
		writeCountedMarker(w, bpTagArray, uint64(len(obj.refs)))
		for _, ref := range obj.refs {
			writeSizedInt(w, ref, refSize)
		}
	case *Dictionary:
		writeCountedMarker(w, bpTagDictionary, uint64(len(obj.refs)/2))
		for _, ref := range obj.refs {
			writeSizedInt(w, ref, refSize)
		}
	default:
		return &UnsupportedValueError{Kind: kindOf(obj.value), Reason: "no binary representation"}
	}
	return nil
}

func (g *bplistGenerator) writeInteger(w *bytes.Buffer, v Integer) {
	switch {
	case v.IsNegative():
		// Negative integers are always stored in 8 bytes.
		w.WriteByte(bpTagInteger | 3)
		writeSizedInt(w, v.Value, 8)
	case !v.Signed && v.Value > math.MaxInt64:
		// Unsigned values past the signed range use the 128-bit form
		// with a zero high word.
		w.WriteByte(bpTagInteger | 4)
		writeSizedInt(w, 0, 8)
		writeSizedInt(w, v.Value, 8)
	default:
		size := minByteWidth(v.Value)
		switch size {
		case 1:
			w.WriteByte(bpTagInteger | 0)
		case 2:
			w.WriteByte(bpTagInteger | 1)
		case 4:
			w.WriteByte(bpTagInteger | 2)
		default:
			size = 8
			w.WriteByte(bpTagInteger | 3)
		}
		writeSizedInt(w, v.Value, size)
	}
}

func (g *bplistGenerator) writeString(w *bytes.Buffer, s string) {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			ascii = false
			break
		}
	}
	if ascii {
		writeCountedMarker(w, bpTagASCIIString, uint64(len(s)))
		w.WriteString(s)
		return
	}
	units := utf16.Encode([]rune(s))
	writeCountedMarker(w, bpTagUTF16String, uint64(len(units)))
	for _, u := range units {
		writeSizedInt(w, uint64(u), 2)
	}
}

// writeCountedMarker emits tag|count, spilling counts of 15 and above
// into an inline integer.
func writeCountedMarker(w *bytes.Buffer, tag uint8, count uint64) {
	if count < 0x0F {
		w.WriteByte(tag | uint8(count))
		return
	}
	w.WriteByte(tag | 0x0F)
	size := minByteWidth(count)
	switch size {
	case 1:
		w.WriteByte(bpTagInteger | 0)
	case 2:
		w.WriteByte(bpTagInteger | 1)
	case 4:
		w.WriteByte(bpTagInteger | 2)
	default:
		size = 8
		w.WriteByte(bpTagInteger | 3)
	}
	writeSizedInt(w, count, size)
}

// minByteWidth returns the narrowest of 1, 2, 4 or 8 bytes that can
// hold v.
func minByteWidth(v uint64) int {
	switch {
	case v <= 0xFF:
		return 1
	case v <= 0xFFFF:
		return 2
	case v <= 0xFFFFFFFF:
		return 4
	}
	return 8
}

func writeSizedInt(w *bytes.Buffer, v uint64, size int) {
	for shift := (size - 1) * 8; shift >= 0; shift -= 8 {
		w.WriteByte(byte(v >> uint(shift)))
	}
}
