package plist

// bplistTrailer is the fixed 32-byte structure at the end of every
// binary property list. All integer fields are big-endian.
type bplistTrailer struct {
	Unused            [5]uint8
	SortVersion       uint8
	OffsetIntSize     uint8
	ObjectRefSize     uint8
	NumObjects        uint64
	TopObject         uint64
	OffsetTableOffset uint64
}

// Object marker tags, stored in the high nibble of each object's first
// byte. The low nibble carries a count or a sub-tag.
const (
	bpTagNull        uint8 = 0x00
	bpTagBoolFalse   uint8 = 0x08
	bpTagBoolTrue    uint8 = 0x09
	bpTagFill        uint8 = 0x0F
	bpTagInteger     uint8 = 0x10
	bpTagReal        uint8 = 0x20
	bpTagDate        uint8 = 0x30
	bpTagData        uint8 = 0x40
	bpTagASCIIString uint8 = 0x50
	bpTagUTF16String uint8 = 0x60
	bpTagUID         uint8 = 0x80
	bpTagArray       uint8 = 0xA0
	bpTagSet         uint8 = 0xC0
	bpTagDictionary  uint8 = 0xD0
)

const (
	bplistHeaderLength  = 8  // "bplist" magic plus 2-byte version
	bplistTrailerLength = 32
	bplistMinLength     = bplistHeaderLength + 1 + 1 + bplistTrailerLength
)
