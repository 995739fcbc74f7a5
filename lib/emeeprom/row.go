package emeeprom

import "encoding/binary"

// Row header layout, all fields little endian.
const (
	offChecksum = 0
	offSeq      = 4
	offAddr     = 8
	offLen      = 12
	headerSize  = 16
)

// RowState classifies the contents of a physical row.
type RowState uint8

const (
	RowValid        RowState = iota // checksum matches
	RowNeverWritten                 // checksum and sequence number are both zero
	RowCorrupted                    // anything else
)

func (s RowState) String() string {
	switch s {
	case RowValid:
		return "valid"
	case RowNeverWritten:
		return "never-written"
	case RowCorrupted:
		return "corrupted"
	default:
		return "unknown"
	}
}

// row is a view of one extended mode row.
type row []byte

func (r row) checksum() uint32 { return binary.LittleEndian.Uint32(r[offChecksum:]) }
func (r row) seq() uint32      { return binary.LittleEndian.Uint32(r[offSeq:]) }
func (r row) addr() uint32     { return binary.LittleEndian.Uint32(r[offAddr:]) }
func (r row) length() uint32   { return binary.LittleEndian.Uint32(r[offLen:]) }

func (r row) setSeq(v uint32)    { binary.LittleEndian.PutUint32(r[offSeq:], v) }
func (r row) setAddr(v uint32)   { binary.LittleEndian.PutUint32(r[offAddr:], v) }
func (r row) setLength(v uint32) { binary.LittleEndian.PutUint32(r[offLen:], v) }

// payload is the area holding the bytes written with this row.
func (r row) payload() []byte { return r[headerSize : len(r)/2] }

// historic is the area holding a full logical row.
func (r row) historic() []byte { return r[len(r)/2:] }

// span returns the logical range covered by the payload, clipped to the payload area.
func (r row) span() (start, end uint64) {
	n := uint64(r.length())
	if limit := uint64(len(r.payload())); n > limit {
		n = limit
	}
	start = uint64(r.addr())
	return start, start + n
}

// seal computes and stores the checksum.
func (r row) seal() {
	binary.LittleEndian.PutUint32(r[offChecksum:], uint32(crc8(r[offSeq:])))
}

func (r row) state() RowState {
	sum := r.checksum()
	if sum <= 0xFF && uint8(sum) == crc8(r[offSeq:]) {
		return RowValid
	}
	if sum == 0 && r.seq() == 0 {
		return RowNeverWritten
	}
	return RowCorrupted
}

// overlay copies the part of h's payload that falls into the logical range
// [base, base+len(dst)) into dst. It reports whether anything was copied.
func overlay(dst []byte, base uint64, h row) bool {
	hs, he := h.span()
	lo, hi := hs, he
	if base > lo {
		lo = base
	}
	if end := base + uint64(len(dst)); end < hi {
		hi = end
	}
	if lo >= hi {
		return false
	}
	copy(dst[lo-base:hi-base], h.payload()[lo-hs:hi-hs])
	return true
}

// --------------------------------------------------------------------------
// Checksum
// --------------------------------------------------------------------------

const (
	crcPoly = 0x31
	crcSeed = 0xFF
)

// crc8 computes CRC-8 with polynomial 0x31 and seed 0xFF, MSB first.
func crc8(data []byte) uint8 {
	crc := uint8(crcSeed)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ crcPoly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
