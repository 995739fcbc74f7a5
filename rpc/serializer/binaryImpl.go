package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/eeKV/rpc/common"
)

// NewBinarySerializer creates a new serializer using a compact binary format:
// [type:1][flags:1] followed by the fields marked in flags, in declaration order.
// Integers are big endian, byte fields carry a 4 byte length prefix.
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey   byte = 1 << 0
	hasAddr  byte = 1 << 1
	hasSize  byte = 1 << 2
	hasValue byte = 1 << 3
	hasOk    byte = 1 << 4
	hasCode  byte = 1 << 5
	hasErr   byte = 1 << 6
	hasMeta  byte = 1 << 7
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	if len(msg.Value) > maxField || len(msg.Meta) > maxField || len(msg.Err) > maxField {
		return nil, fmt.Errorf("message field exceeds %d bytes", maxField)
	}

	w := writer{buf: make([]byte, 2, b.sizeBytes(msg))}
	w.buf[0] = byte(msg.MsgType)

	var flags byte
	if msg.Key != 0 {
		flags |= hasKey
		w.buf = append(w.buf, msg.Key)
	}
	if msg.Addr != 0 {
		flags |= hasAddr
		w.buf = binary.BigEndian.AppendUint32(w.buf, msg.Addr)
	}
	if msg.Size != 0 {
		flags |= hasSize
		w.buf = binary.BigEndian.AppendUint32(w.buf, msg.Size)
	}
	// a non nil empty value is kept, Get of an empty object returns []byte{}
	if msg.Value != nil {
		flags |= hasValue
		w.bytes(msg.Value)
	}
	if msg.Ok {
		flags |= hasOk
	}
	if msg.Code != 0 {
		flags |= hasCode
		w.buf = binary.BigEndian.AppendUint64(w.buf, msg.Code)
	}
	if msg.Err != "" {
		flags |= hasErr
		w.bytes([]byte(msg.Err))
	}
	if msg.Meta != nil {
		flags |= hasMeta
		w.bytes(msg.Meta)
	}

	w.buf[1] = flags
	return w.buf, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	msg.MsgType = common.MessageType(data[0])
	flags := data[1]
	r := reader{data: data, pos: 2}

	msg.Key = 0
	if flags&hasKey != 0 {
		raw, err := r.fixed(1, "key")
		if err != nil {
			return err
		}
		msg.Key = raw[0]
	}

	msg.Addr = 0
	if flags&hasAddr != 0 {
		raw, err := r.fixed(4, "addr")
		if err != nil {
			return err
		}
		msg.Addr = binary.BigEndian.Uint32(raw)
	}

	msg.Size = 0
	if flags&hasSize != 0 {
		raw, err := r.fixed(4, "size")
		if err != nil {
			return err
		}
		msg.Size = binary.BigEndian.Uint32(raw)
	}

	if flags&hasValue != 0 {
		raw, err := r.bytes("value")
		if err != nil {
			return err
		}
		msg.Value = reuse(msg.Value, raw)
	} else {
		msg.Value = nil
	}

	msg.Ok = flags&hasOk != 0

	msg.Code = 0
	if flags&hasCode != 0 {
		raw, err := r.fixed(8, "code")
		if err != nil {
			return err
		}
		msg.Code = binary.BigEndian.Uint64(raw)
	}

	msg.Err = ""
	if flags&hasErr != 0 {
		raw, err := r.bytes("error")
		if err != nil {
			return err
		}
		msg.Err = string(raw)
	}

	if flags&hasMeta != 0 {
		raw, err := r.bytes("meta")
		if err != nil {
			return err
		}
		msg.Meta = reuse(msg.Meta, raw)
	} else {
		msg.Meta = nil
	}

	if r.pos != len(data) {
		return fmt.Errorf("%d trailing bytes after message", len(data)-r.pos)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

const maxField = 1<<32 - 1

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	if msg.Key != 0 {
		size++
	}
	if msg.Addr != 0 {
		size += 4
	}
	if msg.Size != 0 {
		size += 4
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Code != 0 {
		size += 8
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}

type writer struct {
	buf []byte
}

// bytes appends a length prefixed field
func (w *writer) bytes(p []byte) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(p)))
	w.buf = append(w.buf, p...)
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) fixed(n int, field string) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("data too short for %s", field)
	}
	raw := r.data[r.pos : r.pos+n]
	r.pos += n
	return raw, nil
}

func (r *reader) bytes(field string) ([]byte, error) {
	raw, err := r.fixed(4, field+" length")
	if err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(raw)
	if uint64(r.pos)+uint64(n) > uint64(len(r.data)) {
		return nil, fmt.Errorf("data too short for %s data", field)
	}
	return r.fixed(int(n), field)
}

// reuse copies src into dst, allocating only if dst is too small.
// The result is never nil, so an empty field stays distinguishable from an absent one.
func reuse(dst, src []byte) []byte {
	if dst == nil || cap(dst) < len(src) {
		dst = make([]byte, len(src))
	} else {
		dst = dst[:len(src)]
	}
	copy(dst, src)
	return dst
}
