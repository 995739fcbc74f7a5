package eekv

import (
	"encoding/binary"

	"github.com/ValentinKolb/eeKV/lib/db"
)

// signature marks a formatted store.
var signature = [signatureSize]byte{'e', 'e', 'K', 'V'}

const (
	signatureSize   = 4
	entryHeaderSize = 5 // key + length
)

// entry is the decoded header of one log entry.
type entry struct {
	offset uint32 // position of the key byte
	key    db.Key
	size   uint32 // payload length
}

func (e entry) payloadOffset() uint32 { return e.offset + entryHeaderSize }
func (e entry) total() uint32         { return entryHeaderSize + e.size }
func (e entry) end() uint32           { return e.offset + e.total() }

func (e entry) info() db.ObjectInfo {
	return db.ObjectInfo{Key: e.key, Offset: e.offset, Size: e.size}
}

// encodeEntry builds the on-store bytes of an entry, optionally followed by the sentinel.
func encodeEntry(key db.Key, value []byte, sentinel bool) []byte {
	n := entryHeaderSize + len(value)
	if sentinel {
		n++
	}
	buf := make([]byte, n)
	buf[0] = byte(key)
	binary.LittleEndian.PutUint32(buf[1:entryHeaderSize], uint32(len(value)))
	copy(buf[entryHeaderSize:], value)
	if sentinel {
		buf[n-1] = byte(db.SentinelKey)
	}
	return buf
}

// entryAt decodes the entry at off. last is true when off is the end of the log,
// either at the sentinel or at the end of the store. Entries reaching beyond the
// store are reported as db.ErrCorrupted.
func (d *DB) entryAt(off uint32) (e entry, last bool, err error) {
	if off >= d.capacity {
		return entry{}, true, nil
	}

	hdr := make([]byte, entryHeaderSize)
	if uint64(off)+entryHeaderSize > uint64(d.capacity) {
		hdr = hdr[:1]
	}
	if err := d.read(off, hdr); err != nil {
		return entry{}, false, err
	}
	if db.Key(hdr[0]) == db.SentinelKey {
		return entry{}, true, nil
	}
	if len(hdr) < entryHeaderSize {
		return entry{}, false, corruptedAt(off, "truncated entry header")
	}

	e = entry{
		offset: off,
		key:    db.Key(hdr[0]),
		size:   binary.LittleEndian.Uint32(hdr[1:]),
	}
	if uint64(off)+entryHeaderSize+uint64(e.size) > uint64(d.capacity) {
		return entry{}, false, corruptedAt(off, "entry of %d bytes exceeds the store", e.size)
	}
	return e, false, nil
}

// walk calls fn for every entry in log order until fn returns false.
// It returns the offset of the end of the log if the walk was not stopped.
func (d *DB) walk(fn func(e entry) bool) (end uint32, err error) {
	off := uint32(signatureSize)
	for {
		e, last, err := d.entryAt(off)
		if err != nil {
			return 0, err
		}
		if last {
			return off, nil
		}
		if !fn(e) {
			return off, nil
		}
		off = e.end()
	}
}

// find returns the entry with key and the end of the log.
func (d *DB) find(key db.Key) (found *entry, end uint32, err error) {
	end, err = d.walk(func(e entry) bool {
		if e.key == key && found == nil {
			found = &e
		}
		return true
	})
	return found, end, err
}
