package eekv

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/ValentinKolb/eeKV/lib/lockmgr"
)

const (
	magicNum    = "EEKVLOG\x00" // File format identifier
	saveVersion = 1
)

type savedObject struct {
	key   db.Key
	value []byte
}

// Save writes all objects in log order:
// magic, version (uint8), count (uint32), then key (uint8), length (uint32) and payload per object.
func (d *DB) Save(w io.Writer) error {
	release, err := d.acquire(lockmgr.NewOwnerID())
	if err != nil {
		return err
	}
	defer release()

	if err := d.ready(); err != nil {
		return err
	}

	var objects []savedObject
	var walkErr error
	if _, err := d.walk(func(e entry) bool {
		value := make([]byte, e.size)
		if e.size > 0 {
			if walkErr = d.read(e.payloadOffset(), value); walkErr != nil {
				return false
			}
		}
		objects = append(objects, savedObject{key: e.key, value: value})
		return true
	}); err != nil {
		return err
	}
	if walkErr != nil {
		return walkErr
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(saveVersion)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(objects))); err != nil {
		return err
	}
	for _, o := range objects {
		if err := bw.WriteByte(byte(o.key)); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(o.value))); err != nil {
			return err
		}
		if _, err := bw.Write(o.value); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Load formats the store and stores the objects read from r.
// The input is decoded completely before the store is touched.
func (d *DB) Load(r io.Reader) error {
	br := bufio.NewReader(r)

	magic := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magic); err != nil {
		return err
	}
	if string(magic) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}
	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version != saveVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, saveVersion)
	}
	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	var objects []savedObject
	for i := uint32(0); i < count; i++ {
		key, err := br.ReadByte()
		if err != nil {
			return err
		}
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return err
		}
		value := make([]byte, n)
		if _, err := io.ReadFull(br, value); err != nil {
			return err
		}
		objects = append(objects, savedObject{key: db.Key(key), value: value})
	}

	owner := lockmgr.NewOwnerID()
	release, err := d.acquire(owner)
	if err != nil {
		return err
	}
	defer release()

	if err := d.format(owner); err != nil {
		return err
	}
	for _, o := range objects {
		if err := d.storeObject(owner, o.key, o.value, true); err != nil {
			return fmt.Errorf("eekv: load key 0x%02x: %w", uint8(o.key), err)
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Features and Metadata
// --------------------------------------------------------------------------

// writeCounter is implemented by byte stores that count their writes, like *emeeprom.Engine.
type writeCounter interface {
	NumWrites() uint32
}

func (d *DB) GetInfo() db.DatabaseInfo {
	info := db.DatabaseInfo{
		DbType: db.ImplEEKV,
		SupportedFeatures: []db.Feature{
			db.FeatureStore, db.FeatureFind, db.FeatureRead,
			db.FeatureDelete, db.FeatureList,
			db.FeatureFormat, db.FeatureErase,
			db.FeatureSave, db.FeatureLoad,
		},
	}

	release, err := d.acquire(lockmgr.NewOwnerID())
	if err != nil {
		info.Metadata = &infoMeta{State: err.Error()}
		return info
	}
	defer release()

	meta := &infoMeta{State: d.state.String()}
	info.Metadata = meta
	info.SizeBytes = int(d.capacity)
	if d.state == stateUninitialized {
		return info
	}
	if wc, ok := d.bs.(writeCounter); ok {
		meta.NumWrites = wc.NumWrites()
	}
	if d.state != stateFormatted {
		return info
	}

	sizes := objectStats{}
	end, err := d.walk(func(e entry) bool {
		sizes.add(e.size)
		return true
	})
	if err != nil {
		meta.State = err.Error()
		return info
	}
	info.UsedBytes = int(end)
	info.Objects = sizes.count()
	meta.FreeBytes = int(d.capacity - end)
	meta.ObjectSizes = sizes.stats()
	meta.MedianSize = sizes.median()
	meta.P90Size = sizes.percentile(90)
	return info
}

func (d *DB) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureStore |
		db.FeatureFind |
		db.FeatureRead |
		db.FeatureDelete |
		db.FeatureList |
		db.FeatureFormat |
		db.FeatureErase |
		db.FeatureSave |
		db.FeatureLoad
	return supportedFeatures&feature == feature
}
