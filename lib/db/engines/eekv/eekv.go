package eekv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/ValentinKolb/eeKV/lib/emeeprom"
	"github.com/ValentinKolb/eeKV/lib/lockmgr"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("eekv")

// --------------------------------------------------------------------------
// Byte store
// --------------------------------------------------------------------------

// IByteStore is the byte addressable store the log lives on.
// *emeeprom.Engine implements it.
type IByteStore interface {
	Size() uint32
	Read(addr uint32, buf []byte) error
	Write(addr uint32, data []byte) error
	Erase() error
}

// ByteStoreFactory creates the byte store when the database is initialized.
type ByteStoreFactory func(redundant bool, wearLevelingFactor uint32) (IByteStore, error)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// DBOptions configures the database
type DBOptions struct {
	LockTimeout time.Duration // Maximum wait for the store lock (0 = wait forever)
}

// DefaultOptions returns the default options
func DefaultOptions() *DBOptions {
	return &DBOptions{}
}

// --------------------------------------------------------------------------
// Database
// --------------------------------------------------------------------------

type state uint8

const (
	stateUninitialized state = iota
	stateUnformatted
	stateFormatted
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateUnformatted:
		return "unformatted"
	default:
		return "formatted"
	}
}

// DB is an object log on a byte store. It implements db.ObjectDB.
type DB struct {
	factory ByteStoreFactory
	opts    *DBOptions
	lock    lockmgr.ILockManager

	bs       IByteStore
	capacity uint32
	state    state
}

var _ db.ObjectDB = (*DB)(nil)

// NewEEKVDB creates an uninitialized database. The byte store is created by factory
// on the first call to Initialize.
func NewEEKVDB(factory ByteStoreFactory, opts *DBOptions) *DB {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &DB{
		factory: factory,
		opts:    opts,
		lock:    lockmgr.NewLockManager(),
	}
}

// acquire takes the store lock for owner and returns the matching release function.
func (d *DB) acquire(owner lockmgr.OwnerID) (func(), error) {
	ctx := context.Background()
	if d.opts.LockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.LockTimeout)
		defer cancel()
	}
	if err := d.lock.Acquire(ctx, owner); err != nil {
		return nil, fmt.Errorf("eekv: acquire store lock: %w", err)
	}
	return func() { _ = d.lock.Release(owner) }, nil
}

// ready checks that object operations are allowed. Caller holds the lock.
func (d *DB) ready() error {
	switch d.state {
	case stateUninitialized:
		return db.ErrNotInitialized
	case stateUnformatted:
		return db.ErrStoreUnformatted
	}
	return nil
}

// read reads from the byte store, accepting data recovered from a redundant copy.
func (d *DB) read(addr uint32, buf []byte) error {
	return d.tolerate(d.bs.Read(addr, buf), "read", addr, len(buf))
}

// write writes to the byte store, accepting data carried over from a redundant copy.
func (d *DB) write(addr uint32, data []byte) error {
	return d.tolerate(d.bs.Write(addr, data), "write", addr, len(data))
}

func (d *DB) tolerate(err error, op string, addr uint32, n int) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, emeeprom.ErrRedundantCopyUsed) {
		redundantReads.Inc()
		log.Warningf("%s [%d, +%d): %v", op, addr, n, err)
		return nil
	}
	return fmt.Errorf("eekv: %s [%d, +%d): %w", op, addr, n, err)
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func (d *DB) Initialize(redundant bool, wearLevelingFactor uint32) error {
	owner := lockmgr.NewOwnerID()
	release, err := d.acquire(owner)
	if err != nil {
		return err
	}
	defer release()

	if d.state == stateUninitialized {
		bs, err := d.factory(redundant, wearLevelingFactor)
		if err != nil {
			return fmt.Errorf("eekv: create byte store: %w", err)
		}
		if bs.Size() <= signatureSize {
			return fmt.Errorf("%w: byte store of %d bytes cannot hold a log", db.ErrBadParam, bs.Size())
		}
		d.bs, d.capacity, d.state = bs, bs.Size(), stateUnformatted
		log.Infof("initialized store with %d bytes (redundant=%v, wlf=%d)", d.capacity, redundant, wearLevelingFactor)
	}
	if d.state == stateFormatted {
		return nil
	}

	sig := make([]byte, signatureSize)
	if err := d.read(0, sig); err != nil {
		return err
	}
	if bytes.Equal(sig, signature[:]) {
		d.state = stateFormatted
		return nil
	}
	log.Infof("no signature found, formatting store")
	return d.format(owner)
}

func (d *DB) Format() error {
	return d.format(lockmgr.NewOwnerID())
}

func (d *DB) format(owner lockmgr.OwnerID) error {
	release, err := d.acquire(owner)
	if err != nil {
		return err
	}
	defer release()

	if d.state == stateUninitialized {
		return db.ErrNotInitialized
	}
	empty := append(signature[:], byte(db.SentinelKey))
	if err := d.write(0, empty); err != nil {
		return err
	}
	d.state = stateFormatted
	opsFormat.Inc()
	return nil
}

func (d *DB) Erase() error {
	release, err := d.acquire(lockmgr.NewOwnerID())
	if err != nil {
		return err
	}
	defer release()

	if d.state == stateUninitialized {
		return db.ErrNotInitialized
	}
	d.state = stateUnformatted
	opsErase.Inc()
	if err := d.bs.Erase(); err != nil {
		return fmt.Errorf("eekv: erase: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	release, err := d.acquire(lockmgr.NewOwnerID())
	if err != nil {
		return err
	}
	defer release()

	d.bs, d.capacity, d.state = nil, 0, stateUninitialized
	return nil
}

// --------------------------------------------------------------------------
// Object Operations
// --------------------------------------------------------------------------

func (d *DB) Find(key db.Key) (uint32, uint32, error) {
	e, err := d.lookup(key)
	if err != nil {
		return 0, 0, err
	}
	return e.offset, e.size, nil
}

// lookup finds the entry of key under the store lock.
func (d *DB) lookup(key db.Key) (entry, error) {
	if !key.Valid() {
		return entry{}, keyError(key)
	}
	release, err := d.acquire(lockmgr.NewOwnerID())
	if err != nil {
		return entry{}, err
	}
	defer release()

	return d.lookupLocked(key)
}

func (d *DB) lookupLocked(key db.Key) (entry, error) {
	if err := d.ready(); err != nil {
		return entry{}, err
	}
	found, _, err := d.find(key)
	if err != nil {
		return entry{}, err
	}
	if found == nil {
		return entry{}, noObject(key)
	}
	return *found, nil
}

func (d *DB) Store(key db.Key, value []byte) error {
	err := d.storeObject(lockmgr.NewOwnerID(), key, value, true)
	if err == nil {
		opsStore.Inc()
	}
	return err
}

// storeObject writes value under key. A size change deletes the old entry and
// retries once with retry set to false.
func (d *DB) storeObject(owner lockmgr.OwnerID, key db.Key, value []byte, retry bool) error {
	if !key.Valid() {
		return keyError(key)
	}
	release, err := d.acquire(owner)
	if err != nil {
		return err
	}
	defer release()

	if err := d.ready(); err != nil {
		return err
	}
	found, end, err := d.find(key)
	if err != nil {
		return err
	}
	size := uint64(len(value))

	if found != nil {
		if uint64(found.size) == size {
			if size == 0 {
				return nil
			}
			return d.write(found.payloadOffset(), value)
		}
		if !retry {
			return fmt.Errorf("%w: key 0x%02x holds %d bytes, want %d", db.ErrSizeMismatch, uint8(key), found.size, size)
		}
		if uint64(end)-uint64(found.total())+entryHeaderSize+size > uint64(d.capacity) {
			return fmt.Errorf("%w: %d bytes for key 0x%02x", db.ErrNoSpace, size, uint8(key))
		}
		if err := d.deleteObject(owner, key); err != nil {
			return err
		}
		return d.storeObject(owner, key, value, false)
	}

	next := uint64(end) + entryHeaderSize + size
	if next > uint64(d.capacity) {
		return fmt.Errorf("%w: %d bytes for key 0x%02x", db.ErrNoSpace, size, uint8(key))
	}
	// terminate the log behind the new entry before the entry replaces the old sentinel
	if next < uint64(d.capacity) {
		if err := d.write(uint32(next), []byte{byte(db.SentinelKey)}); err != nil {
			return err
		}
	}
	return d.write(end, encodeEntry(key, value, false))
}

func (d *DB) Read(key db.Key, buf []byte) (int, error) {
	if !key.Valid() {
		return 0, keyError(key)
	}
	release, err := d.acquire(lockmgr.NewOwnerID())
	if err != nil {
		return 0, err
	}
	defer release()

	e, err := d.lookupLocked(key)
	if err != nil {
		return 0, err
	}
	n := min(int(e.size), len(buf))
	if n > 0 {
		if err := d.read(e.payloadOffset(), buf[:n]); err != nil {
			return 0, err
		}
	}
	if n < int(e.size) {
		return n, fmt.Errorf("%w: %d of %d bytes", db.ErrPartialRead, n, e.size)
	}
	return n, nil
}

func (d *DB) Get(key db.Key) ([]byte, error) {
	if !key.Valid() {
		return nil, keyError(key)
	}
	release, err := d.acquire(lockmgr.NewOwnerID())
	if err != nil {
		return nil, err
	}
	defer release()

	e, err := d.lookupLocked(key)
	if err != nil {
		return nil, err
	}
	value := make([]byte, e.size)
	if e.size > 0 {
		if err := d.read(e.payloadOffset(), value); err != nil {
			return nil, err
		}
	}
	return value, nil
}

func (d *DB) Delete(key db.Key) error {
	err := d.deleteObject(lockmgr.NewOwnerID(), key)
	if err == nil {
		opsDelete.Inc()
	}
	return err
}

// deleteObject removes the entry of key and shifts all following entries left.
func (d *DB) deleteObject(owner lockmgr.OwnerID, key db.Key) error {
	if !key.Valid() {
		return keyError(key)
	}
	release, err := d.acquire(owner)
	if err != nil {
		return err
	}
	defer release()

	victim, err := d.lookupLocked(key)
	if err != nil {
		return err
	}

	dst, src := victim.offset, victim.end()
	for {
		e, last, err := d.entryAt(src)
		if err != nil {
			return err
		}
		if last {
			break
		}
		buf := make([]byte, e.total())
		if err := d.read(src, buf); err != nil {
			return err
		}
		if err := d.write(dst, buf); err != nil {
			return err
		}
		dst += e.total()
		src = e.end()
	}

	if dst < d.capacity {
		return d.write(dst, []byte{byte(db.SentinelKey)})
	}
	return nil
}

func (d *DB) List() ([]db.ObjectInfo, error) {
	release, err := d.acquire(lockmgr.NewOwnerID())
	if err != nil {
		return nil, err
	}
	defer release()

	if err := d.ready(); err != nil {
		return nil, err
	}
	var objects []db.ObjectInfo
	_, err = d.walk(func(e entry) bool {
		objects = append(objects, e.info())
		return true
	})
	return objects, err
}
