package dstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/ValentinKolb/eeKV/lib/store"
	"github.com/ValentinKolb/eeKV/lib/store/dstore/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// snapshot kinds, first byte of every snapshot
const (
	snapshotErased byte = iota // the device carried no log
	snapshotLog                // an object log image follows
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// ObjectStateMachine is a state machine implementation for Dragonboat RAFT.
// Every replica owns its own device and applies the replicated commands to it.
type ObjectStateMachine struct {
	replicaID uint64
	shardID   uint64
	database  db.ObjectDB
	initErr   error // set if the device could not be initialized
}

// CreateStateMachineFactory returns a function that can be used by dragonboat to create a new state machine for a node host.
// The factory pattern is used to enable the caller to pass an interchangeable dbFactory
func CreateStateMachineFactory(dbFactory store.DBFactory, dev store.Device) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		fsm := &ObjectStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			database:  dbFactory(),
		}
		if err := fsm.database.Initialize(dev.Redundant, dev.WearLevelingFactor); err != nil {
			log.Errorf("shard %d replica %d: initialize device: %v", shardID, replicaID, err)
			fsm.initErr = err
		}
		return fsm
	}
}

// Lookup handles read-only queries by mapping each Query operation to the corresponding ObjectDB method.
func (fsm *ObjectStateMachine) Lookup(itf interface{}) (interface{}, error) {

	// try to parse Query into Query struct
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("invalid Query type: %T", itf))
	}
	if q.Type != internal.QueryTGetDBInfo && fsm.initErr != nil {
		return nil, store.FromError(fsm.initErr)
	}

	// Handle different Query types
	switch q.Type {
	case internal.QueryTGet:
		if !fsm.database.SupportsFeature(db.FeatureRead) {
			return nil, store.NewError(store.RetCUnsupportedOperation, "Get operation is not supported")
		}
		value, err := fsm.database.Get(q.Key)
		if errors.Is(err, db.ErrNoSuchObject) {
			return internal.QueryResult{}, nil
		}
		if err != nil {
			return nil, store.FromError(err)
		}
		return internal.QueryResult{Ok: true, Value: value}, nil
	case internal.QueryTFind:
		if !fsm.database.SupportsFeature(db.FeatureFind) {
			return nil, store.NewError(store.RetCUnsupportedOperation, "Find operation is not supported")
		}
		offset, size, err := fsm.database.Find(q.Key)
		if errors.Is(err, db.ErrNoSuchObject) {
			return internal.QueryResult{}, nil
		}
		if err != nil {
			return nil, store.FromError(err)
		}
		return internal.QueryResult{Ok: true, Info: db.ObjectInfo{Key: q.Key, Offset: offset, Size: size}}, nil
	case internal.QueryTList:
		if !fsm.database.SupportsFeature(db.FeatureList) {
			return nil, store.NewError(store.RetCUnsupportedOperation, "List operation is not supported")
		}
		objects, err := fsm.database.List()
		if err != nil {
			return nil, store.FromError(err)
		}
		return objects, nil
	case internal.QueryTGetDBInfo:
		return fsm.database.GetInfo(), nil
	default:
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown Query operation: %d", q.Type))
	}
}

// Update handles write commands on the ObjectDB instance
// All write operations are serialized into []byte and are accessible via the entries struct
func (fsm *ObjectStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {

	// Nothing to do
	if len(entries) == 0 {
		return entries, nil
	}

	// Stats
	start := time.Now()

	for idx, e := range entries {
		entries[idx].Result = fsm.apply(e.Cmd)
	}

	// Log if the update took long
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		log.Infof("state machine took long to update. Batch updated %d entries, took %.2fms", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// apply executes one serialized command and returns its result.
func (fsm *ObjectStateMachine) apply(data []byte) sm.Result {
	if len(data) == 0 {
		return result(store.NewError(store.RetCInvalidOperation, "empty command ignored"))
	}
	if fsm.initErr != nil {
		return result(store.FromError(fsm.initErr))
	}

	cmd := internal.Command{}
	if err := cmd.Deserialize(data); err != nil {
		return result(store.NewError(store.RetCInternalError, fmt.Sprintf("failed to deserialize command: %v", err)))
	}

	// Check if the db supports the operation
	feat, err := cmd.Type.ToDBFeature()
	if err != nil {
		return result(store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown Command operation: %s", cmd.Type)))
	}
	if !fsm.database.SupportsFeature(feat) {
		return result(store.NewError(store.RetCUnsupportedOperation, fmt.Sprintf("%s operation is not supported", cmd.Type)))
	}

	switch cmd.Type {
	case internal.CommandTStore:
		err = fsm.database.Store(cmd.Key, cmd.Value)
	case internal.CommandTDelete:
		err = fsm.database.Delete(cmd.Key)
	case internal.CommandTFormat:
		err = fsm.database.Format()
	case internal.CommandTErase:
		err = fsm.database.Erase()
	}
	if err != nil {
		return result(store.FromError(err))
	}
	return sm.Result{
		Value: uint64(store.RetCSuccess),
		Data:  []byte(fmt.Sprintf("%s: key=0x%02x", cmd.Type, uint8(cmd.Key))),
	}
}

func result(err *store.Error) sm.Result {
	return sm.Result{Value: uint64(err.Code), Data: []byte(err.Msg)}
}

// PrepareSnapshot captures the object log while no update is running.
// SaveSnapshot then writes the captured image concurrently with new updates.
func (fsm *ObjectStateMachine) PrepareSnapshot() (interface{}, error) {
	if !fsm.database.SupportsFeature(db.FeatureSave) {
		return nil, fmt.Errorf("the used ObjectDB implementation does not support Save() operations")
	}
	var buf bytes.Buffer
	buf.WriteByte(snapshotLog)
	err := fsm.database.Save(&buf)
	if errors.Is(err, db.ErrStoreUnformatted) {
		return []byte{snapshotErased}, nil
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveSnapshot writes the image captured by PrepareSnapshot
func (fsm *ObjectStateMachine) SaveSnapshot(ctx interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	image, ok := ctx.([]byte)
	if !ok {
		return fmt.Errorf("invalid snapshot context type: %T", ctx)
	}
	_, err := writer.Write(image)
	return err
}

// RecoverFromSnapshot replaces the contents of the device with the snapshot.
func (fsm *ObjectStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	if !fsm.database.SupportsFeature(db.FeatureLoad | db.FeatureErase) {
		return fmt.Errorf("the used ObjectDB implementation does not support Load() operations")
	}
	if fsm.initErr != nil {
		return fsm.initErr
	}

	kind := make([]byte, 1)
	if _, err := io.ReadFull(r, kind); err != nil {
		return fmt.Errorf("read snapshot kind: %w", err)
	}
	switch kind[0] {
	case snapshotErased:
		return fsm.database.Erase()
	case snapshotLog:
		return fsm.database.Load(r)
	default:
		return fmt.Errorf("unknown snapshot kind %d", kind[0])
	}
}

// Close performs any necessary cleanup.
func (fsm *ObjectStateMachine) Close() error {
	return fsm.database.Close()
}
