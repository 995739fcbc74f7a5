// Package dstore implements a replicated object store on top of the Dragonboat RAFT
// consensus library. Every replica owns its own device (an emulated EEPROM on its own
// flash) and applies the same sequence of commands to it, so all devices carry the
// same object log.
//
// Architecture:
//
//   - Store Client: implements store.IStore. It serializes mutations into commands,
//     proposes them to the shard and converts the result codes into *store.Error.
//
//   - State Machine: a Dragonboat IConcurrentStateMachine holding the db.ObjectDB of
//     the replica. Update applies commands, Lookup answers queries.
//
//   - Protocol: the Command and Query types of the internal package.
//
// Write Operations:
//
//	Store, Delete, Format and Erase are proposed via SyncPropose. Once committed, the
//	command is executed by the state machine of every replica. The result of the local
//	replica is returned to the caller: a NoSpace or SizeMismatch on the device reaches
//	the client as the matching return code.
//
// Read Operations:
//
//	Get, Find and List use SyncRead and therefore see every committed mutation.
//	GetDBInfo uses StaleRead.
//
// Snapshotting and Recovery:
//
//	PrepareSnapshot captures the object log with db.ObjectDB.Save while no update
//	runs, SaveSnapshot streams the captured image. An erased device is captured as
//	an erase marker. RecoverFromSnapshot formats the device and loads the objects of
//	the snapshot (or erases the device for an erase marker), after which the replica
//	receives the log entries committed since the snapshot.
//
//	The device is not erased when a replica starts. A restarted replica whose flash
//	image survived recovers its log from the flash and is then brought up to date by
//	snapshot and log replay.
//
// Error Handling and Retries:
//
//	When Dragonboat returns ErrSystemBusy the operation is retried after a short delay,
//	up to five attempts. All operations are bounded by the configured timeout.
//
// Example:
//
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//
//	dbFactory := func() db.ObjectDB {
//		return eekv.NewEEKVDB(eekv.MemoryFactory(1024, 128), nil)
//	}
//	err = nh.StartConcurrentReplica(
//		clusterMembers,
//		false,
//		dstore.CreateStateMachineFactory(dbFactory, store.Device{WearLevelingFactor: 2}),
//		shardConfig)
//
//	s := dstore.NewDistributedStore(nh, shardID, 5*time.Second)
package dstore
