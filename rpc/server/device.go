package server

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/ValentinKolb/eeKV/lib/db/engines/eekv"
	"github.com/ValentinKolb/eeKV/lib/emeeprom"
	"github.com/ValentinKolb/eeKV/lib/flash"
	"github.com/ValentinKolb/eeKV/lib/lockmgr"
	"github.com/ValentinKolb/eeKV/lib/store"
	"github.com/ValentinKolb/eeKV/lib/store/lstore"
	"github.com/ValentinKolb/eeKV/rpc/common"
	"github.com/spf13/afero"
)

// device is the flash of one local shard together with the engine configuration placed on it
type device struct {
	rows  flash.IRowStore
	cfg   emeeprom.Config
	close func() error
}

// openDevice creates the flash of a local shard. In memory devices start erased, file
// devices keep their image in the data dir across restarts.
func openDevice(fs afero.Fs, config common.ServerConfig, shardId uint64) (*device, error) {
	geo, err := config.Device.Geometry()
	if err != nil {
		return nil, err
	}
	cfg := config.Device.Emulation()

	if config.Device.InMemory {
		return &device{
			rows:  flash.NewMemFlash(geo.Size, geo.RowSize, flash.WithBase(geo.Base)),
			cfg:   cfg,
			close: func() error { return nil },
		}, nil
	}

	if err := fs.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", config.DataDir, err)
	}
	image, err := flash.OpenFileFlash(fs, config.ImagePath(shardId), geo)
	if err != nil {
		return nil, err
	}
	if !cfg.BlockingWrite {
		// image files complete every program before returning
		Logger.Warningf("shard %d: flash image supports blocking writes only, ignoring polled mode", shardId)
		cfg.BlockingWrite = true
	}
	return &device{rows: image, cfg: cfg, close: image.Close}, nil
}

// storeDevice returns the parameters the object database of a shard is initialized with
func storeDevice(config common.ServerConfig) store.Device {
	return store.Device{
		Redundant:          config.Device.Redundant,
		WearLevelingFactor: max(1, config.Device.WearLevelingFactor),
	}
}

func dbOptions(config common.ServerConfig) *eekv.DBOptions {
	return &eekv.DBOptions{LockTimeout: time.Duration(config.TimeoutSecond) * time.Second}
}

// newLocalStoreShard creates an object store shard on its own device
func newLocalStoreShard(fs afero.Fs, config common.ServerConfig, shardId uint64) (serverShard, error) {
	dev, err := openDevice(fs, config, shardId)
	if err != nil {
		return serverShard{}, err
	}
	database := eekv.NewEEKVDB(eekv.EngineFactory(dev.rows, dev.cfg), dbOptions(config))
	s, err := lstore.NewLocalStore(func() db.ObjectDB { return database }, storeDevice(config))
	if err != nil {
		_ = dev.close()
		return serverShard{}, err
	}
	return serverShard{
		Adapter: NewIStoreServerAdapter(s),
		close: func() error {
			_ = database.Close()
			return dev.close()
		},
	}, nil
}

// newEEPROMShard creates a raw emulated EEPROM shard on its own device
func newEEPROMShard(fs afero.Fs, config common.ServerConfig, shardId uint64) (serverShard, error) {
	dev, err := openDevice(fs, config, shardId)
	if err != nil {
		return serverShard{}, err
	}
	engine, err := emeeprom.New(dev.cfg, dev.rows)
	if err != nil {
		_ = dev.close()
		return serverShard{}, err
	}
	timeout := time.Duration(config.TimeoutSecond) * time.Second
	return serverShard{
		Adapter: NewEEPROMServerAdapter(engine, lockmgr.NewLockManager(), timeout),
		close:   dev.close,
	}, nil
}

// replicaDBFactory returns the database factory of raft replicas. Every replica owns an
// in-memory device; its state is rebuilt from the raft log and snapshots on restart.
func replicaDBFactory(config common.ServerConfig) (store.DBFactory, error) {
	geo, err := config.Device.Geometry()
	if err != nil {
		return nil, err
	}
	cfg := config.Device.Emulation()
	opts := dbOptions(config)
	return func() db.ObjectDB {
		rows := flash.NewMemFlash(geo.Size, geo.RowSize, flash.WithBase(geo.Base))
		return eekv.NewEEKVDB(eekv.EngineFactory(rows, cfg), opts)
	}, nil
}
