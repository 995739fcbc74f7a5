package eekv

import (
	"github.com/ValentinKolb/eeKV/lib/emeeprom"
	"github.com/ValentinKolb/eeKV/lib/flash"
)

// EngineFactory returns a factory that places an emulated EEPROM with cfg on store.
// The redundancy and wear leveling factor passed to Initialize override the ones in cfg.
func EngineFactory(store flash.IRowStore, cfg emeeprom.Config) ByteStoreFactory {
	return func(redundant bool, wearLevelingFactor uint32) (IByteStore, error) {
		cfg.RedundantCopy = redundant
		cfg.WearLevelingFactor = wearLevelingFactor
		engine, err := emeeprom.New(cfg, store)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}

// MemoryFactory returns a factory for a store of capacity bytes on fresh in-memory
// flash. The flash is sized for the parameters passed to Initialize.
func MemoryFactory(capacity, rowSize uint32) ByteStoreFactory {
	return func(redundant bool, wearLevelingFactor uint32) (IByteStore, error) {
		cfg := emeeprom.Config{
			EepromSize:         capacity,
			WearLevelingFactor: wearLevelingFactor,
			RedundantCopy:      redundant,
			StartAddr:          flash.DefaultBase,
		}
		size := emeeprom.PhysicalSize(cfg, rowSize)
		if size == 0 || size > uint64(^uint32(0)-flash.DefaultBase) {
			return nil, emeeprom.ErrBadData
		}
		engine, err := emeeprom.New(cfg, flash.NewMemFlash(uint32(size), rowSize))
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}
