package server

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/eeKV/lib/emeeprom"
	"github.com/ValentinKolb/eeKV/lib/lockmgr"
	"github.com/ValentinKolb/eeKV/lib/store"
	"github.com/ValentinKolb/eeKV/rpc/common"
)

// IEEPROM is the raw emulated EEPROM an eeprom shard serves. *emeeprom.Engine implements it.
type IEEPROM interface {
	Size() uint32
	Read(addr uint32, buf []byte) error
	Write(addr uint32, data []byte) error
	Erase() error
	NumWrites() uint32
	Info() emeeprom.Info
	Rows() []emeeprom.RowInfo
}

var _ IEEPROM = (*emeeprom.Engine)(nil)

// NewEEPROMServerAdapter creates an adapter serving the raw operations of dev.
// The engine is not safe for concurrent use, every request holds lock while it runs.
// timeout bounds the wait for the lock (0 = wait forever).
func NewEEPROMServerAdapter(dev IEEPROM, lock lockmgr.ILockManager, timeout time.Duration) IRPCServerAdapter {
	return &eepromServerAdapterImpl{dev: dev, lock: lock, timeout: timeout}
}

type eepromServerAdapterImpl struct {
	dev     IEEPROM
	lock    lockmgr.ILockManager
	timeout time.Duration
}

func (adapter *eepromServerAdapterImpl) Handle(req *common.Message) *common.Message {
	if adapter.dev == nil {
		return common.NewErrorResponse("handler: eeprom is nil")
	}

	release, err := adapter.acquire()
	if err != nil {
		return common.NewResponse(req.MsgType, store.NewError(store.RetCInternalError, err.Error()))
	}
	defer release()

	dev := adapter.dev
	switch req.MsgType {
	case common.MsgTEEPRead:
		// checked before allocating, the engine rejects the same range
		if uint64(req.Addr)+uint64(req.Size) > uint64(dev.Size()) {
			return common.NewResponse(req.MsgType, store.NewError(store.RetCBadParam,
				fmt.Sprintf("read of %d bytes at %d exceeds the eeprom size %d", req.Size, req.Addr, dev.Size())))
		}
		buf := make([]byte, req.Size)
		err := dev.Read(req.Addr, buf)
		return common.NewEEPROMReadResponse(buf, err)
	case common.MsgTEEPWrite:
		return common.NewResponse(req.MsgType, dev.Write(req.Addr, req.Value))
	case common.MsgTEEPErase:
		return common.NewResponse(req.MsgType, dev.Erase())
	case common.MsgTEEPNumWrites:
		return common.NewEEPROMNumWritesResponse(dev.NumWrites(), nil)
	case common.MsgTEEPRows:
		return common.NewMetaResponse(req.MsgType, dev.Rows(), nil)
	case common.MsgTEEPInfo:
		return common.NewMetaResponse(req.MsgType, dev.Info(), nil)
	default:
		return unsupported("EEPROMAdapter", req.MsgType)
	}
}

func (adapter *eepromServerAdapterImpl) acquire() (func(), error) {
	ctx := context.Background()
	if adapter.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, adapter.timeout)
		defer cancel()
	}
	owner := lockmgr.NewOwnerID()
	if err := adapter.lock.Acquire(ctx, owner); err != nil {
		return nil, fmt.Errorf("eeprom busy: %w", err)
	}
	return func() { _ = adapter.lock.Release(owner) }, nil
}
