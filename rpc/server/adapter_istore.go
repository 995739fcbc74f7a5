package server

import (
	"fmt"

	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/ValentinKolb/eeKV/lib/store"
	"github.com/ValentinKolb/eeKV/rpc/common"
)

// NewIStoreServerAdapter creates an adapter serving the object operations of s
func NewIStoreServerAdapter(s store.IStore) IRPCServerAdapter {
	return &iStoreServerAdapterImpl{store: s}
}

type iStoreServerAdapterImpl struct {
	store store.IStore
}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message) *common.Message {
	if adapter.store == nil {
		return common.NewErrorResponse("handler: store is nil")
	}
	s := adapter.store
	key := db.Key(req.Key)

	switch req.MsgType {
	case common.MsgTObjStore:
		return common.NewResponse(req.MsgType, s.Store(key, req.Value))
	case common.MsgTObjGet:
		val, ok, err := s.Get(key)
		return common.NewGetResponse(val, ok, err)
	case common.MsgTObjFind:
		info, ok, err := s.Find(key)
		return common.NewFindResponse(info, ok, err)
	case common.MsgTObjDelete:
		return common.NewResponse(req.MsgType, s.Delete(key))
	case common.MsgTObjList:
		objects, err := s.List()
		return common.NewMetaResponse(req.MsgType, objects, err)
	case common.MsgTObjFormat:
		return common.NewResponse(req.MsgType, s.Format())
	case common.MsgTObjErase:
		return common.NewResponse(req.MsgType, s.Erase())
	case common.MsgTObjInfo:
		info, err := s.GetDBInfo()
		return common.NewMetaResponse(req.MsgType, info, err)
	default:
		return unsupported("IStoreAdapter", req.MsgType)
	}
}

func unsupported(adapter string, t common.MessageType) *common.Message {
	resp := common.NewErrorResponse(fmt.Sprintf("RPC %s - Unsupported message type: %s", adapter, t))
	resp.Code = uint64(store.RetCUnsupportedOperation)
	return resp
}
