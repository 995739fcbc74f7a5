package client

import (
	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/ValentinKolb/eeKV/lib/store"
	"github.com/ValentinKolb/eeKV/rpc/common"
	"github.com/ValentinKolb/eeKV/rpc/serializer"
	"github.com/ValentinKolb/eeKV/rpc/transport"
)

// RPCStore is a store.IStore whose operations run on a remote shard
type RPCStore interface {
	store.IStore
	// Close closes the transport of the client
	Close() error
}

// NewRPCStore creates a new RPC store
// The function takes a shard ID, a config, a transport and a serializer as parameters
// It returns an RPCStore and an error
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (RPCStore, error) {
	adapter, err := newRPCClientAdapter(shardId, config, transport, serializer)
	if err != nil {
		return nil, err
	}
	return &rpcStore{adapter}, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Store(key db.Key, value []byte) error {
	_, err := i.invoke(common.NewStoreRequest(key, value))
	return err
}

func (i *rpcStore) Get(key db.Key) ([]byte, bool, error) {
	resp, err := i.invoke(common.NewGetRequest(key))
	if err != nil {
		return nil, false, err
	}
	if !resp.Ok {
		return nil, false, nil
	}
	// empty objects arrive without a value for the json and gob serializers
	if resp.Value == nil {
		return []byte{}, true, nil
	}
	return resp.Value, true, nil
}

func (i *rpcStore) Find(key db.Key) (db.ObjectInfo, bool, error) {
	resp, err := i.invoke(common.NewFindRequest(key))
	if err != nil || !resp.Ok {
		return db.ObjectInfo{}, false, err
	}
	return db.ObjectInfo{Key: db.Key(resp.Key), Offset: resp.Addr, Size: resp.Size}, true, nil
}

func (i *rpcStore) Delete(key db.Key) error {
	_, err := i.invoke(common.NewDeleteRequest(key))
	return err
}

func (i *rpcStore) List() ([]db.ObjectInfo, error) {
	resp, err := i.invoke(common.NewRequest(common.MsgTObjList))
	if err != nil {
		return nil, err
	}
	var objects []db.ObjectInfo
	if err := resp.DecodeMeta(&objects); err != nil {
		return nil, err
	}
	return objects, nil
}

func (i *rpcStore) Format() error {
	_, err := i.invoke(common.NewRequest(common.MsgTObjFormat))
	return err
}

func (i *rpcStore) Erase() error {
	_, err := i.invoke(common.NewRequest(common.MsgTObjErase))
	return err
}

// GetDBInfo returns the info of the remote database. The metadata arrives as a generic map.
func (i *rpcStore) GetDBInfo() (db.DatabaseInfo, error) {
	resp, err := i.invoke(common.NewRequest(common.MsgTObjInfo))
	if err != nil {
		return db.DatabaseInfo{}, err
	}
	var info db.DatabaseInfo
	if err := resp.DecodeMeta(&info); err != nil {
		return db.DatabaseInfo{}, err
	}
	return info, nil
}
