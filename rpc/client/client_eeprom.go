package client

import (
	"errors"

	"github.com/ValentinKolb/eeKV/lib/emeeprom"
	"github.com/ValentinKolb/eeKV/rpc/common"
	"github.com/ValentinKolb/eeKV/rpc/serializer"
	"github.com/ValentinKolb/eeKV/rpc/transport"
)

// RPCEEPROM gives byte level access to the emulated EEPROM of an eeprom shard.
type RPCEEPROM interface {
	// Read returns n bytes starting at addr. If the device reports a checksum failure or
	// a read served by the redundant copy, the data is returned next to the error.
	Read(addr, n uint32) (data []byte, err error)
	// Write writes data starting at addr
	Write(addr uint32, data []byte) error
	// Erase erases the whole emulated EEPROM
	Erase() error
	// NumWrites returns the number of writes since the last erase
	NumWrites() (uint32, error)
	// Rows returns the decoded header of every physical row
	Rows() ([]emeeprom.RowInfo, error)
	// Info returns the geometry of the remote engine
	Info() (emeeprom.Info, error)
	// Close closes the transport of the client
	Close() error
}

// NewRPCEEPROM creates a client for the eeprom shard shardId
func NewRPCEEPROM(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (RPCEEPROM, error) {
	adapter, err := newRPCClientAdapter(shardId, config, transport, serializer)
	if err != nil {
		return nil, err
	}
	return &rpcEEPROM{adapter}, nil
}

type rpcEEPROM struct {
	rpcClientAdapter
}

func (e *rpcEEPROM) Read(addr, n uint32) ([]byte, error) {
	resp, err := e.invoke(common.NewEEPROMReadRequest(addr, n))
	if resp == nil {
		return nil, err
	}
	data := resp.Value
	if data == nil && err == nil {
		data = []byte{}
	}
	if uint32(len(data)) != n && err == nil {
		return nil, errors.New("RPC client - read response has the wrong length")
	}
	return data, err
}

func (e *rpcEEPROM) Write(addr uint32, data []byte) error {
	_, err := e.invoke(common.NewEEPROMWriteRequest(addr, data))
	return err
}

func (e *rpcEEPROM) Erase() error {
	_, err := e.invoke(common.NewRequest(common.MsgTEEPErase))
	return err
}

func (e *rpcEEPROM) NumWrites() (uint32, error) {
	resp, err := e.invoke(common.NewRequest(common.MsgTEEPNumWrites))
	if err != nil {
		return 0, err
	}
	return resp.Size, nil
}

func (e *rpcEEPROM) Rows() ([]emeeprom.RowInfo, error) {
	resp, err := e.invoke(common.NewRequest(common.MsgTEEPRows))
	if err != nil {
		return nil, err
	}
	// nil for simple mode engines
	var rows []emeeprom.RowInfo
	if err := resp.DecodeMeta(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (e *rpcEEPROM) Info() (emeeprom.Info, error) {
	resp, err := e.invoke(common.NewRequest(common.MsgTEEPInfo))
	if err != nil {
		return emeeprom.Info{}, err
	}
	var info emeeprom.Info
	if err := resp.DecodeMeta(&info); err != nil {
		return emeeprom.Info{}, err
	}
	return info, nil
}
