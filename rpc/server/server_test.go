package server

import (
	"testing"

	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/ValentinKolb/eeKV/lib/emeeprom"
	"github.com/ValentinKolb/eeKV/lib/store"
	"github.com/ValentinKolb/eeKV/rpc/common"
	"github.com/ValentinKolb/eeKV/rpc/serializer"
	"github.com/ValentinKolb/eeKV/rpc/transport"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const (
	storeShard  = 1
	eepromShard = 2
)

// nopTransport never listens, requests are passed to RPCServer.handle directly
type nopTransport struct {
	handler transport.ServerHandleFunc
}

func (t *nopTransport) RegisterHandler(h transport.ServerHandleFunc) { t.handler = h }
func (t *nopTransport) Listen(common.ServerConfig) error             { return nil }
func (t *nopTransport) Close() error                                 { return nil }

func testConfig(inMemory bool) common.ServerConfig {
	return common.ServerConfig{
		Shards: []common.ServerShard{
			{ShardID: storeShard, Type: common.ShardTypeLocalIStore},
			{ShardID: eepromShard, Type: common.ShardTypeEEPROM},
		},
		DataDir:       "/data",
		TimeoutSecond: 1,
		LogLevel:      "error",
		Device: common.DeviceConfig{
			EepromSize:         256,
			RowSize:            128,
			WearLevelingFactor: 2,
			Redundant:          true,
			InMemory:           inMemory,
		},
	}
}

func newTestServer(t *testing.T, config common.ServerConfig, fs afero.Fs) *RPCServer {
	t.Helper()
	s := NewRPCServer(config, &nopTransport{}, serializer.NewBinarySerializer(), WithFs(fs))
	require.NoError(t, s.init())
	t.Cleanup(s.release)
	return s
}

// call runs req on a shard through the serialized request path
func call(t *testing.T, s *RPCServer, shardId uint64, req *common.Message) *common.Message {
	t.Helper()
	data, err := s.serializer.Serialize(*req)
	require.NoError(t, err)

	var resp common.Message
	require.NoError(t, s.serializer.Deserialize(s.handle(shardId, data), &resp))
	return &resp
}

func TestObjectShard(t *testing.T) {
	s := newTestServer(t, testConfig(true), afero.NewMemMapFs())

	resp := call(t, s, storeShard, common.NewStoreRequest(4, []byte("four")))
	require.NoError(t, resp.Error())

	resp = call(t, s, storeShard, common.NewGetRequest(4))
	require.NoError(t, resp.Error())
	require.True(t, resp.Ok)
	require.Equal(t, []byte("four"), resp.Value)

	resp = call(t, s, storeShard, common.NewFindRequest(4))
	require.True(t, resp.Ok)
	require.Equal(t, uint32(4), resp.Size)

	resp = call(t, s, storeShard, common.NewGetRequest(5))
	require.NoError(t, resp.Error())
	require.False(t, resp.Ok)

	resp = call(t, s, storeShard, common.NewDeleteRequest(5))
	require.ErrorIs(t, resp.Error(), db.ErrNoSuchObject)

	resp = call(t, s, storeShard, common.NewStoreRequest(db.SentinelKey, []byte("x")))
	require.ErrorIs(t, resp.Error(), db.ErrInvalidKey)

	resp = call(t, s, storeShard, common.NewRequest(common.MsgTObjList))
	var objects []db.ObjectInfo
	require.NoError(t, resp.DecodeMeta(&objects))
	require.Len(t, objects, 1)
	require.Equal(t, db.Key(4), objects[0].Key)

	resp = call(t, s, storeShard, common.NewRequest(common.MsgTObjInfo))
	var info db.DatabaseInfo
	require.NoError(t, resp.DecodeMeta(&info))
	require.Equal(t, 1, info.Objects)
	require.Equal(t, db.ImplEEKV, info.DbType)

	resp = call(t, s, storeShard, common.NewRequest(common.MsgTObjErase))
	require.NoError(t, resp.Error())
	resp = call(t, s, storeShard, common.NewGetRequest(4))
	require.ErrorIs(t, resp.Error(), db.ErrStoreUnformatted)

	resp = call(t, s, storeShard, common.NewRequest(common.MsgTObjFormat))
	require.NoError(t, resp.Error())
	resp = call(t, s, storeShard, common.NewGetRequest(4))
	require.NoError(t, resp.Error())
	require.False(t, resp.Ok)
}

func TestEEPROMShard(t *testing.T) {
	s := newTestServer(t, testConfig(true), afero.NewMemMapFs())

	resp := call(t, s, eepromShard, common.NewEEPROMWriteRequest(10, []byte("hello")))
	require.NoError(t, resp.Error())

	resp = call(t, s, eepromShard, common.NewEEPROMReadRequest(8, 9))
	require.NoError(t, resp.Error())
	require.Equal(t, []byte("\x00\x00hello\x00\x00"), resp.Value)

	resp = call(t, s, eepromShard, common.NewRequest(common.MsgTEEPNumWrites))
	require.Equal(t, uint32(1), resp.Size)

	resp = call(t, s, eepromShard, common.NewEEPROMReadRequest(250, 10))
	require.ErrorIs(t, resp.Error(), db.ErrBadParam)
	require.Nil(t, resp.Value)

	resp = call(t, s, eepromShard, common.NewRequest(common.MsgTEEPInfo))
	var info emeeprom.Info
	require.NoError(t, resp.DecodeMeta(&info))
	require.Equal(t, uint32(4), info.NumberOfRows)
	require.Equal(t, uint32(8), info.PhysicalRows)

	resp = call(t, s, eepromShard, common.NewRequest(common.MsgTEEPRows))
	var rows []emeeprom.RowInfo
	require.NoError(t, resp.DecodeMeta(&rows))
	require.Len(t, rows, 16)
	// the first write lands in row 1
	require.Equal(t, emeeprom.RowNeverWritten, rows[0].State)
	require.Equal(t, emeeprom.RowValid, rows[1].State)
	require.True(t, rows[9].Mirror)
	require.Equal(t, emeeprom.RowValid, rows[9].State)

	resp = call(t, s, eepromShard, common.NewRequest(common.MsgTEEPErase))
	require.NoError(t, resp.Error())
	resp = call(t, s, eepromShard, common.NewEEPROMReadRequest(10, 5))
	require.Equal(t, make([]byte, 5), resp.Value)
}

func TestShardsRejectForeignOperations(t *testing.T) {
	s := newTestServer(t, testConfig(true), afero.NewMemMapFs())

	resp := call(t, s, eepromShard, common.NewGetRequest(1))
	requireCode(t, resp.Error(), store.RetCUnsupportedOperation)

	resp = call(t, s, storeShard, common.NewEEPROMReadRequest(0, 1))
	requireCode(t, resp.Error(), store.RetCUnsupportedOperation)
}

func TestUnknownShard(t *testing.T) {
	s := newTestServer(t, testConfig(true), afero.NewMemMapFs())

	resp := call(t, s, 99, common.NewGetRequest(1))
	require.Equal(t, common.MsgTError, resp.MsgType)
	require.Contains(t, resp.Err, "shard 99 not found")
}

func TestGarbageRequest(t *testing.T) {
	s := newTestServer(t, testConfig(true), afero.NewMemMapFs())

	var resp common.Message
	require.NoError(t, s.serializer.Deserialize(s.handle(storeShard, []byte{1}), &resp))
	require.Equal(t, common.MsgTError, resp.MsgType)
}

func TestFileDeviceSurvivesRestart(t *testing.T) {
	fs := afero.NewMemMapFs()
	config := testConfig(false)

	first := NewRPCServer(config, &nopTransport{}, serializer.NewBinarySerializer(), WithFs(fs))
	require.NoError(t, first.init())
	require.NoError(t, call(t, first, storeShard, common.NewStoreRequest(3, []byte("kept"))).Error())
	require.NoError(t, call(t, first, eepromShard, common.NewEEPROMWriteRequest(0, []byte("raw"))).Error())
	first.release()

	exists, err := afero.Exists(fs, config.ImagePath(storeShard))
	require.NoError(t, err)
	require.True(t, exists)

	second := newTestServer(t, config, fs)
	resp := call(t, second, storeShard, common.NewGetRequest(3))
	require.True(t, resp.Ok)
	require.Equal(t, []byte("kept"), resp.Value)

	resp = call(t, second, eepromShard, common.NewEEPROMReadRequest(0, 3))
	require.NoError(t, resp.Error())
	require.Equal(t, []byte("raw"), resp.Value)
}

func TestDuplicateShard(t *testing.T) {
	config := testConfig(true)
	config.Shards = append(config.Shards, common.ServerShard{ShardID: storeShard, Type: common.ShardTypeEEPROM})

	s := NewRPCServer(config, &nopTransport{}, serializer.NewBinarySerializer(), WithFs(afero.NewMemMapFs()))
	require.Error(t, s.init())
	s.release()
}

func TestInvalidDevice(t *testing.T) {
	config := testConfig(true)
	config.Device.WearLevelingFactor = 11

	s := NewRPCServer(config, &nopTransport{}, serializer.NewBinarySerializer(), WithFs(afero.NewMemMapFs()))
	require.Error(t, s.init())
	s.release()
}

func requireCode(t *testing.T, err error, code store.RetCode) {
	t.Helper()
	var se *store.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, code, se.Code)
}
