package client

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/ValentinKolb/eeKV/lib/emeeprom"
	"github.com/ValentinKolb/eeKV/lib/store"
	"github.com/ValentinKolb/eeKV/rpc/common"
	"github.com/ValentinKolb/eeKV/rpc/serializer"
	"github.com/ValentinKolb/eeKV/rpc/server"
	"github.com/ValentinKolb/eeKV/rpc/transport/unix"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const (
	storeShard  = 1
	eepromShard = 2
)

// startServer runs a server with an object shard and an eeprom shard on in-memory devices
func startServer(t *testing.T, s serializer.IRPCSerializer) common.ClientConfig {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "eekv.sock")

	config := common.ServerConfig{
		Shards: []common.ServerShard{
			{ShardID: storeShard, Type: common.ShardTypeLocalIStore},
			{ShardID: eepromShard, Type: common.ShardTypeEEPROM},
		},
		TimeoutSecond: 2,
		LogLevel:      "error",
		Transport:     common.ServerTransportConfig{Endpoint: socket, WorkersPerConn: 4},
		Device: common.DeviceConfig{
			EepromSize:         512,
			RowSize:            128,
			WearLevelingFactor: 2,
			Redundant:          true,
			BlockingWrite:      true,
			InMemory:           true,
		},
	}
	srv := server.NewRPCServer(config, unix.NewUnixServerTransport(), s, server.WithFs(afero.NewMemMapFs()))

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	t.Cleanup(func() {
		require.NoError(t, srv.Close())
		require.NoError(t, <-done)
	})

	clientConfig := common.ClientConfig{
		TimeoutSecond: 2,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{socket},
			RetryCount:             2,
			ConnectionsPerEndpoint: 1,
		},
	}
	require.Eventually(t, func() bool {
		c := unix.NewUnixClientTransport()
		defer c.Close()
		return c.Connect(clientConfig) == nil
	}, 2*time.Second, 10*time.Millisecond)
	return clientConfig
}

func newStore(t *testing.T, s serializer.IRPCSerializer) RPCStore {
	t.Helper()
	config := startServer(t, s)
	rs, err := NewRPCStore(storeShard, config, unix.NewUnixClientTransport(), s)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })
	return rs
}

func TestStoreOverRPC(t *testing.T) {
	for name, s := range map[string]serializer.IRPCSerializer{
		"binary": serializer.NewBinarySerializer(),
		"json":   serializer.NewJSONSerializer(),
		"gob":    serializer.NewGOBSerializer(),
	} {
		t.Run(name, func(t *testing.T) {
			rs := newStore(t, s)

			require.NoError(t, rs.Store(1, []byte("one")))
			require.NoError(t, rs.Store(2, []byte("second")))
			require.NoError(t, rs.Store(3, nil))

			val, ok, err := rs.Get(2)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, []byte("second"), val)

			val, ok, err = rs.Get(3)
			require.NoError(t, err)
			require.True(t, ok)
			require.Empty(t, val)
			require.NotNil(t, val)

			_, ok, err = rs.Get(9)
			require.NoError(t, err)
			require.False(t, ok)

			info, ok, err := rs.Find(2)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, db.Key(2), info.Key)
			require.Equal(t, uint32(6), info.Size)

			objects, err := rs.List()
			require.NoError(t, err)
			require.Len(t, objects, 3)
			require.Equal(t, db.Key(1), objects[0].Key)

			require.NoError(t, rs.Delete(1))
			require.ErrorIs(t, rs.Delete(1), db.ErrNoSuchObject)

			objects, err = rs.List()
			require.NoError(t, err)
			require.Equal(t, db.Key(2), objects[0].Key)
		})
	}
}

func TestStoreErrorsKeepTheirCode(t *testing.T) {
	rs := newStore(t, serializer.NewBinarySerializer())

	err := rs.Store(db.SentinelKey, []byte("x"))
	require.ErrorIs(t, err, db.ErrInvalidKey)
	var se *store.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, store.RetCInvalidKey, se.Code)

	require.ErrorIs(t, rs.Store(1, make([]byte, 4096)), db.ErrNoSpace)

	require.NoError(t, rs.Erase())
	_, _, err = rs.Get(1)
	require.ErrorIs(t, err, db.ErrStoreUnformatted)
	require.NoError(t, rs.Format())
	objects, err := rs.List()
	require.NoError(t, err)
	require.Empty(t, objects)
}

func TestStoreInfo(t *testing.T) {
	rs := newStore(t, serializer.NewJSONSerializer())
	require.NoError(t, rs.Store(7, []byte("seven")))

	info, err := rs.GetDBInfo()
	require.NoError(t, err)
	require.Equal(t, db.ImplEEKV, info.DbType)
	require.Equal(t, 1, info.Objects)
	require.Equal(t, 512, info.SizeBytes)
	require.Contains(t, info.SupportedFeatures, db.FeatureList)
}

func TestEEPROMOverRPC(t *testing.T) {
	s := serializer.NewBinarySerializer()
	config := startServer(t, s)
	ee, err := NewRPCEEPROM(eepromShard, config, unix.NewUnixClientTransport(), s)
	require.NoError(t, err)
	defer ee.Close()

	// crosses the boundary of logical rows 0 and 1
	require.NoError(t, ee.Write(60, []byte("across rows")))
	data, err := ee.Read(60, 11)
	require.NoError(t, err)
	require.Equal(t, []byte("across rows"), data)

	_, err = ee.Read(0, 0)
	require.ErrorIs(t, err, db.ErrBadParam)

	_, err = ee.Read(500, 100)
	require.ErrorIs(t, err, db.ErrBadParam)

	n, err := ee.NumWrites()
	require.NoError(t, err)
	require.Equal(t, uint32(1), n)

	info, err := ee.Info()
	require.NoError(t, err)
	require.Equal(t, uint32(512), info.Config.EepromSize)
	require.Equal(t, uint32(8), info.NumberOfRows)

	rows, err := ee.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2*int(info.PhysicalRows))
	valid := 0
	for _, r := range rows {
		if r.State == emeeprom.RowValid {
			valid++
		}
	}
	// the write fits into a single physical row and its mirror
	require.Equal(t, 2, valid)

	require.NoError(t, ee.Erase())
	data, err = ee.Read(60, 11)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 11), data)
}

func TestWrongShardType(t *testing.T) {
	s := serializer.NewBinarySerializer()
	config := startServer(t, s)
	ee, err := NewRPCEEPROM(storeShard, config, unix.NewUnixClientTransport(), s)
	require.NoError(t, err)
	defer ee.Close()

	_, err = ee.NumWrites()
	var se *store.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, store.RetCUnsupportedOperation, se.Code)
}
