package serve

import (
	"testing"

	"github.com/ValentinKolb/eeKV/rpc/common"
	"github.com/stretchr/testify/require"
)

func TestParseShards(t *testing.T) {
	shards, err := parseShards("100=lstore, 200 = eeprom,300=DSTORE")
	require.NoError(t, err)
	require.Equal(t, []common.ServerShard{
		{ShardID: 100, Type: common.ShardTypeLocalIStore},
		{ShardID: 200, Type: common.ShardTypeEEPROM},
		{ShardID: 300, Type: common.ShardTypeRemoteIStore},
	}, shards)

	for _, invalid := range []string{"", "100", "x=lstore", "100=lockmgr", "1=lstore=2"} {
		_, err := parseShards(invalid)
		require.Error(t, err, invalid)
	}
}
