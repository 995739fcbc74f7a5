package unix

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/eeKV/rpc/common"
	"github.com/stretchr/testify/require"
)

// startEchoServer serves a handler that prefixes every request with its shard id
func startEchoServer(t *testing.T) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "eekv.sock")

	server := NewUnixServerTransport()
	server.RegisterHandler(func(shardId uint64, req []byte) []byte {
		return append([]byte(fmt.Sprintf("%d:", shardId)), req...)
	})

	done := make(chan error, 1)
	go func() {
		done <- server.Listen(common.ServerConfig{
			TimeoutSecond: 5,
			Transport:     common.ServerTransportConfig{Endpoint: socket, WorkersPerConn: 4},
		})
	}()
	t.Cleanup(func() {
		require.NoError(t, server.Close())
		require.NoError(t, <-done)
	})

	require.Eventually(t, func() bool {
		c := NewUnixClientTransport()
		defer c.Close()
		return c.Connect(clientConfig(socket)) == nil
	}, 2*time.Second, 10*time.Millisecond)
	return socket
}

func clientConfig(socket string) common.ClientConfig {
	return common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{socket},
			RetryCount:             2,
			ConnectionsPerEndpoint: 2,
		},
	}
}

func TestSendReceive(t *testing.T) {
	socket := startEchoServer(t)

	client := NewUnixClientTransport()
	require.NoError(t, client.Connect(clientConfig(socket)))
	defer client.Close()

	resp, err := client.Send(3, []byte("ping"))
	require.NoError(t, err)
	require.Equal(t, "3:ping", string(resp))
}

func TestConcurrentRequestsAreCorrelated(t *testing.T) {
	socket := startEchoServer(t)

	client := NewUnixClientTransport()
	require.NoError(t, client.Connect(clientConfig(socket)))
	defer client.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := fmt.Sprintf("req-%d", i)
			resp, err := client.Send(uint64(i%4), []byte(req))
			if err != nil {
				errs <- err
				return
			}
			if want := fmt.Sprintf("%d:%s", i%4, req); string(resp) != want {
				errs <- fmt.Errorf("got %q, want %q", resp, want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestConnectWithoutServer(t *testing.T) {
	client := NewUnixClientTransport()
	err := client.Connect(clientConfig(filepath.Join(t.TempDir(), "missing.sock")))
	require.Error(t, err)
}
