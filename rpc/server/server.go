package server

import (
	"fmt"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/eeKV/lib/store/dstore"
	"github.com/ValentinKolb/eeKV/rpc/common"
	"github.com/ValentinKolb/eeKV/rpc/serializer"
	"github.com/ValentinKolb/eeKV/rpc/transport"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/spf13/afero"
)

var Logger = logger.GetLogger("server")

// serverShard is a shard of the RPC server: the adapter bound to its backend and
// the function releasing the backend's device
type serverShard struct {
	Adapter IRPCServerAdapter
	close   func() error
}

// Option configures an RPCServer
type Option func(*RPCServer)

// WithFs sets the file system the flash images of local shards are stored on (default: the OS file system)
func WithFs(fs afero.Fs) Option {
	return func(s *RPCServer) {
		s.fs = fs
	}
}

// RPCServer routes requests from a transport to the adapters of its shards
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
	fs         afero.Fs

	closeOnce sync.Once
	nodeHost  *dragonboat.NodeHost
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		unix.NewUnixServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
	opts ...Option,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	s := &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
		fs:         afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// handle decodes a request, runs it on the addressed shard and encodes the response
func (s *RPCServer) handle(shardId uint64, req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	if shard, ok := s.shards.Load(shardId); !ok {
		respMsg = common.NewErrorResponse(fmt.Sprintf("shard %d not found", shardId))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		respMsg = shard.Adapter.Handle(&msg)
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response for shard %d: %v", shardId, err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// init creates all shards of the config
func (s *RPCServer) init() error {
	if err := common.InitLoggers(s.config); err != nil {
		return err
	}
	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	if s.config.HasRemoteShard() {
		// Only create the NodeHost if we have remote shards
		nodeHost, err := dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
		s.nodeHost = nodeHost
	}

	timeout := time.Duration(s.config.TimeoutSecond) * time.Second

	for _, shardConfig := range s.config.Shards {
		if _, exists := s.shards.Load(shardConfig.ShardID); exists {
			return fmt.Errorf("shard %d configured twice", shardConfig.ShardID)
		}

		var shard serverShard
		var err error
		switch shardConfig.Type {
		case common.ShardTypeLocalIStore:
			shard, err = newLocalStoreShard(s.fs, s.config, shardConfig.ShardID)
		case common.ShardTypeEEPROM:
			shard, err = newEEPROMShard(s.fs, s.config, shardConfig.ShardID)
		case common.ShardTypeRemoteIStore:
			shard, err = s.newDistributedStoreShard(shardConfig.ShardID, timeout)
		default:
			err = fmt.Errorf("invalid shard type: %s", shardConfig.Type)
		}
		if err != nil {
			return fmt.Errorf("shard %d (%s): %w", shardConfig.ShardID, shardConfig.Type, err)
		}

		s.shards.Store(shardConfig.ShardID, shard)
		Logger.Infof("created %s shard %d", shardConfig.Type, shardConfig.ShardID)
	}

	Logger.Infof("eeKV setup completed successfully")
	s.transport.RegisterHandler(s.handle)
	return nil
}

func (s *RPCServer) newDistributedStoreShard(shardId uint64, timeout time.Duration) (serverShard, error) {
	if s.nodeHost == nil {
		return serverShard{}, fmt.Errorf("node host is nil, cannot create remote store")
	}
	dbFactory, err := replicaDBFactory(s.config)
	if err != nil {
		return serverShard{}, err
	}

	factory := dstore.CreateStateMachineFactory(dbFactory, storeDevice(s.config))
	if err := s.nodeHost.StartConcurrentReplica(s.config.ClusterMembers, false, factory, s.config.ToDragonboatConfig(shardId)); err != nil {
		return serverShard{}, fmt.Errorf("failed to start replica: %w", err)
	}

	return serverShard{
		Adapter: NewIStoreServerAdapter(dstore.NewDistributedStore(s.nodeHost, shardId, timeout)),
		close:   func() error { return nil },
	}, nil
}

// Serve starts the RPC server
// This function will also initialize the server plus the shards and start the transport layer.
// It blocks until Close is called or the transport fails.
func (s *RPCServer) Serve() error {
	if err := s.init(); err != nil {
		s.release()
		return err
	}
	defer s.release()
	return s.transport.Listen(s.config)
}

// Close stops the transport. Serve releases the shards before it returns.
func (s *RPCServer) Close() error {
	return s.transport.Close()
}

// release closes all devices and the node host
func (s *RPCServer) release() {
	s.closeOnce.Do(func() {
		if s.nodeHost != nil {
			s.nodeHost.Close()
		}
		s.shards.Range(func(id uint64, shard serverShard) bool {
			if err := shard.close(); err != nil {
				Logger.Warningf("failed to close shard %d: %v", id, err)
			}
			return true
		})
	})
}
