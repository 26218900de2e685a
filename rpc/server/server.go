package server

import (
	"fmt"
	"github.com/ValentinKolb/dGrid/lib/store"
	"github.com/ValentinKolb/dGrid/lib/store/lstore"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/ValentinKolb/dGrid/rpc/serializer"
	"github.com/ValentinKolb/dGrid/rpc/transport"
	"github.com/ValentinKolb/dGrid/rpc/transport/base"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"os/signal"
	"runtime"
	"syscall"
)

var Logger = logger.GetLogger("server")

// serverShard is a struct that represents a shard in the RPC server
// It contains the store it encapsulates and the adapter that handles
// requests for the store
type serverShard struct {
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
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
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
	}
}

// RPCServer is a grid member serving map and lock shards from memory
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
}

// handle processes one request of the transport
func (s *RPCServer) handle(shardId uint64, req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	// Get appropriate shard
	shard, ok := s.shards.Load(shardId)

	if !ok {
		respMsg = common.NewErrorResponse(fmt.Sprintf("shard %d not found", shardId))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		// Let the adapter handle the request
		respMsg = shard.Adapter.Handle(&msg, shard.Store)
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("Failed to serialize %s response for shard %d: %v", respMsg.MsgType, shardId, err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}

	// a response above the frame limit would never reach the client
	if limit := base.MaxPayloadSize(s.config.Transport.Conn.MaxFrameSize); len(val) > limit {
		Logger.Warningf("%s response for shard %d has %d bytes, max %d", respMsg.MsgType, shardId, len(val), limit)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("response of %d bytes exceeds the maximum of %d bytes", len(val), limit)))
	}
	return val
}

// init creates the shards and registers the request handler
func (s *RPCServer) init() error {
	if err := common.InitLoggers(s.config.Log); err != nil {
		return err
	}

	Logger.Infof("Starting dGrid member%s", s.config.String())

	for _, shardConfig := range s.config.Shards {
		var adapter IRPCServerAdapter
		switch shardConfig.Type {
		case common.ShardTypeMap:
			adapter = NewIMapServerAdapter()
		case common.ShardTypeLock:
			adapter = NewILockServerAdapter()
		default:
			return fmt.Errorf("invalid shard type %q for shard %d", shardConfig.Type, shardConfig.ShardID)
		}

		if _, loaded := s.shards.LoadOrStore(shardConfig.ShardID, serverShard{
			Store:   lstore.NewLocalStore(),
			Adapter: adapter,
		}); loaded {
			return fmt.Errorf("duplicate shard id %d", shardConfig.ShardID)
		}
		Logger.Infof("Created %s shard %d", shardConfig.Type, shardConfig.ShardID)
	}

	s.transport.RegisterHandler(s.handle)
	return nil
}

// Serve initializes the shards and runs the transport until Close is called
func (s *RPCServer) Serve() error {
	if err := s.init(); err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// Close stops the transport, Serve returns afterwards
func (s *RPCServer) Close() error {
	return s.transport.Close()
}
