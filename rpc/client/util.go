package client

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dGrid/lib/store"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/ValentinKolb/dGrid/rpc/serializer"
	"github.com/ValentinKolb/dGrid/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"time"
)

var (
	Logger = logger.GetLogger("rpc")
)

var (
	// ErrRemote wraps the errors reported by a member
	ErrRemote = errors.New("remote error")
	// ErrUnexpectedResponse is returned if the response does not match the request
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
// Used by the rpcMap and rpcLock with composition pattern
type rpcClientAdapter struct {
	shardId    uint64
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// newAdapter connects the transport and returns the adapter using it
func newAdapter(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (rpcClientAdapter, error) {
	if err := transport.Connect(config); err != nil {
		return rpcClientAdapter{}, err
	}
	return rpcClientAdapter{
		shardId:    shardId,
		transport:  transport,
		serializer: serializer,
	}, nil
}

// invoke sends a request to the shard of the adapter
func (a *rpcClientAdapter) invoke(req *common.Message) (*common.Message, error) {
	return invokeRPCRequest(a.shardId, req, a.transport, a.serializer)
}

// invokeRPCRequest sends a request and returns the response of the member.
// Error responses and responses of another type than the request are
// returned as errors.
func invokeRPCRequest(shardId uint64, req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s request: %w", req.MsgType, err)
	}

	respBytes, err := transport.Send(shardId, reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("%w: failed to deserialize %s response: %v", ErrUnexpectedResponse, req.MsgType, err)
	}

	// Check if the response is an error response
	if resp.MsgType == common.MsgTError || resp.Err != "" {
		return nil, fmt.Errorf("%w: %s", ErrRemote, resp.Err)
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("%w: message type %s, expected %s", ErrUnexpectedResponse, resp.MsgType, req.MsgType)
	}

	return resp, nil
}

// toMillis converts a ttl to the milliseconds sent on the wire. Positive
// durations below one millisecond are rounded up so they keep a ttl.
func toMillis(ttl time.Duration) (uint64, error) {
	if ttl < 0 {
		return 0, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("negative ttl %s", ttl))
	}
	ms := uint64(ttl / time.Millisecond)
	if ms == 0 && ttl > 0 {
		ms = 1
	}
	return ms, nil
}
