package client

import (
	"github.com/ValentinKolb/dGrid/lib/lockmgr"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/ValentinKolb/dGrid/rpc/serializer"
	"github.com/ValentinKolb/dGrid/rpc/transport"
	"time"
)

// NewRPCLock creates a client for the lock group name served by the given shard.
// The transport is connected with config.
func NewRPCLock(
	shardId uint64,
	name string,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (lockmgr.ILock, error) {
	adapter, err := newAdapter(shardId, config, transport, serializer)
	if err != nil {
		return nil, err
	}
	return &rpcLock{rpcClientAdapter: adapter, name: name}, nil
}

type rpcLock struct {
	rpcClientAdapter
	name string
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the lockmgr package in interface.go)
// --------------------------------------------------------------------------

func (l *rpcLock) Lock(key string, ttl time.Duration) (ok bool, ownerID string, err error) {
	ms, err := toMillis(ttl)
	if err != nil {
		return false, "", err
	}
	resp, err := l.invoke(common.NewAcquireRequest(l.name, key, ms))
	if err != nil {
		return false, "", err
	}
	return resp.Ok, resp.Owner, nil
}

func (l *rpcLock) Unlock(key string, ownerID string) (ok bool, err error) {
	resp, err := l.invoke(common.NewReleaseRequest(l.name, key, ownerID))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}
