package client

import (
	"github.com/ValentinKolb/dGrid/lib/store"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/ValentinKolb/dGrid/rpc/serializer"
	"github.com/ValentinKolb/dGrid/rpc/transport"
	"time"
)

// NewRPCStore creates a new RPC store.
// The transport is connected with config, all maps of the store share it
// and send their requests to the given shard.
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {
	adapter, err := newAdapter(shardId, config, transport, serializer)
	if err != nil {
		return nil, err
	}
	return &rpcStore{adapter}, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// GetMap returns the remote map with the given name
func (s *rpcStore) GetMap(name string) store.IMap {
	return &rpcMap{rpcStore: s, name: name}
}

type rpcMap struct {
	*rpcStore
	name string
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (m *rpcMap) Put(key string, value []byte) (err error) {
	_, err = m.invoke(common.NewPutRequest(m.name, key, value))
	return err
}

func (m *rpcMap) PutTTL(key string, value []byte, ttl time.Duration) (err error) {
	ms, err := toMillis(ttl)
	if err != nil {
		return err
	}
	_, err = m.invoke(common.NewPutTTLRequest(m.name, key, value, ms))
	return err
}

func (m *rpcMap) PutIfAbsent(key string, value []byte, ttl time.Duration) (stored bool, err error) {
	ms, err := toMillis(ttl)
	if err != nil {
		return false, err
	}
	resp, err := m.invoke(common.NewPutIfAbsentRequest(m.name, key, value, ms))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (m *rpcMap) Get(key string) (value []byte, loaded bool, err error) {
	resp, err := m.invoke(common.NewGetRequest(m.name, key))
	if err != nil {
		return nil, false, err
	}
	if !resp.Ok {
		return nil, false, nil
	}
	// a stored empty value may arrive as nil depending on the serializer
	if resp.Value == nil {
		resp.Value = []byte{}
	}
	return resp.Value, true, nil
}

func (m *rpcMap) ContainsKey(key string) (loaded bool, err error) {
	resp, err := m.invoke(common.NewContainsKeyRequest(m.name, key))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (m *rpcMap) Remove(key string) (removed bool, err error) {
	resp, err := m.invoke(common.NewRemoveRequest(m.name, key))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (m *rpcMap) Size() (count int, err error) {
	resp, err := m.invoke(common.NewSizeRequest(m.name))
	if err != nil {
		return 0, err
	}
	return int(resp.Count), nil
}

func (m *rpcMap) Clear() (err error) {
	_, err = m.invoke(common.NewClearRequest(m.name))
	return err
}
