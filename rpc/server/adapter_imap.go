package server

import (
	"fmt"
	"github.com/ValentinKolb/dGrid/lib/store"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"time"
)

// NewIMapServerAdapter creates the adapter of map shards
func NewIMapServerAdapter() IRPCServerAdapter {
	return &iMapServerAdapterImpl{}
}

type iMapServerAdapterImpl struct{}

func (adapter *iMapServerAdapterImpl) Handle(req *common.Message, store store.IStore) *common.Message {
	// Check for nil store
	if store == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	m := store.GetMap(req.Name)
	ttl := time.Duration(req.TTL) * time.Millisecond

	switch req.MsgType {
	case common.MsgTMapPut:
		return common.NewPutResponse(m.Put(req.Key, req.Value))
	case common.MsgTMapPutTTL:
		return common.NewPutTTLResponse(m.PutTTL(req.Key, req.Value, ttl))
	case common.MsgTMapPutIfAbsent:
		stored, err := m.PutIfAbsent(req.Key, req.Value, ttl)
		return common.NewPutIfAbsentResponse(stored, err)
	case common.MsgTMapGet:
		val, ok, err := m.Get(req.Key)
		return common.NewGetResponse(val, ok, err)
	case common.MsgTMapContainsKey:
		ok, err := m.ContainsKey(req.Key)
		return common.NewContainsKeyResponse(ok, err)
	case common.MsgTMapRemove:
		removed, err := m.Remove(req.Key)
		return common.NewRemoveResponse(removed, err)
	case common.MsgTMapSize:
		count, err := m.Size()
		return common.NewSizeResponse(uint64(count), err)
	case common.MsgTMapClear:
		return common.NewClearResponse(m.Clear())
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC IMapAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}
