package server

import (
	"fmt"
	"github.com/ValentinKolb/dGrid/lib/lockmgr"
	"github.com/ValentinKolb/dGrid/lib/store"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
	"time"
)

// NewILockServerAdapter creates the adapter of lock shards. Every lock group
// gets its own lock manager backed by the map of the same name.
func NewILockServerAdapter() IRPCServerAdapter {
	return &iLockServerAdapterImpl{
		groups: xsync.NewMapOf[string, lockmgr.ILock](),
	}
}

type iLockServerAdapterImpl struct {
	groups *xsync.MapOf[string, lockmgr.ILock]
}

func (adapter *iLockServerAdapterImpl) Handle(req *common.Message, store store.IStore) *common.Message {
	// Check for nil store
	if store == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	// the manager serializes unlock against lock, so it has to be shared
	locks, _ := adapter.groups.LoadOrCompute(req.Name, func() lockmgr.ILock {
		return lockmgr.NewLockManager(store.GetMap(req.Name))
	})

	switch req.MsgType {
	case common.MsgTLockAcquire:
		ok, ownerID, err := locks.Lock(req.Key, time.Duration(req.TTL)*time.Millisecond)
		return common.NewAcquireResponse(ok, ownerID, err)
	case common.MsgTLockRelease:
		ok, err := locks.Unlock(req.Key, req.Owner)
		return common.NewReleaseResponse(ok, err)
	default:
		return common.NewErrorResponse(fmt.Sprintf("RPC ILockAdapter - Unsupported message type: %s", req.MsgType))
	}
}
