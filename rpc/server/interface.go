package server

import (
	"github.com/ValentinKolb/dGrid/lib/store"
	"github.com/ValentinKolb/dGrid/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters.
// It translates a request into calls on the store of a shard.
type IRPCServerAdapter interface {
	// Handle handles a request and returns the response.
	// Errors are reported in the response, never returned.
	Handle(req *common.Message, store store.IStore) (resp *common.Message)
}
