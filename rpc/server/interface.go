package server

import (
	"github.com/ValentinKolb/eeKV/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters.
// An adapter is bound to the backend of one shard and translates requests into calls on it.
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response.
	// Failures of the backend are reported in the response, never as a nil response.
	Handle(req *common.Message) (resp *common.Message)
}
