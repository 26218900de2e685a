package serializer

import "github.com/ValentinKolb/dGrid/rpc/common"

// IRPCSerializer turns the requests and responses of the map and lock
// operations into frame payloads and back. Client and member must use the
// same implementation, nothing on the wire names the format.
//
// Implementations are stateless and safe for concurrent use.
type IRPCSerializer interface {
	// Serialize encodes msg. The result is owned by the caller.
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize overwrites msg with the message encoded in b. msg must not
	// alias b, the caller may reuse b once the call returns.
	Deserialize(b []byte, msg *common.Message) error
}
