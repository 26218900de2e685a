package serializer

import (
	"encoding/json"
	"github.com/ValentinKolb/dGrid/rpc/common"
)

// NewJSONSerializer returns the human readable wire format. Message types are
// written by name (e.g. "putIfAbsent") and values as base64 strings, which makes
// it the format of choice for inspecting grid traffic but the slowest one.
func NewJSONSerializer() IRPCSerializer {
	return jsonSerializerImpl{}
}

type jsonSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Deserialize resets msg first, json.Unmarshal would keep fields missing in b.
// An empty stored value arrives without "value" and is restored by the client.
func (jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	*msg = common.Message{}
	return json.Unmarshal(b, msg)
}
