package serializer

import (
	"bytes"
	"encoding/gob"
	"github.com/ValentinKolb/dGrid/rpc/common"
)

// NewGOBSerializer returns a serializer for Go only grids. Every message
// carries its own gob type description, so it is larger than the binary
// format for the small map and lock requests.
func NewGOBSerializer() IRPCSerializer {
	return gobSerializerImpl{}
}

type gobSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (gobSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	// zero fields (Ok == false, empty Err) are not transmitted
	*msg = common.Message{}
	return gob.NewDecoder(bytes.NewReader(b)).Decode(msg)
}
