package serializer

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dGrid/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format.
//
// Layout: [1B type][1B flags] followed by the present fields in flag order.
// Strings and byte slices are length prefixed (4B), integers are 8B, Ok has no
// payload (the flag is the value).
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasName  byte = 1 << 0
	hasKey   byte = 1 << 1
	hasValue byte = 1 << 2
	hasTTL   byte = 1 << 3
	hasOwner byte = 1 << 4
	hasOk    byte = 1 << 5
	hasCount byte = 1 << 6
	hasErr   byte = 1 << 7
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	buf := make([]byte, 2, b.sizeBytes(msg))
	buf[0] = byte(msg.MsgType)

	var flags byte
	if msg.Name != "" {
		flags |= hasName
		buf = appendBytes(buf, []byte(msg.Name))
	}
	if msg.Key != "" {
		flags |= hasKey
		buf = appendBytes(buf, []byte(msg.Key))
	}
	// an empty value is distinct from no value (e.g. a stored empty byte slice)
	if msg.Value != nil {
		flags |= hasValue
		buf = appendBytes(buf, msg.Value)
	}
	if msg.TTL > 0 {
		flags |= hasTTL
		buf = binary.BigEndian.AppendUint64(buf, msg.TTL)
	}
	if msg.Owner != "" {
		flags |= hasOwner
		buf = appendBytes(buf, []byte(msg.Owner))
	}
	if msg.Ok {
		flags |= hasOk
	}
	if msg.Count > 0 {
		flags |= hasCount
		buf = binary.BigEndian.AppendUint64(buf, msg.Count)
	}
	if msg.Err != "" {
		flags |= hasErr
		buf = appendBytes(buf, []byte(msg.Err))
	}

	buf[1] = flags
	return buf, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	r := binaryReader{data: data, pos: 2}
	flags := data[1]

	*msg = common.Message{MsgType: common.MessageType(data[0])}

	if flags&hasName != 0 {
		msg.Name = string(r.bytes("name"))
	}
	if flags&hasKey != 0 {
		msg.Key = string(r.bytes("key"))
	}
	if flags&hasValue != 0 {
		if v := r.bytes("value"); v != nil {
			msg.Value = append(make([]byte, 0, len(v)), v...)
		}
	}
	if flags&hasTTL != 0 {
		msg.TTL = r.uint64("ttl")
	}
	if flags&hasOwner != 0 {
		msg.Owner = string(r.bytes("owner"))
	}
	msg.Ok = flags&hasOk != 0
	if flags&hasCount != 0 {
		msg.Count = r.uint64("count")
	}
	if flags&hasErr != 0 {
		msg.Err = string(r.bytes("error"))
	}

	return r.err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	if msg.Name != "" {
		size += 4 + len(msg.Name)
	}
	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.TTL > 0 {
		size += 8
	}
	if msg.Owner != "" {
		size += 4 + len(msg.Owner)
	}
	if msg.Count > 0 {
		size += 8
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}

	return size
}

// appendBytes appends p with a 4 byte length prefix
func appendBytes(buf, p []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(p)))
	return append(buf, p...)
}

// binaryReader reads the fields of a serialized message. The first error is
// kept and all later reads return zero values.
type binaryReader struct {
	data []byte
	pos  int
	err  error
}

// bytes reads a length prefixed field. The returned slice aliases the input.
func (r *binaryReader) bytes(field string) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+4 > len(r.data) {
		r.err = fmt.Errorf("data too short for %s length", field)
		return nil
	}
	n := int(binary.BigEndian.Uint32(r.data[r.pos:]))
	r.pos += 4

	if n > len(r.data)-r.pos {
		r.err = fmt.Errorf("data too short for %s data", field)
		return nil
	}
	p := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return p
}

func (r *binaryReader) uint64(field string) uint64 {
	if r.err != nil {
		return 0
	}
	if r.pos+8 > len(r.data) {
		r.err = fmt.Errorf("data too short for %s", field)
		return 0
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}
