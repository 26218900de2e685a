// Package serializer converts common.Message values to and from the payload
// bytes carried in dGrid frames. Clients and members must use the same
// serializer, the frame itself does not say which one was used.
//
// Key Components:
//
//   - IRPCSerializer: Interface implemented by all serializers.
//
//   - binarySerializerImpl: Custom flag based format. Only present fields are
//     written, which keeps messages small and encoding fast. This is the default.
//
//   - cborSerializerImpl: Deterministic CBOR (fxamacker/cbor). Compact and
//     self describing, useful when non Go clients talk to the grid.
//
//   - jsonSerializerImpl: JSON encoding, human-readable and handy for debugging.
//
//   - gobSerializerImpl: Go's gob encoding. Every message carries its type
//     description, so payloads are the largest of all formats.
//
// Usage:
//
//	s := serializer.NewBinarySerializer()
//	data, err := s.Serialize(msg)
//	// ... send data ...
//	var received common.Message
//	err = s.Deserialize(data, &received)
package serializer
