package base

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dGrid/rpc/transport/conn"
)

// Wire format of a connection (all integers big endian):
//
//	preamble (client -> member, once):  'D' 'G' 'R' version
//	frame:                              [4B length L][8B shard id][8B request id][L-16 payload]
//
// A frame with L == 0 is the close sentinel (see conn.CloseSentinel).
const (
	ProtocolVersion = 1
	PreambleLength  = 4

	// DefaultMaxFrameSize bounds L unless ConnConf.MaxFrameSize is set
	DefaultMaxFrameSize = 16 << 20

	// maxFrameLimit keeps L within the 4 byte length on every platform
	maxFrameLimit = 1<<31 - 1

	lengthSize     = 4
	frameIDsSize   = 16 // shard id + request id
	frameHeaderLen = lengthSize + frameIDsSize
)

// Preamble is written by the client right after connecting
var Preamble = [PreambleLength]byte{'D', 'G', 'R', ProtocolVersion}

var (
	ErrBadPreamble   = errors.New("invalid connection preamble")
	ErrFrameTooShort = errors.New("frame shorter than its header")
	ErrFrameTooLarge = errors.New("frame exceeds the maximum frame size")
)

// encodeHeader returns the header of a frame carrying payloadLen bytes
func encodeHeader(shardID, requestID uint64, payloadLen int) []byte {
	header := make([]byte, frameHeaderLen)
	binary.BigEndian.PutUint32(header[:4], uint32(frameIDsSize+payloadLen))
	binary.BigEndian.PutUint64(header[4:12], shardID)
	binary.BigEndian.PutUint64(header[12:20], requestID)
	return header
}

// frameHeader returns the header of a frame carrying payloadLen bytes. A frame
// above maxFrameSize would be rejected by the peer (which kills the whole
// connection), so it is refused here instead.
func frameHeader(shardID, requestID uint64, payloadLen, maxFrameSize int) ([]byte, error) {
	if limit := frameSizeLimit(maxFrameSize); payloadLen > limit-frameIDsSize {
		return nil, fmt.Errorf("%w: payload of %d bytes, max %d", ErrFrameTooLarge, payloadLen, limit-frameIDsSize)
	}
	return encodeHeader(shardID, requestID, payloadLen), nil
}

// MaxPayloadSize returns the largest payload a frame can carry when frames
// are limited to maxFrameSize (DefaultMaxFrameSize if <= 0)
func MaxPayloadSize(maxFrameSize int) int {
	return frameSizeLimit(maxFrameSize) - frameIDsSize
}

func frameSizeLimit(configured int) int {
	if configured <= 0 {
		return DefaultMaxFrameSize
	}
	return min(configured, maxFrameLimit)
}

// checkPreamble is the prefix handler of member side connections
func checkPreamble(c *conn.Connection, prefix []byte) error {
	if !bytes.Equal(prefix, Preamble[:]) {
		return fmt.Errorf("%w: got %q", ErrBadPreamble, prefix)
	}
	return nil
}

// --------------------------------------------------------------------------
// Frame decoder
// --------------------------------------------------------------------------

// frameFunc receives a decoded frame. The payload is only valid until the
// function returns.
type frameFunc func(c *conn.Connection, shardID, requestID uint64, payload []byte)

// frameDecoder is the conn.MessageHandler of both sides. It decodes one frame
// per call and asks to be called again as long as it made progress.
type frameDecoder struct {
	maxFrameSize int
	onFrame      frameFunc
}

func newFrameDecoder(maxFrameSize int, onFrame frameFunc) *frameDecoder {
	return &frameDecoder{maxFrameSize: frameSizeLimit(maxFrameSize), onFrame: onFrame}
}

func (d *frameDecoder) HandleMessages(c *conn.Connection, r *conn.Range) (bool, error) {
	lenBytes, ok := r.Peek(lengthSize)
	if !ok {
		return false, nil
	}

	length := int(binary.BigEndian.Uint32(lenBytes))
	switch {
	case length == 0:
		// the peer is closing, everything after the sentinel is ignored
		r.Consume(lengthSize)
		Logger.Debugf("Connection %s: received close sentinel", c.ID())
		c.Cancel()
		return false, nil
	case length < frameIDsSize:
		return false, fmt.Errorf("%w: length %d", ErrFrameTooShort, length)
	case length > d.maxFrameSize:
		return false, fmt.Errorf("%w: length %d, max %d", ErrFrameTooLarge, length, d.maxFrameSize)
	}

	frame, ok := r.Peek(lengthSize + length)
	if !ok {
		return false, nil
	}

	shardID := binary.BigEndian.Uint64(frame[4:12])
	requestID := binary.BigEndian.Uint64(frame[12:20])
	d.onFrame(c, shardID, requestID, frame[frameHeaderLen:])

	r.Consume(len(frame))
	return true, nil
}
