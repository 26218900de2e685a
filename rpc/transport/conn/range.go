package conn

import "fmt"

// Range is a non-owning view over the bytes currently buffered for a connection.
// Handlers shrink it from the front with Consume as they process frames.
//
// The memory behind a Range is reused once the handler returns, so handlers must
// copy everything they want to keep.
type Range struct {
	b []byte
}

// NewRange returns a range over b. Connections create the ranges for their
// handlers, NewRange is for driving a MessageHandler directly (e.g. in tests).
func NewRange(b []byte) Range {
	return Range{b: b}
}

// Bytes returns the unconsumed bytes.
func (r *Range) Bytes() []byte {
	return r.b
}

// Len returns the number of unconsumed bytes.
func (r *Range) Len() int {
	return len(r.b)
}

// Peek returns the first n unconsumed bytes, or false if fewer are available.
func (r *Range) Peek(n int) ([]byte, bool) {
	if n < 0 || n > len(r.b) {
		return nil, false
	}
	return r.b[:n], true
}

// Consume drops n bytes from the front of the range.
// Consuming more than Len() bytes is a programming error and panics.
func (r *Range) Consume(n int) {
	if n < 0 || n > len(r.b) {
		panic(fmt.Sprintf("conn: consume %d bytes from a range of %d", n, len(r.b)))
	}
	r.b = r.b[n:]
}
