package conn

import (
	"sync"
)

// pipe is the single-producer single-consumer byte buffer between the ingest
// loop (producer) and the dispatch loop (consumer).
//
// Layout of buf:
//
//	[0, head)          consumed, free for compaction
//	[head, visible)    committed and flushed, readable by the consumer
//	[visible, tail)    committed but not yet flushed
//	[tail, len(buf))   free, handed to the producer by writable
//
// The producer writes into buf[tail:] without holding the lock. Only the
// producer moves data (on growth or compaction) and it never moves data in
// place while the consumer holds a view.
type pipe struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf     []byte
	head    int
	visible int
	tail    int

	// examined is the number of visible bytes (from head) the consumer has
	// already seen without consuming. read waits for more than that.
	examined int
	viewLen  int
	reading  bool

	done         bool // producer finished, no more writes
	readerClosed bool // consumer finished, writes are pointless

	max int
}

// newPipe creates an empty pipe. max <= 0 means unbounded.
func newPipe(initial int, max int) *pipe {
	if max > 0 && initial > max {
		initial = max
	}
	p := &pipe{
		buf: make([]byte, initial),
		max: max,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// --------------------------------------------------------------------------
// Producer side
// --------------------------------------------------------------------------

// writable returns a free region of at least min bytes at the tail.
// The region stays valid until the next call to writable.
func (p *pipe) writable(min int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.readerClosed {
		return nil, errPipeClosed
	}

	// Rewind for free once everything has been consumed
	if p.head == p.tail && !p.reading {
		p.head, p.visible, p.tail, p.examined = 0, 0, 0, 0
	}

	if len(p.buf)-p.tail >= min {
		return p.buf[p.tail:], nil
	}

	buffered := p.tail - p.head
	if p.max > 0 && buffered+min > p.max {
		return nil, ErrPipeOverflow
	}

	if !p.reading && p.head > 0 && len(p.buf)-buffered >= min {
		// Enough room once the consumed prefix is reclaimed
		copy(p.buf, p.buf[p.head:p.tail])
	} else {
		// Grow into a fresh array. A view the consumer currently holds keeps
		// pointing at the old one, which stays intact.
		size := 2 * len(p.buf)
		if size < buffered+min {
			size = buffered + min
		}
		if p.max > 0 && size > p.max {
			size = p.max
		}
		grown := make([]byte, size)
		copy(grown, p.buf[p.head:p.tail])
		p.buf = grown
	}

	p.visible -= p.head
	p.tail -= p.head
	p.head = 0

	return p.buf[p.tail:], nil
}

// commit declares n freshly written bytes at the tail as written.
// They become visible to the consumer with the next flush.
func (p *pipe) commit(n int) {
	p.mu.Lock()
	p.tail += n
	p.mu.Unlock()
}

// flush makes all committed bytes visible and wakes the consumer.
func (p *pipe) flush() {
	p.mu.Lock()
	p.visible = p.tail
	p.mu.Unlock()
	p.cond.Signal()
}

// complete marks the producer side as finished. Committed bytes are flushed.
func (p *pipe) complete() {
	p.mu.Lock()
	p.visible = p.tail
	p.done = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

// --------------------------------------------------------------------------
// Consumer side
// --------------------------------------------------------------------------

// read blocks until there are visible bytes the consumer has not examined yet,
// or until the producer completed. It returns every visible unconsumed byte and
// whether the producer has completed. Every read must be followed by advance.
func (p *pipe) read() (view []byte, completed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.visible-p.head <= p.examined && !p.done {
		p.cond.Wait()
	}

	view = p.buf[p.head:p.visible]
	p.viewLen = len(view)
	p.reading = true
	return view, p.done
}

// advance releases the first consumed bytes of the last view. The remaining
// bytes of that view count as examined and are returned again by the next read
// together with newer data.
func (p *pipe) advance(consumed int) {
	p.mu.Lock()
	p.head += consumed
	p.examined = p.viewLen - consumed
	p.viewLen = 0
	p.reading = false
	p.mu.Unlock()
}

// closeRead marks the consumer side as finished. Further writable calls fail.
func (p *pipe) closeRead() {
	p.mu.Lock()
	p.readerClosed = true
	p.mu.Unlock()
}

// buffered returns the number of committed but unconsumed bytes.
func (p *pipe) buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tail - p.head
}
