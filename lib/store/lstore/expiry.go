package lstore

import (
	"container/heap"
	"strconv"
)

// expiryItem is the deadline of one map entry
type expiryItem struct {
	key      string
	deadline int64 // unix nano
	index    int   // index in the heap, maintained by the heap package
}

func (i *expiryItem) String() string {
	return "{Key: " + i.key + ", Deadline: " + strconv.FormatInt(i.deadline, 10) + "}"
}

// expiryQueue is a min heap of entry deadlines with O(1) access by key.
// It is not thread-safe, the owning map synchronizes access.
type expiryQueue struct {
	items []*expiryItem
	byKey map[string]*expiryItem
}

func newExpiryQueue() *expiryQueue {
	return &expiryQueue{
		byKey: make(map[string]*expiryItem),
	}
}

// Len is part of heap.Interface
func (q *expiryQueue) Len() int { return len(q.items) }

// Less is part of heap.Interface, the earliest deadline comes first
func (q *expiryQueue) Less(i, j int) bool {
	return q.items[i].deadline < q.items[j].deadline
}

// Swap is part of heap.Interface
func (q *expiryQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

// Push is part of heap.Interface, use schedule instead
func (q *expiryQueue) Push(x any) {
	it := x.(*expiryItem)
	it.index = len(q.items)
	q.items = append(q.items, it)
	q.byKey[it.key] = it
}

// Pop is part of heap.Interface, use popExpired instead
func (q *expiryQueue) Pop() any {
	n := len(q.items)
	it := q.items[n-1]
	q.items[n-1] = nil
	it.index = -1
	q.items = q.items[:n-1]
	delete(q.byKey, it.key)
	return it
}

// schedule sets the deadline of key, replacing a previous one
func (q *expiryQueue) schedule(key string, deadline int64) {
	if it, ok := q.byKey[key]; ok {
		it.deadline = deadline
		heap.Fix(q, it.index)
		return
	}
	heap.Push(q, &expiryItem{key: key, deadline: deadline})
}

// cancel drops the deadline of key (if any)
func (q *expiryQueue) cancel(key string) {
	if it, ok := q.byKey[key]; ok {
		heap.Remove(q, it.index)
	}
}

// deadline returns the deadline of key
func (q *expiryQueue) deadline(key string) (int64, bool) {
	it, ok := q.byKey[key]
	if !ok {
		return 0, false
	}
	return it.deadline, true
}

// popExpired removes all items with a deadline <= now and returns their keys
func (q *expiryQueue) popExpired(now int64) []string {
	var keys []string
	for len(q.items) > 0 && q.items[0].deadline <= now {
		keys = append(keys, heap.Pop(q).(*expiryItem).key)
	}
	return keys
}

// reset drops all deadlines
func (q *expiryQueue) reset() {
	q.items = nil
	q.byKey = make(map[string]*expiryItem)
}
