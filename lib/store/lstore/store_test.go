package lstore

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dGrid/lib/store"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore() (*storeImpl, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	return newLocalStore(clock.Now), clock
}

func TestPutGet(t *testing.T) {
	s, _ := newTestStore()
	m := s.GetMap("users")

	if err := m.Put("alice", []byte("1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, ok, err := m.Get("alice")
	if err != nil || !ok || string(value) != "1" {
		t.Fatalf("Expected 1, got %q (ok=%v, err=%v)", value, ok, err)
	}

	if _, ok, _ := m.Get("bob"); ok {
		t.Errorf("Expected bob to be missing")
	}
}

func TestPutCopiesValue(t *testing.T) {
	s, _ := newTestStore()
	m := s.GetMap("m")

	value := []byte("abc")
	_ = m.Put("k", value)
	value[0] = 'x'

	if got, _, _ := m.Get("k"); string(got) != "abc" {
		t.Errorf("Stored value changed with the input slice: %q", got)
	}
}

func TestMapsAreIndependent(t *testing.T) {
	s, _ := newTestStore()
	_ = s.GetMap("a").Put("k", []byte("a"))
	_ = s.GetMap("b").Put("k", []byte("b"))

	if got, _, _ := s.GetMap("a").Get("k"); string(got) != "a" {
		t.Errorf("Expected a, got %q", got)
	}
	if err := s.GetMap("b").Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, _ := s.GetMap("a").Size(); n != 1 {
		t.Errorf("Clearing map b changed map a (size %d)", n)
	}
}

func TestPutTTLExpires(t *testing.T) {
	s, clock := newTestStore()
	m := s.GetMap("sessions")

	if err := m.PutTTL("s1", []byte("token"), time.Second); err != nil {
		t.Fatalf("PutTTL failed: %v", err)
	}
	_ = m.Put("s2", []byte("forever"))

	clock.Advance(999 * time.Millisecond)
	if ok, _ := m.ContainsKey("s1"); !ok {
		t.Fatalf("Entry expired too early")
	}

	clock.Advance(time.Millisecond)
	if ok, _ := m.ContainsKey("s1"); ok {
		t.Errorf("Entry did not expire")
	}
	if _, ok, _ := m.Get("s1"); ok {
		t.Errorf("Get returned an expired entry")
	}
	if n, _ := m.Size(); n != 1 {
		t.Errorf("Expected size 1 after expiry, got %d", n)
	}
}

func TestPutDropsTTL(t *testing.T) {
	s, clock := newTestStore()
	m := s.GetMap("m")

	_ = m.PutTTL("k", []byte("v1"), time.Second)
	_ = m.Put("k", []byte("v2"))

	clock.Advance(time.Hour)
	if got, ok, _ := m.Get("k"); !ok || string(got) != "v2" {
		t.Errorf("Expected v2 without ttl, got %q (ok=%v)", got, ok)
	}
}

func TestPutIfAbsent(t *testing.T) {
	s, clock := newTestStore()
	m := s.GetMap("m")

	stored, err := m.PutIfAbsent("k", []byte("first"), time.Second)
	if err != nil || !stored {
		t.Fatalf("Expected first PutIfAbsent to store, got %v (err=%v)", stored, err)
	}

	if stored, _ := m.PutIfAbsent("k", []byte("second"), 0); stored {
		t.Errorf("PutIfAbsent overwrote an existing entry")
	}
	if got, _, _ := m.Get("k"); string(got) != "first" {
		t.Errorf("Expected first, got %q", got)
	}

	// an expired entry counts as absent
	clock.Advance(time.Second)
	if stored, _ := m.PutIfAbsent("k", []byte("third"), 0); !stored {
		t.Errorf("PutIfAbsent did not replace an expired entry")
	}

	// the new entry has no ttl
	clock.Advance(time.Hour)
	if got, _, _ := m.Get("k"); string(got) != "third" {
		t.Errorf("Expected third, got %q", got)
	}
}

func TestRemove(t *testing.T) {
	s, clock := newTestStore()
	m := s.GetMap("m")

	_ = m.PutTTL("k", []byte("v"), time.Second)
	removed, err := m.Remove("k")
	if err != nil || !removed {
		t.Fatalf("Expected removal, got %v (err=%v)", removed, err)
	}
	if removed, _ := m.Remove("k"); removed {
		t.Errorf("Removed a missing key")
	}

	// the stale deadline must not remove a new entry
	_ = m.Put("k", []byte("new"))
	clock.Advance(2 * time.Second)
	if ok, _ := m.ContainsKey("k"); !ok {
		t.Errorf("Entry removed by the deadline of a previous entry")
	}
}

func TestClear(t *testing.T) {
	s, clock := newTestStore()
	m := s.GetMap("m")

	for i := 0; i < 10; i++ {
		_ = m.PutTTL(fmt.Sprintf("k%d", i), []byte("v"), time.Duration(i+1)*time.Second)
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, _ := m.Size(); n != 0 {
		t.Fatalf("Expected empty map, got %d entries", n)
	}

	_ = m.Put("k3", []byte("v"))
	clock.Advance(time.Minute)
	if n, _ := m.Size(); n != 1 {
		t.Errorf("Expected 1 entry, got %d", n)
	}
}

func TestInvalidArguments(t *testing.T) {
	s, _ := newTestStore()
	m := s.GetMap("m")

	var storeErr *store.Error
	if err := m.Put("", []byte("v")); !errors.As(err, &storeErr) || storeErr.Code != store.RetCInvalidOperation {
		t.Errorf("Expected invalid operation for an empty key, got %v", err)
	}
	if _, err := m.PutIfAbsent("k", nil, -time.Second); !errors.As(err, &storeErr) {
		t.Errorf("Expected an error for a negative ttl, got %v", err)
	}
}

func TestConcurrentPutIfAbsent(t *testing.T) {
	s := NewLocalStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// every goroutine asks for the map itself
			stored, err := s.GetMap("race").PutIfAbsent("k", []byte("v"), 0)
			if err != nil {
				t.Errorf("PutIfAbsent failed: %v", err)
			}
			if stored {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("Expected exactly one winner, got %d", winners)
	}
}
