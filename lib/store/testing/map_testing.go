package testing

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/dGrid/lib/store"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// MapFactory returns a new, empty map of the implementation under test
type MapFactory func() store.IMap

// RunIMapTests runs the test suite every store.IMap implementation has to pass.
// The ttl tests sleep, so the implementation has to use the real clock.
func RunIMapTests(t *testing.T, name string, factory MapFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Put&Get", func(t *testing.T) {
			testPutGet(t, factory())
		})

		t.Run("PutIfAbsent", func(t *testing.T) {
			testPutIfAbsent(t, factory())
		})

		t.Run("Remove", func(t *testing.T) {
			testRemove(t, factory())
		})

		t.Run("ContainsKey", func(t *testing.T) {
			testContainsKey(t, factory())
		})

		t.Run("SizeClear", func(t *testing.T) {
			testSizeClear(t, factory())
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			testKeyExpiry(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("ManyKeys", func(t *testing.T) {
			testManyKeys(t, factory())
		})

		t.Run("ConcurrentPutIfAbsent", func(t *testing.T) {
			testConcurrentPutIfAbsent(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// mustGet fails the test if the lookup itself fails
func mustGet(t *testing.T, m store.IMap, key string) ([]byte, bool) {
	t.Helper()
	value, ok, err := m.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return value, ok
}

func mustContain(t *testing.T, m store.IMap, key string) bool {
	t.Helper()
	ok, err := m.ContainsKey(key)
	if err != nil {
		t.Fatalf("ContainsKey(%q) failed: %v", key, err)
	}
	return ok
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGet(t *testing.T, m store.IMap) {
	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	if err := m.Put(testKey, testValue1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	result, exists := mustGet(t, m, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Put", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	if err := m.Put(testKey, testValue2); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	result, _ = mustGet(t, m, testKey)
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	// the map keeps its own copy of the value
	testValue2[0] = 'X'
	result, _ = mustGet(t, m, testKey)
	if result[0] != 't' {
		t.Errorf("Modifying the put value changed the stored value")
	}

	if _, exists := mustGet(t, m, "nonexistent-key"); exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}
}

func testPutIfAbsent(t *testing.T, m store.IMap) {
	stored, err := m.PutIfAbsent("key", []byte("first"), 0)
	if err != nil || !stored {
		t.Fatalf("Expected first PutIfAbsent to store, got %v, %v", stored, err)
	}

	stored, err = m.PutIfAbsent("key", []byte("second"), 0)
	if err != nil || stored {
		t.Fatalf("Expected second PutIfAbsent to keep the value, got %v, %v", stored, err)
	}

	if result, _ := mustGet(t, m, "key"); string(result) != "first" {
		t.Errorf("Expected value first, got %s", result)
	}
}

func testRemove(t *testing.T, m store.IMap) {
	_ = m.Put("key", []byte("value"))

	removed, err := m.Remove("key")
	if err != nil || !removed {
		t.Fatalf("Expected Remove to report the key, got %v, %v", removed, err)
	}
	if _, exists := mustGet(t, m, "key"); exists {
		t.Errorf("Key should not exist after Remove")
	}

	removed, err = m.Remove("key")
	if err != nil || removed {
		t.Errorf("Expected Remove of a missing key to report false, got %v, %v", removed, err)
	}
}

func testContainsKey(t *testing.T, m store.IMap) {
	if mustContain(t, m, "key") {
		t.Errorf("Key should not exist before Put")
	}
	_ = m.Put("key", []byte("value"))
	if !mustContain(t, m, "key") {
		t.Errorf("Key should exist after Put")
	}
}

func testSizeClear(t *testing.T, m store.IMap) {
	for i := 0; i < 10; i++ {
		_ = m.Put(fmt.Sprintf("key-%d", i), []byte("value"))
	}

	if size, err := m.Size(); err != nil || size != 10 {
		t.Fatalf("Expected size 10, got %d, %v", size, err)
	}

	if err := m.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if size, _ := m.Size(); size != 0 {
		t.Errorf("Expected size 0 after Clear, got %d", size)
	}
	if mustContain(t, m, "key-0") {
		t.Errorf("Key should not exist after Clear")
	}
}

func testKeyExpiry(t *testing.T, m store.IMap) {
	ttl := 50 * time.Millisecond

	if err := m.PutTTL("expiring-key", []byte("value"), ttl); err != nil {
		t.Fatalf("PutTTL failed: %v", err)
	}
	if _, err := m.PutIfAbsent("expiring-absent", []byte("value"), ttl); err != nil {
		t.Fatalf("PutIfAbsent failed: %v", err)
	}
	_ = m.PutTTL("overwritten-key", []byte("value"), ttl)
	_ = m.Put("overwritten-key", []byte("value"))
	_ = m.Put("not-expiring-key", []byte("value"))

	if !mustContain(t, m, "expiring-key") {
		t.Errorf("Key should exist before its ttl passed")
	}

	time.Sleep(3 * ttl)

	if mustContain(t, m, "expiring-key") {
		t.Errorf("Key should have expired")
	}
	if _, exists := mustGet(t, m, "expiring-absent"); exists {
		t.Errorf("Key put with PutIfAbsent should have expired")
	}
	if !mustContain(t, m, "overwritten-key") {
		t.Errorf("Put should drop the ttl of a key")
	}
	if !mustContain(t, m, "not-expiring-key") {
		t.Errorf("Key without ttl should never expire")
	}
	if size, _ := m.Size(); size != 2 {
		t.Errorf("Expired keys should not be counted, got size %d", size)
	}
	if removed, _ := m.Remove("expiring-key"); removed {
		t.Errorf("Remove should not report an expired key")
	}
}

func testEdgeCases(t *testing.T, m store.IMap) {
	if err := m.Put("", []byte("value for empty key")); err == nil {
		t.Errorf("Expected an error for an empty key")
	}
	if err := m.PutTTL("key", []byte("value"), -time.Second); err == nil {
		t.Errorf("Expected an error for a negative ttl")
	}

	_ = m.Put("empty-value-key", []byte{})
	result, exists := mustGet(t, m, "empty-value-key")
	if !exists {
		t.Errorf("Key for empty value not found after Put")
	} else if len(result) != 0 {
		t.Errorf("Empty value resulted in non-empty value: %v", result)
	}

	_ = m.Put("nil-value-key", nil)
	if !mustContain(t, m, "nil-value-key") {
		t.Errorf("Key for nil value not found after Put")
	}

	unicodeKey := "ключ-🔑"
	_ = m.Put(unicodeKey, []byte("unicode"))
	if result, _ := mustGet(t, m, unicodeKey); string(result) != "unicode" {
		t.Errorf("Value mismatch for unicode key")
	}

	if !t.Failed() {
		largeValue := make([]byte, 4*1024*1024)
		for i := range largeValue {
			largeValue[i] = byte(i % 256)
		}

		if err := m.Put("large-value-key", largeValue); err != nil {
			t.Fatalf("Put of a large value failed: %v", err)
		}
		result, exists = mustGet(t, m, "large-value-key")
		if !exists {
			t.Errorf("Key for large value not found after Put")
		} else if !bytes.Equal(result, largeValue) {
			t.Errorf("Large value mismatch (got %d bytes, expected %d)", len(result), len(largeValue))
		}
	}
}

func testManyKeys(t *testing.T, m store.IMap) {
	prefix := "many-keys-"
	numKeys := 1000

	for i := 0; i < numKeys; i++ {
		_ = m.Put(fmt.Sprintf("%s%d", prefix, i), []byte(fmt.Sprintf("value-%d", i)))
	}

	for i := 0; i < numKeys; i += 2 {
		_, _ = m.Remove(fmt.Sprintf("%s%d", prefix, i))
	}

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		value, exists := mustGet(t, m, key)

		if i%2 == 0 {
			if exists {
				t.Errorf("Key %s should be removed", key)
			}
		} else if !exists || string(value) != fmt.Sprintf("value-%d", i) {
			t.Errorf("Key %s should still exist with its value, got %q", key, value)
		}
	}

	if size, _ := m.Size(); size != numKeys/2 {
		t.Errorf("Expected size %d, got %d", numKeys/2, size)
	}
}

func testConcurrentPutIfAbsent(t *testing.T, m store.IMap) {
	var winners atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored, err := m.PutIfAbsent("contended", []byte(fmt.Sprintf("%d", i)), 0)
			if err != nil {
				t.Errorf("PutIfAbsent failed: %v", err)
			}
			if stored {
				winners.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if winners.Load() != 1 {
		t.Errorf("Expected exactly one PutIfAbsent to store, got %d", winners.Load())
	}
}
