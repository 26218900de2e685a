package lstore

import (
	"github.com/ValentinKolb/dGrid/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"sync"
	"time"
)

var Logger = logger.GetLogger("store")

type storeImpl struct {
	maps *xsync.MapOf[string, *mapImpl]
	now  func() time.Time
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
func NewLocalStore() store.IStore {
	return newLocalStore(time.Now)
}

func newLocalStore(now func() time.Time) *storeImpl {
	return &storeImpl{
		maps: xsync.NewMapOf[string, *mapImpl](),
		now:  now,
	}
}

// GetMap returns the map with the given name, creating it on first use
func (s *storeImpl) GetMap(name string) store.IMap {
	m, _ := s.maps.LoadOrCompute(name, func() *mapImpl {
		Logger.Debugf("Creating map %q", name)
		return &mapImpl{
			name:    name,
			entries: make(map[string][]byte),
			expiry:  newExpiryQueue(),
			now:     s.now,
		}
	})
	return m
}

// --------------------------------------------------------------------------
// Map
// --------------------------------------------------------------------------

// mapImpl is one named map. Expired entries are dropped before every
// operation, so they are never visible.
type mapImpl struct {
	name    string
	mu      sync.Mutex
	entries map[string][]byte
	expiry  *expiryQueue
	now     func() time.Time
}

// lock acquires the map and removes all expired entries
func (m *mapImpl) lock() {
	m.mu.Lock()
	expired := m.expiry.popExpired(m.now().UnixNano())
	for _, key := range expired {
		delete(m.entries, key)
	}
	if len(expired) > 0 {
		Logger.Debugf("Map %q: dropped %d expired entries", m.name, len(expired))
	}
}

// set stores a copy of value. Called with mu held.
func (m *mapImpl) set(key string, value []byte, ttl time.Duration) {
	m.entries[key] = append(make([]byte, 0, len(value)), value...)
	if ttl > 0 {
		m.expiry.schedule(key, m.now().Add(ttl).UnixNano())
	} else {
		m.expiry.cancel(key)
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (m *mapImpl) Put(key string, value []byte) error {
	return m.PutTTL(key, value, 0)
}

func (m *mapImpl) PutTTL(key string, value []byte, ttl time.Duration) error {
	if err := validate(key, ttl); err != nil {
		return err
	}
	m.lock()
	defer m.mu.Unlock()

	m.set(key, value, ttl)
	return nil
}

func (m *mapImpl) PutIfAbsent(key string, value []byte, ttl time.Duration) (bool, error) {
	if err := validate(key, ttl); err != nil {
		return false, err
	}
	m.lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; ok {
		return false, nil
	}
	m.set(key, value, ttl)
	return true, nil
}

// Get returns the stored value, it must not be modified by the caller
func (m *mapImpl) Get(key string) ([]byte, bool, error) {
	m.lock()
	defer m.mu.Unlock()

	value, ok := m.entries[key]
	return value, ok, nil
}

func (m *mapImpl) ContainsKey(key string) (bool, error) {
	m.lock()
	defer m.mu.Unlock()

	_, ok := m.entries[key]
	return ok, nil
}

func (m *mapImpl) Remove(key string) (bool, error) {
	m.lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; !ok {
		return false, nil
	}
	delete(m.entries, key)
	m.expiry.cancel(key)
	return true, nil
}

func (m *mapImpl) Size() (int, error) {
	m.lock()
	defer m.mu.Unlock()

	return len(m.entries), nil
}

func (m *mapImpl) Clear() error {
	m.lock()
	defer m.mu.Unlock()

	clear(m.entries)
	m.expiry.reset()
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func validate(key string, ttl time.Duration) error {
	if key == "" {
		return store.NewError(store.RetCInvalidOperation, "key must not be empty")
	}
	if ttl < 0 {
		return store.NewError(store.RetCInvalidOperation, "ttl must not be negative")
	}
	return nil
}
