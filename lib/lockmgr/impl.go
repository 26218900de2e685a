package lockmgr

import (
	"github.com/ValentinKolb/dGrid/lib/store"
	"github.com/google/uuid"
	"sync"
	"time"
)

type lockMgrImpl struct {
	// mu makes the check and delete of Unlock atomic with respect to Lock
	mu    sync.Mutex
	locks store.IMap
}

// NewLockManager creates a lock manager that keeps its locks in the given map.
// Locks are only safe as long as the map is not modified by anyone else.
func NewLockManager(locks store.IMap) ILock {
	return &lockMgrImpl{
		locks: locks,
	}
}

func (lm *lockMgrImpl) Lock(key string, ttl time.Duration) (bool, string, error) {
	ownerID := uuid.NewString()

	lm.mu.Lock()
	defer lm.mu.Unlock()

	// the lock belongs to whoever stores the first value
	stored, err := lm.locks.PutIfAbsent(key, []byte(ownerID), ttl)
	if err != nil || !stored {
		return false, "", err
	}
	return true, ownerID, nil
}

func (lm *lockMgrImpl) Unlock(key string, ownerID string) (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	value, ok, err := lm.locks.Get(key)
	if err != nil || !ok {
		return err == nil, err
	}

	// Check if the lock is owned by the caller
	if string(value) != ownerID {
		return false, nil
	}

	return lm.locks.Remove(key)
}
