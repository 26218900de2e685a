package lockmgr

import "time"

// ILock defines the interface of a named group of locks.
type ILock interface {
	// Lock acquires the lock for the given key. A ttl of 0 keeps the lock until it
	// is released, otherwise it is released automatically once ttl has passed.
	// Returns whether the lock was acquired and, if so, the owner id needed to release it.
	Lock(key string, ttl time.Duration) (ok bool, ownerID string, err error)

	// Unlock releases the lock for the given key if ownerID owns it.
	// Returns true if the lock was released or did not exist.
	Unlock(key string, ownerID string) (ok bool, err error)
}
