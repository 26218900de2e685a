// Package lockmgr implements named locks on top of a store.IMap.
//
// A lock is a map entry whose value is the id of its owner:
//
//   - Lock stores a fresh uuid with PutIfAbsent. Only one caller can store the
//     value, so only one caller gets the lock. A ttl makes the entry (and
//     with it the lock) expire, which keeps a crashed client from holding a lock
//     forever.
//
//   - Unlock compares the stored owner id with the given one and removes the
//     entry only if they match. Releasing a lock that does not exist (e.g.
//     because it expired) succeeds.
//
// Thread Safety:
//
//	The check and delete of Unlock run under a mutex shared with Lock, so a
//	lock that expires between the check and the delete cannot be taken over
//	by another owner in the meantime. This only holds as long as all locks
//	of the map are handled by the same manager. Members create one manager
//	per lock name.
//
// Usage Example:
//
//	locks := lockmgr.NewLockManager(s.GetMap("locks"))
//
//	acquired, ownerID, err := locks.Lock("resource:123", 30*time.Second)
//	if err != nil {
//	    // Handle error
//	}
//	if acquired {
//	    // Use the resource safely
//	    released, err := locks.Unlock("resource:123", ownerID)
//	}
package lockmgr
