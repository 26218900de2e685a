// Package lstore implements the in-memory maps of a dGrid member based on the
// store.IMap interface. Data is not persisted between process restarts.
//
// Implementation Details:
//
//   - Named maps: The store keeps its maps in a xsync.MapOf and creates them
//     on first access, so concurrent GetMap calls for the same name always
//     return the same map.
//
//   - Expiry: Entries written with a ttl get a deadline in a per map min heap
//     (expiryQueue). Before every operation all entries whose deadline has
//     passed are removed, which makes expired entries invisible to Get,
//     ContainsKey, Size and PutIfAbsent alike. Overwriting an entry with Put
//     drops its deadline.
//
// Thread Safety:
//
//	Every map is guarded by its own mutex. Operations on different maps do not
//	block each other.
//
// Usage Example:
//
//	s := lstore.NewLocalStore()
//	users := s.GetMap("users")
//	_ = users.PutTTL("session:42", []byte("token"), time.Minute)
//	value, ok, _ := users.Get("session:42")
package lstore
