// Package lcache implements cache.ICacheStore in process memory.
//
// Entries are kept in an xsync.MapOf and expire lazily: an expired key is treated as absent
// and removed on its next access. Ordered sets are backed by a max-heap with key based access
// (see internal.MapHeap); members with equal scores are popped in insertion order.
//
// Blocking pops wait on a broadcast channel that is replaced every time a member is added to
// any ordered set, so waiters never poll. Closing the store wakes all waiters.
//
// Usage Example:
//
//	store := lcache.NewLocalStore(nil)
//	defer store.Close()
//
//	_ = store.SetE(ctx, "cache:widget:42", snapshot, 24*time.Hour)
//	member, score, err := store.BZPopMax(ctx, cache.HelpdeskQueueKey)
//
// Data is not persisted and not shared between processes.
package lcache
