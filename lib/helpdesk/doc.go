// Package helpdesk implements a blocking priority queue of help requests on the ordered set
// "sessions:helpdesk_queue" of a cache.ICacheStore.
//
// Each requester appears at most once; the score is the priority plus a fraction below one
// that decreases with the submission time (second resolution), so among equal priorities the
// earliest submission is served first. Requests submitted within the same second fall back to
// the store's own order for equal scores (insertion order for lcache, reverse lexicographic
// member order for Redis).
//
// ServeNext blocks until a request arrives. A dispatcher typically runs the loop on a worker
// goroutine:
//
//	q := helpdesk.NewQueue(store, nil)
//	go q.Run(ctx, func(ctx context.Context, id string) error {
//		return attend(ctx, id)
//	})
package helpdesk
