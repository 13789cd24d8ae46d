// Package odm maps schema-constrained models onto a durable document store and keeps a
// full snapshot of every persisted model in a TTL-bound cache.
//
// Key Components:
//
//   - Kind: the handle of one registered model kind, created by Register from a Binding
//     (schema entry, collection, optional cache, resolver, snapshot format). It constructs
//     models (New), looks them up by identifier (FindByID), queries them (Find) and offers
//     the administrative DeleteAll and Aggregate.
//
//   - Model: one document. Set validates the attribute against the schema, marks it dirty and
//     geocodes the location field. Save inserts the model or sends the dirty attributes as a
//     partial update; Delete removes it from both stores.
//
//   - Cursor: a lazy, non-restartable sequence of models over a store cursor. Every document
//     is checked against the schema on the way out.
//
// Cache Consistency:
//
//	The document store is the source of truth. After every successful write the full attribute
//	set is written to "cache:<kind>:<id>" with a TTL of 24 hours. FindByID reads the cache
//	first and extends the TTL on every hit; on a miss it reads the store and writes the
//	snapshot again, which repairs evicted, expired or undecodable entries. Delete removes the
//	snapshot before the document; a concurrent FindByID can still put it back between the two
//	steps, in which case it expires with its TTL. Find and DeleteAll do not touch the cache.
//
// Schema violations are reported before any store, cache or geocoding call, so an invalid
// model is never partially persisted.
//
// Usage Example:
//
//	widget, _ := odm.Register(ctx, odm.Binding{Schema: entry, Collection: coll, Cache: store})
//
//	m, err := widget.New(ctx, map[string]any{"name": "X"})
//	err = m.Save(ctx)                    // insert, snapshot cached
//	err = m.Set(ctx, "color", "red")
//	err = m.Save(ctx)                    // $set {color: red}, snapshot rewritten
//
//	id, _ := m.ID()
//	same, found, err := widget.FindByID(ctx, id)
//
// Models are not safe for concurrent use; kinds are.
package odm
