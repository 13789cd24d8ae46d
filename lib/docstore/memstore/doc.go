// Package memstore is an in-process docstore.IDatabase. It keeps documents in insertion order,
// enforces unique indexes and supports equality filters on top-level fields; numbers compare by
// value regardless of their Go type. Regular and geospatial indexes are accepted and ignored.
package memstore
