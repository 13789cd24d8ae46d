// Package cache defines the ephemeral key-value store used by dODM: the TTL-bound mirror of
// persisted documents, the session directory and the helpdesk request queue all live in it.
//
// Key Components:
//
//   - ICacheStore Interface: The subset of Redis semantics the module relies on. Plain byte
//     values with a time-to-live, hashes with an atomic set-if-absent, an ordered set with a
//     blocking pop of the highest score, and glob based key listing for administration.
//
//   - Error System: Backends report unsupported or invalid operations with a coded Error
//     (RetCWrongType, RetCClosed, ...). Driver errors are wrapped and propagated unchanged.
//
//   - Key Layout: DocumentKey, UserKey, SessionKey and HelpdeskQueueKey build the keys shared
//     with any other process using the same cache. The layout must not change.
//
// Implementations:
//
//   - Redis Store (rcache): backed by github.com/redis/go-redis/v9.
//     Available in the "github.com/ValentinKolb/dODM/lib/cache/rcache" package.
//
//   - Local Store (lcache): an in-process store on xsync maps with lazy expiry, used for
//     tests and the local mode of the CLI.
//     Available in the "github.com/ValentinKolb/dODM/lib/cache/lcache" package.
//
// Both implementations pass the conformance suite in the cachetest package.
package cache
