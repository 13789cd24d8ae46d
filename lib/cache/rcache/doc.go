// Package rcache implements cache.ICacheStore on top of Redis using go-redis v9.
//
// Every operation maps to a single Redis command (SET PX, PEXPIRE, PTTL, ZADD, BZPOPMAX, HSETNX,
// SCAN, ...). BZPopMax is issued with a bounded server side timeout in a loop, so a cancelled
// context is noticed within one poll interval even when the connection is blocked.
//
// Integration tests run the shared conformance suite against a disposable Redis container and
// are guarded by the "redistest" build tag:
//
//	go test -tags redistest ./lib/cache/rcache/...
package rcache
