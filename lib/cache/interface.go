package cache

import (
	"context"
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ICacheStore is the interface of the ephemeral key-value store that mirrors documents and
// holds sessions and the request queue. It covers the subset of Redis semantics the rest of
// the module relies on: plain values with TTL, hashes and a blocking ordered set.
//
// Read operations report absence with a boolean rather than an error.
type ICacheStore interface {
	// SetE inserts or overwrites a value. A ttl of zero means the key never expires.
	SetE(ctx context.Context, key string, value []byte, ttl time.Duration) (err error)
	// Get returns the value for a key. The boolean indicates whether the key exists.
	Get(ctx context.Context, key string) (value []byte, loaded bool, err error)
	// Delete removes a key of any type. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) (err error)
	// Has returns whether a key of any type exists and is not expired.
	Has(ctx context.Context, key string) (loaded bool, err error)
	// Expire resets the time-to-live of an existing key. The boolean is false if the key does not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) (ok bool, err error)
	// TTL returns the remaining time-to-live of a key.
	// The boolean is false if the key does not exist; a zero duration means no expiry.
	TTL(ctx context.Context, key string) (ttl time.Duration, loaded bool, err error)

	// ZAdd inserts a member into the ordered set or updates its score.
	ZAdd(ctx context.Context, key string, member string, score float64) (err error)
	// BZPopMax removes and returns the member with the highest score.
	// If the set is empty, it blocks until a member is added or ctx is done.
	BZPopMax(ctx context.Context, key string) (member string, score float64, err error)
	// ZCard returns the number of members in the ordered set.
	ZCard(ctx context.Context, key string) (n int64, err error)

	// HSet sets the given fields of a hash, creating it if needed.
	HSet(ctx context.Context, key string, fields map[string]string) (err error)
	// HSetNX sets a field only if it does not exist yet. The boolean reports whether it was set.
	HSetNX(ctx context.Context, key, field, value string) (set bool, err error)
	// HGet returns a single field of a hash.
	HGet(ctx context.Context, key, field string) (value string, loaded bool, err error)
	// HGetAll returns all fields of a hash; a missing hash yields an empty map.
	HGetAll(ctx context.Context, key string) (fields map[string]string, err error)

	// Keys lists the keys matching a glob pattern. Intended for administration and debugging only.
	Keys(ctx context.Context, pattern string) (keys []string, err error)

	// Close releases the resources held by the store.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a return code and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("CacheStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new cache Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the backend.
	RetCWrongType                           // 3: Operation against a key holding the wrong kind of value.
	RetCClosed                              // 4: The store has been closed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCWrongType:
		return "WrongType"
	case RetCClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
