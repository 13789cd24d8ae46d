package lcache

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dODM/lib/cache"
	"github.com/ValentinKolb/dODM/lib/cache/lcache/internal"
	"github.com/puzpuzpuz/xsync/v3"
	"path"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// --------------------------------------------------------------------------
// Entry Type
// --------------------------------------------------------------------------

type entryType uint8

const (
	entryTString entryType = iota
	entryTHash
	entryTZSet
)

func (t entryType) String() string {
	switch t {
	case entryTString:
		return "string"
	case entryTHash:
		return "hash"
	case entryTZSet:
		return "zset"
	default:
		return "unknown"
	}
}

// entry is a single key of the store. Only the field matching typ is used.
type entry struct {
	typ      entryType
	value    []byte
	hash     map[string]string
	zset     *internal.MapHeap
	expireAt time.Time // zero = no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// --------------------------------------------------------------------------
// Store
// --------------------------------------------------------------------------

// Options configures the local store
type Options struct {
	Clock func() time.Time // Time source for TTL handling (nil = time.Now)
}

// DefaultOptions returns the default local store options
func DefaultOptions() *Options {
	return &Options{
		Clock: time.Now,
	}
}

type storeImpl struct {
	data   *xsync.MapOf[string, entry]
	clock  func() time.Time
	closed atomic.Bool

	// signal is closed and replaced whenever a member is added to any ordered set,
	// waking up blocked BZPopMax callers
	mu     sync.Mutex
	signal chan struct{}
	done   chan struct{}
}

// NewLocalStore creates a new in-process cache store.
// Expired keys are removed lazily when they are accessed; there is no background collector.
func NewLocalStore(opts *Options) cache.ICacheStore {
	if opts == nil {
		opts = DefaultOptions()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &storeImpl{
		data:   xsync.NewMapOf[string, entry](),
		clock:  clock,
		signal: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (s *storeImpl) checkOpen() error {
	if s.closed.Load() {
		return cache.NewError(cache.RetCClosed, "store is closed")
	}
	return nil
}

func wrongType(key string, have entryType, want entryType) error {
	return cache.NewError(cache.RetCWrongType, fmt.Sprintf("key %q holds a %s, not a %s", key, have, want))
}

func expireAt(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// compute runs fn atomically for the live (not expired) entry of key.
// Expired entries are presented to fn as not loaded and are dropped if fn does not replace them.
func (s *storeImpl) compute(key string, fn func(old entry, loaded bool) (entry, bool)) {
	now := s.clock()
	s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if loaded && old.expired(now) {
			loaded = false
			old = entry{}
		}
		newEntry, del := fn(old, loaded)
		if !loaded && del {
			return old, true
		}
		return newEntry, del
	})
}

// wait returns the channel that is closed on the next ordered set insertion
func (s *storeImpl) wait() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signal
}

// notify wakes up all blocked BZPopMax callers
func (s *storeImpl) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.signal)
	s.signal = make(chan struct{})
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cache.ICacheStore)
// --------------------------------------------------------------------------

func (s *storeImpl) SetE(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	// Copy value to prevent memory corruption
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	s.data.Store(key, entry{
		typ:      entryTString,
		value:    valueCopy,
		expireAt: expireAt(s.clock(), ttl),
	})
	return nil
}

func (s *storeImpl) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}

	var (
		data []byte
		ok   bool
		err  error
	)
	s.compute(key, func(e entry, loaded bool) (entry, bool) {
		if !loaded {
			return e, true
		}
		if e.typ != entryTString {
			err = wrongType(key, e.typ, entryTString)
			return e, false
		}
		ok = true
		data = make([]byte, len(e.value))
		copy(data, e.value)
		return e, false
	})
	return data, ok, err
}

func (s *storeImpl) Delete(_ context.Context, key string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.data.Delete(key)
	return nil
}

func (s *storeImpl) Has(_ context.Context, key string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	var ok bool
	s.compute(key, func(e entry, loaded bool) (entry, bool) {
		ok = loaded
		return e, !loaded
	})
	return ok, nil
}

func (s *storeImpl) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	now := s.clock()
	var ok bool
	s.compute(key, func(e entry, loaded bool) (entry, bool) {
		if !loaded {
			return e, true
		}
		ok = true
		// a non-positive ttl deletes the key, like EXPIRE with a past deadline
		if ttl <= 0 {
			return e, true
		}
		e.expireAt = now.Add(ttl)
		return e, false
	})
	return ok, nil
}

func (s *storeImpl) TTL(_ context.Context, key string) (time.Duration, bool, error) {
	if err := s.checkOpen(); err != nil {
		return 0, false, err
	}

	now := s.clock()
	var (
		ttl time.Duration
		ok  bool
	)
	s.compute(key, func(e entry, loaded bool) (entry, bool) {
		if !loaded {
			return e, true
		}
		ok = true
		if !e.expireAt.IsZero() {
			ttl = e.expireAt.Sub(now)
		}
		return e, false
	})
	return ttl, ok, nil
}

func (s *storeImpl) ZAdd(_ context.Context, key string, member string, score float64) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	var err error
	s.compute(key, func(e entry, loaded bool) (entry, bool) {
		if !loaded {
			e = entry{typ: entryTZSet, zset: internal.NewMapHeap()}
		} else if e.typ != entryTZSet {
			err = wrongType(key, e.typ, entryTZSet)
			return e, false
		}
		e.zset.AddItem(member, score)
		return e, false
	})
	if err != nil {
		return err
	}

	s.notify()
	return nil
}

// popMax removes the highest scored member of key, dropping the set once it is empty
func (s *storeImpl) popMax(key string) (member string, score float64, ok bool, err error) {
	s.compute(key, func(e entry, loaded bool) (entry, bool) {
		if !loaded {
			return e, true
		}
		if e.typ != entryTZSet {
			err = wrongType(key, e.typ, entryTZSet)
			return e, false
		}
		member, score, ok = e.zset.PopMax()
		return e, e.zset.Len() == 0
	})
	return member, score, ok, err
}

func (s *storeImpl) BZPopMax(ctx context.Context, key string) (string, float64, error) {
	for {
		if err := s.checkOpen(); err != nil {
			return "", 0, err
		}

		// fetch the signal before trying, so an insertion in between is not missed
		signal := s.wait()

		member, score, ok, err := s.popMax(key)
		if err != nil {
			return "", 0, err
		}
		if ok {
			return member, score, nil
		}

		select {
		case <-ctx.Done():
			return "", 0, ctx.Err()
		case <-s.done:
			return "", 0, cache.NewError(cache.RetCClosed, "store is closed")
		case <-signal:
		}
	}
}

func (s *storeImpl) ZCard(_ context.Context, key string) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var (
		n   int64
		err error
	)
	s.compute(key, func(e entry, loaded bool) (entry, bool) {
		if !loaded {
			return e, true
		}
		if e.typ != entryTZSet {
			err = wrongType(key, e.typ, entryTZSet)
			return e, false
		}
		n = int64(e.zset.Len())
		return e, false
	})
	return n, err
}

func (s *storeImpl) HSet(_ context.Context, key string, fields map[string]string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	var err error
	s.compute(key, func(e entry, loaded bool) (entry, bool) {
		if !loaded {
			e = entry{typ: entryTHash, hash: make(map[string]string, len(fields))}
		} else if e.typ != entryTHash {
			err = wrongType(key, e.typ, entryTHash)
			return e, false
		}
		for k, v := range fields {
			e.hash[k] = v
		}
		return e, false
	})
	return err
}

func (s *storeImpl) HSetNX(_ context.Context, key, field, value string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	var (
		set bool
		err error
	)
	s.compute(key, func(e entry, loaded bool) (entry, bool) {
		if !loaded {
			e = entry{typ: entryTHash, hash: make(map[string]string, 1)}
		} else if e.typ != entryTHash {
			err = wrongType(key, e.typ, entryTHash)
			return e, false
		}
		if _, exists := e.hash[field]; !exists {
			e.hash[field] = value
			set = true
		}
		return e, false
	})
	return set, err
}

func (s *storeImpl) HGet(_ context.Context, key, field string) (string, bool, error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}

	var (
		value string
		ok    bool
		err   error
	)
	s.compute(key, func(e entry, loaded bool) (entry, bool) {
		if !loaded {
			return e, true
		}
		if e.typ != entryTHash {
			err = wrongType(key, e.typ, entryTHash)
			return e, false
		}
		value, ok = e.hash[field]
		return e, false
	})
	return value, ok, err
}

func (s *storeImpl) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	fields := map[string]string{}
	var err error
	s.compute(key, func(e entry, loaded bool) (entry, bool) {
		if !loaded {
			return e, true
		}
		if e.typ != entryTHash {
			err = wrongType(key, e.typ, entryTHash)
			return e, false
		}
		for k, v := range e.hash {
			fields[k] = v
		}
		return e, false
	})
	return fields, err
}

func (s *storeImpl) Keys(_ context.Context, pattern string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, cache.NewError(cache.RetCInternalError, fmt.Sprintf("invalid pattern %q: %v", pattern, err))
	}

	now := s.clock()
	var keys []string
	s.data.Range(func(key string, e entry) bool {
		if e.expired(now) {
			return true
		}
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
		return true
	})
	sort.Strings(keys)
	return keys, nil
}

func (s *storeImpl) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.done)
		s.data.Clear()
	}
	return nil
}
