// Package cachetest provides a conformance test suite for cache.ICacheStore implementations.
//
// Every backend runs the same suite so that the document mirror, the session directory and
// the request queue behave identically against Redis and against the in-process store.
package cachetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dODM/lib/cache"
	"sync"
	"testing"
	"time"
)

// Factory creates a fresh, empty store. The returned advance function moves the store's clock
// forward; backends that run on real time return nil and the time travel tests are skipped.
type Factory func(t *testing.T) (store cache.ICacheStore, advance func(d time.Duration))

// RunCacheStoreTests runs the full conformance suite against a backend.
func RunCacheStoreTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory)
		})
		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory)
		})
		t.Run("TTL", func(t *testing.T) {
			testTTL(t, factory)
		})
		t.Run("KeyExpiry", func(t *testing.T) {
			testKeyExpiry(t, factory)
		})
		t.Run("Hash", func(t *testing.T) {
			testHash(t, factory)
		})
		t.Run("OrderedSet", func(t *testing.T) {
			testOrderedSet(t, factory)
		})
		t.Run("BlockingPop", func(t *testing.T) {
			testBlockingPop(t, factory)
		})
		t.Run("BlockingPopCancel", func(t *testing.T) {
			testBlockingPopCancel(t, factory)
		})
		t.Run("Keys", func(t *testing.T) {
			testKeys(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, factory Factory) {
	store, _ := factory(t)
	defer store.Close()
	ctx := context.Background()

	key := "test-key"
	if err := store.SetE(ctx, key, []byte("value-1"), 0); err != nil {
		t.Fatalf("SetE failed: %v", err)
	}

	value, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Expected key %s to exist after SetE (ok=%v, err=%v)", key, ok, err)
	}
	if !bytes.Equal(value, []byte("value-1")) {
		t.Errorf("Expected value-1, got %s", value)
	}

	if err := store.SetE(ctx, key, []byte("value-2"), time.Hour); err != nil {
		t.Fatalf("SetE failed: %v", err)
	}
	value, _, _ = store.Get(ctx, key)
	if !bytes.Equal(value, []byte("value-2")) {
		t.Errorf("Expected overwritten value value-2, got %s", value)
	}

	value[0] = 'X'
	again, _, _ := store.Get(ctx, key)
	if !bytes.Equal(again, []byte("value-2")) {
		t.Errorf("Get should return a copy, stored value changed to %s", again)
	}

	if _, ok, err := store.Get(ctx, "nonexistent-key"); ok || err != nil {
		t.Errorf("Expected nonexistent key to return ok=false, err=nil (ok=%v, err=%v)", ok, err)
	}
}

func testDelete(t *testing.T, factory Factory) {
	store, _ := factory(t)
	defer store.Close()
	ctx := context.Background()

	_ = store.SetE(ctx, "del-key", []byte("v"), 0)
	if ok, _ := store.Has(ctx, "del-key"); !ok {
		t.Fatal("Expected key to exist before delete")
	}
	if err := store.Delete(ctx, "del-key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok, _ := store.Has(ctx, "del-key"); ok {
		t.Error("Expected key to be gone after delete")
	}
	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Deleting a missing key should not fail: %v", err)
	}

	_, _ = store.HSetNX(ctx, "del-hash", "f", "v")
	_ = store.Delete(ctx, "del-hash")
	if ok, _ := store.Has(ctx, "del-hash"); ok {
		t.Error("Expected hash to be gone after delete")
	}
}

func testTTL(t *testing.T, factory Factory) {
	store, _ := factory(t)
	defer store.Close()
	ctx := context.Background()

	_ = store.SetE(ctx, "ttl-key", []byte("v"), 24*time.Hour)
	ttl, ok, err := store.TTL(ctx, "ttl-key")
	if err != nil || !ok {
		t.Fatalf("TTL failed (ok=%v, err=%v)", ok, err)
	}
	if ttl <= 23*time.Hour || ttl > 24*time.Hour {
		t.Errorf("Expected TTL close to 24h, got %v", ttl)
	}

	_ = store.SetE(ctx, "no-ttl-key", []byte("v"), 0)
	if ttl, ok, _ := store.TTL(ctx, "no-ttl-key"); !ok || ttl != 0 {
		t.Errorf("Expected key without expiry to report ttl=0, got %v (ok=%v)", ttl, ok)
	}

	if _, ok, _ := store.TTL(ctx, "missing"); ok {
		t.Error("Expected TTL of a missing key to report ok=false")
	}

	_ = store.SetE(ctx, "refresh-key", []byte("v"), time.Minute)
	ok, err = store.Expire(ctx, "refresh-key", 48*time.Hour)
	if err != nil || !ok {
		t.Fatalf("Expire failed (ok=%v, err=%v)", ok, err)
	}
	if ttl, _, _ := store.TTL(ctx, "refresh-key"); ttl <= 47*time.Hour {
		t.Errorf("Expected refreshed TTL close to 48h, got %v", ttl)
	}

	if ok, _ := store.Expire(ctx, "missing", time.Minute); ok {
		t.Error("Expire on a missing key should report ok=false")
	}
}

func testKeyExpiry(t *testing.T, factory Factory) {
	store, advance := factory(t)
	defer store.Close()
	if advance == nil {
		t.Skip("backend runs on real time")
	}
	ctx := context.Background()

	_ = store.SetE(ctx, "expiring", []byte("v"), time.Minute)
	_ = store.SetE(ctx, "lasting", []byte("v"), time.Hour)

	advance(59 * time.Second)
	if _, ok, _ := store.Get(ctx, "expiring"); !ok {
		t.Error("Key should still exist before its TTL elapsed")
	}

	advance(2 * time.Second)
	if _, ok, _ := store.Get(ctx, "expiring"); ok {
		t.Error("Key should be gone after its TTL elapsed")
	}
	if ok, _ := store.Has(ctx, "expiring"); ok {
		t.Error("Has should not report an expired key")
	}
	if _, ok, _ := store.Get(ctx, "lasting"); !ok {
		t.Error("Key with longer TTL should still exist")
	}

	// refreshing the TTL extends the life of a key
	_, _ = store.Expire(ctx, "lasting", time.Hour)
	advance(59 * time.Minute)
	if _, ok, _ := store.Get(ctx, "lasting"); !ok {
		t.Error("Key should survive after its TTL was refreshed")
	}
}

func testHash(t *testing.T, factory Factory) {
	store, _ := factory(t)
	defer store.Close()
	ctx := context.Background()

	set, err := store.HSetNX(ctx, "user", "username", "u")
	if err != nil || !set {
		t.Fatalf("First HSetNX should set the field (set=%v, err=%v)", set, err)
	}
	set, _ = store.HSetNX(ctx, "user", "username", "other")
	if set {
		t.Error("Second HSetNX should not overwrite the field")
	}

	err = store.HSet(ctx, "user", map[string]string{"full_name": "Full Name", "token": ""})
	if err != nil {
		t.Fatalf("HSet failed: %v", err)
	}

	value, ok, err := store.HGet(ctx, "user", "username")
	if err != nil || !ok || value != "u" {
		t.Errorf("Expected username=u, got %q (ok=%v, err=%v)", value, ok, err)
	}
	if _, ok, _ := store.HGet(ctx, "user", "missing"); ok {
		t.Error("Expected missing field to report ok=false")
	}
	if _, ok, _ := store.HGet(ctx, "missing-hash", "f"); ok {
		t.Error("Expected field of missing hash to report ok=false")
	}

	all, err := store.HGetAll(ctx, "user")
	if err != nil {
		t.Fatalf("HGetAll failed: %v", err)
	}
	if len(all) != 3 || all["full_name"] != "Full Name" || all["token"] != "" {
		t.Errorf("Unexpected hash contents: %v", all)
	}

	all, err = store.HGetAll(ctx, "missing-hash")
	if err != nil || len(all) != 0 {
		t.Errorf("Expected empty map for missing hash, got %v (err=%v)", all, err)
	}

	// type mismatch is reported, not silently ignored
	_ = store.SetE(ctx, "plain", []byte("v"), 0)
	if _, _, err := store.HGet(ctx, "plain", "f"); err == nil {
		t.Error("Expected an error for HGet on a string key")
	}
}

func testOrderedSet(t *testing.T, factory Factory) {
	store, _ := factory(t)
	defer store.Close()
	ctx := context.Background()

	for member, score := range map[string]float64{"a": 5, "b": 10, "c": 3} {
		if err := store.ZAdd(ctx, "queue", member, score); err != nil {
			t.Fatalf("ZAdd failed: %v", err)
		}
	}
	// re-adding a member updates its score instead of duplicating it
	_ = store.ZAdd(ctx, "queue", "c", 4)

	if n, err := store.ZCard(ctx, "queue"); err != nil || n != 3 {
		t.Fatalf("Expected 3 members, got %d (err=%v)", n, err)
	}

	for _, want := range []struct {
		member string
		score  float64
	}{{"b", 10}, {"a", 5}, {"c", 4}} {
		member, score, err := store.BZPopMax(ctx, "queue")
		if err != nil {
			t.Fatalf("BZPopMax failed: %v", err)
		}
		if member != want.member || score != want.score {
			t.Errorf("Expected (%s,%v), got (%s,%v)", want.member, want.score, member, score)
		}
	}

	if n, _ := store.ZCard(ctx, "queue"); n != 0 {
		t.Errorf("Expected empty set after popping everything, got %d", n)
	}
	if ok, _ := store.Has(ctx, "queue"); ok {
		t.Error("An emptied ordered set should not exist anymore")
	}
}

func testBlockingPop(t *testing.T, factory Factory) {
	store, _ := factory(t)
	defer store.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	type result struct {
		member string
		err    error
	}
	results := make(chan result, 1)

	go func() {
		member, _, err := store.BZPopMax(ctx, "blocking")
		results <- result{member, err}
	}()

	select {
	case r := <-results:
		t.Fatalf("BZPopMax returned before anything was added: %+v", r)
	case <-time.After(100 * time.Millisecond):
	}

	if err := store.ZAdd(ctx, "blocking", "late", 1); err != nil {
		t.Fatalf("ZAdd failed: %v", err)
	}

	select {
	case r := <-results:
		if r.err != nil || r.member != "late" {
			t.Errorf("Expected late, got %q (err=%v)", r.member, r.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("BZPopMax did not wake up after ZAdd")
	}
}

func testBlockingPopCancel(t *testing.T, factory Factory) {
	store, _ := factory(t)
	defer store.Close()
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	var err error
	go func() {
		defer wg.Done()
		_, _, err = store.BZPopMax(ctx, "never-filled")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	wg.Wait()

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func testKeys(t *testing.T, factory Factory) {
	store, _ := factory(t)
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = store.SetE(ctx, fmt.Sprintf("cache:widget:%d", i), []byte("v"), time.Hour)
	}
	_ = store.SetE(ctx, "cache:gadget:1", []byte("v"), time.Hour)
	_ = store.HSet(ctx, "sessions:user:u", map[string]string{"username": "u"})

	keys, err := store.Keys(ctx, "cache:widget:*")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("Expected 3 widget keys, got %v", keys)
	}

	keys, _ = store.Keys(ctx, "sessions:*")
	if len(keys) != 1 || keys[0] != "sessions:user:u" {
		t.Errorf("Expected [sessions:user:u], got %v", keys)
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// FakeClock is a manually advanced time source for backends that accept a clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock starting at a fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
