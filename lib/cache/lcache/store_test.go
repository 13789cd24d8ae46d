package lcache

import (
	"context"
	"errors"
	"github.com/ValentinKolb/dODM/lib/cache"
	"github.com/ValentinKolb/dODM/lib/cache/cachetest"
	"testing"
	"time"
)

func Test(t *testing.T) {
	cachetest.RunCacheStoreTests(t, "LocalStore", func(t *testing.T) (cache.ICacheStore, func(time.Duration)) {
		clock := cachetest.NewFakeClock()
		return NewLocalStore(&Options{Clock: clock.Now}), clock.Advance
	})
}

func TestClosedStore(t *testing.T) {
	store := NewLocalStore(nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, _, err := store.BZPopMax(ctx, "q")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var cerr *cache.Error
	select {
	case err := <-done:
		if !errors.As(err, &cerr) || cerr.Code != cache.RetCClosed {
			t.Errorf("Expected RetCClosed from blocked BZPopMax, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("BZPopMax did not return after Close")
	}

	if err := store.SetE(ctx, "k", []byte("v"), 0); !errors.As(err, &cerr) || cerr.Code != cache.RetCClosed {
		t.Errorf("Expected RetCClosed from SetE after Close, got %v", err)
	}
}

func TestWrongType(t *testing.T) {
	store := NewLocalStore(nil)
	defer store.Close()
	ctx := context.Background()

	_ = store.SetE(ctx, "plain", []byte("v"), 0)

	var cerr *cache.Error
	if err := store.ZAdd(ctx, "plain", "m", 1); !errors.As(err, &cerr) || cerr.Code != cache.RetCWrongType {
		t.Errorf("Expected RetCWrongType from ZAdd on a string key, got %v", err)
	}
	if _, err := store.HSetNX(ctx, "plain", "f", "v"); !errors.As(err, &cerr) || cerr.Code != cache.RetCWrongType {
		t.Errorf("Expected RetCWrongType from HSetNX on a string key, got %v", err)
	}
}

func TestExpiredHashIsRecreated(t *testing.T) {
	clock := cachetest.NewFakeClock()
	store := NewLocalStore(&Options{Clock: clock.Now})
	defer store.Close()
	ctx := context.Background()

	_ = store.HSet(ctx, "h", map[string]string{"a": "1"})
	_, _ = store.Expire(ctx, "h", time.Second)
	clock.Advance(2 * time.Second)

	set, err := store.HSetNX(ctx, "h", "a", "2")
	if err != nil || !set {
		t.Fatalf("Expected HSetNX to recreate an expired hash (set=%v, err=%v)", set, err)
	}
	if ttl, ok, _ := store.TTL(ctx, "h"); !ok || ttl != 0 {
		t.Errorf("Recreated hash should not inherit the old expiry, got %v", ttl)
	}
}
