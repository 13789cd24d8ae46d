package helpdesk

import (
	"context"
	"errors"
	"github.com/ValentinKolb/dODM/lib/cache"
	"github.com/ValentinKolb/dODM/lib/cache/cachetest"
	"github.com/ValentinKolb/dODM/lib/cache/lcache"
	"go.uber.org/goleak"
	"sync"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestQueue(t *testing.T) (IQueue, cache.ICacheStore, *cachetest.FakeClock) {
	t.Helper()
	clock := cachetest.NewFakeClock()
	store := lcache.NewLocalStore(nil)
	t.Cleanup(func() { _ = store.Close() })
	return NewQueue(store, &Options{Clock: clock.Now}), store, clock
}

// serveAsync runs ServeNext on a goroutine and delivers the result
func serveAsync(ctx context.Context, q IQueue) <-chan string {
	ch := make(chan string, 1)
	go func() {
		id, err := q.ServeNext(ctx)
		if err != nil {
			id = "error: " + err.Error()
		}
		ch <- id
	}()
	return ch
}

// TestQueueScenario serves three requests by priority and then blocks
func TestQueueScenario(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	_ = q.Submit(ctx, "a", 5)
	_ = q.Submit(ctx, "b", 10)
	_ = q.Submit(ctx, "c", 3)

	for _, want := range []string{"b", "a", "c"} {
		got, err := q.ServeNext(ctx)
		if err != nil {
			t.Fatalf("ServeNext failed: %v", err)
		}
		if got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}

	result := serveAsync(ctx, q)
	select {
	case got := <-result:
		t.Fatalf("ServeNext on an empty queue returned %q instead of blocking", got)
	case <-time.After(50 * time.Millisecond):
	}

	_ = q.Submit(ctx, "d", 1)
	select {
	case got := <-result:
		if got != "d" {
			t.Errorf("Expected d, got %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ServeNext did not wake up after a submission")
	}
}

func TestTieBreakEarliestWins(t *testing.T) {
	q, _, clock := newTestQueue(t)
	ctx := context.Background()

	_ = q.Submit(ctx, "zed", 5)
	clock.Advance(time.Second)
	_ = q.Submit(ctx, "amy", 5)
	clock.Advance(time.Second)
	_ = q.Submit(ctx, "bob", 6)

	for _, want := range []string{"bob", "zed", "amy"} {
		if got, _ := q.ServeNext(ctx); got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}
}

func TestResubmitReplacesPriority(t *testing.T) {
	q, _, clock := newTestQueue(t)
	ctx := context.Background()

	_ = q.Submit(ctx, "a", 1)
	_ = q.Submit(ctx, "b", 5)
	clock.Advance(time.Second)
	_ = q.Submit(ctx, "a", 9)

	if n, _ := q.Len(ctx); n != 2 {
		t.Errorf("Re-submission must not duplicate, got %d entries", n)
	}
	if got, _ := q.ServeNext(ctx); got != "a" {
		t.Errorf("Expected a with its new priority first, got %s", got)
	}
}

func TestScore(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		higher float64
		lower  float64
	}{
		{"priority wins over time", score(6, now.Add(time.Hour)), score(5, now)},
		{"earlier wins on equal priority", score(5, now), score(5, now.Add(time.Second))},
		{"negative priorities", score(-1, now), score(-2, now)},
		{"large priorities keep second resolution", score(1<<20, now), score(1<<20, now.Add(time.Second))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.higher <= tt.lower {
				t.Errorf("Expected %v > %v", tt.higher, tt.lower)
			}
		})
	}

	if s := score(5, now); s < 5 || s >= 6 {
		t.Errorf("The tie-break fraction must stay within [0, 1), got %v", s)
	}
}

func TestServeNextCancel(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())

	result := serveAsync(ctx, q)
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case got := <-result:
		if got != "error: "+context.Canceled.Error() {
			t.Errorf("Expected the context error, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ServeNext did not return after cancellation")
	}
}

func TestSubmitEmptyID(t *testing.T) {
	q, _, _ := newTestQueue(t)
	if err := q.Submit(context.Background(), "", 1); err == nil {
		t.Error("Expected an error for an empty requester id")
	}
}

func TestRun(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())

	var (
		mu   sync.Mutex
		seen []string
	)
	all := make(chan struct{})
	handler := func(_ context.Context, id string) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, id)
		if len(seen) == 3 {
			close(all)
		}
		if id == "fails" {
			return errors.New("handler failure")
		}
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- q.Run(ctx, handler) }()

	_ = q.Submit(ctx, "x", 1)
	_ = q.Submit(ctx, "fails", 1)
	_ = q.Submit(ctx, "y", 1)

	select {
	case <-all:
	case <-time.After(2 * time.Second):
		t.Fatal("Worker did not serve all requests")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run should stop cleanly on cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Errorf("Expected 3 handled requests, got %v", seen)
	}
}

func TestRunStopsOnStoreError(t *testing.T) {
	q, store, _ := newTestQueue(t)
	_ = store.Close()

	err := q.Run(context.Background(), func(context.Context, string) error { return nil })
	var cacheErr *cache.Error
	if !errors.As(err, &cacheErr) || cacheErr.Code != cache.RetCClosed {
		t.Errorf("Expected a closed store error, got %v", err)
	}
}

// cancelAfterPop cancels the worker context right after a successful pop
type cancelAfterPop struct {
	cache.ICacheStore
	cancel context.CancelFunc
}

func (s *cancelAfterPop) BZPopMax(ctx context.Context, key string) (string, float64, error) {
	member, score, err := s.ICacheStore.BZPopMax(ctx, key)
	if err == nil {
		s.cancel()
	}
	return member, score, err
}

func TestRunRequeuesOnCancelAfterPop(t *testing.T) {
	clock := cachetest.NewFakeClock()
	store := lcache.NewLocalStore(nil)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQueue(&cancelAfterPop{ICacheStore: store, cancel: cancel}, &Options{Clock: clock.Now})

	bg := context.Background()
	_ = q.Submit(bg, "a", 7)
	_ = q.Submit(bg, "b", 3)

	var handled []string
	err := q.Run(ctx, func(_ context.Context, id string) error {
		handled = append(handled, id)
		return nil
	})
	if err != nil {
		t.Fatalf("Run should stop cleanly, got %v", err)
	}
	if len(handled) != 0 {
		t.Errorf("No request should be handled after cancellation, got %v", handled)
	}
	if n, _ := store.ZCard(bg, cache.HelpdeskQueueKey); n != 2 {
		t.Fatalf("The popped request must be back in the queue, %d waiting", n)
	}

	// the request keeps its position
	direct := NewQueue(store, nil)
	if got, _ := direct.ServeNext(bg); got != "a" {
		t.Errorf("Expected a first, got %s", got)
	}
}
