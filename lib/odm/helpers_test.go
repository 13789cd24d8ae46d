package odm

import (
	"context"
	"errors"
	"github.com/ValentinKolb/dODM/lib/cache"
	"github.com/ValentinKolb/dODM/lib/cache/cachetest"
	"github.com/ValentinKolb/dODM/lib/cache/lcache"
	"github.com/ValentinKolb/dODM/lib/docstore"
	"github.com/ValentinKolb/dODM/lib/docstore/memstore"
	"github.com/ValentinKolb/dODM/lib/geo"
	"github.com/ValentinKolb/dODM/lib/schema"
	"sync"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Recording Collection
// --------------------------------------------------------------------------

// recordingCollection counts every call and remembers created indexes and the last update
type recordingCollection struct {
	docstore.ICollection

	mu         sync.Mutex
	calls      map[string]int
	indexes    []docstore.IndexSpec
	lastUpdate docstore.Document
}

func newRecordingCollection(inner docstore.ICollection) *recordingCollection {
	return &recordingCollection{ICollection: inner, calls: map[string]int{}}
}

func (r *recordingCollection) record(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
}

func (r *recordingCollection) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *recordingCollection) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

func (r *recordingCollection) InsertOne(ctx context.Context, doc docstore.Document) (string, error) {
	r.record("InsertOne")
	return r.ICollection.InsertOne(ctx, doc)
}

func (r *recordingCollection) UpdateByID(ctx context.Context, id string, set docstore.Document) (bool, error) {
	r.record("UpdateByID")
	r.mu.Lock()
	r.lastUpdate = docstore.CopyDocument(set)
	r.mu.Unlock()
	return r.ICollection.UpdateByID(ctx, id, set)
}

func (r *recordingCollection) DeleteByID(ctx context.Context, id string) (bool, error) {
	r.record("DeleteByID")
	return r.ICollection.DeleteByID(ctx, id)
}

func (r *recordingCollection) DeleteMany(ctx context.Context, filter docstore.Filter) (int64, error) {
	r.record("DeleteMany")
	return r.ICollection.DeleteMany(ctx, filter)
}

func (r *recordingCollection) FindByID(ctx context.Context, id string) (docstore.Document, bool, error) {
	r.record("FindByID")
	return r.ICollection.FindByID(ctx, id)
}

func (r *recordingCollection) Find(ctx context.Context, filter docstore.Filter) (docstore.ICursor, error) {
	r.record("Find")
	return r.ICollection.Find(ctx, filter)
}

func (r *recordingCollection) Aggregate(ctx context.Context, pipeline []docstore.Document) (docstore.ICursor, error) {
	r.record("Aggregate")
	return r.ICollection.Aggregate(ctx, pipeline)
}

func (r *recordingCollection) CreateIndex(ctx context.Context, spec docstore.IndexSpec) error {
	r.record("CreateIndex")
	r.mu.Lock()
	r.indexes = append(r.indexes, spec)
	r.mu.Unlock()
	return r.ICollection.CreateIndex(ctx, spec)
}

// --------------------------------------------------------------------------
// Recording Cache
// --------------------------------------------------------------------------

var errInjected = errors.New("injected failure")

// recordingCache counts the calls the model layer makes and can inject failures
type recordingCache struct {
	cache.ICacheStore

	mu         sync.Mutex
	calls      int
	failSet    bool
	failDelete bool
}

func (r *recordingCache) record() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func (r *recordingCache) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *recordingCache) SetE(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.record()
	if r.failSet {
		return errInjected
	}
	return r.ICacheStore.SetE(ctx, key, value, ttl)
}

func (r *recordingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	r.record()
	return r.ICacheStore.Get(ctx, key)
}

func (r *recordingCache) Delete(ctx context.Context, key string) error {
	r.record()
	if r.failDelete {
		return errInjected
	}
	return r.ICacheStore.Delete(ctx, key)
}

func (r *recordingCache) Has(ctx context.Context, key string) (bool, error) {
	r.record()
	return r.ICacheStore.Has(ctx, key)
}

func (r *recordingCache) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	r.record()
	return r.ICacheStore.Expire(ctx, key, ttl)
}

func (r *recordingCache) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	r.record()
	return r.ICacheStore.TTL(ctx, key)
}

// --------------------------------------------------------------------------
// Test Environment
// --------------------------------------------------------------------------

var (
	madrid  = geo.NewPoint(-3.7038, 40.4168)
	sevilla = geo.NewPoint(-5.9845, 37.3891)
)

type testEnv struct {
	db       docstore.IDatabase
	cache    *recordingCache
	clock    *cachetest.FakeClock
	provider *geo.StaticProvider
	resolver *geo.Resolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := cachetest.NewFakeClock()
	provider := geo.NewStaticProvider(map[string]geo.Point{
		"Madrid":  madrid,
		"Sevilla": sevilla,
	})
	env := &testEnv{
		db:       memstore.NewMemoryDatabase(),
		cache:    &recordingCache{ICacheStore: lcache.NewLocalStore(&lcache.Options{Clock: clock.Now})},
		clock:    clock,
		provider: provider,
		resolver: geo.NewResolver(provider, &geo.Options{Delay: 0, MaxAttempts: 3}),
	}
	t.Cleanup(func() { _ = env.cache.Close() })
	return env
}

// register binds a kind with a recording collection
func (e *testEnv) register(t *testing.T, kind string, def schema.Definition) (*Kind, *recordingCollection) {
	t.Helper()
	entry, err := schema.NewEntry(kind, def)
	if err != nil {
		t.Fatalf("NewEntry failed: %v", err)
	}
	coll := newRecordingCollection(e.db.Collection(kind))
	k, err := Register(context.Background(), Binding{
		Schema:     entry,
		Collection: coll,
		Cache:      e.cache,
		Resolver:   e.resolver,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return k, coll
}

func widgetDefinition() schema.Definition {
	return schema.Definition{
		RequiredVars:   []string{"name"},
		AdmissibleVars: []string{"name", "color"},
	}
}

func shopDefinition() schema.Definition {
	return schema.Definition{
		RequiredVars:   []string{"name"},
		AdmissibleVars: []string{"address", "phone", "tags", "owner", "rating", "open"},
		UniqueIndexes:  []string{"name"},
		RegularIndexes: []string{"phone"},
		LocationIndex:  "address",
	}
}

// cachedTTL returns the remaining lifetime of a cache key
func (e *testEnv) cachedTTL(t *testing.T, key string) time.Duration {
	t.Helper()
	ttl, ok, err := e.cache.ICacheStore.TTL(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("Expected cache key %s to exist (ok=%v, err=%v)", key, ok, err)
	}
	return ttl
}
