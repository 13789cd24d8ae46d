package odm

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dODM/lib/cache"
	"github.com/ValentinKolb/dODM/lib/docstore"
	"github.com/ValentinKolb/dODM/lib/geo"
	"github.com/ValentinKolb/dODM/lib/odm/snapshot"
	"github.com/ValentinKolb/dODM/lib/schema"
	"github.com/lni/dragonboat/v4/logger"
	"sort"
	"time"
)

var log = logger.GetLogger("odm")

// DocumentTTL is the lifetime of a cached snapshot. Every cache hit extends it to the full window.
const DocumentTTL = 24 * time.Hour

// Binding is everything a kind needs to operate
type Binding struct {
	Schema     *schema.Entry                // Required
	Collection docstore.ICollection         // Required
	Cache      cache.ICacheStore            // Optional; without cache every lookup hits the collection
	Resolver   geo.IResolver                // Required if the schema declares a location field
	Serializer snapshot.ISnapshotSerializer // Snapshot format (nil = BSON)
	TTL        time.Duration                // Snapshot lifetime (0 = DocumentTTL)
}

// Kind is the handle for one registered model kind. All model operations go through it.
// A Kind is safe for concurrent use; the models it creates are not.
type Kind struct {
	name       string
	schema     *schema.Entry
	coll       docstore.ICollection
	cache      cache.ICacheStore
	resolver   geo.IResolver
	serializer snapshot.ISnapshotSerializer
	ttl        time.Duration
	metrics    kindMetrics
}

// Register binds a kind to its stores and creates the unique, regular and geospatial indexes
// its schema requests. Index creation is idempotent, but Register should run once per kind
// during bootstrap.
func Register(ctx context.Context, b Binding) (*Kind, error) {
	if b.Schema == nil {
		return nil, errors.New("register: schema is required")
	}
	if b.Collection == nil {
		return nil, fmt.Errorf("register %s: collection is required", b.Schema.Kind())
	}
	if b.Schema.LocationField() != "" && b.Resolver == nil {
		return nil, fmt.Errorf("register %s: location field %q requires a resolver", b.Schema.Kind(), b.Schema.LocationField())
	}

	k := &Kind{
		name:       b.Schema.Kind(),
		schema:     b.Schema,
		coll:       b.Collection,
		cache:      b.Cache,
		resolver:   b.Resolver,
		serializer: b.Serializer,
		ttl:        b.TTL,
		metrics:    newKindMetrics(b.Schema.Kind()),
	}
	if k.serializer == nil {
		k.serializer = snapshot.NewBSONSerializer()
	}
	if k.ttl <= 0 {
		k.ttl = DocumentTTL
	}

	specs := k.IndexSpecs()
	for _, spec := range specs {
		if err := k.coll.CreateIndex(ctx, spec); err != nil {
			return nil, fmt.Errorf("register %s: failed to create %s index on %s: %w", k.name, spec.Type, spec.Field, err)
		}
	}
	log.Infof("registered kind %s (%d indexes, cache=%v)", k.name, len(specs), k.cache != nil)
	return k, nil
}

// Name returns the kind name
func (k *Kind) Name() string { return k.name }

// Schema returns the schema entry of the kind
func (k *Kind) Schema() *schema.Entry { return k.schema }

// CacheKey returns the cache key of a document of this kind
func (k *Kind) CacheKey(id string) string { return cache.DocumentKey(k.name, id) }

// IndexSpecs returns the indexes requested by the schema
func (k *Kind) IndexSpecs() []docstore.IndexSpec {
	var specs []docstore.IndexSpec
	for _, field := range k.schema.UniqueIndexes() {
		specs = append(specs, docstore.IndexSpec{Field: field, Type: docstore.IndexTUnique})
	}
	for _, field := range k.schema.RegularIndexes() {
		specs = append(specs, docstore.IndexSpec{Field: field, Type: docstore.IndexTRegular})
	}
	if geoIndex := k.schema.GeoIndex(); geoIndex != "" {
		specs = append(specs, docstore.IndexSpec{Field: geoIndex, Type: docstore.IndexTGeo})
	}
	return specs
}

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

// New creates an unsaved model. Schema violations are reported before anything else happens;
// after validation the attributes are assigned through Set, so a location field is geocoded.
func (k *Kind) New(ctx context.Context, attrs map[string]any) (*Model, error) {
	if missing := k.schema.MissingRequired(attrs); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s requires %v", ErrMissingRequiredAttribute, k.name, missing)
	}
	if _, ok := attrs[schema.IDField]; ok {
		return nil, fmt.Errorf("%w: %s can not be set", ErrAttributeNotAdmissible, schema.IDField)
	}
	if bad := k.schema.Inadmissible(attrs); len(bad) > 0 {
		return nil, fmt.Errorf("%w: %s does not admit %v", ErrAttributeNotAdmissible, k.name, bad)
	}

	m := newModel(k)
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	// "<loc>_loc" sorts after "<loc>", so an explicitly supplied point wins over the resolved one
	sort.Strings(names)
	for _, name := range names {
		if err := m.Set(ctx, name, attrs[name]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// rebuild creates a persisted model from a stored document or cached snapshot. The document
// passes the same schema checks as New. A location field without resolved point (e.g. written
// by another tool) is geocoded and the point is left dirty for the next Save.
func (k *Kind) rebuild(ctx context.Context, doc map[string]any) (*Model, error) {
	attrs := snapshot.NormalizeMap(doc)
	if attrs == nil {
		attrs = map[string]any{}
	}

	if missing := k.schema.MissingRequired(attrs); len(missing) > 0 {
		return nil, fmt.Errorf("%w: stored %s document lacks %v", ErrMissingRequiredAttribute, k.name, missing)
	}
	if bad := k.schema.Inadmissible(attrs); len(bad) > 0 {
		return nil, fmt.Errorf("%w: stored %s document has %v", ErrAttributeNotAdmissible, k.name, bad)
	}

	m := newModel(k)
	if raw, ok := attrs[schema.IDField]; ok {
		if id, isString := raw.(string); isString {
			m.id = id
		} else {
			m.id = fmt.Sprint(raw)
		}
		delete(attrs, schema.IDField)
	}
	m.attrs = attrs

	if loc := k.schema.LocationField(); loc != "" {
		if _, hasValue := attrs[loc]; hasValue {
			if _, hasPoint := attrs[k.schema.GeoIndex()]; !hasPoint {
				m.enrich(ctx, loc)
			}
		}
	}
	return m, nil
}

// --------------------------------------------------------------------------
// Lookup
// --------------------------------------------------------------------------

// FindByID returns the model with the given identifier. The cache is consulted first; a hit
// extends the snapshot lifetime to the full TTL. On a miss the collection is queried and the
// cache is repopulated. A missing document is reported with false, not with an error.
func (k *Kind) FindByID(ctx context.Context, id string) (*Model, bool, error) {
	if k.cache != nil {
		m, ok, err := k.findCached(ctx, id)
		if err != nil || ok {
			return m, ok, err
		}
	}

	doc, found, err := k.coll.FindByID(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("find %s %s: %w", k.name, id, err)
	}
	if !found {
		return nil, false, nil
	}

	m, err := k.rebuild(ctx, doc)
	if err != nil {
		return nil, false, err
	}
	if k.cache != nil {
		if err := k.writeSnapshot(ctx, m); err != nil {
			return nil, false, err
		}
		k.metrics.cacheRepairs.Inc()
	}
	return m, true, nil
}

// findCached serves a lookup from the cache. A snapshot that can not be decoded or does not
// satisfy the schema counts as a miss and is overwritten by the caller.
func (k *Kind) findCached(ctx context.Context, id string) (*Model, bool, error) {
	key := k.CacheKey(id)
	data, ok, err := k.cache.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	if !ok {
		k.metrics.cacheMisses.Inc()
		return nil, false, nil
	}

	attrs, err := k.serializer.Deserialize(data)
	if err != nil {
		k.metrics.cacheCorrupt.Inc()
		log.Warningf("ignoring undecodable snapshot %s: %v", key, err)
		return nil, false, nil
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	attrs[schema.IDField] = id

	// a snapshot violating the schema is replaced from the collection, not kept alive
	m, err := k.rebuild(ctx, attrs)
	if err != nil {
		k.metrics.cacheCorrupt.Inc()
		log.Warningf("ignoring invalid snapshot %s: %v", key, err)
		return nil, false, nil
	}

	if _, err := k.cache.Expire(ctx, key, k.ttl); err != nil {
		return nil, false, fmt.Errorf("refresh snapshot %s: %w", key, err)
	}
	k.metrics.cacheHits.Inc()
	return m, true, nil
}

// Find returns a cursor over the documents matching an equality filter. Bulk queries do not
// consult or populate the cache.
func (k *Kind) Find(ctx context.Context, filter map[string]any) (*Cursor, error) {
	cur, err := k.coll.Find(ctx, docstore.Filter(filter))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", k.name, err)
	}
	return newCursor(k, cur), nil
}

// DeleteAll removes every document of the kind from the collection. Cached snapshots are
// left alone and expire on their own.
func (k *Kind) DeleteAll(ctx context.Context) (int64, error) {
	n, err := k.coll.DeleteMany(ctx, docstore.Filter{})
	if err != nil {
		return 0, fmt.Errorf("delete all %s: %w", k.name, err)
	}
	log.Infof("deleted %d %s documents", n, k.name)
	return n, nil
}

// Aggregate runs an aggregation pipeline on the collection and returns raw documents.
// Backends without aggregation support return a docstore.Error with RetCUnsupportedOperation.
func (k *Kind) Aggregate(ctx context.Context, pipeline []map[string]any) (docstore.ICursor, error) {
	return k.coll.Aggregate(ctx, pipeline)
}

// --------------------------------------------------------------------------
// Cache Helper
// --------------------------------------------------------------------------

// writeSnapshot stores the full attribute set of a persisted model with a fresh TTL
func (k *Kind) writeSnapshot(ctx context.Context, m *Model) error {
	if k.cache == nil {
		return nil
	}
	key := k.CacheKey(m.id)
	data, err := k.serializer.Serialize(m.snapshot())
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	if err := k.cache.SetE(ctx, key, data, k.ttl); err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	return nil
}
