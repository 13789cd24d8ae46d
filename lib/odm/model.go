package odm

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dODM/lib/docstore"
	"github.com/ValentinKolb/dODM/lib/geo"
	"github.com/ValentinKolb/dODM/lib/odm/snapshot"
	"github.com/ValentinKolb/dODM/lib/schema"
	mapset "github.com/deckarep/golang-set/v2"
	"sort"
)

// Model is one document of a kind. It tracks which attributes changed since the last save,
// so updates only send the delta to the collection while the cache always receives the full
// attribute set.
//
// A Model is not safe for concurrent use.
type Model struct {
	kind    *Kind
	attrs   map[string]any
	dirty   mapset.Set[string]
	id      string // empty until the first save
	deleted bool
}

func newModel(k *Kind) *Model {
	return &Model{
		kind:  k,
		attrs: make(map[string]any),
		dirty: mapset.NewThreadUnsafeSet[string](),
	}
}

// Kind returns the kind name of the model
func (m *Model) Kind() string { return m.kind.name }

// ID returns the identifier. The boolean is false until the model is saved.
func (m *Model) ID() (string, bool) { return m.id, m.id != "" }

// Dirty returns the attributes changed since the last save, sorted
func (m *Model) Dirty() []string {
	out := m.dirty.ToSlice()
	sort.Strings(out)
	return out
}

// Attributes returns a copy of all attributes, including "_id" once the model is persisted
func (m *Model) Attributes() map[string]any {
	out := docstore.CopyDocument(m.attrs)
	if m.id != "" {
		out[schema.IDField] = m.id
	}
	return out
}

// snapshot is the cached representation: all attributes plus the identifier as string
func (m *Model) snapshot() map[string]any {
	return m.Attributes()
}

// Get returns the value of an attribute. Values are stored normalized (see snapshot.Normalize),
// e.g. every integer is returned as int64.
func (m *Model) Get(name string) (any, error) {
	if name == schema.IDField && m.id != "" {
		return m.id, nil
	}
	v, ok := m.attrs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrAttributeNotFound, m.kind.name, name)
	}
	return v, nil
}

// Set assigns an attribute and marks it dirty. Assigning the location field also geocodes the
// value into "<field>_loc"; if that fails the point is replaced by geo.FailureSentinel and
// Set still succeeds.
func (m *Model) Set(ctx context.Context, name string, value any) error {
	if m.deleted {
		return ErrModelDeleted
	}
	if name == schema.IDField {
		return fmt.Errorf("%w: %s can not be set", ErrAttributeNotAdmissible, schema.IDField)
	}
	if !m.kind.schema.IsAdmissible(name) {
		return fmt.Errorf("%w: %s.%s", ErrAttributeNotAdmissible, m.kind.name, name)
	}

	m.attrs[name] = snapshot.Normalize(value)
	m.dirty.Add(name)

	if name == m.kind.schema.LocationField() {
		m.enrich(ctx, name)
	}
	return nil
}

// enrich resolves the location field into its point attribute
func (m *Model) enrich(ctx context.Context, loc string) {
	target := m.kind.schema.GeoIndex()

	var resolved any = geo.FailureSentinel
	if address, ok := m.attrs[loc].(string); ok {
		point, err := m.kind.resolver.Resolve(ctx, address)
		if err != nil {
			log.Debugf("%s.%s: %v", m.kind.name, loc, err)
		} else {
			resolved = point
		}
	}

	m.attrs[target] = resolved
	m.dirty.Add(target)
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

// Save writes the model. The first save inserts all attributes and assigns the identifier;
// later saves send only the dirty attributes and do nothing if there are none. After every
// successful write the full attribute set is cached. The dirty set is cleared once the
// collection accepted the write, even if the cache write fails afterwards.
func (m *Model) Save(ctx context.Context) error {
	if m.deleted {
		return ErrModelDeleted
	}
	k := m.kind

	if m.id == "" {
		id, err := k.coll.InsertOne(ctx, docstore.CopyDocument(m.attrs))
		if err != nil {
			return fmt.Errorf("insert %s: %w", k.name, err)
		}
		m.id = id
		m.dirty.Clear()
		k.metrics.inserts.Inc()
		return k.writeSnapshot(ctx, m)
	}

	if m.dirty.Cardinality() == 0 {
		return nil
	}

	update := make(map[string]any, m.dirty.Cardinality())
	m.dirty.Each(func(name string) bool {
		if name != schema.IDField {
			update[name] = m.attrs[name]
		}
		return false
	})

	matched, err := k.coll.UpdateByID(ctx, m.id, docstore.CopyDocument(update))
	if err != nil {
		return fmt.Errorf("update %s %s: %w", k.name, m.id, err)
	}
	if !matched {
		// deleted by someone else: no snapshot is written
		return fmt.Errorf("%w: %s %s no longer exists", ErrModelNotPersisted, k.name, m.id)
	}
	m.dirty.Clear()
	k.metrics.updates.Inc()
	return k.writeSnapshot(ctx, m)
}

// Delete removes the model from the cache and the collection and empties it. The cache entry
// goes first; failing to remove it is logged and does not stop the delete. The model can not
// be used afterwards.
func (m *Model) Delete(ctx context.Context) error {
	if m.deleted {
		return ErrModelDeleted
	}
	if m.id == "" {
		return fmt.Errorf("%w: %s has no identifier", ErrModelNotPersisted, m.kind.name)
	}
	k := m.kind

	if k.cache != nil {
		if err := k.cache.Delete(ctx, k.CacheKey(m.id)); err != nil {
			log.Warningf("failed to remove snapshot %s: %v", k.CacheKey(m.id), err)
		}
	}

	if _, err := k.coll.DeleteByID(ctx, m.id); err != nil {
		return fmt.Errorf("delete %s %s: %w", k.name, m.id, err)
	}
	k.metrics.deletes.Inc()

	m.attrs = make(map[string]any)
	m.dirty.Clear()
	m.id = ""
	m.deleted = true
	return nil
}
