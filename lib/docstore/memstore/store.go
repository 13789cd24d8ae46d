package memstore

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dODM/lib/docstore"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"reflect"
	"sync"
)

// --------------------------------------------------------------------------
// Database
// --------------------------------------------------------------------------

type databaseImpl struct {
	collections *xsync.MapOf[string, *collectionImpl]
}

// NewMemoryDatabase creates an in-process document database.
// Identifiers are random UUIDs; filters support equality on top-level fields only.
func NewMemoryDatabase() docstore.IDatabase {
	return &databaseImpl{
		collections: xsync.NewMapOf[string, *collectionImpl](),
	}
}

func (d *databaseImpl) Collection(name string) docstore.ICollection {
	c, _ := d.collections.LoadOrCompute(name, func() *collectionImpl {
		return newCollection(name)
	})
	return c
}

func (d *databaseImpl) Close(_ context.Context) error {
	return nil
}

// --------------------------------------------------------------------------
// Collection
// --------------------------------------------------------------------------

type collectionImpl struct {
	name string

	mu      sync.RWMutex
	docs    map[string]docstore.Document // id -> document (without _id)
	order   []string                     // insertion order, used for deterministic iteration
	indexes map[string]docstore.IndexType
}

func newCollection(name string) *collectionImpl {
	return &collectionImpl{
		name:    name,
		docs:    make(map[string]docstore.Document),
		indexes: make(map[string]docstore.IndexType),
	}
}

// withID returns a copy of the stored document including its identifier
func withID(id string, doc docstore.Document) docstore.Document {
	out := docstore.CopyDocument(doc)
	out[docstore.IDField] = id
	return out
}

// checkUnique verifies that doc does not collide with another document on a unique index.
// Must be called with the write lock held.
func (c *collectionImpl) checkUnique(selfID string, doc docstore.Document) error {
	for field, typ := range c.indexes {
		if typ != docstore.IndexTUnique {
			continue
		}
		value, ok := doc[field]
		if !ok {
			continue
		}
		for id, other := range c.docs {
			if id == selfID {
				continue
			}
			if otherValue, ok := other[field]; ok && valuesEqual(value, otherValue) {
				return docstore.NewError(docstore.RetCDuplicateKey,
					fmt.Sprintf("duplicate value %v for unique field %q in collection %s", value, field, c.name))
			}
		}
	}
	return nil
}

func (c *collectionImpl) InsertOne(_ context.Context, doc docstore.Document) (string, error) {
	if _, ok := doc[docstore.IDField]; ok {
		return "", docstore.NewError(docstore.RetCInvalidOperation, "document already carries an identifier")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stored := docstore.CopyDocument(doc)
	if stored == nil {
		stored = docstore.Document{}
	}
	if err := c.checkUnique("", stored); err != nil {
		return "", err
	}

	id := uuid.NewString()
	c.docs[id] = stored
	c.order = append(c.order, id)
	return id, nil
}

func (c *collectionImpl) UpdateByID(_ context.Context, id string, set docstore.Document) (bool, error) {
	if _, ok := set[docstore.IDField]; ok {
		return false, docstore.NewError(docstore.RetCInvalidOperation, "the identifier can not be updated")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.docs[id]
	if !ok {
		return false, nil
	}

	updated := docstore.CopyDocument(current)
	for k, v := range docstore.CopyDocument(set) {
		updated[k] = v
	}
	if err := c.checkUnique(id, updated); err != nil {
		return true, err
	}
	c.docs[id] = updated
	return true, nil
}

// removeLocked drops a document. Must be called with the write lock held.
func (c *collectionImpl) removeLocked(id string) {
	delete(c.docs, id)
	for i, other := range c.order {
		if other == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *collectionImpl) DeleteByID(_ context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.docs[id]; !ok {
		return false, nil
	}
	c.removeLocked(id)
	return true, nil
}

func (c *collectionImpl) DeleteMany(_ context.Context, filter docstore.Filter) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matched []string
	for _, id := range c.order {
		if matches(id, c.docs[id], filter) {
			matched = append(matched, id)
		}
	}
	for _, id := range matched {
		c.removeLocked(id)
	}
	return int64(len(matched)), nil
}

func (c *collectionImpl) FindByID(_ context.Context, id string) (docstore.Document, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.docs[id]
	if !ok {
		return nil, false, nil
	}
	return withID(id, doc), true, nil
}

// Find takes a snapshot of the matching documents at call time.
func (c *collectionImpl) Find(_ context.Context, filter docstore.Filter) (docstore.ICursor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []docstore.Document
	for _, id := range c.order {
		if doc := c.docs[id]; matches(id, doc, filter) {
			result = append(result, withID(id, doc))
		}
	}
	return &cursorImpl{docs: result, pos: -1}, nil
}

func (c *collectionImpl) Aggregate(_ context.Context, _ []docstore.Document) (docstore.ICursor, error) {
	return nil, docstore.NewError(docstore.RetCUnsupportedOperation, "Aggregate operation is not supported")
}

func (c *collectionImpl) CreateIndex(_ context.Context, spec docstore.IndexSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.indexes[spec.Field]; ok && existing != spec.Type {
		return docstore.NewError(docstore.RetCInvalidOperation,
			fmt.Sprintf("index on %q already exists with type %s", spec.Field, existing))
	}
	c.indexes[spec.Field] = spec.Type

	// an existing duplicate makes the unique index impossible
	if spec.Type == docstore.IndexTUnique {
		for id, doc := range c.docs {
			if err := c.checkUnique(id, doc); err != nil {
				delete(c.indexes, spec.Field)
				return err
			}
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Matching
// --------------------------------------------------------------------------

func matches(id string, doc docstore.Document, filter docstore.Filter) bool {
	for field, want := range filter {
		if field == docstore.IDField {
			if s, ok := want.(string); !ok || s != id {
				return false
			}
			continue
		}
		have, ok := doc[field]
		if !ok || !valuesEqual(have, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares numbers by value regardless of their Go type and everything else deeply.
func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// --------------------------------------------------------------------------
// Cursor
// --------------------------------------------------------------------------

type cursorImpl struct {
	docs   []docstore.Document
	pos    int
	closed bool
	err    error
}

func (c *cursorImpl) Next(ctx context.Context) bool {
	if c.closed {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		c.closed = true
		return false
	}
	if c.pos+1 >= len(c.docs) {
		c.closed = true
		return false
	}
	c.pos++
	return true
}

func (c *cursorImpl) Document() docstore.Document {
	if c.pos < 0 || c.pos >= len(c.docs) {
		return nil
	}
	return c.docs[c.pos]
}

func (c *cursorImpl) Err() error {
	return c.err
}

func (c *cursorImpl) Close(_ context.Context) error {
	c.closed = true
	return nil
}
