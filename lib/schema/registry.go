package schema

import (
	"errors"
	"fmt"
	"github.com/puzpuzpuz/xsync/v3"
	"sort"
	"sync/atomic"
)

var (
	// ErrKindExists is returned when a kind is registered twice
	ErrKindExists = errors.New("kind already registered")
	// ErrRegistryFrozen is returned when registering into a frozen registry
	ErrRegistryFrozen = errors.New("schema registry is frozen")
)

// Registry maps kinds to their schema. It is filled during bootstrap and frozen afterwards;
// lookups are safe for concurrent use at any time.
type Registry struct {
	entries *xsync.MapOf[string, *Entry]
	frozen  atomic.Bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: xsync.NewMapOf[string, *Entry]()}
}

// Register adds an entry
func (r *Registry) Register(e *Entry) error {
	if r.frozen.Load() {
		return fmt.Errorf("%w: can not register %s", ErrRegistryFrozen, e.Kind())
	}
	if _, loaded := r.entries.LoadOrStore(e.Kind(), e); loaded {
		return fmt.Errorf("%w: %s", ErrKindExists, e.Kind())
	}
	return nil
}

// Get returns the entry of a kind
func (r *Registry) Get(kind string) (*Entry, bool) {
	return r.entries.Load(kind)
}

// Kinds returns all registered kinds in sorted order
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, r.entries.Size())
	r.entries.Range(func(kind string, _ *Entry) bool {
		kinds = append(kinds, kind)
		return true
	})
	sort.Strings(kinds)
	return kinds
}

// Freeze makes the registry read-only
func (r *Registry) Freeze() {
	r.frozen.Store(true)
}

// Frozen reports whether Freeze was called
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}
