package snapshot

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotADocument is returned by Deserialize for input that decodes to something other than an
// attribute set, e.g. a JSON null
var ErrNotADocument = errors.New("snapshot is not a document")

// ISnapshotSerializer encodes the attribute set of a model for the cache.
// Deserialize returns normalized values (see Normalize).
type ISnapshotSerializer interface {
	// Name returns the format name as used in the configuration
	Name() string
	// Serialize encodes an attribute set
	Serialize(attrs map[string]any) ([]byte, error)
	// Deserialize decodes an attribute set. The result is never nil when err is nil.
	Deserialize(b []byte) (map[string]any, error)
}

// ByName returns the serializer for a format name ("bson" or "json")
func ByName(name string) (ISnapshotSerializer, error) {
	switch strings.ToLower(name) {
	case "", "bson":
		return NewBSONSerializer(), nil
	case "json":
		return NewJSONSerializer(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot format %q (expected bson or json)", name)
	}
}
