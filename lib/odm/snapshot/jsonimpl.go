package snapshot

import (
	"bytes"
	"encoding/json"
)

// NewJSONSerializer creates a serializer using JSON. Snapshots are human-readable, e.g. with
// redis-cli, but lossy: times come back as strings, binary values as base64 strings and
// floats without a fractional part as integers.
func NewJSONSerializer() ISnapshotSerializer {
	return &jsonSerializerImpl{}
}

type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see snapshot.ISnapshotSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Name() string {
	return "json"
}

func (j jsonSerializerImpl) Serialize(attrs map[string]any) ([]byte, error) {
	return json.Marshal(attrs)
}

func (j jsonSerializerImpl) Deserialize(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotADocument
	}
	return NormalizeMap(raw), nil
}
