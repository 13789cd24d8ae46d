package snapshot

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// NewBSONSerializer creates a serializer using BSON, the encoding of the document store.
// It keeps integer, float, binary and time values apart, so cached and stored models compare equal.
func NewBSONSerializer() ISnapshotSerializer {
	return &bsonSerializerImpl{}
}

type bsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see snapshot.ISnapshotSerializer)
// --------------------------------------------------------------------------

func (b bsonSerializerImpl) Name() string {
	return "bson"
}

func (b bsonSerializerImpl) Serialize(attrs map[string]any) ([]byte, error) {
	return bson.Marshal(bson.M(attrs))
}

func (b bsonSerializerImpl) Deserialize(data []byte) (map[string]any, error) {
	var raw bson.M
	if err := bson.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	return NormalizeMap(raw), nil
}
