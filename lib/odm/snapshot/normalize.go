package snapshot

import (
	"encoding/json"
	"github.com/ValentinKolb/dODM/lib/geo"
	"go.mongodb.org/mongo-driver/v2/bson"
	"math"
	"reflect"
	"time"
)

// Normalize converts an attribute value into its canonical form:
//
//   - all integer types become int64 (uint64 values above MaxInt64 become float64)
//   - float32 and json.Number become float64 or int64
//   - bson.D, bson.M and other string keyed maps become map[string]any
//   - bson.A and other slices become []any (except []byte)
//   - maps shaped like a GeoJSON point become geo.Point
//   - time.Time is converted to UTC with millisecond precision, like BSON stores it
//   - bson.ObjectID becomes its hex string, bson.DateTime a time.Time, bson.Binary its data
//
// Values read back from the cache or the document store therefore compare equal to the values
// that were written.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil, string, bool, float64, int64, []byte, geo.Point:
		return v
	case *geo.Point:
		if val == nil {
			return nil
		}
		return *val
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint:
		return normalizeUint(uint64(val))
	case uint64:
		return normalizeUint(val)
	case float32:
		return float64(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case time.Time:
		return val.UTC().Truncate(time.Millisecond)
	case bson.DateTime:
		return val.Time().UTC()
	case bson.ObjectID:
		return val.Hex()
	case bson.Binary:
		return val.Data
	case bson.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = e.Value
		}
		return normalizeDocument(m)
	case bson.M:
		return normalizeDocument(val)
	case map[string]any:
		return normalizeDocument(val)
	case bson.A:
		return normalizeSlice(val)
	case []any:
		return normalizeSlice(val)
	}

	// remaining maps and slices of concrete types, e.g. []string or map[string]int
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return normalizeDocument(m)
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	}
	return v
}

// NormalizeMap normalizes every value of an attribute set into a new map
func NormalizeMap(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = Normalize(v)
	}
	return out
}

func normalizeDocument(m map[string]any) any {
	out := NormalizeMap(m)
	if p, ok := geo.PointFromMap(out); ok {
		return p
	}
	return out
}

func normalizeSlice(s []any) []any {
	out := make([]any, len(s))
	for i, e := range s {
		out[i] = Normalize(e)
	}
	return out
}

func normalizeUint(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}
