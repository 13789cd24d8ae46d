package geo

import (
	"fmt"
)

// PointType is the GeoJSON geometry type of a Point
const PointType = "Point"

// Point is a GeoJSON point geometry. Coordinates are ordered longitude, latitude.
// The struct tags produce the document shape expected by 2dsphere indexes.
type Point struct {
	Type        string     `json:"type" bson:"type"`
	Coordinates [2]float64 `json:"coordinates" bson:"coordinates"`
}

// NewPoint creates a point from a longitude and latitude
func NewPoint(lon, lat float64) Point {
	return Point{Type: PointType, Coordinates: [2]float64{lon, lat}}
}

// Lon returns the longitude
func (p Point) Lon() float64 { return p.Coordinates[0] }

// Lat returns the latitude
func (p Point) Lat() float64 { return p.Coordinates[1] }

func (p Point) String() string {
	return fmt.Sprintf("Point(%g, %g)", p.Lon(), p.Lat())
}

// PointFromMap recognizes a decoded GeoJSON point, e.g. {"type": "Point", "coordinates": [lon, lat]}
// as returned by a JSON or BSON decoder. The boolean is false if m is not a point.
func PointFromMap(m map[string]any) (Point, bool) {
	if len(m) != 2 || m["type"] != PointType {
		return Point{}, false
	}

	var coords []any
	switch c := m["coordinates"].(type) {
	case []any:
		coords = c
	case []float64:
		coords = []any{}
		for _, f := range c {
			coords = append(coords, f)
		}
	default:
		return Point{}, false
	}
	if len(coords) != 2 {
		return Point{}, false
	}

	lon, ok1 := toFloat(coords[0])
	lat, ok2 := toFloat(coords[1])
	if !ok1 || !ok2 {
		return Point{}, false
	}
	return NewPoint(lon, lat), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case interface{ Float64() (float64, error) }: // json.Number
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
