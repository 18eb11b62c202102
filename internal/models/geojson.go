package models

// GeoJSON type names
const (
	TypeFeatureCollection = "FeatureCollection"
	TypeFeature           = "Feature"
	TypePoint             = "Point"
)

// Well-known feature property keys
const (
	PropID                    = "id"
	PropMood                  = "mood"
	PropTimestamp             = "timestamp"
	PropCluster               = "cluster"
	PropClusterID             = "cluster_id"
	PropPointCount            = "point_count"
	PropPointCountAbbreviated = "point_count_abbreviated"
	PropSum                   = "sum"
	PropCount                 = "count"
)

// FeatureCollection represents a GeoJSON FeatureCollection
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature represents a GeoJSON Feature with a Point geometry
type Feature struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id,omitempty"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry represents a GeoJSON Point geometry
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates Coordinates `json:"coordinates"`
}

// Coordinates represents [longitude, latitude]
type Coordinates [2]float64

// Lng returns the longitude component
func (c Coordinates) Lng() float64 { return c[0] }

// Lat returns the latitude component
func (c Coordinates) Lat() float64 { return c[1] }

// NewFeatureCollection wraps features, never returning a nil slice
func NewFeatureCollection(features []Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{Type: TypeFeatureCollection, Features: features}
}

// NewPointFeature creates a point feature at lng/lat
func NewPointFeature(id string, lng, lat float64, props map[string]interface{}) Feature {
	if props == nil {
		props = map[string]interface{}{}
	}
	return Feature{
		Type:       TypeFeature,
		ID:         id,
		Geometry:   Geometry{Type: TypePoint, Coordinates: Coordinates{lng, lat}},
		Properties: props,
	}
}

// IsCluster reports whether the feature is a cluster aggregate
func (f Feature) IsCluster() bool {
	v, ok := f.Properties[PropCluster].(bool)
	return ok && v
}

// IntProp reads a numeric property as int
func (f Feature) IntProp(key string) (int, bool) {
	v, ok := f.FloatProp(key)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// FloatProp reads a numeric property as float64, accepting any Go number
func (f Feature) FloatProp(key string) (float64, bool) {
	switch v := f.Properties[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		return 0, false
	}
}

// MoodFeature converts an observation into a point feature
func MoodFeature(m MoodObservation) Feature {
	return NewPointFeature(m.ID, m.Lng, m.Lat, map[string]interface{}{
		PropMood:      m.Mood,
		PropTimestamp: m.Timestamp,
	})
}
