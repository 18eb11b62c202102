package mapengine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/jengzang/moodmap-backend-go/internal/cluster"
	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// SourceOptions describes a GeoJSON source
type SourceOptions struct {
	Cluster           bool
	ClusterMaxZoom    int
	ClusterRadius     float64
	ClusterMinPoints  int
	ClusterProperties []cluster.Accumulator
}

// GeoJSONSource is a named point-feature source, optionally clustered
type GeoJSONSource struct {
	name string
	opts SourceOptions
	m    *Map

	// guarded by m.mu
	data     models.FeatureCollection
	hash     uint64
	hashed   bool // false when the data could not be digested
	index    *cluster.Index
	revision uint64
}

// AddSource registers a new source and indexes its initial data
func (m *Map) AddSource(name string, opts SourceOptions, data models.FeatureCollection) (*GeoJSONSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return nil, ErrMapRemoved
	}
	if _, ok := m.sources[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceExists, name)
	}

	src := &GeoJSONSource{name: name, opts: opts, m: m}
	hash, err := hashFeatures(data)
	if err != nil {
		m.logger.Warn("source data not hashable, updates will always reload",
			zap.String("source", name), zap.Error(err))
	}
	src.load(data, hash, err == nil)
	m.sources[name] = src
	m.renderLocked()

	m.logger.Debug("source added",
		zap.String("source", name),
		zap.Int("features", len(data.Features)),
		zap.Bool("cluster", opts.Cluster))
	return src, nil
}

// Source returns a source by name
func (m *Map) Source(name string) (*GeoJSONSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.removed {
		return nil, ErrMapRemoved
	}
	src, ok := m.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	return src, nil
}

// Name returns the source name
func (s *GeoJSONSource) Name() string {
	return s.name
}

// Options returns the source options
func (s *GeoJSONSource) Options() SourceOptions {
	return s.opts
}

// SetData replaces the source data in place. Layers, listeners and the camera
// are untouched. Returns false when the data is identical to what the source
// already holds.
func (s *GeoJSONSource) SetData(data models.FeatureCollection) (bool, error) {
	hash, hashErr := hashFeatures(data)

	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.removed {
		return false, ErrMapRemoved
	}
	if hashErr == nil && s.hashed && hash == s.hash && len(data.Features) == len(s.data.Features) {
		return false, nil
	}
	if hashErr != nil {
		s.m.logger.Warn("source data not hashable, reloading",
			zap.String("source", s.name), zap.Error(hashErr))
	}

	s.load(data, hash, hashErr == nil)
	s.m.renderLocked()
	return true, nil
}

func (s *GeoJSONSource) load(data models.FeatureCollection, hash uint64, hashed bool) {
	s.data = models.NewFeatureCollection(data.Features)
	s.hash = hash
	s.hashed = hashed
	s.revision++
	if s.opts.Cluster {
		s.index = cluster.NewIndex(cluster.Options{
			MinZoom:      0,
			MaxZoom:      s.opts.ClusterMaxZoom,
			MinPoints:    s.opts.ClusterMinPoints,
			Radius:       s.opts.ClusterRadius,
			Extent:       512,
			NodeSize:     64,
			Accumulators: s.opts.ClusterProperties,
		}, s.data.Features)
	}
}

// Data returns the feature collection last submitted
func (s *GeoJSONSource) Data() models.FeatureCollection {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	return s.data
}

// Revision counts data changes, starting at 1 for the initial data
func (s *GeoJSONSource) Revision() uint64 {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	return s.revision
}

// Features returns clusters and points inside bbox at zoom. Unclustered
// sources return their raw points inside the box.
func (s *GeoJSONSource) Features(bbox models.BBox, zoom float64) []models.Feature {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	return s.featuresLocked(bbox, zoom)
}

func (s *GeoJSONSource) featuresLocked(bbox models.BBox, zoom float64) []models.Feature {
	if s.index != nil {
		return s.index.Clusters(bbox, zoom)
	}
	var out []models.Feature
	full := bbox[2]-bbox[0] >= 360
	for _, f := range s.data.Features {
		c := f.Geometry.Coordinates
		if c.Lat() < bbox[1] || c.Lat() > bbox[3] {
			continue
		}
		if full || inLngRange(c.Lng(), bbox[0], bbox[2]) {
			out = append(out, f)
		}
	}
	return out
}

// ClusterExpansionZoom resolves the zoom at which a cluster splits. The
// result is discarded when ctx is cancelled or the map was removed meanwhile.
func (s *GeoJSONSource) ClusterExpansionZoom(ctx context.Context, clusterID int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.m.mu.RLock()
	removed := s.m.removed
	index := s.index
	s.m.mu.RUnlock()

	if removed {
		return 0, ErrMapRemoved
	}
	if index == nil {
		return 0, fmt.Errorf("%w: source %s is not clustered", cluster.ErrClusterNotFound, s.name)
	}

	zoom, err := index.ExpansionZoom(clusterID)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.m.Removed() {
		return 0, ErrMapRemoved
	}
	return zoom, nil
}

// ClusterLeaves returns the input points under a cluster
func (s *GeoJSONSource) ClusterLeaves(clusterID, limit, offset int) ([]models.Feature, error) {
	s.m.mu.RLock()
	index := s.index
	s.m.mu.RUnlock()
	if index == nil {
		return nil, fmt.Errorf("%w: source %s is not clustered", cluster.ErrClusterNotFound, s.name)
	}
	return index.Leaves(clusterID, limit, offset)
}

// ClusterChildren returns the next-level children of a cluster
func (s *GeoJSONSource) ClusterChildren(clusterID int) ([]models.Feature, error) {
	s.m.mu.RLock()
	index := s.index
	s.m.mu.RUnlock()
	if index == nil {
		return nil, fmt.Errorf("%w: source %s is not clustered", cluster.ErrClusterNotFound, s.name)
	}
	return index.Children(clusterID)
}

func inLngRange(lng, west, east float64) bool {
	if west <= east {
		return lng >= west && lng <= east
	}
	return lng >= west || lng <= east
}

// hashFeatures digests the collection; encoding/json sorts map keys so equal
// collections hash equally. A feature that does not encode (NaN or Inf
// properties) makes the digest unusable.
func hashFeatures(fc models.FeatureCollection) (uint64, error) {
	d := xxhash.New()
	enc := json.NewEncoder(d)
	for i, f := range fc.Features {
		if err := enc.Encode(f); err != nil {
			return 0, fmt.Errorf("hash feature %d: %w", i, err)
		}
	}
	return d.Sum64(), nil
}
