// Package cluster implements zoom-dependent hierarchical point clustering.
//
// Points are projected to web-mercator space and greedily merged level by
// level, from MaxZoom down to MinZoom, with one static KD-tree per level. Each
// cluster carries its point count plus any number of named accumulators whose
// Reduce step must be associative, so a cluster's value is the same whether
// it was built from raw points or from smaller clusters.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/spatial"
)

// ErrClusterNotFound is returned for unknown or stale cluster ids
var ErrClusterNotFound = errors.New("no cluster with the specified id")

const unvisited = math.MaxInt32

// Options controls clustering behaviour
type Options struct {
	MinZoom      int           // minimum zoom level at which clusters are generated
	MaxZoom      int           // maximum zoom level at which clusters are generated
	MinPoints    int           // minimum points to form a cluster
	Radius       float64       // cluster radius in pixels
	Extent       float64       // tile extent; radius is calculated relative to it
	NodeSize     int           // KD-tree leaf size
	Accumulators []Accumulator // per-cluster aggregates
}

// DefaultOptions returns the map defaults: radius 40px, clustering up to zoom 14
func DefaultOptions() Options {
	return Options{
		MinZoom:   0,
		MaxZoom:   14,
		MinPoints: 2,
		Radius:    40,
		Extent:    512,
		NodeSize:  64,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinPoints < 2 {
		o.MinPoints = d.MinPoints
	}
	if o.Radius <= 0 {
		o.Radius = d.Radius
	}
	if o.Extent <= 0 {
		o.Extent = d.Extent
	}
	if o.NodeSize <= 0 {
		o.NodeSize = d.NodeSize
	}
	if o.MaxZoom < o.MinZoom {
		o.MaxZoom = o.MinZoom
	}
	if o.MinZoom < 0 {
		o.MinZoom = 0
	}
	return o
}

// node is either an input point (numPoints == 1) or a cluster
type node struct {
	x, y      float64
	zoom      int // last zoom this node was processed at
	id        int // input index for points, cluster id for clusters
	parentID  int
	numPoints int
	values    []float64
}

type level struct {
	nodes []node
	kd    *kdIndex
}

func newLevel(nodes []node, nodeSize int) *level {
	xs := make([]float64, len(nodes))
	ys := make([]float64, len(nodes))
	for i, n := range nodes {
		xs[i] = n.x
		ys[i] = n.y
	}
	return &level{nodes: nodes, kd: newKDIndex(xs, ys, nodeSize)}
}

// Index is an immutable clustering index over a set of point features.
// Load a new Index to change the data.
type Index struct {
	opts   Options
	points []models.Feature
	levels []*level // indexed by zoom, MinZoom..MaxZoom+1
}

// NewIndex builds an index over the given point features
func NewIndex(opts Options, points []models.Feature) *Index {
	opts = opts.withDefaults()
	idx := &Index{
		opts:   opts,
		points: points,
		levels: make([]*level, opts.MaxZoom+2),
	}

	nodes := make([]node, 0, len(points))
	for i, p := range points {
		values := make([]float64, len(opts.Accumulators))
		for a, acc := range opts.Accumulators {
			values[a] = acc.Map(p)
		}
		nodes = append(nodes, node{
			x:         spatial.LngToX(p.Geometry.Coordinates.Lng()),
			y:         spatial.LatToY(p.Geometry.Coordinates.Lat()),
			zoom:      unvisited,
			id:        i,
			parentID:  -1,
			numPoints: 1,
			values:    values,
		})
	}

	idx.levels[opts.MaxZoom+1] = newLevel(nodes, opts.NodeSize)
	for z := opts.MaxZoom; z >= opts.MinZoom; z-- {
		idx.levels[z] = newLevel(idx.cluster(idx.levels[z+1], z), opts.NodeSize)
	}

	return idx
}

// Options returns the effective options
func (idx *Index) Options() Options {
	return idx.opts
}

// Len returns the number of input points
func (idx *Index) Len() int {
	return len(idx.points)
}

func (idx *Index) cluster(l *level, zoom int) []node {
	r := idx.opts.Radius / (idx.opts.Extent * math.Pow(2, float64(zoom)))
	next := make([]node, 0, len(l.nodes))

	for i := range l.nodes {
		n := &l.nodes[i]
		if n.zoom <= zoom {
			continue
		}
		n.zoom = zoom

		neighbors := l.kd.within(n.x, n.y, r)

		numPointsOrigin := n.numPoints
		numPoints := numPointsOrigin
		for _, k := range neighbors {
			if l.nodes[k].zoom > zoom {
				numPoints += l.nodes[k].numPoints
			}
		}

		if numPoints > numPointsOrigin && numPoints >= idx.opts.MinPoints {
			wx := n.x * float64(numPointsOrigin)
			wy := n.y * float64(numPointsOrigin)
			values := append([]float64(nil), n.values...)

			// encodes the origin index and zoom into the id
			id := (i << 5) + (zoom + 1) + len(idx.points)

			for _, k := range neighbors {
				b := &l.nodes[k]
				if b.zoom <= zoom {
					continue
				}
				b.zoom = zoom
				wx += b.x * float64(b.numPoints)
				wy += b.y * float64(b.numPoints)
				b.parentID = id
				for a, acc := range idx.opts.Accumulators {
					values[a] = acc.Reduce(values[a], b.values[a])
				}
			}

			n.parentID = id
			next = append(next, node{
				x:         wx / float64(numPoints),
				y:         wy / float64(numPoints),
				zoom:      unvisited,
				id:        id,
				parentID:  -1,
				numPoints: numPoints,
				values:    values,
			})
			continue
		}

		next = append(next, carry(*n))
		if numPoints > 1 {
			for _, k := range neighbors {
				b := &l.nodes[k]
				if b.zoom <= zoom {
					continue
				}
				b.zoom = zoom
				next = append(next, carry(*b))
			}
		}
	}

	return next
}

func carry(n node) node {
	n.zoom = unvisited
	n.parentID = -1
	return n
}

func (idx *Index) limitZoom(zoom float64) int {
	z := int(math.Floor(zoom))
	if z > idx.opts.MaxZoom+1 {
		z = idx.opts.MaxZoom + 1
	}
	if z < idx.opts.MinZoom {
		z = idx.opts.MinZoom
	}
	return z
}

// Clusters returns the clusters and unclustered points inside bbox at zoom.
// The box may cross the antimeridian.
func (idx *Index) Clusters(bbox models.BBox, zoom float64) []models.Feature {
	minLng := spatial.WrapLng(bbox[0])
	minLat := math.Max(-90, math.Min(90, bbox[1]))
	maxLng := 180.0
	if bbox[2] != 180 {
		maxLng = spatial.WrapLng(bbox[2])
	}
	maxLat := math.Max(-90, math.Min(90, bbox[3]))

	if bbox[2]-bbox[0] >= 360 {
		minLng = -180
		maxLng = 180
	} else if minLng > maxLng {
		east := idx.Clusters(models.BBox{minLng, minLat, 180, maxLat}, zoom)
		west := idx.Clusters(models.BBox{-180, minLat, maxLng, maxLat}, zoom)
		return append(east, west...)
	}

	l := idx.levels[idx.limitZoom(zoom)]
	ids := l.kd.rangeQuery(spatial.LngToX(minLng), spatial.LatToY(maxLat), spatial.LngToX(maxLng), spatial.LatToY(minLat))

	features := make([]models.Feature, 0, len(ids))
	for _, id := range ids {
		features = append(features, idx.feature(l.nodes[id]))
	}
	return features
}

// World returns every cluster and point at zoom
func (idx *Index) World(zoom float64) []models.Feature {
	return idx.Clusters(models.BBox{-180, -90, 180, 90}, zoom)
}

func (idx *Index) feature(n node) models.Feature {
	if n.numPoints == 1 {
		return idx.points[n.id]
	}

	props := map[string]interface{}{
		models.PropCluster:               true,
		models.PropClusterID:             n.id,
		models.PropPointCount:            n.numPoints,
		models.PropPointCountAbbreviated: Abbreviate(n.numPoints),
	}
	for a, acc := range idx.opts.Accumulators {
		props[acc.Name] = n.values[a]
	}

	return models.NewPointFeature(
		"cluster-"+strconv.Itoa(n.id),
		spatial.XToLng(n.x),
		spatial.YToLat(n.y),
		props,
	)
}

func (idx *Index) originZoom(clusterID int) int {
	return (clusterID - len(idx.points)) % 32
}

func (idx *Index) originID(clusterID int) int {
	return (clusterID - len(idx.points)) >> 5
}

// Children returns the clusters and points one zoom level below the cluster
func (idx *Index) Children(clusterID int) ([]models.Feature, error) {
	if clusterID <= len(idx.points) {
		return nil, fmt.Errorf("%w: %d", ErrClusterNotFound, clusterID)
	}
	originID := idx.originID(clusterID)
	originZoom := idx.originZoom(clusterID)
	if originZoom < idx.opts.MinZoom+1 || originZoom >= len(idx.levels) || idx.levels[originZoom] == nil {
		return nil, fmt.Errorf("%w: %d", ErrClusterNotFound, clusterID)
	}
	l := idx.levels[originZoom]
	if originID >= len(l.nodes) {
		return nil, fmt.Errorf("%w: %d", ErrClusterNotFound, clusterID)
	}

	origin := l.nodes[originID]
	r := idx.opts.Radius / (idx.opts.Extent * math.Pow(2, float64(originZoom-1)))

	var children []models.Feature
	for _, k := range l.kd.within(origin.x, origin.y, r) {
		if l.nodes[k].parentID == clusterID {
			children = append(children, idx.feature(l.nodes[k]))
		}
	}

	if len(children) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrClusterNotFound, clusterID)
	}
	return children, nil
}

// Leaves returns the input points of a cluster, paginated
func (idx *Index) Leaves(clusterID, limit, offset int) ([]models.Feature, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	leaves := make([]models.Feature, 0, limit)
	if _, err := idx.appendLeaves(&leaves, clusterID, limit, offset, 0); err != nil {
		return nil, err
	}
	return leaves, nil
}

func (idx *Index) appendLeaves(result *[]models.Feature, clusterID, limit, offset, skipped int) (int, error) {
	children, err := idx.Children(clusterID)
	if err != nil {
		return skipped, err
	}

	for _, child := range children {
		if child.IsCluster() {
			count, _ := child.IntProp(models.PropPointCount)
			if skipped+count <= offset {
				skipped += count
			} else {
				childID, _ := child.IntProp(models.PropClusterID)
				skipped, err = idx.appendLeaves(result, childID, limit, offset, skipped)
				if err != nil {
					return skipped, err
				}
			}
		} else if skipped < offset {
			skipped++
		} else {
			*result = append(*result, child)
		}
		if len(*result) == limit {
			break
		}
	}

	return skipped, nil
}

// ExpansionZoom returns the zoom at which the cluster splits into more than
// one child
func (idx *Index) ExpansionZoom(clusterID int) (int, error) {
	children, err := idx.Children(clusterID)
	if err != nil {
		return 0, err
	}
	expansionZoom := idx.originZoom(clusterID)
	for expansionZoom <= idx.opts.MaxZoom && len(children) == 1 && children[0].IsCluster() {
		clusterID, _ = children[0].IntProp(models.PropClusterID)
		if children, err = idx.Children(clusterID); err != nil {
			return 0, err
		}
		expansionZoom++
	}
	return expansionZoom, nil
}

// Abbreviate formats a point count the way map labels show it: 1234 → 1.2k
func Abbreviate(count int) string {
	switch {
	case count >= 10000:
		return strconv.Itoa(int(math.Round(float64(count)/1000))) + "k"
	case count >= 1000:
		return strconv.FormatFloat(math.Round(float64(count)/100)/10, 'f', -1, 64) + "k"
	default:
		return strconv.Itoa(count)
	}
}
