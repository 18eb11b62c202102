package mapengine

import (
	"math"
	"reflect"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/spatial"
)

// DefaultHitRadius is used for features whose style has no radius
const DefaultHitRadius = 10.0

// RenderedFeature is one feature drawn by one layer
type RenderedFeature struct {
	Key     string             `json:"key"`
	LayerID string             `json:"layer"`
	Source  string             `json:"source"`
	Feature models.Feature     `json:"feature"`
	Style   Style              `json:"style"`
	Pixel   models.ScreenPoint `json:"pixel"`
	order   int
}

// RenderDiff lists the keys touched by one render pass
type RenderDiff struct {
	Added   []string `json:"added"`
	Updated []string `json:"updated"`
	Removed []string `json:"removed"`
	Version uint64   `json:"version"`
}

// Empty reports whether the pass changed nothing
func (d RenderDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// OnRender registers a hook called after every pass that changed something.
// Hooks run under the map lock and must not call back into the map.
func (m *Map) OnRender(fn func(RenderDiff)) {
	m.mu.Lock()
	m.renderHooks = append(m.renderHooks, fn)
	m.mu.Unlock()
}

// Rendered returns the drawn features, bottom layer first
func (m *Map) Rendered() []RenderedFeature {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RenderedFeature, 0, len(m.rendered))
	for _, rf := range m.rendered {
		out = append(out, rf)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].order != out[j].order {
			return out[i].order < out[j].order
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Bounds returns the geographic box visible through the camera
func (m *Map) Bounds() models.BBox {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return viewportBBox(m.camera)
}

// Unproject converts a screen point into a coordinate
func (m *Map) Unproject(p models.ScreenPoint) models.LngLat {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cx, cy := spatial.Project(m.camera.Center.Lng, m.camera.Center.Lat, m.camera.Zoom)
	lng, lat := spatial.Unproject(
		cx+p.X-float64(m.camera.Width)/2,
		cy+p.Y-float64(m.camera.Height)/2,
		m.camera.Zoom,
	)
	return models.LngLat{Lng: spatial.WrapLng(lng), Lat: lat}
}

// QueryRenderedFeatures returns the features under a screen point, topmost
// first. With no layer ids every layer is considered.
func (m *Map) QueryRenderedFeatures(p models.ScreenPoint, layerIDs ...string) []RenderedFeature {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryLocked(p, layerIDs)
}

func (m *Map) queryLocked(p models.ScreenPoint, layerIDs []string) []RenderedFeature {
	if m.removed {
		return nil
	}
	want := make(map[string]bool, len(layerIDs))
	for _, id := range layerIDs {
		want[id] = true
	}

	type hit struct {
		rf   RenderedFeature
		dist float64
	}
	var hits []hit
	for _, rf := range m.rendered {
		if len(want) > 0 && !want[rf.LayerID] {
			continue
		}
		r := rf.Style.Radius
		if r <= 0 {
			r = DefaultHitRadius
		}
		d := math.Hypot(rf.Pixel.X-p.X, rf.Pixel.Y-p.Y)
		if d <= r {
			hits = append(hits, hit{rf: rf, dist: d})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].rf.order != hits[j].rf.order {
			return hits[i].rf.order > hits[j].rf.order
		}
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].rf.Key < hits[j].rf.Key
	})

	out := make([]RenderedFeature, len(hits))
	for i, h := range hits {
		out[i] = h.rf
	}
	return out
}

// renderLocked evaluates every layer at the current camera and patches the
// rendered collection. Callers hold m.mu for writing.
func (m *Map) renderLocked() RenderDiff {
	if m.removed {
		return RenderDiff{}
	}

	bbox := viewportBBox(m.camera)
	cx, cy := spatial.Project(m.camera.Center.Lng, m.camera.Center.Lat, m.camera.Zoom)
	world := spatial.WorldSize(m.camera.Zoom)

	next := make(map[string]RenderedFeature, len(m.rendered))
	sourceFeatures := make(map[string][]models.Feature, len(m.sources))

	for order, l := range m.layers {
		src, ok := m.sources[l.Source]
		if !ok {
			continue
		}
		features, ok := sourceFeatures[l.Source]
		if !ok {
			features = src.featuresLocked(bbox, m.camera.Zoom)
			sourceFeatures[l.Source] = features
		}

		for _, f := range features {
			if l.Filter != nil && !l.Filter(f) {
				continue
			}
			key := l.ID + ":" + f.ID
			// duplicate ids are tolerated; keep each drawn feature distinct
			for n := 1; ; n++ {
				if _, dup := next[key]; !dup {
					break
				}
				key = l.ID + ":" + f.ID + "#" + strconv.Itoa(n)
			}

			var style Style
			if l.Paint != nil {
				style = l.Paint(f)
			}

			px, py := spatial.Project(f.Geometry.Coordinates.Lng(), f.Geometry.Coordinates.Lat(), m.camera.Zoom)
			dx := px - cx
			// draw the copy of the world nearest the center
			if dx > world/2 {
				dx -= world
			} else if dx < -world/2 {
				dx += world
			}

			next[key] = RenderedFeature{
				Key:     key,
				LayerID: l.ID,
				Source:  l.Source,
				Feature: f,
				Style:   style,
				Pixel: models.ScreenPoint{
					X: dx + float64(m.camera.Width)/2,
					Y: py - cy + float64(m.camera.Height)/2,
				},
				order: order,
			}
		}
	}

	var diff RenderDiff
	for key, old := range m.rendered {
		nf, ok := next[key]
		if !ok {
			diff.Removed = append(diff.Removed, key)
			delete(m.rendered, key)
			continue
		}
		if !reflect.DeepEqual(old, nf) {
			diff.Updated = append(diff.Updated, key)
			m.rendered[key] = nf
		}
	}
	for key, nf := range next {
		if _, ok := m.rendered[key]; !ok {
			diff.Added = append(diff.Added, key)
			m.rendered[key] = nf
		}
	}

	if diff.Empty() {
		return diff
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Updated)
	sort.Strings(diff.Removed)
	m.renderVersion++
	diff.Version = m.renderVersion

	m.logger.Debug("rendered",
		zap.Int("added", len(diff.Added)),
		zap.Int("updated", len(diff.Updated)),
		zap.Int("removed", len(diff.Removed)),
		zap.Int("total", len(m.rendered)))

	for _, hook := range m.renderHooks {
		hook(diff)
	}
	return diff
}

// viewportBBox returns west,south,east,north of the camera. Longitudes are
// wrapped, so west > east means the view crosses the antimeridian.
func viewportBBox(cam models.Camera) models.BBox {
	cx, cy := spatial.Project(cam.Center.Lng, cam.Center.Lat, cam.Zoom)
	hw := float64(cam.Width) / 2
	hh := float64(cam.Height) / 2

	west, north := spatial.Unproject(cx-hw, cy-hh, cam.Zoom)
	east, south := spatial.Unproject(cx+hw, cy+hh, cam.Zoom)

	if east-west >= 360 {
		return models.BBox{-180, south, 180, north}
	}
	if east != 180 {
		east = spatial.WrapLng(east)
	}
	return models.BBox{spatial.WrapLng(west), south, east, north}
}
