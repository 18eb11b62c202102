package mapengine

import (
	"fmt"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// LayerType is the primitive a layer draws
type LayerType string

const (
	LayerCircle LayerType = "circle"
	LayerSymbol LayerType = "symbol"
)

// Filter selects which features of a source a layer draws
type Filter func(models.Feature) bool

// HasPointCount matches cluster features
func HasPointCount(f models.Feature) bool {
	_, ok := f.Properties[models.PropPointCount]
	return ok
}

// NotHasPointCount matches individual points
func NotHasPointCount(f models.Feature) bool {
	return !HasPointCount(f)
}

// Style is the resolved appearance of one rendered feature
type Style struct {
	Icon        string  `json:"icon,omitempty"`
	IconSize    float64 `json:"iconSize,omitempty"`
	Color       string  `json:"color,omitempty"`
	Radius      float64 `json:"radius"`
	StrokeColor string  `json:"strokeColor,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Text        string  `json:"text,omitempty"`
	TextSize    float64 `json:"textSize,omitempty"`
}

// Layer declares how a source's features are drawn
type Layer struct {
	ID     string    `json:"id"`
	Type   LayerType `json:"type"`
	Source string    `json:"source"`
	// Images lists registered images the layer references
	Images []string                   `json:"images,omitempty"`
	Filter Filter                     `json:"-"`
	Paint  func(models.Feature) Style `json:"-"`
}

// AddLayer declares a layer on top of the existing ones. Its source and every
// image it references must already be registered.
func (m *Map) AddLayer(l Layer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return ErrMapRemoved
	}
	for _, existing := range m.layers {
		if existing.ID == l.ID {
			return fmt.Errorf("%w: %s", ErrLayerExists, l.ID)
		}
	}
	if _, ok := m.sources[l.Source]; !ok {
		return fmt.Errorf("%w: %s (layer %s)", ErrSourceNotFound, l.Source, l.ID)
	}
	for _, name := range l.Images {
		if _, ok := m.images[name]; !ok {
			return fmt.Errorf("%w: %s (layer %s)", ErrImageMissing, name, l.ID)
		}
	}

	layer := l
	m.layers = append(m.layers, &layer)
	m.renderLocked()
	return nil
}

// RemoveLayer drops a layer and its rendered features
func (m *Map) RemoveLayer(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.layers {
		if l.ID == id {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			m.renderLocked()
			return true
		}
	}
	return false
}

// HasLayer reports whether a layer id is declared
func (m *Map) HasLayer(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.layers {
		if l.ID == id {
			return true
		}
	}
	return false
}

// Layers returns the declared layers, bottom first
func (m *Map) Layers() []Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Layer, 0, len(m.layers))
	for _, l := range m.layers {
		out = append(out, *l)
	}
	return out
}
