package mapengine

import (
	"context"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// MouseEvent is delivered to layer-scoped click handlers
type MouseEvent struct {
	Point    models.ScreenPoint
	LngLat   models.LngLat
	Layer    string
	Features []RenderedFeature
}

// ClickHandler handles a click on a layer
type ClickHandler func(ctx context.Context, e MouseEvent)

type clickListener struct {
	id int
	fn ClickHandler
}

// On registers fn for clicks that land on a feature of layerID and returns a
// func that unregisters it
func (m *Map) On(layerID string, fn ClickHandler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return func() {}
	}
	id := m.nextListen
	m.nextListen++
	m.listeners[layerID] = append(m.listeners[layerID], clickListener{id: id, fn: fn})

	return func() { m.off(layerID, id) }
}

func (m *Map) off(layerID string, id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls := m.listeners[layerID]
	for i, l := range ls {
		if l.id == id {
			m.listeners[layerID] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(m.listeners[layerID]) == 0 {
		delete(m.listeners, layerID)
	}
}

// Click dispatches a click at p to every listener whose layer has a feature
// under the point. Clicks that hit nothing are ignored. Handlers run after the
// map lock is released, so they may call back into the map. Returns the
// number of handlers invoked.
func (m *Map) Click(ctx context.Context, p models.ScreenPoint) int {
	type call struct {
		fn ClickHandler
		e  MouseEvent
	}

	m.mu.RLock()
	if m.removed {
		m.mu.RUnlock()
		return 0
	}
	var calls []call
	for layerID, ls := range m.listeners {
		hits := m.queryLocked(p, []string{layerID})
		if len(hits) == 0 {
			continue
		}
		for _, l := range ls {
			calls = append(calls, call{fn: l.fn, e: MouseEvent{Point: p, Layer: layerID, Features: hits}})
		}
	}
	m.mu.RUnlock()

	if len(calls) == 0 {
		return 0
	}
	lngLat := m.Unproject(p)
	for _, c := range calls {
		c.e.LngLat = lngLat
		c.fn(ctx, c.e)
	}
	return len(calls)
}
