// Package mapengine is an in-process map surface: GeoJSON sources with
// clustering, styled layers, registered images, a camera, hit testing and
// layer-scoped click dispatch. Every change re-renders synchronously and the
// rendered set is reconciled by feature key instead of being rebuilt.
package mapengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/spatial"
)

var (
	// ErrMapRemoved is returned by every operation after Remove
	ErrMapRemoved = errors.New("map has been removed")
	// ErrSourceNotFound is returned when a source name is unknown
	ErrSourceNotFound = errors.New("source not found")
	// ErrSourceExists is returned when adding a source twice
	ErrSourceExists = errors.New("source already exists")
	// ErrLayerExists is returned when adding a layer id twice
	ErrLayerExists = errors.New("layer already exists")
	// ErrImageExists is returned when registering an image name twice
	ErrImageExists = errors.New("image already exists")
	// ErrImageMissing is returned when a layer references an unregistered image
	ErrImageMissing = errors.New("image not registered")
)

// Zoom limits of the camera
const (
	MinCameraZoom = 0
	MaxCameraZoom = 22
)

// Image is a registered bitmap referenced by icon layers
type Image struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"-"`
}

// Options configures a new Map
type Options struct {
	Style       string
	AccessToken string
	Camera      models.Camera
	Logger      *zap.Logger
}

// Map is the rendering surface. It is safe for concurrent use.
type Map struct {
	mu sync.RWMutex

	style       string
	accessToken string
	styleLoaded bool
	styleCh     chan struct{}

	camera  models.Camera
	sources map[string]*GeoJSONSource
	layers  []*Layer
	images  map[string]Image

	listeners  map[string][]clickListener
	nextListen int

	rendered      map[string]RenderedFeature
	renderHooks   []func(RenderDiff)
	renderVersion uint64

	popup   *models.Popup
	removed bool

	logger *zap.Logger
}

// New creates a map anchored to a style. The style is not loaded until
// MarkStyleLoaded is called.
func New(opts Options) *Map {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cam := opts.Camera
	if cam.Width <= 0 {
		cam.Width = 1024
	}
	if cam.Height <= 0 {
		cam.Height = 768
	}
	cam.Zoom = clampZoom(cam.Zoom)

	return &Map{
		style:       opts.Style,
		accessToken: opts.AccessToken,
		styleCh:     make(chan struct{}),
		camera:      cam,
		sources:     make(map[string]*GeoJSONSource),
		images:      make(map[string]Image),
		listeners:   make(map[string][]clickListener),
		rendered:    make(map[string]RenderedFeature),
		logger:      logger.Named("map"),
	}
}

// Style returns the style reference the map is anchored to
func (m *Map) Style() string {
	return m.style
}

// AccessToken returns the configured credential, possibly empty
func (m *Map) AccessToken() string {
	return m.accessToken
}

// MarkStyleLoaded signals that the base style finished loading. Calling it
// more than once is a no-op.
func (m *Map) MarkStyleLoaded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.styleLoaded || m.removed {
		return
	}
	m.styleLoaded = true
	close(m.styleCh)
	m.logger.Debug("style loaded", zap.String("style", m.style))
}

// IsStyleLoaded reports whether the base style has loaded
func (m *Map) IsStyleLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.styleLoaded
}

// WaitStyle blocks until the style has loaded or ctx is done
func (m *Map) WaitStyle(ctx context.Context) error {
	select {
	case <-m.styleCh:
		if m.Removed() {
			return ErrMapRemoved
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnStyleLoad runs fn once the style has loaded, immediately if it already has
func (m *Map) OnStyleLoad(fn func()) {
	go func() {
		<-m.styleCh
		if !m.Removed() {
			fn()
		}
	}()
}

// Remove tears the map down. Pending completions must check Removed and
// discard their results.
func (m *Map) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}
	m.removed = true
	m.listeners = make(map[string][]clickListener)
	m.rendered = make(map[string]RenderedFeature)
	m.renderHooks = nil
	m.popup = nil
	if !m.styleLoaded {
		// release anyone blocked in WaitStyle
		close(m.styleCh)
	}
	m.logger.Debug("map removed")
}

// Removed reports whether Remove has been called
func (m *Map) Removed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.removed
}

// AddImage registers a named image
func (m *Map) AddImage(img Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return ErrMapRemoved
	}
	if _, ok := m.images[img.Name]; ok {
		return fmt.Errorf("%w: %s", ErrImageExists, img.Name)
	}
	m.images[img.Name] = img
	return nil
}

// HasImage reports whether name is registered
func (m *Map) HasImage(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.images[name]
	return ok
}

// Images lists registered images
func (m *Map) Images() []Image {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Image, 0, len(m.images))
	for _, img := range m.images {
		out = append(out, img)
	}
	return out
}

// Camera returns the current camera
func (m *Map) Camera() models.Camera {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.camera
}

// JumpTo replaces the camera and re-renders
func (m *Map) JumpTo(cam models.Camera) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return ErrMapRemoved
	}
	if cam.Width <= 0 {
		cam.Width = m.camera.Width
	}
	if cam.Height <= 0 {
		cam.Height = m.camera.Height
	}
	cam.Zoom = clampZoom(cam.Zoom)
	cam.Center.Lng = spatial.WrapLng(cam.Center.Lng)
	cam.Center.Lat = spatial.ClampLat(cam.Center.Lat)
	m.camera = cam
	m.renderLocked()
	return nil
}

// EaseTo moves the camera to center at zoom. The in-process surface has no
// animation frames, so the move lands immediately.
func (m *Map) EaseTo(center models.LngLat, zoom float64) error {
	cam := m.Camera()
	cam.Center = center
	cam.Zoom = zoom
	return m.JumpTo(cam)
}

// ShowPopup opens p, replacing any popup already open
func (m *Map) ShowPopup(p models.Popup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return ErrMapRemoved
	}
	m.popup = &p
	return nil
}

// Popup returns the open popup, if any
func (m *Map) Popup() *models.Popup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.popup == nil {
		return nil
	}
	p := *m.popup
	return &p
}

// ClosePopup closes the open popup
func (m *Map) ClosePopup() {
	m.mu.Lock()
	m.popup = nil
	m.mu.Unlock()
}

func clampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return MinCameraZoom
	}
	return math.Max(MinCameraZoom, math.Min(MaxCameraZoom, z))
}
