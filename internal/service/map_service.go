package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/moodmap-backend-go/internal/interaction"
	"github.com/jengzang/moodmap-backend-go/internal/mapengine"
	"github.com/jengzang/moodmap-backend-go/internal/metrics"
	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/render"
	"github.com/jengzang/moodmap-backend-go/internal/spatial"
	"github.com/jengzang/moodmap-backend-go/internal/store"
)

var (
	// ErrNotReady is returned before the map layers have been set up
	ErrNotReady = errors.New("map is not ready")
	// ErrInvalidBBox is returned for a malformed bbox query
	ErrInvalidBBox = errors.New("bbox must be west,south,east,north")
)

// Leaves pagination bounds
const (
	DefaultLeavesLimit = 10
	MaxLeavesLimit     = 1000
)

// MapSettings configures the map surface
type MapSettings struct {
	Style          string
	AccessToken    string
	Camera         models.Camera
	ClusterRadius  float64
	ClusterMaxZoom int
	Location       *time.Location
}

// ClusterLeaves is one page of a cluster's members plus their spread
type ClusterLeaves struct {
	ClusterID int              `json:"clusterId"`
	Leaves    []models.Feature `json:"leaves"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
	Extent    spatial.Extent   `json:"extent"`
}

// MapService owns the map surface, keeps it in sync with the store and
// forwards viewport interaction to it
type MapService struct {
	surface    *mapengine.Map
	adapter    *render.Adapter
	controller *interaction.Controller
	store      *store.MoodStore
	logger     *zap.Logger

	mu     sync.Mutex
	unbind func()
	ready  bool
	report render.StartReport
}

// NewMapService creates the map surface and its adapter. Nothing is drawn
// until Start.
func NewMapService(st *store.MoodStore, settings MapSettings, loader render.ImageLoader, logger *zap.Logger, m *metrics.Metrics) *MapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	surface := mapengine.New(mapengine.Options{
		Style:       settings.Style,
		AccessToken: settings.AccessToken,
		Camera:      settings.Camera,
		Logger:      logger,
	})
	return &MapService{
		surface: surface,
		adapter: render.NewAdapter(surface, loader, render.Options{
			ClusterRadius:  settings.ClusterRadius,
			ClusterMaxZoom: settings.ClusterMaxZoom,
		}, logger, m),
		controller: interaction.NewController(surface, settings.Location, logger, m),
		store:      st,
		logger:     logger.Named("mapsvc"),
	}
}

// Start binds the store, loads the style and declares the layers
func (s *MapService) Start(ctx context.Context) (render.StartReport, error) {
	s.mu.Lock()
	s.unbind = s.adapter.Bind(s.store)
	s.mu.Unlock()

	s.controller.Attach()
	s.surface.MarkStyleLoaded()

	report, err := s.adapter.Start(ctx)
	if err != nil {
		return report, err
	}

	s.mu.Lock()
	s.ready = true
	s.report = report
	s.mu.Unlock()
	return report, nil
}

// Close detaches listeners and removes the map
func (s *MapService) Close() {
	s.controller.Detach()
	s.mu.Lock()
	if s.unbind != nil {
		s.unbind()
		s.unbind = nil
	}
	s.ready = false
	s.mu.Unlock()
	s.surface.Remove()
}

// Ready reports whether Start completed
func (s *MapService) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Report returns what Start set up
func (s *MapService) Report() render.StartReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Map exposes the surface
func (s *MapService) Map() *mapengine.Map {
	return s.surface
}

// SourceData returns the feature collection currently backing the map
func (s *MapService) SourceData() models.FeatureCollection {
	return s.adapter.Snapshot()
}

func (s *MapService) source() (*mapengine.GeoJSONSource, error) {
	if !s.Ready() {
		return nil, ErrNotReady
	}
	return s.adapter.Source(), nil
}

// Clusters returns the clusters and points inside bbox at zoom. An empty bbox
// means the whole world.
func (s *MapService) Clusters(bbox string, zoom float64) ([]models.Feature, error) {
	src, err := s.source()
	if err != nil {
		return nil, err
	}
	box, err := ParseBBox(bbox)
	if err != nil {
		return nil, err
	}
	features := src.Features(box, zoom)
	if features == nil {
		features = []models.Feature{}
	}
	return features, nil
}

// ExpansionZoom returns the zoom at which a cluster splits
func (s *MapService) ExpansionZoom(ctx context.Context, clusterID int) (int, error) {
	src, err := s.source()
	if err != nil {
		return 0, err
	}
	return src.ClusterExpansionZoom(ctx, clusterID)
}

// Children returns the clusters and points one zoom level below a cluster
func (s *MapService) Children(clusterID int) ([]models.Feature, error) {
	src, err := s.source()
	if err != nil {
		return nil, err
	}
	return src.ClusterChildren(clusterID)
}

// Leaves returns one page of the observations inside a cluster
func (s *MapService) Leaves(clusterID int, filter models.LeavesFilter) (ClusterLeaves, error) {
	src, err := s.source()
	if err != nil {
		return ClusterLeaves{}, err
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultLeavesLimit
	}
	if filter.Limit > MaxLeavesLimit {
		filter.Limit = MaxLeavesLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	leaves, err := src.ClusterLeaves(clusterID, filter.Limit, filter.Offset)
	if err != nil {
		return ClusterLeaves{}, err
	}
	lats := make([]float64, len(leaves))
	lngs := make([]float64, len(leaves))
	for i, f := range leaves {
		lats[i] = f.Geometry.Coordinates.Lat()
		lngs[i] = f.Geometry.Coordinates.Lng()
	}
	return ClusterLeaves{
		ClusterID: clusterID,
		Leaves:    leaves,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
		Extent:    spatial.ExtentOf(lats, lngs),
	}, nil
}

// Rendered returns the features drawn at the current camera
func (s *MapService) Rendered() []mapengine.RenderedFeature {
	return s.surface.Rendered()
}

// Camera returns the current camera
func (s *MapService) Camera() models.Camera {
	return s.surface.Camera()
}

// SetCamera moves the camera; omitted fields keep their current value
func (s *MapService) SetCamera(req models.CameraRequest) (models.Camera, error) {
	cam := s.surface.Camera()
	if req.Lng != nil {
		cam.Center.Lng = *req.Lng
	}
	if req.Lat != nil {
		cam.Center.Lat = *req.Lat
	}
	if req.Zoom != nil {
		cam.Zoom = *req.Zoom
	}
	if req.Width > 0 {
		cam.Width = req.Width
	}
	if req.Height > 0 {
		cam.Height = req.Height
	}
	if err := s.surface.JumpTo(cam); err != nil {
		return models.Camera{}, err
	}
	return s.surface.Camera(), nil
}

// Click dispatches a click at a viewport pixel. Any open popup is closed
// first, so the response carries the popup this click opened, if any.
func (s *MapService) Click(ctx context.Context, req models.ClickRequest) (models.ClickResponse, error) {
	if !s.Ready() {
		return models.ClickResponse{}, ErrNotReady
	}
	s.surface.ClosePopup()
	n := s.surface.Click(ctx, models.ScreenPoint{X: req.X, Y: req.Y})
	s.logger.Debug("click", zap.Float64("x", req.X), zap.Float64("y", req.Y), zap.Int("handlers", n))
	return models.ClickResponse{
		Popup:  s.surface.Popup(),
		Camera: s.surface.Camera(),
	}, nil
}

// ParseBBox parses "west,south,east,north". West may exceed east for boxes
// crossing the antimeridian.
func ParseBBox(raw string) (models.BBox, error) {
	if strings.TrimSpace(raw) == "" {
		return models.BBox{-180, -90, 180, 90}, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return models.BBox{}, fmt.Errorf("%w: got %q", ErrInvalidBBox, raw)
	}
	var box models.BBox
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return models.BBox{}, fmt.Errorf("%w: %v", ErrInvalidBBox, err)
		}
		box[i] = v
	}
	if box[1] > box[3] || box[1] < -90 || box[3] > 90 {
		return models.BBox{}, fmt.Errorf("%w: bad latitude range", ErrInvalidBBox)
	}
	if box[0] < -180 || box[0] > 180 || box[2] < -180 || box[2] > 180 {
		return models.BBox{}, fmt.Errorf("%w: bad longitude range", ErrInvalidBBox)
	}
	return box, nil
}
