// Package interaction wires map clicks to popups and cluster zooms.
package interaction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/moodmap-backend-go/internal/mapengine"
	"github.com/jengzang/moodmap-backend-go/internal/metrics"
	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/render"
)

// TimeLayout is how observation times are shown in popups
const TimeLayout = "Jan 2, 2006, 3:04:05 PM"

// Surface is the map the controller listens on
type Surface interface {
	On(layerID string, fn mapengine.ClickHandler) func()
	QueryRenderedFeatures(p models.ScreenPoint, layerIDs ...string) []mapengine.RenderedFeature
	Source(name string) (*mapengine.GeoJSONSource, error)
	EaseTo(center models.LngLat, zoom float64) error
	ShowPopup(p models.Popup) error
}

// Controller owns the point and cluster click listeners
type Controller struct {
	surface  Surface
	location *time.Location
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu   sync.Mutex
	offs []func()
}

// NewController creates a detached controller. Times are shown in loc, UTC
// when nil.
func NewController(s Surface, loc *time.Location, logger *zap.Logger, m *metrics.Metrics) *Controller {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{surface: s, location: loc, logger: logger.Named("interaction"), metrics: m}
}

// Attach registers both click listeners. Attaching twice is a no-op.
func (c *Controller) Attach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.offs) > 0 {
		return
	}
	c.offs = append(c.offs,
		c.surface.On(render.UnclusteredLayerID, c.onPointClick),
		c.surface.On(render.ClusterLayerID, c.onClusterClick),
	)
}

// Detach unregisters both listeners
func (c *Controller) Detach() {
	c.mu.Lock()
	offs := c.offs
	c.offs = nil
	c.mu.Unlock()

	for _, off := range offs {
		off()
	}
}

// PointPopup builds the popup for an individual observation feature
func PointPopup(f models.Feature, loc *time.Location) models.Popup {
	if loc == nil {
		loc = time.UTC
	}
	mood, _ := f.IntProp(models.PropMood)
	ts, _ := f.FloatProp(models.PropTimestamp)

	title := fmt.Sprintf("Mood: %d/5", mood)
	body := time.UnixMilli(int64(ts)).In(loc).Format(TimeLayout)
	return models.Popup{
		LngLat: models.LngLat{Lng: f.Geometry.Coordinates.Lng(), Lat: f.Geometry.Coordinates.Lat()},
		Title:  title,
		Body:   body,
		HTML:   fmt.Sprintf(`<div style="padding: 5px;"><strong>%s</strong><br/><small>%s</small></div>`, title, body),
	}
}

func (c *Controller) onPointClick(_ context.Context, e mapengine.MouseEvent) {
	if len(e.Features) == 0 {
		return
	}
	popup := PointPopup(e.Features[0].Feature, c.location)
	if err := c.surface.ShowPopup(popup); err != nil {
		c.logger.Debug("popup dropped", zap.Error(err))
		return
	}
	c.metrics.Click("point", "popup")
}

// onClusterClick eases to the zoom where the clicked cluster splits. Any
// failure leaves the camera where it is.
func (c *Controller) onClusterClick(ctx context.Context, e mapengine.MouseEvent) {
	hits := c.surface.QueryRenderedFeatures(e.Point, render.ClusterLayerID)
	if len(hits) == 0 {
		return
	}
	f := hits[0].Feature
	clusterID, ok := f.IntProp(models.PropClusterID)
	if !ok {
		return
	}

	src, err := c.surface.Source(render.SourceID)
	if err != nil {
		c.clusterFailed(clusterID, err)
		return
	}
	zoom, err := src.ClusterExpansionZoom(ctx, clusterID)
	if err != nil {
		c.clusterFailed(clusterID, err)
		return
	}

	center := models.LngLat{Lng: f.Geometry.Coordinates.Lng(), Lat: f.Geometry.Coordinates.Lat()}
	if err := c.surface.EaseTo(center, float64(zoom)); err != nil {
		c.clusterFailed(clusterID, err)
		return
	}
	c.logger.Debug("zoomed into cluster", zap.Int("cluster_id", clusterID), zap.Int("zoom", zoom))
	c.metrics.Click("cluster", "zoomed")
}

func (c *Controller) clusterFailed(id int, err error) {
	c.logger.Debug("cluster expansion skipped", zap.Int("cluster_id", id), zap.Error(err))
	c.metrics.Click("cluster", "failed")
}
