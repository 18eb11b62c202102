// Package render turns the mood store into a clustered map source and the
// three mood layers, and keeps the source current as the store changes.
package render

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/jengzang/moodmap-backend-go/internal/icons"
	"github.com/jengzang/moodmap-backend-go/internal/mapengine"
	"github.com/jengzang/moodmap-backend-go/internal/metrics"
	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/store"
)

// ErrAlreadyStarted is returned by a second Start
var ErrAlreadyStarted = errors.New("render adapter already started")

// Substrate is the map surface the adapter drives
type Substrate interface {
	ImageRegistry
	WaitStyle(ctx context.Context) error
	AddSource(name string, opts mapengine.SourceOptions, data models.FeatureCollection) (*mapengine.GeoJSONSource, error)
	AddLayer(l mapengine.Layer) error
	HasLayer(id string) bool
	OnRender(fn func(mapengine.RenderDiff))
}

// Options configures clustering of the mood source
type Options struct {
	ClusterRadius  float64
	ClusterMaxZoom int
}

// StartReport describes what Start managed to set up
type StartReport struct {
	Images         []string          `json:"images"`
	FailedImages   map[string]string `json:"failedImages,omitempty"`
	FallbackImages []string          `json:"fallbackImages,omitempty"` // drawn with the neutral icon
	Layers         []string          `json:"layers"`
	SkippedLayers  []string          `json:"skippedLayers,omitempty"`
}

// Adapter binds observations to the map
type Adapter struct {
	substrate Substrate
	preloader *Preloader
	opts      Options
	logger    *zap.Logger
	metrics   *metrics.Metrics

	mu      sync.Mutex
	started bool
	source  *mapengine.GeoJSONSource
	pending models.FeatureCollection
	applied bool
	version uint64
}

// NewAdapter creates an adapter. Nothing touches the substrate until Start.
func NewAdapter(s Substrate, loader ImageLoader, opts Options, logger *zap.Logger, m *metrics.Metrics) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		substrate: s,
		preloader: NewPreloader(loader, logger, m),
		opts:      opts,
		logger:    logger.Named("render"),
		metrics:   m,
		pending:   models.NewFeatureCollection(nil),
	}
}

// Start waits for the style, loads the icons, registers the source with the
// latest data seen so far and declares every layer whose images are present.
// A layer whose icons failed to load is skipped and logged.
func (a *Adapter) Start(ctx context.Context) (StartReport, error) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return StartReport{}, ErrAlreadyStarted
	}
	a.started = true
	a.mu.Unlock()

	if err := a.substrate.WaitStyle(ctx); err != nil {
		return StartReport{}, fmt.Errorf("wait for style: %w", err)
	}

	loaded := a.preloader.Preload(ctx, a.substrate, icons.All())
	report := StartReport{Images: loaded.Loaded, FailedImages: make(map[string]string)}
	for name, err := range loaded.Failed {
		report.FailedImages[name] = err.Error()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	src, err := a.substrate.AddSource(SourceID, a.sourceOptions(), a.pending)
	if err != nil {
		return report, fmt.Errorf("add source: %w", err)
	}
	a.source = src
	a.substrate.OnRender(func(d mapengine.RenderDiff) {
		a.metrics.RenderDiff(len(d.Added), len(d.Updated), len(d.Removed))
	})

	available := loadedIcons(a.substrate, loaded.Loaded)
	if missing := available.Missing(); len(missing) > 0 {
		a.logger.Warn("rating icons unavailable, drawing them with the neutral icon",
			zap.Strings("missing", missing),
			zap.String("fallback", icons.ImageName(models.NeutralMood)))
		report.FallbackImages = missing
	}

	for _, layer := range Layers(available) {
		if missing := a.missingImages(layer); len(missing) > 0 {
			sort.Strings(missing)
			a.logger.Warn("layer skipped, icons unavailable",
				zap.String("layer", layer.ID),
				zap.Strings("missing", missing))
			report.SkippedLayers = append(report.SkippedLayers, layer.ID)
			continue
		}
		if a.substrate.HasLayer(layer.ID) {
			report.Layers = append(report.Layers, layer.ID)
			continue
		}
		if err := a.substrate.AddLayer(layer); err != nil {
			return report, fmt.Errorf("add layer %s: %w", layer.ID, err)
		}
		report.Layers = append(report.Layers, layer.ID)
	}

	a.logger.Info("map layers ready",
		zap.Strings("layers", report.Layers),
		zap.Int("features", len(a.pending.Features)))
	return report, nil
}

func (a *Adapter) sourceOptions() mapengine.SourceOptions {
	return mapengine.SourceOptions{
		Cluster:           true,
		ClusterMaxZoom:    a.opts.ClusterMaxZoom,
		ClusterRadius:     a.opts.ClusterRadius,
		ClusterProperties: Accumulators(),
	}
}

// loadedIcons snapshots the registered icons. Paint functions run under the
// map lock, so they must not query the substrate.
func loadedIcons(reg ImageRegistry, loaded []string) IconSet {
	set := make(map[string]bool, len(loaded))
	for _, name := range loaded {
		set[name] = true
	}
	for _, name := range iconNames() {
		if reg.HasImage(name) {
			set[name] = true
		}
	}
	return func(name string) bool { return set[name] }
}

func (a *Adapter) missingImages(l mapengine.Layer) []string {
	var missing []string
	for _, name := range l.Images {
		if !a.substrate.HasImage(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Update submits a store snapshot. Snapshots older than the last applied
// version are dropped so late deliveries never overwrite newer data. Before
// Start the snapshot is held and used as the source's initial data.
func (a *Adapter) Update(snapshot []models.MoodObservation, version uint64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.applied && version <= a.version {
		a.logger.Debug("stale snapshot dropped",
			zap.Uint64("version", version),
			zap.Uint64("current", a.version))
		return false, nil
	}
	a.applied = true
	a.version = version
	a.pending = BuildFeatureCollection(snapshot)

	if a.source == nil {
		return false, nil
	}
	changed, err := a.source.SetData(a.pending)
	if err != nil {
		return false, err
	}
	a.metrics.SourceUpdate(changed)
	return changed, nil
}

// Bind subscribes the adapter to s and pushes its current contents
func (a *Adapter) Bind(s *store.MoodStore) func() {
	unsubscribe := s.Subscribe(func(snapshot []models.MoodObservation, version uint64) {
		if _, err := a.Update(snapshot, version); err != nil && !errors.Is(err, mapengine.ErrMapRemoved) {
			a.logger.Error("source update failed", zap.Uint64("version", version), zap.Error(err))
		}
	})
	if _, err := a.Update(s.Snapshot()); err != nil {
		a.logger.Error("initial source update failed", zap.Error(err))
	}
	return unsubscribe
}

// Snapshot returns the feature collection last handed to the source
func (a *Adapter) Snapshot() models.FeatureCollection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Source returns the registered source, nil before Start
func (a *Adapter) Source() *mapengine.GeoJSONSource {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.source
}

// Version returns the last applied store version
func (a *Adapter) Version() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.version
}
