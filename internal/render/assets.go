package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png" // register the PNG decoder for DecodeConfig
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jengzang/moodmap-backend-go/internal/icons"
	"github.com/jengzang/moodmap-backend-go/internal/mapengine"
	"github.com/jengzang/moodmap-backend-go/internal/metrics"
)

// ImageLoader fetches the bitmap behind an icon asset
type ImageLoader interface {
	Load(ctx context.Context, asset icons.Asset) (mapengine.Image, error)
}

// ImageLoaderFunc adapts a function to ImageLoader
type ImageLoaderFunc func(ctx context.Context, asset icons.Asset) (mapengine.Image, error)

// Load calls f
func (f ImageLoaderFunc) Load(ctx context.Context, asset icons.Asset) (mapengine.Image, error) {
	return f(ctx, asset)
}

// DirLoader reads icons from a directory laid out like the public URL space
type DirLoader struct {
	Root    string // e.g. ./public
	BaseURL string // prefix for Image.URL, may be empty
}

// Load reads and decodes the asset header
func (l DirLoader) Load(ctx context.Context, asset icons.Asset) (mapengine.Image, error) {
	if err := ctx.Err(); err != nil {
		return mapengine.Image{}, err
	}
	path := filepath.Join(l.Root, filepath.FromSlash(strings.TrimPrefix(asset.Path, "/")))
	data, err := os.ReadFile(path)
	if err != nil {
		return mapengine.Image{}, fmt.Errorf("read %s: %w", asset.Path, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return mapengine.Image{}, fmt.Errorf("decode %s: %w", asset.Path, err)
	}
	return mapengine.Image{
		Name:   asset.Name,
		URL:    strings.TrimSuffix(l.BaseURL, "/") + asset.Path,
		Width:  cfg.Width,
		Height: cfg.Height,
		Data:   data,
	}, nil
}

// ImageRegistry is the part of the map an asset preload writes into
type ImageRegistry interface {
	HasImage(name string) bool
	AddImage(img mapengine.Image) error
	Removed() bool
}

// PreloadResult is the outcome for every requested asset
type PreloadResult struct {
	Loaded []string
	Failed map[string]error
}

// Preloader loads icon assets concurrently. Each asset succeeds or fails on
// its own, and concurrent requests for the same asset share one load.
type Preloader struct {
	loader  ImageLoader
	group   singleflight.Group
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewPreloader creates a preloader backed by loader
func NewPreloader(loader ImageLoader, logger *zap.Logger, m *metrics.Metrics) *Preloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preloader{loader: loader, logger: logger.Named("assets"), metrics: m}
}

// Preload loads every asset not already registered and adds it to reg.
// Completions arriving after the map was removed are discarded.
func (p *Preloader) Preload(ctx context.Context, reg ImageRegistry, assets []icons.Asset) PreloadResult {
	var (
		mu     sync.Mutex
		result = PreloadResult{Failed: make(map[string]error)}
	)
	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Failed[name] = err
			return
		}
		result.Loaded = append(result.Loaded, name)
	}

	var g errgroup.Group
	for _, asset := range assets {
		asset := asset // per-iteration copy; go directive lowered to 1.21 for the local toolchain
		g.Go(func() error {
			record(asset.Name, p.load(ctx, reg, asset))
			return nil
		})
	}
	_ = g.Wait()

	// keep the report in asset order
	ordered := result.Loaded[:0:0]
	for _, a := range assets {
		for _, name := range result.Loaded {
			if name == a.Name {
				ordered = append(ordered, name)
				break
			}
		}
	}
	result.Loaded = ordered
	return result
}

func (p *Preloader) load(ctx context.Context, reg ImageRegistry, asset icons.Asset) error {
	if reg.HasImage(asset.Name) {
		return nil
	}

	v, err, shared := p.group.Do(asset.Name, func() (interface{}, error) {
		return p.loader.Load(ctx, asset)
	})
	if !shared {
		p.metrics.AssetLoad(err)
	}
	if err != nil {
		p.logger.Warn("icon load failed", zap.String("image", asset.Name), zap.Error(err))
		return err
	}
	if reg.Removed() {
		return mapengine.ErrMapRemoved
	}

	img := v.(mapengine.Image)
	img.Name = asset.Name
	if err := reg.AddImage(img); err != nil && !reg.HasImage(asset.Name) {
		return err
	}
	p.logger.Debug("icon registered", zap.String("image", asset.Name), zap.Int("width", img.Width))
	return nil
}
