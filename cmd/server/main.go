package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jengzang/moodmap-backend-go/internal/config"
	"github.com/jengzang/moodmap-backend-go/internal/logger"
	"github.com/jengzang/moodmap-backend-go/internal/metrics"
	"github.com/jengzang/moodmap-backend-go/internal/render"
	"github.com/jengzang/moodmap-backend-go/internal/service"
	"github.com/jengzang/moodmap-backend-go/internal/store"
)

var envFile string

func main() {
	root := &cobra.Command{
		Use:           "moodmap",
		Short:         "MoodMap API server and tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file")
	root.AddCommand(newServeCommand(), newClustersCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	moods   *service.MoodService
	maps    *service.MapService
}

// 加载配置并组装服务
func newApp() (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	m := metrics.New()
	st := store.NewMoodStore()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	moods := service.NewMoodService(st, rng, log, m)

	loader := render.DirLoader{Root: cfg.AssetDir, BaseURL: cfg.AssetBaseURL}
	maps := service.NewMapService(st, service.MapSettings{
		Style:          cfg.MapStyle,
		AccessToken:    cfg.MapboxAccessToken,
		Camera:         cfg.InitialCamera(),
		ClusterRadius:  float64(cfg.ClusterRadius),
		ClusterMaxZoom: cfg.ClusterMaxZoom,
		Location:       cfg.Location(),
	}, loader, log, m)

	return &app{cfg: cfg, logger: log, metrics: m, moods: moods, maps: maps}, nil
}

func (a *app) close() {
	a.maps.Close()
	_ = a.logger.Sync()
}
