// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// Config holds the application configuration
type Config struct {
	Port string `envconfig:"PORT" default:":8080" validate:"required"`

	// MapboxAccessToken may be empty, the map then runs unauthenticated
	MapboxAccessToken string  `envconfig:"MAPBOX_ACCESS_TOKEN"`
	MapStyle          string  `envconfig:"MAP_STYLE" default:"mapbox://styles/mapbox/standard" validate:"required"`
	MapCenterLng      float64 `envconfig:"MAP_CENTER_LNG" default:"0" validate:"min=-180,max=180"`
	MapCenterLat      float64 `envconfig:"MAP_CENTER_LAT" default:"20" validate:"min=-85,max=85"`
	MapZoom           float64 `envconfig:"MAP_ZOOM" default:"2" validate:"min=0,max=22"`
	ViewportWidth     int     `envconfig:"VIEWPORT_WIDTH" default:"1024" validate:"min=1"`
	ViewportHeight    int     `envconfig:"VIEWPORT_HEIGHT" default:"768" validate:"min=1"`

	ClusterRadius  int `envconfig:"CLUSTER_RADIUS" default:"40" validate:"min=1"`
	ClusterMaxZoom int `envconfig:"CLUSTER_MAX_ZOOM" default:"14" validate:"min=0,max=21"`

	AssetDir     string `envconfig:"ASSET_DIR" default:"./public" validate:"required"`
	AssetBaseURL string `envconfig:"ASSET_BASE_URL" validate:"omitempty,url"`

	SeedMode  string `envconfig:"SEED_MODE" default:"none" validate:"oneof=none cities random"`
	SeedCount int    `envconfig:"SEED_COUNT" default:"500" validate:"min=0"`

	DisplayTimezone string `envconfig:"DISPLAY_TIMEZONE" default:"UTC" validate:"required"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json console"`

	RateLimit  int           `envconfig:"RATE_LIMIT" default:"100" validate:"min=1"`
	RateWindow time.Duration `envconfig:"RATE_WINDOW" default:"1m" validate:"gt=0"`
}

// Load reads an optional .env file, then the environment, and validates the
// result. Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(cfg.DisplayTimezone); err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", cfg.DisplayTimezone, err)
	}
	return &cfg, nil
}

// Location returns the timezone popups are rendered in
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InitialCamera is the view a fresh map opens with
func (c *Config) InitialCamera() models.Camera {
	return models.Camera{
		Center: models.LngLat{Lng: c.MapCenterLng, Lat: c.MapCenterLat},
		Zoom:   c.MapZoom,
		Width:  c.ViewportWidth,
		Height: c.ViewportHeight,
	}
}

// MapConfig is the client bootstrap view of the configuration
func (c *Config) MapConfig() models.MapConfig {
	return models.MapConfig{
		AccessToken:    c.MapboxAccessToken,
		Style:          c.MapStyle,
		ClusterRadius:  c.ClusterRadius,
		ClusterMaxZoom: c.ClusterMaxZoom,
		Camera:         c.InitialCamera(),
	}
}
