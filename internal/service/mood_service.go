package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/moodmap-backend-go/internal/capture"
	"github.com/jengzang/moodmap-backend-go/internal/metrics"
	"github.com/jengzang/moodmap-backend-go/internal/mock"
	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/store"
)

// Placement policies for new moods
const (
	PlacementDevice = "device"
	PlacementRandom = "random"
)

// ErrInvalidPlacement is returned for an unknown placement policy
var ErrInvalidPlacement = errors.New("placement must be device or random")

// MoodService handles business logic for mood observations
type MoodService struct {
	store   *store.MoodStore
	random  *capture.RandomLocator
	rng     *rand.Rand
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewMoodService creates a new mood service
func NewMoodService(st *store.MoodStore, rng *rand.Rand, logger *zap.Logger, m *metrics.Metrics) *MoodService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MoodService{
		store:   st,
		random:  capture.NewRandomLocator(rand.New(rand.NewSource(rng.Int63()))),
		rng:     rng,
		now:     time.Now,
		logger:  logger.Named("moods"),
		metrics: m,
	}
}

// Add records a mood at lat/lng now
func (s *MoodService) Add(ctx context.Context, mood int, lat, lng float64) (models.MoodObservation, error) {
	if err := ctx.Err(); err != nil {
		return models.MoodObservation{}, err
	}
	obs, err := models.NewMoodObservation(mood, lat, lng, s.now())
	if err != nil {
		return models.MoodObservation{}, err
	}
	stored := s.store.Add(obs)
	s.metrics.MoodAdded(stored.Mood, s.store.Len())
	s.logger.Info("mood added",
		zap.String("id", stored.ID),
		zap.Int("mood", stored.Mood),
		zap.Float64("lat", stored.Lat),
		zap.Float64("lng", stored.Lng))
	return stored, nil
}

// Create runs a request through the capture form
func (s *MoodService) Create(ctx context.Context, req models.CreateMoodRequest) (models.MoodObservation, error) {
	var loc capture.Locator
	switch req.Placement {
	case PlacementRandom:
		loc = s.random
	case "", PlacementDevice:
		loc = capture.Reported(req.Lat, req.Lng, req.GeolocationError)
	default:
		return models.MoodObservation{}, fmt.Errorf("%w: got %q", ErrInvalidPlacement, req.Placement)
	}

	form := capture.NewForm(s, s.logger)
	if err := form.Select(req.Mood); err != nil {
		return models.MoodObservation{}, err
	}
	return form.Submit(ctx, loc)
}

// List returns every observation in insertion order
func (s *MoodService) List() []models.MoodObservation {
	return s.store.All()
}

// Count returns the number of observations
func (s *MoodService) Count() int {
	return s.store.Len()
}

// Options returns the five selectable moods
func (s *MoodService) Options() []models.MoodOption {
	return capture.Options()
}

// Seed replaces the store contents with demo data for mode
func (s *MoodService) Seed(mode string, count int) (int, error) {
	moods, err := mock.Seed(mode, count, s.rng, s.now())
	if err != nil {
		return 0, err
	}
	if len(moods) == 0 {
		return 0, nil
	}
	s.store.Replace(moods)
	s.metrics.StoreSize(len(moods))
	s.logger.Info("store seeded", zap.String("mode", mode), zap.Int("count", len(moods)))
	return len(moods), nil
}
