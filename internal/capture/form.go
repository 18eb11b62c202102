// Package capture collects a mood rating and a coordinate and hands the
// resulting observation to the store.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jengzang/moodmap-backend-go/internal/icons"
	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// ErrNoMoodSelected is returned by Submit when nothing is selected
var ErrNoMoodSelected = errors.New("select a mood before submitting")

// Sink receives a captured mood
type Sink interface {
	Add(ctx context.Context, mood int, lat, lng float64) (models.MoodObservation, error)
}

// Options lists the five choices in rating order
func Options() []models.MoodOption {
	opts := make([]models.MoodOption, 0, models.MaxMood)
	for m := models.MinMood; m <= models.MaxMood; m++ {
		opts = append(opts, models.MoodOption{
			Mood:  m,
			Label: models.MoodLabel(m),
			Emoji: models.MoodEmoji(m),
			Icon:  icons.Resolve(m),
		})
	}
	return opts
}

// Form holds a single pending selection
type Form struct {
	sink     Sink
	validate *validator.Validate
	logger   *zap.Logger

	mu       sync.Mutex
	selected int
}

// NewForm creates an empty form submitting into sink
func NewForm(sink Sink, logger *zap.Logger) *Form {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Form{sink: sink, validate: validator.New(), logger: logger.Named("capture")}
}

// Select makes mood the only selection
func (f *Form) Select(mood int) error {
	if err := f.validate.Var(mood, "min=1,max=5"); err != nil {
		return fmt.Errorf("%w: got %d", models.ErrInvalidMood, mood)
	}
	f.mu.Lock()
	f.selected = mood
	f.mu.Unlock()
	return nil
}

// Selected returns the current selection, 0 when none
func (f *Form) Selected() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selected
}

// CanSubmit reports whether exactly one mood is selected
func (f *Form) CanSubmit() bool {
	return f.Selected() != 0
}

// Reset clears the selection
func (f *Form) Reset() {
	f.mu.Lock()
	f.selected = 0
	f.mu.Unlock()
}

// Submit resolves a coordinate with loc and records the selected mood. On a
// location failure nothing is recorded and the selection is kept; on success
// the form is reset.
func (f *Form) Submit(ctx context.Context, loc Locator) (models.MoodObservation, error) {
	mood := f.Selected()
	if mood == 0 {
		return models.MoodObservation{}, ErrNoMoodSelected
	}

	pos, err := loc.Locate(ctx)
	if err != nil {
		f.logger.Info("location failed", zap.Int("mood", mood), zap.Error(err))
		return models.MoodObservation{}, err
	}

	input := models.MoodInput{Mood: mood, Lat: pos.Lat, Lng: pos.Lng}
	if err := f.validate.Struct(input); err != nil {
		return models.MoodObservation{}, fmt.Errorf("%w: %v", models.ErrInvalidCoordinate, err)
	}

	obs, err := f.sink.Add(ctx, input.Mood, input.Lat, input.Lng)
	if err != nil {
		return models.MoodObservation{}, err
	}

	f.mu.Lock()
	if f.selected == mood {
		f.selected = 0
	}
	f.mu.Unlock()
	return obs, nil
}
