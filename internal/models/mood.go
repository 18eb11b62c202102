package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/geo/s2"
	"github.com/google/uuid"
)

// Mood rating bounds
const (
	MinMood     = 1
	MaxMood     = 5
	NeutralMood = 3
)

var (
	// ErrInvalidMood is returned when a rating falls outside 1..5
	ErrInvalidMood = errors.New("mood must be between 1 and 5")
	// ErrInvalidCoordinate is returned when lat/lng are out of range
	ErrInvalidCoordinate = errors.New("coordinate out of range")
)

// MoodObservation represents one user-submitted mood record
type MoodObservation struct {
	ID        string  `json:"id"`
	Mood      int     `json:"mood"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp int64   `json:"timestamp"` // Unix milliseconds
}

// MoodInput is the payload the capture form hands to the core
type MoodInput struct {
	Mood int     `json:"mood" validate:"min=1,max=5"`
	Lat  float64 `json:"lat" validate:"min=-90,max=90"`
	Lng  float64 `json:"lng" validate:"min=-180,max=180"`
}

// ValidMood reports whether mood is a rating in 1..5
func ValidMood(mood int) bool {
	return mood >= MinMood && mood <= MaxMood
}

// ValidCoordinate reports whether lat/lng describe a point on the globe
func ValidCoordinate(lat, lng float64) bool {
	if lng < -180 || lng > 180 {
		return false
	}
	return s2.LatLngFromDegrees(lat, lng).IsValid()
}

// NewMoodObservation creates an observation with a time-ordered id
func NewMoodObservation(mood int, lat, lng float64, at time.Time) (MoodObservation, error) {
	if !ValidMood(mood) {
		return MoodObservation{}, fmt.Errorf("%w: got %d", ErrInvalidMood, mood)
	}
	if !ValidCoordinate(lat, lng) {
		return MoodObservation{}, fmt.Errorf("%w: lat=%f lng=%f", ErrInvalidCoordinate, lat, lng)
	}

	id, err := uuid.NewV7()
	if err != nil {
		// Fall back to a random id; uniqueness is the only requirement
		id = uuid.New()
	}

	return MoodObservation{
		ID:        id.String(),
		Mood:      mood,
		Lat:       lat,
		Lng:       lng,
		Timestamp: at.UnixMilli(),
	}, nil
}

// Time returns the observation timestamp as time.Time
func (m MoodObservation) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// MoodOption describes one choice offered by the capture form
type MoodOption struct {
	Mood  int    `json:"mood"`
	Label string `json:"label"`
	Emoji string `json:"emoji"`
	Icon  string `json:"icon"`
}

var moodLabels = [MaxMood]string{"Very Bad", "Bad", "Neutral", "Good", "Very Good"}
var moodEmojis = [MaxMood]string{"😢", "😕", "😐", "🙂", "😄"}

// MoodLabel returns the human label for a rating, "Neutral" when out of range
func MoodLabel(mood int) string {
	if !ValidMood(mood) {
		mood = NeutralMood
	}
	return moodLabels[mood-1]
}

// MoodEmoji returns the emoji for a rating, the neutral face when out of range
func MoodEmoji(mood int) string {
	if !ValidMood(mood) {
		mood = NeutralMood
	}
	return moodEmojis[mood-1]
}
