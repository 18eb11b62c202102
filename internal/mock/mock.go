// Package mock produces demo observations for seeding the store.
package mock

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/jengzang/moodmap-backend-go/internal/capture"
	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// Seed modes
const (
	ModeNone   = "none"
	ModeCities = "cities"
	ModeRandom = "random"
)

// DefaultRandomCount is used when no count is configured
const DefaultRandomCount = 500

// maxAge bounds how far back a random observation may be
const maxAge = 100000 * time.Second

type city struct {
	id       string
	lat, lng float64
	mood     int
}

var cities = []city{
	{"paris", 48.8566, 2.3522, 5},
	{"london", 51.5074, -0.1278, 4},
	{"berlin", 52.52, 13.405, 3},
	{"rome", 41.9028, 12.4964, 2},
	{"madrid", 40.4168, -3.7038, 1},
	{"stockholm", 59.3293, 18.0686, 4},
	{"helsinki", 60.1699, 24.9384, 5},
	{"prague", 50.0755, 14.4378, 3},
	{"vienna", 48.2082, 16.3738, 2},
	{"milan", 45.4654, 9.1859, 1},
}

// Cities returns one mood per fixed European capital. The n-th city is n*1000
// seconds old. Results are oldest first.
func Cities(now time.Time) []models.MoodObservation {
	out := make([]models.MoodObservation, 0, len(cities))
	for i, c := range cities {
		out = append(out, models.MoodObservation{
			ID:        c.id,
			Mood:      c.mood,
			Lat:       c.lat,
			Lng:       c.lng,
			Timestamp: now.Add(-time.Duration(i+1) * 1000 * time.Second).UnixMilli(),
		})
	}
	chronological(out)
	return out
}

// Random returns n moods scattered over the demo box, each up to 100000
// seconds old. Results are oldest first.
func Random(n int, rng *rand.Rand, now time.Time) []models.MoodObservation {
	if n <= 0 {
		return []models.MoodObservation{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(now.UnixNano()))
	}

	out := make([]models.MoodObservation, 0, n)
	for i := 0; i < n; i++ {
		age := time.Duration(rng.Int63n(int64(maxAge / time.Millisecond))) * time.Millisecond
		out = append(out, models.MoodObservation{
			ID:        fmt.Sprintf("random-%d-%d", i, now.UnixMilli()),
			Mood:      models.MinMood + rng.Intn(models.MaxMood),
			Lat:       between(rng, capture.RandomMinLat, capture.RandomMaxLat),
			Lng:       between(rng, capture.RandomMinLng, capture.RandomMaxLng),
			Timestamp: now.Add(-age).UnixMilli(),
		})
	}
	chronological(out)
	return out
}

// Seed returns the observations for a configured mode
func Seed(mode string, count int, rng *rand.Rand, now time.Time) ([]models.MoodObservation, error) {
	switch mode {
	case "", ModeNone:
		return nil, nil
	case ModeCities:
		return Cities(now), nil
	case ModeRandom:
		if count <= 0 {
			count = DefaultRandomCount
		}
		return Random(count, rng, now), nil
	default:
		return nil, fmt.Errorf("unknown seed mode %q", mode)
	}
}

func between(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}

func chronological(moods []models.MoodObservation) {
	sort.SliceStable(moods, func(i, j int) bool {
		return moods[i].Timestamp < moods[j].Timestamp
	})
}
