package capture

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// User-facing location failure messages
const (
	MessageLocationUnavailable    = "Could not get your location. Please enable location services and try again."
	MessageGeolocationUnsupported = "Geolocation is not supported by your browser."
)

var (
	// ErrLocationUnavailable is returned when the device position was denied
	// or could not be determined
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrGeolocationUnsupported is returned when the device offers no
	// position at all
	ErrGeolocationUnsupported = errors.New("geolocation unsupported")
)

// UserMessage returns the text shown to the user for a location failure, or
// "" when err is not one
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrGeolocationUnsupported):
		return MessageGeolocationUnsupported
	case errors.Is(err, ErrLocationUnavailable):
		return MessageLocationUnavailable
	default:
		return ""
	}
}

// Locator resolves the coordinate a mood is recorded at
type Locator interface {
	Locate(ctx context.Context) (models.LngLat, error)
}

// PositionFunc reads the current position from a device
type PositionFunc func(ctx context.Context) (models.LngLat, error)

// DeviceLocator asks the device for its position. A nil Position means the
// device has no geolocation support.
type DeviceLocator struct {
	Position PositionFunc
}

// Locate returns the device position
func (d DeviceLocator) Locate(ctx context.Context) (models.LngLat, error) {
	if d.Position == nil {
		return models.LngLat{}, ErrGeolocationUnsupported
	}
	pos, err := d.Position(ctx)
	if err != nil {
		if errors.Is(err, ErrGeolocationUnsupported) {
			return models.LngLat{}, err
		}
		return models.LngLat{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if !models.ValidCoordinate(pos.Lat, pos.Lng) {
		return models.LngLat{}, fmt.Errorf("%w: device reported lat=%f lng=%f", ErrLocationUnavailable, pos.Lat, pos.Lng)
	}
	return pos, nil
}

// Reported builds a DeviceLocator from a position a client already resolved.
// A non-empty failure ("unsupported", "denied", ...) or a missing coordinate
// makes Locate fail.
func Reported(lat, lng *float64, failure string) DeviceLocator {
	switch {
	case failure == "unsupported":
		return DeviceLocator{}
	case failure != "":
		return DeviceLocator{Position: func(context.Context) (models.LngLat, error) {
			return models.LngLat{}, errors.New(failure)
		}}
	case lat == nil || lng == nil:
		return DeviceLocator{Position: func(context.Context) (models.LngLat, error) {
			return models.LngLat{}, errors.New("no position reported")
		}}
	}
	pos := models.LngLat{Lng: *lng, Lat: *lat}
	return DeviceLocator{Position: func(context.Context) (models.LngLat, error) {
		return pos, nil
	}}
}

// Demo placement box, roughly Europe
const (
	RandomMinLat = 35.0
	RandomMaxLat = 70.0
	RandomMinLng = -10.0
	RandomMaxLng = 40.0
)

// RandomLocator places moods at a synthetic coordinate inside the demo box
type RandomLocator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomLocator creates a locator drawing from rng, or from a
// time-seeded source when nil
func NewRandomLocator(rng *rand.Rand) *RandomLocator {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &RandomLocator{rng: rng}
}

// Locate returns a random coordinate in the demo box
func (r *RandomLocator) Locate(ctx context.Context) (models.LngLat, error) {
	if err := ctx.Err(); err != nil {
		return models.LngLat{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.LngLat{
		Lat: RandomMinLat + r.rng.Float64()*(RandomMaxLat-RandomMinLat),
		Lng: RandomMinLng + r.rng.Float64()*(RandomMaxLng-RandomMinLng),
	}, nil
}
