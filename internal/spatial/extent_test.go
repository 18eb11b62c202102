package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	// Paris to London
	d := HaversineDistance(48.8566, 2.3522, 51.5074, -0.1278)
	assert.InDelta(t, 343500, d, 1500)
	assert.Equal(t, 0.0, HaversineDistance(10, 10, 10, 10))
}

func TestMidpoint(t *testing.T) {
	lat, lng := Midpoint(0, 0, 0, 90)
	assert.InDelta(t, 0, lat, 1e-9)
	assert.InDelta(t, 45, lng, 1e-9)
}

func TestExtentOf(t *testing.T) {
	assert.Equal(t, Extent{}, ExtentOf(nil, nil))

	e := ExtentOf([]float64{48.8566, 48.8570}, []float64{2.3522, 2.3525})
	assert.InDelta(t, 48.8568, e.CenterLat, 1e-4)
	assert.InDelta(t, 2.35235, e.CenterLng, 1e-4)
	assert.InDelta(t, 2.3522, e.Bounds[0], 1e-9)
	assert.InDelta(t, 48.8570, e.Bounds[3], 1e-9)
	assert.InDelta(t, 25, e.SpanMeters, 5)
	assert.LessOrEqual(t, e.RadiusMeters, e.SpanMeters)
}

func TestExtentOfAcrossAntimeridian(t *testing.T) {
	e := ExtentOf([]float64{0, 0}, []float64{179.5, -179.5})
	assert.InDelta(t, 180, abs(e.CenterLng), 1e-6)
	assert.Greater(t, e.Bounds[0], e.Bounds[2])
	assert.InDelta(t, 55600, e.SpanMeters, 500)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
