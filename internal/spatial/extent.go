package spatial

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Extent summarises how a group of points is spread on the globe
type Extent struct {
	CenterLat    float64    `json:"centerLat"`
	CenterLng    float64    `json:"centerLng"`
	Bounds       [4]float64 `json:"bounds"`       // west, south, east, north
	RadiusMeters float64    `json:"radiusMeters"` // radius of gyration around the center
	SpanMeters   float64    `json:"spanMeters"`   // largest distance from the center
}

// ExtentOf computes the extent of points given as lat/lng pairs. The center is
// the spherical mean, so groups straddling the antimeridian stay compact.
func ExtentOf(lats, lngs []float64) Extent {
	n := len(lats)
	if len(lngs) < n {
		n = len(lngs)
	}
	if n == 0 {
		return Extent{}
	}

	var sum s2.Point
	rect := s2.EmptyRect()
	for i := 0; i < n; i++ {
		ll := s2.LatLngFromDegrees(lats[i], lngs[i])
		sum = s2.Point{Vector: sum.Add(s2.PointFromLatLng(ll).Vector)}
		rect = rect.AddPoint(ll)
	}

	var center s2.LatLng
	if sum.Norm() == 0 {
		center = s2.LatLngFromDegrees(lats[0], lngs[0])
	} else {
		center = s2.LatLngFromPoint(s2.Point{Vector: sum.Normalize()})
	}

	var sumSq, span float64
	for i := 0; i < n; i++ {
		d := HaversineDistance(center.Lat.Degrees(), center.Lng.Degrees(), lats[i], lngs[i])
		sumSq += d * d
		span = math.Max(span, d)
	}

	return Extent{
		CenterLat:    center.Lat.Degrees(),
		CenterLng:    center.Lng.Degrees(),
		Bounds:       rectBounds(rect),
		RadiusMeters: math.Sqrt(sumSq / float64(n)),
		SpanMeters:   span,
	}
}

func rectBounds(r s2.Rect) [4]float64 {
	return [4]float64{
		s1.Angle(r.Lng.Lo).Degrees(),
		s1.Angle(r.Lat.Lo).Degrees(),
		s1.Angle(r.Lng.Hi).Degrees(),
		s1.Angle(r.Lat.Hi).Degrees(),
	}
}
