package spatial

import (
	"math"
)

// TileSize is the pixel size of one web-mercator tile at zoom 0
const TileSize = 512.0

// MaxMercatorLat is the latitude at which web-mercator y reaches 0 or 1
const MaxMercatorLat = 85.0511287798066

// LngToX projects longitude to web-mercator x in [0,1]
func LngToX(lng float64) float64 {
	return lng/360 + 0.5
}

// LatToY projects latitude to web-mercator y in [0,1], 0 at the north edge
func LatToY(lat float64) float64 {
	sin := math.Sin(lat * math.Pi / 180)
	y := 0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi
	if y < 0 {
		return 0
	}
	if y > 1 {
		return 1
	}
	return y
}

// XToLng is the inverse of LngToX
func XToLng(x float64) float64 {
	return (x - 0.5) * 360
}

// YToLat is the inverse of LatToY
func YToLat(y float64) float64 {
	y2 := (180 - y*360) * math.Pi / 180
	return 360*math.Atan(math.Exp(y2))/math.Pi - 90
}

// WorldSize returns the pixel width of the whole world at zoom
func WorldSize(zoom float64) float64 {
	return TileSize * math.Pow(2, zoom)
}

// Project converts lng/lat to world pixel coordinates at zoom
func Project(lng, lat, zoom float64) (float64, float64) {
	size := WorldSize(zoom)
	return LngToX(lng) * size, LatToY(lat) * size
}

// Unproject converts world pixel coordinates at zoom back to lng/lat
func Unproject(px, py, zoom float64) (float64, float64) {
	size := WorldSize(zoom)
	return XToLng(px / size), YToLat(py / size)
}

// WrapLng normalizes longitude into [-180,180)
func WrapLng(lng float64) float64 {
	return math.Mod(math.Mod(lng+180, 360)+360, 360) - 180
}

// ClampLat limits latitude to the renderable mercator range
func ClampLat(lat float64) float64 {
	return math.Max(-MaxMercatorLat, math.Min(MaxMercatorLat, lat))
}
