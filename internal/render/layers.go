package render

import (
	"fmt"
	"math"

	"github.com/jengzang/moodmap-backend-go/internal/cluster"
	"github.com/jengzang/moodmap-backend-go/internal/icons"
	"github.com/jengzang/moodmap-backend-go/internal/mapengine"
	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// Source and layer ids
const (
	SourceID              = "moods"
	ClusterLayerID        = "clusters"
	ClusterCountLayerID   = "cluster-count"
	UnclusteredLayerID    = "unclustered-point"
	clusterLabelTextSize  = 14
	unclusteredIconSize   = 0.5
	unclusteredHitRadius  = 10
	clusterStrokeWidth    = 2
	clusterStrokeColor    = "#ffffff"
	smallClusterMaxPoints = 10
	midClusterMaxPoints   = 30
)

// Accumulators returns the per-cluster aggregates: running sum of mood and
// running count of members
func Accumulators() []cluster.Accumulator {
	return []cluster.Accumulator{
		cluster.Sum(models.PropSum, models.PropMood),
		cluster.Count(models.PropCount),
	}
}

// AverageMood returns round(sum/count) clamped to 1..5; a zero count is
// treated as neutral
func AverageMood(sum, count float64) int {
	if count == 0 {
		return models.NeutralMood
	}
	avg := int(math.Round(sum / count))
	if avg < models.MinMood {
		return models.MinMood
	}
	if avg > models.MaxMood {
		return models.MaxMood
	}
	return avg
}

// clusterAverage reads the accumulators off a cluster feature
func clusterAverage(f models.Feature) int {
	sum, _ := f.FloatProp(models.PropSum)
	count, _ := f.FloatProp(models.PropCount)
	return AverageMood(sum, count)
}

// clusterSize steps icon scale and hit radius by point count
func clusterSize(pointCount int) (iconSize, radius float64) {
	switch {
	case pointCount < smallClusterMaxPoints:
		return 0.5, 15
	case pointCount < midClusterMaxPoints:
		return 0.65, 20
	default:
		return 0.8, 25
	}
}

// IconSet reports whether an icon image is registered. A nil IconSet
// treats every icon as present.
type IconSet func(name string) bool

// Icon returns the image for a rating, or the neutral image when that
// rating's icon is missing
func (s IconSet) Icon(mood int) string {
	name := icons.ImageName(mood)
	if s == nil || s(name) {
		return name
	}
	return icons.ImageName(models.NeutralMood)
}

// Missing lists the rating icons that are absent
func (s IconSet) Missing() []string {
	var missing []string
	for _, name := range iconNames() {
		if s != nil && !s(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// ClusterStyle is the appearance of a cluster marker
func ClusterStyle(f models.Feature) mapengine.Style {
	return IconSet(nil).ClusterStyle(f)
}

// ClusterStyle is the appearance of a cluster marker drawn with the icons in s
func (s IconSet) ClusterStyle(f models.Feature) mapengine.Style {
	avg := clusterAverage(f)
	n, _ := f.IntProp(models.PropPointCount)
	iconSize, radius := clusterSize(n)
	return mapengine.Style{
		Icon:        s.Icon(avg),
		IconSize:    iconSize,
		Color:       icons.Color(avg),
		Radius:      radius,
		StrokeColor: clusterStrokeColor,
		StrokeWidth: clusterStrokeWidth,
	}
}

// ClusterLabelStyle renders "avg (count)" on top of a cluster
func ClusterLabelStyle(f models.Feature) mapengine.Style {
	n, _ := f.IntProp(models.PropPointCount)
	abbreviated, ok := f.Properties[models.PropPointCountAbbreviated].(string)
	if !ok {
		abbreviated = cluster.Abbreviate(n)
	}
	_, radius := clusterSize(n)
	return mapengine.Style{
		Text:     fmt.Sprintf("%d (%s)", clusterAverage(f), abbreviated),
		TextSize: clusterLabelTextSize,
		Radius:   radius,
	}
}

// PointStyle is the appearance of a single observation keyed by its mood;
// unknown ratings get the neutral icon and the fallback colour
func PointStyle(f models.Feature) mapengine.Style {
	return IconSet(nil).PointStyle(f)
}

// PointStyle is the appearance of a single observation drawn with the icons in s
func (s IconSet) PointStyle(f models.Feature) mapengine.Style {
	mood, _ := f.IntProp(models.PropMood)
	return mapengine.Style{
		Icon:        s.Icon(mood),
		IconSize:    unclusteredIconSize,
		Color:       icons.Color(mood),
		Radius:      unclusteredHitRadius,
		StrokeColor: clusterStrokeColor,
		StrokeWidth: clusterStrokeWidth,
	}
}

func iconNames() []string {
	assets := icons.All()
	names := make([]string, 0, len(assets))
	for _, a := range assets {
		names = append(names, a.Name)
	}
	return names
}

// Layers returns the layer declarations, bottom first. Icon layers only
// require the neutral image; any other missing rating icon is drawn with it.
func Layers(available IconSet) []mapengine.Layer {
	required := []string{icons.ImageName(models.NeutralMood)}
	return []mapengine.Layer{
		{
			ID:     ClusterLayerID,
			Type:   mapengine.LayerSymbol,
			Source: SourceID,
			Images: required,
			Filter: mapengine.HasPointCount,
			Paint:  available.ClusterStyle,
		},
		{
			ID:     ClusterCountLayerID,
			Type:   mapengine.LayerSymbol,
			Source: SourceID,
			Filter: mapengine.HasPointCount,
			Paint:  ClusterLabelStyle,
		},
		{
			ID:     UnclusteredLayerID,
			Type:   mapengine.LayerSymbol,
			Source: SourceID,
			Images: required,
			Filter: mapengine.NotHasPointCount,
			Paint:  available.PointStyle,
		},
	}
}
