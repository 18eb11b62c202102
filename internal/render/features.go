package render

import (
	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// BuildFeatureCollection projects observations into point features, one per
// observation, in store order
func BuildFeatureCollection(moods []models.MoodObservation) models.FeatureCollection {
	features := make([]models.Feature, 0, len(moods))
	for _, m := range moods {
		features = append(features, models.MoodFeature(m))
	}
	return models.NewFeatureCollection(features)
}
