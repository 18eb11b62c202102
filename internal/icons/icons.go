package icons

import (
	"fmt"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// FallbackColor is used for any rating outside 1..5
const FallbackColor = "#888888"

// Asset is one mood icon that must be registered before use
type Asset struct {
	Mood int    `json:"mood"`
	Name string `json:"name"` // image name registered with the map
	Path string `json:"path"` // URL path under the asset base
}

var paths = [models.MaxMood]string{
	"/mood-icons/rating_1.png",
	"/mood-icons/rating_2.png",
	"/mood-icons/rating_3.png",
	"/mood-icons/rating_4.png",
	"/mood-icons/rating_5.png",
}

var colors = [models.MaxMood]string{
	"#e74c3c", // very bad
	"#e67e22",
	"#f39c12",
	"#2ecc71",
	"#27ae60", // very good
}

func index(mood int) int {
	if !models.ValidMood(mood) {
		return models.NeutralMood - 1
	}
	return mood - 1
}

// Resolve returns the icon path for a rating; anything outside 1..5 gets the
// neutral icon
func Resolve(mood int) string {
	return paths[index(mood)]
}

// ImageName returns the name the icon is registered under
func ImageName(mood int) string {
	return fmt.Sprintf("mood-%d", index(mood)+1)
}

// Color returns the rating colour
func Color(mood int) string {
	if !models.ValidMood(mood) {
		return FallbackColor
	}
	return colors[mood-1]
}

// All lists the five assets in rating order
func All() []Asset {
	assets := make([]Asset, 0, models.MaxMood)
	for m := models.MinMood; m <= models.MaxMood; m++ {
		assets = append(assets, Asset{Mood: m, Name: ImageName(m), Path: Resolve(m)})
	}
	return assets
}
