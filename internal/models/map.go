package models

// LngLat is a geographic coordinate
type LngLat struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// ScreenPoint is a pixel position in the viewport, origin top-left
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Camera describes the current map view
type Camera struct {
	Center LngLat  `json:"center"`
	Zoom   float64 `json:"zoom"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// BBox is a west,south,east,north bounding box in degrees
type BBox [4]float64

// Popup is the transient overlay shown for a clicked point
type Popup struct {
	LngLat LngLat `json:"lngLat"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	HTML   string `json:"html"`
}

// CameraRequest is the body for PUT /api/v1/map/camera
type CameraRequest struct {
	Lng    *float64 `json:"lng" binding:"omitempty,min=-180,max=180"`
	Lat    *float64 `json:"lat" binding:"omitempty,min=-90,max=90"`
	Zoom   *float64 `json:"zoom" binding:"omitempty,min=0,max=22"`
	Width  int      `json:"width" binding:"omitempty,min=1"`
	Height int      `json:"height" binding:"omitempty,min=1"`
}

// ClickRequest is the body for POST /api/v1/map/click
type ClickRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClickResponse reports what a click did
type ClickResponse struct {
	Popup  *Popup `json:"popup,omitempty"`
	Camera Camera `json:"camera"`
}

// ClusterFilter represents query parameters for cluster lookups
type ClusterFilter struct {
	BBox string  `form:"bbox"`
	Zoom float64 `form:"zoom"`
}

// LeavesFilter represents pagination for cluster leaves
type LeavesFilter struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// CreateMoodRequest is the body for POST /api/v1/moods
type CreateMoodRequest struct {
	Mood             int      `json:"mood"`
	Lat              *float64 `json:"lat"`
	Lng              *float64 `json:"lng"`
	Placement        string   `json:"placement"` // "device" or "random"
	GeolocationError string   `json:"geolocationError"`
}

// MapConfig is what a client needs to bootstrap its map view
type MapConfig struct {
	AccessToken    string `json:"accessToken"`
	Style          string `json:"style"`
	ClusterRadius  int    `json:"clusterRadius"`
	ClusterMaxZoom int    `json:"clusterMaxZoom"`
	Camera         Camera `json:"camera"`
}
