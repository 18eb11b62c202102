package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/moodmap-backend-go/internal/cluster"
	"github.com/jengzang/moodmap-backend-go/internal/icons"
	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/service"
	"github.com/jengzang/moodmap-backend-go/pkg/response"
)

// MapHandler handles HTTP requests for the map view
type MapHandler struct {
	service *service.MapService
	config  models.MapConfig
}

// NewMapHandler creates a new map handler
func NewMapHandler(service *service.MapService, config models.MapConfig) *MapHandler {
	return &MapHandler{service: service, config: config}
}

// GetConfig handles GET /api/v1/config
func (h *MapHandler) GetConfig(c *gin.Context) {
	response.Success(c, h.config)
}

// GetSource handles GET /api/v1/map/source
func (h *MapHandler) GetSource(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.SourceData())
}

// GetClusters handles GET /api/v1/map/clusters
func (h *MapHandler) GetClusters(c *gin.Context) {
	var filter models.ClusterFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	features, err := h.service.Clusters(filter.BBox, filter.Zoom)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"features": features,
		"count":    len(features),
		"zoom":     filter.Zoom,
	})
}

// GetExpansionZoom handles GET /api/v1/map/clusters/:id/expansion-zoom
func (h *MapHandler) GetExpansionZoom(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid cluster ID", err)
		return
	}

	zoom, err := h.service.ExpansionZoom(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"clusterId": id, "zoom": zoom})
}

// GetChildren handles GET /api/v1/map/clusters/:id/children
func (h *MapHandler) GetChildren(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid cluster ID", err)
		return
	}

	children, err := h.service.Children(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{
		"clusterId": id,
		"features":  children,
		"count":     len(children),
	})
}

// GetLeaves handles GET /api/v1/map/clusters/:id/leaves
func (h *MapHandler) GetLeaves(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid cluster ID", err)
		return
	}
	var filter models.LeavesFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	page, err := h.service.Leaves(id, filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, page)
}

// GetRender handles GET /api/v1/map/render
func (h *MapHandler) GetRender(c *gin.Context) {
	rendered := h.service.Rendered()
	response.Success(c, gin.H{
		"camera":   h.service.Camera(),
		"features": rendered,
		"count":    len(rendered),
		"popup":    h.service.Map().Popup(),
	})
}

// UpdateCamera handles PUT /api/v1/map/camera
func (h *MapHandler) UpdateCamera(c *gin.Context) {
	var req models.CameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid camera", err)
		return
	}

	cam, err := h.service.SetCamera(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, cam)
}

// Click handles POST /api/v1/map/click
func (h *MapHandler) Click(c *gin.Context) {
	var req models.ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid click", err)
		return
	}

	resp, err := h.service.Click(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

// GetIcon handles GET /api/v1/icons/:mood
func (h *MapHandler) GetIcon(c *gin.Context) {
	mood, err := strconv.Atoi(c.Param("mood"))
	if err != nil {
		response.BadRequest(c, "Invalid mood", err)
		return
	}
	response.Success(c, gin.H{
		"mood":  mood,
		"name":  icons.ImageName(mood),
		"path":  icons.Resolve(mood),
		"color": icons.Color(mood),
	})
}

func (h *MapHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotReady):
		response.Error(c, http.StatusServiceUnavailable, "Map is not ready", err)
	case errors.Is(err, service.ErrInvalidBBox):
		response.BadRequest(c, err.Error(), err)
	case errors.Is(err, cluster.ErrClusterNotFound):
		response.NotFound(c, "Cluster not found", err)
	default:
		response.InternalError(c, "Map operation failed", err)
	}
}
