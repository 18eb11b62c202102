package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/moodmap-backend-go/internal/capture"
	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/service"
	"github.com/jengzang/moodmap-backend-go/pkg/response"
)

// MoodHandler handles HTTP requests for mood observations
type MoodHandler struct {
	service *service.MoodService
}

// NewMoodHandler creates a new mood handler
func NewMoodHandler(service *service.MoodService) *MoodHandler {
	return &MoodHandler{service: service}
}

// ListMoods handles GET /api/v1/moods
func (h *MoodHandler) ListMoods(c *gin.Context) {
	moods := h.service.List()
	response.Success(c, gin.H{
		"moods": moods,
		"count": len(moods),
	})
}

// CreateMood handles POST /api/v1/moods
func (h *MoodHandler) CreateMood(c *gin.Context) {
	var req models.CreateMoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	obs, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		if msg := capture.UserMessage(err); msg != "" {
			response.Error(c, http.StatusUnprocessableEntity, msg, err)
			return
		}
		switch {
		case errors.Is(err, models.ErrInvalidMood),
			errors.Is(err, models.ErrInvalidCoordinate),
			errors.Is(err, service.ErrInvalidPlacement):
			response.BadRequest(c, err.Error(), err)
		default:
			response.InternalError(c, "Failed to record mood", err)
		}
		return
	}

	response.Created(c, obs)
}

// GetOptions handles GET /api/v1/moods/options
func (h *MoodHandler) GetOptions(c *gin.Context) {
	response.Success(c, h.service.Options())
}
