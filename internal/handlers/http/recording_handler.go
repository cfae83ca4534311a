package http

import (
	"net/http"
	"strconv"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/services"
	"remoteeye/internal/infrastructure/middleware"
	apperrors "remoteeye/pkg/errors"
	"remoteeye/pkg/validation"

	"github.com/gin-gonic/gin"
)

type RecordingHandler struct {
	recordingService services.RecordingService
	authService      services.AuthService
}

func NewRecordingHandler(recordingService services.RecordingService, authService services.AuthService) *RecordingHandler {
	return &RecordingHandler{
		recordingService: recordingService,
		authService:      authService,
	}
}

func (h *RecordingHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/recordings")
	api.Use(middleware.AuthMiddleware(h.authService))
	{
		api.GET("", h.List)
		api.POST("", h.Create)
		api.GET("/:id", h.Get)
		api.DELETE("/:id", h.Delete)
	}
}

type CreateRecordingRequest struct {
	DeviceID    string `json:"device_id" binding:"required,max=64"`
	Type        string `json:"type" binding:"required,oneof=audio photo"`
	Filename    string `json:"filename" binding:"required,max=255"`
	Duration    int    `json:"duration" binding:"min=0"`
	Size        int64  `json:"size" binding:"min=0"`
	TriggeredBy string `json:"triggered_by" binding:"max=64"`
}

func (h *RecordingHandler) List(c *gin.Context) {
	deviceID := c.Query("device_id")
	if err := validation.ValidateDeviceID(deviceID); err != nil {
		c.Error(apperrors.NewInvalidInputError("device_id query parameter required"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	recordings, total, err := h.recordingService.List(c.Request.Context(), domain.DeviceID(deviceID), limit, offset)
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to list recordings"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recordings": recordings,
		"total":      total,
		"limit":      limit,
		"offset":     offset,
	})
}

// Create registers capture metadata the device reports after completing a
// recording. The media bytes themselves never transit the relay.
func (h *RecordingHandler) Create(c *gin.Context) {
	var req CreateRecordingRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}
	if err := validation.ValidateDeviceID(req.DeviceID); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	rec, err := h.recordingService.Register(
		c.Request.Context(),
		domain.DeviceID(req.DeviceID),
		domain.RecordingType(req.Type),
		req.Filename,
		req.Duration,
		req.Size,
		req.TriggeredBy,
	)
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to register recording"))
		return
	}

	c.JSON(http.StatusCreated, rec)
}

func (h *RecordingHandler) Get(c *gin.Context) {
	rec, err := h.recordingService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewNotFoundError("recording"))
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *RecordingHandler) Delete(c *gin.Context) {
	if err := h.recordingService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(apperrors.NewNotFoundError("recording"))
		return
	}

	c.Status(http.StatusNoContent)
}
