package http

import (
	"errors"
	"net/http"
	"strconv"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/services"
	"remoteeye/internal/infrastructure/middleware"
	apperrors "remoteeye/pkg/errors"
	"remoteeye/pkg/validation"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	deviceService  services.DeviceService
	commandService services.CommandService
	authService    services.AuthService
}

func NewDeviceHandler(
	deviceService services.DeviceService,
	commandService services.CommandService,
	authService services.AuthService,
) *DeviceHandler {
	return &DeviceHandler{
		deviceService:  deviceService,
		commandService: commandService,
		authService:    authService,
	}
}

func (h *DeviceHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/devices")
	api.Use(middleware.AuthMiddleware(h.authService))
	{
		api.GET("", h.List)
		api.GET("/:id", h.Get)
		api.PATCH("/:id", h.Update)
		api.DELETE("/:id", h.Delete)
		api.POST("/:id/commands", h.SubmitCommand)
		api.GET("/:id/commands", h.CommandHistory)
	}
}

type UpdateDeviceRequest struct {
	Name     string                 `json:"name" binding:"max=100"`
	Settings map[string]interface{} `json:"settings"`
}

type SubmitCommandRequest struct {
	Action string                 `json:"action" binding:"required,max=50"`
	Params map[string]interface{} `json:"params"`
}

func (h *DeviceHandler) List(c *gin.Context) {
	devices, err := h.deviceService.List(c.Request.Context())
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to list devices"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"devices": devices,
		"count":   len(devices),
	})
}

func (h *DeviceHandler) Get(c *gin.Context) {
	deviceID, ok := h.deviceID(c)
	if !ok {
		return
	}

	device, err := h.deviceService.Get(c.Request.Context(), deviceID)
	if err != nil {
		c.Error(apperrors.NewNotFoundError("device"))
		return
	}

	c.JSON(http.StatusOK, device)
}

func (h *DeviceHandler) Update(c *gin.Context) {
	deviceID, ok := h.deviceID(c)
	if !ok {
		return
	}

	var req UpdateDeviceRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}
	if req.Name != "" {
		if err := validation.ValidateName(req.Name); err != nil {
			c.Error(apperrors.NewInvalidInputError(err.Error()))
			return
		}
	}

	device, err := h.deviceService.UpdateSettings(c.Request.Context(), deviceID, req.Name, req.Settings)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			c.Error(apperrors.NewNotFoundError("device"))
			return
		}
		c.Error(apperrors.NewInternalError("failed to update device"))
		return
	}

	c.JSON(http.StatusOK, device)
}

func (h *DeviceHandler) Delete(c *gin.Context) {
	deviceID, ok := h.deviceID(c)
	if !ok {
		return
	}

	if err := h.deviceService.Delete(c.Request.Context(), deviceID); err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			c.Error(apperrors.NewNotFoundError("device"))
			return
		}
		c.Error(apperrors.NewInternalError("failed to delete device"))
		return
	}

	c.Status(http.StatusNoContent)
}

// SubmitCommand accepts a command for the device. 202: the command is
// queued, not necessarily executed; "delivered" reports whether it already
// went out over a live session.
func (h *DeviceHandler) SubmitCommand(c *gin.Context) {
	deviceID, ok := h.deviceID(c)
	if !ok {
		return
	}

	var req SubmitCommandRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}
	if err := validation.ValidateAction(req.Action); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	cmd, delivered, err := h.commandService.Enqueue(
		c.Request.Context(), deviceID, domain.CommandAction(req.Action), req.Params)
	if err != nil {
		if errors.Is(err, services.ErrUnknownAction) {
			c.Error(apperrors.NewInvalidInputError("unknown action"))
			return
		}
		c.Error(apperrors.NewInternalError("failed to queue command"))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"command":   cmd,
		"delivered": delivered,
	})
}

func (h *DeviceHandler) CommandHistory(c *gin.Context) {
	deviceID, ok := h.deviceID(c)
	if !ok {
		return
	}

	status := domain.CommandStatus(c.Query("status"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	commands, total, err := h.commandService.History(c.Request.Context(), deviceID, status, limit, offset)
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to list commands"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"commands": commands,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *DeviceHandler) deviceID(c *gin.Context) (domain.DeviceID, bool) {
	id := c.Param("id")
	if err := validation.ValidateDeviceID(id); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return "", false
	}
	return domain.DeviceID(id), true
}
