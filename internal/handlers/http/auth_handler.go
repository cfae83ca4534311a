package http

import (
	"errors"
	"net/http"
	"strings"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/services"
	apperrors "remoteeye/pkg/errors"
	"remoteeye/pkg/validation"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func (h *AuthHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/auth")
	{
		api.POST("/pair", h.Pair)
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.POST("/refresh", h.RefreshToken)
		api.GET("/pairings/:code", h.LookupPairing)
	}
}

type PairRequest struct {
	Claim string `json:"claim" binding:"max=254"`
}

type RegisterRequest struct {
	// Device registration: redeem a pairing code.
	Code string `json:"code" binding:"max=16"`
	// Controller registration: attach to an existing device.
	DeviceID string `json:"device_id" binding:"max=64"`

	Name string                 `json:"name" binding:"max=100"`
	Info map[string]interface{} `json:"info"`
}

type LoginRequest struct {
	DeviceID string `json:"device_id" binding:"required,max=64"`
	Secret   string `json:"secret" binding:"required,max=128"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required,max=2048"`
}

func (h *AuthHandler) Pair(c *gin.Context) {
	var req PairRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}

	code, err := h.authService.IssuePairingCode(c.Request.Context(), strings.TrimSpace(req.Claim))
	if err != nil {
		if errors.Is(err, services.ErrPairingCodeActive) {
			c.Error(apperrors.NewConflictError("an active pairing code already exists"))
			return
		}
		c.Error(apperrors.NewInternalError("failed to issue pairing code"))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":       code.Code,
		"expires_at": code.ExpiresAt,
	})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name != "" {
		if err := validation.ValidateName(req.Name); err != nil {
			c.Error(apperrors.NewInvalidInputError(err.Error()))
			return
		}
	}

	switch {
	case req.Code != "":
		h.registerDevice(c, req)
	case req.DeviceID != "":
		h.registerController(c, req)
	default:
		c.Error(apperrors.NewInvalidInputError("either code or device_id is required"))
	}
}

func (h *AuthHandler) registerDevice(c *gin.Context, req RegisterRequest) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := validation.ValidatePairingCode(code); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	result, err := h.authService.RedeemPairingCode(c.Request.Context(), code, req.Name, req.Info)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPairingCode) {
			c.Error(apperrors.NewPairingCodeInvalidError())
			return
		}
		c.Error(apperrors.NewInternalError("failed to register device"))
		return
	}

	// The plaintext secret appears exactly once, here.
	c.JSON(http.StatusCreated, gin.H{
		"device":        result.Device,
		"secret":        result.Secret,
		"access_token":  result.Tokens.AccessToken,
		"refresh_token": result.Tokens.RefreshToken,
		"expires_in":    result.Tokens.ExpiresIn,
	})
}

func (h *AuthHandler) registerController(c *gin.Context, req RegisterRequest) {
	if err := validation.ValidateDeviceID(req.DeviceID); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	tokens, err := h.authService.RegisterController(c.Request.Context(), domain.DeviceID(req.DeviceID), req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			c.Error(apperrors.NewNotFoundError("device"))
			return
		}
		c.Error(apperrors.NewInternalError("failed to register controller"))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"controller_id": tokens.Identity,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}

	if err := validation.ValidateDeviceID(req.DeviceID); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	tokens, err := h.authService.Login(c.Request.Context(), domain.DeviceID(req.DeviceID), req.Secret)
	if err != nil {
		c.Error(apperrors.NewAuthFailedError("invalid credentials"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}

	access, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		c.Error(apperrors.NewTokenInvalidError())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": access,
		"expires_in":   int(h.authService.AccessTokenTTL().Seconds()),
	})
}

// LookupPairing tells a polling device whether its code has been redeemed.
func (h *AuthHandler) LookupPairing(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	if err := validation.ValidatePairingCode(code); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	pairing, err := h.authService.LookupPairingCode(c.Request.Context(), code)
	if err != nil {
		c.Error(apperrors.NewNotFoundError("pairing code"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":       pairing.Code,
		"used":       pairing.Used,
		"device_id":  pairing.DeviceID,
		"expires_at": pairing.ExpiresAt,
	})
}
