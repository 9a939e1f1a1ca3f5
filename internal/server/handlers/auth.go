package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
	"github.com/mamadbah2/inventory/internal/service/auth"
)

// AuthHandler issues access tokens.
type AuthHandler struct {
	auth   auth.Authenticator
	logger *zap.Logger
}

// NewAuthHandler creates a new handler instance.
func NewAuthHandler(authenticator auth.Authenticator, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: authenticator, logger: logger}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, h.logger, models.NewValidationError("", "username and password are required"))
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.logger.Warn("login rejected", zap.String("username", req.Username), zap.String("client_ip", c.ClientIP()))
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, token)
}
