package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
	"github.com/mamadbah2/inventory/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/inventory/pkg/clients/whatsapp"
)

// NotificationHandler sends operator messages through WhatsApp.
type NotificationHandler struct {
	svc    whatsapp.MessagingService
	logger *zap.Logger
}

// NewNotificationHandler creates a new handler instance.
func NewNotificationHandler(svc whatsapp.MessagingService, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{svc: svc, logger: logger}
}

// SendMessage allows sending manual notifications to an operator.
func (h *NotificationHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid outbound payload", zap.Error(err))
		WriteError(c, h.logger, models.NewValidationError("", "to and message are required"))
		return
	}

	if err := h.svc.SendOutbound(c.Request.Context(), req); err != nil {
		if errors.Is(err, whatsapp.ErrDisabled) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Kind: KindUnavailable})
			return
		}
		if errors.Is(err, whatsappclient.ErrInvalidMessage) {
			WriteError(c, h.logger, models.NewValidationError("", err.Error()))
			return
		}
		h.logger.Error("failed sending outbound", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, ErrorResponse{Error: "unable to send message", Kind: KindUpstream})
		return
	}

	c.Status(http.StatusAccepted)
}
