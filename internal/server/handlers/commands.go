package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
	"github.com/mamadbah2/inventory/internal/service/commands"
)

// CommandHandler accepts typed or transcribed commands such as "sell 3 sugar for 30".
type CommandHandler struct {
	dispatcher commands.Dispatcher
	logger     *zap.Logger
}

// NewCommandHandler creates a new handler instance.
func NewCommandHandler(dispatcher commands.Dispatcher, logger *zap.Logger) *CommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{dispatcher: dispatcher, logger: logger}
}

func (h *CommandHandler) Execute(c *gin.Context) {
	var req models.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, h.logger, models.NewValidationError("text", "is required"))
		return
	}

	result, err := h.dispatcher.Execute(c.Request.Context(), req.Text)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
