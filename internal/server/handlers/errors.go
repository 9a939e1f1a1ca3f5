package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

// Error kinds reported in the "kind" field of error responses.
const (
	KindValidation        = "ValidationError"
	KindAuth              = "AuthError"
	KindNotFound          = "NotFoundError"
	KindConflict          = "ConflictError"
	KindInsufficientStock = "InsufficientStockError"
	KindStorage           = "StorageError"
	KindUnavailable       = "UnavailableError"
	KindUpstream          = "UpstreamError"
	KindInternal          = "InternalError"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Kind    string         `json:"kind"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteError maps err onto a status code and aborts the request with an
// ErrorResponse. Server-side failures are logged with their cause, which is never sent
// to the client.
func WriteError(c *gin.Context, logger *zap.Logger, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

// ErrorWriter binds WriteError to a logger, for use by middleware.
func ErrorWriter(logger *zap.Logger) func(c *gin.Context, err error) {
	return func(c *gin.Context, err error) {
		WriteError(c, logger, err)
	}
}

func classify(err error) (int, ErrorResponse) {
	var (
		validation *models.ValidationError
		shortage   *models.InsufficientStockError
	)

	switch {
	case errors.As(err, &validation):
		body := ErrorResponse{Error: validation.Error(), Kind: KindValidation}
		if validation.Field != "" {
			body.Details = map[string]any{"field": validation.Field}
		}
		return http.StatusBadRequest, body
	case errors.As(err, &shortage):
		return http.StatusConflict, ErrorResponse{
			Error: shortage.Error(),
			Kind:  KindInsufficientStock,
			Details: map[string]any{
				"product":   shortage.Product,
				"available": shortage.Available,
				"requested": shortage.Requested,
			},
		}
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error(), Kind: KindNotFound}
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Kind: KindConflict}
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Kind: KindAuth}
	case errors.Is(err, models.ErrInvalidToken):
		return http.StatusForbidden, ErrorResponse{Error: models.ErrInvalidToken.Error(), Kind: KindAuth}
	case errors.Is(err, models.ErrStorage):
		return http.StatusInternalServerError, ErrorResponse{Error: "internal storage error", Kind: KindStorage}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Kind: KindInternal}
	}
}

// invalidBody reports a request body or query that could not be decoded.
func invalidBody(err error) error {
	return &models.ValidationError{Message: "invalid request payload: " + err.Error()}
}
