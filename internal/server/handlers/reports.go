package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

// ReportSource builds a report without side effects.
type ReportSource interface {
	Report(ctx context.Context) (*models.StockReport, error)
}

// ReportGenerator persists and distributes reports and reconciles the ledger.
type ReportGenerator interface {
	GenerateStockReport(ctx context.Context) (*models.StockReport, error)
	RunReconcile(ctx context.Context, fix bool) ([]models.Drift, error)
}

// ReconcileResponse lists the products whose ledger disagreed with the log.
type ReconcileResponse struct {
	Fix   bool           `json:"fix"`
	Drift []models.Drift `json:"drift"`
}

// ReportHandler serves stock reports and the reconciliation routine.
type ReportHandler struct {
	source    ReportSource
	generator ReportGenerator
	logger    *zap.Logger
}

// NewReportHandler creates a new handler instance.
func NewReportHandler(source ReportSource, generator ReportGenerator, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{source: source, generator: generator, logger: logger}
}

// Stock returns a fresh report without saving it.
func (h *ReportHandler) Stock(c *gin.Context) {
	report, err := h.source.Report(c.Request.Context())
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Generate builds a report, saves it and sends it to the configured outputs.
func (h *ReportHandler) Generate(c *gin.Context) {
	report, err := h.generator.GenerateStockReport(c.Request.Context())
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// Reconcile handles POST /reconcile?fix=true.
func (h *ReportHandler) Reconcile(c *gin.Context) {
	fix := false
	if raw := c.Query("fix"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(c, h.logger, models.NewValidationError("fix", "must be true or false"))
			return
		}
		fix = parsed
	}

	drift, err := h.generator.RunReconcile(c.Request.Context(), fix)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	if drift == nil {
		drift = []models.Drift{}
	}
	c.JSON(http.StatusOK, ReconcileResponse{Fix: fix, Drift: drift})
}
