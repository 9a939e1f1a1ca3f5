package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
	"github.com/mamadbah2/inventory/internal/service/stock"
)

// TransactionHandler records and queries stock movements.
type TransactionHandler struct {
	svc    stock.Manager
	logger *zap.Logger
}

// NewTransactionHandler creates a new handler instance.
func NewTransactionHandler(svc stock.Manager, logger *zap.Logger) *TransactionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionHandler{svc: svc, logger: logger}
}

// transactionPayload is the body of both recording endpoints. Missing numbers stay nil
// so the recorder can tell them apart from zero.
type transactionPayload struct {
	Product  string   `json:"product"`
	Quantity *int     `json:"quantity"`
	Price    *float64 `json:"price"`
	Type     string   `json:"type"`
	Date     string   `json:"date"`
}

type deleteTransactionsRequest struct {
	IDs []string `json:"ids"`
}

// Record handles POST /transactions, where price is the price of one unit.
func (h *TransactionHandler) Record(c *gin.Context) {
	h.record(c, false)
}

// RecordTotal handles POST /addItem, where price is the total of the movement.
func (h *TransactionHandler) RecordTotal(c *gin.Context) {
	h.record(c, true)
}

func (h *TransactionHandler) record(c *gin.Context, total bool) {
	var body transactionPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		WriteError(c, h.logger, invalidBody(err))
		return
	}

	req := models.RecordTransactionRequest{
		Product:  body.Product,
		Quantity: body.Quantity,
		Type:     body.Type,
		Date:     body.Date,
	}
	if total {
		req.TotalPrice = body.Price
	} else {
		req.UnitPrice = body.Price
	}

	result, err := h.svc.RecordTransaction(c.Request.Context(), req)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// List returns the whole log, newest first unless sort=oldest.
func (h *TransactionHandler) List(c *gin.Context) {
	txs, err := h.svc.ListTransactions(c.Request.Context(), c.Query("sort"))
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h *TransactionHandler) Filter(c *gin.Context) {
	var query models.FilterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		WriteError(c, h.logger, invalidBody(err))
		return
	}

	txs, err := h.svc.FilterTransactions(c.Request.Context(), query)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h *TransactionHandler) DeleteMany(c *gin.Context) {
	var req deleteTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, h.logger, invalidBody(err))
		return
	}

	result, err := h.svc.DeleteTransactions(c.Request.Context(), req.IDs)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *TransactionHandler) Totals(c *gin.Context) {
	totals, err := h.svc.Totals(c.Request.Context())
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

// Availability handles GET /product-availability?product=NAME.
func (h *TransactionHandler) Availability(c *gin.Context) {
	availability, err := h.svc.Availability(c.Request.Context(), c.Query("product"))
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, availability)
}
