package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

// DefaultLowStockThreshold is used when no positive threshold is configured.
const DefaultLowStockThreshold = 5

// Store is the persistence surface of the stock service.
//
// ApplyTransaction must adjust the item quantity and append the transaction as one
// atomic operation. A sale that would take the quantity below zero must be refused with
// *models.InsufficientStockError and leave no trace. DeleteTransactions must remove the
// records and reverse their effect on the item quantities atomically as well.
// DeleteItem only removes an item whose quantity is zero and reports
// models.ErrConflict otherwise.
type Store interface {
	CreateItem(ctx context.Context, item *models.Item, opening *models.Transaction) error
	ListItems(ctx context.Context) ([]models.Item, error)
	FindItemByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error)
	FindItemByName(ctx context.Context, name string) (*models.Item, error)
	UpdateItem(ctx context.Context, id primitive.ObjectID, changes models.ItemChanges) (*models.Item, error)
	DeleteItem(ctx context.Context, id primitive.ObjectID) error
	SetItemQuantity(ctx context.Context, name string, quantity int) (*models.Item, error)

	ApplyTransaction(ctx context.Context, tx *models.Transaction) (*models.Item, error)
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	FindTransactions(ctx context.Context, ids []primitive.ObjectID) ([]models.Transaction, error)
	DeleteTransactions(ctx context.Context, txs []models.Transaction) (int64, error)

	StockLevel(ctx context.Context, product string) (models.StockLevel, error)
	StockLevels(ctx context.Context) ([]models.StockLevel, error)
	Totals(ctx context.Context) (models.Totals, error)
}

// Publisher receives an event after every committed change to the transaction log.
type Publisher interface {
	PublishTransactionEvent(ctx context.Context, event models.TransactionEvent) error
}

// Manager is the set of stock operations exposed to the HTTP layer and the commands.
type Manager interface {
	CreateItem(ctx context.Context, req models.CreateItemRequest) (*models.Item, error)
	ListItems(ctx context.Context) ([]models.Item, error)
	GetItem(ctx context.Context, id string) (*models.Item, error)
	UpdateItem(ctx context.Context, id string, req models.UpdateItemRequest) (*models.Item, error)
	DeleteItem(ctx context.Context, id string) error

	RecordTransaction(ctx context.Context, req models.RecordTransactionRequest) (*models.RecordResult, error)
	ListTransactions(ctx context.Context, order string) ([]models.Transaction, error)
	FilterTransactions(ctx context.Context, query models.FilterQuery) ([]models.Transaction, error)
	DeleteTransactions(ctx context.Context, ids []string) (*models.DeleteResult, error)
	Totals(ctx context.Context) (models.Totals, error)
	Availability(ctx context.Context, product string) (*models.Availability, error)

	Reconcile(ctx context.Context, fix bool) ([]models.Drift, error)
	Report(ctx context.Context) (*models.StockReport, error)
}

// Service implements Manager on top of a Store.
type Service struct {
	store     Store
	publisher Publisher
	locks     *productLocks
	threshold int
	logger    *zap.Logger
	now       func() time.Time
}

var _ Manager = (*Service)(nil)

// NewService wires the stock service. A nil publisher disables events.
func NewService(store Store, publisher Publisher, lowStockThreshold int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &Service{
		store:     store,
		publisher: publisher,
		locks:     newProductLocks(),
		threshold: lowStockThreshold,
		logger:    logger,
		now:       time.Now,
	}
}

// LowStockThreshold is the quantity under which a product is reported as low.
func (s *Service) LowStockThreshold() int {
	return s.threshold
}

// RecordTransaction validates the request and records the movement. Validation happens
// in this order: required fields, transaction type, then available stock for sales.
func (s *Service) RecordTransaction(ctx context.Context, req models.RecordTransactionRequest) (*models.RecordResult, error) {
	tx, err := s.buildTransaction(req)
	if err != nil {
		s.logger.Debug("transaction rejected", zap.Error(err))
		return nil, err
	}

	// the event is published once the lock is released
	unlock := s.locks.Lock(tx.Product)
	item, err := s.apply(ctx, tx)
	unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction recorded",
		zap.String("product", tx.Product),
		zap.String("type", string(tx.Type)),
		zap.Int("quantity", tx.Quantity),
		zap.Float64("price", tx.Price),
		zap.Int("stock_on_hand", item.Quantity))

	s.publish(ctx, models.TransactionEvent{
		Type:        models.EventTransactionRecorded,
		Product:     tx.Product,
		Transaction: tx,
		StockOnHand: item.Quantity,
		Timestamp:   s.now().UTC(),
	})

	verb := "Purchase"
	if tx.Type == models.TransactionSale {
		verb = "Sale"
	}
	return &models.RecordResult{
		Message:     fmt.Sprintf("%s of %d %s recorded", verb, tx.Quantity, tx.Product),
		Transaction: *tx,
		Item:        *item,
	}, nil
}

// apply checks the ledger for sales and hands the movement to the store. The caller
// must hold the product lock.
func (s *Service) apply(ctx context.Context, tx *models.Transaction) (*models.Item, error) {
	if tx.Type == models.TransactionSale {
		available, err := s.onHand(ctx, tx.Product)
		if err != nil {
			return nil, err
		}
		if tx.Quantity > available {
			return nil, &models.InsufficientStockError{Product: tx.Product, Available: available, Requested: tx.Quantity}
		}
	}

	item, err := s.store.ApplyTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("apply %s of %s: %w", tx.Type, tx.Product, err)
	}
	return item, nil
}

// onHand is the ledger quantity of a product, zero when the product is unknown.
func (s *Service) onHand(ctx context.Context, product string) (int, error) {
	item, err := s.store.FindItemByName(ctx, product)
	if errors.Is(err, models.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load item %s: %w", product, err)
	}
	return item.Quantity, nil
}

func (s *Service) buildTransaction(req models.RecordTransactionRequest) (*models.Transaction, error) {
	product := models.NormalizeProductName(req.Product)
	switch {
	case product == "":
		return nil, models.NewValidationError("product", "is required")
	case req.Quantity == nil:
		return nil, models.NewValidationError("quantity", "is required")
	case *req.Quantity <= 0:
		return nil, models.NewValidationError("quantity", "must be a positive integer")
	case req.UnitPrice == nil && req.TotalPrice == nil:
		return nil, models.NewValidationError("price", "is required")
	}

	var total decimal.Decimal
	if req.TotalPrice != nil {
		if *req.TotalPrice < 0 {
			return nil, models.NewValidationError("price", "must not be negative")
		}
		total = decimal.NewFromFloat(*req.TotalPrice)
	} else {
		if *req.UnitPrice < 0 {
			return nil, models.NewValidationError("price", "must not be negative")
		}
		total = decimal.NewFromFloat(*req.UnitPrice).Mul(decimal.NewFromInt(int64(*req.Quantity)))
	}

	txType, err := models.ParseTransactionType(req.Type)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	date := now
	if strings.TrimSpace(req.Date) != "" {
		parsed, _, err := models.ParseDate(req.Date)
		if err != nil {
			return nil, models.NewValidationError("date", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		date = parsed
	}

	return &models.Transaction{
		Product:   product,
		Quantity:  *req.Quantity,
		Price:     total.Round(2).InexactFloat64(),
		Type:      txType,
		Date:      date,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Service) publish(ctx context.Context, event models.TransactionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish transaction event", zap.String("event", event.Type), zap.Error(err))
	}
}

func roundCents(value float64) float64 {
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}
