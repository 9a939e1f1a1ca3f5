package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

// ListTransactions returns the whole log ordered by date.
func (s *Service) ListTransactions(ctx context.Context, order string) ([]models.Transaction, error) {
	return s.store.ListTransactions(ctx, models.TransactionFilter{Sort: models.ParseSortOrder(order)})
}

// FilterTransactions returns the transactions matching type, date range and product.
func (s *Service) FilterTransactions(ctx context.Context, query models.FilterQuery) ([]models.Transaction, error) {
	filter, err := models.NewTransactionFilter(query)
	if err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, filter)
}

// DeleteTransactions removes the given transactions and reverses their effect on the
// ledger. It fails with *models.InsufficientStockError when removing a purchase would
// leave a product with negative stock.
func (s *Service) DeleteTransactions(ctx context.Context, rawIDs []string) (*models.DeleteResult, error) {
	if len(rawIDs) == 0 {
		return nil, models.NewValidationError("ids", "must contain at least one identifier")
	}

	ids := make([]primitive.ObjectID, 0, len(rawIDs))
	seen := make(map[primitive.ObjectID]struct{}, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := models.ParseID(raw)
		if err != nil {
			return nil, models.NewValidationError("ids", fmt.Sprintf("contains an invalid identifier %q", raw))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	txs, err := s.store.FindTransactions(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, fmt.Errorf("no transactions found to delete: %w", models.ErrNotFound)
	}

	txs, deleted, err := s.deleteLocked(ctx, ids, productsOf(txs))
	if err != nil {
		return nil, err
	}

	hexIDs := make([]string, 0, len(txs))
	for _, tx := range txs {
		hexIDs = append(hexIDs, tx.ID.Hex())
	}
	s.logger.Info("transactions deleted", zap.Int64("count", deleted), zap.Strings("ids", hexIDs))
	s.publish(ctx, models.TransactionEvent{
		Type:      models.EventTransactionsDeleted,
		IDs:       hexIDs,
		Timestamp: s.now().UTC(),
	})

	return &models.DeleteResult{
		Message:      fmt.Sprintf("Successfully deleted %d transaction(s).", deleted),
		DeletedCount: deleted,
	}, nil
}

// deleteLocked removes the transactions while holding the locks of products and
// returns the records it actually removed.
func (s *Service) deleteLocked(ctx context.Context, ids []primitive.ObjectID, products []string) ([]models.Transaction, int64, error) {
	unlock := s.locks.LockAll(products)
	defer unlock()

	// another request may have removed some of them before we got the locks
	txs, err := s.store.FindTransactions(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	if len(txs) == 0 {
		return nil, 0, fmt.Errorf("no transactions found to delete: %w", models.ErrNotFound)
	}

	effects := make(map[string]int)
	for _, tx := range txs {
		effects[tx.Product] += tx.Delta()
	}
	for _, product := range productsOf(txs) {
		onHand, err := s.onHand(ctx, product)
		if err != nil {
			return nil, 0, err
		}
		if onHand-effects[product] < 0 {
			return nil, 0, &models.InsufficientStockError{Product: product, Available: onHand, Requested: effects[product]}
		}
	}

	deleted, err := s.store.DeleteTransactions(ctx, txs)
	if err != nil {
		return nil, 0, fmt.Errorf("delete transactions: %w", err)
	}
	return txs, deleted, nil
}

// Totals returns the value of all sales and all purchases, rounded to cents.
func (s *Service) Totals(ctx context.Context) (models.Totals, error) {
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return models.Totals{}, err
	}
	return models.Totals{
		TotalSales:     roundCents(totals.TotalSales),
		TotalPurchases: roundCents(totals.TotalPurchases),
	}, nil
}

// Level derives the stock position of a product from the transaction log alone.
func (s *Service) Level(ctx context.Context, product string) (models.StockLevel, error) {
	level, err := s.store.StockLevel(ctx, product)
	if errors.Is(err, models.ErrNotFound) {
		return models.StockLevel{Product: product}, nil
	}
	return level, err
}

// Availability reports the derived stock of a product. The signed balance is kept for
// auditing while AvailableStock never drops below zero.
func (s *Service) Availability(ctx context.Context, product string) (*models.Availability, error) {
	name := models.NormalizeProductName(product)
	if name == "" {
		return nil, models.NewValidationError("product", "is required")
	}

	level, err := s.Level(ctx, name)
	if err != nil {
		return nil, err
	}

	available := max(level.Balance(), 0)
	result := &models.Availability{
		Product:        name,
		AvailableStock: available,
		Balance:        level.Balance(),
		Purchased:      level.Purchased,
		Sold:           level.Sold,
		Message:        "Stock available",
	}
	if available < s.threshold {
		result.LowStock = true
		result.Message = fmt.Sprintf("Low stock! Only %d left.", available)
	}
	return result, nil
}

func productsOf(txs []models.Transaction) []string {
	seen := make(map[string]struct{}, len(txs))
	products := make([]string, 0, len(txs))
	for _, tx := range txs {
		if _, ok := seen[tx.Product]; ok {
			continue
		}
		seen[tx.Product] = struct{}{}
		products = append(products, tx.Product)
	}
	sort.Strings(products)
	return products
}
