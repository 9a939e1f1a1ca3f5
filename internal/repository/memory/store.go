package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

var now = func() time.Time { return time.Now().UTC() }

// Store keeps items, transactions and reports in process memory. Every mutation holds
// the write lock for its whole duration, which makes ledger updates trivially atomic.
type Store struct {
	mu           sync.RWMutex
	items        map[primitive.ObjectID]*models.Item
	byName       map[string]primitive.ObjectID
	transactions map[primitive.ObjectID]*models.Transaction
	reports      []models.StockReport
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		items:        make(map[primitive.ObjectID]*models.Item),
		byName:       make(map[string]primitive.ObjectID),
		transactions: make(map[primitive.ObjectID]*models.Transaction),
	}
}

// CreateItem inserts the item and its opening purchase, if any.
func (s *Store) CreateItem(_ context.Context, item *models.Item, opening *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[item.Name]; taken {
		return models.ErrConflict
	}

	item.ID = primitive.NewObjectID()
	stored := *item
	s.items[item.ID] = &stored
	s.byName[item.Name] = item.ID

	if opening != nil {
		opening.ID = primitive.NewObjectID()
		tx := *opening
		s.transactions[opening.ID] = &tx
	}
	return nil
}

// ListItems returns all items sorted by name.
func (s *Store) ListItems(_ context.Context) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (s *Store) FindItemByID(_ context.Context, id primitive.ObjectID) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (s *Store) FindItemByName(_ context.Context, name string) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[name]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *s.items[id]
	return &clone, nil
}

func (s *Store) UpdateItem(_ context.Context, id primitive.ObjectID, changes models.ItemChanges) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if changes.Description != nil {
		item.Description = *changes.Description
	}
	if changes.Price != nil {
		item.Price = *changes.Price
	}
	item.UpdatedAt = now()
	clone := *item
	return &clone, nil
}

func (s *Store) DeleteItem(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return models.ErrNotFound
	}
	if item.Quantity != 0 {
		return models.ErrConflict
	}
	delete(s.byName, item.Name)
	delete(s.items, id)
	return nil
}

// SetItemQuantity overwrites the ledger quantity of a product, creating the item when
// only the transaction log knew about it.
func (s *Store) SetItemQuantity(_ context.Context, name string, quantity int) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.itemLocked(name)
	item.Quantity = quantity
	item.UpdatedAt = now()
	clone := *item
	return &clone, nil
}

// ApplyTransaction moves the ledger and appends the transaction in one step.
func (s *Store) ApplyTransaction(_ context.Context, tx *models.Transaction) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.Type == models.TransactionSale {
		available := 0
		if id, ok := s.byName[tx.Product]; ok {
			available = s.items[id].Quantity
		}
		if available < tx.Quantity {
			return nil, &models.InsufficientStockError{Product: tx.Product, Available: available, Requested: tx.Quantity}
		}
	}

	item := s.itemLocked(tx.Product)
	item.Quantity += tx.Delta()
	item.UpdatedAt = now()

	tx.ID = primitive.NewObjectID()
	stored := *tx
	s.transactions[tx.ID] = &stored

	clone := *item
	return &clone, nil
}

// ListTransactions returns the transactions matching filter ordered by date.
func (s *Store) ListTransactions(_ context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	match := filter.Matcher()
	txs := make([]models.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		if match(*tx) {
			txs = append(txs, *tx)
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Date.Equal(txs[j].Date) {
			if filter.Sort == models.SortOldest {
				return txs[i].ID.Hex() < txs[j].ID.Hex()
			}
			return txs[i].ID.Hex() > txs[j].ID.Hex()
		}
		if filter.Sort == models.SortOldest {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].Date.After(txs[j].Date)
	})
	return txs, nil
}

func (s *Store) FindTransactions(_ context.Context, ids []primitive.ObjectID) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]models.Transaction, 0, len(ids))
	for _, id := range ids {
		if tx, ok := s.transactions[id]; ok {
			txs = append(txs, *tx)
		}
	}
	return txs, nil
}

// DeleteTransactions removes the transactions and reverses their ledger effect. Nothing
// changes when a reversal would leave a product negative.
func (s *Store) DeleteTransactions(_ context.Context, txs []models.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	effects := make(map[string]int)
	present := make([]*models.Transaction, 0, len(txs))
	for _, tx := range txs {
		stored, ok := s.transactions[tx.ID]
		if !ok {
			continue
		}
		present = append(present, stored)
		effects[stored.Product] += stored.Delta()
	}

	for product, effect := range effects {
		onHand := 0
		if id, ok := s.byName[product]; ok {
			onHand = s.items[id].Quantity
		}
		if onHand-effect < 0 {
			return 0, &models.InsufficientStockError{Product: product, Available: onHand, Requested: effect}
		}
	}

	for product, effect := range effects {
		if id, ok := s.byName[product]; ok {
			s.items[id].Quantity -= effect
			s.items[id].UpdatedAt = now()
		}
	}
	for _, tx := range present {
		delete(s.transactions, tx.ID)
	}
	return int64(len(present)), nil
}

// StockLevel derives a product's position from the log. ErrNotFound means the log has
// no entry for it.
func (s *Store) StockLevel(_ context.Context, product string) (models.StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	level, ok := s.levelsLocked()[product]
	if !ok {
		return models.StockLevel{}, models.ErrNotFound
	}
	return *level, nil
}

func (s *Store) StockLevels(_ context.Context) ([]models.StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	levels := make([]models.StockLevel, 0)
	for _, level := range s.levelsLocked() {
		levels = append(levels, *level)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Product < levels[j].Product })
	return levels, nil
}

func (s *Store) Totals(_ context.Context) (models.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals models.Totals
	for _, tx := range s.transactions {
		switch tx.Type {
		case models.TransactionSale:
			totals.TotalSales += tx.Price
		case models.TransactionPurchase:
			totals.TotalPurchases += tx.Price
		}
	}
	return totals, nil
}

// SaveStockReport keeps a copy of the report.
func (s *Store) SaveStockReport(_ context.Context, report *models.StockReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports = append(s.reports, *report)
	return nil
}

// Reports returns the saved reports, oldest first.
func (s *Store) Reports() []models.StockReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.StockReport(nil), s.reports...)
}

// itemLocked returns the stored item for name, creating an empty one if needed. The
// caller must hold the write lock.
func (s *Store) itemLocked(name string) *models.Item {
	if id, ok := s.byName[name]; ok {
		return s.items[id]
	}
	ts := now()
	item := &models.Item{ID: primitive.NewObjectID(), Name: name, CreatedAt: ts, UpdatedAt: ts}
	s.items[item.ID] = item
	s.byName[name] = item.ID
	return item
}

func (s *Store) levelsLocked() map[string]*models.StockLevel {
	levels := make(map[string]*models.StockLevel)
	for _, tx := range s.transactions {
		level, ok := levels[tx.Product]
		if !ok {
			level = &models.StockLevel{Product: tx.Product}
			levels[tx.Product] = level
		}
		switch tx.Type {
		case models.TransactionPurchase:
			level.Purchased += tx.Quantity
		case models.TransactionSale:
			level.Sold += tx.Quantity
		}
	}
	return levels
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op; the data lives as long as the process.
func (s *Store) Close(context.Context) error { return nil }
