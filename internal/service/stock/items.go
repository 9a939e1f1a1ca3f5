package stock

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

// CreateItem registers a new product. A non-zero opening quantity is recorded as a
// purchase worth quantity x price so the transaction log accounts for it.
func (s *Service) CreateItem(ctx context.Context, req models.CreateItemRequest) (*models.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	name := models.NormalizeProductName(req.Name)
	now := s.now().UTC()
	item := &models.Item{
		Name:        name,
		Description: req.Description,
		Quantity:    *req.Quantity,
		Price:       roundCents(*req.Price),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var opening *models.Transaction
	if item.Quantity > 0 {
		opening = &models.Transaction{
			Product:   name,
			Quantity:  item.Quantity,
			Price:     roundCents(item.Price * float64(item.Quantity)),
			Type:      models.TransactionPurchase,
			Date:      now,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	unlock := s.locks.Lock(name)
	err := s.store.CreateItem(ctx, item, opening)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("create item %s: %w", name, err)
	}

	s.logger.Info("item created", zap.String("name", name), zap.Int("quantity", item.Quantity))
	if opening != nil {
		s.publish(ctx, models.TransactionEvent{
			Type:        models.EventTransactionRecorded,
			Product:     name,
			Transaction: opening,
			StockOnHand: item.Quantity,
			Timestamp:   now,
		})
	}
	return item, nil
}

// ListItems returns every item of the ledger.
func (s *Service) ListItems(ctx context.Context) ([]models.Item, error) {
	return s.store.ListItems(ctx)
}

// GetItem looks an item up by identifier.
func (s *Service) GetItem(ctx context.Context, id string) (*models.Item, error) {
	oid, err := itemID(id)
	if err != nil {
		return nil, err
	}
	return s.store.FindItemByID(ctx, oid)
}

// UpdateItem changes the description or the list price of an item. Names are fixed
// once created because transactions reference products by name. A new quantity is
// reached by recording a zero-priced purchase or sale for the difference.
func (s *Service) UpdateItem(ctx context.Context, id string, req models.UpdateItemRequest) (*models.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	oid, err := itemID(id)
	if err != nil {
		return nil, err
	}

	current, err := s.store.FindItemByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && models.NormalizeProductName(*req.Name) != current.Name {
		return nil, models.NewValidationError("name", "cannot be changed once the item exists")
	}

	updated, correction, err := s.updateLocked(ctx, current, req)
	if err != nil {
		return nil, err
	}
	if correction != nil {
		s.publish(ctx, *correction)
	}

	s.logger.Info("item updated", zap.String("name", updated.Name), zap.Int("quantity", updated.Quantity))
	return updated, nil
}

// updateLocked applies the changes under the product lock and returns the event of the
// quantity correction, if any, for the caller to publish once the lock is released.
func (s *Service) updateLocked(ctx context.Context, current *models.Item, req models.UpdateItemRequest) (*models.Item, *models.TransactionEvent, error) {
	unlock := s.locks.Lock(current.Name)
	defer unlock()

	var (
		correction *models.TransactionEvent
		err        error
	)
	if req.Quantity != nil {
		// re-read under the lock, a sale may have landed in between
		current, err = s.store.FindItemByID(ctx, current.ID)
		if err != nil {
			return nil, nil, err
		}
		correction, err = s.correctQuantity(ctx, current, *req.Quantity)
		if err != nil {
			return nil, nil, err
		}
	}

	updated, err := s.store.UpdateItem(ctx, current.ID, models.ItemChanges{Description: req.Description, Price: roundedPtr(req.Price)})
	if err != nil {
		return nil, nil, fmt.Errorf("update item %s: %w", current.Name, err)
	}
	return updated, correction, nil
}

func (s *Service) correctQuantity(ctx context.Context, item *models.Item, target int) (*models.TransactionEvent, error) {
	delta := target - item.Quantity
	if delta == 0 {
		return nil, nil
	}

	now := s.now().UTC()
	tx := &models.Transaction{
		Product:   item.Name,
		Quantity:  delta,
		Type:      models.TransactionPurchase,
		Date:      now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if delta < 0 {
		tx.Quantity = -delta
		tx.Type = models.TransactionSale
	}

	applied, err := s.apply(ctx, tx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock corrected", zap.String("name", item.Name), zap.Int("from", item.Quantity), zap.Int("to", applied.Quantity))
	return &models.TransactionEvent{
		Type:        models.EventTransactionRecorded,
		Product:     item.Name,
		Transaction: tx,
		StockOnHand: applied.Quantity,
		Timestamp:   now,
	}, nil
}

// DeleteItem removes an item that no longer holds stock. Its transactions stay in the
// log, so the ledger quantity and the derived balance must both be zero; otherwise the
// delete fails with models.ErrConflict until the stock is sold or corrected away.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	oid, err := itemID(id)
	if err != nil {
		return err
	}
	item, err := s.store.FindItemByID(ctx, oid)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(item.Name)
	defer unlock()

	item, err = s.store.FindItemByID(ctx, oid)
	if err != nil {
		return err
	}
	level, err := s.Level(ctx, item.Name)
	if err != nil {
		return err
	}
	if item.Quantity != 0 || level.Balance() != 0 {
		return fmt.Errorf("item %s still holds stock (ledger %d, log %d): %w",
			item.Name, item.Quantity, level.Balance(), models.ErrConflict)
	}

	if err := s.store.DeleteItem(ctx, oid); err != nil {
		return fmt.Errorf("delete item %s: %w", item.Name, err)
	}
	s.logger.Info("item deleted", zap.String("id", id), zap.String("name", item.Name))
	return nil
}

// itemID treats malformed identifiers as unknown items.
func itemID(id string) (primitive.ObjectID, error) {
	oid, err := models.ParseID(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("item %q: %w", id, models.ErrNotFound)
	}
	return oid, nil
}

func roundedPtr(value *float64) *float64 {
	if value == nil {
		return nil
	}
	rounded := roundCents(*value)
	return &rounded
}
