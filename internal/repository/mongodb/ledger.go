package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

// ApplyTransaction moves the item quantity and appends tx to the log. The quantity of
// a sale is taken with a conditional update so it can never go below zero.
func (r *Repository) ApplyTransaction(ctx context.Context, tx *models.Transaction) (*models.Item, error) {
	var item *models.Item
	err := r.atomically(ctx, func(ctx context.Context) error {
		moved, err := r.moveStock(ctx, tx.Product, tx.Delta())
		if err != nil {
			return err
		}

		tx.ID = primitive.NewObjectID()
		if _, err := r.transactions.InsertOne(ctx, tx); err != nil {
			if !r.useTransactions {
				r.undo(ctx, "revert stock move", func(ctx context.Context) error {
					_, err := r.moveStock(ctx, tx.Product, -tx.Delta())
					return err
				})
			}
			return models.StorageError("insert transaction", err)
		}

		item = moved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteTransactions removes each transaction and reverses its effect on the item.
// Removing a purchase whose stock has already been sold fails with
// *models.InsufficientStockError.
func (r *Repository) DeleteTransactions(ctx context.Context, txs []models.Transaction) (int64, error) {
	var deleted int64
	err := r.atomically(ctx, func(ctx context.Context) error {
		deleted = 0
		done := make([]models.Transaction, 0, len(txs))

		for _, tx := range txs {
			res, err := r.transactions.DeleteOne(ctx, bson.M{"_id": tx.ID})
			if err != nil {
				r.restore(ctx, done, nil)
				return models.StorageError("delete transaction", err)
			}
			if res.DeletedCount == 0 {
				continue
			}

			if _, err := r.moveStock(ctx, tx.Product, -tx.Delta()); err != nil {
				r.restore(ctx, done, &tx)
				return err
			}
			done = append(done, tx)
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// restore puts deleted transactions back when transactions are disabled. pending was
// deleted but its stock was never moved.
func (r *Repository) restore(ctx context.Context, done []models.Transaction, pending *models.Transaction) {
	if r.useTransactions {
		return
	}
	for _, tx := range done {
		r.undo(ctx, "reapply stock move", func(ctx context.Context) error {
			_, err := r.moveStock(ctx, tx.Product, tx.Delta())
			return err
		})
		r.undo(ctx, "reinsert transaction", func(ctx context.Context) error {
			_, err := r.transactions.InsertOne(ctx, tx)
			return err
		})
	}
	if pending != nil {
		r.undo(ctx, "reinsert transaction", func(ctx context.Context) error {
			_, err := r.transactions.InsertOne(ctx, pending)
			return err
		})
	}
}

// moveStock adds delta to the quantity of product and returns the updated item.
// Increments create the item when missing; decrements only match when enough is left.
func (r *Repository) moveStock(ctx context.Context, product string, delta int) (*models.Item, error) {
	now := time.Now().UTC()
	filter := bson.M{"name": product}
	update := bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": bson.M{"updated_at": now},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	} else {
		update["$setOnInsert"] = bson.M{"description": "", "price": 0.0, "created_at": now}
		opts.SetUpsert(true)
	}

	var item models.Item
	err := r.items.FindOneAndUpdate(ctx, filter, update, opts).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		available := 0
		current, findErr := r.FindItemByName(ctx, product)
		switch {
		case findErr == nil:
			available = current.Quantity
		case !errors.Is(findErr, models.ErrNotFound):
			return nil, findErr
		}
		return nil, &models.InsufficientStockError{Product: product, Available: available, Requested: -delta}
	}
	if err != nil {
		return nil, models.StorageError("move stock", err)
	}
	return &item, nil
}
