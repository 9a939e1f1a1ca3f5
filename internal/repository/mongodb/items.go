package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

// CreateItem inserts the item and its opening purchase together.
func (r *Repository) CreateItem(ctx context.Context, item *models.Item, opening *models.Transaction) error {
	return r.atomically(ctx, func(ctx context.Context) error {
		item.ID = primitive.NewObjectID()
		if _, err := r.items.InsertOne(ctx, item); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return models.ErrConflict
			}
			return models.StorageError("insert item", err)
		}

		if opening == nil {
			return nil
		}
		opening.ID = primitive.NewObjectID()
		if _, err := r.transactions.InsertOne(ctx, opening); err != nil {
			if !r.useTransactions {
				r.undo(ctx, "remove item", func(ctx context.Context) error {
					_, err := r.items.DeleteOne(ctx, bson.M{"_id": item.ID})
					return err
				})
			}
			return models.StorageError("insert opening transaction", err)
		}
		return nil
	})
}

func (r *Repository) ListItems(ctx context.Context) ([]models.Item, error) {
	cursor, err := r.items.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, models.StorageError("find items", err)
	}
	defer cursor.Close(ctx)

	items := make([]models.Item, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, models.StorageError("decode items", err)
	}
	return items, nil
}

func (r *Repository) FindItemByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error) {
	return r.findItem(ctx, bson.M{"_id": id})
}

func (r *Repository) FindItemByName(ctx context.Context, name string) (*models.Item, error) {
	return r.findItem(ctx, bson.M{"name": name})
}

func (r *Repository) findItem(ctx context.Context, filter bson.M) (*models.Item, error) {
	var item models.Item
	err := r.items.FindOne(ctx, filter).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.StorageError("find item", err)
	}
	return &item, nil
}

func (r *Repository) UpdateItem(ctx context.Context, id primitive.ObjectID, changes models.ItemChanges) (*models.Item, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if changes.Description != nil {
		set["description"] = *changes.Description
	}
	if changes.Price != nil {
		set["price"] = *changes.Price
	}

	var item models.Item
	err := r.items.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.StorageError("update item", err)
	}
	return &item, nil
}

// DeleteItem removes the item only while its quantity is zero, so a concurrent
// purchase from another process cannot be lost.
func (r *Repository) DeleteItem(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.items.DeleteOne(ctx, bson.M{"_id": id, "quantity": 0})
	if err != nil {
		return models.StorageError("delete item", err)
	}
	if res.DeletedCount > 0 {
		return nil
	}
	if _, err := r.FindItemByID(ctx, id); err != nil {
		return err
	}
	return models.ErrConflict
}

// SetItemQuantity overwrites the ledger quantity, creating the item if only the log
// knows the product.
func (r *Repository) SetItemQuantity(ctx context.Context, name string, quantity int) (*models.Item, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{"quantity": quantity, "updated_at": now},
		"$setOnInsert": bson.M{"description": "", "price": 0.0, "created_at": now},
	}

	var item models.Item
	err := r.items.FindOneAndUpdate(ctx, bson.M{"name": name}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).Decode(&item)
	if err != nil {
		return nil, models.StorageError("set item quantity", err)
	}
	return &item, nil
}

// undo runs a compensating write outside the caller's deadline. Failures are logged
// since the original error is what the caller reports.
func (r *Repository) undo(ctx context.Context, what string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		r.logger.Error("compensating write failed, run a reconcile", zap.String("step", what), zap.Error(err))
	}
}
