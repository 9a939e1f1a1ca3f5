package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

// saleTypes matches sales stored with either spelling.
var saleTypes = bson.A{string(models.TransactionSale), models.LegacySaleLiteral}

// ListTransactions pushes the filter down to the database and returns the matches
// ordered by date.
func (r *Repository) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	direction := -1
	if filter.Sort == models.SortOldest {
		direction = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: direction}, {Key: "_id", Value: direction}})

	cursor, err := r.transactions.Find(ctx, transactionQuery(filter), opts)
	if err != nil {
		return nil, models.StorageError("find transactions", err)
	}
	return decodeTransactions(ctx, cursor)
}

func (r *Repository) FindTransactions(ctx context.Context, ids []primitive.ObjectID) ([]models.Transaction, error) {
	cursor, err := r.transactions.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, models.StorageError("find transactions", err)
	}
	return decodeTransactions(ctx, cursor)
}

// StockLevel derives one product's position from the log. ErrNotFound means no
// transaction mentions the product.
func (r *Repository) StockLevel(ctx context.Context, product string) (models.StockLevel, error) {
	levels, err := r.stockLevels(ctx, bson.M{"product": product})
	if err != nil {
		return models.StockLevel{}, err
	}
	if len(levels) == 0 {
		return models.StockLevel{}, models.ErrNotFound
	}
	return levels[0], nil
}

func (r *Repository) StockLevels(ctx context.Context) ([]models.StockLevel, error) {
	return r.stockLevels(ctx, bson.M{})
}

func (r *Repository) stockLevels(ctx context.Context, match bson.M) ([]models.StockLevel, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$product"},
			{Key: "purchased", Value: sumWhen(isPurchase(), "$quantity")},
			{Key: "sold", Value: sumWhen(isSale(), "$quantity")},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := r.transactions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, models.StorageError("aggregate stock levels", err)
	}
	defer cursor.Close(ctx)

	levels := make([]models.StockLevel, 0)
	if err := cursor.All(ctx, &levels); err != nil {
		return nil, models.StorageError("decode stock levels", err)
	}
	return levels, nil
}

// Totals sums the price of all sales and all purchases.
func (r *Repository) Totals(ctx context.Context) (models.Totals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total_sales", Value: sumWhen(isSale(), "$price")},
			{Key: "total_purchases", Value: sumWhen(isPurchase(), "$price")},
		}}},
	}

	cursor, err := r.transactions.Aggregate(ctx, pipeline)
	if err != nil {
		return models.Totals{}, models.StorageError("aggregate totals", err)
	}
	defer cursor.Close(ctx)

	var totals models.Totals
	if cursor.Next(ctx) {
		if err := cursor.Decode(&totals); err != nil {
			return models.Totals{}, models.StorageError("decode totals", err)
		}
	}
	if err := cursor.Err(); err != nil {
		return models.Totals{}, models.StorageError("aggregate totals", err)
	}
	return totals, nil
}

func transactionQuery(filter models.TransactionFilter) bson.M {
	query := bson.M{}
	switch filter.Type {
	case models.TransactionSale:
		query["type"] = bson.M{"$in": saleTypes}
	case models.TransactionPurchase:
		query["type"] = string(models.TransactionPurchase)
	}

	if filter.From != nil || filter.To != nil {
		date := bson.M{}
		if filter.From != nil {
			date["$gte"] = *filter.From
		}
		if filter.To != nil {
			date["$lte"] = *filter.To
		}
		query["date"] = date
	}

	if pattern := filter.ProductPattern(); pattern != "" {
		query["product"] = primitive.Regex{Pattern: pattern, Options: "i"}
	}
	return query
}

func decodeTransactions(ctx context.Context, cursor *mongo.Cursor) ([]models.Transaction, error) {
	defer cursor.Close(ctx)

	txs := make([]models.Transaction, 0)
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, models.StorageError("decode transactions", err)
	}
	for i := range txs {
		if string(txs[i].Type) == models.LegacySaleLiteral {
			txs[i].Type = models.TransactionSale
		}
	}
	return txs, nil
}

func isPurchase() bson.D {
	return bson.D{{Key: "$eq", Value: bson.A{"$type", string(models.TransactionPurchase)}}}
}

func isSale() bson.D {
	return bson.D{{Key: "$in", Value: bson.A{"$type", saleTypes}}}
}

func sumWhen(cond bson.D, field string) bson.D {
	return bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{cond, field, 0}}}}}
}
