package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/mamadbah2/inventory/internal/domain/models"
	"github.com/mamadbah2/inventory/internal/service/stock"
)

var _ stock.Store = (*Repository)(nil)

const (
	itemsNS        = "inventoryDB.items"
	transactionsNS = "inventoryDB.transactions"
)

func itemDoc(id primitive.ObjectID, name string, quantity int) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "description", Value: ""},
		{Key: "quantity", Value: quantity},
		{Key: "price", Value: 0.0},
	}
}

func TestRepositoryItems(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("find by name", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, itemsNS, mtest.FirstBatch, itemDoc(id, "rice", 4)))

		item, err := repo.FindItemByName(ctx, "rice")
		require.NoError(mt, err)
		require.Equal(mt, id, item.ID)
		require.Equal(mt, 4, item.Quantity)
	})

	mt.Run("missing item", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, itemsNS, mtest.FirstBatch))

		_, err := repo.FindItemByID(ctx, primitive.NewObjectID())
		require.ErrorIs(mt, err, models.ErrNotFound)
	})

	mt.Run("duplicate name", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		err := repo.CreateItem(ctx, &models.Item{Name: "rice"}, nil)
		require.ErrorIs(mt, err, models.ErrConflict)
	})

	mt.Run("create with opening purchase", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		item := &models.Item{Name: "rice", Quantity: 3}
		opening := &models.Transaction{Product: "rice", Quantity: 3, Type: models.TransactionPurchase}
		require.NoError(mt, repo.CreateItem(ctx, item, opening))
		require.False(mt, item.ID.IsZero())
		require.False(mt, opening.ID.IsZero())
	})

	mt.Run("delete unknown item", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mtest.CreateCursorResponse(0, itemsNS, mtest.FirstBatch),
		)

		err := repo.DeleteItem(ctx, primitive.NewObjectID())
		require.ErrorIs(mt, err, models.ErrNotFound)
	})

	mt.Run("delete item holding stock", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mtest.CreateCursorResponse(0, itemsNS, mtest.FirstBatch, itemDoc(id, "rice", 4)),
		)

		err := repo.DeleteItem(ctx, id)
		require.ErrorIs(mt, err, models.ErrConflict)

		started := mt.GetStartedEvent()
		require.Equal(mt, "delete", started.CommandName)
		deletes := started.Command.Lookup("deletes").Array()
		values, err := deletes.Values()
		require.NoError(mt, err)
		require.Len(mt, values, 1)
		filter := values[0].Document().Lookup("q").Document()
		require.Equal(mt, int32(0), filter.Lookup("quantity").Int32())
	})
}

func TestRepositoryApplyTransaction(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("purchase", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: itemDoc(primitive.NewObjectID(), "rice", 12)}),
			mtest.CreateSuccessResponse(),
		)

		tx := &models.Transaction{Product: "rice", Quantity: 2, Price: 4, Type: models.TransactionPurchase, Date: time.Now()}
		item, err := repo.ApplyTransaction(ctx, tx)
		require.NoError(mt, err)
		require.Equal(mt, 12, item.Quantity)
		require.False(mt, tx.ID.IsZero())
	})

	mt.Run("sale beyond stock", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, itemsNS, mtest.FirstBatch, itemDoc(primitive.NewObjectID(), "rice", 2)),
		)

		tx := &models.Transaction{Product: "rice", Quantity: 5, Price: 10, Type: models.TransactionSale, Date: time.Now()}
		_, err := repo.ApplyTransaction(ctx, tx)
		var stockErr *models.InsufficientStockError
		require.ErrorAs(mt, err, &stockErr)
		require.Equal(mt, 2, stockErr.Available)
		require.Equal(mt, 5, stockErr.Requested)
	})

	mt.Run("failed insert reverts the stock move", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: itemDoc(id, "rice", 12)}),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 2, Message: "insert rejected"}),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: itemDoc(id, "rice", 10)}),
		)

		tx := &models.Transaction{Product: "rice", Quantity: 2, Price: 4, Type: models.TransactionPurchase, Date: time.Now()}
		_, err := repo.ApplyTransaction(ctx, tx)
		require.ErrorIs(mt, err, models.ErrStorage)

		events := mt.GetAllStartedEvents()
		require.Equal(mt, []string{"findAndModify", "insert", "findAndModify"}, commandNames(events))
		require.Equal(mt, int32(2), events[0].Command.Lookup("update", "$inc", "quantity").Int32())
		require.Equal(mt, int32(-2), events[2].Command.Lookup("update", "$inc", "quantity").Int32())
	})
}

func TestRepositoryDeleteTransactions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("failure restores the removed records", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		itemID := primitive.NewObjectID()
		first := models.Transaction{ID: primitive.NewObjectID(), Product: "rice", Quantity: 3, Price: 6, Type: models.TransactionPurchase}
		second := models.Transaction{ID: primitive.NewObjectID(), Product: "rice", Quantity: 2, Price: 4, Type: models.TransactionPurchase}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: itemDoc(itemID, "rice", 7)}),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 2, Message: "delete rejected"}),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: itemDoc(itemID, "rice", 10)}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		deleted, err := repo.DeleteTransactions(ctx, []models.Transaction{first, second})
		require.ErrorIs(mt, err, models.ErrStorage)
		require.Zero(mt, deleted)

		events := mt.GetAllStartedEvents()
		require.Equal(mt, []string{"delete", "findAndModify", "delete", "findAndModify", "insert"}, commandNames(events))
		require.Equal(mt, int32(-3), events[1].Command.Lookup("update", "$inc", "quantity").Int32())
		require.Equal(mt, int32(3), events[3].Command.Lookup("update", "$inc", "quantity").Int32())

		docs, err := events[4].Command.Lookup("documents").Array().Values()
		require.NoError(mt, err)
		require.Len(mt, docs, 1)
		require.Equal(mt, first.ID, docs[0].Document().Lookup("_id").ObjectID())
	})

	mt.Run("failed stock move puts the record back", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		tx := models.Transaction{ID: primitive.NewObjectID(), Product: "rice", Quantity: 3, Price: 6, Type: models.TransactionPurchase}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "update rejected"}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		_, err := repo.DeleteTransactions(ctx, []models.Transaction{tx})
		require.ErrorIs(mt, err, models.ErrStorage)

		events := mt.GetAllStartedEvents()
		require.Equal(mt, []string{"delete", "findAndModify", "insert"}, commandNames(events))
		docs, err := events[2].Command.Lookup("documents").Array().Values()
		require.NoError(mt, err)
		require.Equal(mt, tx.ID, docs[0].Document().Lookup("_id").ObjectID())
	})
}

func commandNames(events []*event.CommandStartedEvent) []string {
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.CommandName)
	}
	return names
}

func TestRepositoryQueries(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("legacy sale literal is normalized", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		first := mtest.CreateCursorResponse(1, transactionsNS, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "product", Value: "sugar"},
			{Key: "quantity", Value: 3},
			{Key: "price", Value: 15.0},
			{Key: "type", Value: "sales"},
		})
		last := mtest.CreateCursorResponse(0, transactionsNS, mtest.NextBatch)
		mt.AddMockResponses(first, last)

		txs, err := repo.ListTransactions(ctx, models.TransactionFilter{})
		require.NoError(mt, err)
		require.Len(mt, txs, 1)
		require.Equal(mt, models.TransactionSale, txs[0].Type)
	})

	mt.Run("totals", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, transactionsNS, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: nil},
			{Key: "total_sales", Value: 15.0},
			{Key: "total_purchases", Value: 20.0},
		}))

		totals, err := repo.Totals(ctx)
		require.NoError(mt, err)
		require.Equal(mt, models.Totals{TotalSales: 15, TotalPurchases: 20}, totals)
	})

	mt.Run("totals of an empty log", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, transactionsNS, mtest.FirstBatch))

		totals, err := repo.Totals(ctx)
		require.NoError(mt, err)
		require.Zero(mt, totals)
	})

	mt.Run("stock level of an unknown product", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, transactionsNS, mtest.FirstBatch))

		_, err := repo.StockLevel(ctx, "ghost")
		require.ErrorIs(mt, err, models.ErrNotFound)
	})

	mt.Run("stock level", func(mt *mtest.T) {
		repo := NewFromDatabase(mt.DB, false, nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, transactionsNS, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "sugar"},
			{Key: "purchased", Value: 20},
			{Key: "sold", Value: 18},
		}))

		level, err := repo.StockLevel(ctx, "sugar")
		require.NoError(mt, err)
		require.Equal(mt, 2, level.Balance())
	})
}

func TestTransactionQuery(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	query := transactionQuery(models.TransactionFilter{
		Type:    models.TransactionSale,
		From:    &from,
		Product: "brown sugar",
	})

	require.Equal(t, bson.M{"$in": saleTypes}, query["type"])
	require.Equal(t, bson.M{"$gte": from}, query["date"])
	require.Equal(t, primitive.Regex{Pattern: `\b(brown sugar)\b`, Options: "i"}, query["product"])

	require.Empty(t, transactionQuery(models.TransactionFilter{}))
}
