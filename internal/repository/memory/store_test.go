package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/inventory/internal/domain/models"
	"github.com/mamadbah2/inventory/internal/repository/memory"
	"github.com/mamadbah2/inventory/internal/service/stock"
)

var _ stock.Store = (*memory.Store)(nil)

func tx(product string, typ models.TransactionType, qty int, price float64, date time.Time) *models.Transaction {
	return &models.Transaction{Product: product, Type: typ, Quantity: qty, Price: price, Date: date}
}

func TestApplyTransaction(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	item, err := store.ApplyTransaction(ctx, tx("rice", models.TransactionPurchase, 5, 10, day))
	require.NoError(t, err)
	require.Equal(t, 5, item.Quantity)
	require.False(t, item.ID.IsZero())

	_, err = store.ApplyTransaction(ctx, tx("rice", models.TransactionSale, 6, 12, day))
	var stockErr *models.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 5, stockErr.Available)

	item, err = store.ApplyTransaction(ctx, tx("rice", models.TransactionSale, 5, 12, day))
	require.NoError(t, err)
	require.Zero(t, item.Quantity)

	level, err := store.StockLevel(ctx, "rice")
	require.NoError(t, err)
	require.Equal(t, models.StockLevel{Product: "rice", Purchased: 5, Sold: 5}, level)

	_, err = store.StockLevel(ctx, "bean")
	require.ErrorIs(t, err, models.ErrNotFound)

	totals, err := store.Totals(ctx)
	require.NoError(t, err)
	require.Equal(t, models.Totals{TotalSales: 12, TotalPurchases: 10}, totals)
}

func TestItemsByName(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	item := &models.Item{Name: "bean", Quantity: 2}
	opening := tx("bean", models.TransactionPurchase, 2, 4, time.Now())
	require.NoError(t, store.CreateItem(ctx, item, opening))
	require.ErrorIs(t, store.CreateItem(ctx, &models.Item{Name: "bean"}, nil), models.ErrConflict)

	found, err := store.FindItemByName(ctx, "bean")
	require.NoError(t, err)
	require.Equal(t, item.ID, found.ID)

	found.Quantity = 99
	again, err := store.FindItemByID(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 2, again.Quantity)

	desc := "dried"
	updated, err := store.UpdateItem(ctx, item.ID, models.ItemChanges{Description: &desc})
	require.NoError(t, err)
	require.Equal(t, "dried", updated.Description)

	require.ErrorIs(t, store.DeleteItem(ctx, item.ID), models.ErrConflict)

	_, err = store.ApplyTransaction(ctx, tx("bean", models.TransactionSale, 2, 4, time.Now()))
	require.NoError(t, err)
	require.NoError(t, store.DeleteItem(ctx, item.ID))
	_, err = store.FindItemByName(ctx, "bean")
	require.ErrorIs(t, err, models.ErrNotFound)
	require.ErrorIs(t, store.DeleteItem(ctx, item.ID), models.ErrNotFound)

	// the item vanished but its history is still in the log
	levels, err := store.StockLevels(ctx)
	require.NoError(t, err)
	require.Len(t, levels, 1)
}

func TestDeleteTransactionsReversesLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	purchase := tx("tea", models.TransactionPurchase, 5, 5, day)
	_, err := store.ApplyTransaction(ctx, purchase)
	require.NoError(t, err)
	sale := tx("tea", models.TransactionSale, 3, 6, day.Add(time.Hour))
	_, err = store.ApplyTransaction(ctx, sale)
	require.NoError(t, err)

	_, err = store.DeleteTransactions(ctx, []models.Transaction{*purchase})
	var stockErr *models.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	n, err := store.DeleteTransactions(ctx, []models.Transaction{*sale, *sale})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	item, err := store.FindItemByName(ctx, "tea")
	require.NoError(t, err)
	require.Equal(t, 5, item.Quantity)

	found, err := store.FindTransactions(ctx, []primitive.ObjectID{purchase.ID, sale.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestListTransactionsOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, product := range []string{"a", "b", "c"} {
		_, err := store.ApplyTransaction(ctx, tx(product, models.TransactionPurchase, 1, 1, base.AddDate(0, 0, i)))
		require.NoError(t, err)
	}

	newest, err := store.ListTransactions(ctx, models.TransactionFilter{})
	require.NoError(t, err)
	require.Equal(t, "c", newest[0].Product)

	oldest, err := store.ListTransactions(ctx, models.TransactionFilter{Sort: models.SortOldest})
	require.NoError(t, err)
	require.Equal(t, "a", oldest[0].Product)

	require.NoError(t, store.SaveStockReport(ctx, &models.StockReport{GeneratedAt: base}))
	require.Len(t, store.Reports(), 1)
}
