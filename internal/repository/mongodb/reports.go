package mongodb

import (
	"context"
	"fmt"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

// SaveStockReport saves a stock report to the database.
func (r *Repository) SaveStockReport(ctx context.Context, report *models.StockReport) error {
	_, err := r.reports.InsertOne(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to insert stock report: %w", err)
	}
	return nil
}
