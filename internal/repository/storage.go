package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/config"
	"github.com/mamadbah2/inventory/internal/domain/models"
	"github.com/mamadbah2/inventory/internal/repository/memory"
	"github.com/mamadbah2/inventory/internal/repository/mongodb"
	"github.com/mamadbah2/inventory/internal/service/stock"
)

// Backend is a storage driver for the stock and reporting services.
type Backend interface {
	stock.Store
	SaveStockReport(ctx context.Context, report *models.StockReport) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var (
	_ Backend = (*mongodb.Repository)(nil)
	_ Backend = (*memory.Store)(nil)
)

// Open connects the driver selected by STORAGE_DRIVER. MongoDB indexes are created
// before the backend is returned.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), nil
	case config.StorageMongoDB:
		repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, cfg.MongoDB.Transactions, logger.Named("mongodb"))
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = repo.Close(ctx)
			return nil, err
		}
		logger.Info("mongodb storage ready",
			zap.String("database", cfg.MongoDB.DBName),
			zap.Bool("transactions", cfg.MongoDB.Transactions))
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
