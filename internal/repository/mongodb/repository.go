package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

const (
	itemsCollection        = "items"
	transactionsCollection = "transactions"
	reportsCollection      = "stock_reports"
)

// Repository implements the stock store and the report store on MongoDB.
type Repository struct {
	client          *mongo.Client
	items           *mongo.Collection
	transactions    *mongo.Collection
	reports         *mongo.Collection
	useTransactions bool
	logger          *zap.Logger
}

// NewMongoDBRepository connects to MongoDB and returns a repository bound to dbName.
// With useTransactions set, ledger updates run inside multi-document transactions,
// which requires a replica set.
func NewMongoDBRepository(ctx context.Context, uri, dbName string, useTransactions bool, logger *zap.Logger) (*Repository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return NewFromDatabase(client.Database(dbName), useTransactions, logger), nil
}

// NewFromDatabase builds a repository on an existing database handle.
func NewFromDatabase(db *mongo.Database, useTransactions bool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		client:          db.Client(),
		items:           db.Collection(itemsCollection),
		transactions:    db.Collection(transactionsCollection),
		reports:         db.Collection(reportsCollection),
		useTransactions: useTransactions,
		logger:          logger,
	}
}

// EnsureIndexes creates the unique item name index and the indexes the filters use.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_name"),
	})
	if err != nil {
		return models.StorageError("create items index", err)
	}

	_, err = r.transactions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "product", Value: 1}, {Key: "type", Value: 1}}, Options: options.Index().SetName("product_type")},
		{Keys: bson.D{{Key: "date", Value: -1}}, Options: options.Index().SetName("date_desc")},
	})
	if err != nil {
		return models.StorageError("create transactions indexes", err)
	}
	return nil
}

// Ping checks the connection, used by the health endpoint.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// atomically runs fn inside a multi-document transaction when they are enabled.
// Otherwise fn runs as is and is responsible for compensating its partial writes.
func (r *Repository) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if !r.useTransactions {
		return fn(ctx)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return models.StorageError("start session", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	return mongo.WithSession(ctx, session, func(sc mongo.SessionContext) error {
		if err := session.StartTransaction(); err != nil {
			return models.StorageError("start transaction", err)
		}
		if err := fn(sc); err != nil {
			if abortErr := session.AbortTransaction(context.WithoutCancel(sc)); abortErr != nil {
				r.logger.Error("failed to abort transaction", zap.Error(abortErr))
			}
			return err
		}
		if err := session.CommitTransaction(sc); err != nil {
			return models.StorageError("commit transaction", err)
		}
		return nil
	})
}
