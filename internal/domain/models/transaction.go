package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionType enumerates the supported stock movements.
type TransactionType string

const (
	TransactionPurchase TransactionType = "purchase"
	TransactionSale     TransactionType = "sale"
)

// LegacySaleLiteral is the spelling older clients and stored documents use for sales.
const LegacySaleLiteral = "sales"

// ParseTransactionType maps a client literal onto the canonical type. The legacy
// "sales" spelling is accepted and reported as TransactionSale.
func ParseTransactionType(value string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(TransactionPurchase):
		return TransactionPurchase, nil
	case string(TransactionSale), LegacySaleLiteral:
		return TransactionSale, nil
	case "":
		return "", NewValidationError("type", "is required")
	default:
		return "", NewValidationError("type", "must be purchase or sale")
	}
}

// Sign is +1 for movements that add stock and -1 for those that remove it.
func (t TransactionType) Sign() int {
	if t == TransactionSale {
		return -1
	}
	return 1
}

// Transaction is an immutable record of a purchase or a sale. Price always holds the
// total value of the movement, never a unit price.
type Transaction struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Product   string             `bson:"product" json:"product"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     float64            `bson:"price" json:"price"`
	Type      TransactionType    `bson:"type" json:"type"`
	Date      time.Time          `bson:"date" json:"date"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Delta is the signed effect of the transaction on the product's quantity on hand.
func (t Transaction) Delta() int {
	return t.Type.Sign() * t.Quantity
}

// RecordTransactionRequest carries raw, unvalidated input for the recorder. Exactly one
// of UnitPrice or TotalPrice is expected; TotalPrice wins when both are set.
type RecordTransactionRequest struct {
	Product    string
	Quantity   *int
	UnitPrice  *float64
	TotalPrice *float64
	Type       string
	Date       string
}

// RecordResult is returned to callers once a transaction has been committed.
type RecordResult struct {
	Message     string      `json:"message"`
	Transaction Transaction `json:"transaction"`
	Item        Item        `json:"item"`
}

// DeleteResult reports how many log entries were removed.
type DeleteResult struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}

// Totals holds the monetary value of all sales and all purchases.
type Totals struct {
	TotalSales     float64 `bson:"total_sales" json:"total_sales"`
	TotalPurchases float64 `bson:"total_purchases" json:"total_purchases"`
}

// StockLevel is the derived position of a product computed from the transaction log.
type StockLevel struct {
	Product   string `bson:"_id" json:"product"`
	Purchased int    `bson:"purchased" json:"purchased"`
	Sold      int    `bson:"sold" json:"sold"`
}

// Balance is purchased minus sold. It can be negative when the log is inconsistent.
func (s StockLevel) Balance() int {
	return s.Purchased - s.Sold
}

// Availability is the answer to a product availability query.
type Availability struct {
	Product        string `json:"product"`
	AvailableStock int    `json:"available_stock"`
	Balance        int    `json:"balance"`
	Purchased      int    `json:"purchased"`
	Sold           int    `json:"sold"`
	LowStock       bool   `json:"low_stock"`
	Message        string `json:"message"`
}

// NormalizeProductName produces the key used for both items and transactions: trimmed,
// lower-cased, inner whitespace collapsed and a single trailing "s" removed.
func NormalizeProductName(name string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if len(normalized) > 1 && strings.HasSuffix(normalized, "s") {
		normalized = strings.TrimSuffix(normalized, "s")
	}
	return normalized
}
