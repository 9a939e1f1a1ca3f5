package models

import "time"

// StockReport is the periodic snapshot of the ledger, the derived levels and totals.
type StockReport struct {
	GeneratedAt time.Time    `bson:"generated_at" json:"generated_at"`
	Items       []ItemStatus `bson:"items" json:"items"`
	Totals      Totals       `bson:"totals" json:"totals"`
	LowStock    []string     `bson:"low_stock" json:"low_stock"`
	Drift       []Drift      `bson:"drift" json:"drift"`
}

// ItemStatus compares the ledger quantity of a product with its derived balance.
type ItemStatus struct {
	Product  string `bson:"product" json:"product"`
	Quantity int    `bson:"quantity" json:"quantity"`
	Balance  int    `bson:"balance" json:"balance"`
	LowStock bool   `bson:"low_stock" json:"low_stock"`
}

// Drift describes a product whose ledger quantity disagrees with the transaction log.
type Drift struct {
	Product string `bson:"product" json:"product"`
	Ledger  int    `bson:"ledger" json:"ledger"`
	Derived int    `bson:"derived" json:"derived"`
	Fixed   bool   `bson:"fixed" json:"fixed"`
}
