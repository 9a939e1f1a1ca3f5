package models

import "time"

const (
	EventTransactionRecorded  = "transaction.recorded"
	EventTransactionsDeleted  = "transactions.deleted"
	EventItemQuantityRepaired = "item.quantity_repaired"
)

// TransactionEvent is published after a change to the transaction log has committed.
type TransactionEvent struct {
	Type        string       `json:"type"`
	Product     string       `json:"product,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
	IDs         []string     `json:"ids,omitempty"`
	StockOnHand int          `json:"stock_on_hand"`
	Timestamp   time.Time    `json:"timestamp"`
}
