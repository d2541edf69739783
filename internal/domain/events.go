package domain

import "time"

// Event types
const (
	EventTypeTransactionPosted   = "transaction.posted"
	EventTypeTransactionReversed = "transaction.reversed"
	EventTypeLotOpened           = "lot.opened"
	EventTypeDisposalExecuted    = "disposal.executed"
	EventTypeCorporateActionDone = "corporate_action.applied"
	EventTypePositionFrozen      = "position.frozen"
)

// Aggregate types
const (
	AggregateTypeTransaction = "transaction"
	AggregateTypePosition    = "position"
	AggregateTypeSecurity    = "security"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// TransactionPostedEvent payload
type TransactionPostedEvent struct {
	TransactionID string `json:"transaction_id"`
	Date          string `json:"date"`
	EntryCount    int    `json:"entry_count"`
	Total         string `json:"total"`
}

// TransactionReversedEvent payload
type TransactionReversedEvent struct {
	ReversalTransactionID string `json:"reversal_transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
}

// LotOpenedEvent payload
type LotOpenedEvent struct {
	LotID           string `json:"lot_id"`
	PositionID      string `json:"position_id"`
	Quantity        string `json:"quantity"`
	CostPerUnit     string `json:"cost_per_unit"`
	AcquisitionDate string `json:"acquisition_date"`
}

// DisposalExecutedEvent payload
type DisposalExecutedEvent struct {
	PositionID    string `json:"position_id"`
	TransactionID string `json:"transaction_id"`
	Method        string `json:"method"`
	Quantity      string `json:"quantity"`
	Proceeds      string `json:"proceeds"`
	RealizedGain  string `json:"realized_gain"`
	WashSales     int    `json:"wash_sales"`
}

// CorporateActionAppliedEvent payload
type CorporateActionAppliedEvent struct {
	ActionID    string `json:"action_id"`
	SecurityID  string `json:"security_id"`
	ActionType  string `json:"action_type"`
	LotsTouched int    `json:"lots_touched"`
}

// PositionFrozenEvent payload
type PositionFrozenEvent struct {
	PositionID string `json:"position_id"`
	Reason     string `json:"reason"`
}
