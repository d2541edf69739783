package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// PositionSummaryTTL is how long a derived position summary stays cached.
	// Every write path that touches the position's lots deletes the entry.
	PositionSummaryTTL = 5 * time.Minute
)
