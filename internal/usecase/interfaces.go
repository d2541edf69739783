package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	Balance(ctx context.Context, accountID string, at time.Time) (debits, credits decimal.Decimal, err error)
}

// TransactionRepository defines data access for journal transactions and
// their entries. Entries are written with their transaction and never
// updated afterwards.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Transaction, error)
	MarkReversed(ctx context.Context, tx Transaction, id string, at time.Time) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error)
	ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
}

// PositionRepository defines data access for positions.
type PositionRepository interface {
	Create(ctx context.Context, tx Transaction, position *domain.Position) error
	GetByID(ctx context.Context, id string) (*domain.Position, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Position, error)
	GetByAccountSecurity(ctx context.Context, accountID, securityID string) (*domain.Position, error)
	ListBySecurityForUpdate(ctx context.Context, tx Transaction, securityID string) ([]*domain.Position, error)
	// SetFrozen runs outside any caller transaction so the freeze survives
	// the rollback of the operation that detected the corruption.
	SetFrozen(ctx context.Context, id string, frozen bool, updatedAt time.Time) error
	UpdateSecurity(ctx context.Context, tx Transaction, id, securityID string, updatedAt time.Time) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Position, error)
}

// LotRepository defines data access for tax lots.
type LotRepository interface {
	Create(ctx context.Context, tx Transaction, lot *domain.Lot) error
	GetByID(ctx context.Context, id string) (*domain.Lot, error)
	ListByPosition(ctx context.Context, positionID string) ([]*domain.Lot, error)
	ListOpenByPositionForUpdate(ctx context.Context, tx Transaction, positionID string) ([]*domain.Lot, error)
	Reduce(ctx context.Context, tx Transaction, lotID string, quantity decimal.Decimal, updatedAt time.Time) error
	Rewrite(ctx context.Context, tx Transaction, lot *domain.Lot) error
	AddWashSaleBasis(ctx context.Context, tx Transaction, lotID string, increase decimal.Decimal, updatedAt time.Time) error
	// ListWashSaleCandidates returns open lots of the same security under the
	// same owner acquired inside [from, to], excluding the listed lot IDs.
	ListWashSaleCandidates(ctx context.Context, tx Transaction, securityID, ownerID string, from, to time.Time, excludeLotIDs []string) ([]*domain.Lot, error)
}

// DispositionRepository defines data access for realized dispositions.
type DispositionRepository interface {
	CreateBatch(ctx context.Context, tx Transaction, transactionID string, dispositions []domain.Disposition) error
	ListByAccount(ctx context.Context, accountID string, from, to time.Time) ([]*domain.Disposition, error)
	ListByLot(ctx context.Context, lotID string) ([]*domain.Disposition, error)
	SumReducedByLot(ctx context.Context, positionID string) (map[string]decimal.Decimal, error)
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	CheckConsistency(ctx context.Context) (totalDebits, totalCredits decimal.Decimal, err error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
	GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
