package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/infrastructure/metrics"
)

// PositionStore is the slice of the position layer the posting engine
// needs: lot creation and reduction inside the posting's own storage
// transaction, so lots never exist without their funding journal entry.
// FreezeCorrupted runs after that transaction has rolled back; see
// PositionUseCase.FreezeCorrupted.
type PositionStore interface {
	OpenLot(ctx context.Context, tx Transaction, input OpenLotInput) (*domain.Lot, error)
	ApplyDisposal(ctx context.Context, tx Transaction, positionID string, reductions []domain.LotReduction, saleQuantity decimal.Decimal) error
	FreezeCorrupted(ctx context.Context, cause *domain.PositionCorruptedError) error
	InvalidateSummary(ctx context.Context, positionID string)
}

// PostingUseCase handles journal posting business logic.
type PostingUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	positions       PositionStore
	auditRepo       AuditRepository
	outboxRepo      OutboxRepository
	idGen           IDGenerator
	metrics         *metrics.Metrics
}

// NewPostingUseCase creates a new PostingUseCase.
func NewPostingUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	positions PositionStore,
	auditRepo AuditRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *PostingUseCase {
	return &PostingUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		positions:       positions,
		auditRepo:       auditRepo,
		outboxRepo:      outboxRepo,
		idGen:           idGen,
		metrics:         metrics,
	}
}

// EntryInput represents one leg of a transaction to post.
type EntryInput struct {
	AccountID string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	LotID     *string
}

// LotReductionInstruction applies a disposal's lot reductions in the same
// storage transaction as the sale posting.
type LotReductionInstruction struct {
	PositionID   string
	Reductions   []domain.LotReduction
	SaleQuantity decimal.Decimal
}

// PostTransactionInput represents input for posting a transaction. OpenLots
// and Reductions ride the same storage transaction as the journal entries.
// Every lot to open must be funded by a debit entry on the lot's account for
// exactly quantity times cost per unit; that entry is stamped with the new
// lot's ID.
type PostTransactionInput struct {
	Date       time.Time
	Memo       string
	Reference  string
	Entries    []EntryInput
	OpenLots   []OpenLotInput
	Reductions []LotReductionInstruction
}

// PostTransaction validates and atomically persists a balanced transaction.
// Either every entry lands or none do.
func (uc *PostingUseCase) PostTransaction(ctx context.Context, input PostTransactionInput) (*domain.Transaction, error) {
	now := time.Now().UTC()

	date := input.Date
	if date.IsZero() {
		date = now
	}

	txn := &domain.Transaction{
		ID:        uc.idGen.Generate(),
		Date:      date,
		Memo:      input.Memo,
		Reference: input.Reference,
		CreatedAt: now,
	}

	for _, e := range input.Entries {
		txn.Entries = append(txn.Entries, domain.Entry{
			ID:            uc.idGen.Generate(),
			TransactionID: txn.ID,
			AccountID:     e.AccountID,
			Debit:         e.Debit,
			Credit:        e.Credit,
			LotID:         e.LotID,
			CreatedAt:     now,
		})
	}

	// Reject before touching storage.
	if err := txn.Validate(); err != nil {
		if uc.metrics != nil {
			uc.metrics.PostingErrors.WithLabelValues("validation").Inc()
		}
		return nil, err
	}

	// Match every lot opening to the unclaimed debit entry that funds it
	// and stamp that entry with the lot's pre-generated ID.
	openLots := make([]OpenLotInput, len(input.OpenLots))
	copy(openLots, input.OpenLots)
	for i := range openLots {
		cost := openLots[i].Quantity.Mul(openLots[i].CostPerUnit)
		matched := -1
		for j := range txn.Entries {
			e := &txn.Entries[j]
			if e.LotID != nil || e.AccountID != openLots[i].AccountID || !e.Debit.Equal(cost) {
				continue
			}
			matched = j
			break
		}
		if matched < 0 {
			if uc.metrics != nil {
				uc.metrics.PostingErrors.WithLabelValues("validation").Inc()
			}
			return nil, fmt.Errorf("%w: no debit entry on account %s for %s",
				domain.ErrLotUnfunded, openLots[i].AccountID, cost)
		}
		lotID := uc.idGen.Generate()
		openLots[i].LotID = lotID
		txn.Entries[matched].LotID = &lotID
	}

	accountIDs := uc.collectUniqueAccountIDs(txn.Entries)
	sort.Strings(accountIDs)

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock accounts in sorted order (DEADLOCK PREVENTION).
	accounts, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, accountIDs)
	if err != nil {
		return nil, err
	}
	if len(accounts) != len(accountIDs) {
		return nil, domain.ErrAccountNotFound
	}

	for _, account := range accounts {
		if err := account.CanPost(); err != nil {
			return nil, err
		}
	}

	if err := uc.transactionRepo.Create(ctx, tx, txn); err != nil {
		return nil, err
	}

	var touchedPositions []string
	for _, open := range openLots {
		lot, err := uc.positions.OpenLot(ctx, tx, open)
		if err != nil {
			return nil, err
		}
		touchedPositions = append(touchedPositions, lot.PositionID)
	}
	for _, red := range input.Reductions {
		if err := uc.positions.ApplyDisposal(ctx, tx, red.PositionID, red.Reductions, red.SaleQuantity); err != nil {
			var corrupted *domain.PositionCorruptedError
			if errors.As(err, &corrupted) {
				// The freeze needs the position row lock this transaction
				// holds, so release it first.
				_ = tx.Rollback(ctx)
				_ = uc.positions.FreezeCorrupted(ctx, corrupted)
			}
			return nil, err
		}
		touchedPositions = append(touchedPositions, red.PositionID)
	}

	if err := uc.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
		ID:           uc.idGen.Generate(),
		Action:       string(domain.AuditActionTransactionPost),
		ResourceType: "transaction",
		ResourceID:   txn.ID,
		AfterState:   domain.MarshalState(txn),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    now,
	}); err != nil {
		return nil, err
	}

	var total decimal.Decimal
	for _, e := range txn.Entries {
		total = total.Add(e.Debit)
	}

	if err := uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   txn.ID,
		AggregateType: domain.AggregateTypeTransaction,
		EventType:     domain.EventTypeTransactionPosted,
		Payload: domain.MarshalState(domain.TransactionPostedEvent{
			TransactionID: txn.ID,
			Date:          txn.Date.Format(time.RFC3339),
			EntryCount:    len(txn.Entries),
			Total:         total.String(),
		}),
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsPosted.Inc()
		uc.metrics.PostingDuration.Observe(time.Since(now).Seconds())
		if len(openLots) > 0 {
			uc.metrics.LotsOpened.Add(float64(len(openLots)))
		}
	}

	for _, positionID := range touchedPositions {
		uc.positions.InvalidateSummary(ctx, positionID)
	}

	return txn, nil
}

// ReverseTransaction posts the mirror image of an existing transaction and
// links the two. The original is never edited; reversal is the only
// correction mechanism and it works exactly once per transaction.
func (uc *PostingUseCase) ReverseTransaction(ctx context.Context, transactionID, memo string) (*domain.Transaction, error) {
	now := time.Now().UTC()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	original, err := uc.transactionRepo.GetByIDForUpdate(ctx, tx, transactionID)
	if err != nil {
		return nil, err
	}

	if original.Reversed {
		return nil, domain.ErrTransactionAlreadyReversed
	}

	reversal := &domain.Transaction{
		ID:         uc.idGen.Generate(),
		Date:       now,
		Memo:       memo,
		ReversalOf: &original.ID,
		Entries:    original.Mirror(),
		CreatedAt:  now,
	}
	for i := range reversal.Entries {
		reversal.Entries[i].ID = uc.idGen.Generate()
		reversal.Entries[i].TransactionID = reversal.ID
		reversal.Entries[i].CreatedAt = now
	}

	if err := reversal.Validate(); err != nil {
		return nil, err
	}

	// Reversals post to inactive accounts too; closing an account must not
	// strand uncorrectable history.
	if err := uc.transactionRepo.Create(ctx, tx, reversal); err != nil {
		return nil, err
	}

	if err := uc.transactionRepo.MarkReversed(ctx, tx, original.ID, now); err != nil {
		return nil, err
	}

	if err := uc.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
		ID:           uc.idGen.Generate(),
		Action:       string(domain.AuditActionTransactionReverse),
		ResourceType: "transaction",
		ResourceID:   original.ID,
		BeforeState:  domain.JSON{"reversed": false},
		AfterState:   domain.JSON{"reversed": true, "reversal_id": reversal.ID},
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    now,
	}); err != nil {
		return nil, err
	}

	if err := uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   reversal.ID,
		AggregateType: domain.AggregateTypeTransaction,
		EventType:     domain.EventTypeTransactionReversed,
		Payload: domain.MarshalState(domain.TransactionReversedEvent{
			ReversalTransactionID: reversal.ID,
			OriginalTransactionID: original.ID,
		}),
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsReversed.Inc()
	}

	return reversal, nil
}

// GetTransaction retrieves a transaction with its entries.
func (uc *PostingUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.transactionRepo.GetByID(ctx, id)
}

// ListTransactionsByAccount lists transactions touching an account.
func (uc *PostingUseCase) ListTransactionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	limit, offset, err := domain.ValidatePagination(limit, offset)
	if err != nil {
		return nil, err
	}
	return uc.transactionRepo.ListByAccount(ctx, accountID, limit, offset)
}

func (uc *PostingUseCase) collectUniqueAccountIDs(entries []domain.Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	var ids []string
	for _, e := range entries {
		if _, ok := seen[e.AccountID]; !ok {
			seen[e.AccountID] = struct{}{}
			ids = append(ids, e.AccountID)
		}
	}
	return ids
}
