package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/infrastructure/metrics"
)

// DisposalUseCase orchestrates a sale: pure lot selection over a locked
// snapshot, wash-sale detection, lot reduction, disposition persistence,
// and the backing journal transaction, all committed atomically.
type DisposalUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	positionRepo    PositionRepository
	lotRepo         LotRepository
	dispositionRepo DispositionRepository
	positions       PositionStore
	auditRepo       AuditRepository
	outboxRepo      OutboxRepository
	idGen           IDGenerator
	metrics         *metrics.Metrics

	holdingThresholdDays int
	washSaleWindowDays   int
}

// NewDisposalUseCase creates a new DisposalUseCase.
func NewDisposalUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	positionRepo PositionRepository,
	lotRepo LotRepository,
	dispositionRepo DispositionRepository,
	positions PositionStore,
	auditRepo AuditRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	holdingThresholdDays int,
	washSaleWindowDays int,
) *DisposalUseCase {
	return &DisposalUseCase{
		txManager:            txManager,
		accountRepo:          accountRepo,
		transactionRepo:      transactionRepo,
		positionRepo:         positionRepo,
		lotRepo:              lotRepo,
		dispositionRepo:      dispositionRepo,
		positions:            positions,
		auditRepo:            auditRepo,
		outboxRepo:           outboxRepo,
		idGen:                idGen,
		metrics:              metrics,
		holdingThresholdDays: holdingThresholdDays,
		washSaleWindowDays:   washSaleWindowDays,
	}
}

// SelectAndDisposeInput represents input for executing a disposal.
type SelectAndDisposeInput struct {
	PositionID string
	Quantity   decimal.Decimal
	Proceeds   decimal.Decimal
	SaleDate   time.Time
	Method     domain.DisposalMethod
	Specific   []domain.LotReduction

	// CashAccountID receives the proceeds; GainLossAccountID absorbs the
	// realized gain or loss. The holdings side comes off the position's
	// own account.
	CashAccountID     string
	GainLossAccountID string
	Memo              string
}

// SelectAndDispose executes the full disposal flow in one storage
// transaction. The computation runs over a FOR UPDATE snapshot, so two
// concurrent sales of the same position serialize; sales on distinct
// positions do not contend.
func (uc *DisposalUseCase) SelectAndDispose(ctx context.Context, input SelectAndDisposeInput) (*domain.DisposalResult, error) {
	now := time.Now().UTC()

	saleDate := input.SaleDate
	if saleDate.IsZero() {
		saleDate = now
	}

	if !input.Quantity.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	if input.Proceeds.IsNegative() {
		return nil, domain.ErrInvalidCost
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock the journal accounts in sorted order, then the position. Every
	// writer takes locks in this same order.
	position, err := uc.positionRepo.GetByID(ctx, input.PositionID)
	if err != nil {
		return nil, err
	}

	accountIDs := uniqueSorted([]string{position.AccountID, input.CashAccountID, input.GainLossAccountID})
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

	position, err = uc.positionRepo.GetByIDForUpdate(ctx, tx, input.PositionID)
	if err != nil {
		return nil, err
	}
	if position.Frozen {
		return nil, domain.ErrPositionFrozen
	}

	open, err := uc.lotRepo.ListOpenByPositionForUpdate(ctx, tx, input.PositionID)
	if err != nil {
		return nil, err
	}

	comp, err := domain.SelectLots(input.PositionID, open, domain.DisposalRequest{
		Quantity:             input.Quantity,
		Proceeds:             input.Proceeds,
		SaleDate:             saleDate,
		Method:               input.Method,
		Specific:             input.Specific,
		HoldingThresholdDays: uc.holdingThresholdDays,
	})
	if err != nil {
		return nil, err
	}

	findings, adjustments, err := uc.detectWashSales(ctx, tx, position, comp, saleDate)
	if err != nil {
		return nil, err
	}

	reductions := make([]domain.LotReduction, 0, len(comp.Dispositions))
	for _, d := range comp.Dispositions {
		reductions = append(reductions, domain.LotReduction{LotID: d.LotID, Quantity: d.Quantity})
	}
	if err := uc.positions.ApplyDisposal(ctx, tx, input.PositionID, reductions, input.Quantity); err != nil {
		var corrupted *domain.PositionCorruptedError
		if errors.As(err, &corrupted) {
			// The freeze needs the position row lock this transaction
			// holds, so release it first.
			_ = tx.Rollback(ctx)
			_ = uc.positions.FreezeCorrupted(ctx, corrupted)
		}
		return nil, err
	}

	for _, adj := range adjustments {
		if err := uc.lotRepo.AddWashSaleBasis(ctx, tx, adj.LotID, adj.Increase, now); err != nil {
			return nil, err
		}
	}

	txn, err := uc.postSale(ctx, tx, position, input, comp, saleDate, now)
	if err != nil {
		return nil, err
	}

	if err := uc.dispositionRepo.CreateBatch(ctx, tx, txn.ID, comp.Dispositions); err != nil {
		return nil, err
	}

	result := &domain.DisposalResult{
		TransactionID:    txn.ID,
		PositionID:       input.PositionID,
		Method:           input.Method,
		SaleDate:         saleDate,
		Quantity:         input.Quantity,
		Proceeds:         input.Proceeds,
		Dispositions:     comp.Dispositions,
		TotalCostRemoved: comp.TotalCostRemoved,
		TotalGainLoss:    comp.TotalGainLoss,
		WashSales:        findings,
		BasisAdjustments: adjustments,
	}

	if err := uc.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
		ID:           uc.idGen.Generate(),
		Action:       string(domain.AuditActionDisposalExecute),
		ResourceType: "position",
		ResourceID:   input.PositionID,
		AfterState:   domain.MarshalState(result),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    now,
	}); err != nil {
		return nil, err
	}

	if err := uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   input.PositionID,
		AggregateType: domain.AggregateTypePosition,
		EventType:     domain.EventTypeDisposalExecuted,
		Payload: domain.MarshalState(domain.DisposalExecutedEvent{
			PositionID:    input.PositionID,
			TransactionID: txn.ID,
			Method:        input.Method.String(),
			Quantity:      input.Quantity.String(),
			Proceeds:      input.Proceeds.String(),
			RealizedGain:  comp.TotalGainLoss.String(),
			WashSales:     len(findings),
		}),
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.Disposals.WithLabelValues(input.Method.String()).Inc()
		gain, _ := comp.TotalGainLoss.Float64()
		uc.metrics.DisposalGain.Observe(gain)
		if len(findings) > 0 {
			uc.metrics.WashSales.Inc()
		}
	}

	uc.positions.InvalidateSummary(ctx, input.PositionID)

	return result, nil
}

// detectWashSales looks for replacement lots of the same security under the
// same owner acquired inside the window, excluding the lots this sale
// consumes. A sale with no losing disposition skips the lookup.
func (uc *DisposalUseCase) detectWashSales(ctx context.Context, tx Transaction, position *domain.Position, comp *domain.DisposalComputation, saleDate time.Time) ([]domain.WashSaleFinding, []domain.BasisAdjustment, error) {
	hasLoss := false
	exclude := make([]string, 0, len(comp.Dispositions))
	for _, d := range comp.Dispositions {
		exclude = append(exclude, d.LotID)
		if d.GainLoss.IsNegative() {
			hasLoss = true
		}
	}
	if !hasLoss {
		return nil, nil, nil
	}

	account, err := uc.accountRepo.GetByID(ctx, position.AccountID)
	if err != nil {
		return nil, nil, err
	}

	from := saleDate.AddDate(0, 0, -uc.washSaleWindowDays)
	to := saleDate.AddDate(0, 0, uc.washSaleWindowDays)

	candidates, err := uc.lotRepo.ListWashSaleCandidates(ctx, tx, position.SecurityID, account.OwnerID, from, to, exclude)
	if err != nil {
		return nil, nil, err
	}

	findings, adjustments := domain.ApplyWashSales(comp, candidates, saleDate, uc.washSaleWindowDays)
	return findings, adjustments, nil
}

// postSale writes the backing journal transaction: proceeds into cash, cost
// basis out of the holdings account with one credit per consumed lot, gain
// or loss to the gain/loss account.
func (uc *DisposalUseCase) postSale(ctx context.Context, tx Transaction, position *domain.Position, input SelectAndDisposeInput, comp *domain.DisposalComputation, saleDate, now time.Time) (*domain.Transaction, error) {
	txn := &domain.Transaction{
		ID:        uc.idGen.Generate(),
		Date:      saleDate,
		Memo:      input.Memo,
		CreatedAt: now,
	}

	addEntry := func(accountID string, debit, credit decimal.Decimal, lotID *string) {
		txn.Entries = append(txn.Entries, domain.Entry{
			ID:            uc.idGen.Generate(),
			TransactionID: txn.ID,
			AccountID:     accountID,
			Debit:         debit,
			Credit:        credit,
			LotID:         lotID,
			CreatedAt:     now,
		})
	}

	if input.Proceeds.IsPositive() {
		addEntry(input.CashAccountID, input.Proceeds, decimal.Zero, nil)
	}
	for i := range comp.Dispositions {
		d := &comp.Dispositions[i]
		if d.CostBasisRemoved.IsPositive() {
			lotID := d.LotID
			addEntry(position.AccountID, decimal.Zero, d.CostBasisRemoved, &lotID)
		}
	}

	switch {
	case comp.TotalGainLoss.IsPositive():
		addEntry(input.GainLossAccountID, decimal.Zero, comp.TotalGainLoss, nil)
	case comp.TotalGainLoss.IsNegative():
		addEntry(input.GainLossAccountID, comp.TotalGainLoss.Neg(), decimal.Zero, nil)
	}

	if err := txn.Validate(); err != nil {
		return nil, err
	}

	if err := uc.transactionRepo.Create(ctx, tx, txn); err != nil {
		return nil, err
	}

	return txn, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
