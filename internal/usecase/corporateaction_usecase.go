package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/infrastructure/metrics"
)

// CorporateActionUseCase applies structural events (splits, spinoffs,
// mergers, symbol changes) to every position holding a security. One
// storage transaction per action; a failure on any position rolls back the
// whole event.
type CorporateActionUseCase struct {
	txManager    TransactionManager
	positionRepo PositionRepository
	lotRepo      LotRepository
	dispRepo     DispositionRepository
	positions    PositionStore
	auditRepo    AuditRepository
	outboxRepo   OutboxRepository
	idGen        IDGenerator
	metrics      *metrics.Metrics

	holdingThresholdDays int
}

// NewCorporateActionUseCase creates a new CorporateActionUseCase.
func NewCorporateActionUseCase(
	txManager TransactionManager,
	positionRepo PositionRepository,
	lotRepo LotRepository,
	dispRepo DispositionRepository,
	positions PositionStore,
	auditRepo AuditRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	holdingThresholdDays int,
) *CorporateActionUseCase {
	return &CorporateActionUseCase{
		txManager:            txManager,
		positionRepo:         positionRepo,
		lotRepo:              lotRepo,
		dispRepo:             dispRepo,
		positions:            positions,
		auditRepo:            auditRepo,
		outboxRepo:           outboxRepo,
		idGen:                idGen,
		metrics:              metrics,
		holdingThresholdDays: holdingThresholdDays,
	}
}

// ApplyActionInput represents input for applying a corporate action.
type ApplyActionInput struct {
	SecurityID      string
	Type            domain.CorporateActionType
	EffectiveDate   time.Time
	Ratio           decimal.Decimal
	BasisPercent    decimal.Decimal
	NewSecurityID   string
	CashInLieuPrice decimal.Decimal
}

// Apply runs a corporate action across every position of the security.
// Adjustments are retroactive changes to tax history, so each touched lot
// gets a full before/after audit record.
func (uc *CorporateActionUseCase) Apply(ctx context.Context, input ApplyActionInput) (*domain.AdjustmentResult, error) {
	now := time.Now().UTC()

	action := &domain.CorporateAction{
		ID:              uc.idGen.Generate(),
		SecurityID:      input.SecurityID,
		Type:            input.Type,
		EffectiveDate:   input.EffectiveDate,
		Ratio:           input.Ratio,
		BasisPercent:    input.BasisPercent,
		NewSecurityID:   input.NewSecurityID,
		CashInLieuPrice: input.CashInLieuPrice,
	}
	if err := action.Validate(); err != nil {
		return nil, err
	}
	if action.EffectiveDate.IsZero() {
		action.EffectiveDate = now
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	positions, err := uc.positionRepo.ListBySecurityForUpdate(ctx, tx, input.SecurityID)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 && action.Type != domain.ActionSymbolChange {
		return nil, domain.ErrNoOpenLots
	}

	merged := &domain.AdjustmentResult{
		ActionID:      action.ID,
		SecurityID:    action.SecurityID,
		Type:          action.Type,
		EffectiveDate: action.EffectiveDate,
	}

	var touched []string
	for _, position := range positions {
		if position.Frozen {
			return nil, domain.ErrPositionFrozen
		}

		open, err := uc.lotRepo.ListOpenByPositionForUpdate(ctx, tx, position.ID)
		if err != nil {
			return nil, err
		}

		result, err := domain.ApplyAction(action, open, uc.holdingThresholdDays)
		if err != nil {
			// A position with nothing open just passes through untouched.
			if errors.Is(err, domain.ErrNoOpenLots) {
				continue
			}
			return nil, err
		}

		if err := uc.persistPositionResult(ctx, tx, position, action, result, now); err != nil {
			return nil, err
		}

		merged.LotChanges = append(merged.LotChanges, result.LotChanges...)
		merged.NewLots = append(merged.NewLots, result.NewLots...)
		merged.CashInLieu = append(merged.CashInLieu, result.CashInLieu...)
		merged.CostBasisBefore = merged.CostBasisBefore.Add(result.CostBasisBefore)
		merged.CostBasisAfter = merged.CostBasisAfter.Add(result.CostBasisAfter)
		touched = append(touched, position.ID)
	}

	if err := uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   action.SecurityID,
		AggregateType: domain.AggregateTypeSecurity,
		EventType:     domain.EventTypeCorporateActionDone,
		Payload: domain.MarshalState(domain.CorporateActionAppliedEvent{
			ActionID:    action.ID,
			SecurityID:  action.SecurityID,
			ActionType:  string(action.Type),
			LotsTouched: len(merged.LotChanges),
		}),
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.CorporateActions.WithLabelValues(string(action.Type)).Inc()
	}

	for _, positionID := range touched {
		uc.positions.InvalidateSummary(ctx, positionID)
	}

	return merged, nil
}

// persistPositionResult writes one position's share of the adjustment:
// rewritten lots, new lots (routed to the resulting security's position),
// cash-in-lieu dispositions, and the per-lot audit trail.
func (uc *CorporateActionUseCase) persistPositionResult(ctx context.Context, tx Transaction, position *domain.Position, action *domain.CorporateAction, result *domain.AdjustmentResult, now time.Time) error {
	for _, change := range result.LotChanges {
		after := change.After
		after.UpdatedAt = now
		if err := uc.lotRepo.Rewrite(ctx, tx, &after); err != nil {
			return err
		}

		if err := uc.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
			ID:           uc.idGen.Generate(),
			Action:       string(domain.AuditActionCorporateApply),
			ResourceType: "lot",
			ResourceID:   change.Before.ID,
			BeforeState:  domain.MarshalState(change.Before),
			AfterState:   domain.MarshalState(after),
			Status:       string(domain.AuditStatusSuccess),
			CreatedAt:    now,
		}); err != nil {
			return err
		}
	}

	if len(result.NewLots) > 0 {
		target, err := uc.targetPosition(ctx, tx, position, action, now)
		if err != nil {
			return err
		}

		for _, lot := range result.NewLots {
			lot.ID = uc.idGen.Generate()
			lot.PositionID = target.ID
			lot.CreatedAt = now
			lot.UpdatedAt = now
			if err := uc.lotRepo.Create(ctx, tx, lot); err != nil {
				return err
			}

			if err := uc.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
				ID:           uc.idGen.Generate(),
				Action:       string(domain.AuditActionCorporateApply),
				ResourceType: "lot",
				ResourceID:   lot.ID,
				AfterState:   domain.MarshalState(lot),
				Status:       string(domain.AuditStatusSuccess),
				CreatedAt:    now,
			}); err != nil {
				return err
			}
		}
	}

	if len(result.CashInLieu) > 0 {
		// Cash-in-lieu dispositions carry no backing journal transaction;
		// the cash movement settles outside the ledger.
		if err := uc.dispRepo.CreateBatch(ctx, tx, "", result.CashInLieu); err != nil {
			return err
		}
	}

	if action.Type == domain.ActionSymbolChange {
		if err := uc.positionRepo.UpdateSecurity(ctx, tx, position.ID, action.NewSecurityID, now); err != nil {
			return err
		}
	}

	return nil
}

// targetPosition finds or creates the position that receives new lots: the
// same account's position in the resulting security, or the source position
// itself when the action stays within one security.
func (uc *CorporateActionUseCase) targetPosition(ctx context.Context, tx Transaction, source *domain.Position, action *domain.CorporateAction, now time.Time) (*domain.Position, error) {
	if action.NewSecurityID == "" || action.NewSecurityID == source.SecurityID {
		return source, nil
	}

	target, err := uc.positionRepo.GetByAccountSecurity(ctx, source.AccountID, action.NewSecurityID)
	if errors.Is(err, domain.ErrPositionNotFound) {
		target = &domain.Position{
			ID:         uc.idGen.Generate(),
			AccountID:  source.AccountID,
			SecurityID: action.NewSecurityID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := uc.positionRepo.Create(ctx, tx, target); err != nil {
			return nil, err
		}
		return target, nil
	}
	if err != nil {
		return nil, err
	}

	return target, nil
}
