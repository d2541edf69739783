package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/infrastructure/metrics"
)

// PositionUseCase owns position and lot state. Lots are append-mostly:
// created once, reduced by disposals, rescaled by corporate actions, never
// deleted.
type PositionUseCase struct {
	positionRepo PositionRepository
	lotRepo      LotRepository
	auditRepo    AuditRepository
	outboxRepo   OutboxRepository
	cache        Cache
	idGen        IDGenerator
	metrics      *metrics.Metrics
}

// NewPositionUseCase creates a new PositionUseCase.
func NewPositionUseCase(
	positionRepo PositionRepository,
	lotRepo LotRepository,
	auditRepo AuditRepository,
	outboxRepo OutboxRepository,
	cache Cache,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *PositionUseCase {
	return &PositionUseCase{
		positionRepo: positionRepo,
		lotRepo:      lotRepo,
		auditRepo:    auditRepo,
		outboxRepo:   outboxRepo,
		cache:        cache,
		idGen:        idGen,
		metrics:      metrics,
	}
}

// OpenLotInput represents input for opening a lot.
type OpenLotInput struct {
	AccountID       string
	SecurityID      string
	Quantity        decimal.Decimal
	CostPerUnit     decimal.Decimal
	AcquisitionDate time.Time
	AcquisitionType domain.AcquisitionType

	// LotID, when set, becomes the lot's ID. The posting engine generates
	// it up front so the funding entry can carry a reference to the lot it
	// pays for before either row is written.
	LotID string
}

// OpenLot creates a lot inside the caller's storage transaction, creating
// the position row on first acquisition. Lots never exist without the
// journal transaction that funded them, so this only runs inside a posting.
func (uc *PositionUseCase) OpenLot(ctx context.Context, tx Transaction, input OpenLotInput) (*domain.Lot, error) {
	now := time.Now().UTC()

	if err := domain.ValidateSecurityID(input.SecurityID); err != nil {
		return nil, err
	}

	acqType := input.AcquisitionType
	if acqType == "" {
		acqType = domain.AcquisitionPurchase
	}

	acqDate := input.AcquisitionDate
	if acqDate.IsZero() {
		acqDate = now
	}

	position, err := uc.positionRepo.GetByAccountSecurity(ctx, input.AccountID, input.SecurityID)
	if errors.Is(err, domain.ErrPositionNotFound) {
		position = &domain.Position{
			ID:         uc.idGen.Generate(),
			AccountID:  input.AccountID,
			SecurityID: input.SecurityID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := uc.positionRepo.Create(ctx, tx, position); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if position.Frozen {
		return nil, domain.ErrPositionFrozen
	}

	lotID := input.LotID
	if lotID == "" {
		lotID = uc.idGen.Generate()
	}

	lot := &domain.Lot{
		ID:                lotID,
		PositionID:        position.ID,
		OriginalQuantity:  input.Quantity,
		RemainingQuantity: input.Quantity,
		CostPerUnit:       input.CostPerUnit,
		AcquisitionDate:   acqDate,
		AcquisitionType:   acqType,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := lot.Validate(); err != nil {
		return nil, err
	}

	if err := uc.lotRepo.Create(ctx, tx, lot); err != nil {
		return nil, err
	}

	if err := uc.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
		ID:           uc.idGen.Generate(),
		Action:       string(domain.AuditActionLotOpen),
		ResourceType: "lot",
		ResourceID:   lot.ID,
		AfterState:   domain.MarshalState(lot),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    now,
	}); err != nil {
		return nil, err
	}

	if err := uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   position.ID,
		AggregateType: domain.AggregateTypePosition,
		EventType:     domain.EventTypeLotOpened,
		Payload: domain.MarshalState(domain.LotOpenedEvent{
			LotID:           lot.ID,
			PositionID:      position.ID,
			Quantity:        lot.OriginalQuantity.String(),
			CostPerUnit:     lot.CostPerUnit.String(),
			AcquisitionDate: lot.AcquisitionDate.Format(time.RFC3339),
		}),
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	return lot, nil
}

// ApplyDisposal decrements lot remaining quantities inside the caller's
// storage transaction. After writing it re-derives the lot sum and compares
// it against the pre-disposal sum minus the sale quantity; a mismatch is a
// corruption-class failure reported as PositionCorruptedError. The caller
// must roll back its transaction and then call FreezeCorrupted, since the
// freeze cannot run while the transaction still holds the position row lock.
func (uc *PositionUseCase) ApplyDisposal(ctx context.Context, tx Transaction, positionID string, reductions []domain.LotReduction, saleQuantity decimal.Decimal) error {
	now := time.Now().UTC()

	lots, err := uc.lotRepo.ListOpenByPositionForUpdate(ctx, tx, positionID)
	if err != nil {
		return err
	}

	before := domain.OpenQuantity(lots)

	byID := make(map[string]*domain.Lot, len(lots))
	for _, l := range lots {
		byID[l.ID] = l
	}

	var total decimal.Decimal
	for _, r := range reductions {
		lot, ok := byID[r.LotID]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrLotNotFound, r.LotID)
		}
		if r.Quantity.GreaterThan(lot.RemainingQuantity) {
			return &domain.InsufficientLotsError{
				PositionID: positionID,
				Requested:  r.Quantity,
				Available:  lot.RemainingQuantity,
			}
		}
		total = total.Add(r.Quantity)
	}
	if !total.Equal(saleQuantity) {
		return domain.ErrDisposalMismatch
	}

	for _, r := range reductions {
		if err := uc.lotRepo.Reduce(ctx, tx, r.LotID, r.Quantity, now); err != nil {
			return err
		}
	}

	after, err := uc.lotRepo.ListOpenByPositionForUpdate(ctx, tx, positionID)
	if err != nil {
		return err
	}

	lotSum := domain.OpenQuantity(after)
	expected := before.Sub(saleQuantity)
	if !lotSum.Equal(expected) {
		return &domain.PositionCorruptedError{
			PositionID: positionID,
			LotSum:     lotSum,
			Expected:   expected,
		}
	}

	return nil
}

// FreezeCorrupted marks the position frozen on its own pool connection so
// the flag survives the rollback of the operation that detected the
// corruption. Callers must have released their storage transaction first;
// the rolled-back transaction still holds the position row lock and SetFrozen
// would block on it.
func (uc *PositionUseCase) FreezeCorrupted(ctx context.Context, cause *domain.PositionCorruptedError) error {
	now := time.Now().UTC()

	if err := uc.positionRepo.SetFrozen(ctx, cause.PositionID, true, now); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.PositionsFrozen.Inc()
	}

	_ = uc.auditRepo.Create(ctx, &domain.AuditLog{
		ID:           uc.idGen.Generate(),
		Action:       string(domain.AuditActionPositionFreeze),
		ResourceType: "position",
		ResourceID:   cause.PositionID,
		AfterState:   domain.JSON{"frozen": true, "lot_sum": cause.LotSum.String(), "expected": cause.Expected.String()},
		Status:       string(domain.AuditStatusError),
		ErrorMessage: cause.Error(),
		CreatedAt:    now,
	})

	return nil
}

// GetPositionSummary derives the position summary from open lots, with a
// short-lived Redis cache in front. Every mutation path invalidates the
// entry, so a stale read window is bounded by the TTL even if invalidation
// is lost.
func (uc *PositionUseCase) GetPositionSummary(ctx context.Context, positionID string) (*domain.PositionSummary, error) {
	key := summaryCacheKey(positionID)

	if data, err := uc.cache.Get(ctx, key); err == nil && data != nil {
		var cached domain.PositionSummary
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	position, err := uc.positionRepo.GetByID(ctx, positionID)
	if err != nil {
		return nil, err
	}

	lots, err := uc.lotRepo.ListByPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}

	summary := domain.Summarize(position, lots, time.Now().UTC())

	if data, err := json.Marshal(summary); err == nil {
		_ = uc.cache.Set(ctx, key, data, PositionSummaryTTL)
	}

	return &summary, nil
}

// InvalidateSummary drops the cached summary. Called after any committed
// mutation of the position's lots.
func (uc *PositionUseCase) InvalidateSummary(ctx context.Context, positionID string) {
	_ = uc.cache.Delete(ctx, summaryCacheKey(positionID))
}

// ListLots returns every lot of a position, open and closed.
func (uc *PositionUseCase) ListLots(ctx context.Context, positionID string) ([]*domain.Lot, error) {
	if _, err := uc.positionRepo.GetByID(ctx, positionID); err != nil {
		return nil, err
	}
	return uc.lotRepo.ListByPosition(ctx, positionID)
}

// GetPosition retrieves a position by ID.
func (uc *PositionUseCase) GetPosition(ctx context.Context, positionID string) (*domain.Position, error) {
	return uc.positionRepo.GetByID(ctx, positionID)
}

// ListPositionsByAccount lists an account's positions with pagination.
func (uc *PositionUseCase) ListPositionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Position, error) {
	limit, offset, err := domain.ValidatePagination(limit, offset)
	if err != nil {
		return nil, err
	}
	return uc.positionRepo.ListByAccount(ctx, accountID, limit, offset)
}

func summaryCacheKey(positionID string) string {
	return "position:summary:" + positionID
}
