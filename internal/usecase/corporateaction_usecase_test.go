package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/usecase"
	"github.com/iho/lotledger/internal/usecase/mocks"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

type actionFixture struct {
	uc       *usecase.CorporateActionUseCase
	txm      *mocks.MockTransactionManager
	posRepo  *mocks.MockPositionRepository
	lotRepo  *mocks.MockLotRepository
	dispRepo *mocks.MockDispositionRepository
	audits   *mocks.MockAuditRepository
	outbox   *mocks.MockOutboxRepository
}

func newActionFixture() *actionFixture {
	f := &actionFixture{
		txm:      mocks.NewMockTransactionManager(),
		posRepo:  mocks.NewMockPositionRepository(),
		lotRepo:  mocks.NewMockLotRepository(),
		dispRepo: mocks.NewMockDispositionRepository(),
		audits:   mocks.NewMockAuditRepository(),
		outbox:   mocks.NewMockOutboxRepository(),
	}
	idGen := mocks.NewMockIDGenerator()
	positions := usecase.NewPositionUseCase(f.posRepo, f.lotRepo, f.audits, f.outbox, nopCache{}, idGen, nil)
	f.uc = usecase.NewCorporateActionUseCase(f.txm, f.posRepo, f.lotRepo, f.dispRepo, positions, f.audits, f.outbox, idGen, nil, 365)
	return f
}

func (f *actionFixture) seedLot(positionID, lotID string, quantity, cost int64, acquired time.Time) {
	f.lotRepo.Seed(&domain.Lot{
		ID:                lotID,
		PositionID:        positionID,
		OriginalQuantity:  decimal.NewFromInt(quantity),
		RemainingQuantity: decimal.NewFromInt(quantity),
		CostPerUnit:       decimal.NewFromInt(cost),
		AcquisitionDate:   acquired,
		AcquisitionType:   domain.AcquisitionPurchase,
	})
}

func TestCorporateActionUseCase_Split(t *testing.T) {
	f := newActionFixture()
	f.posRepo.Seed(&domain.Position{ID: "pos-1", AccountID: "brokerage", SecurityID: "AAPL"})
	f.seedLot("pos-1", "lot-1", 100, 10, date(2024, 1, 1))

	result, err := f.uc.Apply(context.Background(), usecase.ApplyActionInput{
		SecurityID:    "AAPL",
		Type:          domain.ActionSplit,
		EffectiveDate: date(2025, 6, 1),
		Ratio:         decimal.NewFromInt(4),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.txm.LastTx.Committed {
		t.Error("transaction should be committed")
	}

	lot, err := f.lotRepo.GetByID(context.Background(), "lot-1")
	if err != nil {
		t.Fatalf("lot vanished: %v", err)
	}
	if !lot.RemainingQuantity.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected 400 shares after 4:1 split, got %s", lot.RemainingQuantity)
	}
	if !lot.CostPerUnit.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("expected cost per unit 2.5, got %s", lot.CostPerUnit)
	}
	if !result.CostBasisBefore.Equal(result.CostBasisAfter) {
		t.Errorf("split must not change total basis: before %s after %s", result.CostBasisBefore, result.CostBasisAfter)
	}

	// Retroactive basis changes always get a before/after audit record.
	var audited bool
	for _, l := range f.audits.Logs() {
		if l.Action == string(domain.AuditActionCorporateApply) && l.ResourceID == "lot-1" {
			audited = true
		}
	}
	if !audited {
		t.Error("lot rewrite must be audited")
	}
}

func TestCorporateActionUseCase_SpinoffCreatesTargetPosition(t *testing.T) {
	f := newActionFixture()
	f.posRepo.Seed(&domain.Position{ID: "pos-1", AccountID: "brokerage", SecurityID: "PARENT"})
	f.seedLot("pos-1", "lot-1", 100, 10, date(2024, 1, 1))

	result, err := f.uc.Apply(context.Background(), usecase.ApplyActionInput{
		SecurityID:    "PARENT",
		Type:          domain.ActionSpinoff,
		EffectiveDate: date(2025, 6, 1),
		Ratio:         decimal.RequireFromString("0.5"),
		BasisPercent:  decimal.NewFromInt(20),
		NewSecurityID: "CHILD",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.NewLots) != 1 {
		t.Fatalf("expected 1 spinoff lot, got %d", len(result.NewLots))
	}

	target, err := f.posRepo.GetByAccountSecurity(context.Background(), "brokerage", "CHILD")
	if err != nil {
		t.Fatalf("spinoff position should exist on the same account: %v", err)
	}

	lots, err := f.lotRepo.ListByPosition(context.Background(), target.ID)
	if err != nil || len(lots) != 1 {
		t.Fatalf("expected 1 lot in CHILD position, got %d (%v)", len(lots), err)
	}
	child := lots[0]
	if !child.RemainingQuantity.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected 50 spinoff shares, got %s", child.RemainingQuantity)
	}
	if !child.CostPerUnit.Equal(decimal.NewFromInt(4)) {
		t.Errorf("expected spinoff cost per unit 4, got %s", child.CostPerUnit)
	}
	if !child.AcquisitionDate.Equal(date(2024, 1, 1)) {
		t.Errorf("spinoff lot must inherit the parent acquisition date, got %s", child.AcquisitionDate)
	}

	parent, _ := f.lotRepo.GetByID(context.Background(), "lot-1")
	if !parent.CostPerUnit.Equal(decimal.NewFromInt(8)) {
		t.Errorf("expected parent cost per unit 8 after 20%% carve-out, got %s", parent.CostPerUnit)
	}
}

func TestCorporateActionUseCase_MergerBooksCashInLieu(t *testing.T) {
	f := newActionFixture()
	f.posRepo.Seed(&domain.Position{ID: "pos-1", AccountID: "brokerage", SecurityID: "OLD"})
	f.seedLot("pos-1", "lot-1", 10, 100, date(2023, 1, 1))

	var batchTxnID string
	var batchStored []domain.Disposition
	f.dispRepo.CreateBatchFunc = func(ctx context.Context, tx usecase.Transaction, transactionID string, dispositions []domain.Disposition) error {
		batchTxnID = transactionID
		batchStored = append(batchStored, dispositions...)
		return nil
	}

	result, err := f.uc.Apply(context.Background(), usecase.ApplyActionInput{
		SecurityID:      "OLD",
		Type:            domain.ActionMerger,
		EffectiveDate:   date(2025, 6, 1),
		Ratio:           decimal.RequireFromString("0.75"),
		NewSecurityID:   "NEW",
		CashInLieuPrice: decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.CashInLieu) != 1 {
		t.Fatalf("expected 1 cash-in-lieu disposition, got %d", len(result.CashInLieu))
	}
	cil := result.CashInLieu[0]
	if !cil.Quantity.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("expected 0.5 fractional shares, got %s", cil.Quantity)
	}
	if !cil.Proceeds.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected proceeds 100, got %s", cil.Proceeds)
	}

	// The fractional remainder is persisted without a journal transaction.
	if len(batchStored) != 1 {
		t.Fatalf("expected 1 stored disposition, got %d", len(batchStored))
	}
	if batchTxnID != "" {
		t.Errorf("cash-in-lieu must not reference a transaction, got %q", batchTxnID)
	}

	target, err := f.posRepo.GetByAccountSecurity(context.Background(), "brokerage", "NEW")
	if err != nil {
		t.Fatalf("merger target position should exist: %v", err)
	}
	lots, _ := f.lotRepo.ListByPosition(context.Background(), target.ID)
	if len(lots) != 1 {
		t.Fatalf("expected 1 lot in NEW position, got %d", len(lots))
	}
	if !lots[0].RemainingQuantity.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected 7 whole shares, got %s", lots[0].RemainingQuantity)
	}
}

func TestCorporateActionUseCase_SymbolChange(t *testing.T) {
	f := newActionFixture()
	f.posRepo.Seed(&domain.Position{ID: "pos-1", AccountID: "brokerage", SecurityID: "FB"})
	f.seedLot("pos-1", "lot-1", 100, 10, date(2024, 1, 1))

	_, err := f.uc.Apply(context.Background(), usecase.ApplyActionInput{
		SecurityID:    "FB",
		Type:          domain.ActionSymbolChange,
		EffectiveDate: date(2025, 6, 1),
		NewSecurityID: "META",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	position, _ := f.posRepo.GetByID(context.Background(), "pos-1")
	if position.SecurityID != "META" {
		t.Errorf("expected security META, got %s", position.SecurityID)
	}

	lot, _ := f.lotRepo.GetByID(context.Background(), "lot-1")
	if !lot.RemainingQuantity.Equal(decimal.NewFromInt(100)) || !lot.CostPerUnit.Equal(decimal.NewFromInt(10)) {
		t.Error("symbol change must not touch quantities or basis")
	}
}

func TestCorporateActionUseCase_NoOpenLots(t *testing.T) {
	f := newActionFixture()

	_, err := f.uc.Apply(context.Background(), usecase.ApplyActionInput{
		SecurityID: "GHOST",
		Type:       domain.ActionSplit,
		Ratio:      decimal.NewFromInt(2),
	})
	if !errors.Is(err, domain.ErrNoOpenLots) {
		t.Errorf("expected ErrNoOpenLots, got %v", err)
	}
}

func TestCorporateActionUseCase_FrozenPositionBlocksAction(t *testing.T) {
	f := newActionFixture()
	f.posRepo.Seed(&domain.Position{ID: "pos-1", AccountID: "brokerage", SecurityID: "AAPL", Frozen: true})
	f.seedLot("pos-1", "lot-1", 100, 10, date(2024, 1, 1))

	_, err := f.uc.Apply(context.Background(), usecase.ApplyActionInput{
		SecurityID: "AAPL",
		Type:       domain.ActionSplit,
		Ratio:      decimal.NewFromInt(2),
	})
	if !errors.Is(err, domain.ErrPositionFrozen) {
		t.Errorf("expected ErrPositionFrozen, got %v", err)
	}
	if f.txm.LastTx == nil || f.txm.LastTx.Committed {
		t.Error("transaction must be rolled back")
	}
}

func TestCorporateActionUseCase_InvalidAction(t *testing.T) {
	f := newActionFixture()

	_, err := f.uc.Apply(context.Background(), usecase.ApplyActionInput{
		SecurityID: "AAPL",
		Type:       domain.ActionSplit,
		Ratio:      decimal.Zero,
	})
	if !errors.Is(err, domain.ErrInvalidRatio) {
		t.Errorf("expected ErrInvalidRatio, got %v", err)
	}
	if f.txm.LastTx != nil {
		t.Error("invalid input must be rejected before any transaction starts")
	}
}
