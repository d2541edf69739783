package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/lotledger/internal/domain"
)

// ReconciliationUseCase verifies the two structural invariants at rest:
// ledger-wide balance and per-position lot arithmetic.
type ReconciliationUseCase struct {
	accountRepo     AccountRepository
	positionRepo    PositionRepository
	lotRepo         LotRepository
	dispositionRepo DispositionRepository
	ledgerRepo      LedgerRepository
}

// NewReconciliationUseCase creates a new reconciliation use case.
func NewReconciliationUseCase(
	accountRepo AccountRepository,
	positionRepo PositionRepository,
	lotRepo LotRepository,
	dispositionRepo DispositionRepository,
	ledgerRepo LedgerRepository,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo:     accountRepo,
		positionRepo:    positionRepo,
		lotRepo:         lotRepo,
		dispositionRepo: dispositionRepo,
		ledgerRepo:      ledgerRepo,
	}
}

// CheckLedgerConsistency verifies double-entry bookkeeping consistency:
// the sum of all debits equals the sum of all credits, in SQL, over the
// whole entry history.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) error {
	totalDebits, totalCredits, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return err
	}

	if !totalDebits.Equal(totalCredits) {
		return fmt.Errorf(
			"ledger inconsistency detected: debits=%s credits=%s difference=%s",
			totalDebits.String(),
			totalCredits.String(),
			totalDebits.Sub(totalCredits).String(),
		)
	}

	return nil
}

// PositionCheck is the outcome of one position's lot-arithmetic sweep.
type PositionCheck struct {
	PositionID string
	SecurityID string
	Frozen     bool
	Consistent bool
	Detail     string
}

// CheckPosition verifies that each lot's remaining quantity equals its
// original quantity minus everything disposed from it.
func (uc *ReconciliationUseCase) CheckPosition(ctx context.Context, positionID string) (*PositionCheck, error) {
	position, err := uc.positionRepo.GetByID(ctx, positionID)
	if err != nil {
		return nil, err
	}

	check := &PositionCheck{
		PositionID: position.ID,
		SecurityID: position.SecurityID,
		Frozen:     position.Frozen,
		Consistent: true,
	}

	lots, err := uc.lotRepo.ListByPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}

	reduced, err := uc.dispositionRepo.SumReducedByLot(ctx, positionID)
	if err != nil {
		return nil, err
	}

	for _, lot := range lots {
		expected := lot.OriginalQuantity.Sub(reduced[lot.ID])
		if !lot.RemainingQuantity.Equal(expected) {
			check.Consistent = false
			check.Detail = fmt.Sprintf("lot %s: remaining %s, expected %s",
				lot.ID, lot.RemainingQuantity, expected)
			break
		}
		if lot.RemainingQuantity.IsNegative() {
			check.Consistent = false
			check.Detail = fmt.Sprintf("lot %s: negative remaining quantity %s", lot.ID, lot.RemainingQuantity)
			break
		}
	}

	return check, nil
}

// ReconciliationReport is the full-system sweep result.
type ReconciliationReport struct {
	TotalPositions      int
	ConsistentPositions int
	FrozenPositions     int
	Discrepancies       []*PositionCheck
	LedgerConsistent    bool
	CheckedAt           time.Time
}

// GenerateReport sweeps every account's positions and the ledger balance.
func (uc *ReconciliationUseCase) GenerateReport(ctx context.Context) (*ReconciliationReport, error) {
	limit, offset, _ := domain.ValidatePagination(1000, 0)
	accounts, err := uc.accountRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		Discrepancies:    make([]*PositionCheck, 0),
		LedgerConsistent: uc.CheckLedgerConsistency(ctx) == nil,
		CheckedAt:        time.Now().UTC(),
	}

	for _, account := range accounts {
		positions, err := uc.positionRepo.ListByAccount(ctx, account.ID, limit, 0)
		if err != nil {
			return nil, err
		}

		for _, position := range positions {
			check, err := uc.CheckPosition(ctx, position.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to check position %s: %w", position.ID, err)
			}

			report.TotalPositions++
			if check.Frozen {
				report.FrozenPositions++
			}
			if check.Consistent {
				report.ConsistentPositions++
			} else {
				report.Discrepancies = append(report.Discrepancies, check)
			}
		}
	}

	return report, nil
}
