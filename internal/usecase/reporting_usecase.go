package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
)

// ReportingUseCase serves read-only tax and position reports. It never
// mutates anything.
type ReportingUseCase struct {
	accountRepo     AccountRepository
	positionRepo    PositionRepository
	lotRepo         LotRepository
	dispositionRepo DispositionRepository
}

// NewReportingUseCase creates a new ReportingUseCase.
func NewReportingUseCase(
	accountRepo AccountRepository,
	positionRepo PositionRepository,
	lotRepo LotRepository,
	dispositionRepo DispositionRepository,
) *ReportingUseCase {
	return &ReportingUseCase{
		accountRepo:     accountRepo,
		positionRepo:    positionRepo,
		lotRepo:         lotRepo,
		dispositionRepo: dispositionRepo,
	}
}

// RealizedGainsReport partitions an account's realized gain/loss over a
// date range by holding period, net of wash-sale disallowed amounts.
type RealizedGainsReport struct {
	AccountID          string
	From               time.Time
	To                 time.Time
	ShortTermGain      decimal.Decimal
	LongTermGain       decimal.Decimal
	TotalProceeds      decimal.Decimal
	TotalCostRemoved   decimal.Decimal
	WashSaleDisallowed decimal.Decimal
	Dispositions       []*domain.Disposition
}

// RealizedGains builds the realized gain/loss ledger for an account. The
// reportable gain excludes losses disallowed by the wash-sale rule; those
// amounts live on as basis in the replacement lots.
func (uc *ReportingUseCase) RealizedGains(ctx context.Context, accountID string, from, to time.Time) (*RealizedGainsReport, error) {
	if _, err := uc.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	dispositions, err := uc.dispositionRepo.ListByAccount(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}

	report := &RealizedGainsReport{
		AccountID:    accountID,
		From:         from,
		To:           to,
		Dispositions: dispositions,
	}

	for _, d := range dispositions {
		reportable := d.GainLoss
		if d.GainLoss.IsNegative() && d.WashSaleDisallowed.IsPositive() {
			reportable = d.GainLoss.Add(d.WashSaleDisallowed)
		}

		switch d.HoldingPeriod {
		case domain.LongTerm:
			report.LongTermGain = report.LongTermGain.Add(reportable)
		default:
			report.ShortTermGain = report.ShortTermGain.Add(reportable)
		}

		report.TotalProceeds = report.TotalProceeds.Add(d.Proceeds)
		report.TotalCostRemoved = report.TotalCostRemoved.Add(d.CostBasisRemoved)
		report.WashSaleDisallowed = report.WashSaleDisallowed.Add(d.WashSaleDisallowed)
	}

	return report, nil
}

// LotHistoryEntry pairs a lot with its realized dispositions.
type LotHistoryEntry struct {
	Lot          *domain.Lot
	Dispositions []*domain.Disposition
}

// LotHistory returns every lot of a position, open and closed, with the
// dispositions that consumed each one.
func (uc *ReportingUseCase) LotHistory(ctx context.Context, positionID string) ([]*LotHistoryEntry, error) {
	if _, err := uc.positionRepo.GetByID(ctx, positionID); err != nil {
		return nil, err
	}

	lots, err := uc.lotRepo.ListByPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}

	history := make([]*LotHistoryEntry, 0, len(lots))
	for _, lot := range lots {
		dispositions, err := uc.dispositionRepo.ListByLot(ctx, lot.ID)
		if err != nil {
			return nil, err
		}
		history = append(history, &LotHistoryEntry{Lot: lot, Dispositions: dispositions})
	}

	return history, nil
}

// WashSaleFindings lists the dispositions in the range whose loss was
// partly or fully disallowed.
func (uc *ReportingUseCase) WashSaleFindings(ctx context.Context, accountID string, from, to time.Time) ([]*domain.Disposition, error) {
	dispositions, err := uc.dispositionRepo.ListByAccount(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}

	var flagged []*domain.Disposition
	for _, d := range dispositions {
		if d.WashSaleDisallowed.IsPositive() {
			flagged = append(flagged, d)
		}
	}

	return flagged, nil
}
