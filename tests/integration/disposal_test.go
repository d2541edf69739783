package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/usecase"
	"github.com/iho/lotledger/tests/testutil"
)

func TestFIFODisposalRealizesLongTermGain(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	s := newStack(ctx, t, testDB)

	holdings := testDB.CreateTestAccount(ctx, "holdings", domain.AccountTypeAsset, "owner-1")
	cash := testDB.CreateTestAccount(ctx, "cash", domain.AccountTypeAsset, "owner-1")
	gains := testDB.CreateTestAccount(ctx, "realized gains", domain.AccountTypeIncome, "owner-1")

	buyDate := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	if _, err := s.postingUC.PostTransaction(ctx, usecase.PostTransactionInput{
		Date: buyDate,
		Memo: "buy 100 ACME at 10",
		Entries: []usecase.EntryInput{
			{AccountID: holdings.ID, Debit: decimal.NewFromInt(1000)},
			{AccountID: cash.ID, Credit: decimal.NewFromInt(1000)},
		},
		OpenLots: []usecase.OpenLotInput{{
			AccountID:       holdings.ID,
			SecurityID:      "ACME",
			Quantity:        decimal.NewFromInt(100),
			CostPerUnit:     decimal.NewFromInt(10),
			AcquisitionDate: buyDate,
		}},
	}); err != nil {
		t.Fatalf("failed to open lot: %v", err)
	}

	positions, err := s.positionUC.ListPositionsByAccount(ctx, holdings.ID, 10, 0)
	if err != nil || len(positions) != 1 {
		t.Fatalf("expected one position, got %v, %v", positions, err)
	}
	positionID := positions[0].ID

	saleDate := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	result, err := s.disposalUC.SelectAndDispose(ctx, usecase.SelectAndDisposeInput{
		PositionID:        positionID,
		Quantity:          decimal.NewFromInt(60),
		Proceeds:          decimal.NewFromInt(900),
		SaleDate:          saleDate,
		Method:            domain.FIFO,
		CashAccountID:     cash.ID,
		GainLossAccountID: gains.ID,
		Memo:              "sell 60 ACME",
	})
	if err != nil {
		t.Fatalf("failed to dispose: %v", err)
	}

	if !result.TotalCostRemoved.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("expected cost removed 600, got %s", result.TotalCostRemoved)
	}
	if !result.TotalGainLoss.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected gain 300, got %s", result.TotalGainLoss)
	}
	if len(result.Dispositions) != 1 || result.Dispositions[0].HoldingPeriod != domain.LongTerm {
		t.Fatalf("expected one long-term disposition, got %+v", result.Dispositions)
	}

	summary, err := s.positionUC.GetPositionSummary(ctx, positionID)
	if err != nil {
		t.Fatalf("failed to get summary: %v", err)
	}
	if !summary.Quantity.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected 40 shares remaining, got %s", summary.Quantity)
	}

	report, err := s.reportUC.RealizedGains(ctx, holdings.ID, buyDate, saleDate.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("failed to build report: %v", err)
	}
	if !report.LongTermGain.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected long-term gain 300, got %s", report.LongTermGain)
	}
}

func TestWashSaleDisallowsLossAndMovesBasis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	s := newStack(ctx, t, testDB)

	holdings := testDB.CreateTestAccount(ctx, "holdings", domain.AccountTypeAsset, "owner-1")
	cash := testDB.CreateTestAccount(ctx, "cash", domain.AccountTypeAsset, "owner-1")
	gains := testDB.CreateTestAccount(ctx, "realized gains", domain.AccountTypeIncome, "owner-1")

	// Original lot: 40 shares at 10
	originalDate := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	if _, err := s.postingUC.PostTransaction(ctx, usecase.PostTransactionInput{
		Date: originalDate,
		Entries: []usecase.EntryInput{
			{AccountID: holdings.ID, Debit: decimal.NewFromInt(400)},
			{AccountID: cash.ID, Credit: decimal.NewFromInt(400)},
		},
		OpenLots: []usecase.OpenLotInput{{
			AccountID:       holdings.ID,
			SecurityID:      "ACME",
			Quantity:        decimal.NewFromInt(40),
			CostPerUnit:     decimal.NewFromInt(10),
			AcquisitionDate: originalDate,
		}},
	}); err != nil {
		t.Fatalf("failed to open original lot: %v", err)
	}

	// Replacement lot: 40 shares bought 13 days before the loss sale
	replacementDate := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)
	if _, err := s.postingUC.PostTransaction(ctx, usecase.PostTransactionInput{
		Date: replacementDate,
		Entries: []usecase.EntryInput{
			{AccountID: holdings.ID, Debit: decimal.NewFromInt(320)},
			{AccountID: cash.ID, Credit: decimal.NewFromInt(320)},
		},
		OpenLots: []usecase.OpenLotInput{{
			AccountID:       holdings.ID,
			SecurityID:      "ACME",
			Quantity:        decimal.NewFromInt(40),
			CostPerUnit:     decimal.NewFromInt(8),
			AcquisitionDate: replacementDate,
		}},
	}); err != nil {
		t.Fatalf("failed to open replacement lot: %v", err)
	}

	positions, err := s.positionUC.ListPositionsByAccount(ctx, holdings.ID, 10, 0)
	if err != nil || len(positions) != 1 {
		t.Fatalf("expected one position, got %v, %v", positions, err)
	}
	positionID := positions[0].ID

	// Sell the original 40 shares at a loss of 80. FIFO consumes the
	// older lot, leaving the replacement untouched.
	saleDate := time.Date(2025, time.February, 2, 0, 0, 0, 0, time.UTC)
	result, err := s.disposalUC.SelectAndDispose(ctx, usecase.SelectAndDisposeInput{
		PositionID:        positionID,
		Quantity:          decimal.NewFromInt(40),
		Proceeds:          decimal.NewFromInt(320),
		SaleDate:          saleDate,
		Method:            domain.FIFO,
		CashAccountID:     cash.ID,
		GainLossAccountID: gains.ID,
	})
	if err != nil {
		t.Fatalf("failed to dispose: %v", err)
	}

	if !result.TotalGainLoss.Equal(decimal.NewFromInt(-80)) {
		t.Fatalf("expected loss of 80, got %s", result.TotalGainLoss)
	}
	if len(result.WashSales) != 1 {
		t.Fatalf("expected one wash sale finding, got %d", len(result.WashSales))
	}
	if !result.WashSales[0].DisallowedLoss.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected disallowed loss 80, got %s", result.WashSales[0].DisallowedLoss)
	}
	if !result.Dispositions[0].WashSaleDisallowed.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected disposition fully disallowed, got %s", result.Dispositions[0].WashSaleDisallowed)
	}

	// The disallowed loss moved onto the replacement lot's basis: 8 + 80/40
	lots, err := s.positionUC.ListLots(ctx, positionID)
	if err != nil {
		t.Fatalf("failed to list lots: %v", err)
	}
	var replacement *domain.Lot
	for _, l := range lots {
		if l.RemainingQuantity.IsPositive() {
			replacement = l
		}
	}
	if replacement == nil {
		t.Fatal("expected replacement lot to remain open")
	}
	if !replacement.CostPerUnit.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected adjusted cost per unit 10, got %s", replacement.CostPerUnit)
	}
	if !replacement.WashSaleDisallowed.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected wash sale basis 80 recorded, got %s", replacement.WashSaleDisallowed)
	}

	// Disallowed losses drop out of the reportable totals
	report, err := s.reportUC.RealizedGains(ctx, holdings.ID, originalDate, saleDate.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("failed to build report: %v", err)
	}
	if !report.ShortTermGain.IsZero() || !report.LongTermGain.IsZero() {
		t.Fatalf("expected fully disallowed loss to be excluded, got ST %s LT %s",
			report.ShortTermGain, report.LongTermGain)
	}
	if !report.WashSaleDisallowed.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected disallowed total 80, got %s", report.WashSaleDisallowed)
	}
}
