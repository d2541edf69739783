package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCorporateAction_Validate(t *testing.T) {
	tests := []struct {
		name        string
		action      CorporateAction
		expectError error
	}{
		{
			name:   "valid split",
			action: CorporateAction{Type: ActionSplit, Ratio: qty("2")},
		},
		{
			name:        "split without ratio",
			action:      CorporateAction{Type: ActionSplit},
			expectError: ErrInvalidRatio,
		},
		{
			name: "valid spinoff",
			action: CorporateAction{
				Type:          ActionSpinoff,
				Ratio:         qty("0.5"),
				BasisPercent:  qty("20"),
				NewSecurityID: "NEWCO",
			},
		},
		{
			name: "spinoff basis percent out of range",
			action: CorporateAction{
				Type:          ActionSpinoff,
				Ratio:         qty("0.5"),
				BasisPercent:  qty("100"),
				NewSecurityID: "NEWCO",
			},
			expectError: ErrInvalidBasisPct,
		},
		{
			name: "spinoff without target security",
			action: CorporateAction{
				Type:         ActionSpinoff,
				Ratio:        qty("0.5"),
				BasisPercent: qty("20"),
			},
			expectError: ErrSecurityRequired,
		},
		{
			name: "merger without target security",
			action: CorporateAction{
				Type:  ActionMerger,
				Ratio: qty("0.75"),
			},
			expectError: ErrSecurityRequired,
		},
		{
			name:        "symbol change without target",
			action:      CorporateAction{Type: ActionSymbolChange},
			expectError: ErrSecurityRequired,
		},
		{
			name:        "unknown type",
			action:      CorporateAction{Type: CorporateActionType("dividend")},
			expectError: ErrInvalidRatio,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()

			if tt.expectError == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.expectError != nil && !errors.Is(err, tt.expectError) {
				t.Errorf("expected error %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestApplyAction_Split(t *testing.T) {
	open := []*Lot{
		{
			ID:                "lot-1",
			OriginalQuantity:  qty("100"),
			RemainingQuantity: qty("100"),
			CostPerUnit:       qty("10"),
			AcquisitionDate:   date(2024, 1, 1),
		},
	}

	action := &CorporateAction{
		ID:            "ca-1",
		SecurityID:    "AAPL",
		Type:          ActionSplit,
		EffectiveDate: date(2025, 6, 1),
		Ratio:         qty("4"),
	}

	result, err := ApplyAction(action, open, 365)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.LotChanges) != 1 {
		t.Fatalf("expected 1 lot change, got %d", len(result.LotChanges))
	}

	after := result.LotChanges[0].After
	if !after.RemainingQuantity.Equal(qty("400")) {
		t.Errorf("expected 400 shares after a 4:1 split, got %s", after.RemainingQuantity)
	}
	if !after.CostPerUnit.Equal(qty("2.5")) {
		t.Errorf("expected cost per unit 2.5, got %s", after.CostPerUnit)
	}
	if !after.AcquisitionDate.Equal(date(2024, 1, 1)) {
		t.Errorf("acquisition date must survive the split, got %s", after.AcquisitionDate)
	}

	if !result.CostBasisBefore.Equal(result.CostBasisAfter) {
		t.Errorf("split changed total basis: %s -> %s", result.CostBasisBefore, result.CostBasisAfter)
	}
}

func TestApplyAction_ReverseSplit(t *testing.T) {
	open := []*Lot{
		{
			ID:                "lot-1",
			OriginalQuantity:  qty("100"),
			RemainingQuantity: qty("100"),
			CostPerUnit:       qty("10"),
			AcquisitionDate:   date(2024, 1, 1),
		},
	}

	action := &CorporateAction{
		Type:  ActionReverseSplit,
		Ratio: qty("5"),
	}

	result, err := ApplyAction(action, open, 365)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := result.LotChanges[0].After
	if !after.RemainingQuantity.Equal(qty("20")) {
		t.Errorf("expected 20 shares after 1:5 reverse split, got %s", after.RemainingQuantity)
	}
	if !after.CostPerUnit.Equal(qty("50")) {
		t.Errorf("expected cost per unit 50, got %s", after.CostPerUnit)
	}
}

func TestApplyAction_Spinoff(t *testing.T) {
	open := []*Lot{
		{
			ID:                "lot-1",
			OriginalQuantity:  qty("100"),
			RemainingQuantity: qty("100"),
			CostPerUnit:       qty("10"),
			AcquisitionDate:   date(2024, 1, 1),
			AcquisitionType:   AcquisitionPurchase,
		},
	}

	action := &CorporateAction{
		Type:          ActionSpinoff,
		EffectiveDate: date(2025, 6, 1),
		Ratio:         qty("0.5"),
		BasisPercent:  qty("20"),
		NewSecurityID: "NEWCO",
	}

	result, err := ApplyAction(action, open, 365)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 20% of the 1000 basis moves to the new security.
	after := result.LotChanges[0].After
	if !after.RemainingQuantity.Equal(qty("100")) {
		t.Errorf("parent quantity must be unchanged, got %s", after.RemainingQuantity)
	}
	if !after.CostPerUnit.Equal(qty("8")) {
		t.Errorf("expected parent cost per unit 8, got %s", after.CostPerUnit)
	}

	if len(result.NewLots) != 1 {
		t.Fatalf("expected 1 new lot, got %d", len(result.NewLots))
	}
	newLot := result.NewLots[0]
	if !newLot.RemainingQuantity.Equal(qty("50")) {
		t.Errorf("expected 50 spinoff shares, got %s", newLot.RemainingQuantity)
	}
	if !newLot.CostPerUnit.Equal(qty("4")) {
		t.Errorf("expected spinoff cost per unit 4, got %s", newLot.CostPerUnit)
	}
	if !newLot.AcquisitionDate.Equal(date(2024, 1, 1)) {
		t.Errorf("spinoff lot must keep the original acquisition date, got %s", newLot.AcquisitionDate)
	}

	if !result.CostBasisBefore.Equal(result.CostBasisAfter) {
		t.Errorf("spinoff changed total basis: %s -> %s", result.CostBasisBefore, result.CostBasisAfter)
	}
}

func TestApplyAction_MergerWithCashInLieu(t *testing.T) {
	open := []*Lot{
		{
			ID:                "lot-1",
			OriginalQuantity:  qty("10"),
			RemainingQuantity: qty("10"),
			CostPerUnit:       qty("100"),
			AcquisitionDate:   date(2023, 1, 1),
			AcquisitionType:   AcquisitionPurchase,
		},
	}

	// 10 shares at 0.75: 7.5 converted shares, 7 whole plus 0.5 cash-in-lieu.
	action := &CorporateAction{
		Type:            ActionMerger,
		EffectiveDate:   date(2025, 6, 1),
		Ratio:           qty("0.75"),
		NewSecurityID:   "ACQ",
		CashInLieuPrice: qty("200"),
	}

	result, err := ApplyAction(action, open, 365)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.LotChanges[0].After.RemainingQuantity.IsZero() {
		t.Errorf("source lot should be emptied, got %s", result.LotChanges[0].After.RemainingQuantity)
	}

	if len(result.NewLots) != 1 {
		t.Fatalf("expected 1 new lot, got %d", len(result.NewLots))
	}
	newLot := result.NewLots[0]
	if !newLot.RemainingQuantity.Equal(qty("7")) {
		t.Errorf("expected 7 whole shares, got %s", newLot.RemainingQuantity)
	}
	if !newLot.AcquisitionDate.Equal(date(2023, 1, 1)) {
		t.Errorf("converted lot must keep the acquisition date, got %s", newLot.AcquisitionDate)
	}

	if len(result.CashInLieu) != 1 {
		t.Fatalf("expected 1 cash-in-lieu disposition, got %d", len(result.CashInLieu))
	}
	cil := result.CashInLieu[0]
	if !cil.Quantity.Equal(qty("0.5")) {
		t.Errorf("expected 0.5 fractional shares, got %s", cil.Quantity)
	}
	if !cil.Proceeds.Equal(qty("100")) {
		t.Errorf("expected 100 proceeds, got %s", cil.Proceeds)
	}
	if cil.HoldingPeriod != LongTerm {
		t.Errorf("expected long-term fractional disposition, got %s", cil.HoldingPeriod)
	}

	// Whole-share basis plus the basis realized in cash must equal the
	// original 1000 within tolerance.
	drift := result.CostBasisBefore.Sub(result.CostBasisAfter).Abs()
	if drift.GreaterThan(qty("0.01")) {
		t.Errorf("merger basis drift %s exceeds tolerance", drift)
	}
}

func TestApplyAction_SymbolChange(t *testing.T) {
	action := &CorporateAction{
		Type:          ActionSymbolChange,
		NewSecurityID: "META",
	}

	result, err := ApplyAction(action, nil, 365)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.LotChanges) != 0 || len(result.NewLots) != 0 {
		t.Errorf("symbol change must not touch lots")
	}
}

func TestApplyAction_NoOpenLots(t *testing.T) {
	action := &CorporateAction{Type: ActionSplit, Ratio: qty("2")}

	_, err := ApplyAction(action, nil, 365)
	if !errors.Is(err, ErrNoOpenLots) {
		t.Errorf("expected ErrNoOpenLots, got %v", err)
	}
}

func TestApplyAction_PartiallyDisposedLot(t *testing.T) {
	// A split rescales the remaining quantity, not the original buy.
	open := []*Lot{
		{
			ID:                "lot-1",
			OriginalQuantity:  qty("100"),
			RemainingQuantity: qty("40"),
			CostPerUnit:       qty("10"),
			AcquisitionDate:   date(2024, 1, 1),
		},
	}

	action := &CorporateAction{Type: ActionSplit, Ratio: qty("2")}

	result, err := ApplyAction(action, open, 365)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := result.LotChanges[0].After
	if !after.RemainingQuantity.Equal(qty("80")) {
		t.Errorf("expected 80 remaining, got %s", after.RemainingQuantity)
	}
	if !after.CostPerUnit.Equal(qty("5")) {
		t.Errorf("expected cost per unit 5, got %s", after.CostPerUnit)
	}
	if !decimal.NewFromInt(400).Equal(after.RemainingCost()) {
		t.Errorf("remaining basis should stay 400, got %s", after.RemainingCost())
	}
}
