package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseDisposalMethod(t *testing.T) {
	tests := []struct {
		input   string
		expect  DisposalMethod
		wantErr bool
	}{
		{input: "fifo", expect: FIFO},
		{input: "lifo", expect: LIFO},
		{input: "specific", expect: SpecificID},
		{input: "average", expect: AverageCost},
		{input: "min-gain", expect: MinimizeGain},
		{input: "max-gain", expect: MaximizeGain},
		{input: "hifo", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDisposalMethod(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownMethod) {
					t.Errorf("expected ErrUnknownMethod, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Errorf("expected %s, got %s", tt.expect, got)
			}
		})
	}
}

func TestSelectLots_FIFOLongTermGain(t *testing.T) {
	// 100 shares bought at $10 on 2024-01-01, 60 sold at $15 on 2025-02-01.
	open := []*Lot{
		{
			ID:                "lot-1",
			PositionID:        "pos-1",
			OriginalQuantity:  qty("100"),
			RemainingQuantity: qty("100"),
			CostPerUnit:       qty("10"),
			AcquisitionDate:   date(2024, 1, 1),
		},
	}

	comp, err := SelectLots("pos-1", open, DisposalRequest{
		Quantity:             qty("60"),
		Proceeds:             qty("900"),
		SaleDate:             date(2025, 2, 1),
		Method:               FIFO,
		HoldingThresholdDays: 365,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(comp.Dispositions) != 1 {
		t.Fatalf("expected 1 disposition, got %d", len(comp.Dispositions))
	}

	d := comp.Dispositions[0]
	if !d.Quantity.Equal(qty("60")) {
		t.Errorf("expected quantity 60, got %s", d.Quantity)
	}
	if !d.CostBasisRemoved.Equal(qty("600")) {
		t.Errorf("expected cost removed 600, got %s", d.CostBasisRemoved)
	}
	if !d.Proceeds.Equal(qty("900")) {
		t.Errorf("expected proceeds 900, got %s", d.Proceeds)
	}
	if !d.GainLoss.Equal(qty("300")) {
		t.Errorf("expected gain 300, got %s", d.GainLoss)
	}
	if d.HoldingPeriod != LongTerm {
		t.Errorf("expected long-term, got %s", d.HoldingPeriod)
	}

	if !comp.TotalCostRemoved.Equal(qty("600")) || !comp.TotalGainLoss.Equal(qty("300")) {
		t.Errorf("unexpected totals: cost=%s gain=%s", comp.TotalCostRemoved, comp.TotalGainLoss)
	}
}

func TestSelectLots_FIFOOrdering(t *testing.T) {
	open := []*Lot{
		{ID: "lot-new", RemainingQuantity: qty("100"), CostPerUnit: qty("20"), AcquisitionDate: date(2025, 1, 1)},
		{ID: "lot-old", RemainingQuantity: qty("50"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 1, 1)},
	}

	comp, err := SelectLots("pos-1", open, DisposalRequest{
		Quantity:             qty("70"),
		Proceeds:             qty("1050"),
		SaleDate:             date(2025, 6, 1),
		Method:               FIFO,
		HoldingThresholdDays: 365,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(comp.Dispositions) != 2 {
		t.Fatalf("expected 2 dispositions, got %d", len(comp.Dispositions))
	}

	// Oldest lot fully consumed, then 20 from the newer lot.
	if comp.Dispositions[0].LotID != "lot-old" || !comp.Dispositions[0].Quantity.Equal(qty("50")) {
		t.Errorf("expected 50 from lot-old first, got %s from %s",
			comp.Dispositions[0].Quantity, comp.Dispositions[0].LotID)
	}
	if comp.Dispositions[1].LotID != "lot-new" || !comp.Dispositions[1].Quantity.Equal(qty("20")) {
		t.Errorf("expected 20 from lot-new second, got %s from %s",
			comp.Dispositions[1].Quantity, comp.Dispositions[1].LotID)
	}

	// 50*10 + 20*20 = 900 removed; proceeds 15/share.
	if !comp.TotalCostRemoved.Equal(qty("900")) {
		t.Errorf("expected cost removed 900, got %s", comp.TotalCostRemoved)
	}
	if !comp.TotalGainLoss.Equal(qty("150")) {
		t.Errorf("expected gain 150, got %s", comp.TotalGainLoss)
	}
}

func TestSelectLots_LIFO(t *testing.T) {
	open := []*Lot{
		{ID: "lot-old", RemainingQuantity: qty("50"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 1, 1)},
		{ID: "lot-new", RemainingQuantity: qty("50"), CostPerUnit: qty("20"), AcquisitionDate: date(2025, 1, 1)},
	}

	comp, err := SelectLots("pos-1", open, DisposalRequest{
		Quantity:             qty("30"),
		Proceeds:             qty("750"),
		SaleDate:             date(2025, 6, 1),
		Method:               LIFO,
		HoldingThresholdDays: 365,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(comp.Dispositions) != 1 || comp.Dispositions[0].LotID != "lot-new" {
		t.Fatalf("expected single disposition from lot-new, got %+v", comp.Dispositions)
	}
	if comp.Dispositions[0].HoldingPeriod != ShortTerm {
		t.Errorf("expected short-term, got %s", comp.Dispositions[0].HoldingPeriod)
	}
}

func TestSelectLots_MinimizeMaximizeGain(t *testing.T) {
	// Sale at 15/share: lot-high has per-unit gain -5, lot-low has +5.
	open := []*Lot{
		{ID: "lot-low", RemainingQuantity: qty("50"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 1, 1)},
		{ID: "lot-high", RemainingQuantity: qty("50"), CostPerUnit: qty("20"), AcquisitionDate: date(2024, 6, 1)},
	}

	req := DisposalRequest{
		Quantity:             qty("50"),
		Proceeds:             qty("750"),
		SaleDate:             date(2025, 6, 1),
		HoldingThresholdDays: 365,
	}

	req.Method = MinimizeGain
	comp, err := SelectLots("pos-1", open, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comp.Dispositions[0].LotID != "lot-high" {
		t.Errorf("min-gain should consume the high-cost lot first, got %s", comp.Dispositions[0].LotID)
	}
	if !comp.TotalGainLoss.Equal(qty("-250")) {
		t.Errorf("expected loss -250, got %s", comp.TotalGainLoss)
	}

	req.Method = MaximizeGain
	comp, err = SelectLots("pos-1", open, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comp.Dispositions[0].LotID != "lot-low" {
		t.Errorf("max-gain should consume the low-cost lot first, got %s", comp.Dispositions[0].LotID)
	}
	if !comp.TotalGainLoss.Equal(qty("250")) {
		t.Errorf("expected gain 250, got %s", comp.TotalGainLoss)
	}
}

func TestSelectLots_SpecificID(t *testing.T) {
	open := []*Lot{
		{ID: "lot-1", RemainingQuantity: qty("50"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 1, 1)},
		{ID: "lot-2", RemainingQuantity: qty("50"), CostPerUnit: qty("20"), AcquisitionDate: date(2024, 6, 1)},
	}

	tests := []struct {
		name        string
		specific    []LotReduction
		expectError error
	}{
		{
			name: "valid selection",
			specific: []LotReduction{
				{LotID: "lot-1", Quantity: qty("10")},
				{LotID: "lot-2", Quantity: qty("20")},
			},
		},
		{
			name:        "no lots named",
			specific:    nil,
			expectError: ErrSpecificLotsNeeded,
		},
		{
			name: "unknown lot",
			specific: []LotReduction{
				{LotID: "lot-9", Quantity: qty("30")},
			},
			expectError: ErrLotNotFound,
		},
		{
			name: "quantities do not sum to request",
			specific: []LotReduction{
				{LotID: "lot-1", Quantity: qty("10")},
			},
			expectError: ErrDisposalMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp, err := SelectLots("pos-1", open, DisposalRequest{
				Quantity:             qty("30"),
				Proceeds:             qty("450"),
				SaleDate:             date(2025, 6, 1),
				Method:               SpecificID,
				Specific:             tt.specific,
				HoldingThresholdDays: 365,
			})

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected error %v, got %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			// 10*10 + 20*20 = 500 removed against 450 proceeds.
			if !comp.TotalCostRemoved.Equal(qty("500")) {
				t.Errorf("expected cost removed 500, got %s", comp.TotalCostRemoved)
			}
			if !comp.TotalGainLoss.Equal(qty("-50")) {
				t.Errorf("expected loss -50, got %s", comp.TotalGainLoss)
			}
		})
	}
}

func TestSelectLots_SpecificOverdraw(t *testing.T) {
	open := []*Lot{
		{ID: "lot-1", RemainingQuantity: qty("50"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 1, 1)},
		{ID: "lot-2", RemainingQuantity: qty("50"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 2, 1)},
	}

	_, err := SelectLots("pos-1", open, DisposalRequest{
		Quantity: qty("60"),
		Proceeds: qty("900"),
		SaleDate: date(2025, 6, 1),
		Method:   SpecificID,
		Specific: []LotReduction{
			{LotID: "lot-1", Quantity: qty("60")},
		},
		HoldingThresholdDays: 365,
	})

	var insufficient *InsufficientLotsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientLotsError, got %v", err)
	}
	if !insufficient.Requested.Equal(qty("60")) || !insufficient.Available.Equal(qty("50")) {
		t.Errorf("unexpected error detail: requested=%s available=%s",
			insufficient.Requested, insufficient.Available)
	}
}

func TestSelectLots_AverageCost(t *testing.T) {
	open := []*Lot{
		{ID: "lot-1", RemainingQuantity: qty("75"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 1, 1)},
		{ID: "lot-2", RemainingQuantity: qty("25"), CostPerUnit: qty("20"), AcquisitionDate: date(2024, 6, 1)},
	}

	comp, err := SelectLots("pos-1", open, DisposalRequest{
		Quantity:             qty("40"),
		Proceeds:             qty("600"),
		SaleDate:             date(2025, 6, 1),
		Method:               AverageCost,
		HoldingThresholdDays: 365,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(comp.Dispositions) != 2 {
		t.Fatalf("expected 2 dispositions, got %d", len(comp.Dispositions))
	}

	var reduced decimal.Decimal
	for _, d := range comp.Dispositions {
		reduced = reduced.Add(d.Quantity)
		switch d.LotID {
		case "lot-1":
			if !d.Quantity.Equal(qty("30")) {
				t.Errorf("expected 30 from lot-1, got %s", d.Quantity)
			}
		case "lot-2":
			if !d.Quantity.Equal(qty("10")) {
				t.Errorf("expected 10 from lot-2, got %s", d.Quantity)
			}
		default:
			t.Errorf("unexpected lot %s", d.LotID)
		}
	}

	if !reduced.Equal(qty("40")) {
		t.Errorf("reductions should sum to the request, got %s", reduced)
	}
	// 30*10 + 10*20 = 500 removed.
	if !comp.TotalCostRemoved.Equal(qty("500")) {
		t.Errorf("expected cost removed 500, got %s", comp.TotalCostRemoved)
	}
}

func TestSelectLots_AverageCostRemainder(t *testing.T) {
	// Three equal lots and an indivisible quantity force a rounding
	// remainder; it must land on a lot and the totals must stay exact.
	open := []*Lot{
		{ID: "lot-1", RemainingQuantity: qty("100"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 1, 1)},
		{ID: "lot-2", RemainingQuantity: qty("100"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 2, 1)},
		{ID: "lot-3", RemainingQuantity: qty("100"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 3, 1)},
	}

	comp, err := SelectLots("pos-1", open, DisposalRequest{
		Quantity:             qty("100"),
		Proceeds:             qty("1500"),
		SaleDate:             date(2025, 6, 1),
		Method:               AverageCost,
		HoldingThresholdDays: 365,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var reduced, proceeds decimal.Decimal
	for _, d := range comp.Dispositions {
		reduced = reduced.Add(d.Quantity)
		proceeds = proceeds.Add(d.Proceeds)
	}

	if !reduced.Equal(qty("100")) {
		t.Errorf("reductions should sum to exactly 100, got %s", reduced)
	}
	if !proceeds.Equal(qty("1500")) {
		t.Errorf("allocated proceeds should sum to exactly 1500, got %s", proceeds)
	}
	if !comp.TotalCostRemoved.Equal(qty("1000")) {
		t.Errorf("expected cost removed 1000, got %s", comp.TotalCostRemoved)
	}
	if !comp.TotalGainLoss.Equal(qty("500")) {
		t.Errorf("expected gain 500, got %s", comp.TotalGainLoss)
	}
}

func TestSelectLots_AverageCostTinyLotFullDisposal(t *testing.T) {
	// A lot whose pro-rata share truncates to zero must not push its
	// remainder onto a lot that cannot absorb it. Selling the exact open
	// total has to drain both lots without overdrawing either.
	open := []*Lot{
		{ID: "lot-big", RemainingQuantity: qty("0.999999999"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 1, 1)},
		{ID: "lot-tiny", RemainingQuantity: qty("0.000000001"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 2, 1)},
	}

	comp, err := SelectLots("pos-1", open, DisposalRequest{
		Quantity:             qty("1"),
		Proceeds:             qty("15"),
		SaleDate:             date(2025, 6, 1),
		Method:               AverageCost,
		HoldingThresholdDays: 365,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := make(map[string]*Lot)
	for _, l := range open {
		byID[l.ID] = l
	}

	var reduced decimal.Decimal
	for _, d := range comp.Dispositions {
		reduced = reduced.Add(d.Quantity)
		if d.Quantity.GreaterThan(byID[d.LotID].RemainingQuantity) {
			t.Errorf("reduction %s on %s exceeds remaining %s",
				d.Quantity, d.LotID, byID[d.LotID].RemainingQuantity)
		}
	}
	if !reduced.Equal(qty("1")) {
		t.Errorf("reductions should sum to exactly 1, got %s", reduced)
	}
}

func TestSelectLots_Insufficient(t *testing.T) {
	open := []*Lot{
		{ID: "lot-1", RemainingQuantity: qty("40"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 1, 1)},
	}

	_, err := SelectLots("pos-1", open, DisposalRequest{
		Quantity:             qty("60"),
		Proceeds:             qty("900"),
		SaleDate:             date(2025, 6, 1),
		Method:               FIFO,
		HoldingThresholdDays: 365,
	})

	var insufficient *InsufficientLotsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientLotsError, got %v", err)
	}
	if !insufficient.Shortfall().Equal(qty("20")) {
		t.Errorf("expected shortfall 20, got %s", insufficient.Shortfall())
	}
}

func TestSelectLots_InvalidQuantity(t *testing.T) {
	open := []*Lot{
		{ID: "lot-1", RemainingQuantity: qty("40"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 1, 1)},
	}

	_, err := SelectLots("pos-1", open, DisposalRequest{
		Quantity: decimal.Zero,
		Proceeds: qty("900"),
		SaleDate: date(2025, 6, 1),
		Method:   FIFO,
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestSelectLots_Deterministic(t *testing.T) {
	// Identical acquisition dates break ties by lot ID, so repeated runs
	// over the same snapshot select the same lots.
	open := []*Lot{
		{ID: "lot-b", RemainingQuantity: qty("50"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 1, 1)},
		{ID: "lot-a", RemainingQuantity: qty("50"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 1, 1)},
	}

	req := DisposalRequest{
		Quantity:             qty("50"),
		Proceeds:             qty("750"),
		SaleDate:             date(2025, 6, 1),
		Method:               FIFO,
		HoldingThresholdDays: 365,
	}

	first, err := SelectLots("pos-1", open, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := SelectLots("pos-1", open, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Dispositions[0].LotID != "lot-a" {
		t.Errorf("tie should break by lot ID, got %s", first.Dispositions[0].LotID)
	}
	if first.Dispositions[0].LotID != second.Dispositions[0].LotID {
		t.Errorf("selection not deterministic: %s vs %s",
			first.Dispositions[0].LotID, second.Dispositions[0].LotID)
	}
}

func TestSelectLots_DoesNotMutateInput(t *testing.T) {
	open := []*Lot{
		{ID: "lot-1", RemainingQuantity: qty("100"), CostPerUnit: qty("10"), AcquisitionDate: date(2024, 1, 1)},
	}

	_, err := SelectLots("pos-1", open, DisposalRequest{
		Quantity:             qty("60"),
		Proceeds:             qty("900"),
		SaleDate:             date(2025, 2, 1),
		Method:               FIFO,
		HoldingThresholdDays: 365,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !open[0].RemainingQuantity.Equal(qty("100")) {
		t.Errorf("input lot mutated: remaining=%s", open[0].RemainingQuantity)
	}
}
