package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// costTolerance is the rounding tolerance for the post-condition that a
// corporate action preserves each lot's total cost basis.
var costTolerance = decimal.RequireFromString("0.01")

// hundred is used for spinoff basis percentages.
var hundred = decimal.NewFromInt(100)

// CorporateActionType names the structural event being applied.
type CorporateActionType string

const (
	ActionSplit        CorporateActionType = "split"
	ActionReverseSplit CorporateActionType = "reverse_split"
	ActionSpinoff      CorporateActionType = "spinoff"
	ActionMerger       CorporateActionType = "merger"
	ActionSymbolChange CorporateActionType = "symbol_change"
)

// CorporateAction describes a structural event to apply to every open lot
// of a security. These are retroactive changes to tax history, so every
// application produces a full pre/post audit trail.
type CorporateAction struct {
	ID            string
	SecurityID    string
	Type          CorporateActionType
	EffectiveDate time.Time

	// Ratio is the split factor (N for an N:1 forward split, N for a 1:N
	// reverse split), the spinoff share-distribution ratio per held share,
	// or the merger exchange ratio.
	Ratio decimal.Decimal

	// BasisPercent is the percentage of cost basis a spinoff moves to the
	// resulting security.
	BasisPercent decimal.Decimal

	// NewSecurityID is the resulting security for spinoff, merger, and
	// symbol change.
	NewSecurityID string

	// CashInLieuPrice is the per-share price used to book the fractional
	// remainder of a merger as a realized disposition.
	CashInLieuPrice decimal.Decimal
}

// Validate checks the action parameters before any lot is touched.
func (a *CorporateAction) Validate() error {
	switch a.Type {
	case ActionSplit, ActionReverseSplit:
		if !a.Ratio.IsPositive() {
			return ErrInvalidRatio
		}
	case ActionSpinoff:
		if !a.Ratio.IsPositive() {
			return ErrInvalidRatio
		}
		if !a.BasisPercent.IsPositive() || !a.BasisPercent.LessThan(hundred) {
			return ErrInvalidBasisPct
		}
		if a.NewSecurityID == "" {
			return ErrSecurityRequired
		}
	case ActionMerger:
		if !a.Ratio.IsPositive() {
			return ErrInvalidRatio
		}
		if a.NewSecurityID == "" {
			return ErrSecurityRequired
		}
	case ActionSymbolChange:
		if a.NewSecurityID == "" {
			return ErrSecurityRequired
		}
	default:
		return ErrInvalidRatio
	}

	if a.NewSecurityID != "" {
		if err := ValidateSecurityID(a.NewSecurityID); err != nil {
			return err
		}
	}

	return nil
}

// LotChange captures the pre- and post-state of one lot touched by a
// corporate action.
type LotChange struct {
	Before Lot
	After  Lot
}

// AdjustmentResult is the full outcome of applying one corporate action:
// rewritten lots, newly created lots (spinoff, merger), and any cash-in-lieu
// dispositions for fractional merger shares.
type AdjustmentResult struct {
	ActionID        string
	SecurityID      string
	Type            CorporateActionType
	EffectiveDate   time.Time
	LotChanges      []LotChange
	NewLots         []*Lot
	CashInLieu      []Disposition
	CostBasisBefore decimal.Decimal
	CostBasisAfter  decimal.Decimal
}

// ApplyAction computes the lot rewrites for an action over the open lots of
// the security. It is pure: lots are copied, never mutated. The caller
// commits the whole result in one storage transaction or discards it.
func ApplyAction(action *CorporateAction, open []*Lot, thresholdDays int) (*AdjustmentResult, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}

	if len(open) == 0 && action.Type != ActionSymbolChange {
		return nil, ErrNoOpenLots
	}

	result := &AdjustmentResult{
		ActionID:      action.ID,
		SecurityID:    action.SecurityID,
		Type:          action.Type,
		EffectiveDate: action.EffectiveDate,
	}

	for _, l := range open {
		result.CostBasisBefore = result.CostBasisBefore.Add(l.RemainingCost())
	}

	var err error
	switch action.Type {
	case ActionSplit:
		err = applySplit(result, open, action.Ratio)
	case ActionReverseSplit:
		err = applySplit(result, open, decimal.NewFromInt(1).Div(action.Ratio))
	case ActionSpinoff:
		applySpinoff(result, open, action)
	case ActionMerger:
		applyMerger(result, open, action, thresholdDays)
	case ActionSymbolChange:
		// Lots are untouched; only the security reference moves.
	}
	if err != nil {
		return nil, err
	}

	for _, c := range result.LotChanges {
		result.CostBasisAfter = result.CostBasisAfter.Add(c.After.RemainingCost())
	}
	for _, l := range result.NewLots {
		result.CostBasisAfter = result.CostBasisAfter.Add(l.RemainingCost())
	}
	for _, d := range result.CashInLieu {
		result.CostBasisAfter = result.CostBasisAfter.Add(d.CostBasisRemoved)
	}

	if result.CostBasisBefore.Sub(result.CostBasisAfter).Abs().GreaterThan(costTolerance) {
		return nil, ErrCostBasisDrift
	}

	return result, nil
}

// applySplit rescales quantity by factor and cost per unit by its inverse.
// Total cost per lot is invariant by construction; the explicit check
// guards against precision loss on pathological ratios.
func applySplit(result *AdjustmentResult, open []*Lot, factor decimal.Decimal) error {
	for _, l := range open {
		after := *l
		after.OriginalQuantity = l.OriginalQuantity.Mul(factor)
		after.RemainingQuantity = l.RemainingQuantity.Mul(factor)
		after.CostPerUnit = l.CostPerUnit.Div(factor)

		if l.RemainingCost().Sub(after.RemainingCost()).Abs().GreaterThan(costTolerance) {
			return ErrCostBasisDrift
		}

		result.LotChanges = append(result.LotChanges, LotChange{Before: *l, After: after})
	}

	return nil
}

// applySpinoff moves BasisPercent of each lot's basis onto a new lot of the
// resulting security at the same acquisition date, preserving the holding
// period. Original quantities are unchanged; the new lot receives Ratio
// shares per held share.
func applySpinoff(result *AdjustmentResult, open []*Lot, action *CorporateAction) {
	fraction := action.BasisPercent.Div(hundred)

	for _, l := range open {
		movedCost := l.RemainingCost().Mul(fraction)
		newQuantity := l.RemainingQuantity.Mul(action.Ratio)

		after := *l
		after.CostPerUnit = l.CostPerUnit.Mul(decimal.NewFromInt(1).Sub(fraction))

		result.LotChanges = append(result.LotChanges, LotChange{Before: *l, After: after})
		result.NewLots = append(result.NewLots, &Lot{
			OriginalQuantity:  newQuantity,
			RemainingQuantity: newQuantity,
			CostPerUnit:       movedCost.Div(newQuantity),
			AcquisitionDate:   l.AcquisitionDate,
			AcquisitionType:   l.AcquisitionType,
		})
	}
}

// applyMerger converts each lot at the exchange ratio, preserving the
// acquisition date and total basis. The fractional remainder of each lot is
// booked as a cash-in-lieu disposition at the action's per-share price.
func applyMerger(result *AdjustmentResult, open []*Lot, action *CorporateAction, thresholdDays int) {
	for _, l := range open {
		converted := l.RemainingQuantity.Mul(action.Ratio)
		whole := converted.Floor()
		fraction := converted.Sub(whole)

		basis := l.RemainingCost()
		wholeBasis := basis
		if fraction.IsPositive() {
			wholeBasis = basis.Mul(whole).Div(converted)
		}

		after := *l
		after.RemainingQuantity = decimal.Zero
		result.LotChanges = append(result.LotChanges, LotChange{Before: *l, After: after})

		if whole.IsPositive() {
			result.NewLots = append(result.NewLots, &Lot{
				OriginalQuantity:  whole,
				RemainingQuantity: whole,
				CostPerUnit:       wholeBasis.Div(whole),
				AcquisitionDate:   l.AcquisitionDate,
				AcquisitionType:   l.AcquisitionType,
			})
		}

		if fraction.IsPositive() {
			fracBasis := basis.Sub(wholeBasis)
			proceeds := fraction.Mul(action.CashInLieuPrice)

			result.CashInLieu = append(result.CashInLieu, Disposition{
				LotID:            l.ID,
				AcquisitionDate:  l.AcquisitionDate,
				Quantity:         fraction,
				CostBasisRemoved: fracBasis,
				Proceeds:         proceeds,
				GainLoss:         proceeds.Sub(fracBasis),
				HoldingPeriod:    ClassifyHolding(l.AcquisitionDate, action.EffectiveDate, thresholdDays),
			})
		}
	}
}
