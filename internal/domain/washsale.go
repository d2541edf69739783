package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// WashSaleFinding reports a loss disallowed because a substantially
// identical security was acquired within the wash-sale window. It is a
// reported finding, not an automatic correcting transaction.
type WashSaleFinding struct {
	DispositionLotID   string
	ReplacementLotID   string
	DisallowedQuantity decimal.Decimal
	DisallowedLoss     decimal.Decimal
}

// BasisAdjustment is the basis transfer onto a replacement lot: its cost
// basis increases by the disallowed loss.
type BasisAdjustment struct {
	LotID    string
	Increase decimal.Decimal
}

// ApplyWashSales scans candidate replacement lots (same security, same tax
// owner, acquired within windowDays before or after the sale) against the
// losing dispositions of a computation. Losses are disallowed up to the
// repurchased quantity, matched oldest replacement first, and each
// disposition's WashSaleDisallowed field is set in place.
//
// Candidates must not include the lots consumed by this sale; the caller's
// lookup excludes them.
func ApplyWashSales(comp *DisposalComputation, candidates []*Lot, saleDate time.Time, windowDays int) ([]WashSaleFinding, []BasisAdjustment) {
	replacements := make([]*Lot, 0, len(candidates))
	for _, c := range candidates {
		if inWashWindow(c.AcquisitionDate, saleDate, windowDays) {
			replacements = append(replacements, c)
		}
	}

	if len(replacements) == 0 {
		return nil, nil
	}

	sort.SliceStable(replacements, func(i, j int) bool {
		a, b := replacements[i], replacements[j]
		if !a.AcquisitionDate.Equal(b.AcquisitionDate) {
			return a.AcquisitionDate.Before(b.AcquisitionDate)
		}
		return a.ID < b.ID
	})

	// Replacement capacity is the quantity repurchased, consumed across all
	// losing dispositions of this sale.
	capacity := make([]decimal.Decimal, len(replacements))
	for i, r := range replacements {
		capacity[i] = r.OriginalQuantity
	}

	var findings []WashSaleFinding
	increases := make(map[string]decimal.Decimal)
	next := 0

	for i := range comp.Dispositions {
		d := &comp.Dispositions[i]
		if !d.GainLoss.IsNegative() {
			continue
		}

		perUnitLoss := d.GainLoss.Abs().Div(d.Quantity)
		unmatched := d.Quantity

		for unmatched.IsPositive() && next < len(replacements) {
			if !capacity[next].IsPositive() {
				next++
				continue
			}

			matched := decimal.Min(unmatched, capacity[next])
			disallowed := perUnitLoss.Mul(matched)

			// Full matches take the exact residual loss so a fully washed
			// disposition disallows its loss to the cent.
			if matched.Equal(unmatched) {
				disallowed = d.GainLoss.Abs().Sub(d.WashSaleDisallowed)
			}

			d.WashSaleDisallowed = d.WashSaleDisallowed.Add(disallowed)
			capacity[next] = capacity[next].Sub(matched)
			unmatched = unmatched.Sub(matched)

			repl := replacements[next]
			findings = append(findings, WashSaleFinding{
				DispositionLotID:   d.LotID,
				ReplacementLotID:   repl.ID,
				DisallowedQuantity: matched,
				DisallowedLoss:     disallowed,
			})
			increases[repl.ID] = increases[repl.ID].Add(disallowed)
		}
	}

	if len(findings) == 0 {
		return nil, nil
	}

	adjustments := make([]BasisAdjustment, 0, len(increases))
	for _, r := range replacements {
		if inc, ok := increases[r.ID]; ok && inc.IsPositive() {
			adjustments = append(adjustments, BasisAdjustment{LotID: r.ID, Increase: inc})
		}
	}

	return findings, adjustments
}

func inWashWindow(acquired, saleDate time.Time, windowDays int) bool {
	from := saleDate.AddDate(0, 0, -windowDays)
	to := saleDate.AddDate(0, 0, windowDays)

	return !acquired.Before(from) && !acquired.After(to)
}
