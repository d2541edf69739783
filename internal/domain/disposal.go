package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// quantityScale is the number of decimal places kept when the average-cost
// method splits a sale proportionally across lots. The rounding remainder
// spills across lots largest-first, capped at what each lot still holds,
// so totals stay exact without overdrawing any lot.
const quantityScale = 8

// DisposalMethod selects which open lots a sale consumes.
type DisposalMethod int

const (
	// FIFO consumes the oldest lots first.
	FIFO DisposalMethod = iota
	// LIFO consumes the newest lots first.
	LIFO
	// SpecificID consumes exactly the lots the caller names.
	SpecificID
	// AverageCost reduces every open lot proportionally to its share of the
	// total remaining quantity.
	AverageCost
	// MinimizeGain consumes lots with the smallest per-unit gain first.
	MinimizeGain
	// MaximizeGain consumes lots with the largest per-unit gain first.
	MaximizeGain
)

func (m DisposalMethod) String() string {
	switch m {
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	case SpecificID:
		return "specific"
	case AverageCost:
		return "average"
	case MinimizeGain:
		return "min-gain"
	case MaximizeGain:
		return "max-gain"
	default:
		return "unknown"
	}
}

// ParseDisposalMethod parses a string into a DisposalMethod.
func ParseDisposalMethod(s string) (DisposalMethod, error) {
	switch s {
	case "fifo":
		return FIFO, nil
	case "lifo":
		return LIFO, nil
	case "specific":
		return SpecificID, nil
	case "average":
		return AverageCost, nil
	case "min-gain":
		return MinimizeGain, nil
	case "max-gain":
		return MaximizeGain, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// HoldingPeriod classifies a disposition for tax purposes.
type HoldingPeriod string

const (
	ShortTerm HoldingPeriod = "short"
	LongTerm  HoldingPeriod = "long"
)

// ClassifyHolding returns LongTerm when the lot was held at least
// thresholdDays calendar days as of the sale date.
func ClassifyHolding(acquired, sold time.Time, thresholdDays int) HoldingPeriod {
	if daysBetween(acquired, sold) >= thresholdDays {
		return LongTerm
	}
	return ShortTerm
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// Disposition records one lot's share of a sale: quantity removed, basis
// removed, proceeds allocated, and the resulting gain or loss.
type Disposition struct {
	LotID              string
	AcquisitionDate    time.Time
	Quantity           decimal.Decimal
	CostBasisRemoved   decimal.Decimal
	Proceeds           decimal.Decimal
	GainLoss           decimal.Decimal
	HoldingPeriod      HoldingPeriod
	WashSaleDisallowed decimal.Decimal
}

// DisposalRequest is the input to lot selection.
type DisposalRequest struct {
	Quantity             decimal.Decimal
	Proceeds             decimal.Decimal
	SaleDate             time.Time
	Method               DisposalMethod
	Specific             []LotReduction
	HoldingThresholdDays int
}

// DisposalComputation is the pure output of lot selection: which lots were
// reduced, the totals, and nothing else. Callers persist it atomically or
// discard it whole.
type DisposalComputation struct {
	Dispositions     []Disposition
	TotalCostRemoved decimal.Decimal
	TotalGainLoss    decimal.Decimal
}

// DisposalResult is the committed outcome of a disposal: the backing sale
// transaction, the per-lot dispositions, and any wash-sale findings.
type DisposalResult struct {
	TransactionID    string
	PositionID       string
	Method           DisposalMethod
	SaleDate         time.Time
	Quantity         decimal.Decimal
	Proceeds         decimal.Decimal
	Dispositions     []Disposition
	TotalCostRemoved decimal.Decimal
	TotalGainLoss    decimal.Decimal
	WashSales        []WashSaleFinding
	BasisAdjustments []BasisAdjustment
}

// SelectLots runs the disposal computation against a snapshot of open lots.
// It never mutates its inputs. The result is deterministic for a given
// snapshot: ties in every ordering break by acquisition date ascending and
// then lot ID, so re-running the same request selects the same lots.
func SelectLots(positionID string, open []*Lot, req DisposalRequest) (*DisposalComputation, error) {
	if !req.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	available := OpenQuantity(open)
	if req.Quantity.GreaterThan(available) {
		return nil, &InsufficientLotsError{
			PositionID: positionID,
			Requested:  req.Quantity,
			Available:  available,
		}
	}

	var reductions []LotReduction
	var err error

	switch req.Method {
	case SpecificID:
		reductions, err = specificReductions(positionID, open, req)
	case AverageCost:
		reductions = proportionalReductions(open, req.Quantity)
	case FIFO, LIFO, MinimizeGain, MaximizeGain:
		reductions = orderedReductions(open, req)
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownMethod, req.Method)
	}
	if err != nil {
		return nil, err
	}

	return buildComputation(open, reductions, req)
}

// orderedReductions consumes lots from the front of the method's ordering
// until the requested quantity is satisfied. The final lot may be partially
// consumed.
func orderedReductions(open []*Lot, req DisposalRequest) []LotReduction {
	ordered := make([]*Lot, 0, len(open))
	for _, l := range open {
		if l.Open() {
			ordered = append(ordered, l)
		}
	}

	salePerUnit := req.Proceeds.Div(req.Quantity)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		switch req.Method {
		case LIFO:
			if !a.AcquisitionDate.Equal(b.AcquisitionDate) {
				return a.AcquisitionDate.After(b.AcquisitionDate)
			}
		case MinimizeGain, MaximizeGain:
			ga := salePerUnit.Sub(a.CostPerUnit)
			gb := salePerUnit.Sub(b.CostPerUnit)
			if !ga.Equal(gb) {
				if req.Method == MinimizeGain {
					return ga.LessThan(gb)
				}
				return ga.GreaterThan(gb)
			}
			if !a.AcquisitionDate.Equal(b.AcquisitionDate) {
				return a.AcquisitionDate.Before(b.AcquisitionDate)
			}
		default: // FIFO
			if !a.AcquisitionDate.Equal(b.AcquisitionDate) {
				return a.AcquisitionDate.Before(b.AcquisitionDate)
			}
		}
		return a.ID < b.ID
	})

	var reductions []LotReduction
	remaining := req.Quantity

	for _, l := range ordered {
		if !remaining.IsPositive() {
			break
		}

		take := decimal.Min(l.RemainingQuantity, remaining)
		reductions = append(reductions, LotReduction{LotID: l.ID, Quantity: take})
		remaining = remaining.Sub(take)
	}

	return reductions
}

// proportionalReductions implements the average-cost path: every open lot
// gives up its pro-rata share of the sale. The rounding remainder spills
// across lots largest-first, each capped at what the lot still holds, so no
// reduction can exceed its lot's remaining quantity.
func proportionalReductions(open []*Lot, quantity decimal.Decimal) []LotReduction {
	lots := make([]*Lot, 0, len(open))
	for _, l := range open {
		if l.Open() {
			lots = append(lots, l)
		}
	}

	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if !a.AcquisitionDate.Equal(b.AcquisitionDate) {
			return a.AcquisitionDate.Before(b.AcquisitionDate)
		}
		return a.ID < b.ID
	})

	total := OpenQuantity(lots)

	reductions := make([]LotReduction, 0, len(lots))
	var allocated decimal.Decimal

	for _, l := range lots {
		share := quantity.Mul(l.RemainingQuantity).Div(total).Truncate(quantityScale)
		reductions = append(reductions, LotReduction{LotID: l.ID, Quantity: share})
		allocated = allocated.Add(share)
	}

	remainder := quantity.Sub(allocated)
	if remainder.IsPositive() {
		order := make([]int, len(lots))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool {
			return lots[order[i]].RemainingQuantity.GreaterThan(lots[order[j]].RemainingQuantity)
		})

		for _, idx := range order {
			if !remainder.IsPositive() {
				break
			}
			headroom := lots[idx].RemainingQuantity.Sub(reductions[idx].Quantity)
			if !headroom.IsPositive() {
				continue
			}
			take := decimal.Min(headroom, remainder)
			reductions[idx].Quantity = reductions[idx].Quantity.Add(take)
			remainder = remainder.Sub(take)
		}
	}

	// Drop zero reductions produced by tiny shares.
	out := reductions[:0]
	for _, r := range reductions {
		if r.Quantity.IsPositive() {
			out = append(out, r)
		}
	}

	return out
}

// specificReductions validates a caller-supplied lot list.
func specificReductions(positionID string, open []*Lot, req DisposalRequest) ([]LotReduction, error) {
	if len(req.Specific) == 0 {
		return nil, ErrSpecificLotsNeeded
	}

	byID := make(map[string]*Lot, len(open))
	for _, l := range open {
		byID[l.ID] = l
	}

	var total decimal.Decimal
	for _, r := range req.Specific {
		lot, ok := byID[r.LotID]
		if !ok || !lot.Open() {
			return nil, fmt.Errorf("%w: %s", ErrLotNotFound, r.LotID)
		}

		if !r.Quantity.IsPositive() {
			return nil, ErrInvalidQuantity
		}

		if r.Quantity.GreaterThan(lot.RemainingQuantity) {
			return nil, &InsufficientLotsError{
				PositionID: positionID,
				Requested:  r.Quantity,
				Available:  lot.RemainingQuantity,
			}
		}

		total = total.Add(r.Quantity)
	}

	if !total.Equal(req.Quantity) {
		return nil, ErrDisposalMismatch
	}

	return req.Specific, nil
}

// buildComputation turns reductions into dispositions with gain/loss math.
// Proceeds are allocated pro rata; the final disposition absorbs the
// rounding remainder so the totals reconcile exactly with the request.
func buildComputation(open []*Lot, reductions []LotReduction, req DisposalRequest) (*DisposalComputation, error) {
	byID := make(map[string]*Lot, len(open))
	for _, l := range open {
		byID[l.ID] = l
	}

	comp := &DisposalComputation{}
	var proceedsAllocated decimal.Decimal
	salePerUnit := req.Proceeds.Div(req.Quantity)

	for i, r := range reductions {
		lot, ok := byID[r.LotID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLotNotFound, r.LotID)
		}

		proceeds := r.Quantity.Mul(salePerUnit)
		if i == len(reductions)-1 {
			proceeds = req.Proceeds.Sub(proceedsAllocated)
		}
		proceedsAllocated = proceedsAllocated.Add(proceeds)

		costRemoved := r.Quantity.Mul(lot.CostPerUnit)
		gain := proceeds.Sub(costRemoved)

		comp.Dispositions = append(comp.Dispositions, Disposition{
			LotID:            lot.ID,
			AcquisitionDate:  lot.AcquisitionDate,
			Quantity:         r.Quantity,
			CostBasisRemoved: costRemoved,
			Proceeds:         proceeds,
			GainLoss:         gain,
			HoldingPeriod:    ClassifyHolding(lot.AcquisitionDate, req.SaleDate, req.HoldingThresholdDays),
		})

		comp.TotalCostRemoved = comp.TotalCostRemoved.Add(costRemoved)
		comp.TotalGainLoss = comp.TotalGainLoss.Add(gain)
	}

	return comp, nil
}
