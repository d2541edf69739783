package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AcquisitionType records how a lot entered the book.
type AcquisitionType string

const (
	AcquisitionPurchase    AcquisitionType = "purchase"
	AcquisitionGift        AcquisitionType = "gift"
	AcquisitionInheritance AcquisitionType = "inheritance"
	AcquisitionTransfer    AcquisitionType = "transfer"
	AcquisitionExercise    AcquisitionType = "exercise"
)

// ValidAcquisitionType reports whether t is a known acquisition type.
func ValidAcquisitionType(t AcquisitionType) bool {
	switch t {
	case AcquisitionPurchase, AcquisitionGift, AcquisitionInheritance, AcquisitionTransfer, AcquisitionExercise:
		return true
	}
	return false
}

// Lot is a single acquisition of a security with its own cost basis and
// acquisition date. RemainingQuantity only ever decreases (disposal) or is
// rescaled (corporate action); a fully disposed lot stays on the book for
// audit and tax documents.
type Lot struct {
	ID                 string
	PositionID         string
	OriginalQuantity   decimal.Decimal
	RemainingQuantity  decimal.Decimal
	CostPerUnit        decimal.Decimal
	AcquisitionDate    time.Time
	AcquisitionType    AcquisitionType
	WashSaleDisallowed decimal.Decimal
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Open reports whether the lot still has undisposed quantity.
func (l *Lot) Open() bool {
	return l.RemainingQuantity.IsPositive()
}

// RemainingCost is the cost basis still held in the lot.
func (l *Lot) RemainingCost() decimal.Decimal {
	return l.RemainingQuantity.Mul(l.CostPerUnit)
}

// Validate checks lot creation parameters.
func (l *Lot) Validate() error {
	if !l.OriginalQuantity.IsPositive() {
		return ErrInvalidQuantity
	}

	if l.CostPerUnit.IsNegative() {
		return ErrInvalidCost
	}

	if !ValidAcquisitionType(l.AcquisitionType) {
		return ErrInvalidQuantity
	}

	return nil
}

// Position identifies the holding of one security within one account. Its
// quantity and basis are always derived from lots. Frozen is set when a
// corruption-class invariant failure is detected; a frozen position refuses
// all further mutation.
type Position struct {
	ID         string
	AccountID  string
	SecurityID string
	Frozen     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PositionSummary is the derived state of a position: total remaining
// quantity, total remaining cost basis, and the weighted cost per unit.
type PositionSummary struct {
	PositionID  string
	AccountID   string
	SecurityID  string
	Quantity    decimal.Decimal
	CostBasis   decimal.Decimal
	AvgCostUnit decimal.Decimal
	OpenLots    int
	AsOf        time.Time
}

// Summarize derives a position summary from its lots. This is the only way
// position quantity is ever produced, which makes the position-lot
// consistency invariant structurally impossible to violate from outside.
func Summarize(p *Position, lots []*Lot, asOf time.Time) PositionSummary {
	s := PositionSummary{
		PositionID: p.ID,
		AccountID:  p.AccountID,
		SecurityID: p.SecurityID,
		AsOf:       asOf,
	}

	for _, l := range lots {
		if !l.Open() {
			continue
		}
		s.Quantity = s.Quantity.Add(l.RemainingQuantity)
		s.CostBasis = s.CostBasis.Add(l.RemainingCost())
		s.OpenLots++
	}

	if s.Quantity.IsPositive() {
		s.AvgCostUnit = s.CostBasis.Div(s.Quantity)
	}

	return s
}

// OpenQuantity sums the remaining quantity across lots.
func OpenQuantity(lots []*Lot) decimal.Decimal {
	var total decimal.Decimal
	for _, l := range lots {
		total = total.Add(l.RemainingQuantity)
	}

	return total
}

// LotReduction names a lot and the quantity to remove from it.
type LotReduction struct {
	LotID    string
	Quantity decimal.Decimal
}
