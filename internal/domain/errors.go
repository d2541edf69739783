package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Account errors
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrInvalidAccountType = errors.New("unknown account type")

	// Posting errors
	ErrTooFewEntries              = errors.New("transaction requires at least two entries")
	ErrUnbalancedTransaction      = errors.New("transaction debits do not equal credits")
	ErrEntrySides                 = errors.New("entry must have exactly one of debit or credit set")
	ErrMissingDebitOrCredit       = errors.New("transaction requires at least one debit and one credit entry")
	ErrTransactionNotFound        = errors.New("transaction not found")
	ErrTransactionAlreadyReversed = errors.New("transaction has already been reversed")

	// Lot and position errors
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidCost        = errors.New("cost per unit must not be negative")
	ErrLotNotFound        = errors.New("lot not found")
	ErrPositionNotFound   = errors.New("position not found")
	ErrPositionFrozen     = errors.New("position is frozen and refuses further mutation")
	ErrDisposalMismatch   = errors.New("lot reductions do not sum to the sale quantity")
	ErrLotUnfunded        = errors.New("lot opening has no funding entry")
	ErrUnknownMethod      = errors.New("unknown disposal method")
	ErrSpecificLotsNeeded = errors.New("specific identification requires an explicit lot list")

	// Corporate action errors
	ErrInvalidRatio     = errors.New("corporate action ratio must be positive")
	ErrInvalidBasisPct  = errors.New("spinoff basis percentage must be between 0 and 100 exclusive")
	ErrSecurityRequired = errors.New("corporate action requires a resulting security")
	ErrCostBasisDrift   = errors.New("corporate action would not preserve total cost basis")
	ErrNoOpenLots       = errors.New("security has no open lots")
)

// InsufficientLotsError reports a disposal request that exceeds the open
// quantity. It carries the shortfall so the caller can decide whether to
// shrink the request or abort.
type InsufficientLotsError struct {
	PositionID string
	Requested  decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("insufficient open lots for position %s: requested %s, available %s",
		e.PositionID, e.Requested, e.Available)
}

// Shortfall returns the quantity the request exceeds the open lots by.
func (e *InsufficientLotsError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// PositionCorruptedError is the corruption-class invariant failure: the sum
// of lot remaining quantities disagrees with the expected position quantity
// after a supposedly successful operation. It is fatal for the position;
// callers freeze the position rather than correct it silently.
type PositionCorruptedError struct {
	PositionID string
	LotSum     decimal.Decimal
	Expected   decimal.Decimal
}

func (e *PositionCorruptedError) Error() string {
	return fmt.Sprintf("position %s corrupted: lot sum %s does not match expected quantity %s",
		e.PositionID, e.LotSum, e.Expected)
}
