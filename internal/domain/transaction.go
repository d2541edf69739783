package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one leg of a transaction. Exactly one of Debit or Credit is
// non-zero. LotID is set only on investment buy/sell legs.
type Entry struct {
	ID            string
	TransactionID string
	AccountID     string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	LotID         *string
	CreatedAt     time.Time
}

// Side returns the non-zero amount of the entry.
func (e *Entry) Side() decimal.Decimal {
	if !e.Debit.IsZero() {
		return e.Debit
	}
	return e.Credit
}

// Validate checks the single-side rule and the amount cap for one entry.
func (e *Entry) Validate() error {
	debitSet := !e.Debit.IsZero()
	creditSet := !e.Credit.IsZero()

	if debitSet == creditSet {
		return ErrEntrySides
	}

	if e.Debit.IsNegative() || e.Credit.IsNegative() {
		return ErrEntrySides
	}

	return ValidateAmount(e.Side())
}

// Transaction is an immutable, balanced journal entry. Once persisted its
// entries are never edited; corrections happen by posting a reversal linked
// through ReversalOf.
type Transaction struct {
	ID         string
	Date       time.Time
	Memo       string
	Reference  string
	ReversalOf *string
	Reversed   bool
	Entries    []Entry
	CreatedAt  time.Time
}

// Validate enforces the posting rules: at least two entries, one side per
// entry, at least one debit and one credit, and exact balance with zero
// rounding tolerance.
func (t *Transaction) Validate() error {
	if len(t.Entries) < 2 {
		return ErrTooFewEntries
	}

	var debits, credits decimal.Decimal
	var sawDebit, sawCredit bool

	for i := range t.Entries {
		e := &t.Entries[i]
		if err := e.Validate(); err != nil {
			return err
		}

		if !e.Debit.IsZero() {
			sawDebit = true
			debits = debits.Add(e.Debit)
		} else {
			sawCredit = true
			credits = credits.Add(e.Credit)
		}
	}

	if !sawDebit || !sawCredit {
		return ErrMissingDebitOrCredit
	}

	if !debits.Equal(credits) {
		return ErrUnbalancedTransaction
	}

	return nil
}

// Mirror builds the entry set of a reversal: debits and credits swapped,
// lot references dropped. The result passes Validate by construction.
func (t *Transaction) Mirror() []Entry {
	mirrored := make([]Entry, len(t.Entries))
	for i, e := range t.Entries {
		mirrored[i] = Entry{
			AccountID: e.AccountID,
			Debit:     e.Credit,
			Credit:    e.Debit,
		}
	}

	return mirrored
}
