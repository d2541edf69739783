package domain

import (
	"time"
)

// AccountType classifies an account in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// ValidAccountType reports whether t is a known account type.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// Account is a node in the chart of accounts. Balances are derived from
// entries; the account row itself carries no balance to corrupt.
type Account struct {
	ID        string
	Name      string
	Type      AccountType
	OwnerID   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanPost reports whether the account may appear on new entries.
func (a *Account) CanPost() error {
	if !a.Active {
		return ErrAccountInactive
	}
	return nil
}
