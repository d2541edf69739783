package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	OwnerID string `json:"owner_id"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Name:    r.Name,
		Type:    domain.AccountType(r.Type),
		OwnerID: r.OwnerID,
	}
}

// EntryItem represents a single journal entry in a posting request.
type EntryItem struct {
	AccountID string          `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	LotID     *string         `json:"lot_id,omitempty"`
}

// OpenLotItem represents a lot to open alongside a posting.
type OpenLotItem struct {
	AccountID       string          `json:"account_id"`
	SecurityID      string          `json:"security_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	CostPerUnit     decimal.Decimal `json:"cost_per_unit"`
	AcquisitionDate time.Time       `json:"acquisition_date"`
	AcquisitionType string          `json:"acquisition_type,omitempty"`
}

// ReductionItem represents a manual lot reduction riding a posting.
type ReductionItem struct {
	PositionID   string             `json:"position_id"`
	Reductions   []LotReductionItem `json:"reductions"`
	SaleQuantity decimal.Decimal    `json:"sale_quantity"`
}

// LotReductionItem names a lot and the quantity to take from it.
type LotReductionItem struct {
	LotID    string          `json:"lot_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// PostTransactionRequest represents a request to post a journal transaction.
type PostTransactionRequest struct {
	Date       time.Time       `json:"date"`
	Memo       string          `json:"memo,omitempty"`
	Reference  string          `json:"reference,omitempty"`
	Entries    []EntryItem     `json:"entries"`
	OpenLots   []OpenLotItem   `json:"open_lots,omitempty"`
	Reductions []ReductionItem `json:"reductions,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *PostTransactionRequest) ToUseCaseInput() usecase.PostTransactionInput {
	entries := make([]usecase.EntryInput, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = usecase.EntryInput{
			AccountID: e.AccountID,
			Debit:     e.Debit,
			Credit:    e.Credit,
			LotID:     e.LotID,
		}
	}

	openLots := make([]usecase.OpenLotInput, len(r.OpenLots))
	for i, l := range r.OpenLots {
		openLots[i] = usecase.OpenLotInput{
			AccountID:       l.AccountID,
			SecurityID:      l.SecurityID,
			Quantity:        l.Quantity,
			CostPerUnit:     l.CostPerUnit,
			AcquisitionDate: l.AcquisitionDate,
			AcquisitionType: domain.AcquisitionType(l.AcquisitionType),
		}
	}

	reductions := make([]usecase.LotReductionInstruction, len(r.Reductions))
	for i, red := range r.Reductions {
		reductions[i] = usecase.LotReductionInstruction{
			PositionID:   red.PositionID,
			Reductions:   lotReductions(red.Reductions),
			SaleQuantity: red.SaleQuantity,
		}
	}

	return usecase.PostTransactionInput{
		Date:       r.Date,
		Memo:       r.Memo,
		Reference:  r.Reference,
		Entries:    entries,
		OpenLots:   openLots,
		Reductions: reductions,
	}
}

// ReverseTransactionRequest represents a request to reverse a transaction.
type ReverseTransactionRequest struct {
	Memo string `json:"memo,omitempty"`
}

// DisposeRequest represents a request to sell out of a position.
type DisposeRequest struct {
	PositionID        string             `json:"position_id"`
	Quantity          decimal.Decimal    `json:"quantity"`
	Proceeds          decimal.Decimal    `json:"proceeds"`
	SaleDate          time.Time          `json:"sale_date"`
	Method            string             `json:"method"`
	Specific          []LotReductionItem `json:"specific,omitempty"`
	CashAccountID     string             `json:"cash_account_id"`
	GainLossAccountID string             `json:"gain_loss_account_id"`
	Memo              string             `json:"memo,omitempty"`
}

// ToUseCaseInput converts to use case input. The disposal method string is
// validated here so handlers can reject bad input before touching storage.
func (r *DisposeRequest) ToUseCaseInput() (usecase.SelectAndDisposeInput, error) {
	method, err := domain.ParseDisposalMethod(r.Method)
	if err != nil {
		return usecase.SelectAndDisposeInput{}, err
	}

	return usecase.SelectAndDisposeInput{
		PositionID:        r.PositionID,
		Quantity:          r.Quantity,
		Proceeds:          r.Proceeds,
		SaleDate:          r.SaleDate,
		Method:            method,
		Specific:          lotReductions(r.Specific),
		CashAccountID:     r.CashAccountID,
		GainLossAccountID: r.GainLossAccountID,
		Memo:              r.Memo,
	}, nil
}

// ApplyCorporateActionRequest represents a request to apply a corporate
// action across every position holding a security.
type ApplyCorporateActionRequest struct {
	SecurityID      string          `json:"security_id"`
	Type            string          `json:"type"`
	EffectiveDate   time.Time       `json:"effective_date"`
	Ratio           decimal.Decimal `json:"ratio"`
	BasisPercent    decimal.Decimal `json:"basis_percent,omitempty"`
	NewSecurityID   string          `json:"new_security_id,omitempty"`
	CashInLieuPrice decimal.Decimal `json:"cash_in_lieu_price,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ApplyCorporateActionRequest) ToUseCaseInput() usecase.ApplyActionInput {
	return usecase.ApplyActionInput{
		SecurityID:      r.SecurityID,
		Type:            domain.CorporateActionType(r.Type),
		EffectiveDate:   r.EffectiveDate,
		Ratio:           r.Ratio,
		BasisPercent:    r.BasisPercent,
		NewSecurityID:   r.NewSecurityID,
		CashInLieuPrice: r.CashInLieuPrice,
	}
}

func lotReductions(items []LotReductionItem) []domain.LotReduction {
	if len(items) == 0 {
		return nil
	}
	out := make([]domain.LotReduction, len(items))
	for i, it := range items {
		out[i] = domain.LotReduction{LotID: it.LotID, Quantity: it.Quantity}
	}
	return out
}
