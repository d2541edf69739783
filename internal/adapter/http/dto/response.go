package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	OwnerID   string    `json:"owner_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Type:      string(a.Type),
		OwnerID:   a.OwnerID,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse wraps a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// BalanceResponse represents a derived account balance.
type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Debits    decimal.Decimal `json:"debits"`
	Credits   decimal.Decimal `json:"credits"`
	Net       decimal.Decimal `json:"net"`
	AsOf      time.Time       `json:"as_of"`
}

// BalanceFromUseCase converts a use case balance to a response.
func BalanceFromUseCase(b *usecase.AccountBalance) *BalanceResponse {
	return &BalanceResponse{
		AccountID: b.AccountID,
		Debits:    b.Debits,
		Credits:   b.Credits,
		Net:       b.Net,
		AsOf:      b.AsOf,
	}
}

// EntryResponse represents a journal entry in API responses.
type EntryResponse struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	LotID         *string         `json:"lot_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TransactionResponse represents a journal transaction in API responses.
type TransactionResponse struct {
	ID         string           `json:"id"`
	Date       time.Time        `json:"date"`
	Memo       string           `json:"memo,omitempty"`
	Reference  string           `json:"reference,omitempty"`
	ReversalOf *string          `json:"reversal_of,omitempty"`
	Reversed   bool             `json:"reversed"`
	Entries    []*EntryResponse `json:"entries"`
	CreatedAt  time.Time        `json:"created_at"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	entries := make([]*EntryResponse, len(t.Entries))
	for i := range t.Entries {
		e := t.Entries[i]
		entries[i] = &EntryResponse{
			ID:            e.ID,
			TransactionID: e.TransactionID,
			AccountID:     e.AccountID,
			Debit:         e.Debit,
			Credit:        e.Credit,
			LotID:         e.LotID,
			CreatedAt:     e.CreatedAt,
		}
	}
	return &TransactionResponse{
		ID:         t.ID,
		Date:       t.Date,
		Memo:       t.Memo,
		Reference:  t.Reference,
		ReversalOf: t.ReversalOf,
		Reversed:   t.Reversed,
		Entries:    entries,
		CreatedAt:  t.CreatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// PositionResponse represents a position in API responses.
type PositionResponse struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	SecurityID string    `json:"security_id"`
	Frozen     bool      `json:"frozen"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PositionFromDomain converts a domain position to a response.
func PositionFromDomain(p *domain.Position) *PositionResponse {
	return &PositionResponse{
		ID:         p.ID,
		AccountID:  p.AccountID,
		SecurityID: p.SecurityID,
		Frozen:     p.Frozen,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// PositionsFromDomain converts domain positions to responses.
func PositionsFromDomain(positions []*domain.Position) []*PositionResponse {
	result := make([]*PositionResponse, len(positions))
	for i, p := range positions {
		result[i] = PositionFromDomain(p)
	}
	return result
}

// PositionSummaryResponse represents derived position state.
type PositionSummaryResponse struct {
	PositionID  string          `json:"position_id"`
	AccountID   string          `json:"account_id"`
	SecurityID  string          `json:"security_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	CostBasis   decimal.Decimal `json:"cost_basis"`
	AvgCostUnit decimal.Decimal `json:"avg_cost_unit"`
	OpenLots    int             `json:"open_lots"`
	AsOf        time.Time       `json:"as_of"`
}

// SummaryFromDomain converts a domain position summary to a response.
func SummaryFromDomain(s *domain.PositionSummary) *PositionSummaryResponse {
	return &PositionSummaryResponse{
		PositionID:  s.PositionID,
		AccountID:   s.AccountID,
		SecurityID:  s.SecurityID,
		Quantity:    s.Quantity,
		CostBasis:   s.CostBasis,
		AvgCostUnit: s.AvgCostUnit,
		OpenLots:    s.OpenLots,
		AsOf:        s.AsOf,
	}
}

// LotResponse represents a tax lot in API responses.
type LotResponse struct {
	ID                 string          `json:"id"`
	PositionID         string          `json:"position_id"`
	OriginalQuantity   decimal.Decimal `json:"original_quantity"`
	RemainingQuantity  decimal.Decimal `json:"remaining_quantity"`
	CostPerUnit        decimal.Decimal `json:"cost_per_unit"`
	AcquisitionDate    time.Time       `json:"acquisition_date"`
	AcquisitionType    string          `json:"acquisition_type"`
	WashSaleDisallowed decimal.Decimal `json:"wash_sale_disallowed"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// LotFromDomain converts a domain lot to a response.
func LotFromDomain(l *domain.Lot) *LotResponse {
	return &LotResponse{
		ID:                 l.ID,
		PositionID:         l.PositionID,
		OriginalQuantity:   l.OriginalQuantity,
		RemainingQuantity:  l.RemainingQuantity,
		CostPerUnit:        l.CostPerUnit,
		AcquisitionDate:    l.AcquisitionDate,
		AcquisitionType:    string(l.AcquisitionType),
		WashSaleDisallowed: l.WashSaleDisallowed,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
}

// LotsFromDomain converts domain lots to responses.
func LotsFromDomain(lots []*domain.Lot) []*LotResponse {
	result := make([]*LotResponse, len(lots))
	for i, l := range lots {
		result[i] = LotFromDomain(l)
	}
	return result
}

// DispositionResponse represents one lot consumption of a sale.
type DispositionResponse struct {
	LotID              string          `json:"lot_id"`
	AcquisitionDate    time.Time       `json:"acquisition_date"`
	Quantity           decimal.Decimal `json:"quantity"`
	CostBasisRemoved   decimal.Decimal `json:"cost_basis_removed"`
	Proceeds           decimal.Decimal `json:"proceeds"`
	GainLoss           decimal.Decimal `json:"gain_loss"`
	HoldingPeriod      string          `json:"holding_period"`
	WashSaleDisallowed decimal.Decimal `json:"wash_sale_disallowed"`
}

// DispositionFromDomain converts a domain disposition to a response.
func DispositionFromDomain(d *domain.Disposition) *DispositionResponse {
	return &DispositionResponse{
		LotID:              d.LotID,
		AcquisitionDate:    d.AcquisitionDate,
		Quantity:           d.Quantity,
		CostBasisRemoved:   d.CostBasisRemoved,
		Proceeds:           d.Proceeds,
		GainLoss:           d.GainLoss,
		HoldingPeriod:      string(d.HoldingPeriod),
		WashSaleDisallowed: d.WashSaleDisallowed,
	}
}

// DispositionsFromDomain converts domain dispositions to responses.
func DispositionsFromDomain(ds []*domain.Disposition) []*DispositionResponse {
	result := make([]*DispositionResponse, len(ds))
	for i, d := range ds {
		result[i] = DispositionFromDomain(d)
	}
	return result
}

// WashSaleFindingResponse reports a disallowed loss and where its basis went.
type WashSaleFindingResponse struct {
	DispositionLotID   string          `json:"disposition_lot_id"`
	ReplacementLotID   string          `json:"replacement_lot_id"`
	DisallowedQuantity decimal.Decimal `json:"disallowed_quantity"`
	DisallowedLoss     decimal.Decimal `json:"disallowed_loss"`
}

// DisposalResultResponse represents the full outcome of a sale.
type DisposalResultResponse struct {
	TransactionID    string                     `json:"transaction_id"`
	PositionID       string                     `json:"position_id"`
	Method           string                     `json:"method"`
	SaleDate         time.Time                  `json:"sale_date"`
	Quantity         decimal.Decimal            `json:"quantity"`
	Proceeds         decimal.Decimal            `json:"proceeds"`
	Dispositions     []*DispositionResponse     `json:"dispositions"`
	TotalCostRemoved decimal.Decimal            `json:"total_cost_removed"`
	TotalGainLoss    decimal.Decimal            `json:"total_gain_loss"`
	WashSales        []*WashSaleFindingResponse `json:"wash_sales,omitempty"`
}

// DisposalResultFromDomain converts a domain disposal result to a response.
func DisposalResultFromDomain(r *domain.DisposalResult) *DisposalResultResponse {
	dispositions := make([]*DispositionResponse, len(r.Dispositions))
	for i := range r.Dispositions {
		dispositions[i] = DispositionFromDomain(&r.Dispositions[i])
	}

	washSales := make([]*WashSaleFindingResponse, 0, len(r.WashSales))
	for _, w := range r.WashSales {
		washSales = append(washSales, &WashSaleFindingResponse{
			DispositionLotID:   w.DispositionLotID,
			ReplacementLotID:   w.ReplacementLotID,
			DisallowedQuantity: w.DisallowedQuantity,
			DisallowedLoss:     w.DisallowedLoss,
		})
	}

	return &DisposalResultResponse{
		TransactionID:    r.TransactionID,
		PositionID:       r.PositionID,
		Method:           r.Method.String(),
		SaleDate:         r.SaleDate,
		Quantity:         r.Quantity,
		Proceeds:         r.Proceeds,
		Dispositions:     dispositions,
		TotalCostRemoved: r.TotalCostRemoved,
		TotalGainLoss:    r.TotalGainLoss,
		WashSales:        washSales,
	}
}

// LotChangeResponse shows a lot before and after a corporate action.
type LotChangeResponse struct {
	Before *LotResponse `json:"before"`
	After  *LotResponse `json:"after"`
}

// AdjustmentResultResponse represents the outcome of a corporate action.
type AdjustmentResultResponse struct {
	ActionID        string                 `json:"action_id"`
	SecurityID      string                 `json:"security_id"`
	Type            string                 `json:"type"`
	EffectiveDate   time.Time              `json:"effective_date"`
	LotChanges      []*LotChangeResponse   `json:"lot_changes"`
	NewLots         []*LotResponse         `json:"new_lots,omitempty"`
	CashInLieu      []*DispositionResponse `json:"cash_in_lieu,omitempty"`
	CostBasisBefore decimal.Decimal        `json:"cost_basis_before"`
	CostBasisAfter  decimal.Decimal        `json:"cost_basis_after"`
}

// AdjustmentResultFromDomain converts a domain adjustment result to a response.
func AdjustmentResultFromDomain(r *domain.AdjustmentResult) *AdjustmentResultResponse {
	changes := make([]*LotChangeResponse, len(r.LotChanges))
	for i := range r.LotChanges {
		changes[i] = &LotChangeResponse{
			Before: LotFromDomain(&r.LotChanges[i].Before),
			After:  LotFromDomain(&r.LotChanges[i].After),
		}
	}

	cashInLieu := make([]*DispositionResponse, len(r.CashInLieu))
	for i := range r.CashInLieu {
		cashInLieu[i] = DispositionFromDomain(&r.CashInLieu[i])
	}

	return &AdjustmentResultResponse{
		ActionID:        r.ActionID,
		SecurityID:      r.SecurityID,
		Type:            string(r.Type),
		EffectiveDate:   r.EffectiveDate,
		LotChanges:      changes,
		NewLots:         LotsFromDomain(r.NewLots),
		CashInLieu:      cashInLieu,
		CostBasisBefore: r.CostBasisBefore,
		CostBasisAfter:  r.CostBasisAfter,
	}
}

// RealizedGainsResponse represents the realized gain/loss report.
type RealizedGainsResponse struct {
	AccountID          string                 `json:"account_id"`
	From               time.Time              `json:"from"`
	To                 time.Time              `json:"to"`
	ShortTermGain      decimal.Decimal        `json:"short_term_gain"`
	LongTermGain       decimal.Decimal        `json:"long_term_gain"`
	TotalProceeds      decimal.Decimal        `json:"total_proceeds"`
	TotalCostRemoved   decimal.Decimal        `json:"total_cost_removed"`
	WashSaleDisallowed decimal.Decimal        `json:"wash_sale_disallowed"`
	Dispositions       []*DispositionResponse `json:"dispositions"`
}

// RealizedGainsFromUseCase converts a use case report to a response.
func RealizedGainsFromUseCase(r *usecase.RealizedGainsReport) *RealizedGainsResponse {
	return &RealizedGainsResponse{
		AccountID:          r.AccountID,
		From:               r.From,
		To:                 r.To,
		ShortTermGain:      r.ShortTermGain,
		LongTermGain:       r.LongTermGain,
		TotalProceeds:      r.TotalProceeds,
		TotalCostRemoved:   r.TotalCostRemoved,
		WashSaleDisallowed: r.WashSaleDisallowed,
		Dispositions:       DispositionsFromDomain(r.Dispositions),
	}
}

// LotHistoryEntryResponse pairs a lot with the dispositions that consumed it.
type LotHistoryEntryResponse struct {
	Lot          *LotResponse           `json:"lot"`
	Dispositions []*DispositionResponse `json:"dispositions"`
}

// LotHistoryFromUseCase converts use case lot history to responses.
func LotHistoryFromUseCase(entries []*usecase.LotHistoryEntry) []*LotHistoryEntryResponse {
	result := make([]*LotHistoryEntryResponse, len(entries))
	for i, e := range entries {
		result[i] = &LotHistoryEntryResponse{
			Lot:          LotFromDomain(e.Lot),
			Dispositions: DispositionsFromDomain(e.Dispositions),
		}
	}
	return result
}

// PositionCheckResponse represents one position's reconciliation outcome.
type PositionCheckResponse struct {
	PositionID string `json:"position_id"`
	SecurityID string `json:"security_id"`
	Frozen     bool   `json:"frozen"`
	Consistent bool   `json:"consistent"`
	Detail     string `json:"detail,omitempty"`
}

// ReconciliationReportResponse represents a full reconciliation sweep.
type ReconciliationReportResponse struct {
	TotalPositions      int                      `json:"total_positions"`
	ConsistentPositions int                      `json:"consistent_positions"`
	FrozenPositions     int                      `json:"frozen_positions"`
	Discrepancies       []*PositionCheckResponse `json:"discrepancies"`
	LedgerConsistent    bool                     `json:"ledger_consistent"`
	CheckedAt           time.Time                `json:"checked_at"`
}

// ReconciliationFromUseCase converts a use case report to a response.
func ReconciliationFromUseCase(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	discrepancies := make([]*PositionCheckResponse, len(r.Discrepancies))
	for i, c := range r.Discrepancies {
		discrepancies[i] = &PositionCheckResponse{
			PositionID: c.PositionID,
			SecurityID: c.SecurityID,
			Frozen:     c.Frozen,
			Consistent: c.Consistent,
			Detail:     c.Detail,
		}
	}
	return &ReconciliationReportResponse{
		TotalPositions:      r.TotalPositions,
		ConsistentPositions: r.ConsistentPositions,
		FrozenPositions:     r.FrozenPositions,
		Discrepancies:       discrepancies,
		LedgerConsistent:    r.LedgerConsistent,
		CheckedAt:           r.CheckedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
