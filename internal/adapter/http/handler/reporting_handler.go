package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/lotledger/internal/adapter/http/dto"
	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/usecase"
)

// ReportingService defines the behavior needed by ReportingHandler.
type ReportingService interface {
	RealizedGains(ctx context.Context, accountID string, from, to time.Time) (*usecase.RealizedGainsReport, error)
	LotHistory(ctx context.Context, positionID string) ([]*usecase.LotHistoryEntry, error)
	WashSaleFindings(ctx context.Context, accountID string, from, to time.Time) ([]*domain.Disposition, error)
}

// ReconciliationService defines the behavior needed for consistency reports.
type ReconciliationService interface {
	CheckPosition(ctx context.Context, positionID string) (*usecase.PositionCheck, error)
	GenerateReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// ReportingHandler handles reporting and reconciliation HTTP requests.
type ReportingHandler struct {
	reportingUC      ReportingService
	reconciliationUC ReconciliationService
}

// NewReportingHandler creates a new ReportingHandler.
func NewReportingHandler(reportingUC ReportingService, reconciliationUC ReconciliationService) *ReportingHandler {
	return &ReportingHandler{
		reportingUC:      reportingUC,
		reconciliationUC: reconciliationUC,
	}
}

// RealizedGains returns the realized gain/loss report for an account.
func (h *ReportingHandler) RealizedGains(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}

	report, err := h.reportingUC.RealizedGains(r.Context(), accountID, from, to)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to build realized gains report", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.RealizedGainsFromUseCase(report))
}

// LotHistory returns every lot of a position with its dispositions.
func (h *ReportingHandler) LotHistory(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "id")
	if positionID == "" {
		writeError(w, http.StatusBadRequest, "missing position ID", "")
		return
	}

	entries, err := h.reportingUC.LotHistory(r.Context(), positionID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to build lot history", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LotHistoryFromUseCase(entries))
}

// WashSales returns the dispositions with disallowed losses for an account.
func (h *ReportingHandler) WashSales(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}

	findings, err := h.reportingUC.WashSaleFindings(r.Context(), accountID, from, to)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list wash sales", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.DispositionsFromDomain(findings))
}

// Reconciliation sweeps every position and the ledger balance.
func (h *ReportingHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliationUC.GenerateReport(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to generate reconciliation report", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(report))
}

// CheckPosition verifies a single position against its disposal history.
func (h *ReportingHandler) CheckPosition(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "id")
	if positionID == "" {
		writeError(w, http.StatusBadRequest, "missing position ID", "")
		return
	}

	check, err := h.reconciliationUC.CheckPosition(r.Context(), positionID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to check position", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.PositionCheckResponse{
		PositionID: check.PositionID,
		SecurityID: check.SecurityID,
		Frozen:     check.Frozen,
		Consistent: check.Consistent,
		Detail:     check.Detail,
	})
}

// parseRange reads from/to query parameters, defaulting to all time.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseTimeQuery(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	to, err := parseTimeQuery(r, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	return from, to, nil
}
