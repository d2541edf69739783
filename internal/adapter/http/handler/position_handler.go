package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/lotledger/internal/adapter/http/dto"
	"github.com/iho/lotledger/internal/domain"
)

// PositionService defines the behavior needed by PositionHandler.
type PositionService interface {
	GetPosition(ctx context.Context, positionID string) (*domain.Position, error)
	GetPositionSummary(ctx context.Context, positionID string) (*domain.PositionSummary, error)
	ListLots(ctx context.Context, positionID string) ([]*domain.Lot, error)
	ListPositionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Position, error)
}

// PositionHandler handles position HTTP requests.
type PositionHandler struct {
	positionUC PositionService
}

// NewPositionHandler creates a new PositionHandler.
func NewPositionHandler(positionUC PositionService) *PositionHandler {
	return &PositionHandler{positionUC: positionUC}
}

// Get retrieves a position by ID.
func (h *PositionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing position ID", "")
		return
	}

	position, err := h.positionUC.GetPosition(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get position", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.PositionFromDomain(position))
}

// Summary returns the derived state of a position.
func (h *PositionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing position ID", "")
		return
	}

	summary, err := h.positionUC.GetPositionSummary(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get position summary", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SummaryFromDomain(summary))
}

// Lots lists every lot of a position, open and closed.
func (h *PositionHandler) Lots(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing position ID", "")
		return
	}

	lots, err := h.positionUC.ListLots(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list lots", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LotsFromDomain(lots))
}

// ListByAccount lists positions held by an account.
func (h *PositionHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	positions, err := h.positionUC.ListPositionsByAccount(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list positions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.PositionsFromDomain(positions))
}
