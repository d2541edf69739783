package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/iho/lotledger/internal/adapter/http/dto"
	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/usecase"
)

// CorporateActionService defines the behavior needed by CorporateActionHandler.
type CorporateActionService interface {
	Apply(ctx context.Context, input usecase.ApplyActionInput) (*domain.AdjustmentResult, error)
}

// CorporateActionHandler handles corporate action HTTP requests.
type CorporateActionHandler struct {
	actionUC CorporateActionService
}

// NewCorporateActionHandler creates a new CorporateActionHandler.
func NewCorporateActionHandler(actionUC CorporateActionService) *CorporateActionHandler {
	return &CorporateActionHandler{actionUC: actionUC}
}

// Apply applies a corporate action across every position of the security.
func (h *CorporateActionHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req dto.ApplyCorporateActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.actionUC.Apply(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to apply corporate action", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.AdjustmentResultFromDomain(result))
}
