package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/iho/lotledger/internal/adapter/http/dto"
	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/usecase"
)

// DisposalService defines the behavior needed by DisposalHandler.
type DisposalService interface {
	SelectAndDispose(ctx context.Context, input usecase.SelectAndDisposeInput) (*domain.DisposalResult, error)
}

// DisposalHandler handles sale execution HTTP requests.
type DisposalHandler struct {
	disposalUC DisposalService
}

// NewDisposalHandler creates a new DisposalHandler.
func NewDisposalHandler(disposalUC DisposalService) *DisposalHandler {
	return &DisposalHandler{disposalUC: disposalUC}
}

// Execute runs a sale: lot selection, wash-sale detection, and the journal
// posting, all in one storage transaction.
func (h *DisposalHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req dto.DisposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid disposal method", err.Error())
		return
	}

	result, err := h.disposalUC.SelectAndDispose(r.Context(), input)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to execute disposal", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.DisposalResultFromDomain(result))
}
