package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
)

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/accounts?limit=50", nil)
	if got := parseIntQuery(req, "limit", 10); got != 50 {
		t.Fatalf("expected limit=50, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/accounts?limit=invalid", nil)
	if got := parseIntQuery(req, "limit", 10); got != 10 {
		t.Fatalf("expected fallback to default, got %d", got)
	}

	req.URL = &url.URL{RawQuery: ""}
	if got := parseIntQuery(req, "limit", 25); got != 25 {
		t.Fatalf("expected default when missing, got %d", got)
	}
}

func TestParseTimeQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/reports?from=2025-02-01T00:00:00Z", nil)
	got, err := parseTimeQuery(req, "from")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2025 || got.Month() != 2 {
		t.Fatalf("unexpected time %v", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/reports", nil)
	got, err = parseTimeQuery(req, "from")
	if err != nil || !got.IsZero() {
		t.Fatalf("expected zero time for missing parameter, got %v, %v", got, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/reports?from=yesterday", nil)
	if _, err = parseTimeQuery(req, "from"); err == nil {
		t.Fatal("expected error for malformed time")
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"account not found", domain.ErrAccountNotFound, http.StatusNotFound},
		{"transaction not found", domain.ErrTransactionNotFound, http.StatusNotFound},
		{"position not found", domain.ErrPositionNotFound, http.StatusNotFound},
		{"lot not found", domain.ErrLotNotFound, http.StatusNotFound},
		{"frozen position", domain.ErrPositionFrozen, http.StatusConflict},
		{"already reversed", domain.ErrTransactionAlreadyReversed, http.StatusConflict},
		{"unbalanced", domain.ErrUnbalancedTransaction, http.StatusBadRequest},
		{"invalid quantity", domain.ErrInvalidQuantity, http.StatusBadRequest},
		{"invalid ratio", domain.ErrInvalidRatio, http.StatusBadRequest},
		{"no open lots", domain.ErrNoOpenLots, http.StatusBadRequest},
		{"unfunded lot", domain.ErrLotUnfunded, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{
			"insufficient lots",
			&domain.InsufficientLotsError{
				PositionID: "pos-1",
				Requested:  decimal.NewFromInt(100),
				Available:  decimal.NewFromInt(40),
			},
			http.StatusUnprocessableEntity,
		},
		{
			"corrupted position",
			&domain.PositionCorruptedError{
				PositionID: "pos-1",
				LotSum:     decimal.NewFromInt(39),
				Expected:   decimal.NewFromInt(40),
			},
			http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}
