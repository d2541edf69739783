package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expectErr bool
	}{
		{name: "valid", input: "Brokerage Cash"},
		{name: "empty", input: "", expectErr: true},
		{name: "whitespace only", input: "   ", expectErr: true},
		{name: "too long", input: strings.Repeat("a", 256), expectErr: true},
		{name: "max length", input: strings.Repeat("a", 255)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccountName(tt.input)
			if tt.expectErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSecurityID(t *testing.T) {
	tests := []struct {
		input     string
		expectErr bool
	}{
		{input: "AAPL"},
		{input: "BRK.B"},
		{input: "RY-PT"},
		{input: "9988"},
		{input: "", expectErr: true},
		{input: "aapl", expectErr: true},
		{input: ".AAPL", expectErr: true},
		{input: "TOOLONGSYMBOL", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateSecurityID(tt.input)
			if tt.expectErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name      string
		amount    decimal.Decimal
		expectErr bool
	}{
		{name: "valid", amount: decimal.NewFromInt(100)},
		{name: "zero", amount: decimal.Zero, expectErr: true},
		{name: "negative", amount: decimal.NewFromInt(-1), expectErr: true},
		{name: "at limit", amount: decimal.RequireFromString(MaxEntryAmount)},
		{name: "over limit", amount: decimal.RequireFromString(MaxEntryAmount).Add(decimal.NewFromInt(1)), expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(tt.amount)
			if tt.expectErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidatePagination(t *testing.T) {
	tests := []struct {
		name         string
		limit        int
		offset       int
		expectLimit  int
		expectOffset int
	}{
		{name: "defaults", limit: 0, offset: 0, expectLimit: 50, expectOffset: 0},
		{name: "passthrough", limit: 100, offset: 20, expectLimit: 100, expectOffset: 20},
		{name: "capped", limit: 5000, offset: 0, expectLimit: 1000, expectOffset: 0},
		{name: "negative offset", limit: 10, offset: -5, expectLimit: 10, expectOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset, err := ValidatePagination(tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if limit != tt.expectLimit || offset != tt.expectOffset {
				t.Errorf("expected (%d,%d), got (%d,%d)", tt.expectLimit, tt.expectOffset, limit, offset)
			}
		})
	}
}
