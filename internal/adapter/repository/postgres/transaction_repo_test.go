package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/lotledger/internal/domain"
)

func TestTransactionRepositoryMarkReversed(t *testing.T) {
	mockPool := newMockPool(t)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mockPool.ExpectBegin()
	mockPool.ExpectExec(`UPDATE transactions SET reversed = TRUE, reversed_at = \$2 WHERE id = \$1`).
		WithArgs("txn-1", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	manager := newTxManagerWithPool(mockPool)
	tx, err := manager.Begin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo := NewTransactionRepository(nil)
	if err := repo.MarkReversed(context.Background(), tx, "txn-1", at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestTransactionRepositoryMarkReversedNotFound(t *testing.T) {
	mockPool := newMockPool(t)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mockPool.ExpectBegin()
	mockPool.ExpectExec(`UPDATE transactions SET reversed = TRUE, reversed_at = \$2 WHERE id = \$1`).
		WithArgs("missing", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	manager := newTxManagerWithPool(mockPool)
	tx, err := manager.Begin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo := NewTransactionRepository(nil)
	err = repo.MarkReversed(context.Background(), tx, "missing", at)
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}
