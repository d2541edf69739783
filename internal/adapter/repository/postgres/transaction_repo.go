package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository. A journal
// transaction and its entries are written together and never updated,
// except for the reversed flag.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create writes the transaction header and all its entries.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO transactions (id, date, memo, reference, reversal_of, reversed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := pgxTx.Exec(ctx, query,
		txn.ID,
		txn.Date,
		txn.Memo,
		txn.Reference,
		txn.ReversalOf,
		txn.Reversed,
		txn.CreatedAt,
	)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i := range txn.Entries {
		e := &txn.Entries[i]
		batch.Queue(`
			INSERT INTO entries (id, transaction_id, account_id, debit, credit, lot_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			e.ID,
			txn.ID,
			e.AccountID,
			decimalToNumeric(e.Debit),
			decimalToNumeric(e.Credit),
			e.LotID,
			e.CreatedAt,
		)
	}

	results := pgxTx.SendBatch(ctx, batch)
	defer results.Close()

	for range txn.Entries {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return results.Close()
}

// GetByID retrieves a transaction with its entries.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.get(ctx, r.pool, id, false)
}

// GetByIDForUpdate retrieves a transaction with a FOR UPDATE lock on the
// header row.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	return r.get(ctx, tx.(*Tx).PgxTx(), id, true)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *TransactionRepository) get(ctx context.Context, q querier, id string, forUpdate bool) (*domain.Transaction, error) {
	query := `
		SELECT id, date, memo, reference, reversal_of, reversed, created_at
		FROM transactions
		WHERE id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var txn domain.Transaction
	err := q.QueryRow(ctx, query, id).Scan(
		&txn.ID,
		&txn.Date,
		&txn.Memo,
		&txn.Reference,
		&txn.ReversalOf,
		&txn.Reversed,
		&txn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	entries, err := r.entriesFor(ctx, q, id)
	if err != nil {
		return nil, err
	}
	txn.Entries = entries

	return &txn, nil
}

func (r *TransactionRepository) entriesFor(ctx context.Context, q querier, transactionID string) ([]domain.Entry, error) {
	query := `
		SELECT id, transaction_id, account_id, debit, credit, lot_id, created_at
		FROM entries
		WHERE transaction_id = $1
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

// MarkReversed flags a transaction as reversed and records when.
func (r *TransactionRepository) MarkReversed(ctx context.Context, tx usecase.Transaction, id string, at time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `UPDATE transactions SET reversed = TRUE, reversed_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// ListByAccount lists transactions that touch the account, newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	query := `
		SELECT DISTINCT t.id, t.date, t.memo, t.reference, t.reversal_of, t.reversed, t.created_at
		FROM transactions t
		JOIN entries e ON e.transaction_id = t.id
		WHERE e.account_id = $1
		ORDER BY t.date DESC, t.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		err := rows.Scan(
			&txn.ID,
			&txn.Date,
			&txn.Memo,
			&txn.Reference,
			&txn.ReversalOf,
			&txn.Reversed,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, &txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, txn := range transactions {
		entries, err := r.entriesFor(ctx, r.pool, txn.ID)
		if err != nil {
			return nil, err
		}
		txn.Entries = entries
	}

	return transactions, nil
}

// ListEntriesByAccount lists the raw entry history of an account.
func (r *TransactionRepository) ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	query := `
		SELECT id, transaction_id, account_id, debit, credit, lot_id, created_at
		FROM entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var entry domain.Entry
	var debit, credit pgtype.Numeric

	err := row.Scan(
		&entry.ID,
		&entry.TransactionID,
		&entry.AccountID,
		&debit,
		&credit,
		&entry.LotID,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Debit = numericToDecimal(debit)
	entry.Credit = numericToDecimal(credit)

	return &entry, nil
}
