package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/usecase"
)

// PositionRepository implements usecase.PositionRepository.
type PositionRepository struct {
	pool *pgxpool.Pool
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(pool *pgxpool.Pool) *PositionRepository {
	return &PositionRepository{pool: pool}
}

const positionColumns = `id, account_id, security_id, frozen, created_at, updated_at`

// Create creates a new position.
func (r *PositionRepository) Create(ctx context.Context, tx usecase.Transaction, position *domain.Position) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := pgxTx.Exec(ctx, query,
		position.ID,
		position.AccountID,
		position.SecurityID,
		position.Frozen,
		position.CreatedAt,
		position.UpdatedAt,
	)

	return err
}

// GetByID retrieves a position by ID.
func (r *PositionRepository) GetByID(ctx context.Context, id string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`

	position, err := scanPosition(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}

		return nil, err
	}

	return position, nil
}

// GetByIDForUpdate retrieves a position with a FOR UPDATE lock.
func (r *PositionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Position, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1 FOR UPDATE`

	position, err := scanPosition(pgxTx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}

		return nil, err
	}

	return position, nil
}

// GetByAccountSecurity retrieves the position of one security in one account.
func (r *PositionRepository) GetByAccountSecurity(ctx context.Context, accountID, securityID string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE account_id = $1 AND security_id = $2`

	position, err := scanPosition(r.pool.QueryRow(ctx, query, accountID, securityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}

		return nil, err
	}

	return position, nil
}

// ListBySecurityForUpdate locks every position holding the security, in ID
// order.
func (r *PositionRepository) ListBySecurityForUpdate(ctx context.Context, tx usecase.Transaction, securityID string) ([]*domain.Position, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE security_id = $1
		ORDER BY id
		FOR UPDATE
	`

	rows, err := pgxTx.Query(ctx, query, securityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}

	return positions, rows.Err()
}

// SetFrozen writes the frozen flag on the pool, outside any caller
// transaction, so a freeze persists even when the operation that detected
// the corruption rolls back.
func (r *PositionRepository) SetFrozen(ctx context.Context, id string, frozen bool, updatedAt time.Time) error {
	query := `UPDATE positions SET frozen = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, frozen, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPositionNotFound
	}

	return nil
}

// UpdateSecurity rewrites the security identifier of a position.
func (r *PositionRepository) UpdateSecurity(ctx context.Context, tx usecase.Transaction, id, securityID string, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `UPDATE positions SET security_id = $2, updated_at = $3 WHERE id = $1`

	tag, err := pgxTx.Exec(ctx, query, id, securityID, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPositionNotFound
	}

	return nil
}

// ListByAccount lists positions in an account.
func (r *PositionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE account_id = $1
		ORDER BY security_id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}

	return positions, rows.Err()
}

func scanPosition(row pgx.Row) (*domain.Position, error) {
	var position domain.Position

	err := row.Scan(
		&position.ID,
		&position.AccountID,
		&position.SecurityID,
		&position.Frozen,
		&position.CreatedAt,
		&position.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &position, nil
}
