package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/usecase"
)

// LotRepository implements usecase.LotRepository.
type LotRepository struct {
	pool *pgxpool.Pool
}

// NewLotRepository creates a new LotRepository.
func NewLotRepository(pool *pgxpool.Pool) *LotRepository {
	return &LotRepository{pool: pool}
}

const lotColumns = `id, position_id, original_quantity, remaining_quantity, cost_per_unit,
	acquisition_date, acquisition_type, wash_sale_disallowed, created_at, updated_at`

// Create creates a new lot.
func (r *LotRepository) Create(ctx context.Context, tx usecase.Transaction, lot *domain.Lot) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO lots (` + lotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := pgxTx.Exec(ctx, query,
		lot.ID,
		lot.PositionID,
		decimalToNumeric(lot.OriginalQuantity),
		decimalToNumeric(lot.RemainingQuantity),
		decimalToNumeric(lot.CostPerUnit),
		lot.AcquisitionDate,
		string(lot.AcquisitionType),
		decimalToNumeric(lot.WashSaleDisallowed),
		lot.CreatedAt,
		lot.UpdatedAt,
	)

	return err
}

// GetByID retrieves a lot by ID.
func (r *LotRepository) GetByID(ctx context.Context, id string) (*domain.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = $1`

	lot, err := scanLot(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLotNotFound
		}

		return nil, err
	}

	return lot, nil
}

// ListByPosition lists every lot of a position, open and exhausted, in
// acquisition order.
func (r *LotRepository) ListByPosition(ctx context.Context, positionID string) ([]*domain.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots
		WHERE position_id = $1
		ORDER BY acquisition_date, id
	`

	return r.list(ctx, r.pool, query, positionID)
}

// ListOpenByPositionForUpdate locks and returns the open lots of a
// position, in acquisition order.
func (r *LotRepository) ListOpenByPositionForUpdate(ctx context.Context, tx usecase.Transaction, positionID string) ([]*domain.Lot, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		SELECT ` + lotColumns + `
		FROM lots
		WHERE position_id = $1 AND remaining_quantity > 0
		ORDER BY acquisition_date, id
		FOR UPDATE
	`

	return r.list(ctx, pgxTx, query, positionID)
}

// Reduce subtracts disposed quantity from a lot. The guard in the WHERE
// clause makes overdrawing a lot impossible at the storage level.
func (r *LotRepository) Reduce(ctx context.Context, tx usecase.Transaction, lotID string, quantity decimal.Decimal, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE lots
		SET remaining_quantity = remaining_quantity - $2, updated_at = $3
		WHERE id = $1 AND remaining_quantity >= $2
	`

	tag, err := pgxTx.Exec(ctx, query, lotID, decimalToNumeric(quantity), updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLotNotFound
	}

	return nil
}

// Rewrite replaces every mutable column of a lot. Corporate actions use
// this to apply quantity and basis restatements.
func (r *LotRepository) Rewrite(ctx context.Context, tx usecase.Transaction, lot *domain.Lot) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE lots
		SET original_quantity = $2,
		    remaining_quantity = $3,
		    cost_per_unit = $4,
		    acquisition_date = $5,
		    wash_sale_disallowed = $6,
		    updated_at = $7
		WHERE id = $1
	`

	tag, err := pgxTx.Exec(ctx, query,
		lot.ID,
		decimalToNumeric(lot.OriginalQuantity),
		decimalToNumeric(lot.RemainingQuantity),
		decimalToNumeric(lot.CostPerUnit),
		lot.AcquisitionDate,
		decimalToNumeric(lot.WashSaleDisallowed),
		lot.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLotNotFound
	}

	return nil
}

// AddWashSaleBasis spreads a disallowed loss into the replacement lot's
// cost per unit and records the carried amount.
func (r *LotRepository) AddWashSaleBasis(ctx context.Context, tx usecase.Transaction, lotID string, increase decimal.Decimal, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE lots
		SET cost_per_unit = cost_per_unit + ($2::numeric / remaining_quantity),
		    wash_sale_disallowed = wash_sale_disallowed + $2,
		    updated_at = $3
		WHERE id = $1 AND remaining_quantity > 0
	`

	tag, err := pgxTx.Exec(ctx, query, lotID, decimalToNumeric(increase), updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLotNotFound
	}

	return nil
}

// ListWashSaleCandidates returns open lots of the security under the same
// owner acquired inside the window, excluding the lots consumed by the sale
// itself. Ordered oldest acquisition first, matching the order disallowed
// losses attach to replacements.
func (r *LotRepository) ListWashSaleCandidates(ctx context.Context, tx usecase.Transaction, securityID, ownerID string, from, to time.Time, excludeLotIDs []string) ([]*domain.Lot, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		SELECT l.id, l.position_id, l.original_quantity, l.remaining_quantity, l.cost_per_unit,
		       l.acquisition_date, l.acquisition_type, l.wash_sale_disallowed, l.created_at, l.updated_at
		FROM lots l
		JOIN positions p ON p.id = l.position_id
		JOIN accounts a ON a.id = p.account_id
		WHERE p.security_id = $1
		  AND a.owner_id = $2
		  AND l.remaining_quantity > 0
		  AND l.acquisition_date BETWEEN $3 AND $4
		  AND NOT (l.id = ANY($5))
		ORDER BY l.acquisition_date, l.id
		FOR UPDATE OF l
	`

	if excludeLotIDs == nil {
		excludeLotIDs = []string{}
	}

	return r.list(ctx, pgxTx, query, securityID, ownerID, from, to, excludeLotIDs)
}

func (r *LotRepository) list(ctx context.Context, q querier, query string, args ...any) ([]*domain.Lot, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lots []*domain.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}

	return lots, rows.Err()
}

func scanLot(row pgx.Row) (*domain.Lot, error) {
	var lot domain.Lot
	var original, remaining, cost, disallowed pgtype.Numeric
	var acquisitionType string

	err := row.Scan(
		&lot.ID,
		&lot.PositionID,
		&original,
		&remaining,
		&cost,
		&lot.AcquisitionDate,
		&acquisitionType,
		&disallowed,
		&lot.CreatedAt,
		&lot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lot.OriginalQuantity = numericToDecimal(original)
	lot.RemainingQuantity = numericToDecimal(remaining)
	lot.CostPerUnit = numericToDecimal(cost)
	lot.WashSaleDisallowed = numericToDecimal(disallowed)
	lot.AcquisitionType = domain.AcquisitionType(acquisitionType)

	return &lot, nil
}
