package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/usecase"
)

// DispositionRepository implements usecase.DispositionRepository.
// Dispositions are immutable once written; they are the tax record.
type DispositionRepository struct {
	pool *pgxpool.Pool
}

// NewDispositionRepository creates a new DispositionRepository.
func NewDispositionRepository(pool *pgxpool.Pool) *DispositionRepository {
	return &DispositionRepository{pool: pool}
}

// CreateBatch writes the dispositions of one sale. An empty transactionID
// is stored as NULL; cash-in-lieu from corporate actions has no backing
// journal transaction.
func (r *DispositionRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, transactionID string, dispositions []domain.Disposition) error {
	pgxTx := tx.(*Tx).PgxTx()

	var txnID *string
	if transactionID != "" {
		txnID = &transactionID
	}

	idGen := NewULIDGenerator()
	now := time.Now().UTC()

	batch := &pgx.Batch{}
	for i := range dispositions {
		d := &dispositions[i]
		batch.Queue(`
			INSERT INTO dispositions (
				id, transaction_id, lot_id, acquisition_date, quantity,
				cost_basis_removed, proceeds, gain_loss, holding_period,
				wash_sale_disallowed, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			idGen.Generate(),
			txnID,
			d.LotID,
			d.AcquisitionDate,
			decimalToNumeric(d.Quantity),
			decimalToNumeric(d.CostBasisRemoved),
			decimalToNumeric(d.Proceeds),
			decimalToNumeric(d.GainLoss),
			string(d.HoldingPeriod),
			decimalToNumeric(d.WashSaleDisallowed),
			now,
		)
	}

	results := pgxTx.SendBatch(ctx, batch)
	defer results.Close()

	for range dispositions {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return results.Close()
}

const dispositionColumns = `lot_id, acquisition_date, quantity, cost_basis_removed,
	proceeds, gain_loss, holding_period, wash_sale_disallowed`

// ListByAccount lists dispositions realized from an account's positions in
// a date range.
func (r *DispositionRepository) ListByAccount(ctx context.Context, accountID string, from, to time.Time) ([]*domain.Disposition, error) {
	query := `
		SELECT d.lot_id, d.acquisition_date, d.quantity, d.cost_basis_removed,
		       d.proceeds, d.gain_loss, d.holding_period, d.wash_sale_disallowed
		FROM dispositions d
		JOIN lots l ON l.id = d.lot_id
		JOIN positions p ON p.id = l.position_id
		WHERE p.account_id = $1 AND d.created_at BETWEEN $2 AND $3
		ORDER BY d.created_at, d.id
	`

	return r.list(ctx, query, accountID, from, to)
}

// ListByLot lists the dispositions that consumed one lot.
func (r *DispositionRepository) ListByLot(ctx context.Context, lotID string) ([]*domain.Disposition, error) {
	query := `
		SELECT ` + dispositionColumns + `
		FROM dispositions
		WHERE lot_id = $1
		ORDER BY created_at, id
	`

	return r.list(ctx, query, lotID)
}

// SumReducedByLot sums disposed quantity per lot across a position, for
// reconciliation against remaining quantities.
func (r *DispositionRepository) SumReducedByLot(ctx context.Context, positionID string) (map[string]decimal.Decimal, error) {
	query := `
		SELECT d.lot_id, COALESCE(SUM(d.quantity), 0)
		FROM dispositions d
		JOIN lots l ON l.id = d.lot_id
		WHERE l.position_id = $1
		GROUP BY d.lot_id
	`

	rows, err := r.pool.Query(ctx, query, positionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := make(map[string]decimal.Decimal)
	for rows.Next() {
		var lotID string
		var quantity pgtype.Numeric
		if err := rows.Scan(&lotID, &quantity); err != nil {
			return nil, err
		}
		sums[lotID] = numericToDecimal(quantity)
	}

	return sums, rows.Err()
}

func (r *DispositionRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Disposition, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dispositions []*domain.Disposition
	for rows.Next() {
		var d domain.Disposition
		var quantity, cost, proceeds, gainLoss, disallowed pgtype.Numeric
		var holdingPeriod string

		err := rows.Scan(
			&d.LotID,
			&d.AcquisitionDate,
			&quantity,
			&cost,
			&proceeds,
			&gainLoss,
			&holdingPeriod,
			&disallowed,
		)
		if err != nil {
			return nil, err
		}

		d.Quantity = numericToDecimal(quantity)
		d.CostBasisRemoved = numericToDecimal(cost)
		d.Proceeds = numericToDecimal(proceeds)
		d.GainLoss = numericToDecimal(gainLoss)
		d.WashSaleDisallowed = numericToDecimal(disallowed)
		d.HoldingPeriod = domain.HoldingPeriod(holdingPeriod)

		dispositions = append(dispositions, &d)
	}

	return dispositions, rows.Err()
}
