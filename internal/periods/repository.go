package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/condoledger/condoledger/internal/platform/db"
	"github.com/condoledger/condoledger/internal/shared"
)

// Repository persists accounting periods.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const periodColumns = `id, org_id, start_date, end_date, status, closed_at, closed_by, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.OrgID, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, tx)
	})
}

// Insert creates an open period.
func (r *Repository) Insert(ctx context.Context, in CreateInput) (Period, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounting_periods (org_id, start_date, end_date, status)
VALUES ($1,$2,$3,'open') RETURNING `+periodColumns, in.OrgID, in.StartDate, in.EndDate)
	return scanPeriod(row)
}

// RangeConflict reports whether an existing period overlaps the window.
func (r *Repository) RangeConflict(ctx context.Context, orgID int64, start, end time.Time) (bool, error) {
	var conflict bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM accounting_periods WHERE org_id=$1 AND start_date <= $3 AND end_date >= $2)`, orgID, start, end).Scan(&conflict)
	return conflict, err
}

// Get loads a period by id.
func (r *Repository) Get(ctx context.Context, orgID, id int64) (Period, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE org_id=$1 AND id=$2`, orgID, id)
	p, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.NotFoundf("periods: period %d not found", id)
		}
		return Period{}, err
	}
	return p, nil
}

// List returns the organization's periods ordered by start date.
func (r *Repository) List(ctx context.Context, orgID int64) ([]Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE org_id=$1 ORDER BY start_date`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetForUpdate loads a period inside tx with a row lock.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, orgID, id int64) (Period, error) {
	row := tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, id)
	p, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.NotFoundf("periods: period %d not found", id)
		}
		return Period{}, err
	}
	return p, nil
}

// UpdateStatus flips the period status inside tx.
func (r *Repository) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status Status, closedBy *int64, closedAt *time.Time) error {
	cmd, err := tx.Exec(ctx, `UPDATE accounting_periods SET status=$2, closed_by=$3, closed_at=$4, updated_at=NOW() WHERE id=$1`, id, status, closedBy, closedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("periods: period %d not found", id)
	}
	return nil
}

// ClosedPeriodCovering returns the closed period containing the date, if any.
func (r *Repository) ClosedPeriodCovering(ctx context.Context, orgID int64, date time.Time) (*Period, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods
WHERE org_id=$1 AND status='closed' AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, orgID, date)
	p, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
