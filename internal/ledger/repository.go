package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/condoledger/condoledger/internal/platform/db"
	"github.com/condoledger/condoledger/internal/shared"
)

// Repository persists ledger entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations for entry transitions.
type TxRepository interface {
	Insert(ctx context.Context, in CreateInput) (LedgerEntry, error)
	GetForUpdate(ctx context.Context, orgID, id int64) (LedgerEntry, error)
	UpdateSituation(ctx context.Context, id int64, situation Situation, settlementDate *time.Time, reference *string) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const entryColumns = `id, org_id, direction, situation, counterparty_id, category, cost_center, financial_account_id,
amount::text, competency, due_date, settlement_date, payment_method, description, reference, created_at, updated_at`

func scanEntry(row pgx.Row) (LedgerEntry, error) {
	var e LedgerEntry
	var amount string
	err := row.Scan(&e.ID, &e.OrgID, &e.Direction, &e.Situation, &e.CounterpartyID, &e.Category, &e.CostCenter,
		&e.FinancialAccountID, &amount, &e.Competency, &e.DueDate, &e.SettlementDate, &e.PaymentMethod,
		&e.Description, &e.Reference, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return LedgerEntry{}, err
	}
	e.Amount, err = decimal.NewFromString(amount)
	return e, err
}

func (r *txRepository) Insert(ctx context.Context, in CreateInput) (LedgerEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO ledger_entries
(org_id, direction, situation, counterparty_id, category, cost_center, financial_account_id, amount, competency, due_date, settlement_date, payment_method, description, reference)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING `+entryColumns,
		in.OrgID, in.Direction, in.Situation, in.CounterpartyID, in.Category, in.CostCenter, in.FinancialAccountID,
		in.Amount.StringFixed(2), in.Competency, in.DueDate, in.SettlementDate, in.PaymentMethod, in.Description, in.Reference)
	return scanEntry(row)
}

func (r *txRepository) GetForUpdate(ctx context.Context, orgID, id int64) (LedgerEntry, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerEntry{}, shared.NotFoundf("ledger: entry %d not found", id)
		}
		return LedgerEntry{}, err
	}
	return e, nil
}

func (r *txRepository) UpdateSituation(ctx context.Context, id int64, situation Situation, settlementDate *time.Time, reference *string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_entries SET situation=$2,
settlement_date=COALESCE($3, settlement_date),
reference=COALESCE($4, reference),
updated_at=NOW() WHERE id=$1`, id, situation, settlementDate, reference)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("ledger: entry %d not found", id)
	}
	return nil
}

// Get loads an entry scoped to the organization.
func (r *Repository) Get(ctx context.Context, orgID, id int64) (LedgerEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE org_id=$1 AND id=$2`, orgID, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerEntry{}, shared.NotFoundf("ledger: entry %d not found", id)
		}
		return LedgerEntry{}, err
	}
	return e, nil
}

// List returns entries matching the filter, newest competency first.
func (r *Repository) List(ctx context.Context, orgID int64, filter ListFilter) ([]LedgerEntry, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries
WHERE org_id=$1
AND ($2 = '' OR situation = $2)
AND ($3 = '' OR direction = $3)
AND ($4::date IS NULL OR competency >= $4)
AND ($5::date IS NULL OR competency <= $5)
ORDER BY competency DESC, id DESC LIMIT $6 OFFSET $7`,
		orgID, string(filter.Situation), string(filter.Direction),
		nullTime(filter.CompetencyFrom), nullTime(filter.CompetencyTo), limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SettledBetween returns paid entries settled inside the window, ordered by
// id for stable matching.
func (r *Repository) SettledBetween(ctx context.Context, orgID int64, from, to time.Time) ([]LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries
WHERE org_id=$1 AND situation='paid' AND settlement_date BETWEEN $2 AND $3 ORDER BY id`, orgID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SettledForIntegration returns entries eligible for the integration sweep:
// situation paid, reconciled, or closed with competency inside the window.
func (r *Repository) SettledForIntegration(ctx context.Context, orgID int64, from, to time.Time) ([]LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries
WHERE org_id=$1 AND situation IN ('paid','reconciled','closed') AND competency BETWEEN $2 AND $3 ORDER BY id`, orgID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// OrgsWithSettled lists organizations holding sweep-eligible entries in the
// window, used by the scheduled sweep to fan out per organization.
func (r *Repository) OrgsWithSettled(ctx context.Context, from, to time.Time) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT org_id FROM ledger_entries
WHERE situation IN ('paid','reconciled','closed') AND competency BETWEEN $1 AND $2 ORDER BY org_id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
