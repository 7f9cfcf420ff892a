package posting

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/condoledger/condoledger/internal/platform/db"
	"github.com/condoledger/condoledger/internal/posting/reports"
	"github.com/condoledger/condoledger/internal/shared"
)

// ErrSourceConflict indicates the source entry already has a posting.
var ErrSourceConflict = errors.New("posting: source entry already posted")

// Repository persists postings and their lines.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	LockPeriodForCompetency(ctx context.Context, orgID int64, competency time.Time) error
	InsertPosting(ctx context.Context, d Draft) (Posting, error)
	InsertLines(ctx context.Context, postingID int64, lines []DraftLine) error
	LinkSource(ctx context.Context, orgID, entryID, postingID int64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction; a posting and its
// lines are persisted as one unit or not at all.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// LockPeriodForCompetency re-checks the closed-period guard inside the
// posting transaction, locking the covering period row so a concurrent
// period close cannot commit between the pre-check and the insert.
func (r *txRepository) LockPeriodForCompetency(ctx context.Context, orgID int64, competency time.Time) error {
	var status string
	err := r.tx.QueryRow(ctx, `SELECT status FROM accounting_periods
WHERE org_id=$1 AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1 FOR UPDATE`,
		orgID, competency).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return db.Translate(err)
	}
	if status == "closed" {
		return shared.StateConflictf("period-locked", "competency %s falls in a closed period", competency.Format("2006-01-02"))
	}
	return nil
}

const postingColumns = `id, org_id, posting_date, competency, historical, origin, source_entry_id, status, created_at, updated_at`

func scanPosting(row pgx.Row) (Posting, error) {
	var p Posting
	err := row.Scan(&p.ID, &p.OrgID, &p.PostingDate, &p.Competency, &p.Historical, &p.Origin, &p.SourceEntryID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *txRepository) InsertPosting(ctx context.Context, d Draft) (Posting, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO postings (org_id, posting_date, competency, historical, origin, source_entry_id, status)
VALUES ($1,$2,$3,$4,$5,$6,'open') RETURNING `+postingColumns,
		d.OrgID, d.PostingDate, d.Competency, d.Historical, d.Origin, d.SourceEntryID)
	return scanPosting(row)
}

func (r *txRepository) InsertLines(ctx context.Context, postingID int64, lines []DraftLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO posting_lines (posting_id, account_id, side, amount, cost_center)
VALUES ($1,$2,$3,$4,$5)`, postingID, line.AccountID, line.Side, line.Amount.StringFixed(2), line.CostCenter); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) LinkSource(ctx context.Context, orgID, entryID, postingID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO posting_sources (org_id, entry_id, posting_id) VALUES ($1,$2,$3)`, orgID, entryID, postingID)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_posting_sources") {
			return ErrSourceConflict
		}
		return err
	}
	return nil
}

// HasSource reports whether the entry already has an integration posting.
func (r *Repository) HasSource(ctx context.Context, orgID, entryID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posting_sources WHERE org_id=$1 AND entry_id=$2)`, orgID, entryID).Scan(&exists)
	return exists, err
}

// GetWithLines loads a posting and its lines.
func (r *Repository) GetWithLines(ctx context.Context, orgID, id int64) (Posting, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+postingColumns+` FROM postings WHERE org_id=$1 AND id=$2`, orgID, id)
	p, err := scanPosting(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Posting{}, shared.NotFoundf("posting: posting %d not found", id)
		}
		return Posting{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, posting_id, account_id, side, amount::text, cost_center, created_at
FROM posting_lines WHERE posting_id=$1 ORDER BY id`, id)
	if err != nil {
		return Posting{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		var amount string
		if err := rows.Scan(&line.ID, &line.PostingID, &line.AccountID, &line.Side, &amount, &line.CostCenter, &line.CreatedAt); err != nil {
			return Posting{}, err
		}
		line.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return Posting{}, err
		}
		p.Lines = append(p.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return Posting{}, err
	}
	return p, nil
}

// List returns postings with competency inside the window, newest first.
func (r *Repository) List(ctx context.Context, orgID int64, from, to time.Time, limit, offset int) ([]Posting, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+postingColumns+` FROM postings
WHERE org_id=$1 AND competency BETWEEN $2 AND $3 ORDER BY competency DESC, id DESC LIMIT $4 OFFSET $5`,
		orgID, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AccountActivity aggregates posting lines by account over a competency window.
func (r *Repository) AccountActivity(ctx context.Context, orgID int64, from, to time.Time) ([]reports.AccountActivity, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.code, a.name, a."group", a.nature,
COALESCE(SUM(pl.amount) FILTER (WHERE pl.side='debit'), 0)::text,
COALESCE(SUM(pl.amount) FILTER (WHERE pl.side='credit'), 0)::text
FROM posting_lines pl
JOIN postings p ON p.id = pl.posting_id
JOIN accounts a ON a.id = pl.account_id
WHERE p.org_id=$1 AND p.competency BETWEEN $2 AND $3
GROUP BY a.id, a.code, a.name, a."group", a.nature
ORDER BY a.code`, orgID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []reports.AccountActivity
	for rows.Next() {
		var row reports.AccountActivity
		var debit, credit string
		if err := rows.Scan(&row.AccountID, &row.Code, &row.Name, &row.Group, &row.Nature, &debit, &credit); err != nil {
			return nil, err
		}
		if row.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, err
		}
		if row.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CloseByCompetencyWindow flips open postings inside the window to closed.
// Invoked when the covering accounting period closes.
func (r *Repository) CloseByCompetencyWindow(ctx context.Context, orgID int64, from, to time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `UPDATE postings SET status='closed', updated_at=NOW()
WHERE org_id=$1 AND status='open' AND competency BETWEEN $2 AND $3`, orgID, from, to)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
