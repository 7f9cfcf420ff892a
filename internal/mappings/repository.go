package mappings

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/condoledger/condoledger/internal/platform/db"
	"github.com/condoledger/condoledger/internal/shared"
)

// Repository persists category mappings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const mappingColumns = `id, org_id, category, direction, debit_account_id, credit_account_id, created_at, updated_at`

func scanMapping(row pgx.Row) (CategoryMapping, error) {
	var m CategoryMapping
	err := row.Scan(&m.ID, &m.OrgID, &m.Category, &m.Direction, &m.DebitAccountID, &m.CreditAccountID, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Insert creates a mapping. The direction is stored lowercase.
func (r *Repository) Insert(ctx context.Context, m CategoryMapping) (CategoryMapping, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO category_mappings (org_id, category, direction, debit_account_id, credit_account_id)
VALUES ($1,$2,$3,$4,$5) RETURNING `+mappingColumns,
		m.OrgID, m.Category, strings.ToLower(m.Direction), m.DebitAccountID, m.CreditAccountID)
	out, err := scanMapping(row)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_category_mappings") {
			return CategoryMapping{}, shared.Validationf("mappings: mapping for (%s, %s) already exists", m.Category, m.Direction)
		}
		return CategoryMapping{}, err
	}
	return out, nil
}

// List returns the organization's mappings.
func (r *Repository) List(ctx context.Context, orgID int64) ([]CategoryMapping, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+mappingColumns+` FROM category_mappings WHERE org_id=$1 ORDER BY category, direction`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a mapping.
func (r *Repository) Delete(ctx context.Context, orgID, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM category_mappings WHERE org_id=$1 AND id=$2`, orgID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("mappings: mapping %d not found", id)
	}
	return nil
}

// Resolve finds the mapping for a category and direction; the direction is
// normalized to lowercase before lookup.
func (r *Repository) Resolve(ctx context.Context, orgID int64, category, direction string) (CategoryMapping, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+mappingColumns+` FROM category_mappings WHERE org_id=$1 AND category=$2 AND direction=$3`,
		orgID, category, strings.ToLower(direction))
	m, err := scanMapping(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CategoryMapping{}, shared.NotFoundf("mappings: no mapping for (%s, %s)", category, direction)
		}
		return CategoryMapping{}, err
	}
	return m, nil
}
