package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/condoledger/condoledger/internal/platform/db"
	"github.com/condoledger/condoledger/internal/shared"
)

// Repository persists chart of accounts nodes and financial accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, org_id, code, name, "group", nature, level, parent_id, active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Group, &a.Nature, &a.Level, &a.ParentID, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// CreateAccount inserts a chart of accounts node.
func (r *Repository) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts (org_id, code, name, "group", nature, level, parent_id, active)
VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE) RETURNING `+accountColumns, in.OrgID, in.Code, in.Name, in.Group, in.Nature, in.Level, in.ParentID)
	a, err := scanAccount(row)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_accounts_org_code") {
			return Account{}, shared.Validationf("accounts: code %s already in use", in.Code)
		}
		return Account{}, err
	}
	return a, nil
}

// GetAccount loads an account scoped to the organization.
func (r *Repository) GetAccount(ctx context.Context, orgID, id int64) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 AND id=$2`, orgID, id)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NotFoundf("accounts: account %d not found", id)
		}
		return Account{}, err
	}
	return a, nil
}

// ListAccounts returns all accounts for the organization ordered by code.
func (r *Repository) ListAccounts(ctx context.Context, orgID int64) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 ORDER BY code`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAccountByCode loads an account by its hierarchical code.
func (r *Repository) GetAccountByCode(ctx context.Context, orgID int64, code string) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 AND code=$2`, orgID, code)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NotFoundf("accounts: account %s not found", code)
		}
		return Account{}, err
	}
	return a, nil
}

// UpdateAccount renames an account. Code, group and nature stay fixed.
func (r *Repository) UpdateAccount(ctx context.Context, orgID, id int64, in UpdateAccountInput) (Account, error) {
	row := r.pool.QueryRow(ctx, `UPDATE accounts SET name=$3, updated_at=NOW() WHERE org_id=$1 AND id=$2 RETURNING `+accountColumns,
		orgID, id, in.Name)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NotFoundf("accounts: account %d not found", id)
		}
		return Account{}, err
	}
	return a, nil
}

// SetAccountActive flips the active flag.
func (r *Repository) SetAccountActive(ctx context.Context, orgID, id int64, active bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE accounts SET active=$3, updated_at=NOW() WHERE org_id=$1 AND id=$2`, orgID, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("accounts: account %d not found", id)
	}
	return nil
}

// ActiveAccountsByIDs loads active accounts for the given ids; used by the
// posting engine to validate line references.
func (r *Repository) ActiveAccountsByIDs(ctx context.Context, orgID int64, ids []int64) (map[int64]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 AND active=TRUE AND id = ANY($2)`, orgID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]Account, len(ids))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

const finAccountColumns = `id, org_id, name, kind, bank_code, bank_branch, bank_number, opening_balance::text, status, created_at, updated_at`

func scanFinancialAccount(row pgx.Row) (FinancialAccount, error) {
	var fa FinancialAccount
	var balance string
	err := row.Scan(&fa.ID, &fa.OrgID, &fa.Name, &fa.Kind, &fa.BankCode, &fa.BankBranch, &fa.BankNumber, &balance, &fa.Status, &fa.CreatedAt, &fa.UpdatedAt)
	if err != nil {
		return FinancialAccount{}, err
	}
	fa.OpeningBalance, err = decimal.NewFromString(balance)
	return fa, err
}

// CreateFinancialAccount inserts a bank/cash account.
func (r *Repository) CreateFinancialAccount(ctx context.Context, in CreateFinancialAccountInput) (FinancialAccount, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO financial_accounts (org_id, name, kind, bank_code, bank_branch, bank_number, opening_balance, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,'active') RETURNING `+finAccountColumns,
		in.OrgID, in.Name, in.Kind, in.BankCode, in.BankBranch, in.BankNumber, in.OpeningBalance.StringFixed(2))
	return scanFinancialAccount(row)
}

// GetFinancialAccount loads a financial account scoped to the organization.
func (r *Repository) GetFinancialAccount(ctx context.Context, orgID, id int64) (FinancialAccount, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+finAccountColumns+` FROM financial_accounts WHERE org_id=$1 AND id=$2`, orgID, id)
	fa, err := scanFinancialAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FinancialAccount{}, shared.NotFoundf("accounts: financial account %d not found", id)
		}
		return FinancialAccount{}, err
	}
	return fa, nil
}

// ListFinancialAccounts returns all financial accounts for the organization.
func (r *Repository) ListFinancialAccounts(ctx context.Context, orgID int64) ([]FinancialAccount, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+finAccountColumns+` FROM financial_accounts WHERE org_id=$1 ORDER BY name`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FinancialAccount
	for rows.Next() {
		fa, err := scanFinancialAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fa)
	}
	return out, rows.Err()
}

// UpdateFinancialAccount updates name and bank metadata. Kind and opening
// balance stay fixed.
func (r *Repository) UpdateFinancialAccount(ctx context.Context, orgID, id int64, in UpdateFinancialAccountInput) (FinancialAccount, error) {
	row := r.pool.QueryRow(ctx, `UPDATE financial_accounts SET name=$3, bank_code=$4, bank_branch=$5, bank_number=$6, updated_at=NOW()
WHERE org_id=$1 AND id=$2 RETURNING `+finAccountColumns,
		orgID, id, in.Name, in.BankCode, in.BankBranch, in.BankNumber)
	fa, err := scanFinancialAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FinancialAccount{}, shared.NotFoundf("accounts: financial account %d not found", id)
		}
		return FinancialAccount{}, err
	}
	return fa, nil
}

// SetFinancialAccountStatus updates the status field.
func (r *Repository) SetFinancialAccountStatus(ctx context.Context, orgID, id int64, status FinancialAccountStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE financial_accounts SET status=$3, updated_at=NOW() WHERE org_id=$1 AND id=$2`, orgID, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("accounts: financial account %d not found", id)
	}
	return nil
}
