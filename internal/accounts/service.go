package accounts

import (
	"context"
	"strconv"
	"time"

	"github.com/condoledger/condoledger/internal/shared"
)

// RepositoryPort abstracts persistence for the registry service.
type RepositoryPort interface {
	CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error)
	GetAccount(ctx context.Context, orgID, id int64) (Account, error)
	GetAccountByCode(ctx context.Context, orgID int64, code string) (Account, error)
	ListAccounts(ctx context.Context, orgID int64) ([]Account, error)
	UpdateAccount(ctx context.Context, orgID, id int64, in UpdateAccountInput) (Account, error)
	SetAccountActive(ctx context.Context, orgID, id int64, active bool) error
	ActiveAccountsByIDs(ctx context.Context, orgID int64, ids []int64) (map[int64]Account, error)
	CreateFinancialAccount(ctx context.Context, in CreateFinancialAccountInput) (FinancialAccount, error)
	GetFinancialAccount(ctx context.Context, orgID, id int64) (FinancialAccount, error)
	ListFinancialAccounts(ctx context.Context, orgID int64) ([]FinancialAccount, error)
	UpdateFinancialAccount(ctx context.Context, orgID, id int64, in UpdateFinancialAccountInput) (FinancialAccount, error)
	SetFinancialAccountStatus(ctx context.Context, orgID, id int64, status FinancialAccountStatus) error
}

// Service exposes the account registry operations.
type Service struct {
	repo  RepositoryPort
	audit shared.AuditRecorder
	now   func() time.Time
}

// NewService constructs the registry service.
func NewService(repo RepositoryPort, audit shared.AuditRecorder) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateAccount validates and persists a chart of accounts node.
func (s *Service) CreateAccount(ctx context.Context, actorID int64, in CreateAccountInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	if in.ParentID != nil {
		if _, err := s.repo.GetAccount(ctx, in.OrgID, *in.ParentID); err != nil {
			return Account{}, err
		}
	}
	account, err := s.repo.CreateAccount(ctx, in)
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, in.OrgID, actorID, "account.create", "account", account.ID, map[string]any{
		"code": account.Code, "group": account.Group,
	})
	return account, nil
}

// GetAccount loads one chart of accounts node.
func (s *Service) GetAccount(ctx context.Context, orgID, id int64) (Account, error) {
	return s.repo.GetAccount(ctx, orgID, id)
}

// GetAccountByCode loads an account by its hierarchical code.
func (s *Service) GetAccountByCode(ctx context.Context, orgID int64, code string) (Account, error) {
	return s.repo.GetAccountByCode(ctx, orgID, code)
}

// ListAccounts returns the organization's chart of accounts.
func (s *Service) ListAccounts(ctx context.Context, orgID int64) ([]Account, error) {
	return s.repo.ListAccounts(ctx, orgID)
}

// UpdateAccount renames an account.
func (s *Service) UpdateAccount(ctx context.Context, orgID, actorID, id int64, in UpdateAccountInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	account, err := s.repo.UpdateAccount(ctx, orgID, id, in)
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, orgID, actorID, "account.update", "account", id, map[string]any{
		"name": account.Name,
	})
	return account, nil
}

// DeactivateAccount flags an account inactive; postings referencing it are rejected afterwards.
func (s *Service) DeactivateAccount(ctx context.Context, orgID, actorID, id int64) error {
	if err := s.repo.SetAccountActive(ctx, orgID, id, false); err != nil {
		return err
	}
	s.record(ctx, orgID, actorID, "account.deactivate", "account", id, nil)
	return nil
}

// ActiveAccountsByIDs resolves active accounts for posting-line validation.
func (s *Service) ActiveAccountsByIDs(ctx context.Context, orgID int64, ids []int64) (map[int64]Account, error) {
	return s.repo.ActiveAccountsByIDs(ctx, orgID, ids)
}

// CreateFinancialAccount validates and persists a bank/cash account.
func (s *Service) CreateFinancialAccount(ctx context.Context, actorID int64, in CreateFinancialAccountInput) (FinancialAccount, error) {
	if err := in.Validate(); err != nil {
		return FinancialAccount{}, err
	}
	fa, err := s.repo.CreateFinancialAccount(ctx, in)
	if err != nil {
		return FinancialAccount{}, err
	}
	s.record(ctx, in.OrgID, actorID, "financial_account.create", "financial_account", fa.ID, map[string]any{
		"name": fa.Name, "kind": fa.Kind,
	})
	return fa, nil
}

// GetFinancialAccount loads one financial account.
func (s *Service) GetFinancialAccount(ctx context.Context, orgID, id int64) (FinancialAccount, error) {
	return s.repo.GetFinancialAccount(ctx, orgID, id)
}

// ListFinancialAccounts returns the organization's financial accounts.
func (s *Service) ListFinancialAccounts(ctx context.Context, orgID int64) ([]FinancialAccount, error) {
	return s.repo.ListFinancialAccounts(ctx, orgID)
}

// UpdateFinancialAccount updates name and bank metadata.
func (s *Service) UpdateFinancialAccount(ctx context.Context, orgID, actorID, id int64, in UpdateFinancialAccountInput) (FinancialAccount, error) {
	if err := in.Validate(); err != nil {
		return FinancialAccount{}, err
	}
	fa, err := s.repo.UpdateFinancialAccount(ctx, orgID, id, in)
	if err != nil {
		return FinancialAccount{}, err
	}
	s.record(ctx, orgID, actorID, "financial_account.update", "financial_account", id, map[string]any{
		"name": fa.Name,
	})
	return fa, nil
}

// SetFinancialAccountStatus activates or deactivates a financial account.
func (s *Service) SetFinancialAccountStatus(ctx context.Context, orgID, actorID, id int64, status FinancialAccountStatus) error {
	switch status {
	case FinancialAccountActive, FinancialAccountInactive:
	default:
		return shared.Validationf("accounts: unknown status %q", status)
	}
	if err := s.repo.SetFinancialAccountStatus(ctx, orgID, id, status); err != nil {
		return err
	}
	s.record(ctx, orgID, actorID, "financial_account.status", "financial_account", id, map[string]any{
		"status": status,
	})
	return nil
}

func (s *Service) record(ctx context.Context, orgID, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		OrgID:    orgID,
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
		At:       s.now(),
	})
}
