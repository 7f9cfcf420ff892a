package posting

import (
	"context"
	"strconv"
	"time"

	"github.com/condoledger/condoledger/internal/accounts"
	"github.com/condoledger/condoledger/internal/posting/reports"
	"github.com/condoledger/condoledger/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	HasSource(ctx context.Context, orgID, entryID int64) (bool, error)
	GetWithLines(ctx context.Context, orgID, id int64) (Posting, error)
	List(ctx context.Context, orgID int64, from, to time.Time, limit, offset int) ([]Posting, error)
	AccountActivity(ctx context.Context, orgID int64, from, to time.Time) ([]reports.AccountActivity, error)
	CloseByCompetencyWindow(ctx context.Context, orgID int64, from, to time.Time) (int64, error)
}

// AccountsPort resolves active accounts for line validation.
type AccountsPort interface {
	ActiveAccountsByIDs(ctx context.Context, orgID int64, ids []int64) (map[int64]accounts.Account, error)
}

// PeriodGuard blocks postings whose competency falls in a closed period.
type PeriodGuard interface {
	EnsureOpenForCompetency(ctx context.Context, orgID int64, competency time.Time) error
}

// Service coordinates double-entry posting and reporting.
type Service struct {
	repo  RepositoryPort
	accts AccountsPort
	guard PeriodGuard
	audit shared.AuditRecorder
	cache *Cache
	now   func() time.Time
}

// NewService constructs the posting service.
func NewService(repo RepositoryPort, accts AccountsPort, guard PeriodGuard, audit shared.AuditRecorder, cache *Cache) *Service {
	return &Service{repo: repo, accts: accts, guard: guard, audit: audit, cache: cache, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PostManual validates and persists a manually drafted posting. Lines are
// written atomically with the posting header.
func (s *Service) PostManual(ctx context.Context, actor shared.Identity, draft Draft) (Posting, error) {
	draft.OrgID = actor.OrgID
	if draft.Origin == "" {
		draft.Origin = OriginManual
	}
	if draft.PostingDate.IsZero() {
		draft.PostingDate = s.now()
	}
	if err := draft.Validate(); err != nil {
		return Posting{}, err
	}
	if err := s.guard.EnsureOpenForCompetency(ctx, draft.OrgID, draft.Competency); err != nil {
		return Posting{}, err
	}
	if err := s.ensureAccountsActive(ctx, draft); err != nil {
		return Posting{}, err
	}
	var created Posting
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// re-check under the row lock: a period close racing the guard
		// above must not land this posting inside the closed window
		if err := tx.LockPeriodForCompetency(ctx, draft.OrgID, draft.Competency); err != nil {
			return err
		}
		inserted, err := tx.InsertPosting(ctx, draft)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, draft.Lines); err != nil {
			return err
		}
		created = inserted
		return nil
	})
	if err != nil {
		return Posting{}, err
	}
	s.cache.Bump(ctx)
	s.record(ctx, actor, "posting.create", created.ID, map[string]any{
		"origin":     created.Origin,
		"competency": created.Competency.Format("2006-01-02"),
		"lines":      len(draft.Lines),
	})
	return s.repo.GetWithLines(ctx, actor.OrgID, created.ID)
}

func (s *Service) ensureAccountsActive(ctx context.Context, draft Draft) error {
	ids := make([]int64, 0, len(draft.Lines))
	seen := make(map[int64]struct{}, len(draft.Lines))
	for _, line := range draft.Lines {
		if _, ok := seen[line.AccountID]; ok {
			continue
		}
		seen[line.AccountID] = struct{}{}
		ids = append(ids, line.AccountID)
	}
	active, err := s.accts.ActiveAccountsByIDs(ctx, draft.OrgID, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := active[id]; !ok {
			return shared.Invariantf("posting-account", "account %d is missing or inactive", id)
		}
	}
	return nil
}

// Get loads a posting with its lines.
func (s *Service) Get(ctx context.Context, orgID, id int64) (Posting, error) {
	return s.repo.GetWithLines(ctx, orgID, id)
}

// List returns postings with competency inside the window.
func (s *Service) List(ctx context.Context, orgID int64, from, to time.Time, limit, offset int) ([]Posting, error) {
	return s.repo.List(ctx, orgID, from, to, limit, offset)
}

// ClosePostingsForWindow flips open postings to closed when the covering
// period closes.
func (s *Service) ClosePostingsForWindow(ctx context.Context, orgID int64, from, to time.Time) (int64, error) {
	n, err := s.repo.CloseByCompetencyWindow(ctx, orgID, from, to)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.cache.Bump(ctx)
	}
	return n, nil
}

// TrialBalance aggregates posting lines by account over a competency window.
func (s *Service) TrialBalance(ctx context.Context, orgID int64, from, to time.Time) (reports.TrialBalance, error) {
	var cached reports.TrialBalance
	key, err := s.cacheKey(ctx, "tb", orgID, from, to)
	if err == nil && key != "" {
		if found, err := s.cache.GetJSON(ctx, key, &cached); err == nil && found {
			return cached, nil
		}
	}
	activity, err := s.repo.AccountActivity(ctx, orgID, from, to)
	if err != nil {
		return reports.TrialBalance{}, err
	}
	result := reports.BuildTrialBalance(activity)
	if key != "" {
		_ = s.cache.SetJSON(ctx, key, result)
	}
	return result, nil
}

// IncomeStatement reports the result-group accounts over a window.
func (s *Service) IncomeStatement(ctx context.Context, orgID int64, from, to time.Time) (reports.IncomeStatement, error) {
	activity, err := s.repo.AccountActivity(ctx, orgID, from, to)
	if err != nil {
		return reports.IncomeStatement{}, err
	}
	return reports.BuildIncomeStatement(activity), nil
}

// BalanceSheet aggregates net per account group as of a cutoff date.
func (s *Service) BalanceSheet(ctx context.Context, orgID int64, cutoff time.Time) (reports.BalanceSheet, error) {
	activity, err := s.repo.AccountActivity(ctx, orgID, time.Time{}, cutoff)
	if err != nil {
		return reports.BalanceSheet{}, err
	}
	return reports.BuildBalanceSheet(activity), nil
}

func (s *Service) cacheKey(ctx context.Context, report string, orgID int64, from, to time.Time) (string, error) {
	if s.cache == nil {
		return "", nil
	}
	return s.cache.BuildKey(ctx, report,
		strconv.FormatInt(orgID, 10),
		from.Format("2006-01-02"),
		to.Format("2006-01-02"))
}

func (s *Service) record(ctx context.Context, actor shared.Identity, action string, postingID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		OrgID:    actor.OrgID,
		ActorID:  actor.ActorID,
		Action:   action,
		Entity:   "posting",
		EntityID: strconv.FormatInt(postingID, 10),
		Meta:     meta,
		At:       s.now(),
	})
}
