package periods

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/condoledger/condoledger/internal/shared"
)

// RepositoryPort abstracts persistence for the period service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
	Insert(ctx context.Context, in CreateInput) (Period, error)
	RangeConflict(ctx context.Context, orgID int64, start, end time.Time) (bool, error)
	Get(ctx context.Context, orgID, id int64) (Period, error)
	List(ctx context.Context, orgID int64) ([]Period, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, orgID, id int64) (Period, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status Status, closedBy *int64, closedAt *time.Time) error
	ClosedPeriodCovering(ctx context.Context, orgID int64, date time.Time) (*Period, error)
}

// CloseHook runs after a period closes, covering the closed window.
type CloseHook func(ctx context.Context, orgID int64, start, end time.Time) error

// Service orchestrates the accounting period lifecycle.
type Service struct {
	repo      RepositoryPort
	audit     shared.AuditRecorder
	closeHook CloseHook
	now       func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo RepositoryPort, audit shared.AuditRecorder) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// SetCloseHook registers the callback invoked after a period closes. The
// posting engine uses it to flip covered postings to closed.
func (s *Service) SetCloseHook(hook CloseHook) {
	s.closeHook = hook
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create inserts a new period after validating overlap.
func (s *Service) Create(ctx context.Context, actorID int64, in CreateInput) (Period, error) {
	if err := in.Validate(); err != nil {
		return Period{}, err
	}
	conflict, err := s.repo.RangeConflict(ctx, in.OrgID, in.StartDate, in.EndDate)
	if err != nil {
		return Period{}, err
	}
	if conflict {
		return Period{}, shared.Validationf("periods: window overlaps an existing period")
	}
	period, err := s.repo.Insert(ctx, in)
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, in.OrgID, actorID, "period.create", period.ID, map[string]any{
		"start": period.StartDate.Format("2006-01-02"),
		"end":   period.EndDate.Format("2006-01-02"),
	})
	return period, nil
}

// Get returns a single period.
func (s *Service) Get(ctx context.Context, orgID, id int64) (Period, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns all periods for the organization.
func (s *Service) List(ctx context.Context, orgID int64) ([]Period, error) {
	return s.repo.List(ctx, orgID)
}

// Close locks the period against further postings.
func (s *Service) Close(ctx context.Context, orgID, actorID, id int64) (Period, error) {
	var period Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		current, err := s.repo.GetForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if current.Status != StatusOpen {
			return shared.StateConflictf("period-close", "period %d is not open", id)
		}
		closedAt := s.now()
		if err := s.repo.UpdateStatus(ctx, tx, id, StatusClosed, &actorID, &closedAt); err != nil {
			return err
		}
		period = current
		period.Status = StatusClosed
		period.ClosedAt = &closedAt
		period.ClosedBy = &actorID
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	if s.closeHook != nil {
		if err := s.closeHook(ctx, orgID, period.StartDate, period.EndDate); err != nil {
			return Period{}, err
		}
	}
	s.record(ctx, orgID, actorID, "period.close", id, nil)
	return period, nil
}

// Reopen unlocks a closed period.
func (s *Service) Reopen(ctx context.Context, orgID, actorID, id int64) (Period, error) {
	var period Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		current, err := s.repo.GetForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if current.Status != StatusClosed {
			return shared.StateConflictf("period-reopen", "period %d is not closed", id)
		}
		if err := s.repo.UpdateStatus(ctx, tx, id, StatusOpen, nil, nil); err != nil {
			return err
		}
		period = current
		period.Status = StatusOpen
		period.ClosedAt = nil
		period.ClosedBy = nil
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, orgID, actorID, "period.reopen", id, nil)
	return period, nil
}

// EnsureOpenForCompetency rejects competency dates inside a closed period.
// Consumed by the posting engine and the integration sweep.
func (s *Service) EnsureOpenForCompetency(ctx context.Context, orgID int64, competency time.Time) error {
	closed, err := s.repo.ClosedPeriodCovering(ctx, orgID, competency)
	if err != nil {
		return err
	}
	if closed != nil {
		return shared.StateConflictf("period-locked", "competency %s falls in closed period %d",
			competency.Format("2006-01-02"), closed.ID)
	}
	return nil
}

func (s *Service) record(ctx context.Context, orgID, actorID int64, action string, periodID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		OrgID:    orgID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "accounting_period",
		EntityID: strconv.FormatInt(periodID, 10),
		Meta:     meta,
		At:       s.now(),
	})
}
