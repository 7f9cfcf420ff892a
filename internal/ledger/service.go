package ledger

import (
	"context"
	"strconv"
	"time"

	"github.com/condoledger/condoledger/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	Get(ctx context.Context, orgID, id int64) (LedgerEntry, error)
	List(ctx context.Context, orgID int64, filter ListFilter) ([]LedgerEntry, error)
	SettledBetween(ctx context.Context, orgID int64, from, to time.Time) ([]LedgerEntry, error)
	SettledForIntegration(ctx context.Context, orgID int64, from, to time.Time) ([]LedgerEntry, error)
}

// Service coordinates the entry lifecycle.
type Service struct {
	repo  RepositoryPort
	audit shared.AuditRecorder
	now   func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit shared.AuditRecorder) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create validates and persists a new entry.
func (s *Service) Create(ctx context.Context, actor shared.Identity, in CreateInput) (LedgerEntry, error) {
	in.OrgID = actor.OrgID
	if err := in.Validate(s.now()); err != nil {
		return LedgerEntry{}, err
	}
	var entry LedgerEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = tx.Insert(ctx, in)
		return err
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	s.record(ctx, actor, "entry.create", entry.ID, map[string]any{
		"direction":  entry.Direction,
		"situation":  entry.Situation,
		"amount":     entry.Amount.StringFixed(2),
		"competency": entry.Competency.Format("2006-01-02"),
	})
	return entry, nil
}

// Approve moves an open entry to approved.
func (s *Service) Approve(ctx context.Context, actor shared.Identity, id int64) (LedgerEntry, error) {
	return s.transition(ctx, actor, id, SituationApproved, nil, nil)
}

// PayInput carries optional settlement details.
type PayInput struct {
	SettlementDate *time.Time
	PaymentMethod  string
}

// Pay settles an approved entry, stamping the settlement date.
func (s *Service) Pay(ctx context.Context, actor shared.Identity, id int64, in PayInput) (LedgerEntry, error) {
	settled := s.now()
	if in.SettlementDate != nil {
		settled = *in.SettlementDate
	}
	return s.transition(ctx, actor, id, SituationPaid, &settled, nil)
}

// ReconcileInput carries bank-confirmation details.
type ReconcileInput struct {
	ConfirmedDate time.Time
	Reference     *string
}

// Reconcile marks a paid entry as bank-confirmed, optionally overwriting the
// external reference.
func (s *Service) Reconcile(ctx context.Context, actor shared.Identity, id int64, in ReconcileInput) (LedgerEntry, error) {
	entry, err := s.transition(ctx, actor, id, SituationReconciled, nil, in.Reference)
	if err != nil {
		return LedgerEntry{}, err
	}
	if !in.ConfirmedDate.IsZero() {
		s.record(ctx, actor, "entry.reconcile.confirmed", id, map[string]any{
			"confirmed_date": in.ConfirmedDate.Format("2006-01-02"),
		})
	}
	return entry, nil
}

// Close moves a reconciled entry to the terminal closed situation.
func (s *Service) Close(ctx context.Context, actor shared.Identity, id int64) (LedgerEntry, error) {
	return s.transition(ctx, actor, id, SituationClosed, nil, nil)
}

// Reopen moves a closed entry back to open. Restricted to administrators.
func (s *Service) Reopen(ctx context.Context, actor shared.Identity, id int64) (LedgerEntry, error) {
	if !actor.Admin {
		return LedgerEntry{}, shared.StateConflictf("entry-reopen", "reopen is restricted to administrators")
	}
	return s.transition(ctx, actor, id, SituationOpen, nil, nil)
}

// Cancel voids an open or approved entry.
func (s *Service) Cancel(ctx context.Context, actor shared.Identity, id int64) (LedgerEntry, error) {
	return s.transition(ctx, actor, id, SituationCancelled, nil, nil)
}

// Get loads one entry.
func (s *Service) Get(ctx context.Context, orgID, id int64) (LedgerEntry, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns entries matching the filter.
func (s *Service) List(ctx context.Context, orgID int64, filter ListFilter) ([]LedgerEntry, error) {
	return s.repo.List(ctx, orgID, filter)
}

// SettledBetween exposes paid entries to the reconciliation engine.
func (s *Service) SettledBetween(ctx context.Context, orgID int64, from, to time.Time) ([]LedgerEntry, error) {
	return s.repo.SettledBetween(ctx, orgID, from, to)
}

// SettledForIntegration exposes sweep candidates to the posting engine.
func (s *Service) SettledForIntegration(ctx context.Context, orgID int64, from, to time.Time) ([]LedgerEntry, error) {
	return s.repo.SettledForIntegration(ctx, orgID, from, to)
}

// transition applies the state table inside a row-locked transaction. A
// concurrent writer that lost the race observes the committed situation and
// fails the table check; serialization failures surface as concurrency
// conflicts from the platform layer.
func (s *Service) transition(ctx context.Context, actor shared.Identity, id int64, target Situation, settlementDate *time.Time, reference *string) (LedgerEntry, error) {
	var before Situation
	var entry LedgerEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, actor.OrgID, id)
		if err != nil {
			return err
		}
		if err := CheckTransition(current.Situation, target); err != nil {
			return err
		}
		if err := tx.UpdateSituation(ctx, id, target, settlementDate, reference); err != nil {
			return err
		}
		before = current.Situation
		entry = current
		entry.Situation = target
		if settlementDate != nil {
			entry.SettlementDate = settlementDate
		}
		if reference != nil {
			entry.Reference = *reference
		}
		return nil
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	s.record(ctx, actor, "entry."+string(target), id, map[string]any{
		"before":    before,
		"after":     target,
		"direction": entry.Direction,
		"amount":    entry.Amount.StringFixed(2),
	})
	return entry, nil
}

func (s *Service) record(ctx context.Context, actor shared.Identity, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		OrgID:    actor.OrgID,
		ActorID:  actor.ActorID,
		Action:   action,
		Entity:   "ledger_entry",
		EntityID: strconv.FormatInt(entryID, 10),
		Meta:     meta,
		At:       s.now(),
	})
}
