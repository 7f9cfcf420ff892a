package mappings

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/condoledger/condoledger/internal/shared"
)

// RepositoryPort abstracts persistence for the mapping service.
type RepositoryPort interface {
	Insert(ctx context.Context, m CategoryMapping) (CategoryMapping, error)
	List(ctx context.Context, orgID int64) ([]CategoryMapping, error)
	Delete(ctx context.Context, orgID, id int64) error
	Resolve(ctx context.Context, orgID int64, category, direction string) (CategoryMapping, error)
}

// Service exposes category mapping management. Account existence is enforced
// at posting time, not at mapping creation.
type Service struct {
	repo  RepositoryPort
	audit shared.AuditRecorder
	now   func() time.Time
}

// NewService constructs the mapping service.
func NewService(repo RepositoryPort, audit shared.AuditRecorder) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create validates and persists a mapping.
func (s *Service) Create(ctx context.Context, actorID int64, m CategoryMapping) (CategoryMapping, error) {
	if m.OrgID == 0 {
		return CategoryMapping{}, shared.Validationf("mappings: organization required")
	}
	if strings.TrimSpace(m.Category) == "" {
		return CategoryMapping{}, shared.Validationf("mappings: category required")
	}
	switch strings.ToLower(m.Direction) {
	case "payable", "receivable":
	default:
		return CategoryMapping{}, shared.Validationf("mappings: unknown direction %q", m.Direction)
	}
	if m.DebitAccountID == 0 {
		return CategoryMapping{}, shared.Validationf("mappings: debit account required")
	}
	if m.CreditAccountID == 0 {
		return CategoryMapping{}, shared.Validationf("mappings: credit account required")
	}
	created, err := s.repo.Insert(ctx, m)
	if err != nil {
		return CategoryMapping{}, err
	}
	s.record(ctx, m.OrgID, actorID, "mapping.create", created.ID, map[string]any{
		"category": created.Category, "direction": created.Direction,
	})
	return created, nil
}

// List returns the organization's mappings.
func (s *Service) List(ctx context.Context, orgID int64) ([]CategoryMapping, error) {
	return s.repo.List(ctx, orgID)
}

// Delete removes a mapping.
func (s *Service) Delete(ctx context.Context, orgID, actorID, id int64) error {
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return err
	}
	s.record(ctx, orgID, actorID, "mapping.delete", id, nil)
	return nil
}

// Resolve finds the mapping for a (category, direction) pair.
func (s *Service) Resolve(ctx context.Context, orgID int64, category, direction string) (CategoryMapping, error) {
	return s.repo.Resolve(ctx, orgID, category, direction)
}

func (s *Service) record(ctx context.Context, orgID, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		OrgID:    orgID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "category_mapping",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
}
