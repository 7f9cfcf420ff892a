package posting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/condoledger/condoledger/internal/ledger"
	"github.com/condoledger/condoledger/internal/mappings"
	"github.com/condoledger/condoledger/internal/shared"
)

// LedgerPort exposes sweep candidates from the entry store.
type LedgerPort interface {
	SettledForIntegration(ctx context.Context, orgID int64, from, to time.Time) ([]ledger.LedgerEntry, error)
}

// MappingsPort resolves category mappings for auto-posting.
type MappingsPort interface {
	Resolve(ctx context.Context, orgID int64, category, direction string) (mappings.CategoryMapping, error)
}

// Integrator runs the financial-to-accounting sweep.
type Integrator struct {
	service *Service
	entries LedgerPort
	maps    MappingsPort
}

// NewIntegrator constructs the sweep runner.
func NewIntegrator(service *Service, entries LedgerPort, maps MappingsPort) *Integrator {
	return &Integrator{service: service, entries: entries, maps: maps}
}

// Sweep generates one two-line posting per settled ledger entry inside the
// window. Each entry's posting is an independent transaction; the unique
// source link makes re-runs idempotent, so an interrupted sweep can simply
// be run again.
func (i *Integrator) Sweep(ctx context.Context, actor shared.Identity, from, to time.Time) (SweepResult, error) {
	if to.Before(from) {
		return SweepResult{}, shared.Validationf("posting: sweep window end before start")
	}
	entries, err := i.entries.SettledForIntegration(ctx, actor.OrgID, from, to)
	if err != nil {
		return SweepResult{}, err
	}
	result := SweepResult{Candidates: len(entries)}
	for _, entry := range entries {
		posted, err := i.service.repo.HasSource(ctx, actor.OrgID, entry.ID)
		if err != nil {
			return result, err
		}
		if posted {
			result.Ignored++
			continue
		}
		mapping, err := i.maps.Resolve(ctx, actor.OrgID, entry.Category, string(entry.Direction))
		if err != nil {
			if shared.IsKind(err, shared.KindNotFound) {
				result.Unmapped++
				continue
			}
			return result, err
		}
		if err := i.service.guard.EnsureOpenForCompetency(ctx, actor.OrgID, entry.Competency); err != nil {
			if shared.IsKind(err, shared.KindStateConflict) {
				result.Ignored++
				continue
			}
			return result, err
		}
		if err := i.postEntry(ctx, actor, entry, mapping); err != nil {
			// a lost race inside the transaction (duplicate source link or a
			// period close committing first) skips the entry, same as the
			// pre-checks above
			if errors.Is(err, ErrSourceConflict) || shared.IsKind(err, shared.KindStateConflict) {
				result.Ignored++
				continue
			}
			return result, err
		}
		result.Created++
	}
	i.service.cache.Bump(ctx)
	if i.service.audit != nil {
		_ = i.service.audit.Record(ctx, shared.AuditLog{
			OrgID:    actor.OrgID,
			ActorID:  actor.ActorID,
			Action:   "posting.sweep",
			Entity:   "posting",
			EntityID: "sweep",
			Meta: map[string]any{
				"from":       from.Format("2006-01-02"),
				"to":         to.Format("2006-01-02"),
				"candidates": result.Candidates,
				"created":    result.Created,
				"ignored":    result.Ignored,
				"unmapped":   result.Unmapped,
			},
			At: i.service.now(),
		})
	}
	return result, nil
}

func (i *Integrator) postEntry(ctx context.Context, actor shared.Identity, entry ledger.LedgerEntry, mapping mappings.CategoryMapping) error {
	entryID := entry.ID
	draft := Draft{
		OrgID:         actor.OrgID,
		PostingDate:   i.service.now(),
		Competency:    entry.Competency,
		Historical:    integrationHistorical(entry),
		Origin:        OriginIntegration,
		SourceEntryID: &entryID,
		Lines: []DraftLine{
			{AccountID: mapping.DebitAccountID, Side: SideDebit, Amount: entry.Amount, CostCenter: entry.CostCenter},
			{AccountID: mapping.CreditAccountID, Side: SideCredit, Amount: entry.Amount, CostCenter: entry.CostCenter},
		},
	}
	if err := draft.Validate(); err != nil {
		return err
	}
	if err := i.service.ensureAccountsActive(ctx, draft); err != nil {
		return err
	}
	return i.service.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockPeriodForCompetency(ctx, actor.OrgID, entry.Competency); err != nil {
			return err
		}
		inserted, err := tx.InsertPosting(ctx, draft)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, draft.Lines); err != nil {
			return err
		}
		return tx.LinkSource(ctx, actor.OrgID, entry.ID, inserted.ID)
	})
}

func integrationHistorical(entry ledger.LedgerEntry) string {
	if entry.Description != "" {
		return fmt.Sprintf("%s - entry %d", entry.Description, entry.ID)
	}
	return fmt.Sprintf("%s entry %d settlement", entry.Direction, entry.ID)
}
