package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/condoledger/condoledger/internal/ledger"
	"github.com/condoledger/condoledger/internal/shared"
)

// LedgerPort exposes the entry operations reconciliation relies on.
type LedgerPort interface {
	SettledBetween(ctx context.Context, orgID int64, from, to time.Time) ([]ledger.LedgerEntry, error)
	Reconcile(ctx context.Context, actor shared.Identity, id int64, in ledger.ReconcileInput) (ledger.LedgerEntry, error)
}

// Service parses bank statements and drives the match/confirm flow.
type Service struct {
	entries LedgerPort
	audit   shared.AuditRecorder
	now     func() time.Time
}

// NewService constructs the reconciliation service.
func NewService(entries LedgerPort, audit shared.AuditRecorder) *Service {
	return &Service{entries: entries, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ParseStatement dispatches on the declared format.
func (s *Service) ParseStatement(raw []byte, format Format) (ParseResult, error) {
	switch format {
	case FormatDelimited, "":
		return ParseDelimited(raw)
	case FormatOFX:
		return ParseOFX(raw)
	default:
		return ParseResult{}, shared.Validationf("reconciliation: unknown statement format %q", format)
	}
}

// SuggestMatches loads settled entries around the statement's date span and
// annotates each line with its closest candidate.
func (s *Service) SuggestMatches(ctx context.Context, orgID int64, lines []StatementLine) (MatchResult, error) {
	from, to, ok := SearchWindow(lines)
	if !ok {
		return MatchResult{Lines: []StatementLine{}}, nil
	}
	candidates, err := s.entries.SettledBetween(ctx, orgID, from, to)
	if err != nil {
		return MatchResult{}, err
	}
	return MatchLines(lines, candidates), nil
}

// Import is the outcome of one statement import: the batch id ties the
// audit record to the response handed back to the caller.
type Import struct {
	BatchID string
	Parse   ParseResult
	Match   MatchResult
}

// ImportAndMatch parses the raw statement then runs the suggestion pass in
// one call, keeping the skipped-row count visible alongside match counts.
func (s *Service) ImportAndMatch(ctx context.Context, actor shared.Identity, raw []byte, format Format) (Import, error) {
	parsed, err := s.ParseStatement(raw, format)
	if err != nil {
		return Import{}, err
	}
	matched, err := s.SuggestMatches(ctx, actor.OrgID, parsed.Lines)
	if err != nil {
		return Import{}, err
	}
	batchID := uuid.NewString()
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    actor.OrgID,
			ActorID:  actor.ActorID,
			Action:   "reconciliation.import",
			Entity:   "statement",
			EntityID: batchID,
			Meta: map[string]any{
				"format":    string(format),
				"total":     parsed.Total,
				"skipped":   parsed.Skipped,
				"matched":   matched.Matched,
				"unmatched": matched.Unmatched,
			},
			At: s.now(),
		})
	}
	return Import{BatchID: batchID, Parse: parsed, Match: matched}, nil
}

// ConfirmInput identifies the entry being bank-confirmed.
type ConfirmInput struct {
	EntryID       int64
	ConfirmedDate time.Time
	Reference     *string
}

// Confirm promotes a paid entry to reconciled. The transition table rejects
// any other current situation, so no pre-check is needed here.
func (s *Service) Confirm(ctx context.Context, actor shared.Identity, in ConfirmInput) (ledger.LedgerEntry, error) {
	if in.EntryID == 0 {
		return ledger.LedgerEntry{}, shared.Validationf("reconciliation: entry id required")
	}
	confirmed := in.ConfirmedDate
	if confirmed.IsZero() {
		confirmed = s.now()
	}
	return s.entries.Reconcile(ctx, actor, in.EntryID, ledger.ReconcileInput{
		ConfirmedDate: confirmed,
		Reference:     in.Reference,
	})
}
