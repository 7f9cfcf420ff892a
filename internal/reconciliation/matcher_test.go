package reconciliation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/condoledger/condoledger/internal/ledger"
	"github.com/condoledger/condoledger/internal/shared"
)

func paidEntry(id int64, direction ledger.Direction, amount string, settled time.Time) ledger.LedgerEntry {
	return ledger.LedgerEntry{
		ID:             id,
		OrgID:          1,
		Direction:      direction,
		Situation:      ledger.SituationPaid,
		Amount:         decimal.RequireFromString(amount),
		SettlementDate: &settled,
	}
}

func statementLine(idx int, date time.Time, amount string) StatementLine {
	return StatementLine{Index: idx, Date: date, Amount: decimal.RequireFromString(amount)}
}

func TestMatchLinesNegativeAmountMatchesPayable(t *testing.T) {
	line := statementLine(0, time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC), "-250.00")
	candidates := []ledger.LedgerEntry{
		paidEntry(42, ledger.DirectionPayable, "250.00", time.Date(2024, 4, 13, 0, 0, 0, 0, time.UTC)),
	}

	result := MatchLines([]StatementLine{line}, candidates)
	require.Equal(t, 1, result.Matched)
	require.Zero(t, result.Unmatched)
	require.NotNil(t, result.Lines[0].SuggestedEntryID)
	require.EqualValues(t, 42, *result.Lines[0].SuggestedEntryID)
}

func TestMatchLinesDirectionMismatch(t *testing.T) {
	line := statementLine(0, time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC), "-250.00")
	candidates := []ledger.LedgerEntry{
		paidEntry(42, ledger.DirectionReceivable, "250.00", time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC)),
	}

	result := MatchLines([]StatementLine{line}, candidates)
	require.Zero(t, result.Matched)
	require.Equal(t, 1, result.Unmatched)
	require.Nil(t, result.Lines[0].SuggestedEntryID)
}

func TestMatchLinesAmountTolerance(t *testing.T) {
	date := time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC)
	within := paidEntry(1, ledger.DirectionPayable, "250.01", date)
	outside := paidEntry(2, ledger.DirectionPayable, "250.02", date)

	result := MatchLines(
		[]StatementLine{statementLine(0, date, "-250.00")},
		[]ledger.LedgerEntry{outside, within})
	require.Equal(t, 1, result.Matched)
	require.EqualValues(t, 1, *result.Lines[0].SuggestedEntryID)
}

func TestMatchLinesPicksClosestSettlement(t *testing.T) {
	date := time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC)
	far := paidEntry(1, ledger.DirectionPayable, "250.00", date.AddDate(0, 0, 4))
	near := paidEntry(2, ledger.DirectionPayable, "250.00", date.AddDate(0, 0, 1))

	result := MatchLines(
		[]StatementLine{statementLine(0, date, "-250.00")},
		[]ledger.LedgerEntry{far, near})
	require.EqualValues(t, 2, *result.Lines[0].SuggestedEntryID)
}

func TestMatchLinesTieBreaksByCandidateOrder(t *testing.T) {
	date := time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC)
	first := paidEntry(5, ledger.DirectionPayable, "250.00", date.AddDate(0, 0, 1))
	second := paidEntry(6, ledger.DirectionPayable, "250.00", date.AddDate(0, 0, -1))

	result := MatchLines(
		[]StatementLine{statementLine(0, date, "-250.00")},
		[]ledger.LedgerEntry{first, second})
	require.EqualValues(t, 5, *result.Lines[0].SuggestedEntryID)
}

func TestMatchLinesOutsideWindowUnmatched(t *testing.T) {
	date := time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC)
	candidate := paidEntry(1, ledger.DirectionPayable, "250.00", date.AddDate(0, 0, 6))

	result := MatchLines(
		[]StatementLine{statementLine(0, date, "-250.00")},
		[]ledger.LedgerEntry{candidate})
	require.Equal(t, 1, result.Unmatched)
}

func TestMatchLinesEachEntrySuggestedOnce(t *testing.T) {
	date := time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC)
	candidate := paidEntry(1, ledger.DirectionPayable, "250.00", date)

	result := MatchLines([]StatementLine{
		statementLine(0, date, "-250.00"),
		statementLine(1, date, "-250.00"),
	}, []ledger.LedgerEntry{candidate})
	require.Equal(t, 1, result.Matched)
	require.Equal(t, 1, result.Unmatched)
	require.NotNil(t, result.Lines[0].SuggestedEntryID)
	require.Nil(t, result.Lines[1].SuggestedEntryID)
}

func TestSearchWindowPadsStatementSpan(t *testing.T) {
	lines := []StatementLine{
		statementLine(0, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), "10.00"),
		statementLine(1, time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), "20.00"),
	}
	from, to, ok := SearchWindow(lines)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC), to)

	_, _, ok = SearchWindow(nil)
	require.False(t, ok)
}

type stubLedgerPort struct {
	settled    []ledger.LedgerEntry
	reconciled []int64
}

func (s *stubLedgerPort) SettledBetween(ctx context.Context, orgID int64, from, to time.Time) ([]ledger.LedgerEntry, error) {
	return s.settled, nil
}

func (s *stubLedgerPort) Reconcile(ctx context.Context, actor shared.Identity, id int64, in ledger.ReconcileInput) (ledger.LedgerEntry, error) {
	for _, entry := range s.settled {
		if entry.ID == id {
			if entry.Situation != ledger.SituationPaid {
				return ledger.LedgerEntry{}, shared.StateConflictf("entry-reconcile", "entry %d not paid", id)
			}
			s.reconciled = append(s.reconciled, id)
			entry.Situation = ledger.SituationReconciled
			return entry, nil
		}
	}
	return ledger.LedgerEntry{}, shared.NotFoundf("ledger: entry %d not found", id)
}

func TestSuggestMatchesEndToEnd(t *testing.T) {
	port := &stubLedgerPort{settled: []ledger.LedgerEntry{
		paidEntry(42, ledger.DirectionPayable, "250.00", time.Date(2024, 4, 13, 0, 0, 0, 0, time.UTC)),
	}}
	svc := NewService(port, nil)

	lines := []StatementLine{statementLine(0, time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC), "-250.00")}
	result, err := svc.SuggestMatches(context.Background(), 1, lines)
	require.NoError(t, err)
	require.Equal(t, 1, result.Matched)
	require.EqualValues(t, 42, *result.Lines[0].SuggestedEntryID)
}

func TestConfirmPromotesPaidEntry(t *testing.T) {
	port := &stubLedgerPort{settled: []ledger.LedgerEntry{
		paidEntry(42, ledger.DirectionPayable, "250.00", time.Date(2024, 4, 13, 0, 0, 0, 0, time.UTC)),
	}}
	svc := NewService(port, nil)

	entry, err := svc.Confirm(context.Background(), shared.Identity{OrgID: 1, ActorID: 3}, ConfirmInput{
		EntryID:       42,
		ConfirmedDate: time.Date(2024, 4, 14, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, ledger.SituationReconciled, entry.Situation)
	require.Equal(t, []int64{42}, port.reconciled)

	_, err = svc.Confirm(context.Background(), shared.Identity{OrgID: 1, ActorID: 3}, ConfirmInput{})
	require.True(t, shared.IsKind(err, shared.KindValidation))
}
