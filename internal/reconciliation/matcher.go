package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/condoledger/condoledger/internal/ledger"
)

const (
	// matchWindowDays bounds how far a settlement date may sit from the
	// statement line it is suggested for. The cap is applied per line, not
	// once over the statement's whole date span: on a month-long statement a
	// span-wide window would let an entry settled on the 2nd match a line
	// from the 28th. SearchWindow reuses the same constant to pad the
	// candidate query range.
	matchWindowDays = 5
)

var amountTolerance = decimal.NewFromFloat(0.01)

// MatchLines annotates statement lines with the best settled-entry candidate.
// The amount sign picks the direction (money out matches payables, money in
// matches receivables); among amount-compatible candidates the entry whose
// settlement date sits closest to the statement date wins, ties resolved by
// candidate order so results stay deterministic.
func MatchLines(lines []StatementLine, candidates []ledger.LedgerEntry) MatchResult {
	result := MatchResult{Lines: make([]StatementLine, len(lines)), Total: len(lines)}
	copy(result.Lines, lines)

	taken := make(map[int64]bool, len(candidates))
	for i := range result.Lines {
		line := &result.Lines[i]
		best := bestCandidate(*line, candidates, taken)
		if best == nil {
			result.Unmatched++
			continue
		}
		id := best.ID
		line.SuggestedEntryID = &id
		taken[id] = true
		result.Matched++
	}
	return result
}

func bestCandidate(line StatementLine, candidates []ledger.LedgerEntry, taken map[int64]bool) *ledger.LedgerEntry {
	wanted := ledger.DirectionReceivable
	if line.Amount.IsNegative() {
		wanted = ledger.DirectionPayable
	}
	target := line.Amount.Abs()

	var best *ledger.LedgerEntry
	bestDistance := 0
	for i := range candidates {
		entry := &candidates[i]
		if taken[entry.ID] || entry.Direction != wanted || entry.SettlementDate == nil {
			continue
		}
		if entry.Amount.Sub(target).Abs().GreaterThan(amountTolerance) {
			continue
		}
		distance := dayDistance(*entry.SettlementDate, line.Date)
		if distance > matchWindowDays {
			continue
		}
		if best == nil || distance < bestDistance {
			best = entry
			bestDistance = distance
		}
	}
	return best
}

func dayDistance(a, b time.Time) int {
	days := int(truncateDay(a).Sub(truncateDay(b)).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SearchWindow derives the settled-entry query range from the statement's
// date span, padded by the matching window on both sides.
func SearchWindow(lines []StatementLine) (time.Time, time.Time, bool) {
	if len(lines) == 0 {
		return time.Time{}, time.Time{}, false
	}
	min, max := lines[0].Date, lines[0].Date
	for _, line := range lines[1:] {
		if line.Date.Before(min) {
			min = line.Date
		}
		if line.Date.After(max) {
			max = line.Date
		}
	}
	return min.AddDate(0, 0, -matchWindowDays), max.AddDate(0, 0, matchWindowDays), true
}
