package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Format selects the statement input shape.
type Format string

const (
	FormatDelimited Format = "delimited"
	FormatOFX       Format = "ofx"
)

// StatementLine is one imported bank-statement row. Amount keeps the bank
// sign convention: negative for money out, positive for money in.
type StatementLine struct {
	Index            int             `json:"index"`
	Date             time.Time       `json:"date"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	DocumentID       string          `json:"document_id,omitempty"`
	SuggestedEntryID *int64          `json:"suggested_entry_id,omitempty"`
}

// ParseResult carries the parsed lines plus row accounting. Unparseable rows
// are skipped rather than failing the import; Skipped lets callers detect a
// lossy file instead of trusting the import blindly.
type ParseResult struct {
	Lines   []StatementLine `json:"lines"`
	Total   int             `json:"total"`
	Skipped int             `json:"skipped"`
}

// MatchResult is the outcome of a suggestion pass over parsed lines.
type MatchResult struct {
	Lines     []StatementLine `json:"lines"`
	Total     int             `json:"total"`
	Matched   int             `json:"matched"`
	Unmatched int             `json:"unmatched"`
}
