package posting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/condoledger/condoledger/internal/shared"
)

// Origin enumerates how a posting came to exist.
type Origin string

const (
	OriginManual      Origin = "manual"
	OriginIntegration Origin = "financial-integration"
	OriginAdjustment  Origin = "adjustment"
)

// Status enumerates posting states. Closing a period flips contained
// postings to closed; reopening the period leaves them closed as a
// historical marker.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Side enumerates posting line sides.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Posting is a balanced double-entry accounting record.
type Posting struct {
	ID            int64
	OrgID         int64
	PostingDate   time.Time
	Competency    time.Time
	Historical    string
	Origin        Origin
	SourceEntryID *int64
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Lines         []Line
}

// Line stores one debit or credit leg of a posting.
type Line struct {
	ID         int64
	PostingID  int64
	AccountID  int64
	Side       Side
	Amount     decimal.Decimal
	CostCenter *string
	CreatedAt  time.Time
}

// DraftLine describes a posting line in a draft.
type DraftLine struct {
	AccountID  int64
	Side       Side
	Amount     decimal.Decimal
	CostCenter *string
}

// Draft groups fields required to create a posting.
type Draft struct {
	OrgID         int64
	PostingDate   time.Time
	Competency    time.Time
	Historical    string
	Origin        Origin
	SourceEntryID *int64
	Lines         []DraftLine
}

// Validate enforces the structural posting invariants: at least two lines,
// positive amounts on valid sides, and an exact debit/credit balance.
func (d Draft) Validate() error {
	if d.OrgID == 0 {
		return shared.Validationf("posting: organization required")
	}
	if d.Competency.IsZero() {
		return shared.Validationf("posting: competency date required")
	}
	switch d.Origin {
	case OriginManual, OriginIntegration, OriginAdjustment:
	default:
		return shared.Validationf("posting: unknown origin %q", d.Origin)
	}
	if len(d.Lines) < 2 {
		return shared.Invariantf("posting-min-lines", "posting requires at least two lines")
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for idx, line := range d.Lines {
		if line.AccountID == 0 {
			return shared.Validationf("posting: line %d missing account", idx)
		}
		if !line.Amount.IsPositive() {
			return shared.Validationf("posting: line %d amount must be positive", idx)
		}
		switch line.Side {
		case SideDebit:
			debit = debit.Add(line.Amount)
		case SideCredit:
			credit = credit.Add(line.Amount)
		default:
			return shared.Validationf("posting: line %d unknown side %q", idx, line.Side)
		}
	}
	if !debit.Equal(credit) {
		return shared.Invariantf("posting-balance", "debit total %s does not equal credit total %s",
			debit.StringFixed(2), credit.StringFixed(2))
	}
	return nil
}

// SweepResult summarises an integration sweep run.
type SweepResult struct {
	Candidates int `json:"candidates"`
	Created    int `json:"created"`
	Ignored    int `json:"ignored"`
	Unmapped   int `json:"unmapped"`
}
