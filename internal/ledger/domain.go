package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/condoledger/condoledger/internal/shared"
)

// Direction enumerates entry directions.
type Direction string

const (
	DirectionPayable    Direction = "payable"
	DirectionReceivable Direction = "receivable"
)

// Situation enumerates the entry lifecycle states.
type Situation string

const (
	SituationOpen       Situation = "open"
	SituationApproved   Situation = "approved"
	SituationPaid       Situation = "paid"
	SituationReconciled Situation = "reconciled"
	SituationClosed     Situation = "closed"
	SituationCancelled  Situation = "cancelled"
)

// allowedPredecessors fixes, per target situation, the situations an entry
// must currently hold for the transition to be legal. Closed and cancelled
// are terminal except for the privileged closed -> open reopen.
var allowedPredecessors = map[Situation][]Situation{
	SituationApproved:   {SituationOpen},
	SituationPaid:       {SituationApproved},
	SituationReconciled: {SituationPaid},
	SituationClosed:     {SituationReconciled},
	SituationCancelled:  {SituationOpen, SituationApproved},
	SituationOpen:       {SituationClosed},
}

// transitionRules names each transition for state-conflict reporting.
var transitionRules = map[Situation]string{
	SituationApproved:   "entry-approve",
	SituationPaid:       "entry-pay",
	SituationReconciled: "entry-reconcile",
	SituationClosed:     "entry-close",
	SituationCancelled:  "entry-cancel",
	SituationOpen:       "entry-reopen",
}

// CheckTransition validates current -> target against the transition table.
func CheckTransition(current, target Situation) error {
	for _, allowed := range allowedPredecessors[target] {
		if current == allowed {
			return nil
		}
	}
	return shared.StateConflictf(transitionRules[target],
		"entry in situation %q cannot move to %q", current, target)
}

// LedgerEntry is a single receivable or payable record.
type LedgerEntry struct {
	ID                 int64
	OrgID              int64
	Direction          Direction
	Situation          Situation
	CounterpartyID     int64
	Category           string
	CostCenter         *string
	FinancialAccountID int64
	Amount             decimal.Decimal
	Competency         time.Time
	DueDate            *time.Time
	SettlementDate     *time.Time
	PaymentMethod      string
	Description        string
	Reference          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CreateInput groups fields for creating a ledger entry. Amount, direction,
// category, and account references are immutable after creation.
type CreateInput struct {
	OrgID              int64
	Direction          Direction
	Situation          Situation
	CounterpartyID     int64
	Category           string
	CostCenter         *string
	FinancialAccountID int64
	Amount             decimal.Decimal
	Competency         time.Time
	DueDate            *time.Time
	SettlementDate     *time.Time
	PaymentMethod      string
	Description        string
	Reference          string
}

// Validate checks required fields and defaults the initial situation. A
// caller may create an entry directly as paid; the settlement date then
// defaults to now.
func (in *CreateInput) Validate(now time.Time) error {
	if in.OrgID == 0 {
		return shared.Validationf("ledger: organization required")
	}
	switch in.Direction {
	case DirectionPayable, DirectionReceivable:
	default:
		return shared.Validationf("ledger: direction required")
	}
	if !in.Amount.IsPositive() {
		return shared.Validationf("ledger: amount must be positive")
	}
	if in.Competency.IsZero() {
		return shared.Validationf("ledger: competency date required")
	}
	if in.DueDate != nil && in.DueDate.Before(in.Competency) {
		return shared.Validationf("ledger: due date earlier than competency date")
	}
	if in.FinancialAccountID == 0 {
		return shared.Validationf("ledger: financial account required")
	}
	switch in.Situation {
	case "":
		in.Situation = SituationOpen
	case SituationOpen:
	case SituationPaid:
		if in.SettlementDate == nil {
			settled := now
			in.SettlementDate = &settled
		}
	default:
		return shared.Validationf("ledger: entries cannot be created as %q", in.Situation)
	}
	in.Category = strings.TrimSpace(in.Category)
	return nil
}

// ListFilter narrows entry listings.
type ListFilter struct {
	Situation      Situation
	Direction      Direction
	CompetencyFrom time.Time
	CompetencyTo   time.Time
	Limit          int
	Offset         int
}
