package mappings

import "time"

// CategoryMapping links a (category, ledger direction) pair to the fixed
// debit/credit account pair used by the integration sweep.
type CategoryMapping struct {
	ID              int64
	OrgID           int64
	Category        string
	Direction       string
	DebitAccountID  int64
	CreditAccountID int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
