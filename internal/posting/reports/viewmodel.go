package reports

import "github.com/shopspring/decimal"

// AccountActivity models an account with aggregated debit/credit movement
// over a competency window.
type AccountActivity struct {
	AccountID int64
	Code      string
	Name      string
	Group     string
	Nature    string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// Net computes debit minus credit for the account.
func (a AccountActivity) Net() decimal.Decimal {
	return a.Debit.Sub(a.Credit)
}
