package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TrialBalanceRow is one account row in the trial balance.
type TrialBalanceRow struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Group  string          `json:"group"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
	Net    decimal.Decimal `json:"net"`
}

// TrialBalance is the structured trial balance output.
type TrialBalance struct {
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
}

// BuildTrialBalance aggregates account activity into trial balance rows.
func BuildTrialBalance(activity []AccountActivity) TrialBalance {
	result := TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, acc := range activity {
		row := TrialBalanceRow{
			Code:   acc.Code,
			Name:   acc.Name,
			Group:  acc.Group,
			Debit:  acc.Debit,
			Credit: acc.Credit,
			Net:    acc.Net(),
		}
		result.Rows = append(result.Rows, row)
		result.TotalDebit = result.TotalDebit.Add(row.Debit)
		result.TotalCredit = result.TotalCredit.Add(row.Credit)
	}
	sort.Slice(result.Rows, func(i, j int) bool { return result.Rows[i].Code < result.Rows[j].Code })
	return result
}
