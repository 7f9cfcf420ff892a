package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// IncomeStatementRow is one result-group account row.
type IncomeStatementRow struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// IncomeStatement reports revenue minus expense over result accounts.
type IncomeStatement struct {
	Revenue      []IncomeStatementRow `json:"revenue"`
	Expense      []IncomeStatementRow `json:"expense"`
	TotalRevenue decimal.Decimal      `json:"total_revenue"`
	TotalExpense decimal.Decimal      `json:"total_expense"`
	NetResult    decimal.Decimal      `json:"net_result"`
}

// BuildIncomeStatement restricts activity to the result group. Credit
// movement is revenue, debit movement expense.
func BuildIncomeStatement(activity []AccountActivity) IncomeStatement {
	out := IncomeStatement{
		TotalRevenue: decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, acc := range activity {
		if acc.Group != "result" {
			continue
		}
		revenue := acc.Credit.Sub(acc.Debit)
		if revenue.IsPositive() {
			out.Revenue = append(out.Revenue, IncomeStatementRow{Code: acc.Code, Name: acc.Name, Amount: revenue})
			out.TotalRevenue = out.TotalRevenue.Add(revenue)
			continue
		}
		expense := revenue.Neg()
		out.Expense = append(out.Expense, IncomeStatementRow{Code: acc.Code, Name: acc.Name, Amount: expense})
		out.TotalExpense = out.TotalExpense.Add(expense)
	}
	sort.Slice(out.Revenue, func(i, j int) bool { return out.Revenue[i].Code < out.Revenue[j].Code })
	sort.Slice(out.Expense, func(i, j int) bool { return out.Expense[i].Code < out.Expense[j].Code })
	out.NetResult = out.TotalRevenue.Sub(out.TotalExpense)
	return out
}
