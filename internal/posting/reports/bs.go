package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BalanceSheetRow is one account row within a group section.
type BalanceSheetRow struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the accounts and total for one group.
type BalanceSheetSection struct {
	Label string            `json:"label"`
	Rows  []BalanceSheetRow `json:"rows"`
	Total decimal.Decimal   `json:"total"`
}

// BalanceSheet aggregates net balances per group as of a cutoff date.
type BalanceSheet struct {
	Assets      BalanceSheetSection `json:"assets"`
	Liabilities BalanceSheetSection `json:"liabilities"`
	Equity      BalanceSheetSection `json:"equity"`
}

// BuildBalanceSheet aggregates activity into asset, liability, and equity
// sections using net (debit minus credit) per account.
func BuildBalanceSheet(activity []AccountActivity) BalanceSheet {
	out := BalanceSheet{
		Assets:      BalanceSheetSection{Label: "Assets", Total: decimal.Zero},
		Liabilities: BalanceSheetSection{Label: "Liabilities", Total: decimal.Zero},
		Equity:      BalanceSheetSection{Label: "Equity", Total: decimal.Zero},
	}
	for _, acc := range activity {
		row := BalanceSheetRow{Code: acc.Code, Name: acc.Name, Balance: acc.Net()}
		switch acc.Group {
		case "asset":
			out.Assets.Rows = append(out.Assets.Rows, row)
			out.Assets.Total = out.Assets.Total.Add(row.Balance)
		case "liability":
			out.Liabilities.Rows = append(out.Liabilities.Rows, row)
			out.Liabilities.Total = out.Liabilities.Total.Add(row.Balance)
		case "equity":
			out.Equity.Rows = append(out.Equity.Rows, row)
			out.Equity.Total = out.Equity.Total.Add(row.Balance)
		}
	}
	for _, section := range []*BalanceSheetSection{&out.Assets, &out.Liabilities, &out.Equity} {
		sort.Slice(section.Rows, func(i, j int) bool { return section.Rows[i].Code < section.Rows[j].Code })
	}
	return out
}
