package reports

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleActivity() []AccountActivity {
	return []AccountActivity{
		{AccountID: 1, Code: "1.01", Name: "Bank", Group: "asset", Nature: "debit", Debit: dec("600.50"), Credit: dec("100.00")},
		{AccountID: 2, Code: "2.01", Name: "Suppliers", Group: "liability", Nature: "credit", Debit: dec("100.00"), Credit: dec("250.00")},
		{AccountID: 3, Code: "3.01", Name: "Reserve Fund", Group: "equity", Nature: "credit", Debit: dec("0"), Credit: dec("70.50")},
		{AccountID: 4, Code: "4.01", Name: "Condo Fees", Group: "result", Nature: "credit", Debit: dec("0"), Credit: dec("480.50")},
		{AccountID: 5, Code: "4.02", Name: "Maintenance", Group: "result", Nature: "debit", Debit: dec("200.50"), Credit: dec("0")},
	}
}

func TestBuildTrialBalanceTotalsBalance(t *testing.T) {
	tb := BuildTrialBalance(sampleActivity())

	require.Len(t, tb.Rows, 5)
	require.True(t, tb.TotalDebit.Equal(tb.TotalCredit),
		"trial balance must balance, got debit %s credit %s", tb.TotalDebit, tb.TotalCredit)
	require.Equal(t, "1.01", tb.Rows[0].Code, "rows sorted by account code")

	bank := tb.Rows[0]
	require.True(t, bank.Net.Equal(dec("500.50")))
}

func TestBuildIncomeStatementRestrictsToResultGroup(t *testing.T) {
	is := BuildIncomeStatement(sampleActivity())

	require.Len(t, is.Revenue, 1)
	require.Len(t, is.Expense, 1)
	require.Equal(t, "4.01", is.Revenue[0].Code)
	require.Equal(t, "4.02", is.Expense[0].Code)
	require.True(t, is.TotalRevenue.Equal(dec("480.50")))
	require.True(t, is.TotalExpense.Equal(dec("200.50")))
	require.True(t, is.NetResult.Equal(dec("280.00")), "net result got %s", is.NetResult)
}

func TestBuildBalanceSheetSections(t *testing.T) {
	bs := BuildBalanceSheet(sampleActivity())

	require.Len(t, bs.Assets.Rows, 1)
	require.True(t, bs.Assets.Total.Equal(dec("500.50")))
	require.Len(t, bs.Liabilities.Rows, 1)
	require.True(t, bs.Liabilities.Total.Equal(dec("-150.00")))
	require.Len(t, bs.Equity.Rows, 1)
	require.True(t, bs.Equity.Total.Equal(dec("-70.50")))
}
