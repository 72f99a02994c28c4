package reports

import (
	"time"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/money"
)

// ProfitAndLossRow is an income or expense ledger with its amount on its natural side.
type ProfitAndLossRow struct {
	LedgerID int64               `json:"ledgerId"`
	Name     string              `json:"name"`
	Type     ledgers.AccountType `json:"accountType"`
	Amount   money.Amount        `json:"amount"`
}

// ProfitAndLossSection groups ledgers by nature.
type ProfitAndLossSection struct {
	Label string             `json:"label"`
	Rows  []ProfitAndLossRow `json:"rows"`
	Total money.Amount       `json:"total"`
}

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	From      *time.Time           `json:"from,omitempty"`
	To        time.Time            `json:"to"`
	Income    ProfitAndLossSection `json:"income"`
	Expense   ProfitAndLossSection `json:"expense"`
	NetProfit money.Amount         `json:"netProfit"`
}

// BuildProfitAndLoss aggregates income and expense ledgers. Balance sheet
// ledgers in the input are ignored.
func BuildProfitAndLoss(accounts []AccountBalance) ProfitAndLoss {
	income := ProfitAndLossSection{Label: "Income", Rows: []ProfitAndLossRow{}}
	expense := ProfitAndLossSection{Label: "Expense", Rows: []ProfitAndLossRow{}}

	for _, acc := range accounts {
		if acc.Type.Statement() != ledgers.StatementProfitAndLoss || acc.Dormant() {
			continue
		}
		closing := acc.Closing()
		row := ProfitAndLossRow{LedgerID: acc.LedgerID, Name: acc.Name, Type: acc.Type}
		switch acc.Type.NaturalSide() {
		case money.Credit:
			row.Amount = closing.SignedFor(money.Credit)
			income.Rows = append(income.Rows, row)
			income.Total += row.Amount
		default:
			row.Amount = closing.SignedFor(money.Debit)
			expense.Rows = append(expense.Rows, row)
			expense.Total += row.Amount
		}
	}

	return ProfitAndLoss{
		Income:    income,
		Expense:   expense,
		NetProfit: income.Total - expense.Total,
	}
}
