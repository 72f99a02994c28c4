package reports

import (
	"time"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/money"
)

// AccountBalance is a ledger with its posted movement over a window.
type AccountBalance struct {
	LedgerID    int64
	Name        string
	Type        ledgers.AccountType
	ParentGroup string
	Status      ledgers.Status
	Opening     money.Balance
	Debit       money.Amount
	Credit      money.Amount
}

// Closing computes the balance at the end of the window. Posted balances are
// held within money.MaxAmount, so the window sums stay far inside int64.
func (a AccountBalance) Closing() money.Balance {
	return money.BalanceFromSigned(a.Opening.Signed()+a.Debit-a.Credit, a.Type.NaturalSide())
}

// Dormant reports an inactive ledger with nothing to show.
func (a AccountBalance) Dormant() bool {
	return a.Status == ledgers.StatusInactive && a.Closing().IsZero() && a.Debit == 0 && a.Credit == 0
}

// TrialBalanceRow is one ledger line of the trial balance.
type TrialBalanceRow struct {
	LedgerID      int64         `json:"ledgerId"`
	Name          string        `json:"name"`
	Opening       money.Balance `json:"opening"`
	Debit         money.Amount  `json:"debit"`
	Credit        money.Amount  `json:"credit"`
	ClosingDebit  money.Amount  `json:"closingDebit"`
	ClosingCredit money.Amount  `json:"closingCredit"`
}

// TrialBalanceGroup aggregates the ledgers of one account type.
type TrialBalanceGroup struct {
	Type          ledgers.AccountType `json:"accountType"`
	Rows          []TrialBalanceRow   `json:"rows"`
	Debit         money.Amount        `json:"debit"`
	Credit        money.Amount        `json:"credit"`
	ClosingDebit  money.Amount        `json:"closingDebit"`
	ClosingCredit money.Amount        `json:"closingCredit"`
}

// TrialBalance lists closing balances in debit and credit columns.
type TrialBalance struct {
	AsOn               time.Time           `json:"asOn"`
	Groups             []TrialBalanceGroup `json:"groups"`
	TotalDebit         money.Amount        `json:"totalDebit"`
	TotalCredit        money.Amount        `json:"totalCredit"`
	TotalClosingDebit  money.Amount        `json:"totalClosingDebit"`
	TotalClosingCredit money.Amount        `json:"totalClosingCredit"`
	Balanced           bool                `json:"balanced"`
}

// BuildTrialBalance groups balances by account type in reporting order.
func BuildTrialBalance(asOn time.Time, accounts []AccountBalance) TrialBalance {
	groups := make(map[ledgers.AccountType]*TrialBalanceGroup)
	for _, acc := range accounts {
		if acc.Dormant() {
			continue
		}
		grp, ok := groups[acc.Type]
		if !ok {
			grp = &TrialBalanceGroup{Type: acc.Type}
			groups[acc.Type] = grp
		}
		closing := acc.Closing()
		row := TrialBalanceRow{
			LedgerID: acc.LedgerID,
			Name:     acc.Name,
			Opening:  acc.Opening,
			Debit:    acc.Debit,
			Credit:   acc.Credit,
		}
		if closing.Side == money.Debit {
			row.ClosingDebit = closing.Amount
		} else {
			row.ClosingCredit = closing.Amount
		}
		grp.Rows = append(grp.Rows, row)
		grp.Debit += row.Debit
		grp.Credit += row.Credit
		grp.ClosingDebit += row.ClosingDebit
		grp.ClosingCredit += row.ClosingCredit
	}

	result := TrialBalance{AsOn: asOn, Groups: []TrialBalanceGroup{}}
	for _, t := range ledgers.AccountTypes() {
		grp, ok := groups[t]
		if !ok {
			continue
		}
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit += grp.Debit
		result.TotalCredit += grp.Credit
		result.TotalClosingDebit += grp.ClosingDebit
		result.TotalClosingCredit += grp.ClosingCredit
	}
	result.Balanced = result.TotalClosingDebit == result.TotalClosingCredit
	return result
}
