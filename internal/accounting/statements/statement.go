package statements

import (
	"fmt"
	"time"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/vouchers"
)

// Posting is one ledger entry joined to its posted voucher.
type Posting struct {
	VoucherID     int64
	VoucherNumber int64
	VoucherType   vouchers.VoucherType
	Date          time.Time
	LineNo        int
	Debit         money.Amount
	Credit        money.Amount
	Narration     string
	// Particulars lists the other ledgers of the voucher by their posted names.
	Particulars string
}

// Window restricts the returned rows to inclusive day boundaries.
type Window struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether day falls inside the window.
func (w Window) Contains(day time.Time) bool {
	if w.From != nil && day.Before(*w.From) {
		return false
	}
	if w.To != nil && day.After(*w.To) {
		return false
	}
	return true
}

// Line is a statement row.
type Line struct {
	Date        time.Time            `json:"date"`
	VoucherID   int64                `json:"voucherId"`
	Code        string               `json:"voucherCode"`
	VoucherType vouchers.VoucherType `json:"voucherType"`
	Particulars string               `json:"particulars"`
	Narration   string               `json:"narration,omitempty"`
	Debit       money.Amount         `json:"debit"`
	Credit      money.Amount         `json:"credit"`
	Balance     money.Balance        `json:"runningBalance"`
}

// Statement is a ledger's transaction history for a window.
type Statement struct {
	LedgerID       int64               `json:"ledgerId"`
	LedgerName     string              `json:"ledgerName"`
	AccountType    ledgers.AccountType `json:"accountType"`
	From           *time.Time          `json:"from,omitempty"`
	To             *time.Time          `json:"to,omitempty"`
	Opening        money.Balance       `json:"openingBalance"`
	BroughtForward money.Balance       `json:"broughtForward"`
	Lines          []Line              `json:"lines"`
	SumDebit       money.Amount        `json:"sumDebit"`
	SumCredit      money.Amount        `json:"sumCredit"`
	Closing        money.Balance       `json:"closingBalance"`
}

// Build replays postings from the ledger's opening balance. Rows outside the
// window are not returned but still move the running balance, so the first
// returned row continues from all prior history.
func Build(l ledgers.Ledger, postings []Posting, w Window) (Statement, error) {
	natural := l.Type.NaturalSide()
	running := l.OpeningBalance
	st := Statement{
		LedgerID:       l.ID,
		LedgerName:     l.Name,
		AccountType:    l.Type,
		From:           w.From,
		To:             w.To,
		Opening:        l.OpeningBalance,
		BroughtForward: running,
		Lines:          []Line{},
	}
	for _, p := range postings {
		if w.To != nil && p.Date.After(*w.To) {
			break
		}
		next, err := running.Apply(p.Debit, p.Credit, natural)
		if err != nil {
			return Statement{}, fmt.Errorf("voucher %d line %d: %w", p.VoucherID, p.LineNo, err)
		}
		running = next
		if !w.Contains(p.Date) {
			st.BroughtForward = running
			continue
		}
		st.Lines = append(st.Lines, Line{
			Date:        p.Date,
			VoucherID:   p.VoucherID,
			Code:        vouchers.Voucher{Type: p.VoucherType, Number: p.VoucherNumber}.Code(),
			VoucherType: p.VoucherType,
			Particulars: p.Particulars,
			Narration:   p.Narration,
			Debit:       p.Debit,
			Credit:      p.Credit,
			Balance:     running,
		})
		if st.SumDebit, err = money.Add(st.SumDebit, p.Debit); err != nil {
			return Statement{}, err
		}
		if st.SumCredit, err = money.Add(st.SumCredit, p.Credit); err != nil {
			return Statement{}, err
		}
	}
	st.Closing = running
	return st, nil
}

// Replay returns the balance after every posting.
func Replay(l ledgers.Ledger, postings []Posting) (money.Balance, error) {
	st, err := Build(l, postings, Window{})
	if err != nil {
		return money.Balance{}, err
	}
	return st.Closing, nil
}
