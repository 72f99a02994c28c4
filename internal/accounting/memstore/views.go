package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/reports"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
	"github.com/dairy-erp/ledger/internal/accounting/statements"
	"github.com/dairy-erp/ledger/internal/accounting/vouchers"
)

// StatementsRepo serves ledger statements.
type StatementsRepo struct {
	s *Store
}

// Load implements statements.Repository.
func (r StatementsRepo) Load(_ context.Context, ledgerID int64, to *time.Time) (ledgers.Ledger, []statements.Posting, error) {
	var (
		l        ledgers.Ledger
		ok       bool
		postings []statements.Posting
	)
	r.s.read(func(st *state) {
		l, ok = st.ledgers[ledgerID]
		if !ok {
			return
		}
		for _, v := range st.vouchers {
			if v.Status != vouchers.StatusPosted || (to != nil && v.Date.After(*to)) {
				continue
			}
			for _, e := range v.Entries {
				if e.LedgerID != ledgerID {
					continue
				}
				narration := e.Narration
				if narration == "" {
					narration = v.Narration
				}
				postings = append(postings, statements.Posting{
					VoucherID:     v.ID,
					VoucherNumber: v.Number,
					VoucherType:   v.Type,
					Date:          v.Date,
					LineNo:        e.LineNo,
					Debit:         e.Debit,
					Credit:        e.Credit,
					Narration:     narration,
					Particulars:   particulars(v.Entries, ledgerID),
				})
			}
		}
	})
	if !ok {
		return ledgers.Ledger{}, nil, shared.ErrLedgerNotFound
	}
	sort.Slice(postings, func(i, j int) bool {
		a, b := postings[i], postings[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.VoucherID != b.VoucherID {
			return a.VoucherID < b.VoucherID
		}
		return a.LineNo < b.LineNo
	})
	return l, postings, nil
}

func particulars(entries []vouchers.Entry, ledgerID int64) string {
	var names []string
	for _, e := range entries {
		if e.LedgerID != ledgerID && !slices.Contains(names, e.LedgerName) {
			names = append(names, e.LedgerName)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// LedgerIDs implements statements.Repository.
func (r StatementsRepo) LedgerIDs(_ context.Context) ([]int64, error) {
	var ids []int64
	r.s.read(func(st *state) {
		for id := range st.ledgers {
			ids = append(ids, id)
		}
	})
	slices.Sort(ids)
	return ids, nil
}

// ReportsRepo serves report aggregates.
type ReportsRepo struct {
	s *Store
}

// Balances implements reports.Repository.
func (r ReportsRepo) Balances(_ context.Context, from *time.Time, to time.Time) ([]reports.AccountBalance, error) {
	var out []reports.AccountBalance
	r.s.read(func(st *state) {
		index := make(map[int64]int, len(st.ledgers))
		for _, l := range st.ledgers {
			acc := reports.AccountBalance{
				LedgerID:    l.ID,
				Name:        l.Name,
				Type:        l.Type,
				ParentGroup: l.ParentGroup,
				Status:      l.Status,
				Opening:     l.OpeningBalance,
			}
			if from != nil {
				acc.Opening = money.Balance{Side: l.Type.NaturalSide()}
			}
			index[l.ID] = len(out)
			out = append(out, acc)
		}
		for _, v := range st.vouchers {
			if v.Status != vouchers.StatusPosted || v.Date.After(to) || (from != nil && v.Date.Before(*from)) {
				continue
			}
			for _, e := range v.Entries {
				acc := &out[index[e.LedgerID]]
				acc.Debit += e.Debit
				acc.Credit += e.Credit
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].LedgerID < out[j].LedgerID
	})
	return out, nil
}
