package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
	"github.com/dairy-erp/ledger/internal/accounting/vouchers"
)

type voucherRepo struct {
	s *Store
}

func (r voucherRepo) Get(_ context.Context, id int64) (vouchers.Voucher, error) {
	var (
		v  vouchers.Voucher
		ok bool
	)
	r.s.read(func(st *state) { v, ok = st.vouchers[id] })
	if !ok {
		return vouchers.Voucher{}, shared.ErrVoucherNotFound
	}
	v.Entries = append([]vouchers.Entry(nil), v.Entries...)
	return v, nil
}

func (r voucherRepo) List(_ context.Context, filter vouchers.ListFilter) ([]vouchers.Voucher, int, error) {
	var out []vouchers.Voucher
	r.s.read(func(st *state) {
		for _, v := range st.vouchers {
			if matchesFilter(v, filter) {
				v.Entries = nil
				out = append(out, v)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	total := len(out)
	start := (filter.Page - 1) * filter.PerPage
	if start < 0 || start >= total {
		return nil, total, nil
	}
	end := min(start+filter.PerPage, total)
	return out[start:end], total, nil
}

func matchesFilter(v vouchers.Voucher, f vouchers.ListFilter) bool {
	if f.Type != "" && v.Type != f.Type {
		return false
	}
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.From != nil && v.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && v.Date.After(*f.To) {
		return false
	}
	if f.LedgerID > 0 {
		for _, e := range v.Entries {
			if e.LedgerID == f.LedgerID {
				return true
			}
		}
		return false
	}
	return true
}

func (r voucherRepo) GetLedger(ctx context.Context, id int64) (ledgers.Ledger, error) {
	return ledgerRepo(r).Get(ctx, id)
}

func (r voucherRepo) DefaultCashLedger(_ context.Context) (ledgers.Ledger, error) {
	var (
		found ledgers.Ledger
		ok    bool
	)
	r.s.read(func(st *state) {
		for _, l := range st.ledgers {
			if l.Type != ledgers.AccountTypeCash || !l.IsActive() {
				continue
			}
			if !ok || l.ID < found.ID {
				found, ok = l, true
			}
		}
	})
	if !ok {
		return ledgers.Ledger{}, shared.ErrLedgerNotFound
	}
	return found, nil
}

func (r voucherRepo) WithTx(ctx context.Context, fn func(context.Context, vouchers.TxRepository) error) error {
	return r.s.withTx(ctx, func() error {
		return fn(ctx, voucherTx{s: r.s})
	})
}

type voucherTx struct {
	s *Store
}

func (t voucherTx) LockLedgers(_ context.Context, ids []int64) (map[int64]ledgers.Ledger, error) {
	if err := t.s.fault("LockLedgers"); err != nil {
		return nil, err
	}
	out := make(map[int64]ledgers.Ledger, len(ids))
	for _, id := range ids {
		if l, ok := t.s.state.ledgers[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (t voucherTx) UpdateLedgerBalance(_ context.Context, l ledgers.Ledger, expectedVersion int64) error {
	if err := t.s.fault("UpdateLedgerBalance"); err != nil {
		return err
	}
	current, ok := t.s.state.ledgers[l.ID]
	if !ok {
		return shared.ErrLedgerNotFound
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("%w: %s", shared.ErrConcurrentUpdate, l.Name)
	}
	current.CurrentBalance = l.CurrentBalance
	current.Version = l.Version
	current.UpdatedAt = time.Now()
	t.s.state.ledgers[l.ID] = current
	return nil
}

func (t voucherTx) NextVoucherNumber(_ context.Context, vt vouchers.VoucherType) (int64, error) {
	if err := t.s.fault("NextVoucherNumber"); err != nil {
		return 0, err
	}
	t.s.state.sequences[vt]++
	return t.s.state.sequences[vt], nil
}

func (t voucherTx) InsertVoucher(_ context.Context, v vouchers.Voucher) (vouchers.Voucher, error) {
	if err := t.s.fault("InsertVoucher"); err != nil {
		return vouchers.Voucher{}, err
	}
	for _, existing := range t.s.state.vouchers {
		if existing.Type == v.Type && existing.Number == v.Number {
			return vouchers.Voucher{}, fmt.Errorf("memstore: duplicate voucher number %s", v.Code())
		}
	}
	t.s.state.lastVoucherID++
	v.ID = t.s.state.lastVoucherID
	v.Entries = nil
	t.s.state.vouchers[v.ID] = v
	return v, nil
}

func (t voucherTx) InsertEntries(_ context.Context, voucherID int64, entries []vouchers.Entry) error {
	if err := t.s.fault("InsertEntries"); err != nil {
		return err
	}
	v, ok := t.s.state.vouchers[voucherID]
	if !ok {
		return shared.ErrVoucherNotFound
	}
	stored := make([]vouchers.Entry, len(entries))
	for i, e := range entries {
		t.s.state.lastEntryID++
		e.ID = t.s.state.lastEntryID
		e.VoucherID = voucherID
		stored[i] = e
	}
	v.Entries = stored
	t.s.state.vouchers[voucherID] = v
	return nil
}

func (t voucherTx) GetVoucherForUpdate(_ context.Context, id int64) (vouchers.Voucher, error) {
	v, ok := t.s.state.vouchers[id]
	if !ok {
		return vouchers.Voucher{}, shared.ErrVoucherNotFound
	}
	v.Entries = append([]vouchers.Entry(nil), v.Entries...)
	return v, nil
}

func (t voucherTx) MarkVoid(_ context.Context, id int64, at time.Time, reason string) error {
	if err := t.s.fault("MarkVoid"); err != nil {
		return err
	}
	v, ok := t.s.state.vouchers[id]
	if !ok {
		return shared.ErrVoucherNotFound
	}
	if v.Status == vouchers.StatusVoid {
		return shared.ErrAlreadyVoid
	}
	v.Status = vouchers.StatusVoid
	v.VoidedAt = &at
	v.VoidReason = reason
	t.s.state.vouchers[id] = v
	return nil
}
