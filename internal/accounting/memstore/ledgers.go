package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
)

type ledgerRepo struct {
	s *Store
}

func (r ledgerRepo) Get(_ context.Context, id int64) (ledgers.Ledger, error) {
	var (
		l  ledgers.Ledger
		ok bool
	)
	r.s.read(func(st *state) { l, ok = st.ledgers[id] })
	if !ok {
		return ledgers.Ledger{}, shared.ErrLedgerNotFound
	}
	return l, nil
}

func (r ledgerRepo) List(_ context.Context, filter ledgers.ListFilter) ([]ledgers.Ledger, error) {
	var out []ledgers.Ledger
	search := strings.ToLower(filter.Search)
	r.s.read(func(st *state) {
		for _, l := range st.ledgers {
			if filter.Status != "" && l.Status != filter.Status {
				continue
			}
			if filter.Type != "" && l.Type != filter.Type {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(l.Name), search) {
				continue
			}
			out = append(out, l)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r ledgerRepo) WithTx(ctx context.Context, fn func(context.Context, ledgers.TxRepository) error) error {
	return r.s.withTx(ctx, func() error {
		return fn(ctx, ledgerTx{s: r.s})
	})
}

type ledgerTx struct {
	s *Store
}

func (t ledgerTx) GetForUpdate(_ context.Context, id int64) (ledgers.Ledger, error) {
	l, ok := t.s.state.ledgers[id]
	if !ok {
		return ledgers.Ledger{}, shared.ErrLedgerNotFound
	}
	return l, nil
}

func (t ledgerTx) ActiveNameExists(_ context.Context, name string, excludeID int64) (bool, error) {
	for _, l := range t.s.state.ledgers {
		if l.ID != excludeID && l.IsActive() && strings.EqualFold(l.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (t ledgerTx) InsertLedger(_ context.Context, l ledgers.Ledger) (ledgers.Ledger, error) {
	if err := t.s.fault("InsertLedger"); err != nil {
		return ledgers.Ledger{}, err
	}
	t.s.state.lastLedgerID++
	l.ID = t.s.state.lastLedgerID
	t.s.state.ledgers[l.ID] = l
	return l, nil
}

func (t ledgerTx) UpdateStatus(_ context.Context, id int64, status ledgers.Status) error {
	l, ok := t.s.state.ledgers[id]
	if !ok {
		return shared.ErrLedgerNotFound
	}
	l.Status = status
	t.s.state.ledgers[id] = l
	return nil
}

func (t ledgerTx) UpdateName(_ context.Context, id int64, name string) error {
	l, ok := t.s.state.ledgers[id]
	if !ok {
		return shared.ErrLedgerNotFound
	}
	l.Name = name
	t.s.state.ledgers[id] = l
	return nil
}
