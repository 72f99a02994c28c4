// Package memstore keeps ledgers and vouchers in process memory. It backs
// LEDGER_STORE=memory and the service tests. Transactions hold a single
// mutex and roll back to a snapshot when the callback fails.
package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/vouchers"
)

// Store is the shared in-memory state.
type Store struct {
	mu     sync.Mutex
	state  state
	faults map[string]error
}

type state struct {
	ledgers       map[int64]ledgers.Ledger
	vouchers      map[int64]vouchers.Voucher
	sequences     map[vouchers.VoucherType]int64
	lastLedgerID  int64
	lastVoucherID int64
	lastEntryID   int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		state: state{
			ledgers:   make(map[int64]ledgers.Ledger),
			vouchers:  make(map[int64]vouchers.Voucher),
			sequences: make(map[vouchers.VoucherType]int64),
		},
		faults: make(map[string]error),
	}
}

// FailOn makes the next call of the named transactional operation return err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// fault is called with the lock held.
func (s *Store) fault(op string) error {
	err, ok := s.faults[op]
	if !ok {
		return nil
	}
	delete(s.faults, op)
	return err
}

func (st state) clone() state {
	out := st
	out.ledgers = maps.Clone(st.ledgers)
	out.vouchers = maps.Clone(st.vouchers)
	out.sequences = maps.Clone(st.sequences)
	return out
}

func (s *Store) withTx(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.state.clone()
	if err := fn(); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) read(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Ledgers returns the ledger store view.
func (s *Store) Ledgers() ledgers.Repository { return ledgerRepo{s: s} }

// Vouchers returns the voucher engine view.
func (s *Store) Vouchers() vouchers.Repository { return voucherRepo{s: s} }

// Statements returns the statement view.
func (s *Store) Statements() StatementsRepo { return StatementsRepo{s: s} }

// Reports returns the report view.
func (s *Store) Reports() ReportsRepo { return ReportsRepo{s: s} }
