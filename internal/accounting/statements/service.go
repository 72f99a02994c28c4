package statements

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
)

// Repository reads a ledger together with its posted entries.
type Repository interface {
	// Load returns the ledger and its entries on POSTED vouchers dated on or
	// before to (all when nil), ordered by voucher date, voucher id and line.
	// Both are read from one snapshot.
	Load(ctx context.Context, ledgerID int64, to *time.Time) (ledgers.Ledger, []Posting, error)
	LedgerIDs(ctx context.Context) ([]int64, error)
}

// Service derives statements on demand. It never mutates state.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the statement service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// GetStatement returns the ledger statement for the window.
func (s *Service) GetStatement(ctx context.Context, ledgerID int64, w Window) (Statement, error) {
	if ledgerID <= 0 {
		return Statement{}, fmt.Errorf("%w: ledger id required", shared.ErrValidation)
	}
	if w.From != nil && w.To != nil && w.To.Before(*w.From) {
		return Statement{}, fmt.Errorf("%w: date range reversed", shared.ErrValidation)
	}
	l, postings, err := s.repo.Load(ctx, ledgerID, w.To)
	if err != nil {
		return Statement{}, err
	}
	return Build(l, postings, w)
}

// Verification compares a stored balance against a full replay.
type Verification struct {
	LedgerID   int64         `json:"ledgerId"`
	LedgerName string        `json:"ledgerName"`
	Stored     money.Balance `json:"stored"`
	Replayed   money.Balance `json:"replayed"`
	Entries    int           `json:"entries"`
	Match      bool          `json:"match"`
}

// Verify replays every posted entry of the ledger and compares the result
// with its current balance.
func (s *Service) Verify(ctx context.Context, ledgerID int64) (Verification, error) {
	l, postings, err := s.repo.Load(ctx, ledgerID, nil)
	if err != nil {
		return Verification{}, err
	}
	replayed, err := Replay(l, postings)
	if err != nil {
		return Verification{}, err
	}
	v := Verification{
		LedgerID:   l.ID,
		LedgerName: l.Name,
		Stored:     l.CurrentBalance,
		Replayed:   replayed,
		Entries:    len(postings),
		Match:      replayed.Signed() == l.CurrentBalance.Signed(),
	}
	if !v.Match {
		s.logger.Error("ledger balance drift",
			slog.Int64("ledger_id", l.ID),
			slog.String("ledger", l.Name),
			slog.String("stored", l.CurrentBalance.String()),
			slog.String("replayed", replayed.String()),
		)
	}
	return v, nil
}

// LedgerIDs lists every ledger for bulk verification.
func (s *Service) LedgerIDs(ctx context.Context) ([]int64, error) {
	return s.repo.LedgerIDs(ctx)
}
