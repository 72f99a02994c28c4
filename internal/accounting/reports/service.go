package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
)

// Repository aggregates ledger movements.
type Repository interface {
	// Balances returns every ledger with the debit and credit totals of POSTED
	// vouchers dated in [from, to]. When from is nil the window starts at the
	// beginning and Opening carries the ledger's opening balance; otherwise
	// Opening is zero.
	Balances(ctx context.Context, from *time.Time, to time.Time) ([]AccountBalance, error)
}

// Cache is the versioned JSON cache used for balance sheets.
type Cache interface {
	Key(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) (bool, error)
}

// Recorder counts flagged balance sheets.
type Recorder interface {
	BalanceSheetImbalance()
}

const sharedFetchTimeout = 30 * time.Second

// Config tunes the report service.
type Config struct {
	Rules     Rules
	Tolerance money.Amount
}

// Service builds financial reports from ledger balances.
type Service struct {
	repo      Repository
	cache     Cache
	recorder  Recorder
	rules     Rules
	tolerance money.Amount
	logger    *slog.Logger
	flight    singleflight.Group
}

// NewService constructs the report service. A nil cache disables caching.
func NewService(repo Repository, cache Cache, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Rules.Assets) == 0 && len(cfg.Rules.Liabilities) == 0 {
		cfg.Rules = DefaultRules()
	}
	if cfg.Tolerance < 0 {
		cfg.Tolerance = 0
	}
	return &Service{repo: repo, cache: cache, rules: cfg.Rules, tolerance: cfg.Tolerance, logger: logger}
}

// SetRecorder wires imbalance metrics.
func (s *Service) SetRecorder(rec Recorder) {
	s.recorder = rec
}

// Rules returns the configured rule table.
func (s *Service) Rules() Rules {
	return s.rules
}

// BalanceSheet categorises ledger balances as on the given day. A nil rules
// argument selects the configured table.
func (s *Service) BalanceSheet(ctx context.Context, asOn time.Time, rules *Rules) (BalanceSheet, error) {
	if asOn.IsZero() {
		return BalanceSheet{}, fmt.Errorf("%w: as-on date required", shared.ErrValidation)
	}
	asOn = dateOnly(asOn)
	active := s.rules
	if rules != nil {
		normalized, err := rules.Normalize()
		if err != nil {
			return BalanceSheet{}, err
		}
		active = normalized
	}
	loader := func(ctx context.Context) (any, error) {
		return s.buildBalanceSheet(ctx, asOn, active)
	}
	if s.cache == nil {
		bs, err := s.buildBalanceSheet(ctx, asOn, active)
		return bs, err
	}
	key, err := s.cache.Key(ctx, "balance-sheet", asOn.Format(time.DateOnly), active.Fingerprint())
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		return s.buildBalanceSheet(ctx, asOn, active)
	}
	res := s.flight.DoChan(key, func() (any, error) {
		// Shared by every waiter on key; one caller leaving must not fail the rest.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		var bs BalanceSheet
		if _, err := s.cache.FetchJSON(fetchCtx, key, &bs, loader); err != nil {
			return nil, err
		}
		return bs, nil
	})
	select {
	case <-ctx.Done():
		return BalanceSheet{}, ctx.Err()
	case out := <-res:
		if out.Err != nil {
			return BalanceSheet{}, out.Err
		}
		return out.Val.(BalanceSheet), nil
	}
}

func (s *Service) buildBalanceSheet(ctx context.Context, asOn time.Time, rules Rules) (BalanceSheet, error) {
	accounts, err := s.repo.Balances(ctx, nil, asOn)
	if err != nil {
		return BalanceSheet{}, err
	}
	var liabilities, assets []Item
	for _, acc := range accounts {
		if acc.Type.Statement() != ledgers.StatementBalanceSheet || acc.Dormant() {
			continue
		}
		closing := acc.Closing()
		item := Item{LedgerID: acc.LedgerID, LedgerName: acc.Name, ParentGroup: acc.ParentGroup}
		if acc.Type.ReportingSide() == ledgers.SideAssets {
			item.Amount = closing.SignedFor(money.Debit)
			assets = append(assets, item)
		} else {
			item.Amount = closing.SignedFor(money.Credit)
			liabilities = append(liabilities, item)
		}
	}
	pl := BuildProfitAndLoss(accounts)
	bs := BuildBalanceSheet(asOn, liabilities, assets, pl.NetProfit, rules, s.tolerance)
	if !bs.Balanced {
		s.logger.Warn("balance sheet out of balance",
			slog.String("as_on", asOn.Format(time.DateOnly)),
			slog.String("imbalance", bs.Imbalance.String()),
		)
		if s.recorder != nil {
			s.recorder.BalanceSheetImbalance()
		}
	}
	return bs, nil
}

// ProfitAndLoss reports income and expense for the window. A nil from
// includes everything up to to, opening balances included.
func (s *Service) ProfitAndLoss(ctx context.Context, from *time.Time, to time.Time) (ProfitAndLoss, error) {
	if to.IsZero() {
		return ProfitAndLoss{}, fmt.Errorf("%w: end date required", shared.ErrValidation)
	}
	to = dateOnly(to)
	if from != nil {
		f := dateOnly(*from)
		if to.Before(f) {
			return ProfitAndLoss{}, fmt.Errorf("%w: date range reversed", shared.ErrValidation)
		}
		from = &f
	}
	accounts, err := s.repo.Balances(ctx, from, to)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	pl := BuildProfitAndLoss(accounts)
	pl.From, pl.To = from, to
	return pl, nil
}

// TrialBalance lists every ledger's balance as on the given day.
func (s *Service) TrialBalance(ctx context.Context, asOn time.Time) (TrialBalance, error) {
	if asOn.IsZero() {
		return TrialBalance{}, fmt.Errorf("%w: as-on date required", shared.ErrValidation)
	}
	asOn = dateOnly(asOn)
	accounts, err := s.repo.Balances(ctx, nil, asOn)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := BuildTrialBalance(asOn, accounts)
	if !tb.Balanced {
		s.logger.Warn("trial balance does not agree",
			slog.String("as_on", asOn.Format(time.DateOnly)),
			slog.String("debit", tb.TotalClosingDebit.String()),
			slog.String("credit", tb.TotalClosingCredit.String()),
		)
	}
	return tb, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
