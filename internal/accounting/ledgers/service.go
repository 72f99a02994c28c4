package ledgers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
	internalShared "github.com/dairy-erp/ledger/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Invalidator drops cached reports after the chart of accounts changes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service maintains the chart of accounts.
type Service struct {
	repo        Repository
	audit       AuditPort
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the ledger store service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SetInvalidator wires the report cache.
func (s *Service) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

// CreateLedger opens a new active ledger whose current balance equals its opening balance.
func (s *Service) CreateLedger(ctx context.Context, input CreateInput) (Ledger, error) {
	if err := input.Validate(); err != nil {
		return Ledger{}, err
	}
	var created Ledger
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.ActiveNameExists(ctx, input.Name, 0)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %q", shared.ErrDuplicateLedgerName, input.Name)
		}
		opening := money.NewBalance(input.OpeningBalance, input.OpeningSide)
		if opening.IsZero() {
			opening.Side = input.Type.NaturalSide()
		}
		ts := s.now()
		created, err = tx.InsertLedger(ctx, Ledger{
			Name:           input.Name,
			Type:           input.Type,
			OpeningBalance: opening,
			CurrentBalance: opening,
			ParentGroup:    input.ParentGroup,
			Status:         StatusActive,
			CreatedAt:      ts,
			UpdatedAt:      ts,
		})
		return err
	})
	if err != nil {
		return Ledger{}, err
	}
	s.afterChange(ctx)
	s.record(ctx, input.ActorID, "ledger.create", created.ID, map[string]any{
		"name":    created.Name,
		"type":    string(created.Type),
		"opening": created.OpeningBalance.String(),
	})
	return created, nil
}

// GetLedger loads a single ledger.
func (s *Service) GetLedger(ctx context.Context, id int64) (Ledger, error) {
	if id <= 0 {
		return Ledger{}, fmt.Errorf("%w: ledger id required", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// ListLedgers returns ledgers matching the filter.
func (s *Service) ListLedgers(ctx context.Context, filter ListFilter) ([]Ledger, error) {
	if filter.Status != "" && filter.Status != StatusActive && filter.Status != StatusInactive {
		return nil, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, filter.Status)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", shared.ErrValidation, filter.Type)
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

// ListSelectable returns the ledgers that new vouchers may post to.
func (s *Service) ListSelectable(ctx context.Context) ([]Ledger, error) {
	return s.repo.List(ctx, ListFilter{Status: StatusActive})
}

// Deactivate retires a ledger. A ledger with a non-zero balance is only retired when forced.
func (s *Service) Deactivate(ctx context.Context, input DeactivateInput) (Ledger, error) {
	if input.LedgerID <= 0 {
		return Ledger{}, fmt.Errorf("%w: ledger id required", shared.ErrValidation)
	}
	var ledger Ledger
	var forced, changed bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, input.LedgerID)
		if err != nil {
			return err
		}
		if current.Status == StatusInactive {
			ledger = current
			return nil
		}
		if !current.CurrentBalance.IsZero() {
			if !input.Force {
				return fmt.Errorf("%w: %s carries %s", shared.ErrOutstandingBalance, current.Name, current.CurrentBalance)
			}
			forced = true
		}
		if err := tx.UpdateStatus(ctx, current.ID, StatusInactive); err != nil {
			return err
		}
		current.Status = StatusInactive
		current.UpdatedAt = s.now()
		ledger = current
		changed = true
		return nil
	})
	if err != nil {
		return Ledger{}, err
	}
	if changed {
		s.afterChange(ctx)
	}
	meta := map[string]any{"reason": input.Reason}
	if forced {
		s.logger.Warn("ledger deactivated with outstanding balance",
			slog.Int64("ledger_id", ledger.ID),
			slog.String("ledger", ledger.Name),
			slog.String("balance", ledger.CurrentBalance.String()),
			slog.Int64("actor_id", input.ActorID),
			slog.String("reason", input.Reason),
		)
		meta["forced"] = true
		meta["balance"] = ledger.CurrentBalance.String()
	}
	s.record(ctx, input.ActorID, "ledger.deactivate", ledger.ID, meta)
	return ledger, nil
}

// Reactivate returns a retired ledger to service if its name is still free.
func (s *Service) Reactivate(ctx context.Context, ledgerID, actorID int64) (Ledger, error) {
	if ledgerID <= 0 {
		return Ledger{}, fmt.Errorf("%w: ledger id required", shared.ErrValidation)
	}
	var ledger Ledger
	var changed bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, ledgerID)
		if err != nil {
			return err
		}
		ledger = current
		if current.IsActive() {
			return nil
		}
		exists, err := tx.ActiveNameExists(ctx, current.Name, current.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %q", shared.ErrDuplicateLedgerName, current.Name)
		}
		if err := tx.UpdateStatus(ctx, current.ID, StatusActive); err != nil {
			return err
		}
		ledger.Status = StatusActive
		ledger.UpdatedAt = s.now()
		changed = true
		return nil
	})
	if err != nil {
		return Ledger{}, err
	}
	if changed {
		s.afterChange(ctx)
	}
	s.record(ctx, actorID, "ledger.reactivate", ledger.ID, nil)
	return ledger, nil
}

// Rename changes the display name. Voucher entries keep the name they were posted with.
func (s *Service) Rename(ctx context.Context, input RenameInput) (Ledger, error) {
	name := strings.TrimSpace(input.Name)
	if input.LedgerID <= 0 || name == "" {
		return Ledger{}, fmt.Errorf("%w: ledger id and name required", shared.ErrValidation)
	}
	var ledger Ledger
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, input.LedgerID)
		if err != nil {
			return err
		}
		if current.IsActive() {
			exists, err := tx.ActiveNameExists(ctx, name, current.ID)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %q", shared.ErrDuplicateLedgerName, name)
			}
		}
		if err := tx.UpdateName(ctx, current.ID, name); err != nil {
			return err
		}
		current.Name = name
		current.UpdatedAt = s.now()
		ledger = current
		return nil
	})
	if err != nil {
		return Ledger{}, err
	}
	s.afterChange(ctx)
	s.record(ctx, input.ActorID, "ledger.rename", ledger.ID, map[string]any{"name": name})
	return ledger, nil
}

func (s *Service) afterChange(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action string, ledgerID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "ledger",
		EntityID: fmt.Sprintf("%d", ledgerID),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
