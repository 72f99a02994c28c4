package vouchers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
	internalShared "github.com/dairy-erp/ledger/internal/shared"
)

// AuditPort records voucher events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Invalidator drops cached reports after balances move.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Recorder counts postings and failures.
type Recorder interface {
	VoucherPosted(voucherType string)
	VoucherFailed(reason string)
}

// Service posts and voids vouchers against the ledger store.
type Service struct {
	repo        Repository
	audit       AuditPort
	invalidator Invalidator
	recorder    Recorder
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the voucher engine.
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

// SetRecorder wires posting metrics.
func (s *Service) SetRecorder(rec Recorder) {
	s.recorder = rec
}

// CreateVoucher validates and posts a voucher. Either the voucher, its
// entries and every ledger balance change are stored, or nothing is.
func (s *Service) CreateVoucher(ctx context.Context, input CreateInput) (Voucher, error) {
	totals, err := input.Validate()
	if err != nil {
		return Voucher{}, s.fail(err)
	}
	var voucher Voucher
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := lockActive(ctx, tx, input.LedgerIDs())
		if err != nil {
			return err
		}
		working := make(map[int64]*ledgers.Ledger, len(locked))
		for id, l := range locked {
			l := l
			working[id] = &l
		}
		entries := make([]Entry, 0, len(input.Entries))
		for idx, line := range input.Entries {
			l := working[line.LedgerID]
			if err := l.ApplyEntry(line.Debit, line.Credit); err != nil {
				return fmt.Errorf("entry %d: %w", idx+1, err)
			}
			entries = append(entries, Entry{
				LineNo:     idx + 1,
				LedgerID:   l.ID,
				LedgerName: l.Name,
				Debit:      line.Debit,
				Credit:     line.Credit,
				Narration:  strings.TrimSpace(line.Narration),
			})
		}
		number, err := tx.NextVoucherNumber(ctx, input.Type)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertVoucher(ctx, Voucher{
			Number:        number,
			Type:          input.Type,
			Date:          input.Date,
			ReferenceType: input.ReferenceType,
			ReferenceID:   input.ReferenceID,
			Narration:     input.Narration,
			TotalDebit:    totals.Debit,
			TotalCredit:   totals.Credit,
			Status:        StatusPosted,
			CreatedBy:     input.ActorID,
			CreatedAt:     s.now(),
		})
		if err != nil {
			return err
		}
		for i := range entries {
			entries[i].VoucherID = inserted.ID
		}
		if err := tx.InsertEntries(ctx, inserted.ID, entries); err != nil {
			return err
		}
		if err := saveBalances(ctx, tx, locked, working); err != nil {
			return err
		}
		inserted.Entries = entries
		voucher = inserted
		return nil
	})
	if err != nil {
		return Voucher{}, s.fail(err)
	}
	s.afterChange(ctx)
	if s.recorder != nil {
		s.recorder.VoucherPosted(string(voucher.Type))
	}
	s.record(ctx, input.ActorID, "voucher.post", voucher, map[string]any{
		"code":           voucher.Code(),
		"total":          voucher.TotalDebit.String(),
		"reference_type": string(voucher.ReferenceType),
	})
	return voucher, nil
}

// CreateReceipt posts Dr cash/bank, Cr payer.
func (s *Service) CreateReceipt(ctx context.Context, input ReceiptInput) (Voucher, error) {
	cash, err := s.resolveCashLedger(ctx, input.CashLedgerID)
	if err != nil {
		return Voucher{}, s.fail(err)
	}
	req, err := TwoLeg(TypeReceipt, input.Date, cash, input.PayerLedgerID, input.Amount)
	if err != nil {
		return Voucher{}, s.fail(err)
	}
	req.Narration, req.ReferenceType, req.ReferenceID, req.ActorID = input.Narration, input.ReferenceType, input.ReferenceID, input.ActorID
	return s.CreateVoucher(ctx, req)
}

// CreatePayment posts Dr payee, Cr cash/bank.
func (s *Service) CreatePayment(ctx context.Context, input PaymentInput) (Voucher, error) {
	cash, err := s.resolveCashLedger(ctx, input.CashLedgerID)
	if err != nil {
		return Voucher{}, s.fail(err)
	}
	req, err := TwoLeg(TypePayment, input.Date, input.PayeeLedgerID, cash, input.Amount)
	if err != nil {
		return Voucher{}, s.fail(err)
	}
	req.Narration, req.ReferenceType, req.ReferenceID, req.ActorID = input.Narration, input.ReferenceType, input.ReferenceID, input.ActorID
	return s.CreateVoucher(ctx, req)
}

// CreateJournal posts a two-leg journal between arbitrary ledgers.
func (s *Service) CreateJournal(ctx context.Context, input JournalInput) (Voucher, error) {
	req, err := TwoLeg(TypeJournal, input.Date, input.DebitLedgerID, input.CreditLedgerID, input.Amount)
	if err != nil {
		return Voucher{}, s.fail(err)
	}
	req.Narration, req.ReferenceType, req.ReferenceID, req.ActorID = input.Narration, input.ReferenceType, input.ReferenceID, input.ActorID
	return s.CreateVoucher(ctx, req)
}

// DeleteVoucher voids a posted voucher and reverses its effect on every
// ledger it touched. The voucher and its entries are retained.
func (s *Service) DeleteVoucher(ctx context.Context, input VoidInput) (Voucher, error) {
	if input.VoucherID <= 0 {
		return Voucher{}, s.fail(fmt.Errorf("%w: voucher id required", shared.ErrValidation))
	}
	var voucher Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, input.VoucherID)
		if err != nil {
			return err
		}
		if current.Status == StatusVoid {
			return fmt.Errorf("%w: %s", shared.ErrAlreadyVoid, current.Code())
		}
		locked, err := lockActive(ctx, tx, entryLedgerIDs(current.Entries))
		if err != nil {
			return err
		}
		working := make(map[int64]*ledgers.Ledger, len(locked))
		for id, l := range locked {
			l := l
			working[id] = &l
		}
		for _, e := range current.Entries {
			if err := working[e.LedgerID].ApplyEntry(e.Credit, e.Debit); err != nil {
				return err
			}
		}
		ts := s.now()
		reason := strings.TrimSpace(input.Reason)
		if err := tx.MarkVoid(ctx, current.ID, ts, reason); err != nil {
			return err
		}
		if err := saveBalances(ctx, tx, locked, working); err != nil {
			return err
		}
		current.Status = StatusVoid
		current.VoidedAt = &ts
		current.VoidReason = reason
		voucher = current
		return nil
	})
	if err != nil {
		return Voucher{}, s.fail(err)
	}
	s.afterChange(ctx)
	s.record(ctx, input.ActorID, "voucher.void", voucher, map[string]any{
		"code":   voucher.Code(),
		"reason": voucher.VoidReason,
	})
	return voucher, nil
}

// Post records a voucher given in any accepted request shape.
func (s *Service) Post(ctx context.Context, req Request) (Voucher, error) {
	if req == nil {
		return Voucher{}, s.fail(fmt.Errorf("%w: empty request", shared.ErrValidation))
	}
	return req.post(ctx, s)
}

// GetVoucher loads a voucher with its entries.
func (s *Service) GetVoucher(ctx context.Context, id int64) (Voucher, error) {
	if id <= 0 {
		return Voucher{}, fmt.Errorf("%w: voucher id required", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// ListVouchers returns one page of voucher headers, newest first.
func (s *Service) ListVouchers(ctx context.Context, filter ListFilter) ([]Voucher, internalShared.Pagination, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, internalShared.Pagination{}, fmt.Errorf("%w: unknown voucher type %q", shared.ErrValidation, filter.Type)
	}
	if filter.Status != "" && filter.Status != StatusPosted && filter.Status != StatusVoid {
		return nil, internalShared.Pagination{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, filter.Status)
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, internalShared.Pagination{}, fmt.Errorf("%w: date range reversed", shared.ErrValidation)
	}
	filter.Page, filter.PerPage = internalShared.NormalizePage(filter.Page, filter.PerPage)
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internalShared.Pagination{}, err
	}
	return items, internalShared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// CreateBatch posts each row in its own transaction. A failing row does
// not affect the others.
func (s *Service) CreateBatch(ctx context.Context, rows []Request) BatchResult {
	result := BatchResult{BatchID: uuid.New(), Rows: make([]BatchRow, 0, len(rows))}
	for idx, row := range rows {
		out := BatchRow{Index: idx}
		var (
			v   Voucher
			err = ctx.Err()
		)
		if err == nil {
			v, err = row.post(ctx, s)
		}
		if err != nil {
			out.Error = err.Error()
			out.Reason = shared.Reason(err)
			result.Failed++
		} else {
			out.Voucher = &v
			result.Succeeded++
		}
		result.Rows = append(result.Rows, out)
	}
	s.logger.Info("voucher batch processed",
		slog.String("batch_id", result.BatchID.String()),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
	)
	return result
}

func (s *Service) resolveCashLedger(ctx context.Context, id int64) (int64, error) {
	if id <= 0 {
		l, err := s.repo.DefaultCashLedger(ctx)
		if err != nil {
			if errors.Is(err, shared.ErrLedgerNotFound) {
				return 0, shared.ErrMissingCashLedger
			}
			return 0, err
		}
		return l.ID, nil
	}
	l, err := s.repo.GetLedger(ctx, id)
	if err != nil {
		return 0, err
	}
	if !l.Type.IsCashOrBank() {
		return 0, fmt.Errorf("%w: %s is not a cash or bank ledger", shared.ErrValidation, l.Name)
	}
	return l.ID, nil
}

func (s *Service) fail(err error) error {
	if s.recorder != nil {
		s.recorder.VoucherFailed(shared.Reason(err))
	}
	return err
}

func (s *Service) afterChange(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action string, v Voucher, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "voucher",
		EntityID: fmt.Sprintf("%d", v.ID),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

// lockActive locks the ledgers in ascending id order and requires each to be active.
func lockActive(ctx context.Context, tx TxRepository, ids []int64) (map[int64]ledgers.Ledger, error) {
	locked, err := tx.LockLedgers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		l, ok := locked[id]
		if !ok {
			return nil, fmt.Errorf("%w: id %d", shared.ErrLedgerNotFound, id)
		}
		if !l.IsActive() {
			return nil, fmt.Errorf("%w: %s", shared.ErrInactiveLedger, l.Name)
		}
	}
	return locked, nil
}

func saveBalances(ctx context.Context, tx TxRepository, before map[int64]ledgers.Ledger, after map[int64]*ledgers.Ledger) error {
	for _, id := range sortedIDs(after) {
		if err := tx.UpdateLedgerBalance(ctx, *after[id], before[id].Version); err != nil {
			return err
		}
	}
	return nil
}

func entryLedgerIDs(entries []Entry) []int64 {
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.LedgerID)
	}
	return distinctSorted(ids)
}

func sortedIDs(m map[int64]*ledgers.Ledger) []int64 {
	return distinctSorted(slices.Collect(maps.Keys(m)))
}
