package vouchers

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
)

// EntryInput describes a voucher line in a posting request.
type EntryInput struct {
	LedgerID  int64
	Debit     money.Amount
	Credit    money.Amount
	Narration string
}

// CreateInput groups fields required to post a voucher.
type CreateInput struct {
	Type          VoucherType
	Date          time.Time
	Entries       []EntryInput
	ReferenceType ReferenceType
	ReferenceID   *uuid.UUID
	Narration     string
	ActorID       int64
}

// Totals holds the debit and credit sums of a validated voucher.
type Totals struct {
	Debit  money.Amount
	Credit money.Amount
}

// Validate checks everything that does not need the ledger store.
func (in *CreateInput) Validate() (Totals, error) {
	if !in.Type.Valid() {
		return Totals{}, fmt.Errorf("%w: unknown voucher type %q", shared.ErrValidation, in.Type)
	}
	if in.Date.IsZero() {
		return Totals{}, fmt.Errorf("%w: voucher date required", shared.ErrValidation)
	}
	in.Date = dateOnly(in.Date)
	if in.ReferenceType == "" {
		in.ReferenceType = ReferenceManual
	}
	if !in.ReferenceType.Valid() {
		return Totals{}, fmt.Errorf("%w: unknown reference type %q", shared.ErrValidation, in.ReferenceType)
	}
	in.Narration = strings.TrimSpace(in.Narration)
	if len(in.Entries) < 2 {
		return Totals{}, shared.ErrTooFewEntries
	}
	var totals Totals
	for idx, line := range in.Entries {
		if line.LedgerID <= 0 {
			return Totals{}, fmt.Errorf("%w: entry %d missing ledger", shared.ErrValidation, idx+1)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return Totals{}, fmt.Errorf("%w: entry %d has a negative amount", shared.ErrInvalidEntry, idx+1)
		}
		if (line.Debit > 0) == (line.Credit > 0) {
			return Totals{}, fmt.Errorf("%w: entry %d", shared.ErrInvalidEntry, idx+1)
		}
		var err error
		if totals.Debit, err = money.Add(totals.Debit, line.Debit); err != nil {
			return Totals{}, fmt.Errorf("%w: entry %d: %w", shared.ErrValidation, idx+1, err)
		}
		if totals.Credit, err = money.Add(totals.Credit, line.Credit); err != nil {
			return Totals{}, fmt.Errorf("%w: entry %d: %w", shared.ErrValidation, idx+1, err)
		}
	}
	if len(in.Entries) == 2 && in.Entries[0].LedgerID == in.Entries[1].LedgerID {
		return Totals{}, fmt.Errorf("%w: ledger %d", shared.ErrSameLedger, in.Entries[0].LedgerID)
	}
	if totals.Debit != totals.Credit {
		return Totals{}, fmt.Errorf("%w: debit %s, credit %s", shared.ErrUnbalancedVoucher, totals.Debit, totals.Credit)
	}
	return totals, nil
}

// LedgerIDs returns the distinct ledgers touched, ascending.
func (in CreateInput) LedgerIDs() []int64 {
	ids := make([]int64, 0, len(in.Entries))
	for _, e := range in.Entries {
		ids = append(ids, e.LedgerID)
	}
	return distinctSorted(ids)
}

func distinctSorted(ids []int64) []int64 {
	slices.Sort(ids)
	return slices.Compact(ids)
}

// ReceiptInput books money received: Dr cash/bank, Cr payer.
type ReceiptInput struct {
	Date          time.Time
	CashLedgerID  int64
	PayerLedgerID int64
	Amount        money.Amount
	Narration     string
	ReferenceType ReferenceType
	ReferenceID   *uuid.UUID
	ActorID       int64
}

// PaymentInput books money paid out: Dr payee/expense, Cr cash/bank.
type PaymentInput struct {
	Date          time.Time
	CashLedgerID  int64
	PayeeLedgerID int64
	Amount        money.Amount
	Narration     string
	ReferenceType ReferenceType
	ReferenceID   *uuid.UUID
	ActorID       int64
}

// JournalInput is the simple two-leg journal.
type JournalInput struct {
	Date           time.Time
	DebitLedgerID  int64
	CreditLedgerID int64
	Amount         money.Amount
	Narration      string
	ReferenceType  ReferenceType
	ReferenceID    *uuid.UUID
	ActorID        int64
}

// TwoLeg builds a balanced debit/credit pair.
func TwoLeg(t VoucherType, date time.Time, debitLedger, creditLedger int64, amount money.Amount) (CreateInput, error) {
	if amount <= 0 {
		return CreateInput{}, fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	if debitLedger <= 0 || creditLedger <= 0 {
		return CreateInput{}, fmt.Errorf("%w: debit and credit ledger required", shared.ErrValidation)
	}
	if debitLedger == creditLedger {
		return CreateInput{}, fmt.Errorf("%w: ledger %d", shared.ErrSameLedger, debitLedger)
	}
	return CreateInput{
		Type: t,
		Date: date,
		Entries: []EntryInput{
			{LedgerID: debitLedger, Debit: amount},
			{LedgerID: creditLedger, Credit: amount},
		},
	}, nil
}

// VoidInput wraps parameters for voiding.
type VoidInput struct {
	VoucherID int64
	ActorID   int64
	Reason    string
}

// ListFilter narrows voucher listings.
type ListFilter struct {
	Type     VoucherType
	Status   Status
	LedgerID int64
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}

// BatchRow reports the outcome of one row in a batch posting.
type BatchRow struct {
	Index   int      `json:"index"`
	Voucher *Voucher `json:"voucher,omitempty"`
	Error   string   `json:"error,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// BatchResult tallies a batch posting.
type BatchResult struct {
	BatchID   uuid.UUID  `json:"batchId"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Rows      []BatchRow `json:"rows"`
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Request is a voucher posting in one of its accepted shapes:
// CreateInput, ReceiptInput, PaymentInput or JournalInput.
type Request interface {
	post(ctx context.Context, s *Service) (Voucher, error)
}

func (in CreateInput) post(ctx context.Context, s *Service) (Voucher, error) {
	return s.CreateVoucher(ctx, in)
}

func (in ReceiptInput) post(ctx context.Context, s *Service) (Voucher, error) {
	return s.CreateReceipt(ctx, in)
}

func (in PaymentInput) post(ctx context.Context, s *Service) (Voucher, error) {
	return s.CreatePayment(ctx, in)
}

func (in JournalInput) post(ctx context.Context, s *Service) (Voucher, error) {
	return s.CreateJournal(ctx, in)
}

// Rejected wraps a request that could not be decoded so a batch reports it in place.
func Rejected(err error) Request {
	return rejected{err: err}
}

type rejected struct {
	err error
}

func (r rejected) post(_ context.Context, s *Service) (Voucher, error) {
	return Voucher{}, s.fail(r.err)
}
