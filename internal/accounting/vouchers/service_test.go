package vouchers_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/memstore"
	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
	"github.com/dairy-erp/ledger/internal/accounting/vouchers"
	internalShared "github.com/dairy-erp/ledger/internal/shared"
	_ "github.com/dairy-erp/ledger/testing"
)

type recordingAudit struct {
	mu   sync.Mutex
	logs []internalShared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log internalShared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type countingHooks struct {
	mu       sync.Mutex
	bumps    int
	posted   map[string]int
	failures map[string]int
}

func newHooks() *countingHooks {
	return &countingHooks{posted: map[string]int{}, failures: map[string]int{}}
}

func (h *countingHooks) Bump(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bumps++
	return nil
}

func (h *countingHooks) VoucherPosted(t string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.posted[t]++
}

func (h *countingHooks) VoucherFailed(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures[reason]++
}

type fixture struct {
	store    *memstore.Store
	ledgers  *ledgers.Service
	vouchers *vouchers.Service
	audit    *recordingAudit
	hooks    *countingHooks
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	audit := &recordingAudit{}
	hooks := newHooks()
	svc := vouchers.NewService(store.Vouchers(), audit, nil)
	svc.SetInvalidator(hooks)
	svc.SetRecorder(hooks)
	return &fixture{
		store:    store,
		ledgers:  ledgers.NewService(store.Ledgers(), audit, nil),
		vouchers: svc,
		audit:    audit,
		hooks:    hooks,
	}
}

func (f *fixture) ledger(t *testing.T, name string, typ ledgers.AccountType, opening string, side money.Side) ledgers.Ledger {
	t.Helper()
	l, err := f.ledgers.CreateLedger(context.Background(), ledgers.CreateInput{
		Name:           name,
		Type:           typ,
		OpeningBalance: money.MustParse(opening),
		OpeningSide:    side,
	})
	require.NoError(t, err)
	return l
}

func (f *fixture) balance(t *testing.T, id int64) money.Balance {
	t.Helper()
	l, err := f.ledgers.GetLedger(context.Background(), id)
	require.NoError(t, err)
	return l.CurrentBalance
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateReceiptPostsBothSides(t *testing.T) {
	f := newFixture(t)
	cash := f.ledger(t, "Cash", ledgers.AccountTypeCash, "0", money.Debit)
	sales := f.ledger(t, "Sales A/c", ledgers.AccountTypeSales, "0", money.Credit)

	v, err := f.vouchers.CreateReceipt(context.Background(), vouchers.ReceiptInput{
		Date:          day(2024, 4, 1),
		PayerLedgerID: sales.ID,
		Amount:        money.MustParse("500.00"),
		Narration:     "counter sales",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), v.Number)
	assert.Equal(t, "RV-000001", v.Code())
	assert.Equal(t, vouchers.StatusPosted, v.Status)
	assert.Equal(t, money.MustParse("500.00"), v.TotalDebit)
	assert.Equal(t, v.TotalDebit, v.TotalCredit)
	require.Len(t, v.Entries, 2)
	assert.Equal(t, cash.ID, v.Entries[0].LedgerID)
	assert.Equal(t, "Cash", v.Entries[0].LedgerName)
	assert.Equal(t, money.MustParse("500.00"), v.Entries[0].Debit)
	assert.Equal(t, "Sales A/c", v.Entries[1].LedgerName)

	assert.Equal(t, money.Balance{Amount: money.MustParse("500.00"), Side: money.Debit}, f.balance(t, cash.ID))
	assert.Equal(t, money.Balance{Amount: money.MustParse("500.00"), Side: money.Credit}, f.balance(t, sales.ID))

	assert.Equal(t, 1, f.hooks.bumps)
	assert.Equal(t, 1, f.hooks.posted["RECEIPT"])
	assert.Contains(t, f.audit.actions(), "voucher.post")
}

func TestVoucherNumbersArePerType(t *testing.T) {
	f := newFixture(t)
	f.ledger(t, "Cash", ledgers.AccountTypeCash, "1000", money.Debit)
	exp := f.ledger(t, "Diesel Expense", ledgers.AccountTypeExpense, "0", money.Debit)
	capital := f.ledger(t, "Capital", ledgers.AccountTypeCapital, "1000", money.Credit)
	ctx := context.Background()

	p1, err := f.vouchers.CreatePayment(ctx, vouchers.PaymentInput{Date: day(2024, 4, 2), PayeeLedgerID: exp.ID, Amount: 100})
	require.NoError(t, err)
	j1, err := f.vouchers.CreateJournal(ctx, vouchers.JournalInput{Date: day(2024, 4, 2), DebitLedgerID: exp.ID, CreditLedgerID: capital.ID, Amount: 100})
	require.NoError(t, err)
	p2, err := f.vouchers.CreatePayment(ctx, vouchers.PaymentInput{Date: day(2024, 4, 3), PayeeLedgerID: exp.ID, Amount: 100})
	require.NoError(t, err)

	assert.Equal(t, "PV-000001", p1.Code())
	assert.Equal(t, "JV-000001", j1.Code())
	assert.Equal(t, "PV-000002", p2.Code())
}

func TestSameLedgerRejected(t *testing.T) {
	f := newFixture(t)
	cash := f.ledger(t, "Cash", ledgers.AccountTypeCash, "250", money.Debit)

	_, err := f.vouchers.CreateJournal(context.Background(), vouchers.JournalInput{
		Date: day(2024, 4, 1), DebitLedgerID: cash.ID, CreditLedgerID: cash.ID, Amount: money.MustParse("10.00"),
	})
	assert.ErrorIs(t, err, shared.ErrSameLedger)

	_, err = f.vouchers.CreateVoucher(context.Background(), vouchers.CreateInput{
		Type: vouchers.TypeJournal,
		Date: day(2024, 4, 1),
		Entries: []vouchers.EntryInput{
			{LedgerID: cash.ID, Debit: 1000},
			{LedgerID: cash.ID, Credit: 1000},
		},
	})
	assert.ErrorIs(t, err, shared.ErrSameLedger)
	assert.Equal(t, money.Balance{Amount: money.MustParse("250.00"), Side: money.Debit}, f.balance(t, cash.ID))
	assert.Equal(t, 2, f.hooks.failures["same_ledger"])
}

func TestUnbalancedVoucherRejected(t *testing.T) {
	f := newFixture(t)
	a := f.ledger(t, "Cash", ledgers.AccountTypeCash, "0", money.Debit)
	b := f.ledger(t, "Sales A/c", ledgers.AccountTypeSales, "0", money.Credit)

	_, err := f.vouchers.CreateVoucher(context.Background(), vouchers.CreateInput{
		Type: vouchers.TypeJournal,
		Date: day(2024, 4, 1),
		Entries: []vouchers.EntryInput{
			{LedgerID: a.ID, Debit: money.MustParse("300.00")},
			{LedgerID: b.ID, Credit: money.MustParse("300.01")},
		},
	})
	assert.ErrorIs(t, err, shared.ErrUnbalancedVoucher)
	assert.True(t, f.balance(t, a.ID).IsZero())
	assert.True(t, f.balance(t, b.ID).IsZero())
}

func TestOverflowingVoucherRejected(t *testing.T) {
	f := newFixture(t)
	a := f.ledger(t, "Cash", ledgers.AccountTypeCash, "0", money.Debit)
	b := f.ledger(t, "Sales A/c", ledgers.AccountTypeSales, "0", money.Credit)

	_, err := f.vouchers.CreateVoucher(context.Background(), vouchers.CreateInput{
		Type: vouchers.TypeJournal,
		Date: day(2024, 4, 1),
		Entries: []vouchers.EntryInput{
			{LedgerID: a.ID, Debit: math.MaxInt64},
			{LedgerID: a.ID, Debit: math.MaxInt64},
			{LedgerID: a.ID, Debit: math.MaxInt64},
			{LedgerID: b.ID, Credit: math.MaxInt64 - 2},
		},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.True(t, f.balance(t, a.ID).IsZero())
	assert.True(t, f.balance(t, b.ID).IsZero())
	assert.Equal(t, 1, f.hooks.failures[shared.Reason(err)])
}

func TestPostingPastMaxBalanceRejected(t *testing.T) {
	f := newFixture(t)
	bank := f.ledger(t, "Union Bank A/c", ledgers.AccountTypeBank, "10000000000000.00", money.Debit)
	capital := f.ledger(t, "Capital A/c", ledgers.AccountTypeCapital, "0", money.Credit)

	_, err := f.vouchers.CreateJournal(context.Background(), vouchers.JournalInput{
		Date:           day(2024, 4, 1),
		DebitLedgerID:  bank.ID,
		CreditLedgerID: capital.ID,
		Amount:         money.MustParse("0.01"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.ErrorIs(t, err, money.ErrOutOfRange)
	assert.Equal(t, money.Balance{Amount: money.MaxAmount, Side: money.Debit}, f.balance(t, bank.ID))
	assert.True(t, f.balance(t, capital.ID).IsZero())
}

func TestMalformedEntriesLeaveBalancesUntouched(t *testing.T) {
	f := newFixture(t)
	a := f.ledger(t, "Cash", ledgers.AccountTypeCash, "75", money.Debit)
	b := f.ledger(t, "Sales A/c", ledgers.AccountTypeSales, "75", money.Credit)
	before := []money.Balance{f.balance(t, a.ID), f.balance(t, b.ID)}

	cases := map[string]struct {
		entries []vouchers.EntryInput
		want    error
	}{
		"single entry": {[]vouchers.EntryInput{{LedgerID: a.ID, Debit: 10}}, shared.ErrTooFewEntries},
		"both sides":   {[]vouchers.EntryInput{{LedgerID: a.ID, Debit: 10, Credit: 10}, {LedgerID: b.ID, Credit: 10}}, shared.ErrInvalidEntry},
		"zero entry":   {[]vouchers.EntryInput{{LedgerID: a.ID}, {LedgerID: b.ID}}, shared.ErrInvalidEntry},
		"negative":     {[]vouchers.EntryInput{{LedgerID: a.ID, Debit: -10}, {LedgerID: b.ID, Credit: -10}}, shared.ErrInvalidEntry},
		"unknown":      {[]vouchers.EntryInput{{LedgerID: a.ID, Debit: 10}, {LedgerID: 999, Credit: 10}}, shared.ErrNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.vouchers.CreateVoucher(context.Background(), vouchers.CreateInput{
				Type: vouchers.TypeJournal, Date: day(2024, 4, 1), Entries: tc.entries,
			})
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, before, []money.Balance{f.balance(t, a.ID), f.balance(t, b.ID)})
		})
	}
}

func TestInactiveLedgerRejected(t *testing.T) {
	f := newFixture(t)
	cash := f.ledger(t, "Cash", ledgers.AccountTypeCash, "0", money.Debit)
	old := f.ledger(t, "Old Customer", ledgers.AccountTypeDebtor, "0", money.Debit)
	_, err := f.ledgers.Deactivate(context.Background(), ledgers.DeactivateInput{LedgerID: old.ID})
	require.NoError(t, err)

	_, err = f.vouchers.CreateReceipt(context.Background(), vouchers.ReceiptInput{
		Date: day(2024, 4, 1), CashLedgerID: cash.ID, PayerLedgerID: old.ID, Amount: 100,
	})
	assert.ErrorIs(t, err, shared.ErrInactiveLedger)
	assert.True(t, f.balance(t, cash.ID).IsZero())
}

func TestCashLedgerResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.ledger(t, "Union Bank A/c", ledgers.AccountTypeBank, "0", money.Debit)
	milk := f.ledger(t, "Milk Sales", ledgers.AccountTypeSales, "0", money.Credit)

	_, err := f.vouchers.CreateReceipt(ctx, vouchers.ReceiptInput{Date: day(2024, 4, 1), PayerLedgerID: milk.ID, Amount: 100})
	assert.ErrorIs(t, err, shared.ErrMissingCashLedger)

	_, err = f.vouchers.CreateReceipt(ctx, vouchers.ReceiptInput{Date: day(2024, 4, 1), CashLedgerID: milk.ID, PayerLedgerID: bank.ID, Amount: 100})
	assert.ErrorIs(t, err, shared.ErrValidation)

	v, err := f.vouchers.CreateReceipt(ctx, vouchers.ReceiptInput{Date: day(2024, 4, 1), CashLedgerID: bank.ID, PayerLedgerID: milk.ID, Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, bank.ID, v.Entries[0].LedgerID)

	petty := f.ledger(t, "Petty Cash", ledgers.AccountTypeCash, "0", money.Debit)
	mainCash := f.ledger(t, "Main Cash", ledgers.AccountTypeCash, "0", money.Debit)
	require.Less(t, petty.ID, mainCash.ID)
	v, err = f.vouchers.CreateReceipt(ctx, vouchers.ReceiptInput{Date: day(2024, 4, 1), PayerLedgerID: milk.ID, Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, petty.ID, v.Entries[0].LedgerID, "lowest id active cash ledger is the default")
}

func TestPostingIsAllOrNothing(t *testing.T) {
	for _, op := range []string{"NextVoucherNumber", "InsertVoucher", "InsertEntries", "UpdateLedgerBalance"} {
		t.Run(op, func(t *testing.T) {
			f := newFixture(t)
			cash := f.ledger(t, "Cash", ledgers.AccountTypeCash, "10", money.Debit)
			sales := f.ledger(t, "Sales A/c", ledgers.AccountTypeSales, "10", money.Credit)
			boom := errors.New("disk full")
			f.store.FailOn(op, boom)

			_, err := f.vouchers.CreateJournal(context.Background(), vouchers.JournalInput{
				Date: day(2024, 4, 1), DebitLedgerID: cash.ID, CreditLedgerID: sales.ID, Amount: 500,
			})
			require.ErrorIs(t, err, boom)
			assert.Equal(t, money.Balance{Amount: 1000, Side: money.Debit}, f.balance(t, cash.ID))
			assert.Equal(t, money.Balance{Amount: 1000, Side: money.Credit}, f.balance(t, sales.ID))

			list, page, err := f.vouchers.ListVouchers(context.Background(), vouchers.ListFilter{})
			require.NoError(t, err)
			assert.Empty(t, list)
			assert.Equal(t, 0, page.Total)
			assert.Equal(t, 0, f.hooks.bumps)
		})
	}
}

func TestPaymentFlipsSide(t *testing.T) {
	f := newFixture(t)
	cash := f.ledger(t, "Cash", ledgers.AccountTypeCash, "100.00", money.Debit)
	feed := f.ledger(t, "Cattle Feed", ledgers.AccountTypePurchase, "0", money.Debit)

	_, err := f.vouchers.CreatePayment(context.Background(), vouchers.PaymentInput{
		Date: day(2024, 4, 5), PayeeLedgerID: feed.ID, Amount: money.MustParse("250.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, money.Balance{Amount: money.MustParse("150.00"), Side: money.Credit}, f.balance(t, cash.ID))
	assert.Equal(t, money.Balance{Amount: money.MustParse("250.00"), Side: money.Debit}, f.balance(t, feed.ID))
}

func TestDeleteVoucherReversesAndRetains(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cash := f.ledger(t, "Cash", ledgers.AccountTypeCash, "0", money.Debit)
	sales := f.ledger(t, "Sales A/c", ledgers.AccountTypeSales, "0", money.Credit)
	v, err := f.vouchers.CreateReceipt(ctx, vouchers.ReceiptInput{Date: day(2024, 4, 1), PayerLedgerID: sales.ID, Amount: 500})
	require.NoError(t, err)

	voided, err := f.vouchers.DeleteVoucher(ctx, vouchers.VoidInput{VoucherID: v.ID, Reason: " wrong party "})
	require.NoError(t, err)
	assert.Equal(t, vouchers.StatusVoid, voided.Status)
	assert.Equal(t, "wrong party", voided.VoidReason)
	require.NotNil(t, voided.VoidedAt)

	assert.True(t, f.balance(t, cash.ID).IsZero())
	assert.Equal(t, money.Debit, f.balance(t, cash.ID).Side)
	assert.True(t, f.balance(t, sales.ID).IsZero())

	stored, err := f.vouchers.GetVoucher(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, vouchers.StatusVoid, stored.Status)
	assert.Len(t, stored.Entries, 2)

	_, err = f.vouchers.DeleteVoucher(ctx, vouchers.VoidInput{VoucherID: v.ID})
	assert.ErrorIs(t, err, shared.ErrAlreadyVoid)
	assert.ErrorIs(t, err, shared.ErrConflict)

	_, err = f.vouchers.DeleteVoucher(ctx, vouchers.VoidInput{VoucherID: 404})
	assert.ErrorIs(t, err, shared.ErrVoucherNotFound)
	_, err = f.vouchers.DeleteVoucher(ctx, vouchers.VoidInput{})
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, []string{"ledger.create", "ledger.create", "voucher.post", "voucher.void"}, f.audit.actions())
	assert.Equal(t, map[string]int{"conflict": 1, "not_found": 1, "validation": 1}, f.hooks.failures)
}

func TestDeleteVoucherRequiresActiveLedgers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cash := f.ledger(t, "Cash", ledgers.AccountTypeCash, "0", money.Debit)
	party := f.ledger(t, "Ravi Dairy", ledgers.AccountTypeDebtor, "0", money.Debit)
	v, err := f.vouchers.CreateReceipt(ctx, vouchers.ReceiptInput{Date: day(2024, 4, 1), PayerLedgerID: party.ID, Amount: 500})
	require.NoError(t, err)
	_, err = f.ledgers.Deactivate(ctx, ledgers.DeactivateInput{LedgerID: party.ID, Force: true, Reason: "closed"})
	require.NoError(t, err)

	_, err = f.vouchers.DeleteVoucher(ctx, vouchers.VoidInput{VoucherID: v.ID})
	assert.ErrorIs(t, err, shared.ErrInactiveLedger)
	assert.Equal(t, money.Balance{Amount: 500, Side: money.Debit}, f.balance(t, cash.ID))

	_, err = f.ledgers.Reactivate(ctx, party.ID, 0)
	require.NoError(t, err)
	_, err = f.vouchers.DeleteVoucher(ctx, vouchers.VoidInput{VoucherID: v.ID})
	require.NoError(t, err)
	assert.True(t, f.balance(t, party.ID).IsZero())
}

func TestCreateBatchIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	cash := f.ledger(t, "Cash", ledgers.AccountTypeCash, "0", money.Debit)
	sales := f.ledger(t, "Sales A/c", ledgers.AccountTypeSales, "0", money.Credit)
	row := func(debit, credit money.Amount) vouchers.CreateInput {
		return vouchers.CreateInput{
			Type: vouchers.TypeJournal,
			Date: day(2024, 4, 1),
			Entries: []vouchers.EntryInput{
				{LedgerID: cash.ID, Debit: debit},
				{LedgerID: sales.ID, Credit: credit},
			},
		}
	}

	res := f.vouchers.CreateBatch(context.Background(), []vouchers.Request{
		row(100, 100),
		row(30000, 30001),
		row(200, 200),
		vouchers.Rejected(fmt.Errorf("%w: bad date", shared.ErrValidation)),
	})
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Rows, 4)
	assert.NotNil(t, res.Rows[0].Voucher)
	assert.Nil(t, res.Rows[1].Voucher)
	assert.Equal(t, "unbalanced", res.Rows[1].Reason)
	assert.Equal(t, int64(2), res.Rows[2].Voucher.Number)
	assert.Equal(t, "validation", res.Rows[3].Reason)
	assert.Equal(t, money.Balance{Amount: 300, Side: money.Debit}, f.balance(t, cash.ID))
}

func TestConcurrentPostingsSerialize(t *testing.T) {
	f := newFixture(t)
	cash := f.ledger(t, "Cash", ledgers.AccountTypeCash, "0", money.Debit)
	sales := f.ledger(t, "Sales A/c", ledgers.AccountTypeSales, "0", money.Credit)

	const workers, perWorker = 8, 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[int64]bool{}
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				v, err := f.vouchers.CreateReceipt(context.Background(), vouchers.ReceiptInput{
					Date: day(2024, 4, 1), PayerLedgerID: sales.ID, Amount: money.MustParse("1.25"),
				})
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				assert.False(t, numbers[v.Number], "duplicate number %d", v.Number)
				numbers[v.Number] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	total := money.MustParse("1.25") * workers * perWorker
	assert.Equal(t, money.Balance{Amount: total, Side: money.Debit}, f.balance(t, cash.ID))
	assert.Equal(t, money.Balance{Amount: total, Side: money.Credit}, f.balance(t, sales.ID))
	assert.Len(t, numbers, workers*perWorker)
	for n := int64(1); n <= workers*perWorker; n++ {
		assert.True(t, numbers[n], "missing number %d", n)
	}
}

func TestListVouchers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledger(t, "Cash", ledgers.AccountTypeCash, "0", money.Debit)
	sales := f.ledger(t, "Sales A/c", ledgers.AccountTypeSales, "0", money.Credit)
	feed := f.ledger(t, "Cattle Feed", ledgers.AccountTypePurchase, "0", money.Debit)
	for d := 1; d <= 5; d++ {
		_, err := f.vouchers.CreateReceipt(ctx, vouchers.ReceiptInput{Date: day(2024, 4, d), PayerLedgerID: sales.ID, Amount: 100})
		require.NoError(t, err)
	}
	_, err := f.vouchers.CreatePayment(ctx, vouchers.PaymentInput{Date: day(2024, 4, 6), PayeeLedgerID: feed.ID, Amount: 50})
	require.NoError(t, err)

	items, page, err := f.vouchers.ListVouchers(ctx, vouchers.ListFilter{Page: 1, PerPage: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, items, 4)
	assert.Equal(t, vouchers.TypePayment, items[0].Type)

	items, _, err = f.vouchers.ListVouchers(ctx, vouchers.ListFilter{LedgerID: feed.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)

	from, to := day(2024, 4, 2), day(2024, 4, 3)
	items, _, err = f.vouchers.ListVouchers(ctx, vouchers.ListFilter{Type: vouchers.TypeReceipt, From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, _, err = f.vouchers.ListVouchers(ctx, vouchers.ListFilter{From: &to, To: &from})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
