//go:build integration

package accounting_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/reports"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
	"github.com/dairy-erp/ledger/internal/accounting/statements"
	"github.com/dairy-erp/ledger/internal/accounting/vouchers"
	"github.com/dairy-erp/ledger/internal/platform/db"
	internalShared "github.com/dairy-erp/ledger/internal/shared"
)

func newPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrator, err := db.NewMigrator(dsn, nil)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Close())

	pool, err := db.New(ctx, dsn, 8)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresPostingRoundTrip(t *testing.T) {
	pool := newPostgres(t)
	ctx := context.Background()
	audit := internalShared.NewAuditLogger(pool)

	ls := ledgers.NewService(ledgers.NewRepository(pool), audit, nil)
	vs := vouchers.NewService(vouchers.NewRepository(pool), audit, nil)
	ss := statements.NewService(statements.NewRepository(pool), nil)
	rs := reports.NewService(reports.NewRepository(pool), nil, reports.Config{Tolerance: 1}, nil)

	cash, err := ls.CreateLedger(ctx, ledgers.CreateInput{Name: "Cash", Type: ledgers.AccountTypeCash, OpeningBalance: money.MustParse("1000")})
	require.NoError(t, err)
	capital, err := ls.CreateLedger(ctx, ledgers.CreateInput{Name: "Capital", Type: ledgers.AccountTypeCapital, OpeningBalance: money.MustParse("1000")})
	require.NoError(t, err)
	sales, err := ls.CreateLedger(ctx, ledgers.CreateInput{Name: "Milk Sales", Type: ledgers.AccountTypeSales})
	require.NoError(t, err)

	_, err = ls.CreateLedger(ctx, ledgers.CreateInput{Name: "cash", Type: ledgers.AccountTypeBank})
	require.ErrorIs(t, err, shared.ErrDuplicateLedgerName)

	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	first, err := vs.CreateReceipt(ctx, vouchers.ReceiptInput{Date: day, CashLedgerID: cash.ID, PayerLedgerID: sales.ID, Amount: money.MustParse("250.50")})
	require.NoError(t, err)
	second, err := vs.CreateReceipt(ctx, vouchers.ReceiptInput{Date: day, CashLedgerID: cash.ID, PayerLedgerID: sales.ID, Amount: money.MustParse("49.50")})
	require.NoError(t, err)
	assert.Equal(t, first.Number+1, second.Number)

	got, err := ls.GetLedger(ctx, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Balance{Amount: money.MustParse("1300"), Side: money.Debit}, got.CurrentBalance)

	voided, err := vs.DeleteVoucher(ctx, vouchers.VoidInput{VoucherID: second.ID, Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, vouchers.StatusVoid, voided.Status)
	_, err = vs.DeleteVoucher(ctx, vouchers.VoidInput{VoucherID: second.ID})
	require.ErrorIs(t, err, shared.ErrAlreadyVoid)

	stmt, err := ss.GetStatement(ctx, cash.ID, statements.Window{})
	require.NoError(t, err)
	assert.Len(t, stmt.Lines, 1)
	assert.Equal(t, money.Balance{Amount: money.MustParse("1250.50"), Side: money.Debit}, stmt.Closing)

	check, err := ss.Verify(ctx, cash.ID)
	require.NoError(t, err)
	assert.True(t, check.Match)

	bs, err := rs.BalanceSheet(ctx, day, nil)
	require.NoError(t, err)
	assert.True(t, bs.Balanced)
	assert.Equal(t, money.MustParse("1250.50"), bs.TotalAssetsSide)
	assert.Equal(t, money.MustParse("250.50"), bs.NetProfit)
	_ = capital
}

func TestPostgresConcurrentPostingKeepsBalance(t *testing.T) {
	pool := newPostgres(t)
	ctx := context.Background()
	ls := ledgers.NewService(ledgers.NewRepository(pool), nil, nil)
	vs := vouchers.NewService(vouchers.NewRepository(pool), nil, nil)

	cash, err := ls.CreateLedger(ctx, ledgers.CreateInput{Name: "Cash", Type: ledgers.AccountTypeCash})
	require.NoError(t, err)
	sales, err := ls.CreateLedger(ctx, ledgers.CreateInput{Name: "Sales", Type: ledgers.AccountTypeSales})
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	numbers := make(chan int64, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := vs.CreateReceipt(ctx, vouchers.ReceiptInput{
				Date: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), CashLedgerID: cash.ID, PayerLedgerID: sales.ID, Amount: money.MustParse("10"),
			})
			assert.NoError(t, err)
			numbers <- v.Number
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[int64]bool{}
	for num := range numbers {
		assert.False(t, seen[num], "voucher number %d reused", num)
		seen[num] = true
	}
	got, err := ls.GetLedger(ctx, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Balance{Amount: money.MustParse("200"), Side: money.Debit}, got.CurrentBalance)
}

func TestPostgresIdempotencyStore(t *testing.T) {
	pool := newPostgres(t)
	ctx := context.Background()
	store := internalShared.NewIdempotencyStore(pool, nil, time.Hour)

	require.NoError(t, store.CheckAndInsert(ctx, "k1", "vouchers"))
	require.ErrorIs(t, store.CheckAndInsert(ctx, "k1", "vouchers"), internalShared.ErrIdempotencyConflict)
	require.NoError(t, store.Delete(ctx, "k1", "vouchers"))
	require.NoError(t, store.CheckAndInsert(ctx, "k1", "vouchers"))

	removed, err := store.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
