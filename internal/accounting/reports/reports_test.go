package reports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
	"github.com/dairy-erp/ledger/internal/platform/cache"
	_ "github.com/dairy-erp/ledger/testing"
)

func bankRules(t *testing.T) Rules {
	t.Helper()
	rules, err := Rules{
		Assets: []GroupRule{{Name: "Bank Accounts", Keywords: []string{"bank"}}},
	}.Normalize()
	require.NoError(t, err)
	return rules
}

func TestCategorizeKeywordAndOtherItems(t *testing.T) {
	rules := bankRules(t)
	groups := Categorize([]Item{
		{LedgerID: 1, LedgerName: "Union Bank A/c", Amount: money.MustParse("1200.00")},
		{LedgerID: 2, LedgerName: "Miscellaneous XYZ", Amount: money.MustParse("50.00")},
	}, rules.Assets)

	require.Len(t, groups, 2)
	assert.Equal(t, "Bank Accounts", groups[0].Name)
	require.Len(t, groups[0].Items, 1)
	assert.Equal(t, "Union Bank A/c", groups[0].Items[0].LedgerName)
	assert.Equal(t, OtherItemsGroup, groups[1].Name)
	assert.Equal(t, "Miscellaneous XYZ", groups[1].Items[0].LedgerName)
	assert.Equal(t, money.MustParse("50.00"), groups[1].Subtotal)
}

func TestCategorizeFirstMatchWins(t *testing.T) {
	rules, err := Rules{Assets: []GroupRule{
		{Name: "Cash/Bank Accounts", Keywords: []string{"cash", "bank"}},
		{Name: "Loans & Advances", Keywords: []string{"advance"}},
	}}.Normalize()
	require.NoError(t, err)

	groups := Categorize([]Item{{LedgerName: "Cash Advance to Staff", Amount: 100}}, rules.Assets)
	require.Len(t, groups, 1)
	assert.Equal(t, "Cash/Bank Accounts", groups[0].Name)

	rules.Assets[0], rules.Assets[1] = rules.Assets[1], rules.Assets[0]
	groups = Categorize([]Item{{LedgerName: "Cash Advance to Staff", Amount: 100}}, rules.Assets)
	assert.Equal(t, "Loans & Advances", groups[0].Name)
}

func TestCategorizeCaseInsensitiveAndParentFallback(t *testing.T) {
	rules, err := Rules{Assets: []GroupRule{
		{Name: "Cash/Bank Accounts", Keywords: []string{"BANK"}},
		{Name: "Sundry Debtors", Keywords: []string{"debtor"}},
	}}.Normalize()
	require.NoError(t, err)

	groups := Categorize([]Item{
		{LedgerName: "STATE BANK", Amount: 10},
		{LedgerName: "Ramesh Dairy", ParentGroup: "Sundry Debtors", Amount: 20},
	}, rules.Assets)
	require.Len(t, groups, 2)
	assert.Equal(t, money.Amount(10), groups[0].Subtotal)
	assert.Equal(t, "Sundry Debtors", groups[1].Name)
	assert.Equal(t, money.Amount(20), groups[1].Subtotal)
}

func TestBuildBalanceSheetFlagsImbalance(t *testing.T) {
	rules := DefaultRules()
	asOn := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	liabilities := []Item{{LedgerName: "Share Capital", Amount: money.MustParse("1000.00")}}
	assets := []Item{{LedgerName: "Cash", Amount: money.MustParse("1200.00")}}

	bs := BuildBalanceSheet(asOn, liabilities, assets, money.MustParse("200.00"), rules, money.MustParse("0.01"))
	assert.True(t, bs.Balanced)
	assert.Equal(t, money.MustParse("1200.00"), bs.TotalLiabilitiesSide)
	assert.Equal(t, money.Amount(0), bs.Imbalance)
	assert.Empty(t, bs.Warning)

	bs = BuildBalanceSheet(asOn, liabilities, assets, money.MustParse("199.99"), rules, money.MustParse("0.01"))
	assert.True(t, bs.Balanced, "a difference equal to the tolerance is absorbed")

	bs = BuildBalanceSheet(asOn, liabilities, assets, money.MustParse("150.00"), rules, money.MustParse("0.01"))
	assert.False(t, bs.Balanced)
	assert.Equal(t, money.MustParse("-50.00"), bs.Imbalance)
	assert.Contains(t, bs.Warning, "50.00")
}

func TestBuildBalanceSheetIsRepeatable(t *testing.T) {
	rules := DefaultRules()
	asOn := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	liabilities := []Item{
		{LedgerID: 1, LedgerName: "Share Capital", Amount: 500},
		{LedgerID: 2, LedgerName: "Farmer Payable - Gokul", Amount: 300},
	}
	assets := []Item{
		{LedgerID: 3, LedgerName: "Union Bank A/c", Amount: 700},
		{LedgerID: 4, LedgerName: "Miscellaneous XYZ", Amount: 100},
	}
	first := BuildBalanceSheet(asOn, liabilities, assets, 0, rules, 1)
	second := BuildBalanceSheet(asOn, liabilities, assets, 0, rules, 1)
	assert.Equal(t, first, second)
	assert.True(t, first.Balanced)
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(`
assets:
  - name: Bank Accounts
    keywords: [" Bank "]
liabilities: []
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"bank"}, rules.Assets[0].Keywords)

	_, err = ParseRules([]byte("assets:\n  - name: Other Items\n    keywords: [x]\n"))
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = ParseRules([]byte("assets:\n  - name: A\n    keywords: []\n"))
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = ParseRules([]byte("assets:\n  - name: A\n    keywords: [a]\n  - name: a\n    keywords: [b]\n"))
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = ParseRules([]byte("assets: ["))
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestDefaultRulesFingerprintStable(t *testing.T) {
	a, b := DefaultRules(), DefaultRules()
	assert.NotEmpty(t, a.Assets)
	assert.NotEmpty(t, a.Liabilities)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), bankRules(t).Fingerprint())
}

type fakeRepo struct {
	mu       sync.Mutex
	calls    int
	accounts []AccountBalance
}

func (f *fakeRepo) Balances(_ context.Context, from *time.Time, _ time.Time) ([]AccountBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := append([]AccountBalance(nil), f.accounts...)
	if from != nil {
		for i := range out {
			out[i].Opening = money.Balance{Side: out[i].Type.NaturalSide()}
		}
	}
	return out, nil
}

type countingRecorder struct{ n int }

func (c *countingRecorder) BalanceSheetImbalance() { c.n++ }

func dairyAccounts() []AccountBalance {
	return []AccountBalance{
		{LedgerID: 1, Name: "Cash", Type: ledgers.AccountTypeCash, Status: ledgers.StatusActive,
			Opening: money.Balance{Side: money.Debit}, Debit: money.MustParse("500.00")},
		{LedgerID: 2, Name: "Sales A/c", Type: ledgers.AccountTypeSales, Status: ledgers.StatusActive,
			Opening: money.Balance{Side: money.Credit}, Credit: money.MustParse("800.00")},
		{LedgerID: 3, Name: "Union Bank A/c", Type: ledgers.AccountTypeBank, Status: ledgers.StatusActive,
			Opening: money.Balance{Amount: money.MustParse("1000.00"), Side: money.Debit}, Debit: money.MustParse("300.00")},
		{LedgerID: 4, Name: "Share Capital", Type: ledgers.AccountTypeCapital, Status: ledgers.StatusActive,
			Opening: money.Balance{Amount: money.MustParse("1000.00"), Side: money.Credit}},
		{LedgerID: 5, Name: "Cattle Feed Purchase", Type: ledgers.AccountTypePurchase, Status: ledgers.StatusActive,
			Opening: money.Balance{Side: money.Debit}, Debit: money.MustParse("150.00")},
		{LedgerID: 6, Name: "Gokul Traders", Type: ledgers.AccountTypeCreditor, Status: ledgers.StatusActive,
			Opening: money.Balance{Side: money.Credit}, Credit: money.MustParse("150.00")},
		{LedgerID: 7, Name: "Old Counter", Type: ledgers.AccountTypeCash, Status: ledgers.StatusInactive,
			Opening: money.Balance{Side: money.Debit}},
	}
}

func TestServiceBalanceSheet(t *testing.T) {
	repo := &fakeRepo{accounts: dairyAccounts()}
	svc := NewService(repo, nil, Config{Tolerance: money.MustParse("0.01")}, nil)

	bs, err := svc.BalanceSheet(context.Background(), time.Date(2024, 4, 30, 15, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), bs.AsOn)
	assert.Equal(t, money.MustParse("650.00"), bs.NetProfit)
	assert.Equal(t, money.MustParse("1800.00"), bs.TotalAssetsSide)
	assert.Equal(t, money.MustParse("1800.00"), bs.TotalLiabilitiesSide)
	assert.True(t, bs.Balanced)

	var names []string
	for _, g := range bs.Assets.Groups {
		for _, it := range g.Items {
			names = append(names, it.LedgerName)
		}
	}
	assert.NotContains(t, names, "Old Counter")
	assert.Equal(t, "Cash/Bank Accounts", bs.Assets.Groups[0].Name)
}

func TestServiceBalanceSheetCachesUntilBump(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	versioned := cache.NewVersioned(client, "reports", time.Minute)

	accounts := dairyAccounts()
	accounts[0].Debit = money.MustParse("400.00")
	repo := &fakeRepo{accounts: accounts}
	rec := &countingRecorder{}
	svc := NewService(repo, versioned, Config{Tolerance: 1}, nil)
	svc.SetRecorder(rec)

	ctx := context.Background()
	asOn := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
	first, err := svc.BalanceSheet(ctx, asOn, nil)
	require.NoError(t, err)
	assert.False(t, first.Balanced)
	second, err := svc.BalanceSheet(ctx, asOn, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, rec.n)

	custom := bankRules(t)
	_, err = svc.BalanceSheet(ctx, asOn, &custom)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls, "a different rule table is cached separately")

	require.NoError(t, versioned.Bump(ctx))
	_, err = svc.BalanceSheet(ctx, asOn, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.calls)
}

type gatedRepo struct {
	fakeRepo
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedRepo) Balances(ctx context.Context, from *time.Time, to time.Time) ([]AccountBalance, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	out, _ := g.fakeRepo.Balances(ctx, from, to)
	return out, ctx.Err()
}

func TestServiceBalanceSheetSurvivesFirstCallerLeaving(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &gatedRepo{
		fakeRepo: fakeRepo{accounts: dairyAccounts()},
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	svc := NewService(repo, cache.NewVersioned(client, "reports", time.Minute), Config{Tolerance: 1}, nil)
	asOn := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.BalanceSheet(firstCtx, asOn, nil)
		firstErr <- err
	}()
	<-repo.started
	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	close(repo.release)

	bs, err := svc.BalanceSheet(context.Background(), asOn, nil)
	require.NoError(t, err)
	assert.True(t, bs.Balanced)
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, 1, repo.calls)
}

func TestServiceBalanceSheetValidation(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil, Config{}, nil)
	_, err := svc.BalanceSheet(context.Background(), time.Time{}, nil)
	assert.ErrorIs(t, err, shared.ErrValidation)

	bad := Rules{Assets: []GroupRule{{Name: "", Keywords: []string{"x"}}}}
	_, err = svc.BalanceSheet(context.Background(), time.Now(), &bad)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceProfitAndLoss(t *testing.T) {
	svc := NewService(&fakeRepo{accounts: dairyAccounts()}, nil, Config{}, nil)
	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)

	pl, err := svc.ProfitAndLoss(context.Background(), &from, to)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("800.00"), pl.Income.Total)
	assert.Equal(t, money.MustParse("150.00"), pl.Expense.Total)
	assert.Equal(t, money.MustParse("650.00"), pl.NetProfit)
	require.Len(t, pl.Income.Rows, 1)
	assert.Equal(t, "Sales A/c", pl.Income.Rows[0].Name)

	_, err = svc.ProfitAndLoss(context.Background(), &to, from)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceTrialBalance(t *testing.T) {
	svc := NewService(&fakeRepo{accounts: dairyAccounts()}, nil, Config{}, nil)
	tb, err := svc.TrialBalance(context.Background(), time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, tb.Balanced)
	assert.Equal(t, money.MustParse("1950.00"), tb.TotalClosingDebit)
	assert.Equal(t, money.MustParse("1950.00"), tb.TotalClosingCredit)
	assert.Equal(t, ledgers.AccountTypeCapital, tb.Groups[0].Type)
	for _, g := range tb.Groups {
		for _, r := range g.Rows {
			assert.NotEqual(t, "Old Counter", r.Name)
		}
	}
}
