package ledger_test

import (
	"testing"
	"time"

	"github.com/rongwang/kasciraya-server/internal/ledger"
	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/stretchr/testify/assert"
)

var (
	admin   = &models.User{ID: "u-admin", Username: "admin", Role: models.RoleAdmin}
	viewerA = &models.User{ID: "u-a", Username: "viewer_a", Role: models.RoleViewer}
	viewerB = &models.User{ID: "u-b", Username: "viewer_b", Role: models.RoleViewer}

	cash = models.Wallet{ID: "w-cash", Name: "Cash", InitialBalance: 500000}
	bank = models.Wallet{ID: "w-bank", Name: "Bank BCA", InitialBalance: 5000000}

	wallets = []models.Wallet{cash, bank}

	grants = []models.PermissionGrant{
		{UserID: viewerA.ID, WalletID: cash.ID},
		{UserID: viewerB.ID, WalletID: bank.ID},
	}
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func tx(id, walletID, categoryID string, typ models.TransactionType, amount int64, date time.Time) models.Transaction {
	return models.Transaction{
		ID:         id,
		WalletID:   walletID,
		CategoryID: categoryID,
		Type:       typ,
		Amount:     amount,
		Date:       date,
		CreatedAt:  date,
	}
}

func sampleLedger() []models.Transaction {
	return []models.Transaction{
		tx("t1", bank.ID, "salary", models.Income, 8000000, day(2024, time.July, 1)),
		tx("t2", cash.ID, "food", models.Expense, 50000, day(2024, time.July, 5)),
		tx("t3", cash.ID, "transport", models.Expense, 150000, day(2024, time.July, 10)),
		tx("t4", bank.ID, "salary", models.Income, 8000000, day(2024, time.August, 1)),
		tx("t5", bank.ID, "housing", models.Expense, 1500000, day(2024, time.August, 2)),
		tx("t6", cash.ID, "food", models.Expense, 75000, day(2024, time.August, 3)),
	}
}

func TestPermittedWalletIDs(t *testing.T) {
	t.Run("nil user sees nothing", func(t *testing.T) {
		set := ledger.PermittedWalletIDs(nil, wallets, grants)
		assert.Empty(t, set)
		assert.False(t, set.Has(cash.ID))
	})

	t.Run("admin sees every wallet without grants", func(t *testing.T) {
		set := ledger.PermittedWalletIDs(admin, wallets, nil)
		assert.ElementsMatch(t, []string{cash.ID, bank.ID}, set.IDs())
	})

	t.Run("viewer sees granted wallets only", func(t *testing.T) {
		set := ledger.PermittedWalletIDs(viewerA, wallets, grants)
		assert.Equal(t, []string{cash.ID}, set.IDs())
	})

	t.Run("viewer without grants sees nothing", func(t *testing.T) {
		stranger := &models.User{ID: "u-x", Role: models.RoleViewer}
		assert.Empty(t, ledger.PermittedWalletIDs(stranger, wallets, grants))
	})
}

func TestVisibilityContainment(t *testing.T) {
	txs := sampleLedger()

	scope := ledger.NewScope(viewerA, wallets, grants)
	visible := scope.Transactions(txs)

	assert.NotEmpty(t, visible)
	for _, tr := range visible {
		assert.Equal(t, cash.ID, tr.WalletID, "viewer_a must never see bank transactions")
	}
	assert.Equal(t, []models.Wallet{cash}, scope.Wallets(wallets))
	assert.False(t, scope.CanSee(bank.ID))

	totals := ledger.PeriodTotals(visible, ledger.DateRange{})
	assert.Equal(t, int64(0), totals.Income)
	assert.Equal(t, int64(275000), totals.Expense)

	for _, row := range ledger.CategoryBreakdown(visible) {
		assert.NotEqual(t, "salary", row.CategoryID)
		assert.NotEqual(t, "housing", row.CategoryID)
	}
}

func TestAdministratorBypass(t *testing.T) {
	txs := sampleLedger()

	// Grants for the admin are irrelevant, including a grant on a single wallet.
	adminGrants := []models.PermissionGrant{{UserID: admin.ID, WalletID: cash.ID}}
	permitted := ledger.PermittedWalletIDs(admin, wallets, adminGrants)

	assert.Equal(t, wallets, ledger.VisibleWallets(admin, wallets, permitted))
	assert.Equal(t, txs, ledger.VisibleTransactions(admin, txs, permitted))
	assert.Equal(t, txs, ledger.VisibleTransactions(admin, txs, nil))
}

func TestVisibilityNilUser(t *testing.T) {
	assert.Empty(t, ledger.VisibleWallets(nil, wallets, ledger.NewWalletSet(cash.ID)))
	assert.Empty(t, ledger.VisibleTransactions(nil, sampleLedger(), ledger.NewWalletSet(cash.ID)))
	assert.False(t, ledger.Scope{}.CanSee(cash.ID))
}

func TestWalletBalance(t *testing.T) {
	txs := []models.Transaction{
		tx("t1", cash.ID, "salary", models.Income, 8000000, day(2024, time.July, 1)),
		tx("t2", cash.ID, "food", models.Expense, 50000, day(2024, time.July, 5)),
		tx("t3", cash.ID, "transport", models.Expense, 150000, day(2024, time.July, 10)),
		tx("t4", bank.ID, "salary", models.Income, 123, day(2024, time.July, 11)),
	}

	assert.Equal(t, int64(8300000), ledger.WalletBalance(cash, txs))
	assert.Equal(t, int64(5000123), ledger.WalletBalance(bank, txs))

	reversed := []models.Transaction{txs[3], txs[2], txs[1], txs[0]}
	assert.Equal(t, ledger.WalletBalance(cash, txs), ledger.WalletBalance(cash, reversed))
}

func TestWalletBalanceWithoutTransactions(t *testing.T) {
	assert.Equal(t, cash.InitialBalance, ledger.WalletBalance(cash, nil))
}

func TestBalanceOfUnknownWallet(t *testing.T) {
	assert.Equal(t, int64(0), ledger.BalanceOf("missing", wallets, sampleLedger()))
	assert.Equal(t, int64(500000-50000-150000-75000), ledger.BalanceOf(cash.ID, wallets, sampleLedger()))
}

func TestTotalBalance(t *testing.T) {
	txs := sampleLedger()
	want := ledger.WalletBalance(cash, txs) + ledger.WalletBalance(bank, txs)
	assert.Equal(t, want, ledger.TotalBalance(wallets, txs))

	balances := ledger.Balances(wallets, txs)
	assert.Len(t, balances, 2)
	assert.Equal(t, cash.ID, balances[0].Wallet.ID)
	assert.Equal(t, ledger.WalletBalance(cash, txs), balances[0].Balance)
}

func TestEmptyAggregations(t *testing.T) {
	assert.Equal(t, ledger.Totals{}, ledger.PeriodTotals(nil, ledger.DateRange{}))
	assert.Equal(t, ledger.Totals{}, ledger.PeriodTotals([]models.Transaction{}, ledger.CurrentMonth(time.Now())))

	breakdown := ledger.CategoryBreakdown(nil)
	assert.NotNil(t, breakdown)
	assert.Empty(t, breakdown)

	series := ledger.MonthlySeries(nil)
	assert.NotNil(t, series)
	assert.Empty(t, series)

	assert.Empty(t, ledger.ExpenseShares(nil))
	assert.Empty(t, ledger.Recent(nil, 5))
}

func TestPeriodTotals(t *testing.T) {
	txs := sampleLedger()

	tests := []struct {
		name    string
		r       ledger.DateRange
		income  int64
		expense int64
	}{
		{"open range", ledger.DateRange{}, 16000000, 1775000},
		{"july only", ledger.DateRange{From: day(2024, time.July, 1), To: day(2024, time.July, 31)}, 8000000, 200000},
		{"open start", ledger.DateRange{To: day(2024, time.July, 5)}, 8000000, 50000},
		{"open end", ledger.DateRange{From: day(2024, time.August, 2)}, 0, 1575000},
		{"inclusive bounds", ledger.DateRange{From: day(2024, time.July, 5), To: day(2024, time.July, 5)}, 0, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ledger.PeriodTotals(txs, tt.r)
			assert.Equal(t, tt.income, got.Income)
			assert.Equal(t, tt.expense, got.Expense)
			assert.Equal(t, tt.income-tt.expense, got.Net())
		})
	}
}

func TestCurrentMonth(t *testing.T) {
	now := time.Date(2026, time.October, 14, 15, 30, 0, 0, time.UTC)
	r := ledger.CurrentMonth(now)

	assert.Equal(t, time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC), r.From)
	assert.Equal(t, now, r.To)
	assert.True(t, r.Contains(r.From))
	assert.False(t, r.Contains(r.From.Add(-time.Second)))
	assert.False(t, r.Contains(now.Add(time.Minute)))
}

func TestCategoryBreakdown(t *testing.T) {
	txs := append(sampleLedger(), tx("t7", cash.ID, "refund", models.Income, 50000, day(2024, time.August, 4)))

	rows := ledger.CategoryBreakdown(txs)
	assert.Len(t, rows, 5)

	assert.Equal(t, "salary", rows[0].CategoryID)
	assert.Equal(t, int64(16000000), rows[0].Income)
	assert.Equal(t, "housing", rows[1].CategoryID)

	byID := map[string]ledger.CategoryTotal{}
	for _, r := range rows {
		byID[r.CategoryID] = r
	}
	assert.Equal(t, int64(125000), byID["food"].Expense)
	assert.Equal(t, int64(0), byID["food"].Income)
	assert.Equal(t, int64(50000), byID["refund"].Income)

	assert.Equal(t, "refund", rows[len(rows)-1].CategoryID)
}

func TestCategoryBreakdownDropsZeroRows(t *testing.T) {
	txs := []models.Transaction{
		tx("t1", cash.ID, "empty", models.Expense, 0, day(2024, time.July, 1)),
		tx("t2", cash.ID, "food", models.Expense, 10, day(2024, time.July, 1)),
	}
	rows := ledger.CategoryBreakdown(txs)
	assert.Len(t, rows, 1)
	assert.Equal(t, "food", rows[0].CategoryID)
}

func TestCategoryBreakdownTiesAreDeterministic(t *testing.T) {
	txs := []models.Transaction{
		tx("t1", cash.ID, "b", models.Expense, 10, day(2024, time.July, 1)),
		tx("t2", cash.ID, "a", models.Expense, 10, day(2024, time.July, 1)),
		tx("t3", cash.ID, "c", models.Income, 10, day(2024, time.July, 1)),
	}
	rows := ledger.CategoryBreakdown(txs)
	assert.Equal(t, []string{"a", "b", "c"}, []string{rows[0].CategoryID, rows[1].CategoryID, rows[2].CategoryID})
}

func TestExpenseShares(t *testing.T) {
	shares := ledger.ExpenseShares(ledger.CategoryBreakdown(sampleLedger()))
	assert.Len(t, shares, 3)
	assert.Equal(t, "housing", shares[0].CategoryID)
	for _, s := range shares {
		assert.Zero(t, s.Income)
		assert.Positive(t, s.Expense)
	}
}

func TestMonthlySeriesOrdering(t *testing.T) {
	// Reverse chronological input across a year boundary and a gap.
	txs := []models.Transaction{
		tx("t1", cash.ID, "food", models.Expense, 30, day(2024, time.March, 3)),
		tx("t2", cash.ID, "salary", models.Income, 100, day(2024, time.January, 20)),
		tx("t3", cash.ID, "food", models.Expense, 5, day(2023, time.December, 31)),
		tx("t4", cash.ID, "food", models.Expense, 7, day(2024, time.January, 2)),
	}

	series := ledger.MonthlySeries(txs)
	assert.Len(t, series, 3)

	assert.Equal(t, ledger.Month{Year: 2023, Month: time.December}, series[0].Month)
	assert.Equal(t, ledger.Month{Year: 2024, Month: time.January}, series[1].Month)
	assert.Equal(t, ledger.Month{Year: 2024, Month: time.March}, series[2].Month)

	assert.Equal(t, int64(100), series[1].Income)
	assert.Equal(t, int64(7), series[1].Expense)
	assert.Equal(t, "Mar 2024", series[2].Month.String())
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), series[2].Month.Start())
}

func TestFilterTransactions(t *testing.T) {
	txs := sampleLedger()

	assert.Len(t, ledger.FilterTransactions(txs, ledger.TransactionFilter{}), len(txs))

	byDay := ledger.FilterTransactions(txs, ledger.TransactionFilter{Day: "2024-08-02"})
	assert.Len(t, byDay, 1)
	assert.Equal(t, "t5", byDay[0].ID)

	byMonth := ledger.FilterTransactions(txs, ledger.TransactionFilter{Day: "2024-07"})
	assert.Len(t, byMonth, 3)

	byWallet := ledger.FilterTransactions(txs, ledger.TransactionFilter{WalletID: cash.ID, CategoryID: "food"})
	assert.Len(t, byWallet, 2)

	limited := ledger.FilterTransactions(txs, ledger.TransactionFilter{WalletID: bank.ID, Limit: 2})
	assert.Equal(t, []string{"t1", "t4"}, []string{limited[0].ID, limited[1].ID})
}

func TestRecent(t *testing.T) {
	txs := sampleLedger()
	recent := ledger.Recent(txs, 2)

	assert.Len(t, recent, 2)
	assert.Equal(t, "t6", recent[0].ID)
	assert.Equal(t, "t5", recent[1].ID)
	// input is left untouched
	assert.Equal(t, "t1", txs[0].ID)
}
