package service

import (
	"context"
	"fmt"

	"github.com/rongwang/kasciraya-server/internal/export"
	"github.com/rongwang/kasciraya-server/internal/ledger"
	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/rongwang/kasciraya-server/internal/utils"
)

// RecentTransactions is how many transactions the dashboard lists
const RecentTransactions = 5

func periodTotals(r ledger.DateRange, totals ledger.Totals) models.PeriodTotals {
	out := models.PeriodTotals{
		Income:  totals.Income,
		Expense: totals.Expense,
		Net:     totals.Net(),
	}
	if !r.From.IsZero() {
		from := r.From
		out.From = &from
	}
	if !r.To.IsZero() {
		to := r.To
		out.To = &to
	}
	return out
}

func categoryTotals(rows []ledger.CategoryTotal, categories []models.Category) []models.CategoryTotal {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	out := make([]models.CategoryTotal, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.CategoryTotal{
			CategoryID: row.CategoryID,
			Name:       names[row.CategoryID],
			Income:     row.Income,
			Expense:    row.Expense,
		})
	}
	return out
}

func monthTotals(rows []ledger.MonthTotal) []models.MonthTotal {
	out := make([]models.MonthTotal, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.MonthTotal{
			Year:    row.Month.Year,
			Month:   int(row.Month.Month),
			Start:   row.Month.Start(),
			Label:   row.Month.String(),
			Income:  row.Income,
			Expense: row.Expense,
		})
	}
	return out
}

func inRange(txs []models.Transaction, r ledger.DateRange) []models.Transaction {
	return ledger.FilterTransactions(txs, ledger.TransactionFilter{Range: r})
}

// Dashboard computes every number of the overview screen over the actor's
// visible wallets. A zero period means the current month.
func (s *DefaultService) Dashboard(
	ctx context.Context,
	actor *models.User,
	period ledger.DateRange,
) (*models.DashboardResponse, error) {
	snap, scope, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if period.From.IsZero() && period.To.IsZero() {
		period = ledger.CurrentMonth(s.now())
	}

	wallets := scope.Wallets(snap.Wallets)
	txs := scope.Transactions(snap.Transactions)
	breakdown := ledger.CategoryBreakdown(inRange(txs, period))

	return &models.DashboardResponse{
		Status:        "success",
		TotalBalance:  ledger.TotalBalance(wallets, snap.Transactions),
		Wallets:       ledger.Balances(wallets, snap.Transactions),
		Period:        periodTotals(period, ledger.PeriodTotals(txs, period)),
		Monthly:       monthTotals(ledger.MonthlySeries(txs)),
		Categories:    categoryTotals(breakdown, snap.Categories),
		ExpenseShares: categoryTotals(ledger.ExpenseShares(breakdown), snap.Categories),
		Recent:        ledger.Recent(txs, RecentTransactions),
	}, nil
}

func (s *DefaultService) ListWallets(ctx context.Context, actor *models.User) (*models.WalletsResponse, error) {
	snap, scope, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}

	wallets := scope.Wallets(snap.Wallets)
	return &models.WalletsResponse{
		Status:       "success",
		Wallets:      ledger.Balances(wallets, snap.Transactions),
		TotalBalance: ledger.TotalBalance(wallets, snap.Transactions),
	}, nil
}

// WalletBalance reports NotFound both for unknown wallets and for wallets
// outside the actor's scope
func (s *DefaultService) WalletBalance(
	ctx context.Context,
	actor *models.User,
	walletID string,
) (*models.BalanceResponse, error) {
	snap, scope, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !scope.CanSee(walletID) {
		return nil, fmt.Errorf("%w: wallet %q", ErrNotFound, walletID)
	}

	return &models.BalanceResponse{
		Status:   "success",
		WalletID: walletID,
		Balance:  ledger.BalanceOf(walletID, snap.Wallets, snap.Transactions),
	}, nil
}

func (s *DefaultService) ListTransactions(
	ctx context.Context,
	actor *models.User,
	filter ledger.TransactionFilter,
) (*models.TransactionsResponse, error) {
	snap, scope, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}

	return &models.TransactionsResponse{
		Status:       "success",
		Transactions: ledger.FilterTransactions(scope.Transactions(snap.Transactions), filter),
	}, nil
}

// PeriodTotals sums the visible ledger over period; a zero period is all time
func (s *DefaultService) PeriodTotals(
	ctx context.Context,
	actor *models.User,
	period ledger.DateRange,
) (*models.PeriodTotalsResponse, error) {
	snap, scope, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}

	totals := ledger.PeriodTotals(scope.Transactions(snap.Transactions), period)
	return &models.PeriodTotalsResponse{
		Status: "success",
		Totals: periodTotals(period, totals),
	}, nil
}

func (s *DefaultService) CategoryReport(
	ctx context.Context,
	actor *models.User,
	period ledger.DateRange,
) (*models.CategoryReportResponse, error) {
	snap, scope, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}

	txs := inRange(scope.Transactions(snap.Transactions), period)
	return &models.CategoryReportResponse{
		Status:     "success",
		Categories: categoryTotals(ledger.CategoryBreakdown(txs), snap.Categories),
	}, nil
}

func (s *DefaultService) MonthlyReport(
	ctx context.Context,
	actor *models.User,
	period ledger.DateRange,
) (*models.MonthlyReportResponse, error) {
	snap, scope, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}

	txs := inRange(scope.Transactions(snap.Transactions), period)
	return &models.MonthlyReportResponse{
		Status: "success",
		Months: monthTotals(ledger.MonthlySeries(txs)),
	}, nil
}

// ExportTransactions renders the visible, filtered transaction list as xlsx
func (s *DefaultService) ExportTransactions(
	ctx context.Context,
	actor *models.User,
	filter ledger.TransactionFilter,
) ([]byte, error) {
	snap, scope, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}

	txs := ledger.FilterTransactions(scope.Transactions(snap.Transactions), filter)
	data, err := export.TransactionsXLSX(txs, scope.Wallets(snap.Wallets), snap.Categories)
	if err != nil {
		return nil, fmt.Errorf("error exporting transactions: %w", err)
	}
	s.logger.InfoContext(ctx, "transactions exported", utils.FieldActor, actor.ID, "rows", len(txs))
	return data, nil
}
