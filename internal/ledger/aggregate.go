package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rongwang/kasciraya-server/internal/models"
)

// DateRange is an inclusive window. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// CurrentMonth is the default dashboard window: the first instant of now's
// calendar month through now.
func CurrentMonth(now time.Time) DateRange {
	return DateRange{
		From: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()),
		To:   now,
	}
}

// Totals holds income and expense sums for a window
type Totals struct {
	Income  int64
	Expense int64
}

// Net is income minus expense
func (t Totals) Net() int64 {
	return t.Income - t.Expense
}

// PeriodTotals sums income and expense over the transactions dated inside r
func PeriodTotals(txs []models.Transaction, r DateRange) Totals {
	var totals Totals
	for _, t := range txs {
		if !r.Contains(t.Date) {
			continue
		}
		switch t.Type {
		case models.Income:
			totals.Income += t.Amount
		case models.Expense:
			totals.Expense += t.Amount
		}
	}
	return totals
}

// CategoryTotal is the income and expense booked against one category
type CategoryTotal struct {
	CategoryID string
	Income     int64
	Expense    int64
}

func (c CategoryTotal) total() int64 {
	return c.Income + c.Expense
}

// CategoryBreakdown groups txs by category. Categories with nothing booked
// are left out. Rows are ordered by combined total, largest first, with the
// category id breaking ties.
func CategoryBreakdown(txs []models.Transaction) []CategoryTotal {
	byID := make(map[string]*CategoryTotal)
	for _, t := range txs {
		row, ok := byID[t.CategoryID]
		if !ok {
			row = &CategoryTotal{CategoryID: t.CategoryID}
			byID[t.CategoryID] = row
		}
		switch t.Type {
		case models.Income:
			row.Income += t.Amount
		case models.Expense:
			row.Expense += t.Amount
		}
	}

	out := make([]CategoryTotal, 0, len(byID))
	for _, row := range byID {
		if row.Income == 0 && row.Expense == 0 {
			continue
		}
		out = append(out, *row)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].total() != out[j].total() {
			return out[i].total() > out[j].total()
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// ExpenseShares keeps the rows of a breakdown that carry expense, ordered by
// expense largest first.
func ExpenseShares(breakdown []CategoryTotal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(breakdown))
	for _, row := range breakdown {
		if row.Expense > 0 {
			out = append(out, CategoryTotal{CategoryID: row.CategoryID, Expense: row.Expense})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Expense > out[j].Expense
	})
	return out
}

// Month is a calendar month key
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month key of t in t's own location
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Start is the first instant of the month in UTC
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Before orders months chronologically
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// String renders the month as "Jan 2024". Display only, never used as a key.
func (m Month) String() string {
	return fmt.Sprintf("%s %d", m.Month.String()[:3], m.Year)
}

// MonthTotal is the income and expense of one calendar month
type MonthTotal struct {
	Month   Month
	Income  int64
	Expense int64
}

// MonthlySeries groups txs by calendar month, oldest month first
func MonthlySeries(txs []models.Transaction) []MonthTotal {
	byMonth := make(map[Month]*MonthTotal)
	for _, t := range txs {
		key := MonthOf(t.Date)
		row, ok := byMonth[key]
		if !ok {
			row = &MonthTotal{Month: key}
			byMonth[key] = row
		}
		switch t.Type {
		case models.Income:
			row.Income += t.Amount
		case models.Expense:
			row.Expense += t.Amount
		}
	}

	out := make([]MonthTotal, 0, len(byMonth))
	for _, row := range byMonth {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month.Before(out[j].Month)
	})
	return out
}

// TransactionFilter narrows a transaction list. Empty fields match everything.
type TransactionFilter struct {
	// Day matches transactions whose UTC date starts with this YYYY-MM-DD (or
	// any shorter prefix such as YYYY-MM).
	Day        string
	WalletID   string
	CategoryID string
	Range      DateRange
	Limit      int
}

// FilterTransactions applies f to txs, keeping input order
func FilterTransactions(txs []models.Transaction, f TransactionFilter) []models.Transaction {
	out := make([]models.Transaction, 0)
	for _, t := range txs {
		if f.Day != "" && !strings.HasPrefix(t.Date.UTC().Format("2006-01-02"), f.Day) {
			continue
		}
		if f.WalletID != "" && t.WalletID != f.WalletID {
			continue
		}
		if f.CategoryID != "" && t.CategoryID != f.CategoryID {
			continue
		}
		if !f.Range.Contains(t.Date) {
			continue
		}
		out = append(out, t)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// Recent returns the n most recent transactions, newest first
func Recent(txs []models.Transaction, n int) []models.Transaction {
	sorted := make([]models.Transaction, len(txs))
	copy(sorted, txs)
	SortByDateDesc(sorted)
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// SortByDateDesc orders txs newest first; ties keep the newest created first
func SortByDateDesc(txs []models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}
