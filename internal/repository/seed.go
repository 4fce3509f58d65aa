package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rongwang/kasciraya-server/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// DemoPassword is the password of every seeded account
const DemoPassword = "password123"

// ErrNotEmpty is returned by Seed when the store already holds users
var ErrNotEmpty = errors.New("store is not empty")

// SeedResult indexes the seeded records by their natural names
type SeedResult struct {
	Users        map[string]models.User     // by username
	Wallets      map[string]models.Wallet   // by name
	Categories   map[string]models.Category // by name
	Transactions []models.Transaction
}

type seedTransaction struct {
	date     time.Time
	amount   int64
	typ      models.TransactionType
	desc     string
	category string
	wallet   string
	receipt  string
}

// Seed loads the demo data set into an empty store. Six of the nine
// transactions fall on the first days of now's month so the dashboard has
// something to show for the current period.
func Seed(ctx context.Context, repo Repository, now time.Time) (*SeedResult, error) {
	existing, err := repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrNotEmpty
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	res := &SeedResult{
		Users:      map[string]models.User{},
		Wallets:    map[string]models.Wallet{},
		Categories: map[string]models.Category{},
	}

	users := []models.User{
		{Name: "Administrator", Username: "admin", Role: models.RoleAdmin},
		{Name: "Viewer A", Username: "viewer_a", Role: models.RoleViewer},
		{Name: "Viewer B", Username: "viewer_b", Role: models.RoleViewer},
	}
	for i := range users {
		users[i].Password = string(hash)
		if err := repo.CreateUser(ctx, &users[i]); err != nil {
			return nil, fmt.Errorf("create user %s: %w", users[i].Username, err)
		}
		res.Users[users[i].Username] = users[i]
	}

	wallets := []models.Wallet{
		{Name: "Cash", Icon: "Wallet", InitialBalance: 500000},
		{Name: "Bank BCA", Icon: "Landmark", InitialBalance: 5000000},
	}
	for i := range wallets {
		if err := repo.CreateWallet(ctx, &wallets[i]); err != nil {
			return nil, fmt.Errorf("create wallet %s: %w", wallets[i].Name, err)
		}
		res.Wallets[wallets[i].Name] = wallets[i]
	}

	categories := []models.Category{
		{Name: "Salary", Type: models.Income, Icon: "Landmark"},
		{Name: "Freelance", Type: models.Income, Icon: "Briefcase"},
		{Name: "Food & Drinks", Type: models.Expense, Icon: "Utensils"},
		{Name: "Transportation", Type: models.Expense, Icon: "Car"},
		{Name: "Housing", Type: models.Expense, Icon: "Home"},
		{Name: "Shopping", Type: models.Expense, Icon: "ShoppingCart"},
		{Name: "Entertainment", Type: models.Expense, Icon: "Ticket"},
		{Name: "Health", Type: models.Expense, Icon: "HeartPulse"},
	}
	for i := range categories {
		if err := repo.CreateCategory(ctx, &categories[i]); err != nil {
			return nil, fmt.Errorf("create category %s: %w", categories[i].Name, err)
		}
		res.Categories[categories[i].Name] = categories[i]
	}

	thisMonth := func(day int) time.Time {
		n := now.UTC()
		return time.Date(n.Year(), n.Month(), day, 9, 0, 0, 0, time.UTC)
	}
	txs := []seedTransaction{
		{time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC), 8000000, models.Income, "July Salary", "Salary", "Bank BCA", ""},
		{time.Date(2024, 7, 5, 12, 30, 0, 0, time.UTC), 50000, models.Expense, "Lunch with team", "Food & Drinks", "Cash", ""},
		{time.Date(2024, 7, 10, 18, 0, 0, 0, time.UTC), 150000, models.Expense, "GoJek rides", "Transportation", "Cash", ""},
		{thisMonth(1), 8000000, models.Income, "Monthly Salary", "Salary", "Bank BCA", ""},
		{thisMonth(2), 1500000, models.Expense, "Monthly Rent", "Housing", "Bank BCA", ""},
		{thisMonth(3), 75000, models.Expense, "Coffee meeting", "Food & Drinks", "Cash", "https://i.imgur.com/4qFm22b.jpeg"},
		{thisMonth(4), 200000, models.Expense, "Cinema tickets", "Entertainment", "Bank BCA", ""},
		{thisMonth(5), 300000, models.Expense, "Weekly groceries", "Shopping", "Bank BCA", "https://i.imgur.com/QpP4vRb.jpeg"},
		{thisMonth(6), 1200000, models.Income, "Freelance Project", "Freelance", "Bank BCA", ""},
	}
	admin := res.Users["admin"]
	for _, st := range txs {
		t := models.Transaction{
			Date:            st.date,
			Amount:          st.amount,
			Type:            st.typ,
			Description:     st.desc,
			CategoryID:      res.Categories[st.category].ID,
			WalletID:        res.Wallets[st.wallet].ID,
			UserID:          admin.ID,
			ReceiptImageURL: st.receipt,
		}
		if err := repo.CreateTransaction(ctx, &t); err != nil {
			return nil, fmt.Errorf("create transaction %q: %w", st.desc, err)
		}
		res.Transactions = append(res.Transactions, t)
	}

	grants := map[string]string{
		"viewer_a": "Cash",
		"viewer_b": "Bank BCA",
	}
	for username, wallet := range grants {
		userID := res.Users[username].ID
		if err := repo.ReplaceUserPermissions(ctx, userID, []string{res.Wallets[wallet].ID}); err != nil {
			return nil, fmt.Errorf("grant %s to %s: %w", wallet, username, err)
		}
	}

	return res, nil
}
