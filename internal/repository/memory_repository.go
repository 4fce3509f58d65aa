package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/kasciraya-server/internal/ledger"
	"github.com/rongwang/kasciraya-server/internal/models"
)

// MemoryRepository implements the Repository interface in process memory.
//
// Collections are copy-on-write: a mutation builds a fresh slice and swaps
// it in under the write lock, and a slice handed to a reader is never
// written again. Readers can therefore iterate a snapshot while writers
// carry on.
type MemoryRepository struct {
	mu           sync.RWMutex
	users        []models.User
	wallets      []models.Wallet
	categories   []models.Category
	transactions []models.Transaction
	grants       []models.PermissionGrant

	now func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) Close() error {
	return nil
}

// without returns a copy of items minus the ones drop matches
func without[T any](items []T, drop func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if !drop(it) {
			out = append(out, it)
		}
	}
	return out
}

// replaced returns a copy of items with the first match swapped for v
func replaced[T any](items []T, match func(T) bool, v T) ([]T, bool) {
	out := make([]T, len(items))
	copy(out, items)
	for i := range out {
		if match(out[i]) {
			out[i] = v
			return out, true
		}
	}
	return nil, false
}

func appended[T any](items []T, v T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items...)
	return append(out, v)
}

func find[T any](items []T, match func(T) bool) (*T, bool) {
	for i := range items {
		if match(items[i]) {
			v := items[i]
			return &v, true
		}
	}
	return nil, false
}

// User repository methods
func (r *MemoryRepository) ListUsers(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users, nil
}

func (r *MemoryRepository) GetUserByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, _ := find(r.users, func(u models.User) bool { return u.ID == id })
	return u, nil
}

func (r *MemoryRepository) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, _ := find(r.users, func(u models.User) bool { return u.Username == username })
	return u, nil
}

func (r *MemoryRepository) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := find(r.users, func(u models.User) bool { return u.Username == user.Username }); taken {
		return ErrDuplicate
	}

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.users = appended(r.users, *user)
	return nil
}

func (r *MemoryRepository) UpdateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clash := func(u models.User) bool { return u.Username == user.Username && u.ID != user.ID }
	if _, taken := find(r.users, clash); taken {
		return ErrDuplicate
	}

	current, ok := find(r.users, func(u models.User) bool { return u.ID == user.ID })
	if !ok {
		return ErrNotFound
	}
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = r.now()

	next, _ := replaced(r.users, func(u models.User) bool { return u.ID == user.ID }, *user)
	r.users = next
	return nil
}

func (r *MemoryRepository) DeleteUser(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := find(r.users, func(u models.User) bool { return u.ID == id }); !ok {
		return ErrNotFound
	}
	r.users = without(r.users, func(u models.User) bool { return u.ID == id })
	r.grants = without(r.grants, func(g models.PermissionGrant) bool { return g.UserID == id })
	return nil
}

// Wallet repository methods
func (r *MemoryRepository) ListWallets(_ context.Context) ([]models.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.wallets, nil
}

func (r *MemoryRepository) GetWallet(_ context.Context, id string) (*models.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, _ := find(r.wallets, func(w models.Wallet) bool { return w.ID == id })
	return w, nil
}

func (r *MemoryRepository) CreateWallet(_ context.Context, wallet *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wallet.ID == "" {
		wallet.ID = uuid.New().String()
	}
	now := r.now()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now

	r.wallets = appended(r.wallets, *wallet)
	return nil
}

func (r *MemoryRepository) UpdateWallet(_ context.Context, wallet *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := find(r.wallets, func(w models.Wallet) bool { return w.ID == wallet.ID })
	if !ok {
		return ErrNotFound
	}
	wallet.CreatedAt = current.CreatedAt
	wallet.UpdatedAt = r.now()

	next, _ := replaced(r.wallets, func(w models.Wallet) bool { return w.ID == wallet.ID }, *wallet)
	r.wallets = next
	return nil
}

func (r *MemoryRepository) DeleteWallet(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := find(r.wallets, func(w models.Wallet) bool { return w.ID == id }); !ok {
		return ErrNotFound
	}
	r.wallets = without(r.wallets, func(w models.Wallet) bool { return w.ID == id })
	r.transactions = without(r.transactions, func(t models.Transaction) bool { return t.WalletID == id })
	r.grants = without(r.grants, func(g models.PermissionGrant) bool { return g.WalletID == id })
	return nil
}

// Category repository methods
func (r *MemoryRepository) ListCategories(_ context.Context) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.categories, nil
}

func (r *MemoryRepository) GetCategory(_ context.Context, id string) (*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, _ := find(r.categories, func(c models.Category) bool { return c.ID == id })
	return c, nil
}

func (r *MemoryRepository) CreateCategory(_ context.Context, category *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	now := r.now()
	category.CreatedAt = now
	category.UpdatedAt = now

	r.categories = appended(r.categories, *category)
	return nil
}

func (r *MemoryRepository) UpdateCategory(_ context.Context, category *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := find(r.categories, func(c models.Category) bool { return c.ID == category.ID })
	if !ok {
		return ErrNotFound
	}
	category.CreatedAt = current.CreatedAt
	category.UpdatedAt = r.now()

	next, _ := replaced(r.categories, func(c models.Category) bool { return c.ID == category.ID }, *category)
	r.categories = next
	return nil
}

func (r *MemoryRepository) DeleteCategory(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := find(r.categories, func(c models.Category) bool { return c.ID == id }); !ok {
		return ErrNotFound
	}
	r.categories = without(r.categories, func(c models.Category) bool { return c.ID == id })
	return nil
}

func (r *MemoryRepository) CountTransactionsByCategory(_ context.Context, categoryID string) (map[models.TransactionType]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[models.TransactionType]int{}
	for _, t := range r.transactions {
		if t.CategoryID == categoryID {
			counts[t.Type]++
		}
	}
	return counts, nil
}

// Transaction repository methods
func (r *MemoryRepository) ListTransactions(_ context.Context) ([]models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.transactions, nil
}

func (r *MemoryRepository) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, _ := find(r.transactions, func(t models.Transaction) bool { return t.ID == id })
	return t, nil
}

func (r *MemoryRepository) CreateTransaction(_ context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	now := r.now()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	next := appended(r.transactions, *tx)
	ledger.SortByDateDesc(next)
	r.transactions = next
	return nil
}

func (r *MemoryRepository) UpdateTransaction(_ context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := find(r.transactions, func(t models.Transaction) bool { return t.ID == tx.ID })
	if !ok {
		return ErrNotFound
	}
	tx.CreatedAt = current.CreatedAt
	tx.UpdatedAt = r.now()

	next, _ := replaced(r.transactions, func(t models.Transaction) bool { return t.ID == tx.ID }, *tx)
	ledger.SortByDateDesc(next)
	r.transactions = next
	return nil
}

func (r *MemoryRepository) DeleteTransaction(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := find(r.transactions, func(t models.Transaction) bool { return t.ID == id }); !ok {
		return ErrNotFound
	}
	r.transactions = without(r.transactions, func(t models.Transaction) bool { return t.ID == id })
	return nil
}

// Permission repository methods
func (r *MemoryRepository) ListPermissions(_ context.Context) ([]models.PermissionGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.grants, nil
}

func (r *MemoryRepository) ListUserPermissions(_ context.Context, userID string) ([]models.PermissionGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return without(r.grants, func(g models.PermissionGrant) bool { return g.UserID != userID }), nil
}

func (r *MemoryRepository) ReplaceUserPermissions(_ context.Context, userID string, walletIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	next := without(r.grants, func(g models.PermissionGrant) bool { return g.UserID == userID })
	seen := make(map[string]bool, len(walletIDs))
	for _, id := range walletIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		next = append(next, models.PermissionGrant{UserID: userID, WalletID: id, CreatedAt: now})
	}
	r.grants = next
	return nil
}

// Snapshot returns the current collections under a single read lock
func (r *MemoryRepository) Snapshot(_ context.Context) (*models.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &models.Snapshot{
		Users:        r.users,
		Wallets:      r.wallets,
		Categories:   r.categories,
		Transactions: r.transactions,
		Grants:       r.grants,
	}, nil
}
