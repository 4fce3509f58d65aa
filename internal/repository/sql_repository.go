package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rongwang/kasciraya-server/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLRepository implements the Repository interface on PostgreSQL or SQLite.
// Queries are written with ? placeholders and rebound for the driver.
type SQLRepository struct {
	db *sqlx.DB
}

// NewSQLRepository creates a new SQL repository
func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *SQLRepository) GetDB() *sqlx.DB {
	return r.db
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func (r *SQLRepository) q(query string) string {
	return r.db.Rebind(query)
}

func now() time.Time {
	return time.Now().UTC()
}

// get runs a single-row query and maps sql.ErrNoRows to nil, nil
func get[T any](ctx context.Context, r *SQLRepository, query string, args ...interface{}) (*T, error) {
	var out T
	err := r.db.GetContext(ctx, &out, r.q(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func list[T any](ctx context.Context, r *SQLRepository, query string, args ...interface{}) ([]T, error) {
	out := []T{}
	if err := r.db.SelectContext(ctx, &out, r.q(query), args...); err != nil {
		return nil, err
	}
	return out, nil
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// uniqueViolation reports whether err is a unique or primary key violation
// from postgres or sqlite
func uniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// writeError maps constraint violations onto repository errors
func writeError(err error) error {
	if uniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// snapshotTxOptions returns the transaction options under which every read of
// a snapshot sees the same commit point. SQLite runs on a single connection
// and supports no isolation levels besides its default.
func snapshotTxOptions(driver string) *sql.TxOptions {
	if driver == "postgres" {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

// inTx runs fn inside a transaction, rolling back when it fails
func (r *SQLRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return r.inTxOpts(ctx, nil, fn)
}

func (r *SQLRepository) inTxOpts(ctx context.Context, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// User repository methods
func (r *SQLRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	return list[models.User](ctx, r, `SELECT * FROM users ORDER BY username ASC`)
}

func (r *SQLRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return get[models.User](ctx, r, `SELECT * FROM users WHERE id = ?`, id)
}

func (r *SQLRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return get[models.User](ctx, r, `SELECT * FROM users WHERE username = ?`, username)
}

func (r *SQLRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, username, password, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if err := r.checkUsername(ctx, user); err != nil {
		return err
	}

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	ts := now()
	user.CreatedAt = ts
	user.UpdatedAt = ts

	_, err := r.db.ExecContext(ctx, r.q(query),
		user.ID, user.Name, user.Username, user.Password, user.Role, user.CreatedAt, user.UpdatedAt)

	// A concurrent insert can still win between the check and this statement
	return writeError(err)
}

func (r *SQLRepository) UpdateUser(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET name = ?, username = ?, password = ?, role = ?, updated_at = ? WHERE id = ?`

	if err := r.checkUsername(ctx, user); err != nil {
		return err
	}

	user.UpdatedAt = now()
	return writeError(affected(r.db.ExecContext(ctx, r.q(query),
		user.Name, user.Username, user.Password, user.Role, user.UpdatedAt, user.ID)))
}

// checkUsername returns ErrDuplicate when another user already has the username
func (r *SQLRepository) checkUsername(ctx context.Context, user *models.User) error {
	existing, err := r.GetUserByUsername(ctx, user.Username)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != user.ID {
		return ErrDuplicate
	}
	return nil
}

func (r *SQLRepository) DeleteUser(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		// Delete grants first (due to foreign key constraint)
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM user_wallet_permissions WHERE user_id = ?`), id); err != nil {
			return err
		}
		return affected(tx.ExecContext(ctx, r.q(`DELETE FROM users WHERE id = ?`), id))
	})
}

// Wallet repository methods
func (r *SQLRepository) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	return list[models.Wallet](ctx, r, `SELECT * FROM wallets ORDER BY created_at ASC, id ASC`)
}

func (r *SQLRepository) GetWallet(ctx context.Context, id string) (*models.Wallet, error) {
	return get[models.Wallet](ctx, r, `SELECT * FROM wallets WHERE id = ?`, id)
}

func (r *SQLRepository) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	query := `
		INSERT INTO wallets (id, name, icon, initial_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	if wallet.ID == "" {
		wallet.ID = uuid.New().String()
	}

	ts := now()
	wallet.CreatedAt = ts
	wallet.UpdatedAt = ts

	_, err := r.db.ExecContext(ctx, r.q(query),
		wallet.ID, wallet.Name, wallet.Icon, wallet.InitialBalance, wallet.CreatedAt, wallet.UpdatedAt)

	return err
}

func (r *SQLRepository) UpdateWallet(ctx context.Context, wallet *models.Wallet) error {
	query := `UPDATE wallets SET name = ?, icon = ?, initial_balance = ?, updated_at = ? WHERE id = ?`

	wallet.UpdatedAt = now()
	return affected(r.db.ExecContext(ctx, r.q(query),
		wallet.Name, wallet.Icon, wallet.InitialBalance, wallet.UpdatedAt, wallet.ID))
}

func (r *SQLRepository) DeleteWallet(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		// Delete wallet grants and transactions first (due to foreign key constraint)
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM user_wallet_permissions WHERE wallet_id = ?`), id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM transactions WHERE wallet_id = ?`), id); err != nil {
			return err
		}
		return affected(tx.ExecContext(ctx, r.q(`DELETE FROM wallets WHERE id = ?`), id))
	})
}

// Category repository methods
func (r *SQLRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	return list[models.Category](ctx, r, `SELECT * FROM categories ORDER BY type ASC, name ASC`)
}

func (r *SQLRepository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return get[models.Category](ctx, r, `SELECT * FROM categories WHERE id = ?`, id)
}

func (r *SQLRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (id, name, type, icon, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	if category.ID == "" {
		category.ID = uuid.New().String()
	}

	ts := now()
	category.CreatedAt = ts
	category.UpdatedAt = ts

	_, err := r.db.ExecContext(ctx, r.q(query),
		category.ID, category.Name, category.Type, category.Icon, category.CreatedAt, category.UpdatedAt)

	return err
}

func (r *SQLRepository) UpdateCategory(ctx context.Context, category *models.Category) error {
	query := `UPDATE categories SET name = ?, type = ?, icon = ?, updated_at = ? WHERE id = ?`

	category.UpdatedAt = now()
	return affected(r.db.ExecContext(ctx, r.q(query),
		category.Name, category.Type, category.Icon, category.UpdatedAt, category.ID))
}

func (r *SQLRepository) DeleteCategory(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, r.q(`DELETE FROM categories WHERE id = ?`), id))
}

func (r *SQLRepository) CountTransactionsByCategory(ctx context.Context, categoryID string) (map[models.TransactionType]int, error) {
	query := `SELECT type, COUNT(*) AS n FROM transactions WHERE category_id = ? GROUP BY type`

	var rows []struct {
		Type  models.TransactionType `db:"type"`
		Count int                    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.q(query), categoryID); err != nil {
		return nil, err
	}

	counts := map[models.TransactionType]int{}
	for _, row := range rows {
		counts[row.Type] = row.Count
	}
	return counts, nil
}

// Transaction repository methods
func (r *SQLRepository) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	return list[models.Transaction](ctx, r, `SELECT * FROM transactions ORDER BY occurred_at DESC, created_at DESC`)
}

func (r *SQLRepository) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return get[models.Transaction](ctx, r, `SELECT * FROM transactions WHERE id = ?`, id)
}

func (r *SQLRepository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, occurred_at, amount, type, description, category_id, wallet_id,
			user_id, receipt_image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	ts := now()
	t.CreatedAt = ts
	t.UpdatedAt = ts

	_, err := r.db.ExecContext(ctx, r.q(query),
		t.ID, t.Date.UTC(), t.Amount, t.Type, t.Description, t.CategoryID, t.WalletID,
		t.UserID, t.ReceiptImageURL, t.CreatedAt, t.UpdatedAt)

	return err
}

func (r *SQLRepository) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	query := `
		UPDATE transactions
		SET occurred_at = ?, amount = ?, description = ?, category_id = ?, wallet_id = ?,
			receipt_image_url = ?, updated_at = ?
		WHERE id = ?
	`

	t.UpdatedAt = now()
	return affected(r.db.ExecContext(ctx, r.q(query),
		t.Date.UTC(), t.Amount, t.Description, t.CategoryID, t.WalletID,
		t.ReceiptImageURL, t.UpdatedAt, t.ID))
}

func (r *SQLRepository) DeleteTransaction(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, r.q(`DELETE FROM transactions WHERE id = ?`), id))
}

// Permission repository methods
func (r *SQLRepository) ListPermissions(ctx context.Context) ([]models.PermissionGrant, error) {
	return list[models.PermissionGrant](ctx, r, `SELECT * FROM user_wallet_permissions`)
}

func (r *SQLRepository) ListUserPermissions(ctx context.Context, userID string) ([]models.PermissionGrant, error) {
	return list[models.PermissionGrant](ctx, r,
		`SELECT * FROM user_wallet_permissions WHERE user_id = ? ORDER BY wallet_id ASC`, userID)
}

func (r *SQLRepository) ReplaceUserPermissions(ctx context.Context, userID string, walletIDs []string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM user_wallet_permissions WHERE user_id = ?`), userID); err != nil {
			return err
		}

		ts := now()
		seen := make(map[string]bool, len(walletIDs))
		for _, walletID := range walletIDs {
			if seen[walletID] {
				continue
			}
			seen[walletID] = true

			_, err := tx.ExecContext(ctx,
				r.q(`INSERT INTO user_wallet_permissions (user_id, wallet_id, created_at) VALUES (?, ?, ?)`),
				userID, walletID, ts)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Snapshot reads every table inside one transaction that sees a single
// commit point
func (r *SQLRepository) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	err := r.inTxOpts(ctx, snapshotTxOptions(r.db.DriverName()), func(tx *sqlx.Tx) error {
		reads := []struct {
			dest  interface{}
			query string
		}{
			{&snap.Users, `SELECT * FROM users ORDER BY username ASC`},
			{&snap.Wallets, `SELECT * FROM wallets ORDER BY created_at ASC, id ASC`},
			{&snap.Categories, `SELECT * FROM categories ORDER BY type ASC, name ASC`},
			{&snap.Transactions, `SELECT * FROM transactions ORDER BY occurred_at DESC, created_at DESC`},
			{&snap.Grants, `SELECT * FROM user_wallet_permissions`},
		}
		for _, read := range reads {
			if err := tx.SelectContext(ctx, read.dest, r.q(read.query)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
