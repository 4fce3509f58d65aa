package repository

import (
	"context"
	"errors"

	"github.com/rongwang/kasciraya-server/internal/models"
)

var (
	// ErrNotFound is returned by update and delete when no row has the id
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken
	ErrDuplicate = errors.New("duplicate record")
)

// Repository interface defines the methods that any repository implementation must satisfy.
// Get methods return nil, nil when nothing matches.
type Repository interface {
	// User operations
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	// DeleteUser also drops the user's permission grants
	DeleteUser(ctx context.Context, id string) error

	// Wallet operations
	ListWallets(ctx context.Context) ([]models.Wallet, error)
	GetWallet(ctx context.Context, id string) (*models.Wallet, error)
	CreateWallet(ctx context.Context, wallet *models.Wallet) error
	UpdateWallet(ctx context.Context, wallet *models.Wallet) error
	// DeleteWallet also drops the wallet's transactions and permission grants
	DeleteWallet(ctx context.Context, id string) error

	// Category operations
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id string) error
	CountTransactionsByCategory(ctx context.Context, categoryID string) (map[models.TransactionType]int, error)

	// Transaction operations. ListTransactions returns newest first.
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error

	// Permission operations
	ListPermissions(ctx context.Context) ([]models.PermissionGrant, error)
	ListUserPermissions(ctx context.Context, userID string) ([]models.PermissionGrant, error)
	// ReplaceUserPermissions swaps every grant of the user for one grant per
	// wallet id. Readers observe either the old or the new set, never a mix.
	ReplaceUserPermissions(ctx context.Context, userID string, walletIDs []string) error

	// Snapshot reads every collection at one point in time
	Snapshot(ctx context.Context) (*models.Snapshot, error)

	Close() error
}
