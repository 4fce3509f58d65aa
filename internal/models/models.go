package models

import (
	"time"
)

// Role is the access level of a user
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// TransactionType is shared by categories and transactions: "income" or "expense"
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Valid reports whether t is income or expense
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// User represents a user in the system
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Username  string    `db:"username" json:"username"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the administrator role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Wallet is a named money container. InitialBalance is the anchor all
// derived balances start from.
type Wallet struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Icon           string    `db:"icon" json:"icon"`
	InitialBalance int64     `db:"initial_balance" json:"initialBalance"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Category groups transactions of a single type
type Category struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Type      TransactionType `db:"type" json:"type"`
	Icon      string          `db:"icon" json:"icon"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// Transaction is a single ledger row. Amount is always a positive magnitude,
// the sign comes from Type.
type Transaction struct {
	ID              string          `db:"id" json:"id"`
	Date            time.Time       `db:"occurred_at" json:"date"`
	Amount          int64           `db:"amount" json:"amount"`
	Type            TransactionType `db:"type" json:"type"`
	Description     string          `db:"description" json:"description"`
	CategoryID      string          `db:"category_id" json:"categoryId"`
	WalletID        string          `db:"wallet_id" json:"walletId"`
	UserID          string          `db:"user_id" json:"userId"` // creator
	ReceiptImageURL string          `db:"receipt_image_url" json:"receiptImageUrl,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// Signed returns the amount with the sign implied by the transaction type
func (t Transaction) Signed() int64 {
	if t.Type == Income {
		return t.Amount
	}
	return -t.Amount
}

// PermissionGrant lets a viewer see one wallet and its transactions
type PermissionGrant struct {
	UserID    string    `db:"user_id" json:"userId"`
	WalletID  string    `db:"wallet_id" json:"walletId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Snapshot is a consistent read of every collection in the store
type Snapshot struct {
	Users        []User
	Wallets      []Wallet
	Categories   []Category
	Transactions []Transaction
	Grants       []PermissionGrant
}
