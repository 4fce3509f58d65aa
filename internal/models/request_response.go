package models

import "time"

// Request models
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     Role   `json:"role" binding:"required,oneof=admin viewer"`
}

// UpdateUserRequest leaves the password unchanged when it is empty
type UpdateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
	Role     Role   `json:"role" binding:"required,oneof=admin viewer"`
}

type UpdateProfileRequest struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
}

type WalletRequest struct {
	Name           string `json:"name" binding:"required"`
	Icon           string `json:"icon"`
	InitialBalance int64  `json:"initialBalance"`
}

type CategoryRequest struct {
	Name string          `json:"name" binding:"required"`
	Type TransactionType `json:"type" binding:"required,oneof=income expense"`
	Icon string          `json:"icon"`
}

type TransactionRequest struct {
	Date            time.Time       `json:"date" binding:"required"`
	Amount          int64           `json:"amount" binding:"required"`
	Type            TransactionType `json:"type" binding:"required,oneof=income expense"`
	Description     string          `json:"description"`
	CategoryID      string          `json:"categoryId" binding:"required"`
	WalletID        string          `json:"walletId" binding:"required"`
	ReceiptImageURL string          `json:"receiptImageUrl"`
}

type UpdatePermissionsRequest struct {
	WalletIDs []string `json:"walletIds"`
}

// Response models
type AuthResponse struct {
	Status       string       `json:"status"`
	UserID       string       `json:"userId,omitempty"`
	Username     string       `json:"username,omitempty"`
	Name         string       `json:"name,omitempty"`
	Role         Role         `json:"role,omitempty"`
	Capabilities []Capability `json:"capabilities,omitempty"`
	Token        string       `json:"token,omitempty"`
	ExpiresIn    int          `json:"expiresIn,omitempty"`
}

type MeResponse struct {
	Status       string       `json:"status"`
	User         User         `json:"user"`
	Capabilities []Capability `json:"capabilities"`
}

type WalletBalance struct {
	Wallet  Wallet `json:"wallet"`
	Balance int64  `json:"balance"`
}

type WalletsResponse struct {
	Status       string          `json:"status"`
	Wallets      []WalletBalance `json:"wallets"`
	TotalBalance int64           `json:"totalBalance"`
}

type BalanceResponse struct {
	Status   string `json:"status"`
	WalletID string `json:"walletId"`
	Balance  int64  `json:"balance"`
}

type PeriodTotals struct {
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
	Income  int64      `json:"income"`
	Expense int64      `json:"expense"`
	Net     int64      `json:"net"`
}

type CategoryTotal struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Income     int64  `json:"income"`
	Expense    int64  `json:"expense"`
}

type MonthTotal struct {
	Year    int       `json:"year"`
	Month   int       `json:"month"`
	Start   time.Time `json:"start"`
	Label   string    `json:"label"`
	Income  int64     `json:"income"`
	Expense int64     `json:"expense"`
}

type DashboardResponse struct {
	Status        string          `json:"status"`
	TotalBalance  int64           `json:"totalBalance"`
	Wallets       []WalletBalance `json:"wallets"`
	Period        PeriodTotals    `json:"period"`
	Monthly       []MonthTotal    `json:"monthly"`
	Categories    []CategoryTotal `json:"categories"`
	ExpenseShares []CategoryTotal `json:"expenseShares"`
	Recent        []Transaction   `json:"recent"`
}

type TransactionsResponse struct {
	Status       string        `json:"status"`
	Transactions []Transaction `json:"transactions"`
}

type TransactionResponse struct {
	Status      string      `json:"status"`
	Transaction Transaction `json:"transaction"`
}

type UsersResponse struct {
	Status string `json:"status"`
	Users  []User `json:"users"`
}

type UserResponse struct {
	Status string `json:"status"`
	User   User   `json:"user"`
}

type WalletResponse struct {
	Status string `json:"status"`
	Wallet Wallet `json:"wallet"`
}

type CategoriesResponse struct {
	Status     string     `json:"status"`
	Categories []Category `json:"categories"`
}

type CategoryResponse struct {
	Status   string   `json:"status"`
	Category Category `json:"category"`
}

type PermissionsResponse struct {
	Status    string   `json:"status"`
	UserID    string   `json:"userId"`
	WalletIDs []string `json:"walletIds"`
}

type PeriodTotalsResponse struct {
	Status string       `json:"status"`
	Totals PeriodTotals `json:"totals"`
}

type CategoryReportResponse struct {
	Status     string          `json:"status"`
	Categories []CategoryTotal `json:"categories"`
}

type MonthlyReportResponse struct {
	Status string       `json:"status"`
	Months []MonthTotal `json:"months"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
