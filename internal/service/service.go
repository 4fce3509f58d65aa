package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rongwang/kasciraya-server/internal/ledger"
	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/rongwang/kasciraya-server/internal/repository"
	"github.com/rongwang/kasciraya-server/internal/utils"
)

// Service defines all the business logic operations. Every operation after
// Login takes the acting user, as resolved by Authenticate.
type Service interface {
	// Authentication
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Logout(ctx context.Context, actor *models.User) error
	Authenticate(ctx context.Context, token string) (*models.User, error)
	Me(ctx context.Context, actor *models.User) (*models.MeResponse, error)
	UpdateProfile(ctx context.Context, actor *models.User, req models.UpdateProfileRequest) (*models.UserResponse, error)

	// Views
	Dashboard(ctx context.Context, actor *models.User, period ledger.DateRange) (*models.DashboardResponse, error)
	ListWallets(ctx context.Context, actor *models.User) (*models.WalletsResponse, error)
	WalletBalance(ctx context.Context, actor *models.User, walletID string) (*models.BalanceResponse, error)
	ListTransactions(ctx context.Context, actor *models.User, filter ledger.TransactionFilter) (*models.TransactionsResponse, error)
	PeriodTotals(ctx context.Context, actor *models.User, period ledger.DateRange) (*models.PeriodTotalsResponse, error)
	CategoryReport(ctx context.Context, actor *models.User, period ledger.DateRange) (*models.CategoryReportResponse, error)
	MonthlyReport(ctx context.Context, actor *models.User, period ledger.DateRange) (*models.MonthlyReportResponse, error)
	ExportTransactions(ctx context.Context, actor *models.User, filter ledger.TransactionFilter) ([]byte, error)
	ListCategories(ctx context.Context, actor *models.User) (*models.CategoriesResponse, error)

	// Transactions
	AddTransaction(ctx context.Context, actor *models.User, req models.TransactionRequest) (*models.TransactionResponse, error)
	UpdateTransaction(ctx context.Context, actor *models.User, id string, req models.TransactionRequest) (*models.TransactionResponse, error)
	DeleteTransaction(ctx context.Context, actor *models.User, id string) error

	// Management
	ListUsers(ctx context.Context, actor *models.User) (*models.UsersResponse, error)
	CreateUser(ctx context.Context, actor *models.User, req models.CreateUserRequest) (*models.UserResponse, error)
	UpdateUser(ctx context.Context, actor *models.User, id string, req models.UpdateUserRequest) (*models.UserResponse, error)
	DeleteUser(ctx context.Context, actor *models.User, id string) error

	CreateWallet(ctx context.Context, actor *models.User, req models.WalletRequest) (*models.WalletResponse, error)
	UpdateWallet(ctx context.Context, actor *models.User, id string, req models.WalletRequest) (*models.WalletResponse, error)
	DeleteWallet(ctx context.Context, actor *models.User, id string) error

	CreateCategory(ctx context.Context, actor *models.User, req models.CategoryRequest) (*models.CategoryResponse, error)
	UpdateCategory(ctx context.Context, actor *models.User, id string, req models.CategoryRequest) (*models.CategoryResponse, error)
	DeleteCategory(ctx context.Context, actor *models.User, id string) error

	GetUserPermissions(ctx context.Context, actor *models.User, userID string) (*models.PermissionsResponse, error)
	UpdateUserPermissions(ctx context.Context, actor *models.User, userID string, walletIDs []string) (*models.PermissionsResponse, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	jwtSecret     []byte
	tokenDuration time.Duration
	sessions      *SessionRegistry
	logger        *utils.Logger
	now           func() time.Time
}

// Option configures a DefaultService
type Option func(*DefaultService)

// WithLogger sets the logger mutations are reported to
func WithLogger(logger *utils.Logger) Option {
	return func(s *DefaultService) {
		s.logger = logger.WithComponent("service")
	}
}

// WithTokenDuration sets how long issued tokens stay valid
func WithTokenDuration(d time.Duration) Option {
	return func(s *DefaultService) {
		s.tokenDuration = d
	}
}

// WithClock replaces the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(s *DefaultService) {
		s.now = now
	}
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, jwtSecret string, opts ...Option) Service {
	s := &DefaultService{
		repo:          repo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour, // 24 hours token validity
		sessions:      NewSessionRegistry(),
		logger:        utils.NopLogger(),
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requireAdmin rejects anonymous callers and non-administrators
func requireAdmin(actor *models.User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: administrator role required", ErrForbidden)
	}
	return nil
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// scope loads a consistent snapshot and the actor's view of it
func (s *DefaultService) scope(ctx context.Context, actor *models.User) (*models.Snapshot, ledger.Scope, error) {
	if actor == nil {
		return nil, ledger.Scope{}, ErrUnauthenticated
	}
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, ledger.Scope{}, fmt.Errorf("error reading ledger: %w", err)
	}
	return snap, ledger.NewScope(actor, snap.Wallets, snap.Grants), nil
}

func (s *DefaultService) logMutation(ctx context.Context, actor *models.User, operation, entity, id string) {
	s.logger.InfoContext(ctx, "ledger mutated",
		utils.FieldOperation, operation,
		utils.FieldEntity, entity,
		utils.FieldEntityID, id,
		utils.FieldActor, actor.ID,
	)
}
