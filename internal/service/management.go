package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/rongwang/kasciraya-server/internal/repository"
)

// MinPasswordLength applies to every password set through the service
const MinPasswordLength = 8

// storeError translates the store's sentinel errors
func storeError(err error, entity, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %q", ErrNotFound, entity, id)
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("%w: %s already exists", ErrConflict, entity)
	}
	return fmt.Errorf("error writing %s: %w", entity, err)
}

func validateCredentials(name, username, password string, passwordRequired bool) error {
	if strings.TrimSpace(name) == "" {
		return validationError("name is required")
	}
	if strings.TrimSpace(username) == "" {
		return validationError("username is required")
	}
	if strings.ContainsAny(username, " \t\n") {
		return validationError("username cannot contain whitespace")
	}
	if (passwordRequired || password != "") && len(password) < MinPasswordLength {
		return validationError("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// checkUsername returns ErrConflict when the username belongs to another user
func (s *DefaultService) checkUsername(ctx context.Context, username, selfID string) error {
	existing, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("error checking user existence: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return fmt.Errorf("%w: username %q is taken", ErrConflict, username)
	}
	return nil
}

// User methods
func (s *DefaultService) ListUsers(ctx context.Context, actor *models.User) (*models.UsersResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	return &models.UsersResponse{
		Status: "success",
		Users:  append([]models.User{}, users...),
	}, nil
}

func (s *DefaultService) CreateUser(
	ctx context.Context,
	actor *models.User,
	req models.CreateUserRequest,
) (*models.UserResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateCredentials(req.Name, req.Username, req.Password, true); err != nil {
		return nil, err
	}
	if !req.Role.Valid() {
		return nil, validationError("role must be admin or viewer")
	}
	if err := s.checkUsername(ctx, req.Username, ""); err != nil {
		return nil, err
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Username: req.Username,
		Password: hashed,
		Role:     req.Role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, storeError(err, "user", user.Username)
	}
	s.logMutation(ctx, actor, "create", "user", user.ID)

	return &models.UserResponse{Status: "success", User: *user}, nil
}

func (s *DefaultService) UpdateUser(
	ctx context.Context,
	actor *models.User,
	id string,
	req models.UpdateUserRequest,
) (*models.UserResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateCredentials(req.Name, req.Username, req.Password, false); err != nil {
		return nil, err
	}
	if !req.Role.Valid() {
		return nil, validationError("role must be admin or viewer")
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, id)
	}
	if user.ID == actor.ID && req.Role != user.Role {
		return nil, fmt.Errorf("%w: administrators cannot change their own role", ErrConflict)
	}
	if err := s.checkUsername(ctx, req.Username, id); err != nil {
		return nil, err
	}

	updated := *user
	updated.Name = strings.TrimSpace(req.Name)
	updated.Username = req.Username
	updated.Role = req.Role
	if req.Password != "" {
		if updated.Password, err = hashPassword(req.Password); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateUser(ctx, &updated); err != nil {
		return nil, storeError(err, "user", id)
	}
	s.logMutation(ctx, actor, "update", "user", id)

	return &models.UserResponse{Status: "success", User: updated}, nil
}

func (s *DefaultService) DeleteUser(ctx context.Context, actor *models.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return fmt.Errorf("%w: administrators cannot delete their own account", ErrConflict)
	}

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return storeError(err, "user", id)
	}
	s.sessions.Bump(id)
	s.logMutation(ctx, actor, "delete", "user", id)
	return nil
}

// UpdateProfile lets any user change their own name, username and password
func (s *DefaultService) UpdateProfile(
	ctx context.Context,
	actor *models.User,
	req models.UpdateProfileRequest,
) (*models.UserResponse, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if err := validateCredentials(req.Name, req.Username, req.Password, false); err != nil {
		return nil, err
	}
	if err := s.checkUsername(ctx, req.Username, actor.ID); err != nil {
		return nil, err
	}

	current, err := s.repo.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if current == nil {
		return nil, ErrUnauthenticated
	}

	updated := *current
	updated.Name = strings.TrimSpace(req.Name)
	updated.Username = req.Username
	if req.Password != "" {
		if updated.Password, err = hashPassword(req.Password); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateUser(ctx, &updated); err != nil {
		return nil, storeError(err, "user", actor.ID)
	}
	s.logMutation(ctx, actor, "update", "profile", actor.ID)

	return &models.UserResponse{Status: "success", User: updated}, nil
}

// Wallet methods
func validateWallet(req models.WalletRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return validationError("wallet name is required")
	}
	return nil
}

func (s *DefaultService) CreateWallet(
	ctx context.Context,
	actor *models.User,
	req models.WalletRequest,
) (*models.WalletResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateWallet(req); err != nil {
		return nil, err
	}

	wallet := &models.Wallet{
		Name:           strings.TrimSpace(req.Name),
		Icon:           req.Icon,
		InitialBalance: req.InitialBalance,
	}
	if err := s.repo.CreateWallet(ctx, wallet); err != nil {
		return nil, fmt.Errorf("error creating wallet: %w", err)
	}
	s.logMutation(ctx, actor, "create", "wallet", wallet.ID)

	return &models.WalletResponse{Status: "success", Wallet: *wallet}, nil
}

func (s *DefaultService) UpdateWallet(
	ctx context.Context,
	actor *models.User,
	id string,
	req models.WalletRequest,
) (*models.WalletResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateWallet(req); err != nil {
		return nil, err
	}

	wallet := &models.Wallet{
		ID:             id,
		Name:           strings.TrimSpace(req.Name),
		Icon:           req.Icon,
		InitialBalance: req.InitialBalance,
	}
	if err := s.repo.UpdateWallet(ctx, wallet); err != nil {
		return nil, storeError(err, "wallet", id)
	}
	s.logMutation(ctx, actor, "update", "wallet", id)

	updated, err := s.repo.GetWallet(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting wallet: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: wallet %q", ErrNotFound, id)
	}
	return &models.WalletResponse{Status: "success", Wallet: *updated}, nil
}

// DeleteWallet removes the wallet together with its transactions and grants
func (s *DefaultService) DeleteWallet(ctx context.Context, actor *models.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.DeleteWallet(ctx, id); err != nil {
		return storeError(err, "wallet", id)
	}
	s.logMutation(ctx, actor, "delete", "wallet", id)
	return nil
}

// Category methods
func validateCategory(req models.CategoryRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return validationError("category name is required")
	}
	if !req.Type.Valid() {
		return validationError("type must be income or expense")
	}
	return nil
}

func (s *DefaultService) ListCategories(ctx context.Context, actor *models.User) (*models.CategoriesResponse, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	return &models.CategoriesResponse{
		Status:     "success",
		Categories: append([]models.Category{}, categories...),
	}, nil
}

func (s *DefaultService) CreateCategory(
	ctx context.Context,
	actor *models.User,
	req models.CategoryRequest,
) (*models.CategoryResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateCategory(req); err != nil {
		return nil, err
	}

	category := &models.Category{
		Name: strings.TrimSpace(req.Name),
		Type: req.Type,
		Icon: req.Icon,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("error creating category: %w", err)
	}
	s.logMutation(ctx, actor, "create", "category", category.ID)

	return &models.CategoryResponse{Status: "success", Category: *category}, nil
}

// UpdateCategory refuses a type change that would contradict existing transactions
func (s *DefaultService) UpdateCategory(
	ctx context.Context,
	actor *models.User,
	id string,
	req models.CategoryRequest,
) (*models.CategoryResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateCategory(req); err != nil {
		return nil, err
	}

	current, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting category: %w", err)
	}
	if current == nil {
		return nil, fmt.Errorf("%w: category %q", ErrNotFound, id)
	}

	if current.Type != req.Type {
		counts, err := s.repo.CountTransactionsByCategory(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("error counting transactions: %w", err)
		}
		if n := counts[current.Type]; n > 0 {
			return nil, fmt.Errorf("%w: %d %s transactions use category %q", ErrConflict, n, current.Type, current.Name)
		}
	}

	updated := *current
	updated.Name = strings.TrimSpace(req.Name)
	updated.Type = req.Type
	updated.Icon = req.Icon
	if err := s.repo.UpdateCategory(ctx, &updated); err != nil {
		return nil, storeError(err, "category", id)
	}
	s.logMutation(ctx, actor, "update", "category", id)

	return &models.CategoryResponse{Status: "success", Category: updated}, nil
}

// DeleteCategory only removes categories no transaction refers to
func (s *DefaultService) DeleteCategory(ctx context.Context, actor *models.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	counts, err := s.repo.CountTransactionsByCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("error counting transactions: %w", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total > 0 {
		return fmt.Errorf("%w: category is used by %d transactions", ErrConflict, total)
	}

	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return storeError(err, "category", id)
	}
	s.logMutation(ctx, actor, "delete", "category", id)
	return nil
}

// Permission methods
func (s *DefaultService) GetUserPermissions(
	ctx context.Context,
	actor *models.User,
	userID string,
) (*models.PermissionsResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, userID)
	}

	grants, err := s.repo.ListUserPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing permissions: %w", err)
	}
	ids := make([]string, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.WalletID)
	}

	return &models.PermissionsResponse{
		Status:    "success",
		UserID:    userID,
		WalletIDs: ids,
	}, nil
}

// UpdateUserPermissions replaces every grant of the user with one per wallet id
func (s *DefaultService) UpdateUserPermissions(
	ctx context.Context,
	actor *models.User,
	userID string,
	walletIDs []string,
) (*models.PermissionsResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, userID)
	}

	seen := make(map[string]bool, len(walletIDs))
	unique := make([]string, 0, len(walletIDs))
	for _, id := range walletIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		wallet, err := s.repo.GetWallet(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("error getting wallet: %w", err)
		}
		if wallet == nil {
			return nil, validationError("wallet %q does not exist", id)
		}
		unique = append(unique, id)
	}

	if err := s.repo.ReplaceUserPermissions(ctx, userID, unique); err != nil {
		return nil, fmt.Errorf("error replacing permissions: %w", err)
	}
	s.logMutation(ctx, actor, "replace", "permissions", userID)

	return s.GetUserPermissions(ctx, actor, userID)
}
