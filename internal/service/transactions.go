package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/rongwang/kasciraya-server/internal/repository"
)

// MaxDescriptionLength bounds a transaction description, in characters
const MaxDescriptionLength = 200

// validateTransaction checks a request against the ledger's references
func (s *DefaultService) validateTransaction(ctx context.Context, req models.TransactionRequest) error {
	if req.Amount <= 0 {
		return validationError("amount must be greater than zero")
	}
	if !req.Type.Valid() {
		return validationError("type must be income or expense")
	}
	if req.Date.IsZero() {
		return validationError("date is required")
	}
	if utf8.RuneCountInString(req.Description) > MaxDescriptionLength {
		return validationError("description must be at most %d characters", MaxDescriptionLength)
	}

	wallet, err := s.repo.GetWallet(ctx, req.WalletID)
	if err != nil {
		return fmt.Errorf("error getting wallet: %w", err)
	}
	if wallet == nil {
		return validationError("wallet %q does not exist", req.WalletID)
	}

	category, err := s.repo.GetCategory(ctx, req.CategoryID)
	if err != nil {
		return fmt.Errorf("error getting category: %w", err)
	}
	if category == nil {
		return validationError("category %q does not exist", req.CategoryID)
	}
	if category.Type != req.Type {
		return validationError("category %q is for %s, not %s", category.Name, category.Type, req.Type)
	}
	return nil
}

// Transaction methods
func (s *DefaultService) AddTransaction(
	ctx context.Context,
	actor *models.User,
	req models.TransactionRequest,
) (*models.TransactionResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validateTransaction(ctx, req); err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		Date:            req.Date.UTC(),
		Amount:          req.Amount,
		Type:            req.Type,
		Description:     strings.TrimSpace(req.Description),
		CategoryID:      req.CategoryID,
		WalletID:        req.WalletID,
		UserID:          actor.ID,
		ReceiptImageURL: req.ReceiptImageURL,
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("error creating transaction: %w", err)
	}
	s.logMutation(ctx, actor, "create", "transaction", tx.ID)

	return &models.TransactionResponse{
		Status:      "success",
		Transaction: *tx,
	}, nil
}

func (s *DefaultService) UpdateTransaction(
	ctx context.Context,
	actor *models.User,
	id string,
	req models.TransactionRequest,
) (*models.TransactionResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting transaction: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: transaction %q", ErrNotFound, id)
	}
	if req.Type != existing.Type {
		return nil, validationError("transaction type cannot be changed")
	}
	if err := s.validateTransaction(ctx, req); err != nil {
		return nil, err
	}

	updated := *existing
	updated.Date = req.Date.UTC()
	updated.Amount = req.Amount
	updated.Description = strings.TrimSpace(req.Description)
	updated.CategoryID = req.CategoryID
	updated.WalletID = req.WalletID
	updated.ReceiptImageURL = req.ReceiptImageURL

	if err := s.repo.UpdateTransaction(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: transaction %q", ErrNotFound, id)
		}
		return nil, fmt.Errorf("error updating transaction: %w", err)
	}
	s.logMutation(ctx, actor, "update", "transaction", id)

	return &models.TransactionResponse{
		Status:      "success",
		Transaction: updated,
	}, nil
}

func (s *DefaultService) DeleteTransaction(ctx context.Context, actor *models.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: transaction %q", ErrNotFound, id)
		}
		return fmt.Errorf("error deleting transaction: %w", err)
	}
	s.logMutation(ctx, actor, "delete", "transaction", id)
	return nil
}
