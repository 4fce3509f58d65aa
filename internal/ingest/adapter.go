package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rongwang/kasciraya-server/internal/config"
	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/rongwang/kasciraya-server/internal/service"
	"github.com/rongwang/kasciraya-server/internal/utils"
)

// UserLookup finds the account a feed acts as
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Adapter maps feed payloads onto AddTransaction
type Adapter struct {
	svc    service.Service
	users  UserLookup
	cfg    config.IngestConfig
	logger *utils.Logger
}

// NewAdapter creates an adapter booking into the configured wallet and category
func NewAdapter(svc service.Service, users UserLookup, cfg config.IngestConfig, logger *utils.Logger) *Adapter {
	return &Adapter{
		svc:    svc,
		users:  users,
		cfg:    cfg,
		logger: logger.WithComponent("ingest"),
	}
}

// Request builds the transaction request for a payload
func (a *Adapter) Request(p Payload) (models.TransactionRequest, error) {
	amount, err := p.Amount(a.cfg.MinorDigits)
	if err != nil {
		return models.TransactionRequest{}, err
	}
	date, err := p.When()
	if err != nil {
		return models.TransactionRequest{}, err
	}

	description := strings.TrimSpace(p.Merchant)
	if runes := []rune(description); len(runes) > service.MaxDescriptionLength {
		description = string(runes[:service.MaxDescriptionLength])
	}

	return models.TransactionRequest{
		Date:        date,
		Amount:      amount,
		Type:        models.Expense,
		Description: description,
		CategoryID:  a.cfg.CategoryID,
		WalletID:    a.cfg.WalletID,
	}, nil
}

// Book records the payload as an expense on behalf of the ingest account
func (a *Adapter) Book(ctx context.Context, p Payload) (*models.TransactionResponse, error) {
	req, err := a.Request(p)
	if err != nil {
		return nil, err
	}

	actor, err := a.users.GetUserByUsername(ctx, a.cfg.Username)
	if err != nil {
		return nil, fmt.Errorf("error getting ingest user: %w", err)
	}
	if actor == nil {
		return nil, fmt.Errorf("%w: ingest user %q does not exist", service.ErrForbidden, a.cfg.Username)
	}

	resp, err := a.svc.AddTransaction(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "feed transaction booked",
		utils.FieldEntityID, resp.Transaction.ID,
		"amount", resp.Transaction.Amount,
		"merchant", resp.Transaction.Description,
	)
	return resp, nil
}

// Permanent reports whether retrying err can never succeed
func Permanent(err error) bool {
	return errors.Is(err, ErrMalformed) ||
		errors.Is(err, service.ErrValidation) ||
		errors.Is(err, service.ErrForbidden) ||
		errors.Is(err, service.ErrUnauthenticated) ||
		errors.Is(err, service.ErrNotFound)
}
