// Package account links mobile money accounts to users and keeps their
// verification state in step with the operator.
package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/onepay-cm/onepay/internal/bus"
	"github.com/onepay-cm/onepay/internal/gateway"
	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/operator"
	"github.com/onepay-cm/onepay/internal/repository"
)

// Publisher is the bus capability the service needs
type Publisher interface {
	Publish(ctx context.Context, msg any) error
}

type Service struct {
	storage   repository.Storage
	gateways  *gateway.Registry
	publisher Publisher
	logger    logger.Logger
}

func NewService(storage repository.Storage, gateways *gateway.Registry, publisher Publisher, logger logger.Logger) *Service {
	return &Service{
		storage:   storage,
		gateways:  gateways,
		publisher: publisher,
		logger:    logger,
	}
}

// LinkAccount binds a mobile money account to the user. The provider is
// derived from the number prefix, never taken from the caller, and the
// account is verified against the operator right away. A failed
// verification leaves the account linked but unverified
func (s *Service) LinkAccount(ctx context.Context, userID uuid.UUID, number string) (models.MobileMoneyAccount, error) {
	if !operator.ValidFormat(number) {
		return models.MobileMoneyAccount{}, fmt.Errorf("invalid mobile number %q", number)
	}

	provider, ok := operator.ProviderFor(number)
	if !ok {
		return models.MobileMoneyAccount{}, fmt.Errorf("no mobile money provider serves %q", number)
	}

	account, err := s.storage.Accounts().CreateAccount(ctx, repository.CreateAccountParams{
		UserID:   userID,
		Number:   number,
		Provider: provider,
	})
	if err != nil {
		return models.MobileMoneyAccount{}, fmt.Errorf("link account: %w", err)
	}

	if err := s.Verify(ctx, &account); err != nil {
		s.logger.Warn("Account linked but not verified", "account_id", account.ID, "error", err)
	}

	return account, nil
}

// Verify asks the operator whether the account is active and persists
// the answer
func (s *Service) Verify(ctx context.Context, account *models.MobileMoneyAccount) error {
	gw, err := s.gateways.ForProvider(account.Provider)
	if err != nil {
		return err
	}

	active, err := gw.VerifyAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("verify account %s: %w", account.ID, err)
	}

	account.IsVerified = active
	if err := s.storage.Accounts().SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("persist verification: %w", err)
	}

	s.logger.Info("Account verification updated", "account_id", account.ID, "verified", active)
	return nil
}

// RequestBalanceSync enqueues an asynchronous balance refresh
func (s *Service) RequestBalanceSync(ctx context.Context, account *models.MobileMoneyAccount) error {
	err := s.publisher.Publish(ctx, bus.SyncBalanceMessage{
		AccountID: account.ID,
		Provider:  account.Provider,
	})
	if err != nil {
		return fmt.Errorf("enqueue balance sync: %w", err)
	}

	return nil
}
