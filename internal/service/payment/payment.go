// Package payment is the entry point that turns a caller's request into
// a PENDING transaction owned by the message pipeline. Money transfers
// are initiated at the gateway first so the settlement can be verified
// asynchronously; airtime purchases settle synchronously in the PROCESS
// handler.
package payment

import (
	"context"
	"fmt"

	"github.com/onepay-cm/onepay/internal/bus"
	"github.com/onepay-cm/onepay/internal/gateway"
	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
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

// Initiate creates the PENDING transaction and hands it to the pipeline.
// For money transfers the gateway payment is initiated here and the
// returned reference stored, so the verify producer can poll the
// settlement even if the PROCESS message is lost
func (s *Service) Initiate(ctx context.Context, params repository.CreateTransactionParams) (models.Transaction, error) {
	t, err := s.storage.Transactions().CreateTransaction(ctx, params)
	if err != nil {
		return t, fmt.Errorf("create transaction: %w", err)
	}

	if t.Type == models.TransactionTypeMoneyTransfer && t.SourceAccount != nil {
		if err := s.attachReference(ctx, &t); err != nil {
			s.logger.Warn("Payment initiation at gateway failed, settlement will rely on PROCESS",
				"transaction_id", t.ID, "error", err)
		}
	}

	err = s.publisher.Publish(ctx, bus.ProcessTransactionMessage{
		TransactionID: t.ID,
		Action:        bus.ActionProcess,
	})
	if err != nil {
		return t, fmt.Errorf("enqueue transaction %s: %w", t.ID, err)
	}

	s.logger.Info("Transaction initiated",
		"transaction_id", t.ID, "type", t.Type, "amount", t.Amount)

	return t, nil
}

// Cancel asks the pipeline to cancel a transaction that has not settled
func (s *Service) Cancel(ctx context.Context, t *models.Transaction) error {
	err := s.publisher.Publish(ctx, bus.ProcessTransactionMessage{
		TransactionID: t.ID,
		Action:        bus.ActionCancel,
	})
	if err != nil {
		return fmt.Errorf("enqueue cancellation of %s: %w", t.ID, err)
	}

	return nil
}

func (s *Service) attachReference(ctx context.Context, t *models.Transaction) error {
	gw, err := s.gateways.ForProvider(t.SourceAccount.Provider)
	if err != nil {
		return err
	}

	reference, err := gw.InitiatePayment(ctx, t)
	if err != nil {
		return err
	}

	t.Reference = &reference
	if err := s.storage.Transactions().SaveTransaction(ctx, t); err != nil {
		return fmt.Errorf("persist gateway reference: %w", err)
	}

	return nil
}
