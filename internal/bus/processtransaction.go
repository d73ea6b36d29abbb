package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/onepay-cm/onepay/internal/apperrors"
	"github.com/onepay-cm/onepay/internal/gateway"
	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/repository"
	"github.com/onepay-cm/onepay/internal/service/transaction"
)

// ProcessTransactionHandler drives a transaction through PROCESS,
// VERIFY and CANCEL actions against the operator gateway
type ProcessTransactionHandler struct {
	storage  repository.Storage
	manager  *transaction.Manager
	gateways *gateway.Registry
	logger   logger.Logger
}

func NewProcessTransactionHandler(storage repository.Storage, manager *transaction.Manager, gateways *gateway.Registry, logger logger.Logger) *ProcessTransactionHandler {
	return &ProcessTransactionHandler{
		storage:  storage,
		manager:  manager,
		gateways: gateways,
		logger:   logger,
	}
}

func (h *ProcessTransactionHandler) Handle(ctx context.Context, env Envelope) error {
	msg, ok := env.Message.(ProcessTransactionMessage)
	if !ok {
		return apperrors.Permanentf("unexpected message %T for %s", env.Message, env.Class)
	}

	h.logger.Info("Processing transaction message",
		"transaction_id", msg.TransactionID, "action", msg.Action)

	storage := repository.FromContext(ctx, h.storage)

	t, err := storage.Transactions().GetTransaction(ctx, msg.TransactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTransactionNotFound) {
			return apperrors.Permanent(err)
		}
		return fmt.Errorf("load transaction %s: %w", msg.TransactionID, err)
	}

	switch msg.Action {
	case ActionProcess:
		return h.process(ctx, &t)
	case ActionVerify:
		return h.verify(ctx, &t)
	case ActionCancel:
		return h.cancel(ctx, &t)
	default:
		return apperrors.Permanent(fmt.Errorf("%w: %s", apperrors.ErrUnsupportedAction, msg.Action))
	}
}

func (h *ProcessTransactionHandler) process(ctx context.Context, t *models.Transaction) error {
	gw, err := h.gatewayFor(t)
	if err != nil {
		return err
	}

	h.manager.ApplyFees(t)

	ok, err := h.manager.Check(ctx, t)
	if err != nil {
		return err
	}
	if !ok {
		// Validation failures are final: record the terminal outcome and
		// consume the message
		return h.manager.HandleFailure(ctx, t, "transaction failed validation")
	}

	var success bool
	switch t.Type {
	case models.TransactionTypeMoneyTransfer:
		success, err = gw.TransferMoney(ctx, t)
	case models.TransactionTypeCreditPurchase:
		success, err = gw.PurchaseAirtime(ctx, t)
	default:
		return apperrors.Permanent(fmt.Errorf("%w: %s", apperrors.ErrUnsupportedType, t.Type))
	}

	if err != nil {
		return fmt.Errorf("gateway call for transaction %s: %w", t.ID, err)
	}
	if !success {
		return fmt.Errorf("gateway declined transaction %s", t.ID)
	}

	return h.manager.ProcessTransaction(ctx, t)
}

func (h *ProcessTransactionHandler) verify(ctx context.Context, t *models.Transaction) error {
	gw, err := h.gatewayFor(t)
	if err != nil {
		return err
	}

	if t.Reference == nil {
		return apperrors.Permanentf("transaction %s has no gateway reference to verify", t.ID)
	}

	status, err := gw.CheckPaymentStatus(ctx, *t.Reference)
	if err != nil {
		return fmt.Errorf("status check for transaction %s: %w", t.ID, err)
	}

	switch status.Status {
	case models.TransactionStatusCompleted:
		t.OperatorReference = status.OperatorReference
		return h.manager.ProcessTransaction(ctx, t)

	case models.TransactionStatusFailed:
		reason := status.Message
		if reason == "" {
			reason = "transaction failed at the operator"
		}
		return h.manager.HandleFailure(ctx, t, reason)

	default:
		// Still pending at the operator, a later verification will settle it
		h.logger.Info("Transaction still pending at operator", "transaction_id", t.ID)
		return nil
	}
}

func (h *ProcessTransactionHandler) cancel(ctx context.Context, t *models.Transaction) error {
	if t.Status != models.TransactionStatusPending {
		return apperrors.Permanent(fmt.Errorf("cancel transaction %s: %w", t.ID, apperrors.ErrTransactionTerminal))
	}

	return h.manager.HandleFailure(ctx, t, "transaction cancelled by the system")
}

func (h *ProcessTransactionHandler) gatewayFor(t *models.Transaction) (gateway.Gateway, error) {
	if t.SourceAccount == nil {
		return nil, apperrors.Permanentf("transaction %s has no source account", t.ID)
	}

	return h.gateways.ForProvider(t.SourceAccount.Provider)
}

// TerminalFailureHook resolves a transaction to FAILED once the bus has
// exhausted redeliveries of its PROCESS message, instead of leaving it
// PENDING forever
func TerminalFailureHook(storage repository.Storage, manager *transaction.Manager, logger logger.Logger) DeadLetterFunc {
	return func(ctx context.Context, env Envelope, cause error) {
		msg, ok := env.Message.(ProcessTransactionMessage)
		if !ok {
			return
		}

		t, err := storage.Transactions().GetTransaction(ctx, msg.TransactionID)
		if err != nil {
			logger.Error("Dead-letter: failed to load transaction",
				"transaction_id", msg.TransactionID, "error", err)
			return
		}
		if t.IsTerminal() {
			return
		}

		reason := fmt.Sprintf("processing retries exhausted: %v", cause)
		if err := manager.HandleFailure(ctx, &t, reason); err != nil {
			logger.Error("Dead-letter: failed to fail transaction",
				"transaction_id", t.ID, "error", err)
		}
	}
}
