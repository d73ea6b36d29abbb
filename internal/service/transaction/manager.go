package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/onepay-cm/onepay/internal/apperrors"
	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/repository"
	"github.com/onepay-cm/onepay/internal/service/fees"
	"github.com/onepay-cm/onepay/internal/service/limits"
)

// Notifier enqueues user-facing notifications for terminal outcomes.
// Delivery is asynchronous and never blocks transaction processing
type Notifier interface {
	TransactionCompleted(ctx context.Context, t *models.Transaction)
	TransactionFailed(ctx context.Context, t *models.Transaction, reason string)
}

// Manager drives the transaction state machine:
// PENDING -> COMPLETED | FAILED, with no way out of a terminal state
type Manager struct {
	storage   repository.Storage
	validator *Validator
	limits    *limits.Tracker
	notifier  Notifier
	logger    logger.Logger

	now func() time.Time
}

func NewManager(storage repository.Storage, validator *Validator, tracker *limits.Tracker, notifier Notifier, logger logger.Logger) *Manager {
	return &Manager{
		storage:   storage,
		validator: validator,
		limits:    tracker,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// ApplyFees computes and attaches the fee exactly once. Safe to call
// again: an already-attached fee is kept as is
func (m *Manager) ApplyFees(t *models.Transaction) {
	if !t.Fees.IsZero() {
		return
	}
	t.Fees = fees.Calculate(t.Amount)
}

// Check is the boolean validation gate: it collapses the violation list
// to pass/fail and logs the first failure. Infrastructure faults also
// fail the gate but are returned for retry classification
func (m *Manager) Check(ctx context.Context, t *models.Transaction) (bool, error) {
	violations, err := m.validator.Validate(ctx, t)
	if err != nil {
		return false, fmt.Errorf("transaction validation: %w", err)
	}

	if len(violations) > 0 {
		m.logger.Error("Transaction validation failed",
			"transaction_id", t.ID,
			"code", violations[0].Code,
			"reason", violations[0].Message,
		)
		return false, nil
	}

	return true, nil
}

// ProcessTransaction finalizes a validated transaction: marks it
// COMPLETED, debits amount plus fees from the source account, persists
// both and invalidates the user's limit caches. Persistence failures
// propagate so the surrounding transaction middleware rolls back
func (m *Manager) ProcessTransaction(ctx context.Context, t *models.Transaction) error {
	if t.IsTerminal() {
		return apperrors.Permanent(fmt.Errorf("process transaction %s: %w", t.ID, apperrors.ErrTransactionTerminal))
	}
	if t.SourceAccount == nil {
		return apperrors.Permanent(fmt.Errorf("process transaction %s: no source account", t.ID))
	}

	// The fee must be attached before the debit no matter which path
	// settles the transaction
	m.ApplyFees(t)

	storage := repository.FromContext(ctx, m.storage)
	now := m.now()

	m.transition(t, models.TransactionStatusCompleted, now)
	t.CompletedAt = &now

	if err := storage.Transactions().SaveTransaction(ctx, t); err != nil {
		return fmt.Errorf("persist completed transaction: %w", err)
	}

	// The balance is a snapshot of the operator account and stays nil
	// until the first sync. Without a snapshot there is nothing to
	// debit locally, the next sync fetches the settled balance
	account := t.SourceAccount
	if account.Balance != nil {
		balance := account.Balance.Sub(t.TotalAmount())
		account.Balance = &balance

		if err := storage.Accounts().SaveAccount(ctx, account); err != nil {
			return fmt.Errorf("persist debited account: %w", err)
		}
	}

	// The cache is advisory, a failed invalidation must not undo the debit
	if err := m.limits.Invalidate(ctx, t.UserID); err != nil {
		m.logger.Warn("Failed to invalidate limit caches", "user_id", t.UserID, "error", err)
	}

	m.logger.Info("Transaction processed",
		"transaction_id", t.ID,
		"amount", t.Amount,
		"fees", t.Fees,
		"type", t.Type,
	)

	if m.notifier != nil {
		m.notifier.TransactionCompleted(ctx, t)
	}

	return nil
}

// HandleFailure marks the transaction FAILED and records exactly one
// failure row. Calling it again for an already failed transaction is a
// no-op; failing a COMPLETED transaction is a permanent error
func (m *Manager) HandleFailure(ctx context.Context, t *models.Transaction, reason string) error {
	switch t.Status {
	case models.TransactionStatusFailed:
		return nil
	case models.TransactionStatusCompleted:
		return apperrors.Permanent(fmt.Errorf("fail transaction %s: %w", t.ID, apperrors.ErrTransactionTerminal))
	}

	storage := repository.FromContext(ctx, m.storage)
	now := m.now()

	m.transition(t, models.TransactionStatusFailed, now)

	if err := storage.Transactions().SaveTransaction(ctx, t); err != nil {
		return fmt.Errorf("persist failed transaction: %w", err)
	}
	if _, err := storage.FailedTransactions().CreateFailedTransaction(ctx, t.ID, reason, now); err != nil {
		return fmt.Errorf("record transaction failure: %w", err)
	}

	m.logger.Error("Transaction failed", "transaction_id", t.ID, "reason", reason)

	if m.notifier != nil {
		m.notifier.TransactionFailed(ctx, t, reason)
	}

	return nil
}

// UpdateStatus applies a generic transition with a status history entry.
// Used by verification flows where the terminal outcome arrives
// asynchronously from the gateway
func (m *Manager) UpdateStatus(ctx context.Context, t *models.Transaction, newStatus string) error {
	if t.IsTerminal() {
		return apperrors.Permanent(fmt.Errorf("update status of %s: %w", t.ID, apperrors.ErrTransactionTerminal))
	}

	storage := repository.FromContext(ctx, m.storage)
	now := m.now()
	oldStatus := t.Status

	m.transition(t, newStatus, now)
	if newStatus == models.TransactionStatusCompleted {
		t.CompletedAt = &now
	}

	if err := storage.Transactions().SaveTransaction(ctx, t); err != nil {
		return fmt.Errorf("persist status update: %w", err)
	}

	m.logger.Info("Transaction status updated",
		"transaction_id", t.ID,
		"old_status", oldStatus,
		"new_status", newStatus,
	)

	return nil
}

// transition mutates status and appends the history entry
func (m *Manager) transition(t *models.Transaction, newStatus string, at time.Time) {
	t.StatusHistory = append(t.StatusHistory, models.StatusChange{
		Status:         newStatus,
		Timestamp:      at,
		PreviousStatus: t.Status,
	})
	t.Status = newStatus
}
