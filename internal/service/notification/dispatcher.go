// Package notification queues user-facing notifications for terminal
// transaction outcomes. Queuing is best effort: a notification that
// cannot be queued is logged and dropped, it never changes the outcome
// of the transaction it describes.
package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/onepay-cm/onepay/internal/bus"
	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/repository"
)

// Publisher is the bus capability the dispatcher needs
type Publisher interface {
	Publish(ctx context.Context, msg any) error
}

type Dispatcher struct {
	storage   repository.Storage
	publisher Publisher
	logger    logger.Logger
}

func NewDispatcher(storage repository.Storage, publisher Publisher, logger logger.Logger) *Dispatcher {
	return &Dispatcher{
		storage:   storage,
		publisher: publisher,
		logger:    logger,
	}
}

func (d *Dispatcher) TransactionCompleted(ctx context.Context, t *models.Transaction) {
	message := fmt.Sprintf("Your %s of %s FCFA to %s was completed (fees %s FCFA)",
		transactionLabel(t.Type), t.Amount, t.RecipientNumber, t.Fees)

	d.enqueue(ctx, t.UserID, &t.ID, models.NotificationTransactionCompleted, message)
}

func (d *Dispatcher) TransactionFailed(ctx context.Context, t *models.Transaction, reason string) {
	message := fmt.Sprintf("Your %s of %s FCFA to %s failed: %s",
		transactionLabel(t.Type), t.Amount, t.RecipientNumber, reason)

	d.enqueue(ctx, t.UserID, &t.ID, models.NotificationTransactionFailed, message)
}

func (d *Dispatcher) enqueue(ctx context.Context, userID uuid.UUID, transactionID *uuid.UUID, notifType, message string) {
	// Base storage on purpose: the notification row must not ride on the
	// message transaction
	n, err := d.storage.Notifications().CreateNotification(ctx, repository.CreateNotificationParams{
		UserID:        userID,
		TransactionID: transactionID,
		Type:          notifType,
		Message:       message,
	})
	if err != nil {
		d.logger.Error("Failed to queue notification", "user_id", userID, "error", err)
		return
	}

	err = d.publisher.Publish(ctx, bus.SendNotificationMessage{NotificationID: n.ID})
	if err != nil {
		d.logger.Error("Failed to publish notification message", "notification_id", n.ID, "error", err)
	}
}

func transactionLabel(transactionType string) string {
	switch transactionType {
	case models.TransactionTypeMoneyTransfer:
		return "money transfer"
	case models.TransactionTypeCreditPurchase:
		return "airtime purchase"
	default:
		return "transaction"
	}
}
