package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/onepay-cm/onepay/internal/models"
)

type CreateTransactionParams struct {
	UserID          uuid.UUID
	Type            string
	Amount          decimal.Decimal
	RecipientNumber string
	Operator        string
	SourceAccountID *uuid.UUID
}

// Transaction repository interface
type TransactionRepo interface {
	// Create transaction in PENDING status
	CreateTransaction(ctx context.Context, params CreateTransactionParams) (models.Transaction, error)

	// Get transaction with its source account loaded
	// If transaction not found must return apperrors.ErrTransactionNotFound
	GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error)

	// Save mutable transaction fields: status, fees, references,
	// completed_at and the status history
	SaveTransaction(ctx context.Context, t *models.Transaction) error

	// Sum amounts of COMPLETED transactions for user created at or after since.
	// Returns zero when the user has no completed transactions in the window
	SumCompletedAmount(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error)

	// List PENDING transactions with a gateway reference created before olderThan.
	// Used to produce VERIFY messages for settlements the gateway reports asynchronously
	ListPendingForVerification(ctx context.Context, olderThan time.Time, limit int) ([]models.Transaction, error)
}

type CreateAccountParams struct {
	UserID   uuid.UUID
	Number   string
	Provider string
}

// Mobile money account repository interface
type AccountRepo interface {
	CreateAccount(ctx context.Context, params CreateAccountParams) (models.MobileMoneyAccount, error)

	// If account not found must return apperrors.ErrAccountNotFound
	GetAccount(ctx context.Context, id uuid.UUID) (models.MobileMoneyAccount, error)

	// Save mutable account fields: balance, last_sync, is_verified
	SaveAccount(ctx context.Context, a *models.MobileMoneyAccount) error
}

type UserRepo interface {
	CreateUser(ctx context.Context, phoneNumber string) (models.User, error)

	// If user not found must return apperrors.ErrUserNotFound
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
}

type FailedTransactionRepo interface {
	// Create failure record for transaction.
	// Creating twice for the same transaction must keep the first record
	// untouched and return it as is
	CreateFailedTransaction(ctx context.Context, transactionID uuid.UUID, reason string, failedAt time.Time) (models.FailedTransaction, error)

	GetByTransaction(ctx context.Context, transactionID uuid.UUID) (models.FailedTransaction, error)
}

type AuditRepo interface {
	CreateRecord(ctx context.Context, rec models.AuditRecord) error

	ListByDateRange(ctx context.Context, start, end time.Time, limit int) ([]models.AuditRecord, error)
	ListByMessageClass(ctx context.Context, messageClass string, limit int) ([]models.AuditRecord, error)
	ListFailures(ctx context.Context, since time.Time, limit int) ([]models.AuditRecord, error)

	// Retention cleanup
	CountOlderThan(ctx context.Context, before time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type CreateNotificationParams struct {
	UserID        uuid.UUID
	TransactionID *uuid.UUID
	Type          string
	Message       string
}

type NotificationRepo interface {
	CreateNotification(ctx context.Context, params CreateNotificationParams) (models.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
}

// Storage bundles every repository over one database handle.
// InTx runs fn with a storage bound to a single database transaction:
// fn returning nil commits, anything else rolls back
type Storage interface {
	Users() UserRepo
	Accounts() AccountRepo
	Transactions() TransactionRepo
	FailedTransactions() FailedTransactionRepo
	Audit() AuditRepo
	Notifications() NotificationRepo

	InTx(ctx context.Context, fn func(Storage) error) error
}
