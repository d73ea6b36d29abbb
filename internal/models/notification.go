package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationTransactionCompleted = "TRANSACTION_COMPLETED"
	NotificationTransactionFailed    = "TRANSACTION_FAILED"
	NotificationBalanceSynced        = "BALANCE_SYNCED"
)

const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
)

type Notification struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	TransactionID *uuid.UUID
	Type          string
	Message       string
	Status        string
	CreatedAt     time.Time
	SentAt        *time.Time
}
