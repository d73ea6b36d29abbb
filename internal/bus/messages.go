package bus

import (
	"github.com/google/uuid"
)

// Actions a ProcessTransactionMessage may request
const (
	ActionProcess = "PROCESS"
	ActionVerify  = "VERIFY"
	ActionCancel  = "CANCEL"
)

// Message classes, used for handler routing and audit records
const (
	ClassProcessTransaction = "ProcessTransactionMessage"
	ClassSyncBalance        = "SyncBalanceMessage"
	ClassSendNotification   = "SendNotificationMessage"
)

type ProcessTransactionMessage struct {
	TransactionID uuid.UUID `json:"transaction_id" validate:"required"`
	Action        string    `json:"action" validate:"required,oneof=PROCESS VERIFY CANCEL"`
}

type SyncBalanceMessage struct {
	AccountID uuid.UUID `json:"account_id" validate:"required"`
	Provider  string    `json:"provider" validate:"required,oneof=ORANGE_MONEY MTN_MOMO"`
}

type SendNotificationMessage struct {
	NotificationID uuid.UUID `json:"notification_id" validate:"required"`
}

// MessageClass names the message type for routing and auditing
func MessageClass(msg any) string {
	switch msg.(type) {
	case ProcessTransactionMessage:
		return ClassProcessTransaction
	case SyncBalanceMessage:
		return ClassSyncBalance
	case SendNotificationMessage:
		return ClassSendNotification
	default:
		return ""
	}
}
