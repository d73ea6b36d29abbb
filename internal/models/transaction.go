package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypeMoneyTransfer  = "MONEY_TRANSFER"
	TransactionTypeCreditPurchase = "CREDIT_PURCHASE"
)

const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusFailed    = "FAILED"
)

// StatusChange is a single entry of the append-only status history
type StatusChange struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	PreviousStatus string    `json:"previous_status"`
}

type Transaction struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Type            string
	Amount          decimal.Decimal
	Fees            decimal.Decimal
	Status          string
	RecipientNumber string
	Operator        string

	// Reference is assigned by the gateway when the payment is initiated,
	// OperatorReference when the operator settles it
	Reference         *string
	OperatorReference *string

	// SourceAccount is loaded together with the transaction.
	// Nil when the transaction has no source account bound
	SourceAccount *MobileMoneyAccount

	CreatedAt     time.Time
	CompletedAt   *time.Time
	StatusHistory []StatusChange
}

// IsTerminal reports whether the transaction reached a final state.
// Terminal transactions never change status again
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusFailed
}

// TotalAmount is the amount plus fees, the value actually debited
func (t *Transaction) TotalAmount() decimal.Decimal {
	return t.Amount.Add(t.Fees)
}
