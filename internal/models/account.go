package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ProviderOrangeMoney = "ORANGE_MONEY"
	ProviderMTNMoMo     = "MTN_MOMO"
)

// MobileMoneyAccount mirrors a wallet held at a telecom operator.
// Balance is nil until the first successful sync with the operator
type MobileMoneyAccount struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Number     string
	Provider   string
	IsVerified bool
	Balance    *decimal.Decimal
	LastSync   *time.Time
	CreatedAt  time.Time
}
