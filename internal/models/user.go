package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID          uuid.UUID
	PhoneNumber string
	// Balance is the simple-wallet balance kept outside the mobile-money path
	Balance    decimal.Decimal
	IsVerified bool
	CreatedAt  time.Time
}
