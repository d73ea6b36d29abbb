package models

import (
	"time"

	"github.com/google/uuid"
)

// FailedTransaction is created exactly once when a transaction reaches
// FAILED and is never mutated afterwards
type FailedTransaction struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	Reason        string
	FailedAt      time.Time
}
