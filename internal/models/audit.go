package models

import (
	"time"
)

// AuditRecord is written for every message-bus dispatch, success or not
type AuditRecord struct {
	ID           int64
	MessageClass string
	// MessageData holds the serialized message payload as JSON
	MessageData []byte
	Success     bool
	Duration    time.Duration
	Error       *string
	CreatedAt   time.Time
}
