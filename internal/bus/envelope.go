package bus

import (
	"time"

	"github.com/google/uuid"
)

// Envelope wraps a message on its way through the bus.
// Redelivered marks envelopes requeued after a transient failure: the
// transaction middleware must not open a second database transaction
// for those
type Envelope struct {
	ID          uuid.UUID
	Class       string
	Message     any
	Attempts    int
	Redelivered bool
	EnqueuedAt  time.Time
}
