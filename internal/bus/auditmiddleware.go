package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/service/audit"
)

// AuditMiddleware records every dispatch, success or failure, with its
// duration. It sits outside the transaction middleware so the record
// survives a rollback, and an audit write failure never changes the
// outcome of the message it describes.
func AuditMiddleware(auditor *audit.Service, logger logger.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, env Envelope) error {
			started := time.Now()

			err := next(ctx, env)

			rec := models.AuditRecord{
				MessageClass: env.Class,
				MessageData:  marshalMessage(env),
				Success:      err == nil,
				Duration:     time.Since(started),
				CreatedAt:    time.Now(),
			}
			if err != nil {
				msg := err.Error()
				rec.Error = &msg
			}

			if auditErr := auditor.Record(ctx, rec); auditErr != nil {
				logger.Error("Failed to write audit record",
					"message_id", env.ID, "class", env.Class, "error", auditErr)
			}

			return err
		}
	}
}

func marshalMessage(env Envelope) []byte {
	payload := struct {
		MessageID   string `json:"message_id"`
		Attempts    int    `json:"attempts"`
		Redelivered bool   `json:"redelivered"`
		Message     any    `json:"message"`
	}{
		MessageID:   env.ID.String(),
		Attempts:    env.Attempts,
		Redelivered: env.Redelivered,
		Message:     env.Message,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return []byte("{}")
	}
	return data
}
