package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/onepay-cm/onepay/internal/apperrors"
	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/repository"
)

// SendNotificationHandler delivers a queued notification. Actual
// transport (SMS, push) sits behind the operator integrations; here the
// notification is marked sent once handed over
type SendNotificationHandler struct {
	storage repository.Storage
	logger  logger.Logger
}

func NewSendNotificationHandler(storage repository.Storage, logger logger.Logger) *SendNotificationHandler {
	return &SendNotificationHandler{
		storage: storage,
		logger:  logger,
	}
}

func (h *SendNotificationHandler) Handle(ctx context.Context, env Envelope) error {
	msg, ok := env.Message.(SendNotificationMessage)
	if !ok {
		return apperrors.Permanentf("unexpected message %T for %s", env.Message, env.Class)
	}

	storage := repository.FromContext(ctx, h.storage)

	if err := storage.Notifications().MarkSent(ctx, msg.NotificationID, time.Now()); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}

	h.logger.Info("Notification delivered", "notification_id", msg.NotificationID)
	return nil
}
