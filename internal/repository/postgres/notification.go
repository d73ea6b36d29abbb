package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/repository"
)

type NotificationRepo struct {
	DB DBTX
}

const createNotification = `-- name: CreateNotification
INSERT INTO notifications (id, user_id, transaction_id, type, message, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, transaction_id, type, message, status, created_at, sent_at
`

func (r *NotificationRepo) CreateNotification(ctx context.Context, params repository.CreateNotificationParams) (models.Notification, error) {
	rows, _ := r.DB.Query(ctx, createNotification,
		uuid.New(), params.UserID, params.TransactionID, params.Type, params.Message,
		models.NotificationStatusPending, time.Now(),
	)

	n, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.Notification, error) {
		var n models.Notification
		err := row.Scan(&n.ID, &n.UserID, &n.TransactionID, &n.Type, &n.Message, &n.Status, &n.CreatedAt, &n.SentAt)
		return n, err
	})
	if err != nil {
		return n, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}

const markNotificationSent = `-- name: MarkSent
UPDATE notifications
SET status = $2, sent_at = $3
WHERE id = $1
`

func (r *NotificationRepo) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	tag, err := r.DB.Exec(ctx, markNotificationSent, id, models.NotificationStatusSent, sentAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %s not found", id)
	}

	return nil
}
