package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/onepay-cm/onepay/internal/models"
)

type AuditRepo struct {
	DB DBTX
}

const createAuditRecord = `-- name: CreateRecord
INSERT INTO audit_logs (message_class, message_data, success, duration_ms, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

func (r *AuditRepo) CreateRecord(ctx context.Context, rec models.AuditRecord) error {
	data := rec.MessageData
	if data == nil {
		data = []byte("{}")
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.DB.Exec(ctx, createAuditRecord,
		rec.MessageClass, data, rec.Success, rec.Duration.Milliseconds(), rec.Error, createdAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const listByDateRange = `-- name: ListByDateRange
SELECT id, message_class, message_data, success, duration_ms, error, created_at
FROM audit_logs
WHERE created_at BETWEEN $1 AND $2
ORDER BY created_at DESC
LIMIT $3
`

func (r *AuditRepo) ListByDateRange(ctx context.Context, start, end time.Time, limit int) ([]models.AuditRecord, error) {
	rows, _ := r.DB.Query(ctx, listByDateRange, start, end, limit)
	return collectAuditRecords(rows)
}

const listByMessageClass = `-- name: ListByMessageClass
SELECT id, message_class, message_data, success, duration_ms, error, created_at
FROM audit_logs
WHERE message_class = $1
ORDER BY created_at DESC
LIMIT $2
`

func (r *AuditRepo) ListByMessageClass(ctx context.Context, messageClass string, limit int) ([]models.AuditRecord, error) {
	rows, _ := r.DB.Query(ctx, listByMessageClass, messageClass, limit)
	return collectAuditRecords(rows)
}

const listFailures = `-- name: ListFailures
SELECT id, message_class, message_data, success, duration_ms, error, created_at
FROM audit_logs
WHERE success = false AND created_at >= $1
ORDER BY created_at DESC
LIMIT $2
`

func (r *AuditRepo) ListFailures(ctx context.Context, since time.Time, limit int) ([]models.AuditRecord, error) {
	rows, _ := r.DB.Query(ctx, listFailures, since, limit)
	return collectAuditRecords(rows)
}

const countOlderThan = `-- name: CountOlderThan
SELECT count(*) FROM audit_logs WHERE created_at < $1
`

func (r *AuditRepo) CountOlderThan(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	if err := r.DB.QueryRow(ctx, countOlderThan, before).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

const deleteOlderThan = `-- name: DeleteOlderThan
DELETE FROM audit_logs WHERE created_at < $1
`

func (r *AuditRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteOlderThan, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

func collectAuditRecords(rows pgx.Rows) ([]models.AuditRecord, error) {
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.AuditRecord, error) {
		var rec models.AuditRecord
		var durationMS int64
		err := row.Scan(&rec.ID, &rec.MessageClass, &rec.MessageData, &rec.Success, &durationMS, &rec.Error, &rec.CreatedAt)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return recs, nil
}
