// Package audit records one entry per message-bus dispatch and exposes
// the operator-facing query and retention surface over those entries.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/repository"
)

type Service struct {
	storage repository.Storage
	logger  logger.Logger
}

func NewService(storage repository.Storage, logger logger.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Record appends one audit entry. It deliberately uses the base storage,
// never a message-transaction scoped one: the audit trail must survive a
// rollback of the message it describes
func (s *Service) Record(ctx context.Context, rec models.AuditRecord) error {
	if err := s.storage.Audit().CreateRecord(ctx, rec); err != nil {
		return fmt.Errorf("audit record: %w", err)
	}
	return nil
}

func (s *Service) ListByDateRange(ctx context.Context, start, end time.Time, limit int) ([]models.AuditRecord, error) {
	return s.storage.Audit().ListByDateRange(ctx, start, end, limit)
}

func (s *Service) ListByMessageClass(ctx context.Context, messageClass string, limit int) ([]models.AuditRecord, error) {
	return s.storage.Audit().ListByMessageClass(ctx, messageClass, limit)
}

func (s *Service) ListFailures(ctx context.Context, since time.Time, limit int) ([]models.AuditRecord, error) {
	return s.storage.Audit().ListFailures(ctx, since, limit)
}

// Cleanup deletes entries older than retention. With dryRun it only
// reports how many entries would go
func (s *Service) Cleanup(ctx context.Context, retention time.Duration, dryRun bool) (int64, error) {
	before := time.Now().Add(-retention)

	if dryRun {
		count, err := s.storage.Audit().CountOlderThan(ctx, before)
		if err != nil {
			return 0, fmt.Errorf("audit cleanup dry-run: %w", err)
		}
		return count, nil
	}

	deleted, err := s.storage.Audit().DeleteOlderThan(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}

	s.logger.Info("Audit logs cleaned", "deleted", deleted, "before", before)
	return deleted, nil
}
