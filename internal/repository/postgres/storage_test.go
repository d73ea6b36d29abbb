package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onepay-cm/onepay/internal/apperrors"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/repository"
	"github.com/onepay-cm/onepay/internal/testutil"
)

func Test_Storage(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	storage := NewStorage(pg.Pool)

	t.Run("in tx commits on nil", func(t *testing.T) {
		var userID uuid.UUID

		err := storage.InTx(t.Context(), func(s repository.Storage) error {
			user, err := s.Users().CreateUser(t.Context(), "675000001")
			if err != nil {
				return err
			}
			userID = user.ID
			return nil
		})
		require.NoError(t, err)

		got, err := storage.Users().GetUser(t.Context(), userID)
		require.NoError(t, err, "committed user must be visible outside the transaction")
		assert.Equal(t, "675000001", got.PhoneNumber)
	})

	t.Run("in tx rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		var userID uuid.UUID

		err := storage.InTx(t.Context(), func(s repository.Storage) error {
			user, err := s.Users().CreateUser(t.Context(), "675000002")
			if err != nil {
				return err
			}
			userID = user.ID
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = storage.Users().GetUser(t.Context(), userID)
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "rolled back user must not exist")
	})

	t.Run("notifications roundtrip", func(t *testing.T) {
		user, err := storage.Users().CreateUser(t.Context(), "675000003")
		require.NoError(t, err)

		n, err := storage.Notifications().CreateNotification(t.Context(), repository.CreateNotificationParams{
			UserID:  user.ID,
			Type:    models.NotificationTransactionCompleted,
			Message: "Your money transfer of 10000 FCFA to 677123456 was completed",
		})
		require.NoError(t, err)
		assert.Equal(t, models.NotificationStatusPending, n.Status)
		assert.Nil(t, n.SentAt)

		err = storage.Notifications().MarkSent(t.Context(), n.ID, time.Now())
		require.NoError(t, err)
	})

	t.Run("mark sent unknown notification fails", func(t *testing.T) {
		err := storage.Notifications().MarkSent(t.Context(), uuid.New(), time.Now())

		assert.Error(t, err)
	})

	t.Run("audit records roundtrip", func(t *testing.T) {
		errText := "handler exploded"
		rec := models.AuditRecord{
			MessageClass: "ProcessTransactionMessage",
			MessageData:  []byte(`{"message_id":"x"}`),
			Success:      false,
			Duration:     1500 * time.Millisecond,
			Error:        &errText,
			CreatedAt:    time.Now(),
		}
		require.NoError(t, storage.Audit().CreateRecord(t.Context(), rec))

		records, err := storage.Audit().ListFailures(t.Context(), time.Now().Add(-time.Minute), 10)
		require.NoError(t, err)
		require.NotEmpty(t, records)

		got := records[0]
		assert.Equal(t, "ProcessTransactionMessage", got.MessageClass)
		assert.False(t, got.Success)
		assert.Equal(t, 1500*time.Millisecond, got.Duration)
		require.NotNil(t, got.Error)
		assert.Equal(t, errText, *got.Error)
	})

	t.Run("audit cleanup window", func(t *testing.T) {
		old := models.AuditRecord{
			MessageClass: "SyncBalanceMessage",
			Success:      true,
			CreatedAt:    time.Now().AddDate(0, 0, -120),
		}
		require.NoError(t, storage.Audit().CreateRecord(t.Context(), old))

		cutoff := time.Now().AddDate(0, 0, -90)

		count, err := storage.Audit().CountOlderThan(t.Context(), cutoff)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(1))

		deleted, err := storage.Audit().DeleteOlderThan(t.Context(), cutoff)
		require.NoError(t, err)
		assert.Equal(t, count, deleted)

		left, err := storage.Audit().CountOlderThan(t.Context(), cutoff)
		require.NoError(t, err)
		assert.Zero(t, left)
	})
}
