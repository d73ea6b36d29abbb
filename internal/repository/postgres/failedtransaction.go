package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/onepay-cm/onepay/internal/models"
)

type FailedTransactionRepo struct {
	DB DBTX
}

// Insert is a no-op when a failure record already exists for the
// transaction, so handleFailure stays idempotent even under races
const createFailedTransaction = `-- name: CreateFailedTransaction
WITH inserted AS (
	INSERT INTO failed_transactions (id, transaction_id, reason, failed_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (transaction_id) DO NOTHING
	RETURNING id, transaction_id, reason, failed_at
)
SELECT * FROM inserted
UNION
SELECT id, transaction_id, reason, failed_at FROM failed_transactions WHERE transaction_id = $2
`

func (r *FailedTransactionRepo) CreateFailedTransaction(ctx context.Context, transactionID uuid.UUID, reason string, failedAt time.Time) (models.FailedTransaction, error) {
	rows, _ := r.DB.Query(ctx, createFailedTransaction, uuid.New(), transactionID, reason, failedAt)
	ft, err := pgx.CollectOneRow(rows, rowToFailedTransaction)
	if err != nil {
		return ft, fmt.Errorf("db error: %w", err)
	}

	return ft, nil
}

const getFailedByTransaction = `-- name: GetByTransaction
SELECT id, transaction_id, reason, failed_at
FROM failed_transactions
WHERE transaction_id = $1
`

func (r *FailedTransactionRepo) GetByTransaction(ctx context.Context, transactionID uuid.UUID) (models.FailedTransaction, error) {
	rows, _ := r.DB.Query(ctx, getFailedByTransaction, transactionID)
	ft, err := pgx.CollectOneRow(rows, rowToFailedTransaction)

	switch {
	case err == nil:
		return ft, nil
	case errors.Is(err, pgx.ErrNoRows):
		return ft, fmt.Errorf("no failure record for transaction %s: %w", transactionID, err)
	default:
		return ft, fmt.Errorf("db error: %w", err)
	}
}

func rowToFailedTransaction(row pgx.CollectableRow) (models.FailedTransaction, error) {
	var ft models.FailedTransaction
	err := row.Scan(&ft.ID, &ft.TransactionID, &ft.Reason, &ft.FailedAt)
	return ft, err
}
