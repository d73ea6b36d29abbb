package postgres

import (
	"errors"
	"fmt"
	"time"

	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/onepay-cm/onepay/internal/apperrors"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/repository"
)

type TransactionRepo struct {
	DB DBTX
}

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (id, user_id, type, amount, fees, status, recipient_number, operator, source_account_id, created_at, status_history)
VALUES ($1, $2, $3, $4, 0, $5, $6, $7, $8, $9, '[]')
RETURNING id
`

func (r *TransactionRepo) CreateTransaction(ctx context.Context, params repository.CreateTransactionParams) (models.Transaction, error) {
	t := models.Transaction{
		ID:              uuid.New(),
		UserID:          params.UserID,
		Type:            params.Type,
		Amount:          params.Amount,
		Status:          models.TransactionStatusPending,
		RecipientNumber: params.RecipientNumber,
		Operator:        params.Operator,
		CreatedAt:       time.Now(),
	}

	var sourceAccountID any
	if params.SourceAccountID != nil {
		sourceAccountID = *params.SourceAccountID
	}

	_, err := r.DB.Exec(ctx, createTransaction,
		t.ID, t.UserID, t.Type, t.Amount, t.Status, t.RecipientNumber, t.Operator, sourceAccountID, t.CreatedAt,
	)
	if err != nil {
		return t, fmt.Errorf("db error: %w", err)
	}

	return r.GetTransaction(ctx, t.ID)
}

const getTransaction = `-- name: GetTransaction
SELECT t.id, t.user_id, t.type, t.amount, t.fees, t.status,
       t.recipient_number, t.operator, t.reference, t.operator_reference,
       t.created_at, t.completed_at, t.status_history,
       a.id, a.user_id, a.number, a.provider, a.is_verified, a.balance, a.last_sync, a.created_at
FROM transactions t
LEFT JOIN mobile_money_accounts a ON a.id = t.source_account_id
WHERE t.id = $1
`

func (r *TransactionRepo) GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, getTransaction, id)
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, pgx.ErrNoRows):
		return t, apperrors.ErrTransactionNotFound
	default:
		return t, fmt.Errorf("db error: %w", err)
	}
}

const saveTransaction = `-- name: SaveTransaction
UPDATE transactions
SET fees = $2, status = $3, reference = $4, operator_reference = $5,
    completed_at = $6, status_history = $7
WHERE id = $1
`

func (r *TransactionRepo) SaveTransaction(ctx context.Context, t *models.Transaction) error {
	history := t.StatusHistory
	if history == nil {
		history = []models.StatusChange{}
	}

	tag, err := r.DB.Exec(ctx, saveTransaction,
		t.ID, t.Fees, t.Status, t.Reference, t.OperatorReference, t.CompletedAt, history,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTransactionNotFound
	}

	return nil
}

const sumCompletedAmount = `-- name: SumCompletedAmount
SELECT COALESCE(SUM(amount), 0)
FROM transactions
WHERE user_id = $1 AND status = $2 AND created_at >= $3
`

func (r *TransactionRepo) SumCompletedAmount(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal

	err := r.DB.QueryRow(ctx, sumCompletedAmount, userID, models.TransactionStatusCompleted, since).Scan(&total)
	if err != nil {
		return total, fmt.Errorf("db error: %w", err)
	}

	return total, nil
}

const listPendingForVerification = `-- name: ListPendingForVerification
SELECT t.id, t.user_id, t.type, t.amount, t.fees, t.status,
       t.recipient_number, t.operator, t.reference, t.operator_reference,
       t.created_at, t.completed_at, t.status_history,
       a.id, a.user_id, a.number, a.provider, a.is_verified, a.balance, a.last_sync, a.created_at
FROM transactions t
LEFT JOIN mobile_money_accounts a ON a.id = t.source_account_id
WHERE t.status = $1 AND t.reference IS NOT NULL AND t.created_at < $2
ORDER BY t.created_at
LIMIT $3
`

func (r *TransactionRepo) ListPendingForVerification(ctx context.Context, olderThan time.Time, limit int) ([]models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, listPendingForVerification, models.TransactionStatusPending, olderThan, limit)
	ts, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return ts, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction

	// Source account columns are nullable because of the left join
	var (
		accID         *uuid.UUID
		accUserID     *uuid.UUID
		accNumber     *string
		accProvider   *string
		accVerified   *bool
		accBalance    *decimal.Decimal
		accLastSync   *time.Time
		accCreatedAt  *time.Time
	)

	err := row.Scan(
		&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Fees, &t.Status,
		&t.RecipientNumber, &t.Operator, &t.Reference, &t.OperatorReference,
		&t.CreatedAt, &t.CompletedAt, &t.StatusHistory,
		&accID, &accUserID, &accNumber, &accProvider, &accVerified, &accBalance, &accLastSync, &accCreatedAt,
	)
	if err != nil {
		return t, err
	}

	if accID != nil {
		t.SourceAccount = &models.MobileMoneyAccount{
			ID:         *accID,
			UserID:     *accUserID,
			Number:     *accNumber,
			Provider:   *accProvider,
			IsVerified: *accVerified,
			Balance:    accBalance,
			LastSync:   accLastSync,
			CreatedAt:  *accCreatedAt,
		}
	}

	return t, nil
}
