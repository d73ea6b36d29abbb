package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/onepay-cm/onepay/internal/apperrors"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/repository"
)

type AccountRepo struct {
	DB DBTX
}

const createAccount = `-- name: CreateAccount
INSERT INTO mobile_money_accounts (id, user_id, number, provider, is_verified, created_at)
VALUES ($1, $2, $3, $4, false, $5)
RETURNING id, user_id, number, provider, is_verified, balance, last_sync, created_at
`

func (r *AccountRepo) CreateAccount(ctx context.Context, params repository.CreateAccountParams) (models.MobileMoneyAccount, error) {
	rows, _ := r.DB.Query(ctx, createAccount, uuid.New(), params.UserID, params.Number, params.Provider, time.Now())
	a, err := pgx.CollectOneRow(rows, rowToAccount)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return a, fmt.Errorf("account with this number already linked: %w", err)
		}

		return a, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

const getAccount = `-- name: GetAccount
SELECT id, user_id, number, provider, is_verified, balance, last_sync, created_at
FROM mobile_money_accounts
WHERE id = $1
`

func (r *AccountRepo) GetAccount(ctx context.Context, id uuid.UUID) (models.MobileMoneyAccount, error) {
	rows, _ := r.DB.Query(ctx, getAccount, id)
	a, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return a, nil
	case errors.Is(err, pgx.ErrNoRows):
		return a, apperrors.ErrAccountNotFound
	default:
		return a, fmt.Errorf("db error: %w", err)
	}
}

const saveAccount = `-- name: SaveAccount
UPDATE mobile_money_accounts
SET balance = $2, last_sync = $3, is_verified = $4
WHERE id = $1
`

func (r *AccountRepo) SaveAccount(ctx context.Context, a *models.MobileMoneyAccount) error {
	tag, err := r.DB.Exec(ctx, saveAccount, a.ID, a.Balance, a.LastSync, a.IsVerified)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAccountNotFound
	}

	return nil
}

func rowToAccount(row pgx.CollectableRow) (models.MobileMoneyAccount, error) {
	var a models.MobileMoneyAccount
	err := row.Scan(&a.ID, &a.UserID, &a.Number, &a.Provider, &a.IsVerified, &a.Balance, &a.LastSync, &a.CreatedAt)
	return a, err
}
