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
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, phone_number, created_at)
VALUES ($1, $2, $3)
RETURNING id, phone_number, balance, is_verified, created_at
`

func (r *UserRepo) CreateUser(ctx context.Context, phoneNumber string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), phoneNumber, time.Now())
	u, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return u, fmt.Errorf("user with this phone number already exists: %w", err)
		}

		return u, fmt.Errorf("db error: %w", err)
	}

	return u, nil
}

const getUser = `-- name: GetUser
SELECT id, phone_number, balance, is_verified, created_at
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUser, id)
	u, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, pgx.ErrNoRows):
		return u, apperrors.ErrUserNotFound
	default:
		return u, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.PhoneNumber, &u.Balance, &u.IsVerified, &u.CreatedAt)
	return u, err
}
