package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/onepay-cm/onepay/internal/apperrors"
	"github.com/onepay-cm/onepay/internal/cache"
	"github.com/onepay-cm/onepay/internal/gateway"
	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/repository"
)

// Operator-side balance snapshots are kept briefly to spare the
// operator API; an explicit sync always drops them afterwards
const balanceSnapshotTTL = 5 * time.Minute

// SyncBalanceHandler refreshes the local mirror of an operator-side
// account balance
type SyncBalanceHandler struct {
	storage  repository.Storage
	gateways *gateway.Registry
	cache    cache.Cache
	logger   logger.Logger
}

func NewSyncBalanceHandler(storage repository.Storage, gateways *gateway.Registry, c cache.Cache, logger logger.Logger) *SyncBalanceHandler {
	return &SyncBalanceHandler{
		storage:  storage,
		gateways: gateways,
		cache:    c,
		logger:   logger,
	}
}

func (h *SyncBalanceHandler) Handle(ctx context.Context, env Envelope) error {
	msg, ok := env.Message.(SyncBalanceMessage)
	if !ok {
		return apperrors.Permanentf("unexpected message %T for %s", env.Message, env.Class)
	}

	h.logger.Info("Syncing account balance", "account_id", msg.AccountID, "provider", msg.Provider)

	storage := repository.FromContext(ctx, h.storage)

	account, err := storage.Accounts().GetAccount(ctx, msg.AccountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			return apperrors.Permanent(err)
		}
		return fmt.Errorf("load account %s: %w", msg.AccountID, err)
	}

	gw, err := h.gateways.ForProvider(msg.Provider)
	if err != nil {
		return err
	}

	balance, err := gw.GetBalance(ctx, &account)
	if err != nil {
		return fmt.Errorf("balance fetch for account %s: %w", account.ID, err)
	}

	now := time.Now()
	account.Balance = &balance
	account.LastSync = &now

	if err := storage.Accounts().SaveAccount(ctx, &account); err != nil {
		return fmt.Errorf("persist synced balance: %w", err)
	}

	if err := h.invalidateSnapshots(ctx, &account); err != nil {
		h.logger.Warn("Failed to invalidate balance snapshots", "account_id", account.ID, "error", err)
	}

	h.logger.Info("Balance synced",
		"account_id", account.ID, "provider", msg.Provider, "balance", balance)

	return nil
}

// invalidateSnapshots drops both snapshot keys for the account: the
// provider-scoped one and the account-id one
func (h *SyncBalanceHandler) invalidateSnapshots(ctx context.Context, account *models.MobileMoneyAccount) error {
	return h.cache.Delete(ctx,
		fmt.Sprintf("%s_balance_%s", strings.ToLower(account.Provider), account.Number),
		fmt.Sprintf("account_balance_%s", account.ID),
	)
}

// CachedBalance reads the operator balance through the snapshot cache.
// Callers that need the authoritative value go through a sync message
// instead
func (h *SyncBalanceHandler) CachedBalance(ctx context.Context, account *models.MobileMoneyAccount) (string, error) {
	gw, err := h.gateways.ForProvider(account.Provider)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s_balance_%s", strings.ToLower(account.Provider), account.Number)
	return h.cache.GetOrCompute(ctx, key, balanceSnapshotTTL, func(ctx context.Context) (string, error) {
		balance, err := gw.GetBalance(ctx, account)
		if err != nil {
			return "", err
		}
		return balance.String(), nil
	})
}
