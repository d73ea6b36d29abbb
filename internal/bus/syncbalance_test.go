package bus

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/onepay-cm/onepay/internal/apperrors"
	"github.com/onepay-cm/onepay/internal/cache"
	"github.com/onepay-cm/onepay/internal/gateway"
	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/repository"
	"github.com/onepay-cm/onepay/internal/testutil"
)

type syncFixture struct {
	storage *testutil.MemStorage
	gw      *testutil.FakeGateway
	cache   *cache.MemoryCache
	handler *SyncBalanceHandler
}

func newSyncFixture() *syncFixture {
	storage := testutil.NewMemStorage()
	gw := testutil.NewFakeGateway()
	gw.Balance = decimal.NewFromInt(42_000)

	gateways := gateway.NewRegistry()
	gateways.Register(models.ProviderMTNMoMo, gw)

	c := cache.NewMemory()

	return &syncFixture{
		storage: storage,
		gw:      gw,
		cache:   c,
		handler: NewSyncBalanceHandler(storage, gateways, c, logger.NewNoOp()),
	}
}

func (f *syncFixture) seedAccount(t *testing.T) models.MobileMoneyAccount {
	t.Helper()
	ctx := context.Background()

	user, err := f.storage.CreateUser(ctx, "670000001")
	require.NoError(t, err)

	account, err := f.storage.CreateAccount(ctx, repository.CreateAccountParams{
		UserID:   user.ID,
		Number:   "670000001",
		Provider: models.ProviderMTNMoMo,
	})
	require.NoError(t, err)

	return account
}

func syncEnv(accountID uuid.UUID, provider string) Envelope {
	return Envelope{
		ID:      uuid.New(),
		Class:   ClassSyncBalance,
		Message: SyncBalanceMessage{AccountID: accountID, Provider: provider},
	}
}

func TestSyncBalanceHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("stores balance and sync time", func(t *testing.T) {
		f := newSyncFixture()
		account := f.seedAccount(t)

		err := f.handler.Handle(ctx, syncEnv(account.ID, models.ProviderMTNMoMo))
		require.NoError(t, err)

		stored, err := f.storage.GetAccount(ctx, account.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.Balance)
		require.True(t, stored.Balance.Equal(decimal.NewFromInt(42_000)))
		require.NotNil(t, stored.LastSync)
	})

	t.Run("unknown account is permanent", func(t *testing.T) {
		f := newSyncFixture()

		err := f.handler.Handle(ctx, syncEnv(uuid.New(), models.ProviderMTNMoMo))

		require.Error(t, err)
		require.True(t, apperrors.IsPermanent(err))
		require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
	})

	t.Run("unsupported provider is permanent", func(t *testing.T) {
		f := newSyncFixture()
		account := f.seedAccount(t)

		err := f.handler.Handle(ctx, syncEnv(account.ID, models.ProviderOrangeMoney))

		require.Error(t, err)
		require.True(t, apperrors.IsPermanent(err))
	})

	t.Run("sync drops the cached snapshot", func(t *testing.T) {
		f := newSyncFixture()
		account := f.seedAccount(t)

		// Prime the snapshot cache
		value, err := f.handler.CachedBalance(ctx, &account)
		require.NoError(t, err)
		require.Equal(t, "42000", value)
		require.Equal(t, 1, f.gw.BalanceCalls)

		// Cached read does not touch the gateway
		_, err = f.handler.CachedBalance(ctx, &account)
		require.NoError(t, err)
		require.Equal(t, 1, f.gw.BalanceCalls)

		require.NoError(t, f.handler.Handle(ctx, syncEnv(account.ID, models.ProviderMTNMoMo)))

		// Snapshot was invalidated, the next read recomputes
		f.gw.Balance = decimal.NewFromInt(40_000)
		value, err = f.handler.CachedBalance(ctx, &account)
		require.NoError(t, err)
		require.Equal(t, "40000", value)
	})

	t.Run("failed balance fetch is retried", func(t *testing.T) {
		f := newSyncFixture()
		account := f.seedAccount(t)
		f.gw.BalanceErr = context.DeadlineExceeded

		err := f.handler.Handle(ctx, syncEnv(account.ID, models.ProviderMTNMoMo))

		require.Error(t, err)
		require.False(t, apperrors.IsPermanent(err))

		stored, getErr := f.storage.GetAccount(ctx, account.ID)
		require.NoError(t, getErr)
		require.Nil(t, stored.Balance, "failed sync must not write a balance")
	})
}
