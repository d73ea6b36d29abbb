package account

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/onepay-cm/onepay/internal/bus"
	"github.com/onepay-cm/onepay/internal/gateway"
	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/testutil"
)

type fakePublisher struct {
	messages []any
}

func (p *fakePublisher) Publish(ctx context.Context, msg any) error {
	p.messages = append(p.messages, msg)
	return nil
}

func newService() (*Service, *testutil.MemStorage, *testutil.FakeGateway, *fakePublisher) {
	storage := testutil.NewMemStorage()
	gw := testutil.NewFakeGateway()

	gateways := gateway.NewRegistry()
	gateways.Register(models.ProviderMTNMoMo, gw)
	gateways.Register(models.ProviderOrangeMoney, gw)

	publisher := &fakePublisher{}
	return NewService(storage, gateways, publisher, logger.NewNoOp()), storage, gw, publisher
}

func TestLinkAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("derives provider from prefix and verifies", func(t *testing.T) {
		s, storage, _, _ := newService()

		account, err := s.LinkAccount(ctx, uuid.New(), "677123456")
		require.NoError(t, err)

		require.Equal(t, models.ProviderMTNMoMo, account.Provider)
		require.True(t, account.IsVerified)

		stored, err := storage.GetAccount(ctx, account.ID)
		require.NoError(t, err)
		require.True(t, stored.IsVerified)
	})

	t.Run("orange prefix maps to orange money", func(t *testing.T) {
		s, _, _, _ := newService()

		account, err := s.LinkAccount(ctx, uuid.New(), "699123456")
		require.NoError(t, err)

		require.Equal(t, models.ProviderOrangeMoney, account.Provider)
	})

	t.Run("malformed number rejected", func(t *testing.T) {
		s, _, _, _ := newService()

		_, err := s.LinkAccount(ctx, uuid.New(), "12345")

		require.Error(t, err)
	})

	t.Run("camtel number has no provider", func(t *testing.T) {
		s, _, _, _ := newService()

		_, err := s.LinkAccount(ctx, uuid.New(), "622123456")

		require.Error(t, err)
	})

	t.Run("failed verification leaves account linked but unverified", func(t *testing.T) {
		s, storage, gw, _ := newService()
		gw.VerifyErr = errors.New("operator unreachable")

		account, err := s.LinkAccount(ctx, uuid.New(), "677123456")
		require.NoError(t, err, "verification failure must not block linking")

		stored, err := storage.GetAccount(ctx, account.ID)
		require.NoError(t, err)
		require.False(t, stored.IsVerified)
	})

	t.Run("inactive account stays unverified", func(t *testing.T) {
		s, storage, gw, _ := newService()
		gw.VerifyResult = false

		account, err := s.LinkAccount(ctx, uuid.New(), "677123456")
		require.NoError(t, err)

		stored, err := storage.GetAccount(ctx, account.ID)
		require.NoError(t, err)
		require.False(t, stored.IsVerified)
	})
}

func TestRequestBalanceSync(t *testing.T) {
	ctx := context.Background()

	s, _, _, publisher := newService()
	account := models.MobileMoneyAccount{ID: uuid.New(), Provider: models.ProviderMTNMoMo}

	err := s.RequestBalanceSync(ctx, &account)
	require.NoError(t, err)

	require.Len(t, publisher.messages, 1)
	msg, ok := publisher.messages[0].(bus.SyncBalanceMessage)
	require.True(t, ok)
	require.Equal(t, account.ID, msg.AccountID)
	require.Equal(t, models.ProviderMTNMoMo, msg.Provider)
}
