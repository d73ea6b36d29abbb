package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/onepay-cm/onepay/internal/apperrors"
	"github.com/onepay-cm/onepay/internal/cache"
	"github.com/onepay-cm/onepay/internal/gateway"
	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/operator"
	"github.com/onepay-cm/onepay/internal/repository"
	"github.com/onepay-cm/onepay/internal/service/limits"
	"github.com/onepay-cm/onepay/internal/service/transaction"
	"github.com/onepay-cm/onepay/internal/testutil"
)

type processFixture struct {
	storage *testutil.MemStorage
	gw      *testutil.FakeGateway
	manager *transaction.Manager
	handler *ProcessTransactionHandler
}

func newProcessFixture() *processFixture {
	storage := testutil.NewMemStorage()
	gw := testutil.NewFakeGateway()

	gateways := gateway.NewRegistry()
	gateways.Register(models.ProviderMTNMoMo, gw)

	tracker := limits.NewTracker(cache.NewMemory())
	validator := transaction.NewValidator(storage, tracker, logger.NewNoOp())
	manager := transaction.NewManager(storage, validator, tracker, nil, logger.NewNoOp())

	return &processFixture{
		storage: storage,
		gw:      gw,
		manager: manager,
		handler: NewProcessTransactionHandler(storage, manager, gateways, logger.NewNoOp()),
	}
}

// seedPending persists a user, verified MTN account with balance and a
// PENDING transaction of the given amount
func (f *processFixture) seedPending(t *testing.T, transactionType string, amount, balance int64) models.Transaction {
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
	f.storage.SetVerified(account.ID, true)
	f.storage.SetBalance(account.ID, decimal.NewFromInt(balance))

	created, err := f.storage.CreateTransaction(ctx, repository.CreateTransactionParams{
		UserID:          user.ID,
		Type:            transactionType,
		Amount:          decimal.NewFromInt(amount),
		RecipientNumber: "677123456",
		Operator:        operator.MTN,
		SourceAccountID: &account.ID,
	})
	require.NoError(t, err)

	return created
}

func processEnv(transactionID uuid.UUID, action string) Envelope {
	return Envelope{
		ID:      uuid.New(),
		Class:   ClassProcessTransaction,
		Message: ProcessTransactionMessage{TransactionID: transactionID, Action: action},
	}
}

func TestProcessTransactionHandler_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("completes a valid money transfer", func(t *testing.T) {
		f := newProcessFixture()
		tr := f.seedPending(t, models.TransactionTypeMoneyTransfer, 10_000, 20_000)

		err := f.handler.Handle(ctx, processEnv(tr.ID, ActionProcess))
		require.NoError(t, err)

		stored, err := f.storage.GetTransaction(ctx, tr.ID)
		require.NoError(t, err)
		require.Equal(t, models.TransactionStatusCompleted, stored.Status)
		require.True(t, stored.Fees.Equal(decimal.NewFromInt(200)), "fee for 10000 must be 200")
		require.True(t, stored.SourceAccount.Balance.Equal(decimal.NewFromInt(9_800)),
			"balance must drop by amount plus fees, got %s", stored.SourceAccount.Balance)
		require.Equal(t, 1, f.gw.TransferCalls)
	})

	t.Run("credit purchase goes through airtime", func(t *testing.T) {
		f := newProcessFixture()
		tr := f.seedPending(t, models.TransactionTypeCreditPurchase, 1_000, 20_000)

		err := f.handler.Handle(ctx, processEnv(tr.ID, ActionProcess))
		require.NoError(t, err)

		require.Equal(t, 1, f.gw.AirtimeCalls)
		require.Equal(t, 0, f.gw.TransferCalls)
	})

	t.Run("validation failure consumes the message and fails the transaction", func(t *testing.T) {
		f := newProcessFixture()
		tr := f.seedPending(t, models.TransactionTypeMoneyTransfer, 10_000, 20_000)
		f.storage.SetVerified(*sourceAccountID(t, f, tr.ID), false)

		err := f.handler.Handle(ctx, processEnv(tr.ID, ActionProcess))
		require.NoError(t, err, "validation failure is a terminal outcome, not a retryable error")

		stored, err := f.storage.GetTransaction(ctx, tr.ID)
		require.NoError(t, err)
		require.Equal(t, models.TransactionStatusFailed, stored.Status)

		failed, ok := f.storage.FailedFor(tr.ID)
		require.True(t, ok)
		require.Equal(t, "transaction failed validation", failed.Reason)
		require.Equal(t, 0, f.gw.TransferCalls, "gateway must not be called for an invalid transaction")
	})

	t.Run("gateway decline is retried", func(t *testing.T) {
		f := newProcessFixture()
		f.gw.TransferOK = false
		tr := f.seedPending(t, models.TransactionTypeMoneyTransfer, 10_000, 20_000)

		err := f.handler.Handle(ctx, processEnv(tr.ID, ActionProcess))

		require.Error(t, err)
		require.False(t, apperrors.IsPermanent(err), "a decline may be transient, leave it retryable")

		stored, getErr := f.storage.GetTransaction(ctx, tr.ID)
		require.NoError(t, getErr)
		require.Equal(t, models.TransactionStatusPending, stored.Status)
	})

	t.Run("gateway error is retried", func(t *testing.T) {
		f := newProcessFixture()
		f.gw.TransferErr = errors.New("connection reset")
		tr := f.seedPending(t, models.TransactionTypeMoneyTransfer, 10_000, 20_000)

		err := f.handler.Handle(ctx, processEnv(tr.ID, ActionProcess))

		require.Error(t, err)
		require.False(t, apperrors.IsPermanent(err))
	})

	t.Run("unknown transaction is permanent", func(t *testing.T) {
		f := newProcessFixture()

		err := f.handler.Handle(ctx, processEnv(uuid.New(), ActionProcess))

		require.Error(t, err)
		require.True(t, apperrors.IsPermanent(err))
		require.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
	})

	t.Run("unexpected message type is permanent", func(t *testing.T) {
		f := newProcessFixture()

		err := f.handler.Handle(ctx, Envelope{
			ID:      uuid.New(),
			Class:   ClassProcessTransaction,
			Message: SendNotificationMessage{NotificationID: uuid.New()},
		})

		require.Error(t, err)
		require.True(t, apperrors.IsPermanent(err))
	})

	t.Run("unsupported provider is permanent", func(t *testing.T) {
		f := newProcessFixture()
		tr := f.seedPending(t, models.TransactionTypeMoneyTransfer, 10_000, 20_000)

		// Reseed the account with a provider nothing serves
		account := tr.SourceAccount
		account.Provider = "UNKNOWN_WALLET"
		require.NoError(t, f.storage.SaveAccount(ctx, account))

		err := f.handler.Handle(ctx, processEnv(tr.ID, ActionProcess))

		require.Error(t, err)
		require.True(t, apperrors.IsPermanent(err))
		require.ErrorIs(t, err, apperrors.ErrUnsupportedProvider)
	})
}

func TestProcessTransactionHandler_Verify(t *testing.T) {
	ctx := context.Background()
	reference := "gw-ref-42"

	withReference := func(t *testing.T, f *processFixture, tr *models.Transaction) {
		t.Helper()
		tr.Reference = &reference
		require.NoError(t, f.storage.SaveTransaction(ctx, tr))
	}

	t.Run("settled at operator completes the transaction", func(t *testing.T) {
		f := newProcessFixture()
		operatorRef := "op-ref-77"
		f.gw.Status = gateway.PaymentStatus{
			Status:            models.TransactionStatusCompleted,
			OperatorReference: &operatorRef,
		}
		tr := f.seedPending(t, models.TransactionTypeMoneyTransfer, 10_000, 20_000)
		withReference(t, f, &tr)

		err := f.handler.Handle(ctx, processEnv(tr.ID, ActionVerify))
		require.NoError(t, err)

		stored, err := f.storage.GetTransaction(ctx, tr.ID)
		require.NoError(t, err)
		require.Equal(t, models.TransactionStatusCompleted, stored.Status)
		require.NotNil(t, stored.OperatorReference)
		require.Equal(t, operatorRef, *stored.OperatorReference)
		require.True(t, stored.Fees.Equal(decimal.NewFromInt(200)),
			"fee must be attached even when settlement comes through verification, got %s", stored.Fees)
		require.True(t, stored.SourceAccount.Balance.Equal(decimal.NewFromInt(9_800)),
			"debit must include the fee, got %s", stored.SourceAccount.Balance)
	})

	t.Run("settles an account that was never synced", func(t *testing.T) {
		f := newProcessFixture()
		f.gw.Status = gateway.PaymentStatus{Status: models.TransactionStatusCompleted}
		tr := f.seedPending(t, models.TransactionTypeMoneyTransfer, 10_000, 20_000)
		withReference(t, f, &tr)
		f.storage.ClearBalance(tr.SourceAccount.ID)

		err := f.handler.Handle(ctx, processEnv(tr.ID, ActionVerify))
		require.NoError(t, err)

		stored, err := f.storage.GetTransaction(ctx, tr.ID)
		require.NoError(t, err)
		require.Equal(t, models.TransactionStatusCompleted, stored.Status)
		require.Nil(t, stored.SourceAccount.Balance,
			"no snapshot to debit, the next sync fetches the settled balance")
	})

	t.Run("failed at operator fails the transaction", func(t *testing.T) {
		f := newProcessFixture()
		f.gw.Status = gateway.PaymentStatus{
			Status:  models.TransactionStatusFailed,
			Message: "insufficient funds at operator",
		}
		tr := f.seedPending(t, models.TransactionTypeMoneyTransfer, 10_000, 20_000)
		withReference(t, f, &tr)

		err := f.handler.Handle(ctx, processEnv(tr.ID, ActionVerify))
		require.NoError(t, err)

		failed, ok := f.storage.FailedFor(tr.ID)
		require.True(t, ok)
		require.Equal(t, "insufficient funds at operator", failed.Reason)
	})

	t.Run("still pending leaves the transaction untouched", func(t *testing.T) {
		f := newProcessFixture()
		f.gw.Status = gateway.PaymentStatus{Status: models.TransactionStatusPending}
		tr := f.seedPending(t, models.TransactionTypeMoneyTransfer, 10_000, 20_000)
		withReference(t, f, &tr)

		err := f.handler.Handle(ctx, processEnv(tr.ID, ActionVerify))
		require.NoError(t, err)

		stored, err := f.storage.GetTransaction(ctx, tr.ID)
		require.NoError(t, err)
		require.Equal(t, models.TransactionStatusPending, stored.Status)
	})

	t.Run("missing reference is permanent", func(t *testing.T) {
		f := newProcessFixture()
		tr := f.seedPending(t, models.TransactionTypeMoneyTransfer, 10_000, 20_000)

		err := f.handler.Handle(ctx, processEnv(tr.ID, ActionVerify))

		require.Error(t, err)
		require.True(t, apperrors.IsPermanent(err))
	})
}

func TestProcessTransactionHandler_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("pending transaction is cancelled", func(t *testing.T) {
		f := newProcessFixture()
		tr := f.seedPending(t, models.TransactionTypeMoneyTransfer, 10_000, 20_000)

		err := f.handler.Handle(ctx, processEnv(tr.ID, ActionCancel))
		require.NoError(t, err)

		stored, err := f.storage.GetTransaction(ctx, tr.ID)
		require.NoError(t, err)
		require.Equal(t, models.TransactionStatusFailed, stored.Status)

		failed, ok := f.storage.FailedFor(tr.ID)
		require.True(t, ok)
		require.Equal(t, "transaction cancelled by the system", failed.Reason)
	})

	t.Run("completed transaction cannot be cancelled", func(t *testing.T) {
		f := newProcessFixture()
		tr := f.seedPending(t, models.TransactionTypeMoneyTransfer, 10_000, 20_000)
		require.NoError(t, f.handler.Handle(ctx, processEnv(tr.ID, ActionProcess)))

		err := f.handler.Handle(ctx, processEnv(tr.ID, ActionCancel))

		require.Error(t, err)
		require.True(t, apperrors.IsPermanent(err))
	})
}

func TestTerminalFailureHook(t *testing.T) {
	ctx := context.Background()

	t.Run("fails a stuck pending transaction", func(t *testing.T) {
		f := newProcessFixture()
		tr := f.seedPending(t, models.TransactionTypeMoneyTransfer, 10_000, 20_000)
		hook := TerminalFailureHook(f.storage, f.manager, logger.NewNoOp())

		hook(ctx, processEnv(tr.ID, ActionProcess), errors.New("gateway kept timing out"))

		stored, err := f.storage.GetTransaction(ctx, tr.ID)
		require.NoError(t, err)
		require.Equal(t, models.TransactionStatusFailed, stored.Status)

		failed, ok := f.storage.FailedFor(tr.ID)
		require.True(t, ok)
		require.Contains(t, failed.Reason, "retries exhausted")
		require.Contains(t, failed.Reason, "gateway kept timing out")
	})

	t.Run("terminal transaction left untouched", func(t *testing.T) {
		f := newProcessFixture()
		tr := f.seedPending(t, models.TransactionTypeMoneyTransfer, 10_000, 20_000)
		require.NoError(t, f.handler.Handle(ctx, processEnv(tr.ID, ActionProcess)))
		hook := TerminalFailureHook(f.storage, f.manager, logger.NewNoOp())

		hook(ctx, processEnv(tr.ID, ActionProcess), errors.New("late failure"))

		stored, err := f.storage.GetTransaction(ctx, tr.ID)
		require.NoError(t, err)
		require.Equal(t, models.TransactionStatusCompleted, stored.Status, "completed outcome must win")
		_, ok := f.storage.FailedFor(tr.ID)
		require.False(t, ok)
	})

	t.Run("ignores other message classes", func(t *testing.T) {
		f := newProcessFixture()
		hook := TerminalFailureHook(f.storage, f.manager, logger.NewNoOp())

		hook(ctx, Envelope{
			ID:      uuid.New(),
			Class:   ClassSendNotification,
			Message: SendNotificationMessage{NotificationID: uuid.New()},
		}, errors.New("whatever"))
		// Nothing to assert beyond not panicking on a foreign message
	})
}

func sourceAccountID(t *testing.T, f *processFixture, transactionID uuid.UUID) *uuid.UUID {
	t.Helper()

	tr, err := f.storage.GetTransaction(context.Background(), transactionID)
	require.NoError(t, err)
	require.NotNil(t, tr.SourceAccount)
	return &tr.SourceAccount.ID
}
