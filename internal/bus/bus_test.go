package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/onepay-cm/onepay/internal/apperrors"
	"github.com/onepay-cm/onepay/internal/logger"
)

// recorder collects envelopes a handler saw and returns scripted errors,
// one per attempt (last error repeats)
type recorder struct {
	mu        sync.Mutex
	envelopes []Envelope
	errs      []error
}

func (r *recorder) Handle(ctx context.Context, env Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.envelopes = append(r.envelopes, env)

	if len(r.errs) == 0 {
		return nil
	}
	err := r.errs[0]
	if len(r.errs) > 1 {
		r.errs = r.errs[1:]
	}
	return err
}

func (r *recorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.envelopes)
}

func (r *recorder) envelope(i int) Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.envelopes[i]
}

func newTestBus(maxRetries int) *Bus {
	return New(Config{
		CountWorkers: 2,
		QueueSize:    16,
		MaxRetries:   maxRetries,
		RetryDelay:   time.Millisecond,
	}, logger.NewNoOp())
}

func TestBusPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown message type rejected", func(t *testing.T) {
		b := newTestBus(3)

		err := b.Publish(ctx, struct{ Name string }{Name: "nope"})

		require.Error(t, err)
		require.Contains(t, err.Error(), "unknown message type")
	})

	t.Run("message validated before enqueue", func(t *testing.T) {
		b := newTestBus(3)

		err := b.Publish(ctx, ProcessTransactionMessage{
			TransactionID: uuid.New(),
			Action:        "EXPLODE",
		})

		require.Error(t, err, "action outside the allowed set must be rejected")
	})

	t.Run("zero transaction id rejected", func(t *testing.T) {
		b := newTestBus(3)

		err := b.Publish(ctx, ProcessTransactionMessage{Action: ActionProcess})

		require.Error(t, err)
	})
}

func TestBusDelivery(t *testing.T) {
	start := func(t *testing.T, b *Bus) context.Context {
		t.Helper()
		ctx, cancel := context.WithCancel(context.Background())
		stopped := b.Run(ctx)
		t.Cleanup(func() {
			cancel()
			<-stopped
		})
		return ctx
	}

	t.Run("delivers to registered handler", func(t *testing.T) {
		b := newTestBus(3)
		rec := &recorder{}
		b.Handle(ClassSendNotification, rec.Handle)
		ctx := start(t, b)

		msg := SendNotificationMessage{NotificationID: uuid.New()}
		require.NoError(t, b.Publish(ctx, msg))

		require.Eventually(t, func() bool { return rec.calls() == 1 }, time.Second, time.Millisecond)
		require.Equal(t, msg, rec.envelope(0).Message)
		require.Equal(t, ClassSendNotification, rec.envelope(0).Class)
		require.False(t, rec.envelope(0).Redelivered)
	})

	t.Run("transient failure redelivered with flag", func(t *testing.T) {
		b := newTestBus(3)
		rec := &recorder{errs: []error{errors.New("transient"), nil}}
		b.Handle(ClassSendNotification, rec.Handle)
		ctx := start(t, b)

		require.NoError(t, b.Publish(ctx, SendNotificationMessage{NotificationID: uuid.New()}))

		require.Eventually(t, func() bool { return rec.calls() == 2 }, time.Second, time.Millisecond)

		first, second := rec.envelope(0), rec.envelope(1)
		require.False(t, first.Redelivered)
		require.True(t, second.Redelivered, "requeued envelope must be marked redelivered")
		require.Equal(t, 1, second.Attempts)
		require.Equal(t, first.ID, second.ID, "envelope keeps its id across redeliveries")
	})

	t.Run("permanent failure not retried", func(t *testing.T) {
		b := newTestBus(3)
		rec := &recorder{errs: []error{apperrors.Permanentf("broken for good")}}
		b.Handle(ClassSendNotification, rec.Handle)
		ctx := start(t, b)

		require.NoError(t, b.Publish(ctx, SendNotificationMessage{NotificationID: uuid.New()}))

		require.Eventually(t, func() bool { return rec.calls() == 1 }, time.Second, time.Millisecond)

		// Give the bus a chance to (wrongly) redeliver
		time.Sleep(20 * time.Millisecond)
		require.Equal(t, 1, rec.calls())
	})

	t.Run("exhausted retries go to dead letter", func(t *testing.T) {
		b := newTestBus(2)
		rec := &recorder{errs: []error{errors.New("always failing")}}
		b.Handle(ClassSendNotification, rec.Handle)

		var mu sync.Mutex
		var dead []Envelope
		b.OnDeadLetter(func(ctx context.Context, env Envelope, err error) {
			mu.Lock()
			defer mu.Unlock()
			dead = append(dead, env)
		})

		ctx := start(t, b)
		require.NoError(t, b.Publish(ctx, SendNotificationMessage{NotificationID: uuid.New()}))

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(dead) == 1
		}, time.Second, time.Millisecond)

		require.Equal(t, 2, rec.calls(), "two attempts for max retries of two")
	})

	t.Run("unroutable message goes permanent", func(t *testing.T) {
		b := newTestBus(3)
		// No handler registered for the class
		rec := &recorder{}
		b.Handle(ClassSyncBalance, rec.Handle)
		ctx := start(t, b)

		require.NoError(t, b.Publish(ctx, SendNotificationMessage{NotificationID: uuid.New()}))

		// Nothing to observe directly, the envelope must simply not loop.
		// Dispatch errors for missing handlers are permanent, so the sync
		// handler must never see the message
		time.Sleep(20 * time.Millisecond)
		require.Equal(t, 0, rec.calls())
	})
}

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, env Envelope) error {
				order = append(order, name)
				return next(ctx, env)
			}
		}
	}

	h := chain(func(ctx context.Context, env Envelope) error {
		order = append(order, "handler")
		return nil
	}, mw("outer"), mw("inner"))

	err := h(context.Background(), Envelope{})

	require.NoError(t, err)
	require.Equal(t, []string{"outer", "inner", "handler"}, order, "first middleware must be outermost")
}
