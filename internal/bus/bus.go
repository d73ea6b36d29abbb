// Package bus is the in-process message bus driving asynchronous
// transaction processing and balance synchronization. One envelope is
// handled at a time per worker; workers run concurrently across
// different messages. Transient failures are redelivered with backoff,
// permanent failures are dropped after logging, exhausted retries go to
// the dead-letter hook.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/onepay-cm/onepay/internal/apperrors"
	"github.com/onepay-cm/onepay/internal/logger"
)

const (
	defaultCountWorkers = 10
	defaultQueueSize    = 1024
	defaultMaxRetries   = 5
	defaultRetryDelay   = 2 * time.Second
)

// DeadLetterFunc is invoked when an envelope exhausted its retries
type DeadLetterFunc func(ctx context.Context, env Envelope, err error)

type Config struct {
	CountWorkers int
	QueueSize    int
	MaxRetries   int
	RetryDelay   time.Duration
}

type Bus struct {
	countWorkers int
	maxRetries   int
	retryDelay   time.Duration

	queue      chan Envelope
	handlers   map[string]HandlerFunc
	middleware []Middleware
	deadLetter DeadLetterFunc

	validate *validator.Validate
	logger   logger.Logger

	mu      sync.Mutex
	started bool
}

func New(cfg Config, logger logger.Logger) *Bus {
	if cfg.CountWorkers <= 0 {
		cfg.CountWorkers = defaultCountWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	return &Bus{
		countWorkers: cfg.CountWorkers,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		queue:        make(chan Envelope, cfg.QueueSize),
		handlers:     make(map[string]HandlerFunc),
		validate:     validator.New(),
		logger:       logger,
	}
}

// Handle registers the handler for a message class. Must be called
// before Run
func (b *Bus) Handle(class string, h HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[class] = h
}

// Use appends middleware. The first middleware added is the outermost
func (b *Bus) Use(mw Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middleware = append(b.middleware, mw)
}

// OnDeadLetter sets the retry-exhaustion hook
func (b *Bus) OnDeadLetter(fn DeadLetterFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deadLetter = fn
}

// Publish validates the message and enqueues it for processing
func (b *Bus) Publish(ctx context.Context, msg any) error {
	class := MessageClass(msg)
	if class == "" {
		return fmt.Errorf("unknown message type %T", msg)
	}

	if err := b.validate.Struct(msg); err != nil {
		return fmt.Errorf("invalid %s: %w", class, err)
	}

	env := Envelope{
		ID:         uuid.New(),
		Class:      class,
		Message:    msg,
		EnqueuedAt: time.Now(),
	}

	select {
	case b.queue <- env:
		b.logger.Debug("Message published", "message_id", env.ID, "class", class)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the worker pool and blocks new starts. The returned channel
// closes when every worker has stopped after ctx cancellation
func (b *Bus) Run(ctx context.Context) <-chan struct{} {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		panic("bus already started")
	}
	b.started = true
	handler := chain(b.dispatch, b.middleware...)
	b.mu.Unlock()

	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < b.countWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.worker(ctx, handler)
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		b.logger.Debug("Bus stopped")
	}()

	return idleStopped
}

func (b *Bus) worker(ctx context.Context, handler HandlerFunc) {
	for {
		select {
		case <-ctx.Done():
			return

		case env := <-b.queue:
			err := handler(ctx, env)

			switch {
			case err == nil:
				// done

			case apperrors.IsPermanent(err):
				b.logger.Error("Message failed permanently, not retrying",
					"message_id", env.ID, "class", env.Class, "error", err)

			case env.Attempts+1 >= b.maxRetries:
				b.logger.Error("Message retries exhausted",
					"message_id", env.ID, "class", env.Class, "attempts", env.Attempts+1, "error", err)
				if b.deadLetter != nil {
					b.deadLetter(ctx, env, err)
				}

			default:
				b.logger.Warn("Message failed, scheduling redelivery",
					"message_id", env.ID, "class", env.Class, "attempt", env.Attempts+1, "error", err)
				b.requeue(ctx, env)
			}
		}
	}
}

// requeue schedules redelivery with exponential backoff. The redelivered
// envelope keeps its ID so audit entries correlate across attempts
func (b *Bus) requeue(ctx context.Context, env Envelope) {
	env.Attempts++
	env.Redelivered = true
	delay := b.retryDelay << (env.Attempts - 1)

	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(delay):
			select {
			case b.queue <- env:
			case <-ctx.Done():
			}
		}
	}()
}

// dispatch routes the envelope to its registered handler
func (b *Bus) dispatch(ctx context.Context, env Envelope) error {
	handler, ok := b.handlers[env.Class]
	if !ok {
		return apperrors.Permanentf("no handler registered for %s", env.Class)
	}

	return handler(ctx, env)
}
