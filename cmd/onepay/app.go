package main

import (
	"context"
	"fmt"

	"github.com/onepay-cm/onepay/internal/bus"
	"github.com/onepay-cm/onepay/internal/cache"
	"github.com/onepay-cm/onepay/internal/db"
	"github.com/onepay-cm/onepay/internal/gateway"
	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/repository/postgres"
	"github.com/onepay-cm/onepay/internal/service/account"
	"github.com/onepay-cm/onepay/internal/service/audit"
	"github.com/onepay-cm/onepay/internal/service/limits"
	"github.com/onepay-cm/onepay/internal/service/notification"
	"github.com/onepay-cm/onepay/internal/service/payment"
	"github.com/onepay-cm/onepay/internal/service/transaction"
)

type App struct {
	Bus      *bus.Bus
	Producer *bus.VerifyProducer
	Accounts *account.Service
	Payments *payment.Service

	logger logger.Logger
	close  func()
}

func NewApp(ctx context.Context, c *Config) (*App, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Limits and balance snapshots live in redis when configured
	var appCache cache.Cache
	if c.RedisAddr != "" {
		redisCache := cache.NewRedis(c.RedisAddr, c.RedisPassword)
		if err := redisCache.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		appCache = redisCache
	} else {
		log.Warn("Redis address not set, using in-memory cache")
		appCache = cache.NewMemory()
	}

	// Operator gateways
	gateways := gateway.NewRegistry()
	gateways.Register(models.ProviderOrangeMoney, gateway.NewOrangeMoney(c.OrangeAddr, c.OrangeAPIKey, c.OrangeAPISecret, log))
	gateways.Register(models.ProviderMTNMoMo, gateway.NewMTNMoMo(c.MTNAddr, c.MTNSubscriptionKey, c.MTNAPIToken, log))

	// Initialize services
	tracker := limits.NewTracker(appCache)
	validator := transaction.NewValidator(storage, tracker, log)
	auditor := audit.NewService(storage, log)

	// Message bus with middleware: audit outermost so every dispatch is
	// recorded, then the transactional wrapper
	b := bus.New(bus.Config{CountWorkers: c.Workers}, log)

	notifier := notification.NewDispatcher(storage, b, log)
	manager := transaction.NewManager(storage, validator, tracker, notifier, log)

	b.Use(bus.AuditMiddleware(auditor, log))
	b.Use(bus.TransactionMiddleware(storage, log))

	b.Handle(bus.ClassProcessTransaction, bus.NewProcessTransactionHandler(storage, manager, gateways, log).Handle)
	b.Handle(bus.ClassSyncBalance, bus.NewSyncBalanceHandler(storage, gateways, appCache, log).Handle)
	b.Handle(bus.ClassSendNotification, bus.NewSendNotificationHandler(storage, log).Handle)

	b.OnDeadLetter(bus.TerminalFailureHook(storage, manager, log))

	producer := bus.NewVerifyProducer(storage, b, log)

	return &App{
		Bus:      b,
		Producer: producer,
		Accounts: account.NewService(storage, gateways, b, log),
		Payments: payment.NewService(storage, gateways, b, log),
		logger:   log,
		close:    pool.Close,
	}, nil
}

// Run starts the bus workers and the verify producer, then blocks until
// ctx is cancelled and both have drained
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting onepay")

	busStopped := a.Bus.Run(ctx)
	producerStopped := a.Producer.Produce(ctx)

	<-ctx.Done()

	<-producerStopped
	<-busStopped
	a.close()

	a.logger.Info("Stopped")
	return nil
}
