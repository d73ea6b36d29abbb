// Command monitor prints a snapshot of recent bus activity: dispatch
// counts and latency per message class, recent failures and transfers
// stuck in PENDING. Run it ad hoc or from cron
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/onepay-cm/onepay/internal/db"
	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/repository/postgres"
	"github.com/onepay-cm/onepay/internal/service/audit"
)

const (
	defaultWindowHours = 1
	defaultLimit       = 1000
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("monitor failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	var (
		databaseDSN = os.Getenv("DATABASE_URI")
		hours       int
		limit       int
	)

	fs := pflag.NewFlagSet("monitor", pflag.ContinueOnError)
	fs.IntVar(&hours, "hours", defaultWindowHours, "Reporting window in hours")
	fs.IntVar(&limit, "limit", defaultLimit, "Maximum records to inspect")
	fs.StringVarP(&databaseDSN, "database", "d", databaseDSN, "Database connection string")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	if hours <= 0 {
		return fmt.Errorf("window must be positive, got %d hours", hours)
	}

	log, err := logger.New(logger.EnvDevelopment, logger.LevelInfo)
	if err != nil {
		return err
	}

	pool, err := db.ConnectAndMigrate(ctx, databaseDSN)
	if err != nil {
		return fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	defer pool.Close()

	storage := postgres.NewStorage(pool)
	auditor := audit.NewService(storage, log)

	now := time.Now()
	since := now.Add(-time.Duration(hours) * time.Hour)

	records, err := auditor.ListByDateRange(ctx, since, now, limit)
	if err != nil {
		return err
	}

	for class, s := range dispatchStats(records) {
		log.Info("Dispatch stats",
			"message_class", class,
			"count", s.count,
			"success_rate", fmt.Sprintf("%.1f%%", s.successRate()),
			"avg_ms", s.total.Milliseconds()/int64(s.count),
			"max_ms", s.max.Milliseconds(),
		)
	}

	failures, err := auditor.ListFailures(ctx, since, limit)
	if err != nil {
		return err
	}
	for _, rec := range failures {
		errText := ""
		if rec.Error != nil {
			errText = *rec.Error
		}
		log.Warn("Dispatch failure",
			"message_class", rec.MessageClass, "error", errText, "at", rec.CreatedAt)
	}

	stuck, err := storage.Transactions().ListPendingForVerification(ctx, since, limit)
	if err != nil {
		return err
	}
	log.Info("Transfers awaiting settlement longer than the window", "count", len(stuck))

	return nil
}

type classStats struct {
	count   int
	success int
	total   time.Duration
	max     time.Duration
}

func (s *classStats) successRate() float64 {
	return float64(s.success) / float64(s.count) * 100
}

func dispatchStats(records []models.AuditRecord) map[string]*classStats {
	byClass := make(map[string]*classStats)

	for _, rec := range records {
		s := byClass[rec.MessageClass]
		if s == nil {
			s = &classStats{}
			byClass[rec.MessageClass] = s
		}

		s.count++
		if rec.Success {
			s.success++
		}
		s.total += rec.Duration
		if rec.Duration > s.max {
			s.max = rec.Duration
		}
	}

	return byClass
}
