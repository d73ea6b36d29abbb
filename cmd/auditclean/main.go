// Command auditclean removes audit log records older than the retention
// window. Run it from cron, use --dry-run to preview
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
	"github.com/onepay-cm/onepay/internal/repository/postgres"
	"github.com/onepay-cm/onepay/internal/service/audit"
)

const defaultRetentionDays = 90

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("auditclean failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	var (
		databaseDSN = os.Getenv("DATABASE_URI")
		days        int
		dryRun      bool
	)

	fs := pflag.NewFlagSet("auditclean", pflag.ContinueOnError)
	fs.IntVar(&days, "days", defaultRetentionDays, "Retention window in days")
	fs.BoolVar(&dryRun, "dry-run", false, "Only count records, delete nothing")
	fs.StringVarP(&databaseDSN, "database", "d", databaseDSN, "Database connection string")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	if days <= 0 {
		return fmt.Errorf("retention must be positive, got %d days", days)
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

	auditor := audit.NewService(postgres.NewStorage(pool), log)

	retention := time.Duration(days) * 24 * time.Hour
	affected, err := auditor.Cleanup(ctx, retention, dryRun)
	if err != nil {
		return err
	}

	if dryRun {
		log.Info("Dry run, nothing deleted", "would_delete", affected, "retention_days", days)
		return nil
	}

	log.Info("Audit log cleaned", "deleted", affected, "retention_days", days)
	return nil
}
