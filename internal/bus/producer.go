package bus

import (
	"context"
	"time"

	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/repository"
)

const (
	defaultProduceInterval = 30 * time.Second
	defaultVerifyAge       = time.Minute
	defaultVerifyBatch     = 50
)

// VerifyProducer periodically scans for PENDING transactions that have a
// gateway reference and enqueues VERIFY messages, so settlements the
// operator reports asynchronously are eventually picked up
type VerifyProducer struct {
	interval  time.Duration
	verifyAge time.Duration
	batchSize int

	storage repository.Storage
	bus     *Bus
	logger  logger.Logger
}

func NewVerifyProducer(storage repository.Storage, b *Bus, logger logger.Logger) *VerifyProducer {
	return &VerifyProducer{
		interval:  defaultProduceInterval,
		verifyAge: defaultVerifyAge,
		batchSize: defaultVerifyBatch,
		storage:   storage,
		bus:       b,
		logger:    logger,
	}
}

// Produce runs the scan loop until ctx is cancelled. The returned
// channel closes once the loop has stopped
func (p *VerifyProducer) Produce(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting verify producer", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Verify producer stopped by context")
				return

			case <-ticker.C:
				p.tick(ctx)
			}
		}
	}()

	return idleStopped
}

func (p *VerifyProducer) tick(ctx context.Context) {
	olderThan := time.Now().Add(-p.verifyAge)

	pending, err := p.storage.Transactions().ListPendingForVerification(ctx, olderThan, p.batchSize)
	if err != nil {
		p.logger.Error("Failed to list pending transactions", "error", err)
		return
	}

	for _, t := range pending {
		err := p.bus.Publish(ctx, ProcessTransactionMessage{
			TransactionID: t.ID,
			Action:        ActionVerify,
		})
		if err != nil {
			p.logger.Error("Failed to enqueue verification", "transaction_id", t.ID, "error", err)
			continue
		}

		p.logger.Debug("Verification enqueued", "transaction_id", t.ID)
	}
}
