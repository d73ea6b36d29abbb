package bus

import (
	"context"

	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/repository"
)

// transactional message classes: only these are wrapped in a database
// transaction
var transactionalClasses = map[string]bool{
	ClassProcessTransaction: true,
	ClassSyncBalance:        true,
}

// TransactionMiddleware wraps first-delivery handling of transactional
// messages in one database transaction: the handler's validation, debit
// and persistence either all commit or all roll back.
//
// Redelivered envelopes pass through untouched. A redelivery means the
// previous attempt already went through this middleware; re-wrapping
// would double-begin the transaction.
func TransactionMiddleware(storage repository.Storage, logger logger.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, env Envelope) error {
			if !transactionalClasses[env.Class] || env.Redelivered {
				return next(ctx, env)
			}

			logger.Debug("Opening message transaction", "message_id", env.ID, "class", env.Class)

			err := storage.InTx(ctx, func(txStorage repository.Storage) error {
				return next(repository.WithStorage(ctx, txStorage), env)
			})
			if err != nil {
				logger.Error("Message transaction rolled back",
					"message_id", env.ID, "class", env.Class, "error", err)
				return err
			}

			logger.Debug("Message transaction committed", "message_id", env.ID, "class", env.Class)
			return nil
		}
	}
}
