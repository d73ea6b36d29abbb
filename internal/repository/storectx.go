package repository

import "context"

type ctxKey struct{}

// WithStorage binds a storage to the context. The transaction middleware
// uses it to hand the tx-scoped storage down to message handlers
func WithStorage(ctx context.Context, s Storage) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the storage bound to the context, or fallback
// when none is bound (redelivered messages run outside a transaction)
func FromContext(ctx context.Context, fallback Storage) Storage {
	if s, ok := ctx.Value(ctxKey{}).(Storage); ok {
		return s
	}
	return fallback
}

// StorageFromContext is FromContext with an explicit bound flag.
// Callers that must know whether they run inside the message transaction
// (limit totals are recomputed from the database there) use this form
func StorageFromContext(ctx context.Context) (Storage, bool) {
	s, ok := ctx.Value(ctxKey{}).(Storage)
	return s, ok
}
