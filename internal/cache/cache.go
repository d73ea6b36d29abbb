// Package cache is the get-or-compute cache capability used for limit
// totals and balance snapshots. Callers must treat it as advisory only:
// every correctness-critical read is recomputed from the database inside
// the debit transaction.
package cache

import (
	"context"
	"time"
)

// ComputeFunc produces the value for a key on cache miss
type ComputeFunc func(ctx context.Context) (string, error)

type Cache interface {
	// GetOrCompute returns the value stored under key. On miss it runs
	// compute, stores the result with ttl (ttl 0 means no expiry beyond
	// explicit invalidation) and returns it
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (string, error)

	// Delete removes keys. Missing keys are not an error
	Delete(ctx context.Context, keys ...string) error
}
