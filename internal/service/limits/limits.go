// Package limits tracks rolling daily and monthly completed-transaction
// totals per user. Totals are cached per calendar window and invalidated
// when a transaction completes; on miss they are recomputed from the
// transaction table.
package limits

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/onepay-cm/onepay/internal/cache"
)

var (
	// Limit constants in FCFA
	DailyLimit   = decimal.NewFromInt(2_000_000)
	MonthlyLimit = decimal.NewFromInt(10_000_000)
)

// completedSummer is the single repository capability the tracker needs
type completedSummer interface {
	SumCompletedAmount(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error)
}

type Tracker struct {
	cache cache.Cache

	// now is swappable in tests
	now func() time.Time
}

func NewTracker(c cache.Cache) *Tracker {
	return &Tracker{
		cache: c,
		now:   time.Now,
	}
}

// DailyTotal returns the cached sum of COMPLETED transaction amounts for
// the user since the start of the current day, recomputing on miss
func (t *Tracker) DailyTotal(ctx context.Context, repo completedSummer, userID uuid.UUID) (decimal.Decimal, error) {
	now := t.now()
	return t.cachedTotal(ctx, repo, userID, t.dailyKey(userID, now), startOfDay(now))
}

// MonthlyTotal is DailyTotal over the current calendar month
func (t *Tracker) MonthlyTotal(ctx context.Context, repo completedSummer, userID uuid.UUID) (decimal.Decimal, error) {
	now := t.now()
	return t.cachedTotal(ctx, repo, userID, t.monthlyKey(userID, now), startOfMonth(now))
}

// FreshDailyTotal bypasses the cache. Used inside the debit transaction,
// where the total must come from the same database snapshot that the
// debit will commit against
func (t *Tracker) FreshDailyTotal(ctx context.Context, repo completedSummer, userID uuid.UUID) (decimal.Decimal, error) {
	return repo.SumCompletedAmount(ctx, userID, startOfDay(t.now()))
}

// FreshMonthlyTotal is FreshDailyTotal over the current calendar month
func (t *Tracker) FreshMonthlyTotal(ctx context.Context, repo completedSummer, userID uuid.UUID) (decimal.Decimal, error) {
	return repo.SumCompletedAmount(ctx, userID, startOfMonth(t.now()))
}

// Invalidate drops the current day and month totals for the user.
// Called right after a transaction transitions to COMPLETED
func (t *Tracker) Invalidate(ctx context.Context, userID uuid.UUID) error {
	now := t.now()
	return t.cache.Delete(ctx, t.dailyKey(userID, now), t.monthlyKey(userID, now))
}

func (t *Tracker) cachedTotal(ctx context.Context, repo completedSummer, userID uuid.UUID, key string, since time.Time) (decimal.Decimal, error) {
	value, err := t.cache.GetOrCompute(ctx, key, 0, func(ctx context.Context) (string, error) {
		total, err := repo.SumCompletedAmount(ctx, userID, since)
		if err != nil {
			return "", err
		}
		return total.String(), nil
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("limit total for user %s: %w", userID, err)
	}

	total, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt cached total %q: %w", value, err)
	}

	return total, nil
}

func (t *Tracker) dailyKey(userID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("daily_transactions_%s_%s", userID, now.Format("2006-01-02"))
}

func (t *Tracker) monthlyKey(userID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("monthly_transactions_%s_%s", userID, now.Format("2006-01"))
}

func startOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func startOfMonth(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
}
