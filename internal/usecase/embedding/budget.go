package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicrag/internal/domain"
	"github.com/kailas-cloud/topicrag/internal/domain/usage"
)

// BudgetAction defines behavior once the token budget is spent.
type BudgetAction string

const (
	// BudgetActionWarn logs and lets the request through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject fails the request with domain.ErrEmbeddingQuotaExceeded.
	BudgetActionReject BudgetAction = "reject"
)

// persistTimeout bounds each write-behind call to the store.
const persistTimeout = 2 * time.Second

// BudgetStore persists budget counters. IncrBy must be additive.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// window is one rolling budget period (a UTC day or a UTC month).
type window struct {
	name   string
	limit  int64
	used   int64
	start  time.Time
	bucket func(time.Time) time.Time
	layout string
}

func (w *window) roll(now time.Time) {
	if b := w.bucket(now); b.After(w.start) {
		w.start = b
		w.used = 0
	}
}

func (w *window) exceeded() bool { return w.limit > 0 && w.used >= w.limit }

// remaining returns -1 for an unlimited window.
func (w *window) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	return max(w.limit-w.used, 0)
}

// BudgetTracker keeps embedding token usage against daily and monthly caps.
// Check never leaves memory; Record persists write-behind when a store is attached.
type BudgetTracker struct {
	mu       sync.Mutex
	daily    window
	monthly  window
	action   BudgetAction
	provider string
	store    BudgetStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewBudgetTracker creates a tracker. A zero limit means unlimited.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	b := &BudgetTracker{
		daily:    window{name: "daily", limit: dailyLimit, bucket: startOfDay, layout: "2006-01-02"},
		monthly:  window{name: "monthly", limit: monthlyLimit, bucket: startOfMonth, layout: "2006-01"},
		action:   action,
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
	b.resetClock()
	return b
}

func (b *BudgetTracker) resetClock() {
	now := b.now()
	b.daily.start = b.daily.bucket(now)
	b.monthly.start = b.monthly.bucket(now)
}

// WithStore attaches a store and seeds the counters from it.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	for _, w := range []*window{&b.daily, &b.monthly} {
		w.roll(now)
		val, err := store.Get(ctx, b.key(w, now))
		if err != nil {
			b.logger.Warn("Failed to load budget counter", zap.String("window", w.name), zap.Error(err))
			continue
		}
		w.used = val
	}
	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("monthly_used", b.monthly.used),
	)
	return b
}

func (b *BudgetTracker) key(w *window, t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, b.provider, w.name, t.Format(w.layout))
}

// Check reports whether a new request may proceed.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.daily.roll(now)
	b.monthly.roll(now)
	if !b.daily.exceeded() && !b.monthly.exceeded() {
		return nil
	}
	if b.action == BudgetActionReject {
		return domain.ErrEmbeddingQuotaExceeded
	}
	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("daily_limit", b.daily.limit),
		zap.Int64("monthly_used", b.monthly.used),
		zap.Int64("monthly_limit", b.monthly.limit),
	)
	return nil
}

// Record adds consumed tokens to both windows.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	now := b.now()
	keys := make([]string, 0, 2)
	for _, w := range []*window{&b.daily, &b.monthly} {
		w.roll(now)
		w.used += tokens
		keys = append(keys, b.key(w, now))
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	for _, k := range keys {
		if err := store.IncrBy(ctx, k, tokens); err != nil {
			b.logger.Warn("Failed to persist budget counter", zap.String("key", k), zap.Error(err))
		}
	}
}

// Snapshot returns limits and usage of both windows under one lock.
func (b *BudgetTracker) Snapshot() usage.Counters {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.daily.roll(now)
	b.monthly.roll(now)
	return usage.Counters{
		DailyLimit:   b.daily.limit,
		DailyUsed:    b.daily.used,
		MonthlyLimit: b.monthly.limit,
		MonthlyUsed:  b.monthly.used,
	}
}

// RemainingDaily returns tokens left today, -1 when unlimited.
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.daily.roll(b.now())
	return b.daily.remaining()
}

// RemainingMonthly returns tokens left this month, -1 when unlimited.
func (b *BudgetTracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.monthly.roll(b.now())
	return b.monthly.remaining()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
