package backend

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/nautilusim/nautilus/internal/metrics"
	"github.com/nautilusim/nautilus/internal/store"
)

// RunPump drains the dirty set into the database on a fixed interval
// until ctx is cancelled, then performs one final full drain so
// shutdown loses nothing. Flush failures are logged, never fatal.
func (b *Backend) RunPump(ctx context.Context) error {
	ticker := time.NewTicker(b.pumpInterval)
	defer ticker.Stop()

	b.logger.Info("persistence pump started", "interval", b.pumpInterval, "batch", b.pumpBatch)
	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			for b.flush(drainCtx, b.pumpBatch) > 0 {
			}
			b.logger.Info("persistence pump stopped")
			return nil
		case <-ticker.C:
			b.flush(ctx, b.pumpBatch)
		}
	}
}

// flush pops up to limit entries from the dirty set and writes them in
// one batch. Returns the number of entries taken.
func (b *Backend) flush(ctx context.Context, limit int) int {
	b.mu.Lock()
	items := make([]store.SaveItem, 0, min(limit, len(b.dirty)))
	for uuid, entry := range b.dirty {
		if len(items) >= limit {
			break
		}
		items = append(items, store.SaveItem{User: entry.user, Detail: entry.detail})
		delete(b.dirty, uuid)
	}
	metrics.DirtyUsers.Set(float64(len(b.dirty)))
	b.mu.Unlock()

	if len(items) == 0 {
		return 0
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := b.store.SaveBatch(ctx, items)
		if err == nil {
			return struct{}{}, nil
		}
		if isBusy(err) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))
	if err != nil {
		metrics.PumpErrors.Inc()
		b.logger.Error("flush dirty users", "count", len(items), "error", err)
		return len(items)
	}
	metrics.PumpFlushes.Inc()
	b.logger.Debug("flushed dirty users", "count", len(items))
	return len(items)
}

// isBusy reports whether the error is SQLite lock contention, which a
// retry can resolve.
func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
