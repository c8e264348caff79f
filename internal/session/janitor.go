package session

import (
	"context"
	"log/slog"
	"time"
)

// Janitor periodically sweeps expired sessions out of a Store.
type Janitor struct {
	store    Store
	interval time.Duration
}

// NewJanitor creates a Janitor sweeping the store at the given interval.
func NewJanitor(store Store, interval time.Duration) *Janitor {
	return &Janitor{store: store, interval: interval}
}

// Start begins the sweep loop. It blocks until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	slog.Info("session janitor started", "interval", j.interval.String())
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			if removed := j.store.DeleteExpired(ctx); removed > 0 {
				slog.Debug("swept expired sessions", "removed", removed)
			}
		}
	}
}
