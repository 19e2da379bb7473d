package store

import (
	"context"
	"log/slog"
	"time"
)

// cleanupInterval is how often expired sessions are swept.
const cleanupInterval = 10 * time.Minute

// StartCleanupWorker launches a goroutine that periodically deletes sessions
// idle for longer than ttl. It stops when ctx is canceled.
func StartCleanupWorker(ctx context.Context, repo Repository, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := repo.DeleteExpired(ctx, ttl)
				if err != nil {
					slog.Error("Session cleanup failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("Expired sessions removed", "count", deleted)
				}
			}
		}
	}()
}
