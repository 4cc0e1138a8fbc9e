// Package cleanup runs the periodic retention pass: expired long-term
// memories are deleted and stale job claims are released back to pending.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/solyn-ai/solyn/pkg/config"
)

type memoryPruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type jobReleaser interface {
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Cleaner owns the retention ticker.
type Cleaner struct {
	memories memoryPruner
	jobs     jobReleaser
	cfg      *config.CleanupConfig
	stop     chan struct{}
	done     chan struct{}
}

// New creates a Cleaner over the memory and job stores.
func New(memories memoryPruner, jobs jobReleaser, cfg *config.CleanupConfig) *Cleaner {
	return &Cleaner{
		memories: memories,
		jobs:     jobs,
		cfg:      cfg,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker loop. An immediate first pass catches work left
// over from before a restart.
func (c *Cleaner) Start() {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.cfg.Interval)
		defer ticker.Stop()

		c.RunOnce(context.Background())
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				c.RunOnce(context.Background())
			}
		}
	}()
	slog.Info("Cleanup loop started", "interval", c.cfg.Interval)
}

// Stop terminates the loop and waits for an in-progress pass to finish.
func (c *Cleaner) Stop() {
	close(c.stop)
	<-c.done
}

// RunOnce executes a single retention pass. Failures are logged; the next
// tick retries.
func (c *Cleaner) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	expired, err := c.memories.DeleteExpired(ctx)
	if err != nil {
		slog.Error("Failed to delete expired memories", "error", err)
	} else if expired > 0 {
		slog.Info("Deleted expired memories", "count", expired)
	}

	released, err := c.jobs.ReleaseStale(ctx, c.cfg.StaleJobAge)
	if err != nil {
		slog.Error("Failed to release stale jobs", "error", err)
	} else if released > 0 {
		slog.Info("Released stale job claims", "count", released)
	}
}
