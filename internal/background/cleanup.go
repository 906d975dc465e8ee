package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper deletes rows that can no longer be used as of now
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

// SweepFunc adapts a repository cleanup method to Sweeper
type SweepFunc func(ctx context.Context, now time.Time) (int64, error)

func (f SweepFunc) Sweep(ctx context.Context, now time.Time) (int64, error) { return f(ctx, now) }

// CleanupManager periodically sweeps consumed or expired OTP rows and
// expired token revocations
type CleanupManager struct {
	sweepers map[string]Sweeper
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a cleanup manager. Sweepers are keyed by a name
// used in log lines.
func NewCleanupManager(sweepers map[string]Sweeper, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		sweepers: sweepers,
		logger:   logger,
		interval: interval,
		timeout:  30 * time.Second,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start sweeps once immediately and then every interval until Stop or ctx
// cancellation
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce runs every sweeper. A failing sweeper is logged and does not stop
// the others.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, cm.timeout)
	defer cancel()

	now := cm.now()
	for name, s := range cm.sweepers {
		rows, err := s.Sweep(cleanupCtx, now)
		if err != nil {
			cm.logger.Error("cleanup failed", slog.String("target", name), slog.Any("error", err))
			continue
		}
		if rows > 0 {
			cm.logger.Info("cleanup completed", slog.String("target", name), slog.Int64("rows_deleted", rows))
		}
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
