package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/kosanku/kosanku-api/internal/models"
)

// RateStateStore is the ephemeral fail-counter / suspension store. Entries
// must expire on their own; IncrementFailures must be atomic.
type RateStateStore interface {
	SuspendedUntil(ctx context.Context, key string) (*time.Time, error)
	Suspend(ctx context.Context, key string, until time.Time) error
	IncrementFailures(ctx context.Context, key string, ttl time.Duration) (int, error)
	ClearFailures(ctx context.Context, key string) error
}

// LockoutPolicy holds the timing half of the lockout rules. Thresholds are
// passed per call since each channel has its own.
type LockoutPolicy struct {
	SuspendDuration time.Duration
	FailCounterTTL  time.Duration
}

// RateLimitService applies fail-counter and suspension rules to a rate key
type RateLimitService struct {
	store  RateStateStore
	policy LockoutPolicy
	logger *slog.Logger
	now    func() time.Time
}

func NewRateLimitService(store RateStateStore, policy LockoutPolicy, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// Check returns a *models.RetryError wrapping ErrAccountLocked while the key
// is suspended. A store failure is logged and treated as not suspended.
func (s *RateLimitService) Check(ctx context.Context, key string) error {
	until, err := s.store.SuspendedUntil(ctx, key)
	if err != nil {
		s.logger.Error("failed to read suspension state", slog.String("key", key), slog.Any("error", err))
		return nil
	}
	if until == nil {
		return nil
	}

	remaining := until.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	return &models.RetryError{Err: models.ErrAccountLocked, RetryAfter: remaining}
}

// RecordFailure counts one failed attempt against max. It returns the
// attempts left, or a *models.RetryError when this failure tripped the
// suspension.
func (s *RateLimitService) RecordFailure(ctx context.Context, key string, max int) (int, error) {
	fails, err := s.store.IncrementFailures(ctx, key, s.policy.FailCounterTTL)
	if err != nil {
		return 0, err
	}

	if fails >= max {
		until := s.now().Add(s.policy.SuspendDuration)
		if err := s.store.Suspend(ctx, key, until); err != nil {
			return 0, err
		}
		s.logger.Warn("rate key suspended",
			slog.String("key", key),
			slog.Int("failed_attempts", fails),
			slog.Duration("suspend_duration", s.policy.SuspendDuration))
		return 0, &models.RetryError{Err: models.ErrAccountLocked, RetryAfter: s.policy.SuspendDuration}
	}

	return max - fails, nil
}

// Reset clears the fail counter after a successful check
func (s *RateLimitService) Reset(ctx context.Context, key string) {
	if err := s.store.ClearFailures(ctx, key); err != nil {
		s.logger.Error("failed to clear fail counter", slog.String("key", key), slog.Any("error", err))
	}
}

// SetClock overrides the time source
func (s *RateLimitService) SetClock(now func() time.Time) {
	s.now = now
}
