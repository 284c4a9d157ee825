// internal/errors/service.go - Retry, backoff and failure policy for crawl operations
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Service provides retry and backoff for named operations
type Service struct {
	retryConfig   RetryConfig
	failurePolicy FailurePolicy
	retryable     func(error) bool
	throttled     func(error) bool
	sleep         func(context.Context, time.Duration) error
}

// RetryConfig defines retry behavior. Linear backoff waits
// BaseDelay*(attempt+1); otherwise BaseDelay*BackoffFactor^attempt.
// Both are capped by MaxDelay. Throttled errors wait
// ThrottleDelay*(attempt+1) instead, uncapped.
type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	BaseDelay     time.Duration `yaml:"base_delay" json:"base_delay"`
	BackoffFactor float64       `yaml:"backoff_factor" json:"backoff_factor"`
	MaxDelay      time.Duration `yaml:"max_delay" json:"max_delay"`
	ThrottleDelay time.Duration `yaml:"throttle_delay" json:"throttle_delay"`
	Linear        bool          `yaml:"linear" json:"linear"`
}

// FailurePolicy defines when a run's failures become reportable
type FailurePolicy struct {
	MaxErrorRate float64 `yaml:"max_error_rate" json:"max_error_rate"`
}

// DefaultMaxErrorRate is the failure share above which a run is reported
const DefaultMaxErrorRate = 0.3

// DefaultThrottleDelay is the base wait after a rate-limit response
const DefaultThrottleDelay = 5 * time.Second

// DefaultRetryConfig is exponential backoff from one second, capped at ten
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		BaseDelay:     time.Second,
		BackoffFactor: 2.0,
		MaxDelay:      10 * time.Second,
	}
}

// NewService creates a new error recovery service
func NewService(cfg RetryConfig) *Service {
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.ThrottleDelay <= 0 {
		cfg.ThrottleDelay = DefaultThrottleDelay
	}
	return &Service{
		retryConfig:   cfg,
		failurePolicy: FailurePolicy{MaxErrorRate: DefaultMaxErrorRate},
		retryable:     func(error) bool { return true },
		throttled:     func(error) bool { return false },
		sleep:         Sleep,
	}
}

// WithRetryable sets the predicate deciding whether an error is retried
func (s *Service) WithRetryable(fn func(error) bool) *Service {
	s.retryable = fn
	return s
}

// WithThrottled sets the predicate selecting errors that get the
// rate-limit backoff
func (s *Service) WithThrottled(fn func(error) bool) *Service {
	s.throttled = fn
	return s
}

// WithSleep replaces the backoff wait, mainly for tests
func (s *Service) WithSleep(fn func(context.Context, time.Duration) error) *Service {
	s.sleep = fn
	return s
}

// WithFailurePolicy sets the failure policy. A non-positive rate keeps
// the default.
func (s *Service) WithFailurePolicy(p FailurePolicy) *Service {
	if p.MaxErrorRate <= 0 {
		p.MaxErrorRate = DefaultMaxErrorRate
	}
	s.failurePolicy = p
	return s
}

// Config returns the retry configuration
func (s *Service) Config() RetryConfig { return s.retryConfig }

// ExecuteWithRetry runs operation until it succeeds, returns a
// non-retryable error, or MaxRetries retries are used. The wait between
// attempts honors ctx.
func (s *Service) ExecuteWithRetry(ctx context.Context, operationName string, operation func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= s.retryConfig.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt >= s.retryConfig.MaxRetries || !s.retryable(err) {
			break
		}
		if err := s.WaitAfter(ctx, err, attempt); err != nil {
			return err
		}
	}
	return fmt.Errorf("operation %s failed after %d attempts: %w", operationName, s.retryConfig.MaxRetries+1, lastErr)
}

// Delay returns the wait before retry number attempt (zero based)
func (s *Service) Delay(attempt int) time.Duration {
	var delay time.Duration
	if s.retryConfig.Linear {
		delay = s.retryConfig.BaseDelay * time.Duration(attempt+1)
	} else {
		delay = time.Duration(float64(s.retryConfig.BaseDelay) * math.Pow(s.retryConfig.BackoffFactor, float64(attempt)))
	}
	if s.retryConfig.MaxDelay > 0 && delay > s.retryConfig.MaxDelay {
		delay = s.retryConfig.MaxDelay
	}
	return delay
}

// DelayAfter returns the wait before retry number attempt following err.
// Throttled errors back off linearly from ThrottleDelay.
func (s *Service) DelayAfter(err error, attempt int) time.Duration {
	if err != nil && s.throttled(err) {
		return s.retryConfig.ThrottleDelay * time.Duration(attempt+1)
	}
	return s.Delay(attempt)
}

// Wait sleeps for Delay(attempt) or until ctx is done
func (s *Service) Wait(ctx context.Context, attempt int) error {
	return s.sleep(ctx, s.Delay(attempt))
}

// WaitAfter sleeps for DelayAfter(err, attempt) or until ctx is done
func (s *Service) WaitAfter(ctx context.Context, err error, attempt int) error {
	return s.sleep(ctx, s.DelayAfter(err, attempt))
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ShouldAbort reports whether the observed failure rate exceeds the policy
func (s *Service) ShouldAbort(failed, total int) bool {
	if total == 0 {
		return false
	}
	return float64(failed)/float64(total) > s.failurePolicy.MaxErrorRate
}

// FailurePolicy returns the configured policy
func (s *Service) FailurePolicy() FailurePolicy { return s.failurePolicy }

// GetExitCode returns the process exit code for a command error
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "config") || strings.Contains(errStr, "yaml"):
		return 2
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "no such host"):
		return 3
	case strings.Contains(errStr, "output") || strings.Contains(errStr, "write"):
		return 5
	case strings.Contains(errStr, "interrupted") || stderrors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
