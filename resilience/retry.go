package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	apperrors "github.com/kbukum/resclient/errors"
)

// RetryConfig configures Retry.
type RetryConfig struct {
	// MaxAttempts counts the first attempt. Values below 2 disable retries.
	MaxAttempts     int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval" mapstructure:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval" mapstructure:"max_interval"`
	Multiplier      float64       `yaml:"multiplier" mapstructure:"multiplier"`
	// Jitter is the randomization factor, 0 to 1.
	Jitter float64 `yaml:"jitter" mapstructure:"jitter"`
	// RetryIf decides which errors are retried. Defaults to IsRetryable.
	RetryIf func(error) bool `yaml:"-" mapstructure:"-"`
	// OnRetry is called before each new attempt.
	OnRetry func(attempt int, err error, wait time.Duration) `yaml:"-" mapstructure:"-"`
}

// DefaultRetryConfig retries three times starting at 100ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
		Jitter:          0.1,
	}
}

// IsRetryable reports transient failures: retryable application errors and
// deadline overruns of a single attempt. Cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return apperrors.IsRetryable(err)
	}
	return true
}

// Retry runs fn until it succeeds, returns a non-retryable error, or
// MaxAttempts is reached. The last error is returned unwrapped.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	if cfg.MaxAttempts < 2 {
		return fn()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = IsRetryable
	}

	policy := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		policy.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		policy.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		policy.Multiplier = cfg.Multiplier
	}
	policy.RandomizationFactor = cfg.Jitter

	attempt := 0
	operation := func() (T, error) {
		attempt++
		out, err := fn()
		if err != nil && !retryIf(err) {
			return out, backoff.Permanent(err)
		}
		return out, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(cfg.MaxAttempts)),
	}
	if cfg.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			cfg.OnRetry(attempt+1, err, wait)
		}))
	}
	return backoff.Retry(ctx, operation, opts...)
}
