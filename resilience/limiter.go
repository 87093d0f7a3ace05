package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/kbukum/resclient/errors"
)

// LimiterConfig configures a Limiter.
type LimiterConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	// Rate is the number of calls per second. Zero or less means unlimited.
	Rate  float64 `yaml:"rate" mapstructure:"rate"`
	Burst int     `yaml:"burst" mapstructure:"burst"`
	// MaxWait bounds how long Wait blocks. Zero waits as long as ctx allows.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// Limiter is a token-bucket rate limiter.
type Limiter struct {
	name    string
	maxWait time.Duration
	bucket  *rate.Limiter
}

// NewLimiter creates a limiter. Burst defaults to one second of rate.
func NewLimiter(cfg LimiterConfig) *Limiter {
	limit := rate.Inf
	burst := cfg.Burst
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
		if burst <= 0 {
			burst = max(1, int(cfg.Rate))
		}
	}
	return &Limiter{name: cfg.Name, maxWait: cfg.MaxWait, bucket: rate.NewLimiter(limit, burst)}
}

// Allow takes a token if one is available right now.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}

// Wait blocks until a token is available. It returns RATE_LIMITED when the
// wait would exceed MaxWait or the context ends first.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.maxWait)
		defer cancel()
	}
	if err := l.bucket.Wait(ctx); err != nil {
		return apperrors.RateLimited(l.name, err)
	}
	return nil
}
