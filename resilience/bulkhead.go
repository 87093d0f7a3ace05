package resilience

import (
	"context"
	"time"

	apperrors "github.com/kbukum/resclient/errors"
)

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	Name          string `yaml:"name" mapstructure:"name"`
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	// MaxWait is how long to wait for a slot. Zero fails immediately.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// Bulkhead caps the number of calls in flight.
type Bulkhead struct {
	name    string
	maxWait time.Duration
	slots   chan struct{}
}

// NewBulkhead creates a bulkhead. MaxConcurrent defaults to 10.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	return &Bulkhead{name: cfg.Name, maxWait: cfg.MaxWait, slots: make(chan struct{}, cfg.MaxConcurrent)}
}

// Do runs fn in a slot; a full bulkhead yields SERVICE_UNAVAILABLE.
func Do[T any](ctx context.Context, b *Bulkhead, fn func() (T, error)) (T, error) {
	var zero T
	if err := b.acquire(ctx); err != nil {
		return zero, err
	}
	defer func() { <-b.slots }()
	return fn()
}

// InUse returns the number of occupied slots.
func (b *Bulkhead) InUse() int { return len(b.slots) }

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	default:
	}
	if b.maxWait <= 0 {
		return apperrors.ServiceUnavailable(b.name).WithDetail("bulkhead", "full")
	}

	timer := time.NewTimer(b.maxWait)
	defer timer.Stop()
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-timer.C:
		return apperrors.ServiceUnavailable(b.name).WithDetail("bulkhead", "wait timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}
