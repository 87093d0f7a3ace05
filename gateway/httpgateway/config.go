package httpgateway

import (
	"cmp"
	"fmt"
	"time"

	"github.com/kbukum/resclient/logger"
	"github.com/kbukum/resclient/resilience"
)

const defaultName = "http"

// Config configures the HTTP gateway.
type Config struct {
	// Name identifies the gateway in errors, logs and health reports.
	Name string `yaml:"name" mapstructure:"name"`

	// Timeout bounds a whole exchange at the http.Client level. Per-request
	// timeouts come from the request and the gateway configs instead.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are sent on every request; request headers win.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Cookies keeps a cookie jar across calls.
	Cookies bool `yaml:"cookies" mapstructure:"cookies"`

	// Nil guards are disabled.
	Retry          *resilience.RetryConfig    `yaml:"retry" mapstructure:"retry"`
	CircuitBreaker *resilience.BreakerConfig  `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	RateLimiter    *resilience.LimiterConfig  `yaml:"rate_limiter" mapstructure:"rate_limiter"`
	Bulkhead       *resilience.BulkheadConfig `yaml:"bulkhead" mapstructure:"bulkhead"`

	// Logger receives retry and breaker events. Defaults to the global logger.
	Logger *logger.Logger `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.Logger == nil {
		c.Logger = logger.WithComponent("httpgateway")
	}
	if c.CircuitBreaker != nil {
		bc := *c.CircuitBreaker
		bc.Name = cmp.Or(bc.Name, c.Name)
		c.CircuitBreaker = &bc
	}
	if c.RateLimiter != nil {
		lc := *c.RateLimiter
		lc.Name = cmp.Or(lc.Name, c.Name)
		c.RateLimiter = &lc
	}
	if c.Bulkhead != nil {
		bh := *c.Bulkhead
		bh.Name = cmp.Or(bh.Name, c.Name)
		c.Bulkhead = &bh
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("httpgateway: timeout must not be negative")
	}
	if c.Retry != nil && c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("httpgateway: retry.max_attempts must not be negative")
	}
	return c.TLS.Validate()
}
