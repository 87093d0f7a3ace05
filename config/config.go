package config

import (
	"fmt"

	"github.com/kbukum/resclient/gateway/httpgateway"
	"github.com/kbukum/resclient/middleware"
	"github.com/kbukum/resclient/transport"
)

// Config is the configuration shared by every client built from it.
type Config struct {
	// MaxMiddlewareStackExecutionAllowed bounds full stack runs per call,
	// the first run included. Defaults to 2.
	MaxMiddlewareStackExecutionAllowed int `yaml:"max_middleware_stack_execution_allowed" mapstructure:"max_middleware_stack_execution_allowed"`

	// GatewayConfigs are the defaults a manifest's gateway configs overlay.
	GatewayConfigs transport.GatewayConfigs `yaml:"gateway_configs" mapstructure:"gateway_configs"`

	// Gateway builds the transport of each client.
	Gateway transport.GatewayFactory `yaml:"-" mapstructure:"-"`

	// Middleware runs after manifest middleware on every client whose
	// manifest does not ignore global middleware.
	Middleware []middleware.Factory `yaml:"-" mapstructure:"-"`

	// Context is read by the clients every time they create a middleware stack.
	Context *ContextStore `yaml:"-" mapstructure:"-"`
}

// Default returns a configuration using the HTTP gateway with its defaults
// and a fresh context store.
func Default() *Config {
	cfg := &Config{
		Gateway: httpgateway.Factory(httpgateway.Config{}),
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero-value fields with sensible defaults. The
// gateway factory is left alone, so a missing gateway is still reported.
func (c *Config) ApplyDefaults() {
	if c.MaxMiddlewareStackExecutionAllowed == 0 {
		c.MaxMiddlewareStackExecutionAllowed = middleware.DefaultMaxStackExecutions
	}
	if c.Context == nil {
		c.Context = NewContextStore(nil)
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.MaxMiddlewareStackExecutionAllowed < 1 {
		return fmt.Errorf("config: max_middleware_stack_execution_allowed must be at least 1 (got: %d)",
			c.MaxMiddlewareStackExecutionAllowed)
	}
	if c.GatewayConfigs.Timeout < 0 {
		return fmt.Errorf("config: gateway_configs.timeout must not be negative")
	}
	return nil
}

// SetContext merges values into the shared context store.
func (c *Config) SetContext(values map[string]any) {
	if c.Context == nil {
		c.Context = NewContextStore(nil)
	}
	c.Context.Set(values)
}
