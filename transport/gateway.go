package transport

import (
	"context"
	"time"
)

// Gateway performs the network call for a finalized request. Implementations
// must treat the request as read-only. Non-success statuses are reported as a
// *ResponseError carrying the response.
type Gateway interface {
	Call(ctx context.Context, req *Request) (*Response, error)
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, req *Request) (*Response, error)

// Call implements Gateway.
func (f GatewayFunc) Call(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// GatewayFactory builds the gateway of a client from its effective gateway
// configs. A nil factory, or one returning a nil gateway, leaves the client
// without a gateway.
type GatewayFactory func(configs GatewayConfigs) (Gateway, error)

// GatewayConfigs are the transport settings shared by every gateway.
type GatewayConfigs struct {
	// EmulateHTTP sends PUT, PATCH and DELETE as POST with an
	// X-HTTP-Method-Override header.
	EmulateHTTP bool `yaml:"emulate_http" mapstructure:"emulate_http"`
	// EnableHTTP408OnTimeouts turns timeouts into 408 responses instead of errors.
	EnableHTTP408OnTimeouts bool `yaml:"enable_http408_on_timeouts" mapstructure:"enable_http408_on_timeouts"`
	// Timeout applies to requests that carry no timeout of their own.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Merge returns c overlaid with the set fields of over.
func (c GatewayConfigs) Merge(over *GatewayConfigs) GatewayConfigs {
	if over == nil {
		return c
	}
	if over.EmulateHTTP {
		c.EmulateHTTP = true
	}
	if over.EnableHTTP408OnTimeouts {
		c.EnableHTTP408OnTimeouts = true
	}
	if over.Timeout > 0 {
		c.Timeout = over.Timeout
	}
	return c
}
