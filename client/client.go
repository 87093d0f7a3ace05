package client

import (
	"context"
	"fmt"

	"github.com/kbukum/resclient/config"
	apperrors "github.com/kbukum/resclient/errors"
	"github.com/kbukum/resclient/manifest"
	"github.com/kbukum/resclient/middleware"
	"github.com/kbukum/resclient/observability"
	"github.com/kbukum/resclient/transport"
)

// Client exposes the resources of one manifest.
type Client struct {
	manifest  *manifest.Manifest
	gateway   transport.Gateway
	executor  *middleware.Executor
	resources map[string]*Resource
}

// New builds a client from def. A nil cfg selects config.Default(); the
// defaults of cfg are applied in place.
func New(def *manifest.Definition, cfg *config.Config) (*Client, error) {
	if def == nil {
		return nil, apperrors.InvalidManifest(nil)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Gateway == nil {
		return nil, apperrors.GatewayNotConfigured()
	}

	m, err := manifest.New(def, cfg)
	if err != nil {
		return nil, err
	}
	gw, err := cfg.Gateway(m.GatewayConfigs())
	if err != nil {
		return nil, fmt.Errorf("client: build gateway: %w", err)
	}
	if gw == nil {
		return nil, apperrors.GatewayNotConfigured()
	}

	c := &Client{
		manifest:  m,
		gateway:   gw,
		executor:  middleware.NewExecutor(gw, cfg.MaxMiddlewareStackExecutionAllowed),
		resources: make(map[string]*Resource),
	}
	m.EachResource(func(name string, methods []string) {
		c.resources[name] = &Resource{name: name, methods: methods, client: c}
	})
	return c, nil
}

// Manifest returns the built manifest.
func (c *Client) Manifest() *manifest.Manifest { return c.manifest }

// Gateway returns the gateway every call goes through.
func (c *Client) Gateway() transport.Gateway { return c.gateway }

// Resource looks a resource up by name.
func (c *Client) Resource(name string) (*Resource, bool) {
	r, ok := c.resources[name]
	return r, ok
}

// Resources returns the resources in name order.
func (c *Client) Resources() []*Resource {
	names := c.manifest.ResourceNames()
	out := make([]*Resource, len(names))
	for i, name := range names {
		out[i] = c.resources[name]
	}
	return out
}

// Call invokes resource.method with params.
func (c *Client) Call(ctx context.Context, resource, method string, params transport.Params) (*transport.Response, error) {
	r, ok := c.resources[resource]
	if !ok {
		return nil, apperrors.NotFound("resource", resource)
	}
	return r.Call(ctx, method, params)
}

// Health reports the client status, including the gateway's when it can
// report one.
func (c *Client) Health(ctx context.Context) observability.Health {
	if hc, ok := c.gateway.(observability.HealthChecker); ok {
		return observability.Aggregate(c.manifest.ClientID(), hc.CheckHealth(ctx))
	}
	return observability.Aggregate(c.manifest.ClientID())
}

// Close releases the gateway's resources when it holds any.
func (c *Client) Close() {
	if closer, ok := c.gateway.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Resource is a named group of methods.
type Resource struct {
	name    string
	methods []string
	client  *Client
}

// Name returns the resource name.
func (r *Resource) Name() string { return r.name }

// Methods returns the method names in sorted order.
func (r *Resource) Methods() []string {
	return append([]string(nil), r.methods...)
}

// Call invokes the named method: the request is built from the method
// descriptor and params, then a fresh middleware stack runs around the
// gateway.
func (r *Resource) Call(ctx context.Context, method string, params transport.Params) (*transport.Response, error) {
	descriptor, ok := r.client.manifest.Method(r.name, method)
	if !ok {
		return nil, apperrors.NotFound("method", r.name+"."+method)
	}
	req, err := transport.NewRequest(descriptor, params)
	if err != nil {
		return nil, err
	}
	stack := r.client.manifest.CreateMiddleware(r.name, method)
	return r.client.executor.Invoke(ctx, stack, req)
}
