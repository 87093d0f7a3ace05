package middleware

import (
	"context"
	"maps"

	"github.com/kbukum/resclient/transport"
)

// Next runs the rest of the response phase: the following response hooks and
// finally the gateway call.
type Next func(ctx context.Context) (*transport.Response, error)

// Renew re-runs the whole middleware stack, request phase included, starting
// from the request the call began with.
type Renew func(ctx context.Context) (*transport.Response, error)

// RequestHook transforms the request before the response phase starts.
type RequestHook interface {
	PrepareRequest(ctx context.Context, req *transport.Request) (*transport.Request, error)
}

// ResponseHook wraps the rest of the chain.
type ResponseHook interface {
	Response(ctx context.Context, next Next, renew Renew) (*transport.Response, error)
}

// Middleware is one per-call middleware instance. The Executor checks it for
// RequestHook and ResponseHook; an instance implementing neither is a no-op.
type Middleware any

// Context describes the call a middleware instance is created for.
type Context struct {
	ResourceName   string
	ResourceMethod string
	// Context is a snapshot of the client's shared context store.
	Context  map[string]any
	ClientID string
}

// Value returns a key of the context snapshot.
func (c Context) Value(key string) (any, bool) {
	v, ok := c.Context[key]
	return v, ok
}

// WithContext returns a copy of c holding a copy of ctx.
func (c Context) WithContext(ctx map[string]any) Context {
	c.Context = maps.Clone(ctx)
	if c.Context == nil {
		c.Context = map[string]any{}
	}
	return c
}

// Factory creates a middleware instance for one call.
type Factory func(Context) Middleware

// Hooks adapts plain functions to a middleware instance. A nil field behaves
// like an absent hook.
type Hooks struct {
	OnRequest  func(ctx context.Context, req *transport.Request) (*transport.Request, error)
	OnResponse func(ctx context.Context, next Next, renew Renew) (*transport.Response, error)
}

// PrepareRequest implements RequestHook.
func (h Hooks) PrepareRequest(ctx context.Context, req *transport.Request) (*transport.Request, error) {
	if h.OnRequest == nil {
		return req, nil
	}
	return h.OnRequest(ctx, req)
}

// Response implements ResponseHook.
func (h Hooks) Response(ctx context.Context, next Next, renew Renew) (*transport.Response, error) {
	if h.OnResponse == nil {
		return next(ctx)
	}
	return h.OnResponse(ctx, next, renew)
}

// Static returns a factory that hands out the same instance to every call.
// Use it only for stateless middleware.
func Static(m Middleware) Factory {
	return func(Context) Middleware { return m }
}
