package middleware

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/kbukum/resclient/errors"
	"github.com/kbukum/resclient/transport"
)

// DefaultMaxStackExecutions is the default bound on full stack runs per call,
// the first run included.
const DefaultMaxStackExecutions = 2

// Executor runs middleware stacks around a gateway. It is safe for concurrent
// use; every Invoke owns its own execution counter.
type Executor struct {
	gateway       transport.Gateway
	maxExecutions int
}

// NewExecutor creates an executor. A non-positive maxExecutions selects
// DefaultMaxStackExecutions.
func NewExecutor(gateway transport.Gateway, maxExecutions int) *Executor {
	if maxExecutions <= 0 {
		maxExecutions = DefaultMaxStackExecutions
	}
	return &Executor{gateway: gateway, maxExecutions: maxExecutions}
}

// MaxExecutions returns the loop-guard bound.
func (e *Executor) MaxExecutions() int {
	return e.maxExecutions
}

// Invoke runs stack around the gateway, starting from initial. The stack is
// reused by every renewal of this call.
func (e *Executor) Invoke(ctx context.Context, stack []Middleware, initial *transport.Request) (*transport.Response, error) {
	inv := newInvocation(e, stack, initial)
	defer inv.done.Store(true)
	return inv.run(ctx)
}

// invocation is the state of one outer call, shared by all of its renewals.
type invocation struct {
	executor      *Executor
	initial       *transport.Request
	requestHooks  []RequestHook
	responseHooks []ResponseHook
	executions    atomic.Int64
	done          atomic.Bool
}

func newInvocation(e *Executor, stack []Middleware, initial *transport.Request) *invocation {
	inv := &invocation{executor: e, initial: initial}
	for _, m := range stack {
		if h, ok := m.(RequestHook); ok {
			inv.requestHooks = append(inv.requestHooks, h)
		}
		if h, ok := m.(ResponseHook); ok {
			inv.responseHooks = append(inv.responseHooks, h)
		}
	}
	return inv
}

// run performs one full stack run. It doubles as the renew function.
func (inv *invocation) run(ctx context.Context) (*transport.Response, error) {
	if inv.done.Load() {
		return nil, errors.New(errors.ErrCodeInternal,
			"renew called after the call completed", http.StatusInternalServerError)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := inv.executions.Add(1)
	if n > int64(inv.executor.maxExecutions) {
		return nil, errors.InfiniteLoop(int(n))
	}

	final, err := inv.requestPhase(ctx)
	if err != nil {
		return nil, err
	}
	return inv.responsePhase(final)(ctx)
}

func (inv *invocation) requestPhase(ctx context.Context) (*transport.Request, error) {
	req := inv.initial
	for _, h := range inv.requestHooks {
		next, err := h.PrepareRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		if next != nil {
			req = next
		}
	}
	return req, nil
}

// responsePhase folds the response hooks right to left over the gateway call
// and returns the outermost continuation.
func (inv *invocation) responsePhase(final *transport.Request) Next {
	renew := Renew(inv.run)
	gateway := inv.executor.gateway

	chain := make([]Next, len(inv.responseHooks)+1)
	chain[len(inv.responseHooks)] = func(ctx context.Context) (*transport.Response, error) {
		return gateway.Call(ctx, final)
	}
	for i := len(inv.responseHooks) - 1; i >= 0; i-- {
		hook, next := inv.responseHooks[i], chain[i+1]
		chain[i] = func(ctx context.Context) (*transport.Response, error) {
			return hook.Response(ctx, next, renew)
		}
	}
	return chain[0]
}
