package builtin

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/resclient/middleware"
	"github.com/kbukum/resclient/observability"
	"github.com/kbukum/resclient/transport"
)

type tracing struct {
	mc      middleware.Context
	metrics *observability.Metrics
}

// Tracing opens a client span around each run of the rest of the stack.
// Renewed runs nest under the run that renewed them.
func Tracing() middleware.Factory {
	return func(mc middleware.Context) middleware.Middleware {
		return &tracing{mc: mc}
	}
}

// Metrics records call counts, durations, stack executions and errors on m.
// It also traces each run like Tracing.
func Metrics(m *observability.Metrics) middleware.Factory {
	return func(mc middleware.Context) middleware.Middleware {
		return &tracing{mc: mc, metrics: m}
	}
}

func (t *tracing) PrepareRequest(ctx context.Context, req *transport.Request) (*transport.Request, error) {
	if cc := observability.CallContextFromContext(ctx); cc != nil {
		cc.Execution(ctx, req.String())
	} else if t.metrics != nil {
		t.metrics.RecordExecution(ctx, t.mc.ResourceName, t.mc.ResourceMethod)
	}
	return req, nil
}

func (t *tracing) Response(ctx context.Context, next middleware.Next, _ middleware.Renew) (*transport.Response, error) {
	metrics := t.metrics
	if observability.CallContextFromContext(ctx) != nil {
		// renewed run: the outer run already counts the call
		metrics = nil
	}
	cc := observability.NewCallContext(t.mc.ClientID, t.mc.ResourceName, t.mc.ResourceMethod, metrics)
	ctx, span := cc.Start(ctx)
	resp, err := next(ctx)
	if req := requestOf(resp, err); req != nil {
		span.SetAttributes(attribute.String(observability.AttrURL, req.URL()))
	}
	cc.End(ctx, span, statusOf(resp, err), err)
	return resp, err
}
