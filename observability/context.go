package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/resclient/errors"
)

// CallContext holds the observability state of one client call.
type CallContext struct {
	ClientID  string
	Resource  string
	Method    string
	StartTime time.Time
	Metrics   *Metrics
}

// NewCallContext creates a call context. A nil metrics skips recording.
func NewCallContext(clientID, resource, method string, metrics *Metrics) *CallContext {
	return &CallContext{
		ClientID:  clientID,
		Resource:  resource,
		Method:    method,
		StartTime: time.Now(),
		Metrics:   metrics,
	}
}

type callContextKey struct{}

// WithCallContext stores cc in ctx.
func WithCallContext(ctx context.Context, cc *CallContext) context.Context {
	return context.WithValue(ctx, callContextKey{}, cc)
}

// CallContextFromContext returns the CallContext in ctx, or nil.
func CallContextFromContext(ctx context.Context) *CallContext {
	if cc, ok := ctx.Value(callContextKey{}).(*CallContext); ok {
		return cc
	}
	return nil
}

// Start opens the call span, stores cc in the returned context and counts
// the call as active.
func (cc *CallContext) Start(ctx context.Context) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, SpanCall, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String(AttrClientID, cc.ClientID),
		attribute.String(AttrResource, cc.Resource),
		attribute.String(AttrMethod, cc.Method),
	)
	if cc.Metrics != nil {
		cc.Metrics.RecordCallStart(ctx)
	}
	return WithCallContext(ctx, cc), span
}

// Execution records one stack run on the span and the executions counter.
func (cc *CallContext) Execution(ctx context.Context, request string) {
	trace.SpanFromContext(ctx).AddEvent("stack.execution", trace.WithAttributes(
		attribute.String("request", request)))
	if cc.Metrics != nil {
		cc.Metrics.RecordExecution(ctx, cc.Resource, cc.Method)
	}
}

// End closes the span with the outcome and records the call metrics.
func (cc *CallContext) End(ctx context.Context, span trace.Span, status int, err error) {
	duration := time.Since(cc.StartTime)

	if status > 0 {
		span.SetAttributes(semconv.HTTPStatusCode(status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		code := "UNKNOWN"
		if appErr, ok := apperrors.AsAppError(err); ok {
			code = string(appErr.Code)
		}
		span.SetAttributes(attribute.String(AttrErrorCode, code))
		if cc.Metrics != nil {
			cc.Metrics.RecordError(ctx, code, cc.Resource)
		}
	}
	span.SetAttributes(attribute.Int64(AttrDurationMs, duration.Milliseconds()))
	span.End()

	if cc.Metrics != nil {
		cc.Metrics.RecordCallEnd(ctx, cc.Resource, cc.Method, status, duration)
	}
}

// Duration returns the time elapsed since the call started.
func (cc *CallContext) Duration() time.Duration {
	return time.Since(cc.StartTime)
}
