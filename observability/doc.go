// Package observability provides the OpenTelemetry tracing and metrics used
// by the Tracing and Metrics middleware.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("billing"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("billing"))
//	defer mp.Shutdown(ctx)
//	metrics, err := observability.NewMetrics(observability.Meter("billing"))
//
// Per call, a CallContext ties the span to the instruments:
//
//	cc := observability.NewCallContext(clientID, "User", "byId", metrics)
//	ctx, span := cc.Start(ctx)
//	defer cc.End(ctx, span, resp.Status(), err)
package observability
