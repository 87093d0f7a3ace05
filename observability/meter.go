package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/resclient/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string        `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string        `yaml:"service_version" mapstructure:"service_version"`
	Environment    string        `yaml:"environment" mapstructure:"environment"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval       time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns defaults for a local collector.
func DefaultMeterConfig(serviceName string) *MeterConfig {
	return &MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global meter provider exporting over OTLP HTTP.
func InitMeter(ctx context.Context, cfg *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded per client call.
type Metrics struct {
	callTotal    metric.Int64Counter
	callDuration metric.Float64Histogram
	callActive   metric.Int64UpDownCounter
	executions   metric.Int64Counter
	errorTotal   metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	callTotal, err := meter.Int64Counter("resclient.call.total",
		metric.WithDescription("Completed resource method calls"))
	if err != nil {
		return nil, fmt.Errorf("creating resclient.call.total counter: %w", err)
	}
	callDuration, err := meter.Float64Histogram("resclient.call.duration",
		metric.WithDescription("Duration of resource method calls in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating resclient.call.duration histogram: %w", err)
	}
	callActive, err := meter.Int64UpDownCounter("resclient.call.active",
		metric.WithDescription("Calls currently in flight"))
	if err != nil {
		return nil, fmt.Errorf("creating resclient.call.active gauge: %w", err)
	}
	executions, err := meter.Int64Counter("resclient.stack.executions",
		metric.WithDescription("Middleware stack runs, renewals included"))
	if err != nil {
		return nil, fmt.Errorf("creating resclient.stack.executions counter: %w", err)
	}
	errorTotal, err := meter.Int64Counter("resclient.error.total",
		metric.WithDescription("Failed calls by error code"))
	if err != nil {
		return nil, fmt.Errorf("creating resclient.error.total counter: %w", err)
	}

	return &Metrics{
		callTotal:    callTotal,
		callDuration: callDuration,
		callActive:   callActive,
		executions:   executions,
		errorTotal:   errorTotal,
	}, nil
}

// RecordCallStart counts a call as in flight.
func (m *Metrics) RecordCallStart(ctx context.Context) {
	m.callActive.Add(ctx, 1)
}

// RecordCallEnd records a completed call. A zero status means no response.
func (m *Metrics) RecordCallEnd(ctx context.Context, resource, method string, status int, duration time.Duration) {
	m.callActive.Add(ctx, -1)
	m.callTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("method", method),
		attribute.String("status", strconv.Itoa(status)),
	))
	m.callDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("method", method),
	))
}

// RecordExecution counts one stack run of a call.
func (m *Metrics) RecordExecution(ctx context.Context, resource, method string) {
	m.executions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("method", method),
	))
}

// RecordError counts a failed call by error code.
func (m *Metrics) RecordError(ctx context.Context, code, resource string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("resource", resource),
	))
}
