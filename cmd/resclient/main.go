// Command resclient calls one method of a manifest-described API.
//
// Usage:
//
//	resclient -manifest github.yaml Repo.byName owner=golang repo=go
//	resclient -config resclient.yaml -token $TOKEN User.update id=7 'body={"name":"bob"}'
//	resclient -manifest github.yaml -list
//	resclient -version
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/resclient/client"
	"github.com/kbukum/resclient/config"
	apperrors "github.com/kbukum/resclient/errors"
	"github.com/kbukum/resclient/gateway/httpgateway"
	"github.com/kbukum/resclient/logger"
	"github.com/kbukum/resclient/manifest"
	"github.com/kbukum/resclient/middleware"
	"github.com/kbukum/resclient/middleware/builtin"
	"github.com/kbukum/resclient/observability"
	"github.com/kbukum/resclient/transport"
	"github.com/kbukum/resclient/version"
)

// FileConfig is the layout of the -config file.
type FileConfig struct {
	Logging                            logger.Config            `mapstructure:"logging"`
	MaxMiddlewareStackExecutionAllowed int                      `mapstructure:"max_middleware_stack_execution_allowed"`
	GatewayConfigs                     transport.GatewayConfigs `mapstructure:"gateway_configs"`
	Gateway                            httpgateway.Config       `mapstructure:"gateway"`
	// Manifest is the manifest file path; -manifest overrides it.
	Manifest string `mapstructure:"manifest"`
	// Token enables bearer auth; -token overrides it.
	Token string `mapstructure:"token"`
	// Tracing exports a span per stack run when set.
	Tracing *observability.TracerConfig `mapstructure:"tracing"`
	// Metrics exports call metrics when set. It implies tracing middleware.
	Metrics *observability.MeterConfig `mapstructure:"metrics"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("resclient", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML or JSON config file")
	manifestPath := fs.String("manifest", "", "manifest file")
	token := fs.String("token", "", "bearer token")
	list := fs.Bool("list", false, "list resources and methods")
	verbose := fs.Bool("v", false, "log requests and responses")
	showVersion := fs.Bool("version", false, "print version")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: resclient [flags] Resource.method [key=value ...]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(stdout, "resclient", version.Get())
		return 0
	}

	fc := FileConfig{}
	if *configPath != "" {
		if err := config.Load(*configPath, &fc); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	if *manifestPath != "" {
		fc.Manifest = *manifestPath
	}
	if *token != "" {
		fc.Token = *token
	}
	if *verbose {
		fc.Logging.Level = "debug"
	}
	if fc.Logging.Writer == nil {
		fc.Logging.Writer = stderr
	}
	fc.Logging.ApplyDefaults()
	if err := fc.Logging.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	log := logger.New(&fc.Logging, "resclient")

	if fc.Manifest == "" {
		fmt.Fprintln(stderr, "resclient: a manifest is required (-manifest or manifest in -config)")
		return 2
	}
	def, err := manifest.LoadFile(fc.Manifest)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	telemetry, shutdown, err := initTelemetry(ctx, fc, log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer shutdown()

	c, err := client.New(def, newConfig(fc, log, telemetry...))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer c.Close()

	if *list {
		printResources(stdout, c)
		return 0
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}
	resource, method, ok := strings.Cut(fs.Arg(0), ".")
	if !ok || resource == "" || method == "" {
		fmt.Fprintf(stderr, "resclient: expected Resource.method, got %q\n", fs.Arg(0))
		return 2
	}
	params, err := parseParams(fs.Args()[1:])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	resp, err := c.Call(ctx, resource, method, params)
	if err != nil {
		var respErr *transport.ResponseError
		if errors.As(err, &respErr) {
			printResponse(stdout, respErr.Response)
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	printResponse(stdout, resp)
	return 0
}

// initTelemetry installs the providers the tracing and metrics sections ask
// for and returns the middleware that reports to them. shutdown flushes both
// providers.
func initTelemetry(ctx context.Context, fc FileConfig, log *logger.Logger) ([]middleware.Factory, func(), error) {
	var closers []func(context.Context) error
	shutdown := func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, fn := range closers {
			if err := fn(sctx); err != nil {
				log.Warn("telemetry shutdown failed", logger.ErrorFields("shutdown", err))
			}
		}
	}

	if fc.Tracing != nil {
		tp, err := observability.InitTracer(ctx, tracerDefaults(fc.Tracing))
		if err != nil {
			return nil, shutdown, err
		}
		closers = append(closers, tp.Shutdown)
	}
	if fc.Metrics == nil {
		if fc.Tracing == nil {
			return nil, shutdown, nil
		}
		return []middleware.Factory{builtin.Tracing()}, shutdown, nil
	}

	mp, err := observability.InitMeter(ctx, meterDefaults(fc.Metrics))
	if err != nil {
		shutdown()
		return nil, func() {}, err
	}
	closers = append(closers, mp.Shutdown)
	m, err := observability.NewMetrics(observability.Meter("resclient"))
	if err != nil {
		shutdown()
		return nil, func() {}, err
	}
	return []middleware.Factory{builtin.Metrics(m)}, shutdown, nil
}

// tracerDefaults fills unset fields. Insecure is taken as written.
func tracerDefaults(in *observability.TracerConfig) *observability.TracerConfig {
	cfg := *in
	def := observability.DefaultTracerConfig("resclient")
	if cfg.ServiceName == "" {
		cfg.ServiceName = def.ServiceName
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = version.Version
	}
	if cfg.Environment == "" {
		cfg.Environment = def.Environment
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = def.SampleRate
	}
	return &cfg
}

func meterDefaults(in *observability.MeterConfig) *observability.MeterConfig {
	cfg := *in
	def := observability.DefaultMeterConfig("resclient")
	if cfg.ServiceName == "" {
		cfg.ServiceName = def.ServiceName
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = version.Version
	}
	if cfg.Environment == "" {
		cfg.Environment = def.Environment
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Interval == 0 {
		cfg.Interval = def.Interval
	}
	return &cfg
}

// newConfig builds the client config. telemetry runs outermost so its spans
// cover the rest of the stack.
func newConfig(fc FileConfig, log *logger.Logger, telemetry ...middleware.Factory) *config.Config {
	gw := fc.Gateway
	gw.Logger = log.WithComponent("httpgateway")

	mws := append([]middleware.Factory{}, telemetry...)
	mws = append(mws,
		builtin.RequestID(),
		builtin.Log(log.WithComponent("client")),
		builtin.EncodeJSON(),
	)
	if fc.Token != "" {
		mws = append(mws, builtin.BearerToken(builtin.StaticToken(fc.Token)))
	}

	cfg := &config.Config{
		MaxMiddlewareStackExecutionAllowed: fc.MaxMiddlewareStackExecutionAllowed,
		GatewayConfigs:                     fc.GatewayConfigs,
		Gateway:                            httpgateway.Factory(gw),
		Middleware:                         mws,
	}
	cfg.ApplyDefaults()
	return cfg
}

// parseParams reads key=value pairs. Values that parse as JSON are used
// decoded, anything else as a plain string.
func parseParams(args []string) (transport.Params, error) {
	params := transport.Params{}
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, apperrors.InvalidInput("params", fmt.Sprintf("expected key=value, got %q", arg))
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		params[key] = v
	}
	return params, nil
}

func printResources(w io.Writer, c *client.Client) {
	for _, r := range c.Resources() {
		fmt.Fprintf(w, "%s: %s\n", r.Name(), strings.Join(r.Methods(), ", "))
	}
}

func printResponse(w io.Writer, resp *transport.Response) {
	fmt.Fprintln(w, resp.Status())
	if !resp.IsContentTypeJSON() {
		fmt.Fprintln(w, resp.RawData())
		return
	}
	out, err := json.MarshalIndent(resp.Data(), "", "  ")
	if err != nil {
		fmt.Fprintln(w, resp.RawData())
		return
	}
	fmt.Fprintln(w, string(out))
}
