package httpgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	apperrors "github.com/kbukum/resclient/errors"
	"github.com/kbukum/resclient/logger"
	"github.com/kbukum/resclient/observability"
	"github.com/kbukum/resclient/resilience"
	"github.com/kbukum/resclient/transport"
	"github.com/kbukum/resclient/version"
)

// MethodOverrideHeader carries the real verb of an emulated request.
const MethodOverrideHeader = "X-HTTP-Method-Override"

// Gateway sends finalized requests over net/http.
type Gateway struct {
	httpClient *http.Client
	cfg        Config
	configs    transport.GatewayConfigs
	log        *logger.Logger

	breaker  *resilience.Breaker
	limiter  *resilience.Limiter
	bulkhead *resilience.Bulkhead
}

// New creates a gateway from its config and the client's gateway configs.
func New(cfg Config, configs transport.GatewayConfigs) (*Gateway, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rt := http.DefaultTransport.(*http.Transport).Clone()
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		rt.TLSClientConfig = tlsCfg
	}

	g := &Gateway{
		httpClient: &http.Client{Transport: rt, Timeout: cfg.Timeout},
		cfg:        cfg,
		configs:    configs,
		log:        cfg.Logger.WithFields(logger.Fields("gateway", cfg.Name)),
	}

	if cfg.Cookies {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("httpgateway: cookie jar: %w", err)
		}
		g.httpClient.Jar = jar
	}
	if cfg.CircuitBreaker != nil {
		bc := *cfg.CircuitBreaker
		if bc.IsFailure == nil {
			bc.IsFailure = isTransient
		}
		if bc.OnStateChange == nil {
			bc.OnStateChange = func(name string, from, to resilience.State) {
				g.log.Warn("circuit breaker state changed", logger.Fields("breaker", name, "from", from.String(), "to", to.String()))
			}
		}
		g.breaker = resilience.NewBreaker(bc)
	}
	if cfg.RateLimiter != nil {
		g.limiter = resilience.NewLimiter(*cfg.RateLimiter)
	}
	if cfg.Bulkhead != nil {
		g.bulkhead = resilience.NewBulkhead(*cfg.Bulkhead)
	}
	return g, nil
}

// Factory returns a transport.GatewayFactory building a Gateway from cfg.
func Factory(cfg Config) transport.GatewayFactory {
	return func(configs transport.GatewayConfigs) (transport.Gateway, error) {
		return New(cfg, configs)
	}
}

// Call implements transport.Gateway.
func (g *Gateway) Call(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if g.cfg.Retry == nil {
		return g.guarded(ctx, req)
	}

	rc := *g.cfg.Retry
	if rc.RetryIf == nil {
		rc.RetryIf = isTransient
	}
	if rc.OnRetry == nil {
		rc.OnRetry = func(attempt int, err error, wait time.Duration) {
			g.log.Debug("retrying request", logger.Fields(
				logger.FieldURL, req.URL(), logger.FieldAttempt, attempt,
				logger.FieldError, err.Error(), "wait", wait.String()))
		}
	}
	return resilience.Retry(ctx, rc, func() (*transport.Response, error) {
		return g.guarded(ctx, req)
	})
}

func (g *Gateway) guarded(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	send := func() (*transport.Response, error) {
		if g.bulkhead != nil {
			return resilience.Do(ctx, g.bulkhead, func() (*transport.Response, error) {
				return g.send(ctx, req)
			})
		}
		return g.send(ctx, req)
	}
	if g.breaker != nil {
		return resilience.Call(g.breaker, send)
	}
	return send()
}

// send performs one exchange under the request timeout.
func (g *Gateway) send(parent context.Context, req *transport.Request) (*transport.Response, error) {
	timeout := req.Timeout()
	if timeout <= 0 {
		timeout = g.configs.Timeout
	}
	ctx := parent
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, timeout)
		defer cancel()
	}

	httpReq, err := g.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, g.classify(parent, ctx, req, timeout, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, g.classify(parent, ctx, req, timeout, fmt.Errorf("read response body: %w", err))
	}

	out := transport.NewResponse(req, resp.StatusCode, string(body), flattenHeaders(resp.Header))
	if !out.Success() {
		return nil, &transport.ResponseError{Response: out}
	}
	return out, nil
}

func (g *Gateway) classify(parent, attempt context.Context, req *transport.Request, timeout time.Duration, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	timedOut := errors.Is(attempt.Err(), context.DeadlineExceeded)
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		timedOut = true
	}
	if !timedOut {
		return apperrors.ConnectionFailed(req.URL(), err)
	}

	if g.configs.EnableHTTP408OnTimeouts {
		msg := fmt.Sprintf("Timeout (%dms)", timeout.Milliseconds())
		resp := transport.NewResponse(req, http.StatusRequestTimeout, msg, nil, apperrors.Timeout(req.URL(), err))
		return &transport.ResponseError{Response: resp}
	}
	return apperrors.Timeout(req.URL(), err).WithDetail("timeout", timeout.String())
}

// buildRequest turns the finalized request into an *http.Request.
func (g *Gateway) buildRequest(ctx context.Context, req *transport.Request) (*http.Request, error) {
	if err := req.Err(); err != nil {
		return nil, err
	}
	body, contentType, err := encodeBody(req.Body())
	if err != nil {
		return nil, apperrors.InvalidInput("body", fmt.Sprintf("encode body: %v", err))
	}

	method := strings.ToUpper(req.Method())
	emulated := ""
	if g.configs.EmulateHTTP && (method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete) {
		emulated, method = method, http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL(), body)
	if err != nil {
		return nil, apperrors.InvalidInput("url", fmt.Sprintf("create request: %v", err))
	}

	httpReq.Header.Set("User-Agent", version.UserAgent())
	for k, v := range g.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers() {
		httpReq.Header.Set(k, v)
	}
	if body != nil && contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if emulated != "" {
		httpReq.Header.Set(MethodOverrideHeader, emulated)
	}
	if auth := req.Auth(); auth != nil {
		httpReq.SetBasicAuth(auth.Username, auth.Password)
	}
	return httpReq, nil
}

// CheckHealth reports the breaker position: closed is up, half-open is
// degraded and open is down. Without a breaker the gateway is always up.
func (g *Gateway) CheckHealth(_ context.Context) observability.Health {
	h := observability.Health{Name: g.cfg.Name, Status: observability.HealthStatusUp}
	if g.breaker == nil {
		return h
	}
	state := g.breaker.State()
	h.Details = map[string]string{"circuit_breaker": state.String()}
	switch state {
	case resilience.StateOpen:
		h.Status = observability.HealthStatusDown
		h.Message = "circuit breaker is open"
	case resilience.StateHalfOpen:
		h.Status = observability.HealthStatusDegraded
	}
	return h
}

// Close releases idle connections.
func (g *Gateway) Close() {
	g.httpClient.CloseIdleConnections()
}

// isTransient reports failures worth retrying: retryable application errors
// and 408, 429 and 5xx responses.
func isTransient(err error) bool {
	var respErr *transport.ResponseError
	if errors.As(err, &respErr) {
		s := respErr.Response.Status()
		return s == http.StatusRequestTimeout || s == http.StatusTooManyRequests || s >= 500
	}
	return resilience.IsRetryable(err)
}

func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = strings.Join(v, ", ")
		}
	}
	return out
}
