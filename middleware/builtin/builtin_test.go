package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "github.com/kbukum/resclient/errors"
	"github.com/kbukum/resclient/gateway/mock"
	"github.com/kbukum/resclient/logger"
	"github.com/kbukum/resclient/middleware"
	"github.com/kbukum/resclient/observability"
	"github.com/kbukum/resclient/transport"
)

const usersURL = "http://example.com/users"

func newRequest(t *testing.T, method string, params transport.Params) *transport.Request {
	t.Helper()
	req, err := transport.NewRequest(&transport.MethodDescriptor{
		Host: "http://example.com", Path: "/users", Method: method,
	}, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return req
}

// invoke builds one instance per factory and runs the stack once.
func invoke(t *testing.T, gw transport.Gateway, req *transport.Request, factories ...middleware.Factory) (*transport.Response, error) {
	t.Helper()
	mc := middleware.Context{ResourceName: "User", ResourceMethod: "all", ClientID: "client-1"}
	stack := make([]middleware.Middleware, 0, len(factories))
	for _, f := range factories {
		stack = append(stack, f(mc.WithContext(nil)))
	}
	return middleware.NewExecutor(gw, 2).Invoke(context.Background(), stack, req)
}

// --- request phase ---

func TestEncodeJSON_EncodesMapBody(t *testing.T) {
	gw := mock.New()
	m := gw.On("post", usersURL).WithBody(`{"name":"bob"}`)

	req := newRequest(t, "post", transport.Params{"body": map[string]any{"name": "bob"}})
	if _, err := invoke(t, gw, req, EncodeJSON()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Calls() != 1 {
		t.Fatalf("expected 1 call, got %d", m.Calls())
	}
	got := gw.Requests()[0]
	if ct, _ := got.Header("content-type"); ct != ContentTypeJSON {
		t.Errorf("expected %q, got %q", ContentTypeJSON, ct)
	}
}

func TestEncodeJSON_LeavesStringsAndContentType(t *testing.T) {
	gw := mock.New()
	gw.On("post", usersURL)

	req := newRequest(t, "post", transport.Params{
		"body":    "raw",
		"headers": map[string]string{"Content-Type": "text/plain"},
	})
	if _, err := invoke(t, gw, req, EncodeJSON()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := gw.Requests()[0]
	if got.Body() != "raw" {
		t.Errorf("expected raw body, got %v", got.Body())
	}
	if ct, _ := got.Header("content-type"); ct != "text/plain" {
		t.Errorf("expected text/plain, got %q", ct)
	}
}

func TestEncodeJSON_UnencodableBody(t *testing.T) {
	gw := mock.New()
	req := newRequest(t, "post", transport.Params{"body": map[string]any{"ch": make(chan int)}})

	_, err := invoke(t, gw, req, EncodeJSON())
	if !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	if len(gw.Requests()) != 0 {
		t.Error("gateway should not be called")
	}
}

func TestBasicAuth(t *testing.T) {
	gw := mock.New()
	gw.On("get", usersURL)

	if _, err := invoke(t, gw, newRequest(t, "", nil), BasicAuth(transport.Auth{Username: "bob", Password: "secret"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a := gw.Requests()[0].Auth(); a == nil || a.Username != "bob" {
		t.Errorf("expected bob, got %+v", a)
	}

	own := newRequest(t, "", transport.Params{"auth": transport.Auth{Username: "alice"}})
	if _, err := invoke(t, gw, own, BasicAuth(transport.Auth{Username: "bob"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a := gw.Requests()[1].Auth(); a.Username != "alice" {
		t.Errorf("expected call-time auth to win, got %q", a.Username)
	}
}

func TestTimeout(t *testing.T) {
	gw := mock.New()
	gw.On("get", usersURL)

	_, _ = invoke(t, gw, newRequest(t, "", nil), Timeout(2*time.Second))
	_, _ = invoke(t, gw, newRequest(t, "", transport.Params{"timeout": 100}), Timeout(2*time.Second))

	reqs := gw.Requests()
	if reqs[0].Timeout() != 2*time.Second {
		t.Errorf("expected 2s, got %v", reqs[0].Timeout())
	}
	if reqs[1].Timeout() != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", reqs[1].Timeout())
	}
}

func TestRequestID(t *testing.T) {
	gw := mock.New()
	gw.On("get", usersURL)

	_, _ = invoke(t, gw, newRequest(t, "", nil), RequestID())
	_, _ = invoke(t, gw, newRequest(t, "", transport.Params{"headers": map[string]string{"X-Request-ID": "fixed"}}), RequestID())

	reqs := gw.Requests()
	id, ok := reqs[0].Header(RequestIDHeader)
	if !ok {
		t.Fatal("expected request id header")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("expected a uuid, got %q", id)
	}
	if id, _ := reqs[1].Header(RequestIDHeader); id != "fixed" {
		t.Errorf("expected existing id to be kept, got %q", id)
	}
}

// --- duration ---

func TestDuration(t *testing.T) {
	base := time.UnixMilli(1_000)
	var ticks atomic.Int64
	d := &duration{now: func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)-1) * 50 * time.Millisecond)
	}}

	gw := mock.New()
	gw.On("get", usersURL)
	resp, err := invoke(t, gw, newRequest(t, "", nil), middleware.Static(d))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{StartedAtHeader: "1000", EndedAtHeader: "1050", DurationHeader: "50"}
	for k, v := range want {
		if got, _ := resp.Header(k); got != v {
			t.Errorf("%s: expected %s, got %s", k, v, got)
		}
	}
}

func TestDuration_StampsFailedResponse(t *testing.T) {
	gw := mock.New()
	gw.On("get", usersURL).Reply(500, "boom")

	_, err := invoke(t, gw, newRequest(t, "", nil), Duration())
	var respErr *transport.ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("expected ResponseError, got %v", err)
	}
	if _, ok := respErr.Response.Header(DurationHeader); !ok {
		t.Error("expected duration header on failed response")
	}
	if respErr.Response.Status() != 500 {
		t.Errorf("expected 500, got %d", respErr.Response.Status())
	}
}

// --- log ---

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "debug", Format: "json", Writer: &buf}, "test")

	gw := mock.New()
	gw.On("get", usersURL)
	gw.On("get", "http://example.com/users?fail=1").Reply(503, nil)

	_, _ = invoke(t, gw, newRequest(t, "", nil), Log(log))
	_, err := invoke(t, gw, newRequest(t, "", transport.Params{"fail": 1}), Log(log))
	if err == nil {
		t.Fatal("expected an error")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 log lines, got %d: %s", len(lines), buf.String())
	}
	var last map[string]any
	if err := json.Unmarshal([]byte(lines[3]), &last); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if last["level"] != "error" || last[logger.FieldStatus] != float64(503) {
		t.Errorf("unexpected failure line: %v", last)
	}
	if last[logger.FieldResource] != "User" || last[logger.FieldMethod] != "all" {
		t.Errorf("expected call fields, got %v", last)
	}
}

// --- bearer token ---

type countingSource struct {
	tokens    []string
	current   atomic.Int32
	refreshes atomic.Int32
}

func (s *countingSource) Token(context.Context) (string, error) {
	return s.tokens[s.current.Load()], nil
}

func (s *countingSource) Refresh(context.Context, string) (string, error) {
	s.refreshes.Add(1)
	n := s.current.Add(1)
	return s.tokens[n], nil
}

func TestBearerToken_RefreshesOnceOn401(t *testing.T) {
	gw := mock.New()
	gw.On("get", usersURL).ReplyFunc(func(req *transport.Request) (int, any) {
		if v, _ := req.Header("authorization"); v == "Bearer fresh" {
			return 200, map[string]any{"ok": true}
		}
		return 401, nil
	})
	source := &countingSource{tokens: []string{"stale", "fresh", "never"}}

	resp, err := invoke(t, gw, newRequest(t, "", nil), BearerToken(source))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status() != 200 {
		t.Errorf("expected 200, got %d", resp.Status())
	}
	if n := len(gw.Requests()); n != 2 {
		t.Errorf("expected 2 gateway calls, got %d", n)
	}
	if n := source.refreshes.Load(); n != 1 {
		t.Errorf("expected 1 refresh, got %d", n)
	}
}

func TestBearerToken_GivesUpAfterOneRefresh(t *testing.T) {
	gw := mock.New()
	gw.On("get", usersURL).Reply(401, nil)
	source := &countingSource{tokens: []string{"a", "b", "c"}}

	_, err := invoke(t, gw, newRequest(t, "", nil), BearerToken(source))
	var respErr *transport.ResponseError
	if !errors.As(err, &respErr) || respErr.Response.Status() != http.StatusUnauthorized {
		t.Fatalf("expected 401 response error, got %v", err)
	}
	if n := len(gw.Requests()); n != 2 {
		t.Errorf("expected 2 gateway calls, got %d", n)
	}
	if n := source.refreshes.Load(); n != 1 {
		t.Errorf("expected 1 refresh, got %d", n)
	}
}

func TestBearerToken_UnchangedTokenDoesNotRenew(t *testing.T) {
	gw := mock.New()
	gw.On("get", usersURL).Reply(401, nil)

	_, err := invoke(t, gw, newRequest(t, "", nil), BearerToken(StaticToken("abc")))
	var respErr *transport.ResponseError
	if !errors.As(err, &respErr) || respErr.Response.Status() != http.StatusUnauthorized {
		t.Fatalf("expected 401 response error, got %v", err)
	}
	if n := len(gw.Requests()); n != 1 {
		t.Errorf("expected 1 gateway call, got %d", n)
	}
}

func TestBearerToken_Static(t *testing.T) {
	gw := mock.New()
	gw.On("get", usersURL).WithHeader("Authorization", "Bearer abc")

	if _, err := invoke(t, gw, newRequest(t, "", nil), BearerToken(StaticToken("abc"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- jwt ---

func TestNewJWTSource_Validation(t *testing.T) {
	if _, err := NewJWTSource(JWTConfig{}); err == nil {
		t.Error("expected error for missing secret")
	}
	if _, err := NewJWTSource(JWTConfig{Secret: "s", Method: "RS256"}); err == nil {
		t.Error("expected error for unsupported method")
	}
}

func TestJWTSource_Token(t *testing.T) {
	src, err := NewJWTSource(JWTConfig{
		Secret: "top-secret", Method: "HS384", Issuer: "resclient", Subject: "svc",
		Audience: []string{"api"}, Claims: map[string]any{"scope": "read"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims := gojwt.MapClaims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, func(tok *gojwt.Token) (any, error) {
		if tok.Method.Alg() != "HS384" {
			t.Errorf("expected HS384, got %s", tok.Method.Alg())
		}
		return []byte("top-secret"), nil
	}, gojwt.WithIssuer("resclient"), gojwt.WithAudience("api"))
	if err != nil || !parsed.Valid {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims["sub"] != "svc" || claims["scope"] != "read" {
		t.Errorf("unexpected claims: %v", claims)
	}

	again, _ := src.Token(context.Background())
	if again != token {
		t.Error("expected cached token")
	}
}

func TestJWTSource_Refresh(t *testing.T) {
	src, _ := NewJWTSource(JWTConfig{Secret: "s"})
	first, _ := src.Token(context.Background())

	second, err := src.Refresh(context.Background(), first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second == first {
		t.Error("expected a new token")
	}

	third, _ := src.Refresh(context.Background(), first)
	if third != second {
		t.Error("refreshing an already replaced token should return the current one")
	}
}

func TestJWTSource_Expiry(t *testing.T) {
	src, _ := NewJWTSource(JWTConfig{Secret: "s", TTL: time.Minute})
	now := time.Now()
	src.now = func() time.Time { return now }
	first, _ := src.Token(context.Background())

	now = now.Add(2 * time.Minute)
	second, _ := src.Token(context.Background())
	if first == second {
		t.Error("expected expired token to be re-minted")
	}
}

// --- error handler ---

func TestErrorHandler_Recovers(t *testing.T) {
	gw := mock.New()
	gw.On("get", usersURL).Reply(404, nil)

	handler := ErrorHandler(func(_ context.Context, err error) (*transport.Response, error) {
		var respErr *transport.ResponseError
		if errors.As(err, &respErr) && respErr.Response.Status() == 404 {
			return respErr.Response.Enhance(transport.ResponseEnhancement{Status: 200}), nil
		}
		return nil, err
	})
	resp, err := invoke(t, gw, newRequest(t, "", nil), handler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status() != 200 {
		t.Errorf("expected 200, got %d", resp.Status())
	}
}

func TestErrorHandler_NilKeepsError(t *testing.T) {
	gw := mock.New()
	gw.On("get", usersURL).Reply(500, nil)

	var seen atomic.Int32
	handler := ErrorHandler(func(context.Context, error) (*transport.Response, error) {
		seen.Add(1)
		return nil, nil
	})
	_, err := invoke(t, gw, newRequest(t, "", nil), handler)
	var respErr *transport.ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("expected original error, got %v", err)
	}
	if seen.Load() != 1 {
		t.Errorf("expected handler to run once, got %d", seen.Load())
	}
}

// --- tracing and metrics ---

func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func sumOf(t *testing.T, reader sdkmetric.Reader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is not an int64 sum", name)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestTracing_NestsRenewedRuns(t *testing.T) {
	exporter := installRecorder(t)

	gw := mock.New()
	gw.On("get", usersURL).ReplyFunc(func(req *transport.Request) (int, any) {
		if v, _ := req.Header("authorization"); v == "Bearer fresh" {
			return 200, nil
		}
		return 401, nil
	})
	source := &countingSource{tokens: []string{"stale", "fresh"}}

	if _, err := invoke(t, gw, newRequest(t, "", nil), Tracing(), BearerToken(source)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	inner, outer := spans[0], spans[1]
	if inner.Parent.SpanID() != outer.SpanContext.SpanID() {
		t.Error("expected the renewed run to nest under the first run")
	}
	if outer.Name != observability.SpanCall {
		t.Errorf("expected %q, got %q", observability.SpanCall, outer.Name)
	}
}

func TestMetrics_CountsCallOnceAndEveryExecution(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	metrics, err := observability.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gw := mock.New()
	gw.On("get", usersURL).ReplyFunc(func(req *transport.Request) (int, any) {
		if v, _ := req.Header("authorization"); v == "Bearer fresh" {
			return 200, nil
		}
		return 401, nil
	})
	source := &countingSource{tokens: []string{"stale", "fresh"}}

	if _, err := invoke(t, gw, newRequest(t, "", nil), Metrics(metrics), BearerToken(source)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := sumOf(t, reader, "resclient.call.total"); n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
	if n := sumOf(t, reader, "resclient.stack.executions"); n != 2 {
		t.Errorf("expected 2 executions, got %d", n)
	}
	if n := sumOf(t, reader, "resclient.call.active"); n != 0 {
		t.Errorf("expected 0 active calls, got %d", n)
	}
}

func TestStatusOf(t *testing.T) {
	req := newRequest(t, "", nil)
	ok := transport.NewResponse(req, 201, "", nil)
	failed := &transport.ResponseError{Response: transport.NewResponse(req, 502, "", nil)}

	if got := statusOf(ok, nil); got != 201 {
		t.Errorf("expected 201, got %d", got)
	}
	if got := statusOf(nil, failed); got != 502 {
		t.Errorf("expected 502, got %d", got)
	}
	if got := statusOf(nil, errors.New("dial")); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
