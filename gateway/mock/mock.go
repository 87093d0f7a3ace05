package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/kbukum/resclient/transport"
)

// ReplyFunc computes a reply from the matched request.
type ReplyFunc func(req *transport.Request) (status int, body any)

// Mock is one registered expectation.
type Mock struct {
	method  string
	url     string
	body    any
	headers map[string]string

	mu       sync.Mutex
	status   int
	reply    any
	replyFn  ReplyFunc
	rHeaders map[string]string
	calls    int
}

// WithBody restricts the mock to requests carrying body. Strings are compared
// verbatim; other values are compared after a JSON round trip.
func (m *Mock) WithBody(body any) *Mock {
	m.body = body
	return m
}

// WithHeader restricts the mock to requests carrying the header.
func (m *Mock) WithHeader(name, value string) *Mock {
	m.headers[strings.ToLower(name)] = value
	return m
}

// Reply sets the status and body returned for matching requests. Non-string
// bodies are JSON encoded and served as application/json.
func (m *Mock) Reply(status int, body any) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status, m.reply, m.replyFn = status, body, nil
	return m
}

// ReplyHeaders adds response headers.
func (m *Mock) ReplyHeaders(headers map[string]string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range headers {
		m.rHeaders[strings.ToLower(k)] = v
	}
	return m
}

// ReplyFunc computes the reply per request.
func (m *Mock) ReplyFunc(fn ReplyFunc) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replyFn = fn
	return m
}

// Calls returns the number of requests this mock served.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Mock) matches(req *transport.Request) bool {
	if m.method != req.Method() || m.url != req.URL() {
		return false
	}
	for k, v := range m.headers {
		if got, ok := req.Header(k); !ok || got != v {
			return false
		}
	}
	if m.body != nil && !sameBody(m.body, req.Body()) {
		return false
	}
	return true
}

func (m *Mock) serve(req *transport.Request) (*transport.Response, error) {
	m.mu.Lock()
	m.calls++
	status, body, fn := m.status, m.reply, m.replyFn
	headers := make(map[string]string, len(m.rHeaders))
	for k, v := range m.rHeaders {
		headers[k] = v
	}
	m.mu.Unlock()

	if fn != nil {
		status, body = fn(req)
	}
	if status == 0 {
		status = 200
	}

	raw, isJSON, err := encode(body)
	if err != nil {
		return nil, fmt.Errorf("mock: encode reply for %s: %w", req, err)
	}
	if _, ok := headers["content-type"]; !ok && isJSON {
		headers["content-type"] = "application/json"
	}

	resp := transport.NewResponse(req, status, raw, headers)
	if !resp.Success() {
		return nil, &transport.ResponseError{Response: resp}
	}
	return resp, nil
}

// Gateway is an in-memory transport.Gateway.
type Gateway struct {
	mu       sync.Mutex
	mocks    []*Mock
	requests []*transport.Request
}

// New creates an empty mock gateway.
func New() *Gateway {
	return &Gateway{}
}

// On registers a mock for method and full URL. The mock replies 200 with an
// empty body until Reply says otherwise.
func (g *Gateway) On(method, url string) *Mock {
	m := &Mock{
		method:   strings.ToLower(method),
		url:      url,
		headers:  make(map[string]string),
		rHeaders: make(map[string]string),
		status:   200,
	}
	g.mu.Lock()
	g.mocks = append(g.mocks, m)
	g.mu.Unlock()
	return m
}

// Call implements transport.Gateway.
func (g *Gateway) Call(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.requests = append(g.requests, req)
	mocks := append([]*Mock(nil), g.mocks...)
	g.mu.Unlock()

	for _, m := range mocks {
		if m.matches(req) {
			return m.serve(req)
		}
	}
	return nil, fmt.Errorf("mock: no mock matches %s (headers: %v, body: %v)", req, req.Headers(), req.Body())
}

// Requests returns every request the gateway received, matched or not.
func (g *Gateway) Requests() []*transport.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*transport.Request(nil), g.requests...)
}

// Reset drops all mocks and recorded requests.
func (g *Gateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mocks, g.requests = nil, nil
}

// Factory adapts g to a transport.GatewayFactory. The gateway configs are ignored.
func Factory(g *Gateway) transport.GatewayFactory {
	return func(transport.GatewayConfigs) (transport.Gateway, error) {
		return g, nil
	}
}

func encode(body any) (string, bool, error) {
	switch v := body.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, false, nil
	case []byte:
		return string(v), false, nil
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func sameBody(want, got any) bool {
	if w, ok := want.(string); ok {
		g, isString := got.(string)
		return isString && g == w
	}
	return reflect.DeepEqual(normalize(want), normalize(got))
}

func normalize(v any) any {
	if s, ok := v.(string); ok {
		var out any
		if json.Unmarshal([]byte(s), &out) == nil {
			return out
		}
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if json.Unmarshal(b, &out) != nil {
		return v
	}
	return out
}
