package transport

import (
	"fmt"
	"io"
	"maps"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/resclient/errors"
)

// Params are the call-time arguments of a generated method. Besides path and
// query params it may carry the special keys named by the descriptor
// (body, headers, auth, timeout, host by default).
type Params map[string]any

// Auth holds basic-auth credentials.
type Auth struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Enhancement lists the fields Request.Enhance merges into a new request.
// Zero values leave the corresponding field unchanged.
type Enhancement struct {
	Headers map[string]string
	Params  map[string]any
	Body    any
	Auth    *Auth
	Timeout time.Duration
	Host    string
}

// Request is an immutable description of one HTTP call. An io.Reader body
// is read once when the request is built and kept as []byte, so every send
// of the request carries the full payload.
type Request struct {
	descriptor *MethodDescriptor
	params     Params
	err        error
}

var pathParamPattern = regexp.MustCompile(`\{([^{}?]+)(\?)?\}`)

// NewRequest builds a request from a method descriptor and call-time params.
// It fails when a required path param is missing.
func NewRequest(descriptor *MethodDescriptor, params Params) (*Request, error) {
	if descriptor == nil {
		return nil, errors.InvalidInput("descriptor", "method descriptor is required")
	}
	r := &Request{descriptor: descriptor, params: copyParams(params)}
	if err := snapshotBody(r.params, descriptor.bodyAttr()); err != nil {
		return nil, errors.InvalidInput(descriptor.bodyAttr(), "cannot read body: "+err.Error())
	}

	merged := r.Params()
	for _, m := range pathParamPattern.FindAllStringSubmatch(descriptor.Path, -1) {
		if m[2] == "?" {
			continue
		}
		if v, ok := merged[m[1]]; !ok || v == nil {
			return nil, errors.InvalidInput(m[1],
				fmt.Sprintf("required parameter missing (%s), %q cannot be resolved", m[1], descriptor.Path))
		}
	}
	return r, nil
}

// Method returns the lower-cased HTTP verb.
func (r *Request) Method() string {
	return strings.ToLower(orDefault(r.descriptor.Method, "get"))
}

// Host returns the base URL without a trailing slash.
func (r *Request) Host() string {
	host := r.descriptor.Host
	if r.descriptor.AllowResourceHostOverride {
		if h, ok := r.params[r.descriptor.hostAttr()].(string); ok && h != "" {
			host = h
		}
	}
	return strings.TrimRight(host, "/")
}

// Params returns the descriptor default params merged with the call-time
// params, without the special keys.
func (r *Request) Params() map[string]any {
	out := make(map[string]any, len(r.descriptor.Params)+len(r.params))
	maps.Copy(out, r.descriptor.Params)
	for k, v := range r.params {
		if !r.descriptor.isSpecial(k) {
			out[k] = v
		}
	}
	return out
}

// Path resolves the path template and appends the remaining params as a
// sorted query string.
func (r *Request) Path() string {
	params := r.Params()
	consumed := make(map[string]bool)

	path := pathParamPattern.ReplaceAllStringFunc(r.descriptor.Path, func(token string) string {
		m := pathParamPattern.FindStringSubmatch(token)
		v, ok := params[m[1]]
		if !ok || v == nil {
			return ""
		}
		consumed[m[1]] = true
		return url.PathEscape(fmt.Sprint(v))
	})
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") && !strings.HasSuffix(r.descriptor.Path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	query := url.Values{}
	for k, v := range params {
		if consumed[k] || v == nil {
			continue
		}
		key := k
		if alias, ok := r.descriptor.QueryParamAlias[k]; ok && alias != "" {
			key = alias
		}
		addQueryValue(query, key, v)
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path
}

// URL returns Host() + Path().
func (r *Request) URL() string {
	return r.Host() + r.Path()
}

// Headers returns descriptor headers merged with call-time headers. Keys are
// lower-cased. The returned map is a copy.
func (r *Request) Headers() map[string]string {
	out := make(map[string]string)
	for k, v := range r.descriptor.Headers {
		out[strings.ToLower(k)] = v
	}
	for k, v := range toStringMap(r.params[r.descriptor.headersAttr()]) {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Header looks a header up by case-insensitive name.
func (r *Request) Header(name string) (string, bool) {
	v, ok := r.Headers()[strings.ToLower(name)]
	return v, ok
}

// Body returns the call-time body, or nil.
func (r *Request) Body() any {
	return r.params[r.descriptor.bodyAttr()]
}

// Auth returns the basic-auth credentials, or nil.
func (r *Request) Auth() *Auth {
	switch v := r.params[r.descriptor.authAttr()].(type) {
	case *Auth:
		return v
	case Auth:
		return &v
	case map[string]any:
		return &Auth{Username: fmt.Sprint(v["username"]), Password: fmt.Sprint(v["password"])}
	case map[string]string:
		return &Auth{Username: v["username"], Password: v["password"]}
	}
	return nil
}

// Timeout returns the per-request timeout, or zero. Integers are read as
// milliseconds and strings with time.ParseDuration.
func (r *Request) Timeout() time.Duration {
	switch v := r.params[r.descriptor.timeoutAttr()].(type) {
	case time.Duration:
		return v
	case int:
		return time.Duration(v) * time.Millisecond
	case int64:
		return time.Duration(v) * time.Millisecond
	case float64:
		return time.Duration(v) * time.Millisecond
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return 0
}

// Enhance returns a new request with extras merged in. Headers and params are
// merged key by key; body, auth, timeout and host replace the current value
// when set. The receiver is never modified.
func (r *Request) Enhance(extras Enhancement) *Request {
	params := copyParams(r.params)
	d := r.descriptor

	if len(extras.Headers) > 0 {
		headers := toStringMap(params[d.headersAttr()])
		for k, v := range extras.Headers {
			headers[strings.ToLower(k)] = v
		}
		params[d.headersAttr()] = headers
	}
	for k, v := range extras.Params {
		params[k] = v
	}
	if extras.Body != nil {
		params[d.bodyAttr()] = extras.Body
	}
	err := r.err
	if serr := snapshotBody(params, d.bodyAttr()); serr != nil {
		err = errors.InvalidInput(d.bodyAttr(), "cannot read body: "+serr.Error())
	}
	if extras.Auth != nil {
		a := *extras.Auth
		params[d.authAttr()] = &a
	}
	if extras.Timeout > 0 {
		params[d.timeoutAttr()] = extras.Timeout
	}
	if extras.Host != "" {
		params[d.hostAttr()] = extras.Host
	}
	return &Request{descriptor: d, params: params, err: err}
}

// Err reports a body reader that failed while an Enhance read it. Gateways
// must not send a request with a non-nil Err.
func (r *Request) Err() error {
	return r.err
}

// snapshotBody replaces an io.Reader body in params with its bytes.
func snapshotBody(params Params, attr string) error {
	rd, ok := params[attr].(io.Reader)
	if !ok {
		return nil
	}
	data, err := io.ReadAll(rd)
	if c, ok := rd.(io.Closer); ok {
		_ = c.Close()
	}
	params[attr] = data
	return err
}

// String renders "GET http://host/path".
func (r *Request) String() string {
	return strings.ToUpper(r.Method()) + " " + r.URL()
}

func copyParams(params Params) Params {
	out := make(Params, len(params))
	for k, v := range params {
		if m, ok := v.(map[string]string); ok {
			v = maps.Clone(m)
		}
		out[k] = v
	}
	return out
}

func toStringMap(v any) map[string]string {
	out := make(map[string]string)
	switch m := v.(type) {
	case map[string]string:
		maps.Copy(out, m)
	case map[string]any:
		for k, val := range m {
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

func addQueryValue(q url.Values, key string, v any) {
	switch vals := v.(type) {
	case []string:
		for _, s := range vals {
			q.Add(key+"[]", s)
		}
	case []any:
		for _, s := range vals {
			q.Add(key+"[]", fmt.Sprint(s))
		}
	default:
		q.Set(key, fmt.Sprint(v))
	}
}
