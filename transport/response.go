package transport

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// ResponseEnhancement lists the fields Response.Enhance replaces or merges.
// Zero values leave the corresponding field unchanged.
type ResponseEnhancement struct {
	Status  int
	RawData *string
	Headers map[string]string
	Errors  []error
}

// Response is the immutable outcome of one completed stack run. It remembers
// the finalized request that produced it.
type Response struct {
	request *Request
	status  int
	rawData string
	headers map[string]string
	errs    []error
}

// NewResponse builds a response. Header names are lower-cased.
func NewResponse(req *Request, status int, rawData string, headers map[string]string, errs ...error) *Response {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[strings.ToLower(k)] = v
	}
	return &Response{
		request: req,
		status:  status,
		rawData: rawData,
		headers: h,
		errs:    append([]error(nil), errs...),
	}
}

// Request returns the finalized request that produced this response.
func (r *Response) Request() *Request { return r.request }

// Status returns the HTTP status code.
func (r *Response) Status() int { return r.status }

// RawData returns the undecoded body.
func (r *Response) RawData() string { return r.rawData }

// Success reports a status in the 200..399 range.
func (r *Response) Success() bool {
	return r.status >= 200 && r.status < 400
}

// Headers returns a copy of the response headers.
func (r *Response) Headers() map[string]string {
	return maps.Clone(r.headers)
}

// Header looks a header up by case-insensitive name.
func (r *Response) Header(name string) (string, bool) {
	v, ok := r.headers[strings.ToLower(name)]
	return v, ok
}

// IsContentTypeJSON reports whether the content-type header names JSON.
func (r *Response) IsContentTypeJSON() bool {
	return strings.Contains(r.headers["content-type"], "json")
}

// Data returns the body decoded from JSON when the content type is JSON, and
// the raw string otherwise or when decoding fails.
func (r *Response) Data() any {
	if r.IsContentTypeJSON() && r.rawData != "" {
		var v any
		if err := json.Unmarshal([]byte(r.rawData), &v); err == nil {
			return v
		}
	}
	return r.rawData
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if r.rawData == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(r.rawData), v); err != nil {
		return fmt.Errorf("transport: decode response: %w", err)
	}
	return nil
}

// Errors returns the errors attached to this response.
func (r *Response) Errors() []error {
	return append([]error(nil), r.errs...)
}

// Enhance returns a new response with extras applied. The receiver is never
// modified.
func (r *Response) Enhance(extras ResponseEnhancement) *Response {
	out := &Response{
		request: r.request,
		status:  r.status,
		rawData: r.rawData,
		headers: maps.Clone(r.headers),
		errs:    append([]error(nil), r.errs...),
	}
	if out.headers == nil {
		out.headers = make(map[string]string)
	}
	if extras.Status != 0 {
		out.status = extras.Status
	}
	if extras.RawData != nil {
		out.rawData = *extras.RawData
	}
	for k, v := range extras.Headers {
		out.headers[strings.ToLower(k)] = v
	}
	out.errs = append(out.errs, extras.Errors...)
	return out
}

// ResponseError is the failure a gateway returns for a non-success status.
// Wrapping middleware can recover the response with errors.As.
type ResponseError struct {
	Response *Response
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	if e.Response.request == nil {
		return fmt.Sprintf("transport: status %d", e.Response.status)
	}
	return fmt.Sprintf("transport: %s responded with status %d", e.Response.request, e.Response.status)
}
