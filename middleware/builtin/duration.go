package builtin

import (
	"context"
	"strconv"
	"time"

	"github.com/kbukum/resclient/middleware"
	"github.com/kbukum/resclient/transport"
)

// Headers stamped by Duration, in Unix milliseconds.
const (
	StartedAtHeader = "x-started-at"
	EndedAtHeader   = "x-ended-at"
	DurationHeader  = "x-duration"
)

type duration struct {
	now func() time.Time
}

// Duration stamps the start time on the request and the start, end and
// elapsed time on the response, failed responses included.
func Duration() middleware.Factory {
	return middleware.Static(&duration{now: time.Now})
}

func (d *duration) PrepareRequest(_ context.Context, req *transport.Request) (*transport.Request, error) {
	return req.Enhance(transport.Enhancement{Headers: map[string]string{
		StartedAtHeader: strconv.FormatInt(d.now().UnixMilli(), 10),
	}}), nil
}

func (d *duration) Response(ctx context.Context, next middleware.Next, _ middleware.Renew) (*transport.Response, error) {
	resp, err := next(ctx)
	if resp != nil {
		return d.stamp(resp), err
	}
	if failed := failedResponse(err); failed != nil {
		return nil, &transport.ResponseError{Response: d.stamp(failed)}
	}
	return nil, err
}

func (d *duration) stamp(resp *transport.Response) *transport.Response {
	ended := d.now().UnixMilli()
	started := ended
	if req := resp.Request(); req != nil {
		if v, ok := req.Header(StartedAtHeader); ok {
			if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
				started = ms
			}
		}
	}
	return resp.Enhance(transport.ResponseEnhancement{Headers: map[string]string{
		StartedAtHeader: strconv.FormatInt(started, 10),
		EndedAtHeader:   strconv.FormatInt(ended, 10),
		DurationHeader:  strconv.FormatInt(ended-started, 10),
	}})
}
