package builtin

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/resclient/errors"
	"github.com/kbukum/resclient/middleware"
	"github.com/kbukum/resclient/transport"
)

// ContentTypeJSON is the content type EncodeJSON sets.
const ContentTypeJSON = "application/json;charset=utf-8"

// RequestIDHeader is the header RequestID sets.
const RequestIDHeader = "x-request-id"

type requestFunc func(ctx context.Context, req *transport.Request) (*transport.Request, error)

func (f requestFunc) PrepareRequest(ctx context.Context, req *transport.Request) (*transport.Request, error) {
	return f(ctx, req)
}

// EncodeJSON serializes non-string bodies as JSON and sets the JSON content
// type when none is set.
func EncodeJSON() middleware.Factory {
	return middleware.Static(requestFunc(func(_ context.Context, req *transport.Request) (*transport.Request, error) {
		body := req.Body()
		switch body.(type) {
		case nil, string, []byte, io.Reader:
			return req, nil
		}
		data, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.InvalidInput("body", "cannot encode body as JSON: "+err.Error())
		}
		extras := transport.Enhancement{Body: string(data)}
		if _, ok := req.Header("content-type"); !ok {
			extras.Headers = map[string]string{"content-type": ContentTypeJSON}
		}
		return req.Enhance(extras), nil
	}))
}

// BasicAuth sets credentials on requests that carry none.
func BasicAuth(auth transport.Auth) middleware.Factory {
	return middleware.Static(requestFunc(func(_ context.Context, req *transport.Request) (*transport.Request, error) {
		if req.Auth() != nil {
			return req, nil
		}
		return req.Enhance(transport.Enhancement{Auth: &auth}), nil
	}))
}

// Timeout sets d on requests without a timeout of their own.
func Timeout(d time.Duration) middleware.Factory {
	return middleware.Static(requestFunc(func(_ context.Context, req *transport.Request) (*transport.Request, error) {
		if req.Timeout() > 0 {
			return req, nil
		}
		return req.Enhance(transport.Enhancement{Timeout: d}), nil
	}))
}

// RequestID adds an x-request-id header with a random UUID when absent.
func RequestID() middleware.Factory {
	return middleware.Static(requestFunc(func(_ context.Context, req *transport.Request) (*transport.Request, error) {
		if _, ok := req.Header(RequestIDHeader); ok {
			return req, nil
		}
		return req.Enhance(transport.Enhancement{
			Headers: map[string]string{RequestIDHeader: uuid.New().String()},
		}), nil
	}))
}
