package builtin

import (
	"context"

	"github.com/kbukum/resclient/middleware"
	"github.com/kbukum/resclient/transport"
)

// ErrorHandlerFunc inspects a failed call. Returning a response recovers the
// call; returning (nil, nil) keeps the original error.
type ErrorHandlerFunc func(ctx context.Context, err error) (*transport.Response, error)

// ErrorHandler passes every failure of the rest of the stack to fn.
func ErrorHandler(fn ErrorHandlerFunc) middleware.Factory {
	return middleware.Static(middleware.Hooks{
		OnResponse: func(ctx context.Context, next middleware.Next, _ middleware.Renew) (*transport.Response, error) {
			resp, err := next(ctx)
			if err == nil {
				return resp, nil
			}
			recovered, herr := fn(ctx, err)
			if recovered == nil && herr == nil {
				return resp, err
			}
			return recovered, herr
		},
	})
}
