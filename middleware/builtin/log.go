package builtin

import (
	"context"
	"time"

	"github.com/kbukum/resclient/logger"
	"github.com/kbukum/resclient/middleware"
	"github.com/kbukum/resclient/transport"
)

type logMiddleware struct {
	log *logger.Logger
}

// Log writes outgoing requests and responses at debug level and failures at
// error level. A nil log uses the global logger.
func Log(log *logger.Logger) middleware.Factory {
	return func(mc middleware.Context) middleware.Middleware {
		l := log
		if l == nil {
			l = logger.WithComponent("resclient")
		}
		return &logMiddleware{
			log: l.WithFields(logger.Fields(
				logger.FieldClientID, mc.ClientID,
				logger.FieldResource, mc.ResourceName,
				logger.FieldMethod, mc.ResourceMethod,
			)),
		}
	}
}

func (l *logMiddleware) PrepareRequest(_ context.Context, req *transport.Request) (*transport.Request, error) {
	l.log.Debug("outgoing request", logger.Fields(
		logger.FieldHTTPMethod, req.Method(),
		logger.FieldURL, req.URL(),
	))
	return req, nil
}

func (l *logMiddleware) Response(ctx context.Context, next middleware.Next, _ middleware.Renew) (*transport.Response, error) {
	start := time.Now()
	resp, err := next(ctx)

	fields := logger.Fields(logger.FieldStatus, statusOf(resp, err))
	if req := requestOf(resp, err); req != nil {
		fields[logger.FieldHTTPMethod] = req.Method()
		fields[logger.FieldURL] = req.URL()
	}
	fields = logger.MergeWithDuration(fields, time.Since(start))

	if err != nil {
		fields[logger.FieldError] = err.Error()
		l.log.Error("request failed", fields)
		return resp, err
	}
	l.log.Debug("response received", fields)
	return resp, nil
}
