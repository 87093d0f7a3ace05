// Package httpgateway is the net/http transport of resclient.
//
// It turns a finalized request into an *http.Request, sends it and maps the
// outcome back: success statuses resolve with a response, other statuses
// fail with a *transport.ResponseError carrying the response, and network
// failures fail with TIMEOUT or CONNECTION_FAILED application errors.
//
// Each attempt passes through the optional guards of the config, outermost
// first: rate limiter, retry, circuit breaker, bulkhead.
//
//	cfg := config.Default()
//	cfg.Gateway = httpgateway.Factory(httpgateway.Config{
//	    Retry:          &resilience.RetryConfig{MaxAttempts: 3},
//	    CircuitBreaker: &resilience.BreakerConfig{MaxFailures: 5},
//	})
package httpgateway
