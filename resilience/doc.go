// Package resilience provides the fault-tolerance guards the HTTP gateway
// wraps around each network call.
//
//   - Breaker: fails fast while an upstream keeps failing
//   - Retry: retries transient failures with exponential backoff
//   - Limiter: token-bucket rate limiting on golang.org/x/time/rate
//   - Bulkhead: caps concurrent calls
//
// The gateway combines them outermost first:
//
//	err := limiter.Wait(ctx)
//	resp, err := resilience.Retry(ctx, retryCfg, func() (*http.Response, error) {
//	    return resilience.Call(breaker, func() (*http.Response, error) {
//	        return resilience.Do(ctx, bulkhead, send)
//	    })
//	})
package resilience
