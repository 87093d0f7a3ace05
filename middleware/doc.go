// Package middleware implements the invocation engine of resclient: the
// middleware contract and the Executor that runs a stack of middleware around
// a gateway call.
//
// A middleware instance may implement RequestHook, ResponseHook, both or
// neither. Every call runs in two phases:
//
//   - request phase: request hooks run left to right, each one receiving the
//     request as transformed by the hooks before it;
//   - response phase: response hooks form an onion around the gateway call.
//     The first middleware is the outermost: it decides whether and when to
//     call next, which runs the second hook, and so on down to the gateway.
//
// Every response hook also receives renew, which restarts the whole stack
// from the original request. Renewals share one execution counter per call;
// the Executor fails the call once the counter exceeds its bound.
//
//	exec := middleware.NewExecutor(gateway, middleware.DefaultMaxStackExecutions)
//	resp, err := exec.Invoke(ctx, stack, req)
package middleware
