// Package errors provides the structured error type shared by every resclient
// package. Each AppError carries a machine-readable code, a human-readable
// message, HTTP status hints and optional details.
//
// The three failures a caller of a generated method can observe from the
// client itself (as opposed to middleware or the gateway) have fixed message
// texts:
//
//	invalid manifest (<value>)
//	gateway class not configured
//	infinite loop detected (middleware stack invoked N times). Check the use of "renew" in one of the middleware.
package errors
