// Package transport holds the value types that flow through a resclient call
// and the contract a gateway implements.
//
// A Request is built from a MethodDescriptor (the manifest's template for one
// resource method) and the call-time Params. Requests and Responses are
// immutable: Enhance returns a new value and leaves the receiver untouched,
// which is what lets middleware transform a request step by step while renew
// restarts from the untouched original.
package transport
