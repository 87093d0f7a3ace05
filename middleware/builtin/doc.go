// Package builtin ships ready-made middleware factories.
//
//	def.Middleware = []middleware.Factory{
//	    builtin.RequestID(),
//	    builtin.Log(logger.WithComponent("github")),
//	    builtin.EncodeJSON(),
//	    builtin.BearerToken(source),
//	}
//
// Request-phase middleware (EncodeJSON, BasicAuth, Timeout, RequestID) are
// stateless. Response-phase middleware get one instance per call, shared by
// the renewals of that call.
package builtin
