package builtin

import (
	"errors"

	"github.com/kbukum/resclient/transport"
)

// failedResponse returns the response a failure carries, if any.
func failedResponse(err error) *transport.Response {
	var respErr *transport.ResponseError
	if errors.As(err, &respErr) {
		return respErr.Response
	}
	return nil
}

// statusOf returns the status of the outcome, 0 when there is no response.
func statusOf(resp *transport.Response, err error) int {
	if resp != nil {
		return resp.Status()
	}
	if r := failedResponse(err); r != nil {
		return r.Status()
	}
	return 0
}

// requestOf returns the finalized request behind the outcome, or nil.
func requestOf(resp *transport.Response, err error) *transport.Request {
	if resp == nil {
		resp = failedResponse(err)
	}
	if resp == nil {
		return nil
	}
	return resp.Request()
}
