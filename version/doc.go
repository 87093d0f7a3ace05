// Package version carries build information for the resclient binary and
// the User-Agent the HTTP gateway sends.
//
// Values are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/resclient/version.Version=1.2.0" ./cmd/resclient
package version
