package builtin

import (
	"context"
	"net/http"
	"strings"

	"github.com/kbukum/resclient/middleware"
	"github.com/kbukum/resclient/transport"
)

// TokenSource supplies bearer tokens.
type TokenSource interface {
	// Token returns the current token.
	Token(ctx context.Context) (string, error)
	// Refresh replaces stale with a new token and returns it.
	Refresh(ctx context.Context, stale string) (string, error)
}

// StaticToken is a TokenSource that never changes.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Refresh implements TokenSource.
func (t StaticToken) Refresh(context.Context, string) (string, error) { return string(t), nil }

type bearerToken struct {
	source    TokenSource
	refreshed bool
}

// BearerToken sets "authorization: Bearer <token>" on every request. When the
// response is a 401 it refreshes the token and renews the call, at most once
// per call. A refresh that returns the rejected token does not renew.
func BearerToken(source TokenSource) middleware.Factory {
	return func(middleware.Context) middleware.Middleware {
		return &bearerToken{source: source}
	}
}

func (b *bearerToken) PrepareRequest(ctx context.Context, req *transport.Request) (*transport.Request, error) {
	token, err := b.source.Token(ctx)
	if err != nil {
		return nil, err
	}
	return req.Enhance(transport.Enhancement{
		Headers: map[string]string{"authorization": "Bearer " + token},
	}), nil
}

func (b *bearerToken) Response(ctx context.Context, next middleware.Next, renew middleware.Renew) (*transport.Response, error) {
	resp, err := next(ctx)
	if b.refreshed || statusOf(resp, err) != http.StatusUnauthorized {
		return resp, err
	}
	b.refreshed = true

	stale := ""
	if req := requestOf(resp, err); req != nil {
		v, _ := req.Header("authorization")
		stale, _ = strings.CutPrefix(v, "Bearer ")
	}
	fresh, rerr := b.source.Refresh(ctx, stale)
	if rerr != nil || fresh == stale {
		return resp, err
	}
	return renew(ctx)
}
