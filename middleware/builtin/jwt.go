package builtin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTConfig configures a JWTSource.
type JWTConfig struct {
	// Secret is the HMAC signing key.
	Secret string
	// Method is HS256, HS384 or HS512 (default: HS256).
	Method string

	Issuer   string
	Subject  string
	Audience []string

	// TTL is the lifetime of minted tokens (default: 15m).
	TTL time.Duration
	// Claims are added to every token.
	Claims map[string]any
}

// JWTSource mints HMAC-signed tokens and caches the current one.
type JWTSource struct {
	cfg    JWTConfig
	method gojwt.SigningMethod
	now    func() time.Time

	mu      sync.Mutex
	current string
	expires time.Time
}

// NewJWTSource creates a token source from cfg.
func NewJWTSource(cfg JWTConfig) (*JWTSource, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret is required")
	}
	if cfg.Method == "" {
		cfg.Method = "HS256"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	var method gojwt.SigningMethod
	switch cfg.Method {
	case "HS256":
		method = gojwt.SigningMethodHS256
	case "HS384":
		method = gojwt.SigningMethodHS384
	case "HS512":
		method = gojwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("jwt: unsupported signing method %q", cfg.Method)
	}
	return &JWTSource{cfg: cfg, method: method, now: time.Now}, nil
}

// Token returns the cached token, minting a new one when it has expired.
func (s *JWTSource) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != "" && s.now().Before(s.expires) {
		return s.current, nil
	}
	return s.mint()
}

// Refresh mints a new token unless another caller already replaced stale.
func (s *JWTSource) Refresh(_ context.Context, stale string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != "" && s.current != stale && s.now().Before(s.expires) {
		return s.current, nil
	}
	return s.mint()
}

func (s *JWTSource) mint() (string, error) {
	now := s.now()
	claims := gojwt.MapClaims{}
	for k, v := range s.cfg.Claims {
		claims[k] = v
	}
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(s.cfg.TTL).Unix()
	claims["jti"] = uuid.NewString()
	if s.cfg.Issuer != "" {
		claims["iss"] = s.cfg.Issuer
	}
	if s.cfg.Subject != "" {
		claims["sub"] = s.cfg.Subject
	}
	if len(s.cfg.Audience) > 0 {
		claims["aud"] = s.cfg.Audience
	}

	signed, err := gojwt.NewWithClaims(s.method, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	s.current = signed
	s.expires = now.Add(s.cfg.TTL)
	return signed, nil
}
