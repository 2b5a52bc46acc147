package credential

import (
	"context"
	"errors"
	"strings"
)

// ErrNotConnected is returned when no bearer credential is available. It
// is distinct from an authentication failure reported by the remote
// service.
var ErrNotConnected = errors.New("not connected: no API token configured")

// Source supplies the bearer credential for calls to the time-tracking
// service. Per-request and process-wide deployments are both expressed as
// a Source.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// Static is a process-wide token resolved once at startup.
type Static string

// Token returns the configured token or ErrNotConnected.
func (s Static) Token(context.Context) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", ErrNotConnected
	}
	return token, nil
}

type tokenKey struct{}

// WithToken returns a context carrying a caller-supplied token.
func WithToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// FromContext returns the token attached by WithToken, if any.
func FromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// Request reads the token the caller attached to the request context.
type Request struct{}

// Token returns the per-request token or ErrNotConnected.
func (Request) Token(ctx context.Context) (string, error) {
	if token, ok := FromContext(ctx); ok {
		return token, nil
	}
	return "", ErrNotConnected
}

// Chain tries each source in order and returns the first token found.
// Errors other than ErrNotConnected stop the search.
type Chain []Source

// Token implements Source.
func (c Chain) Token(ctx context.Context) (string, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		token, err := src.Token(ctx)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, ErrNotConnected) {
			return "", err
		}
	}
	return "", ErrNotConnected
}

// Configured reports whether src can produce a token without revealing it.
func Configured(ctx context.Context, src Source) bool {
	if src == nil {
		return false
	}
	_, err := src.Token(ctx)
	return err == nil
}
