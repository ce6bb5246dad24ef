package audit

import (
	"context"
	"strings"
)

type clientIPKey struct{}

// WithClientIP attaches the requesting client's IP to the context. The
// transport layer derives it from the forwarded-for chain; every entry
// recorded under this context carries it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFromContext returns the client IP if one was attached.
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(clientIPKey{}).(string); ok {
		return v
	}
	return ""
}
