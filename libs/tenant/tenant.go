// Package tenant carries the calling tenant and client credentials through a request context.
package tenant

import (
	"context"
	"errors"
	"strings"
)

// Header is the tenant header the client portal and the business backend both understand.
const Header = "X-Tenant-Id"

var ErrMissing = errors.New("tenant not resolved")

// Tenant identifies the salon a request belongs to. Token is the client's bearer token,
// forwarded unchanged to the business backend.
type Tenant struct {
	ID       string
	ClientID string
	Token    string
}

type ctxKey struct{}

func WithTenant(ctx context.Context, t Tenant) context.Context {
	t.ID = strings.TrimSpace(t.ID)
	return context.WithValue(ctx, ctxKey{}, t)
}

func FromContext(ctx context.Context) (Tenant, bool) {
	t, ok := ctx.Value(ctxKey{}).(Tenant)
	if !ok || t.ID == "" {
		return Tenant{}, false
	}
	return t, true
}

// Require returns ErrMissing when no tenant was resolved. Handlers call it after the
// tenant middleware has run.
func Require(ctx context.Context) (Tenant, error) {
	t, ok := FromContext(ctx)
	if !ok {
		return Tenant{}, ErrMissing
	}
	return t, nil
}

// IDFromContext is a convenience for log attributes.
func IDFromContext(ctx context.Context) string {
	t, _ := FromContext(ctx)
	return t.ID
}
