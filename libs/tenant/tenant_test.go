package tenant

import (
	"context"
	"errors"
	"testing"
)

func TestWithTenantRoundTrip(t *testing.T) {
	ctx := WithTenant(context.Background(), Tenant{ID: " salon-1 ", Token: "tok"})
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected tenant in context")
	}
	if got.ID != "salon-1" || got.Token != "tok" {
		t.Fatalf("unexpected tenant: %+v", got)
	}
	if IDFromContext(ctx) != "salon-1" {
		t.Fatalf("unexpected id: %s", IDFromContext(ctx))
	}
}

func TestMissingTenant(t *testing.T) {
	if _, err := Require(context.Background()); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
	ctx := WithTenant(context.Background(), Tenant{ID: "   "})
	if _, ok := FromContext(ctx); ok {
		t.Fatal("blank tenant id must not resolve")
	}
}
