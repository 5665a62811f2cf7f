package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/md-rashed-zaman/salonportal/libs/redisx"
	"github.com/md-rashed-zaman/salonportal/libs/tenant"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/model"
	"github.com/shopspring/decimal"
)

type countingProvider struct {
	procedures   int
	schedules    int
	appointments int
}

func (c *countingProvider) Procedures(context.Context) (model.Catalog, error) {
	c.procedures++
	return model.Catalog{{ID: "p1", Name: "Cut", Duration: 30, Price: decimal.RequireFromString("45.50")}}, nil
}

func (c *countingProvider) DaySchedule(_ context.Context, date string) (model.DaySchedule, error) {
	c.schedules++
	return model.DaySchedule{Exceptions: []availability.Exception{{Kind: availability.Add, Start: "09:00", End: "10:00", Reason: date}}}, nil
}

func (c *countingProvider) DayAppointments(context.Context, string) ([]availability.Booking, error) {
	c.appointments++
	return nil, nil
}

func (c *countingProvider) MonthDayOff(context.Context, int, int) ([]string, error) {
	return []string{"2026-02-03"}, nil
}

func newCache(next *countingProvider) *Provider {
	return New(next, redisx.NewMemoryKV(), slog.New(slog.NewTextHandler(io.Discard, nil)), nil, Config{})
}

func ctxFor(id string) context.Context {
	return tenant.WithTenant(context.Background(), tenant.Tenant{ID: id})
}

func TestProceduresCachedPerTenant(t *testing.T) {
	next := &countingProvider{}
	c := newCache(next)

	for i := 0; i < 3; i++ {
		cat, err := c.Procedures(ctxFor("salon-1"))
		if err != nil {
			t.Fatalf("Procedures failed: %v", err)
		}
		if !cat[0].Price.Equal(decimal.RequireFromString("45.50")) {
			t.Fatalf("price lost in cache: %s", cat[0].Price)
		}
	}
	if next.procedures != 1 {
		t.Fatalf("expected 1 backend call, got %d", next.procedures)
	}
	if _, err := c.Procedures(ctxFor("salon-2")); err != nil {
		t.Fatal(err)
	}
	if next.procedures != 2 {
		t.Fatalf("tenants must not share entries, got %d calls", next.procedures)
	}
}

func TestInvalidate(t *testing.T) {
	next := &countingProvider{}
	c := newCache(next)
	ctx := ctxFor("salon-1")

	if _, err := c.DaySchedule(ctx, "2026-01-26"); err != nil {
		t.Fatal(err)
	}
	s, err := c.DaySchedule(ctx, "2026-01-26")
	if err != nil || s.Exceptions[0].Reason != "2026-01-26" {
		t.Fatalf("unexpected cached schedule %+v, %v", s, err)
	}
	if next.schedules != 1 {
		t.Fatalf("expected 1 fetch, got %d", next.schedules)
	}
	if err := c.Invalidate(context.Background(), "salon-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.DaySchedule(ctx, "2026-01-26"); err != nil {
		t.Fatal(err)
	}
	if next.schedules != 2 {
		t.Fatalf("expected refetch after invalidate, got %d", next.schedules)
	}
}

func TestAppointmentsBypassCache(t *testing.T) {
	next := &countingProvider{}
	c := newCache(next)
	for i := 0; i < 2; i++ {
		if _, err := c.DayAppointments(ctxFor("salon-1"), "2026-01-26"); err != nil {
			t.Fatal(err)
		}
	}
	if next.appointments != 2 {
		t.Fatalf("appointments must not be cached, got %d calls", next.appointments)
	}
}

func TestMissingTenant(t *testing.T) {
	c := newCache(&countingProvider{})
	if _, err := c.Procedures(context.Background()); !errors.Is(err, tenant.ErrMissing) {
		t.Fatalf("expected tenant.ErrMissing, got %v", err)
	}
	if err := c.Invalidate(context.Background(), ""); !errors.Is(err, tenant.ErrMissing) {
		t.Fatalf("expected tenant.ErrMissing, got %v", err)
	}
}
