// Package cache keeps tenant reference data (catalog, schedules, month summaries) in Redis.
// Appointments always go to the backend so a freshly booked slot is never offered again.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/salonportal/libs/metrics"
	"github.com/md-rashed-zaman/salonportal/libs/redisx"
	"github.com/md-rashed-zaman/salonportal/libs/tenant"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/model"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/scheduling"
)

// Provider wraps another scheduling.Provider. Every key embeds a per-tenant generation
// number, so Invalidate drops a tenant's entries with a single INCR.
type Provider struct {
	next    scheduling.Provider
	kv      redisx.KV
	ttl     time.Duration
	prefix  string
	logger  *slog.Logger
	metrics *metrics.Collector
}

type Config struct {
	TTL    time.Duration
	Prefix string
}

func New(next scheduling.Provider, kv redisx.KV, logger *slog.Logger, collector *metrics.Collector, cfg Config) *Provider {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "portal:cache"
	}
	return &Provider{next: next, kv: kv, ttl: cfg.TTL, prefix: cfg.Prefix, logger: logger, metrics: collector}
}

var _ scheduling.Provider = (*Provider)(nil)

func (p *Provider) genKey(tenantID string) string {
	return p.prefix + ":" + tenantID + ":gen"
}

func (p *Provider) generation(ctx context.Context, tenantID string) (string, error) {
	raw, err := p.kv.Get(ctx, p.genKey(tenantID))
	if errors.Is(err, redisx.ErrNotFound) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Invalidate makes every cached entry of the tenant unreachable.
func (p *Provider) Invalidate(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return tenant.ErrMissing
	}
	_, err := p.kv.Incr(ctx, p.genKey(tenantID))
	return err
}

func (p *Provider) key(ctx context.Context, kind, suffix string) (string, error) {
	t, err := tenant.Require(ctx)
	if err != nil {
		return "", err
	}
	gen, err := p.generation(ctx, t.ID)
	if err != nil {
		return "", err
	}
	k := p.prefix + ":" + t.ID + ":" + gen + ":" + kind
	if suffix != "" {
		k += ":" + suffix
	}
	return k, nil
}

// cached reads kind/suffix from Redis or loads and stores it. Redis failures fall through to
// load so a cache outage only costs latency.
func cached[T any](ctx context.Context, p *Provider, kind, suffix string, load func(context.Context) (T, error)) (T, error) {
	key, err := p.key(ctx, kind, suffix)
	if err != nil {
		if errors.Is(err, tenant.ErrMissing) {
			var zero T
			return zero, err
		}
		p.logger.Warn("cache key lookup failed", "kind", kind, "err", err)
		p.metrics.ObserveCache(kind, "error")
		return load(ctx)
	}

	if raw, err := p.kv.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			p.metrics.ObserveCache(kind, "hit")
			return v, nil
		}
		p.logger.Warn("cache entry undecodable", "key", key)
	} else if !errors.Is(err, redisx.ErrNotFound) {
		p.logger.Warn("cache read failed", "key", key, "err", err)
		p.metrics.ObserveCache(kind, "error")
		return load(ctx)
	}

	p.metrics.ObserveCache(kind, "miss")
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := p.kv.Set(ctx, key, raw, p.ttl); err != nil {
		p.logger.Warn("cache write failed", "key", key, "err", err)
	}
	return v, nil
}

func (p *Provider) Procedures(ctx context.Context) (model.Catalog, error) {
	return cached(ctx, p, "procedures", "", p.next.Procedures)
}

func (p *Provider) DaySchedule(ctx context.Context, date string) (model.DaySchedule, error) {
	return cached(ctx, p, "schedule", date, func(ctx context.Context) (model.DaySchedule, error) {
		return p.next.DaySchedule(ctx, date)
	})
}

func (p *Provider) MonthDayOff(ctx context.Context, year, month int) ([]string, error) {
	suffix := strconv.Itoa(year) + "-" + fmt.Sprintf("%02d", month)
	return cached(ctx, p, "month", suffix, func(ctx context.Context) ([]string, error) {
		return p.next.MonthDayOff(ctx, year, month)
	})
}

func (p *Provider) DayAppointments(ctx context.Context, date string) ([]availability.Booking, error) {
	return p.next.DayAppointments(ctx, date)
}
