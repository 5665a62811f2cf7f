package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonportal/libs/tenant"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter counts requests per tenant and client in fixed windows stored in Redis, so
// every portal replica shares the same budget. Each window gets its own key
// (prefix:tenant:client:window) that expires on its own.
type RedisRateLimiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisRateLimiter(rdb redis.Cmdable, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "rl"
	}
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix, now: time.Now}
}

// Middleware rejects over-budget requests with 429 and a Retry-After hint. Redis failures
// either let the request through (failOpen) or answer 503.
func (rl *RedisRateLimiter) Middleware(logger *slog.Logger, failOpen bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := rl.now()
			count, err := rl.hit(r.Context(), rl.bucket(r), now)
			if err != nil {
				if logger != nil {
					logger.Warn("rate limiter unavailable", "err", err, "fail_open", failOpen)
				}
				if failOpen {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
				return
			}

			remaining := rl.limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if count > int64(rl.limit) {
				w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter(now)))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RedisRateLimiter) bucket(r *http.Request) string {
	id := tenant.IDFromContext(r.Context())
	if id == "" {
		// The limiter usually runs before tenant resolution.
		id = strings.TrimSpace(r.Header.Get(tenant.Header))
	}
	if id == "" {
		id = "-"
	}
	return rl.prefix + ":" + id + ":" + clientKey(r)
}

func (rl *RedisRateLimiter) hit(ctx context.Context, bucket string, now time.Time) (int64, error) {
	key := bucket + ":" + strconv.FormatInt(now.UnixNano()/int64(rl.window), 10)
	var incr *redis.IntCmd
	_, err := rl.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.PExpire(ctx, key, 2*rl.window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (rl *RedisRateLimiter) retryAfter(now time.Time) int {
	elapsed := time.Duration(now.UnixNano() % int64(rl.window))
	secs := int((rl.window - elapsed + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
