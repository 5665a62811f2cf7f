package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonportal/libs/tenant"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("a"), nil, mw("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "handler" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestWithRequestIDGeneratesAndEchoes(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rw.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated id to be echoed, got %q / %q", seen, rw.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc" {
		t.Fatalf("expected caller id to be kept, got %q", seen)
	}
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Now()
	if !rl.allow("1.2.3.4", now) || !rl.allow("1.2.3.4", now) {
		t.Fatal("expected first two requests to pass")
	}
	if rl.allow("1.2.3.4", now) {
		t.Fatal("expected third request to be limited")
	}
	if !rl.allow("5.6.7.8", now) {
		t.Fatal("other clients must have their own bucket")
	}
	if !rl.allow("1.2.3.4", now.Add(31*time.Second)) {
		t.Fatal("expected a token to be refilled after half the window")
	}
}

func TestWithCORSPreflight(t *testing.T) {
	h := WithCORS(CORSPolicy{
		AllowedOrigins: []string{"https://salon.example"},
		AllowedMethods: []string{"GET", "POST"},
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://salon.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rw.Code)
	}
	if rw.Header().Get("Access-Control-Allow-Origin") != "https://salon.example" {
		t.Fatalf("unexpected allow origin %q", rw.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestWithCORSSubdomainWildcard(t *testing.T) {
	h := WithCORS(PortalCORS([]string{"https://*.portal.example"}))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		origin string
		want   string
	}{
		{"https://glow.portal.example", "https://glow.portal.example"},
		{"https://portal.example", ""},
		{"http://glow.portal.example", ""},
		{"https://evil.example", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", tc.origin)
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		if got := rw.Header().Get("Access-Control-Allow-Origin"); got != tc.want {
			t.Fatalf("%s: expected allow origin %q, got %q", tc.origin, tc.want, got)
		}
		if tc.want != "" && rw.Header().Get("Access-Control-Expose-Headers") == "" {
			t.Fatalf("%s: expected exposed headers", tc.origin)
		}
	}
}

func TestRedisRateLimiterBucketAndRetryAfter(t *testing.T) {
	rl := NewRedisRateLimiter(nil, 10, time.Minute, "portal:rl")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := rl.bucket(req); got != "portal:rl:-:10.0.0.1" {
		t.Fatalf("unexpected anonymous bucket %q", got)
	}
	req.Header.Set(tenant.Header, "salon-1")
	if got := rl.bucket(req); got != "portal:rl:salon-1:10.0.0.1" {
		t.Fatalf("unexpected tenant bucket %q", got)
	}

	start := time.Unix(0, 0).Add(100 * time.Minute)
	if got := rl.retryAfter(start.Add(45 * time.Second)); got != 15 {
		t.Fatalf("expected 15s retry, got %d", got)
	}
	if got := rl.retryAfter(start); got != 60 {
		t.Fatalf("expected full window at boundary, got %d", got)
	}
}

func TestWithRecover(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := WithRecover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
}
