package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy describes which browser origins may call the API. An origin entry may be exact
// ("https://portal.example"), "*" or a subdomain wildcard ("https://*.portal.example") so every
// salon's own portal host is covered by one entry.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// PortalCORS is the policy for browser clients of the portal API.
func PortalCORS(origins []string) CORSPolicy {
	return CORSPolicy{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Tenant-Id", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Idempotent-Replayed", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}
}

type originRule struct {
	any    bool
	exact  string
	scheme string
	suffix string
}

func (o originRule) match(origin string) bool {
	switch {
	case o.any:
		return true
	case o.suffix != "":
		rest, ok := strings.CutPrefix(origin, o.scheme)
		return ok && len(rest) > len(o.suffix) && strings.HasSuffix(rest, o.suffix)
	default:
		return o.exact == origin
	}
}

func compileOrigins(values []string) []originRule {
	var rules []originRule
	for _, v := range values {
		v = strings.ToLower(strings.TrimRight(strings.TrimSpace(v), "/"))
		switch {
		case v == "":
		case v == "*":
			rules = append(rules, originRule{any: true})
		case strings.Contains(v, "://*."):
			scheme, host, _ := strings.Cut(v, "://*")
			rules = append(rules, originRule{scheme: scheme + "://", suffix: host})
		default:
			rules = append(rules, originRule{exact: v})
		}
	}
	return rules
}

func joinHeaderList(values []string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, ", ")
}

// WithCORS answers preflights and decorates responses for allowed origins. Without any
// allowed origin it passes requests through untouched.
func WithCORS(cfg CORSPolicy) Middleware {
	rules := compileOrigins(cfg.AllowedOrigins)
	if len(rules) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	methods := joinHeaderList(cfg.AllowedMethods)
	allowHeaders := joinHeaderList(cfg.AllowedHeaders)
	exposeHeaders := joinHeaderList(cfg.ExposedHeaders)
	maxAge := ""
	if secs := int(cfg.MaxAge / time.Second); secs > 0 {
		maxAge = strconv.Itoa(secs)
	}

	allowed := func(origin string) (string, bool) {
		lower := strings.ToLower(origin)
		for _, rule := range rules {
			if !rule.match(lower) {
				continue
			}
			// Credentialed requests may not use the literal wildcard.
			if rule.any && !cfg.AllowCredentials {
				return "*", true
			}
			return origin, true
		}
		return "", false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			allowOrigin, ok := allowed(origin)
			if origin == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", allowOrigin)
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposeHeaders != "" {
				h.Set("Access-Control-Expose-Headers", exposeHeaders)
			}

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if !preflight {
				next.ServeHTTP(w, r)
				return
			}
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			if methods != "" {
				h.Set("Access-Control-Allow-Methods", methods)
			}
			if allowHeaders != "" {
				h.Set("Access-Control-Allow-Headers", allowHeaders)
			}
			if maxAge != "" {
				h.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
