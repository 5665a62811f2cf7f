package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonportal/libs/auth"
	"github.com/md-rashed-zaman/salonportal/libs/tenant"
)

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// WithTenant resolves the salon of every request. A bearer token, when sent, must verify and
// its business_id wins; the X-Tenant-Id header then has to agree with it. Anonymous requests
// name the salon with X-Tenant-Id alone.
func WithTenant(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headerTenant := strings.TrimSpace(r.Header.Get(tenant.Header))
			t := tenant.Tenant{ID: headerTenant}

			if token, ok := bearerToken(r); ok {
				if verifier == nil {
					http.Error(w, "token verification not configured", http.StatusUnauthorized)
					return
				}
				claims, err := verifier.Verify(r.Context(), token)
				if err != nil {
					msg := "invalid token"
					if errors.Is(err, auth.ErrTokenExpired) {
						msg = "token expired"
					}
					http.Error(w, msg, http.StatusUnauthorized)
					return
				}
				if headerTenant != "" && headerTenant != claims.BusinessID {
					http.Error(w, "tenant does not match token", http.StatusForbidden)
					return
				}
				t = tenant.Tenant{ID: claims.BusinessID, ClientID: claims.Subject, Token: token}
			}

			if t.ID == "" {
				http.Error(w, "missing "+tenant.Header, http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r.WithContext(tenant.WithTenant(r.Context(), t)))
		})
	}
}

// requireClient rejects requests that carry no signed-in client.
func requireClient(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := tenant.FromContext(r.Context())
		if !ok || t.ClientID == "" {
			http.Error(w, "sign in required", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return token, token != ""
}
