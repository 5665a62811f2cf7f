package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func clientClaims(exp time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "client-1",
			Issuer:    "salon-backend",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		BusinessID: "salon-1",
		Role:       "client",
	}
}

func TestHS256RoundTrip(t *testing.T) {
	token, err := SignHS256(clientClaims(time.Now().Add(time.Hour)), "test-secret")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	claims, err := NewHS256Verifier("test-secret", "salon-backend").Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != "client-1" || claims.BusinessID != "salon-1" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if _, err := NewHS256Verifier("wrong-secret", "").Verify(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := NewHS256Verifier("test-secret", "someone-else").Verify(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected issuer mismatch, got %v", err)
	}
}

func TestHS256Expired(t *testing.T) {
	token, err := SignHS256(clientClaims(time.Now().Add(-time.Hour)), "s")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewHS256Verifier("s", "").Verify(context.Background(), token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenWithoutBusinessIsRejected(t *testing.T) {
	c := clientClaims(time.Now().Add(time.Hour))
	c.BusinessID = ""
	token, _ := SignHS256(c, "s")
	if _, err := NewHS256Verifier("s", "").Verify(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRS256ViaJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(keySet{Keys: []jsonWebKey{{
			Kty: "RSA",
			Kid: "k1",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	defer srv.Close()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, clientClaims(time.Now().Add(time.Hour)))
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	v := NewRS256Verifier(NewJWKSClient(srv.URL, time.Minute, srv.Client()), "")
	for i := 0; i < 2; i++ {
		claims, err := v.Verify(context.Background(), signed)
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if claims.BusinessID != "salon-1" {
			t.Fatalf("claims mismatch: %+v", claims)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected cached jwks, got %d fetches", hits.Load())
	}

	// HS256 tokens must not pass an RS256 verifier.
	hs, _ := SignHS256(clientClaims(time.Now().Add(time.Hour)), "s")
	if _, err := v.Verify(context.Background(), hs); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWKSUnknownKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"keys":[]}`))
	}))
	defer srv.Close()
	_, err := NewJWKSClient(srv.URL, time.Minute, nil).Get(context.Background(), "nope")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestJWKSUnknownKeyRespectsCooldown(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"keys":[]}`))
	}))
	defer srv.Close()

	c := NewJWKSClient(srv.URL, time.Minute, srv.Client())
	for i := 0; i < 3; i++ {
		if _, err := c.Get(context.Background(), "nope"); !errors.Is(err, ErrKeyNotFound) {
			t.Fatalf("expected ErrKeyNotFound, got %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("unknown kids must not refetch inside the cooldown, got %d fetches", hits.Load())
	}
}
