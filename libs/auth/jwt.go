package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims are issued by the business backend's client login. BusinessID is the tenant.
type Claims struct {
	jwt.RegisteredClaims
	BusinessID string `json:"business_id"`
	Role       string `json:"role"`
}

// KeySource resolves RS256 verification keys by key id.
type KeySource interface {
	Get(ctx context.Context, keyID string) (*rsa.PublicKey, error)
}

// Verifier validates bearer tokens with either a shared HS256 secret or RS256 keys.
type Verifier struct {
	secret []byte
	keys   KeySource
	issuer string
	leeway time.Duration
}

func NewHS256Verifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, leeway: 10 * time.Second}
}

func NewRS256Verifier(keys KeySource, issuer string) *Verifier {
	return &Verifier{keys: keys, issuer: issuer, leeway: 10 * time.Second}
}

func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.keys != nil {
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	} else {
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if v.keys == nil {
			return v.secret, nil
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("missing kid")
		}
		return v.keys.Get(ctx, kid)
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.BusinessID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SignHS256 issues a token; used by local tooling and tests.
func SignHS256(claims Claims, secret string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
