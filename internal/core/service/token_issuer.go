package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/marketsquare/auth-service/internal/core/domain"
	"github.com/marketsquare/auth-service/internal/core/ports"
)

const defaultAccessTTL = 24 * time.Hour

// refreshTTL is fixed: refresh tokens live 7 days.
const refreshTTL = 7 * 24 * time.Hour

// tokenClaims is the JWT claim set for both token kinds. The subject
// registered claim carries the user id.
type tokenClaims struct {
	Role     string `json:"role"`
	Email    string `json:"email,omitempty"`
	SellerID string `json:"seller_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies access and refresh tokens with
// distinct HS256 secrets. Missing secrets are a fatal startup
// condition: the constructor fails closed rather than letting one
// token kind silently borrow the other's secret.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
}

func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL time.Duration) (*TokenIssuer, error) {
	if accessSecret == "" {
		return nil, errors.New("token issuer: access secret is not configured")
	}
	if refreshSecret == "" {
		return nil, errors.New("token issuer: refresh secret is not configured")
	}
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
	}, nil
}

// AccessTTL reports the configured access token lifetime. The
// revocation registry uses it as the revocation entry TTL.
func (t *TokenIssuer) AccessTTL() time.Duration { return t.accessTTL }

// RefreshTTL reports the refresh token lifetime.
func (t *TokenIssuer) RefreshTTL() time.Duration { return refreshTTL }

// Issue signs claims with the secret and lifetime matching kind.
func (t *TokenIssuer) Issue(claims ports.TokenClaims, kind ports.TokenKind) (string, error) {
	secret, ttl := t.accessSecret, t.accessTTL
	if kind == ports.TokenRefresh {
		secret, ttl = t.refreshSecret, refreshTTL
	}

	now := time.Now()
	c := tokenClaims{
		Role:     claims.Role,
		Email:    claims.Email,
		SellerID: claims.SellerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: claims.UserID,
			// The jti keeps tokens unique even when identical claims are
			// signed within the same second; rotation revokes by the raw
			// token string and needs the replacement to differ.
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify checks signature and expiry against the secret matching kind.
// Every failure mode collapses into domain.ErrInvalidToken.
func (t *TokenIssuer) Verify(token string, kind ports.TokenKind) (*ports.TokenClaims, error) {
	secret := t.accessSecret
	if kind == ports.TokenRefresh {
		secret = t.refreshSecret
	}

	c := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(tok *jwt.Token) (interface{}, error) {
		if tok.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}

	return &ports.TokenClaims{
		UserID:   c.Subject,
		Role:     c.Role,
		Email:    c.Email,
		SellerID: c.SellerID,
	}, nil
}
