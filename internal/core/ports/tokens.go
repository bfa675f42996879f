package ports

import (
	"context"
	"time"
)

// TokenKind selects which secret and lifetime a token is signed and
// verified with. Access and refresh tokens use distinct secrets; that
// separation is a security invariant, not an implementation detail.
type TokenKind int

const (
	TokenAccess TokenKind = iota
	TokenRefresh
)

func (k TokenKind) String() string {
	if k == TokenRefresh {
		return "refresh"
	}
	return "access"
}

// TokenClaims is the claim set carried by both token kinds.
type TokenClaims struct {
	UserID   string
	Role     string
	Email    string
	SellerID string
}

// TokenIssuer signs and verifies access and refresh tokens.
type TokenIssuer interface {
	Issue(claims TokenClaims, kind TokenKind) (string, error)
	// Verify checks signature and expiry against the secret matching
	// kind. Expired and malformed tokens yield the same
	// domain.ErrInvalidToken so callers cannot build an oracle from the
	// failure reason.
	Verify(token string, kind TokenKind) (*TokenClaims, error)
}

// RevocationRegistry records tokens that must be rejected before their
// natural expiry. Re-revoking an already revoked token is a no-op.
type RevocationRegistry interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}
