package ports

import (
	"context"
	"time"

	"github.com/marketsquare/auth-service/internal/core/domain"
)

// UserRepository is the persistence boundary for user records.
//
// The Consume* operations are single atomic filter-and-update calls:
// they match the single-use token together with an unexpired timestamp
// and clear the token fields in the same operation, so two concurrent
// requests can never both redeem the same token.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByFederatedID(ctx context.Context, federatedID string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)

	SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error
	ConsumeResetToken(ctx context.Context, token string, now time.Time, newPasswordHash string) (*domain.User, error)

	SetVerifyToken(ctx context.Context, userID, token string, expiry time.Time) error
	ConsumeVerifyToken(ctx context.Context, token string, now time.Time) (*domain.User, error)

	LinkFederatedIdentity(ctx context.Context, userID, federatedID, picture string) error
	UpdateRole(ctx context.Context, userID, role string) error
}

// SellerRepository exposes the read-only seller lookup used to enrich
// token claims. Seller lifecycle is owned by another subsystem.
type SellerRepository interface {
	FindByUserID(ctx context.Context, userID string) (*domain.Seller, error)
}
