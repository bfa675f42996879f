package ports

import (
	"context"
	"time"

	"github.com/marketsquare/auth-service/internal/core/domain"
)

// RegisterInput carries the fields accepted at registration.
// RequestedRole is a hint only; the resolved role may differ.
type RegisterInput struct {
	FirstName     string
	LastName      string
	Email         string
	Password      string
	RequestedRole string
}

// AuthResult is the outcome of any flow that authenticates a user.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         *domain.PublicUser
}

// LogoutResult reports which subject was logged out and when.
type LogoutResult struct {
	UserID    string
	RevokedAt time.Time
}

// AuthService is the orchestrator composing the credential store,
// password hashing, token issuance, revocation, identity federation and
// role resolution.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, accessToken string) (*LogoutResult, error)

	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error

	SendVerificationEmail(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerificationEmail(ctx context.Context, email string) error

	GoogleLogin(ctx context.Context, cred GoogleCredential, requestedRole string) (*AuthResult, error)
	GoogleAuthURL(state string) string
	GoogleCallback(ctx context.Context, code string) (*AuthResult, error)

	CurrentUser(ctx context.Context, userID string) (*domain.PublicUser, error)
}
