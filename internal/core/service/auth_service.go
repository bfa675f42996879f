package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/marketsquare/auth-service/internal/core/domain"
	"github.com/marketsquare/auth-service/internal/core/ports"
)

// recoveryTokenTTL is the lifetime of the single-use password-reset and
// email-verification tokens.
const recoveryTokenTTL = time.Hour

// AuthService orchestrates the credential lifecycle. All collaborators
// are explicit constructor dependencies so tests can inject fakes; the
// service holds no module-level state.
type AuthService struct {
	users    ports.UserRepository
	sellers  ports.SellerRepository
	tokens   ports.TokenIssuer
	revoked  ports.RevocationRegistry
	identity ports.IdentityProvider
	roles    *RoleResolver
	mail     ports.EmailDispatcher

	frontendURL string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	logger      zerolog.Logger
}

type AuthServiceDeps struct {
	Users       ports.UserRepository
	Sellers     ports.SellerRepository
	Tokens      ports.TokenIssuer
	Revoked     ports.RevocationRegistry
	Identity    ports.IdentityProvider
	Roles       *RoleResolver
	Mail        ports.EmailDispatcher
	FrontendURL string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	Logger      zerolog.Logger
}

func NewAuthService(deps AuthServiceDeps) *AuthService {
	if deps.AccessTTL <= 0 {
		deps.AccessTTL = defaultAccessTTL
	}
	if deps.RefreshTTL <= 0 {
		deps.RefreshTTL = refreshTTL
	}
	return &AuthService{
		users:       deps.Users,
		sellers:     deps.Sellers,
		tokens:      deps.Tokens,
		revoked:     deps.Revoked,
		identity:    deps.Identity,
		roles:       deps.Roles,
		mail:        deps.Mail,
		frontendURL: deps.FrontendURL,
		accessTTL:   deps.AccessTTL,
		refreshTTL:  deps.RefreshTTL,
		logger:      deps.Logger,
	}
}

// Register creates a credentialed account, issues a token pair and
// kicks off verification email delivery. The email is best-effort: a
// delivery failure never fails the registration.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Email:           domain.NormalizeEmail(in.Email),
		PasswordHash:    string(hash),
		Role:            s.roles.Resolve(in.Email, in.RequestedRole),
		IsEmailVerified: false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", created.ID).Str("role", created.Role).Msg("user registered")

	if err := s.dispatchVerificationEmail(ctx, created); err != nil {
		s.logger.Warn().Err(err).Str("user_id", created.ID).Msg("verification email not sent")
	}

	return s.issuePair(ctx, created)
}

// Login authenticates an email/password pair. A missing user and a
// wrong password are indistinguishable at the wire level.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug().Str("email", email).Msg("login for unknown email")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.Debug().Str("user_id", user.ID).Msg("login with wrong password")
		return nil, domain.ErrInvalidCredentials
	}

	return s.issuePair(ctx, user)
}

// Refresh exchanges a valid refresh token for a new token pair.
// Rotation is single-use: the consumed token is revoked for the rest of
// its lifetime, so replaying it fails. Role and seller id are
// re-resolved from the store because they may have changed since the
// token was issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.AuthResult, error) {
	claims, err := s.tokens.Verify(refreshToken, ports.TokenRefresh)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	if revoked, err := s.revoked.IsRevoked(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("revocation check: %w", err)
	} else if revoked {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}

	if err := s.revoked.Revoke(ctx, refreshToken, s.refreshTTL); err != nil {
		// Without the revocation entry the old token would stay usable;
		// rotation must not hand out a second live pair in that case.
		return nil, fmt.Errorf("revoke rotated refresh token: %w", err)
	}

	return s.issuePair(ctx, user)
}

// Logout revokes the presented access token. A single verify call both
// authenticates the request and yields the subject id. The revocation
// write is best-effort: if the registry is down the token simply ages
// out on its own, and logout still reports success.
func (s *AuthService) Logout(ctx context.Context, accessToken string) (*ports.LogoutResult, error) {
	claims, err := s.tokens.Verify(accessToken, ports.TokenAccess)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	if revoked, err := s.revoked.IsRevoked(ctx, accessToken); err == nil && revoked {
		return nil, domain.ErrInvalidToken
	}

	if err := s.revoked.Revoke(ctx, accessToken, s.accessTTL); err != nil {
		s.logger.Warn().Err(err).Str("user_id", claims.UserID).
			Msg("revocation write failed, relying on natural expiry")
	}

	return &ports.LogoutResult{UserID: claims.UserID, RevokedAt: time.Now().UTC()}, nil
}

// CurrentUser returns the public projection for an authenticated subject.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// issuePair builds the claim set for user, enriching it with the seller
// id when the account is a seller, and signs an access/refresh pair.
func (s *AuthService) issuePair(ctx context.Context, user *domain.User) (*ports.AuthResult, error) {
	claims := ports.TokenClaims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
	}

	if user.Role == domain.RoleSeller {
		seller, err := s.sellers.FindByUserID(ctx, user.ID)
		switch {
		case err == nil:
			claims.SellerID = seller.ID
		case errors.Is(err, domain.ErrSellerNotFound):
			// Seller onboarding may still be in progress; issue without
			// the seller claim.
		default:
			return nil, err
		}
	}

	access, err := s.tokens.Issue(claims, ports.TokenAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.Issue(claims, ports.TokenRefresh)
	if err != nil {
		return nil, err
	}

	return &ports.AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user.Public(),
	}, nil
}

// newRecoveryToken returns a high-entropy URL-safe single-use token.
func newRecoveryToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
