package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/marketsquare/auth-service/internal/core/domain"
	"github.com/marketsquare/auth-service/internal/core/ports"
)

// GoogleLogin authenticates a client-submitted Google credential. Every
// supported shape funnels through the identity provider's normalizer
// and then the same find-or-create-or-update logic.
func (s *AuthService) GoogleLogin(ctx context.Context, cred ports.GoogleCredential, requestedRole string) (*ports.AuthResult, error) {
	profile, err := s.identity.Normalize(ctx, cred)
	if err != nil {
		return nil, err
	}
	return s.loginFederated(ctx, profile, requestedRole)
}

// GoogleAuthURL builds the provider consent URL for the redirect-based
// handshake.
func (s *AuthService) GoogleAuthURL(state string) string {
	return s.identity.AuthCodeURL(state)
}

// GoogleCallback completes the redirect-based handshake: the
// authorization code is exchanged server-side and the resulting profile
// goes through the same federated login path.
func (s *AuthService) GoogleCallback(ctx context.Context, code string) (*ports.AuthResult, error) {
	profile, err := s.identity.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.loginFederated(ctx, profile, "")
}

// loginFederated finds the account matching the canonical profile, or
// creates one on first federated login. Existing password accounts get
// the federated identity linked. An admin allow-list match promotes the
// stored role at login time; that privilege change is deliberate and
// logged.
func (s *AuthService) loginFederated(ctx context.Context, profile *domain.FederatedProfile, requestedRole string) (*ports.AuthResult, error) {
	user, err := s.users.FindByFederatedID(ctx, profile.ProviderID)
	if errors.Is(err, domain.ErrUserNotFound) {
		user, err = s.users.FindByEmail(ctx, domain.NormalizeEmail(profile.Email))
		switch {
		case err == nil:
			// Known email, first federated login: link the identity.
			if linkErr := s.users.LinkFederatedIdentity(ctx, user.ID, profile.ProviderID, profile.Picture); linkErr != nil {
				return nil, linkErr
			}
			user.FederatedID = profile.ProviderID
			user.IsEmailVerified = true
		case errors.Is(err, domain.ErrUserNotFound):
			user, err = s.createFederatedUser(ctx, profile, requestedRole)
			if err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if s.roles.IsAdmin(user.Email) && user.Role != domain.RoleAdmin {
		if err := s.users.UpdateRole(ctx, user.ID, domain.RoleAdmin); err != nil {
			return nil, err
		}
		s.logger.Info().Str("user_id", user.ID).Str("from", user.Role).
			Msg("role promoted to admin on federated login")
		user.Role = domain.RoleAdmin
	}

	return s.issuePair(ctx, user)
}

// createFederatedUser provisions an account for a first-time federated
// login. The account still gets a (random) password hash so the
// credential path stays uniform.
func (s *AuthService) createFederatedUser(ctx context.Context, profile *domain.FederatedProfile, requestedRole string) (*domain.User, error) {
	random := make([]byte, 24)
	if _, err := rand.Read(random); err != nil {
		return nil, fmt.Errorf("generate placeholder password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(base64.RawStdEncoding.EncodeToString(random)), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash placeholder password: %w", err)
	}

	first, last := splitName(profile.Name)
	now := time.Now().UTC()
	user := &domain.User{
		FirstName:       first,
		LastName:        last,
		Email:           domain.NormalizeEmail(profile.Email),
		PasswordHash:    string(hash),
		Role:            s.roles.Resolve(profile.Email, requestedRole),
		FederatedID:     profile.ProviderID,
		IsEmailVerified: true, // the provider vouches for the address
		ProfilePicture:  profile.Picture,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", created.ID).Str("role", created.Role).Msg("federated user created")
	return created, nil
}

// splitName divides a display name into first and last on the final
// space. Single-word names become the first name.
func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	i := strings.LastIndex(name, " ")
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}
