package ports

import (
	"context"

	"github.com/marketsquare/auth-service/internal/core/domain"
)

// GoogleCredentialKind is the explicit discriminant for the supported
// Google credential shapes. The caller states which shape it is
// submitting; the provider never guesses from the payload structure.
type GoogleCredentialKind string

const (
	// CredentialProfile is an already-exchanged profile object.
	CredentialProfile GoogleCredentialKind = "profile"
	// CredentialAccessToken is a provider access token; the profile is
	// fetched server-side from the userinfo endpoint.
	CredentialAccessToken GoogleCredentialKind = "access_token"
	// CredentialIDToken is a provider ID token verified against Google
	// before its claims are trusted.
	CredentialIDToken GoogleCredentialKind = "id_token"
)

// RawGoogleProfile is the client-submitted profile shape. Google has
// emitted both `sub` and legacy `id` for the subject over the years, so
// both are accepted.
type RawGoogleProfile struct {
	Sub     string `json:"sub"`
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleCredential is the tagged union of the supported input shapes.
// Exactly one payload field matching Kind is expected to be set.
type GoogleCredential struct {
	Kind        GoogleCredentialKind `json:"kind"`
	Profile     *RawGoogleProfile    `json:"profile,omitempty"`
	AccessToken string               `json:"access_token,omitempty"`
	IDToken     string               `json:"id_token,omitempty"`
}

// IdentityProvider normalizes any supported credential shape into the
// canonical federated profile, and drives the redirect-based handshake.
type IdentityProvider interface {
	Normalize(ctx context.Context, cred GoogleCredential) (*domain.FederatedProfile, error)
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*domain.FederatedProfile, error)
}
