// Package identity implements the Google side of identity federation:
// normalizing the supported credential shapes into one canonical
// profile and driving the redirect-based OAuth handshake.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marketsquare/auth-service/internal/core/domain"
	"github.com/marketsquare/auth-service/internal/core/ports"
)

const (
	defaultAuthURL      = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL     = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL  = "https://openidconnect.googleapis.com/v1/userinfo"
	defaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

	defaultHTTPTimeout = 10 * time.Second
)

// GoogleConfig carries the provider settings. The endpoint fields exist
// so tests can point the client at a local server; they default to
// Google's production endpoints.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	TokenInfoURL string

	HTTPClient *http.Client
}

// GoogleProvider implements ports.IdentityProvider for Google.
type GoogleProvider struct {
	cfg    GoogleConfig
	client *http.Client
}

func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}
	if cfg.TokenInfoURL == "" {
		cfg.TokenInfoURL = defaultTokenInfoURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &GoogleProvider{cfg: cfg, client: client}
}

// Normalize dispatches on the explicit credential kind. Each shape has
// its own parser; none of them guess from payload structure.
func (g *GoogleProvider) Normalize(ctx context.Context, cred ports.GoogleCredential) (*domain.FederatedProfile, error) {
	switch cred.Kind {
	case ports.CredentialProfile:
		if cred.Profile == nil {
			return nil, fmt.Errorf("%w: missing profile payload", domain.ErrIdentityVerification)
		}
		return canonical(*cred.Profile)
	case ports.CredentialAccessToken:
		if cred.AccessToken == "" {
			return nil, fmt.Errorf("%w: missing access token", domain.ErrIdentityVerification)
		}
		return g.fetchUserInfo(ctx, cred.AccessToken)
	case ports.CredentialIDToken:
		if cred.IDToken == "" {
			return nil, fmt.Errorf("%w: missing id token", domain.ErrIdentityVerification)
		}
		return g.verifyIDToken(ctx, cred.IDToken)
	default:
		return nil, fmt.Errorf("%w: unknown credential kind %q", domain.ErrIdentityVerification, cred.Kind)
	}
}

// AuthCodeURL builds the consent URL for the redirect handshake.
func (g *GoogleProvider) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", g.cfg.ClientID)
	q.Set("redirect_uri", g.cfg.RedirectURL)
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return g.cfg.AuthURL + "?" + q.Encode()
}

// ExchangeCode trades an authorization code for an access token and
// fetches the profile with it.
func (g *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*domain.FederatedProfile, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", g.cfg.ClientID)
	form.Set("client_secret", g.cfg.ClientSecret)
	form.Set("redirect_uri", g.cfg.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIdentityVerification, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", domain.ErrIdentityVerification, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: token exchange status %d", domain.ErrIdentityVerification, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: token exchange response", domain.ErrIdentityVerification)
	}

	return g.fetchUserInfo(ctx, payload.AccessToken)
}

// fetchUserInfo resolves a provider access token into a profile via the
// userinfo endpoint.
func (g *GoogleProvider) fetchUserInfo(ctx context.Context, accessToken string) (*domain.FederatedProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIdentityVerification, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", domain.ErrIdentityVerification, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", domain.ErrIdentityVerification, resp.StatusCode)
	}

	var raw ports.RawGoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: userinfo body", domain.ErrIdentityVerification)
	}
	return canonical(raw)
}

// verifyIDToken validates an ID token through Google's tokeninfo
// endpoint, which checks the signature server-side. The audience must
// match our client id before any claim is trusted.
func (g *GoogleProvider) verifyIDToken(ctx context.Context, idToken string) (*domain.FederatedProfile, error) {
	endpoint := g.cfg.TokenInfoURL + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIdentityVerification, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: tokeninfo: %v", domain.ErrIdentityVerification, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tokeninfo status %d", domain.ErrIdentityVerification, resp.StatusCode)
	}

	var payload struct {
		ports.RawGoogleProfile
		Audience string `json:"aud"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: tokeninfo body", domain.ErrIdentityVerification)
	}
	if payload.Audience != g.cfg.ClientID {
		return nil, fmt.Errorf("%w: audience mismatch", domain.ErrIdentityVerification)
	}
	return canonical(payload.RawGoogleProfile)
}

// canonical is the single funnel every credential shape passes through.
// A profile without an email is rejected here, once, regardless of
// which shape carried it.
func canonical(raw ports.RawGoogleProfile) (*domain.FederatedProfile, error) {
	providerID := raw.Sub
	if providerID == "" {
		providerID = raw.ID
	}
	if providerID == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrIdentityVerification)
	}
	if strings.TrimSpace(raw.Email) == "" {
		return nil, fmt.Errorf("%w: missing email", domain.ErrIdentityVerification)
	}

	return &domain.FederatedProfile{
		Email:      domain.NormalizeEmail(raw.Email),
		Name:       raw.Name,
		Picture:    raw.Picture,
		ProviderID: providerID,
	}, nil
}
