package service

import (
	"context"
	"testing"

	"github.com/marketsquare/auth-service/internal/core/domain"
	"github.com/marketsquare/auth-service/internal/core/ports"
)

// passthroughNormalizer mimics the real provider: every credential
// shape resolves to the same canonical profile.
func passthroughNormalizer(profile domain.FederatedProfile) func(context.Context, ports.GoogleCredential) (*domain.FederatedProfile, error) {
	return func(_ context.Context, _ ports.GoogleCredential) (*domain.FederatedProfile, error) {
		p := profile
		return &p, nil
	}
}

func TestGoogleLogin_AllCredentialShapesResolveToOneAccount(t *testing.T) {
	h := newHarness(t)
	h.ident.normalizeFn = passthroughNormalizer(domain.FederatedProfile{
		Email:      "ada@example.com",
		Name:       "Ada Lovelace",
		Picture:    "https://img.example.com/ada.png",
		ProviderID: "google-sub-1",
	})

	creds := []ports.GoogleCredential{
		{Kind: ports.CredentialProfile, Profile: &ports.RawGoogleProfile{Sub: "google-sub-1", Email: "ada@example.com"}},
		{Kind: ports.CredentialAccessToken, AccessToken: "ya29.token"},
		{Kind: ports.CredentialIDToken, IDToken: "eyJ.header.sig"},
	}

	var firstID string
	for _, cred := range creds {
		res, err := h.svc.GoogleLogin(context.Background(), cred, "")
		if err != nil {
			t.Fatalf("GoogleLogin(%s): %v", cred.Kind, err)
		}
		if firstID == "" {
			firstID = res.User.ID
		} else if res.User.ID != firstID {
			t.Fatalf("credential shape %s resolved to a different account", cred.Kind)
		}
	}
	if h.users.count() != 1 {
		t.Fatalf("expected a single account, got %d", h.users.count())
	}
}

func TestGoogleLogin_FirstLoginProvisionsVerifiedAccount(t *testing.T) {
	h := newHarness(t)
	h.ident.normalizeFn = passthroughNormalizer(domain.FederatedProfile{
		Email:      "ada@example.com",
		Name:       "Ada Lovelace",
		Picture:    "https://img.example.com/ada.png",
		ProviderID: "google-sub-1",
	})

	res, err := h.svc.GoogleLogin(context.Background(), ports.GoogleCredential{Kind: ports.CredentialAccessToken, AccessToken: "tok"}, "")
	if err != nil {
		t.Fatalf("GoogleLogin: %v", err)
	}
	if !res.User.IsEmailVerified {
		t.Fatalf("federated accounts are verified by the provider")
	}
	if res.User.FirstName != "Ada" || res.User.LastName != "Lovelace" {
		t.Fatalf("display name not split: %+v", res.User)
	}
	if res.User.ProfilePicture != "https://img.example.com/ada.png" {
		t.Fatalf("picture not stored")
	}

	stored := h.users.get(t, res.User.ID)
	if stored.PasswordHash == "" {
		t.Fatalf("federated account must still carry a password hash")
	}
	if stored.FederatedID != "google-sub-1" {
		t.Fatalf("federated id not stored")
	}
}

func TestGoogleLogin_LinksExistingPasswordAccount(t *testing.T) {
	h := newHarness(t)
	reg := registerAda(t, h)

	h.ident.normalizeFn = passthroughNormalizer(domain.FederatedProfile{
		Email:      "ada@example.com",
		Name:       "Ada Lovelace",
		ProviderID: "google-sub-1",
	})

	res, err := h.svc.GoogleLogin(context.Background(), ports.GoogleCredential{Kind: ports.CredentialAccessToken, AccessToken: "tok"}, "")
	if err != nil {
		t.Fatalf("GoogleLogin: %v", err)
	}
	if res.User.ID != reg.User.ID {
		t.Fatalf("federated login must attach to the existing account")
	}
	if h.users.count() != 1 {
		t.Fatalf("no second account expected")
	}

	stored := h.users.get(t, reg.User.ID)
	if stored.FederatedID != "google-sub-1" {
		t.Fatalf("identity not linked")
	}
	if !stored.IsEmailVerified {
		t.Fatalf("linking implies a verified address")
	}

	// The original password still works after linking.
	if _, err := h.svc.Login(context.Background(), "ada@example.com", "correct horse battery"); err != nil {
		t.Fatalf("password login broken after linking: %v", err)
	}
}

func TestGoogleLogin_PromotesAllowListedAdmin(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.Register(context.Background(), ports.RegisterInput{
		FirstName: "Root", LastName: "Operator",
		Email: "admin@marketsquare.dev", Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Allow-list checks only apply on federated logins; password
	// registration resolves through the same resolver, so the account is
	// already admin. Downgrade it to exercise the promotion branch.
	if err := h.users.UpdateRole(context.Background(), res.User.ID, domain.RoleUser); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}

	h.ident.normalizeFn = passthroughNormalizer(domain.FederatedProfile{
		Email:      "admin@marketsquare.dev",
		Name:       "Root Operator",
		ProviderID: "google-sub-9",
	})

	fed, err := h.svc.GoogleLogin(context.Background(), ports.GoogleCredential{Kind: ports.CredentialAccessToken, AccessToken: "tok"}, "")
	if err != nil {
		t.Fatalf("GoogleLogin: %v", err)
	}
	if fed.User.Role != domain.RoleAdmin {
		t.Fatalf("expected admin promotion, got role %q", fed.User.Role)
	}
	if h.users.get(t, res.User.ID).Role != domain.RoleAdmin {
		t.Fatalf("promotion not persisted")
	}

	claims, err := h.issuer.Verify(fed.AccessToken, ports.TokenAccess)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Role != domain.RoleAdmin {
		t.Fatalf("claims carry stale role %q", claims.Role)
	}
}

func TestGoogleLogin_RepeatLoginDoesNotRewriteRole(t *testing.T) {
	h := newHarness(t)
	h.ident.normalizeFn = passthroughNormalizer(domain.FederatedProfile{
		Email:      "ada@example.com",
		Name:       "Ada Lovelace",
		ProviderID: "google-sub-1",
	})

	if _, err := h.svc.GoogleLogin(context.Background(), ports.GoogleCredential{Kind: ports.CredentialAccessToken, AccessToken: "tok"}, ""); err != nil {
		t.Fatalf("first login: %v", err)
	}
	before := h.users.calls.updateRole
	if _, err := h.svc.GoogleLogin(context.Background(), ports.GoogleCredential{Kind: ports.CredentialAccessToken, AccessToken: "tok"}, ""); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if h.users.calls.updateRole != before {
		t.Fatalf("non-admin repeat login must not touch the role")
	}
}

func TestGoogleLogin_NormalizeFailurePropagates(t *testing.T) {
	h := newHarness(t)
	h.ident.normalizeFn = func(_ context.Context, _ ports.GoogleCredential) (*domain.FederatedProfile, error) {
		return nil, domain.ErrIdentityVerification
	}

	if _, err := h.svc.GoogleLogin(context.Background(), ports.GoogleCredential{Kind: ports.CredentialIDToken, IDToken: "bad"}, ""); err != domain.ErrIdentityVerification {
		t.Fatalf("expected ErrIdentityVerification, got %v", err)
	}
	if h.users.count() != 0 {
		t.Fatalf("no account must be created on verification failure")
	}
}

func TestGoogleCallback_ExchangesCodeAndLogsIn(t *testing.T) {
	h := newHarness(t)
	h.ident.exchangeFn = func(_ context.Context, code string) (*domain.FederatedProfile, error) {
		if code != "auth-code-1" {
			return nil, domain.ErrIdentityVerification
		}
		return &domain.FederatedProfile{
			Email:      "ada@example.com",
			Name:       "Ada Lovelace",
			ProviderID: "google-sub-1",
		}, nil
	}

	res, err := h.svc.GoogleCallback(context.Background(), "auth-code-1")
	if err != nil {
		t.Fatalf("GoogleCallback: %v", err)
	}
	if res.User.Email != "ada@example.com" {
		t.Fatalf("unexpected account %+v", res.User)
	}
	if _, err := h.issuer.Verify(res.AccessToken, ports.TokenAccess); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if _, err := h.svc.GoogleCallback(context.Background(), "wrong-code"); err != domain.ErrIdentityVerification {
		t.Fatalf("expected ErrIdentityVerification, got %v", err)
	}
}

func TestGoogleAuthURL_DelegatesToProvider(t *testing.T) {
	h := newHarness(t)
	got := h.svc.GoogleAuthURL("state-123")
	if got != "https://accounts.example.com/auth?state=state-123" {
		t.Fatalf("unexpected consent URL %q", got)
	}
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		in    string
		first string
		last  string
	}{
		{"Ada Lovelace", "Ada", "Lovelace"},
		{"Ada", "Ada", ""},
		{"Ada King Lovelace", "Ada King", "Lovelace"},
		{"  ", "", ""},
	}
	for _, tc := range cases {
		first, last := splitName(tc.in)
		if first != tc.first || last != tc.last {
			t.Fatalf("splitName(%q) = (%q, %q), want (%q, %q)", tc.in, first, last, tc.first, tc.last)
		}
	}
}
