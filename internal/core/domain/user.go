package domain

import (
	"strings"
	"time"
)

// NormalizeEmail canonicalizes an email for lookup and storage. Emails
// are unique case-insensitively, so every path lowercases before
// touching the store.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const (
	RoleUser   = "user"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// User models an account in the marketplace. A password hash is always
// present, even for accounts created through a federated login, so the
// credential path stays uniform.
type User struct {
	ID              string `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	PasswordHash    string `json:"-"`
	Role            string `json:"role"`
	FederatedID     string `json:"-"`
	IsEmailVerified bool   `json:"is_email_verified"`
	ProfilePicture  string `json:"profile_picture,omitempty"`

	// Single-use recovery tokens. Cleared atomically on successful use;
	// a token past its expiry is treated as absent.
	ResetToken        string    `json:"-"`
	ResetTokenExpiry  time.Time `json:"-"`
	VerifyToken       string    `json:"-"`
	VerifyTokenExpiry time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicUser is the projection of a User safe to return over the wire.
type PublicUser struct {
	ID              string `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	IsEmailVerified bool   `json:"is_email_verified"`
	ProfilePicture  string `json:"profile_picture,omitempty"`
}

// Public returns the wire-safe projection of u.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:              u.ID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
		ProfilePicture:  u.ProfilePicture,
	}
}

// Seller is the seller record linked 1:1 to a user. This subsystem only
// reads it to enrich token claims; seller lifecycle is owned elsewhere.
type Seller struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	SubscriptionID string `json:"subscription_id,omitempty"`
}

// FederatedProfile is the canonical identity extracted from any of the
// supported Google credential shapes.
type FederatedProfile struct {
	Email      string
	Name       string
	Picture    string
	ProviderID string
}
