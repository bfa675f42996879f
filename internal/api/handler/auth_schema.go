package handler

import (
	"time"

	"github.com/marketsquare/auth-service/internal/core/domain"
	"github.com/marketsquare/auth-service/internal/core/ports"
)

// --- Request types ---

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"  validate:"required"`
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,min=8"`
	// Role is a hint only; "admin" cannot be requested.
	Role string `json:"role" validate:"omitempty,oneof=user seller"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

type verifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// googleLoginRequest is the client-submitted credential. Kind is the
// explicit discriminant; exactly one matching payload field is used.
type googleLoginRequest struct {
	Kind        string                  `json:"kind" validate:"required,oneof=profile access_token id_token"`
	Profile     *ports.RawGoogleProfile `json:"profile,omitempty"`
	AccessToken string                  `json:"accessToken,omitempty"`
	IDToken     string                  `json:"idToken,omitempty"`
	Role        string                  `json:"role" validate:"omitempty,oneof=user seller"`
}

func (r *googleLoginRequest) credential() ports.GoogleCredential {
	return ports.GoogleCredential{
		Kind:        ports.GoogleCredentialKind(r.Kind),
		Profile:     r.Profile,
		AccessToken: r.AccessToken,
		IDToken:     r.IDToken,
	}
}

// --- Response types, owned by the transport layer ---

type userResponse struct {
	ID              string `json:"id"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	IsEmailVerified bool   `json:"isEmailVerified"`
	ProfilePicture  string `json:"profilePicture,omitempty"`
}

func toUserResponse(u *domain.PublicUser) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:              u.ID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
		ProfilePicture:  u.ProfilePicture,
	}
}

type authResponse struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refreshToken"`
	User         *userResponse `json:"user,omitempty"`
}

func toAuthResponse(res *ports.AuthResult) authResponse {
	return authResponse{
		Token:        res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         toUserResponse(res.User),
	}
}

type logoutResponse struct {
	Success     bool      `json:"success"`
	UserID      string    `json:"userId"`
	LoggedOutAt time.Time `json:"loggedOutAt"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// errorResponse is the standard error envelope returned on all 4xx/5xx
// responses.
type errorResponse struct {
	Error string `json:"error"`
}
