package domain

import "errors"

// Sentinel errors shared across the auth subsystem. The API layer maps
// each of these to exactly one HTTP status; handlers never re-derive a
// status from message text.
var (
	// ErrInvalidCredentials covers both "no such user" and "wrong
	// password" so the wire response cannot be used to probe for
	// accounts. Internal logs may distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidToken covers expired, malformed, revoked and
	// wrongly-signed access/refresh tokens uniformly.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidOrExpiredToken is the single-use recovery token failure
	// (password reset, email verification). 400, not 401: the caller is
	// not authenticating, the link they followed is stale.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// ErrIdentityVerification covers every federated credential failure:
	// bad signature, audience mismatch, profile fetch failure, missing
	// email.
	ErrIdentityVerification = errors.New("identity verification failed")

	ErrSellerNotFound = errors.New("seller not found")
)
