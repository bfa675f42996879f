package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/marketsquare/auth-service/internal/core/domain"
	"github.com/marketsquare/auth-service/internal/core/ports"
)

// ForgotPassword issues a single-use reset token and hands the link to
// the email sender. It reports success whether or not the email exists;
// only the internal log records the difference.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug().Str("email", email).Msg("password reset for unknown email")
			return nil
		}
		return err
	}

	token, err := newRecoveryToken()
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, user.ID, token, time.Now().UTC().Add(recoveryTokenTTL)); err != nil {
		return err
	}

	s.mail.Enqueue(ports.EmailJob{
		To:        user.Email,
		Template:  ports.EmailPasswordReset,
		Name:      user.FirstName,
		Link:      fmt.Sprintf("%s/reset-password/%s", s.frontendURL, token),
		ExpiresIn: recoveryTokenTTL,
	})

	s.logger.Info().Str("user_id", user.ID).Msg("password reset token issued")
	return nil
}

// ResetPassword redeems a reset token and stores the new password. The
// lookup, update and token clearing happen in one atomic repository
// call, so a concurrent second request cannot redeem the same token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return domain.ErrInvalidOrExpiredToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.ConsumeResetToken(ctx, token, time.Now().UTC(), string(hash))
	if err != nil {
		return err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("password reset")
	return nil
}

// SendVerificationEmail issues a fresh verification token for the given
// address. Like ForgotPassword it never discloses whether the address
// is registered.
func (s *AuthService) SendVerificationEmail(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug().Str("email", email).Msg("verification requested for unknown email")
			return nil
		}
		return err
	}
	if user.IsEmailVerified {
		return nil
	}
	return s.dispatchVerificationEmail(ctx, user)
}

// VerifyEmail redeems a verification token, marking the account
// verified and clearing the token atomically.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrInvalidOrExpiredToken
	}

	user, err := s.users.ConsumeVerifyToken(ctx, token, time.Now().UTC())
	if err != nil {
		return err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("email verified")
	return nil
}

// ResendVerificationEmail regenerates the verification token, which
// implicitly invalidates any previous one since only one token field
// exists. Already-verified accounts get a success without any mutation.
func (s *AuthService) ResendVerificationEmail(ctx context.Context, email string) error {
	return s.SendVerificationEmail(ctx, email)
}

// dispatchVerificationEmail stores a fresh verification token on the
// user and enqueues the email. Enqueue is non-blocking; delivery
// happens in the background.
func (s *AuthService) dispatchVerificationEmail(ctx context.Context, user *domain.User) error {
	token, err := newRecoveryToken()
	if err != nil {
		return err
	}
	if err := s.users.SetVerifyToken(ctx, user.ID, token, time.Now().UTC().Add(recoveryTokenTTL)); err != nil {
		return err
	}

	s.mail.Enqueue(ports.EmailJob{
		To:        user.Email,
		Template:  ports.EmailVerifyAddress,
		Name:      user.FirstName,
		Link:      fmt.Sprintf("%s/verify-email/%s", s.frontendURL, token),
		ExpiresIn: recoveryTokenTTL,
	})
	return nil
}
