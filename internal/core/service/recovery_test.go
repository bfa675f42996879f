package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/marketsquare/auth-service/internal/core/domain"
	"github.com/marketsquare/auth-service/internal/core/ports"
)

// tokenFromLink pulls the trailing path segment out of an emailed link.
func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	i := strings.LastIndex(link, "/")
	if i < 0 || i == len(link)-1 {
		t.Fatalf("link %q carries no token", link)
	}
	return link[i+1:]
}

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	h := newHarness(t)

	if err := h.svc.ForgotPassword(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("ForgotPassword must not disclose unknown emails, got %v", err)
	}
	if len(h.mail.sent()) != 0 {
		t.Fatalf("no email should be enqueued for unknown address")
	}
}

func TestForgotPassword_QueuesResetLink(t *testing.T) {
	h := newHarness(t)
	reg := registerAda(t, h)
	h.mail.jobs = nil // drop the registration verification email

	if err := h.svc.ForgotPassword(context.Background(), "ADA@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}

	jobs := h.mail.sent()
	if len(jobs) != 1 || jobs[0].Template != ports.EmailPasswordReset {
		t.Fatalf("expected one reset email, got %+v", jobs)
	}
	if !strings.HasPrefix(jobs[0].Link, "https://app.example.com/reset-password/") {
		t.Fatalf("unexpected reset link %q", jobs[0].Link)
	}

	stored := h.users.get(t, reg.User.ID)
	if stored.ResetToken != tokenFromLink(t, jobs[0].Link) {
		t.Fatalf("stored token does not match emailed link")
	}
	if !stored.ResetTokenExpiry.After(time.Now()) {
		t.Fatalf("reset token already expired")
	}
}

func TestResetPassword_SingleUse(t *testing.T) {
	h := newHarness(t)
	registerAda(t, h)
	h.mail.jobs = nil

	if err := h.svc.ForgotPassword(context.Background(), "ada@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	token := tokenFromLink(t, h.mail.sent()[0].Link)

	if err := h.svc.ResetPassword(context.Background(), token, "a brand new password"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	// Old password rejected, new one accepted.
	if _, err := h.svc.Login(context.Background(), "ada@example.com", "correct horse battery"); err != domain.ErrInvalidCredentials {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := h.svc.Login(context.Background(), "ada@example.com", "a brand new password"); err != nil {
		t.Fatalf("new password must work, got %v", err)
	}

	// The token is spent.
	if err := h.svc.ResetPassword(context.Background(), token, "yet another password"); err != domain.ErrInvalidOrExpiredToken {
		t.Fatalf("expected ErrInvalidOrExpiredToken on reuse, got %v", err)
	}
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	h := newHarness(t)
	reg := registerAda(t, h)

	err := h.users.SetResetToken(context.Background(), reg.User.ID, "stale-token", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}

	if err := h.svc.ResetPassword(context.Background(), "stale-token", "new password here"); err != domain.ErrInvalidOrExpiredToken {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestResetPassword_EmptyInputs(t *testing.T) {
	h := newHarness(t)
	if err := h.svc.ResetPassword(context.Background(), "", "new password here"); err != domain.ErrInvalidOrExpiredToken {
		t.Fatalf("expected ErrInvalidOrExpiredToken for empty token, got %v", err)
	}
	if err := h.svc.ResetPassword(context.Background(), "some-token", ""); err != domain.ErrInvalidOrExpiredToken {
		t.Fatalf("expected ErrInvalidOrExpiredToken for empty password, got %v", err)
	}
}

func TestVerifyEmail_MarksAccountVerified(t *testing.T) {
	h := newHarness(t)
	reg := registerAda(t, h)
	token := tokenFromLink(t, h.mail.sent()[0].Link)

	if err := h.svc.VerifyEmail(context.Background(), token); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	stored := h.users.get(t, reg.User.ID)
	if !stored.IsEmailVerified {
		t.Fatalf("account not marked verified")
	}
	if stored.VerifyToken != "" {
		t.Fatalf("verify token not cleared")
	}

	// Spent token.
	if err := h.svc.VerifyEmail(context.Background(), token); err != domain.ErrInvalidOrExpiredToken {
		t.Fatalf("expected ErrInvalidOrExpiredToken on reuse, got %v", err)
	}
}

func TestResendVerification_InvalidatesPreviousToken(t *testing.T) {
	h := newHarness(t)
	registerAda(t, h)
	first := tokenFromLink(t, h.mail.sent()[0].Link)

	if err := h.svc.ResendVerificationEmail(context.Background(), "ada@example.com"); err != nil {
		t.Fatalf("ResendVerificationEmail: %v", err)
	}
	jobs := h.mail.sent()
	if len(jobs) != 2 {
		t.Fatalf("expected a second verification email, got %d jobs", len(jobs))
	}
	second := tokenFromLink(t, jobs[1].Link)
	if second == first {
		t.Fatalf("resend must mint a fresh token")
	}

	if err := h.svc.VerifyEmail(context.Background(), first); err != domain.ErrInvalidOrExpiredToken {
		t.Fatalf("superseded token must be dead, got %v", err)
	}
	if err := h.svc.VerifyEmail(context.Background(), second); err != nil {
		t.Fatalf("fresh token must verify, got %v", err)
	}
}

func TestSendVerification_VerifiedAccountIsNoOp(t *testing.T) {
	h := newHarness(t)
	registerAda(t, h)
	token := tokenFromLink(t, h.mail.sent()[0].Link)
	if err := h.svc.VerifyEmail(context.Background(), token); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	before := h.users.calls.setVerifyToken
	if err := h.svc.SendVerificationEmail(context.Background(), "ada@example.com"); err != nil {
		t.Fatalf("SendVerificationEmail: %v", err)
	}
	if h.users.calls.setVerifyToken != before {
		t.Fatalf("verified account must not get a new token")
	}
	if len(h.mail.sent()) != 1 {
		t.Fatalf("no extra email expected for verified account")
	}
}

func TestSendVerification_UnknownEmailIsSilent(t *testing.T) {
	h := newHarness(t)
	if err := h.svc.SendVerificationEmail(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(h.mail.sent()) != 0 {
		t.Fatalf("no email expected for unknown address")
	}
}
