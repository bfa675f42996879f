// Package mailer delivers the auth subsystem's templated emails via
// Mailgun.
package mailer

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"

	"github.com/marketsquare/auth-service/internal/core/ports"
)

const sendTimeout = 10 * time.Second

// Mailgun implements ports.EmailSender on top of the Mailgun API.
type Mailgun struct {
	domain string
	apiKey string
	sender string
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{domain: domain, apiKey: apiKey, sender: sender}
}

// Send renders the template for job and delivers it.
func (m *Mailgun) Send(ctx context.Context, job ports.EmailJob) error {
	subject, text, html := render(job)

	client := mg.NewMailgun(m.domain, m.apiKey)
	msg := client.NewMessage(m.sender, subject, text, job.To)
	msg.SetHtml(html)

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, _, err := client.Send(ctx, msg); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}

func render(job ports.EmailJob) (subject, text, html string) {
	name := job.Name
	if name == "" {
		name = "there"
	}
	expiry := formatExpiry(job.ExpiresIn)

	switch job.Template {
	case ports.EmailPasswordReset:
		subject = "Reset your password"
		text = fmt.Sprintf(
			"Hi %s,\n\nWe received a request to reset your password. Follow the link below to choose a new one:\n\n%s\n\nThe link expires in %s. If you didn't ask for this, you can ignore this email.\n",
			name, job.Link, expiry)
		html = fmt.Sprintf(
			`<p>Hi %s,</p><p>We received a request to reset your password.</p><p><a href=%q>Reset password</a></p><p>The link expires in %s. If you didn't ask for this, you can ignore this email.</p>`,
			name, job.Link, expiry)
	case ports.EmailVerifyAddress:
		subject = "Verify your email address"
		text = fmt.Sprintf(
			"Hi %s,\n\nPlease confirm your email address by following the link below:\n\n%s\n\nThe link expires in %s.\n",
			name, job.Link, expiry)
		html = fmt.Sprintf(
			`<p>Hi %s,</p><p>Please confirm your email address.</p><p><a href=%q>Verify email</a></p><p>The link expires in %s.</p>`,
			name, job.Link, expiry)
	default:
		subject = "Notification"
		text = job.Link
		html = fmt.Sprintf(`<p><a href=%q>%s</a></p>`, job.Link, job.Link)
	}
	return subject, text, html
}

func formatExpiry(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%d hour(s)", int(d.Hours()))
	}
	return fmt.Sprintf("%d minute(s)", int(d.Minutes()))
}
