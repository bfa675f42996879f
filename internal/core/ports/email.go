package ports

import (
	"context"
	"time"
)

// Email templates known to the sender.
const (
	EmailPasswordReset = "password_reset"
	EmailVerifyAddress = "verify_email"
)

// EmailJob is the contract handed to the email sender collaborator:
// a recipient, a templated link and how long the link stays valid.
type EmailJob struct {
	To        string
	Template  string
	Name      string
	Link      string
	ExpiresIn time.Duration
}

// EmailSender delivers a single email. The transport behind it is out
// of scope for the auth core.
type EmailSender interface {
	Send(ctx context.Context, job EmailJob) error
}

// EmailDispatcher enqueues an email for background delivery. Enqueue is
// best-effort and must never block or fail the surrounding flow.
type EmailDispatcher interface {
	Enqueue(job EmailJob)
}
