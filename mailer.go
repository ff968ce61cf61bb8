package identity

import (
	"context"
	"fmt"
	"strings"
)

// TaskTypeSendEmail is the job name understood by the email queue worker
const TaskTypeSendEmail = "send-email"

// SendEmailMessage is the outbound email job payload. Either a template
// with context or raw text/html content is provided.
type SendEmailMessage struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
}

// Mailer enqueues outbound email jobs. Delivery is fire-and-forget from the
// caller's point of view: the queue retries independently (at least 3
// attempts with exponential backoff) and is decoupled from any transaction
// the caller holds.
type Mailer interface {
	Enqueue(ctx context.Context, msg SendEmailMessage) error
}

// MailerFunc adapts a function into a Mailer.
type MailerFunc func(ctx context.Context, msg SendEmailMessage) error

// Enqueue satisfies the Mailer interface.
func (f MailerFunc) Enqueue(ctx context.Context, msg SendEmailMessage) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

type noopMailer struct{}

func (noopMailer) Enqueue(context.Context, SendEmailMessage) error {
	return nil
}

func normalizeMailer(m Mailer) Mailer {
	if m == nil {
		return noopMailer{}
	}
	return m
}

// NewVerificationEmail builds the send-email payload carrying a
// verification token link.
func NewVerificationEmail(frontendURL, to, name, token string) SendEmailMessage {
	return SendEmailMessage{
		To:       to,
		Subject:  "Verify your email address",
		Template: "email-verification",
		Context: map[string]any{
			"name":            name,
			"verificationUrl": fmt.Sprintf("%s/verify-email?token=%s", strings.TrimRight(frontendURL, "/"), token),
			"token":           token,
			"validFor":        "24 hours",
		},
	}
}

// NewWelcomeEmail builds the payload sent once an address is verified
func NewWelcomeEmail(frontendURL, to, name string) SendEmailMessage {
	return SendEmailMessage{
		To:       to,
		Subject:  "Welcome to our platform!",
		Template: "welcome",
		Context: map[string]any{
			"name":     name,
			"loginUrl": strings.TrimRight(frontendURL, "/"),
		},
	}
}
