package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultVerificationTokenTTL bounds how long a verification token stays
// redeemable.
const DefaultVerificationTokenTTL = 24 * time.Hour

// verificationTokenBytes sized so tokens are unguessable
const verificationTokenBytes = 32

// NewVerificationToken generates a cryptographically random, URL-safe
// token string.
func NewVerificationToken() (string, error) {
	buf := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification token")
	}
	return hex.EncodeToString(buf), nil
}

// Verifications issues email verification tokens and builds their outbound
// email jobs. Consumption and resend logic live in the command handlers;
// this service owns token generation, expiry, and the email contract.
type Verifications struct {
	repo        RepositoryManager
	mailer      Mailer
	ttl         time.Duration
	frontendURL string
	logger      Logger
	now         func() time.Time
}

// NewVerifications builds the verification service
func NewVerifications(repo RepositoryManager, mailer Mailer, cfg *Config) *Verifications {
	ttl := DefaultVerificationTokenTTL
	frontendURL := ""
	if cfg != nil {
		if cfg.VerificationTokenTTL > 0 {
			ttl = cfg.VerificationTokenTTL
		}
		frontendURL = cfg.Email.FrontendURL
	}

	return &Verifications{
		repo:        repo,
		mailer:      normalizeMailer(mailer),
		ttl:         ttl,
		frontendURL: frontendURL,
		logger:      defLogger{},
		now:         time.Now,
	}
}

func (v *Verifications) WithLogger(logger Logger) *Verifications {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// WithClock injects a custom clock (useful for tests).
func (v *Verifications) WithClock(clock func() time.Time) *Verifications {
	if clock != nil {
		v.now = clock
	}
	return v
}

// TTL returns the configured token lifetime
func (v *Verifications) TTL() time.Duration {
	return v.ttl
}

// IssueTx creates a fresh token row inside the given transaction and
// returns the email job to enqueue after the transaction commits. No
// uniqueness check against prior tokens happens here; callers that need
// the at-most-one-unused invariant invalidate prior tokens in the same
// transaction first.
func (v *Verifications) IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, email, firstName string) (SendEmailMessage, error) {
	token, err := NewVerificationToken()
	if err != nil {
		return SendEmailMessage{}, err
	}

	record := &EmailVerificationToken{
		UserID:    userID,
		Token:     token,
		Email:     email,
		ExpiresAt: v.now().Add(v.ttl),
	}

	if _, err := v.repo.VerificationTokens().CreateTx(ctx, tx, record); err != nil {
		return SendEmailMessage{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create verification token")
	}

	return NewVerificationEmail(v.frontendURL, email, firstName, token), nil
}

// Issue creates a token row and enqueues its email. Used by registration
// as a post-commit side effect: the caller treats failures as best-effort
// and never unwinds the committed registration.
func (v *Verifications) Issue(ctx context.Context, userID uuid.UUID, email, firstName string) error {
	var msg SendEmailMessage

	err := v.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		msg, err = v.IssueTx(ctx, tx, userID, email, firstName)
		return err
	})
	if err != nil {
		return err
	}

	return v.Enqueue(ctx, msg)
}

// Enqueue hands the email job to the queue, logging failures. The send is
// decoupled from any transaction lifetime; the queue retries on its own.
func (v *Verifications) Enqueue(ctx context.Context, msg SendEmailMessage) error {
	if err := v.mailer.Enqueue(ctx, msg); err != nil {
		v.logger.Error("failed to enqueue email", "to", msg.To, "subject", msg.Subject, "error", err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to enqueue email")
	}
	return nil
}
