package identity

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type VerifyEmailMessage struct {
	Token      string `json:"token"`
	OnResponse func(*VerifyEmailResponse)
}

func (e VerifyEmailMessage) Type() string { return "auth.verify_email" }

func (e VerifyEmailMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Token, validation.Required),
	)
}

type VerifyEmailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// VerifyEmailHandler consumes a verification token and marks the owning user
// verified. Consuming the token and flagging the user happen in one
// transaction so a token can never be spent without the user record
// reflecting it.
type VerifyEmailHandler struct {
	repo        RepositoryManager
	mailer      Mailer
	frontendURL string
	sink        ActivitySink
	logger      Logger
	now         func() time.Time
}

func NewVerifyEmailHandler(repo RepositoryManager) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo:   repo,
		mailer: noopMailer{},
		sink:   noopActivitySink{},
		logger: defLogger{},
		now:    time.Now,
	}
}

func (h *VerifyEmailHandler) WithLogger(logger Logger) *VerifyEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyEmailHandler) WithActivitySink(sink ActivitySink) *VerifyEmailHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

// WithMailer enables the post-verification welcome email.
func (h *VerifyEmailHandler) WithMailer(mailer Mailer, frontendURL string) *VerifyEmailHandler {
	h.mailer = normalizeMailer(mailer)
	h.frontendURL = frontendURL
	return h
}

// WithClock overrides the time source, mostly for tests.
func (h *VerifyEmailHandler) WithClock(now func() time.Time) *VerifyEmailHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email verification")
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid verification payload")
	}

	var record *EmailVerificationToken
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		record, err = h.repo.VerificationTokens().GetUnusedByTokenTx(ctx, tx, event.Token)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrVerificationTokenNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up verification token")
		}

		// an expired token stays unused; it is simply never honored
		if record.IsExpired(h.now()) {
			return ErrVerificationTokenExpired
		}

		if err := h.repo.VerificationTokens().MarkUsedTx(ctx, tx, record.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification token")
		}

		if err := h.repo.Users().MarkEmailVerifiedTx(ctx, tx, record.UserID, h.now()); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark user verified")
		}

		return nil
	})

	if err != nil {
		return err
	}

	recordActivity(ctx, h.sink, h.logger, ActivityEvent{
		EventType: ActivityEventEmailVerified,
		Actor:     ActorRef{ID: record.UserID.String(), Type: "user"},
		UserID:    record.UserID.String(),
	})

	// welcome email is best effort
	user, err := h.repo.Users().GetByID(ctx, record.UserID.String())
	if err != nil {
		h.logger.Error("failed to load user for welcome email", "user_id", record.UserID.String(), "error", err)
	} else if err := h.mailer.Enqueue(ctx, NewWelcomeEmail(h.frontendURL, record.Email, user.FirstName)); err != nil {
		h.logger.Error("failed to enqueue welcome email", "user_id", record.UserID.String(), "error", err)
	}

	if event.OnResponse != nil {
		event.OnResponse(&VerifyEmailResponse{
			Success: true,
			Message: "Email verified successfully",
		})
	}

	return nil
}
