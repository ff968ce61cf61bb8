package identity

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ResendVerificationMessage requests a fresh verification token for an email
// address. The response never discloses whether the address belongs to an
// account.
type ResendVerificationMessage struct {
	Email      string `json:"email"`
	OnResponse func(*ResendVerificationResponse)
}

func (e ResendVerificationMessage) Type() string { return "auth.resend_verification" }

func (e ResendVerificationMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

type ResendVerificationResponse struct {
	Message string `json:"message"`
}

// resendGenericMessage is returned for unknown and already verified
// addresses alike, so the endpoint cannot be used to enumerate accounts.
const resendGenericMessage = "Verification email sent if user exists"

type ResendVerificationHandler struct {
	repo          RepositoryManager
	verifications *Verifications
	sink          ActivitySink
	logger        Logger
}

func NewResendVerificationHandler(repo RepositoryManager, verifications *Verifications) *ResendVerificationHandler {
	return &ResendVerificationHandler{
		repo:          repo,
		verifications: verifications,
		sink:          noopActivitySink{},
		logger:        defLogger{},
	}
}

func (h *ResendVerificationHandler) WithLogger(logger Logger) *ResendVerificationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResendVerificationHandler) WithActivitySink(sink ActivitySink) *ResendVerificationHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *ResendVerificationHandler) Execute(ctx context.Context, event ResendVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during verification resend")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendVerificationHandler) execute(ctx context.Context, event ResendVerificationMessage) error {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid resend payload")
	}

	respond := func() {
		if event.OnResponse != nil {
			event.OnResponse(&ResendVerificationResponse{Message: resendGenericMessage})
		}
	}

	login, err := h.repo.UserLogins().GetWithUserByEmail(ctx, event.Email)
	if err != nil {
		if isEmptyResult(err) {
			respond()
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up login record")
	}

	if login.User == nil || login.User.EmailVerified {
		respond()
		return nil
	}

	var msg SendEmailMessage
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// earlier tokens stop working the moment a new one is issued
		if _, err := h.repo.VerificationTokens().InvalidateForUserTx(ctx, tx, login.UserID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invalidate verification tokens")
		}

		var err error
		msg, err = h.verifications.IssueTx(ctx, tx, login.UserID, login.Email, login.User.FirstName)
		return err
	})
	if err != nil {
		return err
	}

	// delivery is best effort once the token row is committed
	if err := h.verifications.Enqueue(ctx, msg); err != nil {
		h.logger.Error("failed to enqueue verification email", "user_id", login.UserID.String(), "error", err)
	}

	recordActivity(ctx, h.sink, h.logger, ActivityEvent{
		EventType: ActivityEventVerificationResent,
		Actor:     ActorRef{ID: login.UserID.String(), Type: "user"},
		UserID:    login.UserID.String(),
	})

	respond()
	return nil
}
