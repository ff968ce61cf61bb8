package identity

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DeleteAccountMessage struct {
	UserID     uuid.UUID `json:"user_id"`
	OnResponse func(*DeleteAccountResponse)
}

func (e DeleteAccountMessage) Type() string { return "auth.delete_account" }

func (e DeleteAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.UserID, validation.Required, validation.By(func(value any) error {
			if id, ok := value.(uuid.UUID); !ok || id == uuid.Nil {
				return goerrors.New("user id is required", goerrors.CategoryValidation)
			}
			return nil
		})),
	)
}

type DeleteAccountResponse struct {
	Success bool `json:"success"`
}

// DeleteAccountHandler removes a user and every dependent record in a single
// transaction. Dependents go first so foreign keys never dangle mid-delete.
type DeleteAccountHandler struct {
	repo   RepositoryManager
	sink   ActivitySink
	logger Logger
}

func NewDeleteAccountHandler(repo RepositoryManager) *DeleteAccountHandler {
	return &DeleteAccountHandler{
		repo:   repo,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

func (h *DeleteAccountHandler) WithLogger(logger Logger) *DeleteAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *DeleteAccountHandler) WithActivitySink(sink ActivitySink) *DeleteAccountHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *DeleteAccountHandler) Execute(ctx context.Context, event DeleteAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during account deletion")
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteAccountHandler) execute(ctx context.Context, event DeleteAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid delete payload")
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.VerificationTokens().DeleteForUserTx(ctx, tx, event.UserID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete verification tokens")
		}

		if err := h.repo.UserLogins().DeleteForUserTx(ctx, tx, event.UserID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete login records")
		}

		if err := h.repo.Users().DeleteByIDTx(ctx, tx, event.UserID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
		}

		return nil
	})
	if err != nil {
		return err
	}

	recordActivity(ctx, h.sink, h.logger, ActivityEvent{
		EventType: ActivityEventAccountDeleted,
		Actor:     ActorRef{ID: event.UserID.String(), Type: "user"},
		UserID:    event.UserID.String(),
	})

	if event.OnResponse != nil {
		event.OnResponse(&DeleteAccountResponse{Success: true})
	}

	return nil
}
