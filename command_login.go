package identity

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// TokenTypeBearer is the token type reported in login and register responses
const TokenTypeBearer = "Bearer"

// handlerTimeout bounds every command handler invocation
const handlerTimeout = time.Second * 10

type LoginMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IP       string `json:"ip,omitempty"`
	OnResponse func(*LoginResponse)
}

func (e LoginMessage) Type() string { return "auth.login" }

// Validate will run validation rules
func (e LoginMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required),
	)
}

type LoginResponse struct {
	AccessToken string     `json:"accessToken"`
	TokenType   string     `json:"tokenType"`
	ExpiresIn   int        `json:"expiresIn"`
	User        PublicUser `json:"user"`
}

// LoginHandler authenticates an email/password pair against the credential
// store, enforcing the lockout policy. Exactly one credential write happens
// per attempt, failure or success.
type LoginHandler struct {
	repo   RepositoryManager
	hasher PasswordAuthenticator
	tokens TokenService
	policy AccountLockPolicy
	sink   ActivitySink
	logger Logger
	now    func() time.Time
}

func NewLoginHandler(repo RepositoryManager, hasher PasswordAuthenticator, tokens TokenService, policy AccountLockPolicy) *LoginHandler {
	return &LoginHandler{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		policy: policy,
		sink:   noopActivitySink{},
		logger: defLogger{},
		now:    time.Now,
	}
}

func (h *LoginHandler) WithLogger(logger Logger) *LoginHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (h *LoginHandler) WithActivitySink(sink ActivitySink) *LoginHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *LoginHandler) WithClock(clock func() time.Time) *LoginHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *LoginHandler) Execute(ctx context.Context, event LoginMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during login")
	default:
		return h.execute(ctx, event)
	}
}

func (h *LoginHandler) execute(ctx context.Context, event LoginMessage) error {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login payload")
	}

	login, err := h.repo.UserLogins().GetWithUserByEmail(ctx, event.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// never reveal whether the email exists
			h.emitFailure(ctx, event, "", ErrInvalidCredentials)
			return ErrInvalidCredentials
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve login record")
	}

	if login.User == nil {
		h.emitFailure(ctx, event, login.UserID.String(), ErrInvalidCredentials)
		return ErrInvalidCredentials
	}

	now := h.now()

	if err := h.policy.Gate(login, login.User, now); err != nil {
		h.emitFailure(ctx, event, login.UserID.String(), err)
		return err
	}

	if err := h.hasher.ComparePasswordAndHash(event.Password, login.Salt, login.PasswordHash); err != nil {
		if !goerrors.Is(err, ErrMismatchedHashAndPassword) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify password")
		}
		return h.recordFailure(ctx, event, login, now)
	}

	state := h.policy.RecordSuccess(login, now, event.IP)
	if err := h.repo.UserLogins().RecordAttempt(ctx, login.ID, state); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record successful login")
	}

	token, err := h.tokens.Generate(TokenClaims{
		Subject:   login.UserID.String(),
		Email:     login.Email,
		Role:      login.User.Role,
		FirstName: login.User.FirstName,
		LastName:  login.User.LastName,
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint bearer token")
	}

	recordActivity(ctx, h.sink, h.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorRef{ID: login.UserID.String(), Type: "user"},
		UserID:    login.UserID.String(),
		Metadata:  map[string]any{"email": login.Email, "ip": event.IP},
	})

	if event.OnResponse != nil {
		event.OnResponse(&LoginResponse{
			AccessToken: token,
			TokenType:   TokenTypeBearer,
			ExpiresIn:   int(h.tokens.Expiration() / time.Second),
			User:        NewPublicUser(login.User, login.Email),
		})
	}

	return nil
}

func (h *LoginHandler) recordFailure(ctx context.Context, event LoginMessage, login *UserLogin, now time.Time) error {
	state := h.policy.RecordFailure(login, now)
	if err := h.repo.UserLogins().RecordAttempt(ctx, login.ID, state); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record login attempt")
	}

	if state.Status == LoginStatusLocked && login.Status != LoginStatusLocked {
		recordActivity(ctx, h.sink, h.logger, ActivityEvent{
			EventType: ActivityEventAccountLocked,
			Actor:     ActorRef{ID: login.UserID.String(), Type: "user"},
			UserID:    login.UserID.String(),
			Metadata: map[string]any{
				"email":           login.Email,
				"failed_attempts": state.FailedAttempts,
			},
		})
	}

	h.emitFailure(ctx, event, login.UserID.String(), ErrInvalidCredentials)
	return ErrInvalidCredentials
}

func (h *LoginHandler) emitFailure(ctx context.Context, event LoginMessage, userID string, cause error) {
	recordActivity(ctx, h.sink, h.logger, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{Type: "unknown"},
		UserID:    userID,
		Metadata: map[string]any{
			"email": event.Email,
			"ip":    event.IP,
			"error": cause.Error(),
		},
	})
}
