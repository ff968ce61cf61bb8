package identity

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// defaultPhoneRegion is used to parse phone numbers submitted without a
// country prefix.
const defaultPhoneRegion = "US"

type RegisterMessage struct {
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Email       string         `json:"email"`
	Password    string         `json:"password"`
	Phone       string         `json:"phone,omitempty"`
	AvatarURL   string         `json:"avatar_url,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	UseHashid   bool
	OnResponse  func(*RegisterResponse)
}

func (e RegisterMessage) Type() string { return "auth.register" }

// Validate will run validation rules. The password ceiling keeps
// password+salt inside bcrypt's input limit.
func (e RegisterMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(8, 40)),
	)
}

type RegisterResponse struct {
	AccessToken string     `json:"accessToken"`
	TokenType   string     `json:"tokenType"`
	ExpiresIn   int        `json:"expiresIn"`
	User        PublicUser `json:"user"`
}

// RegisterHandler creates a user and its credential record atomically, then
// triggers the verification email as a post-commit, best-effort side effect.
type RegisterHandler struct {
	repo          RepositoryManager
	hasher        PasswordAuthenticator
	tokens        TokenService
	verifications *Verifications
	sink          ActivitySink
	logger        Logger
}

func NewRegisterHandler(repo RepositoryManager, hasher PasswordAuthenticator, tokens TokenService, verifications *Verifications) *RegisterHandler {
	return &RegisterHandler{
		repo:          repo,
		hasher:        hasher,
		tokens:        tokens,
		verifications: verifications,
		sink:          noopActivitySink{},
		logger:        defLogger{},
	}
}

func (h *RegisterHandler) WithLogger(logger Logger) *RegisterHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (h *RegisterHandler) WithActivitySink(sink ActivitySink) *RegisterHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *RegisterHandler) Execute(ctx context.Context, event RegisterMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during user registration")
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterHandler) execute(ctx context.Context, event RegisterMessage) error {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	phone := ""
	if event.Phone != "" {
		normalized, err := normalizePhone(event.Phone)
		if err != nil {
			return err
		}
		phone = normalized
	}

	// cheap rejection path before opening a transaction
	if _, err := h.repo.UserLogins().GetByEmail(ctx, event.Email); err == nil {
		return ErrExistingUser
	} else if !repository.IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing user")
	}

	user := &User{
		FirstName:   event.FirstName,
		LastName:    event.LastName,
		Phone:       phone,
		AvatarURL:   event.AvatarURL,
		Role:        RoleUser,
		IsActive:    true,
		Preferences: event.Preferences,
		Metadata:    event.Metadata,
	}

	if event.UseHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		salt, err := h.hasher.GenerateSalt()
		if err != nil {
			return err
		}

		hash, err := h.hasher.HashPassword(event.Password, salt)
		if err != nil {
			return err
		}

		login := &UserLogin{
			UserID:         user.ID,
			Email:          event.Email,
			PasswordHash:   hash,
			Salt:           salt,
			Status:         LoginStatusActive,
			FailedAttempts: 0,
		}

		if _, err = h.repo.UserLogins().CreateTx(ctx, tx, login); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create login record")
		}

		return nil
	})

	if err != nil {
		// rollback is complete; no partial user or credential row remains
		h.logger.Error("registration transaction failed", "email", event.Email, "error", err)
		return ErrRegistrationFailed
	}

	// post-commit side effect: a failure here is reported but never
	// unwinds the committed registration
	if err := h.verifications.Issue(ctx, user.ID, normalizeEmail(event.Email), event.FirstName); err != nil {
		h.logger.Error("failed to issue verification email", "user_id", user.ID.String(), "error", err)
	}

	token, err := h.tokens.Generate(TokenClaims{
		Subject:   user.ID.String(),
		Email:     normalizeEmail(event.Email),
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint bearer token")
	}

	recordActivity(ctx, h.sink, h.logger, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		Metadata:  map[string]any{"email": normalizeEmail(event.Email)},
	})

	if event.OnResponse != nil {
		event.OnResponse(&RegisterResponse{
			AccessToken: token,
			TokenType:   TokenTypeBearer,
			ExpiresIn:   int(h.tokens.Expiration() / time.Second),
			User:        NewPublicUser(user, normalizeEmail(event.Email)),
		})
	}

	return nil
}

// normalizePhone validates and normalizes a phone number to E.164
func normalizePhone(input string) (string, error) {
	num, err := phonenumbers.Parse(input, defaultPhoneRegion)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number").
			WithTextCode(TextCodeInvalidPhone)
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryValidation).
			WithTextCode(TextCodeInvalidPhone)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
