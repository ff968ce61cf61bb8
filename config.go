package identity

import (
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// Config carries every process-wide knob the identity core needs. It is
// loaded once at startup and passed down explicitly; components never read
// the environment themselves.
type Config struct {
	// SigningKey is the HMAC secret used to sign bearer tokens
	SigningKey string `env:"IDENTITY_SIGNING_KEY"`
	// TokenExpiration is the bearer token TTL. The public expiresIn
	// response field is derived from this same value.
	TokenExpiration time.Duration `env:"IDENTITY_TOKEN_EXPIRATION" envDefault:"3600s"`
	Issuer          string        `env:"IDENTITY_TOKEN_ISSUER" envDefault:"go-identity"`
	Audience        []string      `env:"IDENTITY_TOKEN_AUDIENCE" envSeparator:","`

	// BcryptCost is the fixed hashing cost factor
	BcryptCost int `env:"IDENTITY_BCRYPT_COST" envDefault:"12"`

	// MaxFailedAttempts is the threshold after which a credential record
	// locks; LockoutWindow is how long the lock holds.
	MaxFailedAttempts int           `env:"IDENTITY_MAX_FAILED_ATTEMPTS" envDefault:"5"`
	LockoutWindow     time.Duration `env:"IDENTITY_LOCKOUT_WINDOW" envDefault:"30m"`

	// VerificationTokenTTL bounds email verification tokens
	VerificationTokenTTL time.Duration `env:"IDENTITY_VERIFICATION_TTL" envDefault:"24h"`

	Email EmailConfig `envPrefix:"IDENTITY_EMAIL_"`
}

// EmailConfig configures the outbound email queue client and the links
// rendered into verification emails.
type EmailConfig struct {
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Queue         string        `env:"QUEUE" envDefault:"email"`
	MaxRetry      int           `env:"MAX_RETRY" envDefault:"3"`
	DispatchDelay time.Duration `env:"DISPATCH_DELAY" envDefault:"2s"`
	FrontendURL   string        `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
}

// LoadConfig parses the configuration from the environment
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse identity configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate will run validation rules
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.BcryptCost, validation.Min(10), validation.Max(31)),
		validation.Field(&c.MaxFailedAttempts, validation.Min(1)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid identity configuration")
	}

	if c.TokenExpiration <= 0 {
		return goerrors.New("token expiration must be positive", goerrors.CategoryValidation)
	}

	if c.LockoutWindow <= 0 {
		return goerrors.New("lockout window must be positive", goerrors.CategoryValidation)
	}

	if c.VerificationTokenTTL <= 0 {
		return goerrors.New("verification token TTL must be positive", goerrors.CategoryValidation)
	}

	return nil
}

// ExpiresInSeconds is the value reported in the public expiresIn field. It
// is derived from TokenExpiration so response and signature always agree.
func (c Config) ExpiresInSeconds() int {
	return int(c.TokenExpiration / time.Second)
}
