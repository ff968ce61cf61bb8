package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleAdmin has full access to every resource
	RoleAdmin UserRole = "admin"
	// RoleUser is the default role assigned at registration
	RoleUser UserRole = "user"
	// RoleManager sits between user and admin
	RoleManager UserRole = "manager"
)

// IsValidRole checks the role against the known set
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleAdmin, RoleUser, RoleManager:
		return true
	default:
		return false
	}
}

// LoginStatus is the lifecycle status of a credential record
type LoginStatus = string

const (
	// LoginStatusActive may authenticate
	LoginStatusActive LoginStatus = "active"
	// LoginStatusInactive has been deactivated and may not authenticate
	LoginStatusInactive LoginStatus = "inactive"
	// LoginStatusSuspended was administratively suspended
	LoginStatusSuspended LoginStatus = "suspended"
	// LoginStatusLocked was locked by the failed-attempt policy
	LoginStatusLocked LoginStatus = "locked"
)

// User is the profile record. Credentials live in UserLogin so that
// authentication secrets never travel with profile data.
type User struct {
	bun.BaseModel   `bun:"table:users,alias:usr"`
	ID              uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName       string         `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName        string         `bun:"last_name,notnull" json:"last_name,omitempty"`
	Phone           string         `bun:"phone,nullzero" json:"phone,omitempty"`
	AvatarURL       string         `bun:"avatar_url,nullzero" json:"avatar_url,omitempty"`
	Role            UserRole       `bun:"role,notnull" json:"role,omitempty"`
	IsActive        bool           `bun:"is_active" json:"is_active"`
	EmailVerified   bool           `bun:"email_verified" json:"email_verified"`
	EmailVerifiedAt *time.Time     `bun:"email_verified_at,nullzero" json:"email_verified_at,omitempty"`
	Preferences     map[string]any `bun:"preferences,nullzero" json:"preferences,omitempty"`
	Metadata        map[string]any `bun:"metadata,nullzero" json:"metadata,omitempty"`
	CreatedAt       *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// UserLogin is the credential record, one per user, addressed by email.
type UserLogin struct {
	bun.BaseModel  `bun:"table:user_logins,alias:ul"`
	ID             uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID         uuid.UUID   `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User           *User       `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Email          string      `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string      `bun:"password_hash,notnull" json:"-"`
	Salt           string      `bun:"salt,notnull" json:"-"`
	Status         LoginStatus `bun:"status,notnull" json:"status,omitempty"`
	FailedAttempts int         `bun:"failed_attempts" json:"failed_attempts,omitempty"`
	LockedUntil    *time.Time  `bun:"locked_until,nullzero" json:"locked_until,omitempty"`
	LastLoginAt    *time.Time  `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	LastLoginIP    string      `bun:"last_login_ip,nullzero" json:"last_login_ip,omitempty"`
	CreatedAt      *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus normalizes a zero value status to active
func (l *UserLogin) EnsureStatus() {
	if l.Status == "" {
		l.Status = LoginStatusActive
	}
}

// IsLocked reports whether the record is locked at the given instant.
// A locked status with an elapsed locked_until no longer counts as locked;
// the row itself is only rewritten on the next attempt.
func (l *UserLogin) IsLocked(now time.Time) bool {
	if l.LockedUntil != nil {
		return l.LockedUntil.After(now)
	}
	return l.Status == LoginStatusLocked
}

// IsSuspended reports whether the record was administratively suspended
func (l *UserLogin) IsSuspended() bool {
	return l.Status == LoginStatusSuspended
}

// IsInactive reports whether the credential record was deactivated
func (l *UserLogin) IsInactive() bool {
	return l.Status == LoginStatusInactive
}

// CanLogin reports whether an authentication attempt may proceed
func (l *UserLogin) CanLogin(now time.Time) bool {
	return !l.IsLocked(now) && !l.IsSuspended() && !l.IsInactive()
}

// EmailVerificationToken is a single-use, time-boxed proof of email
// ownership. Consumed rows stay in place as an audit trail.
type EmailVerificationToken struct {
	bun.BaseModel `bun:"table:email_verification_tokens,alias:evt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"token,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	IsUsed        bool       `bun:"is_used" json:"is_used"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsExpired reports whether the token is past its expiry at the given instant
func (t *EmailVerificationToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// PublicUser is the projection returned to callers after login and
// registration. Password hash and salt never leave the store.
type PublicUser struct {
	ID              string         `json:"id"`
	Email           string         `json:"email"`
	FirstName       string         `json:"firstName"`
	LastName        string         `json:"lastName"`
	Phone           string         `json:"phone,omitempty"`
	AvatarURL       string         `json:"avatarUrl,omitempty"`
	Role            UserRole       `json:"role"`
	IsActive        bool           `json:"isActive"`
	EmailVerified   bool           `json:"emailVerified"`
	EmailVerifiedAt *time.Time     `json:"emailVerifiedAt,omitempty"`
	Preferences     map[string]any `json:"preferences,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time     `json:"updatedAt,omitempty"`
}

// NewPublicUser builds the public projection from a profile row and the
// email snapshot held by the credential record.
func NewPublicUser(user *User, email string) PublicUser {
	if user == nil {
		return PublicUser{Email: email}
	}

	return PublicUser{
		ID:              user.ID.String(),
		Email:           email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Phone:           user.Phone,
		AvatarURL:       user.AvatarURL,
		Role:            user.Role,
		IsActive:        user.IsActive,
		EmailVerified:   user.EmailVerified,
		EmailVerifiedAt: user.EmailVerifiedAt,
		Preferences:     user.Preferences,
		Metadata:        user.Metadata,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}
