package identity

import "time"

// DefaultMaxFailedAttempts is the number of consecutive failures after
// which a credential record locks.
const DefaultMaxFailedAttempts = 5

// DefaultLockoutWindow is how long a lock holds once triggered
const DefaultLockoutWindow = 30 * time.Minute

// AccountLockPolicy is pure decision logic over the credential record's
// attempt state. It never touches the store; callers persist the computed
// state exactly once per attempt.
type AccountLockPolicy struct {
	MaxFailedAttempts int
	LockoutWindow     time.Duration
}

// NewAccountLockPolicy builds a policy from configuration, falling back to
// the documented defaults for zero values.
func NewAccountLockPolicy(maxAttempts int, window time.Duration) AccountLockPolicy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxFailedAttempts
	}
	if window <= 0 {
		window = DefaultLockoutWindow
	}
	return AccountLockPolicy{
		MaxFailedAttempts: maxAttempts,
		LockoutWindow:     window,
	}
}

// LoginAttemptState is the next credential state computed by the policy.
// Every attempt, success or failure, persists exactly one of these.
type LoginAttemptState struct {
	Status         LoginStatus
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	LastLoginIP    string
}

// Gate decides whether an authentication attempt may proceed. An elapsed
// lock is treated as implicitly active again; the stale locked status is
// only rewritten when the next attempt outcome is persisted.
func (p AccountLockPolicy) Gate(login *UserLogin, user *User, now time.Time) error {
	if login == nil {
		return ErrInvalidCredentials
	}

	if login.IsLocked(now) {
		return ErrAccountLocked
	}

	if login.IsSuspended() {
		return ErrAccountSuspended
	}

	if login.IsInactive() {
		return ErrAccountInactive
	}

	if user != nil && !user.IsActive {
		return ErrAccountInactive
	}

	return nil
}

// RecordFailure computes the state after a failed attempt: the counter
// increments, and at the threshold the record locks for the configured
// window.
func (p AccountLockPolicy) RecordFailure(login *UserLogin, now time.Time) LoginAttemptState {
	status := login.Status
	if status == "" {
		status = LoginStatusActive
	}

	state := LoginAttemptState{
		Status:         status,
		FailedAttempts: login.FailedAttempts + 1,
		LockedUntil:    login.LockedUntil,
		LastLoginAt:    login.LastLoginAt,
		LastLoginIP:    login.LastLoginIP,
	}

	if state.FailedAttempts >= p.MaxFailedAttempts {
		until := now.Add(p.LockoutWindow)
		state.Status = LoginStatusLocked
		state.LockedUntil = &until
	}

	return state
}

// RecordSuccess computes the state after a successful login: the counter
// resets, the lock clears, and a record locked purely by attempts becomes
// active again. Suspended or inactive records are never reactivated here.
func (p AccountLockPolicy) RecordSuccess(login *UserLogin, now time.Time, ip string) LoginAttemptState {
	status := login.Status
	if status == "" || status == LoginStatusLocked {
		status = LoginStatusActive
	}

	loggedInAt := now

	return LoginAttemptState{
		Status:         status,
		FailedAttempts: 0,
		LockedUntil:    nil,
		LastLoginAt:    &loggedInAt,
		LastLoginIP:    ip,
	}
}
