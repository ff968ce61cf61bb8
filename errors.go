package identity

import (
	goerrors "github.com/goliatone/go-errors"
)

// Stable text codes so transports can classify failures without string
// matching on messages.
const (
	TextCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	TextCodeAccountLocked       = "ACCOUNT_LOCKED"
	TextCodeAccountSuspended    = "ACCOUNT_SUSPENDED"
	TextCodeAccountInactive     = "ACCOUNT_INACTIVE"
	TextCodeExistingUser        = "USER_EXISTS"
	TextCodeRegistrationFailed  = "REGISTRATION_FAILED"
	TextCodeTokenNotFound       = "VERIFICATION_TOKEN_NOT_FOUND"
	TextCodeTokenExpired        = "VERIFICATION_TOKEN_EXPIRED"
	TextCodePersistenceFailure  = "PERSISTENCE_FAILURE"
	TextCodeHandlerNotFound     = "COMMAND_HANDLER_NOT_FOUND"
	TextCodeDuplicateHandler    = "COMMAND_HANDLER_DUPLICATE"
	TextCodeInvalidRole         = "INVALID_ROLE"
	TextCodeInvalidPhone        = "INVALID_PHONE_NUMBER"
	TextCodeMissingRequiredData = "MISSING_REQUIRED_DATA"
)

// ErrInvalidCredentials covers both unknown email and wrong password so the
// response never reveals whether the email exists.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountLocked is returned while the lockout window is active
var ErrAccountLocked = goerrors.New("account is locked due to too many failed attempts", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountLocked).
	WithCode(goerrors.CodeForbidden)

// ErrAccountSuspended is returned for administratively suspended credentials
var ErrAccountSuspended = goerrors.New("account is suspended", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountSuspended).
	WithCode(goerrors.CodeForbidden)

// ErrAccountInactive is returned when either the credential record or the
// profile has been deactivated
var ErrAccountInactive = goerrors.New("account is inactive", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountInactive).
	WithCode(goerrors.CodeForbidden)

// ErrExistingUser is the registration duplicate-email rejection
var ErrExistingUser = goerrors.New("user with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeExistingUser).
	WithCode(goerrors.CodeConflict)

// ErrRegistrationFailed masks any transactional failure during account
// creation behind one generic error
var ErrRegistrationFailed = goerrors.New("failed to register user", goerrors.CategoryInternal).
	WithTextCode(TextCodeRegistrationFailed).
	WithCode(goerrors.CodeInternal)

// ErrVerificationTokenNotFound means no matching unused token exists
var ErrVerificationTokenNotFound = goerrors.New("invalid or expired verification token", goerrors.CategoryNotFound).
	WithTextCode(TextCodeTokenNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrVerificationTokenExpired means the token row exists, unused, but is
// past its expiry. The row is left unused.
var ErrVerificationTokenExpired = goerrors.New("verification token has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrPersistenceFailure wraps unexpected store errors not otherwise classified
var ErrPersistenceFailure = goerrors.New("unexpected persistence failure", goerrors.CategoryInternal).
	WithTextCode(TextCodePersistenceFailure).
	WithCode(goerrors.CodeInternal)

// ErrMismatchedHashAndPassword is the normal wrong-password outcome of the
// credential verifier. Handlers translate it to ErrInvalidCredentials.
var ErrMismatchedHashAndPassword = goerrors.New("hashed password does not match", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty password or salt input to the hasher
var ErrNoEmptyString = goerrors.New("value must not be an empty string", goerrors.CategoryBadInput).
	WithTextCode(TextCodeMissingRequiredData).
	WithCode(goerrors.CodeBadRequest)

// IsAuthFailure reports whether the error is one of the login gate or
// credential failures, as opposed to an unexpected fault.
func IsAuthFailure(err error) bool {
	for _, candidate := range []*goerrors.Error{
		ErrInvalidCredentials,
		ErrAccountLocked,
		ErrAccountSuspended,
		ErrAccountInactive,
		ErrMismatchedHashAndPassword,
	} {
		if goerrors.Is(err, candidate) {
			return true
		}
	}
	return false
}
