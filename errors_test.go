package identity_test

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthErrorsCarryStableCodes(t *testing.T) {
	cases := []struct {
		err      *goerrors.Error
		textCode string
		code     int
	}{
		{identity.ErrInvalidCredentials, identity.TextCodeInvalidCredentials, goerrors.CodeUnauthorized},
		{identity.ErrAccountLocked, identity.TextCodeAccountLocked, goerrors.CodeForbidden},
		{identity.ErrAccountSuspended, identity.TextCodeAccountSuspended, goerrors.CodeForbidden},
		{identity.ErrAccountInactive, identity.TextCodeAccountInactive, goerrors.CodeForbidden},
		{identity.ErrExistingUser, identity.TextCodeExistingUser, goerrors.CodeConflict},
		{identity.ErrVerificationTokenNotFound, identity.TextCodeTokenNotFound, goerrors.CodeNotFound},
		{identity.ErrVerificationTokenExpired, identity.TextCodeTokenExpired, goerrors.CodeBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.textCode, func(t *testing.T) {
			assert.Equal(t, tc.textCode, tc.err.TextCode)
			assert.Equal(t, tc.code, tc.err.Code)
		})
	}
}

func TestIsAuthFailure(t *testing.T) {
	for _, err := range []error{
		identity.ErrInvalidCredentials,
		identity.ErrAccountLocked,
		identity.ErrAccountSuspended,
		identity.ErrAccountInactive,
		identity.ErrMismatchedHashAndPassword,
	} {
		assert.True(t, identity.IsAuthFailure(err), err.Error())
	}

	assert.False(t, identity.IsAuthFailure(identity.ErrRegistrationFailed))
	assert.False(t, identity.IsAuthFailure(errors.New("disk full")))
	assert.False(t, identity.IsAuthFailure(nil))
}

func TestWrappedAuthErrorsStillMatch(t *testing.T) {
	wrapped := goerrors.Wrap(identity.ErrAccountLocked, goerrors.CategoryAuth, "login rejected")
	require.True(t, identity.IsAuthFailure(wrapped))
	require.ErrorIs(t, wrapped, identity.ErrAccountLocked)
}
