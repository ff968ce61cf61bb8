package identity_test

import (
	"context"
	"testing"
	"time"

	identity "github.com/goliatone/go-identity"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestVerifyEmailHandlerSuccess(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	userID := uuid.New()
	record := &identity.EmailVerificationToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     "valid-token",
		Email:     "test@example.com",
		ExpiresAt: now.Add(time.Hour),
	}

	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	verTokens := &MockVerificationTokens{}
	mailer := &MockMailer{}
	sink := &MockActivitySink{}

	repo.On("Users").Return(users)
	repo.On("VerificationTokens").Return(verTokens)

	verTokens.On("GetUnusedByTokenTx", mock.Anything, mock.Anything, "valid-token").
		Return(record, nil).Once()
	verTokens.On("MarkUsedTx", mock.Anything, mock.Anything, record.ID).
		Return(nil).Once()
	users.On("MarkEmailVerifiedTx", mock.Anything, mock.Anything, userID, now).
		Return(nil).Once()

	runTx(repo, nil).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt identity.ActivityEvent) bool {
		return evt.EventType == identity.ActivityEventEmailVerified &&
			evt.UserID == userID.String()
	})).Return(nil).Once()

	users.On("GetByID", mock.Anything, userID.String()).
		Return(&identity.User{ID: userID, FirstName: "Test"}, nil).Once()
	mailer.On("Enqueue", mock.Anything, mock.MatchedBy(func(msg identity.SendEmailMessage) bool {
		return msg.To == "test@example.com" && msg.Template == "welcome"
	})).Return(nil).Once()

	handler := identity.NewVerifyEmailHandler(repo).
		WithActivitySink(sink).
		WithMailer(mailer, "http://localhost:3000").
		WithLogger(testLogger{}).
		WithClock(func() time.Time { return now })

	var response *identity.VerifyEmailResponse
	err := handler.Execute(ctx, identity.VerifyEmailMessage{
		Token: "valid-token",
		OnResponse: func(r *identity.VerifyEmailResponse) {
			response = r
		},
	})
	require.NoError(t, err)

	require.NotNil(t, response)
	assert.True(t, response.Success)

	repo.AssertExpectations(t)
	users.AssertExpectations(t)
	verTokens.AssertExpectations(t)
	mailer.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestVerifyEmailHandlerUnknownToken(t *testing.T) {
	ctx := context.Background()

	repo := &MockRepositoryManager{}
	verTokens := &MockVerificationTokens{}

	repo.On("VerificationTokens").Return(verTokens)
	verTokens.On("GetUnusedByTokenTx", mock.Anything, mock.Anything, "missing-token").
		Return(nil, repository.NewRecordNotFound()).Once()

	runTx(repo, identity.ErrVerificationTokenNotFound).Once()

	handler := identity.NewVerifyEmailHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(ctx, identity.VerifyEmailMessage{Token: "missing-token"})
	require.ErrorIs(t, err, identity.ErrVerificationTokenNotFound)
}

func TestVerifyEmailHandlerUsedTokenIsInvisible(t *testing.T) {
	ctx := context.Background()

	repo := &MockRepositoryManager{}
	verTokens := &MockVerificationTokens{}

	// consumed tokens never surface from the unused-token lookup, so a
	// second verification attempt behaves exactly like an unknown token
	repo.On("VerificationTokens").Return(verTokens)
	verTokens.On("GetUnusedByTokenTx", mock.Anything, mock.Anything, "spent-token").
		Return(nil, repository.NewRecordNotFound()).Once()

	runTx(repo, identity.ErrVerificationTokenNotFound).Once()

	handler := identity.NewVerifyEmailHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(ctx, identity.VerifyEmailMessage{Token: "spent-token"})
	require.ErrorIs(t, err, identity.ErrVerificationTokenNotFound)
}

func TestVerifyEmailHandlerExpiredTokenStaysUnused(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	record := &identity.EmailVerificationToken{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Token:     "stale-token",
		Email:     "test@example.com",
		ExpiresAt: now.Add(-time.Minute),
	}

	repo := &MockRepositoryManager{}
	verTokens := &MockVerificationTokens{}

	repo.On("VerificationTokens").Return(verTokens)
	verTokens.On("GetUnusedByTokenTx", mock.Anything, mock.Anything, "stale-token").
		Return(record, nil).Once()

	runTx(repo, identity.ErrVerificationTokenExpired).Once()

	handler := identity.NewVerifyEmailHandler(repo).
		WithLogger(testLogger{}).
		WithClock(func() time.Time { return now })

	err := handler.Execute(ctx, identity.VerifyEmailMessage{Token: "stale-token"})
	require.ErrorIs(t, err, identity.ErrVerificationTokenExpired)

	// the expired row is left untouched
	verTokens.AssertNotCalled(t, "MarkUsedTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyEmailHandlerUserLookupFailureSkipsWelcomeEmail(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	userID := uuid.New()
	record := &identity.EmailVerificationToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     "valid-token",
		Email:     "test@example.com",
		ExpiresAt: now.Add(time.Hour),
	}

	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	verTokens := &MockVerificationTokens{}
	mailer := &MockMailer{}

	repo.On("Users").Return(users)
	repo.On("VerificationTokens").Return(verTokens)

	verTokens.On("GetUnusedByTokenTx", mock.Anything, mock.Anything, "valid-token").
		Return(record, nil).Once()
	verTokens.On("MarkUsedTx", mock.Anything, mock.Anything, record.ID).
		Return(nil).Once()
	users.On("MarkEmailVerifiedTx", mock.Anything, mock.Anything, userID, now).
		Return(nil).Once()

	runTx(repo, nil).Once()

	users.On("GetByID", mock.Anything, userID.String()).
		Return(nil, repository.NewRecordNotFound()).Once()

	handler := identity.NewVerifyEmailHandler(repo).
		WithMailer(mailer, "http://localhost:3000").
		WithLogger(testLogger{}).
		WithClock(func() time.Time { return now })

	var response *identity.VerifyEmailResponse
	err := handler.Execute(ctx, identity.VerifyEmailMessage{
		Token: "valid-token",
		OnResponse: func(r *identity.VerifyEmailResponse) {
			response = r
		},
	})
	require.NoError(t, err)

	// verification still succeeds, the welcome email is just skipped
	require.NotNil(t, response)
	assert.True(t, response.Success)
	mailer.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestVerifyEmailHandlerValidatesPayload(t *testing.T) {
	handler := identity.NewVerifyEmailHandler(&MockRepositoryManager{}).WithLogger(testLogger{})
	require.Error(t, handler.Execute(context.Background(), identity.VerifyEmailMessage{}))
}
