package identity_test

import (
	"context"
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDeleteAccountHandlerRemovesDependentsFirst(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	logins := &MockUserLogins{}
	verTokens := &MockVerificationTokens{}
	sink := &MockActivitySink{}

	repo.On("Users").Return(users)
	repo.On("UserLogins").Return(logins)
	repo.On("VerificationTokens").Return(verTokens)

	var order []string
	verTokens.On("DeleteForUserTx", mock.Anything, mock.Anything, userID).
		Run(func(mock.Arguments) { order = append(order, "tokens") }).
		Return(nil).Once()
	logins.On("DeleteForUserTx", mock.Anything, mock.Anything, userID).
		Run(func(mock.Arguments) { order = append(order, "logins") }).
		Return(nil).Once()
	users.On("DeleteByIDTx", mock.Anything, mock.Anything, userID).
		Run(func(mock.Arguments) { order = append(order, "user") }).
		Return(nil).Once()

	runTx(repo, nil).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt identity.ActivityEvent) bool {
		return evt.EventType == identity.ActivityEventAccountDeleted &&
			evt.UserID == userID.String()
	})).Return(nil).Once()

	handler := identity.NewDeleteAccountHandler(repo).
		WithActivitySink(sink).
		WithLogger(testLogger{})

	var response *identity.DeleteAccountResponse
	err := handler.Execute(ctx, identity.DeleteAccountMessage{
		UserID: userID,
		OnResponse: func(r *identity.DeleteAccountResponse) {
			response = r
		},
	})
	require.NoError(t, err)

	require.NotNil(t, response)
	assert.True(t, response.Success)
	assert.Equal(t, []string{"tokens", "logins", "user"}, order)

	repo.AssertExpectations(t)
	users.AssertExpectations(t)
	logins.AssertExpectations(t)
	verTokens.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestDeleteAccountHandlerFailureAborts(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	repo := &MockRepositoryManager{}
	logins := &MockUserLogins{}
	verTokens := &MockVerificationTokens{}

	repo.On("UserLogins").Return(logins)
	repo.On("VerificationTokens").Return(verTokens)

	verTokens.On("DeleteForUserTx", mock.Anything, mock.Anything, userID).
		Return(nil).Once()
	logins.On("DeleteForUserTx", mock.Anything, mock.Anything, userID).
		Return(assert.AnError).Once()

	runTx(repo, assert.AnError).Once()

	handler := identity.NewDeleteAccountHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(ctx, identity.DeleteAccountMessage{UserID: userID})
	require.Error(t, err)
}

func TestDeleteAccountHandlerRequiresUserID(t *testing.T) {
	handler := identity.NewDeleteAccountHandler(&MockRepositoryManager{}).WithLogger(testLogger{})
	require.Error(t, handler.Execute(context.Background(), identity.DeleteAccountMessage{}))
}
