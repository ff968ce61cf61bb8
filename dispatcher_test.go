package identity_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingMessage struct {
	Value string
}

func (pingMessage) Type() string { return "test.ping" }

type pongMessage struct{}

func (pongMessage) Type() string { return "test.pong" }

func TestDispatcherRoutesToRegisteredHandler(t *testing.T) {
	d := identity.NewDispatcher()

	var got string
	err := identity.RegisterCommandHandler(d, identity.CommandFunc[pingMessage](func(ctx context.Context, msg pingMessage) error {
		got = msg.Value
		return nil
	}))
	require.NoError(t, err)

	err = d.Dispatch(context.Background(), pingMessage{Value: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestDispatcherPropagatesHandlerError(t *testing.T) {
	d := identity.NewDispatcher()

	identity.MustRegisterCommandHandler(d, identity.CommandFunc[pingMessage](func(ctx context.Context, msg pingMessage) error {
		return identity.ErrInvalidCredentials
	}))

	err := d.Dispatch(context.Background(), pingMessage{})
	require.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestDispatcherRejectsDuplicateRegistration(t *testing.T) {
	d := identity.NewDispatcher()

	handler := identity.CommandFunc[pingMessage](func(ctx context.Context, msg pingMessage) error {
		return nil
	})

	require.NoError(t, identity.RegisterCommandHandler(d, handler))

	err := identity.RegisterCommandHandler(d, handler)
	require.Error(t, err)

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, identity.TextCodeDuplicateHandler, richErr.TextCode)
}

func TestDispatcherUnknownCommand(t *testing.T) {
	d := identity.NewDispatcher()

	identity.MustRegisterCommandHandler(d, identity.CommandFunc[pingMessage](func(ctx context.Context, msg pingMessage) error {
		return nil
	}))

	err := d.Dispatch(context.Background(), pongMessage{})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, identity.TextCodeHandlerNotFound, richErr.TextCode)
}

func TestDispatcherNilMessage(t *testing.T) {
	d := identity.NewDispatcher()
	require.Error(t, d.Dispatch(context.Background(), nil))
}
