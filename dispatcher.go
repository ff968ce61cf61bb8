package identity

import (
	"context"
	"log"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// Message is an intent object carrying all inputs needed for one handler
// invocation. Type identifies the command kind.
type Message interface {
	Type() string
}

// CommandHandler executes one command kind.
type CommandHandler[T Message] interface {
	Execute(ctx context.Context, msg T) error
}

// CommandFunc adapts a function into a CommandHandler.
type CommandFunc[T Message] func(ctx context.Context, msg T) error

// Execute satisfies the CommandHandler interface.
func (f CommandFunc[T]) Execute(ctx context.Context, msg T) error {
	return f(ctx, msg)
}

// Dispatcher maps each command type to exactly one registered handler.
// The registry is built statically at startup, no runtime reflection, and
// dispatch is synchronous: the handler's result is returned to the caller.
// Handlers stay directly invocable in tests, bypassing the dispatcher.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]func(ctx context.Context, msg Message) error
}

// NewDispatcher returns an empty command registry
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: map[string]func(ctx context.Context, msg Message) error{},
	}
}

// RegisterCommandHandler binds a handler to the message type T. Registering
// a second handler for the same command kind is an error.
func RegisterCommandHandler[T Message](d *Dispatcher, handler CommandHandler[T]) error {
	if handler == nil {
		return goerrors.New("handler must not be nil", goerrors.CategoryBadInput)
	}

	var zero T
	kind := zero.Type()

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.handlers[kind]; ok {
		return goerrors.New("command handler already registered", goerrors.CategoryConflict).
			WithTextCode(TextCodeDuplicateHandler).
			WithMetadata(map[string]any{"command": kind})
	}

	d.handlers[kind] = func(ctx context.Context, msg Message) error {
		typed, ok := msg.(T)
		if !ok {
			return goerrors.New("message does not match registered handler type", goerrors.CategoryBadInput).
				WithMetadata(map[string]any{"command": kind})
		}
		return handler.Execute(ctx, typed)
	}

	return nil
}

// MustRegisterCommandHandler is RegisterCommandHandler that panics on
// error, for static startup wiring.
func MustRegisterCommandHandler[T Message](d *Dispatcher, handler CommandHandler[T]) {
	if err := RegisterCommandHandler(d, handler); err != nil {
		log.Panic(err)
	}
}

// Dispatch routes the message to its handler and returns the handler's
// result, success or typed failure.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	if msg == nil {
		return goerrors.New("message must not be nil", goerrors.CategoryBadInput)
	}

	d.mu.RLock()
	handler, ok := d.handlers[msg.Type()]
	d.mu.RUnlock()

	if !ok {
		return goerrors.New("no handler registered for command", goerrors.CategoryNotFound).
			WithTextCode(TextCodeHandlerNotFound).
			WithMetadata(map[string]any{"command": msg.Type()})
	}

	return handler(ctx, msg)
}
