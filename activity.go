package identity

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess       ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure       ActivityEventType = "auth.login.failure"
	ActivityEventAccountLocked      ActivityEventType = "auth.account.locked"
	ActivityEventUserRegistered     ActivityEventType = "auth.user.registered"
	ActivityEventEmailVerified      ActivityEventType = "auth.email.verified"
	ActivityEventVerificationResent ActivityEventType = "auth.verification.resent"
	ActivityEventAccountDeleted     ActivityEventType = "auth.account.deleted"
)

// ActorRef identifies who/what triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort: record errors are logged, never propagated.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// recordActivity emits an event through the sink, stamping defaults.
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		if logger == nil {
			logger = defLogger{}
		}
		logger.Warn("activity sink record error: %v", err)
	}
}
