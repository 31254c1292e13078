package shared

import "context"

// EventHandler reacts to delivered events. An error leaves the outbox entry
// failed, so the processor delivers it again after backoff.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler accepts; empty means all
	EventTypes() []string
}

// EventPublisher fans events out to subscribed handlers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is a publisher that handlers can subscribe to. Explicit event
// types passed to Subscribe take precedence over the handler's own list.
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
}

// OutboxEventSaver appends events to the outbox within the caller's
// transaction; tx is the persistence layer's transaction handle.
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, tx any, events ...DomainEvent) error
}
