// Package service contains the application's business logic. Services sit
// between handlers and repositories: they validate input, enforce ownership
// and participation rules, checkpoint the store after writes, and announce
// conversation changes on the event bus.
package service

import (
	"context"

	"confide/internal/events"
)

// Checkpointer persists the current store image after a successful write.
// Implemented by persist.Persister; checkpointing never fails the caller.
type Checkpointer interface {
	Checkpoint(ctx context.Context)
}

// Announcer publishes change events to the current and other execution
// contexts. Implemented by events.Bus.
type Announcer interface {
	Emit(ctx context.Context, e events.Event)
}

// noopCheckpointer is used when a service is constructed without persistence.
type noopCheckpointer struct{}

func (noopCheckpointer) Checkpoint(context.Context) {}

// noopAnnouncer is used when a service is constructed without an event bus.
type noopAnnouncer struct{}

func (noopAnnouncer) Emit(context.Context, events.Event) {}
