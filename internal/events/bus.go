package events

import (
	"context"
	"log/slog"
	"sync"
)

// Publisher delivers events to a collaborator.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Bus fans events out to in-process subscribers and external sinks.
// Subscribers run synchronously and must not block.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
	sinks  []Publisher
	logger *slog.Logger
}

// NewBus creates a bus that forwards every event to sinks.
func NewBus(logger *slog.Logger, sinks ...Publisher) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[int]func(Event)),
		sinks:  sinks,
		logger: logger.With("component", "events.bus"),
	}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers e to every subscriber, then every sink. Sink failures are
// logged and the first one is returned.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	sinks := b.sinks
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}

	var firstErr error
	for _, sink := range sinks {
		if err := sink.Publish(ctx, e); err != nil {
			b.logger.ErrorContext(ctx, "failed to publish event to sink", "event", e.Type, "room.id", e.RoomID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, Event) error { return nil })
