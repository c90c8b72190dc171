package leadstest

import (
	"context"
	"sync"

	"leadcrm_backend/internal/events"
)

// Bus records published events synchronously.
type Bus struct {
	mu     sync.Mutex
	events []events.Event
}

var _ events.Bus = (*Bus)(nil)

func (b *Bus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *Bus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *Bus) Subscribe(string, events.Handler) {}

// Named returns recorded events with the given name.
func (b *Bus) Named(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Event, 0)
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}
