package api

import (
	"sync"

	"github.com/migsilva89/markmind/internal/plan"
)

// Event types broadcast from the daemon to any listening foreground.
const (
	EventOrganizeComplete = "organize_complete"
	EventOrganizeError    = "organize_error"
)

// Event is one notification. Delivery is best-effort: an absent listener
// misses the event and discovers the outcome from the persisted session
// on its next attach.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Broadcaster fans events out to subscribed listeners. It satisfies the
// runner's Notifier interface.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a listener. The returned cancel must be called when
// the listener goes away.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 4)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking; a slow
// subscriber with a full buffer drops the event.
func (b *Broadcaster) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// OrganizeComplete broadcasts a finished plan-and-assign result.
func (b *Broadcaster) OrganizeComplete(res *plan.Result) {
	b.Publish(Event{Type: EventOrganizeComplete, Payload: map[string]any{"result": res}})
}

// OrganizeError broadcasts an organize failure.
func (b *Broadcaster) OrganizeError(msg string) {
	b.Publish(Event{Type: EventOrganizeError, Payload: map[string]any{"errorMessage": msg}})
}
