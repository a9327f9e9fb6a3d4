package stream

import (
	"context"
	"sync"
	"time"
)

// Event actions published on ticket mutations.
const (
	ActionCreated       = "created"
	ActionAssigned      = "assigned"
	ActionStatusChanged = "status_changed"
	ActionCommented     = "commented"
)

// TicketEvent describes a ticket lifecycle change for live dashboards.
type TicketEvent struct {
	TicketID  string    `json:"ticket_id"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actor_id"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Stream fan-outs ticket events to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan TicketEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan TicketEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan TicketEvent {
	ch := make(chan TicketEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt TicketEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
