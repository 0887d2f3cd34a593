package preload

import (
	"sync"
	"time"

	"speech-studio/internal/domain"
)

// EventType classifies warm-up lifecycle notifications.
type EventType string

const (
	EventTypeRunStarted   EventType = "run-started"
	EventTypeModuleStatus EventType = "module-status-changed"
	EventTypeRunCompleted EventType = "run-completed"
	EventTypeRunCancelled EventType = "run-cancelled"
	EventTypeStateReset   EventType = "state-reset"
)

// Event is a sequenced payload consumed by UI subscribers.
type Event struct {
	Seq        int64                 `json:"seq"`
	Timestamp  time.Time             `json:"timestamp"`
	Type       EventType             `json:"type"`
	RunID      string                `json:"runId,omitempty"`
	Module     domain.ModuleName     `json:"module,omitempty"`
	Status     domain.ModuleStatus   `json:"status,omitempty"`
	DurationMs int64                 `json:"durationMs,omitempty"`
	Error      string                `json:"error,omitempty"`
	Result     *domain.PreloadResult `json:"result,omitempty"`
}

// Bus stores recent events for incremental reads and pushes each published
// event to registered subscribers.
type Bus struct {
	mu          sync.RWMutex
	nextSeq     int64
	maxEvents   int
	events      []Event
	nextSub     int64
	subscribers map[int64]func(Event)
}

// NewBus creates a bounded in-memory event buffer.
func NewBus(maxEvents int) *Bus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &Bus{
		maxEvents:   maxEvents,
		events:      make([]Event, 0, maxEvents),
		subscribers: make(map[int64]func(Event)),
	}
}

// Publish appends one event, assigns sequence and timestamp, and notifies
// subscribers synchronously in publish order.
func (b *Bus) Publish(event Event) Event {
	b.mu.Lock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	subscribers := make([]func(Event), 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		subscribers = append(subscribers, fn)
	}
	b.mu.Unlock()

	for _, fn := range subscribers {
		fn(event)
	}
	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *Bus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// Subscribe registers an observer for future events and returns its
// cancellation function. Observers run on the publisher's goroutine and
// must not block.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	b.nextSub++
	id := b.nextSub
	b.subscribers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}
