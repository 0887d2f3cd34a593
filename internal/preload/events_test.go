package preload

import (
	"fmt"
	"testing"

	"speech-studio/internal/domain"
)

// TestBusAssignsMonotonicSequence checks ordering of published events.
func TestBusAssignsMonotonicSequence(t *testing.T) {
	bus := NewBus(10)

	first := bus.Publish(Event{Type: EventTypeRunStarted})
	second := bus.Publish(Event{Type: EventTypeModuleStatus, Module: domain.ModuleTorch})

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seq = %d, %d; want 1, 2", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() || second.Timestamp.IsZero() {
		t.Fatal("expected publish to stamp timestamps")
	}
}

// TestBusSinceReturnsOnlyNewer checks the incremental read contract.
func TestBusSinceReturnsOnlyNewer(t *testing.T) {
	bus := NewBus(10)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: EventTypeModuleStatus})
	}

	events := bus.Since(3)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Seq != 4 || events[1].Seq != 5 {
		t.Fatalf("seqs = %d, %d; want 4, 5", events[0].Seq, events[1].Seq)
	}

	if got := bus.Since(5); len(got) != 0 {
		t.Fatalf("expected no events past the newest seq, got %d", len(got))
	}
}

// TestBusTrimsToCapacity checks old events fall off but sequence persists.
func TestBusTrimsToCapacity(t *testing.T) {
	bus := NewBus(3)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: EventTypeModuleStatus, Error: fmt.Sprintf("e%d", i)})
	}

	events := bus.Since(0)
	if len(events) != 3 {
		t.Fatalf("len = %d, want 3", len(events))
	}
	if events[0].Seq != 3 {
		t.Fatalf("oldest kept seq = %d, want 3", events[0].Seq)
	}
}

// TestBusSubscribe checks delivery and unsubscription.
func TestBusSubscribe(t *testing.T) {
	bus := NewBus(10)

	var got []EventType
	cancel := bus.Subscribe(func(e Event) {
		got = append(got, e.Type)
	})

	bus.Publish(Event{Type: EventTypeRunStarted})
	bus.Publish(Event{Type: EventTypeRunCompleted})
	cancel()
	bus.Publish(Event{Type: EventTypeStateReset})

	if len(got) != 2 || got[0] != EventTypeRunStarted || got[1] != EventTypeRunCompleted {
		t.Fatalf("delivered = %v", got)
	}
}
