package jobs

import (
	"testing"

	"doc-translator/internal/domain"
)

func TestEventBusAssignsSequence(t *testing.T) {
	bus := NewEventBus(10)

	first := bus.Publish(Event{Type: EventTypeStatus, State: domain.JobStateSubmitting})
	second := bus.Publish(Event{Type: EventTypeProgress, Progress: 20})

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("sequences = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() || second.Timestamp.IsZero() {
		t.Fatal("timestamps not assigned")
	}
}

func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(10)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: EventTypeProgress, Progress: i * 10})
	}

	got := bus.Since(3)
	if len(got) != 2 {
		t.Fatalf("Since(3) returned %d events, want 2", len(got))
	}
	if got[0].Seq != 4 || got[1].Seq != 5 {
		t.Fatalf("Since(3) sequences = %d, %d", got[0].Seq, got[1].Seq)
	}
	if events := bus.Since(5); len(events) != 0 {
		t.Fatalf("Since(5) returned %d events, want 0", len(events))
	}
}

func TestEventBusTrimsToCapacity(t *testing.T) {
	bus := NewEventBus(3)
	for i := 0; i < 6; i++ {
		bus.Publish(Event{Type: EventTypeProgress})
	}

	got := bus.Since(0)
	if len(got) != 3 {
		t.Fatalf("retained %d events, want 3", len(got))
	}
	if got[0].Seq != 4 {
		t.Fatalf("oldest retained seq = %d, want 4", got[0].Seq)
	}
}
