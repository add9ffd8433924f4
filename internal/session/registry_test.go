package session

import (
	"testing"
	"time"

	"ironveil/server/internal/events"
	"ironveil/server/logging"
)

type capture struct {
	started []events.SessionStarted
	ended   []events.SessionEnded
}

func newTestRegistry() (*Registry, *capture) {
	bus := events.NewBus()
	cap := &capture{}
	bus.Subscribe(func(event events.Event) {
		switch ev := event.(type) {
		case events.SessionStarted:
			cap.started = append(cap.started, ev)
		case events.SessionEnded:
			cap.ended = append(cap.ended, ev)
		}
	})
	clock := logging.ClockFunc(func() time.Time { return time.Unix(3000, 0) })
	return NewRegistry(clock, bus, logging.NopPublisher(), nil), cap
}

func TestGetOrCreateSessionIsLazy(t *testing.T) {
	registry, cap := newTestRegistry()

	id := registry.GetOrCreateSession([]string{"hero", "rat"})
	if id == "" {
		t.Fatalf("expected a session id")
	}
	if len(cap.started) != 1 {
		t.Fatalf("expected one start event, got %d", len(cap.started))
	}

	// The same pair resolves to the same session; no second start.
	again := registry.GetOrCreateSession([]string{"rat", "hero"})
	if again != id {
		t.Fatalf("expected stable session id, got %s vs %s", id, again)
	}
	if len(cap.started) != 1 {
		t.Fatalf("expected no extra start events, got %d", len(cap.started))
	}
}

func TestSessionAbsorbsNewParticipant(t *testing.T) {
	registry, _ := newTestRegistry()

	id := registry.GetOrCreateSession([]string{"hero", "rat"})
	same := registry.GetOrCreateSession([]string{"hero", "bat"})
	if same != id {
		t.Fatalf("expected bat absorbed into hero's session")
	}
	participants := registry.Participants(id)
	if len(participants) != 3 {
		t.Fatalf("expected 3 participants, got %v", participants)
	}
}

func TestRecordContainerAppliedIsIdempotent(t *testing.T) {
	registry, _ := newTestRegistry()
	id := registry.GetOrCreateSession([]string{"hero", "rat"})

	record := Record{ContainerID: "c-1", Attacks: 1, Hits: 1, Damage: 40, HighestHit: 40}
	registry.RecordContainerApplied(id, record)
	registry.RecordContainerApplied(id, record)

	metrics, ok := registry.Metrics(id)
	if !ok {
		t.Fatalf("expected metrics for live session")
	}
	if metrics.TotalDamage != 40 || metrics.AttacksAttempted != 1 || metrics.SuccessfulHits != 1 {
		t.Fatalf("duplicate record must be a no-op, got %+v", metrics)
	}
	if metrics.HighestHit != 40 {
		t.Fatalf("expected highest hit 40, got %d", metrics.HighestHit)
	}
}

func TestAccuracyTracksAttemptsAndHits(t *testing.T) {
	registry, _ := newTestRegistry()
	id := registry.GetOrCreateSession([]string{"hero", "rat"})

	registry.RecordContainerApplied(id, Record{ContainerID: "c-1", Attacks: 1, Hits: 1, Damage: 30, HighestHit: 30})
	registry.RecordContainerApplied(id, Record{ContainerID: "c-2", Attacks: 1, Hits: 0})
	registry.RecordContainerApplied(id, Record{ContainerID: "c-3", Attacks: 1, Hits: 1, Damage: 50, HighestHit: 50})
	registry.RecordContainerApplied(id, Record{ContainerID: "c-4", Attacks: 1, Hits: 0})

	metrics, _ := registry.Metrics(id)
	if metrics.Accuracy != 0.5 {
		t.Fatalf("expected accuracy 0.5, got %.4f", metrics.Accuracy)
	}
	if metrics.HighestHit != 50 {
		t.Fatalf("expected highest hit 50, got %d", metrics.HighestHit)
	}
}

func TestMissOnlyRecordsSkipDedupe(t *testing.T) {
	registry, _ := newTestRegistry()
	id := registry.GetOrCreateSession([]string{"hero", "rat"})

	// Pre-roll misses carry no container id; each one must count.
	registry.RecordContainerApplied(id, Record{Attacks: 1})
	registry.RecordContainerApplied(id, Record{Attacks: 1})

	metrics, _ := registry.Metrics(id)
	if metrics.AttacksAttempted != 2 {
		t.Fatalf("expected 2 attempts, got %d", metrics.AttacksAttempted)
	}
}

func TestRemoveParticipantTearsDownPair(t *testing.T) {
	registry, cap := newTestRegistry()
	id := registry.GetOrCreateSession([]string{"hero", "rat"})

	registry.RemoveParticipant("rat")

	if _, ok := registry.Metrics(id); ok {
		t.Fatalf("expected session torn down once only one side remained")
	}
	if _, ok := registry.SessionOf("hero"); ok {
		t.Fatalf("expected hero detached from the dead session")
	}
	if len(cap.ended) != 1 || cap.ended[0].SessionID != id {
		t.Fatalf("expected end event for %s, got %+v", id, cap.ended)
	}
}

func TestEndSessionExplicit(t *testing.T) {
	registry, cap := newTestRegistry()
	id := registry.GetOrCreateSession([]string{"hero", "rat"})

	registry.EndSession(id)
	if _, ok := registry.Metrics(id); ok {
		t.Fatalf("expected metrics gone after EndSession")
	}
	if len(cap.ended) != 1 {
		t.Fatalf("expected one end event, got %d", len(cap.ended))
	}

	// A fresh interaction starts over.
	next := registry.GetOrCreateSession([]string{"hero", "rat"})
	if next == id {
		t.Fatalf("expected a new session id after teardown")
	}
}

func TestRecordUnknownSessionIsNoOp(t *testing.T) {
	registry, _ := newTestRegistry()
	registry.RecordContainerApplied("missing", Record{ContainerID: "c-1", Attacks: 1})
	if _, ok := registry.Metrics("missing"); ok {
		t.Fatalf("expected unknown session to stay unknown")
	}
}
