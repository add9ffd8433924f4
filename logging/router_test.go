package logging

import (
	"context"
	"testing"
	"time"
)

type collectSink struct {
	events chan Event
}

func newCollectSink() *collectSink {
	return &collectSink{events: make(chan Event, 64)}
}

func (s *collectSink) Write(event Event) error {
	s.events <- event
	return nil
}

func (s *collectSink) Close(context.Context) error { return nil }

func (s *collectSink) wait(t *testing.T) Event {
	t.Helper()
	select {
	case event := <-s.events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}

func newTestRouter(t *testing.T, cfg Config) (*Router, *collectSink) {
	t.Helper()
	sink := newCollectSink()
	router, err := NewRouter(SystemClock{}, cfg, []NamedSink{{Name: "collect", Sink: sink}})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		router.Close(ctx)
	})
	return router, sink
}

func TestRouterDeliversToSink(t *testing.T) {
	router, sink := newTestRouter(t, DefaultConfig())

	router.Publish(context.Background(), Event{
		Type:     "combat.damage",
		Tick:     7,
		Actor:    EntityRef{ID: "hero", Kind: EntityKindPlayer},
		Severity: SeverityInfo,
		Category: CategoryCombat,
	})

	got := sink.wait(t)
	if got.Type != "combat.damage" || got.Tick != 7 {
		t.Fatalf("unexpected event delivered: %+v", got)
	}
	if got.Time.IsZero() {
		t.Fatalf("expected router to stamp the event time")
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinimumSeverity = SeverityWarn
	router, sink := newTestRouter(t, cfg)

	router.Publish(context.Background(), Event{Type: "combat.damage", Severity: SeverityInfo})
	router.Publish(context.Background(), Event{Type: "system.alert", Severity: SeverityError})

	got := sink.wait(t)
	if got.Type != "system.alert" {
		t.Fatalf("expected only the error event, got %+v", got)
	}
}

func TestRouterAttachesConfiguredFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fields = map[string]any{"region": "test"}
	router, sink := newTestRouter(t, cfg)

	router.Publish(context.Background(), Event{Type: "session.started", Severity: SeverityInfo})

	got := sink.wait(t)
	if got.Extra["region"] != "test" {
		t.Fatalf("expected configured field attached, got %+v", got.Extra)
	}
}

func TestRouterIgnoresUntypedEvents(t *testing.T) {
	router, _ := newTestRouter(t, DefaultConfig())

	router.Publish(context.Background(), Event{Severity: SeverityInfo})
	// Give the dispatcher a moment; nothing should count.
	time.Sleep(50 * time.Millisecond)
	if stats := router.Stats(); stats.EventsTotal != 0 {
		t.Fatalf("expected no events recorded, got %+v", stats)
	}
}

func TestRouterCloseIsIdempotent(t *testing.T) {
	router, _ := newTestRouter(t, DefaultConfig())
	ctx := context.Background()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := router.Close(ctx); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	// Publishing after close is a silent no-op.
	router.Publish(ctx, Event{Type: "combat.damage", Severity: SeverityInfo})
}

func TestPublisherFuncAndNop(t *testing.T) {
	called := false
	var p Publisher = PublisherFunc(func(context.Context, Event) { called = true })
	p.Publish(context.Background(), Event{Type: "x"})
	if !called {
		t.Fatalf("expected PublisherFunc invoked")
	}
	NopPublisher().Publish(context.Background(), Event{Type: "x"})
}

func TestWithFields(t *testing.T) {
	var captured Event
	inner := PublisherFunc(func(_ context.Context, event Event) { captured = event })
	wrapped := WithFields(inner, map[string]any{"shard": 3})

	wrapped.Publish(context.Background(), Event{Type: "combat.damage"})
	if captured.Extra["shard"] != 3 {
		t.Fatalf("expected shard field attached, got %+v", captured.Extra)
	}
}
