package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"ironveil/server/logging"
)

func TestMemorySink(t *testing.T) {
	sink := NewMemory()
	if err := sink.Write(logging.Event{Type: "combat.damage", Tick: 3}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	events := sink.Events()
	if len(events) != 1 || events[0].Type != "combat.damage" {
		t.Fatalf("unexpected events: %+v", events)
	}

	// Events() hands out copies; mutating them must not corrupt the sink.
	events[0].Type = "tampered"
	if got := sink.Events()[0].Type; got != "combat.damage" {
		t.Fatalf("expected stored event untouched, got %s", got)
	}

	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Fatalf("expected reset to clear events")
	}
}

func TestConsoleSinkFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf)
	err := sink.Write(logging.Event{
		Type:     "combat.damage",
		Tick:     12,
		Actor:    logging.EntityRef{ID: "hero", Kind: logging.EntityKindPlayer},
		Targets:  []logging.EntityRef{{ID: "rat", Kind: logging.EntityKindNPC}},
		Severity: logging.SeverityInfo,
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	line := buf.String()
	for _, want := range []string{"combat.damage", "tick=12", "player:hero", "npc:rat", "severity=info"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in output, got %q", want, line)
		}
	}
}

func TestJSONSinkEmitsNDJSON(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)

	if err := sink.Write(logging.Event{Type: "resources.changed", Tick: 1}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.Write(logging.Event{Type: "resources.changed", Tick: 2}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 NDJSON lines, got %d: %q", len(lines), buf.String())
	}
	var decoded logging.Event
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if decoded.Tick != 2 {
		t.Fatalf("expected tick 2 on second line, got %d", decoded.Tick)
	}
}
