package resources

import (
	"context"

	"ironveil/server/logging"
)

const (
	// EventChanged is emitted whenever a ledger mutation actually moves a value.
	EventChanged logging.EventType = "resources.changed"
	// EventUnknownKind is emitted when a mutation names an untracked kind.
	EventUnknownKind logging.EventType = "resources.unknown_kind"
	// EventNotRegistered is emitted when an operation targets an entity with
	// no ledger entry.
	EventNotRegistered logging.EventType = "resources.not_registered"
)

// ChangedPayload records a single resource value transition.
type ChangedPayload struct {
	Kind     string  `json:"kind"`
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
	Max      float64 `json:"max"`
	Source   string  `json:"source,omitempty"`
}

// Changed publishes a resource value transition.
func Changed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ChangedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventChanged,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryResources,
		Payload:  payload,
	})
}

// UnknownKind publishes a rejected mutation against an untracked kind.
func UnknownKind(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, kind string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventUnknownKind,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryResources,
		Payload:  map[string]string{"kind": kind},
	})
}

// NotRegistered publishes a no-op against an unregistered entity.
func NotRegistered(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, operation string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventNotRegistered,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryResources,
		Payload:  map[string]string{"operation": operation},
	})
}
