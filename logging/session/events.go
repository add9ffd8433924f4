package session

import (
	"context"

	"ironveil/server/logging"
)

const (
	// EventStarted is emitted when a session is lazily created.
	EventStarted logging.EventType = "session.started"
	// EventEnded is emitted when a session is torn down.
	EventEnded logging.EventType = "session.ended"
)

// StartedPayload names the new session and its initial membership.
type StartedPayload struct {
	SessionID    string   `json:"sessionId"`
	Participants []string `json:"participants"`
}

// EndedPayload carries the final aggregate metrics.
type EndedPayload struct {
	SessionID      string  `json:"sessionId"`
	TotalDamage    int64   `json:"totalDamage"`
	Attacks        uint64  `json:"attacks"`
	Hits           uint64  `json:"hits"`
	Accuracy       float64 `json:"accuracy"`
	HighestHit     int     `json:"highestHit"`
	DurationMillis int64   `json:"durationMs"`
}

// Started publishes session creation.
func Started(ctx context.Context, pub logging.Publisher, tick uint64, payload StartedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStarted,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: payload.SessionID, Kind: logging.EntityKindSystem},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
		Payload:  payload,
	})
}

// Ended publishes session teardown with its final metrics.
func Ended(ctx context.Context, pub logging.Publisher, tick uint64, payload EndedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEnded,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: payload.SessionID, Kind: logging.EntityKindSystem},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
		Payload:  payload,
	})
}
