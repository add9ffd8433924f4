package combo

import (
	"context"

	"ironveil/server/logging"
)

const (
	// EventCompleted is emitted when a chain matches its full sequence.
	EventCompleted logging.EventType = "combo.completed"
	// EventBroken is emitted when a wrong ability cancels an attempt.
	EventBroken logging.EventType = "combo.broken"
)

// CompletedPayload records the finished pattern and its reward multiplier.
type CompletedPayload struct {
	Pattern    string  `json:"pattern"`
	Steps      int     `json:"steps"`
	Multiplier float64 `json:"multiplier"`
}

// BrokenPayload records the attempt that was cancelled by a mismatch.
type BrokenPayload struct {
	Pattern  string `json:"pattern"`
	Matched  int    `json:"matched"`
	Expected string `json:"expected"`
	Got      string `json:"got"`
}

// Completed publishes a finished combo chain.
func Completed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CompletedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCompleted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombo,
		Payload:  payload,
	})
}

// Broken publishes a cancelled combo attempt.
func Broken(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BrokenPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBroken,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombo,
		Payload:  payload,
	})
}
