package combat

import (
	"context"

	"ironveil/server/logging"
)

const (
	// EventDamage is emitted once per target when a container commits damage.
	EventDamage logging.EventType = "combat.damage"
	// EventDefeat is emitted when a target's health reaches zero.
	EventDefeat logging.EventType = "combat.defeat"
	// EventMiss is emitted when a pre-flight hit roll fails.
	EventMiss logging.EventType = "combat.miss"
	// EventContainerExpired is emitted when a pending container times out.
	EventContainerExpired logging.EventType = "combat.container_expired"
	// EventUnknownEntity is emitted when a combat request names an entity the
	// engine does not know.
	EventUnknownEntity logging.EventType = "combat.unknown_entity"
)

// DamagePayload captures the resolved outcome for a single target.
type DamagePayload struct {
	ContainerID  string  `json:"containerId"`
	Ability      string  `json:"ability,omitempty"`
	Amount       int     `json:"amount"`
	Critical     bool    `json:"critical,omitempty"`
	Blocked      bool    `json:"blocked,omitempty"`
	TargetHealth float64 `json:"targetHealth"`
}

// DefeatPayload describes the context for a fatal blow.
type DefeatPayload struct {
	ContainerID string `json:"containerId"`
	Ability     string `json:"ability,omitempty"`
}

// MissPayload records the failed hit roll.
type MissPayload struct {
	Ability   string  `json:"ability,omitempty"`
	HitChance float64 `json:"hitChance"`
	Roll      float64 `json:"roll"`
}

// UnknownEntityPayload names the operation that was refused.
type UnknownEntityPayload struct {
	Operation string `json:"operation"`
}

// ExpiredPayload identifies the abandoned container.
type ExpiredPayload struct {
	ContainerID string `json:"containerId"`
	AgeMs       int64  `json:"ageMs"`
}

// Damage publishes a combat damage event for a single target.
func Damage(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload DamagePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDamage,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// Defeat publishes a combat defeat event for the eliminated actor.
func Defeat(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload DefeatPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDefeat,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// Miss publishes a pre-flight miss event.
func Miss(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload MissPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMiss,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// UnknownEntity publishes a warning for a combat request naming an entity
// that is not registered.
func UnknownEntity(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload UnknownEntityPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventUnknownEntity,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// ContainerExpired publishes the expiry of an unapplied container.
func ContainerExpired(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ExpiredPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventContainerExpired,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}
