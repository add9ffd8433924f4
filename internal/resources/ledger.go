package resources

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"ironveil/server/internal/events"
	"ironveil/server/logging"
	logres "ironveil/server/logging/resources"
)

// Kind names one regenerating resource pool.
type Kind string

const (
	KindHealth  Kind = "health"
	KindMana    Kind = "mana"
	KindStamina Kind = "stamina"
)

var (
	// ErrUnknownKind rejects a mutation against a kind the entity does not track.
	ErrUnknownKind = errors.New("resources: unknown resource kind")
	// ErrNotRegistered rejects an operation against an entity with no ledger entry.
	ErrNotRegistered = errors.New("resources: entity not registered")
)

const valueEpsilon = 1e-6

// EntryConfig seeds one (entity, kind) ledger entry.
type EntryConfig struct {
	Max            float64
	RegenPerSecond float64
	PauseDelay     time.Duration
}

// DefaultEntryConfigs is the standard pool layout for a newly registered actor.
func DefaultEntryConfigs() map[Kind]EntryConfig {
	return map[Kind]EntryConfig{
		KindHealth:  {Max: 100, RegenPerSecond: 1, PauseDelay: 5 * time.Second},
		KindMana:    {Max: 100, RegenPerSecond: 5, PauseDelay: 2 * time.Second},
		KindStamina: {Max: 100, RegenPerSecond: 10, PauseDelay: time.Second},
	}
}

type entry struct {
	current        float64
	max            float64
	regenPerSecond float64
	pauseDelay     time.Duration
	lastMutatedAt  time.Time
}

// Ledger owns every (entity, kind) resource value. All mutation flows through
// Mutate and SetMax so clamping, timestamps, and change events stay
// authoritative.
type Ledger struct {
	clock     logging.Clock
	bus       *events.Bus
	publisher logging.Publisher
	tickFn    func() uint64
	entries   map[string]map[Kind]*entry
}

// NewLedger constructs an empty ledger. Any of bus, publisher, or tickFn may
// be nil; the ledger degrades to silent operation.
func NewLedger(clock logging.Clock, bus *events.Bus, publisher logging.Publisher, tickFn func() uint64) *Ledger {
	if clock == nil {
		clock = logging.SystemClock{}
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Ledger{
		clock:     clock,
		bus:       bus,
		publisher: publisher,
		tickFn:    tickFn,
		entries:   make(map[string]map[Kind]*entry),
	}
}

func (l *Ledger) tick() uint64 {
	if l.tickFn == nil {
		return 0
	}
	return l.tickFn()
}

// Register creates ledger entries for an entity, initialized to full pools.
// Re-registering an existing entity is a no-op.
func (l *Ledger) Register(entityID string, configs map[Kind]EntryConfig) {
	if l == nil || entityID == "" {
		return
	}
	if _, exists := l.entries[entityID]; exists {
		return
	}
	if len(configs) == 0 {
		configs = DefaultEntryConfigs()
	}
	pools := make(map[Kind]*entry, len(configs))
	for kind, cfg := range configs {
		max := cfg.Max
		if max < 0 {
			max = 0
		}
		pools[kind] = &entry{
			current:        max,
			max:            max,
			regenPerSecond: cfg.RegenPerSecond,
			pauseDelay:     cfg.PauseDelay,
		}
	}
	l.entries[entityID] = pools
}

// Remove drops every entry for an entity leaving the simulation.
func (l *Ledger) Remove(entityID string) {
	if l == nil {
		return
	}
	delete(l.entries, entityID)
}

// Registered reports whether the entity has any ledger entries.
func (l *Ledger) Registered(entityID string) bool {
	if l == nil {
		return false
	}
	_, ok := l.entries[entityID]
	return ok
}

// Value returns the current and max values for one pool.
func (l *Ledger) Value(entityID string, kind Kind) (current, max float64, ok bool) {
	pools, exists := l.entries[entityID]
	if !exists {
		return 0, 0, false
	}
	e, exists := pools[kind]
	if !exists {
		return 0, 0, false
	}
	return e.current, e.max, true
}

// Mutate applies a clamped delta to one pool, stamps the last-mutation
// timestamp, and returns the new current value. A change event fires only
// when the clamped value actually moved.
func (l *Ledger) Mutate(entityID string, kind Kind, delta float64, source string) (float64, error) {
	if l == nil {
		return 0, ErrNotRegistered
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		delta = 0
	}
	pools, exists := l.entries[entityID]
	if !exists {
		logres.NotRegistered(context.Background(), l.publisher, l.tick(),
			logging.EntityRef{ID: entityID, Kind: logging.EntityKindUnknown}, "mutate")
		return 0, ErrNotRegistered
	}
	e, exists := pools[kind]
	if !exists {
		logres.UnknownKind(context.Background(), l.publisher, l.tick(),
			logging.EntityRef{ID: entityID, Kind: logging.EntityKindUnknown}, string(kind))
		return 0, ErrUnknownKind
	}

	previous := e.current
	next := clamp(previous+delta, 0, e.max)
	e.lastMutatedAt = l.clock.Now()
	if math.Abs(next-previous) < valueEpsilon {
		return previous, nil
	}
	e.current = next
	l.announce(entityID, kind, previous, e, source)
	return next, nil
}

// SetMax updates a pool's ceiling. When refill is set the current value snaps
// to the new max; otherwise it is clamped down if it now exceeds the ceiling.
// SetMax does not stamp the mutation timestamp, so regeneration pacing is
// unaffected by attribute recomputes.
func (l *Ledger) SetMax(entityID string, kind Kind, newMax float64, refill bool) error {
	if l == nil {
		return ErrNotRegistered
	}
	if math.IsNaN(newMax) || math.IsInf(newMax, 0) || newMax < 0 {
		newMax = 0
	}
	pools, exists := l.entries[entityID]
	if !exists {
		logres.NotRegistered(context.Background(), l.publisher, l.tick(),
			logging.EntityRef{ID: entityID, Kind: logging.EntityKindUnknown}, "set_max")
		return ErrNotRegistered
	}
	e, exists := pools[kind]
	if !exists {
		logres.UnknownKind(context.Background(), l.publisher, l.tick(),
			logging.EntityRef{ID: entityID, Kind: logging.EntityKindUnknown}, string(kind))
		return ErrUnknownKind
	}

	previous := e.current
	e.max = newMax
	if refill {
		e.current = newMax
	} else if e.current > newMax {
		e.current = newMax
	}
	if math.Abs(e.current-previous) >= valueEpsilon {
		l.announce(entityID, kind, previous, e, "set_max")
	}
	return nil
}

// LastMutatedAt exposes the pause-gate timestamp for one pool.
func (l *Ledger) LastMutatedAt(entityID string, kind Kind) (time.Time, bool) {
	pools, exists := l.entries[entityID]
	if !exists {
		return time.Time{}, false
	}
	e, exists := pools[kind]
	if !exists {
		return time.Time{}, false
	}
	return e.lastMutatedAt, true
}

// entityIDs returns tracked entities in a stable order for deterministic
// regeneration sweeps.
func (l *Ledger) entityIDs() []string {
	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func kindsOf(pools map[Kind]*entry) []Kind {
	kinds := make([]Kind, 0, len(pools))
	for kind := range pools {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (l *Ledger) announce(entityID string, kind Kind, previous float64, e *entry, source string) {
	if l.bus != nil {
		l.bus.Publish(events.ResourceChanged{
			Entity:   entityID,
			Kind:     string(kind),
			Previous: previous,
			Current:  e.current,
			Max:      e.max,
			Source:   source,
		})
	}
	logres.Changed(context.Background(), l.publisher, l.tick(),
		logging.EntityRef{ID: entityID, Kind: logging.EntityKindUnknown},
		logres.ChangedPayload{
			Kind:     string(kind),
			Previous: previous,
			Current:  e.current,
			Max:      e.max,
			Source:   source,
		})
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
