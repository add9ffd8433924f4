package combo

import (
	"context"
	"sort"
	"time"

	"ironveil/server/internal/events"
	"ironveil/server/logging"
	logcombo "ironveil/server/logging/combo"
)

// Pattern is one known ability sequence and the bonus it awards on completion.
type Pattern struct {
	ID       string
	Sequence []string
	Window   time.Duration
	Bonus    float64
}

// progressStep is the per-matched-step bump applied to the effective
// multiplier of an in-progress chain.
const progressStep = 0.1

type chain struct {
	pattern    Pattern
	matched    int
	lastStepAt time.Time
}

func (c *chain) expired(now time.Time) bool {
	window := c.pattern.Window
	if window <= 0 {
		return false
	}
	return now.Sub(c.lastStepAt) >= window
}

func (c *chain) progressMultiplier() float64 {
	return 1 + float64(c.matched)*progressStep
}

// Tracker matches each entity's ability usage against the known patterns.
// Multiple chains may be live per entity when one opening move begins several
// candidate patterns.
type Tracker struct {
	clock     logging.Clock
	bus       *events.Bus
	publisher logging.Publisher
	tickFn    func() uint64
	patterns  []Pattern
	chains    map[string][]*chain
}

func NewTracker(clock logging.Clock, bus *events.Bus, publisher logging.Publisher, tickFn func() uint64, patterns []Pattern) *Tracker {
	if clock == nil {
		clock = logging.SystemClock{}
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	kept := make([]Pattern, 0, len(patterns))
	for _, p := range patterns {
		if len(p.Sequence) == 0 || p.Bonus <= 0 {
			continue
		}
		kept = append(kept, p)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })
	return &Tracker{
		clock:     clock,
		bus:       bus,
		publisher: publisher,
		tickFn:    tickFn,
		patterns:  kept,
		chains:    make(map[string][]*chain),
	}
}

func (t *Tracker) tick() uint64 {
	if t.tickFn == nil {
		return 0
	}
	return t.tickFn()
}

// NotifyAbilityUsed advances every chain owned by the entity and starts new
// ones for patterns opened by this ability. The return value is the largest
// effective multiplier across surviving chains and any completion bonus, or
// 1.0 when nothing is active.
func (t *Tracker) NotifyAbilityUsed(entityID, abilityKey string) float64 {
	if t == nil || entityID == "" || abilityKey == "" {
		return 1
	}
	now := t.clock.Now()
	best := 1.0

	// Advance pre-existing chains first; chains opened by this very call must
	// not consume the same ability twice.
	surviving := t.chains[entityID][:0]
	for _, c := range t.chains[entityID] {
		if c.expired(now) {
			continue
		}
		expected := c.pattern.Sequence[c.matched]
		if abilityKey != expected {
			logcombo.Broken(context.Background(), t.publisher, t.tick(),
				logging.EntityRef{ID: entityID, Kind: logging.EntityKindUnknown},
				logcombo.BrokenPayload{
					Pattern:  c.pattern.ID,
					Matched:  c.matched,
					Expected: expected,
					Got:      abilityKey,
				})
			continue
		}
		c.matched++
		c.lastStepAt = now
		if c.matched == len(c.pattern.Sequence) {
			best = maxFloat(best, c.pattern.Bonus)
			t.complete(entityID, c)
			continue
		}
		best = maxFloat(best, c.progressMultiplier())
		surviving = append(surviving, c)
	}

	for _, p := range t.patterns {
		if p.Sequence[0] != abilityKey {
			continue
		}
		opened := &chain{pattern: p, matched: 1, lastStepAt: now}
		if opened.matched == len(p.Sequence) {
			best = maxFloat(best, p.Bonus)
			t.complete(entityID, opened)
			continue
		}
		best = maxFloat(best, opened.progressMultiplier())
		surviving = append(surviving, opened)
	}

	if len(surviving) == 0 {
		delete(t.chains, entityID)
	} else {
		t.chains[entityID] = surviving
	}
	return best
}

// CurrentMultiplier reports the best progress multiplier of the entity's live
// chains without advancing anything.
func (t *Tracker) CurrentMultiplier(entityID string) float64 {
	if t == nil {
		return 1
	}
	now := t.clock.Now()
	best := 1.0
	for _, c := range t.chains[entityID] {
		if c.expired(now) {
			continue
		}
		best = maxFloat(best, c.progressMultiplier())
	}
	return best
}

// ActiveChains reports how many attempts the entity currently has in flight.
func (t *Tracker) ActiveChains(entityID string) int {
	if t == nil {
		return 0
	}
	return len(t.chains[entityID])
}

// Prune silently drops every chain whose window elapsed without a new step.
// The loop calls this once per tick.
func (t *Tracker) Prune() {
	if t == nil {
		return
	}
	now := t.clock.Now()
	for entityID, list := range t.chains {
		kept := list[:0]
		for _, c := range list {
			if c.expired(now) {
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			delete(t.chains, entityID)
		} else {
			t.chains[entityID] = kept
		}
	}
}

// Forget drops every chain for an entity leaving the simulation.
func (t *Tracker) Forget(entityID string) {
	if t == nil {
		return
	}
	delete(t.chains, entityID)
}

func (t *Tracker) complete(entityID string, c *chain) {
	if t.bus != nil {
		t.bus.Publish(events.ComboCompleted{
			Entity:     entityID,
			Pattern:    c.pattern.ID,
			Steps:      len(c.pattern.Sequence),
			Multiplier: c.pattern.Bonus,
		})
	}
	logcombo.Completed(context.Background(), t.publisher, t.tick(),
		logging.EntityRef{ID: entityID, Kind: logging.EntityKindUnknown},
		logcombo.CompletedPayload{
			Pattern:    c.pattern.ID,
			Steps:      len(c.pattern.Sequence),
			Multiplier: c.pattern.Bonus,
		})
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
