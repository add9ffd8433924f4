package engine

import (
	"ironveil/server/internal/catalog"
	"ironveil/server/internal/combat"
	"ironveil/server/internal/events"
	"ironveil/server/internal/resources"
	"ironveil/server/internal/session"
	"ironveil/server/stats"
)

// CombatStats aggregates an entity's lifetime combat activity.
type CombatStats struct {
	DamageDealt      int64
	DamageTaken      int64
	Kills            int
	Deaths           int
	AttacksAttempted uint64
	SuccessfulHits   uint64
	Experience       int
}

// Accuracy derives the hit rate from the attempt counters.
func (s CombatStats) Accuracy() float64 {
	if s.AttacksAttempted == 0 {
		return 0
	}
	return float64(s.SuccessfulHits) / float64(s.AttacksAttempted)
}

// GetCombatStats returns the entity's tallies. Unregistered entities yield a
// zero value and false.
func (e *Engine) GetCombatStats(entityID string) (CombatStats, bool) {
	if e == nil {
		return CombatStats{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(entityID) {
		e.warnNotRegistered(entityID, "", "combat_stats")
		return CombatStats{}, false
	}
	if tally, ok := e.tallies[entityID]; ok {
		return *tally, true
	}
	return CombatStats{}, true
}

// GetActiveContainers snapshots every pending container involving the entity.
func (e *Engine) GetActiveContainers(entityID string) []combat.Container {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pipeline.ActiveContainers(entityID)
}

// GetSessionMetrics returns a session's aggregates; false once torn down.
func (e *Engine) GetSessionMetrics(sessionID string) (session.Metrics, bool) {
	if e == nil {
		return session.Metrics{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions.Metrics(sessionID)
}

// GetResource reads one pool's current and max values.
func (e *Engine) GetResource(entityID string, kind resources.Kind) (current, max float64, ok bool) {
	if e == nil {
		return 0, 0, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Value(entityID, kind)
}

// EndSession tears a session down explicitly, e.g. when one side disconnects.
func (e *Engine) EndSession(sessionID string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions.EndSession(sessionID)
}

// Catalog exposes the ability and weapon definitions the engine resolves
// against, for callers building UI or join payloads.
func (e *Engine) Catalog() *catalog.Catalog {
	if e == nil {
		return nil
	}
	return e.catalog
}

// DerivedStats snapshots an entity's resolved derived values keyed by name.
func (e *Engine) DerivedStats(entityID string) (map[string]float64, bool) {
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.entities[entityID]
	if !ok {
		return nil, false
	}
	state.component.Resolve(e.currentTick)
	derived := state.component.DerivedValues()
	out := make(map[string]float64, len(derived))
	for id := stats.DerivedID(0); id < stats.DerivedCount; id++ {
		out[id.String()] = derived[id]
	}
	return out, true
}

func (e *Engine) tallyFor(entityID string) *CombatStats {
	if !e.existsLocked(entityID) {
		return nil
	}
	tally, ok := e.tallies[entityID]
	if !ok {
		tally = &CombatStats{}
		e.tallies[entityID] = tally
	}
	return tally
}

// recordEvent keeps the per-entity tallies current. It runs synchronously on
// the bus during resolution, so the engine mutex is already held.
func (e *Engine) recordEvent(event events.Event) {
	switch ev := event.(type) {
	case events.ContainerApplied:
		source := e.tallyFor(ev.Source)
		if source != nil {
			source.AttacksAttempted++
		}
		landed := false
		for _, result := range ev.Results {
			if result.Skipped {
				continue
			}
			landed = true
			if source != nil {
				source.DamageDealt += int64(result.Damage)
				if result.Killed {
					source.Kills++
				}
			}
			if target := e.tallyFor(result.Target); target != nil {
				target.DamageTaken += int64(result.Damage)
				if result.Killed {
					target.Deaths++
				}
			}
		}
		if landed && source != nil {
			source.SuccessfulHits++
		}
	case events.RewardGranted:
		if tally := e.tallyFor(ev.Entity); tally != nil {
			tally.Experience += ev.Experience
		}
	}
}
