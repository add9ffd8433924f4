package engine

import (
	"sort"

	"ironveil/server/internal/resources"
	"ironveil/server/stats"
)

// Advance runs one simulation tick: stat resolution and ledger max resync,
// container expiry, combo pruning, and regeneration last, so regen never
// races a mutation issued earlier in the same tick.
func (e *Engine) Advance(delta float64) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentTick++

	e.resolveStatsLocked()
	e.pipeline.ExpireStale()
	e.combos.Prune()
	e.ledger.Regenerate(delta)
}

// resolveStatsLocked advances each entity's stat component and pushes the
// derived maxima into the ledger. Current values are clamped, never refilled;
// attribute growth does not grant free healing.
func (e *Engine) resolveStatsLocked() {
	ids := make([]string, 0, len(e.entities))
	for id := range e.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		state := e.entities[id]
		before := state.component.Version()
		state.component.Resolve(e.currentTick)
		if state.component.Version() == before {
			continue
		}
		derived := state.component.DerivedValues()
		_ = e.ledger.SetMax(id, resources.KindHealth, derived[stats.DerivedMaxHealth], false)
		_ = e.ledger.SetMax(id, resources.KindMana, derived[stats.DerivedMaxMana], false)
		_ = e.ledger.SetMax(id, resources.KindStamina, derived[stats.DerivedMaxStamina], false)
	}
}
