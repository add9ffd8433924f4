package engine

import (
	"time"

	"ironveil/server/internal/resources"
	"ironveil/server/stats"
)

type entityState struct {
	id        string
	kind      string
	component stats.Component
}

// RegisterEntity brings an entity into the combat simulation, seeding its
// stats component from the archetype and its resource pools from the derived
// maxima. Registering an existing id is a no-op.
func (e *Engine) RegisterEntity(entityID, kind string, archetype stats.Archetype) {
	if e == nil || entityID == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.entities[entityID]; exists {
		return
	}
	state := &entityState{
		id:        entityID,
		kind:      kind,
		component: stats.DefaultComponent(archetype),
	}
	e.entities[entityID] = state

	derived := state.component.DerivedValues()
	e.ledger.Register(entityID, map[resources.Kind]resources.EntryConfig{
		resources.KindHealth:  {Max: derived[stats.DerivedMaxHealth], RegenPerSecond: 1, PauseDelay: 5 * time.Second},
		resources.KindMana:    {Max: derived[stats.DerivedMaxMana], RegenPerSecond: 5, PauseDelay: 2 * time.Second},
		resources.KindStamina: {Max: derived[stats.DerivedMaxStamina], RegenPerSecond: 10, PauseDelay: time.Second},
	})
}

// RemoveEntity drops an entity from every component: ledger entries, combo
// chains, session membership, and tallies.
func (e *Engine) RemoveEntity(entityID string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.entities[entityID]; !exists {
		return
	}
	delete(e.entities, entityID)
	delete(e.tallies, entityID)
	e.ledger.Remove(entityID)
	e.combos.Forget(entityID)
	e.sessions.RemoveParticipant(entityID)
}

// ApplyStatChange mutates an entity's stats component and resyncs the ledger
// maxima on the next Advance. Used by progression and equipment collaborators.
func (e *Engine) ApplyStatChange(entityID string, change stats.Change) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	state, exists := e.entities[entityID]
	if !exists {
		return
	}
	state.component.Apply(change)
}

func (e *Engine) existsLocked(entityID string) bool {
	_, exists := e.entities[entityID]
	return exists
}

func (e *Engine) isAliveLocked(entityID string) bool {
	if !e.existsLocked(entityID) {
		return false
	}
	current, _, ok := e.ledger.Value(entityID, resources.KindHealth)
	return ok && current > 0
}

// registryView adapts the engine's entity map to combat.EntityRegistry.
// Pipeline calls arrive with the engine mutex already held.
type registryView struct {
	e *Engine
}

func (v registryView) Exists(entityID string) bool {
	return v.e.existsLocked(entityID)
}

func (v registryView) IsAlive(entityID string) bool {
	return v.e.isAliveLocked(entityID)
}

// statsView adapts the stats components to combat.StatsSource.
type statsView struct {
	e *Engine
}

func (v statsView) CritChance(entityID string) float64 {
	if state, ok := v.e.entities[entityID]; ok {
		return state.component.GetDerived(stats.DerivedCritChance)
	}
	return 0
}

func (v statsView) CritMultiplier(entityID string) float64 {
	if state, ok := v.e.entities[entityID]; ok {
		return state.component.GetDerived(stats.DerivedCritMultiplier)
	}
	return 1
}

func (v statsView) Defense(entityID string) float64 {
	if state, ok := v.e.entities[entityID]; ok {
		return state.component.GetDerived(stats.DerivedDefense)
	}
	return 0
}

func (v statsView) AttackPower(entityID string) float64 {
	if state, ok := v.e.entities[entityID]; ok {
		return state.component.GetDerived(stats.DerivedAttackPower)
	}
	return 0
}
