package engine

import (
	"context"
	"fmt"

	"ironveil/server/internal/catalog"
	"ironveil/server/internal/combat"
	"ironveil/server/internal/resources"
	"ironveil/server/internal/session"
	"ironveil/server/logging"
	logcombat "ironveil/server/logging/combat"
)

// RequestBasicAttack runs the full synchronous path for a weapon swing:
// pre-flight hit roll, container creation, and immediate application.
// Unregistered participants make the request a safe no-op.
func (e *Engine) RequestBasicAttack(attackerID, targetID string, weapon catalog.WeaponKey) (combat.ApplicationResult, error) {
	if e == nil {
		return combat.ApplicationResult{}, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.existsLocked(attackerID) || !e.existsLocked(targetID) {
		e.warnNotRegistered(attackerID, targetID, "basic_attack")
		return combat.ApplicationResult{}, nil
	}
	if weapon == "" {
		weapon = catalog.WeaponFists
	}
	def, ok := e.catalog.Weapon(weapon)
	if !ok {
		return combat.ApplicationResult{}, fmt.Errorf("%w: unknown weapon %q", combat.ErrInvalidRequest, weapon)
	}

	if def.StaminaCost > 0 {
		if !e.spendLocked(attackerID, resources.KindStamina, def.StaminaCost) {
			_ = e.messenger.SendMessage(attackerID, "You are too exhausted to attack.")
			return combat.ApplicationResult{}, nil
		}
	}

	if missed, result := e.rollHitLocked(attackerID, targetID, string(weapon)); missed {
		return result, nil
	}

	return e.createAndApplyLocked(combat.CreateRequest{
		Source:        attackerID,
		AbilityKey:    string(weapon),
		PrimaryTarget: targetID,
		BaseDamage:    def.BaseDamage,
		DamageType:    string(def.DamageType),
		CanCrit:       def.CanCrit,
	})
}

// RequestAbilityAttack resolves an ability use: combo advancement, resource
// cost, then either a heal through the ledger or a damage container. An empty
// target defaults to the caster for healing abilities.
func (e *Engine) RequestAbilityAttack(casterID string, abilityKey catalog.AbilityKey, targetID string) (combat.ApplicationResult, error) {
	if e == nil {
		return combat.ApplicationResult{}, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.existsLocked(casterID) {
		e.warnNotRegistered(casterID, "", "ability_attack")
		return combat.ApplicationResult{}, nil
	}
	def, ok := e.catalog.Ability(abilityKey)
	if !ok {
		return combat.ApplicationResult{}, fmt.Errorf("%w: unknown ability %q", combat.ErrInvalidRequest, abilityKey)
	}

	if def.Cost.Amount > 0 {
		if !e.spendLocked(casterID, resources.Kind(def.Cost.Kind), def.Cost.Amount) {
			_ = e.messenger.SendMessage(casterID, fmt.Sprintf("Not enough %s for %s.", def.Cost.Kind, def.Name))
			return combat.ApplicationResult{}, nil
		}
	}

	multiplier := e.combos.NotifyAbilityUsed(casterID, string(abilityKey))

	if def.Healing > 0 {
		healTarget := targetID
		if healTarget == "" {
			healTarget = casterID
		}
		if _, err := e.ledger.Mutate(healTarget, resources.KindHealth, def.Healing*multiplier, "ability:"+string(abilityKey)); err == nil {
			_ = e.messenger.SendMessage(casterID, fmt.Sprintf("%s restores the wounds.", def.Name))
		}
		return combat.ApplicationResult{Source: casterID, Ability: string(abilityKey)}, nil
	}

	if targetID == "" || !e.existsLocked(targetID) {
		e.warnNotRegistered(targetID, "", "ability_attack")
		_ = e.messenger.SendMessage(casterID, "Your target is gone.")
		return combat.ApplicationResult{}, nil
	}

	if missed, result := e.rollHitLocked(casterID, targetID, string(abilityKey)); missed {
		return result, nil
	}

	req := combat.CreateRequest{
		Source:        casterID,
		AbilityKey:    string(abilityKey),
		PrimaryTarget: targetID,
		BaseDamage:    def.BaseDamage,
		DamageType:    string(def.DamageType),
		CanCrit:       def.CanCrit,
	}
	if multiplier > 1 {
		req.Combo = &combat.ComboContext{Multiplier: multiplier}
	}
	return e.createAndApplyLocked(req)
}

// RequestResourceMutation applies a clamped delta to one pool on behalf of a
// collaborator (heals, costs, environmental effects). Fire-and-forget: errors
// surface only through logs; the return value is the post-mutation current.
func (e *Engine) RequestResourceMutation(entityID string, kind resources.Kind, amount float64, source string) float64 {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	value, err := e.ledger.Mutate(entityID, kind, amount, source)
	if err != nil {
		return 0
	}
	return value
}

// CreateContainer exposes deferred container creation for collaborators that
// separate the hit decision from its application (projectiles in flight).
func (e *Engine) CreateContainer(req combat.CreateRequest) (combat.Container, error) {
	if e == nil {
		return combat.Container{}, combat.ErrInvalidRequest
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	container, err := e.pipeline.CreateContainer(req)
	if err != nil {
		return combat.Container{}, err
	}
	return *container, nil
}

// ApplyContainer resolves a previously created container.
func (e *Engine) ApplyContainer(containerID string) (combat.ApplicationResult, error) {
	if e == nil {
		return combat.ApplicationResult{}, combat.ErrContainerNotPending
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pipeline.ApplyContainer(containerID)
}

func (e *Engine) createAndApplyLocked(req combat.CreateRequest) (combat.ApplicationResult, error) {
	container, err := e.pipeline.CreateContainer(req)
	if err != nil {
		return combat.ApplicationResult{}, err
	}
	result, err := e.pipeline.ApplyContainer(container.ID)
	if err != nil {
		return combat.ApplicationResult{}, err
	}
	if result.TotalDamage > 0 {
		_ = e.messenger.SendMessage(req.Source, fmt.Sprintf("You hit for %d damage.", result.TotalDamage))
	}
	return result, nil
}

// rollHitLocked performs the pre-flight hit check. On a miss no container is
// created; the attempt still counts against the session's accuracy.
func (e *Engine) rollHitLocked(attackerID, targetID, ability string) (bool, combat.ApplicationResult) {
	power := statsView{e}.AttackPower(attackerID)
	defense := statsView{e}.Defense(targetID)
	chance := combat.HitChance(power, defense)
	roll := e.rng.Float64()
	if roll < chance {
		return false, combat.ApplicationResult{}
	}

	sessionID := e.sessions.GetOrCreateSession([]string{attackerID, targetID})
	e.sessions.RecordContainerApplied(sessionID, session.Record{Attacks: 1})
	logcombat.Miss(context.Background(), e.publisher, e.currentTick,
		logging.EntityRef{ID: attackerID, Kind: logging.EntityKindUnknown},
		logging.EntityRef{ID: targetID, Kind: logging.EntityKindUnknown},
		logcombat.MissPayload{Ability: ability, HitChance: chance, Roll: roll})
	_ = e.messenger.SendMessage(attackerID, "Your attack misses.")

	if tally := e.tallyFor(attackerID); tally != nil {
		tally.AttacksAttempted++
	}
	return true, combat.ApplicationResult{
		SessionID: sessionID,
		Source:    attackerID,
		Ability:   ability,
		Missed:    true,
	}
}

// spendLocked withdraws a cost, refusing when the pool cannot cover it.
func (e *Engine) spendLocked(entityID string, kind resources.Kind, amount float64) bool {
	current, _, ok := e.ledger.Value(entityID, kind)
	if !ok || current < amount {
		return false
	}
	_, err := e.ledger.Mutate(entityID, kind, -amount, "cost")
	return err == nil
}

func (e *Engine) warnNotRegistered(primary, secondary, operation string) {
	id := primary
	if id == "" {
		id = secondary
	}
	logcombat.UnknownEntity(context.Background(), e.publisher, e.currentTick,
		logging.EntityRef{ID: id, Kind: logging.EntityKindUnknown},
		logcombat.UnknownEntityPayload{Operation: operation})
}
