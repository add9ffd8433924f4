package combat

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"ironveil/server/internal/catalog"
	"ironveil/server/internal/events"
	"ironveil/server/internal/resources"
	"ironveil/server/internal/session"
	"ironveil/server/logging"
	logcombat "ironveil/server/logging/combat"
)

// EntityRegistry is the world-side collaborator owning entity lifecycles.
type EntityRegistry interface {
	Exists(entityID string) bool
	IsAlive(entityID string) bool
}

// StatsSource supplies the attacker and defender numbers resolution needs.
type StatsSource interface {
	CritChance(entityID string) float64
	CritMultiplier(entityID string) float64
	Defense(entityID string) float64
	AttackPower(entityID string) float64
}

// Ledger is the slice of the resource ledger the pipeline commits through.
type Ledger interface {
	Mutate(entityID string, kind resources.Kind, delta float64, source string) (float64, error)
	Registered(entityID string) bool
}

// SessionRecorder groups participants and accumulates per-session metrics.
type SessionRecorder interface {
	GetOrCreateSession(participants []string) string
	RecordContainerApplied(sessionID string, record session.Record)
}

// CreateRequest describes one pending combat effect.
type CreateRequest struct {
	Source           string
	AbilityKey       string
	PrimaryTarget    string
	SecondaryTargets []string
	BaseDamage       float64
	DamageType       string
	CanCrit          bool
	Multipliers      []float64
	Combo            *ComboContext
	Environment      []EnvironmentalModifier
}

// ApplicationResult summarizes an applied container for the caller.
type ApplicationResult struct {
	ContainerID string
	SessionID   string
	Source      string
	Ability     string
	Outcomes    map[string]TargetOutcome
	TotalDamage int
	Hits        int
	Kills       int
	Experience  int
	// Missed marks a pre-flight miss: no container existed, nothing applied.
	Missed bool
}

// Pipeline orchestrates damage containers from creation through commitment.
// It keeps no per-entity state beyond the pending container set.
type Pipeline struct {
	cfg       Config
	clock     logging.Clock
	rng       *rand.Rand
	registry  EntityRegistry
	stats     StatsSource
	ledger    Ledger
	sessions  SessionRecorder
	bus       *events.Bus
	publisher logging.Publisher
	tickFn    func() uint64

	pending map[string]*Container
}

// Deps bundles the pipeline's collaborators.
type Deps struct {
	Clock     logging.Clock
	RNG       *rand.Rand
	Registry  EntityRegistry
	Stats     StatsSource
	Ledger    Ledger
	Sessions  SessionRecorder
	Bus       *events.Bus
	Publisher logging.Publisher
	TickFn    func() uint64
}

func NewPipeline(cfg Config, deps Deps) *Pipeline {
	clock := deps.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Pipeline{
		cfg:       cfg.normalized(),
		clock:     clock,
		rng:       deps.RNG,
		registry:  deps.Registry,
		stats:     deps.Stats,
		ledger:    deps.Ledger,
		sessions:  deps.Sessions,
		bus:       deps.Bus,
		publisher: publisher,
		tickFn:    deps.TickFn,
		pending:   make(map[string]*Container),
	}
}

func (p *Pipeline) tick() uint64 {
	if p.tickFn == nil {
		return 0
	}
	return p.tickFn()
}

func (p *Pipeline) randomFloat() float64 {
	if p.rng != nil {
		return p.rng.Float64()
	}
	return rand.Float64()
}

// CreateContainer validates the request and registers a pending container.
func (p *Pipeline) CreateContainer(req CreateRequest) (*Container, error) {
	if p == nil {
		return nil, ErrInvalidRequest
	}
	if req.Source == "" || req.PrimaryTarget == "" {
		return nil, fmt.Errorf("%w: missing source or target", ErrInvalidRequest)
	}
	if req.BaseDamage < 0 || math.IsNaN(req.BaseDamage) || math.IsInf(req.BaseDamage, 0) {
		return nil, fmt.Errorf("%w: negative base damage", ErrInvalidRequest)
	}
	for _, mult := range req.Multipliers {
		if mult < 0 || math.IsNaN(mult) || math.IsInf(mult, 0) {
			return nil, fmt.Errorf("%w: invalid multiplier", ErrInvalidRequest)
		}
	}

	participants := append([]string{req.Source}, req.PrimaryTarget)
	participants = append(participants, req.SecondaryTargets...)
	sessionID := ""
	if p.sessions != nil {
		sessionID = p.sessions.GetOrCreateSession(participants)
	}

	container := &Container{
		ID:               uuid.NewString(),
		CreatedAt:        p.clock.Now(),
		SessionID:        sessionID,
		Source:           req.Source,
		AbilityKey:       req.AbilityKey,
		PrimaryTarget:    req.PrimaryTarget,
		SecondaryTargets: append([]string(nil), req.SecondaryTargets...),
		BaseDamage:       req.BaseDamage,
		DamageType:       damageType(req.DamageType),
		CanCrit:          req.CanCrit,
		Multipliers:      append([]float64(nil), req.Multipliers...),
		Combo:            req.Combo,
		Environment:      append([]EnvironmentalModifier(nil), req.Environment...),
		Status:           StatusPending,
	}
	p.pending[container.ID] = container
	return container, nil
}

// ApplyContainer resolves a pending container against each of its targets in
// fixed order, commits damage through the ledger, folds the outcome into the
// session, grants rewards, and destroys the container. Only Pending
// containers may be applied; anything else fails with ErrContainerNotPending
// and has no side effects.
func (p *Pipeline) ApplyContainer(containerID string) (ApplicationResult, error) {
	if p == nil {
		return ApplicationResult{}, ErrContainerNotPending
	}
	container, ok := p.pending[containerID]
	if !ok || container.Status != StatusPending {
		return ApplicationResult{}, fmt.Errorf("%w: %s", ErrContainerNotPending, containerID)
	}

	outcomes := make(map[string]TargetOutcome)
	busResults := make([]events.TargetResult, 0, 1+len(container.SecondaryTargets))
	totalDamage := 0
	hits := 0
	kills := 0
	highest := 0

	for _, targetID := range container.Targets() {
		outcome, err := p.resolveTarget(container, targetID)
		outcomes[targetID] = outcome
		if err != nil {
			// Target vanished mid-resolution; skip, never abort the container.
			busResults = append(busResults, events.TargetResult{Target: targetID, Skipped: true})
			continue
		}
		hits++
		totalDamage += outcome.Damage
		if outcome.Damage > highest {
			highest = outcome.Damage
		}
		if outcome.Killed {
			kills++
		}
		busResults = append(busResults, events.TargetResult{
			Target:        targetID,
			Damage:        outcome.Damage,
			Critical:      outcome.Critical,
			Blocked:       outcome.Blocked,
			BlockFraction: outcome.BlockFraction,
			Killed:        outcome.Killed,
		})
	}

	container.Status = StatusApplied
	container.Results = outcomes
	delete(p.pending, containerID)

	if p.sessions != nil && container.SessionID != "" {
		hitDelta := uint64(0)
		if hits > 0 {
			hitDelta = 1
		}
		p.sessions.RecordContainerApplied(container.SessionID, session.Record{
			ContainerID: container.ID,
			Attacks:     1,
			Hits:        hitDelta,
			Damage:      int64(totalDamage),
			HighestHit:  highest,
		})
	}

	experience := int(math.Floor(float64(totalDamage) * p.cfg.ExperiencePerDamage))
	experience += kills * p.cfg.KillExperienceBonus
	if p.bus != nil {
		p.bus.Publish(events.ContainerApplied{
			ContainerID: container.ID,
			SessionID:   container.SessionID,
			Source:      container.Source,
			Ability:     container.AbilityKey,
			Results:     busResults,
		})
		if experience > 0 {
			p.bus.Publish(events.RewardGranted{
				Entity:      container.Source,
				ContainerID: container.ID,
				Experience:  experience,
				Kills:       kills,
			})
		}
	}

	return ApplicationResult{
		ContainerID: container.ID,
		SessionID:   container.SessionID,
		Source:      container.Source,
		Ability:     container.AbilityKey,
		Outcomes:    outcomes,
		TotalDamage: totalDamage,
		Hits:        hits,
		Kills:       kills,
		Experience:  experience,
	}, nil
}

// resolveTarget runs the fixed-order damage formula for one target. The
// multiplicative stages run before mitigation and block so bonuses scale the
// raw hit, not the post-defense remainder.
func (p *Pipeline) resolveTarget(container *Container, targetID string) (TargetOutcome, error) {
	if p.registry != nil {
		if !p.registry.Exists(targetID) {
			return TargetOutcome{Skipped: true}, fmt.Errorf("%w: %s", ErrUnknownTarget, targetID)
		}
		if !p.registry.IsAlive(targetID) {
			return TargetOutcome{Skipped: true}, fmt.Errorf("%w: %s already defeated", ErrUnknownTarget, targetID)
		}
	}
	if p.ledger == nil || !p.ledger.Registered(targetID) {
		return TargetOutcome{Skipped: true}, fmt.Errorf("%w: %s", ErrUnknownTarget, targetID)
	}

	damage := container.BaseDamage
	for _, mult := range container.Multipliers {
		damage *= mult
	}
	if container.Combo != nil && container.Combo.Multiplier > 0 {
		damage *= container.Combo.Multiplier
	}
	for _, env := range container.Environment {
		damage *= env.Multiplier
	}

	outcome := TargetOutcome{}
	if container.CanCrit && p.stats != nil {
		if p.randomFloat() < p.stats.CritChance(container.Source) {
			outcome.Critical = true
			damage *= p.stats.CritMultiplier(container.Source)
		}
	}

	defense := 0.0
	if p.stats != nil {
		defense = p.stats.Defense(targetID)
	}
	damage *= 1 - Mitigation(defense)

	if p.randomFloat() < p.cfg.BlockChance {
		outcome.Blocked = true
		outcome.BlockFraction = p.cfg.BlockFraction
		damage *= 1 - p.cfg.BlockFraction
	}

	final := int(math.Floor(damage))
	if final < p.cfg.MinimumDamage {
		final = p.cfg.MinimumDamage
	}
	outcome.Damage = final

	remaining, err := p.ledger.Mutate(targetID, resources.KindHealth, -float64(final), "combat:"+container.ID)
	if err != nil {
		return TargetOutcome{Skipped: true}, fmt.Errorf("%w: %s", ErrUnknownTarget, targetID)
	}
	outcome.Killed = remaining <= 0

	actor := logging.EntityRef{ID: container.Source, Kind: logging.EntityKindUnknown}
	target := logging.EntityRef{ID: targetID, Kind: logging.EntityKindUnknown}
	logcombat.Damage(context.Background(), p.publisher, p.tick(), actor, target, logcombat.DamagePayload{
		ContainerID:  container.ID,
		Ability:      container.AbilityKey,
		Amount:       final,
		Critical:     outcome.Critical,
		Blocked:      outcome.Blocked,
		TargetHealth: remaining,
	})
	if outcome.Killed {
		logcombat.Defeat(context.Background(), p.publisher, p.tick(), actor, target, logcombat.DefeatPayload{
			ContainerID: container.ID,
			Ability:     container.AbilityKey,
		})
	}
	return outcome, nil
}

// ExpireStale drops every pending container older than the TTL. The loop
// calls this once per tick; expiry is the only cancellation path.
func (p *Pipeline) ExpireStale() int {
	if p == nil || len(p.pending) == 0 {
		return 0
	}
	now := p.clock.Now()
	expired := make([]*Container, 0)
	for _, container := range p.pending {
		if now.Sub(container.CreatedAt) >= p.cfg.ContainerTTL {
			expired = append(expired, container)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ID < expired[j].ID })
	for _, container := range expired {
		container.Status = StatusExpired
		delete(p.pending, container.ID)
		if p.bus != nil {
			p.bus.Publish(events.ContainerExpired{
				ContainerID: container.ID,
				Source:      container.Source,
			})
		}
		logcombat.ContainerExpired(context.Background(), p.publisher, p.tick(),
			logging.EntityRef{ID: container.Source, Kind: logging.EntityKindUnknown},
			logcombat.ExpiredPayload{
				ContainerID: container.ID,
				AgeMs:       now.Sub(container.CreatedAt).Milliseconds(),
			})
	}
	return len(expired)
}

// ActiveContainers returns snapshots of every pending container involving the
// entity, as source or target.
func (p *Pipeline) ActiveContainers(entityID string) []Container {
	if p == nil {
		return nil
	}
	out := make([]Container, 0)
	for _, container := range p.pending {
		if container.Involves(entityID) {
			out = append(out, container.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PendingCount reports the number of unresolved containers.
func (p *Pipeline) PendingCount() int {
	if p == nil {
		return 0
	}
	return len(p.pending)
}

func damageType(raw string) catalog.DamageType {
	switch raw {
	case string(catalog.DamageMagical):
		return catalog.DamageMagical
	default:
		return catalog.DamagePhysical
	}
}
