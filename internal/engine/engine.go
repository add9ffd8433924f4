package engine

import (
	"math/rand"
	"sync"

	"ironveil/server/internal/catalog"
	"ironveil/server/internal/combat"
	"ironveil/server/internal/combo"
	"ironveil/server/internal/events"
	"ironveil/server/internal/resources"
	"ironveil/server/internal/session"
	"ironveil/server/logging"
)

// Messenger delivers human-readable combat feedback to an entity. Delivery is
// best effort; failures never affect resolution.
type Messenger interface {
	SendMessage(entityID, text string) error
}

type nopMessenger struct{}

func (nopMessenger) SendMessage(string, string) error { return nil }

// Config tunes an engine instance.
type Config struct {
	Combat    combat.Config
	Catalog   *catalog.Catalog
	Clock     logging.Clock
	Publisher logging.Publisher
	Messenger Messenger
	// Seed drives the crit, block, and hit rolls. Zero means a fixed default
	// so prototype runs stay reproducible.
	Seed int64
}

func DefaultConfig() Config {
	return Config{
		Combat: combat.DefaultConfig(),
	}
}

// Engine is the explicitly constructed context object owning the resource
// ledger, combo tracker, session registry, and damage pipeline. Callers hold
// a reference instead of reaching through ambient singletons; all component
// wiring happens here.
type Engine struct {
	mu sync.Mutex

	clock     logging.Clock
	publisher logging.Publisher
	messenger Messenger
	rng       *rand.Rand
	catalog   *catalog.Catalog

	bus      *events.Bus
	ledger   *resources.Ledger
	combos   *combo.Tracker
	sessions *session.Registry
	pipeline *combat.Pipeline

	entities    map[string]*entityState
	tallies     map[string]*CombatStats
	currentTick uint64
}

func New(cfg Config) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	messenger := cfg.Messenger
	if messenger == nil {
		messenger = nopMessenger{}
	}
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}

	e := &Engine{
		clock:     clock,
		publisher: publisher,
		messenger: messenger,
		rng:       rand.New(rand.NewSource(seed)),
		catalog:   cat,
		bus:       events.NewBus(),
		entities:  make(map[string]*entityState),
		tallies:   make(map[string]*CombatStats),
	}

	tickFn := e.CurrentTick
	e.ledger = resources.NewLedger(clock, e.bus, publisher, tickFn)
	e.combos = combo.NewTracker(clock, e.bus, publisher, tickFn, comboPatterns(cat))
	e.sessions = session.NewRegistry(clock, e.bus, publisher, tickFn)
	e.pipeline = combat.NewPipeline(cfg.Combat, combat.Deps{
		Clock:     clock,
		RNG:       e.rng,
		Registry:  registryView{e},
		Stats:     statsView{e},
		Ledger:    e.ledger,
		Sessions:  e.sessions,
		Bus:       e.bus,
		Publisher: publisher,
		TickFn:    tickFn,
	})

	// The engine itself listens for applied containers and rewards to keep
	// per-entity combat tallies; collaborators subscribe the same way.
	e.bus.Subscribe(e.recordEvent)
	return e
}

// SetMessenger swaps the feedback channel after construction. The transport
// layer needs an engine reference before it can exist, so it binds here once
// both sides are built.
func (e *Engine) SetMessenger(m Messenger) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if m == nil {
		m = nopMessenger{}
	}
	e.messenger = m
}

// Subscribe registers a collaborator for same-tick gameplay events.
func (e *Engine) Subscribe(handler events.Handler) func() {
	return e.bus.Subscribe(handler)
}

// CurrentTick reports the tick stamp used on emitted events.
func (e *Engine) CurrentTick() uint64 {
	return e.currentTick
}

func comboPatterns(cat *catalog.Catalog) []combo.Pattern {
	defs := cat.Combos()
	patterns := make([]combo.Pattern, 0, len(defs))
	for _, def := range defs {
		sequence := make([]string, len(def.Sequence))
		for i, step := range def.Sequence {
			sequence[i] = string(step)
		}
		patterns = append(patterns, combo.Pattern{
			ID:       def.ID,
			Sequence: sequence,
			Window:   def.Window(),
			Bonus:    def.Bonus,
		})
	}
	return patterns
}
