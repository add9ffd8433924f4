package combat

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"ironveil/server/internal/events"
	"ironveil/server/internal/resources"
	"ironveil/server/internal/session"
	"ironveil/server/logging"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeRegistry struct {
	missing map[string]bool
	dead    map[string]bool
}

func (f *fakeRegistry) Exists(id string) bool { return !f.missing[id] }

func (f *fakeRegistry) IsAlive(id string) bool { return !f.dead[id] }

type fakeStats struct {
	critChance float64
	critMult   float64
	defense    map[string]float64
	power      map[string]float64
}

func (f *fakeStats) CritChance(string) float64     { return f.critChance }
func (f *fakeStats) CritMultiplier(string) float64 { return f.critMult }
func (f *fakeStats) Defense(id string) float64     { return f.defense[id] }
func (f *fakeStats) AttackPower(id string) float64 { return f.power[id] }

type fakeLedger struct {
	health map[string]float64
}

func (f *fakeLedger) Registered(id string) bool {
	_, ok := f.health[id]
	return ok
}

func (f *fakeLedger) Mutate(id string, kind resources.Kind, delta float64, source string) (float64, error) {
	current, ok := f.health[id]
	if !ok {
		return 0, resources.ErrNotRegistered
	}
	next := current + delta
	if next < 0 {
		next = 0
	}
	f.health[id] = next
	return next, nil
}

type fakeSessions struct {
	records []session.Record
}

func (f *fakeSessions) GetOrCreateSession([]string) string { return "sess-1" }

func (f *fakeSessions) RecordContainerApplied(_ string, record session.Record) {
	f.records = append(f.records, record)
}

type fixture struct {
	pipeline *Pipeline
	clock    *testClock
	registry *fakeRegistry
	stats    *fakeStats
	ledger   *fakeLedger
	sessions *fakeSessions
	bus      *events.Bus
	applied  *[]events.ContainerApplied
	expired  *[]events.ContainerExpired
	rewards  *[]events.RewardGranted
}

func newFixture(cfg Config) *fixture {
	clock := &testClock{now: time.Unix(5000, 0)}
	registry := &fakeRegistry{missing: map[string]bool{}, dead: map[string]bool{}}
	stats := &fakeStats{defense: map[string]float64{}, power: map[string]float64{}}
	ledger := &fakeLedger{health: map[string]float64{}}
	sessions := &fakeSessions{}
	bus := events.NewBus()
	applied := &[]events.ContainerApplied{}
	expired := &[]events.ContainerExpired{}
	rewards := &[]events.RewardGranted{}
	bus.Subscribe(func(event events.Event) {
		switch ev := event.(type) {
		case events.ContainerApplied:
			*applied = append(*applied, ev)
		case events.ContainerExpired:
			*expired = append(*expired, ev)
		case events.RewardGranted:
			*rewards = append(*rewards, ev)
		}
	})
	pipeline := NewPipeline(cfg, Deps{
		Clock:     clock,
		RNG:       rand.New(rand.NewSource(1)),
		Registry:  registry,
		Stats:     stats,
		Ledger:    ledger,
		Sessions:  sessions,
		Bus:       bus,
		Publisher: logging.NopPublisher(),
	})
	return &fixture{
		pipeline: pipeline,
		clock:    clock,
		registry: registry,
		stats:    stats,
		ledger:   ledger,
		sessions: sessions,
		bus:      bus,
		applied:  applied,
		expired:  expired,
		rewards:  rewards,
	}
}

// noChanceConfig removes the random stages so damage is fully determined.
func noChanceConfig() Config {
	cfg := DefaultConfig()
	cfg.BlockChance = 0
	return cfg
}

func TestDamageResolutionOrder(t *testing.T) {
	fx := newFixture(noChanceConfig())
	fx.ledger.health["rat"] = 500
	fx.stats.defense["rat"] = 100 // mitigation 0.5

	container, err := fx.pipeline.CreateContainer(CreateRequest{
		Source:        "hero",
		AbilityKey:    "slash",
		PrimaryTarget: "rat",
		BaseDamage:    100,
		Multipliers:   []float64{1.5},
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	result, err := fx.pipeline.ApplyContainer(container.ID)
	if err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}
	// 100 * 1.5 = 150, then 50% mitigation from defense 100.
	if result.TotalDamage != 75 {
		t.Fatalf("expected 75 damage, got %d", result.TotalDamage)
	}
	if fx.ledger.health["rat"] != 425 {
		t.Fatalf("expected health 425, got %.2f", fx.ledger.health["rat"])
	}
	if result.Outcomes["rat"].Critical || result.Outcomes["rat"].Blocked {
		t.Fatalf("expected a plain hit, got %+v", result.Outcomes["rat"])
	}
}

func TestComboAndEnvironmentScaleBeforeMitigation(t *testing.T) {
	fx := newFixture(noChanceConfig())
	fx.ledger.health["rat"] = 500
	fx.stats.defense["rat"] = 100

	container, err := fx.pipeline.CreateContainer(CreateRequest{
		Source:        "hero",
		PrimaryTarget: "rat",
		BaseDamage:    100,
		Combo:         &ComboContext{Multiplier: 2.0},
		Environment:   []EnvironmentalModifier{{Multiplier: 0.5, Description: "rain"}},
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	result, err := fx.pipeline.ApplyContainer(container.ID)
	if err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}
	// 100 * 2.0 * 0.5 = 100 raw, halved by mitigation.
	if result.TotalDamage != 50 {
		t.Fatalf("expected 50 damage, got %d", result.TotalDamage)
	}
}

func TestCritScalesDamage(t *testing.T) {
	fx := newFixture(noChanceConfig())
	fx.ledger.health["rat"] = 500
	fx.stats.critChance = 1.0
	fx.stats.critMult = 2.0

	container, _ := fx.pipeline.CreateContainer(CreateRequest{
		Source:        "hero",
		PrimaryTarget: "rat",
		BaseDamage:    40,
		CanCrit:       true,
	})
	result, err := fx.pipeline.ApplyContainer(container.ID)
	if err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}
	outcome := result.Outcomes["rat"]
	if !outcome.Critical || outcome.Damage != 80 {
		t.Fatalf("expected guaranteed crit for 80, got %+v", outcome)
	}
}

func TestBlockHalvesAfterMitigation(t *testing.T) {
	cfg := noChanceConfig()
	cfg.BlockChance = 1.0
	cfg.BlockFraction = 0.5
	fx := newFixture(cfg)
	fx.ledger.health["rat"] = 500

	container, _ := fx.pipeline.CreateContainer(CreateRequest{
		Source:        "hero",
		PrimaryTarget: "rat",
		BaseDamage:    100,
	})
	result, err := fx.pipeline.ApplyContainer(container.ID)
	if err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}
	outcome := result.Outcomes["rat"]
	if !outcome.Blocked || outcome.Damage != 50 {
		t.Fatalf("expected guaranteed block for 50, got %+v", outcome)
	}
}

func TestMinimumDamageFloor(t *testing.T) {
	fx := newFixture(noChanceConfig())
	fx.ledger.health["rat"] = 500
	fx.stats.defense["rat"] = 900 // mitigation 0.9

	container, _ := fx.pipeline.CreateContainer(CreateRequest{
		Source:        "hero",
		PrimaryTarget: "rat",
		BaseDamage:    1,
	})
	result, err := fx.pipeline.ApplyContainer(container.ID)
	if err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}
	if result.TotalDamage != 1 {
		t.Fatalf("expected floor of 1 damage, got %d", result.TotalDamage)
	}
}

func TestKillAndExperience(t *testing.T) {
	fx := newFixture(noChanceConfig())
	fx.ledger.health["rat"] = 30

	container, _ := fx.pipeline.CreateContainer(CreateRequest{
		Source:        "hero",
		PrimaryTarget: "rat",
		BaseDamage:    75,
	})
	result, err := fx.pipeline.ApplyContainer(container.ID)
	if err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}
	if !result.Outcomes["rat"].Killed || result.Kills != 1 {
		t.Fatalf("expected kill, got %+v", result)
	}
	// Committed damage is the full 75 even though only 30 health remained.
	if result.Experience != 7+25 {
		t.Fatalf("expected 32 experience (floor(75*0.1)+25), got %d", result.Experience)
	}
	if len(*fx.rewards) != 1 || (*fx.rewards)[0].Experience != 32 {
		t.Fatalf("expected one reward event for 32, got %+v", *fx.rewards)
	}
}

func TestDoubleApplyFails(t *testing.T) {
	fx := newFixture(noChanceConfig())
	fx.ledger.health["rat"] = 500

	container, _ := fx.pipeline.CreateContainer(CreateRequest{
		Source:        "hero",
		PrimaryTarget: "rat",
		BaseDamage:    10,
	})
	if _, err := fx.pipeline.ApplyContainer(container.ID); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	if _, err := fx.pipeline.ApplyContainer(container.ID); !errors.Is(err, ErrContainerNotPending) {
		t.Fatalf("expected ErrContainerNotPending, got %v", err)
	}
	if fx.ledger.health["rat"] != 490 {
		t.Fatalf("second apply must not commit damage, health %.2f", fx.ledger.health["rat"])
	}
}

func TestVanishedSecondaryIsSkippedNotFatal(t *testing.T) {
	fx := newFixture(noChanceConfig())
	fx.ledger.health["rat"] = 500
	fx.ledger.health["bat"] = 500

	container, _ := fx.pipeline.CreateContainer(CreateRequest{
		Source:           "hero",
		PrimaryTarget:    "rat",
		SecondaryTargets: []string{"ghost", "bat"},
		BaseDamage:       10,
	})
	fx.registry.missing["ghost"] = true

	result, err := fx.pipeline.ApplyContainer(container.ID)
	if err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}
	if !result.Outcomes["ghost"].Skipped {
		t.Fatalf("expected ghost skipped, got %+v", result.Outcomes["ghost"])
	}
	if result.Hits != 2 || result.TotalDamage != 20 {
		t.Fatalf("expected remaining targets resolved, got %+v", result)
	}
	if fx.ledger.health["bat"] != 490 {
		t.Fatalf("expected bat damaged after the skip, health %.2f", fx.ledger.health["bat"])
	}
}

func TestDefeatedSecondaryIsSkipped(t *testing.T) {
	fx := newFixture(noChanceConfig())
	fx.ledger.health["rat"] = 500
	fx.ledger.health["corpse"] = 0

	container, _ := fx.pipeline.CreateContainer(CreateRequest{
		Source:           "hero",
		PrimaryTarget:    "rat",
		SecondaryTargets: []string{"corpse"},
		BaseDamage:       10,
	})
	fx.registry.dead["corpse"] = true

	result, err := fx.pipeline.ApplyContainer(container.ID)
	if err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}
	if !result.Outcomes["corpse"].Skipped {
		t.Fatalf("expected corpse skipped, got %+v", result.Outcomes["corpse"])
	}
	if fx.ledger.health["corpse"] != 0 {
		t.Fatalf("defeated target must not take further damage, health %.2f", fx.ledger.health["corpse"])
	}
	if result.Hits != 1 || result.TotalDamage != 10 || result.Kills != 0 {
		t.Fatalf("expected only the live target resolved, got %+v", result)
	}
}

func TestCreateContainerValidation(t *testing.T) {
	fx := newFixture(noChanceConfig())

	cases := []struct {
		name string
		req  CreateRequest
	}{
		{"missing source", CreateRequest{PrimaryTarget: "rat", BaseDamage: 10}},
		{"missing target", CreateRequest{Source: "hero", BaseDamage: 10}},
		{"negative base damage", CreateRequest{Source: "hero", PrimaryTarget: "rat", BaseDamage: -1}},
		{"negative multiplier", CreateRequest{Source: "hero", PrimaryTarget: "rat", BaseDamage: 10, Multipliers: []float64{-0.5}}},
	}
	for _, tc := range cases {
		if _, err := fx.pipeline.CreateContainer(tc.req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("%s: expected ErrInvalidRequest, got %v", tc.name, err)
		}
	}
	if fx.pipeline.PendingCount() != 0 {
		t.Fatalf("expected no pending containers, got %d", fx.pipeline.PendingCount())
	}
}

func TestExpireStale(t *testing.T) {
	fx := newFixture(noChanceConfig())
	fx.ledger.health["rat"] = 500

	container, _ := fx.pipeline.CreateContainer(CreateRequest{
		Source:        "hero",
		PrimaryTarget: "rat",
		BaseDamage:    10,
	})

	fx.clock.advance(4 * time.Second)
	if n := fx.pipeline.ExpireStale(); n != 0 {
		t.Fatalf("expected nothing expired before TTL, got %d", n)
	}

	fx.clock.advance(time.Second)
	if n := fx.pipeline.ExpireStale(); n != 1 {
		t.Fatalf("expected one expiry at TTL, got %d", n)
	}
	if len(*fx.expired) != 1 || (*fx.expired)[0].ContainerID != container.ID {
		t.Fatalf("expected expiry event for %s, got %+v", container.ID, *fx.expired)
	}
	if _, err := fx.pipeline.ApplyContainer(container.ID); !errors.Is(err, ErrContainerNotPending) {
		t.Fatalf("expected expired container to refuse application, got %v", err)
	}
	if fx.ledger.health["rat"] != 500 {
		t.Fatalf("expiry must not commit damage, health %.2f", fx.ledger.health["rat"])
	}
}

func TestSessionRecordPerContainer(t *testing.T) {
	fx := newFixture(noChanceConfig())
	fx.ledger.health["rat"] = 500

	container, _ := fx.pipeline.CreateContainer(CreateRequest{
		Source:        "hero",
		PrimaryTarget: "rat",
		BaseDamage:    40,
	})
	if _, err := fx.pipeline.ApplyContainer(container.ID); err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}

	if len(fx.sessions.records) != 1 {
		t.Fatalf("expected one session record, got %d", len(fx.sessions.records))
	}
	record := fx.sessions.records[0]
	if record.ContainerID != container.ID || record.Attacks != 1 || record.Hits != 1 || record.Damage != 40 {
		t.Fatalf("unexpected session record: %+v", record)
	}
}

func TestActiveContainers(t *testing.T) {
	fx := newFixture(noChanceConfig())
	fx.ledger.health["rat"] = 500

	if _, err := fx.pipeline.CreateContainer(CreateRequest{
		Source:        "hero",
		PrimaryTarget: "rat",
		BaseDamage:    10,
	}); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	for _, id := range []string{"hero", "rat"} {
		if got := fx.pipeline.ActiveContainers(id); len(got) != 1 {
			t.Fatalf("expected one active container for %s, got %d", id, len(got))
		}
	}
	if got := fx.pipeline.ActiveContainers("bystander"); len(got) != 0 {
		t.Fatalf("expected no containers for bystander, got %d", len(got))
	}
}

func TestHitChanceBounds(t *testing.T) {
	cases := []struct {
		power, defense, want float64
	}{
		{0, 0, 0.8},
		{100, 0, 0.9},
		{0, 200, 0.7},
		{1000, 0, 0.95},
		{0, 5000, 0.1},
	}
	for _, tc := range cases {
		if got := HitChance(tc.power, tc.defense); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("HitChance(%.0f, %.0f): expected %.2f, got %.4f", tc.power, tc.defense, tc.want, got)
		}
	}
}

func TestMitigationCurve(t *testing.T) {
	if got := Mitigation(0); got != 0 {
		t.Fatalf("expected zero mitigation at zero defense, got %.4f", got)
	}
	if got := Mitigation(100); got != 0.5 {
		t.Fatalf("expected 0.5 at defense 100, got %.4f", got)
	}
	if got := Mitigation(300); got != 0.75 {
		t.Fatalf("expected 0.75 at defense 300, got %.4f", got)
	}
	if got := Mitigation(1e9); got >= 1 {
		t.Fatalf("mitigation must stay below 1, got %.6f", got)
	}
}
